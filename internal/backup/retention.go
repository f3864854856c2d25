package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	filePrefix = "boxes-backup-"
	fileSuffix = ".boxes"
)

// BackupInfo describes one archive on disk.
type BackupInfo struct {
	Path      string
	Size      int64
	CreatedAt time.Time
}

// RetentionPolicy decides which archives to keep. Input is newest first.
type RetentionPolicy interface {
	Apply(backups []BackupInfo) (keep []BackupInfo)
}

// CountPolicy keeps the N most recent archives.
type CountPolicy struct {
	MaxCount int
}

func (p *CountPolicy) Apply(backups []BackupInfo) []BackupInfo {
	if len(backups) <= p.MaxCount {
		return backups
	}
	return backups[:p.MaxCount]
}

// AgePolicy keeps archives newer than MaxAge.
type AgePolicy struct {
	MaxAge time.Duration
	Now    func() time.Time
}

func (p *AgePolicy) Apply(backups []BackupInfo) []BackupInfo {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	cutoff := now().Add(-p.MaxAge)
	var keep []BackupInfo
	for _, b := range backups {
		if b.CreatedAt.After(cutoff) {
			keep = append(keep, b)
		}
	}
	return keep
}

// CompositePolicy keeps an archive if any sub-policy keeps it.
type CompositePolicy struct {
	Policies []RetentionPolicy
}

func (p *CompositePolicy) Apply(backups []BackupInfo) []BackupInfo {
	kept := make(map[string]bool)
	for _, policy := range p.Policies {
		for _, b := range policy.Apply(backups) {
			kept[b.Path] = true
		}
	}

	var result []BackupInfo
	for _, b := range backups {
		if kept[b.Path] {
			result = append(result, b)
		}
	}
	return result
}

// BuildPolicy combines a count limit and an age string such as "30d".
// With neither rule set, every archive is kept.
func BuildPolicy(maxCount int, maxAge string) (RetentionPolicy, error) {
	var policies []RetentionPolicy
	if maxCount > 0 {
		policies = append(policies, &CountPolicy{MaxCount: maxCount})
	}
	if maxAge != "" {
		d, err := ParseDuration(maxAge)
		if err != nil {
			return nil, err
		}
		policies = append(policies, &AgePolicy{MaxAge: d})
	}

	switch len(policies) {
	case 0:
		return nil, nil
	case 1:
		return policies[0], nil
	}
	return &CompositePolicy{Policies: policies}, nil
}

// ListBackups returns the archives in dir, newest first. A missing
// directory has no archives.
func ListBackups(dir string) ([]BackupInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		bi := BackupInfo{
			Path:      filepath.Join(dir, name),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		}
		if h, err := ReadHeader(bi.Path); err == nil {
			bi.CreatedAt = h.CreatedAt
		}
		backups = append(backups, bi)
	}

	// The timestamp in the name sorts lexically.
	sort.Slice(backups, func(i, j int) bool {
		return filepath.Base(backups[i].Path) > filepath.Base(backups[j].Path)
	})
	return backups, nil
}

// ApplyRetention deletes the archives in dir that policy does not keep.
// A nil policy keeps everything.
func ApplyRetention(dir string, policy RetentionPolicy) (deleted []string, err error) {
	if policy == nil {
		return nil, nil
	}
	backups, err := ListBackups(dir)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]bool)
	for _, b := range policy.Apply(backups) {
		keep[b.Path] = true
	}
	for _, b := range backups {
		if keep[b.Path] {
			continue
		}
		if err := os.Remove(b.Path); err != nil {
			return deleted, fmt.Errorf("removing %s: %w", filepath.Base(b.Path), err)
		}
		deleted = append(deleted, b.Path)
	}
	return deleted, nil
}

// ParseDuration parses durations like "30d", "2w" or any time.ParseDuration string.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	num, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || num < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	switch s[len(s)-1] {
	case 'd':
		return time.Duration(num) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(num) * 7 * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("unknown duration suffix %q in %q", s[len(s)-1:], s)
}
