package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func infos(now time.Time, ages ...time.Duration) []BackupInfo {
	out := make([]BackupInfo, len(ages))
	for i, age := range ages {
		out[i] = BackupInfo{Path: filepath.Join("/b", string(rune('a'+i))), CreatedAt: now.Add(-age)}
	}
	return out
}

func TestCountPolicy(t *testing.T) {
	backups := infos(t0, 0, time.Hour, 2*time.Hour, 3*time.Hour)

	keep := (&CountPolicy{MaxCount: 2}).Apply(backups)
	if len(keep) != 2 || keep[0].Path != "/b/a" || keep[1].Path != "/b/b" {
		t.Errorf("kept %+v, want the two newest", keep)
	}
	if keep := (&CountPolicy{MaxCount: 9}).Apply(backups); len(keep) != 4 {
		t.Errorf("kept %d, want 4", len(keep))
	}
}

func TestAgePolicy(t *testing.T) {
	backups := infos(t0, time.Hour, 12*time.Hour, 48*time.Hour, 720*time.Hour)
	policy := &AgePolicy{MaxAge: 24 * time.Hour, Now: func() time.Time { return t0 }}

	if keep := policy.Apply(backups); len(keep) != 2 {
		t.Errorf("kept %d, want 2", len(keep))
	}
}

func TestCompositePolicy_Union(t *testing.T) {
	backups := infos(t0, time.Hour, 2*time.Hour, 48*time.Hour, 96*time.Hour)
	policy := &CompositePolicy{Policies: []RetentionPolicy{
		&CountPolicy{MaxCount: 1},
		&AgePolicy{MaxAge: 72 * time.Hour, Now: func() time.Time { return t0 }},
	}}

	keep := policy.Apply(backups)
	if len(keep) != 3 {
		t.Errorf("kept %d, want 3", len(keep))
	}
}

func TestBuildPolicy(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		age     string
		wantNil bool
		wantErr bool
	}{
		{"none", 0, "", true, false},
		{"count", 5, "", false, false},
		{"age", 0, "30d", false, false},
		{"both", 5, "2w", false, false},
		{"bad age", 5, "soon", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := BuildPolicy(tt.count, tt.age)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (p == nil) != tt.wantNil {
				t.Errorf("policy = %v, wantNil %v", p, tt.wantNil)
			}
		})
	}
}

func TestListBackups_AndApplyRetention(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 4; i++ {
		a := testArchive()
		a.CreatedAt = t0.Add(time.Duration(i) * time.Hour)
		if err := Write(GenerateBackupPath(dir, a.CreatedAt), a); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	// Unrelated files are ignored.
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600)
	os.WriteFile(filepath.Join(dir, "boxes-backup-partial.tmp"), []byte("x"), 0600)

	backups, err := ListBackups(dir)
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(backups) != 4 {
		t.Fatalf("ListBackups found %d, want 4", len(backups))
	}
	if !backups[0].CreatedAt.Equal(t0.Add(3 * time.Hour)) {
		t.Errorf("newest CreatedAt = %v, want header time %v", backups[0].CreatedAt, t0.Add(3*time.Hour))
	}

	deleted, err := ApplyRetention(dir, &CountPolicy{MaxCount: 1})
	if err != nil {
		t.Fatalf("ApplyRetention: %v", err)
	}
	if len(deleted) != 3 {
		t.Errorf("deleted %d, want 3", len(deleted))
	}
	left, _ := ListBackups(dir)
	if len(left) != 1 || left[0].Path != backups[0].Path {
		t.Errorf("left %+v, want only the newest", left)
	}
}

func TestListBackups_MissingDir(t *testing.T) {
	backups, err := ListBackups(filepath.Join(t.TempDir(), "nope"))
	if err != nil || backups != nil {
		t.Errorf("ListBackups = %v, %v; want nil, nil", backups, err)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"720h", 720 * time.Hour, false},
		{"30d", 30 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"", 0, true},
		{"d", 0, true},
		{"5y", 0, true},
		{"-3d", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
