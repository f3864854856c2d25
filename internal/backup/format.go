package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// FormatVersion is the archive layout written by Write.
const FormatVersion = 1

// MaxDecompressedSize caps the decompressed payload of an archive (200MB).
const MaxDecompressedSize = 200 * 1024 * 1024

// ErrChecksum is returned when an archive payload does not match its header.
var ErrChecksum = errors.New("archive checksum mismatch")

// Header is the plain-text first line of an archive. It can be read
// without decompressing the payload.
type Header struct {
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	Checksum   string    `json:"checksum"`
	RunCount   int       `json:"run_count"`
	BatchCount int       `json:"batch_count"`
}

// Write stores a as a header line followed by a gzip-compressed JSON payload.
func Write(path string, a *Archive) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(payload); err != nil {
		return fmt.Errorf("compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	header := Header{
		Version:    FormatVersion,
		CreatedAt:  a.CreatedAt,
		Checksum:   checksum(compressed.Bytes()),
		RunCount:   len(a.Runs),
		BatchCount: a.BatchCount(),
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.Write(headerBytes)
	w.WriteByte('\n')
	w.Write(compressed.Bytes())
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	return f.Close()
}

// Read loads an archive, verifying its checksum before decompressing.
func Read(path string) (*Archive, error) {
	header, payload, err := open(path)
	if err != nil {
		return nil, err
	}
	if err := header.verify(payload); err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	decompressed, err := io.ReadAll(io.LimitReader(gzr, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if len(decompressed) > MaxDecompressedSize {
		return nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	var a Archive
	if err := json.Unmarshal(decompressed, &a); err != nil {
		return nil, fmt.Errorf("parsing archive: %w", err)
	}
	return &a, nil
}

// ReadHeader reads only the header line of an archive.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return readHeader(bufio.NewReader(f))
}

// Verify checks an archive's payload against the checksum in its header.
func Verify(path string) (*Header, error) {
	header, payload, err := open(path)
	if err != nil {
		return nil, err
	}
	if err := header.verify(payload); err != nil {
		return header, err
	}
	return header, nil
}

func open(path string) (*Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header, err := readHeader(r)
	if err != nil {
		return nil, nil, err
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading payload: %w", err)
	}
	return header, payload, nil
}

func readHeader(r *bufio.Reader) (*Header, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading header line: %w", err)
	}
	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &header); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported archive version %d", header.Version)
	}
	return &header, nil
}

func (h *Header) verify(payload []byte) error {
	if got := checksum(payload); got != h.Checksum {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksum, h.Checksum, got)
	}
	return nil
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])
}
