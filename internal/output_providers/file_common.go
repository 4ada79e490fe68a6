package outputproviders

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const timestampLayout = "20060102-150405"

// collision retries before giving up on a unique name
const maxCollisions = 5

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DefaultFileName builds "<report>-<YYYYMMDD-HHMMSS>.<ext>"
func DefaultFileName(report, ext string, now time.Time) string {
	name := strings.Trim(unsafeChars.ReplaceAllString(report, "-"), "-.")
	if name == "" {
		name = "report"
	}
	return fmt.Sprintf("%s-%s.%s", name, now.Format(timestampLayout), ext)
}

// GenerateShortUUID generates a random 10-character UUID
func GenerateShortUUID() string {
	b := make([]byte, 5) // 5 bytes = 10 hex characters
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%010x", time.Now().UnixNano()&0xffffffffff)
	}
	return hex.EncodeToString(b)
}

// EnsureDirectoryExists creates dir and its parents when missing
func EnsureDirectoryExists(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path %s exists but is not a directory", dir)
		}
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	slog.Debug("created directory", "path", dir)
	return nil
}

// CreateExclusive creates filename under dir without ever overwriting an
// existing file. On collision a short random suffix is inserted before the
// extension.
func CreateExclusive(dir, filename string) (*os.File, string, error) {
	if err := EnsureDirectoryExists(dir); err != nil {
		return nil, "", err
	}

	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	candidate := filename

	for attempt := 0; attempt <= maxCollisions; attempt++ {
		fullpath := filepath.Join(dir, candidate)
		file, err := os.OpenFile(fullpath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return file, fullpath, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("failed to create %s: %w", fullpath, err)
		}

		slog.Debug("output file exists, picking another name", "path", fullpath)
		candidate = fmt.Sprintf("%s-%s%s", base, GenerateShortUUID(), ext)
	}
	return nil, "", fmt.Errorf("failed to find a free file name for %s in %s", filename, dir)
}
