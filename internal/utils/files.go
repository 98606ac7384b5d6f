package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// StagedFileName returns a file name that is unique per call, e.g. "tiktok_<uuid>.mp4".
func StagedFileName(prefix, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	name := fmt.Sprintf("%s_%s", SanitizeFileName(prefix), uuid.New().String())
	if ext == "" {
		return name
	}
	return name + "." + ext
}

func SanitizeFileName(filename string) string {
	// Remove or replace invalid characters for file names
	invalidChars := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " "}
	sanitized := filename
	for _, char := range invalidChars {
		sanitized = strings.ReplaceAll(sanitized, char, "_")
	}

	// Limit filename length
	if len(sanitized) > 200 {
		ext := filepath.Ext(sanitized)
		base := sanitized[:200-len(ext)]
		sanitized = base + ext
	}

	return sanitized
}

// RemoveFile deletes path, treating an already missing file as success.
func RemoveFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
