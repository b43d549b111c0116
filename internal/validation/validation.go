// Package validation provides input validation for user-supplied paths and
// manifest files, guarding against path traversal and mislabeled inputs.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
)

// Security limits to prevent DoS attacks (CWE-400).
const (
	// MaxManifestSize is the maximum allowed decoded manifest size (256 MB).
	MaxManifestSize = 256 << 20
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTraversal    = errors.New("path traversal detected")
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
)

// SanitizePath validates and sanitizes a user-supplied path to prevent path traversal attacks.
// It ensures the path does not escape the provided base directory.
// Returns the cleaned path relative to the base directory, or an error if invalid.
func SanitizePath(baseDir, userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	if len(userPath) > MaxPathLength {
		return "", ErrPathTooLong
	}

	cleanPath := filepath.Clean(userPath)

	// Reject paths that try to escape the base directory
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}

	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("%w: absolute path not allowed", ErrPathTraversal)
	}

	fullPath := filepath.Join(baseDir, cleanPath)
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	relPath, err := filepath.Rel(absBase, absPath)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}

	return cleanPath, nil
}

// IsPathSafe reports whether userPath stays inside baseDir.
func IsPathSafe(baseDir, userPath string) bool {
	_, err := SanitizePath(baseDir, userPath)
	return err == nil
}

// ValidatePath performs path validation without requiring a base directory.
// It checks length limits and rejects null bytes and control characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}

	return nil
}

// FileType represents a detected manifest file type.
type FileType string

const (
	FileTypeJSON    FileType = "json"
	FileTypeGzip    FileType = "gzip"
	FileTypeXZ      FileType = "xz"
	FileTypeUnknown FileType = "unknown"
)

// HeaderSize is the number of leading bytes DetectFileType inspects.
const HeaderSize = 512

// magicBytes defines magic byte signatures for compressed inputs.
var magicBytes = []struct {
	fileType FileType
	magic    []byte
}{
	{FileTypeGzip, []byte{0x1f, 0x8b}},
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
}

// DetectFileType reads the header of a manifest file and reports whether it is
// plain JSON or a gzip/xz stream. Content wins over the extension, but a
// compressed extension on plain content (or the reverse) is reported as a
// mismatch.
func DetectFileType(reader io.Reader, filename string) (FileType, error) {
	buf := make([]byte, HeaderSize)
	n, err := io.ReadFull(reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = buf[:n]

	detected := detectFileTypeFromMagic(buf)
	expected := detectFileTypeFromExtension(filename)

	if detected == FileTypeUnknown && looksLikeJSON(buf) {
		detected = FileTypeJSON
	}

	switch {
	case detected == FileTypeUnknown:
		return FileTypeUnknown, fmt.Errorf("unrecognized content in %s", filepath.Base(filename))
	case expected == FileTypeUnknown || expected == detected:
		return detected, nil
	}
	return FileTypeUnknown, fmt.Errorf("file type mismatch: extension suggests %s but content is %s", expected, detected)
}

func detectFileTypeFromMagic(buf []byte) FileType {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(buf, sig.magic) {
			return sig.fileType
		}
	}
	return FileTypeUnknown
}

func detectFileTypeFromExtension(filename string) FileType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json", ".jsonld":
		return FileTypeJSON
	case ".gz":
		return FileTypeGzip
	case ".xz":
		return FileTypeXZ
	}
	return FileTypeUnknown
}

// looksLikeJSON reports whether buf starts, after an optional UTF-8 BOM and
// whitespace, with a character that can open a JSON value.
func looksLikeJSON(buf []byte) bool {
	buf = bytes.TrimPrefix(buf, []byte{0xef, 0xbb, 0xbf})
	buf = bytes.TrimLeft(buf, " \t\r\n")
	if len(buf) == 0 {
		return false
	}
	switch c := buf[0]; {
	case c == '{', c == '[', c == '"', c == '-', c >= '0' && c <= '9':
		return true
	case bytes.HasPrefix(buf, []byte("null")), bytes.HasPrefix(buf, []byte("true")), bytes.HasPrefix(buf, []byte("false")):
		return true
	}
	return false
}
