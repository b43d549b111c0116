// Package cas provides a content-addressed archive for converted manifests.
// Blobs are keyed by their BLAKE3 digest, so re-archiving an identical
// conversion is a no-op and stored bytes can be verified on read.
package cas

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/zeebo/blake3"
)

// osRename is a variable to allow testing of rename errors.
var osRename = os.Rename

// tempFileWrite is a function variable for writing to temp files (for testing).
var tempFileWrite = func(f *os.File, data []byte) (int, error) {
	return f.Write(data)
}

// tempFileClose is a function variable for closing temp files (for testing).
var tempFileClose = func(f io.Closer) error {
	return f.Close()
}

// ErrBlobNotFound is returned when a blob with the given digest does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// ErrInvalidHash is returned when a digest string is not 64 lowercase hex characters.
var ErrInvalidHash = errors.New("invalid hash format")

// ErrCorruptBlob is returned when stored bytes no longer match their digest.
var ErrCorruptBlob = errors.New("blob content does not match digest")

var digestPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Store is a directory of blobs addressed by BLAKE3 digest.
type Store struct {
	root string
}

// NewStore creates a store rooted at root, creating the blob directory if needed.
func NewStore(root string) (*Store, error) {
	blobDir := filepath.Join(root, "blobs", "blake3")
	if err := os.MkdirAll(blobDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}

	return &Store{root: root}, nil
}

// Store writes data and returns its BLAKE3 digest.
// If a blob with the same digest already exists this is a no-op.
func (s *Store) Store(data []byte) (string, error) {
	hash := Hash(data)

	blobPath := s.pathForHash(hash)
	if _, err := os.Stat(blobPath); err == nil {
		return hash, nil
	}

	prefixDir := filepath.Dir(blobPath)
	if err := os.MkdirAll(prefixDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create prefix directory: %w", err)
	}

	tempFile, err := os.CreateTemp(prefixDir, ".blob-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFileWrite(tempFile, data); err != nil {
		tempFileClose(tempFile)
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	if err := tempFileClose(tempFile); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	// Rename to final path (atomic on POSIX)
	if err := osRename(tempPath, blobPath); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to rename blob: %w", err)
	}

	return hash, nil
}

// Retrieve returns the blob with the given digest.
// The content is re-hashed and ErrCorruptBlob is returned on mismatch.
func (s *Store) Retrieve(hash string) ([]byte, error) {
	if !isValidHash(hash) {
		return nil, ErrInvalidHash
	}

	data, err := os.ReadFile(s.pathForHash(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	if Hash(data) != hash {
		return nil, fmt.Errorf("%w: %s", ErrCorruptBlob, hash)
	}

	return data, nil
}

// Exists reports whether a blob with the given digest is stored.
func (s *Store) Exists(hash string) bool {
	if !isValidHash(hash) {
		return false
	}
	_, err := os.Stat(s.pathForHash(hash))
	return err == nil
}

// pathForHash returns <root>/blobs/blake3/<first2>/<hash>.json.
func (s *Store) pathForHash(hash string) string {
	return filepath.Join(s.root, "blobs", "blake3", hash[:2], hash+".json")
}

func isValidHash(hash string) bool {
	return digestPattern.MatchString(hash)
}

// Hash computes the hex BLAKE3 digest of data without storing it.
func Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
