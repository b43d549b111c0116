package cas

import (
	"bytes"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeebo/blake3"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

// TestStoreAndRetrieve tests that storing a manifest returns its BLAKE3
// digest and that retrieving by digest returns the exact same bytes.
func TestStoreAndRetrieve(t *testing.T) {
	store := newTestStore(t)

	testData := []byte("{\n  \"@type\": \"sc:Manifest\"\n}\n")
	h := blake3.Sum256(testData)
	expectedHash := hex.EncodeToString(h[:])

	hash, err := store.Store(testData)
	if err != nil {
		t.Fatalf("failed to store blob: %v", err)
	}
	if hash != expectedHash {
		t.Errorf("hash mismatch: got %s, want %s", hash, expectedHash)
	}

	retrieved, err := store.Retrieve(hash)
	if err != nil {
		t.Fatalf("failed to retrieve blob: %v", err)
	}
	if !bytes.Equal(retrieved, testData) {
		t.Errorf("retrieved data mismatch: got %q, want %q", retrieved, testData)
	}
}

// TestStoreDuplicate tests that storing the same content twice returns the same digest.
func TestStoreDuplicate(t *testing.T) {
	store := newTestStore(t)
	testData := []byte("Duplicate content test")

	hash1, err := store.Store(testData)
	if err != nil {
		t.Fatalf("first store failed: %v", err)
	}
	hash2, err := store.Store(testData)
	if err != nil {
		t.Fatalf("second store failed: %v", err)
	}
	if hash1 != hash2 {
		t.Errorf("duplicate hashes differ: %s != %s", hash1, hash2)
	}

	entries, err := os.ReadDir(filepath.Dir(store.pathForHash(hash1)))
	if err != nil {
		t.Fatalf("read prefix dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("prefix dir holds %d entries, want 1", len(entries))
	}
}

func TestRetrieveNonExistent(t *testing.T) {
	store := newTestStore(t)

	fakeHash := strings.Repeat("0", 64)
	if _, err := store.Retrieve(fakeHash); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestInvalidHash(t *testing.T) {
	store := newTestStore(t)

	invalidHashes := []string{
		"",
		"abc",
		"not-a-valid-hash",
		strings.Repeat("Z", 64),
		strings.Repeat("A", 64),
		strings.Repeat("0", 63),
		strings.Repeat("0", 65),
		"../" + strings.Repeat("0", 61),
	}

	for _, hash := range invalidHashes {
		if _, err := store.Retrieve(hash); !errors.Is(err, ErrInvalidHash) {
			t.Errorf("Retrieve(%q) error = %v, want ErrInvalidHash", hash, err)
		}
		if store.Exists(hash) {
			t.Errorf("Exists(%q) = true, want false", hash)
		}
	}
}

func TestRetrieveCorrupt(t *testing.T) {
	store := newTestStore(t)

	hash, err := store.Store([]byte(`{"label":"original"}`))
	if err != nil {
		t.Fatalf("failed to store blob: %v", err)
	}
	if err := os.WriteFile(store.pathForHash(hash), []byte(`{"label":"tampered"}`), 0644); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	if _, err := store.Retrieve(hash); !errors.Is(err, ErrCorruptBlob) {
		t.Errorf("Retrieve() error = %v, want ErrCorruptBlob", err)
	}
}

// TestBlobPath tests that blobs are stored at blobs/blake3/<first2>/<hash>.json.
func TestBlobPath(t *testing.T) {
	store := newTestStore(t)

	hash, err := store.Store([]byte("Path structure test"))
	if err != nil {
		t.Fatalf("failed to store blob: %v", err)
	}

	expectedPath := filepath.Join(store.root, "blobs", "blake3", hash[:2], hash+".json")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("blob not found at expected path %s: %v", expectedPath, err)
	}
}

func TestExists(t *testing.T) {
	store := newTestStore(t)
	testData := []byte("Existence test")
	hash := Hash(testData)

	if store.Exists(hash) {
		t.Error("blob should not exist before storing")
	}
	if _, err := store.Store(testData); err != nil {
		t.Fatalf("failed to store blob: %v", err)
	}
	if !store.Exists(hash) {
		t.Error("blob should exist after storing")
	}
}

func TestHash(t *testing.T) {
	hash := Hash([]byte("Hello, BLAKE3!"))
	if len(hash) != 64 {
		t.Errorf("hash length = %d, want 64", len(hash))
	}
	if hash != Hash([]byte("Hello, BLAKE3!")) {
		t.Error("same data produced different hashes")
	}
	if hash == Hash([]byte("Different data")) {
		t.Error("different data produced same hash")
	}
}

// TestStoreWriteErrors exercises the cleanup paths of the atomic write.
func TestStoreWriteErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		setup func()
		want  string
	}{
		{
			name: "write fails",
			setup: func() {
				tempFileWrite = func(*os.File, []byte) (int, error) { return 0, boom }
			},
			want: "failed to write blob",
		},
		{
			name: "rename fails",
			setup: func() {
				osRename = func(string, string) error { return boom }
			},
			want: "failed to rename blob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origWrite, origRename := tempFileWrite, osRename
			defer func() { tempFileWrite, osRename = origWrite, origRename }()
			tt.setup()

			store := newTestStore(t)
			data := []byte(tt.name)
			_, err := store.Store(data)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Store() error = %v, want %q", err, tt.want)
			}
			if !errors.Is(err, boom) {
				t.Errorf("Store() error does not wrap cause: %v", err)
			}

			entries, _ := os.ReadDir(filepath.Dir(store.pathForHash(Hash(data))))
			if len(entries) != 0 {
				t.Errorf("temp file left behind: %d entries", len(entries))
			}
		})
	}
}
