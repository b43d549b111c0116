package validation

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizePath(t *testing.T) {
	baseDir := "/tmp/test"

	tests := []struct {
		name      string
		baseDir   string
		userPath  string
		want      string
		wantError error
	}{
		{
			name:     "simple valid path",
			baseDir:  baseDir,
			userPath: "book.json",
			want:     "book.json",
		},
		{
			name:     "nested valid path",
			baseDir:  baseDir,
			userPath: "collection/book.json",
			want:     filepath.Join("collection", "book.json"),
		},
		{
			name:     "path with redundant separators",
			baseDir:  baseDir,
			userPath: "collection//book.json",
			want:     filepath.Join("collection", "book.json"),
		},
		{
			name:     "path with dot component",
			baseDir:  baseDir,
			userPath: "./book.json",
			want:     "book.json",
		},
		{
			name:     "dots inside a name",
			baseDir:  baseDir,
			userPath: "vol..1.json",
			want:     "vol..1.json",
		},
		{
			name:      "path traversal with dotdot",
			baseDir:   baseDir,
			userPath:  "../etc/passwd",
			wantError: ErrPathTraversal,
		},
		{
			name:      "path traversal in middle",
			baseDir:   baseDir,
			userPath:  "subdir/../../etc/passwd",
			wantError: ErrPathTraversal,
		},
		{
			name:      "absolute path",
			baseDir:   baseDir,
			userPath:  "/etc/passwd",
			wantError: ErrPathTraversal,
		},
		{
			name:      "empty path",
			baseDir:   baseDir,
			userPath:  "",
			wantError: ErrEmptyPath,
		},
		{
			name:      "very long path",
			baseDir:   baseDir,
			userPath:  strings.Repeat("a/", 2048) + "book.json",
			wantError: ErrPathTooLong,
		},
		{
			name:      "path that would escape after resolution",
			baseDir:   "/tmp/base/subdir",
			userPath:  "a/b/../../../etc/passwd",
			wantError: ErrPathTraversal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizePath(tt.baseDir, tt.userPath)

			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Errorf("SanitizePath() error = %v, want %v", err, tt.wantError)
				}
				return
			}

			if err != nil {
				t.Fatalf("SanitizePath() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("SanitizePath() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsPathSafe(t *testing.T) {
	if !IsPathSafe("/tmp/out", "a/b.json") {
		t.Error("IsPathSafe(a/b.json) = false, want true")
	}
	if IsPathSafe("/tmp/out", "../b.json") {
		t.Error("IsPathSafe(../b.json) = true, want false")
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantError error
	}{
		{name: "relative path", path: "manifests/book.json"},
		{name: "absolute path", path: "/data/manifests/book.json"},
		{name: "unicode path", path: "/data/手稿/book.json"},
		{name: "empty path", path: "", wantError: ErrEmptyPath},
		{name: "too long", path: strings.Repeat("a", MaxPathLength+1), wantError: ErrPathTooLong},
		{name: "null byte", path: "book\x00.json", wantError: ErrInvalidCharacter},
		{name: "newline", path: "book\n.json", wantError: ErrInvalidCharacter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantError == nil {
				if err != nil {
					t.Errorf("ValidatePath() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantError) {
				t.Errorf("ValidatePath() error = %v, want %v", err, tt.wantError)
			}
		})
	}
}

func TestDetectFileType(t *testing.T) {
	gzipHeader := []byte{0x1f, 0x8b, 0x08, 0x00}
	xzHeader := []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00, 0x00, 0x04}

	tests := []struct {
		name     string
		content  []byte
		filename string
		want     FileType
		wantErr  bool
	}{
		{name: "json object", content: []byte(`{"id":"m"}`), filename: "m.json", want: FileTypeJSON},
		{name: "json with BOM and whitespace", content: append([]byte{0xef, 0xbb, 0xbf}, []byte("\n  {}")...), filename: "m.json", want: FileTypeJSON},
		{name: "json array", content: []byte(`[1,2]`), filename: "m.json", want: FileTypeJSON},
		{name: "json without extension", content: []byte(`{}`), filename: "manifest", want: FileTypeJSON},
		{name: "jsonld extension", content: []byte(`{}`), filename: "m.jsonld", want: FileTypeJSON},
		{name: "gzip", content: gzipHeader, filename: "m.json.gz", want: FileTypeGzip},
		{name: "xz", content: xzHeader, filename: "m.json.xz", want: FileTypeXZ},
		{name: "xz from stdin name", content: xzHeader, filename: "-", want: FileTypeXZ},
		{name: "gzip named json", content: gzipHeader, filename: "m.json", wantErr: true},
		{name: "plain named xz", content: []byte(`{}`), filename: "m.json.xz", wantErr: true},
		{name: "binary", content: []byte{0x00, 0x01, 0x02}, filename: "m.bin", wantErr: true},
		{name: "empty", content: nil, filename: "m.json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFileType(bytes.NewReader(tt.content), tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DetectFileType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("DetectFileType() = %v, want %v", got, tt.want)
			}
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("read failed")
}

func TestDetectFileTypeReadError(t *testing.T) {
	if _, err := DetectFileType(failingReader{}, "m.json"); err == nil {
		t.Error("DetectFileType() expected error for failing reader")
	}
}
