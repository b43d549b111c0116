// Package manifestio reads Presentation manifests from plain JSON files,
// xz or gzip compressed files, or standard input.
package manifestio

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/iiif-downgrade/core/errors"
	"github.com/FocuswithJustin/iiif-downgrade/internal/validation"
)

// StdinPath is the path that selects standard input.
const StdinPath = "-"

// stdin is a variable to allow tests to substitute standard input.
var stdin io.Reader = os.Stdin

// Reader wraps a manifest source with transparent decompression.
type Reader struct {
	io.Reader
	Type         validation.FileType
	file         io.Closer
	decompressor io.Closer
}

// Open opens the manifest at path, or standard input when path is "-".
// Compression is detected from the content header and checked against
// the file extension.
func Open(path string) (*Reader, error) {
	var src io.Reader
	var file io.Closer

	if path == StdinPath {
		src = stdin
	} else {
		if err := validation.ValidatePath(path); err != nil {
			return nil, errors.NewIO("open", path, err)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.NewIO("open", path, err)
		}
		src, file = f, f
	}

	br := bufio.NewReader(src)
	header, err := br.Peek(validation.HeaderSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		closeQuietly(file)
		return nil, errors.NewIO("read", path, err)
	}

	fileType, err := validation.DetectFileType(bytes.NewReader(header), path)
	if err != nil {
		closeQuietly(file)
		return nil, errors.NewParse("manifest", path, err.Error())
	}

	r := &Reader{Type: fileType, file: file}
	switch fileType {
	case validation.FileTypeXZ:
		xzr, err := xz.NewReader(br)
		if err != nil {
			closeQuietly(file)
			return nil, errors.NewParse("xz", path, err.Error())
		}
		r.Reader = xzr
	case validation.FileTypeGzip:
		gzr, err := gzip.NewReader(br)
		if err != nil {
			closeQuietly(file)
			return nil, errors.NewParse("gzip", path, err.Error())
		}
		r.Reader = gzr
		r.decompressor = gzr
	case validation.FileTypeJSON:
		r.Reader = br
	default:
		closeQuietly(file)
		return nil, errors.NewUnsupported("manifest encoding", string(fileType))
	}

	return r, nil
}

// Close closes the decompressor and the underlying file, if any.
func (r *Reader) Close() error {
	var first error
	if r.decompressor != nil {
		first = r.decompressor.Close()
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// utf8BOM is dropped from decoded manifests; JSON parsers reject it.
var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// ReadFile reads and decompresses a whole manifest, dropping a leading
// UTF-8 byte order mark. Decoded content larger than
// validation.MaxManifestSize is rejected.
func ReadFile(path string) ([]byte, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, validation.MaxManifestSize+1))
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	if len(data) > validation.MaxManifestSize {
		return nil, &errors.ValidationError{
			Field:   "manifest",
			Value:   path,
			Message: "exceeds maximum manifest size",
		}
	}
	return bytes.TrimPrefix(data, utf8BOM), nil
}

// manifestSuffixes lists the file suffixes a batch run picks up.
var manifestSuffixes = []string{".json", ".jsonld", ".json.xz", ".json.gz", ".jsonld.xz", ".jsonld.gz"}

// IsManifestFile reports whether name carries a manifest suffix.
func IsManifestFile(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range manifestSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// OutputName returns the uncompressed JSON name for an input file name:
// "book.json.xz" becomes "book.json" and "book.jsonld" becomes "book.json".
func OutputName(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range []string{".xz", ".gz"} {
		if strings.HasSuffix(lower, ext) {
			name = name[:len(name)-len(ext)]
			lower = lower[:len(lower)-len(ext)]
			break
		}
	}
	if strings.HasSuffix(lower, ".jsonld") {
		return name[:len(name)-len(".jsonld")] + ".json"
	}
	if !strings.HasSuffix(lower, ".json") {
		return name + ".json"
	}
	return name
}

func closeQuietly(c io.Closer) {
	if c != nil {
		c.Close()
	}
}
