package iiif

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/google/renameio"

	"github.com/FocuswithJustin/iiif-downgrade/core/errors"
)

const indent = "  "

// Encode writes m to w as indented JSON. HTML characters and non-ASCII text
// are written as-is.
func Encode(w io.Writer, m *Manifest) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	return enc.Encode(m)
}

// Marshal returns the encoded form of m, newline terminated.
func Marshal(m *Manifest) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save encodes m and atomically writes it to path. A nil manifest returns
// errors.ErrNotConverted and leaves path untouched.
func Save(m *Manifest, path string) error {
	if m == nil {
		return errors.ErrNotConverted
	}
	data, err := Marshal(m)
	if err != nil {
		return errors.Wrap(err, "encode manifest")
	}
	return WriteFile(path, data)
}

// WriteFile writes data to a temporary file next to path and renames it over
// path once fully written and closed. On any failure the temporary file is
// removed and path keeps its previous contents.
func WriteFile(path string, data []byte) error {
	pending, err := renameio.TempFile("", path)
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	defer pending.Cleanup()

	if err := pending.Chmod(0644); err != nil {
		return errors.NewIO("chmod", path, err)
	}
	if _, err := pending.Write(data); err != nil {
		return errors.NewIO("write", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return errors.NewIO("replace", path, err)
	}
	return nil
}
