package iiif

import (
	"github.com/FocuswithJustin/iiif-downgrade/core/errors"
)

// Converter holds one v3 manifest and its most recent conversion, for
// callers that prefer a convert-then-save object over Convert and Save.
// It is not safe for concurrent use.
type Converter struct {
	manifest []byte
	opts     Options
	result   *Manifest
}

// NewConverter returns a Converter for manifest using the default options.
// A non-empty overrideID replaces the manifest id in the output.
func NewConverter(manifest []byte, overrideID string) *Converter {
	opts := DefaultOptions()
	opts.OverrideID = overrideID
	return NewConverterWithOptions(manifest, opts)
}

// NewConverterWithOptions returns a Converter using opts.
func NewConverterWithOptions(manifest []byte, opts Options) *Converter {
	return &Converter{manifest: manifest, opts: opts}
}

// Convert converts the manifest and keeps the result for Save. A failed
// conversion keeps the previous result.
func (c *Converter) Convert() (*Manifest, error) {
	m, err := Convert(c.manifest, c.opts)
	if err != nil {
		return nil, err
	}
	c.result = m
	return m, nil
}

// Result returns the most recent conversion, or nil.
func (c *Converter) Result() *Manifest {
	return c.result
}

// Save writes the most recent conversion to path. It returns
// errors.ErrNotConverted if Convert has not succeeded yet.
func (c *Converter) Save(path string) error {
	if c.result == nil {
		return errors.ErrNotConverted
	}
	return Save(c.result, path)
}
