// Package pipeline drives manifest conversions: reading inputs, converting,
// writing outputs, archiving them and recording them in the ledger.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"

	"github.com/FocuswithJustin/iiif-downgrade/core/cas"
	"github.com/FocuswithJustin/iiif-downgrade/core/errors"
	"github.com/FocuswithJustin/iiif-downgrade/core/iiif"
	"github.com/FocuswithJustin/iiif-downgrade/internal/ledger"
	"github.com/FocuswithJustin/iiif-downgrade/internal/logging"
	"github.com/FocuswithJustin/iiif-downgrade/internal/manifestio"
)

// StdoutPath is the output path that selects standard output.
const StdoutPath = "-"

// Config configures a Pipeline. Ledger and Archive are optional.
type Config struct {
	Options iiif.Options
	Workers int
	Force   bool
	Ledger  *ledger.Ledger
	Archive *cas.Store
	Stdout  io.Writer
}

// Outcome classifies a single conversion.
type Outcome string

const (
	OutcomeConverted Outcome = "converted"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Result describes one input handled by the pipeline.
type Result struct {
	Source       string
	Output       string
	Outcome      Outcome
	SourceDigest string
	OutputDigest string
	Canvases     int
	Images       int
	Duration     time.Duration
	Err          error
}

// Pipeline converts manifests according to its Config.
type Pipeline struct {
	cfg Config
}

// New creates a Pipeline. A nil Stdout defaults to os.Stdout.
func New(cfg Config) *Pipeline {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	return &Pipeline{cfg: cfg}
}

// OptionsKey identifies the conversion options in ledger records. Inputs
// converted under a different key are never skipped.
func OptionsKey(opts iiif.Options) string {
	return fmt.Sprintf("v2;id=%s;thumbnail=%t", opts.OverrideID, opts.IncludeTopLevelThumbnail)
}

// ConvertFile converts input (a path or "-") and writes the v2 manifest to
// output (a path or "-"). When a ledger is configured and Force is unset, an
// input whose digest and options match a recorded conversion to the same,
// unmodified output is skipped.
func (p *Pipeline) ConvertFile(ctx context.Context, input, output string) (*Result, error) {
	start := time.Now()
	res := &Result{Source: input, Output: output}

	data, err := manifestio.ReadFile(input)
	if err != nil {
		return p.fail(ctx, res, err)
	}
	res.SourceDigest = cas.Hash(data)
	key := OptionsKey(p.cfg.Options)

	if p.upToDate(ctx, res.SourceDigest, key, output) {
		res.Outcome = OutcomeSkipped
		res.Duration = time.Since(start)
		logging.ConversionSkipped(ctx, input, "unchanged", "output", output)
		return res, nil
	}

	m, err := iiif.Convert(data, p.cfg.Options)
	if err != nil {
		return p.fail(ctx, res, errors.Wrapf(err, "convert %s", input))
	}
	encoded, err := iiif.Marshal(m)
	if err != nil {
		return p.fail(ctx, res, errors.Wrapf(err, "encode %s", input))
	}
	res.OutputDigest = cas.Hash(encoded)
	res.Canvases = m.CanvasCount()
	res.Images = m.ImageCount()

	if err := p.writeOutput(output, encoded); err != nil {
		return p.fail(ctx, res, err)
	}

	if p.cfg.Archive != nil {
		if _, err := p.cfg.Archive.Store(encoded); err != nil {
			return p.fail(ctx, res, errors.Wrapf(err, "archive %s", output))
		}
	}

	if p.cfg.Ledger != nil {
		rec := &ledger.Record{
			RunID:        logging.GetRunID(ctx),
			Source:       input,
			SourceDigest: res.SourceDigest,
			OptionsKey:   key,
			Output:       output,
			OutputDigest: res.OutputDigest,
			ManifestID:   gjson.ParseBytes(m.ID).String(),
			Label:        m.Label,
			Canvases:     res.Canvases,
			Images:       res.Images,
		}
		if err := p.cfg.Ledger.Record(ctx, rec); err != nil {
			return p.fail(ctx, res, err)
		}
	}

	res.Outcome = OutcomeConverted
	res.Duration = time.Since(start)
	logging.Conversion(ctx, input, output, res.Canvases, res.Images, res.Duration,
		"output_blake3", res.OutputDigest)
	return res, nil
}

// upToDate reports whether the ledger holds a conversion of the same source
// and options to output, and output still carries the recorded bytes.
func (p *Pipeline) upToDate(ctx context.Context, sourceDigest, key, output string) bool {
	if p.cfg.Ledger == nil || p.cfg.Force || output == StdoutPath {
		return false
	}
	rec, err := p.cfg.Ledger.Lookup(ctx, sourceDigest, key, output)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			logging.WarnContext(ctx, "ledger lookup failed", "digest", sourceDigest, "error", err)
		}
		return false
	}
	current, err := os.ReadFile(output)
	if err != nil {
		return false
	}
	return cas.Hash(current) == rec.OutputDigest
}

func (p *Pipeline) writeOutput(output string, data []byte) error {
	if output == StdoutPath {
		if _, err := io.Copy(p.cfg.Stdout, bytes.NewReader(data)); err != nil {
			return errors.NewIO("write", "stdout", err)
		}
		return nil
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.NewIO("create", dir, err)
		}
	}
	return iiif.WriteFile(output, data)
}

func (p *Pipeline) fail(ctx context.Context, res *Result, err error) (*Result, error) {
	res.Outcome = OutcomeFailed
	res.Err = err
	logging.ConversionError(ctx, res.Source, err)
	return res, err
}
