package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/iiif-downgrade/core/errors"
	"github.com/FocuswithJustin/iiif-downgrade/internal/logging"
	"github.com/FocuswithJustin/iiif-downgrade/internal/manifestio"
	"github.com/FocuswithJustin/iiif-downgrade/internal/validation"
)

// Summary totals a batch run.
type Summary struct {
	RunID     string
	Total     int
	Converted int
	Skipped   int
	Failed    int
	Duration  time.Duration
	Results   []Result
}

// Err returns an error naming the number of failed conversions, or nil.
func (s *Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d conversions failed", s.Failed, s.Total)
}

type job struct {
	source string
	output string
	err    error
}

// Batch converts every manifest file under inDir into outDir, mirroring the
// relative directory layout. Compressed inputs produce plain .json outputs.
// Per-file failures are reported in the Summary; the returned error is only
// set when the run itself cannot proceed.
func (p *Pipeline) Batch(ctx context.Context, inDir, outDir string) (*Summary, error) {
	start := time.Now()

	runID := logging.GetRunID(ctx)
	if runID == "" {
		runID = uuid.New().String()
		ctx = logging.WithRunID(ctx, runID)
	}

	jobs, err := planJobs(inDir, outDir)
	if err != nil {
		return nil, err
	}
	pool := NewWorkerPool[job, Result](p.cfg.Workers, len(jobs))
	logging.InfoContext(ctx, "batch_start", "input", inDir, "output", outDir,
		"files", len(jobs), "workers", pool.Workers())

	pool.Start(func(j job) Result {
		if j.err != nil {
			res, _ := p.fail(ctx, &Result{Source: j.source, Output: j.output}, j.err)
			return *res
		}
		if err := ctx.Err(); err != nil {
			return Result{Source: j.source, Output: j.output, Outcome: OutcomeFailed, Err: err}
		}
		res, _ := p.ConvertFile(ctx, j.source, j.output)
		return *res
	})
	for _, j := range jobs {
		pool.Submit(j)
	}
	pool.Close()

	summary := &Summary{RunID: runID, Total: len(jobs)}
	for res := range pool.Results() {
		switch res.Outcome {
		case OutcomeConverted:
			summary.Converted++
		case OutcomeSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
		summary.Results = append(summary.Results, res)
	}
	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].Source < summary.Results[j].Source
	})
	summary.Duration = time.Since(start)

	logging.BatchSummary(ctx, summary.Total, summary.Converted, summary.Skipped, summary.Failed, summary.Duration)
	return summary, nil
}

// planJobs walks inDir and pairs each manifest file with its output path.
// Two inputs that map to the same output (book.json and book.json.xz) are
// both rejected rather than racing for the file.
func planJobs(inDir, outDir string) ([]job, error) {
	if err := validation.ValidatePath(inDir); err != nil {
		return nil, errors.NewIO("read", inDir, err)
	}
	if err := validation.ValidatePath(outDir); err != nil {
		return nil, errors.NewIO("write", outDir, err)
	}

	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return nil, errors.NewIO("resolve", outDir, err)
	}
	if absIn, err := filepath.Abs(inDir); err == nil && absIn == absOut {
		return nil, errors.NewValidation("output", "output directory must differ from input directory")
	}

	var jobs []job
	owners := make(map[string][]int)

	err = filepath.WalkDir(inDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Outputs nested inside the input tree are not inputs.
			if abs, err := filepath.Abs(path); err == nil && abs == absOut {
				return filepath.SkipDir
			}
			return nil
		}
		if !manifestio.IsManifestFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(inDir, path)
		if err != nil {
			return err
		}
		relOut := filepath.Join(filepath.Dir(rel), manifestio.OutputName(filepath.Base(rel)))

		j := job{source: path}
		if clean, err := validation.SanitizePath(outDir, relOut); err != nil {
			j.err = errors.Wrapf(err, "output path for %s", path)
		} else {
			j.output = filepath.Join(outDir, clean)
			owners[j.output] = append(owners[j.output], len(jobs))
		}
		jobs = append(jobs, j)
		return nil
	})
	if err != nil {
		return nil, errors.NewIO("walk", inDir, err)
	}

	for output, idx := range owners {
		if len(idx) < 2 {
			continue
		}
		for _, i := range idx {
			jobs[i].err = errors.NewValidation("output", fmt.Sprintf("%d inputs map to %s", len(idx), output))
		}
	}

	return jobs, nil
}
