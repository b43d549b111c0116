// Command iiif-downgrade converts IIIF Presentation 3.0 manifests to
// Presentation 2.1, one file at a time or a directory tree in batch.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/iiif-downgrade/core/cas"
	"github.com/FocuswithJustin/iiif-downgrade/core/iiif"
	"github.com/FocuswithJustin/iiif-downgrade/core/sqlite"
	"github.com/FocuswithJustin/iiif-downgrade/internal/ledger"
	"github.com/FocuswithJustin/iiif-downgrade/internal/logging"
	"github.com/FocuswithJustin/iiif-downgrade/internal/pipeline"
	"github.com/FocuswithJustin/iiif-downgrade/internal/validation"
)

const version = "0.2.0"

// configPath is read by kong's JSON resolver; a missing file is ignored.
const configPath = "~/.config/iiif-downgrade/config.json"

// stdout receives converted manifests and command output.
var stdout io.Writer = os.Stdout

// CLI defines the command-line interface for iiif-downgrade.
var CLI struct {
	LogLevel  string `name:"log-level" help:"Log level" enum:"debug,info,warn,error" default:"info"`
	LogFormat string `name:"log-format" help:"Log format" enum:"text,json" default:"text"`

	Convert ConvertCmd `cmd:"" help:"Convert a single v3 manifest to v2"`
	Batch   BatchCmd   `cmd:"" help:"Convert every manifest under a directory"`
	History HistoryCmd `cmd:"" help:"List recorded conversions"`
	Show    ShowCmd    `cmd:"" help:"Print an archived v2 manifest"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// ConvertCmd converts one manifest.
type ConvertCmd struct {
	Input     string `arg:"" help:"v3 manifest (.json, .json.xz, .json.gz, or - for stdin)"`
	Out       string `short:"o" help:"Output path, - for stdout" default:"-"`
	ID        string `name:"id" help:"Override the manifest @id"`
	Thumbnail bool   `help:"Derive the manifest thumbnail from the first canvas" default:"true" negatable:""`
	Archive   string `help:"Archive emitted manifests in this content store" type:"path"`
	Ledger    string `help:"Record the conversion in this SQLite ledger" type:"path"`
}

func (c *ConvertCmd) Run(ctx context.Context) error {
	if c.Out != pipeline.StdoutPath {
		if err := validation.ValidatePath(c.Out); err != nil {
			return fmt.Errorf("invalid output path: %w", err)
		}
	}

	p, closeFn, err := newPipeline(pipeline.Config{
		Options: iiif.Options{OverrideID: c.ID, IncludeTopLevelThumbnail: c.Thumbnail},
	}, c.Archive, c.Ledger)
	if err != nil {
		return err
	}
	defer closeFn()

	_, err = p.ConvertFile(ctx, c.Input, c.Out)
	return err
}

// BatchCmd converts a directory tree.
type BatchCmd struct {
	Dir       string `arg:"" help:"Directory of v3 manifests" type:"existingdir"`
	Out       string `required:"" help:"Output directory" type:"path"`
	Workers   int    `short:"w" help:"Parallel conversions (0 = number of CPUs)" default:"0"`
	Thumbnail bool   `help:"Derive manifest thumbnails from first canvases" default:"true" negatable:""`
	Archive   string `help:"Archive emitted manifests in this content store" type:"path"`
	Ledger    string `help:"SQLite ledger used to skip unchanged inputs" type:"path"`
	Force     bool   `help:"Convert every input even if the ledger has it"`
}

func (c *BatchCmd) Run(ctx context.Context) error {
	p, closeFn, err := newPipeline(pipeline.Config{
		Options: iiif.Options{IncludeTopLevelThumbnail: c.Thumbnail},
		Workers: c.Workers,
		Force:   c.Force,
	}, c.Archive, c.Ledger)
	if err != nil {
		return err
	}
	defer closeFn()

	summary, err := p.Batch(ctx, c.Dir, c.Out)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Converted: %d  Skipped: %d  Failed: %d  (%d files, %s)\n",
		summary.Converted, summary.Skipped, summary.Failed, summary.Total, summary.Duration.Round(time.Millisecond))
	for _, r := range summary.Results {
		if r.Err != nil {
			fmt.Fprintf(stdout, "  FAIL %s: %v\n", r.Source, r.Err)
		}
	}
	return summary.Err()
}

// HistoryCmd lists ledger records.
type HistoryCmd struct {
	Ledger  string `required:"" help:"SQLite ledger to read" type:"path"`
	Limit   int    `short:"n" help:"Maximum records to show" default:"20"`
	JSON    bool   `name:"json" help:"Print records as JSON"`
	Archive string `help:"Mark records whose output is held in this content store" type:"path"`
}

// historyEntry is a ledger record plus its archive status.
type historyEntry struct {
	ledger.Record
	Archived *bool `json:"archived,omitempty"`
}

func (c *HistoryCmd) Run(ctx context.Context) error {
	l, err := ledger.OpenReadOnly(c.Ledger)
	if err != nil {
		return err
	}
	defer l.Close()

	records, err := l.List(ctx, c.Limit)
	if err != nil {
		return err
	}

	var store *cas.Store
	if c.Archive != "" {
		if store, err = cas.NewStore(c.Archive); err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
	}
	entries := make([]historyEntry, 0, len(records))
	for _, r := range records {
		e := historyEntry{Record: r}
		if store != nil {
			archived := store.Exists(r.OutputDigest)
			e.Archived = &archived
		}
		entries = append(entries, e)
	}

	if c.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No conversions recorded.")
		return nil
	}
	for _, e := range entries {
		mark := ""
		if e.Archived != nil && *e.Archived {
			mark = "  [archived]"
		}
		fmt.Fprintf(stdout, "%s  %s -> %s  canvases=%d images=%d  %s%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Source, e.Output,
			e.Canvases, e.Images, e.OutputDigest, mark)
	}
	return nil
}

// ShowCmd prints an archived v2 manifest.
type ShowCmd struct {
	Digest  string `arg:"" help:"BLAKE3 digest of the emitted manifest (see history)"`
	Archive string `required:"" help:"Content store holding archived manifests" type:"path"`
}

func (c *ShowCmd) Run() error {
	store, err := cas.NewStore(c.Archive)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	data, err := store.Retrieve(c.Digest)
	if err != nil {
		return fmt.Errorf("manifest %s: %w", c.Digest, err)
	}
	_, err = stdout.Write(data)
	return err
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := sqlite.GetInfo()
	fmt.Fprintf(stdout, "iiif-downgrade version %s (sqlite: %s)\n", version, info.Package)
	return nil
}

// newPipeline opens the optional archive and ledger and returns a pipeline
// plus a function that releases them.
func newPipeline(cfg pipeline.Config, archiveDir, ledgerPath string) (*pipeline.Pipeline, func(), error) {
	closeFn := func() {}

	if archiveDir != "" {
		store, err := cas.NewStore(archiveDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open archive: %w", err)
		}
		cfg.Archive = store
	}

	if ledgerPath != "" {
		l, err := ledger.Open(ledgerPath)
		if err != nil {
			return nil, nil, err
		}
		cfg.Ledger = l
		closeFn = func() {
			if err := l.Close(); err != nil {
				logging.Warn("failed to close ledger", "path", ledgerPath, "error", err)
			}
		}
	}

	cfg.Stdout = stdout
	return pipeline.New(cfg), closeFn, nil
}

func setupLogging(level, format string) error {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	logFormat, err := logging.ParseFormat(format)
	if err != nil {
		return err
	}
	logging.InitLogger(lvl, logFormat)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("iiif-downgrade"),
		kong.Description("Convert IIIF Presentation 3.0 manifests to Presentation 2.1"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Configuration(kong.JSON, configPath),
	)
	ctx.FatalIfErrorf(setupLogging(CLI.LogLevel, CLI.LogFormat))

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx.BindTo(runCtx, (*context.Context)(nil))

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
