package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ligustah/pdfslurp/internal/config"
	pdfhttp "github.com/ligustah/pdfslurp/internal/http"
	"github.com/ligustah/pdfslurp/internal/progress"
	"github.com/ligustah/pdfslurp/internal/scan"
	"github.com/ligustah/pdfslurp/internal/store"
)

// parseConfig builds the run configuration from defaults, an optional
// YAML file, a .env file, the environment and finally the flags in args.
// A positional argument sets the target URL.
func parseConfig(name, usage string, args []string) (config.Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to a YAML config file")
	envFile := fs.String("env-file", ".env", "Path to a .env file")
	dir := fs.String("dir", "", "Base directory for the <host>_downloads folder (default \".\")")
	bucket := fs.String("bucket", "", "Bucket URL to write to instead of a local directory (s3://, gs://, file://, mem://)")
	workers := fs.Int("workers", 0, "Number of parallel downloads (default 5)")
	timeout := fs.Duration("timeout", 0, "Per-attempt timeout (default 10s)")
	chunkSize := fs.String("chunk-size", "", "Streaming chunk size, e.g. 8KiB (default 8KiB)")
	showProgress := fs.Bool("progress", false, "Show a live progress line")
	disambiguate := fs.Bool("disambiguate", false, "Give colliding file names a short URL hash suffix")
	strict := fs.Bool("strict", false, "Reflect page and download failures in the exit status")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error (default info)")

	fs.Usage = func() {
		fmt.Fprintln(stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	if fs.NArg() > 1 {
		return config.Config{}, fmt.Errorf("expected at most one URL, got %d arguments", fs.NArg())
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := config.LoadDotEnv(*envFile); err != nil {
		return config.Config{}, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	override := config.Config{
		URL:          fs.Arg(0),
		Dir:          *dir,
		Bucket:       *bucket,
		Workers:      *workers,
		Timeout:      *timeout,
		Progress:     *showProgress,
		Disambiguate: *disambiguate,
		Strict:       *strict,
		LogLevel:     *logLevel,
	}
	if *chunkSize != "" {
		size, err := progress.ParseBytes(*chunkSize)
		if err != nil {
			return config.Config{}, fmt.Errorf("parse -chunk-size: %w", err)
		}
		override.ChunkSize = size
	}
	cfg = cfg.Merge(override)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// promptURL asks for the target on stdin when none was configured.
func promptURL(cfg *config.Config) error {
	if cfg.URL != "" {
		return nil
	}

	fmt.Fprint(stdout, "Enter target URL: ")
	reader := bufio.NewReader(stdin)
	line, err := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" && err != nil {
		return fmt.Errorf("read target URL: %w", err)
	}
	cfg.URL = line
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	handler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("run", uuid.NewString()))
}

func newScanner(cfg config.Config, log *slog.Logger) *scan.Scanner {
	client := pdfhttp.NewClient(cfg.HTTPOptions())

	return scan.New(client, scan.Options{
		Workers:        cfg.Workers,
		ChunkSize:      int(cfg.ChunkSize),
		Disambiguate:   cfg.Disambiguate,
		Progress:       cfg.Progress,
		ProgressOutput: stderr,
		OpenStore:      storeOpener(cfg),
		Logger:         log,
	})
}

// storeOpener writes to the bucket when one is configured and to
// <dir>/<folder> otherwise.
func storeOpener(cfg config.Config) scan.StoreOpener {
	if cfg.Bucket != "" {
		return func(ctx context.Context, folder string) (store.Store, error) {
			return store.OpenBucket(ctx, cfg.Bucket, folder)
		}
	}
	return func(_ context.Context, folder string) (store.Store, error) {
		return store.NewLocal(filepath.Join(cfg.Dir, folder)), nil
	}
}

// exitCode maps a run error onto the process exit status.
func exitCode(err error, strict bool) int {
	var pageErr *scan.PageFetchError

	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, scan.ErrInvalidTarget):
		return ExitInvalidArgs
	case errors.As(err, &pageErr):
		if strict {
			return ExitPageFetch
		}
		return ExitSuccess
	case errors.Is(err, scan.ErrStorage):
		return ExitStorageError
	}
	return ExitGeneralError
}

func elapsedSince(start time.Time) string {
	return progress.FormatDuration(time.Since(start))
}
