package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const scanUsage = `Usage: pdfslurp scan [options] [url]

Fetch a web page, find every link to a PDF document and download them in
parallel into a <host>_downloads folder. Files that already exist are
skipped, so an interrupted run can simply be repeated.

Options:`

func runScan(args []string) int {
	cfg, err := parseConfig("scan", scanUsage, args)
	if err != nil {
		return argsExitCode(err)
	}
	if err := promptURL(&cfg); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	log := newLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(stderr, "\n[pdfslurp] Received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	fmt.Fprintf(stderr, "[pdfslurp] Scanning %s\n", cfg.URL)

	res, err := newScanner(cfg, log).Run(ctx, cfg.URL)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err, cfg.Strict)
	}

	if len(res.Links) == 0 {
		fmt.Fprintf(stdout, "No PDF links found on %s\n", res.Target)
		return ExitSuccess
	}

	for _, c := range res.Collisions {
		fmt.Fprintf(stderr, "[pdfslurp] Warning: %d links share the file name %s\n", len(c.Links), c.Filename)
	}

	if err := res.Report.Print(stdout); err != nil {
		fmt.Fprintf(stderr, "Error writing report: %v\n", err)
		return ExitGeneralError
	}
	fmt.Fprintf(stderr, "[pdfslurp] Finished in %s, files are in %s\n", elapsedSince(start), res.Location)

	if cfg.Strict && res.Report.HasFailures() {
		return ExitItemsFailed
	}
	return ExitSuccess
}

// argsExitCode reports flag and configuration errors.
func argsExitCode(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitInvalidArgs
}
