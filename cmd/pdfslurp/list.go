package main

import (
	"context"
	"fmt"
)

const listUsage = `Usage: pdfslurp list [options] [url]

Fetch a web page and print the PDF links found on it together with the
file names they would be saved as. Nothing is downloaded or written.

Options:`

func runList(args []string) int {
	cfg, err := parseConfig("list", listUsage, args)
	if err != nil {
		return argsExitCode(err)
	}
	if err := promptURL(&cfg); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	res, err := newScanner(cfg, newLogger(cfg)).Plan(context.Background(), cfg.URL)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err, cfg.Strict)
	}

	if len(res.Links) == 0 {
		fmt.Fprintf(stdout, "No PDF links found on %s\n", res.Target)
		return ExitSuccess
	}

	width := 0
	for _, a := range res.Assignments {
		width = max(width, len(a.Filename))
	}

	fmt.Fprintf(stdout, "%d PDF links on %s (folder %s):\n", len(res.Links), res.Target, res.Folder)
	for _, a := range res.Assignments {
		fmt.Fprintf(stdout, "  %-*s  %s\n", width, a.Filename, a.Link)
	}

	if len(res.Collisions) > 0 {
		fmt.Fprintln(stdout, "\nFile name collisions:")
		for _, c := range res.Collisions {
			fmt.Fprintf(stdout, "  %s\n", c.Filename)
			for _, link := range c.Links {
				fmt.Fprintf(stdout, "    %s\n", link)
			}
		}
	}
	return ExitSuccess
}
