package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitPageFetch    = 3
	ExitStorageError = 5
	ExitItemsFailed  = 8
)

// Standard streams, replaced in tests.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		return runScan(nil)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "scan":
		return runScan(cmdArgs)
	case "list":
		return runList(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		if strings.Contains(command, "://") {
			return runScan(args)
		}
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(stderr, `Usage: pdfslurp [command] [options] [url]

Commands:
  scan   Download every PDF linked from a web page (default)
  list   Show the PDF links found on a page without downloading
  help   Show this help

Without a command pdfslurp asks for the target URL interactively.
Run 'pdfslurp <command> -h' for command-specific help.`)
}
