// Package progress provides a live progress line for a scan.
//
// Progress is cosmetic: it is off by default and never influences outcomes.
// Output goes to stderr so that the report on stdout stays clean.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    TotalFiles: len(links),
//	    Workers:    5,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	// Update as files finish
//	reporter.FileStarted()
//	reporter.BytesWritten(n)
//	reporter.FileCompleted()
//
// # Output Format
//
//	[pdfslurp] Downloading 42 files from https://example.com/papers
//	[pdfslurp] Destination: example.com_downloads | Workers: 5
//	[pdfslurp] Progress: 45.2% | 19/42 files | 5 in-progress | 12.4 MiB | Speed: 1.2 MiB/s
package progress
