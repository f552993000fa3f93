package downloader

import "fmt"

// Kind classifies the terminal state of one link.
type Kind int

const (
	Succeeded Kind = iota
	SkippedExists
	SkippedNotPDF
	Failed
)

func (k Kind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case SkippedExists:
		return "skipped-exists"
	case SkippedNotPDF:
		return "skipped-not-pdf"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Job is one link scheduled for download together with its file name.
type Job struct {
	Link     string
	Filename string
}

// Outcome is the result of processing one Job. Exactly one Outcome is
// produced per Job.
type Outcome struct {
	Job

	Kind Kind

	// Err holds the cause when Kind is Failed.
	Err error

	// ContentType is the declared type of the response, when one was received.
	ContentType string

	// Bytes is the number of bytes written.
	Bytes int64
}

func (o Outcome) String() string {
	switch o.Kind {
	case Failed:
		return fmt.Sprintf("%s: %s: %v", o.Kind, o.Filename, o.Err)
	case SkippedNotPDF:
		return fmt.Sprintf("%s: %s (%s)", o.Kind, o.Filename, o.ContentType)
	}
	return fmt.Sprintf("%s: %s", o.Kind, o.Filename)
}
