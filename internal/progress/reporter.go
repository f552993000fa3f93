package progress

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// TotalFiles is the number of documents scheduled.
	TotalFiles int

	// Workers is the number of parallel workers.
	Workers int

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration

	// SourceURL is the page being scanned (for display).
	SourceURL string

	// Destination is where documents are written (for display).
	Destination string
}

// Reporter outputs human-readable progress information.
type Reporter struct {
	opts Options

	mu             sync.Mutex
	completedBytes atomic.Int64
	completed      atomic.Int32
	skipped        atomic.Int32
	failed         atomic.Int32
	inProgress     atomic.Int32
	startTime      time.Time
	lastUpdate     time.Time
	lastBytes      int64
	stopCh         chan struct{}
	doneCh         chan struct{}
	started        bool
	stopped        bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	r.mu.Lock()
	r.started = true
	r.startTime = time.Now()
	r.lastUpdate = r.startTime
	r.mu.Unlock()

	fmt.Fprintf(r.opts.Output, "[pdfslurp] Downloading %d files from %s\n", r.opts.TotalFiles, r.opts.SourceURL)
	fmt.Fprintf(r.opts.Output, "[pdfslurp] Destination: %s | Workers: %d\n", r.opts.Destination, r.opts.Workers)

	go r.updateLoop()
}

// Stop stops the progress reporter and waits for the final status line.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped || !r.started {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

// FileStarted marks a file as in progress.
func (r *Reporter) FileStarted() {
	r.inProgress.Add(1)
}

// BytesWritten records bytes written to the destination.
func (r *Reporter) BytesWritten(n int64) {
	r.completedBytes.Add(n)
}

// FileCompleted marks a file as downloaded.
func (r *Reporter) FileCompleted() {
	r.completed.Add(1)
	r.inProgress.Add(-1)
}

// FileSkipped marks a file as skipped without writing it.
func (r *Reporter) FileSkipped() {
	r.skipped.Add(1)
	r.inProgress.Add(-1)
}

// FileFailed marks a file as failed (removes from in-progress).
func (r *Reporter) FileFailed() {
	r.failed.Add(1)
	r.inProgress.Add(-1)
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

func (r *Reporter) finished() int {
	return int(r.completed.Load() + r.skipped.Load() + r.failed.Load())
}

// printProgress outputs the current progress.
func (r *Reporter) printProgress() {
	now := time.Now()
	written := r.completedBytes.Load()

	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	speed := float64(written-r.lastBytes) / elapsed

	r.lastUpdate = now
	r.lastBytes = written

	var percent float64
	if r.opts.TotalFiles > 0 {
		percent = float64(r.finished()) / float64(r.opts.TotalFiles) * 100
	}

	fmt.Fprintf(r.opts.Output, "\r[pdfslurp] Progress: %.1f%% | %d/%d files | %d in-progress | %s | Speed: %s/s    ",
		percent,
		r.finished(),
		r.opts.TotalFiles,
		r.inProgress.Load(),
		formatBytes(written),
		formatBytes(int64(speed)),
	)
}

// printFinalStatus outputs the final status.
func (r *Reporter) printFinalStatus() {
	written := r.completedBytes.Load()
	duration := time.Since(r.startTime)
	avgSpeed := float64(written) / duration.Seconds()

	fmt.Fprintf(r.opts.Output, "\r[pdfslurp] Progress: %d/%d files | %d downloaded | %d skipped | %d failed    \n",
		r.finished(),
		r.opts.TotalFiles,
		r.completed.Load(),
		r.skipped.Load(),
		r.failed.Load(),
	)
	fmt.Fprintf(r.opts.Output, "[pdfslurp] Total: %s in %s | Average speed: %s/s\n",
		formatBytes(written),
		FormatDuration(duration),
		formatBytes(int64(avgSpeed)),
	)
}

// formatBytes formats bytes as a human-readable IEC string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}

	value := float64(b)
	suffixes := []string{"KiB", "MiB", "GiB", "TiB"}
	var suffix string
	for _, suffix = range suffixes {
		value /= unit
		if value < unit || suffix == suffixes[len(suffixes)-1] {
			break
		}
	}

	if value >= 100 {
		return fmt.Sprintf("%.0f %s", value, suffix)
	}
	return fmt.Sprintf("%.1f %s", value, suffix)
}

// FormatDuration formats a duration as a human-readable string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}

var byteUnits = []struct {
	suffix     string
	multiplier int64
}{
	{"TiB", 1 << 40},
	{"GiB", 1 << 30},
	{"MiB", 1 << 20},
	{"KiB", 1 << 10},
	{"TB", 1000 * 1000 * 1000 * 1000},
	{"GB", 1000 * 1000 * 1000},
	{"MB", 1000 * 1000},
	{"KB", 1000},
	{"B", 1},
}

// ParseBytes parses a human-readable byte string such as "8KiB" or "1MB".
// IEC suffixes are powers of 1024, SI suffixes powers of 1000.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)

	var multiplier int64 = 1
	for _, u := range byteUnits {
		if strings.HasSuffix(s, u.suffix) {
			multiplier = u.multiplier
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}

	return int64(value * float64(multiplier)), nil
}
