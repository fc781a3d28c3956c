package restore

import (
	"fmt"
	"io"
	"sync"

	"github.com/muesli/termenv"
)

// progress accumulates transferred bytes across the transfer pool and renders
// a single line updated in place.
type progress struct {
	mu          sync.Mutex
	total       int64
	transferred int64
	output      *termenv.Output
}

func newProgress(total int64, out io.Writer) *progress {
	return &progress{
		total:  total,
		output: termenv.NewOutput(out),
	}
}

// add records n completed bytes and redraws the progress line.
func (p *progress) add(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.transferred += n

	percent := 100.0
	if p.total > 0 {
		percent = float64(p.transferred) / float64(p.total) * 100
	}

	p.output.WriteString("\r")
	p.output.ClearLineRight()
	fmt.Fprintf(p.output, "%s / %s (%.2f%%)", humanSize(p.transferred), humanSize(p.total), percent)
}

// finish terminates the progress line.
func (p *progress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output.WriteString("\n")
}

// humanSize formats a byte count like "12.3MB".
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%s", float64(n)/float64(div), []string{"KB", "MB", "GB", "TB", "PB"}[exp])
}
