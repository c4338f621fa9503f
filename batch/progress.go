package batch

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Snapshot is a point-in-time view of a ProgressTracker.
type Snapshot struct {
	Done    int
	Failed  int
	Total   int
	Elapsed time.Duration
}

// Percent returns Done as a share of Total, 0 for an empty batch.
func (s Snapshot) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Done) / float64(s.Total) * 100
}

// Rate returns finished items per second.
func (s Snapshot) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Done) / s.Elapsed.Seconds()
}

// ProgressTracker writes a single updating progress line for a batch.
// A report interval of zero or less only reports on Finish.
type ProgressTracker struct {
	mu       sync.Mutex
	out      io.Writer
	unit     string
	every    int
	begun    time.Time
	running  bool
	done     int
	failed   int
	total    int
	reported int
}

// NewProgressTracker reports to out every reportInterval finished items.
func NewProgressTracker(out io.Writer, total, reportInterval int) *ProgressTracker {
	return &ProgressTracker{
		out:   out,
		total: total,
		every: reportInterval,
		unit:  "targets",
	}
}

// SetUnit names what is counted in the rate, "targets" by default.
func (p *ProgressTracker) SetUnit(unit string) {
	p.mu.Lock()
	p.unit = unit
	p.mu.Unlock()
}

// Start resets the counters and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.begun = time.Now()
	p.running = true
	p.done, p.failed, p.reported = 0, 0, 0
}

// Increment records delta finished items. Calls before Start are ignored.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance(delta)
}

// Fail records one finished item that ended in an error.
func (p *ProgressTracker) Fail() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.failed++
	}
	p.advance(1)
}

func (p *ProgressTracker) advance(delta int) {
	if !p.running {
		return
	}
	p.done = min(p.done+delta, p.total)
	if p.every > 0 && p.done-p.reported >= p.every {
		p.write()
		p.reported = p.done
	}
}

// Finish writes the final line. Items never processed are not counted.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.write()
	fmt.Fprintln(p.out)
}

// Snapshot returns the current counters.
func (p *ProgressTracker) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

// Current returns the number of finished items.
func (p *ProgressTracker) Current() int {
	return p.Snapshot().Done
}

// Elapsed returns the time since Start, zero before it.
func (p *ProgressTracker) Elapsed() time.Duration {
	return p.Snapshot().Elapsed
}

func (p *ProgressTracker) snapshot() Snapshot {
	s := Snapshot{Done: p.done, Failed: p.failed, Total: p.total}
	if p.running {
		s.Elapsed = time.Since(p.begun)
	}
	return s
}

// write must be called with mu held.
func (p *ProgressTracker) write() {
	s := p.snapshot()
	fmt.Fprintf(p.out, "\rProgress: %d/%d (%.1f%%) - %.1f %s/s", s.Done, s.Total, s.Percent(), s.Rate(), p.unit)
	if s.Failed > 0 {
		fmt.Fprintf(p.out, ", %d failed", s.Failed)
	}
}
