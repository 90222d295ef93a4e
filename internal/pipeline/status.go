package pipeline

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/couchcryptid/mart-locator/internal/domain"
)

// DefaultStatusLines caps how many lines a StatusLog retains.
const DefaultStatusLines = 500

// StatusLog keeps the status lines of the most recent run in memory.
// A new run id clears the previous run's lines.
type StatusLog struct {
	mu       sync.RWMutex
	limit    int
	runID    string
	progress int
	lines    []domain.StatusUpdate
}

// NewStatusLog creates a StatusLog holding at most limit lines
// (DefaultStatusLines when limit <= 0). Older lines are dropped first.
func NewStatusLog(limit int) *StatusLog {
	if limit <= 0 {
		limit = DefaultStatusLines
	}
	return &StatusLog{limit: limit}
}

// Publish implements StatusSink.
func (l *StatusLog) Publish(_ context.Context, u domain.StatusUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if u.RunID != l.runID {
		l.runID = u.RunID
		l.lines = l.lines[:0]
	}
	if len(l.lines) >= l.limit {
		l.lines = slices.Delete(l.lines, 0, len(l.lines)-l.limit+1)
	}
	l.lines = append(l.lines, u)
	l.progress = u.Progress
	return nil
}

// Lines returns a copy of the retained lines in emission order.
func (l *StatusLog) Lines() []domain.StatusUpdate {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.lines)
}

// Progress returns the progress carried by the latest line.
func (l *StatusLog) Progress() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.progress
}

// RunID returns the run the retained lines belong to.
func (l *StatusLog) RunID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.runID
}

// FanOut publishes every update to each sink in order. All sinks are tried;
// their errors are joined.
type FanOut []StatusSink

// Publish implements StatusSink.
func (f FanOut) Publish(ctx context.Context, u domain.StatusUpdate) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
