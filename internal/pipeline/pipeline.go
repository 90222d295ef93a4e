// Package pipeline resolves coordinates for the whole catalog in
// rate-limited batches and hands the enriched snapshot to persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/couchcryptid/mart-locator/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// CatalogSource reads a window of catalog rows.
type CatalogSource interface {
	FetchRange(ctx context.Context, start, end int) (domain.CatalogPage, error)
}

// SnapshotWriter replaces the persisted snapshot wholesale and reports how
// many entries were written.
type SnapshotWriter interface {
	Save(ctx context.Context, entries []domain.CatalogEntry) (int, error)
}

// StatusSink consumes the human-readable status lines of a run.
type StatusSink interface {
	Publish(ctx context.Context, u domain.StatusUpdate) error
}

// CoordinatePatcher receives coordinates as they are resolved, so a live
// catalog can pick them up before the snapshot is written.
type CoordinatePatcher interface {
	PatchCoordinates(id int, c domain.Coordinate) (bool, error)
}

// Options controls batching and the fetch window.
type Options struct {
	BatchSize  int
	BatchDelay time.Duration
	FetchStart int
	FetchEnd   int
	RunTimeout time.Duration

	Clock clockwork.Clock   // nil uses the real clock
	Live  CoordinatePatcher // optional
}

const defaultBatchSize = 10

// Result summarizes a finished run.
type Result struct {
	RunID      string
	Total      int
	Resolved   int
	Fallback   int
	Unresolved int
	Saved      int
	Duration   time.Duration
	Entries    []domain.CatalogEntry
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	State    domain.RunState `json:"state"`
	Progress int             `json:"progress"`
	RunID    string          `json:"run_id,omitempty"`
	LastRun  *Result         `json:"-"`
}

// Pipeline runs the Idle → Running → Saving → Done state machine. Any
// fatal error returns it to Idle.
type Pipeline struct {
	source   CatalogSource
	geocoder domain.Geocoder
	writer   SnapshotWriter
	sink     StatusSink
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	opts     Options

	mu       sync.Mutex
	state    domain.RunState
	progress int
	runID    string
	last     *Result
	stop     context.CancelFunc // cancels the current or last run
	done     chan struct{}      // closed when that run returns

	emitMu sync.Mutex
}

// New creates a Pipeline. sink may be nil.
func New(source CatalogSource, geocoder domain.Geocoder, writer SnapshotWriter, sink StatusSink, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.BatchDelay < 0 {
		opts.BatchDelay = 0
	}
	if opts.FetchStart <= 0 {
		opts.FetchStart = 1
	}
	if opts.FetchEnd < opts.FetchStart {
		opts.FetchEnd = opts.FetchStart
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		source:   source,
		geocoder: geocoder,
		writer:   writer,
		sink:     sink,
		logger:   logger,
		metrics:  metrics,
		clock:    clock,
		opts:     opts,
		state:    domain.StateIdle,
	}
}

// Status reports the current state and progress.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{State: p.state, Progress: p.progress, RunID: p.runID, LastRun: p.last}
}

// State reports the current lifecycle state.
func (p *Pipeline) State() domain.RunState {
	return p.Status().State
}

// Run executes one full run and blocks until it finishes. It returns
// domain.ErrAlreadyRunning if a run is in progress.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	runID, runCtx, finish, err := p.begin(ctx)
	if err != nil {
		return Result{}, err
	}
	defer finish()
	return p.execute(runCtx, runID)
}

// Start begins a run in the background and returns its id. The run is not
// bound to ctx's cancellation, since callers are typically request handlers;
// use Stop to cancel it. The outcome is reported through the status sink and
// Status.
func (p *Pipeline) Start(ctx context.Context) (string, error) {
	runID, runCtx, finish, err := p.begin(context.WithoutCancel(ctx))
	if err != nil {
		return "", err
	}
	go func() {
		defer finish()
		_, _ = p.execute(runCtx, runID)
	}()
	return runID, nil
}

// Stop cancels the run in progress, if any, and waits until it has returned
// to Idle or ctx ends.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.mu.Unlock()
	if stop == nil {
		return nil
	}
	stop()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) begin(parent context.Context) (string, context.Context, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == domain.StateRunning || p.state == domain.StateSaving {
		return "", nil, nil, domain.ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	p.state = domain.StateRunning
	p.progress = 0
	p.runID = uuid.NewString()
	p.stop = cancel
	p.done = done
	return p.runID, ctx, func() {
		cancel()
		close(done)
	}, nil
}

func (p *Pipeline) execute(ctx context.Context, runID string) (Result, error) {
	if p.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.RunTimeout)
		defer cancel()
	}

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	p.metrics.PipelineProgress.Set(0)

	start := p.clock.Now()
	logger := p.logger.With("run_id", runID)
	logger.Info("pipeline started",
		"batch_size", p.opts.BatchSize,
		"batch_delay", p.opts.BatchDelay,
		"fetch_start", p.opts.FetchStart,
		"fetch_end", p.opts.FetchEnd,
	)
	p.emit(ctx, runID, false, "Run started")

	if err := p.geocoder.Ready(); err != nil {
		return p.fail(ctx, runID, "unavailable", fmt.Errorf("geocoder not ready: %w", err))
	}

	entries, err := p.fetch(ctx)
	if err != nil {
		return p.fail(ctx, runID, "fetch_failed", err)
	}
	p.emit(ctx, runID, false, fmt.Sprintf("Fetched %d catalog entries", len(entries)))

	res := Result{RunID: runID, Total: len(entries)}
	if err := p.geocodeAll(ctx, runID, entries, &res); err != nil {
		return p.fail(ctx, runID, "canceled", err)
	}

	p.setState(domain.StateSaving)
	p.emit(ctx, runID, false, "Saving snapshot")
	saved, err := p.writer.Save(ctx, entries)
	if err != nil {
		if !errors.Is(err, domain.ErrPersistFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrPersistFailed, err)
		}
		return p.fail(ctx, runID, "persist_failed", err)
	}

	res.Saved = saved
	res.Duration = p.clock.Since(start)
	res.Entries = entries

	p.mu.Lock()
	p.state = domain.StateDone
	p.last = &res
	p.mu.Unlock()

	p.metrics.PipelineRuns.WithLabelValues("done").Inc()
	p.emit(ctx, runID, false, fmt.Sprintf("Saved %d entries (%d resolved, %d via fallback, %d unresolved)",
		saved, res.Resolved, res.Fallback, res.Unresolved))
	logger.Info("pipeline finished",
		"total", res.Total,
		"resolved", res.Resolved,
		"fallback", res.Fallback,
		"unresolved", res.Unresolved,
		"saved", saved,
		"duration", res.Duration,
	)
	return res, nil
}

// fetch reads the configured window and maps rows to entries.
func (p *Pipeline) fetch(ctx context.Context) ([]domain.CatalogEntry, error) {
	page, err := p.source.FetchRange(ctx, p.opts.FetchStart, p.opts.FetchEnd)
	if err != nil {
		if !errors.Is(err, domain.ErrFetchFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
		}
		return nil, err
	}
	if len(page.Rows) == 0 {
		return nil, fmt.Errorf("%w: catalog returned no rows", domain.ErrFetchFailed)
	}
	entries := make([]domain.CatalogEntry, len(page.Rows))
	for i, row := range page.Rows {
		entries[i] = row.ToEntry()
	}
	return entries, nil
}

// geocodeAll resolves entries in place, one batch at a time, waiting
// BatchDelay between batches. Only cancellation stops it early.
func (p *Pipeline) geocodeAll(ctx context.Context, runID string, entries []domain.CatalogEntry, res *Result) error {
	total := len(entries)
	batches := (total + p.opts.BatchSize - 1) / p.opts.BatchSize

	for b, lo := 0, 0; lo < total; b, lo = b+1, lo+p.opts.BatchSize {
		if b > 0 {
			if err := p.sleep(ctx, p.opts.BatchDelay); err != nil {
				return err
			}
		}
		hi := min(lo+p.opts.BatchSize, total)

		outcomes := p.processBatch(ctx, runID, entries[lo:hi])
		for _, o := range outcomes {
			switch o {
			case outcomeResolved:
				res.Resolved++
			case outcomeFallback:
				res.Resolved++
				res.Fallback++
			default:
				res.Unresolved++
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		progress := percent(hi, total)
		p.setProgress(progress)
		p.emit(ctx, runID, false, fmt.Sprintf("Batch %d/%d done (%d/%d)", b+1, batches, hi, total))
	}
	return nil
}

// processBatch geocodes every entry of the batch concurrently. Entry
// failures are absorbed; the returned outcomes line up with batch.
func (p *Pipeline) processBatch(ctx context.Context, runID string, batch []domain.CatalogEntry) []string {
	start := p.clock.Now()
	eg := &entryGeocoder{
		geocoder: p.geocoder,
		logger:   p.logger.With("run_id", runID),
		onFallback: func(ctx context.Context, e domain.CatalogEntry, query string) {
			p.emit(ctx, runID, false, fmt.Sprintf("Fallback for %d (%s): %s", e.ID, e.Name, query))
		},
	}

	outcomes := make([]string, len(batch))
	var g errgroup.Group
	for i := range batch {
		g.Go(func() error {
			resolved, outcome := eg.geocode(ctx, batch[i])
			batch[i] = resolved
			outcomes[i] = outcome
			p.metrics.EntryOutcomes.WithLabelValues(outcome).Inc()
			if p.opts.Live != nil && resolved.Coordinates != nil {
				if _, err := p.opts.Live.PatchCoordinates(resolved.ID, *resolved.Coordinates); err != nil {
					p.logger.Debug("live catalog patch skipped", "entry_id", resolved.ID, "error", err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	p.metrics.BatchesProcessed.Inc()
	p.metrics.BatchProcessingDuration.Observe(p.clock.Since(start).Seconds())
	return outcomes
}

// fail logs the terminal error, emits it as the run's last status line and
// resets the state machine to Idle.
func (p *Pipeline) fail(ctx context.Context, runID, result string, err error) (Result, error) {
	p.setState(domain.StateIdle)
	p.metrics.PipelineRuns.WithLabelValues(result).Inc()
	p.emit(context.WithoutCancel(ctx), runID, true, fmt.Sprintf("Run failed: %v", err))
	return Result{RunID: runID}, err
}

func (p *Pipeline) setState(s domain.RunState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Pipeline) setProgress(progress int) {
	p.mu.Lock()
	if progress > p.progress {
		p.progress = progress
	}
	p.mu.Unlock()
	p.metrics.PipelineProgress.Set(float64(progress))
}

// emit stamps a status line, mirrors it to the operational log and hands it
// to the sink. Sink failures are logged only.
func (p *Pipeline) emit(ctx context.Context, runID string, isErr bool, message string) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	u := domain.NewStatusUpdate(runID, p.state, p.progress, message)
	p.mu.Unlock()
	u.Error = isErr

	if isErr {
		p.logger.Error(message, "run_id", runID, "state", u.State, "progress", u.Progress)
	} else {
		p.logger.Info(message, "run_id", runID, "state", u.State, "progress", u.Progress)
	}

	if p.sink == nil {
		return
	}
	if err := p.sink.Publish(ctx, u); err != nil {
		p.logger.Warn("publish status failed", "run_id", runID, "error", err)
	}
}

// sleep waits for d on the pipeline clock unless ctx ends first.
func (p *Pipeline) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(d):
		return nil
	}
}

// percent is round(done/total*100), capped at 100.
func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return min(int(math.Round(float64(done)/float64(total)*100)), 100)
}
