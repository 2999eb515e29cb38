package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const recordTimeout = 10 * time.Second

var (
	// ErrBatchNotFound is returned for an unknown or expired batch ID.
	ErrBatchNotFound = errors.New("batch not found")
	// ErrRelayNotConfigured is returned when sending without relay credentials.
	ErrRelayNotConfigured = errors.New("mail relay not configured")
)

// Recorder persists finished batches.
type Recorder interface {
	Record(ctx context.Context, sessionID string, res Result) error
}

// DispatcherConfig tunes a Dispatcher. Zero values take defaults.
type DispatcherConfig struct {
	ServiceID   string
	TemplateID  string
	Concurrency int
	Timeout     time.Duration // whole-batch deadline
	Retain      time.Duration // how long a finished result stays readable
}

type activeBatch struct {
	batch     *Batch
	sessionID string
	done      chan struct{}
	result    Result
}

// Dispatcher runs batches in the background and keeps their results for
// polling. Several batches may run at once.
type Dispatcher struct {
	relay    Relay
	recorder Recorder
	cfg      DispatcherConfig

	mu      sync.RWMutex
	batches map[string]*activeBatch
	wg      sync.WaitGroup
}

// NewDispatcher returns a dispatcher. A nil relay makes Start fail with
// ErrRelayNotConfigured; a nil recorder skips persistence.
func NewDispatcher(relay Relay, recorder Recorder, cfg DispatcherConfig) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.Retain <= 0 {
		cfg.Retain = 30 * time.Minute
	}
	return &Dispatcher{
		relay:    relay,
		recorder: recorder,
		cfg:      cfg,
		batches:  make(map[string]*activeBatch),
	}
}

// Configured reports whether a relay is available.
func (d *Dispatcher) Configured() bool {
	return d.relay != nil
}

// Start launches b and returns its batch ID without waiting.
func (d *Dispatcher) Start(sessionID string, b *Batch) (string, error) {
	if d.relay == nil {
		return "", ErrRelayNotConfigured
	}

	b.ID = uuid.New().String()
	b.ServiceID = d.cfg.ServiceID
	b.TemplateID = d.cfg.TemplateID
	if b.Concurrency <= 0 {
		b.Concurrency = d.cfg.Concurrency
	}

	ab := &activeBatch{batch: b, sessionID: sessionID, done: make(chan struct{})}

	d.mu.Lock()
	d.batches[b.ID] = ab
	d.mu.Unlock()

	slog.Info("mail batch started", "batch_id", b.ID, "session_id", sessionID, "messages", len(b.Messages))

	d.wg.Add(1)
	go d.run(ab)

	return b.ID, nil
}

func (d *Dispatcher) run(ab *activeBatch) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	res := ab.batch.Run(ctx, d.relay)

	if d.recorder != nil {
		// ctx may have expired with the batch; timed-out batches are still recorded.
		rctx, rcancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		if err := d.recorder.Record(rctx, ab.sessionID, res); err != nil {
			slog.Error("record mail batch", "batch_id", res.ID, "error", err)
		}
		rcancel()
	}

	slog.Info("mail batch finished",
		"batch_id", res.ID,
		"sent", res.Sent,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"duration", res.Duration,
	)

	ab.result = res
	close(ab.done)
	d.cleanup(res.ID, d.cfg.Retain)
}

func (d *Dispatcher) cleanup(id string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.batches, id)
		d.mu.Unlock()
	})
}

func (d *Dispatcher) lookup(id string) (*activeBatch, error) {
	d.mu.RLock()
	ab, ok := d.batches[id]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	return ab, nil
}

// Get returns the result if the batch has finished. done is false while
// sends are still outstanding.
func (d *Dispatcher) Get(id string) (res Result, done bool, err error) {
	ab, err := d.lookup(id)
	if err != nil {
		return Result{}, false, err
	}
	select {
	case <-ab.done:
		return ab.result, true, nil
	default:
		return Result{}, false, nil
	}
}

// Wait blocks until the batch finishes or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context, id string) (Result, error) {
	ab, err := d.lookup(id)
	if err != nil {
		return Result{}, err
	}
	select {
	case <-ab.done:
		return ab.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Drain waits for every running batch, or until ctx ends.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
