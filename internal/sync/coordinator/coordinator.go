// Package coordinator schedules background sync batches: a one-shot warm-up
// pass shortly after start, then a fixed-interval ticker. Exactly one
// scheduler loop runs per process.
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	pkgsync "github.com/passforge/wallet-sync-server/internal/sync"
)

// State is the scheduler lifecycle state
type State string

const (
	// StateStopped means no scheduler loop is running
	StateStopped State = "stopped"

	// StateRunning means the scheduler loop is active
	StateRunning State = "running"
)

const (
	// DefaultInterval is the default spacing between batches
	DefaultInterval = time.Hour

	// DefaultWarmupDelay is the default wait before the initial batch
	DefaultWarmupDelay = 5 * time.Second
)

// Coordinator owns the background batch schedule
type Coordinator interface {
	// Start transitions to Running and begins the schedule. Calling Start on
	// a running coordinator logs and returns without spawning a second loop.
	Start(ctx context.Context) error

	// Stop terminates the schedule and waits for an in-flight batch to finish
	Stop() error

	// State returns the current lifecycle state
	State() State
}

type defaultCoordinator struct {
	engine      pkgsync.Engine
	interval    time.Duration
	warmupDelay time.Duration

	mu         sync.Mutex
	state      State
	cancelFunc context.CancelFunc
	done       chan struct{}

	// batchMu serializes batches so an overrunning batch cannot overlap the
	// next tick
	batchMu sync.Mutex
}

// Option configures the coordinator
type Option func(*defaultCoordinator)

// WithInterval overrides the batch interval
func WithInterval(d time.Duration) Option {
	return func(c *defaultCoordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithWarmupDelay overrides the delay before the initial batch
func WithWarmupDelay(d time.Duration) Option {
	return func(c *defaultCoordinator) {
		if d > 0 {
			c.warmupDelay = d
		}
	}
}

// New creates a coordinator in the Stopped state
func New(engine pkgsync.Engine, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		engine:      engine,
		interval:    DefaultInterval,
		warmupDelay: DefaultWarmupDelay,
		state:       StateStopped,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *defaultCoordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *defaultCoordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRunning {
		slog.Info("Sync coordinator already running, ignoring start request")
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel
	c.done = make(chan struct{})
	c.state = StateRunning

	slog.Info("Starting sync coordinator",
		"interval", c.interval.String(),
		"warmup_delay", c.warmupDelay.String())

	go c.run(loopCtx)
	return nil
}

func (c *defaultCoordinator) run(ctx context.Context) {
	defer close(c.done)

	warmup := time.NewTimer(c.warmupDelay)
	defer warmup.Stop()

	select {
	case <-ctx.Done():
		return
	case <-warmup.C:
		c.runBatch(ctx)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runBatch(ctx)
		}
	}
}

func (c *defaultCoordinator) runBatch(ctx context.Context) {
	c.batchMu.Lock()
	defer c.batchMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	if _, err := c.engine.SyncAll(ctx); err != nil {
		slog.Error("Scheduled sync batch failed", "error", err)
	}
}

func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return nil
	}

	slog.Info("Stopping sync coordinator")
	c.cancelFunc()
	<-c.done

	c.state = StateStopped
	return nil
}
