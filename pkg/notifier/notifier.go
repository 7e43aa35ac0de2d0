package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/assetcdn/internal/domain"
	"github.com/bft-labs/assetcdn/pkg/clock"
	"github.com/bft-labs/assetcdn/pkg/log"
)

// ErrShutdownTimeout is returned by Close when workers outlive its context.
var ErrShutdownTimeout = domain.ErrShutdownTimeout

// Config controls queueing and retry behaviour.
type Config struct {
	// QueueSize bounds pending events. Enqueue drops events when full.
	QueueSize int

	// Workers is the number of concurrent delivery goroutines.
	Workers int

	// AttemptTimeout bounds a single delivery attempt.
	AttemptTimeout time.Duration

	// BaseDelay is the wait after the first failure; it doubles per failure.
	BaseDelay time.Duration

	// MaxDelay caps the wait between attempts. Zero means uncapped.
	MaxDelay time.Duration

	// MaxAttempts is the total number of attempts before abandoning.
	MaxAttempts int

	// Jitter randomizes delays by +/- this fraction. Zero disables it.
	Jitter float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:      256,
		Workers:        2,
		AttemptTimeout: 10 * time.Second,
		BaseDelay:      time.Second,
		MaxDelay:       time.Minute,
		MaxAttempts:    5,
	}
}

func (c *Config) setDefaults() {
	d := DefaultConfig()
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = d.AttemptTimeout
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
}

// Option configures optional behavior of a Notifier.
type Option func(*Notifier)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger log.Logger) Option {
	return func(n *Notifier) { n.logger = logger }
}

// WithClock sets the clock used for retry delays.
func WithClock(c clock.Clock) Option {
	return func(n *Notifier) { n.clock = c }
}

// WithObserver registers a callback for every state transition.
func WithObserver(o Observer) Option {
	return func(n *Notifier) { n.observer = o }
}

// Notifier queues delivery events and delivers them in the background.
type Notifier struct {
	config   Config
	sink     Sink
	backoff  backoff
	logger   log.Logger
	clock    clock.Clock
	observer Observer

	mu      sync.RWMutex
	queue   chan domain.DeliveryEvent
	closed  bool
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Notifier delivering to sink.
func New(sink Sink, cfg Config, opts ...Option) *Notifier {
	cfg.setDefaults()
	n := &Notifier{
		config:  cfg,
		sink:    sink,
		backoff: newBackoff(cfg.BaseDelay, cfg.MaxDelay, cfg.Jitter),
		logger:  log.NewNoopLogger(),
		clock:   clock.Real(),
		queue:   make(chan domain.DeliveryEvent, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Start launches the delivery workers. Workers stop when ctx is canceled
// or Close is called.
func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started || n.closed {
		return
	}
	n.started = true

	runCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	for i := 0; i < n.config.Workers; i++ {
		n.wg.Add(1)
		go n.worker(runCtx)
	}
}

// Enqueue hands event to the workers without blocking. It reports false
// when the notifier is closed or the queue is full.
func (n *Notifier) Enqueue(event domain.DeliveryEvent) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return false
	}

	select {
	case n.queue <- event:
		return true
	default:
		n.logger.Warn("notification queue full, dropping event",
			log.String("event_id", event.ID),
			log.String("asset_id", event.AssetID),
			log.Int("queue_size", n.config.QueueSize),
		)
		return false
	}
}

// Close stops accepting events and waits for queued events to finish.
// If ctx expires first, in-flight deliveries are canceled and
// ErrShutdownTimeout is returned.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.queue)
	cancel := n.cancel
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if cancel != nil {
			cancel()
		}
		return nil
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
		<-done
		n.logger.Warn("notifier shutdown timeout, pending deliveries abandoned")
		return ErrShutdownTimeout
	}
}

func (n *Notifier) worker(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-n.queue:
			if !ok {
				return
			}
			n.Deliver(ctx, event)
		}
	}
}

// Deliver runs the full retry loop for one event and returns its final
// state. It blocks while waiting between attempts.
func (n *Notifier) Deliver(ctx context.Context, event domain.DeliveryEvent) State {
	n.emit(Transition{EventID: event.ID, State: StatePending})

	for failures := 0; ; {
		err := n.attempt(ctx, event)
		if err == nil {
			n.emit(Transition{EventID: event.ID, State: StateDelivered, Failures: failures})
			n.logger.Info("notification delivered",
				log.String("event_id", event.ID),
				log.String("asset_id", event.AssetID),
				log.Int("attempts", failures+1),
			)
			return StateDelivered
		}
		failures++

		if !Retryable(err) {
			return n.abandon(event, failures, err, "notification rejected")
		}
		if failures >= n.config.MaxAttempts {
			return n.abandon(event, failures, err, "notification retries exhausted")
		}

		delay := n.backoff.Delay(failures)
		n.emit(Transition{EventID: event.ID, State: StateAttempting, Failures: failures, Delay: delay, Err: err})
		n.logger.Debug("notification attempt failed, retrying",
			log.String("event_id", event.ID),
			log.Int("failures", failures),
			log.Duration("delay", delay),
			log.Err(err),
		)

		select {
		case <-ctx.Done():
			return n.abandon(event, failures, ctx.Err(), "notification canceled")
		case <-n.clock.After(delay):
		}
	}
}

func (n *Notifier) attempt(ctx context.Context, event domain.DeliveryEvent) error {
	attemptCtx, cancel := context.WithTimeout(ctx, n.config.AttemptTimeout)
	defer cancel()

	err := n.sink.Deliver(attemptCtx, event)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return errors.Join(ErrUpstreamDelivery, context.DeadlineExceeded)
	}
	return err
}

func (n *Notifier) abandon(event domain.DeliveryEvent, failures int, err error, msg string) State {
	n.emit(Transition{EventID: event.ID, State: StateAbandoned, Failures: failures, Err: err})
	n.logger.Error(msg,
		log.String("event_id", event.ID),
		log.String("asset_id", event.AssetID),
		log.Strings("files", event.Files),
		log.Int("failures", failures),
		log.Err(err),
	)
	return StateAbandoned
}

func (n *Notifier) emit(t Transition) {
	if n.observer != nil {
		n.observer(t)
	}
}
