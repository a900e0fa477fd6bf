package outbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/eventbus"
	"github.com/jurzon/backy/pkg/observability"
)

// maxBackoffShift caps the exponent so the shift cannot overflow.
const maxBackoffShift = 30

// ProcessorConfig holds configuration for the outbox processor.
type ProcessorConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	MaxRetries       int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
}

// DefaultProcessorConfig returns the worker defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:     time.Second,
		BatchSize:        100,
		MaxRetries:       5,
		RetryBackoffBase: time.Second,
		RetryBackoffMax:  time.Minute,
	}
}

// backoff is base doubled per attempt after the first, capped at limit.
func (c ProcessorConfig) backoff(attempt int) time.Duration {
	base, limit := c.RetryBackoffBase, c.RetryBackoffMax
	if base <= 0 {
		base = time.Second
	}
	if limit <= 0 {
		limit = time.Minute
	}
	shift := max(attempt-1, 0)
	if shift > maxBackoffShift {
		return limit
	}
	if d := base << uint(shift); d > 0 && d <= limit {
		return d
	}
	return limit
}

// exhausted reports whether msg has used up its delivery attempts.
func (c ProcessorConfig) exhausted(msg *Message) bool {
	return c.MaxRetries <= 0 || !msg.CanRetry(c.MaxRetries-1)
}

// Processor polls the outbox and publishes envelopes to the bus.
type Processor struct {
	repo      Repository
	publisher eventbus.Publisher
	config    ProcessorConfig
	clock     domain.Clock
	metrics   observability.Metrics
	logger    *slog.Logger

	mu      sync.Mutex
	wg      sync.WaitGroup
	stop    chan struct{}
	running bool
	stats   Stats
}

// ProcessorOption customizes a Processor.
type ProcessorOption func(*Processor)

func WithClock(clock domain.Clock) ProcessorOption {
	return func(p *Processor) { p.clock = clock }
}

func WithMetrics(metrics observability.Metrics) ProcessorOption {
	return func(p *Processor) { p.metrics = metrics }
}

// NewProcessor creates an outbox processor.
func NewProcessor(repo Repository, publisher eventbus.Publisher, config ProcessorConfig, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		repo:      repo,
		publisher: publisher,
		config:    config,
		clock:     domain.SystemClock{},
		metrics:   observability.NoopMetrics{},
		logger:    logger.With("component", "outbox"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins the polling loop in a goroutine. Starting twice is a no-op.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	p.running = true
	p.stop = make(chan struct{})

	p.wg.Add(1)
	go p.loop(ctx, p.stop)

	p.logger.Info("outbox processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize,
	)
	return nil
}

// Stop halts the loop and waits for the current batch.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("outbox processor stopped")
}

func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) loop(ctx context.Context, stop <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if err := p.ProcessOnce(ctx); err != nil {
				p.logger.Error("outbox batch failed", "error", err)
			}
		}
	}
}

// ProcessOnce publishes one batch synchronously.
func (p *Processor) ProcessOnce(ctx context.Context) error {
	now := p.clock.Now()
	batch, err := p.repo.Pending(ctx, now, p.config.BatchSize)
	if err != nil {
		p.record(outcomeError, err, now)
		return err
	}
	p.observeBatch(batch, now)

	for _, msg := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.deliver(ctx, msg)
	}
	return nil
}

func (p *Processor) deliver(ctx context.Context, msg *Message) {
	env := msg.Envelope()
	body, err := env.Marshal()
	if err == nil {
		err = p.publisher.Publish(ctx, msg.RoutingKey, body)
	}
	if err != nil {
		p.logger.Warn("outbox publish failed",
			"id", msg.ID,
			"routing_key", msg.RoutingKey,
			"event_id", msg.EventID,
			observability.CorrelationIDKey, env.Metadata.CorrelationID,
			"user_id", env.Metadata.UserID,
			"error", err,
		)
		p.retryOrBury(ctx, msg, err)
		return
	}

	if err := p.repo.MarkPublished(ctx, msg.ID, p.clock.Now()); err != nil {
		p.logger.Error("failed to mark outbox message published", "id", msg.ID, "event_id", msg.EventID, "error", err)
		return
	}
	p.metrics.Counter(observability.MetricOutboxPublished, 1, observability.T("routing_key", msg.RoutingKey))
	p.record(outcomePublished, nil, p.clock.Now())
}

// retryOrBury schedules another attempt with backoff, or dead-letters the
// message once its retries are spent.
func (p *Processor) retryOrBury(ctx context.Context, msg *Message, cause error) {
	now := p.clock.Now()
	tag := observability.T("routing_key", msg.RoutingKey)

	if p.config.exhausted(msg) {
		p.record(outcomeDead, cause, now)
		p.metrics.Counter(observability.MetricOutboxDeadLettered, 1, tag)
		if err := p.repo.MarkDead(ctx, msg.ID, cause.Error(), now); err != nil {
			p.logger.Error("failed to dead-letter outbox message", "id", msg.ID, "error", err)
		}
		return
	}

	p.record(outcomeFailed, cause, now)
	p.metrics.Counter(observability.MetricOutboxFailed, 1, tag)
	next := now.Add(p.config.backoff(msg.RetryCount + 1))
	if err := p.repo.MarkFailed(ctx, msg.ID, cause.Error(), next); err != nil {
		p.logger.Error("failed to mark outbox message failed", "id", msg.ID, "error", err)
	}
}

// Stats is a snapshot of processor activity.
type Stats struct {
	IsRunning       bool
	PublishedCount  uint64
	FailedCount     uint64
	DeadCount       uint64
	LagSeconds      float64
	LastError       string
	LastErrorAt     *time.Time
	LastProcessedAt *time.Time
	OldestMessageAt *time.Time
}

func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.IsRunning = p.running
	return s
}

type outcome int

const (
	outcomePublished outcome = iota
	outcomeFailed
	outcomeDead
	outcomeError
)

func (p *Processor) record(o outcome, err error, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch o {
	case outcomePublished:
		p.stats.PublishedCount++
	case outcomeFailed:
		p.stats.FailedCount++
	case outcomeDead:
		p.stats.DeadCount++
	}
	if err != nil {
		p.stats.LastError = err.Error()
		p.stats.LastErrorAt = &at
	}
}

// observeBatch tracks how far behind the oldest pending message is.
func (p *Processor) observeBatch(batch []*Message, now time.Time) {
	var oldest *time.Time
	for _, msg := range batch {
		if oldest == nil || msg.CreatedAt.Before(*oldest) {
			created := msg.CreatedAt
			oldest = &created
		}
	}
	lag := 0.0
	if oldest != nil {
		lag = now.Sub(*oldest).Seconds()
	}
	p.metrics.Gauge(observability.MetricOutboxLag, lag)
	p.metrics.Histogram(observability.MetricOutboxBatchSize, float64(len(batch)))

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.LastProcessedAt = &now
	p.stats.OldestMessageAt = oldest
	p.stats.LagSeconds = lag
}
