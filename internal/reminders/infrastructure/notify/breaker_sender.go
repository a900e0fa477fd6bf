package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/reminders/domain"
	"github.com/sony/gobreaker/v2"
)

// ErrSenderUnavailable is returned while the breaker is open.
var ErrSenderUnavailable = errors.New("notification sender unavailable")

// BreakerConfig configures BreakerSender.
type BreakerConfig struct {
	Name string

	// MaxFailures consecutive failures open the breaker.
	MaxFailures uint32

	// OpenTimeout is how long the breaker stays open before a trial send.
	OpenTimeout time.Duration

	// HalfOpenRequests is the number of trial sends allowed while half-open.
	HalfOpenRequests uint32
}

// DefaultBreakerConfig returns the settings used by the worker.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "notify",
		MaxFailures:      5,
		OpenTimeout:      time.Minute,
		HalfOpenRequests: 1,
	}
}

// BreakerSender stops calling a failing Sender until it recovers.
type BreakerSender struct {
	next    domain.Sender
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func NewBreakerSender(next domain.Sender, cfg BreakerConfig, logger *slog.Logger) *BreakerSender {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultBreakerConfig().MaxFailures
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("notification breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	return &BreakerSender{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

func (s *BreakerSender) Send(ctx context.Context, userID uuid.UUID, channel, subject, body string) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.next.Send(ctx, userID, channel, subject, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrSenderUnavailable
	}
	return err
}

// State reports the breaker state, e.g. "closed" or "open".
func (s *BreakerSender) State() string {
	return s.breaker.State().String()
}
