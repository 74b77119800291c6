// Package breaker guards the decision stage's store writes with a
// consecutive-failure circuit breaker.
package breaker

import (
	"errors"
	"time"

	"loan-prequal/internal/common/config"
	apperrors "loan-prequal/internal/common/errors"
	"loan-prequal/internal/common/logger"
	"loan-prequal/internal/common/metrics"

	"github.com/sony/gobreaker"
)

const (
	DefaultName             = "database_updates"
	DefaultFailureThreshold = 5
	DefaultCooldown         = 60 * time.Second
)

type Settings struct {
	Name             string
	FailureThreshold uint32
	Cooldown         time.Duration
	HalfOpenRequests uint32
}

func SettingsFromConfig(cfg config.CircuitBreakerConfig) Settings {
	s := Settings{
		Name:             cfg.Name,
		Cooldown:         config.GetDuration(cfg.Cooldown),
		FailureThreshold: DefaultFailureThreshold,
		HalfOpenRequests: 1,
	}
	if cfg.FailureThreshold > 0 {
		s.FailureThreshold = uint32(cfg.FailureThreshold)
	}
	if cfg.HalfOpenRequests > 0 {
		s.HalfOpenRequests = uint32(cfg.HalfOpenRequests)
	}
	return s
}

// Breaker counts only StorageError results as failures. Validation and
// business failures pass through without moving the breaker.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

func New(s Settings, log logger.Logger) *Breaker {
	if s.Name == "" {
		s.Name = DefaultName
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = DefaultFailureThreshold
	}
	if s.Cooldown <= 0 {
		s.Cooldown = DefaultCooldown
	}
	if s.HalfOpenRequests == 0 {
		s.HalfOpenRequests = 1
	}

	log = log.WithFields(map[string]interface{}{"breaker": s.Name})
	threshold := s.FailureThreshold

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !apperrors.IsStorage(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			fields := map[string]interface{}{"from": from.String(), "to": to.String()}
			if to == gobreaker.StateOpen {
				log.Error("circuit breaker opened", fields)
				return
			}
			log.Warn("circuit breaker state changed", fields)
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	return &Breaker{name: s.Name, cb: cb}
}

// Call runs fn through the breaker. While the breaker rejects calls fn is not
// invoked and a CircuitOpenError is returned.
func (b *Breaker) Call(fn func() (interface{}, error)) (interface{}, error) {
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperrors.NewCircuitOpenError(b.name, err)
	}
	return res, err
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) Name() string {
	return b.name
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
