// internal/actions/webhook/breaker.go
package webhook

import (
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"merchant-triggers/internal/common/logger"
)

// breakers keeps one circuit breaker per target host.
type breakers struct {
	mu          sync.Mutex
	byHost      map[string]*gobreaker.CircuitBreaker
	maxFailures uint32
	openFor     time.Duration
	logger      logger.Logger
}

func newBreakers(maxFailures int, openFor time.Duration, log logger.Logger) *breakers {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if openFor <= 0 {
		openFor = time.Minute
	}
	return &breakers{
		byHost:      make(map[string]*gobreaker.CircuitBreaker),
		maxFailures: uint32(maxFailures),
		openFor:     openFor,
		logger:      log,
	}
}

func (b *breakers) forURL(rawURL string) *gobreaker.CircuitBreaker {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.byHost[host]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     b.openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Info("webhook circuit breaker state changed", map[string]interface{}{
				"host": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
	})
	b.byHost[host] = cb
	return cb
}
