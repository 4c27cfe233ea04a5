package auth

import (
	"sync"

	"golang.org/x/time/rate"
)

// Fallbacks when the rate_limit config section is absent or zero.
const (
	defaultRPS   = 25
	defaultBurst = 50
)

// limiterPool hands out one token bucket per caller key. Keys are API
// keys for authenticated traffic and remote IPs for everything else.
type limiterPool struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   rate.Limit
	burst int
}

func newLimiterPool(cfg SecConfig) *limiterPool {
	rps := cfg.RPS
	if rps <= 0 {
		rps = defaultRPS
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	return &limiterPool{
		m:     make(map[string]*rate.Limiter),
		rps:   rate.Limit(rps),
		burst: burst,
	}
}

func (p *limiterPool) Allow(key string) bool {
	p.mu.Lock()
	l, ok := p.m[key]
	if !ok {
		l = rate.NewLimiter(p.rps, p.burst)
		p.m[key] = l
	}
	p.mu.Unlock()
	return l.Allow()
}
