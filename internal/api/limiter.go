package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const minLimiterIdle = 10 * time.Minute

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiterPool keeps one token bucket per desk. Buckets idle long enough to
// have refilled are dropped, so forgetting them never grants extra tokens.
type limiterPool struct {
	mu        sync.Mutex
	m         map[string]*limiterEntry
	rps       float64
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	if burst <= 0 {
		burst = 10
	}
	idle := minLimiterIdle
	if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > idle {
		idle = refill
	}
	return &limiterPool{
		m:     make(map[string]*limiterEntry),
		rps:   rps,
		burst: burst,
		idle:  idle,
		now:   time.Now,
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Sub(p.lastSweep) >= p.idle {
		p.sweep(now)
	}
	e, ok := p.m[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(rate.Limit(p.rps), p.burst)}
		p.m[key] = e
	}
	e.seen = now
	return e.lim
}

func (p *limiterPool) sweep(now time.Time) {
	for key, e := range p.m {
		if now.Sub(e.seen) >= p.idle {
			delete(p.m, key)
		}
	}
	p.lastSweep = now
}

func (p *limiterPool) Allow(key string) bool {
	if p == nil {
		return true
	}
	return p.get(key).Allow()
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}
