package watchdog

import (
	"time"

	"github.com/justweather/watchdog/internal/core"
)

// RestartPolicy decides whether another restart of the server is permitted
// and how long to wait before attempting it.
//
// Restarts are counted within a sliding window: once more than Window has
// elapsed since the window started, the count and backoff reset and a new
// window begins at the current time. A server that crashes occasionally keeps
// being restarted indefinitely; one that crash-loops burns through the budget
// and is given up on.
type RestartPolicy struct {
	maxRestarts    int
	window         time.Duration
	initialBackoff time.Duration
	maxBackoff     time.Duration

	restartCount int
	windowStart  time.Time
	backoff      time.Duration

	// Injection points for tests. Real runs use time.Now and time.Sleep.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewRestartPolicy creates a policy from the run configuration. The window
// starts at the time of the call.
func NewRestartPolicy(cfg *core.Config) *RestartPolicy {
	p := &RestartPolicy{
		maxRestarts:    cfg.MaxRestarts,
		window:         cfg.RestartWindow,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		now:            time.Now,
		sleep:          time.Sleep,
	}
	p.backoff = p.initialBackoff
	p.windowStart = p.now()
	return p
}

// ShouldRestart reports whether another restart is permitted. If the current
// window has elapsed, the restart count, window start and backoff are reset
// first.
func (p *RestartPolicy) ShouldRestart() bool {
	now := p.now()
	if now.Sub(p.windowStart) > p.window {
		p.restartCount = 0
		p.windowStart = now
		p.backoff = p.initialBackoff
	}

	return p.restartCount < p.maxRestarts
}

// ApplyBackoff blocks for the current backoff delay, then doubles it (capped
// at the maximum) and increments the restart count. The sleep is deliberately
// synchronous: the watchdog has nothing else to do while holding off a
// restart storm.
func (p *RestartPolicy) ApplyBackoff() {
	p.sleep(p.backoff)

	p.backoff *= 2
	if p.backoff > p.maxBackoff {
		p.backoff = p.maxBackoff
	}
	p.restartCount++
}

// RestartCount returns the number of restarts attempted in the current window.
func (p *RestartPolicy) RestartCount() int {
	return p.restartCount
}

// CurrentBackoff returns the delay the next ApplyBackoff call will impose.
func (p *RestartPolicy) CurrentBackoff() time.Duration {
	return p.backoff
}
