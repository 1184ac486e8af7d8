package pool

import (
	"container/list"
	"time"

	"go.uber.org/zap"

	"github.com/viant/apool/internal/clock"
)

// reaperLoop periodically retires workers that sat idle past the
// configured threshold. A nudge on reaperWake makes it re-read the
// configuration or exit when the pool is closing.
func (p *Pool) reaperLoop() {
	defer close(p.reaperDone)
	for {
		p.mu.Lock()
		if p.done {
			p.mu.Unlock()
			return
		}
		idle := p.maxIdleTime
		p.mu.Unlock()
		if idle < 0 {
			idle = 0
		}

		timer := time.NewTimer(idle + time.Second)
		select {
		case <-p.reaperWake:
			// closing or maxIdleTime changed; re-evaluate
			timer.Stop()
		case <-timer.C:
			p.reapIdle()
		}
	}
}

// reapIdle scans the free LRU oldest-first and retires every worker idle
// beyond maxIdleTime. Groups left empty are removed.
func (p *Pool) reapIdle() {
	now := clock.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	var next *list.Element
	for e := p.inactive.Front(); e != nil; e = next {
		next = e.Next()
		pi := e.Value.(*processInfo)
		if p.maxIdleTime <= 0 || now.Sub(pi.lastUsed) <= p.maxIdleTime {
			continue
		}
		p.logger.Debug("cleaning idle worker",
			zap.String("appRoot", pi.worker.AppRoot()), zap.Int("pid", pi.worker.PID()))
		p.removeLocked(pi)
		if p.metrics != nil {
			p.metrics.reaped.Inc()
		}
	}
	p.updateGaugesLocked()
	p.verifyStateLocked()
}
