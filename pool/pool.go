package pool

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/viant/apool/internal/clock"
	"github.com/viant/apool/restart"
	"github.com/viant/apool/spawn"
	"github.com/viant/apool/tracing"
)

const (
	// DefaultMax is the default global cap on worker processes.
	DefaultMax = 20
	// DefaultMaxPerApp is the default per-application cap; zero means
	// unbounded.
	DefaultMaxPerApp = 0
	// DefaultMaxIdleTime is how long a worker may sit idle before the
	// reaper retires it.
	DefaultMaxIdleTime = 120 * time.Second

	maxGetAttempts = 10
)

// Option customises a Pool.
type Option func(*Pool)

// WithMax sets the global process cap.
func WithMax(max int) Option {
	return func(p *Pool) { p.max = max }
}

// WithMaxPerApp sets the per-application process cap; zero disables it.
func WithMaxPerApp(maxPerApp int) Option {
	return func(p *Pool) { p.maxPerApp = maxPerApp }
}

// WithMaxIdleTime sets the idle threshold used by the reaper; zero or a
// negative value disables idle retirement.
func WithMaxIdleTime(maxIdleTime time.Duration) Option {
	return func(p *Pool) { p.maxIdleTime = maxIdleTime }
}

// WithDetector sets the restart detector.
func WithDetector(detector *restart.Detector) Option {
	return func(p *Pool) { p.detector = detector }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pool) { p.logger = logger }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(metrics *Metrics) Option {
	return func(p *Pool) { p.metrics = metrics }
}

// Pool dispatches sessions onto worker processes grouped by application
// root. A single mutex guards every field below; the condition broadcasts
// on each structural change so that waiters re-evaluate capacity.
type Pool struct {
	mu   sync.Mutex
	cond *sync.Cond

	groups    map[string]*group
	max       int
	count     int
	active    int
	maxPerApp int
	inactive  *list.List

	waitingOnGlobalQueue int

	spawner  spawn.Spawner
	detector *restart.Detector
	logger   *zap.Logger
	metrics  *Metrics

	maxIdleTime time.Duration
	done        bool
	reaperWake  chan struct{}
	reaperDone  chan struct{}
}

// New creates a pool around the supplied spawner and starts the idle
// reaper.
func New(spawner spawn.Spawner, options ...Option) *Pool {
	p := &Pool{
		groups:      map[string]*group{},
		inactive:    list.New(),
		max:         DefaultMax,
		maxPerApp:   DefaultMaxPerApp,
		maxIdleTime: DefaultMaxIdleTime,
		spawner:     spawner,
		logger:      zap.NewNop(),
		reaperWake:  make(chan struct{}, 1),
		reaperDone:  make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	for _, option := range options {
		option(p)
	}
	if p.detector == nil {
		p.detector = restart.New(nil)
	}
	go p.reaperLoop()
	return p
}

// Get returns a session bound to a worker for options.AppRoot. It blocks
// while capacity is exhausted and retries spawn and connect failures up
// to a bounded number of attempts.
func (p *Pool) Get(ctx context.Context, options Options) (session *spawn.Session, err error) {
	if options.AppRoot == "" {
		return nil, fmt.Errorf("appRoot is required")
	}
	ctx, span := tracing.StartSpan(ctx, "pool.Get")
	span.WithAttributes(map[string]string{"app.root": options.AppRoot})
	defer func() { tracing.EndSpan(span, err) }()

	stop := p.cancelBroadcast(ctx)
	defer stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for attempt := 1; ; attempt++ {
		pi, err := p.acquire(ctx, options)
		if err != nil {
			var spawnErr *SpawnError
			if errors.As(err, &spawnErr) && attempt < maxGetAttempts {
				continue
			}
			return nil, err
		}
		p.verifyStateLocked()

		session, err := pi.worker.Connect(p.closeHook(pi))
		if err == nil {
			p.updateGaugesLocked()
			return session, nil
		}

		// the worker would not take a session; unwind the borrow and
		// drop it
		pi.sessions--
		p.removeLocked(pi)
		p.active--
		p.cond.Broadcast()
		p.verifyStateLocked()
		if attempt == maxGetAttempts {
			return nil, &ConnectError{AppRoot: options.AppRoot, Err: err}
		}
	}
}

// acquire picks or spawns a worker for the request, blocking on the
// condition while capacity is exhausted. Called and returns with the
// mutex held; the mutex is released for the duration of any spawn.
func (p *Pool) acquire(ctx context.Context, options Options) (*processInfo, error) {
	for {
		if err := p.interrupted(ctx); err != nil {
			return nil, err
		}

		grp := p.groups[options.AppRoot]
		if p.detector.Check(ctx, options.AppRoot, options.RestartDir, options.StatThrottle) {
			if grp != nil {
				p.discardGroupLocked(grp)
				grp = nil
			}
			p.logger.Debug("restarting application group", zap.String("appRoot", options.AppRoot))
			if err := p.spawner.Reload(ctx, options.AppRoot); err != nil {
				p.logger.Warn("spawner reload failed",
					zap.String("appRoot", options.AppRoot), zap.Error(err))
			}
			if p.metrics != nil {
				p.metrics.restarts.Inc()
			}
			p.cond.Broadcast()
		}

		if grp == nil {
			if p.active >= p.max {
				p.cond.Wait()
				continue
			}
			if p.count == p.max {
				p.evictLocked()
			}
			pi, err := p.spawnLocked(ctx, options)
			if err != nil {
				return nil, err
			}
			p.linkLocked(pi, options)
			return p.borrowLocked(pi), nil
		}

		front := grp.processes.Front().Value.(*processInfo)
		switch {
		case front.sessions == 0:
			pi := front
			p.inactive.Remove(pi.iaElem)
			pi.iaElem = nil
			grp.processes.MoveToBack(pi.elem)
			p.active++
			p.cond.Broadcast()
			return p.borrowLocked(pi), nil

		case p.count >= p.max || (p.maxPerApp != 0 && grp.size >= p.maxPerApp):
			if options.UseGlobalQueue {
				p.waitingOnGlobalQueue++
				p.cond.Wait()
				p.waitingOnGlobalQueue--
				continue
			}
			pi := leastLoaded(grp)
			grp.processes.MoveToBack(pi.elem)
			return p.borrowLocked(pi), nil

		default:
			pi, err := p.spawnLocked(ctx, options)
			if err != nil {
				return nil, err
			}
			p.linkLocked(pi, options)
			return p.borrowLocked(pi), nil
		}
	}
}

// spawnLocked calls into the spawner with the mutex released so other
// requests keep dispatching while a worker starts up.
func (p *Pool) spawnLocked(ctx context.Context, options Options) (*processInfo, error) {
	p.mu.Unlock()
	worker, err := p.spawner.Spawn(ctx, options.AppRoot)
	p.mu.Lock()
	if err != nil {
		spawnErr := &SpawnError{AppRoot: options.AppRoot, Err: err}
		var pager errorPager
		if errors.As(err, &pager) {
			spawnErr.ErrorPage = pager.ErrorPage()
		}
		return nil, spawnErr
	}
	if p.metrics != nil {
		p.metrics.spawns.Inc()
	}
	return newProcessInfo(worker), nil
}

// linkLocked inserts a freshly spawned worker into its group, creating
// the group if it vanished while the mutex was released.
func (p *Pool) linkLocked(pi *processInfo, options Options) {
	grp := p.groups[options.AppRoot]
	if grp == nil {
		grp = newGroup(options.MaxRequests)
		p.groups[options.AppRoot] = grp
	}
	pi.elem = grp.processes.PushBack(pi)
	grp.size++
	p.count++
	p.active++
	p.cond.Broadcast()
}

func (p *Pool) borrowLocked(pi *processInfo) *processInfo {
	pi.lastUsed = clock.Now()
	pi.sessions++
	return pi
}

// leastLoaded picks the worker with the fewest active sessions, earliest
// list position winning ties.
func leastLoaded(grp *group) *processInfo {
	smallest := grp.processes.Front().Value.(*processInfo)
	for e := grp.processes.Front().Next(); e != nil; e = e.Next() {
		if pi := e.Value.(*processInfo); pi.sessions < smallest.sessions {
			smallest = pi
		}
	}
	return smallest
}

// evictLocked retires the least recently used free worker to make room
// for a new application.
func (p *Pool) evictLocked() {
	front := p.inactive.Front()
	if front == nil {
		return
	}
	pi := front.Value.(*processInfo)
	p.logger.Debug("evicting idle worker",
		zap.String("appRoot", pi.worker.AppRoot()), zap.Int("pid", pi.worker.PID()))
	p.removeLocked(pi)
	if p.metrics != nil {
		p.metrics.evictions.Inc()
	}
}

// discardGroupLocked retires every worker of a group that has to be
// restarted.
func (p *Pool) discardGroupLocked(grp *group) {
	for e := grp.processes.Front(); e != nil; {
		next := e.Next()
		pi := e.Value.(*processInfo)
		if pi.sessions > 0 {
			p.active--
		}
		p.removeLocked(pi)
		e = next
	}
}

// removeLocked unlinks pi from its group and the free LRU and marks it
// retired. The caller adjusts active when the worker had sessions.
func (p *Pool) removeLocked(pi *processInfo) {
	appRoot := pi.worker.AppRoot()
	if grp := p.groups[appRoot]; grp != nil && pi.elem != nil {
		grp.processes.Remove(pi.elem)
		grp.size--
		if grp.processes.Len() == 0 {
			delete(p.groups, appRoot)
		}
	}
	pi.elem = nil
	if pi.iaElem != nil {
		p.inactive.Remove(pi.iaElem)
		pi.iaElem = nil
	}
	p.count--
	pi.retired = true
}

// closeHook builds the callback invoked when a session on pi is closed.
func (p *Pool) closeHook(pi *processInfo) func() {
	return func() { p.sessionClosed(pi) }
}

// sessionClosed requeues or retires a worker after a request finished.
// It never propagates a failure into the session teardown.
func (p *Pool) sessionClosed(pi *processInfo) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("session close callback failed", zap.Any("panic", r))
		}
	}()

	p.mu.Lock()
	defer p.mu.Unlock()
	if pi.retired {
		return
	}
	grp := p.groups[pi.worker.AppRoot()]
	if grp == nil {
		return
	}

	pi.processed++
	if grp.maxRequests > 0 && pi.processed >= grp.maxRequests {
		p.logger.Debug("retiring worker after request quota",
			zap.String("appRoot", pi.worker.AppRoot()), zap.Int("pid", pi.worker.PID()))
		p.removeLocked(pi)
		p.active--
		if p.metrics != nil {
			p.metrics.quotaRetirements.Inc()
		}
		p.cond.Broadcast()
	} else {
		pi.lastUsed = clock.Now()
		pi.sessions--
		if pi.sessions == 0 {
			grp.processes.MoveToFront(pi.elem)
			pi.iaElem = p.inactive.PushBack(pi)
			p.active--
			p.cond.Broadcast()
		}
	}
	p.updateGaugesLocked()
}

// Clear drops every group and worker and wakes all waiters.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, grp := range p.groups {
		for e := grp.processes.Front(); e != nil; e = e.Next() {
			pi := e.Value.(*processInfo)
			pi.retired = true
			pi.elem = nil
			pi.iaElem = nil
		}
	}
	p.groups = map[string]*group{}
	p.inactive.Init()
	p.count = 0
	p.active = 0
	p.cond.Broadcast()
	p.updateGaugesLocked()
	// TODO: reset the restart detector cache and reload the spawners.
}

// SetMax reconfigures the global process cap.
func (p *Pool) SetMax(max int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.max = max
	p.cond.Broadcast()
}

// SetMaxPerApp reconfigures the per-application cap.
func (p *Pool) SetMaxPerApp(maxPerApp int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxPerApp = maxPerApp
	p.cond.Broadcast()
}

// SetMaxIdleTime reconfigures the idle threshold and nudges the reaper so
// the new value takes effect immediately.
func (p *Pool) SetMaxIdleTime(maxIdleTime time.Duration) {
	p.mu.Lock()
	p.maxIdleTime = maxIdleTime
	p.mu.Unlock()
	p.wakeReaper()
}

// GetActive returns the number of workers currently serving sessions.
func (p *Pool) GetActive() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// GetCount returns the total number of workers in the pool.
func (p *Pool) GetCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// ServerPID returns the pid of the spawn server.
func (p *Pool) ServerPID() int {
	return p.spawner.ServerPID()
}

// Close shuts the pool down: it stops the reaper and unblocks waiters,
// which return ErrClosed. In-flight sessions stay usable; their close
// callbacks become no-ops once Clear or retirement has run.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wakeReaper()
	<-p.reaperDone
}

func (p *Pool) wakeReaper() {
	select {
	case p.reaperWake <- struct{}{}:
	default:
	}
}

// interrupted reports why a wait should stop; a wake-up with no reason is
// treated as spurious by the caller's loop.
func (p *Pool) interrupted(ctx context.Context) error {
	if p.done {
		return ErrClosed
	}
	return ctx.Err()
}

// cancelBroadcast wakes the condition when ctx is cancelled so a blocked
// Get can observe the cancellation.
func (p *Pool) cancelBroadcast(ctx context.Context) func() {
	if ctx.Done() == nil {
		return func() {}
	}
	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.cond.Broadcast()
		case <-stopped:
		}
	}()
	return func() { close(stopped) }
}
