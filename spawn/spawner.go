// Package spawn defines the contract between the pool and the subsystem
// that starts worker processes, together with the Session handed to
// callers for the lifetime of one request.
package spawn

import (
	"context"
	"sync"

	"github.com/viant/apool/arena"
	"github.com/viant/apool/internal/idgen"
)

// Spawner starts and reloads worker processes. How a worker is brought up
// is opaque to the pool; it only relies on the returned handle.
type Spawner interface {
	// Spawn starts a new worker for the application rooted at appRoot.
	Spawn(ctx context.Context, appRoot string) (WorkerHandle, error)

	// Reload tells the spawner to drop any cached state for appRoot so
	// the next Spawn picks up fresh application code.
	Reload(ctx context.Context, appRoot string) error

	// ServerPID returns the pid of the spawn server process; a spawner
	// with no server of its own reports the pid of the hosting process.
	ServerPID() int
}

// WorkerHandle identifies a running worker process.
type WorkerHandle interface {
	PID() int
	AppRoot() string

	// Connect opens a session on the worker. onClose is invoked exactly
	// once when the session is closed.
	Connect(onClose func()) (*Session, error)
}

// Session is a scoped borrow of a worker for one request. Each session
// can lazily carry its own region allocator for request-local scratch
// allocations; the region is released together with the session.
type Session struct {
	id      string
	worker  WorkerHandle
	onClose func()

	mu     sync.Mutex
	region *arena.Arena
	closed bool
}

// NewSession wraps a worker handle into a session with a close hook.
func NewSession(worker WorkerHandle, onClose func()) *Session {
	return &Session{
		id:      idgen.New(),
		worker:  worker,
		onClose: onClose,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Worker returns the handle of the worker serving this session.
func (s *Session) Worker() WorkerHandle {
	return s.worker
}

// PID returns the pid of the worker serving this session.
func (s *Session) PID() int {
	return s.worker.PID()
}

// Region returns the session-scoped arena, creating it on first use.
func (s *Session) Region() *arena.Arena {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.region == nil {
		s.region = arena.New(arena.DefaultBlockSize)
	}
	return s.region
}

// Close releases the session. The close hook runs exactly once; further
// calls are no-ops.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	region := s.region
	s.region = nil
	onClose := s.onClose
	s.onClose = nil
	s.mu.Unlock()

	if region != nil {
		region.Release()
	}
	if onClose != nil {
		onClose()
	}
	return nil
}
