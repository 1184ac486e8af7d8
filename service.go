package apool

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/viant/apool/pool"
	"github.com/viant/apool/restart"
	"github.com/viant/apool/spawn"
)

// Service wires the pool core together with its collaborators: a
// spawner, a restart detector, logging and optional metrics.
type Service struct {
	config   *Config
	pool     *pool.Pool
	spawner  spawn.Spawner
	detector *restart.Detector
	logger   *zap.Logger
	metrics  *pool.Metrics
}

// New creates a service. A spawner has to be supplied, either directly
// via WithSpawner or through the config's spawner.startCommand.
func New(options ...Option) (*Service, error) {
	s := &Service{config: DefaultConfig()}
	for _, option := range options {
		option(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	if s.spawner == nil && s.config.Spawner.StartCommand != "" {
		s.spawner = spawn.NewCommandSpawner(s.config.Spawner.StartCommand,
			spawn.WithReloadCommand(s.config.Spawner.ReloadCommand),
			spawn.WithEnv(s.config.Spawner.Env))
	}
	if s.spawner == nil {
		return nil, fmt.Errorf("spawner is required")
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.detector == nil {
		s.detector = restart.New(nil)
	}
	s.pool = pool.New(s.spawner,
		pool.WithMax(s.config.Pool.Max),
		pool.WithMaxPerApp(s.config.Pool.MaxPerApp),
		pool.WithMaxIdleTime(s.config.Pool.MaxIdleTime()),
		pool.WithDetector(s.detector),
		pool.WithLogger(s.logger),
		pool.WithMetrics(s.metrics))
	return s, nil
}

// Get obtains a session bound to a worker for options.AppRoot.
func (s *Service) Get(ctx context.Context, options pool.Options) (*spawn.Session, error) {
	return s.pool.Get(ctx, options)
}

// Pool exposes the underlying pool for reconfiguration and introspection.
func (s *Service) Pool() *pool.Pool {
	return s.pool
}

// Shutdown stops the pool and releases the spawner when it owns
// closable resources.
func (s *Service) Shutdown(ctx context.Context) error {
	s.pool.Close()
	if closer, ok := s.spawner.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to close spawner: %w", err)
		}
	}
	return nil
}
