package apool

import (
	"go.uber.org/zap"

	"github.com/viant/apool/pool"
	"github.com/viant/apool/restart"
	"github.com/viant/apool/spawn"
	"github.com/viant/apool/tracing"
)

// Option customises a Service.
type Option func(*Service)

// WithConfig replaces the whole configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithSpawner sets the spawner.
func WithSpawner(spawner spawn.Spawner) Option {
	return func(s *Service) { s.spawner = spawner }
}

// WithDetector sets the restart detector.
func WithDetector(detector *restart.Detector) Option {
	return func(s *Service) { s.detector = detector }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches a metrics collector to the pool.
func WithMetrics(metrics *pool.Metrics) Option {
	return func(s *Service) { s.metrics = metrics }
}

// WithMax sets the global process cap.
func WithMax(max int) Option {
	return func(s *Service) { s.config.Pool.Max = max }
}

// WithMaxPerApp sets the per-application process cap.
func WithMaxPerApp(maxPerApp int) Option {
	return func(s *Service) { s.config.Pool.MaxPerApp = maxPerApp }
}

// WithMaxIdleTimeSec sets the idle retirement threshold in seconds.
func WithMaxIdleTimeSec(seconds int) Option {
	return func(s *Service) { s.config.Pool.MaxIdleTimeSec = seconds }
}

// WithTracing configures OpenTelemetry tracing. When outputFile is empty
// spans go to stdout. Safe to call multiple times; the first successful
// initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}
