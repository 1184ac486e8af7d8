package spawn

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
)

// CommandSpawner starts workers by running a start command through a
// local shell session. The command receives the application root as its
// argument and has to print the pid of the started worker as the last
// token on stdout; a reload command, when configured, is invoked with the
// application root whenever the pool discards a group.
type CommandSpawner struct {
	StartCommand  string
	ReloadCommand string
	Env           map[string]string
	TimeoutMs     int

	mu      sync.Mutex
	service *gosh.Service
}

// NewCommandSpawner creates a spawner around the given start command.
func NewCommandSpawner(startCommand string, options ...CommandOption) *CommandSpawner {
	s := &CommandSpawner{StartCommand: startCommand, TimeoutMs: 60000}
	for _, option := range options {
		option(s)
	}
	return s
}

// CommandOption customises a CommandSpawner.
type CommandOption func(*CommandSpawner)

// WithReloadCommand sets the command run on group reload.
func WithReloadCommand(command string) CommandOption {
	return func(s *CommandSpawner) { s.ReloadCommand = command }
}

// WithEnv sets environment variables passed to spawned commands.
func WithEnv(env map[string]string) CommandOption {
	return func(s *CommandSpawner) { s.Env = env }
}

// WithTimeoutMs bounds each command invocation.
func WithTimeoutMs(timeoutMs int) CommandOption {
	return func(s *CommandSpawner) { s.TimeoutMs = timeoutMs }
}

func (s *CommandSpawner) session(ctx context.Context) (*gosh.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.service != nil {
		return s.service, nil
	}
	var options []runner.Option
	if len(s.Env) > 0 {
		options = append(options, runner.WithEnvironment(s.Env))
	}
	service, err := gosh.New(ctx, local.New(options...))
	if err != nil {
		return nil, fmt.Errorf("failed to open shell session: %w", err)
	}
	s.service = service
	return service, nil
}

// Spawn runs the start command for appRoot and parses the worker pid from
// its output.
func (s *CommandSpawner) Spawn(ctx context.Context, appRoot string) (WorkerHandle, error) {
	service, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	command := fmt.Sprintf("%s %s", s.StartCommand, appRoot)
	output, status, err := service.Run(ctx, command, runner.WithTimeout(s.TimeoutMs))
	if err != nil {
		return nil, fmt.Errorf("failed to run %q: %w", command, err)
	}
	if status != 0 {
		return nil, &ExitError{Command: command, Status: status, Output: output}
	}
	pid, err := parsePID(output)
	if err != nil {
		return nil, fmt.Errorf("failed to parse worker pid from %q output: %w", command, err)
	}
	return &commandWorker{pid: pid, appRoot: appRoot}, nil
}

// Reload runs the reload command for appRoot, when one is configured.
func (s *CommandSpawner) Reload(ctx context.Context, appRoot string) error {
	if s.ReloadCommand == "" {
		return nil
	}
	service, err := s.session(ctx)
	if err != nil {
		return err
	}
	command := fmt.Sprintf("%s %s", s.ReloadCommand, appRoot)
	output, status, err := service.Run(ctx, command, runner.WithTimeout(s.TimeoutMs))
	if err != nil {
		return fmt.Errorf("failed to run %q: %w", command, err)
	}
	if status != 0 {
		return &ExitError{Command: command, Status: status, Output: output}
	}
	return nil
}

// ServerPID returns the pid of the hosting process; the command spawner
// has no dedicated spawn server.
func (s *CommandSpawner) ServerPID() int {
	return os.Getpid()
}

// Close releases the underlying shell session.
func (s *CommandSpawner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.service == nil {
		return nil
	}
	err := s.service.Close()
	s.service = nil
	return err
}

// ExitError reports a spawn command that completed with a non-zero status.
type ExitError struct {
	Command string
	Status  int
	Output  string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with status %v: %s", e.Command, e.Status, strings.TrimSpace(e.Output))
}

// parsePID extracts the last integer token from command output.
func parsePID(output string) (int, error) {
	fields := strings.Fields(output)
	for i := len(fields) - 1; i >= 0; i-- {
		if pid, err := strconv.Atoi(fields[i]); err == nil && pid > 0 {
			return pid, nil
		}
	}
	return 0, fmt.Errorf("no pid in output %q", output)
}

type commandWorker struct {
	pid     int
	appRoot string
}

func (w *commandWorker) PID() int {
	return w.pid
}

func (w *commandWorker) AppRoot() string {
	return w.appRoot
}

func (w *commandWorker) Connect(onClose func()) (*Session, error) {
	return NewSession(w, onClose), nil
}

var _ Spawner = (*CommandSpawner)(nil)
