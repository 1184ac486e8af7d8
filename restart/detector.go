// Package restart decides whether an application group has to be thrown
// away and respawned. The decision is driven by two trigger files inside
// the application's restart directory: always_restart.txt forces a restart
// whenever it exists, restart.txt triggers once each time its modification
// time changes. Filesystem probes are throttled so a busy pool does not
// stat the same files on every request.
package restart

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/apool/internal/clock"
)

const (
	// AlwaysRestartFile forces a restart for as long as it exists.
	AlwaysRestartFile = "always_restart.txt"
	// TriggerFile requests a single restart each time it is touched.
	TriggerFile = "restart.txt"
)

// existsProbe caches the outcome of a throttled existence check.
type existsProbe struct {
	checkedAt time.Time
	exists    bool
}

// changeProbe tracks the last observed state of a trigger file so that a
// modification is reported exactly once. The raw stat is cached separately
// from the recorded observation: the stat honours the throttle, while the
// comparison against the observation runs on every call.
type changeProbe struct {
	statAt      time.Time
	statExists  bool
	statModTime time.Time

	observed bool
	exists   bool
	modTime  time.Time
}

// Detector probes restart trigger files through an afs file system.
type Detector struct {
	fs      afs.Service
	mu      sync.Mutex
	stats   map[string]*existsProbe
	changes map[string]*changeProbe
}

// New creates a detector backed by the supplied file system; a nil service
// falls back to the default afs service.
func New(fs afs.Service) *Detector {
	if fs == nil {
		fs = afs.New()
	}
	return &Detector{
		fs:      fs,
		stats:   map[string]*existsProbe{},
		changes: map[string]*changeProbe{},
	}
}

// Dir resolves the restart directory for an application root. An empty
// override defaults to <appRoot>/tmp, an absolute override is taken
// verbatim and a relative one is joined with the app root.
func Dir(appRoot, override string) string {
	switch {
	case override == "":
		return path.Join(appRoot, "tmp")
	case strings.HasPrefix(override, "/"):
		return override
	default:
		return path.Join(appRoot, override)
	}
}

// Check reports whether the application rooted at appRoot needs a restart.
// Both probes honour the throttle interval: within the interval of the
// previous probe the cached stat result is reused without touching the file
// system. always_restart.txt reports the cached existence; restart.txt
// compares the cached stat against its last observation, so a change is
// reported only once.
func (d *Detector) Check(ctx context.Context, appRoot, restartDir string, throttle time.Duration) bool {
	dir := Dir(appRoot, restartDir)
	always := d.fileExists(ctx, path.Join(dir, AlwaysRestartFile), throttle)
	changed := d.fileChanged(ctx, path.Join(dir, TriggerFile), throttle)
	return always || changed
}

// Forget drops all cached probe state for the application root, forcing
// the next Check to hit the file system.
func (d *Detector) Forget(appRoot, restartDir string) {
	dir := Dir(appRoot, restartDir)
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.stats, path.Join(dir, AlwaysRestartFile))
	delete(d.changes, path.Join(dir, TriggerFile))
}

func (d *Detector) fileExists(ctx context.Context, location string, throttle time.Duration) bool {
	now := clock.Now()
	d.mu.Lock()
	probe, ok := d.stats[location]
	if ok && throttle > 0 && now.Sub(probe.checkedAt) < throttle {
		exists := probe.exists
		d.mu.Unlock()
		return exists
	}
	d.mu.Unlock()

	exists, err := d.fs.Exists(ctx, location)
	if err != nil {
		exists = false
	}

	d.mu.Lock()
	d.stats[location] = &existsProbe{checkedAt: now, exists: exists}
	d.mu.Unlock()
	return exists
}

func (d *Detector) fileChanged(ctx context.Context, location string, throttle time.Duration) bool {
	now := clock.Now()
	d.mu.Lock()
	probe, ok := d.changes[location]
	if !ok {
		probe = &changeProbe{}
		d.changes[location] = probe
	}
	fresh := probe.statAt.IsZero() || throttle <= 0 || now.Sub(probe.statAt) >= throttle
	d.mu.Unlock()

	var exists bool
	var modTime time.Time
	if fresh {
		if object, err := d.fs.Object(ctx, location); err == nil && object != nil {
			exists = true
			modTime = object.ModTime()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if fresh {
		probe.statAt = now
		probe.statExists = exists
		probe.statModTime = modTime
	}
	first := !probe.observed
	changed := !first && (probe.statExists != probe.exists ||
		(probe.statExists && !probe.statModTime.Equal(probe.modTime)))
	probe.observed = true
	probe.exists = probe.statExists
	probe.modTime = probe.statModTime
	return changed
}
