package pool

import (
	"container/list"
	"fmt"
	"strings"
	"time"

	"github.com/viant/apool/internal/clock"
	"github.com/viant/apool/spawn"
)

// processInfo tracks one worker process. elem is its position in the
// owning group's list; iaElem is its position in the free LRU and is nil
// while the process has active sessions. retired flips once the process
// has been removed from the pool so that a late session-close callback
// does not resurrect it.
type processInfo struct {
	worker    spawn.WorkerHandle
	startTime time.Time
	lastUsed  time.Time
	sessions  int
	processed int
	retired   bool
	elem      *list.Element
	iaElem    *list.Element
}

func newProcessInfo(worker spawn.WorkerHandle) *processInfo {
	return &processInfo{worker: worker, startTime: clock.Now()}
}

// uptime renders the age of the process as "1h 2m 3s", omitting leading
// zero units.
func (p *processInfo) uptime() string {
	return formatUptime(clock.Now().Sub(p.startTime))
}

func formatUptime(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 0 {
		seconds = 0
	}
	var b strings.Builder
	if seconds >= 60 {
		minutes := seconds / 60
		if minutes >= 60 {
			fmt.Fprintf(&b, "%dh ", minutes/60)
			minutes %= 60
		}
		seconds %= 60
		fmt.Fprintf(&b, "%dm ", minutes)
	}
	fmt.Fprintf(&b, "%ds", seconds)
	return b.String()
}

// group holds all workers of one application root. The process list keeps
// zero-session entries in front of entries with active sessions.
type group struct {
	processes   *list.List
	size        int
	maxRequests int
}

func newGroup(maxRequests int) *group {
	return &group{processes: list.New(), maxRequests: maxRequests}
}
