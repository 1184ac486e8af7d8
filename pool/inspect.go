package pool

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

// ProcessSnapshot describes one worker in a snapshot.
type ProcessSnapshot struct {
	PID       int    `json:"pid" xml:"pid"`
	Sessions  int    `json:"sessions" xml:"sessions"`
	Processed int    `json:"processed" xml:"processed"`
	Uptime    string `json:"uptime" xml:"uptime"`
}

// GroupSnapshot describes one application group in a snapshot.
type GroupSnapshot struct {
	Name      string            `json:"name" xml:"name"`
	Processes []ProcessSnapshot `json:"processes" xml:"processes>process"`
}

// Snapshot is a consistent view of the pool taken under the pool lock.
type Snapshot struct {
	Max                  int             `json:"max"`
	Count                int             `json:"count"`
	Active               int             `json:"active"`
	Inactive             int             `json:"inactive"`
	WaitingOnGlobalQueue int             `json:"waitingOnGlobalQueue"`
	Groups               []GroupSnapshot `json:"groups"`
}

// xmlInfo is the wire form of the structured snapshot.
type xmlInfo struct {
	XMLName   xml.Name        `xml:"info"`
	Sensitive *struct{}       `xml:"includes_sensitive_information,omitempty"`
	Groups    []GroupSnapshot `xml:"groups>group"`
}

// Snapshot captures the pool state.
func (p *Pool) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Max:                  p.max,
		Count:                p.count,
		Active:               p.active,
		Inactive:             p.inactive.Len(),
		WaitingOnGlobalQueue: p.waitingOnGlobalQueue,
		Groups:               p.groupSnapshotsLocked(),
	}
}

func (p *Pool) groupSnapshotsLocked() []GroupSnapshot {
	names := make([]string, 0, len(p.groups))
	for name := range p.groups {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]GroupSnapshot, 0, len(names))
	for _, name := range names {
		grp := p.groups[name]
		snapshot := GroupSnapshot{Name: name}
		for e := grp.processes.Front(); e != nil; e = e.Next() {
			pi := e.Value.(*processInfo)
			snapshot.Processes = append(snapshot.Processes, ProcessSnapshot{
				PID:       pi.worker.PID(),
				Sessions:  pi.sessions,
				Processed: pi.processed,
				Uptime:    pi.uptime(),
			})
		}
		groups = append(groups, snapshot)
	}
	return groups
}

// Inspect renders a plain-text view of the pool.
func (p *Pool) Inspect() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "----------- General information -----------\n")
	fmt.Fprintf(&b, "max      = %d\n", p.max)
	fmt.Fprintf(&b, "count    = %d\n", p.count)
	fmt.Fprintf(&b, "active   = %d\n", p.active)
	fmt.Fprintf(&b, "inactive = %d\n", p.inactive.Len())
	fmt.Fprintf(&b, "Waiting on global queue: %d\n\n", p.waitingOnGlobalQueue)

	fmt.Fprintf(&b, "----------- Groups -----------\n")
	for _, grp := range p.groupSnapshotsLocked() {
		fmt.Fprintf(&b, "%s:\n", grp.Name)
		for _, proc := range grp.Processes {
			fmt.Fprintf(&b, "  PID: %-5d   Sessions: %-2d   Processed: %-5d   Uptime: %s\n",
				proc.PID, proc.Sessions, proc.Processed, proc.Uptime)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ToXML renders the structured snapshot as XML. When includeSensitive is
// set the document carries a marker element so consumers know the output
// was not redacted.
func (p *Pool) ToXML(includeSensitive bool) (string, error) {
	p.mu.Lock()
	info := xmlInfo{Groups: p.groupSnapshotsLocked()}
	if includeSensitive {
		info.Sensitive = &struct{}{}
	}
	p.mu.Unlock()

	data, err := xml.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("failed to marshal pool snapshot: %w", err)
	}
	return `<?xml version="1.0" encoding="iso8859-1" ?>` + "\n" + string(data), nil
}
