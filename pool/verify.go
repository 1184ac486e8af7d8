package pool

import "fmt"

// debugVerify enables the invariant check that Get runs after each
// acquisition and each connect failure, and the reaper runs after each
// scan. It is off in production; tests flip it on.
var debugVerify = false

// verifyStateLocked asserts the cross-collection invariants. Violations
// panic so a broken transition is caught at its source during tests.
func (p *Pool) verifyStateLocked() {
	if !debugVerify {
		return
	}
	total := 0
	for appRoot, grp := range p.groups {
		if grp.processes.Len() == 0 {
			panic(fmt.Sprintf("pool: group %q is empty", appRoot))
		}
		if grp.size != grp.processes.Len() {
			panic(fmt.Sprintf("pool: group %q size %d != list length %d",
				appRoot, grp.size, grp.processes.Len()))
		}
		total += grp.size
		seenActive := false
		for e := grp.processes.Front(); e != nil; e = e.Next() {
			pi := e.Value.(*processInfo)
			if pi.elem != e {
				panic(fmt.Sprintf("pool: group %q has a stale list back-link", appRoot))
			}
			if pi.worker.AppRoot() != appRoot {
				panic(fmt.Sprintf("pool: worker for %q filed under group %q",
					pi.worker.AppRoot(), appRoot))
			}
			if pi.sessions > 0 {
				seenActive = true
			} else {
				if seenActive {
					panic(fmt.Sprintf("pool: group %q is not sorted zero-sessions first", appRoot))
				}
				if pi.iaElem == nil {
					panic(fmt.Sprintf("pool: free worker in group %q missing from the free LRU", appRoot))
				}
			}
			if pi.sessions > 0 && pi.iaElem != nil {
				panic(fmt.Sprintf("pool: active worker in group %q still on the free LRU", appRoot))
			}
		}
	}
	if total != p.count {
		panic(fmt.Sprintf("pool: sum of group sizes %d != count %d", total, p.count))
	}
	if p.active > p.count {
		panic(fmt.Sprintf("pool: active %d > count %d", p.active, p.count))
	}
	if p.inactive.Len() != p.count-p.active {
		panic(fmt.Sprintf("pool: free LRU length %d != count %d - active %d",
			p.inactive.Len(), p.count, p.active))
	}
	for e := p.inactive.Front(); e != nil; e = e.Next() {
		pi := e.Value.(*processInfo)
		if pi.iaElem != e {
			panic("pool: free LRU has a stale back-link")
		}
		if pi.sessions != 0 {
			panic("pool: free LRU holds a worker with active sessions")
		}
	}
}
