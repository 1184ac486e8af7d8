// Package pool multiplexes incoming requests onto a bounded set of
// long-lived worker processes, one group per application root. Get either
// reuses a free worker, spawns a new one, multiplexes onto the least
// loaded worker or blocks until capacity frees up; a background reaper
// retires workers that stay idle past a configurable threshold, and a
// restart detector discards whole groups when the application asks for a
// restart.
//
// All pool state is guarded by a single mutex; the only operations that
// run with the mutex released are the call into the spawner and waits on
// the capacity condition.
package pool
