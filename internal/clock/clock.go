// Package clock centralises the time source so that throttling, idle
// retirement and uptime reporting can be driven deterministically from
// tests.
package clock

import "time"

// NowFunc returns the current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }
