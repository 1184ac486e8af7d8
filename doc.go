// Package apool provides an application-instance pool: it multiplexes
// incoming requests onto a bounded set of long-lived worker processes,
// one group per application root directory. The Service facade wires the
// pool core together with a spawner, a restart detector, logging,
// tracing and metrics; the heavy lifting lives in the pool, restart,
// spawn and arena packages.
package apool
