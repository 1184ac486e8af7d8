// Package idgen wraps the UUID generator so it can be stubbed in tests.
// Callers should treat the returned identifiers as opaque strings.
package idgen
