// Package gauge models a scalar quantity whose value evolves continuously
// over time under zero or more time-bounded constant velocities
// ("momenta"), clamped between an upper and lower limit. Each limit is
// either a constant or another Gauge, so limits are themselves
// piecewise-linear functions of time that can move.
//
// The central operation is determination: given a gauge's base point,
// its momenta, and its two limit sources, compute the ordered sequence of
// (time, value) vertices describing the value's trajectory from the base
// time to +Inf. Everything else - value/velocity queries, crossing-time
// queries, mutation under a limit-violation policy - is answered against
// that determination, which is rebuilt lazily after any mutation
// invalidates the cached one.
//
// The package is synchronous and single-threaded: no method blocks, no
// method spawns a goroutine, and there is no I/O. A Gauge used as another
// Gauge's limit keeps a weak-by-convention back-reference (dependents) so
// that mutating it can invalidate every gauge that depends on it; Go has
// no native weak reference, so dependents is an ordinary map cleared
// explicitly whenever a gauge stops using another as a limit.
package gauge
