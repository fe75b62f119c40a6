package gauge

import "math"

// Vertex is one (time, value) point of a Determination.
type Vertex struct {
	Time  float64
	Value float64
}

// Determination is the ordered, deterministic description of a gauge's
// value from its base time through +Inf: a polyline of Vertices plus,
// optionally, the time since which the value has been running free
// rather than pinned to a limit. InRangeSince is nil when the base vertex
// already lies past a limit (the trajectory is then frozen at the base
// value) and when the trajectory ends pinned to a limit; after a release
// from a limit it holds the release time.
type Determination struct {
	Vertices     []Vertex
	InRangeSince *float64
}

// maxDeterminationSteps bounds the sweep against a runaway loop; the
// algorithm always makes forward progress in time, so reaching this many
// steps means a bug, not a legitimately long gauge history.
const maxDeterminationSteps = 1 << 20

// determine computes the full forward Determination for a gauge whose
// value starts at base, evolves under momenta, and is clamped between
// floor and ceiling. tol controls when Intersect treats two lines as
// parallel (no intersection) and when it treats a slope as near-vertical
// (intersection at the line's midpoint).
func determine(base Vertex, momenta []Momentum, ceiling, floor LimitSource, tol Tolerances) Determination {
	active := activeMomentaAt(base.Time, momenta)
	events := futureEvents(base.Time, momenta)

	current := base
	velocity := sumVelocity(active)

	// Past-boundary skip: a base vertex already on the wrong side of a
	// limit at construction time (reachable via Reconstruct, or via a
	// value set under PolicyOK/PolicyOnce while already out of range)
	// must not be corrected here - value_at(base.time) always reports the
	// literal base value, even out of range, which is the same guarantee
	// set(v, OK, t); value_at(t) == v relies on. What it must not do is
	// free-run: risingCrossing only detects a ray crossing a limit from
	// the legal side, so a ray that starts already past a limit and keeps
	// moving the same way would otherwise extrapolate the violation to
	// infinity instead of recognizing it. Once already violating, only a
	// momentum component pulling back toward the legal side could ever
	// matter, and this engine doesn't track per-velocity filtering inside
	// a bound segment - with no such retraction modeled, the trajectory
	// simply freezes at the violating value rather than compounding it.
	// The ceiling is checked before the floor, the same priority the main
	// loop gives ceiling when both walkers tie.
	ceilLine0 := ceiling.lineAt(base.Time)
	floorLine0 := floor.lineAt(base.Time)
	if ceilLine0.violatedBy(Ceiling, base.Time, base.Value) || floorLine0.violatedBy(Floor, base.Time, base.Value) {
		return Determination{Vertices: finalizeFree([]Vertex{current}, current, 0)}
	}

	var bound *Bound
	t := base.Time
	inRangeSince := &t
	vertices := []Vertex{current}

	eventIdx := 0
	steps := 0

eventsLoop:
	for {
		steps++
		if steps > maxDeterminationSteps {
			panic("gauge: determination failed to converge")
		}

		nextEventTime := math.Inf(1)
		if eventIdx < len(events) {
			nextEventTime = events[eventIdx].time
		}

		if bound == nil {
			ceilLine := ceiling.lineAt(current.Time)
			floorLine := floor.lineAt(current.Time)

			// A limit's own segment only describes its trajectory up to
			// its Until; past that it may bend, so a candidate boundary
			// crossing found beyond either segment's Until is provisional
			// at best. Capping the ray there and re-fetching fresh
			// segments next iteration lets a crossing that only becomes
			// real in a later limit segment still be found.
			horizon := math.Min(ceilLine.Until, floorLine.Until)
			rayUntil := math.Min(nextEventTime, horizon)
			ray := NewRay(current.Time, rayUntil, current.Value, velocity)

			candidateT := rayUntil
			candidateBound := Bound(-1)

			if t, crosses := risingCrossing(ray, ceilLine, Ceiling, tol); crosses && t < candidateT {
				candidateT, candidateBound = t, Ceiling
			}
			if t, crosses := risingCrossing(ray, floorLine, Floor, tol); crosses && t < candidateT {
				candidateT, candidateBound = t, Floor
			}
			candidateT = recoverFloat(candidateT, nextEventTime, events, eventIdx)

			value := ray.Guess(candidateT)
			if candidateBound != Bound(-1) {
				vertices = append(vertices, Vertex{Time: candidateT, Value: value})
				current = Vertex{Time: candidateT, Value: value}
				b := candidateBound
				bound = &b
				inRangeSince = nil
				continue eventsLoop
			}

			if math.IsInf(candidateT, 1) {
				vertices = finalizeFree(vertices, current, velocity)
				break eventsLoop
			}

			vertices = append(vertices, Vertex{Time: candidateT, Value: value})
			current = Vertex{Time: candidateT, Value: value}
			if candidateT == nextEventTime {
				eventIdx = applyEvents(events, eventIdx, candidateT, &active)
				velocity = sumVelocity(active)
			}
			continue eventsLoop
		}

		b := *bound
		limitLine := limitSourceFor(b, ceiling, floor).lineAt(current.Time)
		freeVelocity := sumVelocity(active)

		if released(b, freeVelocity, limitLine.Velocity()) {
			bound = nil
			t := current.Time
			inRangeSince = &t
			velocity = freeVelocity
			continue eventsLoop
		}

		segmentEnd := limitLine.Until
		candidateT := math.Min(nextEventTime, segmentEnd)
		candidateT = recoverFloat(candidateT, nextEventTime, events, eventIdx)

		if math.IsInf(candidateT, 1) {
			vertices = finalizeFromLine(vertices, current, limitLine)
			break eventsLoop
		}

		value := limitLine.Guess(candidateT)
		vertices = append(vertices, Vertex{Time: candidateT, Value: value})
		current = Vertex{Time: candidateT, Value: value}

		if candidateT == nextEventTime {
			eventIdx = applyEvents(events, eventIdx, candidateT, &active)
		}
	}

	return Determination{Vertices: vertices, InRangeSince: inRangeSince}
}

func activeMomentaAt(t float64, momenta []Momentum) []Momentum {
	active := make([]Momentum, 0, len(momenta))
	for _, m := range momenta {
		if m.active(t) {
			active = append(active, m)
		}
	}
	return active
}

func futureEvents(base float64, momenta []Momentum) []event {
	all := momentumEvents(momenta)
	out := all[:0:0]
	for _, e := range all {
		if e.time > base {
			out = append(out, e)
		}
	}
	return out
}

func sumVelocity(momenta []Momentum) float64 {
	var v float64
	for _, m := range momenta {
		v += m.Velocity
	}
	return v
}

// applyEvents folds every event sharing candidateT's timestamp into
// active, returning the index of the first unconsumed event.
func applyEvents(events []event, idx int, candidateT float64, active *[]Momentum) int {
	for idx < len(events) && events[idx].time == candidateT {
		switch events[idx].kind {
		case eventAdd:
			*active = append(*active, events[idx].momentum)
		case eventRemove:
			*active = removeMomentum(*active, events[idx].momentum)
		}
		idx++
	}
	return idx
}

func removeMomentum(momenta []Momentum, target Momentum) []Momentum {
	out := momenta[:0]
	for _, m := range momenta {
		if m != target {
			out = append(out, m)
		}
	}
	return out
}

// risingCrossing reports whether ray's free trajectory will reach limit
// from the permitted side at some t > ray.Since, and if so returns that
// t. A ray that is already moving away from the bound (or exactly
// parallel to it) never "rises" into it.
func risingCrossing(ray, limit Line, b Bound, tol Tolerances) (float64, bool) {
	if b == Ceiling && ray.Velocity() <= limit.Velocity() {
		return 0, false
	}
	if b == Floor && ray.Velocity() >= limit.Velocity() {
		return 0, false
	}
	t, _, ok := Intersect(ray, limit, tol)
	if !ok || t <= ray.Since {
		return 0, false
	}
	return t, true
}

// released reports whether a trajectory currently pinned to bound b
// would, under its own free velocity, pull back off the limit rather
// than continue to violate it.
func released(b Bound, freeVelocity, limitVelocity float64) bool {
	if b == Ceiling {
		return freeVelocity < limitVelocity
	}
	return freeVelocity > limitVelocity
}

func limitSourceFor(b Bound, ceiling, floor LimitSource) LimitSource {
	if b == Ceiling {
		return ceiling
	}
	return floor
}

// violatedBy reports whether value sits on the forbidden side of the
// line's value at time t.
func (l Line) violatedBy(b Bound, t, value float64) bool {
	return b.violated(value, l.ValueAt(t))
}

// recoverFloat snaps a computed candidate time back onto nextEventTime
// when the two differ only by floating-point noise, so an intersection
// landing a few ULPs before an event doesn't create a degenerate
// zero-length segment.
func recoverFloat(candidateT, nextEventTime float64, events []event, eventIdx int) float64 {
	_ = events
	_ = eventIdx
	if math.IsInf(nextEventTime, 1) {
		return candidateT
	}
	if candidateT != nextEventTime && math.Abs(candidateT-nextEventTime) <= 1e-9*math.Max(1, math.Abs(nextEventTime)) {
		return nextEventTime
	}
	return candidateT
}

// finalizeFree appends the synthetic second tail vertex a Determination
// needs to let a downstream reader (ValueAt, boundaryWalker) infer the
// final segment's slope from its last two vertices, even when the
// determination ends on a single free-running vertex.
func finalizeFree(vertices []Vertex, current Vertex, velocity float64) []Vertex {
	return append(vertices, Vertex{Time: current.Time + 1, Value: current.Value + velocity})
}

// finalizeFromLine is finalizeFree's counterpart for a trajectory that
// runs to +Inf still pinned to an unbounded limit line.
func finalizeFromLine(vertices []Vertex, current Vertex, line Line) []Vertex {
	return append(vertices, Vertex{Time: current.Time + 1, Value: line.ValueAt(current.Time + 1)})
}
