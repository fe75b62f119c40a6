package gauge

import "math"

// Bound identifies which side of a gauge's feasible band a boundary
// constrains: Ceiling is the upper limit, Floor is the lower limit. The
// two sides differ only in which direction of comparison counts as "more
// restrictive" and in the sign of the release test, so every piece of the
// determination engine that needs to treat them symmetrically takes a
// Bound parameter instead of duplicating logic per side.
type Bound int

const (
	Ceiling Bound = iota
	Floor
)

func (b Bound) String() string {
	if b == Ceiling {
		return "Ceiling"
	}
	return "Floor"
}

// tighter reports whether candidate is a more restrictive bound value than
// current: lower for a Ceiling, higher for a Floor.
func (b Bound) tighter(current, candidate float64) bool {
	if b == Ceiling {
		return candidate < current
	}
	return candidate > current
}

// violated reports whether value has crossed past the limit value on this
// bound's restrictive side: above a Ceiling, or below a Floor.
func (b Bound) violated(value, limit float64) bool {
	if b == Ceiling {
		return value > limit
	}
	return value < limit
}

// clamp pins value to the permitted side of limit.
func (b Bound) clamp(value, limit float64) float64 {
	if b.violated(value, limit) {
		return limit
	}
	return value
}

// LimitSource answers what a gauge's limit evaluates to over time. A
// constant limit and a gauge-valued limit both satisfy it: constantLimit
// for the former, boundaryWalker over the latter's determination for the
// latter.
type LimitSource interface {
	// lineAt returns the Line segment of the limit's trajectory that
	// covers time t.
	lineAt(t float64) Line
}

// constantLimit is a LimitSource that never moves.
type constantLimit float64

func (c constantLimit) lineAt(float64) Line {
	return NewHorizon(math.Inf(-1), math.Inf(1), float64(c))
}

// boundaryWalker turns a limit gauge's Determination into a sequence of
// Line segments and answers point and range queries against it. It keeps
// a cursor so repeated lineAt calls with non-decreasing t (the access
// pattern of the determination engine's forward sweep) run in amortized
// O(1) instead of re-scanning from the start every time.
type boundaryWalker struct {
	segments []Line
	cursor   int
}

// newBoundaryWalker builds the segment sequence from det's vertices. The
// final segment extends to +Inf at the last vertex's velocity (or flat, if
// the determination has only one vertex), mirroring how a Gauge's own
// determination is always defined through +Inf.
func newBoundaryWalker(det Determination) *boundaryWalker {
	vs := det.Vertices
	if len(vs) == 0 {
		return &boundaryWalker{segments: []Line{NewHorizon(math.Inf(-1), math.Inf(1), 0)}}
	}
	segs := make([]Line, 0, len(vs))
	if len(vs) == 1 {
		segs = append(segs, NewHorizon(math.Inf(-1), math.Inf(1), vs[0].Value))
		return &boundaryWalker{segments: segs}
	}
	if math.IsInf(vs[0].Time, -1) {
		segs = append(segs, NewHorizon(math.Inf(-1), vs[0].Time, vs[0].Value))
	}
	for i := 0; i < len(vs)-1; i++ {
		segs = append(segs, NewSegment(vs[i].Time, vs[i+1].Time, vs[i].Value, vs[i+1].Value))
	}
	last := vs[len(vs)-1]
	var velocity float64
	if len(vs) >= 2 {
		prev := vs[len(vs)-2]
		velocity = (last.Value - prev.Value) / (last.Time - prev.Time)
	}
	segs = append(segs, NewRay(last.Time, math.Inf(1), last.Value, velocity))
	return &boundaryWalker{segments: segs}
}

// lineAt returns the segment covering t, advancing the cursor forward if
// t has moved past the segment it last returned.
func (w *boundaryWalker) lineAt(t float64) Line {
	for w.cursor > 0 && t < w.segments[w.cursor].Since {
		w.cursor--
	}
	for w.cursor < len(w.segments)-1 && t >= w.segments[w.cursor].Until {
		w.cursor++
	}
	return w.segments[w.cursor]
}

// reset rewinds the cursor to the start, for reuse across an unrelated
// sweep (e.g. when re-determining a limit gauge itself first).
func (w *boundaryWalker) reset() {
	w.cursor = 0
}
