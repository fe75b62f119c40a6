package gauge

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// LineKind tags which of the three line variants a Line is.
type LineKind int

const (
	// Horizon is a constant line: Value for all time.
	Horizon LineKind = iota
	// Ray is anchored at (Since, Value) with slope Extra.
	Ray
	// Segment interpolates linearly between (Since, Value) and
	// (Until, Extra).
	Segment
)

func (k LineKind) String() string {
	switch k {
	case Horizon:
		return "Horizon"
	case Ray:
		return "Ray"
	case Segment:
		return "Segment"
	default:
		return "Unknown"
	}
}

// Line is a tagged piecewise-linear primitive valid over [Since, Until].
// Extra means velocity for a Ray, the final value for a Segment, and is
// unused for a Horizon.
type Line struct {
	Kind  LineKind
	Since float64
	Until float64
	Value float64
	Extra float64
}

// NewHorizon builds a constant line over [since, until].
func NewHorizon(since, until, value float64) Line {
	return Line{Kind: Horizon, Since: since, Until: until, Value: value}
}

// NewRay builds a line anchored at (since, value) with the given slope,
// valid over [since, until].
func NewRay(since, until, value, velocity float64) Line {
	return Line{Kind: Ray, Since: since, Until: until, Value: value, Extra: velocity}
}

// NewSegment builds a line interpolating linearly between (since, value)
// and (until, finalValue).
func NewSegment(since, until, value, finalValue float64) Line {
	return Line{Kind: Segment, Since: since, Until: until, Value: value, Extra: finalValue}
}

// ValueAt returns the line's value at t, which must lie in [Since, Until].
// Endpoint checks are exact equality so boundary values are returned
// unperturbed by the interpolation's rounding.
func (l Line) ValueAt(t float64) float64 {
	switch l.Kind {
	case Horizon:
		return l.Value
	case Ray:
		return l.Value + l.Extra*(t-l.Since)
	case Segment:
		if t == l.Since {
			return l.Value
		}
		if t == l.Until {
			return l.Extra
		}
		rate := (t - l.Since) / (l.Until - l.Since)
		return l.Value + rate*(l.Extra-l.Value)
	default:
		panic("gauge: unknown line kind")
	}
}

// Guess extends ValueAt outside [Since, Until] by holding the line's
// boundary behavior: flat at Value before Since, and flat at the line's
// endpoint value after Until.
func (l Line) Guess(t float64) float64 {
	if t < l.Since {
		return l.Value
	}
	if t > l.Until {
		switch l.Kind {
		case Horizon:
			return l.Value
		case Ray:
			return l.ValueAt(l.Until)
		case Segment:
			return l.Extra
		}
	}
	return l.ValueAt(t)
}

// Velocity returns the line's slope.
func (l Line) Velocity() float64 {
	switch l.Kind {
	case Horizon:
		return 0
	case Ray:
		return l.Extra
	case Segment:
		return (l.Extra - l.Value) / (l.Until - l.Since)
	default:
		panic("gauge: unknown line kind")
	}
}

// Intercept returns the line's value-intercept, Value - Velocity*Since.
// A Horizon has no meaningful Since (constantLimit builds one spanning
// +/-Inf) and a zero velocity regardless, so its intercept is just its
// Value - computing Velocity*Since for it would multiply 0 by an
// infinite Since and produce NaN.
func (l Line) Intercept() float64 {
	if l.Kind == Horizon {
		return l.Value
	}
	return l.Value - l.Velocity()*l.Since
}

// reliability ranks a Line's extrapolated-slope trustworthiness: a
// Segment's slope comes from two finite-precision endpoints and amplifies
// noise the most, so it is least reliable; a Horizon has no slope to get
// wrong at all.
func (l Line) reliability() int {
	switch l.Kind {
	case Horizon:
		return 2
	case Ray:
		return 1
	case Segment:
		return 0
	default:
		return -1
	}
}

// Tolerances controls how strictly Intersect treats two lines as parallel
// or a line as near-vertical. The zero value reproduces the bitwise-exact
// behavior of the distilled algorithm.
type Tolerances struct {
	// ParallelEpsilon is the maximum |Δvelocity| treated as parallel.
	// Zero means only an exact zero difference counts.
	ParallelEpsilon float64
	// VerticalEpsilon, if positive, additionally treats any |velocity|
	// greater than 1/VerticalEpsilon as near-vertical. Zero means only a
	// literal +/-Inf velocity counts.
	VerticalEpsilon float64
}

func (tol Tolerances) nearVertical(v float64) bool {
	if math.IsInf(v, 0) {
		return true
	}
	if tol.VerticalEpsilon > 0 && !math.IsNaN(v) {
		return math.Abs(v) > 1/tol.VerticalEpsilon
	}
	return false
}

func (tol Tolerances) nearZero(d float64) bool {
	if tol.ParallelEpsilon == 0 {
		return d == 0
	}
	return scalar.EqualWithinAbs(d, 0, tol.ParallelEpsilon)
}

// Intersect computes the intersection of two lines within their common
// time range. It returns ok=false if the lines are parallel or their
// intersection falls outside both lines' validity windows.
func Intersect(a, b Line, tol Tolerances) (t, v float64, ok bool) {
	// right holds whichever line is less reliable: its velocity is the one
	// checked for near-vertical (an unreliable slope is the one likeliest
	// to be spuriously steep), and the final value is read off left, the
	// more trustworthy line.
	left, right := a, b
	if a.reliability() < b.reliability() {
		left, right = b, a
	}

	rv := right.Velocity()
	if tol.nearVertical(rv) {
		t = (right.Since + right.Until) / 2
	} else {
		dv := left.Velocity() - rv
		if tol.nearZero(dv) {
			return 0, 0, false
		}
		t = (right.Intercept() - left.Intercept()) / dv
	}

	lo := math.Max(left.Since, right.Since)
	hi := math.Min(left.Until, right.Until)
	if t < lo || t > hi {
		return 0, 0, false
	}
	return t, left.ValueAt(t), true
}
