package gauge

import (
	"iter"
	"math"

	"github.com/google/uuid"

	"github.com/banshee-data/gauge/internal/timeutil"
)

// Policy controls how a mutation that would push a gauge's value outside
// its current [floor, ceiling] band is handled.
type Policy int

const (
	// PolicyError rejects the mutation outright with an OutOfRange error.
	PolicyError Policy = iota
	// PolicyOK accepts the mutation unconditionally, in or out of range.
	PolicyOK
	// PolicyOnce resolves to PolicyOK if the gauge is currently in range,
	// and to PolicyError otherwise: it lets a single excursion through
	// but refuses to compound on top of one already in progress.
	PolicyOnce
	// PolicyClamp pins the mutated value to whichever limit it crossed.
	PolicyClamp
)

// Limit is the value of a Gauge's upper or lower bound: either a fixed
// constant or another Gauge, whose own determined value is read live.
type Limit struct {
	isGauge  bool
	constant float64
	gauge    *Gauge
}

// Constant returns a Limit that never moves.
func Constant(value float64) Limit {
	return Limit{constant: value}
}

// FromGauge returns a Limit tracking another gauge's live value.
func FromGauge(g *Gauge) Limit {
	return Limit{isGauge: true, gauge: g}
}

func (l Limit) valueAt(t float64) float64 {
	if l.isGauge {
		return l.gauge.ValueAt(t)
	}
	return l.constant
}

func (l Limit) source() LimitSource {
	if l.isGauge {
		det := l.gauge.determinationCached()
		return newBoundaryWalker(det)
	}
	return constantLimit(l.constant)
}

// Config bundles the collaborators a Gauge needs beyond its own state:
// the clock it reads "now" from, and the tolerances its determination
// engine uses when deciding whether two lines are parallel or a slope is
// effectively vertical.
type Config struct {
	Clock      timeutil.Clock
	Tolerances Tolerances
}

// DefaultConfig returns a Config using the real wall clock and exact
// (zero-tolerance) line comparisons.
func DefaultConfig() Config {
	return Config{Clock: timeutil.RealClock{}, Tolerances: Tolerances{}}
}

// Gauge is a scalar quantity whose value evolves under its momenta,
// clamped between its max and min limits. All methods are synchronous
// and assume single-threaded use: a Gauge shared across goroutines needs
// external synchronization, the same way the rest of this package's
// collaborators (Clock, the determination cache) are left unsynchronized.
type Gauge struct {
	id      string
	cfg     Config
	base    Vertex
	momenta []Momentum

	maxLimit Limit
	minLimit Limit

	determination *Determination
	dependents    map[*Gauge]struct{}
}

// New creates a gauge at value, based at the current time, with no
// momenta and an unbounded range.
func New(value float64) *Gauge {
	return NewWithConfig(DefaultConfig(), value)
}

// NewWithConfig is New with an explicit Config.
func NewWithConfig(cfg Config, value float64) *Gauge {
	g := &Gauge{
		id:         uuid.NewString(),
		cfg:        cfg,
		base:       Vertex{Time: timeutil.Seconds(cfg.Clock.Now()), Value: value},
		maxLimit:   Constant(math.Inf(1)),
		minLimit:   Constant(math.Inf(-1)),
		dependents: make(map[*Gauge]struct{}),
	}
	return g
}

// ID returns the gauge's diagnostic identifier, stable for its lifetime.
func (g *Gauge) ID() string {
	return g.id
}

func (g *Gauge) now() float64 {
	return timeutil.Seconds(g.cfg.Clock.Now())
}

// determinationCached returns the gauge's Determination, recomputing and
// caching it if a prior mutation invalidated the cache.
func (g *Gauge) determinationCached() Determination {
	if g.determination == nil {
		det := determine(g.base, g.momenta, g.maxLimit.source(), g.minLimit.source(), g.cfg.Tolerances)
		g.determination = &det
	}
	return *g.determination
}

// invalidate drops the cached determination and propagates invalidation
// to every gauge that uses this one as a limit.
func (g *Gauge) invalidate() {
	g.determination = nil
	for dep := range g.dependents {
		dep.onLimitInvalidated(g)
	}
}

// onLimitInvalidated is called on g when a gauge g depends on (through
// SetMax/SetMin) has had its own future trajectory change.
func (g *Gauge) onLimitInvalidated(limit *Gauge) {
	g.invalidate()
}

// onLimitRebased is called on g when limit, one of g's max/min limits,
// has just been rebased to (limitValue, at) by ForgetPast. Unlike
// onLimitInvalidated's lazy cache drop, this eagerly follows the limit:
// if g is currently in range, g's own value is pulled in to stay on the
// legal side of the limit's new value and g is rebased there too, so the
// change is immediately observable rather than deferred to the next
// query.
func (g *Gauge) onLimitRebased(limit *Gauge, limitValue, at float64) {
	if at < g.base.Time {
		at = g.base.Time
	}
	v := g.ValueAt(at)
	if g.InRange(at) {
		switch {
		case g.maxLimit.isGauge && g.maxLimit.gauge == limit:
			v = math.Min(v, limitValue)
		case g.minLimit.isGauge && g.minLimit.gauge == limit:
			v = math.Max(v, limitValue)
		}
	}
	g.ForgetPast(v, at)
}

// ValueAt returns the gauge's determined value at time t. If the
// determination has been running free of its limits since at-or-before
// t, the raw interpolated value is additionally re-clamped to the
// current limit band: this guards against the interpolation briefly
// overshooting a limit that has itself moved since the determination
// was cached.
func (g *Gauge) ValueAt(t float64) float64 {
	det := g.determinationCached()
	v := evalValueAt(det, t)
	if det.InRangeSince != nil && *det.InRangeSince <= t {
		if ceil := g.maxLimit.valueAt(t); v > ceil {
			v = ceil
		}
		if floor := g.minLimit.valueAt(t); v < floor {
			v = floor
		}
	}
	return v
}

// VelocityAt returns the gauge's instantaneous velocity at time t.
func (g *Gauge) VelocityAt(t float64) float64 {
	return evalVelocityAt(g.determinationCached(), t)
}

// Goal reports the value the gauge's trajectory settles at, and whether
// it settles at all: ok is false if the gauge's value diverges forever.
func (g *Gauge) Goal() (value float64, ok bool) {
	vs := g.determinationCached().Vertices
	last := vs[len(vs)-1]
	prev := vs[len(vs)-2]
	slope := (last.Value - prev.Value) / (last.Time - prev.Time)
	if slope == 0 {
		return last.Value, true
	}
	return 0, false
}

// InRange reports whether the gauge's value at t lies strictly within its
// open (floor, ceiling) interior, as opposed to sitting pinned to a limit.
func (g *Gauge) InRange(t float64) bool {
	v := g.ValueAt(t)
	return v > g.minLimit.valueAt(t) && v < g.maxLimit.valueAt(t)
}

// Whenever returns the lazy, ascending sequence of times at which the
// gauge's value equals target. A crossing counts in the half-open
// interval of each determined segment that is open at the segment's
// starting value and closed at its ending value, so a vertex sitting
// exactly on target is credited to the segment ending there and never
// double-counted with the segment starting there.
func (g *Gauge) Whenever(target float64) iter.Seq[float64] {
	vs := g.determinationCached().Vertices
	return func(yield func(float64) bool) {
		if len(vs) > 0 && vs[0].Value == target {
			if !yield(vs[0].Time) {
				return
			}
		}
		for i := 0; i < len(vs)-1; i++ {
			v1, v2 := vs[i], vs[i+1]
			if v1.Value == v2.Value {
				continue
			}
			if v1.Value < v2.Value && (target <= v1.Value || target > v2.Value) {
				continue
			}
			if v1.Value > v2.Value && (target >= v1.Value || target < v2.Value) {
				continue
			}
			rate := (target - v1.Value) / (v2.Value - v1.Value)
			t := v1.Time + rate*(v2.Time-v1.Time)
			if !yield(t) {
				return
			}
		}
	}
}

// When returns the time of the nth (0-indexed) crossing of target, or an
// Unreachable error if the gauge's determined trajectory crosses target
// fewer than nth+1 times.
func (g *Gauge) When(target float64, nth int) (float64, error) {
	i := 0
	for t := range g.Whenever(target) {
		if i == nth {
			return t, nil
		}
		i++
	}
	if i == 0 {
		return 0, newError(Unreachable, "gauge never reaches %v", target)
	}
	return 0, newError(Unreachable, "gauge reaches %v only %d time(s), fewer than %d", target, i, nth+1)
}

// AddMomentum installs m on the gauge.
func (g *Gauge) AddMomentum(m Momentum) error {
	if err := m.validate(); err != nil {
		return err
	}
	g.momenta = append(g.momenta, m)
	g.invalidate()
	return nil
}

// RemoveMomentum removes m from the gauge. It returns a NotFound error if
// m is not currently a member.
func (g *Gauge) RemoveMomentum(m Momentum) error {
	for i, existing := range g.momenta {
		if existing == m {
			g.momenta = append(g.momenta[:i], g.momenta[i+1:]...)
			g.invalidate()
			return nil
		}
	}
	return newError(NotFound, "momentum %+v is not installed on this gauge", m)
}

// ClearMomenta removes every momentum from the gauge.
func (g *Gauge) ClearMomenta() {
	if len(g.momenta) == 0 {
		return
	}
	g.momenta = nil
	g.invalidate()
}

// ForgetPast rebases the gauge to (at, value), discarding every momentum
// entirely before at and trimming the Since of any momentum that spans
// it. It is the mechanism beneath Set/Incr/Decr and can also be called
// directly to compact a gauge's history.
func (g *Gauge) ForgetPast(value, at float64) {
	kept := g.momenta[:0]
	for _, m := range g.momenta {
		if m.Until <= at {
			continue
		}
		if m.Since < at {
			m.Since = at
		}
		kept = append(kept, m)
	}
	g.momenta = kept
	g.base = Vertex{Time: at, Value: value}
	g.invalidate()
	for dep := range g.dependents {
		dep.onLimitRebased(g, value, at)
	}
}

// mutate applies a proposed new value at time t under policy, rejecting,
// clamping, or passing it through depending on how policy resolves.
// PolicyOnce resolves to PolicyOK if the gauge is already in range at t,
// and to PolicyError otherwise.
func (g *Gauge) mutate(t, value float64, policy Policy) error {
	resolved := policy
	if policy == PolicyOnce {
		if g.InRange(t) {
			resolved = PolicyOK
		} else {
			return newError(OutOfRange, "policy ONCE refuses a mutation while the gauge is already out of range at t=%v", t)
		}
	}

	ceil := g.maxLimit.valueAt(t)
	floor := g.minLimit.valueAt(t)
	switch resolved {
	case PolicyOK:
	case PolicyClamp:
		if value > ceil {
			value = ceil
		}
		if value < floor {
			value = floor
		}
	case PolicyError:
		if value > ceil {
			return newError(OutOfRange, "value %v exceeds ceiling %v at t=%v", value, ceil, t)
		}
		if value < floor {
			return newError(OutOfRange, "value %v is below floor %v at t=%v", value, floor, t)
		}
	}
	g.ForgetPast(value, t)
	return nil
}

// Set assigns the gauge's current value, subject to policy.
func (g *Gauge) Set(value float64, policy Policy) error {
	return g.mutate(g.now(), value, policy)
}

// Incr adds delta to the gauge's current value, subject to policy.
func (g *Gauge) Incr(delta float64, policy Policy) error {
	t := g.now()
	return g.mutate(t, g.ValueAt(t)+delta, policy)
}

// Decr subtracts delta from the gauge's current value, subject to policy.
func (g *Gauge) Decr(delta float64, policy Policy) error {
	return g.Incr(-delta, policy)
}

// Clamp pins the gauge's current value to its current limits if it is
// presently out of range (possible after a PolicyOnce mutation), and is
// a no-op otherwise.
func (g *Gauge) Clamp() {
	t := g.now()
	v := g.ValueAt(t)
	ceil := g.maxLimit.valueAt(t)
	floor := g.minLimit.valueAt(t)
	switch {
	case v > ceil:
		g.ForgetPast(ceil, t)
	case v < floor:
		g.ForgetPast(floor, t)
	}
}

// dependsOn reports whether target is reachable from g by following
// gauge-valued max/min limits, including g == target itself.
func (g *Gauge) dependsOn(target *Gauge) bool {
	visited := make(map[*Gauge]bool)
	var visit func(*Gauge) bool
	visit = func(cur *Gauge) bool {
		if cur == target {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
		if cur.maxLimit.isGauge && visit(cur.maxLimit.gauge) {
			return true
		}
		if cur.minLimit.isGauge && visit(cur.minLimit.gauge) {
			return true
		}
		return false
	}
	return visit(g)
}

func (g *Gauge) detach(l Limit) {
	if l.isGauge {
		delete(l.gauge.dependents, g)
	}
}

func (g *Gauge) attach(l Limit) {
	if l.isGauge {
		l.gauge.dependents[g] = struct{}{}
	}
}

// SetMax installs a new ceiling. It rejects limit with BadArguments if
// installing it would create a dependency cycle (including limit being g
// itself).
func (g *Gauge) SetMax(limit Limit) error {
	if limit.isGauge && limit.gauge.dependsOn(g) {
		return newError(BadArguments, "installing this gauge as a ceiling would create a dependency cycle")
	}
	at := g.now()
	wasInRange := g.InRange(at)
	value := g.ValueAt(at)

	g.detach(g.maxLimit)
	g.maxLimit = limit
	g.attach(limit)

	g.rebaseAfterLimitChange(at, value, wasInRange, g.maxLimit, g.minLimit)
	return nil
}

// SetMin installs a new floor, with the same cycle rejection as SetMax.
func (g *Gauge) SetMin(limit Limit) error {
	if limit.isGauge && limit.gauge.dependsOn(g) {
		return newError(BadArguments, "installing this gauge as a floor would create a dependency cycle")
	}
	at := g.now()
	wasInRange := g.InRange(at)
	value := g.ValueAt(at)

	g.detach(g.minLimit)
	g.minLimit = limit
	g.attach(limit)

	g.rebaseAfterLimitChange(at, value, wasInRange, g.maxLimit, g.minLimit)
	return nil
}

// SetRange installs both limits atomically: if either would create a
// cycle, neither is installed.
func (g *Gauge) SetRange(max, min Limit) error {
	if max.isGauge && max.gauge.dependsOn(g) {
		return newError(BadArguments, "installing this gauge as a ceiling would create a dependency cycle")
	}
	if min.isGauge && min.gauge.dependsOn(g) {
		return newError(BadArguments, "installing this gauge as a floor would create a dependency cycle")
	}
	at := g.now()
	wasInRange := g.InRange(at)
	value := g.ValueAt(at)

	g.detach(g.maxLimit)
	g.detach(g.minLimit)
	g.maxLimit = max
	g.minLimit = min
	g.attach(max)
	g.attach(min)

	g.rebaseAfterLimitChange(at, value, wasInRange, max, min)
	return nil
}

// rebaseAfterLimitChange implements the tail of SetMax/SetMin/SetRange:
// if the gauge was in range under its prior limits, its current value is
// clamped into the newly installed band; the (possibly clamped) value is
// then always committed via ForgetPast, rebased to at or, if either new
// limit is a gauge with an earlier base time, to that earlier time - so a
// limit gauge that itself started in the past still rebases this gauge's
// history correctly.
func (g *Gauge) rebaseAfterLimitChange(at, value float64, wasInRange bool, newMax, newMin Limit) {
	forgetUntil := at
	if newMax.isGauge && newMax.gauge.base.Time < forgetUntil {
		forgetUntil = newMax.gauge.base.Time
	}
	if newMin.isGauge && newMin.gauge.base.Time < forgetUntil {
		forgetUntil = newMin.gauge.base.Time
	}

	if wasInRange {
		if ceil := newMax.valueAt(at); value > ceil {
			value = ceil
		}
		if floor := newMin.valueAt(at); value < floor {
			value = floor
		}
	}
	g.ForgetPast(value, forgetUntil)
}

func evalValueAt(det Determination, t float64) float64 {
	vs := det.Vertices
	count := 0
	for count < len(vs) && vs[count].Time <= t {
		count++
	}
	switch {
	case count == 0:
		return vs[0].Value
	case count == len(vs):
		last, prev := vs[len(vs)-1], vs[len(vs)-2]
		slope := (last.Value - prev.Value) / (last.Time - prev.Time)
		return last.Value + slope*(t-last.Time)
	default:
		a, b := vs[count-1], vs[count]
		if t == a.Time {
			return a.Value
		}
		rate := (t - a.Time) / (b.Time - a.Time)
		return a.Value + rate*(b.Value-a.Value)
	}
}

func evalVelocityAt(det Determination, t float64) float64 {
	vs := det.Vertices
	count := 0
	for count < len(vs) && vs[count].Time <= t {
		count++
	}
	switch {
	case count == 0:
		return 0
	case count == len(vs):
		last, prev := vs[len(vs)-1], vs[len(vs)-2]
		return (last.Value - prev.Value) / (last.Time - prev.Time)
	default:
		a, b := vs[count-1], vs[count]
		return (b.Value - a.Value) / (b.Time - a.Time)
	}
}
