package gauge

import "math"

// Momentum is a constant velocity applied to a gauge's value over the
// half-open-or-infinite interval [Since, Until). Since must be strictly
// less than Until unless one of them is infinite, in which case the
// momentum has no opposing bound on that side.
type Momentum struct {
	Velocity float64
	Since    float64
	Until    float64
}

// NewMomentum validates and constructs a Momentum.
func NewMomentum(velocity, since, until float64) (Momentum, error) {
	m := Momentum{Velocity: velocity, Since: since, Until: until}
	if err := m.validate(); err != nil {
		return Momentum{}, err
	}
	return m, nil
}

func (m Momentum) validate() error {
	if math.IsNaN(m.Velocity) {
		return newError(InvalidMomentum, "velocity must not be NaN")
	}
	if math.IsNaN(m.Since) || math.IsNaN(m.Until) {
		return newError(InvalidMomentum, "since/until must not be NaN")
	}
	sinceInf := math.IsInf(m.Since, 0)
	untilInf := math.IsInf(m.Until, 0)
	if !sinceInf && !untilInf && !(m.Since < m.Until) {
		return newError(InvalidMomentum, "since (%v) must be strictly less than until (%v)", m.Since, m.Until)
	}
	if math.IsInf(m.Since, 1) {
		return newError(InvalidMomentum, "since must not be +Inf")
	}
	if math.IsInf(m.Until, -1) {
		return newError(InvalidMomentum, "until must not be -Inf")
	}
	return nil
}

// active reports whether the momentum applies at time t.
func (m Momentum) active(t float64) bool {
	return t >= m.Since && t < m.Until
}

// eventKind tags a momentum boundary event for the lexicographic
// (time, kind) ordering used when sweeping events in time order: at a
// tied timestamp an addition sorts before a removal (see sortEvents).
type eventKind int

const (
	eventNone eventKind = iota
	eventAdd
	eventRemove
)

// event is one endpoint of a momentum's active interval.
type event struct {
	time     float64
	kind     eventKind
	momentum Momentum
}

// momentumEvents derives the sorted event stream for a set of momenta:
// one eventAdd at each finite Since and one eventRemove at each finite
// Until. It is recomputed fresh from the momenta slice on every call
// rather than maintained as separate mutable state, so there is nothing
// to keep in sync (and nothing to prune) as momenta are added or removed.
func momentumEvents(momenta []Momentum) []event {
	events := make([]event, 0, 2*len(momenta))
	for _, m := range momenta {
		if !math.IsInf(m.Since, -1) {
			events = append(events, event{time: m.Since, kind: eventAdd, momentum: m})
		}
		if !math.IsInf(m.Until, 1) {
			events = append(events, event{time: m.Until, kind: eventRemove, momentum: m})
		}
	}
	sortEvents(events)
	return events
}

// sortEvents orders events lexicographically by (time, kind). The kind
// ranks happen to equal the eventKind constants themselves (eventAdd=1 <
// eventRemove=2), so the ordering needs no separate rank table. Which of
// a tied add/remove pair sorts first has no effect on the computed
// trajectory - active() alone decides which momenta apply at any given
// instant - it only needs to be deterministic.
func sortEvents(events []event) {
	insertionSortEvents(events)
}

func insertionSortEvents(events []event) {
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && eventLess(events[j], events[j-1]); j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
}

func eventLess(a, b event) bool {
	if a.time != b.time {
		return a.time < b.time
	}
	return a.kind < b.kind
}
