package gauge

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gauge/internal/timeutil"
)

func newTestGauge(clock *timeutil.MockClock, value float64) *Gauge {
	return NewWithConfig(testConfig(clock), value)
}

func TestGauge_New_FlatByDefault(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(100, 0))
	g := newTestGauge(clock, 3)
	if got := g.ValueAt(timeutil.Seconds(clock.Now())); got != 3 {
		t.Errorf("ValueAt(now) = %v, want 3", got)
	}
	if got := g.ValueAt(timeutil.Seconds(clock.Now()) + 1000); got != 3 {
		t.Errorf("ValueAt(now+1000) = %v, want 3 (no momenta)", got)
	}
}

func TestGauge_AddMomentum_Ramps(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := newTestGauge(clock, 0)
	m, _ := NewMomentum(2, 0, math.Inf(1))
	if err := g.AddMomentum(m); err != nil {
		t.Fatalf("AddMomentum: %v", err)
	}
	if got := g.ValueAt(3); got != 6 {
		t.Errorf("ValueAt(3) = %v, want 6", got)
	}
}

func TestGauge_RemoveMomentum_NotFound(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := newTestGauge(clock, 0)
	m, _ := NewMomentum(1, 0, 1)
	err := g.RemoveMomentum(m)
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestGauge_SetMax_RejectsSelfCycle(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := newTestGauge(clock, 0)
	err := g.SetMax(FromGauge(g))
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != BadArguments {
		t.Fatalf("expected BadArguments for self-cycle, got %v", err)
	}
}

func TestGauge_SetMax_RejectsIndirectCycle(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	a := newTestGauge(clock, 0)
	b := newTestGauge(clock, 0)
	if err := a.SetMax(FromGauge(b)); err != nil {
		t.Fatalf("a.SetMax(b): %v", err)
	}
	if err := b.SetMax(FromGauge(a)); err == nil {
		t.Fatal("expected cycle rejection for b.SetMax(a)")
	}
}

func TestGauge_MovingCeiling_ClampsDependent(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	ceiling := newTestGauge(clock, 5)
	down, _ := NewMomentum(-1, 0, math.Inf(1))
	if err := ceiling.AddMomentum(down); err != nil {
		t.Fatalf("ceiling.AddMomentum: %v", err)
	}

	g := newTestGauge(clock, 0)
	up, _ := NewMomentum(2, 0, math.Inf(1))
	if err := g.AddMomentum(up); err != nil {
		t.Fatalf("g.AddMomentum: %v", err)
	}
	if err := g.SetMax(FromGauge(ceiling)); err != nil {
		t.Fatalf("g.SetMax: %v", err)
	}

	// g rises at 2/s from 0, ceiling falls at 1/s from 5: they meet where
	// 2t == 5 - t, i.e. t == 5/3.
	meet := 5.0 / 3.0
	if got := g.ValueAt(meet); math.Abs(got-ceiling.ValueAt(meet)) > 1e-9 {
		t.Errorf("g.ValueAt(meet) = %v, ceiling.ValueAt(meet) = %v, want equal", got, ceiling.ValueAt(meet))
	}
	if got := g.ValueAt(meet + 1); math.Abs(got-ceiling.ValueAt(meet+1)) > 1e-9 {
		t.Errorf("after meeting, g should continue tracking the falling ceiling: g=%v ceiling=%v", got, ceiling.ValueAt(meet+1))
	}
}

func TestGauge_SetMax_ClampsCurrentValuePostHoc(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := newTestGauge(clock, 50)
	if err := g.SetMax(Constant(10)); err != nil {
		t.Fatalf("SetMax: %v", err)
	}
	if got := g.ValueAt(0); got != 10 {
		t.Errorf("ValueAt(0) after installing a tighter ceiling = %v, want 10 (clamped post-hoc)", got)
	}
	if got := g.ValueAt(1000); got != 10 {
		t.Errorf("ValueAt(1000) = %v, want 10 (stays pinned, not still 50)", got)
	}
}

func TestGauge_OnLimitRebased_EagerlyRebasesDependent(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	ceiling := newTestGauge(clock, 10)
	dep := newTestGauge(clock, 8)
	rising, _ := NewMomentum(1, 0, 2)
	if err := dep.AddMomentum(rising); err != nil {
		t.Fatalf("dep.AddMomentum: %v", err)
	}
	if err := dep.SetMax(FromGauge(ceiling)); err != nil {
		t.Fatalf("dep.SetMax: %v", err)
	}

	clock.Advance(5 * time.Second)
	if err := ceiling.Set(3, PolicyOK); err != nil {
		t.Fatalf("ceiling.Set: %v", err)
	}

	if dep.base.Time != 5 {
		t.Errorf("dep.base.Time = %v, want 5 (rebased eagerly, not left at its old base)", dep.base.Time)
	}
	if len(dep.momenta) != 0 {
		t.Errorf("dep.momenta = %v, want empty (its momentum expired by t=5 and forget_past should have dropped it)", dep.momenta)
	}
	if got := dep.ValueAt(5); got != 3 {
		t.Errorf("dep.ValueAt(5) = %v, want 3 (clamped to the rebased ceiling)", got)
	}
}

func TestGauge_Set_PolicyError_RejectsOutOfRange(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := newTestGauge(clock, 0)
	if err := g.SetMax(Constant(10)); err != nil {
		t.Fatalf("SetMax: %v", err)
	}
	err := g.Set(20, PolicyError)
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != OutOfRange {
		t.Fatalf("expected OutOfRange, got %v", err)
	}
}

func TestGauge_Set_PolicyClamp(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := newTestGauge(clock, 0)
	if err := g.SetMax(Constant(10)); err != nil {
		t.Fatalf("SetMax: %v", err)
	}
	if err := g.Set(20, PolicyClamp); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := g.ValueAt(0); got != 10 {
		t.Errorf("ValueAt(0) after clamp = %v, want 10", got)
	}
}

func TestGauge_Set_PolicyOnce_AllowsOutOfRange(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := newTestGauge(clock, 0)
	if err := g.SetMax(Constant(10)); err != nil {
		t.Fatalf("SetMax: %v", err)
	}
	if err := g.Set(20, PolicyOnce); err != nil {
		t.Fatalf("Set with PolicyOnce: %v", err)
	}
	if got := g.ValueAt(0); got != 20 {
		t.Errorf("ValueAt(0) = %v, want 20 (PolicyOnce allows out-of-range)", got)
	}
}

func TestGauge_Set_PolicyOnce_RejectsWhenAlreadyOutOfRange(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := newTestGauge(clock, 0)
	if err := g.SetMax(Constant(10)); err != nil {
		t.Fatalf("SetMax: %v", err)
	}
	if err := g.Set(20, PolicyOnce); err != nil {
		t.Fatalf("first Set with PolicyOnce: %v", err)
	}
	err := g.Set(21, PolicyOnce)
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != OutOfRange {
		t.Fatalf("expected ONCE to refuse a second excursion while already out of range, got %v", err)
	}
}

func TestGauge_Clamp_PinsOutOfRangeValue(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := newTestGauge(clock, 0)
	if err := g.SetMax(Constant(10)); err != nil {
		t.Fatalf("SetMax: %v", err)
	}
	if err := g.Set(20, PolicyOnce); err != nil {
		t.Fatalf("Set: %v", err)
	}
	g.Clamp()
	if got := g.ValueAt(0); got != 10 {
		t.Errorf("ValueAt(0) after Clamp = %v, want 10", got)
	}
}

func TestGauge_ForgetPast_TrimsMomenta(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := newTestGauge(clock, 0)
	m, _ := NewMomentum(1, 0, 10)
	if err := g.AddMomentum(m); err != nil {
		t.Fatalf("AddMomentum: %v", err)
	}
	g.ForgetPast(3, 3)
	if got := g.ValueAt(3); got != 3 {
		t.Errorf("ValueAt(3) = %v, want 3", got)
	}
	if got := g.ValueAt(5); got != 5 {
		t.Errorf("ValueAt(5) = %v, want 5 (momentum should still be active past 3)", got)
	}
}

func TestGauge_Whenever_CrossingBothDirections(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := newTestGauge(clock, 0)
	up, _ := NewMomentum(1, 0, 2)
	down, _ := NewMomentum(-1, 2, 4)
	if err := g.AddMomentum(up); err != nil {
		t.Fatalf("AddMomentum(up): %v", err)
	}
	if err := g.AddMomentum(down); err != nil {
		t.Fatalf("AddMomentum(down): %v", err)
	}

	var crossings []float64
	for tm := range g.Whenever(0.5) {
		crossings = append(crossings, tm)
	}
	if len(crossings) != 2 {
		t.Fatalf("expected 2 crossings, got %v", crossings)
	}
	if math.Abs(crossings[0]-0.5) > 1e-9 || math.Abs(crossings[1]-3.5) > 1e-9 {
		t.Errorf("crossings = %v, want [0.5, 3.5]", crossings)
	}
}

func TestGauge_When_Unreachable(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := newTestGauge(clock, 0)
	_, err := g.When(100, 0)
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Kind != Unreachable {
		t.Fatalf("expected Unreachable, got %v", err)
	}
}

func TestGauge_When_NthCrossing(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := newTestGauge(clock, 0)
	up, _ := NewMomentum(1, 0, 2)
	down, _ := NewMomentum(-1, 2, 4)
	_ = g.AddMomentum(up)
	_ = g.AddMomentum(down)

	tm, err := g.When(0.5, 1)
	if err != nil {
		t.Fatalf("When: %v", err)
	}
	if math.Abs(tm-3.5) > 1e-9 {
		t.Errorf("When(0.5, 1) = %v, want 3.5", tm)
	}
}

func TestGauge_Goal_SettlesWhenFlat(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := newTestGauge(clock, 1)
	m, _ := NewMomentum(1, 0, 2)
	_ = g.AddMomentum(m)
	v, ok := g.Goal()
	if !ok {
		t.Fatal("expected the gauge to settle after the momentum ends")
	}
	if v != 3 {
		t.Errorf("Goal() = %v, want 3", v)
	}
}

func TestGauge_Goal_NeverSettlesUnderInfiniteMomentum(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := newTestGauge(clock, 0)
	m, _ := NewMomentum(1, 0, math.Inf(1))
	_ = g.AddMomentum(m)
	if _, ok := g.Goal(); ok {
		t.Error("expected Goal() to report no settled value under an unbounded ramp")
	}
}

func TestGauge_InRange(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	g := newTestGauge(clock, 5)
	require.NoError(t, g.SetRange(Constant(10), Constant(0)))
	assert.True(t, g.InRange(0), "expected 5 to be in range (0, 10)")

	require.NoError(t, g.Set(10, PolicyOnce))
	assert.False(t, g.InRange(0), "expected a value pinned to the ceiling to not be strictly in range")
}
