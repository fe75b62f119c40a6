package gauge

import (
	"math"
	"testing"
	"time"

	"github.com/banshee-data/gauge/internal/timeutil"
)

func testConfig(clock timeutil.Clock) Config {
	return Config{Clock: clock, Tolerances: Tolerances{}}
}

func TestReconstruct_RebuildsQueryableGauge(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	m, _ := NewMomentum(1, 0, math.Inf(1))
	g, err := Reconstruct(testConfig(clock), Vertex{Time: 0, Value: 2}, []Momentum{m}, Constant(math.Inf(1)), Constant(math.Inf(-1)))
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if got := g.ValueAt(5); got != 7 {
		t.Errorf("ValueAt(5) = %v, want 7", got)
	}
}

func TestReconstruct_RejectsInvalidMomentum(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	bad := Momentum{Velocity: 1, Since: 5, Until: 5}
	_, err := Reconstruct(testConfig(clock), Vertex{Time: 0, Value: 0}, []Momentum{bad}, Constant(math.Inf(1)), Constant(math.Inf(-1)))
	if err == nil {
		t.Fatal("expected error for invalid momentum")
	}
}

func TestReconstruct_GaugeLimitAttachesDependent(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	ceiling, err := Reconstruct(testConfig(clock), Vertex{Time: 0, Value: 10}, nil, Constant(math.Inf(1)), Constant(math.Inf(-1)))
	if err != nil {
		t.Fatalf("Reconstruct ceiling: %v", err)
	}
	g, err := Reconstruct(testConfig(clock), Vertex{Time: 0, Value: 0}, nil, FromGauge(ceiling), Constant(math.Inf(-1)))
	if err != nil {
		t.Fatalf("Reconstruct g: %v", err)
	}
	if _, ok := ceiling.dependents[g]; !ok {
		t.Error("expected g to be registered as a dependent of ceiling")
	}
}
