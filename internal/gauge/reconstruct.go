package gauge

import "github.com/google/uuid"

// Reconstruct rebuilds a Gauge from its persisted fields without
// replaying the mutation history that produced them: a base vertex, the
// momenta currently installed, and the two limits. It is the seam a
// storage layer calls after loading a gauge back from disk.
//
// Reconstruct does not run SetMax/SetMin's cycle check: a cycle can only
// be introduced by installing an already-existing gauge as a limit, and
// a freshly reconstructed gauge cannot yet be reachable from anywhere.
func Reconstruct(cfg Config, base Vertex, momenta []Momentum, maxLimit, minLimit Limit) (*Gauge, error) {
	for _, m := range momenta {
		if err := m.validate(); err != nil {
			return nil, err
		}
	}

	g := &Gauge{
		id:         uuid.NewString(),
		cfg:        cfg,
		base:       base,
		momenta:    append([]Momentum(nil), momenta...),
		maxLimit:   maxLimit,
		minLimit:   minLimit,
		dependents: make(map[*Gauge]struct{}),
	}
	g.attach(maxLimit)
	g.attach(minLimit)
	return g, nil
}
