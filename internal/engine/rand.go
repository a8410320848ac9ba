package engine

import "math/rand/v2"

// Roller supplies uniform draws in [0,1). A roll succeeds when the draw is
// below the probability being tested.
type Roller interface {
	Float64() float64
}

type defaultRoller struct{}

func (defaultRoller) Float64() float64 {
	return rand.Float64()
}

func succeeds(r Roller, p float64) bool {
	return r.Float64() < p
}
