package ReducedNS

import (
	"math"

	"github.com/notargets/gorom/types"
)

// RescaleVelocity converts physical inlet values into lift coefficients, dividing each value
// by the mean value of its lift field on the inlet, so a coefficient of one reproduces the
// lift field itself.
func RescaleVelocity(ops *Operators, vel []float64) (bc []float64, err error) {
	if len(vel) != ops.NInlets {
		err = types.NewDimensionMismatch("%d inlet values for %d parametrized inlets", len(vel), ops.NInlets)
		return
	}
	if len(ops.LiftScale) != len(vel) {
		err = types.NewContractError("operators carry %d lift scales, assemble with the lift method to rescale %d values",
			len(ops.LiftScale), len(vel))
		return
	}
	bc = make([]float64, len(vel))
	for l, v := range vel {
		if math.Abs(ops.LiftScale[l]) < 1.e-14 {
			err = types.NewDegeneracy("lift field %d has a zero mean value on its inlet", l)
			return nil, err
		}
		bc[l] = v / ops.LiftScale[l]
	}
	return
}
