package fom

import (
	"math"

	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

// Homogenize removes the inlet values from fields: for every inlet l the field is reduced by
// (avg_l(field) / avg_l(lift_l)) lift_l, so the result has a zero mean trace on every inlet
// provided each lift vanishes on the other inlets. The inputs are not modified.
func Homogenize(fields, lifts [][]float64, inlets []Inlet, patches []Patch, nComp int) (out [][]float64, err error) {
	if len(lifts) != len(inlets) {
		err = types.NewContractError("%d lift fields for %d inlets", len(lifts), len(inlets))
		return
	}
	scales := make([]float64, len(inlets))
	for l, in := range inlets {
		scales[l] = patches[in.Patch].Average(lifts[l], nComp, in.Component)
		if math.Abs(scales[l]) < 1.e-14 {
			err = types.NewDegeneracy("lift field %d has a zero mean value on inlet patch %q",
				l, patches[in.Patch].Name)
			return
		}
	}
	out = make([][]float64, len(fields))
	for i, f := range fields {
		g := utils.VecCopy(f)
		for l, in := range inlets {
			if len(lifts[l]) != len(g) {
				err = types.NewDimensionMismatch("field %d has %d entries, lift %d has %d", i, len(g), l, len(lifts[l]))
				return nil, err
			}
			s := patches[in.Patch].Average(g, nComp, in.Component) / scales[l]
			for n, val := range lifts[l] {
				g[n] -= s * val
			}
		}
		out[i] = g
	}
	return
}
