package fom

import (
	"github.com/notargets/gorom/types"
)

// Face is one boundary face, its value is interpolated from nearby cells with Coeffs
type Face struct {
	Area   float64   `json:"Area"`
	Cells  []int     `json:"Cells"`
	Coeffs []float64 `json:"Coeffs"`
}

type Patch struct {
	Name  string `json:"Name"`
	Faces []Face `json:"Faces"`
}

func (p Patch) Area() (area float64) {
	for _, f := range p.Faces {
		area += f.Area
	}
	return
}

// FaceValues returns the trace of component comp of a field on every face of the patch
func (p Patch) FaceValues(field []float64, nComp, comp int) (vals []float64) {
	vals = make([]float64, len(p.Faces))
	for i, f := range p.Faces {
		for n, c := range f.Cells {
			vals[i] += f.Coeffs[n] * field[c*nComp+comp]
		}
	}
	return
}

// Integral is sum_f A_f tr_f(field)
func (p Patch) Integral(field []float64, nComp, comp int) (sum float64) {
	for i, val := range p.FaceValues(field, nComp, comp) {
		sum += p.Faces[i].Area * val
	}
	return
}

// Average is the area weighted mean of the trace
func (p Patch) Average(field []float64, nComp, comp int) float64 {
	area := p.Area()
	if area == 0 {
		return 0
	}
	return p.Integral(field, nComp, comp) / area
}

func (p Patch) check(nCells int) error {
	if len(p.Faces) == 0 {
		return types.NewContractError("patch %q has no faces", p.Name)
	}
	for i, f := range p.Faces {
		if f.Area <= 0 {
			return types.NewContractError("face %d of patch %q has non-positive area %g", i, p.Name, f.Area)
		}
		if len(f.Cells) == 0 || len(f.Cells) != len(f.Coeffs) {
			return types.NewContractError("face %d of patch %q has %d cells and %d coefficients",
				i, p.Name, len(f.Cells), len(f.Coeffs))
		}
		for _, c := range f.Cells {
			if c < 0 || c >= nCells {
				return types.NewContractError("face %d of patch %q refers to cell %d, have %d cells",
					i, p.Name, c, nCells)
			}
		}
	}
	return nil
}
