package utils

import (
	"gonum.org/v1/gonum/floats"
)

func VecCopy(v []float64) (r []float64) {
	if v == nil {
		return nil
	}
	r = make([]float64, len(v))
	copy(r, v)
	return
}

// VecNorm2 is the Euclidean norm
func VecNorm2(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Norm(v, 2)
}
