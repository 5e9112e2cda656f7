package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHybridSolve(t *testing.T) {
	{ // Linear system converges in a couple of steps
		f := func(fvec, x []float64) {
			fvec[0] = 3*x[0] + x[1] - 5
			fvec[1] = x[0] - 2*x[1] + 3
		}
		r := HybridSolve(f, []float64{0, 0}, DefaultHybridSettings())
		assert.Equal(t, HybridResidualTolerance, r.Status)
		assert.InDelta(t, 1., r.X[0], 1.e-9)
		assert.InDelta(t, 2., r.X[1], 1.e-9)
		assert.True(t, r.Iterations <= 4)
		assert.Equal(t, r.Iterations+1, len(r.History))
	}
	{ // Rosenbrock style system, needs the trust region from a poor guess
		f := func(fvec, x []float64) {
			fvec[0] = 10 * (x[1] - x[0]*x[0])
			fvec[1] = 1 - x[0]
		}
		for _, formula := range []JacobianFormula{ForwardDifference, CentralDifference} {
			settings := DefaultHybridSettings()
			settings.JacobianFormula = formula
			r := HybridSolve(f, []float64{-1.2, 1}, settings)
			assert.True(t, r.FNorm < 1.e-8)
			assert.InDelta(t, 1., r.X[0], 1.e-7)
			assert.InDelta(t, 1., r.X[1], 1.e-7)
		}
	}
	{ // Quadratic nonlinearity typical of the convection term
		f := func(fvec, x []float64) {
			fvec[0] = x[0] - 0.1*x[0]*x[1] - 1
			fvec[1] = 2*x[1] + 0.2*x[0]*x[0] - 1
		}
		settings := DefaultHybridSettings()
		settings.JacobianStep = 1.e-7
		r := HybridSolve(f, []float64{0, 0}, settings)
		assert.True(t, r.FNorm < 1.e-10)
		res := make([]float64, 2)
		f(res, r.X)
		assert.True(t, math.Abs(res[0])+math.Abs(res[1]) < 1.e-10)
	}
	{ // No root: iteration cap reached and the best iterate is still returned
		f := func(fvec, x []float64) {
			fvec[0] = x[0]*x[0] + 1
		}
		settings := DefaultHybridSettings()
		settings.MaxIterations = 15
		r := HybridSolve(f, []float64{3}, settings)
		assert.NotEqual(t, HybridResidualTolerance, r.Status)
		assert.NotNil(t, r.X)
		assert.True(t, r.FNorm <= 10)
		assert.True(t, r.Iterations <= 15)
	}
	{
		jf, err := NewJacobianFormula("central")
		assert.NoError(t, err)
		assert.Equal(t, CentralDifference, jf)
		_, err = NewJacobianFormula("backward")
		assert.Error(t, err)
	}
}
