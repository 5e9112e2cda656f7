package ReducedNS

import (
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

// Query holds everything that varies between online solves. BC is in coefficient space:
// rescaled inlet values for the lift method, physical inlet values for the penalty method.
type Query struct {
	BC  []float64
	Nu  float64
	Tau []float64 // Penalty factor per inlet
	// Unsteady only, velocity coefficients of the two previous time steps
	Dt            float64
	AOld, AOldOld []float64
}

// Functional evaluates the reduced residual for one query. It owns scratch space, so each
// concurrent solve needs its own Functional, while the Operators are shared.
type Functional struct {
	ops    *Operators
	q      Query
	adot   []float64
	ma     []float64
	unstdy bool
}

func NewFunctional(ops *Operators, q Query) (f *Functional, err error) {
	var (
		n   = ops.NphiU
		cfg = ops.Config
	)
	switch cfg.BCMethod {
	case types.BC_Lift:
		if len(q.BC) != ops.NBC {
			return nil, types.NewDimensionMismatch("%d boundary values for %d lift coefficients", len(q.BC), ops.NBC)
		}
	case types.BC_Penalty:
		if len(q.BC) != ops.NInlets {
			return nil, types.NewDimensionMismatch("%d boundary values for %d inlets", len(q.BC), ops.NInlets)
		}
		if len(q.Tau) != ops.NInlets {
			return nil, types.NewDimensionMismatch("%d penalty factors for %d inlets", len(q.Tau), ops.NInlets)
		}
	}
	if q.Nu < 0 {
		return nil, types.NewContractError("negative viscosity %g", q.Nu)
	}
	f = &Functional{
		ops: ops,
		q: Query{
			BC:  utils.VecCopy(q.BC),
			Nu:  q.Nu,
			Tau: utils.VecCopy(q.Tau),
			Dt:  q.Dt,
		},
		ma:     make([]float64, n),
		unstdy: cfg.Unsteady,
	}
	if cfg.Unsteady {
		if q.Dt <= 0 {
			return nil, types.NewContractError("unsteady residual needs a positive time step, have %g", q.Dt)
		}
		if len(q.AOld) != n || len(q.AOldOld) != n {
			return nil, types.NewDimensionMismatch("previous states have %d and %d coefficients, want %d",
				len(q.AOld), len(q.AOldOld), n)
		}
		f.q.AOld, f.q.AOldOld = utils.VecCopy(q.AOld), utils.VecCopy(q.AOldOld)
		f.adot = make([]float64, n)
	}
	return
}

// Dim is the length of the state [a; b]
func (f *Functional) Dim() int { return f.ops.Size() }

func (f *Functional) Query() Query { return f.q }

/*
Residual overwrites fvec with the reduced momentum and continuity residuals at x = [a; b]:

	momentum_i   = nu (BTotal a)_i - a^T CTotal_i a - (K b)_i
	               - (M adot)_i, adot = (3a - 4aOld + aOldOld) / (2 dt)		unsteady
	               + sum_l tau_l (bc_l v_l - M_l a)_i						penalty
	continuity_j = (P a)_j											SUP
	             = (D b)_j + a^T G_j a									PPE

With the lift method the first NBC rows are replaced by x_l - bc_l.
*/
func (f *Functional) Residual(fvec, x []float64) {
	var (
		ops   = f.ops
		n, np = ops.NphiU, ops.NphiP
	)
	if len(x) != n+np || len(fvec) != n+np {
		panic(types.NewDimensionMismatch("residual state has %d entries and output %d, want %d",
			len(x), len(fvec), n+np))
	}
	var (
		a, b     = x[:n], x[n:]
		mom, con = fvec[:n], fvec[n:]
	)
	ops.BTotal.MulVecTo(mom, a)
	for i := 0; i < n; i++ {
		var kb float64
		for j := 0; j < np; j++ {
			kb += ops.K.At(i, j) * b[j]
		}
		mom[i] = f.q.Nu*mom[i] - ops.CTotal.Quadratic(i, a, a) - kb
	}
	if f.unstdy {
		for i := range f.adot {
			f.adot[i] = (3*a[i] - 4*f.q.AOld[i] + f.q.AOldOld[i]) / (2 * f.q.Dt)
		}
		ops.M.MulVecTo(f.ma, f.adot)
		for i := range mom {
			mom[i] -= f.ma[i]
		}
	}
	if ops.Config.BCMethod == types.BC_Penalty {
		for l, tau := range f.q.Tau {
			ops.BCVelMat[l].MulVecTo(f.ma, a)
			for i := range mom {
				mom[i] += tau * (f.q.BC[l]*ops.BCVelVec[l][i] - f.ma[i])
			}
		}
	}
	switch ops.Config.Stabilization {
	case types.SUP:
		ops.P.MulVecTo(con, a)
	case types.PPE:
		ops.D.MulVecTo(con, b)
		for j := range con {
			con[j] += ops.G.Quadratic(j, a, a)
		}
	}
	for l := 0; l < ops.NBC; l++ {
		fvec[l] = x[l] - f.q.BC[l]
	}
}

// Jacobian overwrites J with the finite difference Jacobian of the residual at x
func (f *Functional) Jacobian(J *mat.Dense, x []float64, formula utils.JacobianFormula, step float64) {
	utils.FDJacobian(J, f.Residual, x, nil, formula, step)
}
