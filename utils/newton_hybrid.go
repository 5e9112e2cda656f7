package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

/*
	Powell's hybrid method for square nonlinear systems F(x) = 0:
		- Jacobian from finite differences of F
		- Newton step from an LU solve of J p = -F
		- Dogleg between the Cauchy (steepest descent) point and the Newton step,
		  restricted to a trust region that grows / shrinks with the ratio of actual to
		  predicted reduction of |F|^2
*/

type HybridStatus uint8

const (
	HybridRunning HybridStatus = iota
	HybridResidualTolerance
	HybridStepTolerance
	HybridMaxIterations
	HybridNoProgress
)

func (s HybridStatus) String() string {
	switch s {
	case HybridRunning:
		return "running"
	case HybridResidualTolerance:
		return "residual tolerance reached"
	case HybridStepTolerance:
		return "trust region below step tolerance"
	case HybridMaxIterations:
		return "iteration limit reached"
	case HybridNoProgress:
		return "no further progress possible"
	}
	return fmt.Sprintf("HybridStatus(%d)", uint8(s))
}

type JacobianFormula uint8

const (
	ForwardDifference JacobianFormula = iota
	CentralDifference
)

func NewJacobianFormula(label string) (jf JacobianFormula, err error) {
	switch label {
	case "", "forward", "Forward":
		jf = ForwardDifference
	case "central", "Central":
		jf = CentralDifference
	default:
		err = fmt.Errorf("unknown jacobian formula %q, must be one of forward, central", label)
	}
	return
}

func (jf JacobianFormula) String() string {
	if jf == CentralDifference {
		return "central"
	}
	return "forward"
}

func (jf JacobianFormula) formula() fd.Formula {
	if jf == CentralDifference {
		return fd.Central
	}
	return fd.Forward
}

// FDJacobian overwrites J with the finite difference Jacobian of f at x. fx is F(x) and may be
// nil, it saves one evaluation for the forward formula. Returns the number of evaluations of f.
func FDJacobian(J *mat.Dense, f func(fvec, x []float64), x, fx []float64, jf JacobianFormula, step float64) (evals int) {
	var (
		n      = len(x)
		jacSet = &fd.JacobianSettings{Formula: jf.formula(), Step: step}
	)
	switch jf {
	case CentralDifference:
		evals = 2 * n
	default:
		evals = n
		if fx != nil {
			jacSet.OriginValue = fx
		} else {
			evals++
		}
	}
	fd.Jacobian(J, f, x, jacSet)
	return
}

type HybridSettings struct {
	MaxIterations   int     // Cap on outer iterations, each one may reject its step
	XTol            float64 // Stop when the trust radius is below XTol*|x|
	FTol            float64 // Stop when |F| <= FTol
	Factor          float64 // Initial trust radius is Factor*|x0|, or Factor when x0 = 0
	JacobianStep    float64 // Finite difference step, 0 selects the formula default
	JacobianFormula JacobianFormula
}

func DefaultHybridSettings() HybridSettings {
	return HybridSettings{
		MaxIterations: 200,
		XTol:          StepTolerance,
		FTol:          1.e-12,
		Factor:        100,
	}
}

type HybridResult struct {
	X           []float64
	FNorm       float64
	Iterations  int
	Evaluations int
	History     []float64 // |F| after every iteration, History[0] is the initial guess
	Status      HybridStatus
}

// HybridSolve finds a root of f starting from x0; f overwrites fvec with F(x) and must not
// modify x. The best iterate found is always returned, convergence is reported via Status.
func HybridSolve(f func(fvec, x []float64), x0 []float64, settings HybridSettings) (r HybridResult) {
	var (
		n       = len(x0)
		x       = VecCopy(x0)
		fvec    = make([]float64, n)
		fNew    = make([]float64, n)
		xNew    = make([]float64, n)
		J       = mat.NewDense(n, n, nil)
		needJac = true
		delta   float64
	)
	if n == 0 {
		panic("HybridSolve: empty state vector")
	}
	if settings.MaxIterations <= 0 {
		settings.MaxIterations = DefaultHybridSettings().MaxIterations
	}
	if settings.Factor <= 0 {
		settings.Factor = DefaultHybridSettings().Factor
	}
	f(fvec, x)
	r.Evaluations = 1
	r.FNorm = VecNorm2(fvec)
	r.History = append(r.History, r.FNorm)
	if delta = settings.Factor * VecNorm2(x); delta == 0 {
		delta = settings.Factor
	}

	for r.Status == HybridRunning {
		if r.FNorm <= settings.FTol {
			r.Status = HybridResidualTolerance
			break
		}
		if r.Iterations >= settings.MaxIterations {
			r.Status = HybridMaxIterations
			break
		}
		if needJac {
			r.Evaluations += FDJacobian(J, f, x, fvec, settings.JacobianFormula, settings.JacobianStep)
			needJac = false
		}
		r.Iterations++

		p, ok := doglegStep(J, fvec, delta)
		if !ok {
			r.Status = HybridNoProgress
			break
		}
		floats.AddTo(xNew, x, p)
		f(fNew, xNew)
		r.Evaluations++
		var (
			fNormNew = VecNorm2(fNew)
			pNorm    = VecNorm2(p)
			jp       = make([]float64, n)
			actRed   = -1.
			preRed   float64
			ratio    float64
		)
		if fNormNew < r.FNorm {
			actRed = 1 - (fNormNew/r.FNorm)*(fNormNew/r.FNorm)
		}
		mat.NewVecDense(n, jp).MulVec(J, mat.NewVecDense(n, p))
		floats.Add(jp, fvec)
		if lin := VecNorm2(jp); lin < r.FNorm {
			preRed = 1 - (lin/r.FNorm)*(lin/r.FNorm)
		}
		if preRed > 0 {
			ratio = actRed / preRed
		}
		switch {
		case ratio < 0.1:
			delta = 0.5 * math.Min(delta, pNorm)
		case ratio >= 0.5:
			delta = math.Max(delta, 2*pNorm)
		}
		if ratio >= 1.e-4 {
			copy(x, xNew)
			copy(fvec, fNew)
			r.FNorm = fNormNew
			needJac = true
		}
		r.History = append(r.History, r.FNorm)
		if delta <= settings.XTol*VecNorm2(x) {
			r.Status = HybridStepTolerance
		}
	}
	r.X = x
	return
}

func doglegStep(J *mat.Dense, fvec []float64, delta float64) (p []float64, ok bool) {
	var (
		n      = len(fvec)
		g      = make([]float64, n)
		jg     = make([]float64, n)
		pN     []float64
		pC     = make([]float64, n)
		gNorm  float64
		jgNorm float64
	)
	// Gradient of 0.5*|F|^2 is J^T F
	mat.NewVecDense(n, g).MulVec(J.T(), mat.NewVecDense(n, fvec))
	if gNorm = VecNorm2(g); gNorm == 0 {
		return nil, false
	}
	mat.NewVecDense(n, jg).MulVec(J, mat.NewVecDense(n, g))
	jgNorm = VecNorm2(jg)

	var lu mat.LU
	lu.Factorize(J)
	if lu.Det() != 0 {
		pNv := mat.NewVecDense(n, nil)
		if err := lu.SolveVecTo(pNv, false, mat.NewVecDense(n, fvec)); err == nil {
			pN = pNv.RawVector().Data
			floats.Scale(-1, pN)
			if IsNan(pN) {
				pN = nil
			}
		}
	}
	if pN != nil && VecNorm2(pN) <= delta {
		return pN, true
	}
	if jgNorm > 0 {
		floats.ScaleTo(pC, -(gNorm*gNorm)/(jgNorm*jgNorm), g)
	}
	pCNorm := VecNorm2(pC)
	if pN == nil || jgNorm == 0 || pCNorm >= delta {
		if pN == nil && jgNorm > 0 && pCNorm < delta {
			return pC, true
		}
		p = make([]float64, n)
		floats.ScaleTo(p, -delta/gNorm, g)
		return p, true
	}
	// Walk from the Cauchy point toward the Newton point until the trust region boundary
	var (
		d    = make([]float64, n)
		a, b float64
		c    = pCNorm*pCNorm - delta*delta
	)
	floats.SubTo(d, pN, pC)
	a = floats.Dot(d, d)
	b = 2 * floats.Dot(pC, d)
	tau := (-b + math.Sqrt(b*b-4*a*c)) / (2 * a)
	p = make([]float64, n)
	floats.AddScaledTo(p, pC, tau, d)
	return p, true
}
