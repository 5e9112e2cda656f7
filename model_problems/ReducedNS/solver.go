package ReducedNS

import (
	"fmt"
	"math"

	"go.uber.org/atomic"

	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

type SolverSettings struct {
	Hybrid utils.HybridSettings
	// A solve is converged when the residual norm is below Tolerance
	Tolerance float64
	// Strict turns a non-converged solve into an ErrNotConverged error, otherwise it is only
	// reported to the Observer and flagged in the returned state
	Strict bool
}

func DefaultSolverSettings() SolverSettings {
	return SolverSettings{
		Hybrid:    utils.DefaultHybridSettings(),
		Tolerance: utils.ResidualTolerance,
	}
}

// OnlineParams is one online query in physical units
type OnlineParams struct {
	Velocity  []float64 // One value per parametrized inlet
	Nu        float64
	Tau       []float64 // Penalty method only
	Dt        float64   // Unsteady only
	FinalTime float64
	StartSnap int // Snapshot used as initial condition
}

type Solver struct {
	Ops      *Operators
	Settings SolverSettings
	Observer Observer
	solves   *atomic.Int64
}

func NewSolver(ops *Operators, settings SolverSettings, obs Observer) (s *Solver, err error) {
	if err = ops.Validate(); err != nil {
		return
	}
	if obs == nil {
		obs = NopObserver{}
	}
	if settings.Tolerance <= 0 {
		settings.Tolerance = utils.ResidualTolerance
	}
	s = &Solver{
		Ops:      ops,
		Settings: settings,
		Observer: obs,
		solves:   atomic.NewInt64(0),
	}
	return
}

// Solves is the number of online solves run so far, over all goroutines
func (s *Solver) Solves() int64 { return s.solves.Load() }

// Solve runs a steady or unsteady query depending on the assembled formulation
func (s *Solver) Solve(p OnlineParams) (tr types.Trajectory, err error) {
	if s.Ops.Config.Unsteady {
		return s.SolveUnsteady(p)
	}
	var (
		state types.ModalState
	)
	// A strict non converged solve still reports its best iterate
	if state, err = s.SolveSteady(p); err != nil && state.Coeffs == nil {
		return types.Trajectory{}, err
	}
	tr = types.Trajectory{Params: utils.VecCopy(p.Velocity), States: []types.ModalState{state}}
	return
}

func (s *Solver) query(p OnlineParams) (q Query, err error) {
	q = Query{Nu: p.Nu, Tau: p.Tau, Dt: p.Dt}
	switch s.Ops.Config.BCMethod {
	case types.BC_Lift:
		q.BC, err = RescaleVelocity(s.Ops, p.Velocity)
	default:
		if len(p.Velocity) != s.Ops.NInlets {
			err = types.NewDimensionMismatch("%d inlet values for %d parametrized inlets",
				len(p.Velocity), s.Ops.NInlets)
		}
		q.BC = utils.VecCopy(p.Velocity)
	}
	return
}

// SolveSteady starts from zero velocity coefficients, except for the lift coefficients which
// are set to the rescaled inlet values
func (s *Solver) SolveSteady(p OnlineParams) (state types.ModalState, err error) {
	var (
		q Query
		f *Functional
	)
	if s.Ops.Config.Unsteady {
		err = types.NewContractError("steady solve with operators assembled for an unsteady formulation")
		return
	}
	if q, err = s.query(p); err != nil {
		return
	}
	if f, err = NewFunctional(s.Ops, q); err != nil {
		return
	}
	y0 := make([]float64, s.Ops.Size())
	copy(y0, q.BC[:s.Ops.NBC])
	return s.solve(f, y0, p.Velocity, 0, 0)
}

// SolveUnsteady integrates with BDF2 from snapshot StartSnap up to FinalTime. The first state
// is the initial condition, every following one is tagged with its time.
func (s *Solver) SolveUnsteady(p OnlineParams) (tr types.Trajectory, err error) {
	var (
		q      Query
		y0     []float64
		t0     float64
		nSteps int
		state  types.ModalState
	)
	if !s.Ops.Config.Unsteady {
		err = types.NewContractError("unsteady solve with operators assembled for a steady formulation")
		return
	}
	if p.Dt <= 0 {
		err = types.NewContractError("time step must be positive, have %g", p.Dt)
		return
	}
	if q, err = s.query(p); err != nil {
		return
	}
	if y0, t0, err = s.Ops.SnapshotState(p.StartSnap); err != nil {
		return
	}
	if p.FinalTime < t0 {
		err = types.NewContractError("final time %g is before the initial condition time %g", p.FinalTime, t0)
		return
	}
	copy(y0, q.BC[:s.Ops.NBC])
	nSteps = int(math.Round((p.FinalTime - t0) / p.Dt))
	tr.Params = utils.VecCopy(p.Velocity)
	tr.States = append(tr.States, types.ModalState{Time: t0, Coeffs: y0, Converged: true})
	yOld, yOldOld := y0, y0
	for k := 1; k <= nSteps; k++ {
		t := t0 + float64(k)*p.Dt
		if state, err = s.step(q, yOld, yOldOld, p.Velocity, k, t); err != nil {
			if state.Coeffs != nil {
				tr.States = append(tr.States, state)
			}
			return
		}
		tr.States = append(tr.States, state)
		yOldOld, yOld = yOld, state.Coeffs
	}
	return
}

// Step advances one BDF2 step from the full states yOld (previous) and yOldOld (the one
// before), starting the nonlinear solve from yOld. AOld and AOldOld of q are replaced.
func (s *Solver) Step(q Query, yOld, yOldOld []float64) (state types.ModalState, err error) {
	return s.step(q, yOld, yOldOld, q.BC, 1, 0)
}

func (s *Solver) step(q Query, yOld, yOldOld, params []float64, step int, t float64) (state types.ModalState, err error) {
	var (
		n = s.Ops.NphiU
		f *Functional
	)
	if len(yOld) != s.Ops.Size() || len(yOldOld) != s.Ops.Size() {
		err = types.NewDimensionMismatch("previous states have %d and %d entries, want %d",
			len(yOld), len(yOldOld), s.Ops.Size())
		return
	}
	q.AOld, q.AOldOld = yOld[:n], yOldOld[:n]
	if f, err = NewFunctional(s.Ops, q); err != nil {
		return
	}
	y0 := utils.VecCopy(yOld)
	copy(y0, q.BC[:s.Ops.NBC])
	return s.solve(f, y0, params, step, t)
}

func (s *Solver) solve(f *Functional, y0, params []float64, step int, t float64) (state types.ModalState, err error) {
	var (
		res = utils.HybridSolve(f.Residual, y0, s.Settings.Hybrid)
		q   = f.Query()
	)
	state = types.ModalState{
		Time:       t,
		Coeffs:     res.X,
		Residual:   res.FNorm,
		Iterations: res.Iterations,
		Converged:  res.FNorm < s.Settings.Tolerance,
	}
	s.Observer.OnSolve(SolveEvent{
		Solve:       s.solves.Inc(),
		Params:      params,
		Nu:          q.Nu,
		Step:        step,
		Time:        t,
		Residual:    res.FNorm,
		Iterations:  res.Iterations,
		Evaluations: res.Evaluations,
		Converged:   state.Converged,
		Status:      res.Status.String(),
	})
	if !state.Converged && s.Settings.Strict {
		err = fmt.Errorf("%w: |F(x)| = %g after %d iterations at t = %g, %s",
			types.ErrNotConverged, res.FNorm, res.Iterations, t, res.Status)
	}
	return
}
