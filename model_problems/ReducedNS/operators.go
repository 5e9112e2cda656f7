package ReducedNS

import (
	"fmt"
	"sync"

	"github.com/notargets/gorom/fom"
	"github.com/notargets/gorom/pod"
	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

/*
Reduced operators, phi are the velocity basis fields, chi the pressure modes, nut the eddy
viscosity modes and <,> the cell volume weighted inner product:

	M[i,j]       = <phi_i, phi_j>
	B[i,j]       = <phi_i, L phi_j>
	BT[i,j]      = <phi_i, LT phi_j>
	K[i,j]       = <phi_i, G chi_j>
	P[i,j]       = <chi_i, Div phi_j>								SUP
	D[i,j]       = <G chi_i, G chi_j>								PPE
	C[k][i][j]   = <phi_k, Conv(phi_i, phi_j)>
	G[j][i][k]   = <G chi_j, Conv(phi_i, phi_k)>					PPE
	CT1[k][i][j] = <phi_k, E1(nut_i, phi_j)>						turbulent
	CT2[k][i][j] = <phi_k, E2(nut_i, phi_j)>						turbulent
	BTotal       = B + BT, CTotal = C - CT1 - CT2						(B, C when laminar)

Penalty data for inlet l, with tr_f the trace on face f of the inlet patch:

	BCVelVec[l][i]   = sum_f A_f tr_f(phi_i)
	BCVelMat[l][i,j] = sum_f A_f tr_f(phi_i) tr_f(phi_j)
*/
type Operators struct {
	Config      ModeConfig
	NBC         int // Lift coefficients at the front of the velocity coefficients
	NInlets     int
	NphiU       int
	NphiP       int
	M, B, BT, K utils.Matrix
	P, D        utils.Matrix
	BTotal      utils.Matrix
	C, CT1, CT2 utils.Tensor3
	CTotal      utils.Tensor3
	G           utils.Tensor3
	BCVelVec    [][]float64
	BCVelMat    []utils.Matrix
	LiftScale   []float64
	// Column n holds [a; b] of snapshot n, used for unsteady initial conditions
	SnapshotCoeffs utils.Matrix
	SnapshotTimes  []float64
}

// Assemble projects the full order operators onto the reduced bases selected by cfg. The
// result is read-only and may back any number of concurrent online solves. ParallelDegree
// goroutines share the work of the 3rd order tensors, the result does not depend on it.
func Assemble(full FullOrder, cfg ModeConfig, ParallelDegree int) (ops *Operators, err error) {
	var (
		fops   = full.FullOperators()
		inlets = full.InletConditions()
		ip     *pod.InnerProduct
		ipP    *pod.InnerProduct
		phi    [][]float64
		chi    [][]float64
	)
	if err = cfg.check(full); err != nil {
		return
	}
	if ip, err = pod.NewInnerProduct(full.CellVolumes(), full.Components(), true); err != nil {
		return
	}
	if ipP, err = pod.NewInnerProduct(full.CellVolumes(), 1, true); err != nil {
		return
	}
	phi, chi = VelocityBasis(full, cfg), PressureBasis(full, cfg)
	ops = &Operators{
		Config:  cfg,
		NInlets: len(inlets),
		NphiU:   len(phi),
		NphiP:   len(chi),
	}
	if cfg.BCMethod == types.BC_Lift {
		ops.NBC = len(inlets)
	}
	a := &assembler{
		ip: ip, ipP: ipP, fops: fops, phi: phi, chi: chi,
		pm: utils.NewPartitionMap(utils.DefaultParallelDegree(ParallelDegree), len(phi)),
	}
	if err = a.checkFields(); err != nil {
		return nil, err
	}
	a.applyLinear(cfg)

	if ops.M, err = pod.MassMatrix(ip, phi, 0); err != nil {
		return nil, err
	}
	ops.B = a.bilinear(phi, a.Lphi)
	ops.K = a.bilinear(phi, a.Gchi)
	ops.C = a.convective()
	ops.BTotal = ops.B.Copy()
	ops.CTotal = ops.C.Copy()
	switch cfg.Stabilization {
	case types.SUP:
		ops.P = a.bilinearP()
	case types.PPE:
		ops.D = a.bilinear(a.Gchi, a.Gchi)
		ops.G = a.poissonConvective()
	}
	if cfg.Turbulent {
		ops.BT = a.bilinear(phi, a.LTphi)
		nut := full.EddyViscosityModes()[:cfg.NNutModes]
		ops.CT1 = a.eddy(fops.EddyDiffusion, nut)
		ops.CT2 = a.eddy(fops.EddyDiffusionT, nut)
		ops.BTotal.Add(ops.BT)
		ops.CTotal.Subtract(ops.CT1).Subtract(ops.CT2)
	}
	if cfg.BCMethod == types.BC_Penalty {
		ops.BCVelVec, ops.BCVelMat = penaltyData(full, phi)
	}
	if ops.NBC > 0 {
		ops.LiftScale = liftScale(full)
	}
	if cfg.Unsteady && len(full.VelocitySnapshots()) != 0 {
		if err = ops.snapshotCoefficients(full, ip, ipP, phi, chi); err != nil {
			return nil, fmt.Errorf("projecting snapshots for initial conditions: %w", err)
		}
	}
	ops.SetReadOnly()
	return
}

// SetReadOnly freezes every matrix and tensor, writes afterwards panic
func (ops *Operators) SetReadOnly() {
	for _, m := range []struct {
		name string
		M    *utils.Matrix
	}{
		{"M", &ops.M}, {"B", &ops.B}, {"BT", &ops.BT}, {"K", &ops.K}, {"P", &ops.P}, {"D", &ops.D},
		{"BTotal", &ops.BTotal}, {"SnapshotCoeffs", &ops.SnapshotCoeffs},
	} {
		if !m.M.IsEmpty() {
			m.M.SetReadOnly(m.name)
		}
	}
	for _, t := range []struct {
		name string
		T    *utils.Tensor3
	}{
		{"C", &ops.C}, {"CT1", &ops.CT1}, {"CT2", &ops.CT2}, {"CTotal", &ops.CTotal}, {"G", &ops.G},
	} {
		if !t.T.IsEmpty() {
			t.T.SetReadOnly(t.name)
		}
	}
	for l := range ops.BCVelMat {
		ops.BCVelMat[l].SetReadOnly(fmt.Sprintf("BCVelMat[%d]", l))
	}
}

// Validate checks the shapes of a set of operators, e.g. one read back from a cache
func (ops *Operators) Validate() (err error) {
	var (
		n, np = ops.NphiU, ops.NphiP
	)
	if n < 1 || np < 1 {
		return types.NewContractError("reduced operators have %d velocity and %d pressure modes", n, np)
	}
	if ops.NBC != 0 && ops.NBC != ops.NInlets {
		return types.NewContractError("%d lift coefficients for %d inlets", ops.NBC, ops.NInlets)
	}
	if n != ops.Config.NVelocity(ops.NInlets) || np != ops.Config.NPModes {
		return types.NewInvalidModeCount("operators for %d + %d modes do not match mode configuration %+v",
			n, np, ops.Config)
	}
	check := func(name string, m utils.Matrix, nr, nc int, required bool) error {
		if m.IsEmpty() {
			if required {
				return types.NewContractError("reduced operator %s is missing", name)
			}
			return nil
		}
		if r, c := m.Dims(); r != nr || c != nc {
			return types.NewDimensionMismatch("reduced operator %s is %d x %d, want %d x %d", name, r, c, nr, nc)
		}
		return nil
	}
	checkT := func(name string, t utils.Tensor3, d1, d2, d3 int, required bool) error {
		if t.IsEmpty() {
			if required {
				return types.NewContractError("reduced operator %s is missing", name)
			}
			return nil
		}
		if a, b, c := t.Dims(); a != d1 || b != d2 || c != d3 {
			return types.NewDimensionMismatch("reduced operator %s is %d x %d x %d, want %d x %d x %d",
				name, a, b, c, d1, d2, d3)
		}
		return nil
	}
	var (
		sup = ops.Config.Stabilization == types.SUP
		ppe = ops.Config.Stabilization == types.PPE
	)
	for _, e := range []error{
		check("M", ops.M, n, n, true),
		check("BTotal", ops.BTotal, n, n, true),
		check("K", ops.K, n, np, true),
		check("P", ops.P, np, n, sup),
		check("D", ops.D, np, np, ppe),
		checkT("CTotal", ops.CTotal, n, n, n, true),
		checkT("G", ops.G, np, n, n, ppe),
	} {
		if e != nil {
			return e
		}
	}
	if !ops.M.IsSymmetric(1.e-10) {
		return types.NewContractError("reduced mass matrix M is not symmetric")
	}
	if ops.Config.BCMethod == types.BC_Penalty {
		if len(ops.BCVelVec) != ops.NInlets || len(ops.BCVelMat) != ops.NInlets {
			return types.NewContractError("penalty data for %d and %d inlets, have %d inlets",
				len(ops.BCVelVec), len(ops.BCVelMat), ops.NInlets)
		}
		for l := range ops.BCVelVec {
			if len(ops.BCVelVec[l]) != n {
				return types.NewDimensionMismatch("BCVelVec[%d] has %d entries, want %d", l, len(ops.BCVelVec[l]), n)
			}
			if err = check(fmt.Sprintf("BCVelMat[%d]", l), ops.BCVelMat[l], n, n, true); err != nil {
				return
			}
		}
	}
	if len(ops.LiftScale) != ops.NBC {
		return types.NewDimensionMismatch("%d lift scales for %d lift coefficients", len(ops.LiftScale), ops.NBC)
	}
	if !ops.SnapshotCoeffs.IsEmpty() {
		if r, c := ops.SnapshotCoeffs.Dims(); r != n+np || c != len(ops.SnapshotTimes) {
			return types.NewDimensionMismatch("snapshot coefficients are %d x %d, want %d x %d",
				r, c, n+np, len(ops.SnapshotTimes))
		}
	}
	return
}

// Size is the length of the reduced state [a; b]
func (ops *Operators) Size() int { return ops.NphiU + ops.NphiP }

// SnapshotState returns the reduced state of snapshot n
func (ops *Operators) SnapshotState(n int) (y []float64, t float64, err error) {
	if ops.SnapshotCoeffs.IsEmpty() {
		err = types.NewContractError("no snapshot coefficients, assemble an unsteady formulation with snapshots")
		return
	}
	if _, nc := ops.SnapshotCoeffs.Dims(); n < 0 || n >= nc {
		err = types.NewContractError("snapshot %d requested, have %d", n, nc)
		return
	}
	return ops.SnapshotCoeffs.Col(n), ops.SnapshotTimes[n], nil
}

type assembler struct {
	ip, ipP      *pod.InnerProduct
	fops         fom.Operators
	phi, chi     [][]float64
	pm           *utils.PartitionMap
	Lphi, LTphi  [][]float64
	Gchi, Divphi [][]float64
}

func (a *assembler) checkFields() (err error) {
	for i, f := range a.phi {
		if err = a.ip.Check(fmt.Sprintf("velocity basis %d", i), f); err != nil {
			return
		}
	}
	for i, f := range a.chi {
		if err = a.ipP.Check(fmt.Sprintf("pressure mode %d", i), f); err != nil {
			return
		}
	}
	return
}

func (a *assembler) applyLinear(cfg ModeConfig) {
	apply := func(op utils.CSR, fields [][]float64) (out [][]float64) {
		out = make([][]float64, len(fields))
		for i, f := range fields {
			out[i] = op.MulVec(f)
		}
		return
	}
	a.Lphi = apply(a.fops.Laplacian, a.phi)
	a.Gchi = apply(a.fops.Gradient, a.chi)
	if cfg.Stabilization == types.SUP {
		a.Divphi = apply(a.fops.Divergence, a.phi)
	}
	if cfg.Turbulent {
		a.LTphi = apply(a.fops.LaplacianT, a.phi)
	}
}

// bilinear returns R[i,j] = <left_i, right_j> for velocity sized fields
func (a *assembler) bilinear(left, right [][]float64) (R utils.Matrix) {
	R = utils.NewMatrix(len(left), len(right))
	for i, l := range left {
		for j, r := range right {
			d, _ := a.ip.Dot(l, r)
			R.Set(i, j, d)
		}
	}
	return
}

func (a *assembler) bilinearP() (P utils.Matrix) {
	P = utils.NewMatrix(len(a.chi), len(a.phi))
	for i, c := range a.chi {
		for j, d := range a.Divphi {
			val, _ := a.ipP.Dot(c, d)
			P.Set(i, j, val)
		}
	}
	return
}

// parallel runs f on every bucket of the partition of the velocity basis
func (a *assembler) parallel(f func(iMin, iMax int)) {
	var (
		wg = sync.WaitGroup{}
	)
	for np := 0; np < a.pm.ParallelDegree; np++ {
		wg.Add(1)
		go func(np int) {
			iMin, iMax := a.pm.GetBucketRange(np)
			f(iMin, iMax)
			wg.Done()
		}(np)
	}
	wg.Wait()
}

func (a *assembler) convective() (C utils.Tensor3) {
	var (
		n = len(a.phi)
	)
	C = utils.NewTensor3(n, n, n)
	a.parallel(func(iMin, iMax int) {
		conv := make([]float64, a.ip.Size())
		for i := iMin; i < iMax; i++ {
			for j := 0; j < n; j++ {
				a.fops.Convection.Apply(conv, a.phi[i], a.phi[j])
				for k := 0; k < n; k++ {
					d, _ := a.ip.Dot(a.phi[k], conv)
					C.Set(k, i, j, d)
				}
			}
		}
	})
	return
}

func (a *assembler) poissonConvective() (G utils.Tensor3) {
	var (
		n  = len(a.phi)
		np = len(a.chi)
	)
	G = utils.NewTensor3(np, n, n)
	a.parallel(func(iMin, iMax int) {
		conv := make([]float64, a.ip.Size())
		for i := iMin; i < iMax; i++ {
			for k := 0; k < n; k++ {
				a.fops.Convection.Apply(conv, a.phi[i], a.phi[k])
				for j := 0; j < np; j++ {
					d, _ := a.ip.Dot(a.Gchi[j], conv)
					G.Set(j, i, k, d)
				}
			}
		}
	})
	return
}

// eddy returns T[k][i][j] = <phi_k, E(nut_i, phi_j)>
func (a *assembler) eddy(E utils.SparseTensor3, nut [][]float64) (T utils.Tensor3) {
	var (
		n = len(a.phi)
	)
	T = utils.NewTensor3(n, len(nut), n)
	a.parallel(func(iMin, iMax int) {
		field := make([]float64, a.ip.Size())
		for i := iMin; i < iMax; i++ {
			for j := 0; j < n; j++ {
				E.Apply(field, nut[i], a.phi[j])
				for k := 0; k < n; k++ {
					d, _ := a.ip.Dot(a.phi[k], field)
					T.Set(k, i, j, d)
				}
			}
		}
	})
	return
}

func penaltyData(full FullOrder, phi [][]float64) (vec [][]float64, mats []utils.Matrix) {
	var (
		patches = full.BoundaryPatches()
		nComp   = full.Components()
		n       = len(phi)
	)
	for _, in := range full.InletConditions() {
		var (
			patch  = patches[in.Patch]
			traces = make([][]float64, n)
			v      = make([]float64, n)
			M      = utils.NewMatrix(n, n)
		)
		for i, f := range phi {
			traces[i] = patch.FaceValues(f, nComp, in.Component)
		}
		for i := 0; i < n; i++ {
			for f, face := range patch.Faces {
				v[i] += face.Area * traces[i][f]
			}
			for j := i; j < n; j++ {
				var sum float64
				for f, face := range patch.Faces {
					sum += face.Area * traces[i][f] * traces[j][f]
				}
				M.Set(i, j, sum)
				M.Set(j, i, sum)
			}
		}
		vec = append(vec, v)
		mats = append(mats, M)
	}
	return
}

// liftScale is the area averaged value of each lift field on its own inlet
func liftScale(full FullOrder) (scale []float64) {
	var (
		patches = full.BoundaryPatches()
		lifts   = full.LiftFields()
	)
	for l, in := range full.InletConditions() {
		scale = append(scale, patches[in.Patch].Average(lifts[l], full.Components(), in.Component))
	}
	return
}

func (ops *Operators) snapshotCoefficients(full FullOrder, ip, ipP *pod.InnerProduct, phi, chi [][]float64) (err error) {
	var (
		U, P  utils.Matrix
		uSnap = full.VelocitySnapshots()
		pSnap = full.PressureSnapshots()
		nSnap = len(uSnap)
		n, np = len(phi), len(chi)
	)
	if U, err = pod.CoeffsMatrix(ip, uSnap, phi, 0); err != nil {
		return
	}
	if len(pSnap) != 0 {
		if P, err = pod.CoeffsMatrix(ipP, pSnap, chi, 0); err != nil {
			return
		}
	}
	ops.SnapshotCoeffs = utils.NewMatrix(n+np, nSnap)
	for s := 0; s < nSnap; s++ {
		for i := 0; i < n; i++ {
			ops.SnapshotCoeffs.Set(i, s, U.At(i, s))
		}
		if !P.IsEmpty() {
			for j := 0; j < np; j++ {
				ops.SnapshotCoeffs.Set(n+j, s, P.At(j, s))
			}
		}
	}
	ops.SnapshotTimes = make([]float64, nSnap)
	if times := full.SnapshotTimes(); len(times) == nSnap {
		copy(ops.SnapshotTimes, times)
	} else {
		for s := range ops.SnapshotTimes {
			ops.SnapshotTimes[s] = float64(s)
		}
	}
	return
}

// CheckConfig fails unless the operators were assembled for exactly this mode configuration
func (ops *Operators) CheckConfig(cfg ModeConfig) error {
	if ops.Config != cfg {
		return types.NewInvalidModeCount("operators assembled for %+v, requested %+v", ops.Config, cfg)
	}
	return nil
}
