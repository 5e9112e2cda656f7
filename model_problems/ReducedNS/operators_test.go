package ReducedNS

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gorom/fom"
	"github.com/notargets/gorom/pod"
	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

func channel(t *testing.T) *fom.Problem {
	p, err := fom.NewChannel1D(fom.DefaultChannel1DConfig())
	require.NoError(t, err)
	return p
}

func supLift(turbulent, unsteady bool) ModeConfig {
	cfg := ModeConfig{
		NUModes:   2,
		NPModes:   1,
		NSUPModes: 1,
		Formulation: Formulation{
			Stabilization: types.SUP,
			BCMethod:      types.BC_Lift,
			Turbulent:     turbulent,
			Unsteady:      unsteady,
		},
	}
	if turbulent {
		cfg.NNutModes = cfg.NVelocity(1)
	}
	return cfg
}

func TestAssemble(t *testing.T) {
	p := channel(t)
	{ // Turbulent SUP with lift
		cfg := supLift(true, false)
		ops, err := Assemble(p, cfg, 2)
		require.NoError(t, err)
		assert.Equal(t, 1, ops.NBC)
		assert.Equal(t, 4, ops.NphiU)
		assert.Equal(t, 1, ops.NphiP)
		assert.Equal(t, 5, ops.Size())
		assert.NoError(t, ops.Validate())
		assert.True(t, ops.M.IsSymmetric(1.e-14))
		for _, m := range []utils.Matrix{ops.M, ops.B, ops.BT, ops.BTotal} {
			r, c := m.Dims()
			assert.Equal(t, [2]int{4, 4}, [2]int{r, c})
		}
		r, c := ops.K.Dims()
		assert.Equal(t, [2]int{4, 1}, [2]int{r, c})
		r, c = ops.P.Dims()
		assert.Equal(t, [2]int{1, 4}, [2]int{r, c})
		assert.True(t, ops.D.IsEmpty())
		assert.True(t, ops.G.IsEmpty())
		// Totals combine the laminar and turbulent parts
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				assert.InDelta(t, ops.B.At(i, j)+ops.BT.At(i, j), ops.BTotal.At(i, j), 1.e-12)
				for k := 0; k < 4; k++ {
					assert.InDelta(t, ops.C.At(k, i, j)-ops.CT1.At(k, i, j)-ops.CT2.At(k, i, j),
						ops.CTotal.At(k, i, j), 1.e-10)
				}
			}
		}
		// The second eddy tensor is a third of the first one for this channel
		assert.InDelta(t, ops.CT1.At(1, 2, 3)/3, ops.CT2.At(1, 2, 3), 1.e-10)
		assert.InDeltaSlice(t, []float64{1}, ops.LiftScale, 1.e-12)
		assert.True(t, ops.SnapshotCoeffs.IsEmpty())
		// Operators are frozen
		assert.Panics(t, func() { ops.M.Set(0, 0, 1) })
		assert.Panics(t, func() { ops.CTotal.Set(0, 0, 0, 1) })
	}
	{ // Mass matrix entries match the volume weighted inner product of the basis
		cfg := supLift(false, false)
		ops, err := Assemble(p, cfg, 1)
		require.NoError(t, err)
		ip, _ := pod.NewInnerProduct(p.CellVolumes(), 1, true)
		phi := VelocityBasis(p, cfg)
		assert.Equal(t, 4, len(phi))
		d, _ := ip.Dot(phi[1], phi[3])
		assert.InDelta(t, d, ops.M.At(1, 3), 1.e-14)
		assert.True(t, ops.BT.IsEmpty())
		assert.Equal(t, ops.B.Data(), ops.BTotal.Data())
		assert.Equal(t, ops.C.Data(), ops.CTotal.Data())
	}
	{ // PPE and penalty
		cfg := ModeConfig{NUModes: 3, NPModes: 2,
			Formulation: Formulation{Stabilization: types.PPE, BCMethod: types.BC_Penalty, Unsteady: true}}
		ops, err := Assemble(p, cfg, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, ops.NBC)
		assert.Equal(t, 3, ops.NphiU)
		assert.True(t, ops.P.IsEmpty())
		assert.True(t, ops.D.IsSymmetric(1.e-12))
		d1, d2, d3 := ops.G.Dims()
		assert.Equal(t, [3]int{2, 3, 3}, [3]int{d1, d2, d3})
		assert.Equal(t, 1, len(ops.BCVelVec))
		// Homogenized modes have no trace on the inlet
		assert.InDeltaSlice(t, []float64{0, 0, 0}, ops.BCVelVec[0], 1.e-10)
		assert.True(t, ops.BCVelMat[0].IsSymmetric(1.e-14))
		// Unsteady formulations carry the projected snapshots
		r, c := ops.SnapshotCoeffs.Dims()
		assert.Equal(t, 5, r)
		assert.Equal(t, len(p.VelocitySnapshots()), c)
		y, tt, err := ops.SnapshotState(12)
		assert.NoError(t, err)
		assert.Equal(t, 5, len(y))
		assert.Equal(t, p.SnapshotTimes()[12], tt)
		_, _, err = ops.SnapshotState(1000)
		assert.True(t, errors.Is(err, types.ErrContractViolation))
	}
}

func TestAssembleEntries(t *testing.T) {
	var (
		p    = channel(t)
		fops = p.FullOperators()
		conv = make([]float64, p.NCells())
	)
	ip, err := pod.NewInnerProduct(p.CellVolumes(), 1, true)
	require.NoError(t, err)
	dot := func(a, b []float64) float64 {
		d, err := ip.Dot(a, b)
		require.NoError(t, err)
		return d
	}
	near := func(want, got float64) {
		assert.InDelta(t, want, got, 1.e-12*math.Max(1, math.Abs(want)))
	}
	{ // Turbulent PPE with lift, off diagonal entries against their definitions
		cfg := ModeConfig{NUModes: 3, NPModes: 2,
			Formulation: Formulation{Stabilization: types.PPE, BCMethod: types.BC_Lift, Turbulent: true}}.Resolve(p)
		ops, err := Assemble(p, cfg, 3)
		require.NoError(t, err)
		var (
			phi = VelocityBasis(p, cfg)
			chi = PressureBasis(p, cfg)
			nut = p.EddyViscosityModes()
		)
		require.Equal(t, 4, len(phi))
		require.Equal(t, 2, len(chi))
		Gchi1 := fops.Gradient.MulVec(chi[1])
		Gchi0 := fops.Gradient.MulVec(chi[0])
		// G[j][i][k] = <G chi_j, Conv(phi_i, phi_k)>
		fops.Convection.Apply(conv, phi[2], phi[3])
		near(dot(Gchi1, conv), ops.G.At(1, 2, 3))
		// C[k][i][j] = <phi_k, Conv(phi_i, phi_j)>
		near(dot(phi[1], conv), ops.C.At(1, 2, 3))
		fops.Convection.Apply(conv, phi[3], phi[2])
		near(dot(Gchi1, conv), ops.G.At(1, 3, 2))
		near(dot(phi[0], conv), ops.C.At(0, 3, 2))
		// K[i][j] = <phi_i, G chi_j>
		near(dot(phi[2], Gchi1), ops.K.At(2, 1))
		near(dot(phi[3], Gchi0), ops.K.At(3, 0))
		// D[i][j] = <G chi_i, G chi_j>
		near(dot(Gchi0, Gchi1), ops.D.At(0, 1))
		near(ops.D.At(0, 1), ops.D.At(1, 0))
		// CT1[k][i][j] = <phi_k, E1(nut_i, phi_j)>
		fops.EddyDiffusion.Apply(conv, nut[2], phi[3])
		near(dot(phi[1], conv), ops.CT1.At(1, 2, 3))
		// B[i][j] = <phi_i, L phi_j>
		near(dot(phi[3], fops.Laplacian.MulVec(phi[0])), ops.B.At(3, 0))
		near(dot(phi[0], fops.Laplacian.MulVec(phi[3])), ops.B.At(0, 3))
	}
	{ // SUP divergence operator P[i][j] = <chi_i, Div phi_j>
		cfg := supLift(false, false)
		ops, err := Assemble(p, cfg, 1)
		require.NoError(t, err)
		var (
			phi = VelocityBasis(p, cfg)
			chi = PressureBasis(p, cfg)
		)
		near(dot(chi[0], fops.Divergence.MulVec(phi[2])), ops.P.At(0, 2))
		near(dot(chi[0], fops.Divergence.MulVec(phi[0])), ops.P.At(0, 0))
	}
}

func TestAssembleIdempotent(t *testing.T) {
	p := channel(t)
	cfg := supLift(true, true)
	ops1, err := Assemble(p, cfg, 1)
	require.NoError(t, err)
	ops2, err := Assemble(p, cfg, 4)
	require.NoError(t, err)
	assert.Equal(t, ops1.M.Data(), ops2.M.Data())
	assert.Equal(t, ops1.BTotal.Data(), ops2.BTotal.Data())
	assert.Equal(t, ops1.K.Data(), ops2.K.Data())
	assert.Equal(t, ops1.P.Data(), ops2.P.Data())
	assert.Equal(t, ops1.CTotal.Data(), ops2.CTotal.Data())
	assert.Equal(t, ops1.CT1.Data(), ops2.CT1.Data())
	assert.Equal(t, ops1.SnapshotCoeffs.Data(), ops2.SnapshotCoeffs.Data())
	assert.Equal(t, ops1.LiftScale, ops2.LiftScale)
}

func TestAssembleContract(t *testing.T) {
	p := channel(t)
	check := func(cfg ModeConfig, kind error) {
		_, err := Assemble(p, cfg, 1)
		assert.True(t, errors.Is(err, kind), "%+v: %v", cfg, err)
		assert.True(t, errors.Is(err, types.ErrContractViolation))
	}
	cfg := supLift(false, false)
	{
		c := cfg
		c.NUModes = 0
		check(c, types.ErrContractViolation)
		c = cfg
		c.NPModes = 0
		check(c, types.ErrContractViolation)
		c = cfg
		c.NUModes = 10
		check(c, types.ErrInvalidModeCount)
		c = cfg
		c.NSUPModes = 3
		check(c, types.ErrInvalidModeCount)
	}
	{ // Supremizers are a SUP only concept
		c := cfg
		c.Stabilization = types.PPE
		check(c, types.ErrContractViolation)
	}
	{ // Eddy viscosity modes must match the velocity basis
		c := supLift(true, false)
		c.NNutModes--
		check(c, types.ErrInvalidModeCount)
		c.NNutModes = 20
		check(c, types.ErrInvalidModeCount)
	}
	{ // Lift method without lift fields
		d := p.Data()
		d.Lifts = nil
		pNoLift, err := fom.NewProblem(d)
		require.NoError(t, err)
		_, err = Assemble(pNoLift, cfg, 1)
		assert.True(t, errors.Is(err, types.ErrContractViolation))
		c := cfg
		c.BCMethod = types.BC_Penalty
		_, err = Assemble(pNoLift, c, 1)
		assert.NoError(t, err)
	}
	{ // Turbulence without eddy viscosity operators
		d := p.Data()
		d.Ops.EddyDiffusion = utils.SparseTensor3{}
		pLam, err := fom.NewProblem(d)
		require.NoError(t, err)
		_, err = Assemble(pLam, supLift(true, false), 1)
		assert.True(t, errors.Is(err, types.ErrContractViolation))
	}
}

func TestRescale(t *testing.T) {
	ops := &Operators{NInlets: 2, NBC: 2, LiftScale: []float64{2, 0.5}}
	{
		bc, err := RescaleVelocity(ops, []float64{1, 1})
		assert.NoError(t, err)
		assert.Equal(t, []float64{0.5, 2}, bc)
	}
	{
		_, err := RescaleVelocity(ops, []float64{1, 1, 1})
		assert.True(t, errors.Is(err, types.ErrDimensionMismatch))
		_, err = RescaleVelocity(ops, []float64{1})
		assert.True(t, errors.Is(err, types.ErrDimensionMismatch))
	}
	{
		ops.LiftScale[1] = 0
		_, err := RescaleVelocity(ops, []float64{1, 1})
		assert.True(t, errors.Is(err, types.ErrNumericalDegeneracy))
	}
	{ // Penalty operators have no lift to rescale with
		pen := &Operators{NInlets: 1}
		_, err := RescaleVelocity(pen, []float64{1})
		assert.True(t, errors.Is(err, types.ErrContractViolation))
	}
}
