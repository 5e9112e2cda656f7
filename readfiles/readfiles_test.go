package readfiles

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ghodss/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gorom/fom"
	"github.com/notargets/gorom/model_problems/ReducedNS"
	"github.com/notargets/gorom/types"
)

func smallChannel(t *testing.T) *fom.Problem {
	p, err := fom.NewChannel1D(fom.DefaultChannel1DConfig())
	require.NoError(t, err)
	return p
}

func TestProblemFile(t *testing.T) {
	var (
		p        = smallChannel(t)
		fileName = filepath.Join(t.TempDir(), "channel.yaml")
	)
	require.NoError(t, WriteProblem(fileName, p))
	q, err := ReadProblem(fileName, false)
	require.NoError(t, err)
	{
		assert.Equal(t, p.Name(), q.Name())
		assert.Equal(t, p.NCells(), q.NCells())
		assert.Equal(t, p.Components(), q.Components())
		assert.InDeltaSlice(t, p.CellVolumes(), q.CellVolumes(), 1.e-14)
		assert.Equal(t, p.InletConditions(), q.InletConditions())
		assert.Equal(t, len(p.VelocityModes()), len(q.VelocityModes()))
		assert.Equal(t, len(p.SupremizerModes()), len(q.SupremizerModes()))
		assert.Equal(t, len(p.VelocitySnapshots()), len(q.VelocitySnapshots()))
	}
	{ // Operators survive the trip entry by entry
		po, qo := p.FullOperators(), q.FullOperators()
		assert.Equal(t, po.Laplacian.NNZ(), qo.Laplacian.NNZ())
		assert.InDeltaSlice(t, po.Laplacian.Data(), qo.Laplacian.Data(), 1.e-12)
		assert.Equal(t, po.Convection.NNZ(), qo.Convection.NNZ())
		assert.True(t, qo.HasTurbulence())
		u := p.VelocityModes()[0]
		assert.InDeltaSlice(t, po.Divergence.MulVec(u), qo.Divergence.MulVec(u), 1.e-10)
	}
	{ // A truncated dataset is refused
		pf := NewProblemFile(p)
		pf.Volumes = pf.Volumes[1:]
		_, err = pf.Problem()
		assert.True(t, errors.Is(err, types.ErrContractViolation))
	}
	{
		_, err = ReadProblem(filepath.Join(t.TempDir(), "missing.yaml"), false)
		assert.Error(t, err)
	}
}

func TestOperatorsFile(t *testing.T) {
	var (
		p        = smallChannel(t)
		fileName = filepath.Join(t.TempDir(), "operators.yaml")
	)
	for _, cfg := range []ReducedNS.ModeConfig{
		{NUModes: 2, NPModes: 1, NSUPModes: 1,
			Formulation: ReducedNS.Formulation{Stabilization: types.SUP, BCMethod: types.BC_Lift, Unsteady: true}},
		{NUModes: 2, NPModes: 1,
			Formulation: ReducedNS.Formulation{Stabilization: types.PPE, BCMethod: types.BC_Penalty, Turbulent: true}},
	} {
		cfg = cfg.Resolve(p)
		ops, err := ReducedNS.Assemble(p, cfg, 2)
		require.NoError(t, err)
		require.NoError(t, WriteOperators(fileName, ops))
		read, err := ReadOperators(fileName)
		require.NoError(t, err)
		assert.NoError(t, read.CheckConfig(cfg))
		assert.Equal(t, ops.Size(), read.Size())
		assert.Equal(t, ops.NBC, read.NBC)
		assert.InDeltaSlice(t, ops.BTotal.Data(), read.BTotal.Data(), 1.e-12)
		assert.InDeltaSlice(t, ops.CTotal.Data(), read.CTotal.Data(), 1.e-12)
		assert.Equal(t, ops.G.IsEmpty(), read.G.IsEmpty())
		assert.Equal(t, len(ops.BCVelMat), len(read.BCVelMat))
		assert.Equal(t, ops.SnapshotCoeffs.IsEmpty(), read.SnapshotCoeffs.IsEmpty())
		assert.True(t, read.M.IsReadOnly())
		assert.Panics(t, func() { read.M.Set(0, 0, 1) })
	}
	{ // A corrupted cache is refused
		data, err := os.ReadFile(fileName)
		require.NoError(t, err)
		var of OperatorsFile
		require.NoError(t, yaml.Unmarshal(data, &of))
		of.K.Data = of.K.Data[1:]
		_, err = of.Operators()
		assert.True(t, errors.Is(err, types.ErrDimensionMismatch))
		of.Stabilization = "none"
		_, err = of.Operators()
		assert.True(t, errors.Is(err, types.ErrContractViolation))
		of = OperatorsFile{}
		require.NoError(t, yaml.Unmarshal(data, &of))
		of.M.Data[1] += 1
		_, err = of.Operators()
		assert.True(t, errors.Is(err, types.ErrContractViolation))
	}
}

func TestTrajectories(t *testing.T) {
	var (
		fileName = filepath.Join(t.TempDir(), "trajectories.yaml")
		trs      = make([]types.Trajectory, 2)
	)
	for i := range trs {
		trs[i].Params = []float64{float64(i + 1)}
		for n := 0; n < 5; n++ {
			trs[i].States = append(trs[i].States, types.ModalState{
				Time:      0.1 * float64(n),
				Coeffs:    []float64{float64(i), float64(n)},
				Converged: true,
			})
		}
	}
	require.NoError(t, WriteTrajectories(fileName, "unit", trs, 2))
	tf, err := ReadTrajectories(fileName)
	require.NoError(t, err)
	assert.Equal(t, "unit", tf.Title)
	require.Equal(t, 2, len(tf.Trajectories))
	for i, tr := range tf.Trajectories {
		assert.Equal(t, []float64{float64(i + 1)}, tr.Params)
		require.Equal(t, 3, len(tr.States))
		assert.InDelta(t, 0.4, tr.Last().Time, 1.e-14)
		assert.Equal(t, []float64{float64(i), 4}, tr.Last().Coeffs)
		assert.True(t, tr.Converged())
	}
}
