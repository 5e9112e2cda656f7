package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gorom/readfiles"
	"github.com/notargets/gorom/types"
)

const romInput = `
Title: "channel test"
NUModes: 2
NPModes: 1
NSUPModes: 1
Stabilization: SUP
BCMethod: lift
Turbulent: true
Nu: 0.1
ParallelDegree: 2
InletVelocities:
  - [0.75]
  - [1.25]
`

func TestPipeline(t *testing.T) {
	var (
		dir           = t.TempDir()
		problemFile   = filepath.Join(dir, "channel.yaml")
		inputFile     = filepath.Join(dir, "rom.yaml")
		operatorsFile = filepath.Join(dir, "operators.yaml")
		outputFile    = filepath.Join(dir, "trajectories.yaml")
		plotFile      = filepath.Join(dir, "residuals.png")
	)
	require.NoError(t, os.WriteFile(inputFile, []byte(romInput), 0644))
	require.NoError(t, RunSynthetic(&SyntheticRun{OutputFile: problemFile}))
	require.NoError(t, RunOffline(&OfflineRun{
		ProblemFile:   problemFile,
		ICFile:        inputFile,
		OperatorsFile: operatorsFile,
	}))
	ops, err := readfiles.ReadOperators(operatorsFile)
	require.NoError(t, err)
	assert.Equal(t, 5, ops.Size())
	assert.Equal(t, 4, ops.Config.NNutModes)

	require.NoError(t, RunOnline(&OnlineRun{
		OperatorsFile: operatorsFile,
		ICFile:        inputFile,
		OutputFile:    outputFile,
		PlotFile:      plotFile,
	}))
	tf, err := readfiles.ReadTrajectories(outputFile)
	require.NoError(t, err)
	assert.Equal(t, "channel test", tf.Title)
	require.Equal(t, 2, len(tf.Trajectories))
	for i, tr := range tf.Trajectories {
		require.Equal(t, 1, len(tr.States))
		assert.Equal(t, 5, len(tr.Last().Coeffs))
		// Lift coefficient carries the rescaled inlet velocity
		assert.InDelta(t, tf.Trajectories[i].Params[0]/ops.LiftScale[0], tr.Last().Coeffs[0], 1.e-4)
	}
	info, err := os.Stat(plotFile)
	require.NoError(t, err)
	assert.True(t, info.Size() > 0)
}

func TestPipelineErrors(t *testing.T) {
	var (
		dir       = t.TempDir()
		inputFile = filepath.Join(dir, "rom.yaml")
	)
	{ // Missing files
		assert.Error(t, RunOffline(&OfflineRun{ICFile: inputFile}))
		assert.Error(t, RunOffline(&OfflineRun{ProblemFile: filepath.Join(dir, "none.yaml")}))
		assert.Error(t, RunOnline(&OnlineRun{OperatorsFile: filepath.Join(dir, "none.yaml")}))
	}
	{ // Input that does not validate
		require.NoError(t, os.WriteFile(inputFile, []byte("Title: bad\nNUModes: 0\nStabilization: SUP\nBCMethod: lift\n"), 0644))
		_, err := readROMInput(inputFile)
		assert.Error(t, err)
	}
}

func TestOnlineFailures(t *testing.T) {
	var (
		dir           = t.TempDir()
		problemFile   = filepath.Join(dir, "channel.yaml")
		inputFile     = filepath.Join(dir, "rom.yaml")
		operatorsFile = filepath.Join(dir, "operators.yaml")
	)
	require.NoError(t, os.WriteFile(inputFile, []byte(romInput), 0644))
	require.NoError(t, RunSynthetic(&SyntheticRun{OutputFile: problemFile}))
	require.NoError(t, RunOffline(&OfflineRun{
		ProblemFile:   problemFile,
		ICFile:        inputFile,
		OperatorsFile: operatorsFile,
	}))
	{ // Strict non converged solves are still written before the error is returned
		var (
			strictFile = filepath.Join(dir, "strict.yaml")
			outputFile = filepath.Join(dir, "strict_trajectories.yaml")
		)
		strict := romInput + "Strict: true\nMaxIterations: 1\nTolerance: 1.e-300\n"
		require.NoError(t, os.WriteFile(strictFile, []byte(strict), 0644))
		err := RunOnline(&OnlineRun{
			OperatorsFile: operatorsFile,
			ICFile:        strictFile,
			OutputFile:    outputFile,
		})
		assert.True(t, errors.Is(err, types.ErrNotConverged))
		tf, err := readfiles.ReadTrajectories(outputFile)
		require.NoError(t, err)
		require.Equal(t, 2, len(tf.Trajectories))
		for _, tr := range tf.Trajectories {
			require.Equal(t, 1, len(tr.States))
			assert.False(t, tr.Converged())
			assert.Equal(t, 5, len(tr.Last().Coeffs))
		}
	}
	{ // Queries that produce no state leave no output behind
		var (
			badFile    = filepath.Join(dir, "bad.yaml")
			outputFile = filepath.Join(dir, "bad_trajectories.yaml")
		)
		bad := strings.Replace(romInput, "  - [0.75]\n  - [1.25]\n", "  - [0.75, 1.0]\n", 1)
		require.NoError(t, os.WriteFile(badFile, []byte(bad), 0644))
		err := RunOnline(&OnlineRun{
			OperatorsFile: operatorsFile,
			ICFile:        badFile,
			OutputFile:    outputFile,
		})
		assert.True(t, errors.Is(err, types.ErrDimensionMismatch))
		_, err = os.Stat(outputFile)
		assert.True(t, os.IsNotExist(err))
	}
}
