/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/notargets/gorom/InputParameters"
	"github.com/notargets/gorom/model_problems/ReducedNS"
	"github.com/notargets/gorom/readfiles"
	"github.com/notargets/gorom/types"
)

type OnlineRun struct {
	OperatorsFile string
	ICFile        string
	OutputFile    string
	PlotFile      string
	Profile       bool
	Verbose       bool
}

// OnlineCmd represents the online command
var OnlineCmd = &cobra.Command{
	Use:   "online",
	Short: "Solve the reduced system for new inlet velocities and viscosity",
	Long: `
Reads an operator cache and the reduced order input parameters, runs one nonlinear solve (or
one time integration) per row of InletVelocities and writes the modal coefficients.

gorom online -O operators.yaml -I rom.yaml -o trajectories.yaml --plot residuals.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		or := &OnlineRun{Verbose: viper.GetBool("verbose")}
		or.OperatorsFile, _ = cmd.Flags().GetString("operators")
		or.ICFile, _ = cmd.Flags().GetString("inputConditionsFile")
		or.OutputFile, _ = cmd.Flags().GetString("output")
		or.PlotFile, _ = cmd.Flags().GetString("plot")
		or.Profile, _ = cmd.Flags().GetBool("profile")
		return RunOnline(or)
	},
}

func init() {
	rootCmd.AddCommand(OnlineCmd)
	OnlineCmd.Flags().StringP("operators", "O", "operators.yaml", "operator cache written by the offline command")
	OnlineCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for reduced order parameters, must match the operator cache")
	OnlineCmd.Flags().StringP("output", "o", "trajectories.yaml", "file for the modal coefficients of every query")
	OnlineCmd.Flags().String("plot", "", "optional PNG file with the residual of every solve")
	OnlineCmd.Flags().Bool("profile", false, "write a CPU profile of the online stage")
}

func RunOnline(or *OnlineRun) (err error) {
	var (
		ip       *InputParameters.InputParametersROM
		cfg      ReducedNS.ModeConfig
		ops      *ReducedNS.Operators
		settings ReducedNS.SolverSettings
		solver   *ReducedNS.Solver
		trs      []types.Trajectory
	)
	if or.Profile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}
	if ip, err = readROMInput(or.ICFile); err != nil {
		return
	}
	if ops, err = readfiles.ReadOperators(or.OperatorsFile); err != nil {
		return
	}
	if cfg, err = ip.ModeConfig(); err != nil {
		return
	}
	if cfg.Turbulent && cfg.NNutModes == 0 {
		cfg.NNutModes = ops.Config.NNutModes
	}
	if err = ops.CheckConfig(cfg); err != nil {
		return fmt.Errorf("operator cache %s: %w", or.OperatorsFile, err)
	}
	if settings, err = ip.SolverSettings(); err != nil {
		return
	}
	if solver, err = ReducedNS.NewSolver(ops, settings, ReducedNS.NewConsoleObserver(os.Stdout, or.Verbose)); err != nil {
		return
	}
	start := time.Now()
	trs, solveErr := solver.SolveBatch(ip.Queries(), parallelDegree(ip.ParallelDegree))
	fmt.Printf("%d online solves in %v\n", solver.Solves(), time.Since(start).Round(time.Millisecond))
	// Queries that failed before producing a state are left out, their errors are returned
	solved := make([]types.Trajectory, 0, len(trs))
	for i, tr := range trs {
		if len(tr.States) == 0 {
			fmt.Printf("WARNING: query %d produced no states\n", i)
			continue
		}
		if !tr.Converged() {
			fmt.Printf("WARNING: query %d, params = %v has non converged states\n", i, tr.Params)
		}
		solved = append(solved, tr)
	}
	if len(solved) != 0 {
		if err = readfiles.WriteTrajectories(or.OutputFile, ip.Title, solved, ip.OutputEvery); err != nil {
			return multierr.Append(solveErr, err)
		}
		fmt.Printf("Wrote %d trajectories to %s\n", len(solved), or.OutputFile)
		if len(or.PlotFile) != 0 {
			if err = PlotResiduals(or.PlotFile, ip.Title, solved); err != nil {
				return multierr.Append(solveErr, err)
			}
			fmt.Printf("Wrote residual plot to %s\n", or.PlotFile)
		}
	}
	return solveErr
}
