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
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gorom/InputParameters"
	"github.com/notargets/gorom/fom"
	"github.com/notargets/gorom/model_problems/ReducedNS"
	"github.com/notargets/gorom/readfiles"
	"github.com/notargets/gorom/utils"
)

type OfflineRun struct {
	ProblemFile   string
	ICFile        string
	OperatorsFile string
	Verbose       bool
}

// OfflineCmd represents the offline command
var OfflineCmd = &cobra.Command{
	Use:   "offline",
	Short: "Project the full order operators onto the reduced bases",
	Long: `
Reads a full order problem and the reduced order input parameters, assembles the reduced
operators for the requested formulation and writes them to an operator cache file.

gorom offline -F channel.yaml -I rom.yaml -O operators.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		or := &OfflineRun{Verbose: viper.GetBool("verbose")}
		or.ProblemFile, _ = cmd.Flags().GetString("problemFile")
		or.ICFile, _ = cmd.Flags().GetString("inputConditionsFile")
		or.OperatorsFile, _ = cmd.Flags().GetString("operators")
		return RunOffline(or)
	},
}

func init() {
	rootCmd.AddCommand(OfflineCmd)
	OfflineCmd.Flags().StringP("problemFile", "F", "", "full order problem file, see the synthetic command")
	OfflineCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for reduced order parameters like:\n\t- NUModes, NPModes\n\t- Stabilization, BCMethod")
	OfflineCmd.Flags().StringP("operators", "O", "operators.yaml", "operator cache file to write")
}

func RunOffline(or *OfflineRun) (err error) {
	var (
		full *fom.Problem
		ip   *InputParameters.InputParametersROM
		cfg  ReducedNS.ModeConfig
		ops  *ReducedNS.Operators
	)
	if len(or.ProblemFile) == 0 {
		return fmt.Errorf("must supply a full order problem file (-F, --problemFile)")
	}
	if ip, err = readROMInput(or.ICFile); err != nil {
		return
	}
	if full, err = readfiles.ReadProblem(or.ProblemFile, or.Verbose); err != nil {
		return
	}
	if cfg, err = ip.ModeConfig(); err != nil {
		return
	}
	cfg = cfg.Resolve(full)
	start := time.Now()
	if ops, err = ReducedNS.Assemble(full, cfg, parallelDegree(ip.ParallelDegree)); err != nil {
		return fmt.Errorf("assembling %s: %w", cfg.Formulation, err)
	}
	fmt.Printf("Assembled %d + %d mode %s operators in %v\n", ops.NphiU, ops.NphiP, cfg.Formulation,
		time.Since(start).Round(time.Millisecond))
	if or.Verbose {
		fmt.Println(utils.GetMemUsage())
	}
	if err = readfiles.WriteOperators(or.OperatorsFile, ops); err != nil {
		return
	}
	fmt.Printf("Wrote operator cache to %s\n", or.OperatorsFile)
	return
}

const exampleROMInput = `
########################################
Title: "Channel ROM"
NUModes: 3
NPModes: 2
NSUPModes: 2
Stabilization: SUP
BCMethod: lift
Turbulent: true
Unsteady: false
Nu: 0.01
InletVelocities:
  - [0.75]
  - [1.25]
########################################
`

func readROMInput(fileName string) (ip *InputParameters.InputParametersROM, err error) {
	if len(fileName) == 0 {
		fmt.Printf("Example File:%s\n", exampleROMInput)
		return nil, fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile)")
	}
	ip = &InputParameters.InputParametersROM{}
	if err = ip.ReadFile(fileName); err != nil {
		return nil, err
	}
	ip.Print()
	if err = ip.Validate(); err != nil {
		return nil, fmt.Errorf("input parameters in %s: %w", fileName, err)
	}
	return
}
