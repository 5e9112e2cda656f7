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

	"github.com/spf13/cobra"

	"github.com/notargets/gorom/InputParameters"
	"github.com/notargets/gorom/fom"
	"github.com/notargets/gorom/readfiles"
)

type SyntheticRun struct {
	ChannelFile string // Optional, defaults are used for missing values
	OutputFile  string
}

// SyntheticCmd represents the synthetic command
var SyntheticCmd = &cobra.Command{
	Use:   "synthetic",
	Short: "Generate a full order channel flow problem with POD modes",
	Long: `
Generates a stretched one dimensional channel with a parametrized inlet, analytic velocity and
pressure snapshots, POD and supremizer modes, and writes it as a full order problem file.

gorom synthetic -I channel_input.yaml -o channel.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sr := &SyntheticRun{}
		sr.ChannelFile, _ = cmd.Flags().GetString("inputConditionsFile")
		sr.OutputFile, _ = cmd.Flags().GetString("output")
		return RunSynthetic(sr)
	},
}

func init() {
	rootCmd.AddCommand(SyntheticCmd)
	SyntheticCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file with channel parameters like:\n\t- NCells\n\t- InletVelocities")
	SyntheticCmd.Flags().StringP("output", "o", "channel.yaml", "full order problem file to write")
}

func RunSynthetic(sr *SyntheticRun) (err error) {
	var (
		ip = &InputParameters.InputParametersChannel{Title: "channel"}
		p  *fom.Problem
		e  fom.ModeEnergy
	)
	if len(sr.ChannelFile) != 0 {
		var data []byte
		if data, err = os.ReadFile(sr.ChannelFile); err != nil {
			return
		}
		if err = ip.Parse(data); err != nil {
			return fmt.Errorf("parsing %s: %w", sr.ChannelFile, err)
		}
	}
	ip.Print()
	if p, e, err = fom.BuildChannel1D(ip.Config()); err != nil {
		return
	}
	fmt.Printf("Captured snapshot energy: velocity %.6f, pressure %.6f, eddy viscosity %.6f\n",
		e.Velocity, e.Pressure, e.EddyViscosity)
	if err = readfiles.WriteProblem(sr.OutputFile, p); err != nil {
		return
	}
	fmt.Printf("Wrote full order problem %q with %d cells to %s\n", p.Name(), p.NCells(), sr.OutputFile)
	return
}
