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

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gorom/utils"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gorom",
	Short: "Reduced order models of incompressible turbulent flows",
	Long: `
Builds POD-Galerkin reduced order models from full order finite volume data and solves them
for new inlet velocities and viscosities.

gorom synthetic -o channel.yaml
gorom offline -F channel.yaml -I rom.yaml -O operators.yaml
gorom online -O operators.yaml -I rom.yaml -o trajectories.yaml`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gorom.yaml)")
	rootCmd.PersistentFlags().IntP("parallel", "p", 0, "number of goroutines used for assembly and batch solves, 0 uses all CPUs")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "report every solve, including unsteady steps")
	_ = viper.BindPFlag("parallel", rootCmd.PersistentFlags().Lookup("parallel"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".gorom")
	}
	viper.SetEnvPrefix("GOROM")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

// parallelDegree prefers the input file, then the flag / config / environment value
func parallelDegree(fromInput int) int {
	if fromInput > 0 {
		return utils.DefaultParallelDegree(fromInput)
	}
	return utils.DefaultParallelDegree(viper.GetInt("parallel"))
}
