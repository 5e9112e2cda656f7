package InputParameters

import (
	"fmt"
	"io"
	"os"

	"github.com/ghodss/yaml"

	"github.com/notargets/gorom/fom"
	"github.com/notargets/gorom/model_problems/ReducedNS"
	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

// Parameters of the offline and online stages obtained from the YAML input file
type InputParametersROM struct {
	Title           string      `json:"Title"`
	NUModes         int         `json:"NUModes"`
	NPModes         int         `json:"NPModes"`
	NSUPModes       int         `json:"NSUPModes"`
	NNutModes       int         `json:"NNutModes"` // 0 selects the velocity basis size when Turbulent
	Stabilization   string      `json:"Stabilization"`
	BCMethod        string      `json:"BCMethod"`
	Turbulent       bool        `json:"Turbulent"`
	Unsteady        bool        `json:"Unsteady"`
	Nu              float64     `json:"Nu"`
	InletVelocities [][]float64 `json:"InletVelocities"` // One row per online query, one value per inlet
	Tau             []float64   `json:"Tau"`
	Dt              float64     `json:"Dt"`
	FinalTime       float64     `json:"FinalTime"`
	StartSnap       int         `json:"StartSnap"`
	OutputEvery     int         `json:"OutputEvery"`
	Tolerance       float64     `json:"Tolerance"`
	Strict          bool        `json:"Strict"`
	MaxIterations   int         `json:"MaxIterations"`
	JacobianFormula string      `json:"JacobianFormula"`
	JacobianStep    float64     `json:"JacobianStep"`
	ParallelDegree  int         `json:"ParallelDegree"`
}

func (ip *InputParametersROM) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *InputParametersROM) ReadFile(fileName string) (err error) {
	var data []byte
	if data, err = os.ReadFile(fileName); err != nil {
		return
	}
	if err = ip.Parse(data); err != nil {
		return fmt.Errorf("parsing %s: %w", fileName, err)
	}
	return
}

func (ip *InputParametersROM) Print() { ip.PrintTo(os.Stdout) }

func (ip *InputParametersROM) PrintTo(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "[%d, %d, %d, %d]\t\t= NUModes, NPModes, NSUPModes, NNutModes\n",
		ip.NUModes, ip.NPModes, ip.NSUPModes, ip.NNutModes)
	fmt.Fprintf(w, "[%s]\t\t\t= Stabilization\n", ip.Stabilization)
	fmt.Fprintf(w, "[%s]\t\t\t= Boundary Condition Method\n", ip.BCMethod)
	fmt.Fprintf(w, "[%v, %v]\t\t= Turbulent, Unsteady\n", ip.Turbulent, ip.Unsteady)
	fmt.Fprintf(w, "%8.5f\t\t= Nu\n", ip.Nu)
	if ip.Unsteady {
		fmt.Fprintf(w, "%8.5f\t\t= Dt\n", ip.Dt)
		fmt.Fprintf(w, "%8.5f\t\t= FinalTime\n", ip.FinalTime)
		fmt.Fprintf(w, "[%d]\t\t\t\t= StartSnap\n", ip.StartSnap)
	}
	if len(ip.Tau) != 0 {
		fmt.Fprintf(w, "%v\t\t= Tau\n", ip.Tau)
	}
	for i, vel := range ip.InletVelocities {
		fmt.Fprintf(w, "InletVelocities[%d] = %v\n", i, vel)
	}
}

func (ip *InputParametersROM) Validate() (err error) {
	if _, err = ip.ModeConfig(); err != nil {
		return
	}
	if _, err = ip.SolverSettings(); err != nil {
		return
	}
	switch {
	case len(ip.InletVelocities) == 0:
		return types.NewContractError("no InletVelocities given, nothing to solve")
	case ip.Nu <= 0:
		return types.NewContractError("Nu must be positive, have %g", ip.Nu)
	case ip.Unsteady && (ip.Dt <= 0 || ip.FinalTime <= 0):
		return types.NewContractError("unsteady runs need positive Dt and FinalTime, have %g and %g", ip.Dt, ip.FinalTime)
	case ip.OutputEvery < 0:
		return types.NewContractError("OutputEvery must not be negative, have %d", ip.OutputEvery)
	}
	for i, vel := range ip.InletVelocities {
		if len(vel) != len(ip.InletVelocities[0]) {
			return types.NewDimensionMismatch("InletVelocities[%d] has %d values, InletVelocities[0] has %d",
				i, len(vel), len(ip.InletVelocities[0]))
		}
	}
	return
}

func (ip *InputParametersROM) ModeConfig() (cfg ReducedNS.ModeConfig, err error) {
	cfg = ReducedNS.ModeConfig{
		NUModes:   ip.NUModes,
		NPModes:   ip.NPModes,
		NSUPModes: ip.NSUPModes,
		NNutModes: ip.NNutModes,
	}
	if cfg.Stabilization, err = types.NewStabilization(ip.Stabilization); err != nil {
		return
	}
	if cfg.BCMethod, err = types.NewBCMethod(ip.BCMethod); err != nil {
		return
	}
	cfg.Turbulent, cfg.Unsteady = ip.Turbulent, ip.Unsteady
	return
}

func (ip *InputParametersROM) SolverSettings() (s ReducedNS.SolverSettings, err error) {
	s = ReducedNS.DefaultSolverSettings()
	if s.Hybrid.JacobianFormula, err = utils.NewJacobianFormula(ip.JacobianFormula); err != nil {
		return
	}
	if ip.MaxIterations > 0 {
		s.Hybrid.MaxIterations = ip.MaxIterations
	}
	if ip.JacobianStep < 0 {
		err = types.NewContractError("JacobianStep must not be negative, have %g", ip.JacobianStep)
		return
	}
	s.Hybrid.JacobianStep = ip.JacobianStep
	if ip.Tolerance > 0 {
		s.Tolerance = ip.Tolerance
	}
	s.Strict = ip.Strict
	return
}

// Queries returns one online query per row of InletVelocities
func (ip *InputParametersROM) Queries() (params []ReducedNS.OnlineParams) {
	for _, vel := range ip.InletVelocities {
		params = append(params, ReducedNS.OnlineParams{
			Velocity:  vel,
			Nu:        ip.Nu,
			Tau:       ip.Tau,
			Dt:        ip.Dt,
			FinalTime: ip.FinalTime,
			StartSnap: ip.StartSnap,
		})
	}
	return
}

// Parameters of the synthetic channel full order problem
type InputParametersChannel struct {
	Title           string    `json:"Title"`
	NCells          int       `json:"NCells"`
	Length          float64   `json:"Length"`
	Stretch         float64   `json:"Stretch"`
	InletVelocities []float64 `json:"InletVelocities"`
	Times           []float64 `json:"Times"`
	NUModes         int       `json:"NUModes"`
	NPModes         int       `json:"NPModes"`
	NNutModes       int       `json:"NNutModes"`
	Smagorinsky     float64   `json:"Smagorinsky"`
}

func (ip *InputParametersChannel) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

// Config fills the values missing from the input file with the defaults
func (ip *InputParametersChannel) Config() (cfg fom.Channel1DConfig) {
	cfg = fom.DefaultChannel1DConfig()
	if ip.NCells > 0 {
		cfg.NCells = ip.NCells
	}
	if ip.Length > 0 {
		cfg.Length = ip.Length
	}
	if ip.Stretch > 0 {
		cfg.Stretch = ip.Stretch
	}
	if len(ip.InletVelocities) != 0 {
		cfg.InletVelocities = ip.InletVelocities
	}
	if len(ip.Times) != 0 {
		cfg.Times = ip.Times
	}
	if ip.NUModes > 0 {
		cfg.NUModes = ip.NUModes
	}
	if ip.NPModes > 0 {
		cfg.NPModes = ip.NPModes
	}
	if ip.NNutModes > 0 {
		cfg.NNutModes = ip.NNutModes
	}
	if ip.Smagorinsky > 0 {
		cfg.Smagorinsky = ip.Smagorinsky
	}
	return
}

func (ip *InputParametersChannel) Print() {
	cfg := ip.Config()
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%d]\t\t\t\t= NCells\n", cfg.NCells)
	fmt.Printf("%8.5f\t\t= Length\n", cfg.Length)
	fmt.Printf("%8.5f\t\t= Stretch\n", cfg.Stretch)
	fmt.Printf("%v\t= InletVelocities\n", cfg.InletVelocities)
	fmt.Printf("[%d]\t\t\t\t= Number of snapshot times\n", len(cfg.Times))
	fmt.Printf("[%d, %d, %d]\t\t= NUModes, NPModes, NNutModes\n", cfg.NUModes, cfg.NPModes, cfg.NNutModes)
}
