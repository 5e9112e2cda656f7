package ReducedNS

import (
	"fmt"

	"github.com/notargets/gorom/fom"
	"github.com/notargets/gorom/types"
)

// FullOrder is the read-only view of the full order problem the reduced layer is built from.
// Nothing returned by it is modified here, and no reference to it is kept after assembly.
type FullOrder interface {
	Components() int
	CellVolumes() []float64
	FullOperators() fom.Operators
	BoundaryPatches() []fom.Patch
	InletConditions() []fom.Inlet
	LiftFields() [][]float64
	VelocityModes() [][]float64
	SupremizerModes() [][]float64
	PressureModes() [][]float64
	EddyViscosityModes() [][]float64
	VelocitySnapshots() [][]float64
	PressureSnapshots() [][]float64
	SnapshotTimes() []float64
}

var _ FullOrder = (*fom.Problem)(nil)

// Formulation selects the variant of the reduced equations
type Formulation struct {
	Stabilization types.Stabilization
	BCMethod      types.BCMethod
	Turbulent     bool
	Unsteady      bool
}

func (f Formulation) String() string {
	var (
		flow = "laminar"
		time = "steady"
	)
	if f.Turbulent {
		flow = "turbulent"
	}
	if f.Unsteady {
		time = "unsteady"
	}
	return fmt.Sprintf("%s %s, %s stabilization, %s boundary conditions", time, flow, f.Stabilization, f.BCMethod)
}

// ModeConfig is the mode count configuration a set of reduced operators is assembled for
type ModeConfig struct {
	NUModes   int `json:"NUModes"`
	NPModes   int `json:"NPModes"`
	NSUPModes int `json:"NSUPModes"`
	NNutModes int `json:"NNutModes"`
	Formulation
}

// NVelocity is the size of the velocity basis for nLift lift fields
func (cfg ModeConfig) NVelocity(nLift int) int {
	if cfg.BCMethod != types.BC_Lift {
		nLift = 0
	}
	n := nLift + cfg.NUModes
	if cfg.Stabilization == types.SUP {
		n += cfg.NSUPModes
	}
	return n
}

func (cfg ModeConfig) check(full FullOrder) (err error) {
	var (
		inlets = full.InletConditions()
		lifts  = full.LiftFields()
	)
	switch {
	case cfg.NUModes < 1:
		return types.NewContractError("NUModes = %d, at least one velocity mode is needed", cfg.NUModes)
	case cfg.NPModes < 1:
		return types.NewContractError("NPModes = %d, at least one pressure mode is needed", cfg.NPModes)
	case cfg.NSUPModes < 0 || cfg.NNutModes < 0:
		return types.NewInvalidModeCount("negative mode count, NSUPModes = %d, NNutModes = %d",
			cfg.NSUPModes, cfg.NNutModes)
	case cfg.Stabilization == types.PPE && cfg.NSUPModes > 0:
		return types.NewContractError("supremizer modes (NSUPModes = %d) are not used with PPE stabilization",
			cfg.NSUPModes)
	}
	if cfg.BCMethod == types.BC_Lift && len(lifts) < len(inlets) {
		return types.NewContractError("lift method needs one lift field per inlet, have %d lifts for %d inlets",
			len(lifts), len(inlets))
	}
	for _, c := range []struct {
		name      string
		requested int
		available int
	}{
		{"velocity", cfg.NUModes, len(full.VelocityModes())},
		{"pressure", cfg.NPModes, len(full.PressureModes())},
		{"supremizer", cfg.NSUPModes, len(full.SupremizerModes())},
	} {
		if c.requested > c.available {
			return types.NewInvalidModeCount("requested %d %s modes, %d available", c.requested, c.name, c.available)
		}
	}
	if cfg.Turbulent {
		nphiU := cfg.NVelocity(len(inlets))
		if !full.FullOperators().HasTurbulence() {
			return types.NewContractError("turbulent formulation needs the eddy viscosity operators")
		}
		if cfg.NNutModes != nphiU {
			return types.NewInvalidModeCount("NNutModes = %d must equal the velocity basis size %d",
				cfg.NNutModes, nphiU)
		}
		if cfg.NNutModes > len(full.EddyViscosityModes()) {
			return types.NewInvalidModeCount("requested %d eddy viscosity modes, %d available",
				cfg.NNutModes, len(full.EddyViscosityModes()))
		}
	}
	return
}

// VelocityBasis is lift fields (lift method only) ++ velocity modes ++ supremizers (SUP only),
// in the order the reduced velocity coefficients refer to
func VelocityBasis(full FullOrder, cfg ModeConfig) (phi [][]float64) {
	if cfg.BCMethod == types.BC_Lift {
		phi = append(phi, full.LiftFields()[:len(full.InletConditions())]...)
	}
	phi = append(phi, full.VelocityModes()[:cfg.NUModes]...)
	if cfg.Stabilization == types.SUP {
		phi = append(phi, full.SupremizerModes()[:cfg.NSUPModes]...)
	}
	return
}

func PressureBasis(full FullOrder, cfg ModeConfig) (chi [][]float64) {
	return full.PressureModes()[:cfg.NPModes]
}

// Resolve fills in NNutModes for a turbulent formulation left at zero, the eddy viscosity
// basis must match the velocity basis in size
func (cfg ModeConfig) Resolve(full FullOrder) ModeConfig {
	if cfg.Turbulent && cfg.NNutModes == 0 {
		cfg.NNutModes = cfg.NVelocity(len(full.InletConditions()))
	}
	return cfg
}
