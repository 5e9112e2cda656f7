// Package fom holds the full order data a reduced model is built from: cell volumes, sparse
// operators, boundary patches, lift fields, mode bases and snapshots. A Problem is a read-only
// view of that data once validated.
package fom

import (
	"fmt"

	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

/*
Velocity fields have NComp components per cell, cell-major. Pressure and eddy viscosity
fields are scalar, one value per cell.

Operator shapes, with Nv = NCells*NComp and Np = NCells:

	Laplacian, LaplacianT:	Nv x Nv		div(grad u), div(dev2(grad^T u))
	Gradient:				Nv x Np		grad p
	Divergence:				Np x Nv		div u
	Convection:				Nv x Nv x Nv	div(u v)
	EddyDiffusion(T):		Nv x Np x Nv	div(nut grad u), div(nut dev2(grad^T u))
*/
type Operators struct {
	Laplacian      utils.CSR
	LaplacianT     utils.CSR
	Gradient       utils.CSR
	Divergence     utils.CSR
	Convection     utils.SparseTensor3
	EddyDiffusion  utils.SparseTensor3
	EddyDiffusionT utils.SparseTensor3
}

// HasTurbulence reports whether the eddy viscosity operators are present
func (ops Operators) HasTurbulence() bool {
	return !ops.LaplacianT.IsEmpty() && !ops.EddyDiffusion.IsEmpty() && !ops.EddyDiffusionT.IsEmpty()
}

// Inlet is a parametrized Dirichlet condition on one velocity component of a patch
type Inlet struct {
	Patch     int `json:"Patch"`
	Component int `json:"Component"`
}

type Data struct {
	Name    string
	NComp   int
	Volumes []float64
	Centers []float64 // Optional, used for output only
	Ops     Operators
	Patches []Patch
	Inlets  []Inlet
	// One lift field per inlet, unit trace on its own inlet and zero trace on the others
	Lifts            [][]float64
	UModes, SupModes [][]float64
	PModes, NutModes [][]float64
	// Snapshots are kept for initial conditions of unsteady runs
	USnapshots, PSnapshots [][]float64
	Times                  []float64
}

type Problem struct {
	d Data
}

func NewProblem(d Data) (p *Problem, err error) {
	if err = d.Validate(); err != nil {
		return
	}
	p = &Problem{d: d}
	return
}

func (p *Problem) Name() string                    { return p.d.Name }
func (p *Problem) Components() int                 { return p.d.NComp }
func (p *Problem) NCells() int                     { return len(p.d.Volumes) }
func (p *Problem) CellVolumes() []float64          { return p.d.Volumes }
func (p *Problem) CellCenters() []float64          { return p.d.Centers }
func (p *Problem) FullOperators() Operators        { return p.d.Ops }
func (p *Problem) BoundaryPatches() []Patch        { return p.d.Patches }
func (p *Problem) InletConditions() []Inlet        { return p.d.Inlets }
func (p *Problem) LiftFields() [][]float64         { return p.d.Lifts }
func (p *Problem) VelocityModes() [][]float64      { return p.d.UModes }
func (p *Problem) SupremizerModes() [][]float64    { return p.d.SupModes }
func (p *Problem) PressureModes() [][]float64      { return p.d.PModes }
func (p *Problem) EddyViscosityModes() [][]float64 { return p.d.NutModes }
func (p *Problem) VelocitySnapshots() [][]float64  { return p.d.USnapshots }
func (p *Problem) PressureSnapshots() [][]float64  { return p.d.PSnapshots }
func (p *Problem) SnapshotTimes() []float64        { return p.d.Times }

// Data returns the underlying data, callers must treat it as read-only
func (p *Problem) Data() Data { return p.d }

func (d Data) Validate() (err error) {
	var (
		nCells = len(d.Volumes)
		nv     = nCells * d.NComp
		np     = nCells
	)
	if nCells == 0 {
		return types.NewContractError("problem %q has no cells", d.Name)
	}
	if d.NComp < 1 {
		return types.NewContractError("problem %q has %d velocity components", d.Name, d.NComp)
	}
	for i, vol := range d.Volumes {
		if vol <= 0 {
			return types.NewContractError("cell %d has non-positive volume %g", i, vol)
		}
	}
	if len(d.Centers) != 0 && len(d.Centers) != nCells {
		return types.NewDimensionMismatch("%d cell centers for %d cells", len(d.Centers), nCells)
	}
	if err = checkCSR("Laplacian", d.Ops.Laplacian, nv, nv, true); err != nil {
		return
	}
	if err = checkCSR("LaplacianT", d.Ops.LaplacianT, nv, nv, false); err != nil {
		return
	}
	if err = checkCSR("Gradient", d.Ops.Gradient, nv, np, true); err != nil {
		return
	}
	if err = checkCSR("Divergence", d.Ops.Divergence, np, nv, true); err != nil {
		return
	}
	if err = checkTensor("Convection", d.Ops.Convection, nv, nv, nv, true); err != nil {
		return
	}
	if err = checkTensor("EddyDiffusion", d.Ops.EddyDiffusion, nv, np, nv, false); err != nil {
		return
	}
	if err = checkTensor("EddyDiffusionT", d.Ops.EddyDiffusionT, nv, np, nv, false); err != nil {
		return
	}
	for i, patch := range d.Patches {
		if err = patch.check(nCells); err != nil {
			return fmt.Errorf("patch %d: %w", i, err)
		}
	}
	for i, in := range d.Inlets {
		if in.Patch < 0 || in.Patch >= len(d.Patches) {
			return types.NewContractError("inlet %d refers to patch %d, have %d patches", i, in.Patch, len(d.Patches))
		}
		if in.Component < 0 || in.Component >= d.NComp {
			return types.NewContractError("inlet %d constrains component %d, fields have %d", i, in.Component, d.NComp)
		}
	}
	if len(d.Lifts) != 0 && len(d.Lifts) != len(d.Inlets) {
		return types.NewContractError("%d lift fields for %d inlets", len(d.Lifts), len(d.Inlets))
	}
	for _, fl := range []struct {
		name   string
		fields [][]float64
		size   int
	}{
		{"lift", d.Lifts, nv},
		{"velocity mode", d.UModes, nv},
		{"supremizer mode", d.SupModes, nv},
		{"pressure mode", d.PModes, np},
		{"eddy viscosity mode", d.NutModes, np},
		{"velocity snapshot", d.USnapshots, nv},
		{"pressure snapshot", d.PSnapshots, np},
	} {
		for i, f := range fl.fields {
			if len(f) != fl.size {
				return types.NewDimensionMismatch("%s %d has %d entries, want %d", fl.name, i, len(f), fl.size)
			}
		}
	}
	if len(d.PSnapshots) != 0 && len(d.PSnapshots) != len(d.USnapshots) {
		return types.NewContractError("%d pressure snapshots for %d velocity snapshots",
			len(d.PSnapshots), len(d.USnapshots))
	}
	if len(d.Times) != 0 && len(d.Times) != len(d.USnapshots) {
		return types.NewContractError("%d snapshot times for %d snapshots", len(d.Times), len(d.USnapshots))
	}
	return
}

func checkCSR(name string, m utils.CSR, nr, nc int, required bool) error {
	if m.IsEmpty() {
		if required {
			return types.NewContractError("operator %s is missing", name)
		}
		return nil
	}
	if r, c := m.Dims(); r != nr || c != nc {
		return types.NewDimensionMismatch("operator %s is %d x %d, want %d x %d", name, r, c, nr, nc)
	}
	return nil
}

func checkTensor(name string, t utils.SparseTensor3, d1, d2, d3 int, required bool) error {
	if t.IsEmpty() {
		if required {
			return types.NewContractError("operator %s is missing", name)
		}
		return nil
	}
	if a, b, c := t.Dims(); a != d1 || b != d2 || c != d3 {
		return types.NewDimensionMismatch("operator %s is %d x %d x %d, want %d x %d x %d",
			name, a, b, c, d1, d2, d3)
	}
	return nil
}
