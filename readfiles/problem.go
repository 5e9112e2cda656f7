package readfiles

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"

	"github.com/notargets/gorom/fom"
	"github.com/notargets/gorom/utils"
)

// CSRFile stores a sparse matrix as (I, J, V) triplets
type CSRFile struct {
	Rows int       `json:"Rows"`
	Cols int       `json:"Cols"`
	I    []int     `json:"I"`
	J    []int     `json:"J"`
	V    []float64 `json:"V"`
}

// TensorFile stores a sparse 3rd order tensor as (R, S, T, V) entries
type TensorFile struct {
	D1 int       `json:"D1"`
	D2 int       `json:"D2"`
	D3 int       `json:"D3"`
	R  []int     `json:"R"`
	S  []int     `json:"S"`
	T  []int     `json:"T"`
	V  []float64 `json:"V"`
}

// ProblemFile is the on-disk form of a full order problem
type ProblemFile struct {
	Name           string      `json:"Name"`
	NComp          int         `json:"NComp"`
	Volumes        []float64   `json:"Volumes"`
	Centers        []float64   `json:"Centers,omitempty"`
	Laplacian      *CSRFile    `json:"Laplacian"`
	LaplacianT     *CSRFile    `json:"LaplacianT,omitempty"`
	Gradient       *CSRFile    `json:"Gradient"`
	Divergence     *CSRFile    `json:"Divergence"`
	Convection     *TensorFile `json:"Convection"`
	EddyDiffusion  *TensorFile `json:"EddyDiffusion,omitempty"`
	EddyDiffusionT *TensorFile `json:"EddyDiffusionT,omitempty"`
	Patches        []fom.Patch `json:"Patches"`
	Inlets         []fom.Inlet `json:"Inlets"`
	Lifts          [][]float64 `json:"Lifts,omitempty"`
	UModes         [][]float64 `json:"UModes"`
	SupModes       [][]float64 `json:"SupModes,omitempty"`
	PModes         [][]float64 `json:"PModes"`
	NutModes       [][]float64 `json:"NutModes,omitempty"`
	USnapshots     [][]float64 `json:"USnapshots,omitempty"`
	PSnapshots     [][]float64 `json:"PSnapshots,omitempty"`
	Times          []float64   `json:"Times,omitempty"`
}

func newCSRFile(m utils.CSR) *CSRFile {
	if m.IsEmpty() {
		return nil
	}
	nr, nc := m.Dims()
	I, J, V := m.Triplets()
	return &CSRFile{Rows: nr, Cols: nc, I: I, J: J, V: V}
}

func (cf *CSRFile) toCSR(name string) (m utils.CSR, err error) {
	if cf == nil {
		return
	}
	if m, err = utils.NewCSRFromTriplets(cf.Rows, cf.Cols, cf.I, cf.J, cf.V); err != nil {
		err = fmt.Errorf("operator %s: %w", name, err)
		return
	}
	m.SetReadOnly(name)
	return
}

func newTensorFile(t utils.SparseTensor3) *TensorFile {
	if t.IsEmpty() {
		return nil
	}
	d1, d2, d3 := t.Dims()
	R, S, T, V := t.Entries()
	return &TensorFile{D1: d1, D2: d2, D3: d3, R: R, S: S, T: T, V: V}
}

func (tf *TensorFile) toTensor(name string) (t utils.SparseTensor3, err error) {
	if tf == nil {
		return
	}
	if t, err = utils.NewSparseTensor3FromEntries(tf.D1, tf.D2, tf.D3, tf.R, tf.S, tf.T, tf.V); err != nil {
		err = fmt.Errorf("operator %s: %w", name, err)
	}
	return
}

func NewProblemFile(p *fom.Problem) (pf *ProblemFile) {
	d := p.Data()
	pf = &ProblemFile{
		Name:           d.Name,
		NComp:          d.NComp,
		Volumes:        d.Volumes,
		Centers:        d.Centers,
		Laplacian:      newCSRFile(d.Ops.Laplacian),
		LaplacianT:     newCSRFile(d.Ops.LaplacianT),
		Gradient:       newCSRFile(d.Ops.Gradient),
		Divergence:     newCSRFile(d.Ops.Divergence),
		Convection:     newTensorFile(d.Ops.Convection),
		EddyDiffusion:  newTensorFile(d.Ops.EddyDiffusion),
		EddyDiffusionT: newTensorFile(d.Ops.EddyDiffusionT),
		Patches:        d.Patches,
		Inlets:         d.Inlets,
		Lifts:          d.Lifts,
		UModes:         d.UModes,
		SupModes:       d.SupModes,
		PModes:         d.PModes,
		NutModes:       d.NutModes,
		USnapshots:     d.USnapshots,
		PSnapshots:     d.PSnapshots,
		Times:          d.Times,
	}
	return
}

// Problem rebuilds and validates the full order problem
func (pf *ProblemFile) Problem() (p *fom.Problem, err error) {
	d := fom.Data{
		Name:       pf.Name,
		NComp:      pf.NComp,
		Volumes:    pf.Volumes,
		Centers:    pf.Centers,
		Patches:    pf.Patches,
		Inlets:     pf.Inlets,
		Lifts:      pf.Lifts,
		UModes:     pf.UModes,
		SupModes:   pf.SupModes,
		PModes:     pf.PModes,
		NutModes:   pf.NutModes,
		USnapshots: pf.USnapshots,
		PSnapshots: pf.PSnapshots,
		Times:      pf.Times,
	}
	for _, op := range []struct {
		name string
		cf   *CSRFile
		dst  *utils.CSR
	}{
		{"Laplacian", pf.Laplacian, &d.Ops.Laplacian},
		{"LaplacianT", pf.LaplacianT, &d.Ops.LaplacianT},
		{"Gradient", pf.Gradient, &d.Ops.Gradient},
		{"Divergence", pf.Divergence, &d.Ops.Divergence},
	} {
		if *op.dst, err = op.cf.toCSR(op.name); err != nil {
			return
		}
	}
	for _, op := range []struct {
		name string
		tf   *TensorFile
		dst  *utils.SparseTensor3
	}{
		{"Convection", pf.Convection, &d.Ops.Convection},
		{"EddyDiffusion", pf.EddyDiffusion, &d.Ops.EddyDiffusion},
		{"EddyDiffusionT", pf.EddyDiffusionT, &d.Ops.EddyDiffusionT},
	} {
		if *op.dst, err = op.tf.toTensor(op.name); err != nil {
			return
		}
	}
	return fom.NewProblem(d)
}

func WriteProblem(fileName string, p *fom.Problem) (err error) {
	var data []byte
	if data, err = yaml.Marshal(NewProblemFile(p)); err != nil {
		return
	}
	return os.WriteFile(fileName, data, 0644)
}

func ReadProblem(fileName string, verbose bool) (p *fom.Problem, err error) {
	var (
		data []byte
		pf   ProblemFile
	)
	if data, err = os.ReadFile(fileName); err != nil {
		return
	}
	if err = yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", fileName, err)
	}
	if p, err = pf.Problem(); err != nil {
		return nil, fmt.Errorf("problem in %s: %w", fileName, err)
	}
	if verbose {
		fmt.Printf("Read full order problem %q from %s\n", p.Name(), fileName)
		fmt.Printf("Number of cells = %d, components = %d, inlets = %d\n",
			p.NCells(), p.Components(), len(p.InletConditions()))
		fmt.Printf("Modes: velocity = %d, supremizer = %d, pressure = %d, eddy viscosity = %d, snapshots = %d\n",
			len(p.VelocityModes()), len(p.SupremizerModes()), len(p.PressureModes()),
			len(p.EddyViscosityModes()), len(p.VelocitySnapshots()))
	}
	return
}
