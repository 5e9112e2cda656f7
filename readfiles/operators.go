package readfiles

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"

	"github.com/notargets/gorom/model_problems/ReducedNS"
	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

type MatrixFile struct {
	Rows int       `json:"Rows"`
	Cols int       `json:"Cols"`
	Data []float64 `json:"Data"`
}

type Tensor3File struct {
	D1   int       `json:"D1"`
	D2   int       `json:"D2"`
	D3   int       `json:"D3"`
	Data []float64 `json:"Data"`
}

// OperatorsFile caches the reduced operators between the offline and online stages
type OperatorsFile struct {
	NUModes        int           `json:"NUModes"`
	NPModes        int           `json:"NPModes"`
	NSUPModes      int           `json:"NSUPModes"`
	NNutModes      int           `json:"NNutModes"`
	Stabilization  string        `json:"Stabilization"`
	BCMethod       string        `json:"BCMethod"`
	Turbulent      bool          `json:"Turbulent"`
	Unsteady       bool          `json:"Unsteady"`
	NBC            int           `json:"NBC"`
	NInlets        int           `json:"NInlets"`
	NphiU          int           `json:"NphiU"`
	NphiP          int           `json:"NphiP"`
	M              *MatrixFile   `json:"M"`
	B              *MatrixFile   `json:"B"`
	BT             *MatrixFile   `json:"BT,omitempty"`
	K              *MatrixFile   `json:"K"`
	P              *MatrixFile   `json:"P,omitempty"`
	D              *MatrixFile   `json:"D,omitempty"`
	BTotal         *MatrixFile   `json:"BTotal"`
	C              *Tensor3File  `json:"C"`
	CT1            *Tensor3File  `json:"CT1,omitempty"`
	CT2            *Tensor3File  `json:"CT2,omitempty"`
	CTotal         *Tensor3File  `json:"CTotal"`
	G              *Tensor3File  `json:"G,omitempty"`
	BCVelVec       [][]float64   `json:"BCVelVec,omitempty"`
	BCVelMat       []*MatrixFile `json:"BCVelMat,omitempty"`
	LiftScale      []float64     `json:"LiftScale,omitempty"`
	SnapshotCoeffs *MatrixFile   `json:"SnapshotCoeffs,omitempty"`
	SnapshotTimes  []float64     `json:"SnapshotTimes,omitempty"`
}

func newMatrixFile(m utils.Matrix) *MatrixFile {
	if m.IsEmpty() {
		return nil
	}
	nr, nc := m.Dims()
	data := make([]float64, nr*nc)
	for i := 0; i < nr; i++ {
		copy(data[i*nc:(i+1)*nc], m.Row(i))
	}
	return &MatrixFile{Rows: nr, Cols: nc, Data: data}
}

func (mf *MatrixFile) toMatrix() (m utils.Matrix, err error) {
	if mf == nil {
		return
	}
	if len(mf.Data) != mf.Rows*mf.Cols {
		err = types.NewDimensionMismatch("matrix %d x %d has %d entries", mf.Rows, mf.Cols, len(mf.Data))
		return
	}
	m = utils.NewMatrix(mf.Rows, mf.Cols, mf.Data)
	return
}

func newTensor3File(t utils.Tensor3) *Tensor3File {
	if t.IsEmpty() {
		return nil
	}
	d1, d2, d3 := t.Dims()
	return &Tensor3File{D1: d1, D2: d2, D3: d3, Data: t.Data()}
}

func (tf *Tensor3File) toTensor3() (t utils.Tensor3, err error) {
	if tf == nil {
		return
	}
	if len(tf.Data) != tf.D1*tf.D2*tf.D3 {
		err = types.NewDimensionMismatch("tensor %d x %d x %d has %d entries", tf.D1, tf.D2, tf.D3, len(tf.Data))
		return
	}
	t = utils.NewTensor3(tf.D1, tf.D2, tf.D3, tf.Data)
	return
}

func NewOperatorsFile(ops *ReducedNS.Operators) (of *OperatorsFile) {
	cfg := ops.Config
	of = &OperatorsFile{
		NUModes:        cfg.NUModes,
		NPModes:        cfg.NPModes,
		NSUPModes:      cfg.NSUPModes,
		NNutModes:      cfg.NNutModes,
		Stabilization:  cfg.Stabilization.String(),
		BCMethod:       cfg.BCMethod.String(),
		Turbulent:      cfg.Turbulent,
		Unsteady:       cfg.Unsteady,
		NBC:            ops.NBC,
		NInlets:        ops.NInlets,
		NphiU:          ops.NphiU,
		NphiP:          ops.NphiP,
		M:              newMatrixFile(ops.M),
		B:              newMatrixFile(ops.B),
		BT:             newMatrixFile(ops.BT),
		K:              newMatrixFile(ops.K),
		P:              newMatrixFile(ops.P),
		D:              newMatrixFile(ops.D),
		BTotal:         newMatrixFile(ops.BTotal),
		C:              newTensor3File(ops.C),
		CT1:            newTensor3File(ops.CT1),
		CT2:            newTensor3File(ops.CT2),
		CTotal:         newTensor3File(ops.CTotal),
		G:              newTensor3File(ops.G),
		BCVelVec:       ops.BCVelVec,
		LiftScale:      ops.LiftScale,
		SnapshotCoeffs: newMatrixFile(ops.SnapshotCoeffs),
		SnapshotTimes:  ops.SnapshotTimes,
	}
	for _, m := range ops.BCVelMat {
		of.BCVelMat = append(of.BCVelMat, newMatrixFile(m))
	}
	return
}

func (of *OperatorsFile) ModeConfig() (cfg ReducedNS.ModeConfig, err error) {
	cfg = ReducedNS.ModeConfig{
		NUModes:   of.NUModes,
		NPModes:   of.NPModes,
		NSUPModes: of.NSUPModes,
		NNutModes: of.NNutModes,
	}
	if cfg.Stabilization, err = types.NewStabilization(of.Stabilization); err != nil {
		return
	}
	if cfg.BCMethod, err = types.NewBCMethod(of.BCMethod); err != nil {
		return
	}
	cfg.Turbulent, cfg.Unsteady = of.Turbulent, of.Unsteady
	return
}

// Operators rebuilds, validates and freezes the cached operators
func (of *OperatorsFile) Operators() (ops *ReducedNS.Operators, err error) {
	ops = &ReducedNS.Operators{
		NBC:           of.NBC,
		NInlets:       of.NInlets,
		NphiU:         of.NphiU,
		NphiP:         of.NphiP,
		BCVelVec:      of.BCVelVec,
		LiftScale:     of.LiftScale,
		SnapshotTimes: of.SnapshotTimes,
	}
	if ops.Config, err = of.ModeConfig(); err != nil {
		return nil, err
	}
	for _, m := range []struct {
		name string
		mf   *MatrixFile
		dst  *utils.Matrix
	}{
		{"M", of.M, &ops.M}, {"B", of.B, &ops.B}, {"BT", of.BT, &ops.BT}, {"K", of.K, &ops.K},
		{"P", of.P, &ops.P}, {"D", of.D, &ops.D}, {"BTotal", of.BTotal, &ops.BTotal},
		{"SnapshotCoeffs", of.SnapshotCoeffs, &ops.SnapshotCoeffs},
	} {
		if *m.dst, err = m.mf.toMatrix(); err != nil {
			return nil, fmt.Errorf("reduced operator %s: %w", m.name, err)
		}
	}
	for _, t := range []struct {
		name string
		tf   *Tensor3File
		dst  *utils.Tensor3
	}{
		{"C", of.C, &ops.C}, {"CT1", of.CT1, &ops.CT1}, {"CT2", of.CT2, &ops.CT2},
		{"CTotal", of.CTotal, &ops.CTotal}, {"G", of.G, &ops.G},
	} {
		if *t.dst, err = t.tf.toTensor3(); err != nil {
			return nil, fmt.Errorf("reduced operator %s: %w", t.name, err)
		}
	}
	for l, mf := range of.BCVelMat {
		var m utils.Matrix
		if m, err = mf.toMatrix(); err != nil {
			return nil, fmt.Errorf("reduced operator BCVelMat[%d]: %w", l, err)
		}
		ops.BCVelMat = append(ops.BCVelMat, m)
	}
	if err = ops.Validate(); err != nil {
		return nil, err
	}
	ops.SetReadOnly()
	return
}

func WriteOperators(fileName string, ops *ReducedNS.Operators) (err error) {
	var data []byte
	if data, err = yaml.Marshal(NewOperatorsFile(ops)); err != nil {
		return
	}
	return os.WriteFile(fileName, data, 0644)
}

func ReadOperators(fileName string) (ops *ReducedNS.Operators, err error) {
	var (
		data []byte
		of   OperatorsFile
	)
	if data, err = os.ReadFile(fileName); err != nil {
		return
	}
	if err = yaml.Unmarshal(data, &of); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", fileName, err)
	}
	if ops, err = of.Operators(); err != nil {
		return nil, fmt.Errorf("operator cache %s: %w", fileName, err)
	}
	return
}
