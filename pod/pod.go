package pod

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

// Modes is the result of a proper orthogonal decomposition, Fields are orthonormal in <,>_V
type Modes struct {
	Fields      [][]float64
	Eigenvalues []float64 // All eigenvalues of the correlation matrix, descending
}

// Energy returns the fraction of snapshot energy captured by the first n modes
func (m Modes) Energy(n int) float64 {
	var (
		total float64
	)
	for _, ev := range m.Eigenvalues {
		total += math.Max(ev, 0)
	}
	if total == 0 || n <= 0 {
		return 0
	}
	if n > len(m.Eigenvalues) {
		n = len(m.Eigenvalues)
	}
	return floats.Sum(m.Eigenvalues[:n]) / total
}

// ComputeModes extracts nModes POD modes from snapshots with the method of snapshots: the
// weighted correlation matrix C_ij = <s_i, s_j>_V is diagonalized and each mode is the
// eigenvector combination of the snapshots, normalized to unit weighted norm.
func ComputeModes(ip *InnerProduct, snapshots [][]float64, nModes int) (modes Modes, err error) {
	var (
		C      utils.Matrix
		es     mat.EigenSym
		ev     mat.Dense
		nSnap  = len(snapshots)
		values []float64
		order  []int
	)
	if nSnap == 0 {
		err = types.NewContractError("no snapshots to decompose")
		return
	}
	if nModes < 1 || nModes > nSnap {
		err = types.NewInvalidModeCount("requested %d POD modes from %d snapshots", nModes, nSnap)
		return
	}
	if C, err = MassMatrix(ip, snapshots, 0); err != nil {
		return
	}
	if ok := es.Factorize(mat.NewSymDense(nSnap, C.Data()), true); !ok {
		err = types.NewDegeneracy("eigen decomposition of the %d x %d correlation matrix failed", nSnap, nSnap)
		return
	}
	values = es.Values(nil)
	es.VectorsTo(&ev)
	order = make([]int, nSnap)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return values[order[i]] > values[order[j]] })
	modes.Eigenvalues = make([]float64, nSnap)
	for i, k := range order {
		modes.Eigenvalues[i] = values[k]
	}
	lambdaMax := modes.Eigenvalues[0]
	for n := 0; n < nModes; n++ {
		var (
			k      = order[n]
			lambda = modes.Eigenvalues[n]
			field  = make([]float64, ip.Size())
		)
		if lambdaMax <= 0 || lambda <= 1.e-12*lambdaMax {
			err = types.NewInvalidModeCount("snapshots span only %d independent modes, %d requested", n, nModes)
			return
		}
		for s := 0; s < nSnap; s++ {
			if coef := ev.At(s, k); coef != 0 {
				floats.AddScaled(field, coef, snapshots[s])
			}
		}
		nrm := math.Sqrt(ip.dot(field, field))
		floats.Scale(1/nrm, field)
		modes.Fields = append(modes.Fields, field)
	}
	return
}

// Orthonormalize makes every field orthonormal in <,>_V with modified Gram-Schmidt,
// fields that become numerically zero fail with NumericalDegeneracy.
func Orthonormalize(ip *InnerProduct, fields [][]float64) (out [][]float64, err error) {
	if err = ip.checkAll("field", fields); err != nil {
		return
	}
	for i, f := range fields {
		var (
			v    = utils.VecCopy(f)
			nrm0 = math.Sqrt(ip.dot(v, v))
		)
		for _, q := range out {
			floats.AddScaled(v, -ip.dot(q, v), q)
		}
		nrm := math.Sqrt(ip.dot(v, v))
		if nrm0 == 0 || nrm <= 1.e-10*nrm0 {
			err = types.NewDegeneracy("field %d is linearly dependent on the previous ones", i)
			return nil, err
		}
		floats.Scale(1/nrm, v)
		out = append(out, v)
	}
	return
}
