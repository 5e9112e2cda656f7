package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// DOK is used to build sparse operators entry by entry before compressing them to CSR
type DOK struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }

// Accumulate adds val into entry (i,j), the way finite volume stencils are assembled
func (m DOK) Accumulate(i, j int, val float64) DOK { // Changes receiver
	var (
		nr, nc = m.Dims()
	)
	m.checkWritable()
	if i < 0 || i >= nr || j < 0 || j >= nc {
		panic(fmt.Errorf("index (%d,%d) out of bounds for %d x %d sparse matrix", i, j, nr, nc))
	}
	if val == 0 {
		return m
	}
	m.M.Set(i, j, m.M.At(i, j)+val)
	return m
}

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m DOK) ToCSR() CSR {
	return CSR{
		M:        m.M.ToCSR(),
		readOnly: m.readOnly,
		name:     m.name,
	}
}

type CSR struct {
	M        *sparse.CSR
	readOnly bool
	name     string
}

// NewCSRFromTriplets builds a CSR matrix, duplicate (i,j) entries are summed
func NewCSRFromTriplets(nr, nc int, I, J []int, V []float64) (R CSR, err error) {
	if len(I) != len(J) || len(I) != len(V) {
		err = fmt.Errorf("length of triplets not equal: len(I) = %d, len(J) = %d, len(V) = %d",
			len(I), len(J), len(V))
		return
	}
	dok := NewDOK(nr, nc)
	for n := range I {
		if I[n] < 0 || I[n] >= nr || J[n] < 0 || J[n] >= nc {
			err = fmt.Errorf("triplet %d index (%d,%d) out of bounds for %d x %d", n, I[n], J[n], nr, nc)
			return
		}
		dok.Accumulate(I[n], J[n], V[n])
	}
	R = dok.ToCSR()
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }
func (m CSR) Data() []float64 {
	return m.RawMatrix().Data
}
func (m CSR) NNZ() int       { return m.M.NNZ() }
func (m CSR) IsEmpty() bool  { return m.M == nil }
func (m CSR) String() string { return m.name }

func (m *CSR) SetReadOnly(name ...string) CSR {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

// MulVecTo overwrites dst with m * x
func (m CSR) MulVecTo(dst, x []float64) {
	var (
		raw    = m.RawMatrix()
		nr, nc = m.Dims()
	)
	if len(x) != nc || len(dst) != nr {
		panic(fmt.Errorf("dimension mismatch in sparse MulVecTo: matrix %d x %d, len(x) = %d, len(dst) = %d",
			nr, nc, len(x), len(dst)))
	}
	for i := 0; i < nr; i++ {
		var sum float64
		for ind := raw.Indptr[i]; ind < raw.Indptr[i+1]; ind++ {
			sum += raw.Data[ind] * x[raw.Ind[ind]]
		}
		dst[i] = sum
	}
}

func (m CSR) MulVec(x []float64) (y []float64) {
	var (
		nr, _ = m.Dims()
	)
	y = make([]float64, nr)
	m.MulVecTo(y, x)
	return
}

// Triplets lists the stored entries in row order
func (m CSR) Triplets() (I, J []int, V []float64) {
	var (
		raw   = m.RawMatrix()
		nr, _ = m.Dims()
	)
	for i := 0; i < nr; i++ {
		for ind := raw.Indptr[i]; ind < raw.Indptr[i+1]; ind++ {
			I = append(I, i)
			J = append(J, raw.Ind[ind])
			V = append(V, raw.Data[ind])
		}
	}
	return
}

// SparseTensor3 is a 3rd order sparse tensor T[r][s][t], stored as a D1 x (D2*D3) CSR
// matrix with flattened (s,t) column indices. It represents a full order bilinear operator
// y_r = sum_st T[r][s][t] u_s v_t, e.g. convection div(u v).
type SparseTensor3 struct {
	D1, D2, D3 int
	csr        CSR
}

type SparseTensor3Builder struct {
	D1, D2, D3 int
	dok        DOK
}

func NewSparseTensor3Builder(d1, d2, d3 int) *SparseTensor3Builder {
	return &SparseTensor3Builder{
		D1:  d1,
		D2:  d2,
		D3:  d3,
		dok: NewDOK(d1, d2*d3),
	}
}

func (b *SparseTensor3Builder) Accumulate(r, s, t int, val float64) *SparseTensor3Builder {
	if s < 0 || s >= b.D2 || t < 0 || t >= b.D3 {
		panic(fmt.Errorf("index (%d,%d,%d) out of bounds for sparse tensor %d x %d x %d",
			r, s, t, b.D1, b.D2, b.D3))
	}
	b.dok.Accumulate(r, s*b.D3+t, val)
	return b
}

func (b *SparseTensor3Builder) Build() SparseTensor3 {
	return SparseTensor3{
		D1:  b.D1,
		D2:  b.D2,
		D3:  b.D3,
		csr: b.dok.ToCSR(),
	}
}

func NewSparseTensor3FromEntries(d1, d2, d3 int, R, S, T []int, V []float64) (st SparseTensor3, err error) {
	if len(R) != len(S) || len(R) != len(T) || len(R) != len(V) {
		err = fmt.Errorf("length of tensor entries not equal: %d, %d, %d, %d", len(R), len(S), len(T), len(V))
		return
	}
	b := NewSparseTensor3Builder(d1, d2, d3)
	for n := range R {
		if R[n] < 0 || R[n] >= d1 || S[n] < 0 || S[n] >= d2 || T[n] < 0 || T[n] >= d3 {
			err = fmt.Errorf("tensor entry %d index (%d,%d,%d) out of bounds for %d x %d x %d",
				n, R[n], S[n], T[n], d1, d2, d3)
			return
		}
		b.Accumulate(R[n], S[n], T[n], V[n])
	}
	st = b.Build()
	return
}

func (st SparseTensor3) Dims() (d1, d2, d3 int) { return st.D1, st.D2, st.D3 }
func (st SparseTensor3) IsEmpty() bool          { return st.csr.M == nil }
func (st SparseTensor3) NNZ() int               { return st.csr.NNZ() }

// Apply overwrites dst with y_r = sum_st T[r][s][t] u_s v_t
func (st SparseTensor3) Apply(dst, u, v []float64) {
	var (
		raw = st.csr.RawMatrix()
	)
	if len(dst) != st.D1 || len(u) != st.D2 || len(v) != st.D3 {
		panic(fmt.Errorf("dimension mismatch in tensor Apply: tensor %d x %d x %d, len(dst), len(u), len(v) = %d, %d, %d",
			st.D1, st.D2, st.D3, len(dst), len(u), len(v)))
	}
	for r := 0; r < st.D1; r++ {
		var sum float64
		for ind := raw.Indptr[r]; ind < raw.Indptr[r+1]; ind++ {
			col := raw.Ind[ind]
			s, t := col/st.D3, col%st.D3
			sum += raw.Data[ind] * u[s] * v[t]
		}
		dst[r] = sum
	}
}

func (st SparseTensor3) Entries() (R, S, T []int, V []float64) {
	I, J, vals := st.csr.Triplets()
	R, S, T = make([]int, len(I)), make([]int, len(I)), make([]int, len(I))
	for n := range I {
		R[n] = I[n]
		S[n], T[n] = J[n]/st.D3, J[n]%st.D3
	}
	V = vals
	return
}

// Scaled returns a copy with every entry multiplied by a
func (st SparseTensor3) Scaled(a float64) SparseTensor3 {
	R, S, T, V := st.Entries()
	b := NewSparseTensor3Builder(st.D1, st.D2, st.D3)
	for n := range R {
		b.Accumulate(R[n], S[n], T[n], a*V[n])
	}
	return b.Build()
}
