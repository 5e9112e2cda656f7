package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

type Matrix struct {
	M        *mat.Dense
	readOnly bool
	name     string
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var m *mat.Dense
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v\n", nr, nc, len(dataO[0]))
			panic(err)
		}
		m = mat.NewDense(nr, nc, dataO[0])
	} else {
		m = mat.NewDense(nr, nc, make([]float64, nr*nc))
	}
	R = Matrix{
		m,
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)          { return m.M.Dims() }
func (m Matrix) At(i, j int) float64       { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix             { return m.M.T() }
func (m Matrix) RawMatrix() blas64.General { return m.M.RawMatrix() }
func (m Matrix) Data() []float64           { return m.M.RawMatrix().Data }
func (m Matrix) IsReadOnly() bool          { return m.readOnly }
func (m Matrix) Name() string              { return m.name }
func (m Matrix) IsEmpty() bool             { return m.M == nil }

// Chainable methods (extended)
func (m *Matrix) SetReadOnly(name ...string) Matrix {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m Matrix) Copy() (R Matrix) { // Does not change receiver
	var (
		data   = m.M.RawMatrix().Data
		nr, nc = m.Dims()
		dataR  = make([]float64, nr*nc)
	)
	copy(dataR, data)
	R = NewMatrix(nr, nc, dataR)
	return
}

// MulVec returns m * x, panics on a length mismatch like the rest of the package
func (m Matrix) MulVec(x []float64) (y []float64) {
	var (
		nr, _ = m.Dims()
	)
	y = make([]float64, nr)
	m.MulVecTo(y, x)
	return
}

// MulVecTo overwrites dst with m * x
func (m Matrix) MulVecTo(dst, x []float64) {
	var (
		nr, nc = m.Dims()
		data   = m.M.RawMatrix().Data
		stride = m.M.RawMatrix().Stride
	)
	if len(x) != nc || len(dst) != nr {
		panic(fmt.Errorf("dimension mismatch in MulVecTo: matrix %d x %d, len(x) = %d, len(dst) = %d",
			nr, nc, len(x), len(dst)))
	}
	for i := 0; i < nr; i++ {
		var (
			sum float64
			row = data[i*stride : i*stride+nc]
		)
		for j, val := range row {
			sum += val * x[j]
		}
		dst[i] = sum
	}
}

func (m Matrix) Set(i, j int, val float64) Matrix { // Changes receiver
	var (
		nr, nc = m.Dims()
	)
	i, j = lim(i, nr), lim(j, nc)
	m.checkWritable()
	m.M.Set(i, j, val)
	return m
}

func (m Matrix) Add(A Matrix) Matrix { // Changes receiver
	var (
		dataM = m.RawMatrix().Data
		dataA = A.RawMatrix().Data
	)
	m.checkWritable()
	m.checkSameDims(A)
	for i, val := range dataA {
		dataM[i] += val
	}
	return m
}

func (m Matrix) Subtract(A Matrix) Matrix { // Changes receiver
	var (
		data  = m.M.RawMatrix().Data
		dataA = A.M.RawMatrix().Data
	)
	m.checkWritable()
	m.checkSameDims(A)
	for i := range data {
		data[i] -= dataA[i]
	}
	return m
}

func (m Matrix) Scale(a float64) Matrix { // Changes receiver
	var (
		data = m.M.RawMatrix().Data
	)
	m.checkWritable()
	for i := range data {
		data[i] *= a
	}
	return m
}

func (m Matrix) Row(i int) (r []float64) {
	var (
		_, nc = m.Dims()
	)
	r = make([]float64, nc)
	copy(r, m.M.RawRowView(i))
	return
}

func (m Matrix) Col(j int) (c []float64) {
	var (
		nr, _ = m.Dims()
	)
	c = make([]float64, nr)
	mat.Col(c, j, m.M)
	return
}

// IsSymmetric checks M[i,j] == M[j,i] to within tol, relative to the largest entry
func (m Matrix) IsSymmetric(tol float64) bool {
	var (
		nr, nc = m.Dims()
		scale  = math.Max(math.Abs(m.Max()), math.Abs(m.Min()))
	)
	if nr != nc {
		return false
	}
	if scale == 0 {
		scale = 1
	}
	for i := 0; i < nr; i++ {
		for j := i + 1; j < nc; j++ {
			if math.Abs(m.At(i, j)-m.At(j, i)) > tol*scale {
				return false
			}
		}
	}
	return true
}

func (m Matrix) Min() (min float64) {
	var (
		data = m.M.RawMatrix().Data
	)
	min = data[0]
	for _, val := range data {
		if val < min {
			min = val
		}
	}
	return
}

func (m Matrix) Max() (max float64) {
	var (
		data = m.M.RawMatrix().Data
	)
	max = data[0]
	for _, val := range data {
		if val > max {
			max = val
		}
	}
	return
}

func (m Matrix) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m Matrix) checkSameDims(A Matrix) {
	var (
		nr, nc   = m.Dims()
		nrA, ncA = A.Dims()
	)
	if nr != nrA || nc != ncA {
		err := fmt.Errorf("dimension mismatch: %d x %d vs %d x %d", nr, nc, nrA, ncA)
		panic(err)
	}
}

func lim(i, imax int) int {
	if i < 0 {
		return imax + i // Support indexing from end, -1 is imax
	}
	return i
}
