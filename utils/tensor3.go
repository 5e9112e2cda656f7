package utils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor3 is a dense 3rd order tensor stored slice-major: entry (k,i,j) lives at
// k*D2*D3 + i*D3 + j, so each slice k is a contiguous row-major D2 x D3 matrix.
type Tensor3 struct {
	D1, D2, D3 int
	data       []float64
	readOnly   bool
	name       string
}

func NewTensor3(d1, d2, d3 int, dataO ...[]float64) (T Tensor3) {
	var (
		size = d1 * d2 * d3
	)
	T = Tensor3{
		D1:   d1,
		D2:   d2,
		D3:   d3,
		name: "unnamed - hint: pass a variable name to SetReadOnly()",
	}
	if len(dataO) != 0 {
		if len(dataO[0]) != size {
			err := fmt.Errorf("mismatch in allocation: NewTensor3 %d x %d x %d, len(data[0]) = %v",
				d1, d2, d3, len(dataO[0]))
			panic(err)
		}
		T.data = dataO[0]
	} else {
		T.data = make([]float64, size)
	}
	return
}

func (t Tensor3) Dims() (d1, d2, d3 int) { return t.D1, t.D2, t.D3 }
func (t Tensor3) Data() []float64        { return t.data }
func (t Tensor3) IsReadOnly() bool       { return t.readOnly }
func (t Tensor3) IsEmpty() bool          { return t.data == nil }

func (t Tensor3) At(k, i, j int) float64 {
	return t.data[t.index(k, i, j)]
}

func (t *Tensor3) SetReadOnly(name ...string) Tensor3 {
	if len(name) != 0 {
		t.name = name[0]
	}
	t.readOnly = true
	return *t
}

func (t Tensor3) Set(k, i, j int, val float64) Tensor3 { // Changes receiver
	t.checkWritable()
	t.data[t.index(k, i, j)] = val
	return t
}

// Slice returns slice k as a Matrix sharing storage with the tensor, read-only if the
// tensor is.
func (t Tensor3) Slice(k int) (R Matrix) {
	var (
		stride = t.D2 * t.D3
	)
	t.checkSlice(k)
	R = Matrix{
		M:    mat.NewDense(t.D2, t.D3, t.data[k*stride:(k+1)*stride]),
		name: fmt.Sprintf("%s[%d]", t.name, k),
	}
	R.readOnly = t.readOnly
	return
}

// Quadratic returns a^T T[k] b
func (t Tensor3) Quadratic(k int, a, b []float64) (sum float64) {
	var (
		stride = t.D2 * t.D3
	)
	t.checkSlice(k)
	if len(a) != t.D2 || len(b) != t.D3 {
		panic(fmt.Errorf("dimension mismatch in Quadratic: tensor %d x %d x %d, len(a) = %d, len(b) = %d",
			t.D1, t.D2, t.D3, len(a), len(b)))
	}
	slice := t.data[k*stride : (k+1)*stride]
	for i, ai := range a {
		if ai == 0 {
			continue
		}
		var (
			row = slice[i*t.D3 : (i+1)*t.D3]
			s   float64
		)
		for j, val := range row {
			s += val * b[j]
		}
		sum += ai * s
	}
	return
}

func (t Tensor3) Copy() (R Tensor3) {
	var (
		data = make([]float64, len(t.data))
	)
	copy(data, t.data)
	R = NewTensor3(t.D1, t.D2, t.D3, data)
	return
}

func (t Tensor3) Add(A Tensor3) Tensor3 { // Changes receiver
	t.checkWritable()
	t.checkSameDims(A)
	for i, val := range A.data {
		t.data[i] += val
	}
	return t
}

func (t Tensor3) Subtract(A Tensor3) Tensor3 { // Changes receiver
	t.checkWritable()
	t.checkSameDims(A)
	for i, val := range A.data {
		t.data[i] -= val
	}
	return t
}

func (t Tensor3) index(k, i, j int) int {
	if k < 0 || k >= t.D1 || i < 0 || i >= t.D2 || j < 0 || j >= t.D3 {
		panic(fmt.Errorf("index (%d,%d,%d) out of bounds for tensor %d x %d x %d",
			k, i, j, t.D1, t.D2, t.D3))
	}
	return k*t.D2*t.D3 + i*t.D3 + j
}

func (t Tensor3) checkSlice(k int) {
	if k < 0 || k >= t.D1 {
		panic(fmt.Errorf("slice index %d out of bounds for tensor %d x %d x %d", k, t.D1, t.D2, t.D3))
	}
}

func (t Tensor3) checkWritable() {
	if t.readOnly {
		err := fmt.Errorf("attempt to write to a read only tensor named: \"%v\"", t.name)
		panic(err)
	}
}

func (t Tensor3) checkSameDims(A Tensor3) {
	if t.D1 != A.D1 || t.D2 != A.D2 || t.D3 != A.D3 {
		err := fmt.Errorf("dimension mismatch: %d x %d x %d vs %d x %d x %d",
			t.D1, t.D2, t.D3, A.D1, A.D2, A.D3)
		panic(err)
	}
}
