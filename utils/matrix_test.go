package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatrix(t *testing.T) {
	// MulVec
	{
		M := NewMatrix(2, 3, []float64{
			1, 2, 3,
			4, 5, 6,
		})
		assert.Equal(t, []float64{14, 32}, M.MulVec([]float64{1, 2, 3}))
		assert.Panics(t, func() { M.MulVec([]float64{1, 2}) })
	}
	// Read only protection
	{
		M := NewMatrix(2, 2, []float64{1, 2, 2, 1})
		M.SetReadOnly("M")
		assert.Panics(t, func() { M.Set(0, 0, 3) })
		assert.Panics(t, func() { M.Scale(2) })
		C := M.Copy()
		assert.NotPanics(t, func() { C.Scale(2) })
		assert.Equal(t, 1., M.At(0, 0))
		assert.Equal(t, 2., C.At(0, 0))
	}
	// Symmetry check
	{
		M := NewMatrix(2, 2, []float64{2, 1, 1, 3})
		assert.True(t, M.IsSymmetric(1.e-14))
		assert.False(t, NewMatrix(2, 2, []float64{2, 1, 0, 3}).IsSymmetric(1.e-14))
	}
	{
		assert.True(t, IsNan(NewMatrix(1, 2, []float64{1, math.NaN()})))
		assert.False(t, IsNan([]float64{1, 2}))
	}
}

func TestTensor3(t *testing.T) {
	T := NewTensor3(2, 2, 3)
	for k := 0; k < 2; k++ {
		for i := 0; i < 2; i++ {
			for j := 0; j < 3; j++ {
				T.Set(k, i, j, float64(100*k+10*i+j))
			}
		}
	}
	{ // Slices are views into contiguous storage
		S := T.Slice(1)
		nr, nc := S.Dims()
		assert.Equal(t, 2, nr)
		assert.Equal(t, 3, nc)
		assert.Equal(t, 112., S.At(1, 2))
		S.Set(0, 0, -1)
		assert.Equal(t, -1., T.At(1, 0, 0))
		T.Set(1, 0, 0, 100)
	}
	{ // a^T T_k b
		a := []float64{1, 2}
		b := []float64{1, 0, -1}
		var expected float64
		for i := range a {
			for j := range b {
				expected += a[i] * T.At(1, i, j) * b[j]
			}
		}
		assert.Equal(t, expected, T.Quadratic(1, a, b))
		assert.PanicsWithError(t, "slice index 2 out of bounds for tensor 2 x 2 x 3", func() { T.Quadratic(2, a, b) })
		assert.Panics(t, func() { T.Quadratic(-1, a, b) })
		assert.Panics(t, func() { T.Quadratic(0, b, a) })
	}
	{ // Arithmetic and read only propagation to slices
		C := T.Copy()
		C.Add(T)
		assert.Equal(t, 2*T.At(1, 1, 2), C.At(1, 1, 2))
		C.Subtract(T).Subtract(T)
		assert.Equal(t, 0., C.At(1, 1, 2))
		T.SetReadOnly("T")
		assert.Panics(t, func() { T.Set(0, 0, 0, 1) })
		assert.Panics(t, func() { T.Slice(0).Set(0, 0, 1) })
		assert.Panics(t, func() { T.At(2, 0, 0) })
	}
}

func TestPartitionMap(t *testing.T) {
	getHisto := func(K, Np int) (histo map[int]int) {
		pm := NewPartitionMap(Np, K)
		histo = make(map[int]int)
		for np := 0; np < pm.ParallelDegree; np++ {
			kMin, kMax := pm.GetBucketRange(np)
			histo[kMax-kMin]++
		}
		return
	}
	getTotal := func(histo map[int]int) (total int) {
		for key, count := range histo {
			total += key * count
		}
		return
	}
	// Fewer items than workers collapses the degree
	assert.Equal(t, map[int]int{1: 2}, getHisto(2, 32))
	assert.Equal(t, map[int]int{1: 32}, getHisto(32, 32))
	assert.Equal(t, map[int]int{8: 1, 9: 31}, getHisto(287, 32))
	for n := 1; n < 500; n++ {
		histo := getHisto(n, 7)
		assert.Equal(t, n, getTotal(histo))
		for key := range histo {
			assert.True(t, key == n/7 || key == n/7+1 || n < 7)
		}
	}
	{ // Buckets tile the index range in order
		pm := NewPartitionMap(3, 10)
		var next int
		for np := 0; np < pm.ParallelDegree; np++ {
			kMin, kMax := pm.GetBucketRange(np)
			assert.Equal(t, next, kMin)
			next = kMax
		}
		assert.Equal(t, 10, next)
	}
}
