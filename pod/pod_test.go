package pod

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

func testMesh(t *testing.T) (ip *InnerProduct, x []float64) {
	// Stretched 1D mesh with two components per cell
	var (
		N       = 40
		volumes = make([]float64, N)
		xf      = 0.
	)
	x = make([]float64, N)
	for i := range volumes {
		volumes[i] = 0.01 * math.Pow(1.05, float64(i))
		x[i] = xf + 0.5*volumes[i]
		xf += volumes[i]
	}
	ip, err := NewInnerProduct(volumes, 2, true)
	require.NoError(t, err)
	return
}

func field(x []float64, f0, f1 func(x float64) float64) (f []float64) {
	f = make([]float64, 2*len(x))
	for i, xx := range x {
		f[2*i] = f0(xx)
		f[2*i+1] = f1(xx)
	}
	return
}

func TestInnerProduct(t *testing.T) {
	{
		ip, err := NewInnerProduct([]float64{1, 2, 3}, 1, true)
		assert.NoError(t, err)
		d, err := ip.Dot([]float64{1, 1, 1}, []float64{1, 2, 3})
		assert.NoError(t, err)
		assert.InDelta(t, 14, d, 1.e-14)
		ip, _ = NewInnerProduct([]float64{1, 2, 3}, 1, false)
		d, _ = ip.Dot([]float64{1, 1, 1}, []float64{1, 2, 3})
		assert.InDelta(t, 6, d, 1.e-14)
		_, err = ip.Dot([]float64{1, 1}, []float64{1, 2, 3})
		assert.True(t, errors.Is(err, types.ErrDimensionMismatch))
	}
	{
		_, err := NewInnerProduct([]float64{1, 0, 3}, 1, true)
		assert.True(t, errors.Is(err, types.ErrContractViolation))
		_, err = NewInnerProduct(nil, 1, true)
		assert.Error(t, err)
		_, err = NewInnerProduct([]float64{1}, 0, true)
		assert.Error(t, err)
	}
}

func TestMassMatrix(t *testing.T) {
	ip, x := testMesh(t)
	modes := [][]float64{
		field(x, func(x float64) float64 { return 1 }, func(x float64) float64 { return x }),
		field(x, func(x float64) float64 { return x * x }, math.Sin),
		field(x, math.Cos, func(x float64) float64 { return math.Exp(-x) }),
	}
	{ // Gram matrix is symmetric with positive diagonal
		M, err := MassMatrix(ip, modes, 0)
		assert.NoError(t, err)
		r, c := M.Dims()
		assert.Equal(t, 3, r)
		assert.Equal(t, 3, c)
		assert.True(t, M.IsSymmetric(1.e-14))
		for i := 0; i < 3; i++ {
			assert.True(t, M.At(i, i) > 0)
			d, _ := ip.Dot(modes[i], modes[i])
			assert.InDelta(t, d, M.At(i, i), 1.e-12)
		}
		M2, err := MassMatrix(ip, modes, 2)
		assert.NoError(t, err)
		r, _ = M2.Dims()
		assert.Equal(t, 2, r)
		assert.Equal(t, M.At(0, 1), M2.At(0, 1))
	}
	{
		_, err := MassMatrix(ip, modes, 4)
		assert.True(t, errors.Is(err, types.ErrInvalidModeCount))
		_, err = MassMatrix(ip, modes, -1)
		assert.True(t, errors.Is(err, types.ErrInvalidModeCount))
		_, err = MassMatrix(ip, nil, 0)
		assert.True(t, errors.Is(err, types.ErrContractViolation))
		bad := append([][]float64{}, modes...)
		bad[1] = bad[1][:10]
		_, err = MassMatrix(ip, bad, 0)
		assert.True(t, errors.Is(err, types.ErrDimensionMismatch))
	}
}

func TestProjection(t *testing.T) {
	ip, x := testMesh(t)
	modes := [][]float64{
		field(x, func(x float64) float64 { return 1 }, func(x float64) float64 { return x }),
		field(x, func(x float64) float64 { return x * x }, math.Sin),
		field(x, math.Cos, func(x float64) float64 { return math.Exp(-x) }),
	}
	{ // A field in the span of the modes round trips through projection and reconstruction
		cTrue := []float64{0.5, -2, 3.25}
		f, err := Reconstruct(modes, cTrue)
		assert.NoError(t, err)
		c, err := Coeffs(ip, f, modes, 0)
		assert.NoError(t, err)
		assert.InDeltaSlice(t, cTrue, c, 1.e-8)
		fr, _ := Reconstruct(modes, c)
		e, err := ErrorFields(ip, f, fr)
		assert.NoError(t, err)
		assert.True(t, e < 1.e-9)
	}
	{ // Batched projection agrees with the single field one
		f1, _ := Reconstruct(modes, []float64{1, 2, 3})
		f2 := field(x, math.Exp, math.Cos)
		C, err := CoeffsMatrix(ip, [][]float64{f1, f2}, modes, 2)
		assert.NoError(t, err)
		r, c := C.Dims()
		assert.Equal(t, 2, r)
		assert.Equal(t, 2, c)
		c2, _ := Coeffs(ip, f2, modes, 2)
		assert.InDeltaSlice(t, c2, C.Col(1), 1.e-12)
	}
	{ // Linearly dependent modes make the Gram matrix singular
		dup := [][]float64{modes[0], modes[1], modes[0]}
		_, err := Coeffs(ip, modes[2], dup, 0)
		assert.True(t, errors.Is(err, types.ErrNumericalDegeneracy))
	}
	{
		_, err := Coeffs(ip, modes[0][:5], modes, 0)
		assert.True(t, errors.Is(err, types.ErrDimensionMismatch))
		_, err = CoeffsOrtho(ip, modes[0], modes, 7)
		assert.True(t, errors.Is(err, types.ErrInvalidModeCount))
		_, err = Reconstruct(modes, []float64{1, 2, 3, 4})
		assert.True(t, errors.Is(err, types.ErrInvalidModeCount))
	}
}

func TestProjectionOrthogonal(t *testing.T) {
	ip, x := testMesh(t)
	raw := [][]float64{
		field(x, func(x float64) float64 { return 1 }, func(x float64) float64 { return x }),
		field(x, func(x float64) float64 { return x * x }, math.Sin),
		field(x, math.Cos, func(x float64) float64 { return math.Exp(-x) }),
	}
	ortho, err := Orthonormalize(ip, raw)
	require.NoError(t, err)
	{ // Orthonormal modes have an identity Gram matrix
		M, _ := MassMatrix(ip, ortho, 0)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if i == j {
					assert.InDelta(t, 1, M.At(i, j), 1.e-12)
				} else {
					assert.InDelta(t, 0, M.At(i, j), 1.e-12)
				}
			}
		}
	}
	target := field(x, math.Sin, func(x float64) float64 { return x * x * x })
	{ // With orthogonal modes both projections agree
		c1, err := Coeffs(ip, target, ortho, 0)
		assert.NoError(t, err)
		c2, err := CoeffsOrtho(ip, target, ortho, 0)
		assert.NoError(t, err)
		assert.InDeltaSlice(t, c1, c2, 1.e-10)
	}
	{ // On non-orthogonal modes the orthogonal formula is never better than the exact projection
		c1, _ := Coeffs(ip, target, raw, 0)
		c2, _ := CoeffsOrtho(ip, target, raw, 0)
		f1, _ := Reconstruct(raw, c1)
		f2, _ := Reconstruct(raw, c2)
		e1, _ := ErrorFieldsAbs(ip, target, f1)
		e2, _ := ErrorFieldsAbs(ip, target, f2)
		assert.True(t, e1 <= e2+1.e-12)
	}
	{ // Scaled orthogonal modes are handled by dividing by the squared norm
		scaled := [][]float64{utils.VecCopy(ortho[0]), utils.VecCopy(ortho[1])}
		for i := range scaled[0] {
			scaled[0][i] *= 3
			scaled[1][i] *= 0.5
		}
		c, err := CoeffsOrtho(ip, target, scaled, 0)
		assert.NoError(t, err)
		cRef, _ := CoeffsOrtho(ip, target, ortho, 2)
		assert.InDelta(t, cRef[0]/3, c[0], 1.e-12)
		assert.InDelta(t, cRef[1]/0.5, c[1], 1.e-12)
	}
	{
		_, err := Orthonormalize(ip, [][]float64{raw[0], raw[0]})
		assert.True(t, errors.Is(err, types.ErrNumericalDegeneracy))
	}
}

func TestErrors(t *testing.T) {
	ip, x := testMesh(t)
	f1 := field(x, math.Sin, math.Cos)
	f2 := utils.VecCopy(f1)
	for i := range f2 {
		f2[i] *= 1.1
	}
	{
		e, err := ErrorFields(ip, f1, f2)
		assert.NoError(t, err)
		assert.InDelta(t, 0.1, e, 1.e-12)
		ea, _ := ErrorFieldsAbs(ip, f1, f2)
		n1, _ := L2Norm(ip, f1)
		assert.InDelta(t, 0.1*n1, ea, 1.e-12)
	}
	{ // A zero reference field reports no relative error
		zero := make([]float64, len(f1))
		e, err := ErrorFields(ip, zero, f2)
		assert.NoError(t, err)
		assert.Equal(t, 0., e)
	}
	{
		el, err := ErrorListFields(ip, [][]float64{f1, f1}, [][]float64{f1, f2})
		assert.NoError(t, err)
		assert.InDeltaSlice(t, []float64{0, 0.1}, el, 1.e-12)
		_, err = ErrorListFieldsAbs(ip, [][]float64{f1}, [][]float64{f1, f2})
		assert.True(t, errors.Is(err, types.ErrDimensionMismatch))
	}
}

func TestComputeModes(t *testing.T) {
	ip, x := testMesh(t)
	var snaps [][]float64
	for k := 0; k < 8; k++ {
		a, b := math.Cos(float64(k)), math.Sin(0.5*float64(k))
		snaps = append(snaps, field(x,
			func(x float64) float64 { return a*x + b*x*x },
			func(x float64) float64 { return a*math.Sin(x) - b },
		))
	}
	{ // Rank two snapshot set gives two orthonormal modes capturing all energy
		modes, err := ComputeModes(ip, snaps, 2)
		assert.NoError(t, err)
		assert.Equal(t, 2, len(modes.Fields))
		M, _ := MassMatrix(ip, modes.Fields, 0)
		assert.InDelta(t, 1, M.At(0, 0), 1.e-10)
		assert.InDelta(t, 1, M.At(1, 1), 1.e-10)
		assert.InDelta(t, 0, M.At(0, 1), 1.e-10)
		assert.True(t, modes.Eigenvalues[0] >= modes.Eigenvalues[1])
		assert.InDelta(t, 1, modes.Energy(2), 1.e-10)
		for _, s := range snaps {
			c, _ := CoeffsOrtho(ip, s, modes.Fields, 0)
			sr, _ := Reconstruct(modes.Fields, c)
			e, _ := ErrorFields(ip, s, sr)
			assert.True(t, e < 1.e-8)
		}
	}
	{
		_, err := ComputeModes(ip, snaps, 3)
		assert.True(t, errors.Is(err, types.ErrInvalidModeCount))
		_, err = ComputeModes(ip, snaps, 9)
		assert.True(t, errors.Is(err, types.ErrInvalidModeCount))
		_, err = ComputeModes(ip, nil, 1)
		assert.True(t, errors.Is(err, types.ErrContractViolation))
	}
}
