package pod

import (
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

func activeModes(modes [][]float64, nModes int) (active [][]float64, err error) {
	switch {
	case len(modes) == 0:
		err = types.NewContractError("empty mode list")
	case nModes < 0 || nModes > len(modes):
		err = types.NewInvalidModeCount("requested %d modes, %d available", nModes, len(modes))
	case nModes == 0:
		active = modes
	default:
		active = modes[:nModes]
	}
	return
}

// Coeffs projects a field onto the span of the first nModes (possibly non-orthogonal) modes,
// solving M c = r with M the Gram matrix and r_i = <mode_i, field>_V.
func Coeffs(ip *InnerProduct, field []float64, modes [][]float64, nModes int) (c []float64, err error) {
	var (
		C utils.Matrix
	)
	if C, err = CoeffsMatrix(ip, [][]float64{field}, modes, nModes); err != nil {
		return
	}
	c = C.Col(0)
	return
}

// CoeffsMatrix projects a batch of fields at once, returning an nModes x len(fields) matrix
// whose column k holds the coefficients of fields[k]. The Gram matrix is factored once.
func CoeffsMatrix(ip *InnerProduct, fields [][]float64, modes [][]float64, nModes int) (C utils.Matrix, err error) {
	var (
		M      utils.Matrix
		chol   mat.Cholesky
		active [][]float64
		R      utils.Matrix
	)
	if M, err = MassMatrix(ip, modes, nModes); err != nil {
		return
	}
	active, _ = activeModes(modes, nModes)
	if err = ip.checkAll("field", fields); err != nil {
		return
	}
	if ok := chol.Factorize(mat.NewSymDense(len(active), M.Data())); !ok {
		err = types.NewDegeneracy("gram matrix of %d modes is not positive definite, modes are linearly dependent",
			len(active))
		return
	}
	if cond := chol.Cond(); cond > 1.e14 {
		err = types.NewDegeneracy("gram matrix of %d modes is numerically singular, condition number %g",
			len(active), cond)
		return
	}
	R = projectionRHS(ip, fields, active)
	C = utils.NewMatrix(len(active), len(fields))
	if err = chol.SolveTo(C.M, R.M); err != nil {
		err = types.NewDegeneracy("solving the projection system: %v", err)
	}
	return
}

// CoeffsOrtho projects a field onto modes that are orthogonal in <,>_V, c_i = <mode_i, f>/|mode_i|^2
func CoeffsOrtho(ip *InnerProduct, field []float64, modes [][]float64, nModes int) (c []float64, err error) {
	var (
		C utils.Matrix
	)
	if C, err = CoeffsOrthoMatrix(ip, [][]float64{field}, modes, nModes); err != nil {
		return
	}
	c = C.Col(0)
	return
}

func CoeffsOrthoMatrix(ip *InnerProduct, fields [][]float64, modes [][]float64, nModes int) (C utils.Matrix, err error) {
	var (
		active [][]float64
	)
	if active, err = activeModes(modes, nModes); err != nil {
		return
	}
	if err = ip.checkAll("mode", active); err != nil {
		return
	}
	if err = ip.checkAll("field", fields); err != nil {
		return
	}
	C = projectionRHS(ip, fields, active)
	for i, m := range active {
		nrm2 := ip.dot(m, m)
		if nrm2 == 0 {
			err = types.NewDegeneracy("mode %d has zero norm", i)
			return
		}
		for k := range fields {
			C.Set(i, k, C.At(i, k)/nrm2)
		}
	}
	return
}

func projectionRHS(ip *InnerProduct, fields, modes [][]float64) (R utils.Matrix) {
	R = utils.NewMatrix(len(modes), len(fields))
	for i, m := range modes {
		for k, f := range fields {
			R.Set(i, k, ip.dot(m, f))
		}
	}
	return
}

// Reconstruct returns sum_i c_i mode_i using the first len(c) modes
func Reconstruct(modes [][]float64, c []float64) (field []float64, err error) {
	if len(c) == 0 || len(c) > len(modes) {
		err = types.NewInvalidModeCount("%d coefficients for %d modes", len(c), len(modes))
		return
	}
	field = make([]float64, len(modes[0]))
	for i, ci := range c {
		if len(modes[i]) != len(field) {
			err = types.NewDimensionMismatch("mode %d has %d entries, mode 0 has %d", i, len(modes[i]), len(field))
			return nil, err
		}
		if ci == 0 {
			continue
		}
		for n, val := range modes[i] {
			field[n] += ci * val
		}
	}
	return
}
