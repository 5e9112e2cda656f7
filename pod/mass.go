package pod

import (
	"math"

	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

// MassMatrix builds the Gram matrix M[i,j] = <mode_i, mode_j>_V of the first nModes modes,
// nModes == 0 means all of them. Only the upper triangle is computed, so M is exactly symmetric.
func MassMatrix(ip *InnerProduct, modes [][]float64, nModes int) (M utils.Matrix, err error) {
	var (
		active [][]float64
	)
	if active, err = activeModes(modes, nModes); err != nil {
		return
	}
	if err = ip.checkAll("mode", active); err != nil {
		return
	}
	N := len(active)
	M = utils.NewMatrix(N, N)
	for i := 0; i < N; i++ {
		for j := i; j < N; j++ {
			val := ip.dot(active[i], active[j])
			M.Set(i, j, val)
			M.Set(j, i, val)
		}
	}
	return
}

// L2Norm is the weighted norm sqrt(<field, field>)
func L2Norm(ip *InnerProduct, field []float64) (norm float64, err error) {
	var d float64
	if d, err = ip.Dot(field, field); err != nil {
		return
	}
	norm = math.Sqrt(d)
	return
}

// ErrorFieldsAbs is the weighted L2 norm of field1 - field2
func ErrorFieldsAbs(ip *InnerProduct, field1, field2 []float64) (e float64, err error) {
	if err = ip.Check("field1", field1); err != nil {
		return
	}
	if err = ip.Check("field2", field2); err != nil {
		return
	}
	for i, w := range ip.Weights {
		d := field1[i] - field2[i]
		e += w * d * d
	}
	e = math.Sqrt(e)
	return
}

// ErrorFields is the relative error |field1 - field2| / |field1| in the weighted L2 norm.
// A reference field with a norm below 1e-6 is treated as zero and reports no error.
func ErrorFields(ip *InnerProduct, field1, field2 []float64) (e float64, err error) {
	var (
		abs, ref float64
	)
	if abs, err = ErrorFieldsAbs(ip, field1, field2); err != nil {
		return
	}
	if ref, err = L2Norm(ip, field1); err != nil {
		return
	}
	if ref <= 1.e-6 {
		return 0, nil
	}
	e = abs / ref
	return
}

// ErrorListFields returns the relative error of each pair of fields in the two lists
func ErrorListFields(ip *InnerProduct, fields1, fields2 [][]float64) (e []float64, err error) {
	return errorList(ip, fields1, fields2, ErrorFields)
}

func ErrorListFieldsAbs(ip *InnerProduct, fields1, fields2 [][]float64) (e []float64, err error) {
	return errorList(ip, fields1, fields2, ErrorFieldsAbs)
}

func errorList(ip *InnerProduct, fields1, fields2 [][]float64,
	errFunc func(ip *InnerProduct, f1, f2 []float64) (float64, error)) (e []float64, err error) {
	if len(fields1) != len(fields2) {
		err = types.NewDimensionMismatch("lists of fields have different lengths, %d and %d",
			len(fields1), len(fields2))
		return
	}
	e = make([]float64, len(fields1))
	for i := range fields1 {
		if e[i], err = errFunc(ip, fields1[i], fields2[i]); err != nil {
			return nil, err
		}
	}
	return
}
