// Package pod implements the volume weighted inner products, Gram (mass) matrices, modal
// projections and proper orthogonal decomposition used to build and query reduced models.
//
// Fields are flat slices, cell-major with NComp components per cell, so entry
// cell*NComp+comp holds component comp of cell cell.
package pod

import (
	"github.com/notargets/gorom/types"
)

// InnerProduct is the cell-volume weighted dot product <a,b>_V = sum_i w_i a_i b_i of finite
// volume fields. Weights are expanded to one per degree of freedom.
type InnerProduct struct {
	Weights []float64
	NComp   int
	NCells  int
}

// NewInnerProduct builds the inner product for fields with nComp components living on cells
// with the given volumes. With considerVolumes false all weights are one (plain Euclidean).
func NewInnerProduct(volumes []float64, nComp int, considerVolumes bool) (ip *InnerProduct, err error) {
	if len(volumes) == 0 {
		err = types.NewContractError("inner product needs at least one cell volume")
		return
	}
	if nComp < 1 {
		err = types.NewContractError("number of components must be positive, have %d", nComp)
		return
	}
	ip = &InnerProduct{
		Weights: make([]float64, len(volumes)*nComp),
		NComp:   nComp,
		NCells:  len(volumes),
	}
	for c, vol := range volumes {
		if considerVolumes && vol <= 0 {
			err = types.NewContractError("cell %d has non-positive volume %g", c, vol)
			return nil, err
		}
		for comp := 0; comp < nComp; comp++ {
			if considerVolumes {
				ip.Weights[c*nComp+comp] = vol
			} else {
				ip.Weights[c*nComp+comp] = 1
			}
		}
	}
	return
}

// Size is the number of degrees of freedom of a field compatible with this inner product
func (ip *InnerProduct) Size() int { return len(ip.Weights) }

func (ip *InnerProduct) Dot(a, b []float64) (d float64, err error) {
	if err = ip.Check("a", a); err != nil {
		return
	}
	if err = ip.Check("b", b); err != nil {
		return
	}
	d = ip.dot(a, b)
	return
}

func (ip *InnerProduct) dot(a, b []float64) (sum float64) {
	for i, w := range ip.Weights {
		sum += w * a[i] * b[i]
	}
	return
}

// Check fails with DimensionMismatch when a field does not live on this mesh
func (ip *InnerProduct) Check(name string, f []float64) error {
	if len(f) != len(ip.Weights) {
		return types.NewDimensionMismatch("field %s has %d entries, mesh has %d cells x %d components = %d",
			name, len(f), ip.NCells, ip.NComp, len(ip.Weights))
	}
	return nil
}

func (ip *InnerProduct) checkAll(name string, fields [][]float64) error {
	for i, f := range fields {
		if len(f) != len(ip.Weights) {
			return types.NewDimensionMismatch("%s[%d] has %d entries, mesh has %d cells x %d components = %d",
				name, i, len(f), ip.NCells, ip.NComp, len(ip.Weights))
		}
	}
	return nil
}
