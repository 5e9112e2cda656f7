package fom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gorom/pod"
	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

// Channel1DConfig describes a synthetic stretched 1D channel with a parametrized inlet
// velocity on the west face and a wall on the east face.
type Channel1DConfig struct {
	NCells          int
	Length          float64
	Stretch         float64 // Ratio of consecutive cell sizes
	InletVelocities []float64
	Times           []float64
	NUModes         int
	NPModes         int
	NNutModes       int
	Smagorinsky     float64
}

func DefaultChannel1DConfig() Channel1DConfig {
	var (
		times = make([]float64, 11)
	)
	for i := range times {
		times[i] = 0.1 * float64(i)
	}
	return Channel1DConfig{
		NCells:          80,
		Length:          1,
		Stretch:         1.02,
		InletVelocities: []float64{0.5, 1, 1.5, 2},
		Times:           times,
		NUModes:         3,
		NPModes:         2,
		NNutModes:       8,
		Smagorinsky:     0.17,
	}
}

type channelMesh struct {
	N       int
	L       float64
	h, c    []float64 // Cell sizes and centers
	xFaces  []float64
	volumes []float64
}

func newChannelMesh(N int, L, r float64) (m channelMesh) {
	var (
		h0 float64
	)
	if r == 1 {
		h0 = L / float64(N)
	} else {
		h0 = L * (r - 1) / (math.Pow(r, float64(N)) - 1)
	}
	m = channelMesh{
		N:      N,
		L:      L,
		h:      make([]float64, N),
		c:      make([]float64, N),
		xFaces: make([]float64, N+1),
	}
	for i := 0; i < N; i++ {
		m.h[i] = h0 * math.Pow(r, float64(i))
		m.xFaces[i+1] = m.xFaces[i] + m.h[i]
		m.c[i] = m.xFaces[i] + 0.5*m.h[i]
	}
	m.volumes = m.h
	return
}

// dCenter is the distance between the centers of cells i and i+1
func (m channelMesh) dCenter(i int) float64 { return m.c[i+1] - m.c[i] }

// laplacian is div(grad u) with homogeneous Dirichlet walls, the inlet value enters through
// the lift field
func (m channelMesh) laplacian(scale float64) utils.CSR {
	var (
		N   = m.N
		dok = utils.NewDOK(N, N)
	)
	for i := 0; i < N-1; i++ {
		k := scale / m.dCenter(i)
		dok.Accumulate(i, i, -k/m.h[i]).Accumulate(i, i+1, k/m.h[i])
		dok.Accumulate(i+1, i+1, -k/m.h[i+1]).Accumulate(i+1, i, k/m.h[i+1])
	}
	dok.Accumulate(0, 0, -scale/(0.5*m.h[0]*m.h[0]))
	dok.Accumulate(N-1, N-1, -scale/(0.5*m.h[N-1]*m.h[N-1]))
	return dok.ToCSR()
}

// centralDifference is the cell centered d/dx, one sided at the ends
func (m channelMesh) centralDifference() utils.CSR {
	var (
		N   = m.N
		dok = utils.NewDOK(N, N)
	)
	for i := 0; i < N; i++ {
		lo, hi := i-1, i+1
		if lo < 0 {
			lo = 0
		}
		if hi > N-1 {
			hi = N - 1
		}
		dx := m.c[hi] - m.c[lo]
		dok.Accumulate(i, hi, 1/dx).Accumulate(i, lo, -1/dx)
	}
	return dok.ToCSR()
}

// convection is d(uv)/dx with central face interpolation, the inlet flux is the first cell
// trace and the wall carries no flux
func (m channelMesh) convection() utils.SparseTensor3 {
	var (
		N = m.N
		b = utils.NewSparseTensor3Builder(N, N, N)
	)
	for i := 0; i < N-1; i++ {
		for _, s := range []int{i, i + 1} {
			for _, t := range []int{i, i + 1} {
				b.Accumulate(i, s, t, 0.25/m.h[i])
				b.Accumulate(i+1, s, t, -0.25/m.h[i+1])
			}
		}
	}
	b.Accumulate(0, 0, 0, -1/m.h[0])
	return b.Build()
}

// eddyDiffusion is div(nut grad u) with face averaged nut, trilinear in (nut, u)
func (m channelMesh) eddyDiffusion() utils.SparseTensor3 {
	var (
		N = m.N
		b = utils.NewSparseTensor3Builder(N, N, N)
	)
	for i := 0; i < N-1; i++ {
		k := 0.5 / m.dCenter(i)
		for _, s := range []int{i, i + 1} {
			b.Accumulate(i, s, i+1, k/m.h[i]).Accumulate(i, s, i, -k/m.h[i])
			b.Accumulate(i+1, s, i+1, -k/m.h[i+1]).Accumulate(i+1, s, i, k/m.h[i+1])
		}
	}
	b.Accumulate(0, 0, 0, -1/(0.5*m.h[0]*m.h[0]))
	b.Accumulate(N-1, N-1, N-1, -1/(0.5*m.h[N-1]*m.h[N-1]))
	return b.Build()
}

func (m channelMesh) velocity(mu, t float64) (u []float64) {
	u = make([]float64, m.N)
	for i, x := range m.c {
		xi := x / m.L
		u[i] = mu*(1-xi) + 0.3*mu*mu*xi*(1-xi)
		for k := 1; k <= 3; k++ {
			kk := float64(k)
			u[i] += mu * (0.5 / kk) * math.Exp(-kk*kk*t) * math.Sin(kk*math.Pi*xi)
		}
	}
	return
}

func (m channelMesh) pressure(mu, t float64) (p []float64) {
	p = make([]float64, m.N)
	for i, x := range m.c {
		xi := x / m.L
		p[i] = mu*mu*(1-xi) + 0.1*mu*math.Exp(-t)*math.Cos(math.Pi*xi)
	}
	return
}

// ModeEnergy holds the fraction of snapshot energy captured by the kept POD modes of each field
type ModeEnergy struct {
	Velocity      float64
	Pressure      float64
	EddyViscosity float64
}

// NewChannel1D generates every full order input of a reduced model: operators, lift, POD
// modes of the homogenized snapshots, supremizers and eddy viscosity modes.
func NewChannel1D(cfg Channel1DConfig) (p *Problem, err error) {
	p, _, err = BuildChannel1D(cfg)
	return
}

// BuildChannel1D is NewChannel1D, also reporting how much snapshot energy the modes capture
func BuildChannel1D(cfg Channel1DConfig) (p *Problem, energy ModeEnergy, err error) {
	var (
		d      Data
		m      channelMesh
		ip     *pod.InnerProduct
		nutRaw [][]float64
		modes  pod.Modes
	)
	if cfg.NCells < 4 {
		return nil, energy, types.NewContractError("channel needs at least 4 cells, have %d", cfg.NCells)
	}
	if cfg.Length <= 0 || cfg.Stretch <= 0 {
		return nil, energy, types.NewContractError("channel length %g and stretch %g must be positive", cfg.Length, cfg.Stretch)
	}
	if len(cfg.InletVelocities) == 0 || len(cfg.Times) == 0 {
		return nil, energy, types.NewContractError("channel needs at least one inlet velocity and one time")
	}
	m = newChannelMesh(cfg.NCells, cfg.Length, cfg.Stretch)
	d = Data{
		Name:    fmt.Sprintf("channel1D-%d", cfg.NCells),
		NComp:   1,
		Volumes: m.volumes,
		Centers: m.c,
		Patches: []Patch{
			{Name: "inlet", Faces: []Face{{Area: 1, Cells: []int{0}, Coeffs: []float64{1}}}},
			{Name: "wall", Faces: []Face{{Area: 1, Cells: []int{cfg.NCells - 1}, Coeffs: []float64{1}}}},
		},
		Inlets: []Inlet{{Patch: 0, Component: 0}},
	}
	d.Ops = Operators{
		Laplacian:     m.laplacian(1),
		LaplacianT:    m.laplacian(1. / 3.),
		Gradient:      m.centralDifference(),
		Divergence:    m.centralDifference(),
		Convection:    m.convection(),
		EddyDiffusion: m.eddyDiffusion(),
	}
	d.Ops.EddyDiffusionT = d.Ops.EddyDiffusion.Scaled(1. / 3.)
	d.Ops.Laplacian.SetReadOnly("Laplacian")
	d.Ops.LaplacianT.SetReadOnly("LaplacianT")

	lift := make([]float64, m.N)
	for i, x := range m.c {
		lift[i] = 1 - x/m.L
	}
	lift0 := lift[0]
	for i := range lift {
		lift[i] /= lift0
	}
	d.Lifts = [][]float64{lift}

	for _, mu := range cfg.InletVelocities {
		for _, t := range cfg.Times {
			u := m.velocity(mu, t)
			d.USnapshots = append(d.USnapshots, u)
			d.PSnapshots = append(d.PSnapshots, m.pressure(mu, t))
			d.Times = append(d.Times, t)
			dudx := d.Ops.Divergence.MulVec(u)
			nut := make([]float64, m.N)
			for i := range nut {
				nut[i] = math.Pow(cfg.Smagorinsky*m.h[i], 2) * math.Abs(dudx[i])
			}
			nutRaw = append(nutRaw, nut)
		}
	}

	if ip, err = pod.NewInnerProduct(d.Volumes, d.NComp, true); err != nil {
		return
	}
	homog, err := Homogenize(d.USnapshots, d.Lifts, d.Inlets, d.Patches, d.NComp)
	if err != nil {
		return
	}
	if modes, err = pod.ComputeModes(ip, homog, cfg.NUModes); err != nil {
		return nil, energy, fmt.Errorf("velocity modes: %w", err)
	}
	d.UModes, energy.Velocity = modes.Fields, modes.Energy(cfg.NUModes)
	if modes, err = pod.ComputeModes(ip, d.PSnapshots, cfg.NPModes); err != nil {
		return nil, energy, fmt.Errorf("pressure modes: %w", err)
	}
	d.PModes, energy.Pressure = modes.Fields, modes.Energy(cfg.NPModes)
	if modes, err = pod.ComputeModes(ip, nutRaw, cfg.NNutModes); err != nil {
		return nil, energy, fmt.Errorf("eddy viscosity modes: %w", err)
	}
	d.NutModes, energy.EddyViscosity = modes.Fields, modes.Energy(cfg.NNutModes)
	if d.SupModes, err = supremizers(ip, d); err != nil {
		return
	}
	p, err = NewProblem(d)
	return
}

// supremizers solves L s = G chi for every pressure mode, then removes the inlet value and
// orthonormalizes against the velocity modes' inner product
func supremizers(ip *pod.InnerProduct, d Data) (sup [][]float64, err error) {
	var (
		lu mat.LU
		nv = len(d.Volumes) * d.NComp
	)
	lu.Factorize(mat.DenseCopyOf(d.Ops.Laplacian))
	if lu.Det() == 0 {
		return nil, types.NewDegeneracy("laplacian is singular, unable to compute supremizers")
	}
	raw := make([][]float64, len(d.PModes))
	for i, chi := range d.PModes {
		var (
			rhs = mat.NewVecDense(nv, d.Ops.Gradient.MulVec(chi))
			s   = mat.NewVecDense(nv, nil)
		)
		if err = lu.SolveVecTo(s, false, rhs); err != nil {
			return nil, types.NewDegeneracy("supremizer %d: %v", i, err)
		}
		raw[i] = s.RawVector().Data
	}
	if raw, err = Homogenize(raw, d.Lifts, d.Inlets, d.Patches, d.NComp); err != nil {
		return
	}
	return pod.Orthonormalize(ip, raw)
}
