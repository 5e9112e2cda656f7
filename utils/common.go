package utils

const (
	// Default residual norm threshold used to classify an online solve as converged
	ResidualTolerance = 1.e-5
	// Default relative step tolerance of the hybrid solver, sqrt(machine epsilon)
	StepTolerance = 1.4901161193847656e-08
)
