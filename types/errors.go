package types

import (
	"errors"
	"fmt"
)

var (
	// ErrContractViolation marks programmer / configuration errors: mismatched mode counts,
	// wrong boundary vector sizes, empty bases. These are never coerced.
	ErrContractViolation = errors.New("contract violation")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrInvalidModeCount  = errors.New("invalid mode count")
	// ErrNumericalDegeneracy is returned when a linear system needed by a projection is
	// singular or indefinite, e.g. a Gram matrix of linearly dependent modes.
	ErrNumericalDegeneracy = errors.New("numerical degeneracy")
	// ErrNotConverged is only returned when the strict convergence policy is enabled.
	ErrNotConverged = errors.New("nonlinear solve did not converge")
)

// ContractError carries the kind of contract that was violated; errors.Is matches both the
// kind and ErrContractViolation.
type ContractError struct {
	Kind error
	Msg  string
}

func (e *ContractError) Error() string {
	if e.Kind == nil || e.Kind == ErrContractViolation {
		return fmt.Sprintf("%s: %s", ErrContractViolation, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", ErrContractViolation, e.Kind, e.Msg)
}

func (e *ContractError) Unwrap() []error {
	if e.Kind == nil || e.Kind == ErrContractViolation {
		return []error{ErrContractViolation}
	}
	return []error{e.Kind, ErrContractViolation}
}

func NewContractError(format string, args ...interface{}) error {
	return &ContractError{Kind: ErrContractViolation, Msg: fmt.Sprintf(format, args...)}
}

func NewDimensionMismatch(format string, args ...interface{}) error {
	return &ContractError{Kind: ErrDimensionMismatch, Msg: fmt.Sprintf(format, args...)}
}

func NewInvalidModeCount(format string, args ...interface{}) error {
	return &ContractError{Kind: ErrInvalidModeCount, Msg: fmt.Sprintf(format, args...)}
}

func NewDegeneracy(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNumericalDegeneracy, fmt.Sprintf(format, args...))
}
