package types

import (
	"fmt"
	"strings"
)

type Stabilization uint8

const (
	SUP Stabilization = iota // Supremizer enrichment of the velocity space
	PPE                      // Pressure Poisson equation
)

var StabilizationNameMap = map[string]Stabilization{
	"sup":        SUP,
	"supremizer": SUP,
	"ppe":        PPE,
	"poisson":    PPE,
}

func NewStabilization(label string) (s Stabilization, err error) {
	var ok bool
	if s, ok = StabilizationNameMap[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = NewContractError("unknown stabilization %q, must be one of SUP, PPE", label)
	}
	return
}

func (s Stabilization) String() string {
	switch s {
	case SUP:
		return "SUP"
	case PPE:
		return "PPE"
	}
	return fmt.Sprintf("Stabilization(%d)", uint8(s))
}

type BCMethod uint8

const (
	BC_Lift BCMethod = iota
	BC_Penalty
)

var BCMethodNameMap = map[string]BCMethod{
	"lift":         BC_Lift,
	"liftfunction": BC_Lift,
	"penalty":      BC_Penalty,
}

func NewBCMethod(label string) (m BCMethod, err error) {
	var ok bool
	if m, ok = BCMethodNameMap[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = NewContractError("unknown boundary condition method %q, must be one of lift, penalty", label)
	}
	return
}

func (m BCMethod) String() string {
	switch m {
	case BC_Lift:
		return "lift"
	case BC_Penalty:
		return "penalty"
	}
	return fmt.Sprintf("BCMethod(%d)", uint8(m))
}

// ModalState is one solution of the reduced system, Coeffs holds [a; b] with the lift
// coefficients (if any) at the front of a.
type ModalState struct {
	Time       float64   `json:"Time"`
	Coeffs     []float64 `json:"Coeffs"`
	Residual   float64   `json:"Residual"`
	Iterations int       `json:"Iterations"`
	Converged  bool      `json:"Converged"`
}

type Trajectory struct {
	Params []float64    `json:"Params"`
	States []ModalState `json:"States"`
}

func (tr Trajectory) Last() (ms ModalState) {
	if len(tr.States) == 0 {
		return
	}
	return tr.States[len(tr.States)-1]
}

// Converged reports whether every state in the trajectory met the residual tolerance, an
// empty trajectory never converged.
func (tr Trajectory) Converged() bool {
	if len(tr.States) == 0 {
		return false
	}
	for _, s := range tr.States {
		if !s.Converged {
			return false
		}
	}
	return true
}

// Thin keeps every n-th state, always including the first one.
func (tr Trajectory) Thin(every int) (out Trajectory) {
	out.Params = tr.Params
	if every <= 1 {
		out.States = tr.States
		return
	}
	for i, s := range tr.States {
		if i%every == 0 {
			out.States = append(out.States, s)
		}
	}
	return
}
