package ReducedNS

import (
	"fmt"
	"io"
	"sync"
)

// SolveEvent reports the outcome of one nonlinear solve, one per steady query or time step
type SolveEvent struct {
	Solve       int64     // Running count of online solves of the Solver
	Params      []float64 // Requested inlet values
	Nu          float64
	Step        int
	Time        float64
	Residual    float64
	Iterations  int
	Evaluations int
	Converged   bool
	Status      string
}

type Observer interface {
	OnSolve(ev SolveEvent)
}

type NopObserver struct{}

func (NopObserver) OnSolve(SolveEvent) {}

// ConsoleObserver prints one line per steady solve and a warning for every solve that did not
// reach the residual tolerance. Time steps are only printed when Verbose.
type ConsoleObserver struct {
	W       io.Writer
	Verbose bool
	mu      sync.Mutex
}

func NewConsoleObserver(w io.Writer, verbose bool) *ConsoleObserver {
	return &ConsoleObserver{W: w, Verbose: verbose}
}

func (co *ConsoleObserver) OnSolve(ev SolveEvent) {
	co.mu.Lock()
	defer co.mu.Unlock()
	if !ev.Converged {
		fmt.Fprintf(co.W, "WARNING: solve %d, params = %v, step %d, t = %g: |F(x)| = %g - Solution not converged after %d iterations (%s)\n",
			ev.Solve, ev.Params, ev.Step, ev.Time, ev.Residual, ev.Iterations, ev.Status)
		return
	}
	if ev.Step > 0 && !co.Verbose {
		return
	}
	if ev.Step == 0 {
		fmt.Fprintf(co.W, "Solve %d, params = %v, nu = %g: |F(x)| = %g - Minimum reached in %d iterations\n",
			ev.Solve, ev.Params, ev.Nu, ev.Residual, ev.Iterations)
		return
	}
	fmt.Fprintf(co.W, "Solve %d, step %d, t = %8.5f: |F(x)| = %g - Minimum reached in %d iterations\n",
		ev.Solve, ev.Step, ev.Time, ev.Residual, ev.Iterations)
}

// RecordingObserver keeps every event, safe for concurrent solves
type RecordingObserver struct {
	mu     sync.Mutex
	events []SolveEvent
}

func (ro *RecordingObserver) OnSolve(ev SolveEvent) {
	ro.mu.Lock()
	ro.events = append(ro.events, ev)
	ro.mu.Unlock()
}

func (ro *RecordingObserver) Events() (events []SolveEvent) {
	ro.mu.Lock()
	defer ro.mu.Unlock()
	events = make([]SolveEvent, len(ro.events))
	copy(events, ro.events)
	return
}

// Warnings returns the events of solves that did not converge
func (ro *RecordingObserver) Warnings() (events []SolveEvent) {
	for _, ev := range ro.Events() {
		if !ev.Converged {
			events = append(events, ev)
		}
	}
	return
}
