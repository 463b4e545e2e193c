package core

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyGrid indicates a grid with no rows or no columns.
	ErrEmptyGrid = fmt.Errorf("%w: grid must have at least one row and one column", ErrInvalidInstance)
	// ErrRaggedGrid indicates grid rows of differing lengths.
	ErrRaggedGrid = fmt.Errorf("%w: all grid rows must have the same length", ErrInvalidInstance)
	// ErrInvalidInstance indicates a malformed grid, starts or goals.
	ErrInvalidInstance = errors.New("gridmapf: invalid instance")
	// ErrInfeasible indicates some agent has no path even without other agents.
	ErrInfeasible = errors.New("gridmapf: no path for agent")
	// ErrNoSolution indicates the search exhausted every branch.
	ErrNoSolution = errors.New("gridmapf: no collision-free solution found")
)
