// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nlsq

// Status reports how a solve terminated.
type Status int

const (
	// BadInput means the iteration stopped on invalid data.
	BadInput Status = iota + 1
	// Optimal means the first-order optimality conditions hold at the solution
	// with no bound or constraint active.
	Optimal
	// Degenerate means convergence was only reached under a relaxed tolerance
	// after repeated restarts of the quadratic model.
	Degenerate
	// ActiveSet means the first-order optimality conditions hold at the solution
	// with at least one bound or constraint active.
	ActiveSet
	// Singular means a linear sub-problem became rank deficient.
	Singular
	// ResidualTol means the residual norm change per step dropped below FTol.
	ResidualTol
	// StepTol means the step norm dropped below XTol.
	StepTol
	// IterLimit means the iteration cap was reached before convergence.
	IterLimit
	// Breakdown means the line search or the constraint set broke down.
	Breakdown
)

// Class groups statuses by the confidence to place in the returned point.
type Class int

const (
	// Invalid means the returned point is meaningless.
	Invalid Class = iota
	// Converged means the returned point satisfies a stopping criterion.
	Converged
	// DegenerateConverged means the returned point only satisfies
	// a relaxed stopping criterion.
	DegenerateConverged
	// NotConverged means the iteration stopped early but the returned point
	// is the best one visited.
	NotConverged
)

// Class maps the status to its confidence class.
func (s Status) Class() Class {
	switch s {
	case Optimal, ActiveSet, ResidualTol, StepTol:
		return Converged
	case Degenerate:
		return DegenerateConverged
	case Singular, IterLimit:
		return NotConverged
	default:
		return Invalid
	}
}

func (s Status) String() string {
	switch s {
	case BadInput:
		return "BadInput"
	case Optimal:
		return "Optimal"
	case Degenerate:
		return "Degenerate"
	case ActiveSet:
		return "ActiveSet"
	case Singular:
		return "Singular"
	case ResidualTol:
		return "ResidualTol"
	case StepTol:
		return "StepTol"
	case IterLimit:
		return "IterLimit"
	case Breakdown:
		return "Breakdown"
	}
	return "Unknown"
}

func (c Class) String() string {
	switch c {
	case Converged:
		return "Converged"
	case DegenerateConverged:
		return "DegenerateConverged"
	case NotConverged:
		return "NotConverged"
	}
	return "Invalid"
}
