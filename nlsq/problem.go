// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nlsq solves bounded constrained nonlinear least-squares problems
//
// minimize ‖𝒇(𝐱)‖₂ subject to
//   - boundaries: 𝒍ᵢ ≤ 𝐱ᵢ ≤ 𝒖ᵢ (i = 1 ··· n)
//   - general constraints: 𝒍ⱼ ≤ 𝒄ⱼ(𝐱) ≤ 𝒖ⱼ (j = 1 ··· mc)
//
// where 𝒇 : ℝⁿ → ℝᵐ is a residual vector and 𝒄 : ℝⁿ → ℝᵐᶜ is a vector of
// nonlinear constraint functions, both with caller-supplied Jacobians.
//
// The driver reformulates the problem for a sequential quadratic programming
// kernel and decodes its terminal state into a small set of status codes.
package nlsq

import (
	"math"

	"github.com/rs/zerolog"
)

// Problem supplies the residuals, constraints and their Jacobians of a
// least-squares problem.
type Problem interface {
	// Evaluate fills the driver-owned buffers at the trial point x:
	//   - f : the m residuals 𝒇(𝐱)
	//   - jac : the m × n residual Jacobian, row-major (𝜵𝒇ⱼ(𝐱) in row j)
	//   - c : the mc constraint values 𝒄(𝐱)
	//   - jc : the mc × n constraint Jacobian, row-major
	//
	// Every buffer must be filled on every call: the driver requests a fresh
	// evaluation for each distinct trial point and never caches across points.
	// A non-nil error aborts the solve and is propagated to the caller.
	Evaluate(x []float64, f, jac, c, jc []float64) error
}

type boundKind uint8

const (
	boundFree boundKind = iota
	boundLower
	boundUpper
	boundBoth
)

// Bound restricts the range of one variable or of one constraint function.
// The zero value leaves the entry unconstrained.
type Bound struct {
	kind   boundKind
	lo, hi float64
}

// Free returns an unconstrained bound.
func Free() Bound { return Bound{} }

// AtLeast returns a bound with lower limit lo.
func AtLeast(lo float64) Bound { return Bound{kind: boundLower, lo: lo} }

// AtMost returns a bound with upper limit hi.
func AtMost(hi float64) Bound { return Bound{kind: boundUpper, hi: hi} }

// Between returns a two-sided bound lo ≤ · ≤ hi.
// On a constraint entry, Between(v, v) pins the constraint to the equality 𝒄ⱼ(𝐱) = v.
func Between(lo, hi float64) Bound { return Bound{kind: boundBoth, lo: lo, hi: hi} }

// Lower returns the lower limit and whether one is present.
func (b Bound) Lower() (float64, bool) {
	return b.lo, b.kind == boundLower || b.kind == boundBoth
}

// Upper returns the upper limit and whether one is present.
func (b Bound) Upper() (float64, bool) {
	return b.hi, b.kind == boundUpper || b.kind == boundBoth
}

func (b Bound) valid() bool {
	switch b.kind {
	case boundFree:
		return true
	case boundLower:
		return !math.IsNaN(b.lo) && !math.IsInf(b.lo, 0)
	case boundUpper:
		return !math.IsNaN(b.hi) && !math.IsInf(b.hi, 0)
	case boundBoth:
		return !math.IsNaN(b.lo) && !math.IsInf(b.lo, 0) &&
			!math.IsNaN(b.hi) && !math.IsInf(b.hi, 0) && b.lo <= b.hi
	}
	return false
}

// Default tolerances and iteration limit applied by Config.New
// when the corresponding field is left zero.
const (
	DefaultFTol    = 1e-8
	DefaultDTol    = 1e-6
	DefaultXTol    = 1e-8
	DefaultMaxIter = 100
)

// Config specifies the dimensions, bounds and stopping tolerances of a problem.
type Config struct {
	// Nvars is the number of variables n.
	Nvars int
	// Neq is the number of residuals m.
	Neq int
	// Ncons is the number of general constraint functions mc.
	Ncons int
	// Bounds holds Nvars+Ncons entries: the variable bounds first,
	// then the range of each constraint function.
	// A nil slice leaves every variable and constraint unconstrained.
	Bounds []Bound
	// FTol stops the iteration when the objective change of a feasible step
	// drops below FTol relative to the objective value.
	// Zero selects DefaultFTol.
	FTol float64
	// DTol is the accuracy of the first-order optimality test.
	// Zero selects DefaultDTol.
	DTol float64
	// XTol stops the iteration when the step norm of a feasible step drops
	// below XTol relative to the norm of the current point.
	// Zero selects DefaultXTol.
	XTol float64
	// MaxIter caps the number of iterations. Zero selects DefaultMaxIter.
	MaxIter int
	// Log receives a debug event per evaluation and a final event per solve.
	// No logging when nil.
	Log *zerolog.Logger
}
