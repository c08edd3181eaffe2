// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nlsq

import (
	"math"

	"github.com/curioloop/leastsq/numdiff"
)

// NumericProblem builds a Problem from plain residual and constraint
// functions, approximating both Jacobians by bound-aware central finite
// differences. cons may be nil when cfg.Ncons is zero.
//
// Differencing never steps outside the variable bounds of cfg, so fn and
// cons are only probed at feasible points.
func NumericProblem(cfg Config, fn func(x, f []float64), cons func(x, c []float64)) Problem {

	var bounds []numdiff.Bound
	if cfg.Bounds != nil && len(cfg.Bounds) >= cfg.Nvars {
		bounds = make([]numdiff.Bound, cfg.Nvars)
		for i, b := range cfg.Bounds[:cfg.Nvars] {
			lo, hi := math.Inf(-1), math.Inf(1)
			if v, ok := b.Lower(); ok {
				lo = v
			}
			if v, ok := b.Upper(); ok {
				hi = v
			}
			bounds[i] = numdiff.Bound{lo, hi}
		}
	}

	np := &numericProblem{fn: fn, cons: cons}
	np.fs = numdiff.JacSpec{
		N: cfg.Nvars, M: cfg.Neq,
		Func:     fn,
		Method:   numdiff.Central,
		Bounds:   bounds,
		NoBndChk: true,
	}
	if cons != nil && cfg.Ncons > 0 {
		np.cs = &numdiff.JacSpec{
			N: cfg.Nvars, M: cfg.Ncons,
			Func:     cons,
			Method:   numdiff.Central,
			Bounds:   bounds,
			NoBndChk: true,
		}
	}
	return np
}

type numericProblem struct {
	fn   func(x, f []float64)
	cons func(x, c []float64)
	fs   numdiff.JacSpec
	cs   *numdiff.JacSpec
}

func (np *numericProblem) Evaluate(x []float64, f, jac, c, jc []float64) error {
	np.fn(x, f)
	if err := np.fs.Jacobian(x, jac); err != nil {
		return err
	}
	if np.cs != nil {
		np.cons(x, c)
		if err := np.cs.Jacobian(x, jc); err != nil {
			return err
		}
	}
	return nil
}
