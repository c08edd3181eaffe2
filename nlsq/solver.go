// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nlsq

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/curioloop/leastsq/sqp"
)

// ErrEvaluate wraps every error returned or produced by a Problem evaluation.
var ErrEvaluate = errors.New("problem evaluation failed")

// Solver holds a validated problem ready to solve.
// A Solver is safe for concurrent use: calls to Solve are serialized.
type Solver struct {
	mu   sync.Mutex
	cfg  Config
	opt  *sqp.Optimizer
	ec   *evalCache
	vb   []Bound // variable bounds
	cb   []Bound // constraint ranges
}

// Result reports the outcome of one solve.
type Result struct {
	// X is the final point.
	X []float64
	// Status reports how the iteration terminated.
	Status Status
	// Rnorm is the residual norm ‖𝒇(𝐗)‖₂ at the final point.
	Rnorm float64
	// Iters is the number of iterations performed.
	Iters int
	// Evals is the number of Problem evaluations performed.
	Evals int
}

// New validates the configuration against p and builds a Solver.
// The problem is never evaluated here.
func (c Config) New(p Problem) (*Solver, error) {

	cfg := c
	if cfg.FTol == 0 {
		cfg.FTol = DefaultFTol
	}
	if cfg.DTol == 0 {
		cfg.DTol = DefaultDTol
	}
	if cfg.XTol == 0 {
		cfg.XTol = DefaultXTol
	}
	if cfg.MaxIter == 0 {
		cfg.MaxIter = DefaultMaxIter
	}

	switch {
	case p == nil:
		return nil, errors.New("problem must not be nil")
	case cfg.Nvars <= 0:
		return nil, errors.New("variable number must greater than 0")
	case cfg.Neq <= 0:
		return nil, errors.New("residual number must greater than 0")
	case cfg.Ncons < 0:
		return nil, errors.New("constraint number must not less than 0")
	case cfg.FTol < 0 || math.IsNaN(cfg.FTol):
		return nil, errors.New("residual tolerance must not less than 0")
	case cfg.DTol < 0 || math.IsNaN(cfg.DTol):
		return nil, errors.New("optimality tolerance must not less than 0")
	case cfg.XTol < 0 || math.IsNaN(cfg.XTol):
		return nil, errors.New("step tolerance must not less than 0")
	case cfg.MaxIter < 0:
		return nil, errors.New("max iteration must greater than 0")
	case cfg.Bounds != nil && len(cfg.Bounds) != cfg.Nvars+cfg.Ncons:
		return nil, fmt.Errorf("bound number must equal to %d", cfg.Nvars+cfg.Ncons)
	}

	bounds := cfg.Bounds
	if bounds == nil {
		bounds = make([]Bound, cfg.Nvars+cfg.Ncons)
	}
	for k, b := range bounds {
		if !b.valid() {
			return nil, fmt.Errorf("invalid bound at %d", k)
		}
	}

	n := cfg.Nvars
	ec := &evalCache{
		prob: p,
		n:    n, m: cfg.Neq, mc: cfg.Ncons,
		x:   make([]float64, n),
		f:   make([]float64, cfg.Neq),
		jac: make([]float64, cfg.Neq*n),
		c:   make([]float64, cfg.Ncons),
		jc:  make([]float64, cfg.Ncons*n),
		log: cfg.Log,
	}

	kb := make([]sqp.Bound, n)
	for i, b := range bounds[:n] {
		lo, hi := math.NaN(), math.NaN()
		if v, ok := b.Lower(); ok {
			lo = v
		}
		if v, ok := b.Upper(); ok {
			hi = v
		}
		kb[i] = sqp.Bound{Lower: lo, Upper: hi}
	}

	// Each bounded constraint range becomes one or two one-sided senses
	// of the form ±𝒄ⱼ(𝐱) + v ≥ 0, or an equality when the range collapses.
	sense := func(j int, sign, off float64) sqp.Evaluation {
		return sqp.Evaluation{
			Function: func(x []float64) float64 {
				ec.at(x)
				return sign*ec.c[j] + off
			},
			Derivative: func(x, d []float64) {
				ec.at(x)
				row := ec.jc[j*n : (j+1)*n]
				for i, v := range row {
					d[i] = sign * v
				}
			},
		}
	}

	var eq, neq []sqp.Evaluation
	for j, b := range bounds[n:] {
		switch b.kind {
		case boundLower:
			neq = append(neq, sense(j, 1, -b.lo))
		case boundUpper:
			neq = append(neq, sense(j, -1, b.hi))
		case boundBoth:
			if b.lo == b.hi {
				eq = append(eq, sense(j, 1, -b.lo))
			} else {
				neq = append(neq, sense(j, 1, -b.lo), sense(j, -1, b.hi))
			}
		}
	}

	kp := sqp.Problem{
		N: n,
		Stop: sqp.Termination{
			Accuracy:       cfg.DTol,
			MaxIterations:  cfg.MaxIter,
			FEvalTolerance: math.NaN(),
			FDiffTolerance: cfg.FTol,
			XDiffTolerance: cfg.XTol,
		},
		Object: sqp.Evaluation{
			// 𝑭(𝐱) = ½‖𝒇(𝐱)‖₂² with gradient 𝐉ᵀ𝒇(𝐱)
			Function: func(x []float64) float64 {
				ec.at(x)
				s := 0.0
				for _, v := range ec.f {
					s += v * v
				}
				return s / 2
			},
			Derivative: func(x, g []float64) {
				ec.at(x)
				for i := 0; i < n; i++ {
					s := 0.0
					for j := 0; j < ec.m; j++ {
						s += ec.jac[j*n+i] * ec.f[j]
					}
					g[i] = s
				}
			},
		},
		EqCons:  eq,
		NeqCons: neq,
		Bounds:  kb,
		// The Gauss-Newton model 𝐉ᵀ𝐉 of the scalarized objective keeps the
		// least-squares curvature visible to the kernel, packed column-wise
		// with the diagonal element leading each column.
		Hessian: func(x, h []float64) {
			ec.at(x)
			k := 0
			for j := 0; j < n; j++ {
				for i := j; i < n; i++ {
					s := 0.0
					for r := 0; r < ec.m; r++ {
						s += ec.jac[r*n+i] * ec.jac[r*n+j]
					}
					h[k] = s
					k++
				}
			}
		},
	}

	opt, err := kp.New()
	if err != nil {
		return nil, err
	}

	return &Solver{
		cfg: cfg,
		opt: opt,
		ec:  ec,
		vb:  bounds[:n],
		cb:  bounds[n:],
	}, nil
}

// Solve runs the iteration from the initial guess x0.
// An error from a Problem evaluation aborts the solve and is returned
// wrapped in ErrEvaluate. Any other termination yields a Result whose
// Status tells how much to trust the returned point.
func (s *Solver) Solve(x0 []float64) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(x0) != s.cfg.Nvars {
		return nil, fmt.Errorf("initial guess size must equal to %d", s.cfg.Nvars)
	}
	for _, v := range x0 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("initial guess must be finite")
		}
	}

	s.ec.reset()
	w := s.opt.Init()
	res := s.opt.Fit(x0, w)
	if s.ec.err != nil {
		return nil, s.ec.err
	}

	st := s.decode(res)
	out := &Result{
		X:      res.X,
		Status: st,
		Rnorm:  s.rnorm(res),
		Iters:  res.NumIter,
		Evals:  s.ec.evals,
	}

	if s.cfg.Log != nil {
		s.cfg.Log.Debug().
			Stringer("status", out.Status).
			Stringer("class", out.Status.Class()).
			Float64("rnorm", out.Rnorm).
			Int("iters", out.Iters).
			Int("evals", out.Evals).
			Msg("solve finished")
	}
	return out, nil
}

// decode maps the kernel terminal mode to a driver status.
func (s *Solver) decode(res *sqp.Result) Status {
	switch res.Status {
	case sqp.ConvOptimal:
		if s.activeAt(res.X) {
			return ActiveSet
		}
		return Optimal
	case sqp.ConvDegenerate:
		return Degenerate
	case sqp.ConvResidual:
		return ResidualTol
	case sqp.ConvStep:
		return StepTol
	case sqp.LSISingularE, sqp.LSEISingularC, sqp.HFTIRankDefect:
		return Singular
	case sqp.SQPExceedMaxIter:
		return IterLimit
	case sqp.SearchNotDescent, sqp.ConsIncompatible, sqp.NNLSExceedMaxIter:
		return Breakdown
	}
	return BadInput
}

// activeAt reports whether any bound or constraint range is binding at x.
// Constraint activity relies on the memoized evaluation: the kernel always
// evaluates the accepted point last, so the cache holds 𝒄(𝐱) for the final x.
func (s *Solver) activeAt(x []float64) bool {
	atol := func(v float64) float64 {
		return s.cfg.DTol * math.Max(1, math.Abs(v))
	}
	for i, b := range s.vb {
		if lo, ok := b.Lower(); ok && x[i]-lo <= atol(lo) {
			return true
		}
		if hi, ok := b.Upper(); ok && hi-x[i] <= atol(hi) {
			return true
		}
	}
	if s.ec.holds(x) {
		for j, b := range s.cb {
			if lo, ok := b.Lower(); ok && s.ec.c[j]-lo <= atol(lo) {
				return true
			}
			if hi, ok := b.Upper(); ok && hi-s.ec.c[j] <= atol(hi) {
				return true
			}
		}
	}
	return false
}

// rnorm recovers ‖𝒇(𝐗)‖₂, preferring the memoized residuals over
// the kernel objective ½‖𝒇‖₂².
func (s *Solver) rnorm(res *sqp.Result) float64 {
	if s.ec.holds(res.X) {
		sum := 0.0
		for _, v := range s.ec.f {
			sum += v * v
		}
		return math.Sqrt(sum)
	}
	return math.Sqrt(2 * math.Max(0, res.F))
}

// evalFailure aborts the kernel iteration after a failed evaluation.
// The kernel recovers the panic and stops with an invalid-data mode,
// then Solve surfaces the recorded error instead of a Result.
type evalFailure struct{}

// evalCache funnels every kernel callback through a single memoized
// Problem evaluation per trial point.
type evalCache struct {
	prob      Problem
	n, m, mc  int
	x         []float64 // last evaluated point
	f, jac    []float64
	c, jc     []float64
	valid     bool
	evals     int
	err       error
	log       *zerolog.Logger
}

func (ec *evalCache) reset() {
	ec.valid = false
	ec.evals = 0
	ec.err = nil
}

func (ec *evalCache) holds(x []float64) bool {
	if !ec.valid || len(x) != ec.n {
		return false
	}
	for i, v := range x {
		if ec.x[i] != v {
			return false
		}
	}
	return true
}

func (ec *evalCache) at(x []float64) {
	if ec.holds(x) {
		return
	}
	ec.valid = false
	if err := ec.prob.Evaluate(x, ec.f, ec.jac, ec.c, ec.jc); err != nil {
		ec.err = fmt.Errorf("%w: %s", ErrEvaluate, err)
		panic(evalFailure{})
	}
	for _, blk := range []struct {
		name string
		vals []float64
	}{
		{"residual", ec.f},
		{"jacobian", ec.jac},
		{"constraint", ec.c},
		{"constraint jacobian", ec.jc},
	} {
		for _, v := range blk.vals {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				ec.err = fmt.Errorf("%w: non-finite %s", ErrEvaluate, blk.name)
				panic(evalFailure{})
			}
		}
	}
	copy(ec.x, x)
	ec.valid = true
	ec.evals++
	if ec.log != nil {
		sum := 0.0
		for _, v := range ec.f {
			sum += v * v
		}
		ec.log.Debug().
			Int("eval", ec.evals).
			Float64("rnorm", math.Sqrt(sum)).
			Msg("evaluate")
	}
}
