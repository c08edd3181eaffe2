// Package numdiff estimates Jacobians of vector functions by finite
// differences, stepping only inside optional variable bounds.
package numdiff

import (
	"errors"
	"math"
)

var sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)
var cubeEps = math.Pow(math.Nextafter(1, 2)-1, float64(1)/3)

type Method int

const (
	// Forward use the first order accuracy forward difference.
	Forward Method = iota
	// Central use central difference in interior points and the second order accuracy
	// forward or backward difference near the boundary.
	Central
)

type Bound [2]float64

// JacSpec estimates the m × n Jacobian 𝐉ᵢⱼ = ∂𝒇ᵢ/∂𝐱ⱼ of a vector function
// 𝒇 : ℝⁿ → ℝᵐ by finite differences.
//
// # Reference:
//
//   - https://en.wikipedia.org/wiki/Finite_difference
//   - https://github.com/scipy/scipy/blob/main/scipy/optimize/_numdiff.py
//
// # License
//
//   - https://github.com/scipy/scipy/blob/main/LICENSE.txt
type JacSpec struct {
	N, M int
	// Func fills the m-vector f with the function values at the n-vector x.
	Func func(x, f []float64)
	// Finite difference method to use.
	Method Method
	// Lower and upper bounds on the variables.
	// Use it to limit the range of function evaluation.
	Bounds []Bound
	// Relative step size used to compute absolute step size.
	// The default absolute step size is computed as h = RelStep * sign(x0) * max(1, abs(x0)) with RelStep being selected automatically.
	// Otherwise, absolute step size is computed as h = RelStep * sign(x0) * abs(x0) when RelStep is provided.
	RelStep float64
	// Absolute step size to use, possibly adjusted to fit into the bounds.
	// The RelStep is used when AbsStep is not provide.
	// For Central method the sign of AbsStep is ignored.
	AbsStep float64
	// Don't check if x0 is out of bounds.
	NoBndChk bool
	// Store the Jacobian column by column: ∂𝒇ᵢ/∂𝐱ⱼ at jac[j*m+i]
	// instead of the row-major jac[i*n+j].
	ColMajor bool
	jacCtx
}

type jacCtx struct {
	f0, fx  []float64
	step    []float64
	oneSide []bool
}

// Check the parameters and initialize jacCtx.
func (js *JacSpec) Check(x0, jac []float64) (err error) {

	switch {
	case js.N <= 0 || js.M <= 0:
		err = errors.New("negative dimensions")
	case js.Method != Forward && js.Method != Central:
		err = errors.New("unknown method")
	case js.Func == nil:
		err = errors.New("vector function is required")
	case js.N != len(x0):
		return errors.New("invalid x0 dimensions")
	case js.N*js.M != len(jac):
		return errors.New("invalid jacobian dimensions")
	}

	if js.Bounds != nil {
		if len(js.Bounds) != len(x0) {
			err = errors.New("invalid bound dimension")
		} else {
			for i, bound := range js.Bounds {
				if math.IsNaN(bound[0]) {
					bound[0] = math.Inf(-1)
				}
				if math.IsNaN(bound[1]) {
					bound[1] = math.Inf(1)
				}
				js.Bounds[i] = bound
				if bound[0] > bound[1] {
					err = errors.New("invalid bound range")
					break
				}
				if !js.NoBndChk && (x0[i] < bound[0] || x0[i] > bound[1]) {
					err = errors.New("x0 violates bound constraints")
					break
				}
			}
		}
	}

	if len(js.fx) != js.M*(int(js.Method)+1) {
		js.f0 = make([]float64, js.M)
		js.fx = make([]float64, js.M*(int(js.Method)+1))
	}
	if len(js.step) != js.N {
		js.step = make([]float64, js.N)
	}
	if len(js.oneSide) != js.N*int(js.Method) {
		js.oneSide = make([]bool, js.N*int(js.Method))
	}
	return
}

// Jacobian approximates the derivatives at x0 by finite differences.
// The entries of x0 are perturbed during the computation and restored before return.
func (js *JacSpec) Jacobian(x0, jac []float64) error {

	if err := js.Check(x0, jac); err != nil {
		return err
	}

	bnd := false
	for _, bound := range js.Bounds {
		l, u := bound[0], bound[1]
		if bnd = !(math.IsInf(l, 0) && math.IsInf(u, 0)); bnd {
			break
		}
	}

	js.stepSizes(x0)
	js.clampSteps(x0, bnd)

	if js.Method == Central {
		js.central(x0, jac)
	} else {
		js.forward(x0, jac)
	}

	return nil
}

// clampSteps keeps every difference step inside the bounds, switching the
// central scheme to a one-sided second order formula near a boundary.
func (js *JacSpec) clampSteps(x0 []float64, bnd bool) {
	h, o := js.step, js.oneSide
	if js.Method == Central {
		for i, v := range h {
			h[i] = math.Abs(v)
		}
		for i := range o {
			o[i] = false
		}
	}

	if !bnd {
		return
	}

	b := js.Bounds
	if len(x0) != len(b) || len(x0) != len(h) {
		panic("bound check error")
	}

	if js.Method == Forward {
		for i, x0 := range x0 {
			lb, ub := b[i][0], b[i][1]
			ld, ud := x0-lb, ub-x0
			h0 := h[i]
			x := x0 + h0
			violated := x < lb || x > ub
			fitting := math.Abs(h[i]) < math.Max(ld, ud)
			if violated && fitting {
				h[i] = -h0
			} else if !fitting {
				if ud >= ld {
					h[i] = ud
				} else if ud < ld {
					h[i] = -ld
				}
			}
		}
	} else {
		if len(x0) != len(o) {
			panic("bound check error")
		}
		for i, x0 := range x0 {
			lb, ub := b[i][0], b[i][1]
			ld, ud := x0-lb, ub-x0
			central := ld >= h[i] && ud >= h[i]
			if !central {
				if ud >= ld {
					h[i] = math.Min(h[i], 0.5*ud)
					o[i] = true
				} else if ud < ld {
					h[i] = -math.Min(h[i], 0.5*ld)
					o[i] = true
				}
			}
			minDist := math.Min(ud, ld)
			adjCent := !central && math.Abs(h[i]) <= minDist
			if adjCent {
				h[i] = minDist
				o[i] = false
			}
		}
	}

}

func (js *JacSpec) stepSizes(x0 []float64) {
	h := js.step
	if len(h) != len(x0) {
		panic("bound check error")
	}

	var eps float64
	switch js.Method {
	case Forward:
		eps = sqrtEps
	case Central:
		eps = cubeEps
	default:
		panic("unknown method")
	}

	abs := js.AbsStep
	rel := js.RelStep
	if abs == 0 && rel == 0 {
		for i, v := range x0 {
			h[i] = math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
		}
	} else {
		for i, v := range x0 {
			s := abs
			if s == 0 {
				s = math.Copysign(rel, v) * math.Abs(v)
			}
			d := (v + s) - v
			if d == 0 {
				s = math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
			}
			h[i] = s
		}
	}
}

func (js *JacSpec) forward(x0, jac []float64) {

	f0, fx, h, n, m := js.f0, js.fx, js.step, js.N, js.M
	if len(h) != len(x0) || len(f0) != len(fx) {
		panic("bound check error")
	}

	fun := js.Func
	fun(x0, js.f0)
	for i, s := range h {
		t := x0[i]
		x0[i] = t + s
		fun(x0, fx)
		d := 1.0 / s
		if !js.ColMajor {
			for j := range f0 {
				jac[i+j*n] = (fx[j] - f0[j]) * d
			}
		} else {
			c := jac[i*m : (i+1)*m]
			for j := range f0 {
				c[j] = (fx[j] - f0[j]) * d
			}
		}
		x0[i] = t
	}
}

func (js *JacSpec) central(x0, jac []float64) {

	f0, h, o, n, m := js.f0, js.step, js.oneSide, js.N, js.M
	f1, f2 := js.fx[:m], js.fx[m:]
	if len(h) != len(x0) || len(h) != len(o) || len(f0) != len(f1) || len(f0) != len(f2) {
		panic("bound check error")
	}

	fun := js.Func
	fun(x0, js.f0)
	for i, s := range h {
		x := x0[i]
		d := 1.0 / (2 * s)
		if o[i] {
			x0[i] = x + s
			fun(x0, f1)
			x0[i] = x + 2*s
			fun(x0, f2)
			if !js.ColMajor {
				for j := range f0 {
					jac[i+j*n] = (4*f1[j] - 3*f0[j] - f2[j]) * d
				}
			} else {
				c := jac[i*m : (i+1)*m]
				for j := range f0 {
					c[j] = (4*f1[j] - 3*f0[j] - f2[j]) * d
				}
			}
		} else {
			x0[i] = x - s
			fun(x0, f1)
			x0[i] = x + s
			fun(x0, f2)
			if !js.ColMajor {
				for j := range f0 {
					jac[i+j*n] = (f2[j] - f1[j]) * d
				}
			} else {
				c := jac[i*m : (i+1)*m]
				for j := range f0 {
					c[j] = (f2[j] - f1[j]) * d
				}
			}
		}
		x0[i] = x
	}
}
