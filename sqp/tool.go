// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqp

import (
	"math"
)

var sqrtEps = math.Sqrt(eps)              // square root of machine precision
var invPhi2 = one / (math.Phi * math.Phi) //  golden section ratio

// h1 builds the Householder transformation Q = Iₘ - b⁻¹uuᵀ with b = suₚ
// that maps the m-vector v onto y = Qv with zeros in components l₁..m-1.
//
// The pivot index lₚ must satisfy 0 ≤ lₚ < l₁; for l₁ ≥ m nothing is done
// and the transformation degenerates to the identity.
//
// v holds the pivot vector with storage increment ive between elements.
// On return it holds the quantities defining u, except u[lₚ] which comes
// back as the separate return value.
//
// C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. (revised 1995 edition)
// Chapters 10.
func h1(p, l, m int, v []float64, ive int) (up float64) {

	// 0 ≤ lₚ < l₁ ≤ m-1
	if p < 0 || p >= l || l >= m {
		return
	}

	lp := uint(p * ive)
	l1 := uint(l * ive)
	lm := uint((m - 1) * ive)
	lv := uint(len(v))
	if ive <= 0 || lp >= lv || l1 >= lv || lm >= lv {
		panic("bound check error")
	}

	// The largest magnitude among the pivot and the tail to be zeroed
	maxV := math.Abs(v[lp])
	for j := l1; j <= lm; j += uint(ive) {
		maxV = math.Max(math.Abs(v[j]), maxV)
	}
	if maxV <= zero {
		return
	}

	// (vₚ² + ∑vᵢ²)¹ᐟ² for l ≤ i < m, accumulated on the normalized vector
	invV := one / maxV
	sumV := math.Pow(v[lp]*invV, 2)
	for j := l1; j <= lm; j += uint(ive) {
		sumV += math.Pow(v[j]*invV, 2)
	}

	// s = -σ(vₚ² + ∑vᵢ²)¹ᐟ² with σ = -sgn(vₚ)
	s := maxV * math.Sqrt(sumV)
	if v[lp] > zero {
		s = -s
	}

	up = v[lp] - s // uₚ = vₚ - s
	v[lp] = s      // yₚ = s
	return
}

// h2 applies the Householder transformation built by h1 to the ncv column
// vectors stored in c, as Qc = c + b⁻¹(uᵀc)u for each of them.
//
//   - ice: the storage increment between elements of a vector in c.
//   - icv: the storage increment between vectors in c.
//   - ncv: the number of vectors to transform; nothing happens for ncv ≤ 0.
func h2(p, l, m int,
	u []float64,
	iue int,
	up float64,
	c []float64,
	ice, icv, ncv int) {

	// 0 ≤ lₚ < l₁ ≤ m-1
	if p < 0 || p >= l || l >= m || ncv <= 0 {
		return
	}

	b := u[p*iue] * up // b = suₚ
	if b >= zero {
		// Q = Iₘ when b = suₚ = 0
		return
	}

	b = one / b
	base := uint(ice * p)
	incr := uint(ice * (l - p))

	l1 := uint(l * iue)
	lm := uint((m - 1) * iue)
	lu := uint(len(u))
	lc := uint(len(c))
	ln := base + uint(icv)*(uint(ncv)-1)
	if iue <= 0 || l1 >= lu || lm >= lu || base >= lc || ln >= lc {
		panic("bound check error")
	}

	for j := base; j <= ln; j += uint(icv) {
		// The j-th column vector c = Cᵀⱼ
		c1, cm := j+incr, (j+incr)+uint(m-l-1)*uint(ice)
		if c1 >= lc || cm >= lc {
			panic("bound check error")
		}
		// uᵀc = uₚcₚ + ∑cᵢuᵢ for l ≤ i < m
		sm := c[j] * up
		for iu, ic := l1, c1; iu <= lm && ic <= cm; {
			sm += c[ic] * u[iu]
			ic += uint(ice)
			iu += uint(iue)
		}
		if sm != zero {
			sm *= b // b⁻¹(uᵀc)
			c[j] += sm * up
			for iu, ic := l1, c1; iu <= lm && ic <= cm; {
				c[ic] += sm * u[iu]
				ic += uint(ice)
				iu += uint(iue)
			}
		}
	}
}

// g1 computes the 2×2 Givens rotation
//
//	G ⎡x₁⎤ ≡ ⎡ c s⎤⎡x₁⎤ = ⎡(x₁²+x₂²)¹ᐟ²⎤ ≡ ⎡r⎤
//	  ⎣x₂⎦   ⎣-s c⎦⎣x₂⎦   ⎣     ０     ⎦   ⎣0⎦
//
// used to restore the triangular structure of least squares systems
//
//	          ⎡ Rₙₓₙ ⎤      ⎡ dₙₓ₁ ⎤
//	where A = ⎢ 0₁ₓₙ ⎢, b = ⎢ e₁ₓ₁ ⎢ and R is upper triangular
//	          ⎣ y₁ₓₙ ⎦      ⎣ z₁ₓ₁ ⎦
//
// after a row has been appended, leaving the right side non-zero only in
// the first n+1 components.
//
// C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. (revised 1995 edition)
// Chapters 3.
func g1(a, b float64) (c, s, sig float64) {
	var xr, yr float64

	if xa, xb := math.Abs(a), math.Abs(b); xa > xb {
		xr = b / a
		yr = math.Sqrt(1 + xr*xr)
		c = math.Copysign(1/yr, a)
		s = c * xr
		sig = xa * yr
	} else if xb > 0 {
		xr = a / b
		yr = math.Sqrt(1 + xr*xr)
		s = math.Copysign(1/yr, b)
		c = s * xr
		sig = xb * yr
	} else {
		s = 1
	}
	return
}

// g2 rotates the pair (x, y) by the Givens rotation computed by g1
//
//	G ⎡z₁⎤ =⎡ c s⎤⎡z₁⎤ = ⎡ cz₁ + sz₂⎤
//	  ⎣z₂⎦  ⎣-s c⎦⎣z₂⎦   ⎣-sz₁ + cz₂⎦
func g2(c, s float64, x, y float64) (xr, yr float64) {
	xr = c*x + s*y
	yr = -s*x + c*y
	return
}

// compositeT updates the 𝐋𝐃𝐋ᵀ factorization under the rank-1 modification
// 𝐀߬ = 𝐀 + σ𝐳𝐳ᵀ = ∑ 𝐥߬ᵢ𝐝߬ᵢ𝐥߬ᵢᵀ
//   - 𝐀 is an n × n positive definite symmetric matrix
//   - 𝐋 = [𝐥₁···𝐥ₙ] is lower triangular with unit diagonal
//   - 𝐃 = (𝐝₁···𝐝ₙ) is diagonal with positive entries
//   - σ is a scalar and 𝐳 a vector, with 𝐀߬ kept positive definite
//
// Dieter Kraft, 'A Software Package for Sequential Quadratic Programming', 1988.
// Chapters 2.32.
func compositeT(n uint, a, z []float64, sigma float64, w []float64) {

	// if σ = 0 then terminate
	if sigma == zero {
		return
	}

	t := one / sigma
	ij := uint(0)

	if n <= 0 || n > uint(len(z)) {
		panic("bound check error")
	}

	// if σ < 0 construct 𝐰 = 𝐳 - 𝐋⁻¹𝐳
	if sigma <= zero {

		if n > uint(len(w)) {
			panic("bound check error")
		}

		copy(w, z)
		// solve 𝐋𝐯 = 𝐳 and update 𝐭ᵢ₊₁ = 𝐭ᵢ + 𝐯ᵢ²/dᵢ
		for i := uint(0); i < n; i++ {
			v := w[i]
			t += v * v / a[ij]
			for j := i + 1; j < n; j++ {
				ij++
				w[j] -= v * a[ij]
			}
			ij++
		}
		// if 𝐭ₙ ≥ 0 then set 𝐭ₙ = ε/σ
		if t >= zero {
			t = eps / sigma
		}
		// recompute 𝐭ᵢ₋₁ = 𝐭ᵢ - 𝐯ᵢ²/𝐝ᵢ
		for j := int(n) - 1; j >= 0; j-- {
			u := w[j]
			w[j] = t
			ij -= n - uint(j)
			t -= u * u / a[ij]
		}
	}

	ij = 0
	for i := uint(0); i < n; i++ {
		v := z[i]
		delta := v / a[ij]

		var tp float64
		if sigma < zero {
			tp = w[i] // 𝐭ᵢ₊₁ = 𝐰ᵢ₊₁
		} else {
			tp += t + delta*v // 𝐭ᵢ₊₁ = 𝐭ᵢ + 𝐯ᵢ²/𝐝ᵢ
		}

		alpha := tp / t // 𝐚ᵢ = 𝐭ᵢ₊₁ / 𝐭ᵢ
		a[ij] *= alpha  // 𝐝ᵢ = 𝐚ᵢ𝐝ᵢ₊₁

		if i == n-1 {
			break
		}

		beta := delta / tp // 𝐛ᵢ = (𝐯ᵢ / 𝐝ᵢ) / 𝐭ᵢ
		if alpha > four {
			gamma := t / tp
			for j := i + 1; j < n; j++ {
				ij++
				u := a[ij]                  // 𝐥ᵢ
				a[ij] = gamma*u + beta*z[j] // 𝐥߬ᵢ = (𝐭ᵢ / 𝐭ᵢ₊₁)𝐥ᵢ + 𝐛ᵢ𝐳⁽ⁱ⁾ᵢ
				z[j] -= v * u               // 𝐳⁽ⁱ⁺¹⁾ = 𝐳⁽ⁱ⁾ - 𝐯ᵢ𝐥ᵢ
			}
		} else {
			for j := i + 1; j < n; j++ {
				ij++
				z[j] -= v * a[ij]    // 𝐳⁽ⁱ⁺¹⁾ = 𝐳⁽ⁱ⁾ - 𝐯ᵢ𝐥ᵢ
				a[ij] += beta * z[j] // 𝐥߬ᵢ = 𝐥ᵢ + 𝐛ᵢ𝐳⁽ⁱ⁺¹⁾ᵢ
			}
		}
		ij++
		t = tp
	}
}

// ldlFactor computes in place the 𝐋𝐃𝐋ᵀ factorization of a symmetric positive
// semi-definite matrix stored packed column-wise as lower triangle with the
// diagonal element leading each column, the same layout compositeT maintains.
// Pivots are floored at ε relative to the largest diagonal entry, so a
// rank-deficient matrix still yields a usable positive definite factor.
func ldlFactor(n int, b []float64) {
	dmax := zero
	for j, o := 0, 0; j < n; j++ {
		dmax = math.Max(dmax, math.Abs(b[o]))
		o += n - j
	}
	floor := eps * math.Max(dmax, four*eps)
	for j, pj := 0, 0; j < n; j++ {
		d := b[pj]
		for k, pk := 0, 0; k < j; k++ {
			ljk := b[pk+j-k]
			d -= ljk * ljk * b[pk]
			pk += n - k
		}
		if d < floor {
			d = floor
		}
		b[pj] = d
		for i := j + 1; i < n; i++ {
			sm := b[pj+i-j]
			for k, pk := 0, 0; k < j; k++ {
				sm -= b[pk+i-k] * b[pk+j-k] * b[pk]
				pk += n - k
			}
			b[pj+i-j] = sm / d
		}
		pj += n - j
	}
}

type findMode int

const (
	findNoop findMode = iota
	findInit
	findNext
	findConv
)

type findWork struct {
	a, b, d, e, p, q, r, u, v, w, x, m, fu, fv, fw, fx, tol1, tol2 float64
}

// findMin locates a minimizer of a function over the interval alpha without
// derivatives, alternating golden section with successive quadratic
// interpolation. The function value at the returned abscissa is brought in
// through f on the next call, under reverse communication controlled by mode.
func findMin(
	m findMode,
	w *findWork,
	f float64, // function value at the abscissa returned by the previous call
	tol float64, // desired length of the final interval of uncertainty
	alpha Bound, // initial interval
) (argMin float64, mode findMode) {

	c := invPhi2
	ax, bx := alpha.Lower, alpha.Upper

	switch m {
	case findInit:
		// Main loop starts
		w.fx = f
		w.fv = w.fx
		w.fw = w.fv
	case findNext:
		w.fu = f
		// Update a, b, v, w, and x
		if u, x := w.u, w.x; w.fu > w.fx {
			if u < x {
				w.a = u
			}
			if u >= x {
				w.b = u
			}
			if w.fu <= w.fw || math.Abs(w.w-x) <= zero {
				w.v, w.fv = w.w, w.fw
				w.w, w.fw = w.u, w.fu
			} else if w.fu <= w.fv || math.Abs(w.v-x) <= zero || math.Abs(w.v-w.w) <= zero {
				w.v, w.fv = w.u, w.fu
			}
		} else {
			if u >= x {
				w.a = x
			}
			if u < x {
				w.b = x
			}
			w.v, w.fv = w.w, w.fw
			w.w, w.fw = w.x, w.fx
			w.x, w.fx = w.u, w.fu
		}
	default:
		// Initialization
		w.a, w.b = ax, bx
		w.e = zero
		w.v = w.a + c*(w.b-w.a)
		w.w, w.x = w.v, w.v
		return w.x, findInit
	}

	w.m = 0.5 * (w.a + w.b)
	w.tol1 = sqrtEps*math.Abs(w.x) + tol
	w.tol2 = 2 * w.tol1

	// Test for convergence
	if math.Abs(w.x-w.m) <= w.tol2-0.5*(w.b-w.a) {
		// End of main loop
		return w.x, findConv
	}

	// Parabolic interpolation or golden-section step
	r, q, p, d, e := zero, zero, zero, w.d, w.e
	if math.Abs(e) > w.tol1 {
		// Fit parabola
		fx, fw, fv := w.fx, w.fw, w.fv
		x, w, v := w.x, w.w, w.v
		r = (x - w) * (fx - fv)
		q = (x - v) * (fx - fw)
		p = (x-v)*q - (x-w)*r
		q = 2 * (q - r)
		if q > zero {
			p = -p
		}
		if q < zero {
			q = -q
		}
		r, e = e, d
	}
	w.r, w.q, w.p = r, q, p

	if a, b, x := w.a, w.b, w.x; math.Abs(p) >= 0.5*math.Abs(q*r) || p <= q*(a-x) || p >= q*(b-x) {
		// Golden-section step
		if x >= w.m {
			e = a - x
		} else {
			e = b - x
		}
		d = c * e
	} else {
		// Parabolic interpolation step
		if w.u-a < w.tol2 || b-w.u < w.tol2 {
			// Ensure not too close to bounds
			d = math.Copysign(w.tol1, w.m-x)
		} else {
			d = p / q
		}
	}

	// Ensure not too close to x
	if math.Abs(d) < w.tol1 {
		d = math.Copysign(w.tol1, d)
	}

	w.d, w.e = d, e
	w.u = w.x + w.d
	return w.u, findNext
}
