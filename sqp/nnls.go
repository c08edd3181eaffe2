// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqp

import (
	"math"
)

// nnls (Non-Negative Least-Squares) solves 𝚖𝚒𝚗 ‖ 𝐀𝐱 - 𝐛 ‖₂ subject to 𝐱 ≥ 0 with the active-set method.
//   - 𝐀 is m × n column-major matrix with 𝚛𝚊𝚗𝚔(𝐀) = n (the columns of 𝐀 are linearly independent)
//   - 𝐱 ∈ ℝⁿ
//   - 𝐛 ∈ ℝᵐ
//
// Two index sets partition the variables:
//   - 𝐱ⱼ = 0, j ∈ ℤ : variables indexed in the active set ℤ are held at the value zero
//   - 𝐱ⱼ > 0, j ∈ ℙ : variables indexed in the passive set ℙ are free to take any positive value
//
// Each outer iteration computes the dual vector 𝐰 = -𝛁𝒇(𝐱) = 𝐀ᵀ(𝐛 - 𝐀𝐱) and moves the index
// with the largest positive dual component from ℤ to ℙ. The Kuhn-Tucker conditions for this
// problem read
//   - 𝐰ⱼ = 0, ∀j ∈ ℙ
//   - 𝐰ⱼ ≤ 0, ∀j ∈ ℤ
//
// so the iteration terminates when no dual component in ℤ remains positive.
//
// With ℙ fixed, the equality-constrained sub-problem is the unconstrained least squares
// 𝚖𝚒𝚗 ½‖ 𝐀ᴾ𝐱 - 𝐛 ‖₂ over the columns currently in ℙ, solved through the QR decomposition
// 𝐐𝐀ᴾ = [𝐑ₖᵀ:O]ᵀ maintained incrementally by Householder transformations:
//   - the sub-problem solution is 𝐬 = [𝐑ₖ⁻¹:O]𝐐𝐛
//   - the residual norm is ‖ 𝐫 ‖₂ = ‖ 𝐐ᵀ𝐛₂ ‖₂
//
// If 𝐬 is feasible it becomes the next iterate. Otherwise 𝐝 = 𝐬 - 𝐱 is a descent direction
// and the step ɑ is found by projecting onto the nearest boundary defined by ℙ, after which
// every variable driven to zero moves back to ℤ and the triangular factor is repaired with
// Givens rotations.
//
// The input is treated as one m × (n+1) working space 𝐐[𝐀:𝐛] where
//   - the space of matrix 𝐀 stores the product 𝐐𝐀
//   - the space of vector 𝐛 stores the product 𝐐𝐛
//
// C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. (revised 1995 edition)
// Chapters 23, Algorithm 23.10.
func nnls(
	m, n int,
	// initially contains the m × n matrix 𝐀, either m ≥ n or m < n is permitted.
	// there is no restriction on 𝚛𝚊𝚗𝚔(𝐀).
	// on return the array will contain the product matrix 𝐐𝐀 generated implicitly by this routine.
	a []float64, mda int,
	// initially contains the m-vector 𝐛.
	// on return the array will contain the product matrix 𝐐𝐛 generated implicitly by this routine.
	b []float64,
	// will contain the solution vector 𝐱 of primal problem.
	x []float64,
	// will contain the dual vector 𝐰 describe the weight of constraint.
	w []float64,
	// array of working space
	z []float64, index []int,
	// maximum number of iterations
	maxIter int) (float64, Mode) {

	const factor = 0.01

	if m <= 0 || n <= 0 || mda < m ||
		len(a) < mda*n || len(b) < m || len(x) < n || len(w) < n || len(z) < m || len(index) < n {
		return math.NaN(), BadArgument
	}

	if maxIter <= 0 {
		maxIter = 3 * n
	}

	np := 0 // num of elem in set ℙ
	z1 := 0 // start index of set ℤ

	// index = ℙ ∪ ℤ = {1,···,n}
	// ℙ = index[:np] define the subset columns of 𝐀
	// ℤ = index[z1:]
	index = index[:n]
	for i := range index {
		index[i] = i
	}

	// Start from 𝐱 = O and all indices are initially in ℤ.
	dzero(x[:n])

	// Calculate norm-2 of the residual vector when return.
	iter := 0
	term := func() (rnorm float64, mode Mode) {
		if np < m { // m > 𝚛𝚊𝚗𝚔(𝐀)
			rnorm = dnrm2(m-np, b[np:], 1) // ‖ 𝐐ᵀ𝐛₂ ‖₂
		} else {
			dzero(w[:n])
		}
		if iter > maxIter {
			mode = NNLSExceedMaxIter
		} else {
			mode = HasSolution
		}
		return
	}

	// The main loop is continued until no more active constraints can be set free.
	for {
		if z1 >= n || // Quit if all coefficients are positive : ℤ = ∅ (𝐱 ≥ 0),
			np >= m { // or if m columns of 𝐀 have been triangularized.
			return term()
		}

		// Compute components of the dual vector 𝐰 = 𝐀ᵀ(𝐛 - 𝐀𝐱) (negative gradient).
		// Since 𝐰ⱼ = 0 for j ∈ ℙ, thus we only compute the 𝐰ⱼ for j ∈ ℤ.
		// Given 𝐱ⱼ = 0 for j ∈ ℤ, the update finally simplified to 𝐰 = 𝐀ᵀ𝐛.
		for _, j := range index[z1:] {
			w[j] = ddot(m-np, a[np+mda*j:], 1, b[np:], 1)
		}

		for {
			// Find index t ∈ ℤ such that 𝐰ₜ = 𝚊𝚛𝚐 𝚖𝚊𝚡 { 𝐰ⱼ: j ∈ ℤ }
			wmax, izmax := zero, 0
			for i, j := range index[z1:] {
				if w[j] > wmax {
					wmax, izmax = w[j], z1+i
				}
			}

			// Quit when 𝐰ⱼ ≤ 0, ∀j ∈ ℤ (no more constraint could be relaxed)
			// this indicates satisfaction of the Kuhn-Tucker conditions
			if wmax <= zero {
				return term()
			}

			// Move index t from ℤ to ℙ
			iz := izmax
			j := index[iz]
			aj := a[mda*j : mda*j+m : mda*j+m]

			// Given j-th column of 𝐀, compute corresponding Householder vector 𝐮.
			asave := aj[np]              // Save the pivot-th component of j-th column 𝐀ₚⱼ.
			up := h1(np, np+1, m, aj, 1) // Now the pivot-th component of j-th column is (𝐐𝐀)ₚⱼ.
			// The pivot-th component of 𝐮 is return as 𝐮ₚ.

			// Check new diagonal element to avoid near linear dependence.
			accept := false
			unorm := dnrm2(np, aj, 1) // ‖ 𝐮 ‖₂
			if math.Abs(aj[np])*factor >= unorm*eps {
				// If column j is sufficiently independent.
				// Compute Householder transformation z = 𝐐𝐛 = [ -σ‖𝐛‖₂ 0 ··· 0 ]ᵀ
				copy(z[:m], b[:m])
				h2(np, np+1, m, aj, 1, up, z, 1, 1, 1)
				// Solve 𝐐(𝐀𝐱)ⱼ ≅ 𝐐𝐛ⱼ for proposed new value for 𝐱ⱼ
				ztest := z[np] / aj[np] // 𝐱 = (𝐐𝐀)⁺𝐐𝐛
				accept = ztest > zero   // 𝐱ⱼ > 0
			}

			if !accept {
				// Reject j as a candidate to be moved from ℤ to ℙ,
				// restore 𝐀ₚⱼ and test dual coefficients again.
				aj[np] = asave
				w[j] = zero
				continue
			}

			// Now the index j=index(iz) is selected.

			// Update b = 𝐐𝐛.
			copy(b[:m], z[:m])

			// Move j from ℤ to ℙ.
			index[iz] = index[z1]
			index[z1] = j
			z1++
			np++

			// Apply Householder transformations to cols in new ℤ.
			if z1 < n {
				for _, jj := range index[z1:] {
					h2(np-1, np, m, aj, 1, up, a[jj*mda:], 1, mda, 1)
				}
			}
			// Zero sub-diagonal elements in col j.
			if np < m {
				dzero(aj[np:m])
			}
			// Set 𝐰ⱼ = 0 for j ∈ ℙ
			w[j] = zero
			break
		}

		// When new j join in the ℙ, the coefficients of the free variables in the unconstrained solution 𝐬 may turn negative.
		// The inner loop is continued until all violating variables have been moved to ℤ.
		for {
			// Compute EQP solution 𝐬 by solving triangular system 𝐱 = [𝐑ₖ⁻¹:O]𝐐𝐛
			for ip, jj := np-1, -1; ip >= 0; ip-- {
				if jj >= 0 {
					daxpy(ip+1, -z[ip+1], a[jj*mda:], 1, z, 1)
				}
				jj = index[ip]
				z[ip] /= a[ip+jj*mda]
			}

			// Check iteration count
			if iter++; iter > maxIter {
				return term()
			}

			// See if all new constrained coefficients are feasible.

			// Find index t ∈ ℙ such that 𝐱ₜ/(𝐱ₜ-𝐳ₜ) = 𝚊𝚛𝚐 𝚖𝚒𝚗 { 𝐱ⱼ/(𝐱ⱼ-𝐳ⱼ) : 𝐳ⱼ ≤ 0, j ∈ ℙ }
			alpha, jj := two, -1
			for ip, l := range index[:np] {
				if z[ip] <= zero { // found unfeasible coefficients
					// if not compute alpha.
					t := -x[l] / (z[ip] - x[l])
					if alpha > t { // ɑ = 𝐱ₜ/(𝐱ₜ-𝐳ₜ)
						alpha, jj = t, ip
					}
				}
			}

			// If all coefficients are feasible, exit secondary loop to main loop.
			if jj < 0 {
				for ip, idx := range index[:np] {
					x[idx] = z[ip]
				}
				break // goto mainLoop
			}

			// Interpolate between x and z
			// 𝐱 = 𝐱 + ɑ(𝐬 - 𝐱)
			for ip, l := range index[:np] {
				x[l] += alpha * (z[ip] - x[l])
			}

			// Move coefficient i from ℙ to ℤ
			i := index[jj]
			for {
				x[i] = zero
				if jj++; jj < np {
					for j := jj; j < np; j++ {
						ii := index[j]
						ci := a[ii*mda:]
						index[j-1] = ii
						var cc, ss float64
						cc, ss, ci[j-1] = g1(ci[j-1], ci[j])
						ci[j] = zero
						for l := 0; l < n; l++ {
							if l != ii {
								cl := a[l*mda : l*mda+j+1 : l*mda+j+1]
								cl[j-1], cl[j] = g2(cc, ss, cl[j-1], cl[j])
							}
						}
						b[j-1], b[j] = g2(cc, ss, b[j-1], b[j])
					}
				}

				np--
				z1--
				index[z1] = i

				// See if the remaining coefficients in ℙ are feasible.
				// They should be because of the way ɑ was determined.
				// If any are infeasible, it is due to round-off error.
				// Any that are non-positive will be set to zero and moved from ℙ to ℤ.
				for _, idx := range index[:np] {
					if x[idx] <= zero {
						continue
					}
				}
				break
			}

			// copy b into z.
			// then solve again and loop back.
			copy(z[:m], b[:m])
		}
	}
}
