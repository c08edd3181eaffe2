// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqp

import (
	"math"
	"testing"
)

// Sweep hfti over the classic test matrices of Lawson-Hanson PROG2,
// both noiseless and with a relative noise of 1e-4, covering the
// under-determined, square and over-determined shapes.
//
// Origin: https://www.netlib.org/lawson-hanson/all (PROG2)
// Reference: https://people.math.sc.edu/Burkardt/f_src/lawson/lawson.html
func TestHFTI(t *testing.T) {

	const (
		mda = 8
		mdb = 8
		nb  = 1
	)

	a := make([]float64, mda*mda)
	b := make([]float64, mdb*nb)
	a0 := make([]float64, mda*mda)
	b0 := make([]float64, mdb*nb)
	g := make([]float64, mda)
	h := make([]float64, mda)
	ip := make([]int, mda)
	srsmsq := make([]float64, nb)

	var gen randGen

	for _, anoise := range []float64{zero, 0.0001} {

		gen.next(-one)

		var tau float64
		if anoise == zero {
			tau = 0.5
		} else {
			tau = 500.0 * anoise * 10.0
		}

		for mn1 := 1; mn1 <= 6; mn1 += 5 {
			for m := mn1; m <= mn1+2; m++ {
				for n := mn1; n <= mn1+2; n++ {

					for i := 0; i < m; i++ {
						for j := 0; j < n; j++ {
							a[i+mda*j] = gen.next(anoise)
						}
					}
					for i := 0; i < m; i++ {
						b[i] = gen.next(anoise)
					}
					copy(a0, a)
					copy(b0, b)

					krank := hfti(a, mda, m, n, b, mdb, nb, tau, srsmsq, h, g, ip)

					if krank < 0 || krank > min(m, n) {
						t.Fatalf("m=%d n=%d: pseudorank %d out of range", m, n, krank)
					}

					for i := 0; i < n; i++ {
						if math.IsNaN(b[i]) || math.IsInf(b[i], 0) {
							t.Fatalf("m=%d n=%d: solution not finite", m, n)
						}
					}

					if krank < n {
						continue
					}

					// At full column rank the reported residual length must
					// agree with the residual of the returned solution.
					var sq float64
					for i := 0; i < m; i++ {
						r := -b0[i]
						for j := 0; j < n; j++ {
							r += a0[i+mda*j] * b[j]
						}
						sq += r * r
					}
					if d := math.Abs(math.Sqrt(sq) - srsmsq[0]); d > 1e-7*(one+srsmsq[0]) {
						t.Fatalf("m=%d n=%d: residual %g disagrees with %g", m, n, math.Sqrt(sq), srsmsq[0])
					}
				}
			}
		}
	}
}
