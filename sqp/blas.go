// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqp

import "math"

// Strided level-1 vector kernels in the reference BLAS calling convention.
// A negative stride is never used here, so the walk always starts at the
// first element and the bound of the run is checked once up front.

// daxpy computes y = a·x + y over n strided elements.
func daxpy(n int, da float64, dx []float64, incx int, dy []float64, incy int) {
	if n <= 0 || da == 0.0 {
		return
	}
	lx, ly := uint(incx*(n-1)), uint(incy*(n-1))
	if lx >= uint(len(dx)) || ly >= uint(len(dy)) {
		panic("bound check error")
	}
	for i, ix, iy := 0, uint(0), uint(0); i < n; i++ {
		dy[iy] += da * dx[ix]
		ix += uint(incx)
		iy += uint(incy)
	}
}

// ddot computes the inner product of two strided vectors.
func ddot(n int, dx []float64, incx int, dy []float64, incy int) (dot float64) {
	if n <= 0 {
		return 0.0
	}
	lx, ly := uint(incx*(n-1)), uint(incy*(n-1))
	if lx >= uint(len(dx)) || ly >= uint(len(dy)) {
		panic("bound check error")
	}
	for i, ix, iy := 0, uint(0), uint(0); i < n; i++ {
		dot += dx[ix] * dy[iy]
		ix += uint(incx)
		iy += uint(incy)
	}
	return dot
}

// dcopy copies n strided elements of x into y.
func dcopy(n int, dx []float64, incx int, dy []float64, incy int) {
	if n <= 0 {
		return
	}
	if incx == 1 && incy == 1 {
		copy(dy[:n], dx[:n])
		return
	}
	lx, ly := uint(incx*(n-1)), uint(incy*(n-1))
	if lx >= uint(len(dx)) || ly >= uint(len(dy)) {
		panic("bound check error")
	}
	for i, ix, iy := 0, uint(0), uint(0); i < n; i++ {
		dy[iy] = dx[ix]
		ix += uint(incx)
		iy += uint(incy)
	}
}

// dscal scales n strided elements of x by a constant.
func dscal(n int, da float64, dx []float64, incx int) {
	if n <= 0 || incx <= 0 {
		return
	}
	l := uint(incx * (n - 1))
	if l >= uint(len(dx)) {
		panic("bound check error")
	}
	for i, ix := 0, uint(0); i < n; i++ {
		dx[ix] *= da
		ix += uint(incx)
	}
}

// dnrm2 computes the Euclidean norm of a strided vector without
// overflow or underflow in the intermediate squares.
func dnrm2(n int, x []float64, incx int) float64 {
	if n < 1 || incx < 1 {
		return zero
	}
	l := uint(incx * (n - 1))
	if l >= uint(len(x)) {
		panic("bound check error")
	}

	if n == 1 {
		return math.Abs(x[0])
	}

	scale := zero
	ssq := one
	for i, ix := 0, uint(0); i < n; i++ {
		if absxi := math.Abs(x[ix]); absxi > 0 {
			if scale < absxi {
				sxi := scale / absxi
				ssq = 1 + ssq*sxi*sxi
				scale = absxi
			} else {
				sxi := absxi / scale
				ssq += sxi * sxi
			}
		}
		ix += uint(incx)
	}

	return scale * math.Sqrt(ssq)
}

// dzero clears a contiguous vector.
func dzero(dx []float64) {
	for i := range dx {
		dx[i] = zero
	}
}
