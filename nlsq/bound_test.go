// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nlsq

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestBoundProperties(t *testing.T) {

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	finite := gen.Float64Range(-1e6, 1e6)

	properties.Property("one-sided limits round-trip", prop.ForAll(
		func(v float64) bool {
			lo, okLo := AtLeast(v).Lower()
			_, upLo := AtLeast(v).Upper()
			hi, okHi := AtMost(v).Upper()
			_, loHi := AtMost(v).Lower()
			return okLo && lo == v && !upLo && okHi && hi == v && !loHi
		},
		finite,
	))

	properties.Property("two-sided limits round-trip", prop.ForAll(
		func(a, b float64) bool {
			lo, hi := math.Min(a, b), math.Max(a, b)
			bd := Between(lo, hi)
			gotLo, okLo := bd.Lower()
			gotHi, okHi := bd.Upper()
			return okLo && okHi && gotLo == lo && gotHi == hi && bd.valid()
		},
		finite, finite,
	))

	properties.Property("reversed ranges are rejected", prop.ForAll(
		func(a, b float64) bool {
			lo, hi := math.Min(a, b), math.Max(a, b)
			if lo == hi {
				return true
			}
			_, err := Config{Nvars: 1, Neq: 1, Bounds: []Bound{Between(hi, lo)}}.New(quartic())
			return err != nil
		},
		finite, finite,
	))

	properties.Property("valid ranges are accepted", prop.ForAll(
		func(a, b float64) bool {
			lo, hi := math.Min(a, b), math.Max(a, b)
			s, err := Config{Nvars: 1, Neq: 1, Bounds: []Bound{Between(lo, hi)}}.New(quartic())
			return err == nil && s != nil
		},
		finite, finite,
	))

	properties.Property("free bound has no limits", prop.ForAll(
		func(_ int8) bool {
			var zero Bound
			_, okLo := zero.Lower()
			_, okHi := zero.Upper()
			_, okLo2 := Free().Lower()
			_, okHi2 := Free().Upper()
			return !okLo && !okHi && !okLo2 && !okHi2
		},
		gen.Int8(),
	))

	// A pinned constraint range leaves both accessors agreeing on one value.
	properties.Property("pinned ranges are equalities", prop.ForAll(
		func(v float64) bool {
			bd := Between(v, v)
			lo, okLo := bd.Lower()
			hi, okHi := bd.Upper()
			return okLo && okHi && lo == hi && bd.valid()
		},
		finite,
	))

	properties.TestingRun(t)
}
