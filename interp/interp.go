// package interp provides helpers for interpolating samples.
package interp

import (
	"golang.org/x/exp/constraints"
)

// L does linear interpolation:
//
//	   L(a, b, c) = (1-c)*a + c*b
//		= a + c*(b-a)
//
// c outside [0, 1] extrapolates.
func L[T constraints.Float](a, b, c T) T {
	return a + c*(b-a)
}
