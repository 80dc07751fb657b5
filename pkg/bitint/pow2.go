/*
Package bitint provides the power-of-two rounding used to size transforms.
It is constant time and allocation free.

	NextPowerOfTwo(1000) // 1024, the FFT length for a 1000-sample burst

One is subtracted before taking the bit length so an exact power of two
maps to itself: 8-1 = 0b0111 has length 3 and 1<<3 = 8, whereas
bits.Len(8) = 4 would double it.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size, and 1 for
// size <= 0.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}
