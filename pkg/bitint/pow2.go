// SPDX-License-Identifier: MIT

// Package bitint provides the small integer helpers used when sizing analysis
// windows and device writes: power-of-two checks for FFT frame sizes and
// alignment of byte counts to whole PCM frames.
package bitint

import "math/bits"

// IsPowerOfTwo reports whether n is a positive power of two.
// Powers of two have exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// NextPowerOfTwo returns the smallest power of two >= n. Values <= 0 yield 1.
//
//	4 -> 4, 5 -> 8, 0 -> 1
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	// n-1 keeps exact powers of two from being doubled.
	return 1 << bits.Len(uint(n-1))
}

// Log2 returns log2(n) for a power of two n, or -1 otherwise.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}

// AlignDown rounds n down to a multiple of align. An align <= 1 returns n
// unchanged; negative n is clamped to 0.
func AlignDown(n, align int) int {
	if n <= 0 {
		return 0
	}
	if align <= 1 {
		return n
	}
	return n - n%align
}
