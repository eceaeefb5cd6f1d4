// SPDX-License-Identifier: MIT
//
// Package bitint holds the power-of-two helpers used to size transforms and
// zero-padding buffers. All functions are allocation free.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= n, or 1 for n <= 1.
// Subtracting one first keeps exact powers of two unchanged: 8-1 = 0b111 has
// bit length 3 and 1<<3 = 8.
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns floor(log2(n)) for n > 0 and -1 otherwise.
func Log2(n int) int {
	if n <= 0 {
		return -1
	}
	return bits.Len(uint(n)) - 1
}
