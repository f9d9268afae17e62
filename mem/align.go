package mem

import "golang.org/x/exp/constraints"

// Align rounds a up to a multiple of b, b must be a power of two.
func Align[I constraints.Integer](a, b I) I {
	return (a + b - 1) &^ (b - 1)
}

// AlignDown rounds a down to a multiple of b, b must be a power of two.
func AlignDown[I constraints.Integer](a, b I) I {
	return a &^ (b - 1)
}
