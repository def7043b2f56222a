package fixedpoint

import "math/big"

// IntegerSqrt returns floor(sqrt(x)) for a non-negative U128, computed via
// Newton's method seeded at 1 << (bitLen(x)/2) as specified (spec.md §4.3.4,
// §9). The IMF size-dependent weight curves are the only callers; they need
// an exact floor, not an approximation, since the curve must stay monotone
// at every breakpoint.
func IntegerSqrt(x U128) U128 {
	n := x.BigInt()
	if n.Sign() == 0 {
		return ZeroU128()
	}
	if n.Sign() < 0 {
		// Unreachable for U128, guarded for completeness.
		return ZeroU128()
	}

	one := big.NewInt(1)
	two := big.NewInt(2)

	seedShift := n.BitLen() / 2
	guess := new(big.Int).Lsh(one, uint(seedShift))
	if guess.Sign() == 0 {
		guess.SetInt64(1)
	}

	for {
		// next = (guess + n/guess) / 2
		quotient := new(big.Int).Quo(n, guess)
		sum := new(big.Int).Add(guess, quotient)
		next := new(big.Int).Quo(sum, two)

		if next.Cmp(guess) >= 0 {
			break
		}
		guess = next
	}

	// Newton's method on integers can overshoot by one on the way down;
	// correct it so the result is the exact floor.
	for {
		candidateSq := new(big.Int).Mul(guess, guess)
		if candidateSq.Cmp(n) <= 0 {
			break
		}
		guess.Sub(guess, one)
	}
	for {
		next := new(big.Int).Add(guess, one)
		nextSq := new(big.Int).Mul(next, next)
		if nextSq.Cmp(n) > 0 {
			break
		}
		guess = next
	}

	result, _ := U128FromBigInt("integer_sqrt", guess)
	return result
}
