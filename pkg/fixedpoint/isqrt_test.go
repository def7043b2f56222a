package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntegerSqrtExactSquares(t *testing.T) {
	cases := []uint64{0, 1, 4, 9, 100, 1_000_000, 1_000_000_000_000}
	for _, n := range cases {
		sq := new(big.Int).Mul(new(big.Int).SetUint64(n), new(big.Int).SetUint64(n))
		x, err := U128FromBigInt("test", sq)
		require.NoError(t, err)
		got := IntegerSqrt(x)
		require.Equal(t, n, got.BigInt().Uint64(), "sqrt(%d^2)", n)
	}
}

func TestIntegerSqrtNonSquareFloors(t *testing.T) {
	// sqrt(10) floors to 3, sqrt(99) floors to 9.
	require.Equal(t, uint64(3), IntegerSqrt(U128FromUint64(10)).BigInt().Uint64())
	require.Equal(t, uint64(9), IntegerSqrt(U128FromUint64(99)).BigInt().Uint64())
}

func TestIntegerSqrtZero(t *testing.T) {
	require.True(t, IntegerSqrt(ZeroU128()).IsZero())
}

func TestIntegerSqrtLarge(t *testing.T) {
	// A value near the top of the 128-bit range, to exercise the Newton
	// seed at a large bit length.
	n := new(big.Int).Lsh(big.NewInt(1), 126)
	x, err := U128FromBigInt("test", n)
	require.NoError(t, err)

	got := IntegerSqrt(x)
	square := new(big.Int).Mul(got.BigInt(), got.BigInt())
	require.True(t, square.Cmp(n) <= 0, "floor square must not exceed n")

	nextSquare := new(big.Int).Mul(
		new(big.Int).Add(got.BigInt(), big.NewInt(1)),
		new(big.Int).Add(got.BigInt(), big.NewInt(1)),
	)
	require.True(t, nextSquare.Cmp(n) > 0, "next integer squared must exceed n")
}

func TestIntegerSqrtMonotone(t *testing.T) {
	prev := IntegerSqrt(ZeroU128())
	for _, n := range []uint64{1, 10, 100, 1000, 10000, 100000} {
		cur := IntegerSqrt(U128FromUint64(n))
		require.True(t, cur.GTE(prev), "sqrt must be non-decreasing")
		prev = cur
	}
}
