package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/test-go/testify/assert"
)

func TestI128AddOverflow(t *testing.T) {
	max, err := I128FromBigInt("test", maxI128)
	require.NoError(t, err)

	_, err = max.Add("test.overflow", I128FromInt64(1))
	require.Error(t, err)

	_, err = max.Add("test.no_overflow", I128FromInt64(0))
	require.NoError(t, err)
}

func TestI128SubUnderflow(t *testing.T) {
	min, err := I128FromBigInt("test", minI128)
	require.NoError(t, err)

	_, err = min.Sub("test.underflow", I128FromInt64(1))
	require.Error(t, err)
}

func TestU128SubUnderflowVsSaturating(t *testing.T) {
	small := U128FromUint64(1)
	larger := U128FromUint64(2)

	_, err := small.Sub("test.underflow", larger)
	require.Error(t, err)

	clamped := small.SaturatingSub(larger)
	assert.True(t, clamped.IsZero())
}

func TestDivByZero(t *testing.T) {
	_, err := U128FromUint64(10).Div("test.div0", ZeroU128())
	require.Error(t, err)

	_, err = I128FromInt64(10).Div("test.div0", ZeroI128())
	require.Error(t, err)
}

func TestMulDivU192(t *testing.T) {
	a := U128FromUint64(1_000_000_000_000)
	b := U128FromUint64(1_000_000_000_000)
	c := U128FromUint64(1_000_000)

	got, err := MulDivU192("test.muldiv", a, b, c)
	require.NoError(t, err)

	want := new(big.Int).Mul(a.BigInt(), b.BigInt())
	want.Quo(want, c.BigInt())
	assert.Equal(t, want.String(), got.String())
}

func TestMulDivU192OverflowsPlain128(t *testing.T) {
	// a*b = 2^180 alone overflows 128 bits; only the U192 widening makes
	// this computable, and dividing by 2^60 narrows it back into U128.
	a, err := U128FromBigInt("test", new(big.Int).Lsh(big.NewInt(1), 90))
	require.NoError(t, err)
	b, err := U128FromBigInt("test", new(big.Int).Lsh(big.NewInt(1), 90))
	require.NoError(t, err)
	c, err := U128FromBigInt("test", new(big.Int).Lsh(big.NewInt(1), 60))
	require.NoError(t, err)

	_, err = a.Mul("test.plain_overflow", b)
	require.Error(t, err)

	got, err := MulDivU192("test.widened", a, b, c)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Quo(new(big.Int).Mul(a.BigInt(), b.BigInt()), c.BigInt()).String(), got.String())
}

func TestNegAndAbs(t *testing.T) {
	x := I128FromInt64(-42)
	assert.Equal(t, "42", x.Abs().String())

	neg, err := x.Neg("test.neg")
	require.NoError(t, err)
	assert.Equal(t, int64(42), neg.Int64())
}

func TestI128FromBigIntBounds(t *testing.T) {
	_, err := I128FromBigInt("test", new(big.Int).Add(maxI128, big.NewInt(1)))
	require.Error(t, err)

	_, err = I128FromBigInt("test", new(big.Int).Sub(minI128, big.NewInt(1)))
	require.Error(t, err)
}
