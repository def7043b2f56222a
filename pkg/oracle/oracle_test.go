package oracle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/test-go/testify/assert"

	"github.com/margined-protocol/perp-margin-core/pkg/clearingerrors"
	"github.com/margined-protocol/perp-margin-core/pkg/fixedpoint"
)

func TestGetMissingKey(t *testing.T) {
	m := NewMap(nil)
	_, err := m.Get("sol-perp", 60)
	require.Error(t, err)
	assert.True(t, errors.Is(err, clearingerrors.ErrMarketNotFound))
}

func TestGetNonPositivePriceRejected(t *testing.T) {
	m := NewMap(map[string]PriceData{
		"sol-perp": {Price: fixedpoint.ZeroI128(), HasSufficientDataPoints: true},
	})
	_, err := m.Get("sol-perp", 60)
	require.Error(t, err)
	assert.True(t, errors.Is(err, clearingerrors.ErrOracleNonPositive))
}

func TestGetStalePriceRejected(t *testing.T) {
	m := NewMap(map[string]PriceData{
		"sol-perp": {
			Price:                   fixedpoint.I128FromInt64(1_000_000_000_000),
			Delay:                   100,
			HasSufficientDataPoints: true,
		},
	})
	_, err := m.Get("sol-perp", 60)
	require.Error(t, err)
	assert.True(t, errors.Is(err, clearingerrors.ErrOracleStale))
}

func TestGetZeroMaxDelayDisablesStalenessCheck(t *testing.T) {
	m := NewMap(map[string]PriceData{
		"sol-perp": {
			Price:                   fixedpoint.I128FromInt64(1_000_000_000_000),
			Delay:                   100_000,
			HasSufficientDataPoints: true,
		},
	})
	_, err := m.Get("sol-perp", 0)
	require.NoError(t, err)
}

func TestGetWithinDelayToleranceSucceeds(t *testing.T) {
	m := NewMap(map[string]PriceData{
		"sol-perp": {
			Price:                   fixedpoint.I128FromInt64(1_000_000_000_000),
			Confidence:              fixedpoint.U128FromUint64(1_000_000),
			Delay:                   5,
			HasSufficientDataPoints: true,
		},
	})
	price, err := m.Get("sol-perp", 60)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000", price.Price.String())
}

func TestGetForSourceQuoteAssetIsSynthetic(t *testing.T) {
	m := NewMap(nil)
	priceScale := fixedpoint.U128FromUint64(10_000_000_000)

	price, err := m.GetForSource(SourceQuoteAsset, "usdc", priceScale, 60)
	require.NoError(t, err)
	assert.Equal(t, priceScale.String(), price.Price.String())
	assert.True(t, price.HasSufficientDataPoints)
}

func TestGetForSourcePythDelegatesToMap(t *testing.T) {
	m := NewMap(map[string]PriceData{
		"sol-perp": {Price: fixedpoint.I128FromInt64(100), HasSufficientDataPoints: true},
	})
	price, err := m.GetForSource(SourcePyth, "sol-perp", fixedpoint.U128FromUint64(1), 60)
	require.NoError(t, err)
	assert.Equal(t, "100", price.Price.String())
}
