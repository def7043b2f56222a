package margin

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/test-go/testify/assert"

	"github.com/margined-protocol/perp-margin-core/pkg/fixedpoint"
	"github.com/margined-protocol/perp-margin-core/pkg/oracle"
	"github.com/margined-protocol/perp-margin-core/pkg/perptypes"
)

// Scenario: spot asset weight table, imf_factor=0 (spec.md §8 scenario 1,
// first row). With no IMF term the curve passes the base weight through
// unchanged regardless of size.
func TestAssetLiabilityWeightZeroImf(t *testing.T) {
	size := fixedpoint.U128FromUint64(1000 * 1_000_000) // 1000 * QuoteScale-ish units

	assetWeight, err := AssetWeight(size, fixedpoint.ZeroU128(), fixedpoint.U128FromUint64(90), perptypes.Initial)
	require.NoError(t, err)
	assert.Equal(t, "90", assetWeight.String())

	liabilityWeight, err := LiabilityWeight(size, fixedpoint.ZeroU128(), fixedpoint.U128FromUint64(110))
	require.NoError(t, err)
	assert.Equal(t, "110", liabilityWeight.String())
}

func TestAssetWeightNonIncreasingInSize(t *testing.T) {
	imf := fixedpoint.U128FromUint64(10)
	base := fixedpoint.U128FromUint64(90)

	sizes := []uint64{1_000_000, 10_000_000, 100_000_000, 1_000_000_000, 100_000_000_000}
	prev := base
	for _, s := range sizes {
		w, err := AssetWeight(fixedpoint.U128FromUint64(s), imf, base, perptypes.Initial)
		require.NoError(t, err)
		assert.True(t, w.Cmp(prev) <= 0, "asset weight must be non-increasing as size grows")
		prev = w
	}
}

func TestLiabilityWeightNonDecreasingInSize(t *testing.T) {
	imf := fixedpoint.U128FromUint64(10)
	base := fixedpoint.U128FromUint64(110)

	sizes := []uint64{1_000_000, 10_000_000, 100_000_000, 1_000_000_000, 100_000_000_000}
	prev := base
	for _, s := range sizes {
		w, err := LiabilityWeight(fixedpoint.U128FromUint64(s), imf, base)
		require.NoError(t, err)
		assert.True(t, w.GTE(prev), "liability weight must be non-decreasing as size grows")
		prev = w
	}
}

func TestMarginRatioZeroImfPassesThrough(t *testing.T) {
	ratio, err := MarginRatio(fixedpoint.U128FromUint64(1_000_000), fixedpoint.ZeroU128(), fixedpoint.U128FromUint64(1000))
	require.NoError(t, err)
	assert.Equal(t, "1000", ratio.String())
}

func TestMarginRatioNonDecreasingInSize(t *testing.T) {
	imf := fixedpoint.U128FromUint64(10)
	base := fixedpoint.U128FromUint64(1000)

	prev := base
	for _, s := range []uint64{1_000_000, 1_000_000_000, 1_000_000_000_000} {
		r, err := MarginRatio(fixedpoint.U128FromUint64(s), imf, base)
		require.NoError(t, err)
		assert.True(t, r.GTE(prev))
		prev = r
	}
}

// Scenario: negative-margin user (spec.md §8 scenario 2). A user with a
// small spot deposit and a perp position carrying only a negative
// quote_asset_amount (no base exposure, so no price risk) ends up with a
// margin requirement larger than their collateral: the net margin is
// negative, which a caller computing (collateral - requirement) in
// unsigned arithmetic would have to clamp to zero rather than let
// underflow.
func TestNegativeMarginUser(t *testing.T) {
	spotMarkets := perptypes.SpotMarketMap{
		0: {
			MarketIndex:            0,
			Decimals:               6,
			CumulativeDepositInterest: perptypes.SpotInterestPrecision,
			CumulativeBorrowInterest:  perptypes.SpotInterestPrecision,
			InitialAssetWeight:     fixedpoint.U128FromUint64(100),
			MaintenanceAssetWeight: fixedpoint.U128FromUint64(100),
			InitialLiabilityWeight: fixedpoint.U128FromUint64(100),
			OracleSource:           oracle.SourceQuoteAsset,
			OracleKey:              "usdc",
		},
	}
	perpMarkets := perptypes.PerpMarketMap{
		0: {
			MarketIndex: 0,
			OracleKey:   "sol-perp",
			Amm: perptypes.AMM{
				BaseAssetReserve:  fixedpoint.U128FromUint64(1),
				QuoteAssetReserve: fixedpoint.U128FromUint64(1),
				SqrtK:             fixedpoint.U128FromUint64(1),
				PegMultiplier:     perptypes.PriceScale,
			},
			Weights: perptypes.MarketWeights{
				MarginRatioInitial:     fixedpoint.U128FromUint64(1000),
				MarginRatioMaintenance: fixedpoint.U128FromUint64(500),
			},
		},
	}
	oracleMap := oracle.NewMap(map[string]oracle.PriceData{
		"sol-perp": {
			Price:                   fixedpoint.I128FromInt64(100 * 10_000_000_000),
			Confidence:              fixedpoint.ZeroU128(),
			HasSufficientDataPoints: true,
		},
	})

	user := &perptypes.User{
		SpotPositions: []perptypes.SpotPosition{
			{MarketIndex: 0, BalanceType: perptypes.Deposit, Balance: fixedpoint.U128FromUint64(1_000_000)},
		},
		PerpPositions: []perptypes.PerpPosition{
			{MarketIndex: 0, QuoteAssetAmount: fixedpoint.I128FromInt64(-2_000_000)},
		},
	}

	totals, err := CalculateMarginRequirementAndTotalCollateral(user, perpMarkets, perptypes.Initial, spotMarkets, oracleMap)
	require.NoError(t, err)

	assert.True(t, totals.MarginRequirement.GT(totals.TotalCollateral),
		"a position with only negative quote PnL must drive requirement above collateral")

	net := totals.TotalCollateral.SaturatingSub(totals.MarginRequirement)
	assert.True(t, net.IsZero(), "net margin clamps to zero in unsigned arithmetic")
}

func TestMarginMonotonicityInitialVsMaintenance(t *testing.T) {
	market := &perptypes.PerpMarket{
		MarketIndex: 0,
		OracleKey:   "sol-perp",
		Amm: perptypes.AMM{
			BaseAssetReserve:  fixedpoint.U128FromUint64(1_000_000_000_000),
			QuoteAssetReserve: fixedpoint.U128FromUint64(1_000_000_000_000),
			SqrtK:             fixedpoint.U128FromUint64(1_000_000_000_000),
			PegMultiplier:     perptypes.PriceScale,
		},
		Weights: perptypes.MarketWeights{
			MarginRatioInitial:               fixedpoint.U128FromUint64(1000),
			MarginRatioMaintenance:           fixedpoint.U128FromUint64(500),
			UnrealizedInitialAssetWeight:     fixedpoint.U128FromUint64(90),
			UnrealizedMaintenanceAssetWeight: fixedpoint.U128FromUint64(100),
		},
	}
	pos := &perptypes.PerpPosition{
		MarketIndex:      0,
		BaseAssetAmount:  fixedpoint.I128FromInt64(10_000_000_000_000),
		QuoteAssetAmount: fixedpoint.I128FromInt64(-5_000_000),
	}
	oracleMap := oracle.NewMap(map[string]oracle.PriceData{
		"sol-perp": {
			Price:                   fixedpoint.I128FromInt64(100 * 10_000_000_000),
			Confidence:              fixedpoint.ZeroU128(),
			HasSufficientDataPoints: true,
		},
	})

	initial, err := CalculatePerpPositionValueAndPnl(pos, market, perptypes.Initial, oracleMap)
	require.NoError(t, err)
	maintenance, err := CalculatePerpPositionValueAndPnl(pos, market, perptypes.Maintenance, oracleMap)
	require.NoError(t, err)

	assert.True(t, initial.MarginRequirement.GTE(maintenance.MarginRequirement),
		"initial margin requirement must be at least the maintenance requirement")
}
