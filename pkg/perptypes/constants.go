package perptypes

import "github.com/margined-protocol/perp-margin-core/pkg/fixedpoint"

// Scale constants. Values are chosen to be internally consistent with the
// worked examples in spec.md §8 (e.g. a BTC perp priced at 22050 with
// PriceScale=1e10 yields the pinned oracle_price_for_margin of
// 220500000000000).
var (
	// PriceScale is the fixed-point scale for oracle and mark prices.
	PriceScale = fixedpoint.U128FromUint64(10_000_000_000)
	// FundingRateScale is the fixed-point scale for funding rates; it
	// shares PriceScale since cumulative funding rates are price-like
	// deltas.
	FundingRateScale = fixedpoint.U128FromUint64(10_000_000_000)
	// BaseScale is the fixed-point scale for AMM reserves and
	// base-asset-amount fields.
	BaseScale = fixedpoint.U128FromUint64(10_000_000_000_000)
	// QuoteScale is the fixed-point scale for quote-asset amounts and
	// collateral.
	QuoteScale = fixedpoint.U128FromUint64(1_000_000)
	// AmmToQuoteRatio converts an AMM-native quote amount (BaseScale
	// precision) down to QuoteScale collateral precision.
	AmmToQuoteRatio = fixedpoint.U128FromUint64(10_000_000)
	// QuoteToBaseAmtFundingPrecision is used when reconstructing a
	// receiver-side funding rate from a residual pool size (spec.md
	// §4.2.2 step 3).
	QuoteToBaseAmtFundingPrecision = fixedpoint.U128FromUint64(1_000)
	// ImfScale is the denominator of the imf_factor term in the
	// size-dependent weight curves.
	ImfScale = fixedpoint.U128FromUint64(1_000_000)
	// WeightScale is the scale of asset/liability/unrealized-PnL weights
	// (e.g. 90 at this scale means 0.90 with WeightScale=100).
	WeightScale = fixedpoint.U128FromUint64(100)
	// MarginRatioScale is the scale of margin_ratio_initial and
	// margin_ratio_maintenance.
	MarginRatioScale = fixedpoint.U128FromUint64(10_000)
	// LiquidationFeeScale is the scale of a spot market's liquidation
	// fee.
	LiquidationFeeScale = fixedpoint.U128FromUint64(1_000_000)
	// SpotInterestPrecision is the scale of a spot market's cumulative
	// deposit/borrow interest index.
	SpotInterestPrecision = fixedpoint.U128FromUint64(10_000_000_000)
)

// FeeShareNum and FeeShareDen express the protocol's reserved share of
// total_fee: the fee pool floor below which funding distributions must not
// drain total_fee_minus_distributions (spec.md §3, §4.2.2).
const (
	FeeShareNum = 1
	FeeShareDen = 100
)

// MaxOracleDelaySlots is the staleness tolerance the margin engine passes
// to oracle.Map.Get for every spot and perp price lookup.
const MaxOracleDelaySlots = 60
