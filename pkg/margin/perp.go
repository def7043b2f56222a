package margin

import (
	"github.com/margined-protocol/perp-margin-core/pkg/fixedpoint"
	"github.com/margined-protocol/perp-margin-core/pkg/oracle"
	"github.com/margined-protocol/perp-margin-core/pkg/perptypes"
)

// PerpValue is one position's contribution to the requirement and
// collateral running totals (spec.md §4.3.3).
type PerpValue struct {
	MarginRequirement      fixedpoint.U128
	CollateralContribution fixedpoint.U128
}

// CalculatePerpPositionValueAndPnl prices one non-default perp position,
// producing its margin requirement contribution and its collateral
// contribution from unrealized PnL (spec.md §4.3.3).
func CalculatePerpPositionValueAndPnl(
	pos *perptypes.PerpPosition,
	market *perptypes.PerpMarket,
	reqType perptypes.MarginRequirementType,
	oracleMap *oracle.Map,
) (PerpValue, error) {
	const op = "margin.perp_position_value"

	baseAssetAmount, quoteAssetAmount, err := settleLpShares(pos, market)
	if err != nil {
		return PerpValue{}, err
	}

	oraclePrice, err := oracleMap.Get(market.OracleKey, perptypes.MaxOracleDelaySlots)
	if err != nil {
		return PerpValue{}, err
	}

	marginPrice, err := CalculateOraclePriceForPerpMargin(market, oraclePrice)
	if err != nil {
		return PerpValue{}, err
	}

	baseValue, err := fixedpoint.MulDivU192(op, baseAssetAmount.Abs(), marginPrice, perptypes.PriceScale)
	if err != nil {
		return PerpValue{}, err
	}
	// baseValue is currently at BaseScale; rescale it down to QuoteScale in
	// the same step so it is additively comparable to quote_asset_amount.
	baseValue, err = fixedpoint.MulDivU192(op, baseValue, perptypes.QuoteScale, perptypes.BaseScale)
	if err != nil {
		return PerpValue{}, err
	}

	baseValueSigned, err := signedLike(op, baseValue, baseAssetAmount)
	if err != nil {
		return PerpValue{}, err
	}
	unrealizedPnl, err := baseValueSigned.Add(op, quoteAssetAmount)
	if err != nil {
		return PerpValue{}, err
	}

	baseRatio := market.Weights.MarginRatioInitial
	unrealizedBaseWeight := market.Weights.UnrealizedInitialAssetWeight
	if reqType == perptypes.Maintenance {
		baseRatio = market.Weights.MarginRatioMaintenance
		unrealizedBaseWeight = market.Weights.UnrealizedMaintenanceAssetWeight
	}

	ratio, err := MarginRatio(baseValue, market.Weights.ImfFactor, baseRatio)
	if err != nil {
		return PerpValue{}, err
	}
	requirement, err := fixedpoint.MulDivU192(op, baseValue, ratio, perptypes.MarginRatioScale)
	if err != nil {
		return PerpValue{}, err
	}

	if surcharge := lpImbalanceSurcharge(market, pos); !surcharge.IsZero() {
		requirement, err = requirement.Add(op, surcharge)
		if err != nil {
			return PerpValue{}, err
		}
	}

	collateral := fixedpoint.ZeroU128()
	if unrealizedPnl.Sign() > 0 {
		weight, werr := UnrealizedAssetWeight(unrealizedPnl.Abs(), market.Weights.UnrealizedImfFactor, unrealizedBaseWeight, reqType)
		if werr != nil {
			return PerpValue{}, werr
		}
		collateral, err = fixedpoint.MulDivU192(op, unrealizedPnl.Abs(), weight, perptypes.WeightScale)
		if err != nil {
			return PerpValue{}, err
		}
	} else if unrealizedPnl.Sign() < 0 {
		collateral = fixedpoint.ZeroU128()
		loss := unrealizedPnl.Abs()
		requirement, err = requirement.Add(op, loss)
		if err != nil {
			return PerpValue{}, err
		}
	}

	return PerpValue{MarginRequirement: requirement, CollateralContribution: collateral}, nil
}

// settleLpShares derives a position's effective base/quote exposure,
// folding in the implied AMM exposure of any LP shares the user holds
// (spec.md §4.3.3 step 1). A position with no LP shares passes through
// unchanged.
func settleLpShares(pos *perptypes.PerpPosition, market *perptypes.PerpMarket) (base, quote fixedpoint.I128, err error) {
	if pos.LpShares.IsZero() {
		return pos.BaseAssetAmount, pos.QuoteAssetAmount, nil
	}

	const op = "margin.settle_lp_shares"
	totalLpShares := market.Amm.UserLpShares
	if totalLpShares.IsZero() {
		totalLpShares = fixedpoint.U128FromUint64(1)
	}
	impliedBase, err := fixedpoint.MulDivU192(op, pos.LpShares, market.Amm.BaseAssetReserve, totalLpShares)
	if err != nil {
		return fixedpoint.I128{}, fixedpoint.I128{}, err
	}
	impliedBaseSigned, err := fixedpoint.I128FromBigInt(op, impliedBase.BigInt())
	if err != nil {
		return fixedpoint.I128{}, fixedpoint.I128{}, err
	}

	base, err = pos.BaseAssetAmount.Add(op, impliedBaseSigned)
	if err != nil {
		return fixedpoint.I128{}, fixedpoint.I128{}, err
	}
	return base, pos.QuoteAssetAmount, nil
}

// CalculateOraclePriceForPerpMargin widens the oracle price by its
// confidence interval, then caps the result at the AMM's own mark price, so
// an oracle quote above mark cannot raise the margin price past what the AMM
// itself quotes. A widened price at or below mark is returned unchanged
// (spec.md §4.3.3 step 2).
func CalculateOraclePriceForPerpMargin(market *perptypes.PerpMarket, price oracle.PriceData) (fixedpoint.U128, error) {
	const op = "margin.oracle_price_for_perp_margin"

	magnitude := price.Price.Abs()
	widened, err := magnitude.Add(op, price.Confidence)
	if err != nil {
		return fixedpoint.U128{}, err
	}

	mark, err := markPrice(market)
	if err != nil {
		return fixedpoint.U128{}, err
	}

	if widened.GT(mark) {
		return mark, nil
	}
	return widened, nil
}

// markPrice derives the AMM's instantaneous mark price from its reserves
// and peg, peg_multiplier * quote_reserve / base_reserve (spec.md §3).
func markPrice(market *perptypes.PerpMarket) (fixedpoint.U128, error) {
	const op = "margin.mark_price"
	if market.Amm.BaseAssetReserve.IsZero() {
		return fixedpoint.ZeroU128(), nil
	}
	pegged, err := fixedpoint.MulDivU192(op, market.Amm.QuoteAssetReserve, market.Amm.PegMultiplier, perptypes.PriceScale)
	if err != nil {
		return fixedpoint.U128{}, err
	}
	return fixedpoint.MulDivU192(op, pegged, perptypes.PriceScale, market.Amm.BaseAssetReserve)
}

// lpImbalanceSurcharge adds a margin-requirement surcharge proportional to
// the AMM's reserve deviation from sqrt_k, for users who hold LP shares in
// an imbalanced market (spec.md §4.3.3 step 6). Returns zero for a user
// with no LP exposure or a perfectly balanced AMM.
func lpImbalanceSurcharge(market *perptypes.PerpMarket, pos *perptypes.PerpPosition) fixedpoint.U128 {
	if pos.LpShares.IsZero() {
		return fixedpoint.ZeroU128()
	}
	const op = "margin.lp_imbalance_surcharge"

	deviation := market.Amm.BaseAssetReserve.SaturatingSub(market.Amm.SqrtK)
	if deviation.IsZero() {
		deviation = market.Amm.SqrtK.SaturatingSub(market.Amm.BaseAssetReserve)
	}
	if deviation.IsZero() || market.Amm.UserLpShares.IsZero() {
		return fixedpoint.ZeroU128()
	}

	share, err := fixedpoint.MulDivU192(op, deviation, pos.LpShares, market.Amm.UserLpShares)
	if err != nil {
		return fixedpoint.ZeroU128()
	}
	return share
}

func signedLike(op string, magnitude fixedpoint.U128, like fixedpoint.I128) (fixedpoint.I128, error) {
	signed, err := fixedpoint.I128FromBigInt(op, magnitude.BigInt())
	if err != nil {
		return fixedpoint.I128{}, err
	}
	if like.Sign() < 0 {
		return signed.Neg(op)
	}
	return signed, nil
}

