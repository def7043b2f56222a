package margin

import (
	"github.com/margined-protocol/perp-margin-core/pkg/fixedpoint"
	"github.com/margined-protocol/perp-margin-core/pkg/oracle"
	"github.com/margined-protocol/perp-margin-core/pkg/perptypes"
)

// SpotValue is the weighted contribution of one spot position, already
// routed to either the requirement or the collateral side by IsLiability.
type SpotValue struct {
	Weighted    fixedpoint.U128
	IsLiability bool
}

// CalculateSpotPositionValue prices one non-empty spot position into its
// weighted quote-collateral contribution (spec.md §4.3.2).
func CalculateSpotPositionValue(
	pos *perptypes.SpotPosition,
	market *perptypes.SpotMarket,
	reqType perptypes.MarginRequirementType,
	oracleMap *oracle.Map,
) (SpotValue, error) {
	const op = "margin.spot_position_value"

	price, err := oracleMap.GetForSource(market.OracleSource, market.OracleKey, perptypes.PriceScale, perptypes.MaxOracleDelaySlots)
	if err != nil {
		return SpotValue{}, err
	}

	cumulativeInterest := market.CumulativeDepositInterest
	if pos.BalanceType == perptypes.Borrow {
		cumulativeInterest = market.CumulativeBorrowInterest
	}

	tokenAmount, err := fixedpoint.MulDivU192(op, pos.Balance, cumulativeInterest, perptypes.SpotInterestPrecision)
	if err != nil {
		return SpotValue{}, err
	}

	tokenAmount, err = worstCaseTokenAmount(op, tokenAmount, pos)
	if err != nil {
		return SpotValue{}, err
	}

	isLiability := pos.BalanceType == perptypes.Borrow
	priceForValuation, err := confidenceAdjustedPrice(op, price, isLiability)
	if err != nil {
		return SpotValue{}, err
	}

	value, err := fixedpoint.MulDivU192(op, tokenAmount, priceForValuation, scaleFor(market.Decimals))
	if err != nil {
		return SpotValue{}, err
	}
	// value is at PriceScale (priceForValuation's scale); rescale down to
	// QuoteScale so it is additively comparable to a perp position's
	// unrealized PnL.
	value, err = fixedpoint.MulDivU192(op, value, perptypes.QuoteScale, perptypes.PriceScale)
	if err != nil {
		return SpotValue{}, err
	}

	var weight fixedpoint.U128
	if isLiability {
		baseWeight := market.InitialLiabilityWeight
		if reqType == perptypes.Maintenance {
			baseWeight = market.MaintenanceLiabilityWeight
		}
		weight, err = LiabilityWeight(value, market.ImfFactor, baseWeight)
	} else {
		baseWeight := market.InitialAssetWeight
		if reqType == perptypes.Maintenance {
			baseWeight = market.MaintenanceAssetWeight
		}
		weight, err = AssetWeight(value, market.ImfFactor, baseWeight, reqType)
	}
	if err != nil {
		return SpotValue{}, err
	}

	weighted, err := fixedpoint.MulDivU192(op, value, weight, perptypes.WeightScale)
	if err != nil {
		return SpotValue{}, err
	}

	return SpotValue{Weighted: weighted, IsLiability: isLiability}, nil
}

// worstCaseTokenAmount widens the raw token amount by open orders that could
// move it against the user: an open bid could deposit more of the asset
// (favorable for deposits, unfavorable to flag for borrows it would repay),
// an open ask could remove it. Spec.md §4.3.2 step 3 asks for the worse of
// the two resulting scenarios; "worse" means the smaller deposit value or
// the larger borrow value.
func worstCaseTokenAmount(op string, base fixedpoint.U128, pos *perptypes.SpotPosition) (fixedpoint.U128, error) {
	withBids, err := addSignedMagnitude(op, base, pos.OpenBids)
	if err != nil {
		return fixedpoint.U128{}, err
	}
	withAsks, err := addSignedMagnitude(op, base, pos.OpenAsks)
	if err != nil {
		return fixedpoint.U128{}, err
	}

	if pos.BalanceType == perptypes.Borrow {
		if withBids.GT(withAsks) {
			return withBids, nil
		}
		return withAsks, nil
	}
	if withBids.GT(withAsks) {
		return withAsks, nil
	}
	return withBids, nil
}

func addSignedMagnitude(op string, base fixedpoint.U128, delta fixedpoint.I128) (fixedpoint.U128, error) {
	if delta.Sign() >= 0 {
		return base.Add(op, delta.Abs())
	}
	return base.SaturatingSub(delta.Abs()), nil
}

// confidenceAdjustedPrice discounts an asset's price downward by its
// confidence interval, or inflates a liability's price upward by it, so
// that oracle noise never understates risk (spec.md §4.3.2 step 4).
func confidenceAdjustedPrice(op string, price oracle.PriceData, isLiability bool) (fixedpoint.U128, error) {
	magnitude := price.Price.Abs()
	if isLiability {
		return magnitude.Add(op, price.Confidence)
	}
	return magnitude.SaturatingSub(price.Confidence), nil
}

// scaleFor returns 10^decimals as a U128, the token-amount-to-one-unit
// divisor used when converting a raw balance into its oracle-priced value.
func scaleFor(decimals uint8) fixedpoint.U128 {
	scale := fixedpoint.U128FromUint64(1)
	ten := fixedpoint.U128FromUint64(10)
	for i := uint8(0); i < decimals; i++ {
		scale, _ = scale.Mul("scale_for", ten)
	}
	return scale
}
