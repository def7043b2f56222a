// Package funding implements the periodic funding-rate split between long
// and short holders, and the per-position funding payment that settles a
// single user position against a market's cumulative funding rate
// (spec.md §4.2).
package funding

import (
	"fmt"

	"github.com/margined-protocol/perp-margin-core/pkg/clearingerrors"
	"github.com/margined-protocol/perp-margin-core/pkg/fixedpoint"
	"github.com/margined-protocol/perp-margin-core/pkg/perptypes"
)

var (
	ammToQuoteRatioI128    = mustI128(perptypes.AmmToQuoteRatio)
	quoteToBaseFundingI128 = mustI128(perptypes.QuoteToBaseAmtFundingPrecision)
)

func mustI128(u fixedpoint.U128) fixedpoint.I128 {
	v, err := fixedpoint.I128FromBigInt("funding.const", u.BigInt())
	if err != nil {
		panic(err)
	}
	return v
}

// u128ToI128 widens a non-negative U128 into an I128, used for magnitudes
// that are known to fit (funding payments, fee-pool headroom).
func u128ToI128(op string, u fixedpoint.U128) (fixedpoint.I128, error) {
	return fixedpoint.I128FromBigInt(op, u.BigInt())
}

// paymentMagnitudeSigned computes the raw, AMM-native-precision funding
// payment for a base amount exposed to a funding-rate delta (spec.md
// §4.2.1 steps 1-3, the "_calculate_funding_payment" primitive). Widens to
// U192 before dividing since |delta|*|base| can exceed 128 bits.
//
// Sign rule: longs pay when funding is positive, shorts pay when funding
// is negative. A zero base amount short-circuits to zero to sidestep the
// signed-zero ambiguity called out in spec.md §9.
func paymentMagnitudeSigned(op string, delta, baseAssetAmount fixedpoint.I128) (fixedpoint.I128, error) {
	if baseAssetAmount.IsZero() {
		return fixedpoint.ZeroI128(), nil
	}

	absDelta := delta.Abs()
	absBase := baseAssetAmount.Abs()

	wide, err := fixedpoint.U192FromU128(absDelta).Mul(op, fixedpoint.U192FromU128(absBase))
	if err != nil {
		return fixedpoint.I128{}, err
	}
	wide, err = wide.Div(op, fixedpoint.U192FromU128(perptypes.PriceScale))
	if err != nil {
		return fixedpoint.I128{}, err
	}
	wide, err = wide.Div(op, fixedpoint.U192FromU128(perptypes.FundingRateScale))
	if err != nil {
		return fixedpoint.I128{}, err
	}
	magnitude, err := wide.Narrow(op)
	if err != nil {
		return fixedpoint.I128{}, err
	}
	if magnitude.IsZero() {
		return fixedpoint.ZeroI128(), nil
	}

	signed, err := u128ToI128(op, magnitude)
	if err != nil {
		return fixedpoint.I128{}, err
	}
	// delta's sign: zero treated as +1 (no effect on the product).
	if delta.Sign() < 0 {
		signed, err = signed.Neg(op)
		if err != nil {
			return fixedpoint.I128{}, err
		}
	}
	// base's sign: longs (base > 0) pay, so the base contributes -1;
	// zero base already short-circuited above, so only the true sign
	// matters here.
	if baseAssetAmount.Sign() > 0 {
		signed, err = signed.Neg(op)
		if err != nil {
			return fixedpoint.I128{}, err
		}
	}
	return signed, nil
}

// PaymentInQuotePrecision computes the funding payment for baseAssetAmount
// under a funding-rate delta, converted to quote-collateral precision by
// dividing by AMM_TO_QUOTE_RATIO (spec.md §4.2.1 step 4). This is the
// primitive the long/short split (below) uses to evaluate the protocol's
// symmetric PnL and the paying/receiving side's contribution.
func PaymentInQuotePrecision(delta, baseAssetAmount fixedpoint.I128) (fixedpoint.I128, error) {
	const op = "funding.payment_in_quote_precision"
	raw, err := paymentMagnitudeSigned(op, delta, baseAssetAmount)
	if err != nil {
		return fixedpoint.I128{}, err
	}
	return raw.Div(op, ammToQuoteRatioI128)
}

// PositionFundingPayment computes the signed, quote-precision delta to
// apply to a position's quote_asset_amount when settling it against the
// market's cumulative funding rate for its side (spec.md §4.2.1).
func PositionFundingPayment(cumulativeFundingRateDir, lastCumulativeFundingRate, baseAssetAmount fixedpoint.I128) (fixedpoint.I128, error) {
	const op = "funding.position_payment"
	delta, err := cumulativeFundingRateDir.Sub(op, lastCumulativeFundingRate)
	if err != nil {
		return fixedpoint.I128{}, err
	}
	return PaymentInQuotePrecision(delta, baseAssetAmount)
}

// SettleFundingForPosition applies the market's current cumulative funding
// rate (for the position's side) to position, mutating its
// QuoteAssetAmount and LastCumulativeFundingRate marker in place.
func SettleFundingForPosition(market *perptypes.PerpMarket, position *perptypes.PerpPosition) error {
	const op = "funding.settle_position"

	var dir fixedpoint.I128
	if position.BaseAssetAmount.Sign() >= 0 {
		dir = market.Amm.CumulativeFundingRateLong
	} else {
		dir = market.Amm.CumulativeFundingRateShort
	}

	payment, err := PositionFundingPayment(dir, position.LastCumulativeFundingRate, position.BaseAssetAmount)
	if err != nil {
		return err
	}

	newQuote, err := position.QuoteAssetAmount.Add(op, payment)
	if err != nil {
		return err
	}

	position.QuoteAssetAmount = newQuote
	position.LastCumulativeFundingRate = dir
	return nil
}

// CalculateFundingRateLongShort splits a raw market-wide funding rate into
// asymmetric (long, short) rates, capping the side the protocol would pay
// against the fee pool's reserved floor, and updates
// market.Amm.TotalFeeMinusDistributions in place (spec.md §4.2.2).
func CalculateFundingRateLongShort(market *perptypes.PerpMarket, fundingRate fixedpoint.I128) (long, short fixedpoint.I128, err error) {
	const op = "funding.long_short_split"

	symmetricPnlPayment, err := PaymentInQuotePrecision(fundingRate, market.Amm.NetBaseAssetAmount)
	if err != nil {
		return fixedpoint.I128{}, fixedpoint.I128{}, err
	}
	symmetricPnl, err := symmetricPnlPayment.Neg(op)
	if err != nil {
		return fixedpoint.I128{}, fixedpoint.I128{}, err
	}

	if symmetricPnl.Sign() >= 0 {
		newTotal, err := market.Amm.TotalFeeMinusDistributions.Add(op, symmetricPnl.Abs())
		if err != nil {
			return fixedpoint.I128{}, fixedpoint.I128{}, err
		}
		market.Amm.TotalFeeMinusDistributions = newTotal
		return fundingRate, fundingRate, nil
	}

	cappedRate, cappedSymmetricPnl, err := calculateCappedFundingRate(market, symmetricPnl, fundingRate)
	if err != nil {
		return fixedpoint.I128{}, fixedpoint.I128{}, err
	}

	newTotal, err := market.Amm.TotalFeeMinusDistributions.Sub(op, cappedSymmetricPnl.Abs())
	if err != nil {
		return fixedpoint.I128{}, fixedpoint.I128{}, err
	}

	lowBound, err := feePoolFloor(op, market.Amm.TotalFee)
	if err != nil {
		return fixedpoint.I128{}, fixedpoint.I128{}, err
	}

	if newTotal.LT(lowBound) {
		return fixedpoint.I128{}, fixedpoint.I128{}, clearingerrors.InvalidFundingProfitabilityf(op,
			fmt.Errorf("capped distribution %s would drop total_fee_minus_distributions below floor %s", cappedSymmetricPnl, lowBound))
	}

	market.Amm.TotalFeeMinusDistributions = newTotal

	if fundingRate.Sign() < 0 {
		return cappedRate, fundingRate, nil
	}
	return fundingRate, cappedRate, nil
}

// feePoolFloor computes total_fee * FEE_SHARE_NUM / FEE_SHARE_DEN, the
// protocol's reserved share of accumulated fees (spec.md §4.2.2 step 3).
func feePoolFloor(op string, totalFee fixedpoint.U128) (fixedpoint.U128, error) {
	scaled, err := totalFee.Mul(op, fixedpoint.U128FromUint64(perptypes.FeeShareNum))
	if err != nil {
		return fixedpoint.U128{}, err
	}
	return scaled.Div(op, fixedpoint.U128FromUint64(perptypes.FeeShareDen))
}

// calculateCappedFundingRate implements spec.md §4.2.2 step 3: given that
// the protocol would be a net payer at the raw rate, determine how much of
// that payout the fee pool can actually absorb and recompute the
// receiving side's effective rate from the residual.
func calculateCappedFundingRate(market *perptypes.PerpMarket, symmetricPnl, fundingRate fixedpoint.I128) (rate, cappedSymmetricPnl fixedpoint.I128, err error) {
	const op = "funding.capped_rate"

	lowBound, err := feePoolFloor(op, market.Amm.TotalFee)
	if err != nil {
		return fixedpoint.I128{}, fixedpoint.I128{}, err
	}

	pnlLimit := fixedpoint.ZeroI128()
	if market.Amm.TotalFeeMinusDistributions.GT(lowBound) {
		poolAvailable, subErr := market.Amm.TotalFeeMinusDistributions.Sub(op, lowBound)
		if subErr != nil {
			return fixedpoint.I128{}, fixedpoint.I128{}, subErr
		}
		signedAvailable, convErr := u128ToI128(op, poolAvailable)
		if convErr != nil {
			return fixedpoint.I128{}, fixedpoint.I128{}, convErr
		}
		pnlLimit, err = signedAvailable.Neg(op)
		if err != nil {
			return fixedpoint.I128{}, fixedpoint.I128{}, err
		}
	}

	var payingSideBase fixedpoint.I128
	if fundingRate.Sign() > 0 {
		payingSideBase = market.Amm.BaseAssetAmountLong
	} else {
		payingSideBase = market.Amm.BaseAssetAmountShort
	}
	inflowPayment, err := PaymentInQuotePrecision(fundingRate, payingSideBase)
	if err != nil {
		return fixedpoint.I128{}, fixedpoint.I128{}, err
	}
	inflow, err := inflowPayment.Neg(op)
	if err != nil {
		return fixedpoint.I128{}, fixedpoint.I128{}, err
	}

	cappedSymmetricPnl = maxI128(symmetricPnl, pnlLimit)

	if symmetricPnl.LT(pnlLimit) {
		inflowAbs, convErr := u128ToI128(op, inflow.Abs())
		if convErr != nil {
			return fixedpoint.I128{}, fixedpoint.I128{}, convErr
		}
		poolForReceivers, subErr := pnlLimit.Sub(op, inflowAbs)
		if subErr != nil {
			return fixedpoint.I128{}, fixedpoint.I128{}, subErr
		}

		var receivingSideBase fixedpoint.I128
		if fundingRate.Sign() < 0 {
			receivingSideBase = market.Amm.BaseAssetAmountLong
		} else {
			receivingSideBase = market.Amm.BaseAssetAmountShort
		}

		rate, err = calculateFundingRateFromPnlLimit(poolForReceivers, receivingSideBase)
		if err != nil {
			return fixedpoint.I128{}, fixedpoint.I128{}, err
		}
		return rate, cappedSymmetricPnl, nil
	}

	return fundingRate, cappedSymmetricPnl, nil
}

// calculateFundingRateFromPnlLimit reconstructs the receiving side's
// funding rate from a residual pool size, biasing the pool toward zero
// when it's negative so the protocol never over-pays (spec.md §4.2.2 step
// 3, §9).
func calculateFundingRateFromPnlLimit(poolLimit, baseAssetAmountDir fixedpoint.I128) (fixedpoint.I128, error) {
	const op = "funding.rate_from_pnl_limit"
	if baseAssetAmountDir.IsZero() {
		return fixedpoint.ZeroI128(), nil
	}

	biased := poolLimit
	if poolLimit.Sign() < 0 {
		var err error
		biased, err = poolLimit.Add(op, fixedpoint.I128FromInt64(1))
		if err != nil {
			return fixedpoint.I128{}, err
		}
	}

	scaled, err := biased.Mul(op, quoteToBaseFundingI128)
	if err != nil {
		return fixedpoint.I128{}, err
	}
	return scaled.Div(op, baseAssetAmountDir)
}

func maxI128(a, b fixedpoint.I128) fixedpoint.I128 {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}
