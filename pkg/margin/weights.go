package margin

import (
	"math/big"

	"github.com/margined-protocol/perp-margin-core/pkg/fixedpoint"
	"github.com/margined-protocol/perp-margin-core/pkg/perptypes"
)

// AssetWeight computes the IMF-adjusted asset weight for a position of the
// given size, non-increasing in size and clamped to [0, baseWeight]
// regardless of reqType — the caller selects the initial or maintenance
// baseWeight before calling in (spec.md §4.3.4):
//
//	w(size) = min(baseWeight, floor((1.1 - imfFactor*sqrt(size)/IMF_SCALE) * WEIGHT_SCALE))
//
// reqType is accepted (rather than dropped) so UnrealizedAssetWeight can
// pass it straight through to callers that branch on it upstream.
func AssetWeight(size fixedpoint.U128, imfFactor, baseWeight fixedpoint.U128, reqType perptypes.MarginRequirementType) (fixedpoint.U128, error) {
	const op = "margin.asset_weight"

	if imfFactor.IsZero() {
		return baseWeight, nil
	}

	sizeSqrt := fixedpoint.IntegerSqrt(size)

	// Scale imfFactor up by WEIGHT_SCALE before dividing by IMF_SCALE, so the
	// single floor happens on the fully-scaled numerator instead of on an
	// intermediate imfFactor*sqrt/IMF_SCALE term that would otherwise round
	// to zero for every size below the curve's first whole-unit step.
	scaledImfFactor, err := imfFactor.Mul(op, perptypes.WeightScale)
	if err != nil {
		return fixedpoint.U128{}, err
	}
	imfTermAtWeightScale, err := fixedpoint.MulDivU192(op, scaledImfFactor, sizeSqrt, perptypes.ImfScale)
	if err != nil {
		return fixedpoint.U128{}, err
	}
	// Round the IMF term up, so that 110 minus it is the floor of the exact
	// weight rather than its ceiling.
	numerator := new(big.Int).Mul(scaledImfFactor.BigInt(), sizeSqrt.BigInt())
	if new(big.Int).Rem(numerator, perptypes.ImfScale.BigInt()).Sign() != 0 {
		imfTermAtWeightScale, err = imfTermAtWeightScale.Add(op, fixedpoint.U128FromUint64(1))
		if err != nil {
			return fixedpoint.U128{}, err
		}
	}

	// elevenTenths expressed at WEIGHT_SCALE: 1.1 * 100 = 110.
	elevenTenths := fixedpoint.U128FromUint64(110)
	if imfTermAtWeightScale.GTE(elevenTenths) {
		return fixedpoint.ZeroU128(), nil
	}
	weight, err := elevenTenths.Sub(op, imfTermAtWeightScale)
	if err != nil {
		return fixedpoint.U128{}, err
	}

	if weight.GT(baseWeight) {
		return baseWeight, nil
	}
	return weight, nil
}

// LiabilityWeight computes the IMF-adjusted liability weight, non-decreasing
// in size and bounded below by baseWeight (spec.md §4.3.4):
//
//	w(size) = max(baseWeight, floor((1 + imfFactor*sqrt(size)/IMF_SCALE) * WEIGHT_SCALE))
func LiabilityWeight(size fixedpoint.U128, imfFactor, baseWeight fixedpoint.U128) (fixedpoint.U128, error) {
	const op = "margin.liability_weight"

	if imfFactor.IsZero() {
		return baseWeight, nil
	}

	sizeSqrt := fixedpoint.IntegerSqrt(size)
	scaledImfFactor, err := imfFactor.Mul(op, perptypes.WeightScale)
	if err != nil {
		return fixedpoint.U128{}, err
	}
	imfTermAtWeightScale, err := fixedpoint.MulDivU192(op, scaledImfFactor, sizeSqrt, perptypes.ImfScale)
	if err != nil {
		return fixedpoint.U128{}, err
	}

	curveWeight, err := perptypes.WeightScale.Add(op, imfTermAtWeightScale)
	if err != nil {
		return fixedpoint.U128{}, err
	}
	if curveWeight.GT(baseWeight) {
		return curveWeight, nil
	}
	return baseWeight, nil
}

// UnrealizedAssetWeight computes the size-dependent weight applied to a
// position's positive unrealized PnL, using the same IMF curve family as
// AssetWeight but keyed by the market's unrealized-PnL-specific IMF factor
// and base weight (spec.md §4.3.3 step 5, §4.3.4).
func UnrealizedAssetWeight(pnl, imfFactor, baseWeight fixedpoint.U128, reqType perptypes.MarginRequirementType) (fixedpoint.U128, error) {
	return AssetWeight(pnl, imfFactor, baseWeight, reqType)
}

// MarginRatio computes the size-dependent margin ratio for a perp position
// (spec.md §4.3.3 step 4): the maintenance/initial base ratio widened by the
// same IMF curve used for liability weight, since a larger position must
// post proportionally more margin.
func MarginRatio(baseValue, imfFactor fixedpoint.U128, baseRatio fixedpoint.U128) (fixedpoint.U128, error) {
	const op = "margin.margin_ratio"

	if imfFactor.IsZero() {
		return baseRatio, nil
	}

	sizeSqrt := fixedpoint.IntegerSqrt(baseValue)
	scaledImfFactor, err := imfFactor.Mul(op, perptypes.MarginRatioScale)
	if err != nil {
		return fixedpoint.U128{}, err
	}
	imfTermAtRatioScale, err := fixedpoint.MulDivU192(op, scaledImfFactor, sizeSqrt, perptypes.ImfScale)
	if err != nil {
		return fixedpoint.U128{}, err
	}

	curveRatio, err := baseRatio.Add(op, imfTermAtRatioScale)
	if err != nil {
		return fixedpoint.U128{}, err
	}
	if curveRatio.GT(baseRatio) {
		return curveRatio, nil
	}
	return baseRatio, nil
}
