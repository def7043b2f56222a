// Package margin implements the margin-requirement and total-collateral
// aggregation across a user's spot and perp positions (spec.md §4.3). It
// leans on pkg/fixedpoint for every multiplication and division so that a
// pathological position (a huge balance, a blown-out oracle price) surfaces
// as a typed error instead of a silently wrapped number.
package margin

import (
	"fmt"

	"github.com/margined-protocol/perp-margin-core/pkg/clearingerrors"
	"github.com/margined-protocol/perp-margin-core/pkg/fixedpoint"
	"github.com/margined-protocol/perp-margin-core/pkg/oracle"
	"github.com/margined-protocol/perp-margin-core/pkg/perptypes"
)

// Totals is the (requirement, collateral) pair returned by
// CalculateMarginRequirementAndTotalCollateral (spec.md §4.3.1).
type Totals struct {
	MarginRequirement fixedpoint.U128
	TotalCollateral   fixedpoint.U128
}

// CalculateMarginRequirementAndTotalCollateral walks user's spot and perp
// positions, accumulating a margin requirement and a total collateral
// value in quote-collateral units. It stops and returns the first
// arithmetic, lookup, or oracle error it hits rather than returning a
// partial total (spec.md §4.3.1, §4.3.5).
func CalculateMarginRequirementAndTotalCollateral(
	user *perptypes.User,
	perpMarkets perptypes.PerpMarketMap,
	reqType perptypes.MarginRequirementType,
	spotMarkets perptypes.SpotMarketMap,
	oracleMap *oracle.Map,
) (Totals, error) {
	const op = "margin.requirement_and_collateral"

	requirement := fixedpoint.ZeroU128()
	collateral := fixedpoint.ZeroU128()

	for i := range user.SpotPositions {
		pos := &user.SpotPositions[i]
		if pos.IsEmpty() {
			continue
		}
		market, ok := spotMarkets.Get(pos.MarketIndex)
		if !ok {
			return Totals{}, clearingerrors.MarketNotFoundf(op, spotMarketNotFound(pos.MarketIndex))
		}
		value, err := CalculateSpotPositionValue(pos, market, reqType, oracleMap)
		if err != nil {
			return Totals{}, err
		}
		if value.IsLiability {
			requirement, err = requirement.Add(op, value.Weighted)
		} else {
			collateral, err = collateral.Add(op, value.Weighted)
		}
		if err != nil {
			return Totals{}, err
		}
	}

	for i := range user.PerpPositions {
		pos := &user.PerpPositions[i]
		if pos.IsEmpty() {
			continue
		}
		market, ok := perpMarkets.Get(pos.MarketIndex)
		if !ok {
			return Totals{}, clearingerrors.MarketNotFoundf(op, perpMarketNotFound(pos.MarketIndex))
		}
		value, err := CalculatePerpPositionValueAndPnl(pos, market, reqType, oracleMap)
		if err != nil {
			return Totals{}, err
		}
		requirement, err = requirement.Add(op, value.MarginRequirement)
		if err != nil {
			return Totals{}, err
		}
		collateral, err = collateral.Add(op, value.CollateralContribution)
		if err != nil {
			return Totals{}, err
		}
	}

	return Totals{MarginRequirement: requirement, TotalCollateral: collateral}, nil
}

func spotMarketNotFound(idx uint16) error {
	return fmt.Errorf("spot market %d not found", idx)
}

func perpMarketNotFound(idx uint16) error {
	return fmt.Errorf("perp market %d not found", idx)
}
