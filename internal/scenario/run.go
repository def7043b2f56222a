package scenario

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/margined-protocol/perp-margin-core/pkg/funding"
	"github.com/margined-protocol/perp-margin-core/pkg/margin"
	"github.com/margined-protocol/perp-margin-core/pkg/perptypes"
)

// FundingSettlementRecord is the structured report emitted for one funding
// epoch applied to a market, tagged with a unique id so a downstream log
// aggregator can correlate it with the settlements it produced.
type FundingSettlementRecord struct {
	ID            uuid.UUID
	MarketIndex   uint16
	LongRate      string
	ShortRate     string
	TotalFeeAfter string
}

// Report is the full result of running a scenario.
type Report struct {
	FundingSettlements []FundingSettlementRecord
	Requirement        string
	Collateral         string
}

// Run executes the funding split (once per perp market, if a non-zero
// funding_rate was supplied) followed by the margin aggregation for the
// scenario's user, logging each step with logger.
func Run(built *Built, logger *zap.Logger) (*Report, error) {
	report := &Report{}

	if !built.FundingRate.IsZero() {
		for idx, market := range built.PerpMarkets {
			long, short, err := funding.CalculateFundingRateLongShort(market, built.FundingRate)
			if err != nil {
				return nil, fmt.Errorf("funding split for market %d: %w", idx, err)
			}

			record := FundingSettlementRecord{
				ID:            uuid.New(),
				MarketIndex:   idx,
				LongRate:      long.String(),
				ShortRate:     short.String(),
				TotalFeeAfter: market.Amm.TotalFeeMinusDistributions.String(),
			}
			report.FundingSettlements = append(report.FundingSettlements, record)

			logger.Info("funding settlement",
				zap.String("settlement_id", record.ID.String()),
				zap.Uint16("market_index", idx),
				zap.String("long_rate", record.LongRate),
				zap.String("short_rate", record.ShortRate),
				zap.String("total_fee_minus_distributions", record.TotalFeeAfter),
			)

			for i := range built.User.PerpPositions {
				pos := &built.User.PerpPositions[i]
				if pos.MarketIndex != idx {
					continue
				}
				if err := funding.SettleFundingForPosition(market, pos); err != nil {
					return nil, fmt.Errorf("settle funding for position in market %d: %w", idx, err)
				}
			}
		}
	}

	totals, err := margin.CalculateMarginRequirementAndTotalCollateral(
		&built.User,
		built.PerpMarkets,
		perptypes.Initial,
		built.SpotMarkets,
		built.OracleMap,
	)
	if err != nil {
		return nil, fmt.Errorf("margin calculation: %w", err)
	}

	report.Requirement = totals.MarginRequirement.String()
	report.Collateral = totals.TotalCollateral.String()

	logger.Info("margin requirement and total collateral",
		zap.String("margin_requirement", report.Requirement),
		zap.String("total_collateral", report.Collateral),
	)

	return report, nil
}
