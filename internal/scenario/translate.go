package scenario

import (
	"fmt"

	"github.com/margined-protocol/perp-margin-core/pkg/fixedpoint"
	"github.com/margined-protocol/perp-margin-core/pkg/oracle"
	"github.com/margined-protocol/perp-margin-core/pkg/perptypes"
)

// Built is the fully materialized domain state a scenario file describes,
// ready to hand to the funding and margin engines.
type Built struct {
	FundingRate fixedpoint.I128
	SpotMarkets perptypes.SpotMarketMap
	PerpMarkets perptypes.PerpMarketMap
	OracleMap   *oracle.Map
	User        perptypes.User
}

// Build translates a parsed scenario File into domain values, validating
// every enum-shaped string field (oracle source, balance type) up front so
// the engines never see an invalid one.
func Build(f *File) (*Built, error) {
	fundingRate := f.FundingRate

	spotMarkets := make(perptypes.SpotMarketMap, len(f.SpotMarkets))
	for _, sm := range f.SpotMarkets {
		source, err := decodeOracleSource(sm.OracleSource)
		if err != nil {
			return nil, fmt.Errorf("spot market %d: %w", sm.MarketIndex, err)
		}
		spotMarkets[sm.MarketIndex] = &perptypes.SpotMarket{
			MarketIndex:                sm.MarketIndex,
			Decimals:                   sm.Decimals,
			CumulativeDepositInterest:  sm.CumulativeDepositInterest,
			CumulativeBorrowInterest:   sm.CumulativeBorrowInterest,
			InitialAssetWeight:         sm.InitialAssetWeight,
			MaintenanceAssetWeight:     sm.MaintenanceAssetWeight,
			InitialLiabilityWeight:     sm.InitialLiabilityWeight,
			MaintenanceLiabilityWeight: sm.MaintenanceLiabilityWeight,
			ImfFactor:                  sm.ImfFactor,
			LiquidationFee:             sm.LiquidationFee,
			OracleSource:               source,
			OracleKey:                  sm.OracleKey,
		}
	}

	perpMarkets := make(perptypes.PerpMarketMap, len(f.PerpMarkets))
	for _, pm := range f.PerpMarkets {
		perpMarkets[pm.MarketIndex] = &perptypes.PerpMarket{
			MarketIndex: pm.MarketIndex,
			OracleKey:   pm.OracleKey,
			Amm: perptypes.AMM{
				BaseAssetReserve:           pm.BaseAssetReserve,
				QuoteAssetReserve:          pm.QuoteAssetReserve,
				SqrtK:                      pm.SqrtK,
				PegMultiplier:              pm.PegMultiplier,
				NetBaseAssetAmount:         pm.NetBaseAssetAmount,
				BaseAssetAmountLong:        pm.BaseAssetAmountLong,
				BaseAssetAmountShort:       pm.BaseAssetAmountShort,
				CumulativeFundingRateLong:  pm.CumulativeFundingRateLong,
				CumulativeFundingRateShort: pm.CumulativeFundingRateShort,
				TotalFee:                   pm.TotalFee,
				TotalFeeMinusDistributions: pm.TotalFeeMinusDistributions,
				UserLpShares:               pm.UserLpShares,
				MaxBaseReserve:             pm.MaxBaseReserve,
			},
			Weights: perptypes.MarketWeights{
				MarginRatioInitial:               pm.MarginRatioInitial,
				MarginRatioMaintenance:           pm.MarginRatioMaintenance,
				ImfFactor:                        pm.ImfFactor,
				UnrealizedInitialAssetWeight:     pm.UnrealizedInitialAssetWeight,
				UnrealizedMaintenanceAssetWeight: pm.UnrealizedMaintenanceAssetWeight,
				UnrealizedImfFactor:              pm.UnrealizedImfFactor,
			},
		}
	}

	snapshot := make(map[string]oracle.PriceData, len(f.OracleFeeds))
	for _, feed := range f.OracleFeeds {
		snapshot[feed.Key] = oracle.PriceData{
			Price:                   feed.Price,
			Confidence:              feed.Confidence,
			Delay:                   feed.DelaySlots,
			HasSufficientDataPoints: feed.SufficientDP,
		}
	}
	oracleMap := oracle.NewMap(snapshot)

	user := perptypes.User{
		SpotPositions: make([]perptypes.SpotPosition, 0, len(f.User.SpotPositions)),
		PerpPositions: make([]perptypes.PerpPosition, 0, len(f.User.PerpPositions)),
	}
	for _, sp := range f.User.SpotPositions {
		balanceType, err := decodeBalanceType(sp.BalanceType)
		if err != nil {
			return nil, fmt.Errorf("user spot position (market %d): %w", sp.MarketIndex, err)
		}
		user.SpotPositions = append(user.SpotPositions, perptypes.SpotPosition{
			MarketIndex: sp.MarketIndex,
			BalanceType: balanceType,
			Balance:     sp.Balance,
			OpenBids:    sp.OpenBids,
			OpenAsks:    sp.OpenAsks,
			OpenOrders:  sp.OpenOrders,
		})
	}
	for _, pp := range f.User.PerpPositions {
		user.PerpPositions = append(user.PerpPositions, perptypes.PerpPosition{
			MarketIndex:               pp.MarketIndex,
			BaseAssetAmount:           pp.BaseAssetAmount,
			QuoteAssetAmount:          pp.QuoteAssetAmount,
			LastCumulativeFundingRate: pp.LastCumulativeFundingRate,
			LpShares:                  pp.LpShares,
			OpenBids:                  pp.OpenBids,
			OpenAsks:                  pp.OpenAsks,
			OpenOrders:                pp.OpenOrders,
		})
	}

	return &Built{
		FundingRate: fundingRate,
		SpotMarkets: spotMarkets,
		PerpMarkets: perpMarkets,
		OracleMap:   oracleMap,
		User:        user,
	}, nil
}

// decodeOracleSource maps a TOML-level string onto oracle.Source.
func decodeOracleSource(raw string) (oracle.Source, error) {
	switch raw {
	case "", "quote_asset":
		return oracle.SourceQuoteAsset, nil
	case "pyth":
		return oracle.SourcePyth, nil
	case "switchboard":
		return oracle.SourceSwitchboard, nil
	default:
		return 0, fmt.Errorf("unknown oracle source %q", raw)
	}
}

// decodeBalanceType maps a TOML-level string onto perptypes.SpotBalanceType.
func decodeBalanceType(raw string) (perptypes.SpotBalanceType, error) {
	switch raw {
	case "deposit":
		return perptypes.Deposit, nil
	case "borrow":
		return perptypes.Borrow, nil
	default:
		return 0, fmt.Errorf("unknown spot balance type %q", raw)
	}
}
