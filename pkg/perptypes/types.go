// Package perptypes holds the data model shared by the funding and margin
// engines: AMM/market state, user positions, and the market maps the
// engines iterate over (spec.md §3).
package perptypes

import (
	"github.com/margined-protocol/perp-margin-core/pkg/fixedpoint"
	"github.com/margined-protocol/perp-margin-core/pkg/oracle"
)

// MarginRequirementType selects whether a margin calculation uses initial
// or maintenance weights (spec.md §4.3.1).
type MarginRequirementType int

const (
	// Initial margin requirements gate new orders.
	Initial MarginRequirementType = iota
	// Maintenance margin requirements gate liquidation.
	Maintenance
)

// SpotBalanceType distinguishes a deposit (asset) from a borrow
// (liability) spot position.
type SpotBalanceType int

const (
	// Deposit marks an asset balance.
	Deposit SpotBalanceType = iota
	// Borrow marks a liability balance.
	Borrow
)

// AMM is the constant-product automated market maker backing one perp
// market (spec.md §3).
type AMM struct {
	BaseAssetReserve  fixedpoint.U128
	QuoteAssetReserve fixedpoint.U128
	SqrtK             fixedpoint.U128
	PegMultiplier     fixedpoint.U128

	// NetBaseAssetAmount is the users' aggregate net base position (longs
	// plus shorts): positive when users are net long, so the AMM is net
	// short the market; negative when the AMM is net long.
	NetBaseAssetAmount fixedpoint.I128
	// BaseAssetAmountLong is the sum of all long position sizes, always
	// >= 0.
	BaseAssetAmountLong fixedpoint.I128
	// BaseAssetAmountShort is the sum of all short position sizes, always
	// <= 0.
	BaseAssetAmountShort fixedpoint.I128

	CumulativeFundingRateLong  fixedpoint.I128
	CumulativeFundingRateShort fixedpoint.I128

	// TotalFee is monotone-increasing, fed by trading fees.
	TotalFee fixedpoint.U128
	// TotalFeeMinusDistributions can only decrease via capped funding
	// distributions; it must never fall below the fee-pool floor after
	// any funding application (spec.md §3 invariant).
	TotalFeeMinusDistributions fixedpoint.U128

	UserLpShares     fixedpoint.U128
	MaxBaseReserve   fixedpoint.U128
}

// MarketWeights groups the size-independent weight parameters of a perp
// market (spec.md §3).
type MarketWeights struct {
	MarginRatioInitial     fixedpoint.U128
	MarginRatioMaintenance fixedpoint.U128
	ImfFactor              fixedpoint.U128

	UnrealizedInitialAssetWeight     fixedpoint.U128
	UnrealizedMaintenanceAssetWeight fixedpoint.U128
	UnrealizedImfFactor              fixedpoint.U128
}

// PerpMarket is one perpetual-futures market: its AMM plus its weight
// parameters.
type PerpMarket struct {
	MarketIndex uint16
	Amm         AMM
	Weights     MarketWeights

	// OracleKey identifies this market's price feed in the oracle map.
	OracleKey string
}

// SpotMarket is one spot asset's parameters (spec.md §3).
type SpotMarket struct {
	MarketIndex uint16
	Decimals    uint8

	CumulativeDepositInterest fixedpoint.U128
	CumulativeBorrowInterest  fixedpoint.U128

	InitialAssetWeight      fixedpoint.U128
	MaintenanceAssetWeight  fixedpoint.U128
	InitialLiabilityWeight  fixedpoint.U128
	MaintenanceLiabilityWeight fixedpoint.U128
	ImfFactor               fixedpoint.U128
	LiquidationFee          fixedpoint.U128

	OracleSource oracle.Source
	OracleKey    string
}

// PerpPosition is a user's position in one perp market (spec.md §3).
type PerpPosition struct {
	MarketIndex uint16

	BaseAssetAmount          fixedpoint.I128
	QuoteAssetAmount         fixedpoint.I128
	LastCumulativeFundingRate fixedpoint.I128

	LpShares fixedpoint.U128

	OpenBids   fixedpoint.I128
	OpenAsks   fixedpoint.I128
	OpenOrders uint32
}

// IsEmpty reports whether the position carries no exposure at all and can
// be skipped during margin aggregation (spec.md §4.3.1: "non-default perp
// position").
func (p PerpPosition) IsEmpty() bool {
	return p.BaseAssetAmount.IsZero() && p.QuoteAssetAmount.IsZero() && p.LpShares.IsZero()
}

// SpotPosition is a user's balance in one spot market (spec.md §3).
type SpotPosition struct {
	MarketIndex uint16
	BalanceType SpotBalanceType
	Balance     fixedpoint.U128

	OpenBids   fixedpoint.I128
	OpenAsks   fixedpoint.I128
	OpenOrders uint32
}

// IsEmpty reports whether the position carries no balance or open orders
// and can be skipped during margin aggregation.
func (p SpotPosition) IsEmpty() bool {
	return p.Balance.IsZero() && p.OpenOrders == 0
}

// User aggregates one account's spot and perp positions.
type User struct {
	SpotPositions []SpotPosition
	PerpPositions []PerpPosition
}

// PerpMarketMap is an O(1) lookup from market index to *PerpMarket,
// standing in for the on-chain account-loading layer (spec.md §5).
type PerpMarketMap map[uint16]*PerpMarket

// Get looks up a perp market; ok is false on a miss.
func (m PerpMarketMap) Get(index uint16) (*PerpMarket, bool) {
	market, ok := m[index]
	return market, ok
}

// SpotMarketMap is an O(1) lookup from market index to *SpotMarket.
type SpotMarketMap map[uint16]*SpotMarket

// Get looks up a spot market.
func (m SpotMarketMap) Get(index uint16) (*SpotMarket, bool) {
	market, ok := m[index]
	return market, ok
}
