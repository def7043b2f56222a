// Package scenario loads a TOML scenario file describing a set of spot and
// perp markets, an oracle snapshot, and a single user's positions, then
// translates it into the pkg/perptypes domain values the funding and
// margin engines operate on. It is the only layer in this module that
// touches the filesystem or a config decoder — the core packages stay free
// of I/O.
package scenario

import (
	"fmt"
	"math/big"
	"os"
	"reflect"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"

	"github.com/margined-protocol/perp-margin-core/pkg/fixedpoint"
)

// File is the typed shape of a scenario TOML document. Large numeric
// fields are declared as fixedpoint.U128/I128 directly; fixedpointDecodeHook (below)
// teaches mapstructure how to turn the TOML decimal strings into them,
// mirroring the teacher's SdkIntDecodeHook for sdkmath.Int-shaped fields.
type File struct {
	FundingRate fixedpoint.I128 `mapstructure:"funding_rate"`
	SpotMarkets []SpotMarket    `mapstructure:"spot_market"`
	PerpMarkets []PerpMarket    `mapstructure:"perp_market"`
	OracleFeeds []OracleFeed    `mapstructure:"oracle_feed"`
	User        UserConfig      `mapstructure:"user"`
}

// OracleFeed is one entry of the oracle snapshot.
type OracleFeed struct {
	Key          string          `mapstructure:"key"`
	Price        fixedpoint.I128 `mapstructure:"price"`
	Confidence   fixedpoint.U128 `mapstructure:"confidence"`
	DelaySlots   int64           `mapstructure:"delay_slots"`
	SufficientDP bool            `mapstructure:"sufficient_data_points"`
}

// SpotMarket mirrors perptypes.SpotMarket in TOML form.
type SpotMarket struct {
	MarketIndex                uint16          `mapstructure:"market_index"`
	Decimals                   uint8           `mapstructure:"decimals"`
	CumulativeDepositInterest  fixedpoint.U128 `mapstructure:"cumulative_deposit_interest"`
	CumulativeBorrowInterest   fixedpoint.U128 `mapstructure:"cumulative_borrow_interest"`
	InitialAssetWeight         fixedpoint.U128 `mapstructure:"initial_asset_weight"`
	MaintenanceAssetWeight     fixedpoint.U128 `mapstructure:"maintenance_asset_weight"`
	InitialLiabilityWeight     fixedpoint.U128 `mapstructure:"initial_liability_weight"`
	MaintenanceLiabilityWeight fixedpoint.U128 `mapstructure:"maintenance_liability_weight"`
	ImfFactor                  fixedpoint.U128 `mapstructure:"imf_factor"`
	LiquidationFee             fixedpoint.U128 `mapstructure:"liquidation_fee"`
	OracleSource               string          `mapstructure:"oracle_source"`
	OracleKey                  string          `mapstructure:"oracle_key"`
}

// PerpMarket mirrors perptypes.PerpMarket (plus its AMM and weights) in
// TOML form.
type PerpMarket struct {
	MarketIndex uint16 `mapstructure:"market_index"`
	OracleKey   string `mapstructure:"oracle_key"`

	BaseAssetReserve           fixedpoint.U128 `mapstructure:"base_asset_reserve"`
	QuoteAssetReserve          fixedpoint.U128 `mapstructure:"quote_asset_reserve"`
	SqrtK                      fixedpoint.U128 `mapstructure:"sqrt_k"`
	PegMultiplier              fixedpoint.U128 `mapstructure:"peg_multiplier"`
	NetBaseAssetAmount         fixedpoint.I128 `mapstructure:"net_base_asset_amount"`
	BaseAssetAmountLong        fixedpoint.I128 `mapstructure:"base_asset_amount_long"`
	BaseAssetAmountShort       fixedpoint.I128 `mapstructure:"base_asset_amount_short"`
	CumulativeFundingRateLong  fixedpoint.I128 `mapstructure:"cumulative_funding_rate_long"`
	CumulativeFundingRateShort fixedpoint.I128 `mapstructure:"cumulative_funding_rate_short"`
	TotalFee                   fixedpoint.U128 `mapstructure:"total_fee"`
	TotalFeeMinusDistributions fixedpoint.U128 `mapstructure:"total_fee_minus_distributions"`
	UserLpShares               fixedpoint.U128 `mapstructure:"user_lp_shares"`
	MaxBaseReserve             fixedpoint.U128 `mapstructure:"max_base_reserve"`

	MarginRatioInitial               fixedpoint.U128 `mapstructure:"margin_ratio_initial"`
	MarginRatioMaintenance           fixedpoint.U128 `mapstructure:"margin_ratio_maintenance"`
	ImfFactor                        fixedpoint.U128 `mapstructure:"imf_factor"`
	UnrealizedInitialAssetWeight     fixedpoint.U128 `mapstructure:"unrealized_initial_asset_weight"`
	UnrealizedMaintenanceAssetWeight fixedpoint.U128 `mapstructure:"unrealized_maintenance_asset_weight"`
	UnrealizedImfFactor              fixedpoint.U128 `mapstructure:"unrealized_imf_factor"`
}

// UserConfig is a single simulated account.
type UserConfig struct {
	SpotPositions []SpotPositionConfig `mapstructure:"spot_position"`
	PerpPositions []PerpPositionConfig `mapstructure:"perp_position"`
}

// SpotPositionConfig mirrors perptypes.SpotPosition.
type SpotPositionConfig struct {
	MarketIndex uint16          `mapstructure:"market_index"`
	BalanceType string          `mapstructure:"balance_type"`
	Balance     fixedpoint.U128 `mapstructure:"balance"`
	OpenBids    fixedpoint.I128 `mapstructure:"open_bids"`
	OpenAsks    fixedpoint.I128 `mapstructure:"open_asks"`
	OpenOrders  uint32          `mapstructure:"open_orders"`
}

// PerpPositionConfig mirrors perptypes.PerpPosition.
type PerpPositionConfig struct {
	MarketIndex               uint16          `mapstructure:"market_index"`
	BaseAssetAmount           fixedpoint.I128 `mapstructure:"base_asset_amount"`
	QuoteAssetAmount          fixedpoint.I128 `mapstructure:"quote_asset_amount"`
	LastCumulativeFundingRate fixedpoint.I128 `mapstructure:"last_cumulative_funding_rate"`
	LpShares                  fixedpoint.U128 `mapstructure:"lp_shares"`
	OpenBids                  fixedpoint.I128 `mapstructure:"open_bids"`
	OpenAsks                  fixedpoint.I128 `mapstructure:"open_asks"`
	OpenOrders                uint32          `mapstructure:"open_orders"`
}

var (
	u128Type = reflect.TypeOf(fixedpoint.U128{})
	i128Type = reflect.TypeOf(fixedpoint.I128{})
)

// fixedpointDecodeHook teaches mapstructure how to turn a TOML decimal
// string (or integer) into fixedpoint.U128/I128, the same role the
// teacher's SdkIntDecodeHook plays for sdkmath.Int-shaped config fields.
func fixedpointDecodeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != u128Type && to != i128Type {
		return data, nil
	}

	str, err := toDecimalString(from, data)
	if err != nil {
		return nil, err
	}

	n, ok := new(big.Int).SetString(str, 10)
	if !ok {
		return nil, fmt.Errorf("invalid fixed-point decimal value: %q", str)
	}

	if to == u128Type {
		v, err := fixedpoint.U128FromBigInt("scenario.decode", n)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	v, err := fixedpoint.I128FromBigInt("scenario.decode", n)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func toDecimalString(from reflect.Type, data interface{}) (string, error) {
	switch from.Kind() {
	case reflect.String:
		return data.(string), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%d", data), nil
	default:
		return "", fmt.Errorf("unsupported source type %s for fixed-point field", from.Kind())
	}
}

// Decode runs a generic TOML-parsed document through mapstructure into a
// *File, applying fixedpointDecodeHook to every U128/I128 field.
func Decode(raw map[string]interface{}, out *File) error {
	decoderConfig := &mapstructure.DecoderConfig{
		DecodeHook:       fixedpointDecodeHook,
		Result:           out,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return fmt.Errorf("failed to create scenario decoder: %w", err)
	}
	return decoder.Decode(raw)
}

// Load reads, parses, and decodes a scenario TOML file from path.
func Load(path string) (*File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("scenario file not found at path: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}

	var f File
	if err := Decode(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to decode scenario file: %w", err)
	}
	return &f, nil
}
