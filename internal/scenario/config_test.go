package scenario

import (
	"os"
	"testing"

	"github.com/test-go/testify/require"

	"github.com/margined-protocol/perp-margin-core/pkg/fixedpoint"
	"github.com/margined-protocol/perp-margin-core/pkg/oracle"
	"github.com/margined-protocol/perp-margin-core/pkg/perptypes"
)

const sampleScenario = `
funding_rate = "1000000"

[[oracle_feed]]
key = "sol-perp"
price = "1000000000000"
confidence = "1000000"
delay_slots = 0
sufficient_data_points = true

[[spot_market]]
market_index = 0
decimals = 6
cumulative_deposit_interest = "10000000000"
cumulative_borrow_interest = "10000000000"
initial_asset_weight = "100"
maintenance_asset_weight = "100"
initial_liability_weight = "100"
maintenance_liability_weight = "100"
imf_factor = "0"
liquidation_fee = "0"
oracle_source = "quote_asset"
oracle_key = "usdc"

[[perp_market]]
market_index = 0
oracle_key = "sol-perp"
base_asset_reserve = "1000000000000"
quote_asset_reserve = "1000000000000"
sqrt_k = "1000000000000"
peg_multiplier = "10000000000"
net_base_asset_amount = "0"
base_asset_amount_long = "0"
base_asset_amount_short = "0"
cumulative_funding_rate_long = "0"
cumulative_funding_rate_short = "0"
total_fee = "1000000000"
total_fee_minus_distributions = "1000000000"
user_lp_shares = "0"
max_base_reserve = "0"
margin_ratio_initial = "1000"
margin_ratio_maintenance = "500"
imf_factor = "0"
unrealized_initial_asset_weight = "90"
unrealized_maintenance_asset_weight = "100"
unrealized_imf_factor = "0"

[user]

[[user.spot_position]]
market_index = 0
balance_type = "deposit"
balance = "5000000"

[[user.perp_position]]
market_index = 0
base_asset_amount = "10000000000000"
quote_asset_amount = "-1000000"
last_cumulative_funding_rate = "0"
lp_shares = "0"
`

func writeScenario(t *testing.T, contents string) string {
	t.Helper()
	path := t.TempDir() + "/scenario.toml"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadDecodesFixedPointFields(t *testing.T) {
	path := writeScenario(t, sampleScenario)

	f, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "1000000", f.FundingRate.String())
	require.Len(t, f.SpotMarkets, 1)
	require.Equal(t, "10000000000", f.SpotMarkets[0].CumulativeDepositInterest.String())
	require.Len(t, f.PerpMarkets, 1)
	require.Equal(t, "1000000000", f.PerpMarkets[0].TotalFee.String())
	require.Len(t, f.User.SpotPositions, 1)
	require.Equal(t, "5000000", f.User.SpotPositions[0].Balance.String())
	require.Equal(t, "-1000000", f.User.PerpPositions[0].QuoteAssetAmount.String())
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(t.TempDir() + "/does-not-exist.toml")
	require.Error(t, err)
}

func TestBuildTranslatesEnumFields(t *testing.T) {
	path := writeScenario(t, sampleScenario)
	f, err := Load(path)
	require.NoError(t, err)

	built, err := Build(f)
	require.NoError(t, err)

	require.Equal(t, fixedpoint.I128FromInt64(1_000_000).String(), built.FundingRate.String())

	spot, ok := built.SpotMarkets.Get(0)
	require.True(t, ok)
	require.Equal(t, "usdc", spot.OracleKey)
	require.Equal(t, oracle.SourceQuoteAsset, spot.OracleSource)

	perp, ok := built.PerpMarkets.Get(0)
	require.True(t, ok)
	require.Equal(t, "sol-perp", perp.OracleKey)

	require.Len(t, built.User.SpotPositions, 1)
	require.Equal(t, perptypes.Deposit, built.User.SpotPositions[0].BalanceType)
	require.Len(t, built.User.PerpPositions, 1)

	price, err := built.OracleMap.Get("sol-perp", 0)
	require.NoError(t, err)
	require.Equal(t, "1000000000000", price.Price.String())
}

func TestBuildRejectsUnknownOracleSource(t *testing.T) {
	bad := `
[[spot_market]]
market_index = 0
decimals = 6
oracle_source = "not_a_real_source"
oracle_key = "usdc"
`
	path := writeScenario(t, bad)
	f, err := Load(path)
	require.NoError(t, err)

	_, err = Build(f)
	require.Error(t, err)
}
