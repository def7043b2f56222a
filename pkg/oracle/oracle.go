// Package oracle implements the keyed price-feed abstraction the margin and
// funding engines read through (spec.md §6, §9: "a keyed accessor, not a
// global"). It never performs network I/O itself — ingestion is an
// out-of-scope external collaborator; this package only validates and
// caches the snapshot the caller already holds.
package oracle

import (
	"github.com/margined-protocol/perp-margin-core/pkg/fixedpoint"

	"github.com/margined-protocol/perp-margin-core/pkg/clearingerrors"
)

// Source identifies where a spot market's price comes from. Modeled as a
// small closed enum matched with a switch rather than dynamic dispatch,
// per spec.md §9 ("no dynamic dispatch in the hot path").
type Source int

const (
	// SourceQuoteAsset marks the quote asset itself (e.g. USDC), which is
	// priced at a synthetic unit price rather than looked up.
	SourceQuoteAsset Source = iota
	// SourcePyth marks a Pyth-style external price feed.
	SourcePyth
	// SourceSwitchboard marks a Switchboard-style external price feed.
	SourceSwitchboard
)

// PriceData is the tuple an oracle feed provides for one key, mirroring
// spec.md §6's oracle interface.
type PriceData struct {
	// Price is signed because some oracle adapters report negative
	// sentinel prices on failure; a genuinely non-positive price is
	// rejected by Map.Get.
	Price fixedpoint.I128
	// Confidence is the oracle's stated confidence interval, at
	// perptypes.PriceScale.
	Confidence fixedpoint.U128
	// Delay is the number of slots between the current slot and the
	// slot the price was last updated.
	Delay int64
	// HasSufficientDataPoints reports whether the feed had enough
	// underlying data points to be trusted.
	HasSufficientDataPoints bool
}

// unitPrice is the synthetic PriceData returned for SourceQuoteAsset,
// parameterized by the caller's PriceScale so it stays correct regardless
// of which scale constants are wired in.
func unitPrice(priceScale fixedpoint.U128) PriceData {
	return PriceData{
		Price:                   mustI128(priceScale),
		Confidence:              fixedpoint.U128FromUint64(1),
		Delay:                   0,
		HasSufficientDataPoints: true,
	}
}

func mustI128(u fixedpoint.U128) fixedpoint.I128 {
	v, err := fixedpoint.I128FromBigInt("oracle.unit_price", u.BigInt())
	if err != nil {
		// PriceScale always fits comfortably in 128 bits; unreachable.
		panic(err)
	}
	return v
}

// Map is a keyed accessor over a single oracle snapshot. Per spec.md §5,
// repeated lookups within one invocation must return the same tuple — Map
// achieves this simply by holding an immutable snapshot rather than
// re-fetching on every Get.
type Map struct {
	prices map[string]PriceData
}

// NewMap builds an oracle map from a caller-supplied snapshot. The caller
// is responsible for taking that snapshot atomically (spec.md §5: "caller
// must return the same (price, confidence, slot) tuple").
func NewMap(snapshot map[string]PriceData) *Map {
	m := &Map{prices: make(map[string]PriceData, len(snapshot))}
	for k, v := range snapshot {
		m.prices[k] = v
	}
	return m
}

// Get resolves key to validated PriceData, enforcing non-positivity and
// staleness per spec.md §6/§7. maxDelaySlots of 0 disables the staleness
// check (useful for QuoteAsset-style callers that pass it explicitly).
func (m *Map) Get(key string, maxDelaySlots int64) (PriceData, error) {
	p, ok := m.prices[key]
	if !ok {
		return PriceData{}, clearingerrors.MarketNotFoundf("oracle.get", errKeyf(key))
	}
	if p.Price.Sign() <= 0 {
		return PriceData{}, clearingerrors.OracleNonPositivef("oracle.get", errKeyf(key))
	}
	if maxDelaySlots > 0 && p.Delay > maxDelaySlots {
		return PriceData{}, clearingerrors.OracleStalef("oracle.get", errKeyf(key))
	}
	return p, nil
}

// GetForSource resolves a spot/perp market's price given its declared
// Source, special-casing SourceQuoteAsset to a synthetic unit price without
// touching the map (spec.md §4.3.2).
func (m *Map) GetForSource(source Source, key string, priceScale fixedpoint.U128, maxDelaySlots int64) (PriceData, error) {
	if source == SourceQuoteAsset {
		return unitPrice(priceScale), nil
	}
	return m.Get(key, maxDelaySlots)
}

type keyError struct{ key string }

func (e keyError) Error() string { return "oracle key " + e.key }

func errKeyf(key string) error { return keyError{key: key} }
