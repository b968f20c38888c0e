package factors

import (
	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/internal/panel"
)

// smb is the size factor: rank by lagged market cap ascending, long
// the small end, short the big end.
var smb = Definition{
	Name:        "smb",
	Description: "Small Minus Big - size factor based on market capitalization",
	Ascending:   true,
	Signal: func(prep *panel.Preparer, p contracts.Panel, lookback int) (contracts.Panel, string, error) {
		// lagged market cap is already materialized by the shared pipeline
		return p, contracts.Lagged(contracts.ColMarketCap), nil
	},
}

// market is a long-only benchmark: the ten largest assets by lagged
// market cap, no short leg.
var market = Definition{
	Name:        "market",
	Description: "Market factor - top 10 assets by market cap",
	LongOnly:    true,
	LegSize:     10,
	Signal: func(prep *panel.Preparer, p contracts.Panel, lookback int) (contracts.Panel, string, error) {
		return p, contracts.Lagged(contracts.ColMarketCap), nil
	},
}
