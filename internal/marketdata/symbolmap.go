package marketdata

// DefaultSymbolMap translates metrics-provider asset slugs into
// Coinbase product IDs. Assets without an entry have no USD spot pair
// and are skipped by the price fetcher.
var DefaultSymbolMap = map[string]string{
	"bitcoin":   "BTC-USD",
	"ethereum":  "ETH-USD",
	"solana":    "SOL-USD",
	"cardano":   "ADA-USD",
	"avalanche": "AVAX-USD",
	"polkadot":  "DOT-USD",
	"chainlink": "LINK-USD",
	"litecoin":  "LTC-USD",
	"uniswap":   "UNI-USD",
	"aave":      "AAVE-USD",
	"polygon":   "MATIC-USD",
	"near":      "NEAR-USD",
	"optimism":  "OP-USD",
	"arbitrum":  "ARB-USD",
	"dogecoin":  "DOGE-USD",
}
