package external

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cartera/internal/domain"
)

// SymbolMapping maps instrument symbols to CoinGecko IDs.
var SymbolMapping = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"ADA":   "cardano",
	"XLM":   "stellar",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"USDT":  "tether",
	"USDC":  "usd-coin",
	"DAI":   "dai",
}

// IsCryptoSymbol reports whether a symbol is priced by CoinGecko.
func IsCryptoSymbol(symbol string) bool {
	_, ok := SymbolMapping[strings.ToUpper(symbol)]
	return ok
}

// CoinGeckoClient fetches crypto prices from the CoinGecko API.
type CoinGeckoClient struct {
	retryClient
}

func NewCoinGeckoClient(baseURL string, maxRetries int, baseDelay time.Duration) *CoinGeckoClient {
	return &CoinGeckoClient{retryClient: newRetryClient("CoinGecko", baseURL, maxRetries, baseDelay)}
}

func (c *CoinGeckoClient) Name() string { return "coingecko" }

// Handles reports whether the symbol has a CoinGecko id.
func (c *CoinGeckoClient) Handles(symbol string) bool {
	return IsCryptoSymbol(symbol)
}

// FetchQuotes returns USD prices and 24h change for the known symbols among symbols.
// Unknown symbols are ignored.
func (c *CoinGeckoClient) FetchQuotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	idToSymbols := make(map[string][]string)
	for _, s := range symbols {
		if id, ok := SymbolMapping[strings.ToUpper(s)]; ok {
			idToSymbols[id] = append(idToSymbols[id], s)
		}
	}
	if len(idToSymbols) == 0 {
		return map[string]domain.Quote{}, nil
	}

	ids := make([]string, 0, len(idToSymbols))
	for id := range idToSymbols {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	path := fmt.Sprintf("/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true", strings.Join(ids, ","))

	// {"bitcoin":{"usd":65000.12,"usd_24h_change":-1.5},...}
	var raw map[string]map[string]decimal.Decimal
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("fetching CoinGecko prices: %w", err)
	}

	now := time.Now().UTC()
	result := make(map[string]domain.Quote)
	for id, syms := range idToSymbols {
		prices, ok := raw[id]
		if !ok {
			continue
		}
		price, ok := prices["usd"]
		if !ok || !price.IsPositive() {
			continue
		}
		var change *decimal.Decimal
		if ch, ok := prices["usd_24h_change"]; ok {
			change = &ch
		}
		for _, s := range syms {
			result[s] = domain.Quote{Symbol: s, PriceUSD: price, ChangePct1d: change, UpdatedAt: now}
		}
	}
	return result, nil
}
