package external

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/cartera/internal/domain"
)

const yahooConcurrency = 4

// YahooClient fetches equity prices (the underlyings of CEDEARs) from the Yahoo Finance chart API.
type YahooClient struct {
	retryClient
}

func NewYahooClient(baseURL string, maxRetries int, baseDelay time.Duration) *YahooClient {
	return &YahooClient{retryClient: newRetryClient("Yahoo", baseURL, maxRetries, baseDelay)}
}

func (c *YahooClient) Name() string { return "yahoo" }

// Handles reports whether the symbol is an equity ticker rather than a crypto symbol.
func (c *YahooClient) Handles(symbol string) bool {
	return symbol != "" && !IsCryptoSymbol(symbol)
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string          `json:"currency"`
				RegularMarketPrice decimal.Decimal `json:"regularMarketPrice"`
				ChartPreviousClose decimal.Decimal `json:"chartPreviousClose"`
				RegularMarketTime  int64           `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// FetchQuotes fetches each symbol concurrently. Symbols that fail are logged and left out;
// an error is returned only when every symbol failed.
func (c *YahooClient) FetchQuotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	var (
		mu      sync.Mutex
		result  = make(map[string]domain.Quote, len(symbols))
		lastErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(yahooConcurrency)
	for _, symbol := range symbols {
		g.Go(func() error {
			q, err := c.fetchOne(gctx, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("Yahoo: quote failed", "symbol", symbol, "error", err)
				lastErr = err
				return nil
			}
			result[symbol] = q
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 && lastErr != nil {
		return nil, fmt.Errorf("fetching Yahoo quotes: %w", lastErr)
	}
	return result, nil
}

func (c *YahooClient) fetchOne(ctx context.Context, symbol string) (domain.Quote, error) {
	var resp chartResponse
	path := "/v8/finance/chart/" + url.PathEscape(symbol) + "?interval=1d&range=1d"
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return domain.Quote{}, err
	}
	if resp.Chart.Error != nil {
		return domain.Quote{}, fmt.Errorf("yahoo error for %s: %v", symbol, resp.Chart.Error)
	}
	if len(resp.Chart.Result) == 0 {
		return domain.Quote{}, fmt.Errorf("no chart data for %s", symbol)
	}

	meta := resp.Chart.Result[0].Meta
	if meta.Currency != "" && meta.Currency != "USD" {
		return domain.Quote{}, fmt.Errorf("%s is quoted in %s, not USD", symbol, meta.Currency)
	}
	if !meta.RegularMarketPrice.IsPositive() {
		return domain.Quote{}, fmt.Errorf("no price for %s", symbol)
	}

	q := domain.Quote{Symbol: symbol, PriceUSD: meta.RegularMarketPrice, UpdatedAt: time.Now().UTC()}
	if meta.RegularMarketTime > 0 {
		q.UpdatedAt = time.Unix(meta.RegularMarketTime, 0).UTC()
	}
	if meta.ChartPreviousClose.IsPositive() {
		change := meta.RegularMarketPrice.Sub(meta.ChartPreviousClose).
			Div(meta.ChartPreviousClose).Mul(decimal.NewFromInt(100)).Round(4)
		q.ChangePct1d = &change
	}
	return q, nil
}
