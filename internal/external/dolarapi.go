package external

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cartera/internal/domain"
)

// casaKinds maps dolarapi.com "casa" names to rate kinds.
var casaKinds = map[string]domain.FxKind{
	"oficial":         domain.FxOficial,
	"blue":            domain.FxBlue,
	"bolsa":           domain.FxMEP,
	"contadoconliqui": domain.FxCCL,
	"cripto":          domain.FxCripto,
}

type dolarQuote struct {
	Casa               string          `json:"casa"`
	Compra             decimal.Decimal `json:"compra"`
	Venta              decimal.Decimal `json:"venta"`
	FechaActualizacion time.Time       `json:"fechaActualizacion"`
}

// DolarAPIClient fetches ARS/USD rates from dolarapi.com.
type DolarAPIClient struct {
	retryClient
}

func NewDolarAPIClient(baseURL string, maxRetries int, baseDelay time.Duration) *DolarAPIClient {
	return &DolarAPIClient{retryClient: newRetryClient("DolarAPI", baseURL, maxRetries, baseDelay)}
}

// FetchFxRates returns the five market rates. Rates missing from the response are left zero,
// which the resolver treats as unavailable.
func (c *DolarAPIClient) FetchFxRates(ctx context.Context) (domain.FxRates, error) {
	var quotes []dolarQuote
	if err := c.getJSON(ctx, "/v1/dolares", &quotes); err != nil {
		return domain.FxRates{}, fmt.Errorf("fetching fx rates: %w", err)
	}

	rates := domain.FxRates{Source: "dolarapi"}
	found := 0
	for _, q := range quotes {
		kind, ok := casaKinds[q.Casa]
		if !ok {
			continue
		}
		pair := domain.RatePair{Buy: q.Compra, Sell: q.Venta}
		switch kind {
		case domain.FxOficial:
			rates.Oficial = pair
		case domain.FxBlue:
			rates.Blue = pair
		case domain.FxMEP:
			rates.MEP = pair
		case domain.FxCCL:
			rates.CCL = pair
		case domain.FxCripto:
			rates.Cripto = pair
		}
		if q.FechaActualizacion.After(rates.UpdatedAt) {
			rates.UpdatedAt = q.FechaActualizacion
		}
		found++
	}
	if found == 0 {
		return domain.FxRates{}, fmt.Errorf("fetching fx rates: no known rates in response")
	}
	return rates, nil
}
