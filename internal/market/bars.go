package market

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/minhtri/stockalert/internal/models"
)

// BarsSource is the fallback quote source: a long-term daily bars endpoint.
// Only the latest close is usable, so change and change-percent come back
// zero. That is a valid degraded quote.
type BarsSource struct {
	baseURL    string
	httpClient *http.Client
}

type barsResponse struct {
	Data []struct {
		Close float64 `json:"close"`
	} `json:"data"`
}

// NewBarsSource creates a daily-bars fallback quote source.
func NewBarsSource(baseURL string, timeout time.Duration) *BarsSource {
	return &BarsSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
	}
}

func (s *BarsSource) Name() string { return "bars" }

// Quote returns the close of the most recent daily bar.
func (s *BarsSource) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	url := fmt.Sprintf(
		"%s/stock-insight/v1/stock/bars-long-term?ticker=%s&type=stock&resolution=D&from=0&to=9999999999",
		s.baseURL, strings.ToUpper(symbol),
	)
	var resp barsResponse
	if err := getJSON(ctx, s.httpClient, s.Name(), url, &resp); err != nil {
		return models.Quote{}, err
	}
	if len(resp.Data) == 0 {
		return models.Quote{}, ErrSymbolNotFound
	}
	latest := resp.Data[len(resp.Data)-1]
	return models.Quote{Price: latest.Close}, nil
}
