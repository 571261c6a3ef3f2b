package market

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/minhtri/stockalert/internal/models"
)

// BoardSource is the primary quote source: a board snapshot endpoint that
// returns the full current quote for every listed symbol in one response,
// filtered client-side.
type BoardSource struct {
	baseURL    string
	httpClient *http.Client
}

// boardStock mirrors one entry of the board snapshot response.
type boardStock struct {
	StockSymbol        string  `json:"stockSymbol"`
	LastPrice          float64 `json:"lastPrice"`
	PriceChange        float64 `json:"priceChange"`
	PercentPriceChange float64 `json:"percentPriceChange"`
}

// NewBoardSource creates a board snapshot quote source.
func NewBoardSource(baseURL string, timeout time.Duration) *BoardSource {
	return &BoardSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
	}
}

func (s *BoardSource) Name() string { return "board" }

// Quote fetches the whole board and picks the requested symbol out of it.
func (s *BoardSource) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	var stocks []boardStock
	url := s.baseURL + "/dchart/api/1.1/defaultAllStocks"
	if err := getJSON(ctx, s.httpClient, s.Name(), url, &stocks); err != nil {
		return models.Quote{}, err
	}

	want := strings.ToUpper(symbol)
	for _, st := range stocks {
		if strings.ToUpper(st.StockSymbol) == want {
			return models.Quote{
				Price:         st.LastPrice,
				Change:        st.PriceChange,
				ChangePercent: st.PercentPriceChange,
			}, nil
		}
	}
	return models.Quote{}, ErrSymbolNotFound
}
