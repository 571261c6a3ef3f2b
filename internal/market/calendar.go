package market

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/minhtri/stockalert/internal/models"
)

// CalendarSource is the fallback event source: an event search endpoint with
// a tilde-delimited query language and a different field layout than the
// timeline source.
type CalendarSource struct {
	baseURL    string
	httpClient *http.Client
}

type calendarResponse struct {
	Data []struct {
		Type       string `json:"type"`
		RecordDate string `json:"recordDate"`
	} `json:"data"`
}

// NewCalendarSource creates an event search calendar source.
func NewCalendarSource(baseURL string, timeout time.Duration) *CalendarSource {
	return &CalendarSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
	}
}

func (s *CalendarSource) Name() string { return "calendar" }

// UpcomingEvent queries the calendar for GDKHQ events inside [from, to].
func (s *CalendarSource) UpcomingEvent(ctx context.Context, symbol string, from, to time.Time) (models.CorporateEvent, error) {
	url := fmt.Sprintf(
		"%s/v4/events?q=ticker:%s~type:GDKHQ~from:%s~to:%s",
		s.baseURL,
		strings.ToUpper(symbol),
		from.Format("2006-01-02"),
		to.Format("2006-01-02"),
	)
	var resp calendarResponse
	if err := getJSON(ctx, s.httpClient, s.Name(), url, &resp); err != nil {
		return models.CorporateEvent{}, err
	}

	for _, ev := range resp.Data {
		if ev.Type != "GDKHQ" || ev.RecordDate == "" {
			continue
		}
		return models.CorporateEvent{
			HasEvent: true,
			Date:     ev.RecordDate,
			Kind:     EventKindExRights,
		}, nil
	}
	return models.CorporateEvent{}, nil
}
