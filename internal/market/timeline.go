package market

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/minhtri/stockalert/internal/models"
)

// EventKindExRights is the canonical kind for ex-rights/record-date events
// (GDKHQ in the upstream calendars).
const EventKindExRights = "GDKHQ"

// TimelineSource is the primary event source: a per-company event timeline
// endpoint whose quarterly entries flag ex-rights dates.
type TimelineSource struct {
	baseURL    string
	httpClient *http.Client
}

type timelineResponse struct {
	ListEventQuarter []struct {
		Ticker      string `json:"ticker"`
		ExrightDate string `json:"exrightDate"`
	} `json:"listEventQuarter"`
}

// NewTimelineSource creates a company event timeline source.
func NewTimelineSource(baseURL string, timeout time.Duration) *TimelineSource {
	return &TimelineSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
	}
}

func (s *TimelineSource) Name() string { return "timeline" }

// UpcomingEvent scans the timeline for an ex-rights entry. The upstream
// labels the event kind inside the ticker field, so match on the GDKHQ or
// Record markers there.
func (s *TimelineSource) UpcomingEvent(ctx context.Context, symbol string, from, to time.Time) (models.CorporateEvent, error) {
	url := fmt.Sprintf("%s/tcanalysis/v1/company/%s/event-timeline", s.baseURL, strings.ToUpper(symbol))
	var resp timelineResponse
	if err := getJSON(ctx, s.httpClient, s.Name(), url, &resp); err != nil {
		return models.CorporateEvent{}, err
	}

	for _, ev := range resp.ListEventQuarter {
		if !strings.Contains(ev.Ticker, "GDKHQ") && !strings.Contains(ev.Ticker, "Record") {
			continue
		}
		if ev.ExrightDate == "" {
			continue
		}
		if !withinWindow(ev.ExrightDate, from, to) {
			continue
		}
		return models.CorporateEvent{
			HasEvent: true,
			Date:     ev.ExrightDate,
			Kind:     EventKindExRights,
		}, nil
	}
	return models.CorporateEvent{}, nil
}

// withinWindow reports whether a YYYY-MM-DD date falls inside [from, to].
// Unparseable dates are kept: better to warn about a fuzzy date than to
// silently drop a real event.
func withinWindow(date string, from, to time.Time) bool {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return true
	}
	return !d.Before(from.Truncate(24*time.Hour)) && !d.After(to)
}
