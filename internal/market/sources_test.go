package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBoardSource_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dchart/api/1.1/defaultAllStocks" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"stockSymbol":"FPT","lastPrice":120500,"priceChange":500,"percentPriceChange":0.42},
			{"stockSymbol":"VNM","lastPrice":75000,"priceChange":-200,"percentPriceChange":-0.27}
		]`))
	}))
	defer srv.Close()

	s := NewBoardSource(srv.URL, 2*time.Second)
	q, err := s.Quote(context.Background(), "vnm")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Price != 75000 {
		t.Errorf("got price %.0f, want 75000", q.Price)
	}
	if q.Change != -200 || q.ChangePercent != -0.27 {
		t.Errorf("got change %.0f / %.2f%%, want -200 / -0.27%%", q.Change, q.ChangePercent)
	}
}

func TestBoardSource_SymbolNotListed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"stockSymbol":"VNM","lastPrice":75000}]`))
	}))
	defer srv.Close()

	s := NewBoardSource(srv.URL, 2*time.Second)
	_, err := s.Quote(context.Background(), "ZZZZ")
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("got %v, want ErrSymbolNotFound", err)
	}
}

func TestBoardSource_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewBoardSource(srv.URL, 2*time.Second)
	_, err := s.Quote(context.Background(), "VNM")
	if err == nil || errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("a 500 must read as source-unavailable, got %v", err)
	}
}

func TestBarsSource_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ticker") != "VNM" {
			t.Errorf("unexpected ticker %q", r.URL.Query().Get("ticker"))
		}
		_, _ = w.Write([]byte(`{"data":[{"close":73000},{"close":74000},{"close":75000}]}`))
	}))
	defer srv.Close()

	s := NewBarsSource(srv.URL, 2*time.Second)
	q, err := s.Quote(context.Background(), "vnm")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Price != 75000 {
		t.Errorf("got price %.0f, want the latest close 75000", q.Price)
	}
	if q.Change != 0 || q.ChangePercent != 0 {
		t.Error("bars quotes must carry zero change fields")
	}
}

func TestBarsSource_NoBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	s := NewBarsSource(srv.URL, 2*time.Second)
	_, err := s.Quote(context.Background(), "ZZZZ")
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("got %v, want ErrSymbolNotFound", err)
	}
}

func eventWindow() (time.Time, time.Time) {
	from := time.Now()
	return from, from.AddDate(0, 0, 90)
}

func TestTimelineSource_UpcomingEvent(t *testing.T) {
	date := time.Now().AddDate(0, 0, 20).Format("2006-01-02")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tcanalysis/v1/company/HPG/event-timeline" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"listEventQuarter":[
			{"ticker":"HPG - Đại hội cổ đông","exrightDate":""},
			{"ticker":"HPG - GDKHQ cổ tức","exrightDate":"` + date + `"}
		]}`))
	}))
	defer srv.Close()

	s := NewTimelineSource(srv.URL, 2*time.Second)
	from, to := eventWindow()
	ev, err := s.UpcomingEvent(context.Background(), "hpg", from, to)
	if err != nil {
		t.Fatalf("UpcomingEvent: %v", err)
	}
	if !ev.HasEvent || ev.Date != date || ev.Kind != EventKindExRights {
		t.Errorf("got %+v, want GDKHQ event on %s", ev, date)
	}
}

func TestTimelineSource_NoMatchingEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"listEventQuarter":[{"ticker":"HPG - Đại hội cổ đông","exrightDate":"2026-09-10"}]}`))
	}))
	defer srv.Close()

	s := NewTimelineSource(srv.URL, 2*time.Second)
	from, to := eventWindow()
	ev, err := s.UpcomingEvent(context.Background(), "HPG", from, to)
	if err != nil {
		t.Fatalf("UpcomingEvent: %v", err)
	}
	if ev.HasEvent {
		t.Error("a timeline without GDKHQ entries must report no event")
	}
}

func TestTimelineSource_ForbiddenIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewTimelineSource(srv.URL, 2*time.Second)
	from, to := eventWindow()
	_, err := s.UpcomingEvent(context.Background(), "HPG", from, to)
	if err == nil {
		t.Error("a 403 must read as source-unavailable, not as no-event")
	}
}

func TestCalendarSource_UpcomingEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"type":"DHCD","recordDate":"2026-09-05"},
			{"type":"GDKHQ","recordDate":"2026-09-17"}
		]}`))
	}))
	defer srv.Close()

	s := NewCalendarSource(srv.URL, 2*time.Second)
	from, to := eventWindow()
	ev, err := s.UpcomingEvent(context.Background(), "HPG", from, to)
	if err != nil {
		t.Fatalf("UpcomingEvent: %v", err)
	}
	if !ev.HasEvent || ev.Date != "2026-09-17" {
		t.Errorf("got %+v, want GDKHQ event on 2026-09-17", ev)
	}
}

func TestCalendarSource_NotFoundIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s := NewCalendarSource(srv.URL, 2*time.Second)
	from, to := eventWindow()
	_, err := s.UpcomingEvent(context.Background(), "HPG", from, to)
	if err == nil {
		t.Error("a 404 must read as source-unavailable, not as no-event")
	}
}
