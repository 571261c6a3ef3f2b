// Package models defines the core domain entities: alerts, quotes, and
// corporate-action events.
package models

import (
	"errors"
	"strings"
	"time"
)

// Quote is the latest market quote for a symbol. A source that only exposes
// price history may leave Change and ChangePercent at zero; that is a valid
// degraded quote, not an error.
type Quote struct {
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// CorporateEvent is the canonical record for an upcoming ex-rights/record-date
// event, normalized from whichever upstream calendar answered first.
// Date uses the YYYY-MM-DD layout shared by all upstream calendars.
type CorporateEvent struct {
	HasEvent bool   `json:"has_event"`
	Date     string `json:"date"`
	Kind     string `json:"kind"`
}

const eventDateLayout = "2006-01-02"

// DaysUntil returns the number of whole days from now until the event date.
func (e CorporateEvent) DaysUntil(now time.Time) (int, error) {
	d, err := time.Parse(eventDateLayout, e.Date)
	if err != nil {
		return 0, err
	}
	return int(d.Sub(now).Hours() / 24), nil
}

// Alert is a user-registered target-price watch on a single symbol.
// The corporate event is captured once at creation time and never re-fetched.
type Alert struct {
	ID               string         `json:"id"`
	Owner            int64          `json:"owner"`
	Symbol           string         `json:"symbol"`
	TargetPrice      float64        `json:"target_price"`
	LastKnownPrice   float64        `json:"last_known_price"`
	CreatedAt        time.Time      `json:"created_at"`
	Event            CorporateEvent `json:"event"`
	EventWarningSent bool           `json:"event_warning_sent"`
}

// Validate checks alert field constraints.
func (a *Alert) Validate() error {
	if a.ID == "" {
		return errors.New("alert ID must not be empty")
	}
	if a.Owner == 0 {
		return errors.New("alert owner must not be zero")
	}
	if a.Symbol == "" {
		return errors.New("alert symbol must not be empty")
	}
	if a.Symbol != strings.ToUpper(a.Symbol) {
		return errors.New("alert symbol must be uppercase")
	}
	if a.TargetPrice <= 0 {
		return errors.New("target price must be positive")
	}
	if a.LastKnownPrice < 0 {
		return errors.New("last known price must not be negative")
	}
	if a.CreatedAt.After(time.Now()) {
		return errors.New("created at must not be in the future")
	}
	if a.Event.HasEvent && a.Event.Date == "" {
		return errors.New("corporate event with has_event set must carry a date")
	}
	return nil
}

// Clone returns a deep copy safe to hand out across the store boundary.
func (a *Alert) Clone() Alert {
	return *a
}

// Notification kinds recorded in the journal.
const (
	NotificationTarget = "target_reached"
	NotificationEvent  = "event_reminder"
)

// Notification is one delivery attempt recorded in the journal, whether or
// not the transport accepted it.
type Notification struct {
	ID          string
	Owner       int64
	Symbol      string
	Kind        string
	Price       float64
	TargetPrice float64
	DaysLeft    int
	Delivered   bool
	SentAt      time.Time
}
