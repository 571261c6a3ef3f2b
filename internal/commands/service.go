// Package commands implements the structured command surface: create, list,
// delete, price, history. The Telegram layer parses user text into these
// calls and formats the results; no message text lives here.
package commands

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/minhtri/stockalert/internal/logger"
	"github.com/minhtri/stockalert/internal/models"
	"github.com/minhtri/stockalert/internal/storage"
	"github.com/minhtri/stockalert/internal/store"
)

var (
	// ErrInvalidPrice means the target price argument is not a usable number.
	ErrInvalidPrice = errors.New("target price must be a positive number")
	// ErrInvalidSymbol means the symbol argument is missing or blank.
	ErrInvalidSymbol = errors.New("symbol must not be empty")
)

// QuoteFetcher resolves the latest quote for a symbol.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, symbol string) (models.Quote, error)
}

// EventFetcher resolves the upcoming corporate event for a symbol.
type EventFetcher interface {
	FetchUpcomingEvent(ctx context.Context, symbol string) (models.CorporateEvent, error)
}

// Service wires the command surface to the store and the provider chains.
type Service struct {
	store   *store.Store
	quotes  QuoteFetcher
	events  EventFetcher
	journal *storage.Journal
}

// New creates a command service. journal may be nil in tests.
func New(s *store.Store, quotes QuoteFetcher, events EventFetcher, journal *storage.Journal) *Service {
	return &Service{store: s, quotes: quotes, events: events, journal: journal}
}

// CreateResult is the answer to a successful create-alert command.
type CreateResult struct {
	Alert models.Alert
	Quote models.Quote
}

// CreateAlert validates the request, looks up the current quote (a failed
// lookup rejects the creation), captures the upcoming corporate event once,
// and stores the alert.
func (s *Service) CreateAlert(ctx context.Context, owner int64, symbol string, targetPrice float64) (CreateResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return CreateResult{}, ErrInvalidSymbol
	}
	if targetPrice <= 0 || math.IsNaN(targetPrice) || math.IsInf(targetPrice, 0) {
		return CreateResult{}, ErrInvalidPrice
	}

	quote, err := s.quotes.FetchQuote(ctx, symbol)
	if err != nil {
		return CreateResult{}, err
	}

	// Event lookup happens exactly once, here. The result is frozen into the
	// alert; later ticks never re-fetch it.
	event, err := s.events.FetchUpcomingEvent(ctx, symbol)
	if err != nil {
		logger.Warn("event lookup failed for %s, creating alert without event info: %v", symbol, err)
		event = models.CorporateEvent{}
	}

	alert := &models.Alert{
		Owner:          owner,
		Symbol:         symbol,
		TargetPrice:    targetPrice,
		LastKnownPrice: quote.Price,
		Event:          event,
	}
	s.store.Create(owner, alert)
	logger.Info("alert %s created: owner=%d symbol=%s target=%.0f has_event=%v",
		alert.ID, owner, symbol, targetPrice, event.HasEvent)

	return CreateResult{Alert: alert.Clone(), Quote: quote}, nil
}

// ListAlerts returns the owner's alerts in creation order. The last known
// price is refreshed opportunistically per alert; a failed quote simply
// leaves the stored price in place.
func (s *Service) ListAlerts(ctx context.Context, owner int64) []models.Alert {
	alerts := s.store.List(owner)
	for i := range alerts {
		quote, err := s.quotes.FetchQuote(ctx, alerts[i].Symbol)
		if err != nil {
			continue
		}
		alerts[i].LastKnownPrice = quote.Price
		s.store.Apply(owner, alerts[i].ID, func(a *models.Alert) {
			a.LastKnownPrice = quote.Price
		})
	}
	return alerts
}

// DeleteAlert removes the alert at the given 1-based position, matching what
// ListAlerts reported there.
func (s *Service) DeleteAlert(owner int64, position int) (models.Alert, error) {
	return s.store.DeleteAt(owner, position-1)
}

// GetPrice resolves a one-off quote for the symbol.
func (s *Service) GetPrice(ctx context.Context, symbol string) (models.Quote, error) {
	return s.quotes.FetchQuote(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
}

// History returns the owner's recent notification records, newest first.
func (s *Service) History(owner int64, limit int) ([]models.Notification, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.Recent(owner, limit)
}
