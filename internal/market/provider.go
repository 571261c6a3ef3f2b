// Package market fetches quotes and corporate-action events for listed
// symbols from ordered chains of upstream sources. Each chain tries sources
// in priority order and settles for the first usable answer; an unreachable
// or erroring source is skipped, never fatal.
package market

import (
	"context"
	"errors"
	"time"

	"github.com/minhtri/stockalert/internal/logger"
	"github.com/minhtri/stockalert/internal/models"
)

var (
	// ErrSymbolNotFound means at least one source answered and none of the
	// reachable sources listed the symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrProviderUnavailable means every source in the chain failed to answer.
	ErrProviderUnavailable = errors.New("no price source available")
)

// PriceSource is a single upstream quote source. Implementations return
// ErrSymbolNotFound when they answered but do not list the symbol; any other
// error counts as the source being unreachable.
type PriceSource interface {
	Name() string
	Quote(ctx context.Context, symbol string) (models.Quote, error)
}

// PriceProvider resolves quotes against an ordered fallback chain.
type PriceProvider struct {
	sources []PriceSource
}

// NewPriceProvider builds a provider over the given sources, highest
// priority first.
func NewPriceProvider(sources ...PriceSource) *PriceProvider {
	return &PriceProvider{sources: sources}
}

// FetchQuote returns the quote from the first source that has the symbol.
// No retries happen within a call; the caller's next poll is the retry.
func (p *PriceProvider) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	anyReachable := false
	for _, src := range p.sources {
		q, err := src.Quote(ctx, symbol)
		if err == nil {
			return q, nil
		}
		if errors.Is(err, ErrSymbolNotFound) {
			anyReachable = true
			continue
		}
		logger.Debug("price source %s failed for %s: %v", src.Name(), symbol, err)
	}
	if anyReachable {
		return models.Quote{}, ErrSymbolNotFound
	}
	return models.Quote{}, ErrProviderUnavailable
}

// EventSource is a single upstream corporate-action calendar. A source that
// answers but has no matching event in [from, to] returns HasEvent false and
// a nil error; any error counts as the source being unreachable.
type EventSource interface {
	Name() string
	UpcomingEvent(ctx context.Context, symbol string, from, to time.Time) (models.CorporateEvent, error)
}

// EventProvider resolves upcoming events against an ordered fallback chain.
type EventProvider struct {
	sources []EventSource
	horizon int
}

// NewEventProvider builds a provider over the given sources, highest
// priority first. horizonDays bounds how far ahead events are searched.
func NewEventProvider(horizonDays int, sources ...EventSource) *EventProvider {
	if horizonDays < 1 {
		horizonDays = 90
	}
	return &EventProvider{sources: sources, horizon: horizonDays}
}

// FetchUpcomingEvent returns the first event any source reports within the
// horizon. Finding nothing is a normal outcome, not an error: the chain is
// exhausted and {HasEvent: false} comes back with a nil error.
func (p *EventProvider) FetchUpcomingEvent(ctx context.Context, symbol string) (models.CorporateEvent, error) {
	from := time.Now()
	to := from.AddDate(0, 0, p.horizon)
	for _, src := range p.sources {
		ev, err := src.UpcomingEvent(ctx, symbol, from, to)
		if err != nil {
			logger.Debug("event source %s failed for %s: %v", src.Name(), symbol, err)
			continue
		}
		if ev.HasEvent {
			return ev, nil
		}
	}
	return models.CorporateEvent{}, nil
}
