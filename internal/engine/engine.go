// Package engine runs the alert reconciliation loop: on a fixed interval it
// snapshots every alert, evaluates each against a fresh quote, and pushes
// notifications for triggered conditions.
package engine

import (
	"context"
	"time"

	"github.com/minhtri/stockalert/internal/logger"
	"github.com/minhtri/stockalert/internal/models"
	"github.com/minhtri/stockalert/internal/storage"
	"github.com/minhtri/stockalert/internal/store"
)

// QuoteFetcher resolves the latest quote for a symbol.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, symbol string) (models.Quote, error)
}

// Sink delivers notifications to a user. Message text is the sink's
// business; the engine only states what happened. Delivery failures are
// non-fatal everywhere.
type Sink interface {
	SendTargetReached(owner int64, alert models.Alert, quote models.Quote) error
	SendEventReminder(owner int64, alert models.Alert, daysLeft int) error
}

// Config holds reconciliation loop settings.
type Config struct {
	PollInterval      time.Duration
	InitialDelay      time.Duration
	WarningWindowDays int
}

// DefaultConfig returns the loop settings the bot ships with.
func DefaultConfig() Config {
	return Config{
		PollInterval:      5 * time.Minute,
		InitialDelay:      10 * time.Second,
		WarningWindowDays: 30,
	}
}

// Engine is the reconciliation loop. It is the only writer of alert state
// apart from explicit user deletes.
type Engine struct {
	store   *store.Store
	quotes  QuoteFetcher
	sink    Sink
	journal *storage.Journal
	cfg     Config
	now     func() time.Time
}

// New creates an engine. journal may be nil when no audit trail is wanted.
func New(s *store.Store, quotes QuoteFetcher, sink Sink, journal *storage.Journal, cfg Config) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	if cfg.WarningWindowDays <= 0 {
		cfg.WarningWindowDays = 30
	}
	return &Engine{
		store:   s,
		quotes:  quotes,
		sink:    sink,
		journal: journal,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run executes ticks until ctx is cancelled. The first tick fires after the
// initial delay so the surrounding process can finish starting up. A cancel
// takes effect between ticks; an in-flight tick always completes.
func (e *Engine) Run(ctx context.Context) {
	if e.cfg.InitialDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(e.cfg.InitialDelay):
		}
	}

	logger.Info("reconciliation loop started (interval: %v, warning window: %d days)",
		e.cfg.PollInterval, e.cfg.WarningWindowDays)

	e.Tick(ctx)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("reconciliation loop stopped")
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick evaluates every alert in one point-in-time snapshot. Alerts are
// independent: one alert's fetch failure never aborts the rest, and a tick
// runs start to finish so no alert is ever evaluated by two ticks at once.
func (e *Engine) Tick(ctx context.Context) {
	start := e.now()
	snapshot := e.store.Snapshot()

	evaluated := 0
	for owner, alerts := range snapshot {
		for _, alert := range alerts {
			e.evaluate(ctx, owner, alert)
			evaluated++
		}
	}

	logger.Debug("tick evaluated %d alerts in %v", evaluated, time.Since(start))
}

// evaluate runs the per-alert state machine: fetch, trigger-or-refresh, then
// the event-warning countdown.
func (e *Engine) evaluate(ctx context.Context, owner int64, alert models.Alert) {
	quote, err := e.quotes.FetchQuote(ctx, alert.Symbol)
	if err != nil {
		// Transient fetch failure: leave the alert untouched and let the
		// next tick retry. Treating this as "never trigger" would be wrong.
		logger.Debug("skipping %s for owner %d this tick: %v", alert.Symbol, owner, err)
		return
	}

	if quote.Price >= alert.TargetPrice {
		e.trigger(owner, alert, quote)
		return
	}

	if ok := e.store.Apply(owner, alert.ID, func(a *models.Alert) {
		a.LastKnownPrice = quote.Price
	}); !ok {
		// Deleted between snapshot and now; nothing left to do.
		return
	}

	e.checkEventWarning(owner, alert)
}

// trigger notifies the owner and removes the alert. Removal happens even
// when delivery fails: a broken channel must not leave the alert re-firing
// forever. The journal keeps the record either way.
func (e *Engine) trigger(owner int64, alert models.Alert, quote models.Quote) {
	err := e.sink.SendTargetReached(owner, alert, quote)
	if err != nil {
		logger.Warn("target notification for %s (owner %d) failed, removing alert anyway: %v",
			alert.Symbol, owner, err)
	} else {
		logger.Info("target reached: %s at %.0f (target %.0f, owner %d)",
			alert.Symbol, quote.Price, alert.TargetPrice, owner)
	}

	e.record(models.Notification{
		Owner:       owner,
		Symbol:      alert.Symbol,
		Kind:        models.NotificationTarget,
		Price:       quote.Price,
		TargetPrice: alert.TargetPrice,
		Delivered:   err == nil,
		SentAt:      e.now(),
	})

	e.store.Remove(owner, alert.ID)
}

// checkEventWarning sends the one-time ex-rights reminder once the countdown
// enters the warning window. The flag is set regardless of delivery outcome;
// the reminder is a best-effort courtesy, not a guaranteed delivery.
func (e *Engine) checkEventWarning(owner int64, alert models.Alert) {
	if !alert.Event.HasEvent || alert.EventWarningSent {
		return
	}

	daysLeft, err := alert.Event.DaysUntil(e.now())
	if err != nil {
		logger.Debug("unparseable event date %q for %s: %v", alert.Event.Date, alert.Symbol, err)
		return
	}
	if daysLeft <= 0 || daysLeft > e.cfg.WarningWindowDays {
		return
	}

	sendErr := e.sink.SendEventReminder(owner, alert, daysLeft)
	if sendErr != nil {
		logger.Warn("event reminder for %s (owner %d) failed: %v", alert.Symbol, owner, sendErr)
	} else {
		logger.Info("event reminder sent: %s on %s, %d days left (owner %d)",
			alert.Symbol, alert.Event.Date, daysLeft, owner)
	}

	e.record(models.Notification{
		Owner:       owner,
		Symbol:      alert.Symbol,
		Kind:        models.NotificationEvent,
		TargetPrice: alert.TargetPrice,
		DaysLeft:    daysLeft,
		Delivered:   sendErr == nil,
		SentAt:      e.now(),
	})

	e.store.Apply(owner, alert.ID, func(a *models.Alert) {
		a.EventWarningSent = true
	})
}

func (e *Engine) record(n models.Notification) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(&n); err != nil {
		logger.Warn("failed to journal notification for %s: %v", n.Symbol, err)
	}
}
