package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/dashboard/internal/clientdata"
	"github.com/aristath/dashboard/internal/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// InvalidatedCaches are the view caches that derive from market prices.
var InvalidatedCaches = []string{
	clientdata.TableMarketPrices,
	clientdata.TablePortfolios,
	clientdata.TableBreakEvenAnalysis,
	clientdata.TablePortfolioSummary,
}

// finalizedMemory bounds how many session ids are remembered for idempotency.
const finalizedMemory = 64

// CacheStore drops every entry of a named view cache.
type CacheStore interface {
	Invalidate(table string) (int64, error)
}

// Broadcaster invalidates the price-derived view caches and announces it.
type Broadcaster struct {
	store  CacheStore
	events *events.Manager
	log    zerolog.Logger
}

// NewBroadcaster creates a broadcaster. store may be nil when no local
// cache is configured; the event is still emitted.
func NewBroadcaster(store CacheStore, eventManager *events.Manager, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		store:  store,
		events: eventManager,
		log:    log.With().Str("component", "cache_broadcaster").Logger(),
	}
}

// Invalidate clears every cache in InvalidatedCaches. A failing cache does
// not stop the others.
func (b *Broadcaster) Invalidate(ctx context.Context, sessionID string) (map[string]int64, error) {
	deleted := make(map[string]int64, len(InvalidatedCaches))
	var errs []error

	if b.store != nil {
		for _, table := range InvalidatedCaches {
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				break
			}
			n, err := b.store.Invalidate(table)
			if err != nil {
				b.log.Error().Err(err).Str("cache", table).Msg("Failed to invalidate cache")
				errs = append(errs, fmt.Errorf("%s: %w", table, err))
				continue
			}
			deleted[table] = n
		}
	}

	caches := make([]string, len(InvalidatedCaches))
	copy(caches, InvalidatedCaches)

	if b.events != nil {
		b.events.EmitTyped(events.CacheInvalidated, "refresh", &events.CacheInvalidatedData{
			SessionID: sessionID,
			Caches:    caches,
			Deleted:   deleted,
		})
	}

	return deleted, errors.Join(errs...)
}

// CompletionMessage is the transient text shown after a session ends.
func CompletionMessage(completed int) string {
	return fmt.Sprintf("Done: %d prices updated", completed)
}

// MessageSink receives the completion message and its later removal.
type MessageSink interface {
	ShowMessage(msg string)
	// ClearMessage removes msg only if it is still the one shown.
	ClearMessage(msg string)
}

// Finalizer runs the terminal transition of a poll session exactly once.
type Finalizer struct {
	broadcaster *Broadcaster
	events      *events.Manager
	sink        MessageSink
	delay       time.Duration
	now         func() time.Time
	log         zerolog.Logger

	mu        sync.Mutex
	finalized map[uuid.UUID]struct{}
	order     []uuid.UUID
	timer     *time.Timer
	armed     int
}

// NewFinalizer creates a finalizer whose completion message clears after delay.
func NewFinalizer(broadcaster *Broadcaster, eventManager *events.Manager, sink MessageSink, delay time.Duration, log zerolog.Logger) *Finalizer {
	if delay <= 0 {
		delay = MessageClearDelay
	}
	return &Finalizer{
		broadcaster: broadcaster,
		events:      eventManager,
		sink:        sink,
		delay:       delay,
		now:         time.Now,
		log:         log.With().Str("component", "refresh_finalizer").Logger(),
		finalized:   make(map[uuid.UUID]struct{}),
	}
}

// Finalize invalidates caches, announces completion and shows the
// completion message. It returns false if the session was already finalized.
func (f *Finalizer) Finalize(ctx context.Context, term Terminal) bool {
	if !f.markFinalized(term.Session.ID) {
		f.log.Debug().Str("session_id", term.Session.ID.String()).Msg("Session already finalized")
		return false
	}

	sessionID := term.Session.ID.String()
	completed := term.CompletedSymbols()

	if _, err := f.broadcaster.Invalidate(ctx, sessionID); err != nil {
		f.log.Warn().Err(err).Str("session_id", sessionID).Msg("Cache invalidation incomplete")
	}

	if f.events != nil {
		data := &events.PriceRefreshCompletedData{
			SessionID:        sessionID,
			Outcome:          string(term.Outcome),
			CompletedSymbols: completed,
			DurationSeconds:  f.now().Sub(term.Session.StartedAt).Seconds(),
		}
		if term.Status != nil {
			data.TotalSymbols = term.Status.TotalSymbols
			if term.Status.Error != nil {
				data.Error = *term.Status.Error
			}
		}
		f.events.EmitTyped(events.PriceRefreshCompleted, "refresh", data)
		f.events.EmitTyped(events.PriceUpdated, "refresh", &events.PriceUpdatedData{
			PricesSynced: term.Outcome == OutcomeCompleted,
			Count:        completed,
		})
	}

	msg := CompletionMessage(completed)
	if f.sink != nil {
		f.sink.ShowMessage(msg)
	}
	f.scheduleClear(msg)

	f.log.Info().
		Str("session_id", sessionID).
		Str("outcome", string(term.Outcome)).
		Int("completed_symbols", completed).
		Msg("Refresh finalized")

	return true
}

// Stop cancels a pending message clear.
func (f *Finalizer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

func (f *Finalizer) markFinalized(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, done := f.finalized[id]; done {
		return false
	}
	f.finalized[id] = struct{}{}
	f.order = append(f.order, id)
	if len(f.order) > finalizedMemory {
		delete(f.finalized, f.order[0])
		f.order = f.order[1:]
	}
	return true
}

// scheduleClear replaces any pending clear with one for msg.
func (f *Finalizer) scheduleClear(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timer != nil {
		f.timer.Stop()
	}
	f.armed++

	var timer *time.Timer
	timer = time.AfterFunc(f.delay, func() {
		f.mu.Lock()
		current := f.timer == timer
		if current {
			f.timer = nil
		}
		f.mu.Unlock()

		if current && f.sink != nil {
			f.sink.ClearMessage(msg)
		}
	})
	f.timer = timer
}
