// Package result serves total and personal results of running and recently ended
// games, and tells pollers whether results changed since they last asked.
package result

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/victornm/livequiz/internal/changes"
	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
)

// Source returns the results of an active game.
type Source interface {
	Results(gameID string) (domain.GameResults, bool)
}

type SourceFunc func(gameID string) (domain.GameResults, bool)

func (f SourceFunc) Results(gameID string) (domain.GameResults, bool) {
	return f(gameID)
}

type Store interface {
	Store(ctx context.Context, r domain.GameResults) error
	Load(ctx context.Context, gameID string) (domain.GameResults, bool, error)
	TTL() time.Duration
}

type Config struct {
	Source  Source
	Archive Store
	Now     func() time.Time
}

type tracker struct {
	*changes.Tracker
	// expires is set once the game ended and its archive entry has a deadline.
	expires time.Time
}

type Aggregator struct {
	src     Source
	archive Store
	now     func() time.Time

	mu       sync.Mutex
	trackers map[string]*tracker
}

func NewAggregator(c Config) *Aggregator {
	if c.Now == nil {
		c.Now = time.Now
	}

	return &Aggregator{
		src:      c.Source,
		archive:  c.Archive,
		now:      c.Now,
		trackers: make(map[string]*tracker),
	}
}

func (a *Aggregator) tracker(gameID string) *tracker {
	a.mu.Lock()
	defer a.mu.Unlock()

	t, ok := a.trackers[gameID]
	if !ok {
		t = &tracker{Tracker: changes.NewTracker()}
		a.trackers[gameID] = t
	}
	return t
}

// Bump records a change in the results of gameID.
func (a *Aggregator) Bump(gameID string) {
	a.tracker(gameID).Bump()
}

// Archive stores the final results of an ended game and starts the expiry of its
// change tracker.
func (a *Aggregator) Archive(ctx context.Context, r domain.GameResults) error {
	now := a.now()

	t := a.tracker(r.GameID)
	t.Bump()
	a.mu.Lock()
	t.expires = now.Add(a.archive.TTL())
	a.mu.Unlock()

	a.prune(now)

	return a.archive.Store(ctx, r)
}

// prune drops trackers of games whose archive entry expired.
func (a *Aggregator) prune(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for id, t := range a.trackers {
		if !t.expires.IsZero() && now.After(t.expires) {
			delete(a.trackers, id)
		}
	}
}

// Results returns the results of an active game, or of an ended one while it is
// archived.
func (a *Aggregator) Results(ctx context.Context, gameID string) (domain.GameResults, error) {
	if r, ok := a.src.Results(gameID); ok {
		return r, nil
	}

	r, ok, err := a.archive.Load(ctx, gameID)
	if err != nil {
		return domain.GameResults{}, errors.Internal(err)
	}
	if !ok {
		return domain.GameResults{}, errors.NotFound("results not found: game=%s", gameID)
	}

	return r, nil
}

// Total returns one entry per participant in participant order.
func (a *Aggregator) Total(ctx context.Context, gameID string) ([]domain.ResultEntry, error) {
	r, err := a.Results(ctx, gameID)
	if err != nil {
		return nil, err
	}

	return r.Entries, nil
}

// Personal returns the per-task scores of a participant, addressed by account ID
// or username. Only answered tasks appear.
func (a *Aggregator) Personal(ctx context.Context, gameID, participant string) ([]domain.TaskResult, error) {
	r, err := a.Results(ctx, gameID)
	if err != nil {
		return nil, err
	}

	p, ok := r.PersonalFor(participant)
	if !ok {
		return nil, errors.NotFound("participant %s not found in game %s", participant, gameID)
	}

	return p, nil
}

// Changed reports whether the results of gameID changed since caller last asked.
// known is false when the game is neither active nor archived.
func (a *Aggregator) Changed(ctx context.Context, gameID, caller string) (changed, known bool) {
	r, err := a.Results(ctx, gameID)
	if err != nil {
		if !errors.Is(err, errors.CodeNotFound) {
			slog.ErrorContext(ctx, "result: load results failed", "game_id", gameID, "error", err)
		}

		a.mu.Lock()
		delete(a.trackers, gameID)
		a.mu.Unlock()
		return false, false
	}

	return a.tracker(r.GameID).Changed(caller), true
}
