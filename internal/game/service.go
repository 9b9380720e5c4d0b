// Package game runs started games: every participant advances through the same
// task sequence at their own pace and the game finishes once all of them are done.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/event"
	"github.com/victornm/livequiz/internal/lobby"
	"github.com/victornm/livequiz/internal/task"
	"github.com/victornm/livequiz/internal/telemetry"
)

// Deck picks the tasks of a new game.
type Deck interface {
	Pick() []task.Task
}

// Recorder is told about result changes. Archive receives the final results of a
// finished game before it leaves the registry, and Results serves them back once
// it has left.
type Recorder interface {
	Bump(gameID string)
	Archive(ctx context.Context, r domain.GameResults) error
	Results(ctx context.Context, gameID string) (domain.GameResults, error)
}

type Config struct {
	EventBus *event.Bus
	Lobby    *lobby.Service
	Deck     Deck
	Results  Recorder
	Metrics  *telemetry.Metrics
	Now      func() time.Time
	Shuffle  task.Shuffler
}

type Service struct {
	eb      *event.Bus
	lobby   *lobby.Service
	deck    Deck
	results Recorder
	metrics *telemetry.Metrics
	now     func() time.Time
	shuffle task.Shuffler

	games *registry
}

func NewService(c Config) *Service {
	if c.Results == nil {
		c.Results = nopRecorder{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	return &Service{
		eb:      c.EventBus,
		lobby:   c.Lobby,
		deck:    c.Deck,
		results: c.Results,
		metrics: c.Metrics,
		now:     c.Now,
		shuffle: c.Shuffle,
		games:   newRegistry(),
	}
}

// StartFromLobby turns the lobby into a game. Only the host can start it, and only
// when the lobby has at least one participant.
func (s *Service) StartFromLobby(ctx context.Context, code string, requester domain.Account) (string, error) {
	if requester.IsZero() {
		return "", errors.Unauthenticated()
	}

	tasks := s.deck.Pick()
	if len(tasks) == 0 {
		return "", errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("no tasks available"))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", errors.Internal(fmt.Errorf("generate game ID: %w", err))
	}

	// The session is registered while the lobby is being closed, so every
	// participant is always found in either the lobby or the game.
	var sess *Session
	_, err = s.lobby.Take(ctx, code, requester, func(l lobby.Snapshot) error {
		if len(l.Participants()) == 0 {
			return errors.New(errors.CodeFailedPrecondition,
				errors.WithMessagef("lobby %s has no participants", code))
		}

		sess = newSession(id.String(), l.Code, l.Host, l.Participants(), tasks, s.now())
		s.games.add(sess)
		return nil
	})
	if err != nil {
		return "", err
	}

	participants := sess.participants
	s.metrics.GameStarted()

	slog.InfoContext(ctx, "game: started",
		"game_id", sess.id,
		"code", sess.code,
		"participants", len(participants),
		"tasks", len(tasks),
	)

	s.publish(ctx, domain.EventGameStarted{
		GameID:       sess.id,
		Code:         sess.code,
		Host:         sess.host,
		Participants: participants,
	})

	return sess.id, nil
}

func (s *Service) get(ref string) (*Session, error) {
	sess, ok := s.games.get(ref)
	if !ok {
		return nil, errors.NotFound("game not found: %s", ref)
	}
	return sess, nil
}

// Exists reports whether ref names an active game, by game ID or lobby code.
func (s *Service) Exists(ref string) bool {
	_, ok := s.games.get(ref)
	return ok
}

// HasFinished reports whether the game finished. Ended games are looked up by game
// ID among the recorded results; known is false when ref names neither an active
// nor a recorded game.
func (s *Service) HasFinished(ctx context.Context, ref string) (finished, known bool) {
	if sess, ok := s.games.get(ref); ok {
		return sess.finished(), true
	}

	r, err := s.results.Results(ctx, ref)
	if err != nil {
		if !errors.Is(err, errors.CodeNotFound) {
			slog.ErrorContext(ctx, "game: load ended game failed", "game_id", ref, "error", err)
		}
		return false, false
	}

	return r.State == domain.GameFinished, true
}

func (s *Service) TaskCount(ref string) (int, bool) {
	sess, ok := s.games.get(ref)
	if !ok {
		return 0, false
	}
	return len(sess.tasks), true
}

// CurrentTask returns the participant's current task view, or a finished view once
// they answered everything.
func (s *Service) CurrentTask(ctx context.Context, ref string, participant domain.Account) (View, error) {
	sess, err := s.get(ref)
	if err != nil {
		return View{}, err
	}

	v, err := sess.view(participant.ID, s.shuffle)
	if err != nil {
		return View{}, err
	}

	s.noteInteraction(ctx, sess, participant)
	return v, nil
}

// SubmitJSON decodes body as an answer to the participant's current task and
// submits it.
func (s *Service) SubmitJSON(ctx context.Context, ref string, participant domain.Account, body []byte) (float64, error) {
	sess, err := s.get(ref)
	if err != nil {
		return 0, err
	}

	t, _, ok, err := sess.current(participant.ID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.New(errors.CodeOutOfRange,
			errors.WithMessagef("account %s answered all %d tasks", participant.ID, len(sess.tasks)))
	}

	answer, err := task.DecodeAnswer(t.Kind(), body)
	if err != nil {
		s.metrics.AnswerRejected(string(t.Kind()), "invalid_type")
		return 0, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("%v", err), errors.WithCause(err))
	}

	return s.submit(ctx, sess, participant, answer)
}

// Submit grades answer against the participant's current task.
func (s *Service) Submit(ctx context.Context, ref string, participant domain.Account, answer task.Answer) (float64, error) {
	sess, err := s.get(ref)
	if err != nil {
		return 0, err
	}

	return s.submit(ctx, sess, participant, answer)
}

func (s *Service) submit(ctx context.Context, sess *Session, participant domain.Account, answer task.Answer) (float64, error) {
	kind := "unknown"
	if answer != nil {
		kind = string(answer.Kind())
	}

	score, finished, err := sess.submit(participant.ID, answer, s.now())
	if err != nil {
		s.metrics.AnswerRejected(kind, rejectReason(err))
		return 0, err
	}

	s.metrics.AnswerScored(kind, score)
	s.results.Bump(sess.id)

	slog.DebugContext(ctx, "game: answer scored",
		"game_id", sess.id,
		"participant", participant.ID,
		"kind", kind,
		"score", score,
	)

	if finished {
		s.end(ctx, sess)
	}

	return score, nil
}

func rejectReason(err error) string {
	switch errors.Convert(err).Code {
	case errors.CodeOutOfRange:
		return "out_of_range"
	case errors.CodeInvalidArgument:
		return "invalid_type"
	case errors.CodePermissionDenied:
		return "not_participant"
	default:
		return "rejected"
	}
}

// end archives the results of a finished or abandoned session, evicts it and
// announces it.
func (s *Service) end(ctx context.Context, sess *Session) {
	r := sess.results()

	if err := s.results.Archive(ctx, r); err != nil {
		slog.ErrorContext(ctx, "game: archive results failed", "game_id", sess.id, "error", err)
	}

	if !s.games.remove(sess) {
		return
	}
	s.metrics.GameEnded(r.State.String())

	slog.InfoContext(ctx, "game: ended", "game_id", sess.id, "state", r.State)

	switch r.State {
	case domain.GameFinished:
		s.publish(ctx, domain.EventGameFinished{Results: r})
	case domain.GameAbandoned:
		s.publish(ctx, domain.EventGameAbandoned{Results: r})
	}
}

// NoteInteraction records that participant is still present without changing
// their progress.
func (s *Service) NoteInteraction(ctx context.Context, ref string, participant domain.Account) error {
	sess, err := s.get(ref)
	if err != nil {
		return err
	}

	return sess.noteInteraction(participant.ID, s.now())
}

func (s *Service) noteInteraction(ctx context.Context, sess *Session, participant domain.Account) {
	if err := sess.noteInteraction(participant.ID, s.now()); err != nil {
		slog.DebugContext(ctx, "game: note interaction", "game_id", sess.id, "error", err)
	}
}

// Results returns the current results of an active game.
func (s *Service) Results(ref string) (domain.GameResults, bool) {
	sess, ok := s.games.get(ref)
	if !ok {
		return domain.GameResults{}, false
	}
	return sess.results(), true
}

type PlayerInfo struct {
	GameID    string
	LobbyCode string
}

// PlayerInfo returns the game the account takes part in or hosts.
func (s *Service) PlayerInfo(accountID string) (PlayerInfo, bool) {
	sess, ok := s.games.forAccount(accountID)
	if !ok {
		return PlayerInfo{}, false
	}
	return PlayerInfo{GameID: sess.id, LobbyCode: sess.code}, true
}

// Count returns the number of active games.
func (s *Service) Count() int {
	return s.games.count()
}

// Sweep abandons and evicts every game with no participant interaction within
// timeout. It returns the number of evicted games.
func (s *Service) Sweep(ctx context.Context, timeout time.Duration) int {
	now := s.now()
	cutoff := now.Add(-timeout)

	var n int
	for _, sess := range s.games.all() {
		if sess.abandonIfIdle(cutoff, now) {
			s.end(ctx, sess)
			n++
		}
	}

	return n
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	if s.eb != nil {
		s.eb.Publish(ctx, e)
	}
}

type nopRecorder struct{}

func (nopRecorder) Bump(string) {}

func (nopRecorder) Archive(context.Context, domain.GameResults) error { return nil }

func (nopRecorder) Results(_ context.Context, gameID string) (domain.GameResults, error) {
	return domain.GameResults{}, errors.NotFound("results not found: game=%s", gameID)
}
