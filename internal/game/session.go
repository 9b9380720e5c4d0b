package game

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/task"
)

// progress is one participant's position in the task sequence. len(scores) always
// equals cursor.
type progress struct {
	cursor          int
	scores          []float64
	lastInteraction time.Time
}

// Session is a running game. Participants and tasks are fixed at start; progress
// is mutated under mu only.
type Session struct {
	id           string
	code         string
	host         domain.Account
	tasks        []task.Task
	participants []domain.Account

	mu       sync.Mutex
	progress map[string]*progress
	state    domain.GameState
	endTime  time.Time
}

func newSession(id, code string, host domain.Account, participants []domain.Account, tasks []task.Task, now time.Time) *Session {
	s := &Session{
		id:           id,
		code:         code,
		host:         host,
		tasks:        tasks,
		participants: participants,
		progress:     make(map[string]*progress, len(participants)),
	}

	for _, p := range participants {
		s.progress[p.ID] = &progress{lastInteraction: now}
	}

	return s
}

func (s *Session) notParticipant(id string) error {
	return errors.New(errors.CodePermissionDenied,
		errors.WithMessagef("account %s does not play game %s", id, s.id))
}

// current returns the participant's task and its index, or ok=false once the
// participant has answered every task.
func (s *Session) current(accountID string) (t task.Task, number int, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.progress[accountID]
	if !found {
		return nil, 0, false, s.notParticipant(accountID)
	}
	if p.cursor >= len(s.tasks) {
		return nil, p.cursor, false, nil
	}

	return s.tasks[p.cursor], p.cursor, true, nil
}

// submit grades answer against the participant's current task and advances the
// cursor. finished reports whether this submission completed the whole game.
func (s *Session) submit(accountID string, answer task.Answer, now time.Time) (score float64, finished bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.GameActive {
		return 0, false, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("game %s is %s", s.id, s.state))
	}

	p, found := s.progress[accountID]
	if !found {
		return 0, false, s.notParticipant(accountID)
	}
	if p.cursor >= len(s.tasks) {
		return 0, false, errors.New(errors.CodeOutOfRange,
			errors.WithMessagef("account %s answered all %d tasks", accountID, len(s.tasks)))
	}

	score, err = task.Score(s.tasks[p.cursor], answer)
	if err != nil {
		return 0, false, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("task %d: %v", p.cursor, err),
			errors.WithCause(err))
	}

	p.scores = append(p.scores, score)
	p.cursor++
	p.lastInteraction = now

	if s.allDone() {
		s.state = domain.GameFinished
		s.endTime = now
		finished = true
	}

	return score, finished, nil
}

// allDone reports whether every participant passed the last task. Caller holds mu.
func (s *Session) allDone() bool {
	for _, p := range s.progress {
		if p.cursor < len(s.tasks) {
			return false
		}
	}
	return true
}

func (s *Session) finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state == domain.GameFinished
}

func (s *Session) noteInteraction(accountID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.progress[accountID]
	if !found {
		return s.notParticipant(accountID)
	}

	p.lastInteraction = now
	return nil
}

// abandonIfIdle moves an active session with no interaction since cutoff to
// Abandoned.
func (s *Session) abandonIfIdle(cutoff, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.GameActive {
		return false
	}

	for _, p := range s.progress {
		if !p.lastInteraction.Before(cutoff) {
			return false
		}
	}

	s.state = domain.GameAbandoned
	s.endTime = now
	return true
}

// results builds a snapshot of every participant's totals in participant order.
func (s *Session) results() domain.GameResults {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := domain.GameResults{
		GameID:   s.id,
		Code:     s.code,
		State:    s.state,
		Entries:  make([]domain.ResultEntry, 0, len(s.participants)),
		Personal: make(map[string][]domain.TaskResult, len(s.participants)),
		EndTime:  s.endTime,
	}

	for _, a := range s.participants {
		p := s.progress[a.ID]
		e := domain.ResultEntry{
			AccountID: a.ID,
			Name:      a.Name,
			Answered:  len(p.scores),
		}

		personal := make([]domain.TaskResult, 0, len(p.scores))
		for i, sc := range p.scores {
			info := s.tasks[i].Info()
			d := decimal.NewFromFloat(sc)
			e.Score = e.Score.Add(d)
			e.Weighted = e.Weighted.Add(d.Mul(decimal.NewFromFloat(info.Difficulty)))

			personal = append(personal, domain.TaskResult{
				TaskNumber: i,
				Kind:       string(s.tasks[i].Kind()),
				Difficulty: info.Difficulty,
				Score:      sc,
			})
		}

		r.Entries = append(r.Entries, e)
		r.Personal[a.ID] = personal
	}

	return r
}

// View is what a participant sees of their current task.
type View struct {
	Number      int
	Count       int
	Kind        task.Kind
	Instruction string
	Difficulty  float64
	Task        any
	// Finished is set once the participant answered every task; the other fields are
	// then zero except Count.
	Finished bool
}

func (s *Session) view(accountID string, shuffle task.Shuffler) (View, error) {
	t, n, ok, err := s.current(accountID)
	if err != nil {
		return View{}, err
	}
	if !ok {
		return View{Number: n, Count: len(s.tasks), Finished: true}, nil
	}

	info := t.Info()
	return View{
		Number:      n,
		Count:       len(s.tasks),
		Kind:        t.Kind(),
		Instruction: info.Instruction,
		Difficulty:  info.Difficulty,
		Task:        task.View(t, shuffle),
	}, nil
}

func (s *Session) participantIDs() []string {
	ids := make([]string, 0, len(s.participants))
	for _, p := range s.participants {
		ids = append(ids, p.ID)
	}
	return ids
}
