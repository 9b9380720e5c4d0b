package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const RolePlayer = "player"

// Account is a reference to an externally owned user account.
type Account struct {
	ID    string
	Name  string
	Roles []string
}

// CanPlay reports whether the account holds the player capability.
func (a Account) CanPlay() bool {
	return slices.Contains(a.Roles, RolePlayer)
}

func (a Account) IsZero() bool {
	return a.ID == ""
}

type GameState int

const (
	GameActive GameState = iota
	GameFinished
	GameAbandoned
)

func (s GameState) String() string {
	switch s {
	case GameActive:
		return "active"
	case GameFinished:
		return "finished"
	case GameAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// ResultEntry is one participant's aggregate within a game.
type ResultEntry struct {
	AccountID string
	Name      string
	Answered  int
	Score     decimal.Decimal
	Weighted  decimal.Decimal
}

// TaskResult is a participant's score for one answered task.
type TaskResult struct {
	TaskNumber int
	Kind       string
	Difficulty float64
	Score      float64
}

// GameResults is a snapshot of a game's results. Entries follow participant order.
type GameResults struct {
	GameID   string
	Code     string
	State    GameState
	Entries  []ResultEntry
	Personal map[string][]TaskResult
	EndTime  time.Time
}

// PersonalFor looks a participant up by account ID or, failing that, by name.
func (r GameResults) PersonalFor(idOrName string) ([]TaskResult, bool) {
	if p, ok := r.Personal[idOrName]; ok {
		return p, true
	}

	for _, e := range r.Entries {
		if e.Name == idOrName {
			p, ok := r.Personal[e.AccountID]
			return p, ok
		}
	}

	return nil, false
}

// Rating is a player's accumulated leaderboard rating.
type Rating struct {
	Username string
	Rating   float64
	Rank     int64
}

// HistoryEntry is a finished game as stored by the history collaborator.
type HistoryEntry struct {
	GameID  string
	Code    string
	EndTime time.Time
	Entries []ResultEntry
}
