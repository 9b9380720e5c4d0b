package lobby

import (
	"slices"
	"sync"

	"github.com/victornm/livequiz/internal/changes"
	"github.com/victornm/livequiz/internal/domain"
)

// Rejection reasons of a join, used as metric labels.
const (
	rejectClosed    = "closed"
	rejectHost      = "host"
	rejectNotPlayer = "not_player"
	rejectDuplicate = "duplicate"
	rejectFull      = "full"
)

// Lobby is one joinable room. Its mutations are serialized by its own lock.
type Lobby struct {
	code      string
	host      domain.Account
	hostPlays bool
	changes   *changes.Tracker

	mu         sync.Mutex
	players    []domain.Account
	maxPlayers int
	closed     bool
}

func newLobby(code string, host domain.Account, maxPlayers int) *Lobby {
	return &Lobby{
		code:       code,
		host:       host,
		hostPlays:  host.CanPlay(),
		changes:    changes.NewTracker(),
		maxPlayers: maxPlayers,
	}
}

// seats is the number of places taken, counting the host when it plays. Caller
// holds mu.
func (l *Lobby) seats() int {
	n := len(l.players)
	if l.hostPlays {
		n++
	}
	return n
}

func (l *Lobby) indexOf(id string) int {
	return slices.IndexFunc(l.players, func(a domain.Account) bool { return a.ID == id })
}

func (l *Lobby) join(p domain.Account) (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.closed:
		return false, rejectClosed
	case p.ID == l.host.ID:
		return false, rejectHost
	case !p.CanPlay():
		return false, rejectNotPlayer
	case l.indexOf(p.ID) >= 0:
		return false, rejectDuplicate
	case l.seats() >= l.maxPlayers:
		return false, rejectFull
	}

	l.players = append(l.players, p)
	l.changes.Bump()
	return true, ""
}

func (l *Lobby) leave(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if l.closed || i < 0 {
		return false
	}

	l.players = slices.Delete(l.players, i, i+1)
	l.changes.Bump()
	l.changes.Forget(id)
	return true
}

func (l *Lobby) setMaxPlayers(n int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || n < 1 || n < l.seats() {
		return false
	}

	if n != l.maxPlayers {
		l.maxPlayers = n
		l.changes.Bump()
	}
	return true
}

func (l *Lobby) hasPlayer(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.indexOf(id) >= 0
}

func (l *Lobby) full() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.seats() >= l.maxPlayers
}

// closeIf marks the lobby as consumed and returns its final state, unless a check
// rejects it. Later mutations fail.
func (l *Lobby) closeIf(checks []func(Snapshot) error) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := l.snapshot()
	for _, check := range checks {
		if err := check(snap); err != nil {
			return Snapshot{}, err
		}
	}

	l.closed = true
	return snap, nil
}

func (l *Lobby) read() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.snapshot()
}

func (l *Lobby) snapshot() Snapshot {
	return Snapshot{
		Code:       l.code,
		Host:       l.host,
		HostPlays:  l.hostPlays,
		Players:    slices.Clone(l.players),
		MaxPlayers: l.maxPlayers,
	}
}

// Snapshot is a copy of a lobby's state.
type Snapshot struct {
	Code       string
	Host       domain.Account
	HostPlays  bool
	Players    []domain.Account
	MaxPlayers int
}

// Participants returns the accounts that play a game started from the lobby: the
// host first when it plays, then the players in join order.
func (s Snapshot) Participants() []domain.Account {
	out := make([]domain.Account, 0, len(s.Players)+1)
	if s.HostPlays {
		out = append(out, s.Host)
	}
	return append(out, s.Players...)
}
