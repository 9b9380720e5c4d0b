// Package lobby manages pre-game rooms: membership, capacity, host privileges and
// random lobby discovery.
package lobby

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/telemetry"
)

const (
	defaultMaxPlayers = 20
	defaultCodeLength = 8
)

type Config struct {
	MaxPlayers int
	CodeLength int
	Metrics    *telemetry.Metrics
}

// Service owns the code → lobby map. The map lock is only held to find, add or
// remove lobbies; membership changes lock the target lobby alone.
type Service struct {
	maxPlayers int
	codeLength int
	metrics    *telemetry.Metrics

	mu      sync.RWMutex
	lobbies map[string]*Lobby
	random  map[string]struct{}
}

func NewService(c Config) *Service {
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = defaultMaxPlayers
	}
	if c.CodeLength <= 0 {
		c.CodeLength = defaultCodeLength
	}

	return &Service{
		maxPlayers: c.MaxPlayers,
		codeLength: c.CodeLength,
		metrics:    c.Metrics,
		lobbies:    make(map[string]*Lobby),
		random:     make(map[string]struct{}),
	}
}

func (s *Service) get(code string) (*Lobby, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lobbies[code]
	return l, ok
}

// CreateLobby opens a lobby hosted by host and returns its code.
func (s *Service) CreateLobby(ctx context.Context, host domain.Account) (string, error) {
	if host.IsZero() {
		return "", errors.Unauthenticated()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		code, err := newCode(s.codeLength)
		if err != nil {
			return "", errors.Internal(err)
		}
		if _, taken := s.lobbies[code]; taken {
			continue
		}

		s.lobbies[code] = newLobby(code, host, s.maxPlayers)
		s.metrics.LobbyOpened()
		slog.InfoContext(ctx, "lobby: created", "code", code, "host", host.ID)
		return code, nil
	}
}

// DeleteLobby removes the lobby if requester hosts it.
func (s *Service) DeleteLobby(ctx context.Context, code string, requester domain.Account) bool {
	if _, err := s.Take(ctx, code, requester); err != nil {
		return false
	}

	slog.InfoContext(ctx, "lobby: deleted", "code", code)
	return true
}

// Take removes the lobby from the registry and returns its final state. Only the
// host may take a lobby, and every check must accept its state; checks run while
// the lobby is locked. A taken lobby refuses every further mutation, so two
// concurrent takes can never both succeed.
func (s *Service) Take(ctx context.Context, code string, requester domain.Account, checks ...func(Snapshot) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[code]
	if !ok {
		return Snapshot{}, errors.NotFound("lobby not found: code=%s", code)
	}
	if l.host.ID != requester.ID {
		return Snapshot{}, errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("only the host can close lobby %s", code))
	}

	snap, err := l.closeIf(checks)
	if err != nil {
		return Snapshot{}, err
	}

	delete(s.lobbies, code)
	delete(s.random, code)
	s.metrics.LobbyClosed()
	slog.DebugContext(ctx, "lobby: taken", "code", code)

	return snap, nil
}

// Join adds player to the lobby. It fails when the lobby is unknown or full, when
// player hosts it, lacks the player role or is already in it.
func (s *Service) Join(ctx context.Context, code string, player domain.Account) bool {
	l, ok := s.get(code)
	if !ok {
		return false
	}

	ok, reason := l.join(player)
	if !ok {
		s.metrics.JoinRejected(reason)
		slog.DebugContext(ctx, "lobby: join rejected", "code", code, "player", player.ID, "reason", reason)
		return false
	}

	slog.InfoContext(ctx, "lobby: joined", "code", code, "player", player.ID)
	return true
}

// Leave removes player from the lobby on their own request.
func (s *Service) Leave(ctx context.Context, code string, player domain.Account) bool {
	l, ok := s.get(code)
	if !ok || !l.leave(player.ID) {
		return false
	}

	slog.InfoContext(ctx, "lobby: left", "code", code, "player", player.ID)
	return true
}

// RemovePlayer removes the player with the given ID on the host's request.
func (s *Service) RemovePlayer(ctx context.Context, code, playerID string, requester domain.Account) bool {
	l, ok := s.get(code)
	if !ok || l.host.ID != requester.ID || !l.leave(playerID) {
		return false
	}

	slog.InfoContext(ctx, "lobby: player removed", "code", code, "player", playerID)
	return true
}

// Players returns everyone taking a seat in the lobby: the host first when
// they hold the player role, then the joined players in join order.
func (s *Service) Players(code string) ([]domain.Account, bool) {
	l, ok := s.get(code)
	if !ok {
		return nil, false
	}

	return l.read().Participants(), true
}

// SetMaxPlayers changes the capacity. It cannot drop below the seats already taken.
func (s *Service) SetMaxPlayers(ctx context.Context, code string, n int, requester domain.Account) bool {
	l, ok := s.get(code)
	if !ok || l.host.ID != requester.ID || !l.setMaxPlayers(n) {
		return false
	}

	slog.InfoContext(ctx, "lobby: max players changed", "code", code, "max_players", n)
	return true
}

// SetRandomAccess opens the lobby to, or hides it from, random lobby discovery.
func (s *Service) SetRandomAccess(ctx context.Context, code string, allow bool, requester domain.Account) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lobbies[code]
	if !ok || l.host.ID != requester.ID {
		return false
	}

	if allow {
		s.random[code] = struct{}{}
	} else {
		delete(s.random, code)
	}

	slog.InfoContext(ctx, "lobby: random access changed", "code", code, "allow", allow)
	return true
}

// RandomLobby picks a lobby open to random players that still has room. Candidates
// are scanned in a uniformly random order.
func (s *Service) RandomLobby() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes := make([]string, 0, len(s.random))
	for code := range s.random {
		codes = append(codes, code)
	}
	rand.Shuffle(len(codes), func(i, j int) { codes[i], codes[j] = codes[j], codes[i] })

	for _, code := range codes {
		if l, ok := s.lobbies[code]; ok && !l.full() {
			return code, true
		}
	}

	return "", false
}

// HasAnythingChanged reports whether the lobby changed since accountID last asked.
// It is always true for an unknown lobby so that pollers refetch and see it gone.
func (s *Service) HasAnythingChanged(code, accountID string) bool {
	l, ok := s.get(code)
	if !ok {
		return true
	}

	return l.changes.Changed(accountID)
}

func (s *Service) Exists(code string) bool {
	_, ok := s.get(code)
	return ok
}

func (s *Service) Host(code string) (domain.Account, bool) {
	l, ok := s.get(code)
	if !ok {
		return domain.Account{}, false
	}

	return l.host, true
}

func (s *Service) IsHost(code, accountID string) bool {
	l, ok := s.get(code)
	return ok && l.host.ID == accountID
}

func (s *Service) AllowsRandom(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.random[code]
	return ok
}

func (s *Service) MaxPlayers(code string) (int, bool) {
	l, ok := s.get(code)
	if !ok {
		return 0, false
	}

	return l.read().MaxPlayers, true
}

func (s *Service) IsFull(code string) bool {
	l, ok := s.get(code)
	return ok && l.full()
}

// LobbyForPlayer returns the code of the lobby accountID hosts or has joined.
func (s *Service) LobbyForPlayer(accountID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for code, l := range s.lobbies {
		if l.host.ID == accountID || l.hasPlayer(accountID) {
			return code, true
		}
	}

	return "", false
}

func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.lobbies)
}

func (s *Service) RandomAccessibleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.random)
}
