package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/victornm/livequiz/internal/api"
	"github.com/victornm/livequiz/internal/auth"
	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/event"
	"github.com/victornm/livequiz/internal/game"
	"github.com/victornm/livequiz/internal/leaderboard"
	"github.com/victornm/livequiz/internal/lobby"
	"github.com/victornm/livequiz/internal/result"
	"github.com/victornm/livequiz/internal/task"
)

var (
	host    = domain.Account{ID: "h", Name: "host", Roles: []string{domain.RolePlayer}}
	player  = domain.Account{ID: "p", Name: "player", Roles: []string{domain.RolePlayer}}
	visitor = domain.Account{ID: "v", Name: "visitor"}
)

type deck []task.Task

func (d deck) Pick() []task.Task { return d }

func oneTask() deck {
	return deck{
		&task.OptionSelect{
			Meta:      task.Meta{ID: "os", Difficulty: 2},
			Content:   "pick o",
			Correct:   []string{"o"},
			Incorrect: []string{"n"},
		},
	}
}

type history struct {
	mu    sync.Mutex
	pages []int
}

func (h *history) History(_ context.Context, page int) ([]domain.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pages = append(h.pages, page)
	return []domain.HistoryEntry{{GameID: "g1", Code: "c1"}}, nil
}

type fixture struct {
	rs      *miniredis.Miniredis
	redis   redis.UniversalClient
	eb      *event.Bus
	auth    *auth.Authenticator
	lobby   *lobby.Service
	game    *game.Service
	results *result.Aggregator
	lb      *leaderboard.Service
	history *history
	router  *gin.Engine
	api     *api.API
}

type fixtureOption func(c *api.Config)

func withGRPC(s *grpc.Server) fixtureOption {
	return func(c *api.Config) {
		c.GRPC = s
	}
}

func makeFixture(t *testing.T, opts ...fixtureOption) *fixture {
	gin.SetMode(gin.TestMode)

	f := &fixture{
		rs:      miniredis.RunT(t),
		eb:      event.NewBus(),
		auth:    auth.New(auth.Config{Secret: "secret", Issuer: "test"}),
		history: &history{},
		router:  gin.New(),
	}
	t.Cleanup(f.eb.Stop)

	f.redis = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{f.rs.Addr()}})
	f.lobby = lobby.NewService(lobby.Config{})

	var g *game.Service
	f.results = result.NewAggregator(result.Config{
		Source: result.SourceFunc(func(id string) (domain.GameResults, bool) {
			return g.Results(id)
		}),
		Archive: result.NewArchive(result.ArchiveConfig{Redis: f.redis, Prefix: "test"}),
	})
	g = game.NewService(game.Config{
		EventBus: f.eb,
		Lobby:    f.lobby,
		Deck:     oneTask(),
		Results:  f.results,
	})
	f.game = g

	f.lb = leaderboard.NewService(leaderboard.Config{EventBus: f.eb, Redis: f.redis, Prefix: "test"})

	c := api.Config{
		HTTP:         f.router,
		EventBus:     f.eb,
		Auth:         f.auth,
		Lobby:        f.lobby,
		Game:         f.game,
		Results:      f.results,
		Leaderboard:  f.lb,
		History:      f.history,
		Redis:        f.redis,
		PubsubPrefix: "test",
		PublicURL:    "http://quiz.local",
	}
	for _, opt := range opts {
		opt(&c)
	}
	f.api = api.New(c)

	return f
}

func (f *fixture) token(t *testing.T, acc domain.Account) string {
	tok, err := f.auth.Issue(acc)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, acc *domain.Account, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var header string
	if acc != nil {
		header = "Bearer " + f.token(t, *acc)
	}
	return f.request(t, header, method, path, body)
}

func (f *fixture) request(t *testing.T, authorization, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r *bytes.Reader
	switch b := body.(type) {
	case nil:
		r = bytes.NewReader(nil)
	case string:
		r = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// startGame opens a lobby hosted by host, lets player join and starts the game.
func (f *fixture) startGame(t *testing.T) (code, gameID string) {
	ctx := context.Background()

	code, err := f.lobby.CreateLobby(ctx, host)
	require.NoError(t, err)
	require.True(t, f.lobby.Join(ctx, code, player))

	gameID, err = f.game.StartFromLobby(ctx, code, host)
	require.NoError(t, err)
	return code, gameID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func requireStatus(t *testing.T, want int, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, want, w.Code, w.Body.String())
}
