// Package api exposes the engine over HTTP polling endpoints, a gRPC service for
// in-game calls and Redis pubsub notifications.
package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/victornm/livequiz/internal/auth"
	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/event"
	"github.com/victornm/livequiz/internal/game"
	"github.com/victornm/livequiz/internal/lobby"
	"github.com/victornm/livequiz/internal/result"
)

type Config struct {
	GRPC     *grpc.Server
	HTTP     gin.IRouter
	EventBus *event.Bus

	Auth        *auth.Authenticator
	Lobby       *lobby.Service
	Game        *game.Service
	Results     *result.Aggregator
	Leaderboard Leaderboard
	History     History

	Redis        Redis
	PubsubPrefix string
	// PublicURL is the base URL put in lobby QR codes.
	PublicURL string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type Leaderboard interface {
	Rating(ctx context.Context, username string) (domain.Rating, error)
	Top(ctx context.Context, n int) ([]domain.Rating, error)
	Relative(ctx context.Context, username string, radius int) ([]domain.Rating, error)
}

type History interface {
	History(ctx context.Context, page int) ([]domain.HistoryEntry, error)
}

type API struct {
	auth    *auth.Authenticator
	lobby   *lobby.Service
	game    *game.Service
	results *result.Aggregator
	lb      Leaderboard
	history History

	redis     Redis
	prefix    string
	publicURL string
}

func New(c Config) *API {
	a := &API{
		auth:      c.Auth,
		lobby:     c.Lobby,
		game:      c.Game,
		results:   c.Results,
		lb:        c.Leaderboard,
		history:   c.History,
		redis:     c.Redis,
		prefix:    c.PubsubPrefix,
		publicURL: c.PublicURL,
	}

	if c.GRPC != nil {
		RegisterLiveServiceServer(c.GRPC, a)
	}

	if c.HTTP != nil {
		a.registerRoutes(c.HTTP)
	}

	if c.EventBus != nil && c.Redis != nil {
		event.Handle(c.EventBus, a.PublishGameStarted)
		event.Handle(c.EventBus, a.PublishGameFinished)
		event.Handle(c.EventBus, a.PublishLeaderboardUpdated)
	}

	return a
}
