package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/victornm/livequiz/internal/api"
	"github.com/victornm/livequiz/internal/auth"
	"github.com/victornm/livequiz/internal/catalog"
	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/event"
	"github.com/victornm/livequiz/internal/game"
	"github.com/victornm/livequiz/internal/history"
	"github.com/victornm/livequiz/internal/leaderboard"
	"github.com/victornm/livequiz/internal/lobby"
	"github.com/victornm/livequiz/internal/result"
	"github.com/victornm/livequiz/internal/telemetry"
)

type RedisConfig struct {
	Addrs  []string
	Pass   string
	Prefix string
}

type PostgresConfig struct {
	Addr string
	User string
	Pass string
	Name string
}

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	// PublicURL is the externally reachable base URL, used in lobby QR codes.
	PublicURL string

	Auth struct {
		Secret   string
		Issuer   string
		TokenTTL time.Duration
	}

	Lobby struct {
		MaxPlayers int
		CodeLength int
	}

	Game struct {
		SweepInterval time.Duration
		IdleTimeout   time.Duration
	}

	Catalog struct {
		Path         string
		TasksPerGame int
	}

	Redis struct {
		Leaderboard RedisConfig
		Pubsub      RedisConfig

		Archive struct {
			RedisConfig `mapstructure:",squash"`
			TTL         time.Duration
		}
	}

	Postgres struct {
		History struct {
			PostgresConfig `mapstructure:",squash"`
			PageSize       int
		}
	}
}

// DefaultConfig returns the values used for keys missing from the config file.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 8081
	c.PublicURL = "http://localhost:8080"
	c.Auth.Issuer = "livequiz"
	c.Auth.TokenTTL = 24 * time.Hour
	c.Lobby.MaxPlayers = 20
	c.Lobby.CodeLength = 8
	c.Game.SweepInterval = 30 * time.Second
	c.Game.IdleTimeout = 10 * time.Minute
	c.Catalog.TasksPerGame = 5
	c.Redis.Archive.TTL = time.Hour
	c.Postgres.History.PageSize = 10
	return c
}

// Validate rejects values the server cannot run with. Zero sizes and lengths are
// allowed and fall back to the services' own defaults.
func (c Config) Validate() error {
	var errs []error

	for name, port := range map[string]int32{"http.port": c.HTTP.Port, "grpc.port": c.GRPC.Port} {
		if port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s must be between 1 and 65535: %d", name, port))
		}
	}
	if c.HTTP.Port == c.GRPC.Port {
		errs = append(errs, fmt.Errorf("http.port and grpc.port must differ: %d", c.HTTP.Port))
	}

	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("auth.secret must be set"))
	}

	for name, d := range map[string]time.Duration{
		"auth.tokenTTL":      c.Auth.TokenTTL,
		"game.sweepInterval": c.Game.SweepInterval,
		"game.idleTimeout":   c.Game.IdleTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive: %s", name, d))
		}
	}
	if c.Redis.Archive.TTL < 0 {
		errs = append(errs, fmt.Errorf("redis.archive.ttl must not be negative: %s", c.Redis.Archive.TTL))
	}

	for name, n := range map[string]int{
		"lobby.maxPlayers":          c.Lobby.MaxPlayers,
		"lobby.codeLength":          c.Lobby.CodeLength,
		"catalog.tasksPerGame":      c.Catalog.TasksPerGame,
		"postgres.history.pageSize": c.Postgres.History.PageSize,
	} {
		if n < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative: %d", name, n))
		}
	}

	return errors.Join(errs...)
}

type Server struct {
	c Config

	eb      *event.Bus
	metrics *telemetry.Metrics

	infra struct {
		redis struct {
			leaderboard redis.UniversalClient
			pubsub      redis.UniversalClient
			archive     redis.UniversalClient
		}

		postgres struct {
			history *pgxpool.Pool
		}
	}

	service struct {
		auth        *auth.Authenticator
		lobby       *lobby.Service
		game        *game.Service
		results     *result.Aggregator
		leaderboard *leaderboard.Service
		history     *history.Service
	}

	reaper *game.Reaper
	ctx    context.Context
	stop   context.CancelFunc

	http *http.Server
	grpc *grpc.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}
	s.ctx, s.stop = context.WithCancel(context.Background())

	s.eb = event.NewBus()
	s.metrics = telemetry.NewMetrics(prometheus.DefaultRegisterer)

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(c RedisConfig) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    c.Addrs,
			Password: c.Pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.leaderboard, err = connect(s.c.Redis.Leaderboard)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	s.infra.redis.archive, err = connect(s.c.Redis.Archive.RedisConfig)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() (err error) {
	connect := func(c PostgresConfig) (*pgxpool.Pool, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", c.User, c.Pass, c.Addr, c.Name))
		if err != nil {
			return nil, err
		}

		db, err := pgxpool.NewWithConfig(ctx, cc)
		if err != nil {
			return nil, err
		}

		if err := db.Ping(ctx); err != nil {
			return nil, err
		}

		return db, nil
	}

	s.infra.postgres.history, err = connect(s.c.Postgres.History.PostgresConfig)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	return nil
}

func (s *Server) initService() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	deck, err := catalog.Load(catalog.Config{
		Path:         s.c.Catalog.Path,
		TasksPerGame: s.c.Catalog.TasksPerGame,
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "server: task catalog loaded", "tasks", deck.Len())

	s.service.auth = auth.New(auth.Config{
		Secret:   s.c.Auth.Secret,
		Issuer:   s.c.Auth.Issuer,
		TokenTTL: s.c.Auth.TokenTTL,
	})

	s.service.lobby = lobby.NewService(lobby.Config{
		MaxPlayers: s.c.Lobby.MaxPlayers,
		CodeLength: s.c.Lobby.CodeLength,
		Metrics:    s.metrics,
	})
	s.metrics.WatchRandomLobbies(s.service.lobby.RandomAccessibleCount)

	// Results read live games from the game service, which reports every result
	// change back to the aggregator.
	s.service.results = result.NewAggregator(result.Config{
		Source: result.SourceFunc(func(id string) (domain.GameResults, bool) {
			return s.service.game.Results(id)
		}),
		Archive: result.NewArchive(result.ArchiveConfig{
			Redis:  s.infra.redis.archive,
			Prefix: s.c.Redis.Archive.Prefix,
			TTL:    s.c.Redis.Archive.TTL,
		}),
	})

	s.service.game = game.NewService(game.Config{
		EventBus: s.eb,
		Lobby:    s.service.lobby,
		Deck:     deck,
		Results:  s.service.results,
		Metrics:  s.metrics,
	})

	s.reaper = game.NewReaper(game.ReaperConfig{
		Games:         s.service.game,
		SweepInterval: s.c.Game.SweepInterval,
		IdleTimeout:   s.c.Game.IdleTimeout,
	})

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus: s.eb,
		Redis:    s.infra.redis.leaderboard,
		Prefix:   s.c.Redis.Leaderboard.Prefix,
	})

	s.service.history = history.NewService(history.Config{
		EventBus: s.eb,
		DB:       s.infra.postgres.history,
		PageSize: s.c.Postgres.History.PageSize,
	})

	return s.service.history.Migrate(ctx)
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	s.grpc = grpc.NewServer(
		telemetry.GRPCServerInterceptor(),
		grpc.ChainUnaryInterceptor(api.AuthInterceptor(s.service.auth)),
	)

	api.New(api.Config{
		GRPC:         s.grpc,
		HTTP:         e,
		EventBus:     s.eb,
		Auth:         s.service.auth,
		Lobby:        s.service.lobby,
		Game:         s.service.game,
		Results:      s.service.results,
		Leaderboard:  s.service.leaderboard,
		History:      s.service.history,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
		PublicURL:    s.c.PublicURL,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := s.ctx

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		s.reaper.Run(ctx)
		return nil
	})

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.stop()

	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	s.infra.postgres.history.Close()
	for _, r := range []redis.UniversalClient{s.infra.redis.leaderboard, s.infra.redis.pubsub, s.infra.redis.archive} {
		if err := r.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "error", err)
		}
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
