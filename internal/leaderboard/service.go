// Package leaderboard keeps every player's rating in a Redis sorted set. A finished
// game adds each participant's difficulty-weighted score to their rating.
package leaderboard

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/event"
)

const (
	publishInterval = 200 * time.Millisecond
	publishTopSize  = 10
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	event.Handle(s.eb, s.RecordGame)

	return s
}

// RecordGame adds the weighted score of every participant of a finished game to
// their rating.
func (s *Service) RecordGame(ctx context.Context, e domain.EventGameFinished) error {
	entries := e.Results.Entries
	if len(entries) == 0 {
		return nil
	}

	usernames := make([]string, 0, len(entries))
	_, err := s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, entry := range entries {
			p.ZIncrBy(ctx, s.ratingKey(), entry.Weighted.InexactFloat64(), entry.Name)
			usernames = append(usernames, entry.Name)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record game %s: %w", e.Results.GameID, err)
	}

	return s.schedulePublish(ctx, usernames)
}

// schedulePublish publishes the leaderboard at most once per publishInterval. Games
// tend to finish in bursts, and every publish fans out to all affected players.
func (s *Service) schedulePublish(ctx context.Context, usernames []string) error {
	ok, err := s.redis.SetNX(ctx, s.publishTimeKey(), time.Now().UnixMilli(), publishInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		return nil
	}

	top, err := s.Top(ctx, publishTopSize)
	if err != nil {
		return fmt.Errorf("publish leaderboard: %w", err)
	}

	s.eb.Publish(ctx, domain.EventLeaderboardUpdated{
		Usernames: usernames,
		Top:       top,
	})

	return nil
}

// Rating returns the rating and 1-based rank of username.
func (s *Service) Rating(ctx context.Context, username string) (domain.Rating, error) {
	var (
		score *redis.FloatCmd
		rank  *redis.IntCmd
	)
	_, err := s.redis.Pipelined(ctx, func(p redis.Pipeliner) error {
		score = p.ZScore(ctx, s.ratingKey(), username)
		rank = p.ZRevRank(ctx, s.ratingKey(), username)
		return nil
	})
	if stderrors.Is(err, redis.Nil) {
		return domain.Rating{}, errors.NotFound("no rating: username=%s", username)
	}
	if err != nil {
		return domain.Rating{}, fmt.Errorf("get rating: %w", err)
	}

	return domain.Rating{
		Username: username,
		Rating:   score.Val(),
		Rank:     rank.Val() + 1,
	}, nil
}

// Top returns the n best rated players.
func (s *Service) Top(ctx context.Context, n int) ([]domain.Rating, error) {
	if n <= 0 {
		return nil, nil
	}

	return s.rangeByRank(ctx, 0, int64(n)-1)
}

// Relative returns the players ranked within radius places of username.
func (s *Service) Relative(ctx context.Context, username string, radius int) ([]domain.Rating, error) {
	rank, err := s.redis.ZRevRank(ctx, s.ratingKey(), username).Result()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.NotFound("no rating: username=%s", username)
	}
	if err != nil {
		return nil, fmt.Errorf("get rank: %w", err)
	}

	return s.rangeByRank(ctx, max(0, rank-int64(radius)), rank+int64(radius))
}

func (s *Service) rangeByRank(ctx context.Context, start, stop int64) ([]domain.Rating, error) {
	res, err := s.redis.ZRevRangeWithScores(ctx, s.ratingKey(), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	out := make([]domain.Rating, 0, len(res))
	for i, z := range res {
		out = append(out, domain.Rating{
			Username: z.Member.(string),
			Rating:   z.Score,
			Rank:     start + int64(i) + 1,
		})
	}

	return out, nil
}

func (s *Service) ratingKey() string {
	return fmt.Sprintf("%s:rating", s.prefix)
}

func (s *Service) publishTimeKey() string {
	return fmt.Sprintf("%s:rating:time", s.prefix)
}
