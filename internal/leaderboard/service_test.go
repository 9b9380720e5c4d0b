package leaderboard_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/event"
	"github.com/victornm/livequiz/internal/leaderboard"
)

func finishedGame(id string, weighted map[string]float64) domain.EventGameFinished {
	r := domain.GameResults{GameID: id, State: domain.GameFinished}
	for name, w := range weighted {
		r.Entries = append(r.Entries, domain.ResultEntry{
			AccountID: name,
			Name:      name,
			Weighted:  decimal.NewFromFloat(w),
		})
	}
	return domain.EventGameFinished{Results: r}
}

func TestService_RecordGame(t *testing.T) {
	ctx := context.Background()
	s := makeService(t)

	require.NoError(t, s.RecordGame(ctx, finishedGame("g1", map[string]float64{"u1": 1.5, "u2": 3})))
	require.NoError(t, s.RecordGame(ctx, finishedGame("g2", map[string]float64{"u1": 2.5, "u3": 1})))

	top, err := s.Top(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []domain.Rating{
		{Username: "u1", Rating: 4, Rank: 1},
		{Username: "u2", Rating: 3, Rank: 2},
		{Username: "u3", Rating: 1, Rank: 3},
	}, top)

	r, err := s.Rating(ctx, "u2")
	require.NoError(t, err)
	require.Equal(t, domain.Rating{Username: "u2", Rating: 3, Rank: 2}, r)

	_, err = s.Rating(ctx, "nobody")
	require.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestService_Relative(t *testing.T) {
	ctx := context.Background()
	s := makeService(t)

	require.NoError(t, s.RecordGame(ctx, finishedGame("g1", map[string]float64{
		"a": 5, "b": 4, "c": 3, "d": 2, "e": 1,
	})))

	tests := map[string]struct {
		username string
		radius   int
		want     []string
	}{
		"middle":      {username: "c", radius: 1, want: []string{"b", "c", "d"}},
		"top clamps":  {username: "a", radius: 2, want: []string{"a", "b", "c"}},
		"bottom":      {username: "e", radius: 1, want: []string{"d", "e"}},
		"zero radius": {username: "d", radius: 0, want: []string{"d"}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := s.Relative(ctx, tt.username, tt.radius)
			require.NoError(t, err)

			names := make([]string, 0, len(got))
			for _, r := range got {
				names = append(names, r.Username)
			}
			require.Equal(t, tt.want, names)
		})
	}

	_, err := s.Relative(ctx, "nobody", 1)
	require.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestService_PublishLeaderboardUpdated(t *testing.T) {
	type (
		inputs struct {
			finished []domain.EventGameFinished
			wait     time.Duration
		}

		outputs struct {
			published []domain.EventLeaderboardUpdated
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"should publish leaderboard.updated after a game finished": {
			arrange: func() inputs {
				return inputs{
					finished: []domain.EventGameFinished{
						finishedGame("g1", map[string]float64{"u1": 1.1}),
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.published, 1)
				require.Equal(t, []string{"u1"}, out.published[0].Usernames)
				require.Equal(t, []domain.Rating{{Username: "u1", Rating: 1.1, Rank: 1}}, out.published[0].Top)
			},
		},

		"should publish once for games finished within the publish interval": {
			arrange: func() inputs {
				return inputs{
					finished: []domain.EventGameFinished{
						finishedGame("g1", map[string]float64{"u1": 1.1}),
						finishedGame("g2", map[string]float64{"u2": 2.2}),
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.published, 1)
			},
		},

		"should publish again after the publish interval": {
			arrange: func() inputs {
				return inputs{
					finished: []domain.EventGameFinished{
						finishedGame("g1", map[string]float64{"u1": 1.1}),
						finishedGame("g2", map[string]float64{"u2": 2.2}),
					},
					wait: 300 * time.Millisecond,
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.published, 2)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in, out := tt.arrange(), outputs{}

			eb := event.NewBus()

			var mu sync.Mutex
			eb.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
				mu.Lock()
				out.published = append(out.published, e.(domain.EventLeaderboardUpdated))
				mu.Unlock()
				return nil
			})

			rs := miniredis.RunT(t)
			s := makeService(t,
				withEventBus(eb),
				withMiniredis(rs),
			)

			for _, e := range in.finished {
				require.NoError(t, s.RecordGame(context.Background(), e))
				rs.FastForward(in.wait)
			}

			eb.Stop()

			tt.assert(t, out)
		})
	}
}

func TestService_SubscribesToGameFinished(t *testing.T) {
	eb := event.NewBus()
	s := makeService(t, withEventBus(eb))

	eb.Publish(context.Background(), finishedGame("g1", map[string]float64{"u1": 2}))
	eb.Stop()

	r, err := s.Rating(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 2.0, r.Rating)
}

type deps struct {
	c  leaderboard.Config
	rs *miniredis.Miniredis
}

func makeService(t *testing.T, opts ...options) *leaderboard.Service {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	d := deps{
		c: leaderboard.Config{
			EventBus: event.NewBus(),
			Prefix:   "test",
		},
	}

	for _, opt := range opts {
		opt(&d)
	}

	if d.rs == nil {
		d.rs = miniredis.RunT(t)
	}
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{d.rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")
	d.c.Redis = rc

	return leaderboard.NewService(d.c)
}

type options func(d *deps)

func withEventBus(eb *event.Bus) options {
	return func(d *deps) {
		d.c.EventBus = eb
	}
}

func withMiniredis(rs *miniredis.Miniredis) options {
	return func(d *deps) {
		d.rs = rs
	}
}
