package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/livequiz/internal/domain"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	GameStarted struct {
		GameID    string `json:"gameId"`
		LobbyCode string `json:"lobbyCode"`
	}

	GameFinished struct {
		GameID  string        `json:"gameId"`
		Results []ResultEntry `json:"results"`
	}

	LeaderboardUpdated struct {
		Top []Rating `json:"top"`
	}
)

// PublishGameStarted tells the host and every participant that the lobby turned
// into a game. A playing host is notified once.
func (a *API) PublishGameStarted(ctx context.Context, e domain.EventGameStarted) error {
	data := GameStarted{GameID: e.GameID, LobbyCode: e.Code}

	users := make([]string, 0, len(e.Participants)+1)
	if e.Host.Name != "" {
		users = append(users, e.Host.Name)
	}
	for _, p := range e.Participants {
		if p.ID != e.Host.ID {
			users = append(users, p.Name)
		}
	}

	return a.fanOut(ctx, users, e.Name(), data)
}

func (a *API) PublishGameFinished(ctx context.Context, e domain.EventGameFinished) error {
	r := e.Results
	data := GameFinished{GameID: r.GameID, Results: resultEntries(r.Entries)}

	users := make([]string, 0, len(r.Entries))
	for _, entry := range r.Entries {
		users = append(users, entry.Name)
	}

	return a.fanOut(ctx, users, e.Name(), data)
}

func (a *API) PublishLeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	return a.fanOut(ctx, e.Usernames, e.Name(), LeaderboardUpdated{Top: ratings(e.Top)})
}

func (a *API) fanOut(ctx context.Context, users []string, event string, data any) error {
	b, err := json.Marshal(Notification{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, user := range users {
		eg.Go(func() error {
			return a.redis.Publish(ctx, a.userChannel(user), b).Err()
		})
	}

	return eg.Wait()
}

func (a *API) userChannel(user string) string {
	return fmt.Sprintf("%s:user:%s", a.prefix, user)
}
