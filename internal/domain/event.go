package domain

const (
	EventNameGameStarted        = "game.started"
	EventNameGameFinished       = "game.finished"
	EventNameGameAbandoned      = "game.abandoned"
	EventNameLeaderboardUpdated = "leaderboard.updated"
)

type EventGameStarted struct {
	GameID       string
	Code         string
	Host         Account
	Participants []Account
}

func (EventGameStarted) Name() string { return EventNameGameStarted }

type EventGameFinished struct {
	Results GameResults
}

func (EventGameFinished) Name() string { return EventNameGameFinished }

type EventGameAbandoned struct {
	Results GameResults
}

func (EventGameAbandoned) Name() string { return EventNameGameAbandoned }

type EventLeaderboardUpdated struct {
	Usernames []string
	Top       []Rating
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }
