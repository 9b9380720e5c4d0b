package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/game"
	"github.com/victornm/livequiz/internal/task"
)

type (
	TaskView struct {
		CurrentTaskNumber int       `json:"currentTaskNumber"`
		TaskCount         int       `json:"taskCount"`
		Kind              task.Kind `json:"kind"`
		Instruction       string    `json:"instruction,omitempty"`
		Difficulty        float64   `json:"difficulty"`
		Task              any       `json:"task"`
	}

	FinishedView struct {
		HasFinished     bool `json:"hasFinished"`
		HasGameFinished bool `json:"hasGameFinished"`
	}

	ResultEntry struct {
		AccountID string          `json:"accountId"`
		Username  string          `json:"username"`
		Answered  int             `json:"answered"`
		Score     decimal.Decimal `json:"score"`
		Weighted  decimal.Decimal `json:"weighted"`
	}

	TaskResult struct {
		TaskNumber int     `json:"taskNumber"`
		Kind       string  `json:"kind"`
		Difficulty float64 `json:"difficulty"`
		Score      float64 `json:"score"`
	}

	Rating struct {
		Username string  `json:"username"`
		Rating   float64 `json:"rating"`
		Rank     int64   `json:"rank"`
	}

	HistoryEntry struct {
		GameID  string        `json:"gameId"`
		Code    string        `json:"code"`
		EndTime time.Time     `json:"endTime"`
		Results []ResultEntry `json:"results"`
	}

	LobbyInfo struct {
		Code         string `json:"code"`
		Host         string `json:"host"`
		IsHost       bool   `json:"isHost"`
		MaxPlayers   int    `json:"maxPlayers"`
		IsFull       bool   `json:"isFull"`
		AllowsRandom bool   `json:"allowsRandom"`
	}

	GameStatus struct {
		Exists      bool `json:"exists"`
		HasFinished bool `json:"hasFinished,omitempty"`
		TaskCount   int  `json:"taskCount,omitempty"`
	}

	PlayerInfo struct {
		LobbyCode string `json:"lobbyCode,omitempty"`
		GameID    string `json:"gameID,omitempty"`
	}
)

func taskView(v game.View) any {
	if v.Finished {
		return FinishedView{HasFinished: true}
	}

	return TaskView{
		CurrentTaskNumber: v.Number,
		TaskCount:         v.Count,
		Kind:              v.Kind,
		Instruction:       v.Instruction,
		Difficulty:        v.Difficulty,
		Task:              v.Task,
	}
}

func resultEntries(in []domain.ResultEntry) []ResultEntry {
	out := make([]ResultEntry, 0, len(in))
	for _, e := range in {
		out = append(out, ResultEntry{
			AccountID: e.AccountID,
			Username:  e.Name,
			Answered:  e.Answered,
			Score:     e.Score,
			Weighted:  e.Weighted,
		})
	}
	return out
}

func taskResults(in []domain.TaskResult) []TaskResult {
	out := make([]TaskResult, 0, len(in))
	for _, r := range in {
		out = append(out, TaskResult(r))
	}
	return out
}

func ratings(in []domain.Rating) []Rating {
	out := make([]Rating, 0, len(in))
	for _, r := range in {
		out = append(out, Rating(r))
	}
	return out
}

func historyEntries(in []domain.HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(in))
	for _, h := range in {
		out = append(out, HistoryEntry{
			GameID:  h.GameID,
			Code:    h.Code,
			EndTime: h.EndTime,
			Results: resultEntries(h.Entries),
		})
	}
	return out
}
