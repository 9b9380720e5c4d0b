// Package history persists finished games in Postgres and pages through them.
package history

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/event"
)

const defaultPageSize = 10

//go:embed schema.sql
var schema string

type Config struct {
	EventBus *event.Bus
	DB       *pgxpool.Pool
	PageSize int
}

type Service struct {
	db       *pgxpool.Pool
	pageSize int
}

func NewService(c Config) *Service {
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}

	s := &Service{
		db:       c.DB,
		pageSize: c.PageSize,
	}

	event.Handle(c.EventBus, func(ctx context.Context, e domain.EventGameFinished) error {
		return s.Save(ctx, e.Results)
	})

	return s
}

// Migrate creates the history table when missing.
func (s *Service) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// Save stores one row per participant of a finished game.
func (s *Service) Save(ctx context.Context, r domain.GameResults) error {
	const stmt = `
INSERT INTO game_results (game_id, code, end_time, position, account_id, username, answered, score, weighted)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (game_id, account_id) DO NOTHING;`

	end := r.EndTime
	if end.IsZero() {
		end = time.Now()
	}

	b := new(pgx.Batch)
	for i, e := range r.Entries {
		b.Queue(stmt, r.GameID, r.Code, end, i, e.AccountID, e.Name, e.Answered, e.Score, e.Weighted)
	}

	if err := s.db.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("history: save %s: %w", r.GameID, err)
	}

	return nil
}

// History returns the page-th page (0-based) of finished games, newest first.
func (s *Service) History(ctx context.Context, page int) ([]domain.HistoryEntry, error) {
	const stmt = `
WITH games AS (
	SELECT game_id, MAX(end_time) AS end_time
	FROM game_results
	GROUP BY game_id
	ORDER BY end_time DESC, game_id
	LIMIT $1 OFFSET $2
)
SELECT r.game_id, r.code, r.end_time, r.account_id, r.username, r.answered, r.score, r.weighted
FROM game_results r
JOIN games g USING (game_id)
ORDER BY g.end_time DESC, r.game_id, r.position;`

	if page < 0 {
		page = 0
	}

	rows, err := s.db.Query(ctx, stmt, s.pageSize, page*s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("history: query page %d: %w", page, err)
	}

	recs, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (record, error) {
		var rec record
		err := r.Scan(&rec.GameID, &rec.Code, &rec.EndTime, &rec.AccountID, &rec.Name, &rec.Answered, &rec.Score, &rec.Weighted)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("history: scan page %d: %w", page, err)
	}

	return group(recs), nil
}

type record struct {
	GameID    string
	Code      string
	EndTime   time.Time
	AccountID string
	Name      string
	Answered  int
	Score     decimal.Decimal
	Weighted  decimal.Decimal
}

// group folds consecutive rows of the same game into one entry.
func group(recs []record) []domain.HistoryEntry {
	var out []domain.HistoryEntry
	for _, r := range recs {
		if len(out) == 0 || out[len(out)-1].GameID != r.GameID {
			out = append(out, domain.HistoryEntry{
				GameID:  r.GameID,
				Code:    r.Code,
				EndTime: r.EndTime,
			})
		}

		last := &out[len(out)-1]
		last.Entries = append(last.Entries, domain.ResultEntry{
			AccountID: r.AccountID,
			Name:      r.Name,
			Answered:  r.Answered,
			Score:     r.Score,
			Weighted:  r.Weighted,
		})
	}

	return out
}
