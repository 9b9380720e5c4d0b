package result

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/livequiz/internal/domain"
)

const defaultArchiveTTL = time.Hour

type ArchiveConfig struct {
	Redis  redis.UniversalClient
	Prefix string
	TTL    time.Duration
}

// Archive keeps the final results of ended games in Redis for a limited time.
type Archive struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewArchive(c ArchiveConfig) *Archive {
	if c.TTL <= 0 {
		c.TTL = defaultArchiveTTL
	}

	return &Archive{
		redis:  c.Redis,
		prefix: c.Prefix,
		ttl:    c.TTL,
	}
}

func (a *Archive) TTL() time.Duration {
	return a.ttl
}

func (a *Archive) Store(ctx context.Context, r domain.GameResults) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("archive: marshal %s: %w", r.GameID, err)
	}

	if err := a.redis.Set(ctx, a.key(r.GameID), b, a.ttl).Err(); err != nil {
		return fmt.Errorf("archive: store %s: %w", r.GameID, err)
	}

	return nil
}

// Load returns the archived results of gameID; ok is false when there are none.
func (a *Archive) Load(ctx context.Context, gameID string) (r domain.GameResults, ok bool, err error) {
	b, err := a.redis.Get(ctx, a.key(gameID)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return domain.GameResults{}, false, nil
	}
	if err != nil {
		return domain.GameResults{}, false, fmt.Errorf("archive: load %s: %w", gameID, err)
	}

	if err := json.Unmarshal(b, &r); err != nil {
		return domain.GameResults{}, false, fmt.Errorf("archive: unmarshal %s: %w", gameID, err)
	}

	return r, true, nil
}

func (a *Archive) key(gameID string) string {
	return fmt.Sprintf("%s:results:%s", a.prefix, gameID)
}
