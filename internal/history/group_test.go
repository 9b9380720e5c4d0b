package history

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup(t *testing.T) {
	t1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(-time.Hour)

	got := group([]record{
		{GameID: "g2", Code: "B", EndTime: t1, AccountID: "h", Name: "host", Answered: 3, Score: decimal.NewFromInt(2)},
		{GameID: "g2", Code: "B", EndTime: t1, AccountID: "p", Name: "player", Answered: 3, Score: decimal.NewFromInt(1)},
		{GameID: "g1", Code: "A", EndTime: t2, AccountID: "p", Name: "player", Answered: 2},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "g2", got[0].GameID)
	assert.Equal(t, t1, got[0].EndTime)
	require.Len(t, got[0].Entries, 2)
	assert.Equal(t, "host", got[0].Entries[0].Name)
	assert.Equal(t, "player", got[0].Entries[1].Name)

	assert.Equal(t, "g1", got[1].GameID)
	require.Len(t, got[1].Entries, 1)
	assert.Equal(t, 2, got[1].Entries[0].Answered)

	assert.Empty(t, group(nil))
}
