package store

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpwsignals/engine/internal/domain"
)

func TestScheduleStore_RecordAndRecentExecutions(t *testing.T) {
	db := setupTestDB(t)
	s := NewSQLScheduleStore(db, zerolog.Nop())
	ctx := context.Background()

	started := time.Now().UTC()
	require.NoError(t, s.RecordExecution(ctx, domain.ScheduleExecution{
		Kind: domain.SchedulePrice, StartedAt: started, FinishedAt: started.Add(2 * time.Second), ItemsProcessed: 12,
	}))
	require.NoError(t, s.RecordExecution(ctx, domain.ScheduleExecution{
		Kind: domain.SchedulePrice, StartedAt: started.Add(time.Minute), FinishedAt: started.Add(time.Minute + time.Second),
		ItemsProcessed: 0, ErrKind: "transient", ErrMessage: "timeout",
	}))

	recent, err := s.RecentExecutions(ctx, domain.SchedulePrice, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.True(t, recent[0].Failed())
	assert.False(t, recent[1].Failed())
}
