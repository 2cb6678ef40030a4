package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAccruer struct {
	requests []*domain.AccrualRequest
	err      error
}

func (r *recordingAccruer) AccruePenalties(ctx context.Context, request *domain.AccrualRequest) (*domain.AccrualResult, error) {
	r.requests = append(r.requests, request)
	if r.err != nil {
		return nil, r.err
	}
	return &domain.AccrualResult{TotalPenalty: decimal.Zero}, nil
}

func schedulerConfig(cronExpr, tz string) *config.Config {
	return &config.Config{Scheduler: config.SchedulerConfig{PenaltyCron: cronExpr, Timezone: tz}}
}

func TestRunPenaltyAccrual_UsesSchedulerTimezone(t *testing.T) {
	accruer := &recordingAccruer{}
	s, err := New(schedulerConfig("0 0 0 * * *", "Asia/Jakarta"), accruer)
	require.NoError(t, err)

	// 20:00 UTC on the 9th is already the 10th in Jakarta
	s.Clock = func() time.Time { return time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC) }

	_, err = s.RunPenaltyAccrual(context.Background())
	require.NoError(t, err)
	require.Len(t, accruer.requests, 1)
	assert.Equal(t, "2024-03-10", accruer.requests[0].AsOf)
}

func TestRunPenaltyAccrual_PropagatesError(t *testing.T) {
	accruer := &recordingAccruer{err: errors.New("database unavailable")}
	s, err := New(schedulerConfig("0 0 0 * * *", "UTC"), accruer)
	require.NoError(t, err)

	_, err = s.RunPenaltyAccrual(context.Background())
	assert.EqualError(t, err, "database unavailable")
}

func TestNew_InvalidCron(t *testing.T) {
	_, err := New(schedulerConfig("every night", "UTC"), &recordingAccruer{})
	assert.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := New(schedulerConfig("0 0 0 1 1 *", "UTC"), &recordingAccruer{})
	require.NoError(t, err)

	s.Start()
	s.Stop()
}
