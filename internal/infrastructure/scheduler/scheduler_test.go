package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portfolio_tracker/internal/domain/entity"
)

type countingPortfolio struct {
	forced atomic.Int32
	err    error
}

func (c *countingPortfolio) GetPortfolio(ctx context.Context, forceRefresh bool) (entity.PortfolioResult, error) {
	if forceRefresh {
		c.forced.Add(1)
	}
	return entity.PortfolioResult{}, c.err
}

func (c *countingPortfolio) GetAllTransactions(ctx context.Context, currency string) (json.RawMessage, error) {
	return nil, nil
}

func TestRefreshJob_ForcesRefresh(t *testing.T) {
	ps := &countingPortfolio{}
	job := NewRefreshJob(ps)
	assert.Equal(t, "portfolio_refresh", job.Name())

	s := New(zap.NewNop())
	require.NoError(t, s.RunNow(job))
	assert.EqualValues(t, 1, ps.forced.Load())

	ps.err = errors.New("upstream down")
	assert.Error(t, s.RunNow(job))
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	ps := &countingPortfolio{}
	s := New(zap.NewNop())
	require.NoError(t, s.AddJob("@every 1s", NewRefreshJob(ps)))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return ps.forced.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := New(zap.NewNop())
	assert.Error(t, s.AddJob("every now and then", NewRefreshJob(&countingPortfolio{})))
}
