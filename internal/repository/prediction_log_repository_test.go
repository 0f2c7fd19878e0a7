package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/model"
)

func newLogRepo(t *testing.T) *PredictionLogRepository {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "monitoring.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewPredictionLogRepository(db, zap.NewNop())
	require.NoError(t, err)
	return repo
}

func TestSummaryOfEmptyLog(t *testing.T) {
	repo := newLogRepo(t)

	m, err := repo.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, m.TotalPredictions)
	assert.Equal(t, 0.0, m.AvgLatency)
	assert.Nil(t, m.MSE)
	assert.Nil(t, m.RMSE)
}

func TestInsertAndSummarise(t *testing.T) {
	repo := newLogRepo(t)
	ctx := context.Background()
	now := time.Now()

	id, err := repo.Insert(ctx, &model.PredictionLog{Timestamp: now, Ticker: "AMBA", Prediction: 102, Latency: 0.2, MemoryUsage: 100, CPUUsage: 10})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, &model.PredictionLog{Timestamp: now, Ticker: "AMBA", Prediction: 50, Latency: 0.4, MemoryUsage: 300, CPUUsage: 30})
	require.NoError(t, err)

	m, err := repo.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, m.TotalPredictions)
	assert.InDelta(t, 0.3, m.AvgLatency, 1e-9)
	assert.InDelta(t, 0.4, m.MaxLatency, 1e-9)
	assert.InDelta(t, 200, m.AvgMemoryUsage, 1e-9)
	assert.InDelta(t, 20, m.AvgCPUUsage, 1e-9)
	assert.Nil(t, m.MSE)

	require.NoError(t, repo.UpdateActualValue(ctx, id, 100))
	m, err = repo.Summary(ctx)
	require.NoError(t, err)
	require.NotNil(t, m.MSE)
	assert.InDelta(t, 4, *m.MSE, 1e-9)
	assert.InDelta(t, 2, *m.RMSE, 1e-9)

	logs, err := repo.List(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "AMBA", logs[0].Ticker)
	require.NotNil(t, logs[0].ActualValue)
	assert.Equal(t, 100.0, *logs[0].ActualValue)
	assert.Nil(t, logs[1].ActualValue)
}

func TestLatestPending(t *testing.T) {
	repo := newLogRepo(t)
	ctx := context.Background()
	now := time.Now()

	_, err := repo.LatestPending(ctx, "AMBA")
	assert.ErrorIs(t, err, model.ErrNoPendingPrediction)

	first, err := repo.Insert(ctx, &model.PredictionLog{Timestamp: now.Add(-time.Minute), Ticker: "AMBA", Prediction: 10})
	require.NoError(t, err)
	second, err := repo.Insert(ctx, &model.PredictionLog{Timestamp: now, Ticker: "AMBA", Prediction: 11})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, &model.PredictionLog{Timestamp: now, Ticker: "NVDA", Prediction: 500})
	require.NoError(t, err)

	id, err := repo.LatestPending(ctx, "AMBA")
	require.NoError(t, err)
	assert.Equal(t, second, id)

	require.NoError(t, repo.UpdateActualValue(ctx, second, 11.5))
	id, err = repo.LatestPending(ctx, "AMBA")
	require.NoError(t, err)
	assert.Equal(t, first, id)
}

func TestUpdateActualValueUnknownID(t *testing.T) {
	repo := newLogRepo(t)
	assert.Error(t, repo.UpdateActualValue(context.Background(), 42, 1))
}
