package repository

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/model"
)

func TestHistoryHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "historico_previsoes.csv")
	repo := NewPredictionHistoryRepository(path, zap.NewNop())

	rows := []model.PredictionHistoryRow{
		{Date: "2024-03-01 10:00:00", LastPrice: "$100.00", Prediction: "$101.50", ChangePercent: "1.50%"},
		{Date: "2024-03-02 10:00:00", LastPrice: "$101.00", Prediction: "$100.00", ChangePercent: "-0.99%"},
	}
	for _, row := range rows {
		require.NoError(t, repo.Append(row))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Data,Último Preço,Previsão,Variação (%)", lines[0])
	assert.Equal(t, "2024-03-01 10:00:00,$100.00,$101.50,1.50%", lines[1])

	got, err := repo.List()
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestHistoryMissingFileIsEmpty(t *testing.T) {
	repo := NewPredictionHistoryRepository(filepath.Join(t.TempDir(), "none.csv"), zap.NewNop())

	rows, err := repo.List()
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
}

func TestHistoryAppendsToExistingFileWithoutHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "historico_previsoes.csv")
	require.NoError(t, os.WriteFile(path, []byte("Data,Último Preço,Previsão,Variação (%)\n"), 0o644))

	repo := NewPredictionHistoryRepository(path, zap.NewNop())
	require.NoError(t, repo.Append(model.PredictionHistoryRow{Date: "d", LastPrice: "$1.00", Prediction: "$2.00", ChangePercent: "100.00%"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "Data,"))
}
