package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, 120*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "AMBA", cfg.Training.Ticker)
	assert.Equal(t, "2019-01-01", cfg.Training.StartDate)
	assert.Equal(t, 1, cfg.Training.Epochs)
	assert.Equal(t, 1, cfg.Training.BatchSize)
	assert.Equal(t, "Default", cfg.Training.Experiment)
	assert.Zero(t, cfg.Training.Timeout)
	assert.Equal(t, 60, cfg.Prediction.Window)
	assert.Equal(t, 30, cfg.Prediction.LookbackPadding)
	assert.Equal(t, "mlruns", cfg.Store.Path)
	assert.Equal(t, "Modelos_Grupo_60", cfg.Store.ArchiveName)
	assert.Equal(t, uint64(3), cfg.MarketData.MaxRetries)
	assert.Empty(t, cfg.Kafka.BrokerList())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
training:
  ticker: PETR4.SA
  epochs: 10
  timeout: 30m
kafka:
  brokers: "kafka-1:9092, kafka-2:9092,"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("TRAINING_EPOCHS", "25")
	t.Setenv("SERVER_PORT", "8080")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "PETR4.SA", cfg.Training.Ticker)
	assert.Equal(t, 25, cfg.Training.Epochs)
	assert.Equal(t, 30*time.Minute, cfg.Training.Timeout)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.BrokerList())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"epochs":     "training:\n  epochs: 0\n",
		"batch size": "training:\n  batchSize: -1\n",
		"window":     "prediction:\n  window: 1\n",
		"start date": "training:\n  startDate: 01/01/2019\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("training: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
