package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server     ServerConfig
	Logging    LoggingConfig
	MarketData MarketDataConfig
	Training   TrainingConfig
	Prediction PredictionConfig
	Store      StoreConfig
	Monitoring MonitoringConfig
	Kafka      KafkaConfig
	S3         S3Config
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// LoggingConfig holds logging specific configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// MarketDataConfig holds the market data source configuration
type MarketDataConfig struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     uint64
	InitialBackoff time.Duration
	Proxy          string
}

// TrainingConfig holds the defaults of a training run
type TrainingConfig struct {
	Ticker     string
	StartDate  string
	Epochs     int
	BatchSize  int
	Experiment string
	Timeout    time.Duration
	Schedule   string
	ChartPath  string
}

// PredictionConfig holds the predictor configuration
type PredictionConfig struct {
	Ticker          string
	Window          int
	LookbackPadding int
	ChartPath       string
	HistoryPath     string
}

// StoreConfig holds the experiment store configuration
type StoreConfig struct {
	Path        string
	ArchiveName string
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	SQLitePath string
	Port       string
}

// KafkaConfig holds Kafka specific configuration
type KafkaConfig struct {
	Brokers  string
	ClientID string
	Topic    string
}

// S3Config holds the optional artifact mirror configuration
type S3Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// BrokerList splits the comma separated broker string
func (k KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// LoadConfig loads the configuration from file and environment variables.
// A missing file is not an error; defaults and environment still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	// Environment variables override, e.g. TRAINING_EPOCHS=5
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values that would otherwise fail deep inside the pipeline
func (c *Config) Validate() error {
	if c.Training.Epochs < 1 {
		return fmt.Errorf("training.epochs must be positive")
	}
	if c.Training.BatchSize < 1 {
		return fmt.Errorf("training.batchSize must be positive")
	}
	if c.Prediction.Window < 2 {
		return fmt.Errorf("prediction.window must be at least 2")
	}
	if _, err := time.Parse("2006-01-02", c.Training.StartDate); err != nil {
		return fmt.Errorf("training.startDate: %w", err)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "120s")
	v.SetDefault("server.idleTimeout", "120s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Market data defaults
	v.SetDefault("marketData.baseURL", "https://query1.finance.yahoo.com")
	v.SetDefault("marketData.timeout", "30s")
	v.SetDefault("marketData.maxRetries", 3)
	v.SetDefault("marketData.initialBackoff", "500ms")
	v.SetDefault("marketData.proxy", "")

	// Training defaults
	v.SetDefault("training.ticker", "AMBA")
	v.SetDefault("training.startDate", "2019-01-01")
	v.SetDefault("training.epochs", 1)
	v.SetDefault("training.batchSize", 1)
	v.SetDefault("training.experiment", "Default")
	v.SetDefault("training.timeout", "0s")
	v.SetDefault("training.schedule", "")
	v.SetDefault("training.chartPath", "previsoes_completas.png")

	// Prediction defaults
	v.SetDefault("prediction.ticker", "AMBA")
	v.SetDefault("prediction.window", 60)
	v.SetDefault("prediction.lookbackPadding", 30)
	v.SetDefault("prediction.chartPath", "previsao_atual.png")
	v.SetDefault("prediction.historyPath", "historico_previsoes.csv")

	// Store defaults
	v.SetDefault("store.path", "mlruns")
	v.SetDefault("store.archiveName", "Modelos_Grupo_60")

	// Monitoring defaults
	v.SetDefault("monitoring.sqlitePath", "monitoring.db")
	v.SetDefault("monitoring.port", "")

	// Kafka defaults
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.clientID", "stock-forecast")
	v.SetDefault("kafka.topic", "training-events")

	// S3 defaults
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.accessKey", "")
	v.SetDefault("s3.secretKey", "")
	v.SetDefault("s3.prefix", "mlruns")
}
