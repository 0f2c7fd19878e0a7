package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/client"
	"github.com/yourorg/stock-forecast/internal/config"
	"github.com/yourorg/stock-forecast/internal/lstm"
	"github.com/yourorg/stock-forecast/internal/model"
	"github.com/yourorg/stock-forecast/internal/repository"
	"github.com/yourorg/stock-forecast/internal/service"
	"github.com/yourorg/stock-forecast/internal/utils"
)

func main() {
	_ = godotenv.Load()

	configFile := flag.String("config", "config/config.yaml", "configuration file")
	ticker := flag.String("ticker", "", "ticker to evaluate (defaults to training.ticker)")
	endDate := flag.String("end", time.Now().Format(model.DateLayout), "last day of every period")
	epochs := flag.Int("epochs", 0, "epochs per period (defaults to training.epochs)")
	batchSize := flag.Int("batch-size", 0, "mini-batch size (defaults to training.batchSize)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	end, err := time.Parse(model.DateLayout, *endDate)
	if err != nil {
		logger.Fatal("Invalid end date", zap.String("end", *endDate), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	yahooClient := client.NewYahooClient(cfg.MarketData, logger)
	store := repository.NewExperimentRepository(cfg.Store.Path, logger)
	trainer := service.NewTrainerService(yahooClient, store, nil, cfg.Training, logger)
	arch := lstm.DefaultArchitecture()
	arch.Window = cfg.Prediction.Window
	trainer.SetArchitecture(arch)

	comparison := service.NewPeriodComparisonService(trainer, logger)
	results, err := comparison.Compare(ctx, tickerOr(*ticker, cfg.Training.Ticker), service.DefaultPeriods(), end, *epochs, *batchSize)
	if err != nil {
		logger.Fatal("Period comparison failed", zap.Error(err))
	}

	if err := printResults(results); err != nil {
		logger.Fatal("Failed to print results", zap.Error(err))
	}
}

func printResults(results []model.PeriodComparison) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Período\tInício\tPontos\tPrimeiro\tÚltimo\tMAE Treino\tRMSE Treino\tMAE Teste\tRMSE Teste")
	for _, r := range results {
		e := r.Result
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Label,
			e.Start.Format(model.DateLayout),
			e.DataPoints,
			utils.FormatMoney(e.FirstPrice),
			utils.FormatMoney(e.LastPrice),
			utils.FormatMoney(e.Metrics.TrainMAE),
			utils.FormatMoney(e.Metrics.TrainRMSE),
			utils.FormatMoney(e.Metrics.TestMAE),
			utils.FormatMoney(e.Metrics.TestRMSE))
	}
	if best, ok := service.Best(results); ok {
		fmt.Fprintf(w, "\nMelhor período (MAE de teste): %s\n", best.Label)
	}
	return w.Flush()
}

func tickerOr(ticker, fallback string) string {
	if ticker == "" {
		return fallback
	}
	return ticker
}

func createLogger(level string) (*zap.Logger, error) {
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}
