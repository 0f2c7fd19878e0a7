package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/client"
	"github.com/yourorg/stock-forecast/internal/config"
	"github.com/yourorg/stock-forecast/internal/events"
	"github.com/yourorg/stock-forecast/internal/handler"
	"github.com/yourorg/stock-forecast/internal/lstm"
	"github.com/yourorg/stock-forecast/internal/middleware"
	"github.com/yourorg/stock-forecast/internal/model"
	"github.com/yourorg/stock-forecast/internal/repository"
	"github.com/yourorg/stock-forecast/internal/scheduler"
	"github.com/yourorg/stock-forecast/internal/service"
	"github.com/yourorg/stock-forecast/internal/storage"
	"github.com/yourorg/stock-forecast/internal/validator"
)

// resourceSampleInterval is how often the memory and CPU gauges are refreshed
const resourceSampleInterval = 15 * time.Second

func main() {
	// A missing .env is fine; the environment and config file still apply
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := validator.RegisterBindings(); err != nil {
		logger.Fatal("Failed to register validators", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Store.Path, 0o755); err != nil {
		logger.Fatal("Failed to create experiment store", zap.String("path", cfg.Store.Path), zap.Error(err))
	}

	// Open monitoring database
	db, err := repository.OpenSQLite(cfg.Monitoring.SQLitePath)
	if err != nil {
		logger.Fatal("Failed to open monitoring database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	store := repository.NewExperimentRepository(cfg.Store.Path, logger)
	historyRepo := repository.NewPredictionHistoryRepository(cfg.Prediction.HistoryPath, logger)
	logRepo, err := repository.NewPredictionLogRepository(db, logger)
	if err != nil {
		logger.Fatal("Failed to prepare prediction log", zap.Error(err))
	}

	// Initialize clients and outbound integrations
	yahooClient := client.NewYahooClient(cfg.MarketData, logger)
	publisher := events.NewPublisher(cfg.Kafka, logger)
	defer publisher.Close()
	mirror, err := storage.NewArtifactMirror(cfg.S3, logger)
	if err != nil {
		logger.Fatal("Failed to create artifact mirror", zap.Error(err))
	}

	// Initialize services
	arch := lstm.DefaultArchitecture()
	arch.Window = cfg.Prediction.Window
	trainerService := service.NewTrainerService(yahooClient, store, mirror, cfg.Training, logger)
	trainerService.SetArchitecture(arch)

	monitorService := service.NewMonitorService(logRepo, logger)
	registryService := service.NewRegistryService(store, logger)
	predictionService := service.NewPredictionService(
		yahooClient,
		registryService,
		store,
		historyRepo,
		monitorService,
		cfg.Prediction,
		logger,
	)
	orchestrator := service.NewTrainingOrchestrator(trainerService, publisher, cfg.Training.Timeout, logger)
	stockInfoService := service.NewStockInfoService(yahooClient, cfg.Prediction.Ticker, logger)
	archiveService := service.NewArchiveService(cfg.Store.Path, cfg.Store.ArchiveName, ".", logger)

	// Initialize handlers
	predictionHandler := handler.NewPredictionHandler(predictionService, logger)
	stockHandler := handler.NewStockHandler(stockInfoService, logger)
	trainingHandler := handler.NewTrainingHandler(orchestrator, cfg.Training.ChartPath, logger)
	archiveHandler := handler.NewArchiveHandler(archiveService, logger)
	monitoringHandler := handler.NewMonitoringHandler(monitorService, logger)

	// Background jobs
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go monitorService.Run(ctx, resourceSampleInterval)

	var sched *scheduler.Scheduler
	if cfg.Training.Schedule != "" {
		sched = scheduler.NewScheduler(orchestrator, logger)
		if err := sched.RegisterRetraining(cfg.Training.Schedule); err != nil {
			logger.Fatal("Failed to schedule retraining", zap.Error(err))
		}
		sched.Start()
	}

	// Set up HTTP server with Gin
	router := setupRouter(
		predictionHandler,
		stockHandler,
		trainingHandler,
		archiveHandler,
		monitoringHandler,
		logger,
		cfg,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	var metricsSrv *http.Server
	if cfg.Monitoring.Port != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:              ":" + cfg.Monitoring.Port,
			Handler:           mux,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
		}
		go func() {
			logger.Info("Starting metrics server", zap.String("port", cfg.Monitoring.Port))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("Failed to start metrics server", zap.Error(err))
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a deadline for server shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Warn("Scheduler did not stop in time", zap.Error(err))
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server forced to shutdown", zap.Error(err))
		}
	}

	if err := orchestrator.Cancel(); err == nil {
		logger.Info("Waiting for the running training to stop")
	} else if !errors.Is(err, model.ErrNoTrainingRunning) {
		logger.Warn("Failed to cancel training", zap.Error(err))
	}
	orchestrator.Wait()
	stop()

	logger.Info("Server exited properly")
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config/config.yaml"
}

func createLogger(level, format string) (*zap.Logger, error) {
	// Parse log level
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	encoding := "json"
	if format == "console" {
		encoding = "console"
	}

	// Create logger config
	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

func setupRouter(
	predictionHandler *handler.PredictionHandler,
	stockHandler *handler.StockHandler,
	trainingHandler *handler.TrainingHandler,
	archiveHandler *handler.ArchiveHandler,
	monitoringHandler *handler.MonitoringHandler,
	logger *zap.Logger,
	cfg *config.Config,
) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	if cfg.Monitoring.Port == "" {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Prediction routes
	prediction := router.Group("/fazer_previsao")
	{
		prediction.POST("", predictionHandler.Predict)
		prediction.GET("/historico", predictionHandler.History)
	}

	router.POST("/obter_info_acao", stockHandler.GetInfo)

	// Training routes
	training := router.Group("/treinamentomodelo")
	{
		training.POST("/treinar", trainingHandler.Train)
		training.GET("/status", trainingHandler.Status)
		training.POST("/cancelar", trainingHandler.Cancel)
		training.GET("/saude", trainingHandler.Health)
	}

	// Experiment store archive
	router.GET("/zipar-pasta", archiveHandler.ZipStore)
	router.GET("/download/:file_name", archiveHandler.Download)

	// Monitoring routes
	monitoring := router.Group("/monitoramento")
	{
		monitoring.GET("/metricas", monitoringHandler.Performance)
		monitoring.GET("/recursos", monitoringHandler.Resources)
		monitoring.POST("/valor_real", monitoringHandler.RecordActual)
	}

	return router
}
