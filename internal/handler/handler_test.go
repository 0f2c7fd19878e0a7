package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/client"
	"github.com/yourorg/stock-forecast/internal/model"
	"github.com/yourorg/stock-forecast/internal/service"
	"github.com/yourorg/stock-forecast/internal/validator"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := validator.RegisterBindings(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakePredictor struct {
	result  *model.PredictionResult
	err     error
	history []model.PredictionHistoryRow
	got     model.PredictRequest
}

func (f *fakePredictor) Predict(_ context.Context, req model.PredictRequest) (*model.PredictionResult, error) {
	f.got = req
	return f.result, f.err
}

func (f *fakePredictor) History() ([]model.PredictionHistoryRow, error) {
	return f.history, nil
}

type fakeTrainer struct {
	start     time.Time
	startErr  error
	status    model.TrainingStatus
	cancelErr error
	got       model.TrainRequest
}

func (f *fakeTrainer) Start(req model.TrainRequest) (time.Time, error) {
	f.got = req
	return f.start, f.startErr
}

func (f *fakeTrainer) Status() model.TrainingStatus { return f.status }
func (f *fakeTrainer) Cancel() error                { return f.cancelErr }

type fakeStockInfo struct {
	info *model.StockInfo
	png  []byte
	err  error
}

func (f *fakeStockInfo) GetInfo(context.Context, string) (*model.StockInfo, []byte, error) {
	return f.info, f.png, f.err
}

type fakeMonitor struct {
	recorded map[string]float64
}

func (fakeMonitor) PerformanceMetrics(context.Context) (*model.PerformanceMetrics, error) {
	return &model.PerformanceMetrics{TotalPredictions: 3, AvgLatency: 0.2}, nil
}

func (fakeMonitor) ResourceUsage() model.ResourceUsage {
	return model.ResourceUsage{MemoryUsage: 1024, Goroutines: 5, CPUCores: 2}
}

func (f fakeMonitor) RecordActual(_ context.Context, ticker string, actual float64) (int64, error) {
	if f.recorded == nil {
		return 0, model.ErrNoPendingPrediction
	}
	f.recorded[ticker] = actual
	return 7, nil
}

func postForm(router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.ErrNoData, http.StatusBadRequest},
		{model.ErrNoModelFound, http.StatusBadRequest},
		{&model.InsufficientDataError{Need: 60, Got: 3}, http.StatusBadRequest},
		{&model.TrainingInProgressError{}, http.StatusBadRequest},
		{model.ErrNoTrainingRunning, http.StatusConflict},
		{model.ErrNoPendingPrediction, http.StatusNotFound},
		{&client.StatusError{StatusCode: 400}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestPredict(t *testing.T) {
	predictor := &fakePredictor{result: &model.PredictionResult{
		Prediction:    31.456,
		LastPrice:     30,
		ChangePercent: 4.853,
		Chart:         []byte("png"),
	}}
	router := gin.New()
	router.POST("/fazer_previsao", NewPredictionHandler(predictor, zap.NewNop()).Predict)

	w := postForm(router, "/fazer_previsao", url.Values{"ticker": {"AMBA"}, "salvar_historico": {"true"}})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "$31.46", body["prediction"])
	assert.Equal(t, "$30.00", body["ultimo_preco"])
	assert.Equal(t, "4.85%", body["variacao"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png")), body["graph"])
	assert.Equal(t, model.PredictRequest{Ticker: "AMBA", SaveHistory: true}, predictor.got)
}

func TestPredictErrors(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		err  error
		want int
	}{
		{"invalid ticker", url.Values{"ticker": {"AM BA"}}, nil, http.StatusBadRequest},
		{"no model", nil, model.ErrNoModelFound, http.StatusBadRequest},
		{"no data", nil, model.ErrNoData, http.StatusBadRequest},
		{"short window", nil, &model.InsufficientDataError{Need: 60, Got: 10}, http.StatusBadRequest},
		{"upstream", nil, fmt.Errorf("failed to fetch AMBA: %w", &client.StatusError{StatusCode: 403}), http.StatusBadRequest},
		{"timeout", nil, context.DeadlineExceeded, http.StatusBadRequest},
		{"internal", nil, errors.New("failed to load model: unexpected EOF"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.POST("/fazer_previsao", NewPredictionHandler(&fakePredictor{err: tt.err}, zap.NewNop()).Predict)

			w := postForm(router, "/fazer_previsao", tt.form)
			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestHistoryPagination(t *testing.T) {
	predictor := &fakePredictor{}
	for i := 0; i < 5; i++ {
		predictor.history = append(predictor.history, model.PredictionHistoryRow{Prediction: string(rune('a' + i))})
	}
	router := gin.New()
	router.GET("/fazer_previsao/historico", NewPredictionHandler(predictor, zap.NewNop()).History)

	body := decode(t, get(router, "/fazer_previsao/historico"))
	assert.Len(t, body["historico"], 5)
	assert.EqualValues(t, 5, body["total"])

	body = decode(t, get(router, "/fazer_previsao/historico?page=2&limit=2"))
	rows := body["historico"].([]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, "c", rows[0].(map[string]interface{})["Previsão"])

	body = decode(t, get(router, "/fazer_previsao/historico?page=9&limit=2"))
	assert.Empty(t, body["historico"])
}

func TestStockInfo(t *testing.T) {
	info := &model.StockInfo{Ticker: "AMBA", Fields: []model.InfoField{
		{Key: "Ticker", Value: "AMBA"},
		{Key: "Setor", Value: "N/A"},
	}}
	router := gin.New()
	router.POST("/obter_info_acao", NewStockHandler(&fakeStockInfo{info: info, png: []byte{1}}, zap.NewNop()).GetInfo)

	w := postForm(router, "/obter_info_acao", url.Values{"ticker": {"AMBA"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"stock_info":{"Ticker":"AMBA","Setor":"N/A"}`)

	router = gin.New()
	router.POST("/obter_info_acao", NewStockHandler(&fakeStockInfo{err: model.ErrNoData}, zap.NewNop()).GetInfo)
	w = postForm(router, "/obter_info_acao", url.Values{"ticker": {"ZZZZ"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Não foi possível obter informações da ação", decode(t, w)["error"])

	for _, err := range []error{
		fmt.Errorf("failed to fetch AMBA: %w", &client.StatusError{StatusCode: 502}),
		context.DeadlineExceeded,
		errors.New("failed to render chart"),
	} {
		router = gin.New()
		router.POST("/obter_info_acao", NewStockHandler(&fakeStockInfo{err: err}, zap.NewNop()).GetInfo)
		w = postForm(router, "/obter_info_acao", url.Values{"ticker": {"AMBA"}})
		assert.Equal(t, http.StatusBadRequest, w.Code, err.Error())
		assert.NotEmpty(t, decode(t, w)["error"])
	}
}

func newTrainingRouter(trainer *fakeTrainer, chartPath string) *gin.Engine {
	h := NewTrainingHandler(trainer, chartPath, zap.NewNop())
	router := gin.New()
	router.POST("/treinamentomodelo/treinar", h.Train)
	router.GET("/treinamentomodelo/status", h.Status)
	router.POST("/treinamentomodelo/cancelar", h.Cancel)
	router.GET("/treinamentomodelo/saude", h.Health)
	return router
}

func TestTrainStarts(t *testing.T) {
	start := time.Date(2024, time.May, 2, 10, 30, 0, 0, time.Local)
	trainer := &fakeTrainer{start: start}
	router := newTrainingRouter(trainer, "")

	w := postForm(router, "/treinamentomodelo/treinar", url.Values{
		"ticker":     {"PETR4.SA"},
		"epochs":     {"3"},
		"start_date": {"2021-01-01"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "iniciado", body["status"])
	assert.Equal(t, "2024-05-02 10:30:00", body["start_time"])
	assert.Equal(t, "PETR4.SA", trainer.got.Ticker)
	assert.Equal(t, 3, trainer.got.Epochs)
	assert.Equal(t, 2021, trainer.got.Start.Year())
}

func TestTrainRejections(t *testing.T) {
	running := time.Date(2024, time.May, 2, 9, 0, 0, 0, time.Local)
	router := newTrainingRouter(&fakeTrainer{startErr: &model.TrainingInProgressError{StartTime: running}}, "")

	w := postForm(router, "/treinamentomodelo/treinar", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "erro", body["status"])
	assert.Equal(t, "2024-05-02 09:00:00", body["start_time"])

	router = newTrainingRouter(&fakeTrainer{}, "")
	w = postForm(router, "/treinamentomodelo/treinar", url.Values{"epochs": {"0"}, "start_date": {"01/02/2021"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrainingStatus(t *testing.T) {
	chart := filepath.Join(t.TempDir(), "previsoes_completas.png")
	start := time.Date(2024, time.May, 2, 9, 0, 0, 0, time.Local)

	trainer := &fakeTrainer{status: model.TrainingStatus{
		State:     model.TrainingRunning,
		IsRunning: true,
		StartTime: &start,
	}}
	router := newTrainingRouter(trainer, chart)

	body := decode(t, get(router, "/treinamentomodelo/status"))
	assert.Equal(t, "running", body["state"])
	assert.Equal(t, true, body["is_running"])
	assert.Equal(t, "2024-05-02 09:00:00", body["start_time"])
	assert.Nil(t, body["end_time"])
	assert.Nil(t, body["graph"])

	require.NoError(t, os.WriteFile(chart, []byte("chart"), 0o644))
	end := start.Add(time.Minute)
	trainer.status = model.TrainingStatus{
		State:     model.TrainingSucceeded,
		StartTime: &start,
		EndTime:   &end,
		RunID:     "run-1",
		Metrics:   &model.MetricsSummary{Train: "MAE: $1.00, RMSE: $2.00", Test: "MAE: $3.00, RMSE: $4.00"},
	}

	body = decode(t, get(router, "/treinamentomodelo/status"))
	assert.Equal(t, "succeeded", body["state"])
	assert.Equal(t, "run-1", body["run_id"])
	assert.Nil(t, body["error"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("chart")), body["graph"])
	metrics := body["metrics"].(map[string]interface{})
	assert.Equal(t, "MAE: $3.00, RMSE: $4.00", metrics["test"])
}

func TestTrainingCancelAndHealth(t *testing.T) {
	router := newTrainingRouter(&fakeTrainer{}, "")
	w := postForm(router, "/treinamentomodelo/cancelar", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelado", decode(t, w)["status"])

	router = newTrainingRouter(&fakeTrainer{cancelErr: model.ErrNoTrainingRunning}, "")
	w = postForm(router, "/treinamentomodelo/cancelar", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	body := decode(t, get(router, "/treinamentomodelo/saude"))
	assert.Equal(t, "saudavel", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestArchiveAndDownload(t *testing.T) {
	base := t.TempDir()
	store := filepath.Join(base, "mlruns")
	require.NoError(t, os.MkdirAll(filepath.Join(store, "0"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(store, "0", "meta.yaml"), []byte("name: Default\n"), 0o644))

	h := NewArchiveHandler(service.NewArchiveService(store, "Modelos_Grupo_60", base, zap.NewNop()), zap.NewNop())
	router := gin.New()
	router.GET("/zipar-pasta", h.ZipStore)
	router.GET("/download/:file_name", h.Download)

	w := get(router, "/zipar-pasta")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Modelos_Grupo_60.zip", decode(t, w)["zipFileName"])

	w = get(router, "/download/Modelos_Grupo_60.zip")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Modelos_Grupo_60.zip")
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"))

	assert.Equal(t, http.StatusNotFound, get(router, "/download/missing.zip").Code)
	assert.Equal(t, http.StatusBadRequest, get(router, "/download/..%5Cmlruns").Code)
}

func TestMonitoring(t *testing.T) {
	h := NewMonitoringHandler(fakeMonitor{}, zap.NewNop())
	router := gin.New()
	router.GET("/monitoramento/metricas", h.Performance)
	router.GET("/monitoramento/recursos", h.Resources)

	body := decode(t, get(router, "/monitoramento/metricas"))
	assert.EqualValues(t, 3, body["total_predictions"])
	assert.Nil(t, body["mse"])

	body = decode(t, get(router, "/monitoramento/recursos"))
	assert.EqualValues(t, 1024, body["memory_usage"])
	assert.EqualValues(t, 5, body["goroutines"])
}

func TestRecordActualValue(t *testing.T) {
	monitor := fakeMonitor{recorded: map[string]float64{}}
	router := gin.New()
	router.POST("/monitoramento/valor_real", NewMonitoringHandler(monitor, zap.NewNop()).RecordActual)

	w := postForm(router, "/monitoramento/valor_real", url.Values{"ticker": {"AMBA"}, "valor_real": {"61.25"}})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 7, body["id"])
	assert.Equal(t, 61.25, monitor.recorded["AMBA"])

	w = postForm(router, "/monitoramento/valor_real", url.Values{"ticker": {"AMBA"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	router = gin.New()
	router.POST("/monitoramento/valor_real", NewMonitoringHandler(fakeMonitor{}, zap.NewNop()).RecordActual)
	w = postForm(router, "/monitoramento/valor_real", url.Values{"ticker": {"AMBA"}, "valor_real": {"61.25"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, model.ErrNoPendingPrediction.Error(), decode(t, w)["error"])
}
