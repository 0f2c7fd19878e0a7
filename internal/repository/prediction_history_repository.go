package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/model"
)

var historyHeader = []string{"Data", "Último Preço", "Previsão", "Variação (%)"}

// PredictionHistoryRepository appends prediction rows to a CSV file
type PredictionHistoryRepository struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewPredictionHistoryRepository creates a new prediction history repository
func NewPredictionHistoryRepository(path string, logger *zap.Logger) *PredictionHistoryRepository {
	return &PredictionHistoryRepository{
		path:   path,
		logger: logger,
	}
}

// Append writes one row, preceded by the header when the file does not exist yet
func (r *PredictionHistoryRepository) Append(row model.PredictionHistoryRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := os.Stat(r.path)
	writeHeader := errors.Is(err, fs.ErrNotExist)
	if err != nil && !writeHeader {
		return fmt.Errorf("failed to stat history file: %w", err)
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(historyHeader); err != nil {
			f.Close()
			return fmt.Errorf("failed to write history header: %w", err)
		}
	}
	if err := w.Write([]string{row.Date, row.LastPrice, row.Prediction, row.ChangePercent}); err != nil {
		f.Close()
		return fmt.Errorf("failed to write history row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush history: %w", err)
	}
	return f.Close()
}

// List returns all rows in file order. A missing file is an empty history.
func (r *PredictionHistoryRepository) List() ([]model.PredictionHistoryRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []model.PredictionHistoryRow{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(historyHeader)

	rows := []model.PredictionHistoryRow{}
	first := true
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read history: %w", err)
		}
		if first {
			first = false
			if rec[0] == historyHeader[0] {
				continue
			}
		}
		rows = append(rows, model.PredictionHistoryRow{
			Date:          rec[0],
			LastPrice:     rec[1],
			Prediction:    rec[2],
			ChangePercent: rec[3],
		})
	}
	return rows, nil
}
