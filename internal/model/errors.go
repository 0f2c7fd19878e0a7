package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoData is returned when the market data source has nothing for a ticker and range
	ErrNoData = errors.New("no market data returned, ticker may be delisted or invalid")

	// ErrNoModelFound is returned when the experiment store holds no runs
	ErrNoModelFound = errors.New("no model found")

	// ErrNoTrainingRunning is returned when cancelling while nothing runs
	ErrNoTrainingRunning = errors.New("no training in progress")

	// ErrNoPendingPrediction is returned when no logged prediction of a ticker awaits its actual value
	ErrNoPendingPrediction = errors.New("no pending prediction for ticker")
)

// InsufficientDataError reports a series too short for the configured window
type InsufficientDataError struct {
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need %d points, got %d", e.Need, e.Got)
}

// TrainingInProgressError is returned when a training is started while another one runs
type TrainingInProgressError struct {
	StartTime time.Time
}

func (e *TrainingInProgressError) Error() string {
	return fmt.Sprintf("training already in progress since %s", e.StartTime.Format(TimestampLayout))
}

// RegistrationError wraps a failure while writing a run to the experiment store
type RegistrationError struct {
	RunID string
	Err   error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("failed to register run %s: %v", e.RunID, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}
