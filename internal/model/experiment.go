package model

import (
	"time"
)

// RunStatus is the terminal status stored in a run's meta file
type RunStatus string

const (
	RunRunning  RunStatus = "RUNNING"
	RunFinished RunStatus = "FINISHED"
	RunFailed   RunStatus = "FAILED"
)

// Experiment groups runs in the experiment store
type Experiment struct {
	ID           string    `yaml:"experiment_id" json:"experiment_id"`
	Name         string    `yaml:"name" json:"name"`
	CreationTime time.Time `yaml:"creation_time" json:"creation_time"`
}

// Run is one recorded training run
type Run struct {
	ID           string    `yaml:"run_id" json:"run_id"`
	ExperimentID string    `yaml:"experiment_id" json:"experiment_id"`
	StartTime    time.Time `yaml:"start_time" json:"start_time"`
	EndTime      time.Time `yaml:"end_time,omitempty" json:"end_time"`
	Status       RunStatus `yaml:"status" json:"status"`
}

// TensorSpec describes one named tensor of a model signature. -1 marks the batch axis.
type TensorSpec struct {
	Name  string `yaml:"name" json:"name" msgpack:"name"`
	DType string `yaml:"dtype" json:"dtype" msgpack:"dtype"`
	Shape []int  `yaml:"shape" json:"shape" msgpack:"shape"`
}

// ModelSignature declares the input and output tensors of a logged model
type ModelSignature struct {
	Inputs  []TensorSpec `yaml:"inputs" json:"inputs" msgpack:"inputs"`
	Outputs []TensorSpec `yaml:"outputs" json:"outputs" msgpack:"outputs"`
}
