package repository

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/yourorg/stock-forecast/internal/lstm"
	"github.com/yourorg/stock-forecast/internal/model"
)

const (
	metaFile      = "meta.yaml"
	paramsFile    = "params.yaml"
	metricsFile   = "metrics.yaml"
	artifactsDir  = "artifacts"
	modelDir      = "model"
	modelMetaFile = "MLmodel.yaml"
	modelDataFile = "model.msgpack"
	modelFlavor   = "lstm-msgpack"
)

// ErrRunNotFound is returned when a run id does not exist in any experiment
var ErrRunNotFound = errors.New("run not found")

// RunRecord is everything written for one run at registration time
type RunRecord struct {
	ExperimentID string
	RunID        string
	StartTime    time.Time
	EndTime      time.Time
	Params       map[string]string
	Metrics      model.Metrics
	Artifacts    []string
	Model        *lstm.Network
}

// modelMeta is the descriptor stored next to the serialized model
type modelMeta struct {
	ArtifactPath   string               `yaml:"artifact_path"`
	Flavor         string               `yaml:"flavor"`
	ModelFile      string               `yaml:"model_file"`
	RunID          string               `yaml:"run_id"`
	UTCTimeCreated time.Time            `yaml:"utc_time_created"`
	Signature      model.ModelSignature `yaml:"signature"`
}

// ExperimentRepository is the file-backed experiment store:
//
//	<root>/<experiment_id>/meta.yaml
//	<root>/<experiment_id>/<run_id>/{meta.yaml,params.yaml,metrics.yaml,artifacts/,model/}
type ExperimentRepository struct {
	root   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewExperimentRepository creates a new experiment repository rooted at dir
func NewExperimentRepository(root string, logger *zap.Logger) *ExperimentRepository {
	return &ExperimentRepository{
		root:   root,
		logger: logger,
	}
}

// GetOrCreateExperiment returns the experiment with the given name, creating it if needed
func (r *ExperimentRepository) GetOrCreateExperiment(name string) (*model.Experiment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	experiments, err := r.ListExperiments()
	if err != nil {
		return nil, err
	}

	nextID := 0
	for _, exp := range experiments {
		if exp.Name == name {
			e := exp
			return &e, nil
		}
		if id, err := strconv.Atoi(exp.ID); err == nil && id >= nextID {
			nextID = id + 1
		}
	}

	exp := model.Experiment{
		ID:           strconv.Itoa(nextID),
		Name:         name,
		CreationTime: time.Now().UTC(),
	}
	dir := filepath.Join(r.root, exp.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create experiment directory: %w", err)
	}
	if err := writeYAML(filepath.Join(dir, metaFile), exp); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	r.logger.Info("Created experiment",
		zap.String("experiment_id", exp.ID),
		zap.String("name", name))
	return &exp, nil
}

// ListExperiments returns all experiments, oldest first.
// A missing store is an empty list; unreadable entries are skipped.
func (r *ExperimentRepository) ListExperiments() ([]model.Experiment, error) {
	entries, err := os.ReadDir(r.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read experiment store: %w", err)
	}

	var experiments []model.Experiment
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		var exp model.Experiment
		if err := readYAML(filepath.Join(r.root, entry.Name(), metaFile), &exp); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				r.logger.Warn("Skipping unreadable experiment",
					zap.String("dir", entry.Name()),
					zap.Error(err))
			}
			continue
		}
		if exp.ID == "" {
			exp.ID = entry.Name()
		}
		experiments = append(experiments, exp)
	}

	sort.SliceStable(experiments, func(i, j int) bool {
		a, b := experiments[i], experiments[j]
		if !a.CreationTime.Equal(b.CreationTime) {
			return a.CreationTime.Before(b.CreationTime)
		}
		return lessID(a.ID, b.ID)
	})
	return experiments, nil
}

// ListRuns returns the runs of an experiment ordered by start time, then run id
func (r *ExperimentRepository) ListRuns(experimentID string) ([]model.Run, error) {
	dir := filepath.Join(r.root, experimentID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read experiment %s: %w", experimentID, err)
	}

	var runs []model.Run
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		var run model.Run
		if err := readYAML(filepath.Join(dir, entry.Name(), metaFile), &run); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				r.logger.Warn("Skipping unreadable run",
					zap.String("experiment_id", experimentID),
					zap.String("run_id", entry.Name()),
					zap.Error(err))
			}
			continue
		}
		if run.Status != model.RunFinished {
			continue
		}
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartTime.Equal(runs[j].StartTime) {
			return runs[i].StartTime.Before(runs[j].StartTime)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

// FindRun locates a run by id across all experiments
func (r *ExperimentRepository) FindRun(runID string) (*model.Run, error) {
	experiments, err := r.ListExperiments()
	if err != nil {
		return nil, err
	}
	for _, exp := range experiments {
		var run model.Run
		err := readYAML(filepath.Join(r.root, exp.ID, runID, metaFile), &run)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &run, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
}

// RegisterRun writes a complete run. The run becomes visible only once its meta file is written;
// on any failure the partial run directory is removed.
func (r *ExperimentRepository) RegisterRun(rec RunRecord) (*model.Run, error) {
	if rec.Model == nil {
		return nil, fmt.Errorf("run %s has no model", rec.RunID)
	}

	dir := filepath.Join(r.root, rec.ExperimentID, rec.RunID)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("run %s already exists", rec.RunID)
	}

	run := &model.Run{
		ID:           rec.RunID,
		ExperimentID: rec.ExperimentID,
		StartTime:    rec.StartTime.UTC(),
		EndTime:      rec.EndTime.UTC(),
		Status:       model.RunFinished,
	}

	if err := r.writeRun(dir, run, rec); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			r.logger.Error("Failed to remove partial run",
				zap.String("run_id", rec.RunID),
				zap.Error(rmErr))
		}
		return nil, err
	}

	r.logger.Info("Registered run",
		zap.String("experiment_id", rec.ExperimentID),
		zap.String("run_id", rec.RunID))
	return run, nil
}

func (r *ExperimentRepository) writeRun(dir string, run *model.Run, rec RunRecord) error {
	if err := os.MkdirAll(filepath.Join(dir, artifactsDir), 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, modelDir), 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	if err := writeYAML(filepath.Join(dir, paramsFile), rec.Params); err != nil {
		return err
	}
	if err := writeYAML(filepath.Join(dir, metricsFile), rec.Metrics); err != nil {
		return err
	}
	for _, artifact := range rec.Artifacts {
		if err := copyFile(artifact, filepath.Join(dir, artifactsDir, filepath.Base(artifact))); err != nil {
			return fmt.Errorf("failed to log artifact %s: %w", artifact, err)
		}
	}

	if err := writeModel(filepath.Join(dir, modelDir, modelDataFile), rec.Model); err != nil {
		return err
	}
	meta := modelMeta{
		ArtifactPath:   modelDir,
		Flavor:         modelFlavor,
		ModelFile:      modelDataFile,
		RunID:          rec.RunID,
		UTCTimeCreated: time.Now().UTC(),
		Signature:      rec.Model.Signature(),
	}
	if err := writeYAML(filepath.Join(dir, modelDir, modelMetaFile), meta); err != nil {
		return err
	}

	return writeYAML(filepath.Join(dir, metaFile), run)
}

// LoadModel reads the serialized model of a run
func (r *ExperimentRepository) LoadModel(run *model.Run) (*lstm.Network, model.ModelSignature, error) {
	path := filepath.Join(r.root, run.ExperimentID, run.ID, modelDir, modelDataFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, model.ModelSignature{}, fmt.Errorf("failed to open model of run %s: %w", run.ID, err)
	}
	defer f.Close()

	return lstm.Decode(f)
}

// LoadMetrics reads the metrics logged for a run
func (r *ExperimentRepository) LoadMetrics(run *model.Run) (*model.Metrics, error) {
	var m model.Metrics
	if err := readYAML(filepath.Join(r.root, run.ExperimentID, run.ID, metricsFile), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// RunDir returns the directory of a run
func (r *ExperimentRepository) RunDir(run *model.Run) string {
	return filepath.Join(r.root, run.ExperimentID, run.ID)
}

func writeModel(path string, net *lstm.Network) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	if err := lstm.Encode(f, net); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeYAML(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readYAML(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// lessID orders numeric ids numerically and everything else lexically
func lessID(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}
