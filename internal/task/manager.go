package task

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/soundmint-labs/trackmint/internal/market"
)

// Manager loads and parses Task definitions.
type Manager struct {
	logger *zap.Logger
}

// TaskConfig represents the structure of the tasks YAML file.
type TaskConfig struct {
	Tasks []struct {
		TaskName     string `yaml:"task_name"`
		Wallet       string `yaml:"wallet"`
		Operation    string `yaml:"operation"`
		Mint         string `yaml:"mint"`
		Amount       uint64 `yaml:"amount"`
		Account      string `yaml:"account"`
		Name         string `yaml:"name"`
		Symbol       string `yaml:"symbol"`
		MetadataURI  string `yaml:"metadata_uri"`
		Curve        string `yaml:"curve"`
		InitialPrice uint64 `yaml:"initial_price"`
		Delta        uint64 `yaml:"delta"`
		ArtistFeeBps uint16 `yaml:"artist_fee_bps"`
	} `yaml:"tasks"`
}

// NewManager constructs a Manager with the given logger.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger.Named("task-manager")}
}

// LoadTasksYAML reads tasks from a YAML file. Invalid entries are skipped
// with a warning so one typo does not block the rest of the run.
func (m *Manager) LoadTasksYAML(path string) ([]*Task, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config TaskConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(config.Tasks) == 0 {
		return nil, fmt.Errorf("no tasks found in configuration")
	}

	tasks := make([]*Task, 0, len(config.Tasks))
	for i, taskData := range config.Tasks {
		op, err := parseOperation(taskData.Operation)
		if err != nil {
			m.logger.Warn("Skipping invalid task",
				zap.String("task_name", taskData.TaskName),
				zap.Error(err))
			continue
		}

		curveType := market.CurveLinear
		if taskData.Curve != "" {
			curveType, err = market.ParseCurveType(taskData.Curve)
			if err != nil {
				m.logger.Warn("Skipping task with unknown curve",
					zap.String("task_name", taskData.TaskName),
					zap.String("curve", taskData.Curve))
				continue
			}
		}

		t := &Task{
			ID:           i,
			TaskName:     taskData.TaskName,
			WalletName:   taskData.Wallet,
			Operation:    op,
			Mint:         taskData.Mint,
			Amount:       taskData.Amount,
			Account:      taskData.Account,
			TokenName:    taskData.Name,
			Symbol:       taskData.Symbol,
			MetadataURI:  taskData.MetadataURI,
			CurveType:    curveType,
			InitialPrice: taskData.InitialPrice,
			Delta:        taskData.Delta,
			ArtistFeeBps: taskData.ArtistFeeBps,
			CreatedAt:    time.Now(),
		}

		if err := t.Validate(); err != nil {
			m.logger.Warn("Skipping task with missing required fields",
				zap.String("task_name", t.TaskName),
				zap.String("operation", string(t.Operation)),
				zap.Error(err))
			continue
		}

		tasks = append(tasks, t)
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("no valid tasks in configuration")
	}

	m.logger.Info("Tasks loaded",
		zap.String("path", cleanPath),
		zap.Int("total", len(config.Tasks)),
		zap.Int("valid", len(tasks)))
	return tasks, nil
}
