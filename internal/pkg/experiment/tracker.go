package experiment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fedscope/fedscope/pkg/utils/json"
)

// Run statuses.
const (
	RunStatusRunning  = "running"
	RunStatusFinished = "finished"
	RunStatusFailed   = "failed"
)

// Run is one experiment run.
type Run struct {
	ID         string `gorm:"primaryKey;size:26"`
	Name       string `gorm:"index"`
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// RunParam is one logged parameter of a run.
type RunParam struct {
	ID    uint   `gorm:"primaryKey"`
	RunID string `gorm:"index;size:26"`
	Key   string
	Value string
}

// RunMetric is one logged metric of a run.
type RunMetric struct {
	ID    uint   `gorm:"primaryKey"`
	RunID string `gorm:"index;size:26"`
	Key   string
	Value float64
}

// Tracker records experiment runs, their parameters and metrics, and
// per-query answer artifacts. Implementations are not required to be safe
// for concurrent use; the sweep is strictly sequential.
type Tracker interface {
	StartRun(ctx context.Context, name string, params map[string]string) (runID string, err error)
	LogMetric(ctx context.Context, runID, key string, value float64) error
	LogArtifact(ctx context.Context, runID, name string, payload any) error
	FinishRun(ctx context.Context, runID, status string) error
	Close() error
}

// SQLiteTracker persists runs in a SQLite database and writes artifacts as
// JSON files under ArtifactDir/<run-id>/.
type SQLiteTracker struct {
	db          *gorm.DB
	artifactDir string
}

// NewSQLiteTracker opens (creating if needed) the tracking database and
// migrates the schema.
func NewSQLiteTracker(dsn, artifactDir string) (*SQLiteTracker, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("experiment: opening tracking database: %w", err)
	}

	if err := db.AutoMigrate(&Run{}, &RunParam{}, &RunMetric{}); err != nil {
		return nil, fmt.Errorf("experiment: migrating tracking schema: %w", err)
	}

	if artifactDir != "" {
		if err := os.MkdirAll(artifactDir, 0o755); err != nil {
			return nil, fmt.Errorf("experiment: creating artifact dir: %w", err)
		}
	}

	return &SQLiteTracker{db: db, artifactDir: artifactDir}, nil
}

// StartRun opens a run and records its parameters.
func (t *SQLiteTracker) StartRun(ctx context.Context, name string, params map[string]string) (string, error) {
	runID := ulid.Make().String()

	run := Run{
		ID:        runID,
		Name:      name,
		Status:    RunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := t.db.WithContext(ctx).Create(&run).Error; err != nil {
		return "", fmt.Errorf("experiment: creating run %q: %w", name, err)
	}

	for key, value := range params {
		param := RunParam{RunID: runID, Key: key, Value: value}
		if err := t.db.WithContext(ctx).Create(&param).Error; err != nil {
			return "", fmt.Errorf("experiment: logging param %q: %w", key, err)
		}
	}

	return runID, nil
}

// LogMetric records one metric value for a run.
func (t *SQLiteTracker) LogMetric(ctx context.Context, runID, key string, value float64) error {
	metric := RunMetric{RunID: runID, Key: key, Value: value}
	if err := t.db.WithContext(ctx).Create(&metric).Error; err != nil {
		return fmt.Errorf("experiment: logging metric %q: %w", key, err)
	}
	return nil
}

// LogArtifact writes payload as indented JSON under the run's artifact
// directory.
func (t *SQLiteTracker) LogArtifact(_ context.Context, runID, name string, payload any) error {
	if t.artifactDir == "" {
		return nil
	}

	dir := filepath.Join(t.artifactDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("experiment: creating run artifact dir: %w", err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("experiment: encoding artifact %q: %w", name, err)
	}

	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("experiment: writing artifact %q: %w", name, err)
	}
	return nil
}

// FinishRun closes a run with the given status.
func (t *SQLiteTracker) FinishRun(ctx context.Context, runID, status string) error {
	now := time.Now()
	result := t.db.WithContext(ctx).Model(&Run{}).Where("id = ?", runID).Updates(map[string]any{
		"status":      status,
		"finished_at": &now,
	})
	if result.Error != nil {
		return fmt.Errorf("experiment: finishing run %q: %w", runID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("experiment: run %q not found", runID)
	}
	return nil
}

// Close closes the underlying database connection.
func (t *SQLiteTracker) Close() error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ Tracker = (*SQLiteTracker)(nil)
