package repo

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
)

const modelSchemaURL = "https://fnt-align.local/schema/clock_model.schema.json"

//go:embed schema/clock_model.schema.json
var modelSchemaJSON []byte

var (
	// ErrModelNotFound signals that no model has been stored for a session.
	ErrModelNotFound = errors.New("clock model not found")
	// ErrInvalidRecord signals a stored model file that fails schema or consistency checks.
	ErrInvalidRecord = errors.New("invalid clock model record")
)

type modelRecord struct {
	ID             string           `json:"id"`
	Session        string           `json:"session"`
	CreatedAt      time.Time        `json:"created_at"`
	Slope          float64          `json:"slope"`
	Intercept      float64          `json:"intercept"`
	ReferenceEdges []float64        `json:"reference_edges"`
	TargetEdges    []float64        `json:"target_edges"`
	Validation     validationRecord `json:"validation"`
	Residuals      residualRecord   `json:"residuals"`
	Warnings       []string         `json:"warnings,omitempty"`
}

type validationRecord struct {
	OK             bool   `json:"ok"`
	ReferenceCount int    `json:"reference_count"`
	TargetCount    int    `json:"target_count"`
	Message        string `json:"message,omitempty"`
}

type residualRecord struct {
	Count     int     `json:"count"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	MaxAbs    float64 `json:"max_abs"`
	P95Abs    float64 `json:"p95_abs"`
	Threshold float64 `json:"threshold"`
	Outliers  []int   `json:"outliers,omitempty"`
}

// ModelStore persists fitted clock models as one JSON document per session.
type ModelStore struct {
	dir    string
	logger *slog.Logger
	schema *jsonschema.Schema
	now    func() time.Time
}

// NewModelStore prepares dir for model files and compiles the record schema.
func NewModelStore(dir string, logger *slog.Logger) (*ModelStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("model store dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model store dir: %w", err)
	}
	schema, err := compileModelSchema()
	if err != nil {
		return nil, err
	}
	return &ModelStore{
		dir:    dir,
		logger: logger,
		schema: schema,
		now:    time.Now,
	}, nil
}

func compileModelSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(modelSchemaURL, bytes.NewReader(modelSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(modelSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// Dir returns the directory models are written to.
func (s *ModelStore) Dir() string { return s.dir }

// Path returns the file a session's model is stored in.
func (s *ModelStore) Path(session string) (string, error) {
	name, err := SessionFileName(session)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+".json"), nil
}

// Save writes the alignment's model atomically, replacing any earlier model for
// the same session, and returns the new model id.
func (s *ModelStore) Save(ctx context.Context, alignment models.Alignment) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if alignment.Model == nil {
		return "", fmt.Errorf("save %q: alignment has no model", alignment.Session)
	}
	path, err := s.Path(alignment.Session)
	if err != nil {
		return "", err
	}

	record := newModelRecord(alignment, uuid.NewString(), s.now().UTC())
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode model: %w", err)
	}
	data = append(data, '\n')
	if err := renameio.WriteFile(path, data, 0o644, renameio.WithTempDir(s.dir)); err != nil {
		return "", fmt.Errorf("write model: %w", err)
	}

	s.logger.Debug("clock model stored",
		slog.String("session", alignment.Session),
		slog.String("model_id", record.ID),
		slog.String("path", path),
	)
	return record.ID, nil
}

// Load reads the model stored for session.
func (s *ModelStore) Load(ctx context.Context, session string) (*models.StoredModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Path(session)
	if err != nil {
		return nil, err
	}
	stored, err := s.LoadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w for session %q", ErrModelNotFound, session)
		}
		return nil, err
	}
	return stored, nil
}

// LoadFile reads and validates a model file at an explicit path.
func (s *ModelStore) LoadFile(path string) (*models.StoredModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return s.decode(data)
}

// Stat describes the file a session's model is stored in. A replaced model is
// always a new file, so callers can compare results with os.SameFile.
func (s *ModelStore) Stat(ctx context.Context, session string) (fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Path(session)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w for session %q", ErrModelNotFound, session)
		}
		return nil, fmt.Errorf("stat model: %w", err)
	}
	return info, nil
}

// Sessions lists the session names recorded in the stored models, sorted.
// Unreadable records are logged and skipped.
func (s *ModelStore) Sessions(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	sessions := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		session, err := readSessionName(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Warn("skipping unreadable model record", slog.String("file", name), slog.Any("error", err))
			continue
		}
		sessions = append(sessions, session)
	}
	sort.Strings(sessions)
	return sessions, nil
}

func readSessionName(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var head struct {
		Session string `json:"session"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}
	if head.Session == "" {
		return "", fmt.Errorf("%w: session is empty", ErrInvalidRecord)
	}
	return head.Session, nil
}

func (s *ModelStore) decode(data []byte) (*models.StoredModel, error) {
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := s.schema.Validate(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	var record modelRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if len(record.ReferenceEdges) != len(record.TargetEdges) {
		return nil, fmt.Errorf("%w: %d reference edges vs %d target edges",
			ErrInvalidRecord, len(record.ReferenceEdges), len(record.TargetEdges))
	}

	return &models.StoredModel{
		ID:        record.ID,
		Session:   record.Session,
		CreatedAt: record.CreatedAt,
		Model: models.NewClockModel(
			record.Slope,
			record.Intercept,
			models.EdgeSequence(record.ReferenceEdges),
			models.EdgeSequence(record.TargetEdges),
		),
		Validation: models.ValidationResult{
			OK:             record.Validation.OK,
			ReferenceCount: record.Validation.ReferenceCount,
			TargetCount:    record.Validation.TargetCount,
			Message:        record.Validation.Message,
		},
		Residuals: models.ResidualReport{
			Count:            record.Residuals.Count,
			Mean:             record.Residuals.Mean,
			StdDev:           record.Residuals.StdDev,
			MaxAbs:           record.Residuals.MaxAbs,
			P95Abs:           record.Residuals.P95Abs,
			Threshold:        record.Residuals.Threshold,
			Outliers:         record.Residuals.Outliers,
			ExceedsThreshold: len(record.Residuals.Outliers) > 0,
		},
		Warnings: record.Warnings,
	}, nil
}

func newModelRecord(alignment models.Alignment, id string, createdAt time.Time) modelRecord {
	model := alignment.Model
	report := alignment.Residuals
	return modelRecord{
		ID:             id,
		Session:        alignment.Session,
		CreatedAt:      createdAt,
		Slope:          model.Slope(),
		Intercept:      model.Intercept(),
		ReferenceEdges: model.ReferenceEdges(),
		TargetEdges:    model.TargetEdges(),
		Validation: validationRecord{
			OK:             alignment.Validation.OK,
			ReferenceCount: alignment.Validation.ReferenceCount,
			TargetCount:    alignment.Validation.TargetCount,
			Message:        alignment.Validation.Message,
		},
		Residuals: residualRecord{
			Count:     report.Count,
			Mean:      report.Mean,
			StdDev:    report.StdDev,
			MaxAbs:    report.MaxAbs,
			P95Abs:    report.P95Abs,
			Threshold: report.Threshold,
			Outliers:  report.Outliers,
		},
		Warnings: alignment.Warnings,
	}
}

// SessionFileName maps a session name onto a safe file stem. Characters other
// than letters, digits, dot, dash and underscore become underscores.
func SessionFileName(session string) (string, error) {
	trimmed := strings.TrimSpace(session)
	if trimmed == "" {
		return "", fmt.Errorf("session name is required")
	}
	var b strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), ".")
	if name == "" {
		return "", fmt.Errorf("session name %q has no usable characters", session)
	}
	return name, nil
}
