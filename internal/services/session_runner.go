package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/config"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/engine"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/repo"
)

// SessionReport summarises one batch run.
type SessionReport struct {
	Alignment models.Alignment
	Outputs   []string
}

// SessionRunner loads the configured sync records, fits the session's clock
// model and rewrites the configured event tables into reference time.
type SessionRunner struct {
	logger  *slog.Logger
	aligner *engine.Aligner
}

// NewSessionRunner constructs a runner around an aligner.
func NewSessionRunner(logger *slog.Logger, aligner *engine.Aligner) *SessionRunner {
	if logger == nil {
		logger = slog.Default()
	}
	if aligner == nil {
		aligner = engine.NewAligner(logger, nil, nil, nil, nil)
	}
	return &SessionRunner{logger: logger, aligner: aligner}
}

// Run executes the session job. Remap jobs only run after a successful fit.
func (r *SessionRunner) Run(ctx context.Context, session config.SessionConfig) (SessionReport, error) {
	if session.Name == "" {
		return SessionReport{}, fmt.Errorf("session name is required")
	}
	logger := r.logger.With(slog.String("session", session.Name))

	reference, err := LoadPulseLog(session.Reference)
	if err != nil {
		return SessionReport{}, fmt.Errorf("load reference sync record: %w", err)
	}
	target, err := LoadPulseLog(session.Target)
	if err != nil {
		return SessionReport{}, fmt.Errorf("load target sync record: %w", err)
	}
	logger.Debug("sync records loaded",
		slog.Int("reference_samples", len(reference)),
		slog.Int("target_samples", len(target)),
	)

	alignment, err := r.aligner.Align(ctx, session.Name, reference, target)
	report := SessionReport{Alignment: alignment}
	if err != nil {
		return report, err
	}

	remapper, err := engine.NewRemapper(alignment.Model)
	if err != nil {
		return report, err
	}
	for _, job := range session.Remap {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		output, err := r.remapTable(remapper, job)
		if err != nil {
			return report, fmt.Errorf("remap %s: %w", job.Input, err)
		}
		logger.Info("event table remapped",
			slog.String("input", job.Input),
			slog.String("output", output),
			slog.Int("columns", len(job.Columns)),
		)
		report.Outputs = append(report.Outputs, output)
	}
	return report, nil
}

func (r *SessionRunner) remapTable(remapper *engine.Remapper, job config.RemapJob) (string, error) {
	table, err := repo.LoadEventTable(job.Input)
	if err != nil {
		return "", err
	}
	for _, col := range job.Columns {
		if err := remapper.Column(table, col.Name, col.As); err != nil {
			return "", err
		}
	}
	output := job.Output
	if output == "" {
		output = DefaultRemapOutput(job.Input)
	}
	if err := repo.SaveEventTable(output, table); err != nil {
		return "", err
	}
	return output, nil
}

// DefaultRemapOutput derives an output path next to input, "events.csv" becoming
// "events_aligned.csv".
func DefaultRemapOutput(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_aligned" + ext
}

// LoadPulseLog reads one clock's sync record as described by src.
func LoadPulseLog(src config.SourceConfig) (models.PulseStateLog, error) {
	opts := repo.PulseCSVOptions{
		TimestampColumn: src.TimestampColumn,
		StateColumn:     src.StateColumn,
		Filter:          src.Filter,
	}
	switch strings.ToLower(src.Format) {
	case config.FormatCSV:
		return repo.LoadPulseCSV(src.Path, opts)
	case config.FormatSetClear:
		return repo.LoadSetClearCSV(src.SetPath, src.ClearPath, opts)
	case config.FormatEDF:
		return repo.LoadEDFPulseLog(src.Path, repo.EDFPulseOptions{
			Signal:      src.Signal,
			SampleRate:  src.SampleRate,
			Threshold:   src.Threshold,
			StartOffset: src.StartOffset,
		})
	default:
		return nil, fmt.Errorf("unknown source format %q", src.Format)
	}
}
