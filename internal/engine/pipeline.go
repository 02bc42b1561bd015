package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/extractors"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/metrics"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
)

// ModelStore persists a fitted alignment and returns the identifier it was stored under.
type ModelStore interface {
	Save(ctx context.Context, alignment models.Alignment) (string, error)
}

// Aligner orchestrates edge extraction, pairing, fitting and residual analysis
// for one session.
type Aligner struct {
	logger    *slog.Logger
	extractor *extractors.EdgeExtractor
	pairer    Pairer
	residuals *ResidualAnalyzer
	store     ModelStore
}

// NewAligner constructs an aligner. Nil collaborators fall back to defaults; a
// nil store skips persistence.
func NewAligner(
	logger *slog.Logger,
	extractor *extractors.EdgeExtractor,
	pairer Pairer,
	residuals *ResidualAnalyzer,
	store ModelStore,
) *Aligner {
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = extractors.NewEdgeExtractor()
	}
	if pairer == nil {
		pairer = NewIndexPairer(models.MismatchTruncate)
	}
	if residuals == nil {
		residuals = NewResidualAnalyzer(DefaultResidualThreshold)
	}

	return &Aligner{
		logger:    logger,
		extractor: extractor,
		pairer:    pairer,
		residuals: residuals,
		store:     store,
	}
}

// Align extracts rising edges from both pulse logs and fits them.
func (a *Aligner) Align(ctx context.Context, session string, reference, target models.PulseStateLog) (models.Alignment, error) {
	refEdges, err := a.extractor.Extract(reference)
	if err != nil {
		metrics.ObserveFit(0, metrics.OutcomeError)
		return models.Alignment{Session: session}, fmt.Errorf("extract reference edges: %w", err)
	}
	tgtEdges, err := a.extractor.Extract(target)
	if err != nil {
		metrics.ObserveFit(0, metrics.OutcomeError)
		return models.Alignment{Session: session, ReferenceEdges: refEdges}, fmt.Errorf("extract target edges: %w", err)
	}
	return a.AlignEdges(ctx, session, refEdges, tgtEdges)
}

// AlignEdges pairs already-extracted edges, fits the clock model and analyses
// residuals. On failure the partially filled alignment is returned with the error.
func (a *Aligner) AlignEdges(ctx context.Context, session string, reference, target models.EdgeSequence) (models.Alignment, error) {
	start := time.Now()
	result := models.Alignment{
		Session:        session,
		ReferenceEdges: reference,
		TargetEdges:    target,
	}

	fail := func(err error) (models.Alignment, error) {
		metrics.ObserveFit(time.Since(start), metrics.OutcomeError)
		a.logger.Error("alignment failed", slog.String("session", session), slog.Any("error", err))
		return result, err
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	pair, validation, err := a.pairer.Pair(reference, target)
	result.Validation = validation
	if !validation.OK {
		metrics.ObserveEdgeCountMismatch()
		a.logger.Warn("edge count mismatch",
			slog.String("session", session),
			slog.Int("reference_count", validation.ReferenceCount),
			slog.Int("target_count", validation.TargetCount),
		)
		result.Warnings = append(result.Warnings, validation.Message)
	}
	if err != nil {
		return fail(err)
	}
	result.Pairs = pair.Len()

	model, err := Fit(pair.Reference, pair.Target)
	if err != nil {
		return fail(err)
	}
	result.Model = model

	report, err := a.residuals.Analyze(model, pair.Reference, pair.Target)
	if err != nil {
		return fail(err)
	}
	result.Residuals = report
	metrics.ObserveResidual(report.MaxAbs)
	if report.ExceedsThreshold {
		msg := fmt.Sprintf("%d of %d residuals exceed %gs (max %gs)", len(report.Outliers), report.Count, report.Threshold, report.MaxAbs)
		a.logger.Warn("residuals exceed threshold",
			slog.String("session", session),
			slog.Int("outliers", len(report.Outliers)),
			slog.Float64("max_abs", report.MaxAbs),
			slog.Float64("threshold", report.Threshold),
		)
		result.Warnings = append(result.Warnings, msg)
	}

	if a.store != nil {
		id, err := a.store.Save(ctx, result)
		if err != nil {
			return fail(fmt.Errorf("persist model: %w", err))
		}
		result.ModelID = id
	}

	metrics.ObserveFit(time.Since(start), metrics.OutcomeSuccess)
	a.logger.Info("clock model fitted",
		slog.String("session", session),
		slog.Int("pairs", result.Pairs),
		slog.Float64("slope", model.Slope()),
		slog.Float64("intercept", model.Intercept()),
		slog.Float64("residual_max_abs", report.MaxAbs),
	)
	return result, nil
}

// IsInputError reports whether err stems from unusable input rather than an
// internal or storage failure.
func IsInputError(err error) bool {
	var mismatch *EdgeCountMismatchError
	return errors.As(err, &mismatch) ||
		errors.Is(err, ErrMissingInput) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrDegenerateFit) ||
		errors.Is(err, extractors.ErrUnsortedLog)
}
