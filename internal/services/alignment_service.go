package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/api"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/engine"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/grpc/alignv1"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/repo"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/utils"
)

// ModelRepository defines the model persistence operations the service needs.
type ModelRepository interface {
	Save(ctx context.Context, alignment models.Alignment) (string, error)
	Load(ctx context.Context, session string) (*models.StoredModel, error)
	Sessions(ctx context.Context) ([]string, error)
	Stat(ctx context.Context, session string) (fs.FileInfo, error)
}

// cachedModel remembers which stored file a model was read from, so a model
// replaced by another process is reloaded instead of served stale.
type cachedModel struct {
	stored *models.StoredModel
	file   fs.FileInfo
}

// AlignmentService implements the gRPC alignment service.
type AlignmentService struct {
	alignv1.UnimplementedAlignmentServer

	logger    *slog.Logger
	store     ModelRepository
	policy    models.MismatchPolicy
	threshold float64
	latencies *utils.LatencyWindow

	mu    sync.RWMutex
	cache map[string]cachedModel
}

// NewAlignmentService constructs the service facade. A nil store keeps models
// in memory only.
func NewAlignmentService(logger *slog.Logger, store ModelRepository, policy models.MismatchPolicy, residualThreshold float64) *AlignmentService {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == "" {
		policy = models.MismatchTruncate
	}
	return &AlignmentService{
		logger:    logger,
		store:     store,
		policy:    policy,
		threshold: residualThreshold,
		latencies: utils.NewLatencyWindow(1024),
		cache:     make(map[string]cachedModel),
	}
}

// Fit extracts, pairs and fits one session and persists the model.
func (s *AlignmentService) Fit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	domainReq, err := api.FromStructFitRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.logger.Debug("Fit called", slog.String("session", domainReq.Session), slog.Bool("edges", domainReq.HasEdges()))

	policy := s.policy
	if domainReq.Policy != "" {
		policy = domainReq.Policy
	}
	aligner := s.newAligner(policy)

	start := time.Now()
	var result models.Alignment
	if domainReq.HasEdges() {
		result, err = aligner.AlignEdges(ctx, domainReq.Session, domainReq.ReferenceEdges, domainReq.TargetEdges)
	} else {
		result, err = aligner.Align(ctx, domainReq.Session, domainReq.ReferenceLog, domainReq.TargetLog)
	}
	duration := time.Since(start)
	if err != nil {
		return nil, fitStatus(err)
	}

	s.latencies.Observe(duration)
	if count := s.latencies.Len(); count >= 20 && count%20 == 0 {
		s.logger.Info("fit latency", slog.Duration("p95", s.latencies.Quantile(0.95)), slog.Int("samples", count))
	}

	s.remember(&models.StoredModel{
		ID:         result.ModelID,
		Session:    result.Session,
		CreatedAt:  time.Now().UTC(),
		Model:      result.Model,
		Validation: result.Validation,
		Residuals:  result.Residuals,
		Warnings:   result.Warnings,
	})

	resp, err := api.ToStructAlignment(result)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return resp, nil
}

// Remap converts target-clock timestamps with the session's stored model.
func (s *AlignmentService) Remap(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	domainReq, err := api.FromStructRemapRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	stored, err := s.lookup(ctx, domainReq.Session)
	if err != nil {
		return nil, err
	}
	remapper, err := engine.NewRemapper(stored.Model)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	resp, err := api.ToStructRemapResponse(models.RemapResponse{
		Session:    stored.Session,
		ModelID:    stored.ID,
		Timestamps: remapper.Slice(domainReq.Timestamps),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return resp, nil
}

// GetModel returns the stored model of a session.
func (s *AlignmentService) GetModel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	session, err := api.SessionFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	stored, err := s.lookup(ctx, session)
	if err != nil {
		return nil, err
	}
	report, err := engine.NewResidualAnalyzer(s.threshold).AnalyzeModel(stored.Model)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	withReport := *stored
	withReport.Residuals = report
	resp, err := api.ToStructStoredModel(&withReport)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

// ListModels returns the sessions with a stored model.
func (s *AlignmentService) ListModels(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	var sessions []string
	if s.store != nil {
		list, err := s.store.Sessions(ctx)
		if err != nil {
			s.logger.Error("list models failed", slog.Any("error", err))
			return nil, status.Error(codes.Internal, "failed to list models")
		}
		sessions = list
	} else {
		s.mu.RLock()
		for session := range s.cache {
			sessions = append(sessions, session)
		}
		s.mu.RUnlock()
		sort.Strings(sessions)
	}
	resp, err := api.ToStructSessions(sessions)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func (s *AlignmentService) newAligner(policy models.MismatchPolicy) *engine.Aligner {
	var store engine.ModelStore
	if s.store != nil {
		store = s.store
	}
	return engine.NewAligner(s.logger, nil, engine.NewIndexPairer(policy), engine.NewResidualAnalyzer(s.threshold), store)
}

// remember caches a freshly fitted model. With a store the entry is dropped
// instead, so the next lookup reads the record exactly as it was written.
func (s *AlignmentService) remember(stored *models.StoredModel) {
	if stored == nil || stored.Model == nil {
		return
	}
	if s.store != nil {
		s.forget(stored.Session)
		return
	}
	s.mu.Lock()
	s.cache[stored.Session] = cachedModel{stored: stored}
	s.mu.Unlock()
}

func (s *AlignmentService) forget(session string) {
	s.mu.Lock()
	delete(s.cache, session)
	s.mu.Unlock()
}

// lookup returns the session's current model. With a store, a cached entry is
// served only while its file is still the one on disk. Errors are gRPC statuses.
func (s *AlignmentService) lookup(ctx context.Context, session string) (*models.StoredModel, error) {
	s.mu.RLock()
	entry, ok := s.cache[session]
	s.mu.RUnlock()

	if s.store == nil {
		if !ok {
			return nil, status.Error(codes.NotFound, fmt.Sprintf("no model for session %q", session))
		}
		return entry.stored, nil
	}

	file, err := s.store.Stat(ctx, session)
	if err != nil {
		return nil, s.storeStatus(session, err)
	}
	if ok && sameFile(entry.file, file) {
		return entry.stored, nil
	}

	stored, err := s.store.Load(ctx, session)
	if err != nil {
		return nil, s.storeStatus(session, err)
	}
	s.mu.Lock()
	s.cache[session] = cachedModel{stored: stored, file: file}
	s.mu.Unlock()
	return stored, nil
}

func (s *AlignmentService) storeStatus(session string, err error) error {
	if errors.Is(err, repo.ErrModelNotFound) {
		s.forget(session)
		return status.Error(codes.NotFound, err.Error())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	s.logger.Error("load model failed", slog.String("session", session), slog.Any("error", err))
	return status.Error(codes.Internal, "failed to load model")
}

func sameFile(a, b fs.FileInfo) bool {
	if a == nil || b == nil {
		return false
	}
	return os.SameFile(a, b) && a.ModTime().Equal(b.ModTime()) && a.Size() == b.Size()
}

func fitStatus(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	if errors.Is(err, engine.ErrEdgeCountMismatch) {
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	if engine.IsInputError(err) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, fmt.Sprintf("fit failed: %v", err))
}
