package records

import (
	"context"
	"log/slog"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/domain"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/pkg"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/store"
)

// recordService implements domain.RecordService for one collection.
type recordService struct {
	src    store.Source
	repo   Repository
	name   string
	logger *slog.Logger
}

// NewService creates a RecordService. name identifies the collection in logs.
func NewService(src store.Source, repo Repository, name string, logger *slog.Logger) domain.RecordService {
	if logger == nil {
		logger = slog.Default()
	}
	return &recordService{src: src, repo: repo, name: name, logger: logger}
}

// ListRecords returns one page of the collection, newest first.
func (s *recordService) ListRecords(ctx context.Context, req domain.PageRequest) (*domain.RecordPage, error) {
	if !s.src.Connected() {
		s.logger.ErrorContext(ctx, "database not connected", slog.String("collection", s.name))
		return nil, domain.ErrUnavailable
	}
	if err := s.src.Ping(ctx); err != nil {
		s.logger.ErrorContext(ctx, "database ping failed",
			slog.String("collection", s.name),
			slog.String("error", err.Error()),
		)
		return nil, domain.Unavailable(err)
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	recs, err := s.repo.Find(ctx, req.Skip(), int64(req.Limit))
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	return &domain.RecordPage{
		Records:    recs,
		Pagination: pkg.NewPagination(req, total, len(recs)),
	}, nil
}

func (s *recordService) fail(ctx context.Context, err error) error {
	s.logger.ErrorContext(ctx, "record query failed",
		slog.String("collection", s.name),
		slog.String("kind", domain.KindOf(err)),
		slog.String("error", err.Error()),
	)
	if domain.IsUnavailable(err) {
		return err
	}
	return domain.Internal(err)
}
