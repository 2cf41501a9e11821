package salesorder

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/domain"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/pkg"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/store"
)

// Lifecycle values the dashboard statistics count.
const (
	statusPending  = "pending"
	statusComplete = "complete"
)

// ServiceOptions tunes a sales-order service. Zero values are replaced with
// UTC, slog.Default and time.Now.
type ServiceOptions struct {
	Location *time.Location
	Logger   *slog.Logger
	Metrics  *Metrics
	Now      func() time.Time
}

// salesOrderService implements domain.SalesOrderService.
type salesOrderService struct {
	src     store.Source
	repo    Repository
	loc     *time.Location
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewService creates a SalesOrderService. Every operation first checks that
// src is connected and answers a ping.
func NewService(src store.Source, repo Repository, opts ServiceOptions) domain.SalesOrderService {
	s := &salesOrderService{
		src:     src,
		repo:    repo,
		loc:     opts.Location,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ready gates every read: a disconnected store fails without touching any
// collection, and a failed ping fails before querying.
func (s *salesOrderService) ready(ctx context.Context) error {
	if !s.src.Connected() {
		s.logger.ErrorContext(ctx, "database not connected")
		return domain.ErrUnavailable
	}
	if err := s.src.Ping(ctx); err != nil {
		s.logger.ErrorContext(ctx, "database ping failed", slog.String("error", err.Error()))
		return domain.Unavailable(err)
	}
	return nil
}

// fail logs a query failure with its kind and converts it for the client.
func (s *salesOrderService) fail(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "sales order query failed",
		slog.String("op", op),
		slog.String("kind", domain.KindOf(err)),
		slog.String("error", err.Error()),
	)
	if domain.IsUnavailable(err) {
		return err
	}
	return domain.Internal(err)
}

// ListSalesOrders returns one page of projected orders matching criteria.
func (s *salesOrderService) ListSalesOrders(ctx context.Context, req domain.PageRequest, criteria domain.SalesOrderCriteria) (*domain.SalesOrderPage, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	f := BuildFilter(criteria, s.now().In(s.loc))
	for _, d := range f.Dropped {
		s.logger.WarnContext(ctx, "ignoring invalid date range",
			slog.String("start_date", criteria.StartDate),
			slog.String("end_date", criteria.EndDate),
			slog.String("error", d.Error()),
		)
	}

	s.logger.DebugContext(ctx, "listing sales orders",
		slog.Int("page", req.Page),
		slog.Int("limit", req.Limit),
		slog.Any("filter", f.Query),
	)

	total, err := s.repo.Count(ctx, f.Query)
	if err != nil {
		return nil, s.fail(ctx, "count", err)
	}

	docs, err := s.repo.Find(ctx, f.Query, req.Skip(), int64(req.Limit))
	if err != nil {
		return nil, s.fail(ctx, "find", err)
	}

	orders := s.project(ctx, docs)
	return &domain.SalesOrderPage{
		Orders:     orders,
		Pagination: pkg.NewPagination(req, total, len(orders)),
		Filters:    criteria,
	}, nil
}

// RecentSalesOrders returns the newest limit orders.
func (s *salesOrderService) RecentSalesOrders(ctx context.Context, limit int) ([]domain.SalesOrder, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	docs, err := s.repo.Find(ctx, bson.D{}, 0, int64(limit))
	if err != nil {
		return nil, s.fail(ctx, "recent", err)
	}
	return s.project(ctx, docs), nil
}

// DashboardStats counts orders by outcome.
func (s *salesOrderService) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	filters := [4]bson.D{
		{},
		{{Key: fieldStatus, Value: statusPending}},
		{{Key: fieldStatus, Value: statusComplete}},
		{{Key: "dcl_result.success", Value: false}},
	}
	var counts [4]int64
	for i, f := range filters {
		n, err := s.repo.Count(ctx, f)
		if err != nil {
			return nil, s.fail(ctx, "stats", err)
		}
		counts[i] = n
	}

	stats := &domain.DashboardStats{
		TotalOrders:       counts[0],
		PendingOrders:     counts[1],
		CompletedOrders:   counts[2],
		FailedOrders:      counts[3],
		AvgProcessingTime: "N/A",
	}
	if stats.TotalOrders > 0 {
		rate := float64(stats.CompletedOrders) / float64(stats.TotalOrders) * 100
		stats.SuccessRate = math.Round(rate*10) / 10
	}

	minutes, ok, err := s.repo.AvgProcessingMinutes(ctx)
	if err != nil {
		return nil, s.fail(ctx, "stats", err)
	}
	if ok {
		stats.AvgProcessingTime = fmt.Sprintf("%.1f min", minutes)
	}

	s.logger.DebugContext(ctx, "dashboard stats",
		slog.Int64("total", stats.TotalOrders),
		slog.Int64("pending", stats.PendingOrders),
		slog.Int64("completed", stats.CompletedOrders),
		slog.Int64("failed", stats.FailedOrders),
	)
	return stats, nil
}

// BadRecords lists the ids of orders whose commercial sub-object is unusable.
func (s *salesOrderService) BadRecords(ctx context.Context) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	ids, err := s.repo.MalformedIDs(ctx)
	if err != nil {
		return nil, s.fail(ctx, "bad-records", err)
	}
	return ids, nil
}

// FilterOptions lists the statuses present in the collection and the
// supported date shortcuts.
func (s *salesOrderService) FilterOptions(ctx context.Context) (*domain.FilterOptions, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	statuses, err := s.repo.Distinct(ctx, fieldStatus)
	if err != nil {
		return nil, s.fail(ctx, "filters", err)
	}
	dclStatuses, err := s.repo.Distinct(ctx, fieldDCLStatus)
	if err != nil {
		return nil, s.fail(ctx, "filters", err)
	}

	return &domain.FilterOptions{
		Statuses:    nonEmpty(statuses),
		DCLStatuses: nonEmpty(dclStatuses),
		DateFilters: append([]domain.DateFilterOption(nil), DateFilters...),
	}, nil
}

// project maps docs in order, logging and skipping those that fail.
func (s *salesOrderService) project(ctx context.Context, docs []bson.M) []domain.SalesOrder {
	orders := make([]domain.SalesOrder, 0, len(docs))
	for _, doc := range docs {
		o, err := Project(doc)
		if err != nil {
			s.logger.ErrorContext(ctx, "skipping sales order",
				slog.Any("id", doc["_id"]),
				slog.String("error", err.Error()),
			)
			s.metrics.documentSkipped(skipProject)
			continue
		}
		orders = append(orders, o)
	}
	return orders
}

// nonEmpty drops null, empty and false values and renders the rest as text.
func nonEmpty(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		switch x := v.(type) {
		case nil:
			continue
		case string:
			if x == "" {
				continue
			}
			out = append(out, x)
		case bool:
			if !x {
				continue
			}
			out = append(out, "true")
		default:
			out = append(out, fmt.Sprint(normalize(x)))
		}
	}
	return out
}
