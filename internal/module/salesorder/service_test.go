package salesorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/domain"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/store/storetest"
)

const testCollection = "Katana_to_dcl"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// seedOrders returns n well-formed orders, newest first.
func seedOrders(n int) []bson.M {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	docs := make([]bson.M, n)
	for i := range docs {
		docs[i] = bson.M{
			"_id":                 primitive.NewObjectID(),
			"katana_order_number": fmt.Sprintf("SO-%04d", n-i),
			"status":              "pending",
			"created_at":          primitive.NewDateTimeFromTime(base.Add(-time.Duration(i) * time.Hour)),
			"katana_order_data": bson.M{
				"total":            float64(i),
				"sales_order_rows": bson.A{bson.M{"sku": "X"}},
			},
		}
	}
	return docs
}

func newTestService(src *storetest.Source, metrics *Metrics, logger *slog.Logger) domain.SalesOrderService {
	if logger == nil {
		logger = discard
	}
	repo := NewRepository(src, testCollection, logger, metrics)
	return NewService(src, repo, ServiceOptions{
		Logger:  logger,
		Metrics: metrics,
		Now:     func() time.Time { return fixedNow },
	})
}

func TestService_ListSalesOrders_Pagination(t *testing.T) {
	coll := &storetest.Collection{Docs: seedOrders(45)}
	svc := newTestService(storetest.NewSource(testCollection, coll), nil, nil)

	page, err := svc.ListSalesOrders(context.Background(), domain.PageRequest{Page: 3, Limit: 20}, domain.SalesOrderCriteria{})
	if err != nil {
		t.Fatalf("ListSalesOrders() error = %v", err)
	}

	if len(page.Orders) != 5 {
		t.Fatalf("got %d orders, want 5", len(page.Orders))
	}
	p := page.Pagination
	if p.CurrentPage != 3 || p.TotalPages != 3 || p.TotalCount != 45 {
		t.Errorf("pagination = %+v", p)
	}
	if p.HasNext || !p.HasPrev {
		t.Errorf("has_next = %v, has_prev = %v", p.HasNext, p.HasPrev)
	}
	if p.ShowingFrom != 41 || p.ShowingTo != 45 {
		t.Errorf("showing %d..%d, want 41..45", p.ShowingFrom, p.ShowingTo)
	}
	if page.Orders[0].KatanaOrderNumber != "SO-0005" {
		t.Errorf("first order on page 3 = %s, want SO-0005", page.Orders[0].KatanaOrderNumber)
	}
}

func TestService_ListSalesOrders_HugePageReturnsNothing(t *testing.T) {
	coll := &storetest.Collection{Docs: seedOrders(45)}
	svc := newTestService(storetest.NewSource(testCollection, coll), nil, nil)

	for _, req := range []domain.PageRequest{
		{Page: math.MaxInt, Limit: 20},
		{Page: 3, Limit: math.MaxInt},
	} {
		page, err := svc.ListSalesOrders(context.Background(), req, domain.SalesOrderCriteria{})
		if err != nil {
			t.Fatalf("%+v: ListSalesOrders() error = %v", req, err)
		}
		if len(page.Orders) != 0 {
			t.Errorf("%+v: got %d orders, want none past the last page", req, len(page.Orders))
		}
		p := page.Pagination
		if p.ShowingFrom < 0 || p.ShowingTo != 45 {
			t.Errorf("%+v: showing %d..%d", req, p.ShowingFrom, p.ShowingTo)
		}
		if p.HasNext {
			t.Errorf("%+v: has_next = true past the last page", req)
		}
	}
}

func TestService_ListSalesOrders_PassesFilter(t *testing.T) {
	coll := &storetest.Collection{Docs: seedOrders(3)}
	svc := newTestService(storetest.NewSource(testCollection, coll), nil, nil)

	criteria := domain.SalesOrderCriteria{Status: "pending", OrderNumber: "SO-0001"}
	page, err := svc.ListSalesOrders(context.Background(), domain.PageRequest{Page: 1, Limit: 20}, criteria)
	if err != nil {
		t.Fatal(err)
	}
	if page.Filters != criteria {
		t.Errorf("Filters = %+v, want %+v", page.Filters, criteria)
	}

	filters := coll.Filters()
	if len(filters) != 2 {
		t.Fatalf("got %d filtered calls, want count and find", len(filters))
	}
	want, _ := bson.Marshal(BuildFilter(criteria, fixedNow).Query)
	for i, f := range filters {
		got, err := bson.Marshal(f)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("call %d filter = %v", i, f)
		}
	}
}

func TestService_ListSalesOrders_InvalidDatesLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	coll := &storetest.Collection{Docs: seedOrders(2)}
	svc := newTestService(storetest.NewSource(testCollection, coll), nil, logger)

	_, err := svc.ListSalesOrders(context.Background(), domain.PageRequest{Page: 1, Limit: 20},
		domain.SalesOrderCriteria{StartDate: "yesterday-ish", EndDate: "2024-01-01"})
	if err != nil {
		t.Fatalf("invalid dates should not fail the request: %v", err)
	}
	if !strings.Contains(buf.String(), "ignoring invalid date range") {
		t.Errorf("expected a warning, got %q", buf.String())
	}
}

func TestService_Disconnected(t *testing.T) {
	coll := &storetest.Collection{Docs: seedOrders(3)}
	src := storetest.NewSource(testCollection, coll)
	src.Disconnected = true
	svc := newTestService(src, nil, nil)
	ctx := context.Background()

	calls := map[string]func() error{
		"list": func() error {
			_, err := svc.ListSalesOrders(ctx, domain.PageRequest{Page: 1, Limit: 20}, domain.SalesOrderCriteria{})
			return err
		},
		"recent": func() error {
			_, err := svc.RecentSalesOrders(ctx, 10)
			return err
		},
		"stats": func() error {
			_, err := svc.DashboardStats(ctx)
			return err
		},
		"bad-records": func() error {
			_, err := svc.BadRecords(ctx)
			return err
		},
		"filters": func() error {
			_, err := svc.FilterOptions(ctx)
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			if !domain.IsUnavailable(err) {
				t.Fatalf("error = %v, want unavailable", err)
			}
			if domain.KindOf(err) != "ConnectionFailure" {
				t.Errorf("kind = %q", domain.KindOf(err))
			}
		})
	}

	if coll.Calls() != 0 {
		t.Errorf("collection was queried %d times while disconnected", coll.Calls())
	}
	if src.Pings() != 0 {
		t.Errorf("store was pinged %d times while disconnected", src.Pings())
	}
}

func TestService_PingFailure(t *testing.T) {
	coll := &storetest.Collection{Docs: seedOrders(3)}
	src := storetest.NewSource(testCollection, coll)
	src.PingErr = errors.New("server selection timeout")
	svc := newTestService(src, nil, nil)

	_, err := svc.RecentSalesOrders(context.Background(), 10)
	if !domain.IsUnavailable(err) {
		t.Fatalf("error = %v, want unavailable", err)
	}
	var appErr *domain.AppError
	if !errors.As(err, &appErr) || appErr.Details != "server selection timeout" {
		t.Errorf("details = %+v", appErr)
	}
	if coll.Calls() != 0 {
		t.Errorf("collection queried after failed ping")
	}
}

func TestService_MissingCollection(t *testing.T) {
	src := storetest.NewSource("other", &storetest.Collection{})
	svc := newTestService(src, nil, nil)

	if _, err := svc.RecentSalesOrders(context.Background(), 10); !domain.IsUnavailable(err) {
		t.Errorf("error = %v, want unavailable", err)
	}
}

func TestService_QueryFailure(t *testing.T) {
	coll := &storetest.Collection{FindErr: errors.New("cursor killed")}
	svc := newTestService(storetest.NewSource(testCollection, coll), nil, nil)

	_, err := svc.RecentSalesOrders(context.Background(), 10)
	if !domain.IsInternal(err) {
		t.Fatalf("error = %v, want internal", err)
	}
	var appErr *domain.AppError
	errors.As(err, &appErr)
	if !strings.Contains(appErr.Message, "cursor killed") {
		t.Errorf("message = %q, want the driver text", appErr.Message)
	}
}

func TestService_RecentSalesOrders(t *testing.T) {
	coll := &storetest.Collection{Docs: seedOrders(30)}
	svc := newTestService(storetest.NewSource(testCollection, coll), nil, nil)

	orders, err := svc.RecentSalesOrders(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 10 {
		t.Fatalf("got %d orders, want 10", len(orders))
	}
	if orders[0].KatanaOrderNumber != "SO-0030" {
		t.Errorf("newest = %s, want SO-0030", orders[0].KatanaOrderNumber)
	}
}

func TestService_SkipsUnprojectableDocuments(t *testing.T) {
	docs := seedOrders(3)
	delete(docs[1], "_id")

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	coll := &storetest.Collection{Docs: docs}
	svc := newTestService(storetest.NewSource(testCollection, coll), metrics, nil)

	orders, err := svc.RecentSalesOrders(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 {
		t.Errorf("got %d orders, want 2", len(orders))
	}
	if got := testutil.ToFloat64(metrics.skipped.WithLabelValues(skipProject)); got != 1 {
		t.Errorf("skipped{reason=project} = %v, want 1", got)
	}
}

func statsCounts(filter any) int64 {
	d, _ := filter.(bson.D)
	if len(d) == 0 {
		return 10
	}
	switch {
	case d[0].Key == fieldStatus && d[0].Value == statusPending:
		return 2
	case d[0].Key == fieldStatus && d[0].Value == statusComplete:
		return 6
	case d[0].Key == "dcl_result.success":
		return 1
	}
	return 0
}

func TestService_DashboardStats(t *testing.T) {
	coll := &storetest.Collection{
		CountFn:       statsCounts,
		AggregateDocs: []any{bson.M{"_id": nil, "avg_ms": 252000.0}},
	}
	svc := newTestService(storetest.NewSource(testCollection, coll), nil, nil)

	stats, err := svc.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("DashboardStats() error = %v", err)
	}

	want := domain.DashboardStats{
		TotalOrders:       10,
		PendingOrders:     2,
		CompletedOrders:   6,
		FailedOrders:      1,
		SuccessRate:       60.0,
		AvgProcessingTime: "4.2 min",
	}
	if *stats != want {
		t.Errorf("stats = %+v, want %+v", *stats, want)
	}
}

func TestService_DashboardStats_Empty(t *testing.T) {
	coll := &storetest.Collection{}
	svc := newTestService(storetest.NewSource(testCollection, coll), nil, nil)

	stats, err := svc.DashboardStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalOrders != 0 || stats.SuccessRate != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.AvgProcessingTime != "N/A" {
		t.Errorf("avg = %q, want N/A", stats.AvgProcessingTime)
	}
}

func TestService_DashboardStats_Rounding(t *testing.T) {
	coll := &storetest.Collection{
		CountFn: func(filter any) int64 {
			d, _ := filter.(bson.D)
			if len(d) == 0 {
				return 3
			}
			if d[0].Value == statusComplete {
				return 2
			}
			return 0
		},
	}
	svc := newTestService(storetest.NewSource(testCollection, coll), nil, nil)

	stats, err := svc.DashboardStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.SuccessRate != 66.7 {
		t.Errorf("success rate = %v, want 66.7", stats.SuccessRate)
	}
}

func TestService_DashboardStats_CountFailure(t *testing.T) {
	coll := &storetest.Collection{CountErr: errors.New("not authorized")}
	svc := newTestService(storetest.NewSource(testCollection, coll), nil, nil)

	if _, err := svc.DashboardStats(context.Background()); !domain.IsInternal(err) {
		t.Errorf("error = %v, want internal", err)
	}
}

func TestService_BadRecords(t *testing.T) {
	good := primitive.NewObjectID()
	nullData := primitive.NewObjectID()
	stringRows := primitive.NewObjectID()
	coll := &storetest.Collection{Docs: []bson.M{
		{"_id": good, "katana_order_data": bson.M{"sales_order_rows": bson.A{}}},
		{"_id": nullData, "katana_order_data": nil},
		{"_id": stringRows, "katana_order_data": bson.M{"sales_order_rows": "broken"}},
		{"_id": "legacy-7"},
	}}
	svc := newTestService(storetest.NewSource(testCollection, coll), nil, nil)

	ids, err := svc.BadRecords(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{nullData.Hex(), stringRows.Hex(), "legacy-7"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestService_BadRecords_ListIsStillServed(t *testing.T) {
	coll := &storetest.Collection{Docs: []bson.M{
		{"_id": "a", "katana_order_data": nil},
		{"_id": "b", "katana_order_data": bson.M{"sales_order_rows": "broken", "total": 5.0}},
	}}
	svc := newTestService(storetest.NewSource(testCollection, coll), nil, nil)

	orders, err := svc.RecentSalesOrders(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(orders))
	}
	if orders[0].Currency != "USD" || orders[1].ItemsCount != 0 || orders[1].Total != 5 {
		t.Errorf("orders = %+v", orders)
	}
}

func TestService_FilterOptions(t *testing.T) {
	coll := &storetest.Collection{Distincts: map[string][]any{
		fieldStatus:    {"pending", "", nil, "complete"},
		fieldDCLStatus: {nil, "shipped", false, int32(3)},
	}}
	svc := newTestService(storetest.NewSource(testCollection, coll), nil, nil)

	opts, err := svc.FilterOptions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(opts.Statuses, ",") != "pending,complete" {
		t.Errorf("statuses = %v", opts.Statuses)
	}
	if strings.Join(opts.DCLStatuses, ",") != "shipped,3" {
		t.Errorf("dcl statuses = %v", opts.DCLStatuses)
	}
	if len(opts.DateFilters) != 4 || opts.DateFilters[0].Value != DateToday {
		t.Errorf("date filters = %v", opts.DateFilters)
	}
}

func TestService_FilterOptions_DistinctFailure(t *testing.T) {
	coll := &storetest.Collection{DistinctErr: errors.New("distinct too big")}
	svc := newTestService(storetest.NewSource(testCollection, coll), nil, nil)

	_, err := svc.FilterOptions(context.Background())
	if !domain.IsInternal(err) {
		t.Errorf("error = %v, want internal", err)
	}
}
