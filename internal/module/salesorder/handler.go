package salesorder

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/domain"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/pkg"
)

const defaultRecentLimit = 10

// SalesOrderHandler handles the sales-order and dashboard endpoints.
type SalesOrderHandler struct {
	svc      domain.SalesOrderService
	maxLimit int
}

// NewSalesOrderHandler creates a SalesOrderHandler. maxLimit caps the page
// size of listings; 0 leaves it unbounded.
func NewSalesOrderHandler(svc domain.SalesOrderService, maxLimit int) *SalesOrderHandler {
	return &SalesOrderHandler{svc: svc, maxLimit: maxLimit}
}

// List handles GET /api/sales-orders.
func (h *SalesOrderHandler) List(c *gin.Context) {
	req := pkg.ParsePageRequest(c, h.maxLimit)

	page, err := h.svc.ListSalesOrders(c.Request.Context(), req, parseCriteria(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.List(c, page.Orders, &page.Pagination, page.Filters)
}

// Recent handles GET /api/recent-orders.
func (h *SalesOrderHandler) Recent(c *gin.Context) {
	limit := pkg.QueryInt(c, "limit", defaultRecentLimit, h.maxLimit)

	orders, err := h.svc.RecentSalesOrders(c.Request.Context(), limit)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.List(c, orders, nil, nil)
}

// Stats handles GET /api/dashboard-stats.
func (h *SalesOrderHandler) Stats(c *gin.Context) {
	stats, err := h.svc.DashboardStats(c.Request.Context())
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, gin.H{"overall": stats})
}

// BadRecords handles GET /api/sales-orders/bad-records.
func (h *SalesOrderHandler) BadRecords(c *gin.Context) {
	ids, err := h.svc.BadRecords(c.Request.Context())
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, gin.H{"bad_records": ids, "count": len(ids)})
}

// Filters handles GET /api/sales-orders/filters.
func (h *SalesOrderHandler) Filters(c *gin.Context) {
	opts, err := h.svc.FilterOptions(c.Request.Context())
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, gin.H{"filters": opts})
}

func parseCriteria(c *gin.Context) domain.SalesOrderCriteria {
	return domain.SalesOrderCriteria{
		DateFilter:  c.Query("date_filter"),
		OrderNumber: strings.TrimSpace(c.Query("order_number")),
		Status:      c.Query("status"),
		DCLStatus:   c.Query("dcl_status"),
		StartDate:   c.Query("start_date"),
		EndDate:     c.Query("end_date"),
	}
}
