package domain

import "context"

// SalesOrder is the flattened, frontend-facing view of a stored order.
// Every field has an explicit default; see salesorder.Project.
type SalesOrder struct {
	ID                string    `json:"id"`
	MongoID           string    `json:"_id"`
	KatanaOrderID     any       `json:"katana_order_id"`
	KatanaOrderNumber string    `json:"katana_order_number"`
	OrderNumber       string    `json:"order_number"`
	Status            string    `json:"status"`
	DCLStatus         string    `json:"dcl_status"`
	Total             float64   `json:"total"`
	Currency          string    `json:"currency"`
	ItemsCount        int       `json:"items_count"`
	LocationID        any       `json:"location_id"`
	CreatedAt         any       `json:"created_at"`
	UpdatedAt         any       `json:"updated_at"`
	OrderCreatedDate  any       `json:"order_created_date"`
	DeliveryDate      any       `json:"delivery_date"`
	KatanaOrderData   OrderData `json:"katana_order_data"`
}

// OrderData re-exposes part of the commercial sub-object. Total and Currency
// are null when the stored order does not carry them.
type OrderData struct {
	OrderCreatedDate any      `json:"order_created_date"`
	DeliveryDate     any      `json:"delivery_date"`
	Total            *float64 `json:"total"`
	Currency         *string  `json:"currency"`
	SalesOrderRows   []any    `json:"sales_order_rows"`
}

// SalesOrderCriteria are the raw filter inputs of a listing request. They are
// echoed back unchanged as filters_applied.
type SalesOrderCriteria struct {
	DateFilter  string `json:"date_filter"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	DCLStatus   string `json:"dcl_status"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

// SalesOrderPage is one page of projected sales orders.
type SalesOrderPage struct {
	Orders     []SalesOrder
	Pagination Pagination
	Filters    SalesOrderCriteria
}

// DashboardStats summarizes the sales-order collection.
type DashboardStats struct {
	TotalOrders       int64   `json:"total_orders"`
	PendingOrders     int64   `json:"pending_orders"`
	CompletedOrders   int64   `json:"completed_orders"`
	FailedOrders      int64   `json:"failed_orders"`
	SuccessRate       float64 `json:"success_rate"`
	AvgProcessingTime string  `json:"avg_processing_time"`
}

// DateFilterOption is one supported date_filter shortcut.
type DateFilterOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FilterOptions lists the values the listing can be filtered by.
type FilterOptions struct {
	Statuses    []string           `json:"statuses"`
	DCLStatuses []string           `json:"dcl_statuses"`
	DateFilters []DateFilterOption `json:"date_filters"`
}

// SalesOrderService defines the read operations on sales orders.
type SalesOrderService interface {
	ListSalesOrders(ctx context.Context, req PageRequest, criteria SalesOrderCriteria) (*SalesOrderPage, error)
	RecentSalesOrders(ctx context.Context, limit int) ([]SalesOrder, error)
	DashboardStats(ctx context.Context) (*DashboardStats, error)
	BadRecords(ctx context.Context) ([]string, error)
	FilterOptions(ctx context.Context) (*FilterOptions, error)
}
