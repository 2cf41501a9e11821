package salesorder

import "github.com/gin-gonic/gin"

// SalesOrderModule implements the app.Module interface for sales orders.
type SalesOrderModule struct {
	handler *SalesOrderHandler
}

// NewModule creates a new SalesOrderModule with the given handler.
// Panics if h is nil.
func NewModule(h *SalesOrderHandler) *SalesOrderModule {
	if h == nil {
		panic("salesorder.NewModule: handler must not be nil")
	}
	return &SalesOrderModule{handler: h}
}

// RegisterRoutes registers the sales-order API routes.
func (m *SalesOrderModule) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/dashboard-stats", m.handler.Stats)
	api.GET("/recent-orders", m.handler.Recent)
	api.GET("/sales-orders", m.handler.List)
	api.GET("/sales-orders/bad-records", m.handler.BadRecords)
	api.GET("/sales-orders/filters", m.handler.Filters)
}
