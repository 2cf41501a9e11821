package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/config"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/domain"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/pkg"
)

const apiRunningMessage = "Katana-DCL Dashboard API is running!"

// StoreStatus is what the diagnostic endpoints read from the connection manager.
type StoreStatus interface {
	Connected() bool
	HealthCheck(ctx context.Context) error
	URIProvided() bool
	Database() string
	CollectionNames() config.CollectionsConfig
}

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules []Module
	Store   StoreStatus
	// Metrics serves the Prometheus exposition at MetricsPath. Nil disables it.
	Metrics     http.Handler
	MetricsPath string
	// Now defaults to time.Now.
	Now func() time.Time
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if deps.Store == nil {
		return errors.New("store is required")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	r.GET("/health", healthHandler(deps.Store))

	if deps.Metrics != nil {
		if deps.MetricsPath == "" {
			return errors.New("metrics path is required when metrics are served")
		}
		r.GET(deps.MetricsPath, gin.WrapH(deps.Metrics))
	}

	api := r.Group("/api")
	api.GET("/test", apiTestHandler(deps.Store, now))

	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(api)
	}

	r.NoRoute(func(c *gin.Context) {
		pkg.Error(c, domain.ErrNotFound)
	})

	return nil
}

// healthHandler reports 200 when the store answers a ping and 503 otherwise.
func healthHandler(s StoreStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "ok"
		switch {
		case !s.Connected():
			dbStatus = "disconnected"
		default:
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()
			if err := s.HealthCheck(ctx); err != nil {
				dbStatus = "error"
			}
		}

		status, code := "ok", http.StatusOK
		if dbStatus != "ok" {
			status, code = "degraded", http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status": status,
			"components": gin.H{
				"database": dbStatus,
			},
		})
	}
}

// apiTestHandler describes the connection state. It always answers 200.
func apiTestHandler(s StoreStatus, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		names := s.CollectionNames()
		pkg.Success(c, gin.H{
			"message":           apiRunningMessage,
			"mongodb_connected": s.Connected(),
			"database":          s.Database(),
			"collections": gin.H{
				"sales_orders":    names.SalesOrders,
				"purchase_orders": names.PurchaseOrders,
				"stock_transfers": names.StockTransfers,
				"target_orders":   names.TargetOrders,
			},
			"connection_string_provided": s.URIProvided(),
			"timestamp":                  now().Format(time.RFC3339Nano),
		})
	}
}
