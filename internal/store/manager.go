// Package store owns the process-wide MongoDB connection.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/config"
)

var (
	// ErrNoURI is recorded when no connection string is configured.
	ErrNoURI = errors.New("mongodb connection string is not set")
	// ErrClosed is returned by Ping after Close.
	ErrClosed = errors.New("mongodb manager is closed")
)

// Collection is the subset of *mongo.Collection used by the read paths.
type Collection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	Distinct(ctx context.Context, fieldName string, filter interface{}, opts ...*options.DistinctOptions) ([]interface{}, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

// Source is what request handlers need from the connection manager.
type Source interface {
	// Connected reports whether startup succeeded. It never changes from false
	// to true.
	Connected() bool
	// Ping re-verifies liveness with a round trip to the primary.
	Ping(ctx context.Context) error
	// Collection returns the handle for a configured collection name, or nil
	// when disconnected or the name is unknown.
	Collection(name string) Collection
}

var (
	_ Collection = (*mongo.Collection)(nil)
	_ Source     = (*Manager)(nil)
)

// salesOrderIndexes back the listing filters and the created_at sort.
var salesOrderIndexes = []mongo.IndexModel{
	{Keys: bson.D{{Key: "created_at", Value: -1}}},
	{Keys: bson.D{{Key: "katana_order_number", Value: 1}}},
	{Keys: bson.D{{Key: "status", Value: 1}}},
	{Keys: bson.D{{Key: "dcl_status", Value: 1}}},
	{Keys: bson.D{{Key: "katana_order_id", Value: 1}}},
	{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "status", Value: 1}}},
	{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "dcl_status", Value: 1}}},
}

// Manager holds the pooled client and the four named collection handles.
// It is built once by Connect and is read-only afterwards, apart from Close.
type Manager struct {
	cfg    *config.MongoConfig
	logger *slog.Logger

	client      *mongo.Client
	db          *mongo.Database
	collections map[string]*mongo.Collection
	err         error

	mu     sync.RWMutex
	closed bool
}

// Connect establishes the pooled connection described by cfg and verifies it
// with a ping. It never returns an error: on any failure the manager is
// returned disconnected, with the reason available from Err. No reconnection
// is attempted later.
//
// On success it logs the document count of every collection at debug level
// and creates the sales-order indexes. Index failures are logged only.
func Connect(ctx context.Context, cfg *config.MongoConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{cfg: cfg, logger: logger}

	if cfg == nil || cfg.URI == "" {
		m.err = ErrNoURI
		logger.Error("mongodb not configured", slog.String("error", m.err.Error()))
		return m
	}

	logger.Info("connecting to mongodb",
		slog.String("uri", cfg.RedactedURI()),
		slog.String("database", cfg.Database),
	)

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectDeadline())
	defer cancel()

	client, err := mongo.Connect(ctx, cfg.ClientOptions())
	if err != nil {
		m.err = fmt.Errorf("failed to connect to mongodb: %w", err)
		logger.Error("mongodb connection failed", slog.String("error", m.err.Error()))
		return m
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, cfg.ProbeTimeout())
	err = client.Ping(pingCtx, readpref.Primary())
	pingCancel()
	if err != nil {
		m.err = fmt.Errorf("failed to ping mongodb: %w", err)
		logger.Error("mongodb connection failed", slog.String("error", m.err.Error()))
		if dErr := client.Disconnect(context.Background()); dErr != nil {
			logger.Warn("mongodb disconnect failed", slog.String("error", dErr.Error()))
		}
		return m
	}

	m.client = client
	m.db = client.Database(cfg.Database)
	m.collections = make(map[string]*mongo.Collection, 4)
	for _, name := range collectionNames(cfg.Collections) {
		m.collections[name] = m.db.Collection(name)
	}

	logger.Info("mongodb connection established",
		slog.String("database", cfg.Database),
		slog.Uint64("max_pool_size", cfg.MaxPoolSize),
	)

	m.logCounts(ctx)

	if err := m.EnsureIndexes(ctx); err != nil {
		logger.Error("failed to create mongodb indexes", slog.String("error", err.Error()))
	} else {
		logger.Info("mongodb indexes ensured", slog.String("collection", cfg.Collections.SalesOrders))
	}

	return m
}

// Connected reports whether the startup connection succeeded and Close has
// not been called.
func (m *Manager) Connected() bool {
	if m == nil || m.client == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.closed
}

// Err returns why the manager is disconnected, or nil.
func (m *Manager) Err() error {
	if m == nil {
		return ErrNoURI
	}
	return m.err
}

// URIProvided reports whether a connection string was configured at all.
func (m *Manager) URIProvided() bool {
	return m != nil && m.cfg != nil && m.cfg.URI != ""
}

// Database returns the configured database name.
func (m *Manager) Database() string {
	if m == nil || m.cfg == nil {
		return ""
	}
	return m.cfg.Database
}

// CollectionNames returns the configured collection names.
func (m *Manager) CollectionNames() config.CollectionsConfig {
	if m == nil || m.cfg == nil {
		return config.CollectionsConfig{}
	}
	return m.cfg.Collections
}

// Collection returns the named handle. The result is a nil interface, not a
// typed nil, when the manager is disconnected or name is not configured.
func (m *Manager) Collection(name string) Collection {
	if !m.Connected() {
		return nil
	}
	coll, ok := m.collections[name]
	if !ok {
		return nil
	}
	return coll
}

// Ping round-trips to the primary, bounded by the probe timeout unless ctx
// already carries a deadline.
func (m *Manager) Ping(ctx context.Context) error {
	if m == nil || m.client == nil {
		if err := m.Err(); err != nil {
			return err
		}
		return ErrNoURI
	}
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	probeCtx, cancel := m.withProbeTimeout(ctx)
	defer cancel()
	return m.client.Ping(probeCtx, readpref.Primary())
}

// HealthCheck pings and logs the failure.
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.Ping(ctx); err != nil {
		m.logger.Error("mongodb health check failed", slog.String("error", err.Error()))
		return fmt.Errorf("mongodb health check failed: %w", err)
	}
	return nil
}

// EnsureIndexes creates the sales-order indexes. Existing identical indexes
// are left untouched by the server.
func (m *Manager) EnsureIndexes(ctx context.Context) error {
	if !m.Connected() {
		return m.Err()
	}
	coll := m.collections[m.cfg.Collections.SalesOrders]
	names, err := coll.Indexes().CreateMany(ctx, salesOrderIndexes)
	if err != nil {
		return fmt.Errorf("create indexes on %s: %w", m.cfg.Collections.SalesOrders, err)
	}
	m.logger.Debug("indexes created", slog.Any("names", names))
	return nil
}

// ListCollections returns the names of every collection in the database.
func (m *Manager) ListCollections(ctx context.Context) ([]string, error) {
	if !m.Connected() {
		return nil, m.Err()
	}
	names, err := m.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return names, nil
}

// EstimatedCount returns the metadata-based document count of a configured
// collection.
func (m *Manager) EstimatedCount(ctx context.Context, name string) (int64, error) {
	if !m.Connected() {
		return 0, m.Err()
	}
	coll, ok := m.collections[name]
	if !ok {
		return 0, fmt.Errorf("collection %q is not configured", name)
	}
	return coll.EstimatedDocumentCount(ctx)
}

// Close disconnects the client. It is safe to call more than once and on a
// disconnected manager.
func (m *Manager) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to close mongodb connection: %w", err)
	}
	m.logger.Info("mongodb connection closed")
	return nil
}

func (m *Manager) logCounts(ctx context.Context) {
	if !m.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	for _, name := range collectionNames(m.cfg.Collections) {
		n, err := m.collections[name].EstimatedDocumentCount(ctx)
		if err != nil {
			m.logger.Warn("failed to count collection", slog.String("collection", name), slog.String("error", err.Error()))
			continue
		}
		m.logger.Debug("collection size", slog.String("collection", name), slog.Int64("documents", n))
	}
}

// withProbeTimeout bounds a probe by the configured probe timeout. An earlier
// deadline already on ctx still applies.
func (m *Manager) withProbeTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.cfg.ProbeTimeout())
}

func collectionNames(c config.CollectionsConfig) []string {
	return []string{c.SalesOrders, c.PurchaseOrders, c.StockTransfers, c.TargetOrders}
}
