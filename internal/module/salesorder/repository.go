package salesorder

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/domain"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/store"
)

// Repository reads the sales-order collection.
type Repository interface {
	// Count returns the number of documents matching filter.
	Count(ctx context.Context, filter bson.D) (int64, error)
	// Find returns matching documents newest first. A limit of 0 means no
	// limit. Documents that fail to decode are logged and left out.
	Find(ctx context.Context, filter bson.D, skip, limit int64) ([]bson.M, error)
	// Distinct returns the distinct values of field across the collection.
	Distinct(ctx context.Context, field string) ([]any, error)
	// AvgProcessingMinutes returns the mean updated_at - created_at of
	// completed orders. ok is false when no order qualifies.
	AvgProcessingMinutes(ctx context.Context) (minutes float64, ok bool, err error)
	// MalformedIDs returns, newest first, the ids of orders whose commercial
	// sub-object is missing or malformed.
	MalformedIDs(ctx context.Context) ([]string, error)
}

// mongoRepository implements Repository on a store.Source.
type mongoRepository struct {
	src        store.Source
	collection string
	logger     *slog.Logger
	metrics    *Metrics
}

// NewRepository creates a Repository over the named collection of src.
func NewRepository(src store.Source, collection string, logger *slog.Logger, metrics *Metrics) Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &mongoRepository{src: src, collection: collection, logger: logger, metrics: metrics}
}

var newestFirst = bson.D{{Key: fieldCreatedAt, Value: -1}}

func (r *mongoRepository) coll() (store.Collection, error) {
	c := r.src.Collection(r.collection)
	if c == nil {
		return nil, domain.ErrUnavailable
	}
	return c, nil
}

func (r *mongoRepository) Count(ctx context.Context, filter bson.D) (int64, error) {
	c, err := r.coll()
	if err != nil {
		return 0, err
	}
	n, err := c.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.collection, err)
	}
	return n, nil
}

func (r *mongoRepository) Find(ctx context.Context, filter bson.D, skip, limit int64) ([]bson.M, error) {
	c, err := r.coll()
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(newestFirst)
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", r.collection, err)
	}
	defer cur.Close(ctx)

	docs := make([]bson.M, 0)
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			r.logger.ErrorContext(ctx, "skipping undecodable sales order",
				slog.String("id", rawID(cur.Current)),
				slog.String("error", err.Error()),
			)
			r.metrics.documentSkipped(skipDecode)
			continue
		}
		docs = append(docs, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", r.collection, err)
	}
	return docs, nil
}

func (r *mongoRepository) Distinct(ctx context.Context, field string) ([]any, error) {
	c, err := r.coll()
	if err != nil {
		return nil, err
	}
	values, err := c.Distinct(ctx, field, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", r.collection, field, err)
	}
	return values, nil
}

func (r *mongoRepository) AvgProcessingMinutes(ctx context.Context) (float64, bool, error) {
	c, err := r.coll()
	if err != nil {
		return 0, false, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: fieldStatus, Value: statusComplete},
			{Key: fieldCreatedAt, Value: bson.D{{Key: "$type", Value: "date"}}},
			{Key: fieldUpdatedAt, Value: bson.D{{Key: "$type", Value: "date"}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg_ms", Value: bson.D{{Key: "$avg", Value: bson.D{
				{Key: "$subtract", Value: bson.A{"$" + fieldUpdatedAt, "$" + fieldCreatedAt}},
			}}}},
		}}},
	}

	cur, err := c.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, false, fmt.Errorf("aggregate %s: %w", r.collection, err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		AvgMs *float64 `bson:"avg_ms"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, false, fmt.Errorf("aggregate %s: %w", r.collection, err)
	}
	if len(rows) == 0 || rows[0].AvgMs == nil {
		return 0, false, nil
	}
	return *rows[0].AvgMs / 60000, true, nil
}

func (r *mongoRepository) MalformedIDs(ctx context.Context) ([]string, error) {
	c, err := r.coll()
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(newestFirst).
		SetProjection(bson.D{{Key: fieldOrderData, Value: 1}})

	cur, err := c.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", r.collection, err)
	}
	defer cur.Close(ctx)

	ids := make([]string, 0)
	for cur.Next(ctx) {
		if malformed(cur.Current) {
			ids = append(ids, rawID(cur.Current))
		}
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", r.collection, err)
	}
	return ids, nil
}
