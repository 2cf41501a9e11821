package records

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/domain"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/store"
)

// Repository reads one collection of stored documents.
type Repository interface {
	// Count returns the number of documents in the collection.
	Count(ctx context.Context) (int64, error)
	// Find returns documents newest first, with _id rendered as a string.
	Find(ctx context.Context, skip, limit int64) ([]domain.Record, error)
}

type mongoRepository struct {
	src        store.Source
	collection string
	logger     *slog.Logger
}

// NewRepository creates a Repository over the named collection of src.
func NewRepository(src store.Source, collection string, logger *slog.Logger) Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &mongoRepository{src: src, collection: collection, logger: logger}
}

func (r *mongoRepository) coll() (store.Collection, error) {
	c := r.src.Collection(r.collection)
	if c == nil {
		return nil, domain.ErrUnavailable
	}
	return c, nil
}

func (r *mongoRepository) Count(ctx context.Context) (int64, error) {
	c, err := r.coll()
	if err != nil {
		return 0, err
	}
	n, err := c.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.collection, err)
	}
	return n, nil
}

func (r *mongoRepository) Find(ctx context.Context, skip, limit int64) ([]domain.Record, error) {
	c, err := r.coll()
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := c.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", r.collection, err)
	}
	defer cur.Close(ctx)

	out := make([]domain.Record, 0)
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			r.logger.ErrorContext(ctx, "skipping undecodable document",
				slog.String("collection", r.collection),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, toRecord(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", r.collection, err)
	}
	return out, nil
}

// toRecord copies doc with its _id rendered as text.
func toRecord(doc bson.M) domain.Record {
	rec := make(domain.Record, len(doc))
	for k, v := range doc {
		rec[k] = v
	}
	switch id := doc["_id"].(type) {
	case nil:
	case primitive.ObjectID:
		rec["_id"] = id.Hex()
	case string:
	default:
		rec["_id"] = fmt.Sprint(id)
	}
	return rec
}
