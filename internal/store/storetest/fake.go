// Package storetest provides in-memory fakes of store.Source and
// store.Collection for handler and service tests.
package storetest

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/store"
)

// Collection is a fake store.Collection over a fixed slice of documents,
// assumed to be stored newest first. Filters are not evaluated: counts come
// from CountFn when set, otherwise the number of documents.
type Collection struct {
	Docs          []bson.M
	Distincts     map[string][]any
	AggregateDocs []any

	CountFn func(filter any) int64

	CountErr     error
	FindErr      error
	DistinctErr  error
	AggregateErr error

	mu      sync.Mutex
	calls   int
	filters []any
}

var _ store.Collection = (*Collection)(nil)

// Calls returns how many operations were issued against the collection.
func (c *Collection) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Filters returns the filters passed to CountDocuments and Find, in order.
func (c *Collection) Filters() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.filters...)
}

func (c *Collection) record(filter any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if filter != nil {
		c.filters = append(c.filters, filter)
	}
}

func (c *Collection) CountDocuments(_ context.Context, filter interface{}, _ ...*options.CountOptions) (int64, error) {
	c.record(filter)
	if c.CountErr != nil {
		return 0, c.CountErr
	}
	if c.CountFn != nil {
		return c.CountFn(filter), nil
	}
	return int64(len(c.Docs)), nil
}

// Find applies the skip and limit of opts to Docs.
func (c *Collection) Find(_ context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	c.record(filter)
	if c.FindErr != nil {
		return nil, c.FindErr
	}

	var skip, limit int64
	for _, o := range opts {
		if o == nil {
			continue
		}
		if o.Skip != nil {
			skip = *o.Skip
		}
		if o.Limit != nil {
			limit = *o.Limit
		}
	}

	docs := make([]interface{}, 0, len(c.Docs))
	for i, d := range c.Docs {
		if int64(i) < skip {
			continue
		}
		if limit > 0 && int64(len(docs)) >= limit {
			break
		}
		docs = append(docs, d)
	}
	return mongo.NewCursorFromDocuments(docs, nil, nil)
}

func (c *Collection) Distinct(_ context.Context, fieldName string, _ interface{}, _ ...*options.DistinctOptions) ([]interface{}, error) {
	c.record(nil)
	if c.DistinctErr != nil {
		return nil, c.DistinctErr
	}
	return c.Distincts[fieldName], nil
}

func (c *Collection) Aggregate(_ context.Context, _ interface{}, _ ...*options.AggregateOptions) (*mongo.Cursor, error) {
	c.record(nil)
	if c.AggregateErr != nil {
		return nil, c.AggregateErr
	}
	return mongo.NewCursorFromDocuments(append([]interface{}(nil), c.AggregateDocs...), nil, nil)
}

// Source is a fake store.Source serving named fake collections.
type Source struct {
	Disconnected bool
	PingErr      error
	Collections  map[string]*Collection

	mu    sync.Mutex
	pings int
}

var _ store.Source = (*Source)(nil)

// NewSource returns a connected Source serving coll under name.
func NewSource(name string, coll *Collection) *Source {
	return &Source{Collections: map[string]*Collection{name: coll}}
}

func (s *Source) Connected() bool {
	return !s.Disconnected
}

func (s *Source) Ping(context.Context) error {
	s.mu.Lock()
	s.pings++
	s.mu.Unlock()
	return s.PingErr
}

// Pings returns how many times Ping was called.
func (s *Source) Pings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

func (s *Source) Collection(name string) store.Collection {
	if s.Disconnected {
		return nil
	}
	c, ok := s.Collections[name]
	if !ok || c == nil {
		return nil
	}
	return c
}
