// Package records serves the plain paged listings of the purchase-order,
// stock-transfer and target-order collections.
package records

import "github.com/gin-gonic/gin"

// Listing binds a route path under /api to the handler of one collection.
type Listing struct {
	Path    string
	Handler *RecordHandler
}

// RecordsModule implements the app.Module interface for the collection listings.
type RecordsModule struct {
	listings []Listing
}

// NewModule creates a RecordsModule. Panics if any listing has no handler.
func NewModule(listings ...Listing) *RecordsModule {
	for _, l := range listings {
		if l.Handler == nil {
			panic("records.NewModule: handler for " + l.Path + " must not be nil")
		}
	}
	return &RecordsModule{listings: listings}
}

// RegisterRoutes registers one GET route per listing.
func (m *RecordsModule) RegisterRoutes(api *gin.RouterGroup) {
	for _, l := range m.listings {
		api.GET(l.Path, l.Handler.List)
	}
}
