package records

import (
	"github.com/gin-gonic/gin"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/domain"
	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/pkg"
)

// RecordHandler serves the paged listing of one collection.
type RecordHandler struct {
	svc      domain.RecordService
	maxLimit int
}

// NewRecordHandler creates a RecordHandler. maxLimit caps the page size;
// 0 leaves it unbounded.
func NewRecordHandler(svc domain.RecordService, maxLimit int) *RecordHandler {
	return &RecordHandler{svc: svc, maxLimit: maxLimit}
}

// List handles GET on the collection's listing route.
func (h *RecordHandler) List(c *gin.Context) {
	page, err := h.svc.ListRecords(c.Request.Context(), pkg.ParsePageRequest(c, h.maxLimit))
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.List(c, page.Records, &page.Pagination, nil)
}
