package pkg

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/domain"
)

// Envelope status discriminators.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrorResponse is the JSON envelope for every failed request.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Details string `json:"details,omitempty"`
}

// ListResponse is the JSON envelope for paginated listings.
type ListResponse struct {
	Status         string             `json:"status"`
	Data           any                `json:"data"`
	Pagination     *domain.Pagination `json:"pagination,omitempty"`
	FiltersApplied any                `json:"filters_applied,omitempty"`
}

// Success sends a 200 JSON object made of status "success" and the given fields.
func Success(c *gin.Context, fields gin.H) {
	body := gin.H{"status": StatusSuccess}
	for k, v := range fields {
		if k == "status" {
			continue
		}
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// List sends a 200 JSON listing. Pass a nil pagination for unpaged lists and
// nil filters when no filters apply.
func List(c *gin.Context, data any, pagination *domain.Pagination, filters any) {
	c.JSON(http.StatusOK, ListResponse{
		Status:         StatusSuccess,
		Data:           data,
		Pagination:     pagination,
		FiltersApplied: filters,
	})
}

// Error sends a JSON error response. The message is the AppError's message,
// or the error text for any other error. Everything but CodeNotFound is a 500.
func Error(c *gin.Context, err error) {
	status := domain.HTTPStatusCode(err)

	resp := ErrorResponse{
		Status:  StatusError,
		Message: "internal error",
		Type:    domain.KindOf(err),
	}

	var appErr *domain.AppError
	switch {
	case errors.As(err, &appErr):
		resp.Message = appErr.Message
		resp.Details = appErr.Details
	case err != nil:
		resp.Message = err.Error()
	}

	c.JSON(status, resp)
}
