package response

import (
	"errors"
	"net/http"

	"github.com/aerocharter/service-flightpath/internal/platform/apperror"
	"github.com/gin-gonic/gin"
)

// Envelope is the JSON body every API response is wrapped in.
type Envelope struct {
	Success bool               `json:"success"`
	Data    interface{}        `json:"data,omitempty"`
	Error   *apperror.AppError `json:"error,omitempty"`
	Meta    *PageMeta          `json:"meta,omitempty"`
}

// PageMeta describes a page of a paginated listing.
type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// Success writes a 200 response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes a 200 response with a page of items.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    items,
		Meta: &PageMeta{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	})
}

// BadRequest writes a 400 validation error.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{Error: apperror.NewValidationError(message)})
}

// Error writes err with the status its code maps to. Errors that are not
// *apperror.AppError are reported as a generic internal error.
func Error(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	appErr := &apperror.AppError{Code: apperror.CodeInternal, Message: "internal server error"}
	if status != http.StatusInternalServerError {
		appErr = &apperror.AppError{Code: apperror.CodeOf(err), Message: messageOf(err)}
	}
	_ = c.Error(err)
	c.JSON(status, Envelope{Error: appErr})
}

func messageOf(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
