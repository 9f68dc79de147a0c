package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/logger"
)

// Response codes carried in the envelope alongside the HTTP status.
const (
	CodeOK                   = 0
	CodeBadRequest           = 40000
	CodeInternalServer       = 50000
	CodeEmbeddingUnavailable = 50301
	CodeIndexUnavailable     = 50302
)

// APIResponse is the envelope for every response body.
type APIResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OK writes a 200 response.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

// Error writes an error response.
func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// fail maps a service error onto a status code.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedType):
		Error(c, http.StatusBadRequest, CodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		Error(c, http.StatusServiceUnavailable, CodeEmbeddingUnavailable, err.Error())
	case errors.Is(err, domain.ErrVectorIndexUnavailable):
		Error(c, http.StatusServiceUnavailable, CodeIndexUnavailable, err.Error())
	default:
		logger.Warn("http: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		Error(c, http.StatusInternalServerError, CodeInternalServer, "internal error")
	}
}
