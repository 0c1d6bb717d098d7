package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx response. Fields is only
// populated for validation failures and names each offending field.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// Error sends a standard error response.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	c.JSON(statusCode, ErrorResponse{Error: errorMessage})
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, errorMessage string) {
	Error(c, http.StatusUnauthorized, errorMessage)
}

// InternalServerError sends a 500 Internal Server Error response.
func InternalServerError(c *gin.Context, errorMessage string) {
	Error(c, http.StatusInternalServerError, errorMessage)
}

// ValidationFailed sends a 422 Unprocessable Entity response listing the
// invalid fields.
func ValidationFailed(c *gin.Context, errorMessage string, fields []string) {
	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:  errorMessage,
		Fields: fields,
	})
}
