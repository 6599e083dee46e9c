// Package httputils provides HTTP response helpers.
package httputils

import "github.com/gin-gonic/gin"

// ErrorResponse is the error body shape for all failure responses.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// WriteError writes a JSON error response with the given status.
func WriteError(c *gin.Context, status int, detail string) {
	c.JSON(status, ErrorResponse{Detail: detail})
}

// WriteOK writes a 200 JSON response.
func WriteOK(c *gin.Context, data any) {
	c.JSON(200, data)
}
