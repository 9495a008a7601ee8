package response

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
)

// Every error response uses the same envelope so clients can switch on the
// machine-readable code in "message" without parsing status text.

// OK sends a 200 response. Arrays/slices are wrapped in {data: [...]}.
func OK(c *gin.Context, data interface{}) {
	if data != nil {
		v := reflect.ValueOf(data)
		if v.Kind() == reflect.Slice {
			c.JSON(http.StatusOK, gin.H{"data": data})
			return
		}
	}
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends a 400 with a machine-readable error code.
func BadRequest(c *gin.Context, code string) {
	abort(c, http.StatusBadRequest, code)
}

// Unauthorized sends a 401.
func Unauthorized(c *gin.Context) {
	abort(c, http.StatusUnauthorized, "unauthorized")
}

// NotFound sends a 404.
func NotFound(c *gin.Context) {
	abort(c, http.StatusNotFound, "not_found")
}

// NotFoundMsg sends a 404 with a specific error code.
func NotFoundMsg(c *gin.Context, code string) {
	abort(c, http.StatusNotFound, code)
}

// Conflict sends a 409 for lost single-use token races.
func Conflict(c *gin.Context, code string) {
	abort(c, http.StatusConflict, code)
}

// UpstreamError sends a 502 when the AI backend or the credential
// verification library failed or timed out.
func UpstreamError(c *gin.Context, code string) {
	abort(c, http.StatusBadGateway, code)
}

// InternalError sends a 500. The error itself is never echoed to the client.
func InternalError(c *gin.Context, _ error) {
	abort(c, http.StatusInternalServerError, "internal")
}

// MethodNotAllowed sends a 405.
func MethodNotAllowed(c *gin.Context) {
	abort(c, http.StatusMethodNotAllowed, "method_not_allowed")
}

func abort(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": 0, "code": status, "message": code})
}
