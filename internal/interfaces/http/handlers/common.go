// Package handlers defines the gin handlers of the HTTP interface.  They
// translate wire payloads into application requests and application errors
// into HTTP responses; no domain rules live here.
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fiscaldesk/rateations/pkg/errors"
)

// ErrorResponse is the error body returned on every failure.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps an application error onto its HTTP status.  Internal
// details are masked; the code is enough for a client to branch on.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	message := err.Error()
	if status >= 500 {
		message = "internal server error"
	}

	c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Code: string(code), Message: message})
}

// bindOptionalBody decodes the JSON body when one is present.  Operations
// whose parameters are all optional accept an empty body.
func bindOptionalBody(c *gin.Context, dest interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dest); err != nil {
		return errors.Validation("malformed request body")
	}
	return nil
}

// pathID parses a positive int64 path parameter.
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Validation("invalid " + name)
	}
	return id, nil
}
