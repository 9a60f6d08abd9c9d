package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/njchilds90/derivrecon"
)

// Kinds the service adds to derivrecon.ErrorKind.
const (
	kindTimeout     = "timeout"
	kindRateLimited = "rate_limited"
	kindInternal    = "internal"
)

const successMessage = "function successfully reconstructed"

// statusOf maps a reconstruction error onto an HTTP status and kind.
func statusOf(err error) (int, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, kindTimeout
	}
	switch k := derivrecon.KindOf(err); k {
	case derivrecon.KindParse, derivrecon.KindInvalidInput:
		return http.StatusBadRequest, string(k)
	case derivrecon.KindIntegration, derivrecon.KindUnsolvable, derivrecon.KindEvaluation:
		return http.StatusUnprocessableEntity, string(k)
	}
	if errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable, kindTimeout
	}
	return http.StatusInternalServerError, kindInternal
}

func abortWith(c *gin.Context, status int, kind string, err error) {
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error(), Kind: kind, RequestID: requestID(c)})
}

func abortErr(c *gin.Context, err error) {
	status, kind := statusOf(err)
	abortWith(c, status, kind, err)
}
