package middlewares

import (
	"Cardpack/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
)

// This middleware will be used to populate every incoming request's context with an Unique CorrelationID.
// Which will help to debug an issue which happened between a chain of events during handling a request.
// A correlation id sent by the caller via X-Correlation-ID is kept as is.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(gctx *gin.Context) {
		correlationID := gctx.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = xid.New().String()
		}
		// Setting the correlationID in request's context
		gctx.Set(log.CorrelationIDKey, correlationID)
		// Setting the correlationID to response header
		gctx.Writer.Header().Set("X-Correlation-ID", correlationID)
		gctx.Next()
	}
}
