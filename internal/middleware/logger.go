package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ilinks-dev/ilinks/internal/types"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id and logs one line when it
// completes. Handlers reach the tagged entry through utils.Logger.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		requestID := ctx.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		start := time.Now()
		entry := log.WithFields(logrus.Fields{
			"http.req.path":   ctx.Request.URL.Path,
			"http.req.method": ctx.Request.Method,
			"http.req.id":     requestID,
		})

		ctx.Set(types.ContextRequestIDKey, requestID)
		ctx.Set(types.ContextLoggerKey, entry)
		ctx.Header(requestIDHeader, requestID)

		ctx.Next()

		fields := logrus.Fields{
			"http.resp.took_ms": time.Since(start).Milliseconds(),
			"http.resp.status":  ctx.Writer.Status(),
			"http.resp.bytes":   ctx.Writer.Size(),
		}

		if user, ok := ctx.Get(types.ContextUserKey); ok {
			if u, ok := user.(AuthenticatedUser); ok {
				fields["user_id"] = u.ID
			}
		}

		done := entry.WithFields(fields)

		switch {
		case ctx.Writer.Status() >= 500:
			done.Warn("request complete")
		default:
			done.Info("request complete")
		}
	}
}

// BodyLimit caps request bodies at limit bytes.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if limit > 0 && ctx.Request.Body != nil {
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)
		}
		ctx.Next()
	}
}
