package http

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tbs-timbangan/weighbridge/services/api/session"
)

const (
	sessionKey   = "session"
	requestIDKey = "request_id"

	// SessionHeader carries the caller's role: admin, factory or a station name.
	SessionHeader = "X-Session-Role"
)

// requestLogger replaces gin.Logger with structured zap output and tags each
// request with an id.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDKey, reqID)
		c.Header("X-Request-ID", reqID)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []zap.Field{
			zap.String("request_id", reqID),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if sess, ok := c.Get(sessionKey); ok {
			fields = append(fields, zap.String("role", string(sess.(session.Session).Role)))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}

// sessionMiddleware resolves the session header against the configured
// stations. Unknown roles are rejected.
func sessionMiddleware(stations []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := session.Parse(c.GetHeader(SessionHeader), stations)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
				"code":  "unknown_session",
			})
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func currentSession(c *gin.Context) session.Session {
	if v, ok := c.Get(sessionKey); ok {
		return v.(session.Session)
	}
	return session.Session{}
}

// rateLimitMiddleware allows perSecond requests with a burst of twice that.
func rateLimitMiddleware(perSecond float64) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(perSecond), int(math.Max(1, math.Ceil(perSecond*2))))
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, try again shortly",
				"code":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
