package http

import (
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request
		c.Next()

		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	}
}

// ForceHTTPSMiddleware redirects plain GET and HEAD navigations to https when a
// proxy reports the original scheme via X-Forwarded-Proto. Upgrade requests
// and requests without the header pass through.
func ForceHTTPSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		r := c.Request
		proto := r.Header.Get("X-Forwarded-Proto")
		if proto == "" || strings.EqualFold(proto, "https") {
			c.Next()
			return
		}
		if r.Method != stdhttp.MethodGet && r.Method != stdhttp.MethodHead {
			c.Next()
			return
		}
		if r.Header.Get("Upgrade") != "" {
			c.Next()
			return
		}

		c.Redirect(stdhttp.StatusMovedPermanently, "https://"+r.Host+r.URL.RequestURI())
		c.Abort()
	}
}
