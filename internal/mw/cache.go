package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache serves GET responses from the ephemeral tier under cache.RouteKey of
// the request URI. Only 2xx responses are stored; the allocation engine drops
// them by prefix when the underlying state changes.
func Cache(store *cache.Store, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cache.RouteKey(c.Request.RequestURI)
		if cached, found := cache.GetAs[cachedResponse](store, key, cache.TierEphemeral); found {
			for k, v := range cached.headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.status)
			_, _ = c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		// Responses built from state older than the next invalidation are not stored.
		gen := store.Generation(cache.TierEphemeral)

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw
		c.Writer.Header().Set("X-Cache", "MISS")

		c.Next()

		if status := blw.Status(); status >= 200 && status < 300 {
			headers := blw.Header().Clone()
			headers.Del("X-Cache")
			store.SetIfCurrent(key, cachedResponse{
				status:  status,
				headers: headers,
				body:    bytes.Clone(blw.body.Bytes()),
			}, ttl, cache.TierEphemeral, gen)
		}
	}
}
