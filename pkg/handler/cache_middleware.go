// GET response caching middleware
package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/threadgate/threadgate/pkg/service"
)

type cachedWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *cachedWriter) Write(p []byte) (int, error) {
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}

// CacheMiddleware serves successful GET responses from the cache and fills
// it on misses. Keys are scoped per user so one tenant never sees another's
// payloads.
func CacheMiddleware(cache service.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKey(c)
		if body, ok := cache.Get(c.Request.Context(), key); ok {
			c.Data(http.StatusOK, "application/json; charset=utf-8", body)
			c.Abort()
			return
		}

		writer := &cachedWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		if writer.Status() == http.StatusOK {
			cache.Set(c.Request.Context(), key, writer.body.Bytes())
		}
	}
}

func cacheKey(c *gin.Context) string {
	userID := ""
	if user := currentUser(c); user != nil {
		userID = user.ID
	}
	return userID + ":" + c.Request.URL.RequestURI()
}
