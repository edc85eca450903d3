package middlewares

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const HeaderAPIKey = "Api-Key"

// HasValidAPIKey admits requests carrying one of validKeys in the Api-Key header.
// A missing header is a bad request, an unknown key is unauthorized.
func HasValidAPIKey(validKeys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		keysInHeader := c.Request.Header.Values(HeaderAPIKey)
		if len(keysInHeader) < 1 {
			slog.Warn("API key missing", slog.String("route", c.FullPath()), slog.String("clientIP", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "API key missing"})
			return
		}

		for _, k := range keysInHeader {
			if isKnownAPIKey(k, validKeys) {
				c.Next()
				return
			}
		}

		slog.Warn("API key rejected",
			slog.String("route", c.FullPath()),
			slog.String("clientIP", c.ClientIP()),
			slog.Int("keysReceived", len(keysInHeader)),
		)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
	}
}

func isKnownAPIKey(key string, validKeys []string) bool {
	if key == "" {
		return false
	}
	for _, vk := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(vk)) == 1 {
			return true
		}
	}
	return false
}
