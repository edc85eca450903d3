package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	jwthandling "github.com/falanarofako/backend-conversational-survey/pkg/jwt-handling"
)

// MAX_PAYLOAD_BYTES bounds request bodies; turn messages are short chat replies.
const MAX_PAYLOAD_BYTES = 64 << 10

// RequirePayload rejects requests without a body and caps the body size.
func RequirePayload() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength == 0 || c.Request.Body == nil || c.Request.Body == http.NoBody {
			slog.Debug("payload missing", slog.String("route", c.FullPath()), slog.String("userID", requestSubject(c)))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "payload missing"})
			return
		}
		if c.Request.ContentLength > MAX_PAYLOAD_BYTES {
			slog.Warn("payload too large",
				slog.String("route", c.FullPath()),
				slog.String("userID", requestSubject(c)),
				slog.Int64("contentLength", c.Request.ContentLength),
			)
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MAX_PAYLOAD_BYTES)
		c.Next()
	}
}

// requestSubject is the respondent of an already validated token, or empty.
func requestSubject(c *gin.Context) string {
	v, ok := c.Get(CONTEXT_KEY_VALIDATED_TOKEN)
	if !ok {
		return ""
	}
	if claims, ok := v.(*jwthandling.RespondentClaims); ok {
		return claims.Subject
	}
	return ""
}
