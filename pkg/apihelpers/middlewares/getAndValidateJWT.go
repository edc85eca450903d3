package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	jwthandling "github.com/falanarofako/backend-conversational-survey/pkg/jwt-handling"
	"github.com/gin-gonic/gin"
)

const (
	HeaderAuthorization = "Authorization"

	CONTEXT_KEY_TOKEN           = "token"
	CONTEXT_KEY_VALIDATED_TOKEN = "validatedToken"
)

// GetAndValidateRespondentJWT extracts the bearer token and stores the validated claims on the context.
func GetAndValidateRespondentJWT(tokenSignKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil {
			slog.Warn("no Authorization token found")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		parsedToken, ok, err := jwthandling.ValidateRespondentToken(token, tokenSignKey)
		if err != nil || !ok {
			msg := "invalid claims"
			if err != nil {
				msg = err.Error()
			}
			slog.Warn("token validation failed", slog.String("error", msg))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "error during token validation"})
			c.Abort()
			return
		}
		c.Set(CONTEXT_KEY_TOKEN, token)
		c.Set(CONTEXT_KEY_VALIDATED_TOKEN, parsedToken)
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, error) {
	req := c.Request

	var token string
	tokens, ok := req.Header[HeaderAuthorization]
	if ok && len(tokens) > 0 {
		token = tokens[0]
		token = strings.TrimPrefix(token, "Bearer ")
		if len(token) == 0 {
			return token, errors.New("No token found in Authorization header")
		}
	} else {
		return token, errors.New("No Authorization header found")
	}
	return token, nil
}
