package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwthandling "github.com/falanarofako/backend-conversational-survey/pkg/jwt-handling"
	"github.com/gin-gonic/gin"
)

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		subject := ""
		if v, ok := c.Get(CONTEXT_KEY_VALIDATED_TOKEN); ok {
			subject = v.(*jwthandling.RespondentClaims).Subject
		}
		c.JSON(http.StatusOK, gin.H{"subject": subject})
	})
	r.POST("/", handlers...)
	return r
}

func TestGetAndValidateRespondentJWT(t *testing.T) {
	key := "sign-key"
	router := newTestRouter(GetAndValidateRespondentJWT(key))
	valid, _ := jwthandling.GenerateNewRespondentToken(time.Minute, "user-7", "", key)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusBadRequest},
		{"empty bearer", "Bearer ", http.StatusBadRequest},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set(HeaderAuthorization, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if tt.status == http.StatusOK && !strings.Contains(w.Body.String(), "user-7") {
				t.Errorf("subject missing: %s", w.Body.String())
			}
		})
	}
}

func TestRequirePayload(t *testing.T) {
	router := newTestRouter(RequirePayload())

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing payload", "", http.StatusBadRequest},
		{"chat message", `{"message":"x"}`, http.StatusOK},
		{"too large", `{"message":"` + strings.Repeat("a", MAX_PAYLOAD_BYTES) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.body != "" {
				req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestHasValidAPIKey(t *testing.T) {
	router := newTestRouter(HasValidAPIKey([]string{"k1", "k2"}))

	tests := []struct {
		name   string
		keys   []string
		status int
	}{
		{"missing header", nil, http.StatusBadRequest},
		{"known key", []string{"k2"}, http.StatusOK},
		{"one of several", []string{"nope", "k1"}, http.StatusOK},
		{"unknown key", []string{"nope"}, http.StatusUnauthorized},
		{"empty key", []string{""}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			for _, k := range tt.keys {
				req.Header.Add(HeaderAPIKey, k)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, w.Code)
			}
		})
	}
}
