package jwthandling

import (
	"testing"
	"time"
)

func TestRespondentToken(t *testing.T) {
	key := "test-sign-key"

	t.Run("round trip", func(t *testing.T) {
		token, err := GenerateNewRespondentToken(time.Minute, "user-1", "Budi", key)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		claims, ok, err := ValidateRespondentToken(token, key)
		if err != nil || !ok {
			t.Fatalf("token should be valid: %v", err)
		}
		if claims.Subject != "user-1" || claims.DisplayName != "Budi" {
			t.Errorf("unexpected claims: %+v", claims)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		token, _ := GenerateNewRespondentToken(time.Minute, "user-1", "", key)
		_, ok, err := ValidateRespondentToken(token, "other-key")
		if ok || err == nil {
			t.Error("should produce error")
		}
	})

	t.Run("expired", func(t *testing.T) {
		token, _ := GenerateNewRespondentToken(-time.Minute, "user-1", "", key)
		_, ok, err := ValidateRespondentToken(token, key)
		if ok || err == nil {
			t.Error("should produce error")
		}
	})

	t.Run("missing user", func(t *testing.T) {
		if _, err := GenerateNewRespondentToken(time.Minute, "", "", key); err == nil {
			t.Error("should produce error")
		}
	})
}
