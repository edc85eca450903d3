package jwthandling

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Information a token enocodes. The subject is the respondent's user id.
type RespondentClaims struct {
	DisplayName string `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}

func GenerateNewRespondentToken(expiresIn time.Duration, userID string, displayName string, secretKey string) (tokenString string, err error) {
	if userID == "" {
		return "", errors.New("user id missing")
	}
	claims := RespondentClaims{
		displayName,
		jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err = token.SignedString([]byte(secretKey))
	return
}

func ValidateRespondentToken(tokenString string, secretKey string) (claims *RespondentClaims, valid bool, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &RespondentClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if token == nil {
		return
	}
	claims, valid = token.Claims.(*RespondentClaims)
	valid = valid && token.Valid && claims.Subject != ""
	return
}
