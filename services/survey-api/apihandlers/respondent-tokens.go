package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/falanarofako/backend-conversational-survey/pkg/apihelpers/middlewares"
	jwthandling "github.com/falanarofako/backend-conversational-survey/pkg/jwt-handling"
)

// AddRespondentTokenAPI lets a trusted frontend exchange a user id for a respondent token.
func (h *HttpEndpoints) AddRespondentTokenAPI(rg *gin.RouterGroup, apiKeys []string) {
	authGroup := rg.Group("/auth")
	authGroup.Use(mw.HasValidAPIKey(apiKeys))
	{
		authGroup.POST("/respondent-token", mw.RequirePayload(), h.issueRespondentToken)
	}
}

type respondentTokenReq struct {
	UserID      string `json:"userId" binding:"required"`
	DisplayName string `json:"displayName"`
}

func (h *HttpEndpoints) issueRespondentToken(c *gin.Context) {
	var req respondentTokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := jwthandling.GenerateNewRespondentToken(h.tokenExpiresIn, req.UserID, req.DisplayName, h.tokenSignKey)
	if err != nil {
		slog.Error("failed to generate respondent token", slog.String("userID", req.UserID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	slog.Info("respondent token issued", slog.String("userID", req.UserID))
	c.JSON(http.StatusOK, gin.H{
		"accessToken": token,
		"expiresIn":   int64(h.tokenExpiresIn.Seconds()),
	})
}
