package apihandlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/falanarofako/backend-conversational-survey/pkg/apihelpers/middlewares"
	jwthandling "github.com/falanarofako/backend-conversational-survey/pkg/jwt-handling"
)

func (h *HttpEndpoints) AddSurveySessionAPI(rg *gin.RouterGroup) {
	sessionsGroup := rg.Group("/survey/sessions")
	sessionsGroup.Use(mw.GetAndValidateRespondentJWT(h.tokenSignKey))
	{
		sessionsGroup.POST("", h.startSession)
		sessionsGroup.GET("/:sessionID", h.getSession)
		sessionsGroup.POST("/:sessionID/turns", mw.RequirePayload(), h.submitTurn)
		sessionsGroup.GET("/:sessionID/progress", h.getProgress)
	}
}

func (h *HttpEndpoints) startSession(c *gin.Context) {
	token := c.MustGet(mw.CONTEXT_KEY_VALIDATED_TOKEN).(*jwthandling.RespondentClaims)

	result, err := h.controller.Start(token.Subject)
	if err != nil {
		slog.Error("failed to start survey session", slog.String("userID", token.Subject), slog.String("error", err.Error()))
		respondWithError(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (h *HttpEndpoints) getSession(c *gin.Context) {
	token := c.MustGet(mw.CONTEXT_KEY_VALIDATED_TOKEN).(*jwthandling.RespondentClaims)
	sessionID := c.Param("sessionID")

	session, question, err := h.controller.GetSession(sessionID)
	if err != nil {
		slog.Warn("failed to get survey session", slog.String("sessionID", sessionID), slog.String("error", err.Error()))
		respondWithError(c, err)
		return
	}
	if !isOwner(session.UserID, token.Subject) {
		slog.Warn("session not owned by requesting user", slog.String("sessionID", sessionID), slog.String("userID", token.Subject))
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session, "question": question})
}

type submitTurnReq struct {
	Message string `json:"message" binding:"required"`
}

func (h *HttpEndpoints) submitTurn(c *gin.Context) {
	token := c.MustGet(mw.CONTEXT_KEY_VALIDATED_TOKEN).(*jwthandling.RespondentClaims)
	sessionID := c.Param("sessionID")

	var req submitTurnReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.checkSessionOwner(c, sessionID, token.Subject) {
		return
	}

	ctx := c.Request.Context()
	if h.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.turnTimeout)
		defer cancel()
	}

	result, err := h.controller.SubmitTurn(ctx, sessionID, req.Message)
	if err != nil {
		slog.Error("failed to process turn", slog.String("sessionID", sessionID), slog.String("userID", token.Subject), slog.String("error", err.Error()))
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *HttpEndpoints) getProgress(c *gin.Context) {
	token := c.MustGet(mw.CONTEXT_KEY_VALIDATED_TOKEN).(*jwthandling.RespondentClaims)
	sessionID := c.Param("sessionID")

	if !h.checkSessionOwner(c, sessionID, token.Subject) {
		return
	}

	p, err := h.controller.GetProgress(sessionID)
	if err != nil {
		slog.Error("failed to compute progress", slog.String("sessionID", sessionID), slog.String("error", err.Error()))
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
