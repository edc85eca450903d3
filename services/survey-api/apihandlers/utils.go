package apihandlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/falanarofako/backend-conversational-survey/pkg/survey/controller"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

func isOwner(sessionUserID string, tokenSubject string) bool {
	return sessionUserID != "" && sessionUserID == tokenSubject
}

// checkSessionOwner writes the error response and returns false when the session
// is missing or belongs to someone else.
func (h *HttpEndpoints) checkSessionOwner(c *gin.Context, sessionID string, userID string) bool {
	session, _, err := h.controller.GetSession(sessionID)
	var turnErr *controller.TurnError
	if err != nil && !errors.As(err, &turnErr) {
		// a resolve failure still carries the stored session
		slog.Warn("failed to get survey session", slog.String("sessionID", sessionID), slog.String("error", err.Error()))
		respondWithError(c, err)
		return false
	}
	if !isOwner(session.UserID, userID) {
		slog.Warn("session not owned by requesting user", slog.String("sessionID", sessionID), slog.String("userID", userID))
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return false
	}
	return true
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrSessionAlreadyCompleted):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	var turnErr *controller.TurnError
	if errors.As(err, &turnErr) {
		switch turnErr.Stage {
		case controller.STAGE_CLASSIFY, controller.STAGE_EXTRACT, controller.STAGE_ANSWER:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}

func respondWithError(c *gin.Context, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	c.JSON(status, gin.H{"error": msg})
}
