package controller

import (
	"fmt"

	"github.com/falanarofako/backend-conversational-survey/pkg/survey/resolver"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

const (
	TURN_KIND_NEXT_QUESTION = "next_question"
	TURN_KIND_CLARIFICATION = "clarification"
	TURN_KIND_ANSWER        = "answer"
	TURN_KIND_COMPLETED     = "completed"
)

const (
	STAGE_RESOLVE  = "resolve"
	STAGE_CLASSIFY = "classify"
	STAGE_EXTRACT  = "extract"
	STAGE_ANSWER   = "answer"
	STAGE_PERSIST  = "persist"
)

type TurnResult struct {
	Kind      string `json:"kind"`
	SessionID string `json:"sessionId"`
	// Message is the follow-up for clarifications, the QA reply for answers and
	// the closing text for completed sessions.
	Message             string                       `json:"message,omitempty"`
	ClarificationReason string                       `json:"clarificationReason,omitempty"`
	Explanation         string                       `json:"explanation,omitempty"`
	Question            *types.RenderedQuestion      `json:"question,omitempty"`
	Classification      *types.Classification        `json:"classification,omitempty"`
	Recorded            []types.Response             `json:"recorded,omitempty"`
	Warnings            []resolver.ResolutionWarning `json:"warnings,omitempty"`
}

// TurnError wraps a collaborator or store failure with the stage it happened in.
type TurnError struct {
	SessionID    string
	QuestionCode string
	Stage        string
	Err          error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("%s failed for session %s question %s: %v", e.Stage, e.SessionID, e.QuestionCode, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}
