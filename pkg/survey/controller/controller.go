// Package controller runs a survey session turn by turn: it resolves the pending
// question, consults the collaborators, records answers and advances through the
// catalog using the skip engine.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/falanarofako/backend-conversational-survey/pkg/metrics"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/catalog"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/progress"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/resolver"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/skipengine"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

const (
	DEFAULT_FALLBACK_MESSAGE   = "Maaf, saya belum dapat menjawab pertanyaan tersebut saat ini. Mohon jawab pertanyaan survei berikut terlebih dahulu."
	DEFAULT_COMPLETION_MESSAGE = "Terima kasih, survei telah selesai."
)

// SessionStore persists survey sessions. StartSession must return the
// respondent's active session if one exists, and otherwise insert the given one,
// as a single atomic operation.
type SessionStore interface {
	StartSession(session types.SurveySession) (types.SurveySession, bool, error)
	GetSession(sessionID string) (types.SurveySession, error)
	SaveSession(session types.SurveySession) error
}

type Config struct {
	Engine     *skipengine.Engine
	Store      SessionStore
	Classifier types.Classifier
	Extractor  types.Extractor
	// Answerer may be nil; side questions then get the fallback message.
	Answerer types.QuestionAnswerer
	Metrics  *metrics.Metrics
	// Now defaults to time.Now.
	Now               func() time.Time
	FallbackMessage   string
	CompletionMessage string
}

type Controller struct {
	catalog  *catalog.Catalog
	engine   *skipengine.Engine
	resolver *resolver.Resolver
	store    SessionStore

	classifier types.Classifier
	extractor  types.Extractor
	answerer   types.QuestionAnswerer

	metrics           *metrics.Metrics
	now               func() time.Time
	fallbackMessage   string
	completionMessage string
}

func New(cfg Config) (*Controller, error) {
	if cfg.Engine == nil {
		return nil, errors.New("skip engine is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Classifier == nil || cfg.Extractor == nil {
		return nil, errors.New("classifier and extractor are required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.FallbackMessage == "" {
		cfg.FallbackMessage = DEFAULT_FALLBACK_MESSAGE
	}
	if cfg.CompletionMessage == "" {
		cfg.CompletionMessage = DEFAULT_COMPLETION_MESSAGE
	}

	return &Controller{
		catalog:           cfg.Engine.Catalog(),
		engine:            cfg.Engine,
		resolver:          resolver.New(cfg.Engine.Catalog(), cfg.Now),
		store:             cfg.Store,
		classifier:        cfg.Classifier,
		extractor:         cfg.Extractor,
		answerer:          cfg.Answerer,
		metrics:           cfg.Metrics,
		now:               cfg.Now,
		fallbackMessage:   cfg.FallbackMessage,
		completionMessage: cfg.CompletionMessage,
	}, nil
}

type StartResult struct {
	Session  types.SurveySession          `json:"session"`
	Created  bool                         `json:"created"`
	Question *types.RenderedQuestion      `json:"question,omitempty"`
	Warnings []resolver.ResolutionWarning `json:"warnings,omitempty"`
}

// Start returns the respondent's active session, creating one when needed,
// together with the question to ask.
func (c *Controller) Start(userID string) (StartResult, error) {
	if userID == "" {
		return StartResult{}, errors.New("user id is required")
	}

	now := c.now().Unix()
	session, created, err := c.store.StartSession(types.SurveySession{
		UserID:               userID,
		Status:               types.SESSION_STATUS_IN_PROGRESS,
		QuestionnaireVersion: c.catalog.Version(),
		Responses:            []types.Response{},
		CurrentIndex:         0,
		CreatedAt:            now,
		UpdatedAt:            now,
	})
	if err != nil {
		return StartResult{}, &TurnError{Stage: STAGE_PERSIST, Err: err}
	}
	c.metrics.RecordSessionStart(created)
	slog.Info("survey session started", slog.String("sessionID", session.ID.Hex()), slog.String("userID", userID), slog.Bool("created", created))

	result := StartResult{Session: session, Created: created}
	if session.IsCompleted() {
		return result, nil
	}
	q, warnings, err := c.resolver.Resolve(session.CurrentIndex, session.Responses)
	if err != nil {
		return StartResult{}, &TurnError{SessionID: session.ID.Hex(), Stage: STAGE_RESOLVE, Err: err}
	}
	c.metrics.RecordResolveWarnings(len(warnings))
	result.Question = &q
	result.Warnings = warnings
	return result, nil
}

// GetSession returns the stored session and, while it is in progress, the
// pending question.
func (c *Controller) GetSession(sessionID string) (types.SurveySession, *types.RenderedQuestion, error) {
	session, err := c.store.GetSession(sessionID)
	if err != nil {
		return types.SurveySession{}, nil, err
	}
	if session.IsCompleted() {
		return session, nil, nil
	}
	q, _, err := c.resolver.Resolve(session.CurrentIndex, session.Responses)
	if err != nil {
		return session, nil, &TurnError{SessionID: sessionID, Stage: STAGE_RESOLVE, Err: err}
	}
	return session, &q, nil
}

func (c *Controller) GetProgress(sessionID string) (progress.Progress, error) {
	session, err := c.store.GetSession(sessionID)
	if err != nil {
		return progress.Progress{}, err
	}
	return progress.Calculate(c.engine, session.Responses), nil
}

// SubmitTurn processes one respondent message against the pending question.
func (c *Controller) SubmitTurn(ctx context.Context, sessionID string, message string) (TurnResult, error) {
	start := time.Now()
	result, err := c.submitTurn(ctx, sessionID, message)
	if err != nil {
		var turnErr *TurnError
		if errors.As(err, &turnErr) {
			c.metrics.RecordTurnError(turnErr.Stage)
			slog.Error("survey turn failed",
				slog.String("sessionID", sessionID),
				slog.String("questionCode", turnErr.QuestionCode),
				slog.String("stage", turnErr.Stage),
				slog.String("error", turnErr.Err.Error()),
			)
		}
		return result, err
	}
	c.metrics.RecordTurn(result.Kind, time.Since(start))
	return result, nil
}

func (c *Controller) submitTurn(ctx context.Context, sessionID string, message string) (TurnResult, error) {
	session, err := c.store.GetSession(sessionID)
	if err != nil {
		return TurnResult{}, err
	}
	if session.IsCompleted() {
		return TurnResult{}, fmt.Errorf("%s: %w", sessionID, types.ErrSessionAlreadyCompleted)
	}

	current, warnings, err := c.resolver.Resolve(session.CurrentIndex, session.Responses)
	if err != nil {
		return TurnResult{}, &TurnError{SessionID: sessionID, Stage: STAGE_RESOLVE, Err: err}
	}
	c.metrics.RecordResolveWarnings(len(warnings))

	classification, err := c.classifier.Classify(ctx, current, message)
	if err != nil {
		return TurnResult{}, &TurnError{SessionID: sessionID, QuestionCode: current.Code, Stage: STAGE_CLASSIFY, Err: err}
	}

	switch classification.Intent {
	case types.INTENT_EXPECTED_ANSWER:
		return c.recordAnswer(ctx, session, current, message, classification)
	case types.INTENT_QUESTION:
		return c.answerSideQuestion(ctx, session, current, message, classification), nil
	default:
		return clarification(session, current, classification, classification.ClarificationReason), nil
	}
}

func (c *Controller) answerSideQuestion(ctx context.Context, session types.SurveySession, current types.RenderedQuestion, message string, classification types.Classification) TurnResult {
	answer := ""
	if c.answerer != nil {
		var err error
		answer, err = c.answerer.AnswerQuestion(ctx, message)
		if err != nil {
			answer = ""
			slog.Warn("question answering failed, using fallback message",
				slog.String("sessionID", session.ID.Hex()),
				slog.String("questionCode", current.Code),
				slog.String("error", err.Error()),
			)
			c.metrics.RecordTurnError(STAGE_ANSWER)
		}
	}
	if answer == "" {
		answer = c.fallbackMessage
	}

	return TurnResult{
		Kind:           TURN_KIND_ANSWER,
		SessionID:      session.ID.Hex(),
		Message:        answer,
		Question:       &current,
		Classification: &classification,
	}
}

func (c *Controller) recordAnswer(ctx context.Context, session types.SurveySession, current types.RenderedQuestion, message string, classification types.Classification) (TurnResult, error) {
	sessionID := session.ID.Hex()
	now := c.now()

	raw := resolver.Annotate(current.Question, message, now)
	extraction, err := c.extractor.Extract(ctx, current, raw)
	if err != nil {
		return TurnResult{}, &TurnError{SessionID: sessionID, QuestionCode: current.Code, Stage: STAGE_EXTRACT, Err: err}
	}

	if err := current.Question.CheckAnswer(extraction.Value, current.Options); err != nil {
		slog.Debug("extracted value rejected", slog.String("sessionID", sessionID), slog.String("questionCode", current.Code), slog.String("error", err.Error()))
		return clarification(session, current, classification, err.Error()), nil
	}

	step, err := c.engine.Advance(current.Code, extraction.Value)
	if err != nil {
		return TurnResult{}, &TurnError{SessionID: sessionID, QuestionCode: current.Code, Stage: STAGE_RESOLVE, Err: err}
	}

	recorded := []types.Response{{QuestionCode: current.Code, Value: extraction.Value}}
	for _, code := range step.Skipped {
		recorded = append(recorded, types.Response{QuestionCode: code, Value: types.NotApplicableValue()})
	}

	updated := session
	updated.Responses = append(append([]types.Response{}, session.Responses...), recorded...)
	updated.CurrentIndex = step.Next
	updated.UpdatedAt = now.Unix()

	completed := step.Next >= c.catalog.Len()
	if completed {
		updated.Status = types.SESSION_STATUS_COMPLETED
		updated.CompletedAt = now.Unix()
	}

	if err := c.store.SaveSession(updated); err != nil {
		return TurnResult{}, &TurnError{SessionID: sessionID, QuestionCode: current.Code, Stage: STAGE_PERSIST, Err: err}
	}

	result := TurnResult{
		SessionID:      sessionID,
		Classification: &classification,
		Recorded:       recorded,
		Explanation:    extraction.Explanation,
	}

	if completed {
		c.metrics.RecordSessionCompleted()
		slog.Info("survey session completed", slog.String("sessionID", sessionID), slog.String("userID", session.UserID))
		result.Kind = TURN_KIND_COMPLETED
		result.Message = c.completionMessage
		return result, nil
	}

	next, warnings, err := c.resolver.Resolve(updated.CurrentIndex, updated.Responses)
	if err != nil {
		return TurnResult{}, &TurnError{SessionID: sessionID, QuestionCode: current.Code, Stage: STAGE_RESOLVE, Err: err}
	}
	c.metrics.RecordResolveWarnings(len(warnings))

	result.Kind = TURN_KIND_NEXT_QUESTION
	result.Question = &next
	result.Warnings = warnings
	return result, nil
}

func clarification(session types.SurveySession, current types.RenderedQuestion, classification types.Classification, reason string) TurnResult {
	followUp := classification.FollowUpQuestion
	if followUp == "" {
		followUp = current.Text
	}
	return TurnResult{
		Kind:                TURN_KIND_CLARIFICATION,
		SessionID:           session.ID.Hex(),
		Message:             followUp,
		ClarificationReason: reason,
		Question:            &current,
		Classification:      &classification,
	}
}
