package types

import "context"

const (
	INTENT_EXPECTED_ANSWER   = "expected_answer"
	INTENT_UNEXPECTED_ANSWER = "unexpected_answer"
	INTENT_QUESTION          = "question"
	INTENT_OTHER             = "other"
)

// RenderedQuestion is a question after dynamic options and placeholders are resolved.
type RenderedQuestion struct {
	Index      int      `json:"index"`
	Code       string   `json:"code"`
	Category   string   `json:"category,omitempty"`
	Kind       string   `json:"kind"`
	Text       string   `json:"text"`
	Guidelines []string `json:"guidelines,omitempty"`
	Options    []string `json:"options,omitempty"`

	Question Question `json:"-"`
}

type Classification struct {
	Intent              string  `json:"intent"`
	Confidence          float64 `json:"confidence"`
	Explanation         string  `json:"explanation"`
	ClarificationReason string  `json:"clarification_reason,omitempty"`
	FollowUpQuestion    string  `json:"follow_up_question,omitempty"`
}

type Extraction struct {
	Value       ResponseValue `json:"value"`
	Explanation string        `json:"explanation"`
}

// Classifier decides what a free-text reply means relative to the current question.
type Classifier interface {
	Classify(ctx context.Context, question RenderedQuestion, raw string) (Classification, error)
}

// Extractor turns an accepted reply into a typed value.
type Extractor interface {
	Extract(ctx context.Context, question RenderedQuestion, raw string) (Extraction, error)
}

// QuestionAnswerer answers a respondent's side question.
type QuestionAnswerer interface {
	AnswerQuestion(ctx context.Context, raw string) (string, error)
}
