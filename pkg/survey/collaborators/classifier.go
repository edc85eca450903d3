package collaborators

import (
	"context"
	"strings"

	"github.com/falanarofako/backend-conversational-survey/pkg/llm"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

// LLMClassifier classifies replies with a JSON-mode model call.
type LLMClassifier struct {
	client      *llm.Client
	temperature float32
}

func NewLLMClassifier(client *llm.Client, temperature float32) *LLMClassifier {
	return &LLMClassifier{client: client, temperature: temperature}
}

func (c *LLMClassifier) Classify(ctx context.Context, question types.RenderedQuestion, raw string) (types.Classification, error) {
	var out types.Classification
	err := c.client.CompleteJSON(ctx, llm.Request{
		System:      classifierSystemPrompt,
		Prompt:      buildPrompt(question, raw),
		Temperature: c.temperature,
	}, &out)
	if err != nil {
		return types.Classification{}, err
	}
	out.Intent = normalizeIntent(out.Intent)
	if out.Confidence < 0 {
		out.Confidence = 0
	} else if out.Confidence > 1 {
		out.Confidence = 1
	}
	return out, nil
}

func normalizeIntent(intent string) string {
	switch strings.ToLower(strings.TrimSpace(intent)) {
	case types.INTENT_EXPECTED_ANSWER:
		return types.INTENT_EXPECTED_ANSWER
	case types.INTENT_UNEXPECTED_ANSWER:
		return types.INTENT_UNEXPECTED_ANSWER
	case types.INTENT_QUESTION:
		return types.INTENT_QUESTION
	default:
		return types.INTENT_OTHER
	}
}
