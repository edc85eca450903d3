package collaborators

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/falanarofako/backend-conversational-survey/pkg/llm"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

// LLMExtractor pulls a typed value out of an accepted reply.
type LLMExtractor struct {
	client      *llm.Client
	temperature float32
}

func NewLLMExtractor(client *llm.Client, temperature float32) *LLMExtractor {
	return &LLMExtractor{client: client, temperature: temperature}
}

type extractionReply struct {
	Value       json.RawMessage `json:"value"`
	Explanation string          `json:"explanation"`
}

func (e *LLMExtractor) Extract(ctx context.Context, question types.RenderedQuestion, raw string) (types.Extraction, error) {
	var out extractionReply
	err := e.client.CompleteJSON(ctx, llm.Request{
		System:      extractorSystemPrompt,
		Prompt:      buildPrompt(question, raw),
		Temperature: e.temperature,
	}, &out)
	if err != nil {
		return types.Extraction{}, err
	}

	var decoded interface{}
	if len(out.Value) > 0 {
		if err := json.Unmarshal(out.Value, &decoded); err != nil {
			return types.Extraction{}, llm.NewFatalError(fmt.Errorf("decode extracted value: %w", err))
		}
	}
	value, err := types.ResponseValueFromAny(decoded)
	if err != nil {
		return types.Extraction{}, llm.NewFatalError(err)
	}
	return types.Extraction{
		Value:       matchOptions(question, value),
		Explanation: out.Explanation,
	}, nil
}

// matchOptions rewrites extracted text to the exact spelling of a listed option.
// A one-element list for a single choice question becomes plain text.
func matchOptions(question types.RenderedQuestion, value types.ResponseValue) types.ResponseValue {
	if question.Kind == types.QUESTION_KIND_CHOICE && value.Type == types.RESPONSE_VALUE_TYPE_LIST && len(value.List) == 1 {
		value = types.TextValue(value.List[0])
	}
	if len(question.Options) == 0 {
		return value
	}
	canonical := func(s string) string {
		for _, o := range question.Options {
			if strings.EqualFold(strings.TrimSpace(s), o) {
				return o
			}
		}
		return s
	}
	switch value.Type {
	case types.RESPONSE_VALUE_TYPE_TEXT:
		if value.IsNotApplicable() {
			return value
		}
		return types.TextValue(canonical(value.String()))
	case types.RESPONSE_VALUE_TYPE_LIST:
		items := append([]string(nil), value.AsList()...)
		for i := range items {
			items[i] = canonical(items[i])
		}
		return types.ListValue(items)
	}
	return value
}
