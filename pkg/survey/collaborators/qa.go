package collaborators

import (
	"context"
	"errors"
	"strings"

	httpclient "github.com/falanarofako/backend-conversational-survey/pkg/http-client"
)

const DEFAULT_QA_PATH = "/v1/query"

type qaRequest struct {
	Query string `json:"query"`
}

type qaResponse struct {
	Answer string `json:"answer"`
}

// HTTPQuestionAnswerer forwards side questions to the retrieval service.
type HTTPQuestionAnswerer struct {
	client *httpclient.Client
	path   string
}

func NewHTTPQuestionAnswerer(client *httpclient.Client, path string) *HTTPQuestionAnswerer {
	if path == "" {
		path = DEFAULT_QA_PATH
	}
	return &HTTPQuestionAnswerer{client: client, path: path}
}

func (a *HTTPQuestionAnswerer) AnswerQuestion(ctx context.Context, raw string) (string, error) {
	var out qaResponse
	if err := a.client.RunHTTPcall(ctx, a.path, qaRequest{Query: raw}, &out); err != nil {
		return "", err
	}
	answer := strings.TrimSpace(out.Answer)
	if answer == "" {
		return "", errors.New("empty answer from QA service")
	}
	return answer, nil
}
