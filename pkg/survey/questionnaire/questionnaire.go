package questionnaire

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

//go:embed default.yaml
var defaultQuestionnaire []byte

// Default returns the built-in travel questionnaire.
func Default() (types.Questionnaire, error) {
	return Parse(defaultQuestionnaire)
}

// Load reads a questionnaire definition from a YAML file. An empty path selects the built-in one.
func Load(path string) (types.Questionnaire, error) {
	if path == "" {
		slog.Info("no questionnaire file configured, using built-in questionnaire")
		return Default()
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return types.Questionnaire{}, err
	}
	return Parse(content)
}

func Parse(content []byte) (types.Questionnaire, error) {
	q := types.Questionnaire{}
	if err := yaml.UnmarshalStrict(content, &q); err != nil {
		return q, fmt.Errorf("parse questionnaire: %w", err)
	}
	if q.Version == "" {
		return q, fmt.Errorf("questionnaire version is missing")
	}
	return q, nil
}
