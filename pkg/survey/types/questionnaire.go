package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	QUESTION_KIND_TEXT         = "text"
	QUESTION_KIND_CHOICE       = "choice"
	QUESTION_KIND_MULTI_CHOICE = "multi_choice"
	QUESTION_KIND_DATE         = "date"
)

const (
	OPTION_SOURCE_MODE_REGION = "region"
	OPTION_SOURCE_MODE_CARRY  = "carry"
)

type Questionnaire struct {
	Version    string              `yaml:"version" json:"version"`
	Title      string              `yaml:"title" json:"title"`
	Categories []Category          `yaml:"categories" json:"categories"`
	Regions    map[string][]string `yaml:"regions,omitempty" json:"regions,omitempty"`
	SkipRules  []SkipRule          `yaml:"skip_rules,omitempty" json:"skipRules,omitempty"`
}

type Category struct {
	Key       string     `yaml:"key" json:"key"`
	Name      string     `yaml:"name" json:"name"`
	Questions []Question `yaml:"questions" json:"questions"`
}

type Question struct {
	Code              string        `yaml:"code" json:"code"`
	Text              string        `yaml:"text" json:"text"`
	Guidelines        []string      `yaml:"guidelines,omitempty" json:"guidelines,omitempty"`
	Kind              string        `yaml:"kind" json:"kind"`
	Validation        Validation    `yaml:"validation" json:"validation"`
	Options           []string      `yaml:"options,omitempty" json:"options,omitempty"`
	OptionSource      *OptionSource `yaml:"option_source,omitempty" json:"optionSource,omitempty"`
	AnnotateTimestamp bool          `yaml:"annotate_timestamp,omitempty" json:"annotateTimestamp,omitempty"`
	Layered           []Question    `yaml:"layered,omitempty" json:"layered,omitempty"`
}

// OptionSource marks a question whose options are computed from a prior answer.
type OptionSource struct {
	FromQuestion string `yaml:"from_question" json:"fromQuestion"`
	Mode         string `yaml:"mode" json:"mode"`
}

func (q Question) HasDynamicOptions() bool {
	return q.OptionSource != nil && q.OptionSource.FromQuestion != ""
}

type Validation struct {
	Required  bool     `yaml:"required" json:"required"`
	ValueType string   `yaml:"value_type" json:"valueType"`
	Min       *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Pattern   string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
}

// Check validates an extracted value against the rules of the question.
func (v Validation) Check(value ResponseValue) error {
	if value.IsEmpty() {
		if v.Required {
			return fmt.Errorf("an answer is required")
		}
		return nil
	}

	switch v.ValueType {
	case RESPONSE_VALUE_TYPE_NUMBER:
		num, ok := value.AsNumber()
		if !ok {
			return fmt.Errorf("answer must be a number, got %q", value.String())
		}
		if v.Min != nil && num < *v.Min {
			return fmt.Errorf("answer must be at least %s", strconv.FormatFloat(*v.Min, 'f', -1, 64))
		}
		if v.Max != nil && num > *v.Max {
			return fmt.Errorf("answer must be at most %s", strconv.FormatFloat(*v.Max, 'f', -1, 64))
		}
	case RESPONSE_VALUE_TYPE_TEXT:
		if value.Type == RESPONSE_VALUE_TYPE_LIST {
			return fmt.Errorf("answer must be a single value, got %q", value.String())
		}
	case RESPONSE_VALUE_TYPE_LIST:
		if value.Type != RESPONSE_VALUE_TYPE_LIST {
			return fmt.Errorf("answer must be a list")
		}
	}

	if v.Pattern != "" {
		re, err := regexp.Compile(v.Pattern)
		if err != nil {
			return fmt.Errorf("invalid validation pattern %q: %w", v.Pattern, err)
		}
		if !re.MatchString(value.String()) {
			return fmt.Errorf("answer %q does not match the expected format", value.String())
		}
	}
	return nil
}

// CheckAnswer runs Validation.Check and, for choice questions, requires the value to be one of
// the offered options. An empty options list disables the membership check.
func (q Question) CheckAnswer(value ResponseValue, options []string) error {
	if err := q.Validation.Check(value); err != nil {
		return err
	}
	if len(options) == 0 || value.IsEmpty() || value.IsNotApplicable() {
		return nil
	}

	switch q.Kind {
	case QUESTION_KIND_CHOICE:
		if value.Type == RESPONSE_VALUE_TYPE_LIST {
			return fmt.Errorf("answer must be a single option, got %q", value.String())
		}
		if !isOption(options, value.String()) {
			return fmt.Errorf("answer %q is not one of: %s", value.String(), strings.Join(options, ", "))
		}
	case QUESTION_KIND_MULTI_CHOICE:
		for _, item := range value.AsList() {
			if !isOption(options, item) {
				return fmt.Errorf("answer %q is not one of: %s", item, strings.Join(options, ", "))
			}
		}
	}
	return nil
}

func isOption(options []string, s string) bool {
	s = strings.TrimSpace(s)
	for _, o := range options {
		if strings.EqualFold(s, o) {
			return true
		}
	}
	return false
}

// SkipRule maps an accepted value of a trigger question to the questions it makes inapplicable.
// NextCode optionally names the question to jump to instead of the one after the skipped run.
type SkipRule struct {
	TriggerCode  string   `yaml:"trigger" json:"trigger"`
	TriggerValue string   `yaml:"value" json:"value"`
	SkipCodes    []string `yaml:"skip" json:"skip"`
	NextCode     string   `yaml:"next,omitempty" json:"next,omitempty"`
}

// MatchesValue compares the trigger value case-insensitively, ignoring surrounding whitespace.
func (r SkipRule) MatchesValue(value ResponseValue) bool {
	key, ok := value.TriggerKey()
	if !ok {
		return false
	}
	return key == NormalizeTriggerValue(r.TriggerValue)
}

func NormalizeTriggerValue(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
