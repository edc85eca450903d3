// Package resolver renders a catalog question for a respondent: dynamic options
// are computed from earlier answers and placeholder tokens are substituted.
package resolver

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/falanarofako/backend-conversational-survey/pkg/survey/catalog"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

const (
	TOKEN_CURRENT_MONTH  = "bulan_ini"
	TOKEN_PREVIOUS_MONTH = "bulan_lalu"
	TOKEN_CURRENT_YEAR   = "tahun_ini"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

var monthNames = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// ResolutionWarning reports a part of a question that could not be resolved.
// The question is still rendered.
type ResolutionWarning struct {
	QuestionCode string `json:"questionCode"`
	Token        string `json:"token,omitempty"`
	Message      string `json:"message"`
}

func (w ResolutionWarning) Error() string {
	if w.Token != "" {
		return fmt.Sprintf("%s: {%s}: %s", w.QuestionCode, w.Token, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.QuestionCode, w.Message)
}

type Resolver struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

// New creates a resolver. A nil clock means time.Now.
func New(c *catalog.Catalog, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{catalog: c, now: now}
}

// Resolve renders the question at index. Only an out of range index is an error;
// everything else degrades into warnings.
func (r *Resolver) Resolve(index int, responses []types.Response) (types.RenderedQuestion, []ResolutionWarning, error) {
	q, ok := r.catalog.ByIndex(index)
	if !ok {
		return types.RenderedQuestion{}, nil, fmt.Errorf("index %d: %w", index, types.ErrQuestionNotFound)
	}

	warnings := []ResolutionWarning{}
	rendered := types.RenderedQuestion{
		Index:    index,
		Code:     q.Code,
		Category: r.catalog.CategoryOf(q.Code),
		Kind:     q.Kind,
		Question: q,
	}

	if q.HasDynamicOptions() {
		opts, w := r.dynamicOptions(q, responses)
		rendered.Options = opts
		warnings = append(warnings, w...)
	} else if len(q.Options) > 0 {
		rendered.Options = append([]string{}, q.Options...)
	}

	now := r.now()
	text, w := r.substitute(q.Code, q.Text, responses, now)
	rendered.Text = text
	warnings = append(warnings, w...)

	for _, g := range q.Guidelines {
		guideline, w := r.substitute(q.Code, g, responses, now)
		rendered.Guidelines = append(rendered.Guidelines, guideline)
		warnings = append(warnings, w...)
	}

	for _, w := range warnings {
		slog.Warn("question resolved with warning",
			slog.String("questionCode", w.QuestionCode),
			slog.String("token", w.Token),
			slog.String("warning", w.Message),
		)
	}
	return rendered, warnings, nil
}

func (r *Resolver) dynamicOptions(q types.Question, responses []types.Response) ([]string, []ResolutionWarning) {
	source := q.OptionSource
	prior, ok := types.LatestResponse(responses, source.FromQuestion)
	if !ok || prior.IsNotApplicable() || prior.IsEmpty() {
		return []string{}, []ResolutionWarning{{
			QuestionCode: q.Code,
			Message:      fmt.Sprintf("options depend on %s which has no answer", source.FromQuestion),
		}}
	}

	switch source.Mode {
	case types.OPTION_SOURCE_MODE_REGION:
		regions, ok := r.catalog.SubRegions(prior.String())
		if !ok {
			return []string{}, []ResolutionWarning{{
				QuestionCode: q.Code,
				Message:      fmt.Sprintf("no sub regions known for %q", prior.String()),
			}}
		}
		return append([]string{}, regions...), nil
	case types.OPTION_SOURCE_MODE_CARRY:
		return append([]string{}, prior.AsList()...), nil
	default:
		return []string{}, []ResolutionWarning{{
			QuestionCode: q.Code,
			Message:      fmt.Sprintf("unknown option source mode %q", source.Mode),
		}}
	}
}

func (r *Resolver) substitute(code string, template string, responses []types.Response, now time.Time) (string, []ResolutionWarning) {
	var warnings []ResolutionWarning
	out := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		token := match[1 : len(match)-1]
		if value, ok := derivedToken(token, now); ok {
			return value
		}
		if _, known := r.catalog.IndexOf(token); !known {
			warnings = append(warnings, ResolutionWarning{QuestionCode: code, Token: token, Message: "unknown placeholder"})
			return match
		}
		value, ok := types.LatestResponse(responses, token)
		if !ok || value.IsNotApplicable() || value.IsEmpty() {
			warnings = append(warnings, ResolutionWarning{QuestionCode: code, Token: token, Message: "placeholder question not answered"})
			return match
		}
		return value.String()
	})
	return out, warnings
}

func derivedToken(token string, now time.Time) (string, bool) {
	switch token {
	case TOKEN_CURRENT_MONTH:
		return MonthName(now.Month()), true
	case TOKEN_PREVIOUS_MONTH:
		prev := now.Month() - 1
		if prev < time.January {
			prev = time.December
		}
		return MonthName(prev), true
	case TOKEN_CURRENT_YEAR:
		return strconv.Itoa(now.Year()), true
	}
	return "", false
}

// MonthName returns the Indonesian month name.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// Annotate appends the submission time to a raw reply when the question asks for it,
// so relative dates ("kemarin") can be resolved by the extractor.
func Annotate(q types.Question, raw string, submittedAt time.Time) string {
	if !q.AnnotateTimestamp {
		return raw
	}
	return fmt.Sprintf("%s [submitted at %s]", raw, submittedAt.Format(time.RFC3339))
}
