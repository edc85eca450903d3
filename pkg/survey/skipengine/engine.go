// Package skipengine decides which questions apply to a respondent, given the
// questionnaire's declarative skip rules and a response log.
package skipengine

import (
	"fmt"
	"sort"

	"github.com/falanarofako/backend-conversational-survey/pkg/survey/catalog"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

const (
	STATUS_ANSWERED    = "answered"
	STATUS_SKIPPED     = "skipped"
	STATUS_NOT_REACHED = "not_reached"
)

type QuestionStatus struct {
	Index        int                  `json:"index"`
	QuestionCode string               `json:"questionCode"`
	Status       string               `json:"status"`
	Value        *types.ResponseValue `json:"value,omitempty"`
	Reason       string               `json:"reason,omitempty"`
	SkippedBy    string               `json:"skippedBy,omitempty"`
}

// Step is the outcome of recording one accepted answer.
type Step struct {
	Next    int
	Skipped []string
	Rules   []types.SkipRule
}

// Engine is stateless after Compile and safe for concurrent use.
type Engine struct {
	catalog   *catalog.Catalog
	rules     []compiledRule // ordered by trigger position, then table order
	byTrigger map[string][]int
}

func Compile(c *catalog.Catalog, rules []types.SkipRule) (*Engine, error) {
	if c == nil {
		return nil, fmt.Errorf("catalog is required")
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		cr, err := compileRule(c, rule)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, cr)
	}
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].trigger < compiled[j].trigger
	})

	byTrigger := map[string][]int{}
	for i, cr := range compiled {
		byTrigger[cr.rule.TriggerCode] = append(byTrigger[cr.rule.TriggerCode], i)
	}

	return &Engine{
		catalog:   c,
		rules:     compiled,
		byTrigger: byTrigger,
	}, nil
}

func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// NextIndex returns the catalog index of the question to ask after currentCode
// was answered with value.
func (e *Engine) NextIndex(currentCode string, value types.ResponseValue) (int, error) {
	step, err := e.Advance(currentCode, value)
	if err != nil {
		return 0, err
	}
	return step.Next, nil
}

// Advance is NextIndex plus the codes that become not applicable. When several
// rules match, their skip sets are merged and the furthest target wins.
func (e *Engine) Advance(currentCode string, value types.ResponseValue) (Step, error) {
	current, ok := e.catalog.IndexOf(currentCode)
	if !ok {
		return Step{}, fmt.Errorf("%s: %w", currentCode, types.ErrQuestionNotFound)
	}

	step := Step{Next: current + 1}
	skipped := map[int]bool{}
	for _, ri := range e.byTrigger[currentCode] {
		cr := e.rules[ri]
		if !cr.rule.MatchesValue(value) {
			continue
		}
		step.Rules = append(step.Rules, cr.rule)
		for _, idx := range cr.skipped {
			skipped[idx] = true
		}
		if cr.nextIndex > step.Next {
			step.Next = cr.nextIndex
		}
	}

	for i := 0; i < e.catalog.Len(); i++ {
		if skipped[i] {
			q, _ := e.catalog.ByIndex(i)
			step.Skipped = append(step.Skipped, q.Code)
		}
	}
	return step, nil
}

// ComputeStatus replays a response log and classifies every catalog question.
// Skip status is derived from the rules alone; N/A entries in the log are not
// needed and a stray answer to a skipped question does not make it answered.
func (e *Engine) ComputeStatus(responses []types.Response) []QuestionStatus {
	latest := make(map[string]types.ResponseValue, len(responses))
	for _, r := range responses {
		if _, ok := e.catalog.IndexOf(r.QuestionCode); !ok {
			continue
		}
		latest[r.QuestionCode] = r.Value
	}

	skipRule := map[int]int{}
	for ri, cr := range e.rules {
		if _, triggerSkipped := skipRule[cr.trigger]; triggerSkipped {
			continue
		}
		value, ok := latest[cr.rule.TriggerCode]
		if !ok || value.IsNotApplicable() || !cr.rule.MatchesValue(value) {
			continue
		}
		for _, idx := range cr.skipped {
			if _, already := skipRule[idx]; !already {
				skipRule[idx] = ri
			}
		}
	}

	statuses := make([]QuestionStatus, e.catalog.Len())
	for i := 0; i < e.catalog.Len(); i++ {
		q, _ := e.catalog.ByIndex(i)
		st := QuestionStatus{
			Index:        i,
			QuestionCode: q.Code,
			Status:       STATUS_NOT_REACHED,
		}

		if ri, skipped := skipRule[i]; skipped {
			st.Status = STATUS_SKIPPED
			st.Reason = e.rules[ri].reason()
			st.SkippedBy = e.rules[ri].rule.TriggerCode
		} else if value, ok := latest[q.Code]; ok && !value.IsNotApplicable() {
			v := value
			st.Status = STATUS_ANSWERED
			st.Value = &v
		}
		statuses[i] = st
	}
	return statuses
}
