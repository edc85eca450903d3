package skipengine

import (
	"fmt"

	"github.com/falanarofako/backend-conversational-survey/pkg/survey/catalog"
	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

// compiledRule is a SkipRule with all codes resolved to catalog indices.
type compiledRule struct {
	rule      types.SkipRule
	trigger   int
	skipped   []int // sorted, includes layered descendants
	nextIndex int
}

func compileRule(c *catalog.Catalog, rule types.SkipRule) (compiledRule, error) {
	trigger, ok := c.IndexOf(rule.TriggerCode)
	if !ok {
		return compiledRule{}, fmt.Errorf("skip rule trigger %s: %w", rule.TriggerCode, types.ErrQuestionNotFound)
	}
	if len(rule.SkipCodes) == 0 && rule.NextCode == "" {
		return compiledRule{}, fmt.Errorf("skip rule %s=%q has neither skip codes nor next code", rule.TriggerCode, rule.TriggerValue)
	}

	seen := map[int]bool{}
	for _, code := range rule.SkipCodes {
		idx, ok := c.IndexOf(code)
		if !ok {
			return compiledRule{}, fmt.Errorf("skip rule %s=%q skips %s: %w", rule.TriggerCode, rule.TriggerValue, code, types.ErrQuestionNotFound)
		}
		if idx <= trigger {
			return compiledRule{}, fmt.Errorf("skip rule %s=%q skips %s which is not after the trigger", rule.TriggerCode, rule.TriggerValue, code)
		}
		seen[idx] = true
		for _, desc := range c.Descendants(code) {
			dIdx, _ := c.IndexOf(desc)
			seen[dIdx] = true
		}
	}

	skipped := make([]int, 0, len(seen))
	for i := 0; i < c.Len(); i++ {
		if seen[i] {
			skipped = append(skipped, i)
		}
	}

	next := trigger + 1
	if rule.NextCode != "" {
		idx, ok := c.IndexOf(rule.NextCode)
		if !ok {
			return compiledRule{}, fmt.Errorf("skip rule %s=%q jumps to %s: %w", rule.TriggerCode, rule.TriggerValue, rule.NextCode, types.ErrQuestionNotFound)
		}
		if idx <= trigger {
			return compiledRule{}, fmt.Errorf("skip rule %s=%q jumps backwards to %s", rule.TriggerCode, rule.TriggerValue, rule.NextCode)
		}
		next = idx
	} else if len(skipped) > 0 {
		next = skipped[len(skipped)-1] + 1
	}

	return compiledRule{
		rule:      rule,
		trigger:   trigger,
		skipped:   skipped,
		nextIndex: next,
	}, nil
}

func (r compiledRule) reason() string {
	return fmt.Sprintf("skipped because %s = %q", r.rule.TriggerCode, r.rule.TriggerValue)
}
