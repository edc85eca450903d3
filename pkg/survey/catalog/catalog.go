// Package catalog flattens a questionnaire into its canonical traversal order.
package catalog

import (
	"errors"
	"fmt"

	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

const noParent = -1

type node struct {
	question types.Question
	category string
	parent   int
	children []int
	depth    int
}

// Catalog is immutable once built and safe to share between sessions.
// Layered sub-questions live in the same arena as their parents and are
// addressed by index, parent first, then its children depth-first.
type Catalog struct {
	version string
	nodes   []node
	byCode  map[string]int
	regions map[string][]string
}

func Build(q types.Questionnaire) (*Catalog, error) {
	c := &Catalog{
		version: q.Version,
		nodes:   []node{},
		byCode:  map[string]int{},
		regions: q.Regions,
	}

	for _, cat := range q.Categories {
		for _, question := range cat.Questions {
			if err := c.add(question, cat.Key, noParent, 0); err != nil {
				return nil, err
			}
		}
	}

	if len(c.nodes) == 0 {
		return nil, errors.New("questionnaire has no questions")
	}
	return c, nil
}

func (c *Catalog) add(q types.Question, category string, parent int, depth int) error {
	if q.Code == "" {
		return fmt.Errorf("question without code in category %s", category)
	}
	if _, exists := c.byCode[q.Code]; exists {
		return fmt.Errorf("duplicate question code: %s", q.Code)
	}

	layered := q.Layered
	q.Layered = nil

	idx := len(c.nodes)
	c.nodes = append(c.nodes, node{
		question: q,
		category: category,
		parent:   parent,
		children: []int{},
		depth:    depth,
	})
	c.byCode[q.Code] = idx
	if parent != noParent {
		c.nodes[parent].children = append(c.nodes[parent].children, idx)
	}

	for _, sub := range layered {
		if err := c.add(sub, category, idx, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) Version() string {
	return c.version
}

func (c *Catalog) Len() int {
	return len(c.nodes)
}

func (c *Catalog) ByIndex(i int) (types.Question, bool) {
	if i < 0 || i >= len(c.nodes) {
		return types.Question{}, false
	}
	return c.nodes[i].question, true
}

func (c *Catalog) ByCode(code string) (types.Question, bool) {
	idx, ok := c.byCode[code]
	if !ok {
		return types.Question{}, false
	}
	return c.nodes[idx].question, true
}

func (c *Catalog) IndexOf(code string) (int, bool) {
	idx, ok := c.byCode[code]
	return idx, ok
}

// CategoryOf returns the key of the category a question belongs to.
func (c *Catalog) CategoryOf(code string) string {
	idx, ok := c.byCode[code]
	if !ok {
		return ""
	}
	return c.nodes[idx].category
}

// Parent returns the code of the question owning a layered question.
func (c *Catalog) Parent(code string) (string, bool) {
	idx, ok := c.byCode[code]
	if !ok || c.nodes[idx].parent == noParent {
		return "", false
	}
	return c.nodes[c.nodes[idx].parent].question.Code, true
}

func (c *Catalog) Children(code string) []string {
	idx, ok := c.byCode[code]
	if !ok {
		return nil
	}
	codes := make([]string, 0, len(c.nodes[idx].children))
	for _, child := range c.nodes[idx].children {
		codes = append(codes, c.nodes[child].question.Code)
	}
	return codes
}

// Descendants returns all layered questions below code in traversal order.
func (c *Catalog) Descendants(code string) []string {
	idx, ok := c.byCode[code]
	if !ok {
		return nil
	}
	codes := []string{}
	var walk func(i int)
	walk = func(i int) {
		for _, child := range c.nodes[i].children {
			codes = append(codes, c.nodes[child].question.Code)
			walk(child)
		}
	}
	walk(idx)
	return codes
}

func (c *Catalog) Depth(code string) int {
	idx, ok := c.byCode[code]
	if !ok {
		return 0
	}
	return c.nodes[idx].depth
}

// Codes returns every question code in traversal order.
func (c *Catalog) Codes() []string {
	codes := make([]string, len(c.nodes))
	for i, n := range c.nodes {
		codes[i] = n.question.Code
	}
	return codes
}

// SubRegions returns the sub-region list configured for a parent region.
func (c *Catalog) SubRegions(parent string) ([]string, bool) {
	if c.regions == nil {
		return nil, false
	}
	if list, ok := c.regions[parent]; ok {
		return list, true
	}
	for key, list := range c.regions {
		if types.NormalizeTriggerValue(key) == types.NormalizeTriggerValue(parent) {
			return list, true
		}
	}
	return nil, false
}
