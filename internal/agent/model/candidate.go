package model

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ProductCandidate is the best-effort, incrementally accumulated guess at
// what the user wants to buy, before the specification is finalized.
// It is derived state: rebuilt from the conversation's user turns, never
// persisted as primary data.
type ProductCandidate struct {
	Name           string
	Specifications *orderedmap.OrderedMap[string, []string]
}

func NewProductCandidate() *ProductCandidate {
	return &ProductCandidate{
		Specifications: orderedmap.New[string, []string](),
	}
}

// AddSpecification appends value under the given kind, preserving first-seen
// order of both kinds and values and dropping duplicate values.
func (c *ProductCandidate) AddSpecification(kind, value string) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	value = strings.TrimSpace(value)
	if kind == "" || value == "" {
		return
	}
	values, _ := c.Specifications.Get(kind)
	for _, v := range values {
		if v == value {
			return
		}
	}
	c.Specifications.Set(kind, append(values, value))
}

// SpecificationValues returns the stored values for a kind in insertion order.
func (c *ProductCandidate) SpecificationValues(kind string) []string {
	values, _ := c.Specifications.Get(kind)
	return values
}

// SpecificationKinds returns all kinds in first-seen order.
func (c *ProductCandidate) SpecificationKinds() []string {
	kinds := make([]string, 0, c.Specifications.Len())
	for pair := c.Specifications.Oldest(); pair != nil; pair = pair.Next() {
		kinds = append(kinds, pair.Key)
	}
	return kinds
}

// Summary renders the candidate into the short natural-language digest used
// to steer the generation backend. It is never persisted.
func (c *ProductCandidate) Summary() string {
	if c == nil || c.Name == "" {
		return "No product specified yet."
	}

	var sb strings.Builder
	sb.WriteString("Product: ")
	sb.WriteString(c.Name)

	if c.Specifications.Len() > 0 {
		parts := make([]string, 0, c.Specifications.Len())
		for pair := c.Specifications.Oldest(); pair != nil; pair = pair.Next() {
			if len(pair.Value) == 0 {
				continue
			}
			parts = append(parts, pair.Key+": "+strings.Join(pair.Value, ", "))
		}
		if len(parts) > 0 {
			sb.WriteString(". Specifications: ")
			sb.WriteString(strings.Join(parts, "; "))
		}
	}

	return sb.String()
}
