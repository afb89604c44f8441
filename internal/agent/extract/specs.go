package extract

import (
	"regexp"
	"strings"

	"github.com/procureflow-core/server/internal/agent/model"
)

// SpecPattern is one named specification pattern. Captured groups are joined
// with a single space to form the stored value.
type SpecPattern struct {
	Kind string
	Re   *regexp.Regexp
}

// DefaultSpecPatterns is the fixed table of named specification patterns.
// The table is data so deployments can extend it without touching the
// pipeline.
var DefaultSpecPatterns = []SpecPattern{
	{Kind: "size", Re: regexp.MustCompile(`(?i)(\d+\s*-?\s*\d+\s*(?:cm|mm|m|inches|feet|"|ft))`)},
	{Kind: "color", Re: regexp.MustCompile(`(?i)(?:color|colour):\s*([a-zA-Z]+)`)},
	{Kind: "container", Re: regexp.MustCompile(`(?i)(container\s*(?:grown|raised|planted))`)},
	{Kind: "quantity", Re: regexp.MustCompile(`(?i)(\d+\s*(?:units|pieces|pcs|count))`)},
	{Kind: "delivery", Re: regexp.MustCompile(`(?i)(delivery|shipping):\s*([^.,!?]+)`)},
}

// keyValueRe catches generic "key: value" pairs such as "height: 90-120cm".
var keyValueRe = regexp.MustCompile(`([a-zA-Z]+):\s*([^.,!?]+)`)

// extractSpecifications applies the named pattern table and the generic
// key:value scan to every user turn. Values land in the candidate's shared
// specifications mapping with append-distinct-ordered semantics.
func (p *Pipeline) extractSpecifications(userTurns []string, candidate *model.ProductCandidate) {
	for _, msg := range userTurns {
		for _, sp := range p.specPatterns {
			for _, m := range sp.Re.FindAllStringSubmatch(msg, -1) {
				candidate.AddSpecification(sp.Kind, joinGroups(m))
			}
		}

		for _, m := range keyValueRe.FindAllStringSubmatch(msg, -1) {
			candidate.AddSpecification(m[1], m[2])
		}
	}
}

func joinGroups(match []string) string {
	parts := make([]string, 0, len(match)-1)
	for _, g := range match[1:] {
		g = strings.TrimSpace(g)
		if g != "" {
			parts = append(parts, g)
		}
	}
	return strings.Join(parts, " ")
}
