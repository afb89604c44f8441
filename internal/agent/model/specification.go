package model

// FinalizedSpecification is the fully structured product description parsed
// out of a generated reply's fenced json block. Immutable once produced.
type FinalizedSpecification struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Features       []string `json:"features"`
	EstimatedPrice string   `json:"estimatedPrice"`
	Category       string   `json:"category"`
}

// SourcingResult is a single candidate purchase listing returned by the
// sourcing collaborator for a finalized specification.
type SourcingResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}
