package models

// SuggestionType represents what kind of follow-up a suggestion proposes
type SuggestionType string

const (
	SuggestionTypeDocument SuggestionType = "document"
	SuggestionTypeAction   SuggestionType = "action"
)

// SuggestionAction describes what the client should do when a suggestion is accepted
type SuggestionAction struct {
	Type       string         `json:"type"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// AISuggestion represents an actionable follow-up rendered next to a consultation
type AISuggestion struct {
	ID          string           `json:"id"`
	Type        SuggestionType   `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Confidence  float64          `json:"confidence"`
	Action      SuggestionAction `json:"action"`
}

// AgentResponse represents the final answer of the consultation pipeline
type AgentResponse struct {
	Response    string         `json:"response"`
	Confidence  float64        `json:"confidence"`
	Suggestions []AISuggestion `json:"suggestions"`
	Sources     []LegalSource  `json:"sources"`
	Reasoning   string         `json:"reasoning"`
}
