package models

import "time"

// DocumentCategory represents the kind of legal paper a template produces
type DocumentCategory string

const (
	CategoryClaim     DocumentCategory = "claim"
	CategoryContract  DocumentCategory = "contract"
	CategoryStatement DocumentCategory = "statement"
	CategoryLawsuit   DocumentCategory = "lawsuit"
	CategoryOther     DocumentCategory = "other"
)

// Label returns the Russian display label for the category
func (c DocumentCategory) Label() string {
	switch c {
	case CategoryClaim:
		return "Претензия"
	case CategoryContract:
		return "Договор"
	case CategoryStatement:
		return "Заявление"
	case CategoryLawsuit:
		return "Исковое заявление"
	default:
		return "Документ"
	}
}

// OutputFormat represents the rendition requested for a generated document
type OutputFormat string

const (
	FormatHTML OutputFormat = "html"
	FormatPDF  OutputFormat = "pdf"
	FormatDOCX OutputFormat = "docx"
)

// Valid reports whether the format is supported
func (f OutputFormat) Valid() bool {
	switch f {
	case FormatHTML, FormatPDF, FormatDOCX:
		return true
	}
	return false
}

// DocumentTemplate represents a statically registered document schema
type DocumentTemplate struct {
	ID               string           `json:"id" yaml:"id"`
	Name             string           `json:"name" yaml:"name"`
	Description      string           `json:"description" yaml:"description"`
	LegalArea        LegalArea        `json:"legal_area" yaml:"legal_area"`
	Category         DocumentCategory `json:"category" yaml:"category"`
	RequiredFields   []string         `json:"required_fields" yaml:"required_fields"`
	OptionalFields   []string         `json:"optional_fields" yaml:"optional_fields"`
	PromptTemplateID string           `json:"prompt_template_id" yaml:"prompt_template_id"`
	OutputFormat     OutputFormat     `json:"output_format" yaml:"output_format"`
}

// DocumentMetadata holds generation provenance for a document
type DocumentMetadata struct {
	TemplateID  string    `json:"template_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"version"`
}

// GeneratedDocument represents a document produced by one generation call.
// It is never mutated; regenerating always yields a new record.
type GeneratedDocument struct {
	ID       string           `json:"id"`
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}
