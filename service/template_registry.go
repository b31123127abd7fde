package service

import (
	"fmt"
	"os"

	"lawerapp-backend/models"

	"gopkg.in/yaml.v3"
)

// TemplateRegistry holds document templates and their prompt templates.
// It is read-only after construction.
type TemplateRegistry struct {
	templates []models.DocumentTemplate
	byID      map[string]models.DocumentTemplate
	prompts   map[string]PromptTemplate
}

// NewTemplateRegistry validates and indexes templates. Template ids must be unique
// and every template must reference a known prompt.
func NewTemplateRegistry(templates []models.DocumentTemplate, prompts []PromptTemplate) (*TemplateRegistry, error) {
	r := &TemplateRegistry{
		templates: make([]models.DocumentTemplate, 0, len(templates)),
		byID:      make(map[string]models.DocumentTemplate, len(templates)),
		prompts:   make(map[string]PromptTemplate, len(prompts)),
	}

	for _, p := range prompts {
		if p.ID == "" {
			return nil, fmt.Errorf("prompt template without id")
		}
		if _, exists := r.prompts[p.ID]; exists {
			return nil, fmt.Errorf("duplicate prompt template id: %s", p.ID)
		}
		r.prompts[p.ID] = p
	}

	for _, t := range templates {
		if t.ID == "" {
			return nil, fmt.Errorf("document template without id")
		}
		if _, exists := r.byID[t.ID]; exists {
			return nil, fmt.Errorf("duplicate document template id: %s", t.ID)
		}
		if _, ok := r.prompts[t.PromptTemplateID]; !ok {
			return nil, fmt.Errorf("template %s references unknown prompt %q", t.ID, t.PromptTemplateID)
		}
		if t.OutputFormat == "" {
			t.OutputFormat = models.FormatHTML
		}
		if !t.OutputFormat.Valid() {
			return nil, fmt.Errorf("template %s: %w: %s", t.ID, ErrUnsupportedFormat, t.OutputFormat)
		}
		r.byID[t.ID] = t
		r.templates = append(r.templates, t)
	}
	return r, nil
}

// DefaultTemplateRegistry returns the built-in consumer, labor and civil templates
func DefaultTemplateRegistry() *TemplateRegistry {
	r, err := NewTemplateRegistry(defaultDocumentTemplates(), defaultPromptTemplates())
	if err != nil {
		panic(fmt.Sprintf("built-in templates are invalid: %v", err))
	}
	return r
}

type templateFile struct {
	Templates []models.DocumentTemplate `yaml:"templates"`
	Prompts   []PromptTemplate          `yaml:"prompts"`
}

// LoadTemplateRegistry reads templates and prompts from a YAML file
func LoadTemplateRegistry(path string) (*TemplateRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}

	var file templateFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse templates file %s: %w", path, err)
	}
	if len(file.Templates) == 0 {
		return nil, fmt.Errorf("templates file %s defines no templates", path)
	}
	return NewTemplateRegistry(file.Templates, file.Prompts)
}

// Get returns the template with the given id
func (r *TemplateRegistry) Get(id string) (models.DocumentTemplate, error) {
	t, ok := r.byID[id]
	if !ok {
		return models.DocumentTemplate{}, &TemplateNotFoundError{TemplateID: id}
	}
	return t, nil
}

// Prompt returns the prompt template with the given id
func (r *TemplateRegistry) Prompt(id string) (PromptTemplate, bool) {
	p, ok := r.prompts[id]
	return p, ok
}

// List returns all templates in registration order
func (r *TemplateRegistry) List() []models.DocumentTemplate {
	out := make([]models.DocumentTemplate, len(r.templates))
	copy(out, r.templates)
	return out
}

// ListByArea returns the templates for one legal area
func (r *TemplateRegistry) ListByArea(area models.LegalArea) []models.DocumentTemplate {
	out := []models.DocumentTemplate{}
	for _, t := range r.templates {
		if t.LegalArea == area {
			out = append(out, t)
		}
	}
	return out
}
