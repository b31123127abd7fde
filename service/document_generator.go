package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"lawerapp-backend/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const documentVersion = "1.0"

// Consulter produces a consultation answer for a prompt; Coordinator implements it
type Consulter interface {
	Route(ctx context.Context, query string, lc models.LegalContext) (*models.AgentResponse, error)
}

// GenerateOptions overrides template defaults for one generation
type GenerateOptions struct {
	Format models.OutputFormat
}

// GenerateMetadata describes how a document was produced
type GenerateMetadata struct {
	TemplateID       string              `json:"template_id"`
	TemplateName     string              `json:"template_name"`
	Format           models.OutputFormat `json:"format"`
	Reasoning        string              `json:"reasoning"`
	ProcessingTimeMs int64               `json:"processing_time_ms"`
}

// GenerateResult is a generated document together with its review hints
type GenerateResult struct {
	Document    models.GeneratedDocument `json:"document"`
	Confidence  float64                  `json:"confidence"`
	Suggestions []string                 `json:"suggestions"`
	Warnings    []string                 `json:"warnings"`
	Metadata    GenerateMetadata         `json:"metadata"`
}

// DocumentGenerator validates template input and renders AI-written documents
type DocumentGenerator struct {
	templates *TemplateRegistry
	consulter Consulter
	logger    *zap.Logger
	now       func() time.Time
}

// DocumentGeneratorOption is a functional option for DocumentGenerator
type DocumentGeneratorOption func(*DocumentGenerator)

// DocumentWithLogger sets the logger
func DocumentWithLogger(logger *zap.Logger) DocumentGeneratorOption {
	return func(g *DocumentGenerator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// DocumentWithClock sets the time source used for timestamps and ids
func DocumentWithClock(now func() time.Time) DocumentGeneratorOption {
	return func(g *DocumentGenerator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewDocumentGenerator creates a generator over the given templates and consulter
func NewDocumentGenerator(templates *TemplateRegistry, consulter Consulter, opts ...DocumentGeneratorOption) *DocumentGenerator {
	g := &DocumentGenerator{
		templates: templates,
		consulter: consulter,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces a document from templateID. No generation is attempted
// unless every required field is present and non-blank.
func (g *DocumentGenerator) Generate(ctx context.Context, templateID string, data map[string]any, lc models.LegalContext, opts GenerateOptions) (*GenerateResult, error) {
	ctx, span := tracer.Start(ctx, "documents.generate")
	defer span.End()
	span.SetAttributes(attribute.String("template_id", templateID))

	started := g.now()

	tmpl, err := g.templates.Get(templateID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if missing := missingFields(tmpl.RequiredFields, data); len(missing) > 0 {
		err := &ValidationError{TemplateID: tmpl.ID, Missing: missing}
		g.logger.Info("document input rejected", zap.String("template_id", tmpl.ID), zap.Strings("missing", missing))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	format := opts.Format
	if format == "" {
		format = tmpl.OutputFormat
	}
	formatter, ok := documentFormatters[format]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	prompt, err := g.formatPrompt(tmpl, data, lc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp, err := g.consulter.Route(ctx, prompt, lc)
	if err != nil {
		g.logger.Error("document body generation failed", zap.String("template_id", tmpl.ID), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &GenerationError{Op: "generate document", Err: err}
	}

	generatedAt := g.now()
	content, err := formatter(structureDocument(tmpl, resp.Response, generatedAt))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &GenerationError{Op: "generate document", Err: err}
	}

	result := &GenerateResult{
		Document: models.GeneratedDocument{
			ID:      newDocumentID(generatedAt),
			Content: content,
			Metadata: models.DocumentMetadata{
				TemplateID:  tmpl.ID,
				GeneratedAt: generatedAt,
				Version:     documentVersion,
			},
		},
		Confidence:  clamp01(resp.Confidence),
		Suggestions: documentSuggestions(tmpl),
		Warnings:    documentWarnings(lc),
		Metadata: GenerateMetadata{
			TemplateID:       tmpl.ID,
			TemplateName:     tmpl.Name,
			Format:           format,
			Reasoning:        resp.Reasoning,
			ProcessingTimeMs: g.now().Sub(started).Milliseconds(),
		},
	}

	g.logger.Info("document generated",
		zap.String("document_id", result.Document.ID),
		zap.String("template_id", tmpl.ID),
		zap.String("format", string(format)),
	)
	return result, nil
}

func (g *DocumentGenerator) formatPrompt(tmpl models.DocumentTemplate, data map[string]any, lc models.LegalContext) (string, error) {
	prompt, ok := g.templates.Prompt(tmpl.PromptTemplateID)
	if !ok {
		return "", fmt.Errorf("prompt template %s not registered", tmpl.PromptTemplateID)
	}

	serialized, err := json.Marshal(lc)
	if err != nil {
		return "", fmt.Errorf("failed to serialize legal context: %w", err)
	}

	merged := make(map[string]any, len(data)+2)
	for k, v := range data {
		merged[k] = v
	}
	merged["context"] = string(serialized)
	merged["template_name"] = tmpl.Name

	return prompt.Render(merged), nil
}

// missingFields returns required keys that are absent or blank, in template order
func missingFields(required []string, data map[string]any) []string {
	var missing []string
	for _, field := range required {
		if isBlank(data[field]) {
			missing = append(missing, field)
		}
	}
	return missing
}

func isBlank(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	case []any:
		return len(value) == 0
	case []string:
		return len(value) == 0
	default:
		return false
	}
}

var categorySuggestions = map[models.DocumentCategory][]string{
	models.CategoryClaim: {
		"Приложите копии документов, подтверждающих покупку или задолженность",
		"Направьте претензию заказным письмом с уведомлением о вручении",
		"Сохраните копию претензии с отметкой о получении",
	},
	models.CategoryLawsuit: {
		"Проверьте подсудность и срок исковой давности",
		"Приложите копии искового заявления по числу участников дела",
		"Уточните, освобождены ли вы от уплаты государственной пошлины",
	},
	models.CategoryContract: {
		"Проверьте реквизиты и паспортные данные сторон",
		"Согласуйте существенные условия до подписания",
	},
	models.CategoryStatement: {
		"Уточните адресата заявления и способ его подачи",
	},
	models.CategoryOther: {
		"Проверьте полноту сведений о сторонах",
	},
}

var areaSuggestions = map[models.LegalArea][]string{
	models.AreaConsumerProtection: {"Проверьте соответствие требований Закону РФ «О защите прав потребителей»"},
	models.AreaLabor:              {"Проверьте соответствие документа требованиям Трудового кодекса РФ"},
	models.AreaCivil:              {"Проверьте соответствие документа нормам Гражданского кодекса РФ"},
}

const (
	aiReviewWarning = "Документ создан искусственным интеллектом и требует проверки юристом"
	deadlineWarning = "Дело срочное: проверьте процессуальные сроки и направьте документ как можно скорее"
)

func documentSuggestions(tmpl models.DocumentTemplate) []string {
	suggestions := []string{}
	suggestions = append(suggestions, categorySuggestions[tmpl.Category]...)
	suggestions = append(suggestions, areaSuggestions[tmpl.LegalArea]...)
	return suggestions
}

func documentWarnings(lc models.LegalContext) []string {
	warnings := []string{aiReviewWarning}
	if lc.Urgency == models.UrgencyUrgent {
		warnings = append(warnings, deadlineWarning)
	}
	return warnings
}

// newDocumentID returns "doc_" + base36 unix millis + a 6 char random suffix.
// Collisions are possible within the same millisecond.
func newDocumentID(at time.Time) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return "doc_" + strconv.FormatInt(at.UnixMilli(), 36) + string(suffix)
}
