package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"lawerapp-backend/models"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	defaultGenerationModel = "gemini-1.5-pro"
	defaultEmbeddingModel  = "text-embedding-004"
	defaultTemperature     = 0.3
	defaultMaxTokens       = 2048
)

// GeminiClient implements the generation service boundary on top of Gemini
type GeminiClient struct {
	client          *genai.Client
	model           string
	embeddingModel  string
	temperature     float32
	maxTokens       int32
	costPer1KTokens float64
	logger          *zap.Logger
}

// GeminiOption is a functional option for GeminiClient
type GeminiOption func(*GeminiClient)

// GeminiWithModel sets the generation model name
func GeminiWithModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		if model != "" {
			g.model = model
		}
	}
}

// GeminiWithEmbeddingModel sets the embedding model name
func GeminiWithEmbeddingModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		if model != "" {
			g.embeddingModel = model
		}
	}
}

// GeminiWithTemperature sets the default sampling temperature
func GeminiWithTemperature(temperature float32) GeminiOption {
	return func(g *GeminiClient) {
		g.temperature = temperature
	}
}

// GeminiWithMaxTokens sets the default output token cap
func GeminiWithMaxTokens(maxTokens int32) GeminiOption {
	return func(g *GeminiClient) {
		if maxTokens > 0 {
			g.maxTokens = maxTokens
		}
	}
}

// GeminiWithCostPer1KTokens sets the price used for cost accounting
func GeminiWithCostPer1KTokens(cost float64) GeminiOption {
	return func(g *GeminiClient) {
		g.costPer1KTokens = cost
	}
}

// GeminiWithLogger sets the logger
func GeminiWithLogger(logger *zap.Logger) GeminiOption {
	return func(g *GeminiClient) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGeminiClient creates a Gemini-backed generation service client
func NewGeminiClient(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g := &GeminiClient{
		client:         client,
		model:          defaultGenerationModel,
		embeddingModel: defaultEmbeddingModel,
		temperature:    defaultTemperature,
		maxTokens:      defaultMaxTokens,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Close releases the underlying client
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// systemInstruction frames every request as a Russian-law consultation
func systemInstruction(lc *models.LegalContext) string {
	var builder strings.Builder
	builder.WriteString("Вы опытный юрист-консультант. Отвечайте на русском языке, ссылайтесь на нормы законодательства, ")
	builder.WriteString("не выдумывайте статьи и номера дел. Если информации недостаточно, прямо скажите об этом.")
	if lc != nil {
		builder.WriteString(fmt.Sprintf("\nЮрисдикция: %s. Отрасль права: %s. Срочность: %s.", lc.Jurisdiction, lc.Area, lc.Urgency))
		if lc.DisputeType != "" {
			builder.WriteString(fmt.Sprintf(" Тип спора: %s.", lc.DisputeType))
		}
	}
	return builder.String()
}

// Complete calls the generation model and derives a confidence from the finish reason
func (g *GeminiClient) Complete(ctx context.Context, prompt string, opts CompletionOptions) (*Completion, error) {
	modelName := g.model
	if opts.Model != "" {
		modelName = opts.Model
	}
	model := g.client.GenerativeModel(modelName)

	temperature := g.temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	model.SetTemperature(temperature)

	maxTokens := g.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	model.SetMaxOutputTokens(maxTokens)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemInstruction(opts.Context)))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, Permanent(ErrEmptyCompletion)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, Permanent(fmt.Errorf("candidate blocked by safety filter"))
	}

	var responseText strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				responseText.WriteString(string(text))
			}
		}
	}
	text := strings.TrimSpace(responseText.String())
	if text == "" {
		return nil, ErrEmptyCompletion
	}

	if candidate.FinishReason != genai.FinishReasonStop {
		g.logger.Warn("candidate finished early", zap.String("finish_reason", candidate.FinishReason.String()))
	}

	completion := &Completion{
		Text:       text,
		Confidence: confidenceFor(candidate.FinishReason),
		Sources:    []models.LegalSource{},
		Model:      modelName,
	}
	if resp.UsageMetadata != nil {
		completion.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
		completion.Cost = float64(completion.TokensUsed) / 1000 * g.costPer1KTokens
	}
	return completion, nil
}

func confidenceFor(reason genai.FinishReason) float64 {
	switch reason {
	case genai.FinishReasonStop:
		return 0.85
	case genai.FinishReasonMaxTokens:
		return 0.6
	default:
		return 0.5
	}
}

// Embed embeds a search query
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, text, genai.TaskTypeRetrievalQuery)
}

// EmbedDocument embeds a passage for indexing
func (g *GeminiClient) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, text, genai.TaskTypeRetrievalDocument)
}

func (g *GeminiClient) embed(ctx context.Context, text string, taskType genai.TaskType) ([]float32, error) {
	em := g.client.EmbeddingModel(g.embeddingModel)
	em.TaskType = taskType

	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, Permanent(errors.New("embedding response has no values"))
	}
	return normalizeEmbedding(res.Embedding.Values), nil
}

// normalizeEmbedding scales a vector to unit L2 norm in place
func normalizeEmbedding(embedding []float32) []float32 {
	var sumSq float64
	for _, v := range embedding {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return embedding
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range embedding {
		embedding[i] /= norm
	}
	return embedding
}

// Classify asks the model to pick exactly one of categories
func (g *GeminiClient) Classify(ctx context.Context, text string, categories []string) (string, error) {
	if len(categories) == 0 {
		return "", Permanent(errors.New("no categories to classify into"))
	}
	prompt := fmt.Sprintf(`Определите категорию юридического вопроса.
Допустимые категории: %s
Ответьте ровно одним словом из списка, без пояснений.

Вопрос: %s`, strings.Join(categories, ", "), text)

	completion, err := g.Complete(ctx, prompt, CompletionOptions{Temperature: 0.01, MaxTokens: 16})
	if err != nil {
		return "", err
	}
	return matchCategory(completion.Text, categories), nil
}

// matchCategory maps a model answer onto categories. An answer outside the
// list is returned normalized so the caller decides how to degrade.
func matchCategory(answer string, categories []string) string {
	label := strings.ToLower(strings.Trim(answer, " \n\t.\"'`"))
	for _, category := range categories {
		if label == strings.ToLower(category) {
			return category
		}
	}
	return label
}

// Complexity asks the model for a structured difficulty estimate
func (g *GeminiClient) Complexity(ctx context.Context, text string) (*ComplexityEstimate, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	prompt := fmt.Sprintf(`Оцените сложность юридического вопроса.
Верните JSON вида {"complexity": "low|medium|high", "estimated_time": <минуты на консультацию>, "requires_expert": true|false}.

Вопрос: %s`, text)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, Permanent(ErrEmptyCompletion)
	}
	raw, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, Permanent(errors.New("complexity response is not text"))
	}
	return parseComplexity(string(raw))
}

func parseComplexity(raw string) (*ComplexityEstimate, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var estimate ComplexityEstimate
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &estimate); err != nil {
		return nil, fmt.Errorf("failed to decode complexity estimate: %w", err)
	}
	switch estimate.Complexity {
	case "low", "medium", "high":
	default:
		estimate.Complexity = "medium"
	}
	if estimate.EstimatedTime < 0 {
		estimate.EstimatedTime = 0
	}
	return &estimate, nil
}
