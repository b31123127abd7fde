package service

import (
	"context"
	"sync"

	"lawerapp-backend/models"
)

type fakeEmbedder struct {
	mu       sync.Mutex
	vector   []float32
	err      error
	queries  []string
	docCalls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

// fakeDocEmbedder also implements DocumentEmbedder
type fakeDocEmbedder struct {
	fakeEmbedder
}

func (f *fakeDocEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.docCalls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeStore struct {
	mu        sync.Mutex
	results   []models.KnowledgeChunk
	searchErr error
	upsertErr error
	deleteErr error
	stats     *models.KnowledgeStats
	statsErr  error

	lastQuery VectorQuery
	upserted  []models.KnowledgeChunk
	deleted   []string
	calls     []string
}

func (f *fakeStore) SimilaritySearch(ctx context.Context, vector []float32, q VectorQuery) ([]models.KnowledgeChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "search")
	f.lastQuery = q
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakeStore) Upsert(ctx context.Context, chunk models.KnowledgeChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "upsert")
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, chunk)
	return nil
}

func (f *fakeStore) DeleteDocument(ctx context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, documentID)
	kept := f.upserted[:0]
	for _, chunk := range f.upserted {
		if chunk.DocumentID != documentID {
			kept = append(kept, chunk)
		}
	}
	f.upserted = kept
	return nil
}

func (f *fakeStore) Stats(ctx context.Context) (*models.KnowledgeStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.stats, nil
}

type fakeGenerator struct {
	mu         sync.Mutex
	completion *Completion
	err        error
	prompts    []string
	options    []CompletionOptions
}

func (f *fakeGenerator) Complete(ctx context.Context, prompt string, opts CompletionOptions) (*Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.options = append(f.options, opts)
	if f.err != nil {
		return nil, f.err
	}
	return f.completion, nil
}

func (f *fakeGenerator) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakeAnalyzer struct {
	label         string
	classifyErr   error
	estimate      *ComplexityEstimate
	complexityErr error
	categories    []string
	classifyCalls int
}

func (f *fakeAnalyzer) Classify(ctx context.Context, text string, categories []string) (string, error) {
	f.classifyCalls++
	f.categories = categories
	return f.label, f.classifyErr
}

func (f *fakeAnalyzer) Complexity(ctx context.Context, text string) (*ComplexityEstimate, error) {
	return f.estimate, f.complexityErr
}

type fakeSearcher struct {
	results []models.SearchResult
	err     error
	lastCtx models.LegalContext
	opts    SearchOptions
	calls   int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, lc models.LegalContext, opts SearchOptions) ([]models.SearchResult, error) {
	f.calls++
	f.lastCtx = lc
	f.opts = opts
	return f.results, f.err
}

type fakeAgent struct {
	name     string
	priority int
	accepts  func(models.LegalContext) bool
	response *models.AgentResponse
	err      error
	calls    int
}

func (f *fakeAgent) Name() string  { return f.name }
func (f *fakeAgent) Priority() int { return f.priority }

func (f *fakeAgent) CanHandle(lc models.LegalContext) bool {
	return f.accepts(lc)
}

func (f *fakeAgent) ProcessQuery(ctx context.Context, query string, lc models.LegalContext) (*models.AgentResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func acceptsArea(area models.LegalArea) func(models.LegalContext) bool {
	return func(lc models.LegalContext) bool { return lc.Area == area }
}

type fakeConsulter struct {
	response *models.AgentResponse
	err      error
	queries  []string
	contexts []models.LegalContext
}

func (f *fakeConsulter) Route(ctx context.Context, query string, lc models.LegalContext) (*models.AgentResponse, error) {
	f.queries = append(f.queries, query)
	f.contexts = append(f.contexts, lc)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func okCompletion(text string) *Completion {
	return &Completion{Text: text, Confidence: 0.85, Model: "test-model"}
}

func russianContext(area models.LegalArea) models.LegalContext {
	return models.LegalContext{
		Area:         area,
		Jurisdiction: models.JurisdictionRussia,
		Urgency:      models.UrgencyMedium,
	}
}
