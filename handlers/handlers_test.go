package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"lawerapp-backend/models"
	"lawerapp-backend/service"
	"lawerapp-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	mu    sync.Mutex
	text  string
	err   error
	label string
}

func (s *stubGenerator) Complete(ctx context.Context, prompt string, opts service.CompletionOptions) (*service.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &service.Completion{Text: s.text, Confidence: 0.85}, nil
}

func (s *stubGenerator) Classify(ctx context.Context, text string, categories []string) (string, error) {
	if s.label == "" {
		return "", errors.New("classifier unavailable")
	}
	return s.label, nil
}

func (s *stubGenerator) Complexity(ctx context.Context, text string) (*service.ComplexityEstimate, error) {
	return &service.ComplexityEstimate{Complexity: "low", EstimatedTime: 15}, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type stubStore struct {
	mu       sync.Mutex
	chunks   []models.KnowledgeChunk
	upserted int
}

func (s *stubStore) SimilaritySearch(ctx context.Context, vector []float32, q service.VectorQuery) ([]models.KnowledgeChunk, error) {
	return s.chunks, nil
}

func (s *stubStore) Upsert(ctx context.Context, chunk models.KnowledgeChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserted++
	return nil
}

func (s *stubStore) DeleteDocument(ctx context.Context, documentID string) error { return nil }

func (s *stubStore) Stats(ctx context.Context) (*models.KnowledgeStats, error) {
	return &models.KnowledgeStats{TotalDocuments: 1, TotalChunks: 4, LegalAreas: []string{"labor"}}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code          string   `json:"code"`
		Message       string   `json:"message"`
		MissingFields []string `json:"missing_fields"`
	} `json:"error"`
}

type testServer struct {
	router    *gin.Engine
	generator *stubGenerator
	store     *stubStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	generator := &stubGenerator{text: "Ответ юриста", label: "labor"}
	store := &stubStore{chunks: []models.KnowledgeChunk{{
		ID:           uuid.New(),
		DocumentID:   "tk-rf",
		Title:        "Трудовой кодекс РФ",
		Content:      "Статья 81. Расторжение трудового договора по инициативе работодателя",
		LegalArea:    models.AreaLabor,
		Jurisdiction: models.JurisdictionRussia,
		SourceType:   "code",
		Similarity:   0.92,
	}}}
	rag := service.NewRAGService(
		service.RAGWithEmbedder(stubEmbedder{}),
		service.RAGWithVectorStore(store),
		service.RAGWithGenerator(generator),
	)
	registry, err := service.NewAgentRegistry(service.DefaultAgents(service.AgentDeps{Retriever: rag, Generator: generator})...)
	require.NoError(t, err)
	coordinator := service.NewCoordinator(registry, generator, service.CoordinatorWithAnalyzer(generator))

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	templates := service.DefaultTemplateRegistry()

	router := NewRouter(
		NewConsultationHandler(coordinator, nil),
		NewDocumentHandler(templates, service.NewDocumentGenerator(templates, coordinator), service.NewDocumentExporter(files, nil), files, nil),
		NewKnowledgeHandler(rag, nil),
		nil,
	)
	return &testServer{router: router, generator: generator, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateConsultation(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodPost, "/api/consultations", gin.H{
		"query":   "Меня уволили без предупреждения",
		"context": gin.H{"area": "labor"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, env.Success)

	var resp ConsultationResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "Ответ юриста", resp.Response)
	assert.Equal(t, models.JurisdictionRussia, resp.Context.Jurisdiction)
	assert.Equal(t, models.UrgencyMedium, resp.Context.Urgency)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "tk-rf", resp.Sources[0].ID)
	require.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, models.SuggestionTypeDocument, resp.Suggestions[0].Type)
}

func TestCreateConsultationDetectsArea(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodPost, "/api/consultations", gin.H{"query": "Задерживают зарплату"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ConsultationResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, models.AreaLabor, resp.Context.Area)

	s.generator.label = ""
	w, env = s.do(t, http.MethodPost, "/api/consultations", gin.H{"query": "Соседи залили квартиру"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, models.AreaCivil, resp.Context.Area)
}

func TestCreateConsultationFallback(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodPost, "/api/consultations", gin.H{
		"query":   "Как заполнить декларацию 3-НДФЛ?",
		"context": gin.H{"area": "tax"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ConsultationResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "Ответ юриста", resp.Response)
	assert.Empty(t, resp.Suggestions)
	assert.NotEmpty(t, resp.Reasoning)
}

func TestCreateConsultationRejectsInput(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		name string
		body gin.H
		code string
	}{
		{"missing query", gin.H{}, "INVALID_REQUEST"},
		{"blank query", gin.H{"query": "   "}, "INVALID_REQUEST"},
		{"unknown area", gin.H{"query": "q", "context": gin.H{"area": "maritime"}}, "INVALID_LEGAL_AREA"},
		{"unknown jurisdiction", gin.H{"query": "q", "context": gin.H{"jurisdiction": "france"}}, "INVALID_JURISDICTION"},
		{"unknown urgency", gin.H{"query": "q", "context": gin.H{"urgency": "asap"}}, "INVALID_URGENCY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodPost, "/api/consultations", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestCreateConsultationUpstreamFailure(t *testing.T) {
	s := newTestServer(t)
	s.generator.err = errors.New("upstream exploded with secret details")

	w, env := s.do(t, http.MethodPost, "/api/consultations", gin.H{
		"query":   "Вопрос",
		"context": gin.H{"area": "civil"},
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "GENERATION_ERROR", env.Error.Code)
	assert.Equal(t, genericFailureMessage, env.Error.Message)
	assert.NotContains(t, w.Body.String(), "secret details")
}

func TestAnalyzeQuery(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodPost, "/api/consultations/analyze", gin.H{"query": "Уволили"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var analysis service.QueryAnalysis
	require.NoError(t, json.Unmarshal(env.Data, &analysis))
	assert.Equal(t, models.AreaLabor, analysis.Area)
	require.NotNil(t, analysis.Complexity)
	assert.Equal(t, "low", analysis.Complexity.Complexity)
}

func TestAgentHealth(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/api/agents/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report service.HealthReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.True(t, report.Healthy)
	assert.Equal(t, map[string]bool{"consumer_protection": true, "labor": true, "civil": true}, report.Agents)
}

func TestTemplates(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/templates?area=labor", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var templates []models.DocumentTemplate
	require.NoError(t, json.Unmarshal(env.Data, &templates))
	assert.Len(t, templates, 2)

	w, env = s.do(t, http.MethodGet, "/api/templates?area=space", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_LEGAL_AREA", env.Error.Code)

	w, env = s.do(t, http.MethodGet, "/api/templates/debt_claim", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tmpl models.DocumentTemplate
	require.NoError(t, json.Unmarshal(env.Data, &tmpl))
	assert.Equal(t, models.AreaCivil, tmpl.LegalArea)

	w, env = s.do(t, http.MethodGet, "/api/templates/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "TEMPLATE_NOT_FOUND", env.Error.Code)
}

func TestGenerateDocumentValidation(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodPost, "/api/documents/generate", gin.H{
		"template_id": "consumer_claim",
		"data":        gin.H{"seller_name": "ООО «Ромашка»", "demands": []string{}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, []string{"product_description", "problem_description", "demands"}, env.Error.MissingFields)

	w, env = s.do(t, http.MethodPost, "/api/documents/generate", gin.H{
		"template_id": "debt_claim",
		"data":        gin.H{"debtor_name": "Иванов", "debt_amount": 100000, "debt_basis": "расписка"},
		"format":      "odt",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNSUPPORTED_FORMAT", env.Error.Code)
}

func TestGenerateExportDownload(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/documents/generate", gin.H{
		"template_id": "debt_claim",
		"data":        gin.H{"debtor_name": "Иванов И.И.", "debt_amount": 100000, "debt_basis": "расписка от 01.02.2024"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var generated service.GenerateResult
	require.NoError(t, json.Unmarshal(env.Data, &generated))
	assert.True(t, strings.HasPrefix(generated.Document.ID, "doc_"))
	assert.Contains(t, generated.Document.Content, "Ответ юриста")
	assert.Equal(t, "debt_claim", generated.Metadata.TemplateID)

	w, env = s.do(t, http.MethodPost, "/api/documents/export", models.ExportRequest{
		DocumentID: generated.Document.ID,
		Title:      generated.Metadata.TemplateName,
		Content:    generated.Document.Content,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var exported models.ExportResult
	require.NoError(t, json.Unmarshal(env.Data, &exported))
	require.True(t, exported.Success)
	assert.Equal(t, models.FormatHTML, exported.Format)

	downloadURL := (&url.URL{Path: "/api/documents/files/" + exported.StorageKey}).String()
	w, _ = s.do(t, http.MethodGet, downloadURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, generated.Document.Content, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	w, env = s.do(t, http.MethodGet, "/api/documents/files/zz/missing.html", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestExportRejectsBlankDocumentID(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodPost, "/api/documents/export", gin.H{"document_id": " ", "content": "<p>x</p>"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
}

func TestKnowledgeSearch(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/knowledge/search?q="+url.QueryEscape("увольнение")+"&area=labor&limit=3&threshold=0.9", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var results []models.SearchResult
	require.NoError(t, json.Unmarshal(env.Data, &results))
	require.Len(t, results, 1)
	assert.Equal(t, "tk-rf", results[0].Source.ID)
	assert.NotNil(t, results[0].Metadata)

	for _, query := range []string{"", "?q=x&limit=100", "?q=x&threshold=1.5", "?q=x&area=space"} {
		w, _ = s.do(t, http.MethodGet, "/api/knowledge/search"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestKnowledgeIngest(t *testing.T) {
	s := newTestServer(t)
	paragraph := strings.Repeat("Работодатель обязан выплатить компенсацию. ", 3)

	w, env := s.do(t, http.MethodPost, "/api/knowledge/documents", models.KnowledgeDocument{
		ID:        "tk-rf-140",
		Title:     "ТК РФ ст. 140",
		Content:   paragraph + "\n\n" + paragraph,
		LegalArea: models.AreaLabor,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"document_id":"tk-rf-140","chunks":2}`, string(env.Data))

	w, env = s.do(t, http.MethodPut, "/api/knowledge/documents/tk-rf-140", gin.H{
		"title":      "ТК РФ ст. 140",
		"content":    paragraph,
		"legal_area": "labor",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"document_id":"tk-rf-140","chunks":1}`, string(env.Data))

	w, env = s.do(t, http.MethodPost, "/api/knowledge/documents", models.KnowledgeDocument{
		ID: "short", Title: "t", Content: "коротко", LegalArea: models.AreaLabor,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "NO_USABLE_CHUNKS", env.Error.Code)

	w, env = s.do(t, http.MethodPost, "/api/knowledge/documents", models.KnowledgeDocument{
		ID: "x", Title: "t", Content: paragraph, LegalArea: "maritime",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_LEGAL_AREA", env.Error.Code)
	assert.Equal(t, 3, s.store.upserted)
}

func TestKnowledgeUpload(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "zpp.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte(strings.Repeat("Потребитель вправе потребовать замены товара. ", 3)))
	require.NoError(t, err)
	require.NoError(t, form.WriteField("id", "zpp-18"))
	require.NoError(t, form.WriteField("title", "ЗоЗПП ст. 18"))
	require.NoError(t, form.WriteField("legal_area", "consumer_protection"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/knowledge/documents/upload", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w, env := s.serve(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"document_id":"zpp-18","chunks":1}`, string(env.Data))

	req = httptest.NewRequest(http.MethodPost, "/api/knowledge/documents/upload", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w, env = s.serve(t, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILE", env.Error.Code)
}

func TestKnowledgeStats(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/api/knowledge/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_documents":1,"total_chunks":4,"legal_areas":["labor"]}`, string(env.Data))
}
