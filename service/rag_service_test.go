package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"lawerapp-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func knowledgeChunk(documentID string, similarity float64) models.KnowledgeChunk {
	return models.KnowledgeChunk{
		ID:           uuid.New(),
		DocumentID:   documentID,
		Section:      1,
		Title:        "Закон о защите прав потребителей",
		Content:      "Потребитель вправе отказаться от исполнения договора купли-продажи",
		LegalArea:    models.AreaConsumerProtection,
		Jurisdiction: models.JurisdictionRussia,
		Authority:    "Государственная Дума",
		SourceType:   "law",
		Metadata:     map[string]any{"article": "18"},
		Similarity:   similarity,
	}
}

func longParagraph(prefix string) string {
	return prefix + " " + strings.Repeat("норма права ", 8)
}

func TestSearchAppliesDefaultsAndFilters(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	store := &fakeStore{}
	rag := NewRAGService(RAGWithEmbedder(embedder), RAGWithVectorStore(store))

	lc := russianContext(models.AreaLabor)
	lc.DisputeType = "dismissal"
	results, err := rag.Search(context.Background(), "увольнение", lc, SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.Equal(t, []string{"увольнение"}, embedder.queries)
	assert.Equal(t, VectorQuery{
		Limit:     10,
		Threshold: 0.7,
		Filters: VectorFilters{
			LegalArea:    models.AreaLabor,
			Jurisdiction: models.JurisdictionRussia,
			DisputeType:  "dismissal",
		},
	}, store.lastQuery)
}

func TestSearchDropsBelowThresholdAndTruncates(t *testing.T) {
	store := &fakeStore{results: []models.KnowledgeChunk{
		knowledgeChunk("a", 0.95),
		knowledgeChunk("b", 0.5),
		knowledgeChunk("c", 0.9),
		knowledgeChunk("d", 0.85),
	}}
	rag := NewRAGService(RAGWithEmbedder(&fakeEmbedder{}), RAGWithVectorStore(store))

	results, err := rag.Search(context.Background(), "возврат", russianContext(models.AreaConsumerProtection), SearchOptions{
		Limit:     2,
		Threshold: 0.8,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Source.ID)
	assert.Equal(t, "c", results[1].Source.ID)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Relevance, 0.8)
		assert.Nil(t, r.Metadata)
	}
}

func TestSearchResultMapping(t *testing.T) {
	chunk := knowledgeChunk("zpp-18", 0.91)
	chunk.Content = strings.Repeat("я", 250)
	url := "https://example.org/zpp"
	chunk.SourceURL = &url
	chunk.UpdatedAt = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rag := NewRAGService(RAGWithEmbedder(&fakeEmbedder{}), RAGWithVectorStore(&fakeStore{results: []models.KnowledgeChunk{chunk}}))

	results, err := rag.Search(context.Background(), "q", russianContext(models.AreaConsumerProtection), DefaultSearchOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, chunk.ID.String(), r.ID)
	assert.Equal(t, 0.91, r.Relevance)
	assert.Equal(t, "zpp-18", r.Source.ID)
	assert.Equal(t, "law", r.Source.Type)
	assert.Equal(t, "18", r.Source.Article)
	assert.Equal(t, url, r.Source.URL)
	assert.Equal(t, strings.Repeat("я", 200), r.Source.Excerpt)
	require.NotNil(t, r.Metadata)
	assert.Equal(t, "Государственная Дума", r.Metadata.Authority)
	assert.Equal(t, models.AreaConsumerProtection, r.Metadata.LegalArea)
	assert.Equal(t, chunk.UpdatedAt, r.Metadata.LastUpdated)
}

func TestSearchFailures(t *testing.T) {
	t.Run("embedding", func(t *testing.T) {
		rag := NewRAGService(RAGWithEmbedder(&fakeEmbedder{err: errors.New("quota")}), RAGWithVectorStore(&fakeStore{}))
		_, err := rag.Search(context.Background(), "q", russianContext(models.AreaCivil), SearchOptions{})

		var retrievalErr *RetrievalError
		require.ErrorAs(t, err, &retrievalErr)
		assert.Equal(t, "knowledge search failed", retrievalErr.Op)
		assert.Contains(t, err.Error(), "quota")
	})

	t.Run("store", func(t *testing.T) {
		rag := NewRAGService(RAGWithEmbedder(&fakeEmbedder{}), RAGWithVectorStore(&fakeStore{searchErr: errors.New("connection refused")}))
		_, err := rag.Search(context.Background(), "q", russianContext(models.AreaCivil), SearchOptions{})

		var retrievalErr *RetrievalError
		require.ErrorAs(t, err, &retrievalErr)
		assert.Equal(t, "RETRIEVAL_ERROR", ErrorCode(err))
	})

	t.Run("unconfigured", func(t *testing.T) {
		_, err := NewRAGService().Search(context.Background(), "q", russianContext(models.AreaCivil), SearchOptions{})
		var retrievalErr *RetrievalError
		assert.ErrorAs(t, err, &retrievalErr)
	})
}

func TestAddDocumentChunksAndStores(t *testing.T) {
	embedder := &fakeDocEmbedder{fakeEmbedder: fakeEmbedder{vector: []float32{1, 0}}}
	store := &fakeStore{}
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("MSK", 3*60*60))
	rag := NewRAGService(RAGWithEmbedder(embedder), RAGWithVectorStore(store))
	rag.now = func() time.Time { return fixed }

	content := longParagraph("Статья 18.") + "\r\n\r\nкоротко\n\n   \n\n" + longParagraph("Статья 19.")
	count, err := rag.AddDocument(context.Background(), models.KnowledgeDocument{
		ID:          "zpp",
		Title:       "Закон о защите прав потребителей",
		Content:     content,
		LegalArea:   models.AreaConsumerProtection,
		DisputeType: "return",
		Authority:   "Государственная Дума",
		SourceType:  "law",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, embedder.docCalls)
	assert.Empty(t, embedder.queries)

	require.Len(t, store.upserted, 2)
	for i, chunk := range store.upserted {
		assert.Equal(t, "zpp", chunk.DocumentID)
		assert.Equal(t, i+1, chunk.Section)
		assert.Equal(t, models.JurisdictionRussia, chunk.Jurisdiction)
		assert.Equal(t, fixed.UTC(), chunk.UpdatedAt)
		assert.Equal(t, 2, chunk.Metadata["total_sections"])
		require.NotNil(t, chunk.DisputeType)
		assert.Equal(t, "return", *chunk.DisputeType)
		assert.Nil(t, chunk.SourceURL)
	}
	assert.True(t, strings.HasPrefix(store.upserted[0].Content, "Статья 18."))
	assert.True(t, strings.HasPrefix(store.upserted[1].Content, "Статья 19."))
	assert.NotEqual(t, store.upserted[0].ID, store.upserted[1].ID)
}

func TestAddDocumentRejectsUnusableContent(t *testing.T) {
	store := &fakeStore{}
	rag := NewRAGService(RAGWithEmbedder(&fakeEmbedder{}), RAGWithVectorStore(store))

	_, err := rag.AddDocument(context.Background(), models.KnowledgeDocument{ID: "short", Content: "слишком коротко\n\nтоже"})
	assert.ErrorIs(t, err, ErrNoUsableChunks)
	var retrievalErr *RetrievalError
	assert.ErrorAs(t, err, &retrievalErr)

	_, err = rag.AddDocument(context.Background(), models.KnowledgeDocument{Content: longParagraph("x")})
	assert.Error(t, err)
	assert.Empty(t, store.upserted)
}

func TestUpdateDocumentDeletesBeforeAdding(t *testing.T) {
	store := &fakeStore{}
	rag := NewRAGService(RAGWithEmbedder(&fakeEmbedder{vector: []float32{1}}), RAGWithVectorStore(store))

	count, err := rag.UpdateDocument(context.Background(), models.KnowledgeDocument{
		ID:        "tk-rf",
		Content:   longParagraph("Статья 81."),
		LegalArea: models.AreaLabor,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"delete", "upsert"}, store.calls)
	assert.Equal(t, []string{"tk-rf"}, store.deleted)

	failing := &fakeStore{deleteErr: errors.New("locked")}
	rag = NewRAGService(RAGWithEmbedder(&fakeEmbedder{}), RAGWithVectorStore(failing))
	_, err = rag.UpdateDocument(context.Background(), models.KnowledgeDocument{ID: "tk-rf", Content: longParagraph("x")})
	var retrievalErr *RetrievalError
	require.ErrorAs(t, err, &retrievalErr)
	assert.Equal(t, "failed to update document", retrievalErr.Op)
	assert.Equal(t, []string{"delete"}, failing.calls)
}

func TestUpdateDocumentLeavesNoStaleChunks(t *testing.T) {
	store := &fakeStore{}
	rag := NewRAGService(RAGWithEmbedder(&fakeEmbedder{vector: []float32{1}}), RAGWithVectorStore(store))
	ctx := context.Background()

	_, err := rag.AddDocument(ctx, models.KnowledgeDocument{
		ID:        "gk-rf",
		Content:   longParagraph("Статья 450.") + "\n\n" + longParagraph("Статья 451."),
		LegalArea: models.AreaCivil,
	})
	require.NoError(t, err)
	require.Len(t, store.upserted, 2)
	oldIDs := map[string]bool{}
	for _, chunk := range store.upserted {
		oldIDs[chunk.ID.String()] = true
	}

	count, err := rag.UpdateDocument(ctx, models.KnowledgeDocument{
		ID:        "gk-rf",
		Content:   longParagraph("Статья 450 в новой редакции."),
		LegalArea: models.AreaCivil,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, store.upserted, 1)
	for _, chunk := range store.upserted {
		assert.False(t, oldIDs[chunk.ID.String()], "stale chunk %s survived the update", chunk.ID)
		assert.True(t, strings.HasPrefix(chunk.Content, "Статья 450 в новой редакции."))
	}
}

func TestStatsDegradesToZero(t *testing.T) {
	rag := NewRAGService(RAGWithVectorStore(&fakeStore{statsErr: errors.New("timeout")}))
	stats := rag.Stats(context.Background())
	require.NotNil(t, stats)
	assert.Zero(t, stats.TotalDocuments)
	assert.Zero(t, stats.TotalChunks)
	assert.NotNil(t, stats.LegalAreas)

	rag = NewRAGService(RAGWithVectorStore(&fakeStore{stats: &models.KnowledgeStats{TotalDocuments: 3, TotalChunks: 42}}))
	stats = rag.Stats(context.Background())
	assert.Equal(t, 3, stats.TotalDocuments)
	assert.Equal(t, 42, stats.TotalChunks)
	assert.Equal(t, []string{}, stats.LegalAreas)
}

func TestGenerateContextualResponse(t *testing.T) {
	store := &fakeStore{results: []models.KnowledgeChunk{knowledgeChunk("zpp", 0.9)}}
	generator := &fakeGenerator{completion: &Completion{Text: "Вы вправе вернуть товар", Confidence: 1.4}}
	rag := NewRAGService(
		RAGWithEmbedder(&fakeEmbedder{}),
		RAGWithVectorStore(store),
		RAGWithGenerator(generator),
	)

	resp, err := rag.GenerateContextualResponse(context.Background(), "Можно ли вернуть товар?", russianContext(models.AreaConsumerProtection))
	require.NoError(t, err)
	assert.Equal(t, 5, store.lastQuery.Limit)
	assert.Equal(t, 0.6, store.lastQuery.Threshold)

	want := "Контекст из базы законодательства:\n" +
		"[Государственная Дума] Закон о защите прав потребителей: Потребитель вправе отказаться от исполнения договора купли-продажи" +
		"\n\nВопрос: Можно ли вернуть товар?"
	assert.Equal(t, want, generator.lastPrompt())
	assert.Equal(t, "Вы вправе вернуть товар", resp.Response)
	assert.Equal(t, 1.0, resp.Confidence)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "zpp", resp.Sources[0].ID)
}

func TestSplitParagraphs(t *testing.T) {
	text := "  " + longParagraph("first") + "  \n \t \n" + "short" + "\n\n" + longParagraph("второй")
	chunks := splitParagraphs(text)
	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[0], "first"))
	assert.True(t, strings.HasPrefix(chunks[1], "второй"))

	assert.Empty(t, splitParagraphs(""))
	assert.Equal(t, "абв", excerpt("абвгд", 3))
	assert.Equal(t, "аб", excerpt("аб", 3))
}
