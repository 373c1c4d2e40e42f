package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docassist/assistant/internal/store"
)

// keywordEmbedder maps text to counts over a fixed vocabulary, which makes
// similarity rankings deterministic in tests.
type keywordEmbedder struct {
	vocab []string
	err   error
}

func (e *keywordEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(e.vocab))
		lower := strings.ToLower(text)
		for j, word := range e.vocab {
			vec[j] = float32(strings.Count(lower, word))
		}
		out[i] = vec
	}
	return out, nil
}

type stubDocs struct {
	docs []store.Document
	err  error
}

func (s *stubDocs) GetAllDocuments() ([]store.Document, error) { return s.docs, s.err }

type stubSearcher struct {
	snippets []string
	err      error
	queries  []string
}

func (s *stubSearcher) Search(query string, maxResults int) ([]string, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.snippets) > maxResults {
		return s.snippets[:maxResults], nil
	}
	return s.snippets, nil
}

func testEmbedder() *keywordEmbedder {
	return &keywordEmbedder{vocab: []string{"paris", "france", "capital", "berlin", "germany", "cheese"}}
}

func embedDoc(t *testing.T, e Embedder, content string) store.Document {
	t.Helper()
	vecs, err := e.EmbedTexts(context.Background(), []string{content})
	if err != nil {
		t.Fatalf("embed %q: %v", content, err)
	}
	return store.Document{ID: content, Content: content, Embedding: vecs[0]}
}

func TestFetchContextNearestDocumentsFirst(t *testing.T) {
	embedder := testEmbedder()
	docs := &stubDocs{docs: []store.Document{
		embedDoc(t, embedder, "Berlin is the capital of Germany"),
		embedDoc(t, embedder, "Cheese is made from milk"),
		embedDoc(t, embedder, "Paris is the capital of France"),
		embedDoc(t, embedder, "Germany borders France"),
	}}
	searcher := &stubSearcher{}
	rag := NewRAGService(docs, embedder, searcher)

	got, err := rag.FetchContext(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("FetchContext: %v", err)
	}
	if got.Source != SourceDocuments {
		t.Fatalf("source = %q, want %q", got.Source, SourceDocuments)
	}
	if !strings.Contains(got.Text, "Paris is the capital of France") {
		t.Errorf("context misses the nearest document: %q", got.Text)
	}
	if !strings.HasPrefix(got.Text, "Paris is the capital of France") {
		t.Errorf("nearest document is not ranked first: %q", got.Text)
	}
	if strings.Contains(got.Text, "Cheese") {
		t.Errorf("context includes an irrelevant document beyond top-k: %q", got.Text)
	}
	if len(searcher.queries) != 0 {
		t.Errorf("web search ran despite stored documents")
	}
}

func TestFetchContextSingleDocument(t *testing.T) {
	embedder := testEmbedder()
	docs := &stubDocs{docs: []store.Document{
		embedDoc(t, embedder, "Paris is the capital of France"),
	}}
	rag := NewRAGService(docs, embedder, &stubSearcher{})

	got, err := rag.FetchContext(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("FetchContext: %v", err)
	}
	if got.Source != SourceDocuments || !strings.Contains(got.Text, "Paris") {
		t.Errorf("got %+v, want the only stored document", got)
	}
}

func TestFetchContextEmptyStoreFallsBackToWeb(t *testing.T) {
	embedder := testEmbedder()
	searcher := &stubSearcher{snippets: []string{"Paris: capital of France", "France travel guide"}}
	rag := NewRAGService(&stubDocs{}, embedder, searcher)

	got, err := rag.FetchContext(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("FetchContext: %v", err)
	}
	if got.Source != SourceWeb {
		t.Fatalf("source = %q, want %q", got.Source, SourceWeb)
	}
	if !strings.Contains(got.Text, "Paris: capital of France") {
		t.Errorf("web snippets missing from context: %q", got.Text)
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != "What is the capital of France?" {
		t.Errorf("search queries = %v, want the raw question", searcher.queries)
	}
}

func TestFetchContextNothingFound(t *testing.T) {
	rag := NewRAGService(&stubDocs{}, testEmbedder(), &stubSearcher{})

	got, err := rag.FetchContext(context.Background(), "anything")
	if err != nil {
		t.Fatalf("FetchContext: %v", err)
	}
	if got.Source != SourceNone {
		t.Errorf("source = %q, want %q", got.Source, SourceNone)
	}
	if got.Text != "" {
		t.Errorf("text = %q, want empty for SourceNone", got.Text)
	}
}

func TestFetchContextEmbedderFailureIsHardError(t *testing.T) {
	embedder := testEmbedder()
	docs := &stubDocs{docs: []store.Document{embedDoc(t, embedder, "some doc")}}
	failing := &keywordEmbedder{err: errors.New("embedding service down")}
	rag := NewRAGService(docs, failing, &stubSearcher{})

	_, err := rag.FetchContext(context.Background(), "question")
	if err == nil {
		t.Fatal("expected error when embedder fails, got nil")
	}
}

func TestFetchContextSkipsDocumentsWithoutEmbeddings(t *testing.T) {
	embedder := testEmbedder()
	docs := &stubDocs{docs: []store.Document{
		{ID: "broken", Content: "row with unreadable embedding"},
		embedDoc(t, embedder, "Paris is the capital of France"),
	}}
	rag := NewRAGService(docs, embedder, &stubSearcher{})

	got, err := rag.FetchContext(context.Background(), "capital of France?")
	if err != nil {
		t.Fatalf("FetchContext: %v", err)
	}
	if got.Source != SourceDocuments || !strings.Contains(got.Text, "Paris") {
		t.Errorf("got %+v, want context from the readable document", got)
	}
	if strings.Contains(got.Text, "unreadable") {
		t.Errorf("document without embedding leaked into context: %q", got.Text)
	}
}

func TestFetchContextWebSearchFailurePropagates(t *testing.T) {
	rag := NewRAGService(&stubDocs{}, testEmbedder(), &stubSearcher{err: errors.New("network down")})

	_, err := rag.FetchContext(context.Background(), "question")
	if err == nil {
		t.Fatal("expected error when web fallback fails, got nil")
	}
}
