package core

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/docassist/assistant/internal/store"
	"github.com/docassist/assistant/internal/utils"
)

const (
	// NumRelevantDocuments is how many nearest documents feed the prompt.
	NumRelevantDocuments = 3
	maxWebResults        = 10
)

// Embedder converts text into fixed-dimension vectors, one per input.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// DocumentSource lists the stored documents with their embeddings.
type DocumentSource interface {
	GetAllDocuments() ([]store.Document, error)
}

// WebSearcher returns result snippets for a query, in result order.
type WebSearcher interface {
	Search(query string, maxResults int) ([]string, error)
}

// ContextSource tags where retrieved context came from, so callers never
// have to sniff the text itself to distinguish "no data" from real content.
type ContextSource string

const (
	SourceDocuments ContextSource = "documents"
	SourceWeb       ContextSource = "web"
	SourceNone      ContextSource = "none"
)

// Context is the tagged outcome of retrieval.
type Context struct {
	Source ContextSource `json:"source"`
	Text   string        `json:"text"`
}

// RAGService assembles the context handed to the language model.
type RAGService struct {
	docs     DocumentSource
	embedder Embedder
	searcher WebSearcher
}

func NewRAGService(docs DocumentSource, embedder Embedder, searcher WebSearcher) *RAGService {
	return &RAGService{docs: docs, embedder: embedder, searcher: searcher}
}

type scoredDocument struct {
	doc        store.Document
	similarity float32
}

// FetchContext retrieves context for a question. With documents stored it
// returns the top-k nearest by cosine similarity; with an empty store it
// falls back to a web search; with nothing anywhere it returns a context
// tagged SourceNone. "No results" is never an error; only embedding, store
// or search transport failures are.
func (s *RAGService) FetchContext(ctx context.Context, question string) (Context, error) {
	docs, err := s.docs.GetAllDocuments()
	if err != nil {
		return Context{}, fmt.Errorf("failed to load documents: %w", err)
	}
	if len(docs) == 0 {
		return s.webFallback(question)
	}

	embeddings, err := s.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return Context{}, fmt.Errorf("failed to embed question: %w", err)
	}
	queryEmbedding := embeddings[0]

	scored := make([]scoredDocument, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			log.Printf("Skipping document %s due to missing embedding", doc.ID)
			continue
		}
		similarity, err := utils.CosineSimilarity(queryEmbedding, doc.Embedding)
		if err != nil {
			log.Printf("Error calculating similarity for document %s: %v. Skipping.", doc.ID, err)
			continue
		}
		scored = append(scored, scoredDocument{doc: doc, similarity: similarity})
	}

	if len(scored) == 0 {
		// Documents exist but none are usable for similarity search.
		return s.webFallback(question)
	}

	// Sort by similarity in descending order and keep the nearest few. No
	// similarity threshold: as long as documents exist, the nearest ones are
	// the context.
	sort.Slice(scored, func(i, j int) bool {
		return scored[i].similarity > scored[j].similarity
	})

	var contextBuilder strings.Builder
	for i := 0; i < len(scored) && i < NumRelevantDocuments; i++ {
		contextBuilder.WriteString(scored[i].doc.Content)
		contextBuilder.WriteString("\n\n")
	}

	return Context{Source: SourceDocuments, Text: strings.TrimSpace(contextBuilder.String())}, nil
}

func (s *RAGService) webFallback(question string) (Context, error) {
	snippets, err := s.searcher.Search(question, maxWebResults)
	if err != nil {
		return Context{}, fmt.Errorf("web search fallback failed: %w", err)
	}
	if len(snippets) == 0 {
		return Context{Source: SourceNone}, nil
	}
	log.Printf("No stored documents; answering from %d web results", len(snippets))
	return Context{Source: SourceWeb, Text: strings.Join(snippets, "\n")}, nil
}
