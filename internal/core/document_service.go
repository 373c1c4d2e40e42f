package core

import (
	"context"
	"fmt"

	"github.com/docassist/assistant/internal/extract"
	"github.com/docassist/assistant/internal/store"
)

// DocumentStore persists documents with their embeddings.
type DocumentStore interface {
	AddDocument(content string, embedding []float32) (*store.Document, error)
	GetAllDocuments() ([]store.Document, error)
	DeleteDocument(docID string) error
}

// DocumentService runs the upload pipeline: extract, censor, embed, store.
type DocumentService struct {
	store    DocumentStore
	embedder Embedder
	filter   ContentFilter
}

func NewDocumentService(docStore DocumentStore, embedder Embedder, filter ContentFilter) *DocumentService {
	return &DocumentService{store: docStore, embedder: embedder, filter: filter}
}

// Add extracts text from an upload, censors disallowed words and persists
// the document with its embedding. Extraction and embedding failures abort
// only this upload.
func (s *DocumentService) Add(ctx context.Context, filename string, data []byte) (*store.Document, error) {
	text, err := extract.Extract(filename, data)
	if err != nil {
		return nil, err
	}

	text = s.filter.Censor(text)

	embeddings, err := s.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed document: %w", err)
	}

	doc, err := s.store.AddDocument(text, embeddings[0])
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	return doc, nil
}

func (s *DocumentService) List() ([]store.Document, error) {
	return s.store.GetAllDocuments()
}

func (s *DocumentService) Delete(docID string) error {
	return s.store.DeleteDocument(docID)
}
