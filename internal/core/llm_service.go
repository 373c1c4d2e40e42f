package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/docassist/assistant/internal/config"
	"github.com/ollama/ollama/api"
)

const (
	generateTimeout = 30 * time.Second
	pullTimeout     = 5 * time.Minute

	// The context is authoritative: the model must not fall back to claiming
	// it has no access to information.
	answerPromptTemplate = `You are a helpful assistant. Use ONLY the information provided in the context below to answer the question. Do not say you don't have access to information - the context contains the answer.

CONTEXT:
%s

QUESTION: %s

ANSWER (based only on the context above):`
)

var (
	ErrModelService     = errors.New("model service unavailable")
	ErrModelTimeout     = errors.New("model service timed out")
	ErrEmbeddingService = errors.New("embedding service unavailable")
)

// LLMService talks to a locally hosted Ollama server for both text
// generation and embeddings.
type LLMService struct {
	client         *api.Client
	chatModel      string
	embeddingModel string
}

func NewLLMService() (*LLMService, error) {
	hostURL, err := url.Parse(config.AppConfig.OllamaHost)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST: %w", err)
	}

	s := &LLMService{
		client:         api.NewClient(hostURL, http.DefaultClient),
		chatModel:      config.AppConfig.ChatModel,
		embeddingModel: config.AppConfig.EmbeddingModel,
	}

	// Prefer a locally available model matching the configured name; fall
	// back to whatever is installed, or keep the configured default if the
	// server cannot be reached yet.
	resolveCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if resolved, err := s.ResolveModel(resolveCtx, s.chatModel); err != nil {
		log.Printf("Could not resolve chat model, keeping %q: %v", s.chatModel, err)
	} else {
		s.chatModel = resolved
	}

	return s, nil
}

func (s *LLMService) ChatModel() string {
	return s.chatModel
}

// Answer builds the context-plus-question prompt and returns the generated
// text. A transport failure or timeout surfaces as a distinct error; there is
// no retry policy.
func (s *LLMService) Answer(ctx context.Context, question, contextText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	req := &api.GenerateRequest{
		Model:  s.chatModel,
		Prompt: fmt.Sprintf(answerPromptTemplate, contextText, question),
		Stream: new(bool), // accumulate, no streaming
	}

	var response strings.Builder
	err := s.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		response.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrModelTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrModelService, err)
	}

	if response.Len() == 0 {
		return "No response generated.", nil
	}
	return response.String(), nil
}

// EmbedTexts returns one fixed-dimension vector per input text, in input
// order. Failures are hard errors: vectors are never fabricated.
func (s *LLMService) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := s.client.Embed(ctx, &api.EmbedRequest{
		Model: s.embeddingModel,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingService, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingService, len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

// ListModels returns the identifiers of the locally available models.
func (s *LLMService) ListModels(ctx context.Context) ([]string, error) {
	resp, err := s.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelService, err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// ResolveModel picks a locally available model whose name contains the given
// fragment, defaulting to the first available model, or to the fragment
// itself when nothing is installed.
func (s *LLMService) ResolveModel(ctx context.Context, fragment string) (string, error) {
	names, err := s.ListModels(ctx)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), strings.ToLower(fragment)) {
			return name, nil
		}
	}
	if len(names) > 0 {
		return names[0], nil
	}
	return fragment, nil
}

// PullModel downloads a model. This is a long-running operation bounded by a
// hard timeout; on expiry the download fails without partial-result salvage.
func (s *LLMService) PullModel(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, pullTimeout)
	defer cancel()

	err := s.client.Pull(ctx, &api.PullRequest{Model: name}, func(resp api.ProgressResponse) error {
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: pull of %s timed out", ErrModelTimeout, name)
		}
		return fmt.Errorf("%w: pull of %s failed: %v", ErrModelService, name, err)
	}
	return nil
}
