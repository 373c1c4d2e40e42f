package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docassist/assistant/internal/store"
)

// echoGenerator deterministically derives the answer from the supplied
// context, so tests can check that retrieved text actually reaches the model.
type echoGenerator struct {
	err error
}

func (g *echoGenerator) Answer(_ context.Context, question, contextText string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "From the context: " + contextText, nil
}

type stubFilter struct{}

func (stubFilter) IsDisallowed(text string) bool {
	return strings.Contains(strings.ToLower(text), "badword")
}

func (stubFilter) Censor(text string) string {
	return strings.ReplaceAll(text, "badword", "*******")
}

func newTestChatService(t *testing.T, docs []store.Document) *ChatService {
	t.Helper()
	embedder := testEmbedder()
	rag := NewRAGService(&stubDocs{docs: docs}, embedder, &stubSearcher{})
	return NewChatService(rag, &echoGenerator{}, stubFilter{})
}

func TestAskAnswersFromStoredDocument(t *testing.T) {
	embedder := testEmbedder()
	cs := newTestChatService(t, []store.Document{
		embedDoc(t, embedder, "Paris is the capital of France"),
	})

	answer, retrieved, err := cs.Ask(context.Background(), "alice", "What is the capital of France?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if retrieved.Source != SourceDocuments {
		t.Errorf("context source = %q, want %q", retrieved.Source, SourceDocuments)
	}
	if !strings.Contains(answer, "Paris") {
		t.Errorf("answer does not reference the document: %q", answer)
	}

	history := cs.History("alice")
	if len(history) != 2 {
		t.Fatalf("history has %d turns, want 2", len(history))
	}
	if history[0].Role != RoleUser || history[0].Content != "What is the capital of France?" {
		t.Errorf("first turn = %+v", history[0])
	}
	if history[1].Role != RoleBot || history[1].Content != answer {
		t.Errorf("second turn = %+v", history[1])
	}
}

func TestAskRejectsDisallowedQuestion(t *testing.T) {
	cs := newTestChatService(t, nil)

	_, _, err := cs.Ask(context.Background(), "alice", "tell me a badword joke")
	if !errors.Is(err, ErrDisallowedContent) {
		t.Fatalf("err = %v, want ErrDisallowedContent", err)
	}
	if len(cs.History("alice")) != 0 {
		t.Error("rejected question still appended to transcript")
	}
}

func TestAskUsesSentinelWhenNothingFound(t *testing.T) {
	cs := newTestChatService(t, nil) // empty store, empty web results

	answer, retrieved, err := cs.Ask(context.Background(), "alice", "anything at all?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if retrieved.Source != SourceNone {
		t.Errorf("context source = %q, want %q", retrieved.Source, SourceNone)
	}
	if !strings.Contains(answer, NoContextSentinel) {
		t.Errorf("sentinel not handed to the model: %q", answer)
	}
	if cs.LastContext("alice") != NoContextSentinel {
		t.Errorf("last context = %q, want the sentinel", cs.LastContext("alice"))
	}
}

func TestAskGeneratorFailurePropagates(t *testing.T) {
	embedder := testEmbedder()
	rag := NewRAGService(&stubDocs{docs: []store.Document{embedDoc(t, embedder, "doc")}}, embedder, &stubSearcher{})
	cs := NewChatService(rag, &echoGenerator{err: ErrModelService}, stubFilter{})

	_, _, err := cs.Ask(context.Background(), "alice", "question")
	if !errors.Is(err, ErrModelService) {
		t.Fatalf("err = %v, want ErrModelService", err)
	}
	if len(cs.History("alice")) != 0 {
		t.Error("failed ask still appended to transcript")
	}
}

func TestClearSessionDropsTranscriptOnly(t *testing.T) {
	embedder := testEmbedder()
	docs := &stubDocs{docs: []store.Document{embedDoc(t, embedder, "Paris is the capital of France")}}
	rag := NewRAGService(docs, embedder, &stubSearcher{})
	cs := NewChatService(rag, &echoGenerator{}, stubFilter{})

	if _, _, err := cs.Ask(context.Background(), "alice", "capital of France?"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(cs.History("alice")) == 0 {
		t.Fatal("expected transcript before logout")
	}

	cs.ClearSession("alice")

	if len(cs.History("alice")) != 0 {
		t.Error("transcript not cleared on logout")
	}
	if cs.LastContext("alice") != "" {
		t.Error("last context not cleared on logout")
	}
	// The document store is session-independent.
	if remaining, _ := docs.GetAllDocuments(); len(remaining) != 1 {
		t.Error("logout touched the document store")
	}
}

func TestHistoryIsPerUser(t *testing.T) {
	embedder := testEmbedder()
	cs := newTestChatService(t, []store.Document{embedDoc(t, embedder, "Paris is the capital of France")})

	if _, _, err := cs.Ask(context.Background(), "alice", "capital of France?"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if len(cs.History("bob")) != 0 {
		t.Error("bob sees alice's transcript")
	}
}
