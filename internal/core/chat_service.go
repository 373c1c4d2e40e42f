package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// NoContextSentinel is what the model is told when neither the document
// store nor the web search produced anything.
const NoContextSentinel = "No relevant documents found."

// ErrDisallowedContent rejects a question containing disallowed words before
// any further processing.
var ErrDisallowedContent = errors.New("question contains disallowed content")

const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// ChatTurn is one entry in a session transcript.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator produces an answer from a question and its supporting context.
type Generator interface {
	Answer(ctx context.Context, question, contextText string) (string, error)
}

// ContentFilter gates free text against the disallowed wordlist.
type ContentFilter interface {
	IsDisallowed(text string) bool
	Censor(text string) string
}

type session struct {
	turns       []ChatTurn
	lastContext string
}

// ChatService holds the per-user session transcripts and runs the ask flow.
// Transcripts live in memory only: they are cleared on logout and never
// persisted. The map is guarded because the HTTP server itself is
// concurrent even though each session is a single logical request at a time.
type ChatService struct {
	rag    *RAGService
	llm    Generator
	filter ContentFilter

	mu       sync.Mutex
	sessions map[string]*session
}

func NewChatService(rag *RAGService, llm Generator, filter ContentFilter) *ChatService {
	return &ChatService{
		rag:      rag,
		llm:      llm,
		filter:   filter,
		sessions: make(map[string]*session),
	}
}

// Ask runs the full question flow for a logged-in user: content gate,
// context retrieval, answer generation, transcript append. Questions that
// trip the filter are rejected outright, unlike documents which are censored
// and kept; the asymmetry is deliberate.
func (s *ChatService) Ask(ctx context.Context, username, question string) (string, Context, error) {
	if s.filter.IsDisallowed(question) {
		return "", Context{}, ErrDisallowedContent
	}

	retrieved, err := s.rag.FetchContext(ctx, question)
	if err != nil {
		return "", Context{}, err
	}

	promptContext := retrieved.Text
	if retrieved.Source == SourceNone {
		promptContext = NoContextSentinel
	}

	answer, err := s.llm.Answer(ctx, question, promptContext)
	if err != nil {
		return "", Context{}, fmt.Errorf("failed to generate answer: %w", err)
	}

	s.mu.Lock()
	sess := s.session(username)
	sess.turns = append(sess.turns,
		ChatTurn{Role: RoleUser, Content: question},
		ChatTurn{Role: RoleBot, Content: answer},
	)
	sess.lastContext = promptContext
	s.mu.Unlock()

	return answer, retrieved, nil
}

// History returns a copy of the user's transcript in turn order.
func (s *ChatService) History(username string) []ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(username)
	turns := make([]ChatTurn, len(sess.turns))
	copy(turns, sess.turns)
	return turns
}

// LastContext returns the context used for the user's most recent answer.
func (s *ChatService) LastContext(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session(username).lastContext
}

// ClearSession drops the user's transcript, e.g. on logout. Stored
// documents are unaffected.
func (s *ChatService) ClearSession(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, username)
}

// session must be called with the mutex held.
func (s *ChatService) session(username string) *session {
	sess, ok := s.sessions[username]
	if !ok {
		sess = &session{}
		s.sessions[username] = sess
	}
	return sess
}
