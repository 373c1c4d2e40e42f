package api

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/docassist/assistant/internal/auth"
	"github.com/docassist/assistant/internal/core"
	"github.com/docassist/assistant/internal/extract"
	"github.com/docassist/assistant/internal/store"
	"github.com/docassist/assistant/internal/viz"
	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 10 << 20 // 10 MiB

// UserStore is the credential persistence the handlers need.
type UserStore interface {
	GetUserByUsername(username string) (*store.User, error)
	CreateUser(username, passwordHash string) (*store.User, error)
}

// ModelManager exposes the model-housekeeping operations of the LLM service.
type ModelManager interface {
	ListModels(ctx context.Context) ([]string, error)
	PullModel(ctx context.Context, name string) error
	ChatModel() string
}

type APIHandler struct {
	users       UserStore
	chatService *core.ChatService
	docService  *core.DocumentService
	models      ModelManager
	renderer    *viz.Renderer
}

func NewAPIHandler(users UserStore, cs *core.ChatService, ds *core.DocumentService, models ModelManager, renderer *viz.Renderer) *APIHandler {
	return &APIHandler{
		users:       users,
		chatService: cs,
		docService:  ds,
		models:      models,
		renderer:    renderer,
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Please log in to upload documents and ask questions", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		username, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := h.users.GetUserByUsername(username)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for user %s: %v", username, err)
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "username", user.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for user %s: %v", req.Username, err)
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	user, err := h.users.CreateUser(req.Username, hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			http.Error(w, "Username already exists", http.StatusConflict)
			return
		}
		log.Printf("Error creating user %s: %v", req.Username, err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByUsername(req.Username)
	if err != nil {
		log.Printf("Error getting user %s: %v", req.Username, err)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	// Unknown user and wrong password are indistinguishable on purpose.
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(user.Username)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", req.Username, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// LogoutHandler clears the session transcript. Stored documents are
// store-level, not session-level, and stay untouched.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	username := r.Context().Value("username").(string)
	h.chatService.ClearSession(username)
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "A file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return
	}

	doc, err := h.docService.Add(r.Context(), header.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedType):
			http.Error(w, "Only .txt and .pdf uploads are supported", http.StatusUnsupportedMediaType)
		case errors.Is(err, extract.ErrDecode):
			http.Error(w, "Could not decode file content", http.StatusBadRequest)
		case errors.Is(err, core.ErrEmbeddingService):
			log.Printf("Embedding service failure during upload of %s: %v", header.Filename, err)
			http.Error(w, "Embedding service unavailable, document not stored", http.StatusBadGateway)
		default:
			log.Printf("Error adding document %s: %v", header.Filename, err)
			http.Error(w, "Failed to add document", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(doc)
}

func (h *APIHandler) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docService.List()
	if err != nil {
		log.Printf("Error listing documents: %v", err)
		http.Error(w, "Failed to list documents", http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	json.NewEncoder(w).Encode(docs)
}

func (h *APIHandler) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	if err := h.docService.Delete(docID); err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error deleting document %s: %v", docID, err)
			http.Error(w, "Failed to delete document", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type AskRequest struct {
	Question string `json:"question"`
}

type AskResponse struct {
	Answer        string             `json:"answer"`
	ContextSource core.ContextSource `json:"context_source"`
}

func (h *APIHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	username := r.Context().Value("username").(string)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, "Question cannot be empty", http.StatusBadRequest)
		return
	}

	answer, retrieved, err := h.chatService.Ask(r.Context(), username, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrDisallowedContent):
			http.Error(w, "Question contains disallowed content", http.StatusBadRequest)
		case errors.Is(err, core.ErrModelTimeout):
			http.Error(w, "The model service timed out", http.StatusGatewayTimeout)
		case errors.Is(err, core.ErrModelService), errors.Is(err, core.ErrEmbeddingService):
			log.Printf("Service failure answering question for %s: %v", username, err)
			http.Error(w, "A backing service is unavailable", http.StatusBadGateway)
		default:
			log.Printf("Error answering question for %s: %v", username, err)
			http.Error(w, "Failed to answer question", http.StatusInternalServerError)
		}
		return
	}

	json.NewEncoder(w).Encode(AskResponse{Answer: answer, ContextSource: retrieved.Source})
}

func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	username := r.Context().Value("username").(string)
	json.NewEncoder(w).Encode(h.chatService.History(username))
}

// WordcloudHandler renders the context behind the user's latest answer as a
// PNG word cloud.
func (h *APIHandler) WordcloudHandler(w http.ResponseWriter, r *http.Request) {
	username := r.Context().Value("username").(string)

	text := h.chatService.LastContext(username)
	if text == "" {
		http.Error(w, "No context to visualize yet", http.StatusNotFound)
		return
	}

	img, err := h.renderer.Render(text)
	if err != nil {
		log.Printf("Error rendering word cloud for %s: %v", username, err)
		http.Error(w, "Failed to render word cloud", http.StatusInternalServerError)
		return
	}
	if img == nil {
		http.Error(w, "No context to visualize yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		log.Printf("Error encoding word cloud for %s: %v", username, err)
	}
}

func (h *APIHandler) ListModelsHandler(w http.ResponseWriter, r *http.Request) {
	models, err := h.models.ListModels(r.Context())
	if err != nil {
		log.Printf("Error listing models: %v", err)
		http.Error(w, "Model service unavailable", http.StatusBadGateway)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"current": h.models.ChatModel(),
		"models":  models,
	})
}

type PullModelRequest struct {
	Name string `json:"name"`
}

// PullModelHandler downloads a model. The request blocks for the duration of
// the pull, bounded by the service's hard timeout.
func (h *APIHandler) PullModelHandler(w http.ResponseWriter, r *http.Request) {
	var req PullModelRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	name := req.Name
	if name == "" {
		name = h.models.ChatModel()
	}

	if err := h.models.PullModel(r.Context(), name); err != nil {
		if errors.Is(err, core.ErrModelTimeout) {
			http.Error(w, "Model download timed out", http.StatusGatewayTimeout)
		} else {
			log.Printf("Error pulling model %s: %v", name, err)
			http.Error(w, "Failed to pull model", http.StatusBadGateway)
		}
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"pulled": name})
}
