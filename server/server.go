package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ksmt/ava/internal/models"
	"github.com/ksmt/ava/internal/types"
	"github.com/ksmt/ava/pkg/orchestrator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

type Options struct {
	Orchestrator   *orchestrator.Orchestrator
	KnowledgeBase  types.KnowledgeBase
	SearchProvider types.SearchProvider
	History        types.HistoryStore
}

// Server exposes the chat, knowledge, search and history routes over
// HTTP plus a websocket chat endpoint.
type Server struct {
	orch     *orchestrator.Orchestrator
	kb       types.KnowledgeBase
	provider types.SearchProvider
	history  types.HistoryStore
}

func New(opts Options) *Server {
	return &Server{
		orch:     opts.Orchestrator,
		kb:       opts.KnowledgeBase,
		provider: opts.SearchProvider,
		history:  opts.History,
	}
}

// Routes builds the HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /chat/{chat_id}", s.handleGetConversation)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("POST /ingest", s.handleIngest)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("POST /history", s.handleAddHistory)
	mux.HandleFunc("GET /history/{chat_id}", s.handleGetConversation)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /services/status", s.handleServicesStatus)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return mux
}

// Start blocks serving HTTP on the given port.
func (s *Server) Start(port string) error {
	log.Printf("Starting server on port %s", port)
	return http.ListenAndServe(":"+port, s.Routes())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type chatRequest struct {
	Message *string `json:"message"`
	ChatID  string  `json:"chat_id"`
}

// handleChat never returns a 5xx: upstream failures are absorbed by the
// orchestrator's fallback cascade. Only a missing message field is a
// client error.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == nil {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	reply := s.orch.Handle(r.Context(), *req.Message, req.ChatID)
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("chat_id")

	conv, err := s.orch.History(r.Context(), chatID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to retrieve history")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type queryResponse struct {
	Found   bool                     `json:"found"`
	Answer  string                   `json:"answer,omitempty"`
	Sources []models.RetrievalResult `json:"sources"`
	Query   string                   `json:"query"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter is required")
		return
	}

	results, err := s.kb.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "knowledge base not available")
		return
	}

	resp := queryResponse{
		Found:   len(results) > 0,
		Sources: results,
		Query:   req.Query,
	}
	if len(results) > 0 {
		resp.Answer = results[0].Document.Text
	}
	writeJSON(w, http.StatusOK, resp)
}

type ingestRequest struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Document text is required")
		return
	}

	docs, err := s.kb.Ingest(r.Context(), req.Text, req.Metadata)
	if err != nil {
		if models.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusServiceUnavailable, "knowledge base not available")
		return
	}

	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":      true,
		"document_ids": ids,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	results, err := s.provider.Search(r.Context(), query)
	if err != nil {
		log.Printf("search error: %v", err)
		results = nil
	}
	if results == nil {
		results = []models.SearchResult{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results":       results,
		"query":         query,
		"total_results": len(results),
	})
}

type addHistoryRequest struct {
	ChatID    string        `json:"chat_id"`
	Message   string        `json:"message"`
	Response  string        `json:"response"`
	Source    models.Source `json:"source"`
	Timestamp time.Time     `json:"timestamp"`
}

func (s *Server) handleAddHistory(w http.ResponseWriter, r *http.Request) {
	var req addHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "chat_id, message, and response are required")
		return
	}

	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}

	userMsg := models.Message{
		ChatID:    req.ChatID,
		Role:      models.RoleUser,
		Text:      req.Message,
		Timestamp: req.Timestamp,
	}
	assistantMsg := models.Message{
		ChatID:    req.ChatID,
		Role:      models.RoleAssistant,
		Text:      req.Response,
		Source:    req.Source,
		Timestamp: req.Timestamp,
	}

	if err := s.history.Append(r.Context(), req.ChatID, userMsg); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store interaction")
		return
	}
	if err := s.history.Append(r.Context(), req.ChatID, assistantMsg); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store interaction")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Interaction stored successfully",
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	count, err := s.kb.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "knowledge base not available")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_documents": count,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "ava",
		"timestamp": time.Now(),
	})
}

func (s *Server) handleServicesStatus(w http.ResponseWriter, r *http.Request) {
	statuses := map[string]string{
		"search":  "configured",
		"history": "healthy",
	}

	if _, err := s.kb.Count(r.Context()); err != nil {
		statuses["knowledge_base"] = "unreachable"
	} else {
		statuses["knowledge_base"] = "healthy"
	}

	if _, err := s.history.Get(r.Context(), "status-probe"); err != nil && !errors.Is(err, models.ErrNotFound) {
		statuses["history"] = "unreachable"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":            "healthy",
		"dependent_services": statuses,
		"timestamp":          time.Now(),
	})
}

type wsMessage struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	chatID := ""

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Error reading message: %v", err)
			}
			break
		}

		reply := s.orch.Handle(r.Context(), msg.Content, chatID)
		chatID = reply.ChatID

		out := wsMessage{
			Type:    "response",
			Content: reply.Response,
			Data: map[string]interface{}{
				"source":  reply.Source,
				"chat_id": reply.ChatID,
			},
		}
		if err := conn.WriteJSON(out); err != nil {
			log.Printf("Error sending message: %v", err)
			break
		}
	}
}
