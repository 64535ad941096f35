package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/civitas-labs/agora/internal/intent"
	"github.com/civitas-labs/agora/internal/provider"
	"github.com/civitas-labs/agora/internal/system"
	"go.uber.org/zap"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	sys       *system.System
	providers *provider.Router
	logger    *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(sys *system.System, providers *provider.Router, logger *zap.Logger) *Handler {
	return &Handler{sys: sys, providers: providers, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Post("/voice-command", h.voiceCommand)
		r.Post("/follow-up", h.followUp)
		r.Get("/workflows", h.listWorkflows)
		r.Get("/agents", h.listAgents)
		r.Get("/providers", h.listProviders)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"search": h.sys.SearchEnabled(),
		"store":  h.sys.StoreEnabled(),
	})
}

type voiceCommandRequest struct {
	Command  string `json:"command"`
	UserID   string `json:"user_id"`
	Language string `json:"language,omitempty"`
}

func (h *Handler) voiceCommand(w http.ResponseWriter, r *http.Request) {
	var req voiceCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}

	result, err := h.sys.ProcessVoiceCommand(r.Context(), req.Command, req.UserID, req.Language)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type followUpRequest struct {
	InitialQuery string               `json:"initial_query"`
	UserResponse string               `json:"user_response"`
	UserID       string               `json:"user_id"`
	Context      intent.DialogContext `json:"context"`
}

func (h *Handler) followUp(w http.ResponseWriter, r *http.Request) {
	var req followUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.UserID == "" || req.UserResponse == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and user_response are required"})
		return
	}

	result, err := h.sys.ProcessFollowUpDialog(r.Context(), req.InitialQuery, req.UserResponse, req.UserID, req.Context)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) listWorkflows(w http.ResponseWriter, r *http.Request) {
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		writeJSON(w, http.StatusOK, h.sys.WorkflowsByUser(userID))
		return
	}
	writeJSON(w, http.StatusOK, h.sys.WorkflowStatus())
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sys.Agents())
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	ps := h.providers.ListProviders()
	out := make([]map[string]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, map[string]string{"id": p.ID(), "name": p.Name()})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
