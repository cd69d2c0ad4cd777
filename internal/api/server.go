// Package api is a thin REST façade over the session engine: an image
// generation passthrough returning encoded results, and a chat endpoint
// delegating to Complete. It holds no state of its own.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ikmalsaid/mindful-agents/internal/chat"
)

// Completer is the slice of the session engine the façade consumes.
type Completer interface {
	Complete(ctx context.Context, prompt string, images []string, hist []chat.Message) (string, []chat.Message, error)
}

// Generator produces raw image bytes for a prompt. The façade only encodes
// and relays its results; generation itself is an external concern.
type Generator func(ctx context.Context, prompt string) ([][]byte, error)

// Handler serves the façade routes.
type Handler struct {
	engine   Completer
	generate Generator
	logger   *slog.Logger
}

// NewRouter wires the façade routes onto a chi router.
func NewRouter(engine Completer, generate Generator, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{engine: engine, generate: generate, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/v1/api/image/generate", h.handleImageGenerate)
	r.Post("/v1/api/chat", h.handleChat)
	return r
}

// handleImageGenerate accepts a form prompt and returns the generated
// images as base64 data URLs.
func (h *Handler) handleImageGenerate(w http.ResponseWriter, r *http.Request) {
	prompt := r.FormValue("prompt")
	if prompt == "" {
		respondError(w, http.StatusBadRequest, "missing prompt")
		return
	}
	if h.generate == nil {
		respondError(w, http.StatusServiceUnavailable, "image generation unavailable")
		return
	}

	images, err := h.generate(r.Context(), prompt)
	if err != nil || len(images) == 0 {
		h.logger.Error("image generation failed", "error", err)
		respondError(w, http.StatusBadRequest, "generation failed")
		return
	}

	results := make([]string, 0, len(images))
	for _, img := range images {
		results = append(results, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(img))
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "results": results})
}

// handleChat runs a single stateless turn through the engine.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	prompt := r.FormValue("prompt")
	if prompt == "" {
		respondError(w, http.StatusBadRequest, "missing prompt")
		return
	}

	answer, hist, err := h.engine.Complete(r.Context(), prompt, nil, nil)
	if err != nil {
		h.logger.Error("chat turn failed", "error", err)
		respondError(w, http.StatusBadGateway, "completion failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"id":      hist[0].ID,
		"answer":  answer,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"success": false, "error": message})
}
