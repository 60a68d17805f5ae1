// Package handler contains the HTTP layer: request parsing, response
// writing, and nothing else. Business rules live in internal/service; the
// web UI is a separate client of this JSON API.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/prompt-manager/internal/service"
)

// PromptHandler exposes prompt CRUD, search and tag filtering.
type PromptHandler struct {
	prompts *service.PromptService
	logger  *slog.Logger
}

func NewPromptHandler(prompts *service.PromptService, logger *slog.Logger) *PromptHandler {
	return &PromptHandler{prompts: prompts, logger: logger}
}

// createPromptRequest is the POST body. Tags may be omitted.
type createPromptRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// updatePromptRequest is the PUT body. Pointer fields: an omitted field means
// "keep the current value", an explicit empty string is a validation error.
type updatePromptRequest struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

// HandleList returns prompts, newest first.
//
// HTTP: GET /api/prompts?q=keyword&tag=coding
//
// q filters by case-insensitive substring over title and content; tag
// filters by tag membership ("all" or absent means no filter). When both are
// supplied the search runs first and the tag filter narrows its result.
func (h *PromptHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	tag := r.URL.Query().Get("tag")

	prompts, err := h.prompts.Search(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}

	if tag != "" && tag != service.TagAll {
		filtered := prompts[:0:0]
		for _, p := range prompts {
			for _, t := range p.Tags {
				if t == tag {
					filtered = append(filtered, p)
					break
				}
			}
		}
		prompts = filtered
	}

	writeJSON(w, http.StatusOK, prompts)
}

// HandleGetByID returns a single prompt.
//
// HTTP: GET /api/prompts/{id}
func (h *PromptHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	prompt, err := h.prompts.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

// HandleCreate creates a prompt.
//
// HTTP: POST /api/prompts
// REQUEST BODY: {"title": "...", "content": "...", "tags": ["coding"]}
func (h *PromptHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid prompt JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	prompt, err := h.prompts.Add(r.Context(), req.Title, req.Content, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, prompt)
}

// HandleUpdate patches an existing prompt.
//
// HTTP: PUT /api/prompts/{id}
func (h *PromptHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updatePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid prompt JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	prompt, err := h.prompts.Update(r.Context(), r.PathValue("id"), service.PromptPatch{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

// HandleDelete removes a prompt.
//
// HTTP: DELETE /api/prompts/{id}
func (h *PromptHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.prompts.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStats returns collection statistics.
//
// HTTP: GET /api/stats
func (h *PromptHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.prompts.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
