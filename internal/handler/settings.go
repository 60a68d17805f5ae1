package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/prompt-manager/internal/model"
	"github.com/sakif/prompt-manager/internal/service"
)

// SettingsHandler exposes the app settings and the preset tag vocabulary.
type SettingsHandler struct {
	settings *service.SettingsService
	logger   *slog.Logger
}

func NewSettingsHandler(settings *service.SettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// HandleGet returns the current settings (defaults if none saved yet).
//
// HTTP: GET /api/settings
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// HandleSave replaces the settings wholesale (normalized on save).
//
// HTTP: PUT /api/settings
func (h *SettingsHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var settings model.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.logger.Warn("invalid settings JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := h.settings.Save(r.Context(), settings); err != nil {
		writeError(w, err)
		return
	}

	saved, err := h.settings.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleReset restores the default settings.
//
// HTTP: POST /api/settings/reset
func (h *SettingsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.settings.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.DefaultSettings())
}

// HandleGetTags returns the preset tag vocabulary.
//
// HTTP: GET /api/settings/tags
func (h *SettingsHandler) HandleGetTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.settings.GetPresetTags(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// HandleUpdateTags replaces the preset tag vocabulary. An empty array is
// valid and clears the vocabulary — which in turn makes imports drop all
// tags, so the UI asks for confirmation before calling this.
//
// HTTP: PUT /api/settings/tags
// REQUEST BODY: ["work", "coding", ...]
func (h *SettingsHandler) HandleUpdateTags(w http.ResponseWriter, r *http.Request) {
	var tags []string
	if err := json.NewDecoder(r.Body).Decode(&tags); err != nil {
		h.logger.Warn("invalid tags JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := h.settings.UpdatePresetTags(r.Context(), tags); err != nil {
		writeError(w, err)
		return
	}

	saved, err := h.settings.GetPresetTags(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
