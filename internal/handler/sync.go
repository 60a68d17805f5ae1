package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/prompt-manager/internal/model"
	syncpkg "github.com/sakif/prompt-manager/internal/sync"
)

// SyncHandler exposes the manual cloud sync operations. Pull and push are
// both destructive in one direction (remote→local, local→remote), so the UI
// confirms with the user before calling them; the API itself executes
// immediately.
type SyncHandler struct {
	engine *syncpkg.Engine
	state  *syncpkg.StateStore
	logger *slog.Logger
}

func NewSyncHandler(engine *syncpkg.Engine, state *syncpkg.StateStore, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{engine: engine, state: state, logger: logger}
}

// syncStateResponse is the externally visible sync state. The token itself
// never leaves the server — only whether one is configured.
type syncStateResponse struct {
	GistID          string           `json:"gistId"`
	LastSyncAt      int64            `json:"lastSyncAt"`
	Status          model.SyncStatus `json:"status"`
	LastError       string           `json:"lastError"`
	DeviceID        string           `json:"deviceId"`
	TokenConfigured bool             `json:"tokenConfigured"`
}

// credentialsRequest carries new sync credentials. Pointer fields: an
// omitted field keeps the current value, an explicit empty token clears the
// stored credential.
type credentialsRequest struct {
	Token  *string `json:"token"`
	GistID *string `json:"gistId"`
}

// HandleState returns the current sync state.
//
// HTTP: GET /api/sync/state
func (h *SyncHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	st, err := h.state.State(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := h.state.Token(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, syncStateResponse{
		GistID:          st.GistID,
		LastSyncAt:      st.LastSyncAt,
		Status:          st.Status,
		LastError:       st.LastError,
		DeviceID:        st.DeviceID,
		TokenConfigured: token != "",
	})
}

// HandleSetCredentials stores the access token and/or the gist binding.
//
// HTTP: PUT /api/sync/credentials
// REQUEST BODY: {"token": "ghp_...", "gistId": "abc123"}
func (h *SyncHandler) HandleSetCredentials(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid credentials JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if req.Token != nil {
		if err := h.state.SetToken(r.Context(), *req.Token); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.GistID != nil {
		if err := h.state.SetGistID(r.Context(), *req.GistID); err != nil {
			writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePull applies the remote dataset over the local one.
//
// HTTP: POST /api/sync/pull
func (h *SyncHandler) HandlePull(w http.ResponseWriter, r *http.Request) {
	updated, err := h.engine.Pull(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": updated})
}

// HandlePush replaces the remote dataset with the local one.
//
// HTTP: POST /api/sync/push
func (h *SyncHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Push(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"pushed": true})
}

// HandleBind creates a fresh remote document seeded with local data and
// binds to it.
//
// HTTP: POST /api/sync/bind
func (h *SyncHandler) HandleBind(w http.ResponseWriter, r *http.Request) {
	gistID, err := h.engine.Bind(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"gistId": gistID})
}

// HandleValidate checks the bound remote document is reachable.
//
// HTTP: POST /api/sync/validate
func (h *SyncHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	valid, err := h.engine.ValidateBinding(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}
