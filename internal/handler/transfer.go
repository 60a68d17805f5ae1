package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/prompt-manager/internal/model"
	"github.com/sakif/prompt-manager/internal/service"
)

// TransferHandler exposes backup (export) and restore (import).
type TransferHandler struct {
	transfer *service.TransferService
	logger   *slog.Logger
}

func NewTransferHandler(transfer *service.TransferService, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{transfer: transfer, logger: logger}
}

// HandleExport streams the full dataset as a downloadable JSON document.
//
// HTTP: GET /api/export
func (h *TransferHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := h.transfer.Export(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("prompts-export-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	writeJSON(w, http.StatusOK, doc)
}

// HandleImport validates and applies an uploaded export document.
//
// HTTP: POST /api/import?merge=true
//
// merge=true unions the document with existing data (dedup by id/title);
// anything else replaces the local dataset. Structural problems are a 400;
// per-record problems are counted in the returned stats; a failed final
// write is a 500 with success=false.
func (h *TransferHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var doc model.ExportDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		h.logger.Warn("invalid import JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "data_format_error",
			Message: "import document is not valid JSON",
		})
		return
	}

	if v := h.transfer.Validate(&doc); !v.Valid {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "data_format_error",
			Message: v.Message,
		})
		return
	}

	merge := r.URL.Query().Get("merge") == "true"
	result := h.transfer.Import(r.Context(), &doc, merge)

	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, result)
}
