package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/meridianfi/lendcore/internal/archive"
	"github.com/meridianfi/lendcore/internal/domain"
)

// ArchiveHandler serves the cold-storage journal exports.
type ArchiveHandler struct {
	reader domain.BlobReader
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler over the given blob reader.
func NewArchiveHandler(reader domain.BlobReader, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{reader: reader, logger: logger}
}

// ListArchives lists the exported journal objects.
// GET /api/admin/archives
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	keys, err := h.reader.List(r.Context(), archive.ObjectPrefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list archives failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}

	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, archive.ObjectPrefix))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"archives": names,
		"count":    len(names),
	})
}

// GetArchive streams one exported journal object.
// GET /api/admin/archives/{name}
func (h *ArchiveHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusBadRequest, "invalid archive name")
		return
	}

	rc, err := h.reader.Get(r.Context(), archive.ObjectPrefix+name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "archive not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "fetch archive failed",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to fetch archive")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(r.Context(), "archive stream interrupted",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
	}
}
