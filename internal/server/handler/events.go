package handler

import (
	"log/slog"
	"net/http"

	"github.com/meridianfi/lendcore/internal/domain"
)

// EventHandler serves the ledger event journal.
type EventHandler struct {
	journal domain.JournalStore
	logger  *slog.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(journal domain.JournalStore, logger *slog.Logger) *EventHandler {
	return &EventHandler{journal: journal, logger: logger}
}

// listEventsResponse wraps the journal page.
type listEventsResponse struct {
	Events []domain.Event `json:"events"`
}

// ListEvents returns journal entries, newest first.
// GET /api/events?limit=50&offset=0&since=...&until=...
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.journal.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list events failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, listEventsResponse{Events: events})
}
