package handler

import (
	"net/http"

	"samadhan/service"
	"samadhan/worker"
)

// EscalationHandler handles HTTP requests for escalation operations
type EscalationHandler struct {
	escalations *service.EscalationService
	worker      *worker.EscalationWorker
}

// NewEscalationHandler creates a new escalation handler
func NewEscalationHandler(escalations *service.EscalationService, worker *worker.EscalationWorker) *EscalationHandler {
	return &EscalationHandler{escalations: escalations, worker: worker}
}

// RunSweep handles POST /api/v1/ops/escalations/run
// Manually triggers one escalation sweep and reports how many complaints
// were escalated. Escalation is idempotent per level, so running this next
// to the scheduler is safe.
func (h *EscalationHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	performed, err := h.worker.TriggerNow(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal error", err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"escalated": performed,
	})
}

// Overdue handles GET /api/v1/ops/overdue
// Returns complaints past their SLA deadline with their escalation standing.
func (h *EscalationHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	overdue, err := h.escalations.OverdueComplaints(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(overdue),
		"overdue": overdue,
	})
}

// History handles GET /api/v1/complaints/{id}/escalations
// Returns the complaint's escalation events, oldest first.
func (h *EscalationHandler) History(w http.ResponseWriter, r *http.Request) {
	complaintID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	events, err := h.escalations.EscalationHistory(r.Context(), complaintID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"complaint_id": complaintID,
		"events":       events,
	})
}
