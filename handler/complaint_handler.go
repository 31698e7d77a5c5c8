package handler

import (
	"net/http"

	"samadhan/models"
	"samadhan/service"
)

// ComplaintHandler handles HTTP requests for the complaint lifecycle.
type ComplaintHandler struct {
	complaints *service.ComplaintService
}

// NewComplaintHandler creates a new complaint handler
func NewComplaintHandler(complaints *service.ComplaintService) *ComplaintHandler {
	return &ComplaintHandler{complaints: complaints}
}

// CreateComplaint handles POST /api/v1/complaints
// Files a new complaint. The classifier block, when present, comes from the
// upstream AI service; intake only consumes it.
func (h *ComplaintHandler) CreateComplaint(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req service.CreateComplaintRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		respondWithError(w, http.StatusBadRequest, "Validation error", "Title is required")
		return
	}
	if req.Description == "" {
		respondWithError(w, http.StatusBadRequest, "Validation error", "Description is required")
		return
	}

	complaint, err := h.complaints.CreateComplaint(r.Context(), &req, caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, complaint)
}

// ListComplaints handles GET /api/v1/complaints
// Returns the caller's working set: citizens see their own complaints, staff
// their assignments, department heads their department, commissioners the
// escalated set, admins the manual-routing queue.
func (h *ComplaintHandler) ListComplaints(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	complaints, err := h.complaints.ComplaintsFor(r.Context(), caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count":      len(complaints),
		"complaints": complaints,
	})
}

// GetComplaint handles GET /api/v1/complaints/{id}
func (h *ComplaintHandler) GetComplaint(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	complaintID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	complaint, err := h.complaints.GetComplaint(r.Context(), complaintID, caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, complaint)
}

type transitionRequest struct {
	Target models.ComplaintStatus `json:"target"`
	Reason string                 `json:"reason"`
}

// Transition handles POST /api/v1/complaints/{id}/transitions
// Applies one state change on behalf of the caller.
func (h *ComplaintHandler) Transition(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	complaintID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req transitionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Target == "" {
		respondWithError(w, http.StatusBadRequest, "Validation error", "Target status is required")
		return
	}

	result, err := h.complaints.Transition(r.Context(), complaintID, req.Target, caller, req.Reason)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// AllowedTransitions handles GET /api/v1/complaints/{id}/transitions
// Returns the targets the caller's role may move the complaint to.
func (h *ComplaintHandler) AllowedTransitions(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	complaintID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	targets, err := h.complaints.GetAllowedTransitions(r.Context(), complaintID, caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"complaint_id": complaintID,
		"role":         caller.Role,
		"targets":      targets,
	})
}

type assignRequest struct {
	DepartmentID int64  `json:"department_id"`
	StaffID      *int64 `json:"staff_id,omitempty"`
	Reason       string `json:"reason"`
}

// AssignDepartment handles POST /api/v1/complaints/{id}/assign
// Manual routing for complaints the classifier could not place. The staff
// assignment is optional.
func (h *ComplaintHandler) AssignDepartment(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	complaintID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req assignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DepartmentID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Validation error", "Department ID is required")
		return
	}

	complaint, err := h.complaints.AssignDepartment(r.Context(), complaintID, req.DepartmentID, req.StaffID, caller, req.Reason)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, complaint)
}

type proofRequest struct {
	ImageReference string   `json:"image_reference"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	Remarks        string   `json:"remarks"`
}

// SubmitProof handles POST /api/v1/complaints/{id}/proof
// Records staff evidence of work performed. The image itself is uploaded to
// the object store out of band; only its reference arrives here.
func (h *ComplaintHandler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	complaintID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req proofRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ImageReference == "" {
		respondWithError(w, http.StatusBadRequest, "Validation error", "Image reference is required")
		return
	}

	proof, err := h.complaints.SubmitResolutionProof(r.Context(), complaintID, caller,
		req.ImageReference, req.Latitude, req.Longitude, req.Remarks)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, proof)
}

// AuditTrail handles GET /api/v1/complaints/{id}/audit
// Returns the complaint's full audit history, oldest first.
func (h *ComplaintHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	complaintID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	trail, err := h.complaints.AuditTrail(r.Context(), complaintID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"complaint_id": complaintID,
		"entries":      trail,
	})
}

// StatusSummary handles GET /api/v1/stats
// Returns complaint counts grouped by status, scoped to the caller's
// department for operational roles.
func (h *ComplaintHandler) StatusSummary(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	counts, err := h.complaints.StatusSummary(r.Context(), caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"counts": counts,
	})
}
