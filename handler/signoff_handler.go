package handler

import (
	"net/http"

	"samadhan/service"
)

// SignoffHandler handles HTTP requests for citizen signoffs and the dispute
// review workflow.
type SignoffHandler struct {
	disputes *service.DisputeService
}

// NewSignoffHandler creates a new signoff handler
func NewSignoffHandler(disputes *service.DisputeService) *SignoffHandler {
	return &SignoffHandler{disputes: disputes}
}

type signoffRequest struct {
	IsAccepted            bool   `json:"is_accepted"`
	Rating                *int   `json:"rating"`
	Feedback              string `json:"feedback"`
	DisputeReason         string `json:"dispute_reason"`
	DisputeImageReference string `json:"dispute_image_reference"`
}

// SubmitSignoff handles POST /api/v1/complaints/{id}/signoff
// The citizen either accepts the resolution with a rating or disputes it
// with a reason.
func (h *SignoffHandler) SubmitSignoff(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	complaintID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req signoffRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.IsAccepted && req.Rating == nil {
		respondWithError(w, http.StatusBadRequest, "Validation error", "Rating is required when accepting a resolution")
		return
	}
	if !req.IsAccepted && req.DisputeReason == "" {
		respondWithError(w, http.StatusBadRequest, "Validation error", "Dispute reason is required when disputing a resolution")
		return
	}

	signoff, err := h.disputes.SubmitSignoff(r.Context(), &service.SignoffRequest{
		ComplaintID:           complaintID,
		IsAccepted:            req.IsAccepted,
		Rating:                req.Rating,
		Feedback:              req.Feedback,
		DisputeReason:         req.DisputeReason,
		DisputeImageReference: req.DisputeImageReference,
	}, caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, signoff)
}

type disputeReviewRequest struct {
	Approved        bool   `json:"approved"`
	RejectionReason string `json:"rejection_reason"`
}

// ReviewDispute handles POST /api/v1/disputes/{id}/review
// A department head approves the dispute, reopening the complaint, or
// rejects it with a reason.
func (h *SignoffHandler) ReviewDispute(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	signoffID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req disputeReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.Approved && req.RejectionReason == "" {
		respondWithError(w, http.StatusBadRequest, "Validation error", "Rejection reason is required when rejecting a dispute")
		return
	}

	signoff, err := h.disputes.ReviewDispute(r.Context(), signoffID, caller, req.Approved, req.RejectionReason)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, signoff)
}

// PendingDisputes handles GET /api/v1/disputes/pending
// Returns the disputes awaiting review in the caller's department.
func (h *SignoffHandler) PendingDisputes(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	disputes, err := h.disputes.PendingDisputesForDepartment(r.Context(), caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(disputes),
		"disputes": disputes,
	})
}
