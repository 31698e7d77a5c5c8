package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"samadhan/middleware"
	"samadhan/models"
)

// ErrorResponse is the JSON error body all endpoints return.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// respondWithError sends an error response
func respondWithError(w http.ResponseWriter, statusCode int, errorType, message string) {
	respondWithJSON(w, statusCode, ErrorResponse{
		Error:   errorType,
		Message: message,
		Code:    statusCode,
	})
}

// respondServiceError maps core error kinds to transport codes. The carrier
// types keep their diagnostics in the message; classification happens on the
// sentinel, never on the message text.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, models.ErrUnauthorized),
		errors.Is(err, models.ErrOwnershipViolation),
		errors.Is(err, models.ErrDepartmentMismatch):
		respondWithError(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrResolutionProofRequired),
		errors.Is(err, models.ErrSignoffRequired),
		errors.Is(err, models.ErrInvalidDisputeState),
		errors.Is(err, models.ErrDuplicateDispute),
		errors.Is(err, models.ErrConflictingUpdate):
		respondWithError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, models.ErrFilingRateLimited),
		errors.Is(err, models.ErrDuplicateFiling):
		respondWithError(w, http.StatusTooManyRequests, "Submission limit", err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal error", err.Error())
	}
}

// callerFrom extracts the authenticated caller or writes a 401.
func callerFrom(w http.ResponseWriter, r *http.Request) (models.CallerContext, bool) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
		return models.CallerContext{}, false
	}
	return caller, true
}

// pathID parses a numeric path variable or writes a 400.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid request", "Invalid "+name)
		return 0, false
	}
	return id, true
}

// decodeBody parses the JSON request body or writes a 400.
func decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request", "Failed to parse request body")
		return false
	}
	return true
}
