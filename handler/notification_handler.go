package handler

import (
	"net/http"

	"samadhan/service"
)

// NotificationHandler handles HTTP requests for the notification read side.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List handles GET /api/v1/notifications
// Returns the caller's notifications, newest first. ?unread=true narrows to
// unread ones.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := h.notifications.NotificationsFor(r.Context(), *caller.UserID, unreadOnly)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count":         len(notifications),
		"notifications": notifications,
	})
}

// UnreadCount handles GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	count, err := h.notifications.UnreadCount(r.Context(), *caller.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"unread": count,
	})
}

// MarkRead handles POST /api/v1/notifications/{id}/read
// Marks one of the caller's notifications read. Marking an already-read
// notification is a no-op success.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	notificationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(r.Context(), notificationID, *caller.UserID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"notification_id": notificationID,
		"read":            true,
	})
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	marked, err := h.notifications.MarkAllRead(r.Context(), *caller.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"marked": marked,
	})
}

// MarkComplaintRead handles POST /api/v1/notifications/complaint/{id}/read
// Marks the caller's notifications about one complaint read, e.g. when the
// complaint detail screen is opened.
func (h *NotificationHandler) MarkComplaintRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	complaintID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	marked, err := h.notifications.MarkReadForComplaint(r.Context(), *caller.UserID, complaintID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"complaint_id": complaintID,
		"marked":       marked,
	})
}
