package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"samadhan/handler"
	"samadhan/middleware"
	"samadhan/models"
	"samadhan/service"
	"samadhan/worker"
)

// SetupRoutes configures all API routes.
//
// Authentication is uniform: every /api/v1 route requires a bearer token
// from the identity service. Role gates that mirror a service-level check
// exist to reject early; the service check remains the authority.
func SetupRoutes(
	complaintService *service.ComplaintService,
	escalationService *service.EscalationService,
	disputeService *service.DisputeService,
	notificationService *service.NotificationService,
	escalationWorker *worker.EscalationWorker,
	jwtSecret string,
) *mux.Router {
	router := mux.NewRouter()

	complaintHandler := handler.NewComplaintHandler(complaintService)
	escalationHandler := handler.NewEscalationHandler(escalationService, escalationWorker)
	signoffHandler := handler.NewSignoffHandler(disputeService)
	notificationHandler := handler.NewNotificationHandler(notificationService)

	authMiddleware := middleware.NewAuthMiddleware(jwtSecret)

	oversight := middleware.RequireRole(
		models.RoleDeptHead, models.RoleCommissioner, models.RoleAdmin, models.RoleSuperAdmin,
	)
	adminOnly := middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin)
	deptHeadOnly := middleware.RequireRole(models.RoleDeptHead)
	fieldRoles := middleware.RequireRole(models.RoleStaff, models.RoleDeptHead)

	// API v1 routes (all authenticated)
	apiV1 := router.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(authMiddleware.RequireAuth)

	// Complaint lifecycle
	complaints := apiV1.PathPrefix("/complaints").Subrouter()
	complaints.HandleFunc("", complaintHandler.ListComplaints).Methods("GET")
	complaints.HandleFunc("", complaintHandler.CreateComplaint).Methods("POST")
	complaints.HandleFunc("/{id}", complaintHandler.GetComplaint).Methods("GET")
	complaints.HandleFunc("/{id}/transitions", complaintHandler.AllowedTransitions).Methods("GET")
	complaints.HandleFunc("/{id}/transitions", complaintHandler.Transition).Methods("POST")
	complaints.Handle("/{id}/assign", adminOnly(http.HandlerFunc(complaintHandler.AssignDepartment))).Methods("POST")
	complaints.Handle("/{id}/proof", fieldRoles(http.HandlerFunc(complaintHandler.SubmitProof))).Methods("POST")
	complaints.Handle("/{id}/audit", oversight(http.HandlerFunc(complaintHandler.AuditTrail))).Methods("GET")
	complaints.Handle("/{id}/escalations", oversight(http.HandlerFunc(escalationHandler.History))).Methods("GET")
	complaints.HandleFunc("/{id}/signoff", signoffHandler.SubmitSignoff).Methods("POST")

	// Dispute review (department heads)
	disputes := apiV1.PathPrefix("/disputes").Subrouter()
	disputes.Handle("/pending", deptHeadOnly(http.HandlerFunc(signoffHandler.PendingDisputes))).Methods("GET")
	disputes.Handle("/{id}/review", deptHeadOnly(http.HandlerFunc(signoffHandler.ReviewDispute))).Methods("POST")

	// Notifications (read side; writes happen only through the dispatch pipeline)
	notifications := apiV1.PathPrefix("/notifications").Subrouter()
	notifications.HandleFunc("", notificationHandler.List).Methods("GET")
	notifications.HandleFunc("/unread-count", notificationHandler.UnreadCount).Methods("GET")
	notifications.HandleFunc("/{id}/read", notificationHandler.MarkRead).Methods("POST")
	notifications.HandleFunc("/read-all", notificationHandler.MarkAllRead).Methods("POST")
	notifications.HandleFunc("/complaint/{id}/read", notificationHandler.MarkComplaintRead).Methods("POST")

	// Operational endpoints
	apiV1.Handle("/stats", http.HandlerFunc(complaintHandler.StatusSummary)).Methods("GET")
	ops := apiV1.PathPrefix("/ops").Subrouter()
	ops.Handle("/escalations/run", adminOnly(http.HandlerFunc(escalationHandler.RunSweep))).Methods("POST")
	ops.Handle("/overdue", oversight(http.HandlerFunc(escalationHandler.Overdue))).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
