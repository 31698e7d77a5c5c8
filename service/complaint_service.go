package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"samadhan/lifecycle"
	"samadhan/models"
	"samadhan/repository"
	"samadhan/telemetry"
	"samadhan/utils"
)

// DefaultRoutingConfidenceThreshold is the minimum classifier confidence for
// automatic routing. Below it the complaint waits for an admin.
const DefaultRoutingConfidenceThreshold = 0.7

// defaultManualRoutingSLADays applies when an admin assigns a department and
// the complaint has no category with an SLA rule.
const defaultManualRoutingSLADays = 7

// TransitionResult reports the outcome of one transition request.
type TransitionResult struct {
	ComplaintID int64                  `json:"complaint_id"`
	From        models.ComplaintStatus `json:"from"`
	To          models.ComplaintStatus `json:"to"`
	NoOp        bool                   `json:"no_op"`
	ChangedAt   time.Time              `json:"changed_at"`
}

// CreateComplaintRequest carries intake input. Classifier is the external
// classifier's verdict, nil when classification was unavailable.
type CreateComplaintRequest struct {
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Location    string                   `json:"location"`
	Classifier  *models.ClassifierResult `json:"classifier,omitempty"`
}

// ComplaintService is the request-handling core for complaint state. Every
// mutation runs in a single transaction covering the business write and its
// audit row; notifications are queued after commit.
type ComplaintService struct {
	store               repository.Store
	guards              *GuardEvaluator
	audit               *AuditRecorder
	notifier            *NotificationService
	confidenceThreshold float64
	clock               func() time.Time
}

// NewComplaintService creates the complaint state service. A non-positive
// confidenceThreshold falls back to the default.
func NewComplaintService(
	store repository.Store,
	guards *GuardEvaluator,
	audit *AuditRecorder,
	notifier *NotificationService,
	confidenceThreshold float64,
) *ComplaintService {
	if confidenceThreshold <= 0 || confidenceThreshold > 1 {
		confidenceThreshold = DefaultRoutingConfidenceThreshold
	}
	return &ComplaintService{
		store:               store,
		guards:              guards,
		audit:               audit,
		notifier:            notifier,
		confidenceThreshold: confidenceThreshold,
		clock:               time.Now,
	}
}

// CreateComplaint files a new complaint in FILED, subject to the per-citizen
// filing limits. When the classifier is confident enough and the category
// carries an SLA rule, routing runs in the same transaction: department and
// deadline are assigned and the system moves the complaint to IN_PROGRESS.
// Otherwise the complaint is flagged for manual routing and waits for an
// admin.
func (s *ComplaintService) CreateComplaint(ctx context.Context, req *CreateComplaintRequest, caller models.CallerContext) (*models.Complaint, error) {
	if err := caller.Validate(); err != nil {
		return nil, fmt.Errorf("invalid caller context: %w", err)
	}
	if caller.Role != models.RoleCitizen {
		return nil, fmt.Errorf("role %s may not file complaints: %w", caller.Role, models.ErrUnauthorized)
	}
	if req.Title == "" || req.Description == "" {
		return nil, fmt.Errorf("title and description are required")
	}

	now := s.clock().UTC()
	complaint := &models.Complaint{
		ComplaintNumber:    repository.GenerateComplaintNumber(now),
		CitizenID:          *caller.UserID,
		Title:              req.Title,
		Description:        req.Description,
		Location:           req.Location,
		Priority:           models.PriorityMedium,
		Status:             models.StatusFiled,
		NeedsManualRouting: true,
		CreatedAt:          now,
	}
	if req.Classifier != nil {
		complaint.CategoryID = sql.NullInt64{Int64: req.Classifier.CategoryID, Valid: true}
		complaint.AIConfidence = sql.NullFloat64{Float64: req.Classifier.Confidence, Valid: true}
	}

	var pending []*models.NotificationRequest
	err := s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		if err := s.checkFilingLimits(ctx, tx, req, complaint.CitizenID, now); err != nil {
			return err
		}
		rule, err := s.routingRule(ctx, tx, req.Classifier)
		if err != nil {
			return err
		}
		if rule != nil {
			complaint.NeedsManualRouting = false
			complaint.Priority = rule.BasePriority
			if req.Classifier.Priority.IsValid() {
				complaint.Priority = req.Classifier.Priority
			}
		}

		if err := tx.Complaints().Create(ctx, complaint); err != nil {
			return err
		}
		if err := s.audit.RecordFiled(ctx, tx, complaint.ComplaintID, caller); err != nil {
			return err
		}
		if rule == nil {
			return nil
		}

		deadline := now.AddDate(0, 0, rule.SLADays)
		reason := fmt.Sprintf("automatic routing (confidence %.2f)", req.Classifier.Confidence)
		notices, err := s.routeAndStart(ctx, tx, complaint, rule.DepartmentID, nil, deadline, models.SystemCaller(), reason)
		if err != nil {
			return err
		}
		pending = notices
		return nil
	})
	if err != nil {
		return nil, err
	}

	if complaint.NeedsManualRouting {
		log.Printf("[INTAKE] complaint %s filed by citizen %d, awaiting manual routing", complaint.ComplaintNumber, complaint.CitizenID)
	} else {
		log.Printf("[INTAKE] complaint %s filed by citizen %d, routed to department %d", complaint.ComplaintNumber, complaint.CitizenID, complaint.DepartmentID.Int64)
	}
	s.notifier.DispatchAll(pending)
	return complaint, nil
}

// routingRule resolves the SLA rule for automatic routing, or nil when the
// complaint must wait for an admin (no classifier verdict, low confidence,
// or a category with no rule).
func (s *ComplaintService) routingRule(ctx context.Context, tx repository.Store, cls *models.ClassifierResult) (*models.SLARule, error) {
	if cls == nil || cls.Confidence < s.confidenceThreshold {
		return nil, nil
	}
	rule, err := tx.Categories().GetSLARule(ctx, cls.CategoryID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Printf("[INTAKE] no SLA rule for category %d, leaving complaint for manual routing", cls.CategoryID)
			return nil, nil
		}
		return nil, err
	}
	return rule, nil
}

// AssignDepartment is the admin path for complaints the classifier could not
// route. It assigns the department, deadline and optionally a staff member,
// then performs the system-driven move to IN_PROGRESS in the same
// transaction.
func (s *ComplaintService) AssignDepartment(ctx context.Context, complaintID, departmentID int64, staffID *int64, caller models.CallerContext, reason string) (*models.Complaint, error) {
	if err := caller.Validate(); err != nil {
		return nil, fmt.Errorf("invalid caller context: %w", err)
	}
	if caller.Role != models.RoleAdmin && caller.Role != models.RoleSuperAdmin {
		return nil, fmt.Errorf("role %s may not assign departments: %w", caller.Role, models.ErrUnauthorized)
	}
	if reason == "" {
		reason = "manual routing by admin"
	}

	var complaint *models.Complaint
	var pending []*models.NotificationRequest
	err := s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		var err error
		complaint, err = tx.Complaints().GetByIDForUpdate(ctx, complaintID)
		if err != nil {
			return err
		}
		if complaint.Status != models.StatusFiled {
			return &models.InvalidTransitionError{
				From:    complaint.Status,
				To:      models.StatusInProgress,
				Allowed: lifecycle.AllowedTargets(complaint.Status),
			}
		}

		slaDays := defaultManualRoutingSLADays
		if complaint.CategoryID.Valid {
			rule, err := tx.Categories().GetSLARule(ctx, complaint.CategoryID.Int64)
			if err != nil && !errors.Is(err, models.ErrNotFound) {
				return err
			}
			if err == nil {
				slaDays = rule.SLADays
			}
		}
		deadline := s.clock().UTC().AddDate(0, 0, slaDays)

		pending, err = s.routeAndStart(ctx, tx, complaint, departmentID, staffID, deadline, caller, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INTAKE] complaint %d manually routed to department %d by user %d", complaintID, departmentID, *caller.UserID)
	s.notifier.DispatchAll(pending)
	return complaint, nil
}

// routeAndStart assigns routing fields and performs the SYSTEM transition to
// IN_PROGRESS. Must run inside the caller's transaction. The in-memory
// complaint is updated to reflect the writes.
func (s *ComplaintService) routeAndStart(
	ctx context.Context,
	tx repository.Store,
	complaint *models.Complaint,
	departmentID int64,
	staffID *int64,
	deadline time.Time,
	assignedBy models.CallerContext,
	reason string,
) ([]*models.NotificationRequest, error) {
	if err := tx.Complaints().AssignRouting(ctx, complaint.ComplaintID, departmentID, staffID, deadline); err != nil {
		return nil, err
	}
	if err := s.audit.RecordAssignment(ctx, tx, complaint.ComplaintID, departmentID, assignedBy, reason); err != nil {
		return nil, err
	}

	// Routing is never a manual state change; the transition actor is SYSTEM.
	result, notices, err := s.applyTransition(ctx, tx, complaint.ComplaintID, models.StatusInProgress, models.SystemCaller(), reason)
	if err != nil {
		return nil, err
	}

	complaint.DepartmentID = sql.NullInt64{Int64: departmentID, Valid: true}
	complaint.SLADeadline = sql.NullTime{Time: deadline, Valid: true}
	complaint.NeedsManualRouting = false
	complaint.Status = result.To
	complaint.StartedAt = sql.NullTime{Time: result.ChangedAt, Valid: true}
	if staffID != nil {
		complaint.StaffID = sql.NullInt64{Int64: *staffID, Valid: true}
		id := complaint.ComplaintID
		notices = append(notices, &models.NotificationRequest{
			UserID:      *staffID,
			Type:        models.NotificationComplaintAssigned,
			Title:       "Complaint assigned to you",
			Message:     fmt.Sprintf("Complaint %s has been assigned to you for resolution.", complaint.ComplaintNumber),
			ComplaintID: &id,
		})
	}
	return notices, nil
}

// Transition applies one state change on behalf of the caller. The business
// write and its audit row share a transaction; notifications go out after
// commit and never affect the outcome.
func (s *ComplaintService) Transition(
	ctx context.Context,
	complaintID int64,
	target models.ComplaintStatus,
	caller models.CallerContext,
	reason string,
) (*TransitionResult, error) {
	var result *TransitionResult
	var pending []*models.NotificationRequest
	err := s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		var err error
		result, pending, err = s.applyTransition(ctx, tx, complaintID, target, caller, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !result.NoOp {
		log.Printf("[TRANSITION] complaint %d: %s -> %s by %s", complaintID, result.From, result.To, caller.Role)
		telemetry.RecordTransition(ctx, string(result.From), string(result.To))
	}
	s.notifier.DispatchAll(pending)
	return result, nil
}

// applyTransition is the transactional core of Transition. It is also called
// by the dispute workflow, which reopens a complaint inside its own review
// transaction. Returned notifications must be dispatched by the caller after
// the transaction commits.
func (s *ComplaintService) applyTransition(
	ctx context.Context,
	tx repository.Store,
	complaintID int64,
	target models.ComplaintStatus,
	caller models.CallerContext,
	reason string,
) (*TransitionResult, []*models.NotificationRequest, error) {
	if err := caller.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid caller context: %w", err)
	}

	complaint, err := tx.Complaints().GetByIDForUpdate(ctx, complaintID)
	if err != nil {
		return nil, nil, err
	}

	from := complaint.Status
	if from == target {
		return &TransitionResult{ComplaintID: complaintID, From: from, To: target, NoOp: true}, nil, nil
	}
	if !lifecycle.IsLegal(from, target) {
		return nil, nil, &models.InvalidTransitionError{From: from, To: target, Allowed: lifecycle.AllowedTargets(from)}
	}
	if !lifecycle.RoleAllowed(from, target, caller.Role) {
		return nil, nil, &models.UnauthorizedError{Role: caller.Role, From: from, To: target, Allowed: lifecycle.AllowedRoles(from, target)}
	}
	if err := s.guards.CheckTransition(ctx, tx, complaint, target, caller); err != nil {
		return nil, nil, err
	}

	now := s.clock().UTC()
	if err := tx.Complaints().UpdateStatus(ctx, complaintID, target, now); err != nil {
		return nil, nil, err
	}
	if err := s.audit.RecordStateChange(ctx, tx, complaintID, from, target, caller, reason); err != nil {
		return nil, nil, err
	}

	result := &TransitionResult{ComplaintID: complaintID, From: from, To: target, ChangedAt: now}
	return result, s.transitionNotices(complaint, from, target), nil
}

// transitionNotices builds the citizen-facing notices for one transition.
func (s *ComplaintService) transitionNotices(complaint *models.Complaint, from, to models.ComplaintStatus) []*models.NotificationRequest {
	id := complaint.ComplaintID
	notices := []*models.NotificationRequest{{
		UserID:      complaint.CitizenID,
		Type:        models.NotificationStatusChanged,
		Title:       "Complaint status updated",
		Message:     fmt.Sprintf("Complaint %s moved from %s to %s.", complaint.ComplaintNumber, from, to),
		ComplaintID: &id,
	}}

	switch to {
	case models.StatusResolved:
		notices = append(notices,
			&models.NotificationRequest{
				UserID:      complaint.CitizenID,
				Type:        models.NotificationComplaintResolved,
				Title:       "Complaint resolved",
				Message:     fmt.Sprintf("Complaint %s has been marked resolved. Please confirm the resolution or raise a dispute.", complaint.ComplaintNumber),
				ComplaintID: &id,
			},
			&models.NotificationRequest{
				UserID:      complaint.CitizenID,
				Type:        models.NotificationRatingRequest,
				Title:       "Rate the resolution",
				Message:     fmt.Sprintf("How satisfied are you with the resolution of complaint %s? Rate it from 1 to 5.", complaint.ComplaintNumber),
				ComplaintID: &id,
			},
		)
	case models.StatusClosed:
		notices = append(notices, &models.NotificationRequest{
			UserID:      complaint.CitizenID,
			Type:        models.NotificationComplaintClosed,
			Title:       "Complaint closed",
			Message:     fmt.Sprintf("Complaint %s is now closed.", complaint.ComplaintNumber),
			ComplaintID: &id,
		})
	}
	return notices
}

// GetAllowedTransitions returns the targets the caller's role may reach from
// the complaint's current status.
func (s *ComplaintService) GetAllowedTransitions(ctx context.Context, complaintID int64, caller models.CallerContext) ([]models.ComplaintStatus, error) {
	if err := caller.Validate(); err != nil {
		return nil, fmt.Errorf("invalid caller context: %w", err)
	}
	complaint, err := s.store.Complaints().GetByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	return lifecycle.TargetsForRole(complaint.Status, caller.Role), nil
}

// SubmitResolutionProof records staff evidence of work performed. The proof
// and its CREATE audit row share a transaction. Proof is only accepted while
// the complaint is IN_PROGRESS and only from the complaint's department.
func (s *ComplaintService) SubmitResolutionProof(
	ctx context.Context,
	complaintID int64,
	caller models.CallerContext,
	imageReference string,
	latitude, longitude *float64,
	remarks string,
) (*models.ResolutionProof, error) {
	if err := caller.Validate(); err != nil {
		return nil, fmt.Errorf("invalid caller context: %w", err)
	}
	if caller.Role != models.RoleStaff && caller.Role != models.RoleDeptHead {
		return nil, fmt.Errorf("role %s may not submit resolution proof: %w", caller.Role, models.ErrUnauthorized)
	}
	if imageReference == "" {
		return nil, fmt.Errorf("image reference is required")
	}

	var proof *models.ResolutionProof
	err := s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		complaint, err := tx.Complaints().GetByID(ctx, complaintID)
		if err != nil {
			return err
		}
		if complaint.Status != models.StatusInProgress {
			return fmt.Errorf("complaint %d is %s, proof is only accepted while IN_PROGRESS: %w",
				complaintID, complaint.Status, models.ErrInvalidTransition)
		}
		if !complaint.DepartmentID.Valid || caller.DepartmentID == nil || complaint.DepartmentID.Int64 != *caller.DepartmentID {
			var complaintDept *int64
			if complaint.DepartmentID.Valid {
				d := complaint.DepartmentID.Int64
				complaintDept = &d
			}
			return &models.DepartmentMismatchError{
				ComplaintID:         complaintID,
				CallerDepartment:    caller.DepartmentID,
				ComplaintDepartment: complaintDept,
			}
		}

		now := s.clock().UTC()
		proof = &models.ResolutionProof{
			ComplaintID:    complaintID,
			StaffID:        *caller.UserID,
			ImageReference: imageReference,
			CapturedAt:     now,
			CreatedAt:      now,
		}
		var lat, lon float64
		if latitude != nil {
			lat = *latitude
			proof.Latitude = sql.NullFloat64{Float64: lat, Valid: true}
		}
		if longitude != nil {
			lon = *longitude
			proof.Longitude = sql.NullFloat64{Float64: lon, Valid: true}
		}
		if remarks != "" {
			proof.Remarks = sql.NullString{String: remarks, Valid: true}
		}
		proof.IntegrityHash = utils.ProofHash(imageReference, lat, lon, now)

		if err := tx.Proofs().Create(ctx, proof); err != nil {
			return err
		}
		return s.audit.RecordProofSubmitted(ctx, tx, complaintID, proof.ProofID, caller)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[TRANSITION] resolution proof %d recorded for complaint %d by staff %d", proof.ProofID, complaintID, proof.StaffID)
	return proof, nil
}

// GetComplaint returns one complaint with role-based access: citizens see
// their own, operational roles their department's, oversight roles all.
func (s *ComplaintService) GetComplaint(ctx context.Context, complaintID int64, caller models.CallerContext) (*models.Complaint, error) {
	if err := caller.Validate(); err != nil {
		return nil, fmt.Errorf("invalid caller context: %w", err)
	}
	complaint, err := s.store.Complaints().GetByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	switch caller.Role {
	case models.RoleCitizen:
		if complaint.CitizenID != *caller.UserID {
			return nil, &models.OwnershipViolationError{ComplaintID: complaintID, CallerID: *caller.UserID}
		}
	case models.RoleStaff, models.RoleDeptHead:
		if !complaint.DepartmentID.Valid || caller.DepartmentID == nil || complaint.DepartmentID.Int64 != *caller.DepartmentID {
			var complaintDept *int64
			if complaint.DepartmentID.Valid {
				d := complaint.DepartmentID.Int64
				complaintDept = &d
			}
			return nil, &models.DepartmentMismatchError{
				ComplaintID:         complaintID,
				CallerDepartment:    caller.DepartmentID,
				ComplaintDepartment: complaintDept,
			}
		}
	}
	return complaint, nil
}

// ComplaintsFor returns the caller's working set: citizens their own filings,
// staff their assignments, department heads their department, commissioners
// the escalated set, admins the manual-routing queue.
func (s *ComplaintService) ComplaintsFor(ctx context.Context, caller models.CallerContext) ([]models.Complaint, error) {
	if err := caller.Validate(); err != nil {
		return nil, fmt.Errorf("invalid caller context: %w", err)
	}
	switch caller.Role {
	case models.RoleCitizen:
		return s.store.Complaints().FindByCitizen(ctx, *caller.UserID)
	case models.RoleStaff:
		return s.store.Complaints().FindByStaff(ctx, *caller.UserID)
	case models.RoleDeptHead:
		if caller.DepartmentID == nil {
			return nil, fmt.Errorf("department head caller has no department: %w", models.ErrDepartmentMismatch)
		}
		return s.store.Complaints().FindByDepartment(ctx, *caller.DepartmentID)
	case models.RoleCommissioner:
		return s.store.Complaints().FindEscalated(ctx)
	case models.RoleAdmin, models.RoleSuperAdmin:
		return s.store.Complaints().FindNeedingManualRouting(ctx)
	default:
		return nil, fmt.Errorf("role %s has no complaint listing: %w", caller.Role, models.ErrUnauthorized)
	}
}

// StatusSummary returns complaint counts by status, scoped to the caller's
// department for operational roles and global otherwise.
func (s *ComplaintService) StatusSummary(ctx context.Context, caller models.CallerContext) ([]models.StatusCount, error) {
	if err := caller.Validate(); err != nil {
		return nil, fmt.Errorf("invalid caller context: %w", err)
	}
	var scope *int64
	if caller.Role == models.RoleStaff || caller.Role == models.RoleDeptHead {
		scope = caller.DepartmentID
	}
	return s.store.Complaints().CountByStatus(ctx, scope)
}

// AuditTrail returns the complaint's audit rows, oldest first.
func (s *ComplaintService) AuditTrail(ctx context.Context, complaintID int64) ([]models.AuditLog, error) {
	if _, err := s.store.Complaints().GetByID(ctx, complaintID); err != nil {
		return nil, err
	}
	return s.audit.TrailFor(ctx, s.store, models.AuditEntityComplaint, complaintID)
}

// AutoCloseBatch closes RESOLVED complaints the citizen has ignored past the
// silence window. Each close is its own transaction; one failure never stops
// the sweep.
func (s *ComplaintService) AutoCloseBatch(ctx context.Context, silence time.Duration) (int, error) {
	cutoff := s.clock().UTC().Add(-silence)
	candidates, err := s.store.Complaints().FindAutoCloseCandidates(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to find auto-close candidates: %w", err)
	}

	closed := 0
	for i := range candidates {
		if ctx.Err() != nil {
			return closed, ctx.Err()
		}
		id := candidates[i].ComplaintID
		_, err := s.Transition(ctx, id, models.StatusClosed, models.SystemCaller(), "auto-closed after citizen silence window")
		if err != nil {
			log.Printf("[AUTOCLOSE] complaint %d: %v", id, err)
			continue
		}
		closed++
	}
	if closed > 0 {
		log.Printf("[AUTOCLOSE] closed %d complaint(s) resolved before %s", closed, cutoff.Format(time.RFC3339))
	}
	return closed, nil
}
