package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"samadhan/lifecycle"
	"samadhan/models"
	"samadhan/repository"
	"samadhan/telemetry"
)

// EscalationService orchestrates one complaint's escalation: evaluate,
// idempotency check, persist the event, raise the complaint's level, audit.
// All of it inside one transaction; alerts go out after commit.
type EscalationService struct {
	store     repository.Store
	evaluator *lifecycle.Evaluator
	audit     *AuditRecorder
	notifier  *NotificationService
	clock     func() time.Time
}

// NewEscalationService creates the escalation service.
func NewEscalationService(
	store repository.Store,
	evaluator *lifecycle.Evaluator,
	audit *AuditRecorder,
	notifier *NotificationService,
) *EscalationService {
	if evaluator == nil {
		evaluator = lifecycle.DefaultEvaluator()
	}
	return &EscalationService{
		store:     store,
		evaluator: evaluator,
		audit:     audit,
		notifier:  notifier,
		clock:     time.Now,
	}
}

// Process escalates one complaint if its SLA standing demands it. Returns
// the event performed, or nil when nothing was needed. Safe to call
// concurrently for the same complaint: the (complaint_id, level) unique key
// makes the losing run a no-op.
func (s *EscalationService) Process(ctx context.Context, complaint *models.Complaint, today time.Time, automated bool) (*models.EscalationEvent, error) {
	// Cheap pre-check on the caller's snapshot before opening a transaction.
	if pre := s.evaluator.Evaluate(complaint, today); !pre.Required {
		return nil, nil
	}

	var event *models.EscalationEvent
	var current *models.Complaint
	err := s.store.RunInTransaction(ctx, func(tx repository.Store) error {
		fresh, err := tx.Complaints().GetByIDForUpdate(ctx, complaint.ComplaintID)
		if err != nil {
			return err
		}
		current = fresh
		if fresh.Status.IsTerminal() {
			// Closed or cancelled between fetch and processing.
			return nil
		}
		result := s.evaluator.Evaluate(fresh, today)
		if !result.Required {
			return nil
		}

		exists, err := tx.Events().ExistsFor(ctx, fresh.ComplaintID, result.RequiredLevel)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		e := &models.EscalationEvent{
			ComplaintID:         fresh.ComplaintID,
			PreviousLevel:       result.CurrentLevel,
			EscalationLevel:     result.RequiredLevel,
			EscalatedAt:         s.clock().UTC(),
			EscalatedToRole:     result.RequiredLevel.EscalatedToRole(),
			Reason:              result.Reason,
			DaysOverdue:         result.DaysOverdue,
			SLADeadlineSnapshot: result.SLADeadline,
			IsAutomated:         automated,
		}
		if err := tx.Events().Create(ctx, e); err != nil {
			if errors.Is(err, models.ErrConflictingUpdate) {
				// A concurrent run won the race for this level.
				log.Printf("[ESCALATION] complaint %d already escalated to %s by a concurrent run", fresh.ComplaintID, result.RequiredLevel)
				return nil
			}
			return err
		}

		if _, err := tx.Complaints().RaiseEscalationLevel(ctx, fresh.ComplaintID, result.RequiredLevel); err != nil {
			return err
		}
		if err := s.audit.RecordEscalation(ctx, tx, fresh.ComplaintID, result.CurrentLevel, result.RequiredLevel, result.Reason); err != nil {
			return err
		}
		event = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, nil
	}

	log.Printf("[ESCALATION] complaint %d escalated %s -> %s (%d day(s) overdue)",
		event.ComplaintID, event.PreviousLevel, event.EscalationLevel, event.DaysOverdue)
	telemetry.RecordEscalation(ctx, event.EscalationLevel.String())
	// Notices route by the row as committed, not the pre-check snapshot.
	s.notifier.DispatchAll(s.escalationNotices(ctx, current, event))
	return event, nil
}

// escalationNotices builds the post-commit alerts for one escalation: the
// accountable recipient for the new level plus a notice to the citizen.
func (s *EscalationService) escalationNotices(ctx context.Context, complaint *models.Complaint, event *models.EscalationEvent) []*models.NotificationRequest {
	id := event.ComplaintID
	notices := []*models.NotificationRequest{{
		UserID:      complaint.CitizenID,
		Type:        models.NotificationStatusChanged,
		Title:       "Complaint escalated",
		Message:     fmt.Sprintf("Complaint %s missed its deadline and has been escalated to %s.", complaint.ComplaintNumber, event.EscalationLevel),
		ComplaintID: &id,
	}}

	recipient, err := s.escalationRecipient(ctx, complaint, event.EscalationLevel)
	if err != nil {
		log.Printf("[ESCALATION] no %s recipient for complaint %d: %v", event.EscalatedToRole, id, err)
		return notices
	}
	notices = append(notices, &models.NotificationRequest{
		UserID:      recipient,
		Type:        models.NotificationEscalationAlert,
		Title:       fmt.Sprintf("Escalation to %s", event.EscalationLevel),
		Message:     fmt.Sprintf("Complaint %s is %d day(s) overdue and now requires your attention.", complaint.ComplaintNumber, event.DaysOverdue),
		ComplaintID: &id,
	})
	return notices
}

// escalationRecipient resolves who is accountable at the new level.
func (s *EscalationService) escalationRecipient(ctx context.Context, complaint *models.Complaint, level models.EscalationLevel) (int64, error) {
	switch level {
	case models.LevelDeptHead:
		if !complaint.DepartmentID.Valid {
			return 0, fmt.Errorf("complaint has no department")
		}
		return s.store.Directory().DeptHeadFor(ctx, complaint.DepartmentID.Int64)
	case models.LevelCommissioner:
		return s.store.Directory().AnyCommissioner(ctx)
	default:
		return 0, fmt.Errorf("level %s has no alert recipient", level)
	}
}

// ProcessBatch runs Process over a set of complaints. One complaint's
// failure is logged and the sweep continues. Returns the number of
// escalations performed.
func (s *EscalationService) ProcessBatch(ctx context.Context, complaints []models.Complaint, today time.Time, automated bool) int {
	performed := 0
	for i := range complaints {
		if ctx.Err() != nil {
			log.Printf("[ESCALATION] batch cancelled after %d of %d complaint(s)", i, len(complaints))
			return performed
		}
		event, err := s.Process(ctx, &complaints[i], today, automated)
		if err != nil {
			log.Printf("[ESCALATION] skipping complaint %d: %v", complaints[i].ComplaintID, err)
			continue
		}
		if event != nil {
			performed++
		}
	}
	return performed
}

// RunOnce fetches the active set and processes it. Both the scheduler tick
// (automated) and the manual admin trigger land here.
func (s *EscalationService) RunOnce(ctx context.Context, automated bool) (int, error) {
	active, err := s.store.Complaints().FindActiveWithDeadline(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch active complaints: %w", err)
	}
	performed := s.ProcessBatch(ctx, active, s.clock().UTC(), automated)
	log.Printf("[ESCALATION] sweep complete: %d active complaint(s), %d escalated", len(active), performed)
	return performed, nil
}

// EscalationHistory returns a complaint's escalation events, oldest first.
func (s *EscalationService) EscalationHistory(ctx context.Context, complaintID int64) ([]models.EscalationEvent, error) {
	if _, err := s.store.Complaints().GetByID(ctx, complaintID); err != nil {
		return nil, err
	}
	return s.store.Events().FindByComplaint(ctx, complaintID)
}

// OverdueComplaints lists active complaints past their deadline, each
// annotated with its escalation standing.
func (s *EscalationService) OverdueComplaints(ctx context.Context) ([]models.OverdueComplaint, error) {
	now := s.clock().UTC()
	overdue, err := s.store.Complaints().FindOverdue(ctx, now)
	if err != nil {
		return nil, err
	}

	annotated := make([]models.OverdueComplaint, 0, len(overdue))
	for i := range overdue {
		result := s.evaluator.Evaluate(&overdue[i], now)
		required := result.RequiredLevel
		if !result.Required {
			required = result.CurrentLevel
		}
		annotated = append(annotated, models.OverdueComplaint{
			Complaint:     overdue[i],
			CurrentLevel:  result.CurrentLevel,
			RequiredLevel: required,
			DaysOverdue:   result.DaysOverdue,
		})
	}
	return annotated, nil
}
