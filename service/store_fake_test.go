package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"samadhan/models"
	"samadhan/repository"
)

// fakeStore is an in-memory repository.Store for service tests. Values are
// stored by value and copied on read, so callers can mutate returned structs
// freely. RunInTransaction snapshots the data and restores it when the
// closure fails, mirroring rollback.
type fakeStore struct {
	mu sync.Mutex

	complaints    map[int64]models.Complaint
	proofs        map[int64]models.ResolutionProof
	signoffs      map[int64]models.CitizenSignoff
	events        map[int64]models.EscalationEvent
	audits        []models.AuditLog
	notifications map[int64]models.Notification
	categories    map[int64]models.Category
	rules         map[int64]models.SLARule // keyed by category id
	deptHeads     map[int64]int64          // department id -> user id
	commissioner  int64

	nextID map[string]int64
	inTx   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		complaints:    make(map[int64]models.Complaint),
		proofs:        make(map[int64]models.ResolutionProof),
		signoffs:      make(map[int64]models.CitizenSignoff),
		events:        make(map[int64]models.EscalationEvent),
		notifications: make(map[int64]models.Notification),
		categories:    make(map[int64]models.Category),
		rules:         make(map[int64]models.SLARule),
		deptHeads:     make(map[int64]int64),
		nextID:        make(map[string]int64),
	}
}

func (f *fakeStore) id(kind string) int64 {
	f.nextID[kind]++
	return f.nextID[kind]
}

func (f *fakeStore) Complaints() repository.ComplaintRepository      { return (*fakeComplaints)(f) }
func (f *fakeStore) Proofs() repository.ProofRepository              { return (*fakeProofs)(f) }
func (f *fakeStore) Signoffs() repository.SignoffRepository          { return (*fakeSignoffs)(f) }
func (f *fakeStore) Events() repository.EscalationEventRepository    { return (*fakeEvents)(f) }
func (f *fakeStore) Audit() repository.AuditRepository               { return (*fakeAudit)(f) }
func (f *fakeStore) Notifications() repository.NotificationRepository { return (*fakeNotifications)(f) }
func (f *fakeStore) Categories() repository.CategoryRepository       { return (*fakeCategories)(f) }
func (f *fakeStore) Directory() repository.PrincipalDirectory        { return (*fakeDirectory)(f) }

func (f *fakeStore) RunInTransaction(ctx context.Context, fn func(tx repository.Store) error) error {
	f.mu.Lock()
	if f.inTx {
		f.mu.Unlock()
		return fmt.Errorf("nested transaction")
	}
	f.inTx = true
	snapshot := f.snapshot()
	f.mu.Unlock()

	err := fn(f)

	f.mu.Lock()
	if err != nil {
		f.restore(snapshot)
	}
	f.inTx = false
	f.mu.Unlock()
	return err
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                   { return nil }

type fakeState struct {
	complaints    map[int64]models.Complaint
	proofs        map[int64]models.ResolutionProof
	signoffs      map[int64]models.CitizenSignoff
	events        map[int64]models.EscalationEvent
	audits        []models.AuditLog
	notifications map[int64]models.Notification
	nextID        map[string]int64
}

func (f *fakeStore) snapshot() fakeState {
	return fakeState{
		complaints:    copyMap(f.complaints),
		proofs:        copyMap(f.proofs),
		signoffs:      copyMap(f.signoffs),
		events:        copyMap(f.events),
		audits:        append([]models.AuditLog(nil), f.audits...),
		notifications: copyMap(f.notifications),
		nextID:        copyMap(f.nextID),
	}
}

func (f *fakeStore) restore(s fakeState) {
	f.complaints = s.complaints
	f.proofs = s.proofs
	f.signoffs = s.signoffs
	f.events = s.events
	f.audits = s.audits
	f.notifications = s.notifications
	f.nextID = s.nextID
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// --- complaints ---

type fakeComplaints fakeStore

func (f *fakeComplaints) store() *fakeStore { return (*fakeStore)(f) }

func (f *fakeComplaints) Create(ctx context.Context, c *models.Complaint) error {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ComplaintID = s.id("complaint")
	s.complaints[c.ComplaintID] = *c
	return nil
}

func (f *fakeComplaints) GetByID(ctx context.Context, id int64) (*models.Complaint, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return nil, fmt.Errorf("complaint %d: %w", id, models.ErrNotFound)
	}
	return &c, nil
}

func (f *fakeComplaints) GetByIDForUpdate(ctx context.Context, id int64) (*models.Complaint, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeComplaints) UpdateStatus(ctx context.Context, id int64, status models.ComplaintStatus, at time.Time) error {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return fmt.Errorf("complaint %d: %w", id, models.ErrNotFound)
	}
	c.Status = status
	switch status {
	case models.StatusInProgress:
		if !c.StartedAt.Valid {
			c.StartedAt = nullTime(at)
		}
	case models.StatusResolved:
		c.ResolvedAt = nullTime(at)
	case models.StatusClosed:
		c.ClosedAt = nullTime(at)
	}
	s.complaints[id] = c
	return nil
}

func (f *fakeComplaints) RaiseEscalationLevel(ctx context.Context, id int64, newLevel models.EscalationLevel) (bool, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return false, fmt.Errorf("complaint %d: %w", id, models.ErrNotFound)
	}
	if c.EscalationLevel >= newLevel {
		return false, nil
	}
	c.EscalationLevel = newLevel
	s.complaints[id] = c
	return true, nil
}

func (f *fakeComplaints) AssignRouting(ctx context.Context, id int64, departmentID int64, staffID *int64, slaDeadline time.Time) error {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return fmt.Errorf("complaint %d: %w", id, models.ErrNotFound)
	}
	c.DepartmentID = nullID(&departmentID)
	c.StaffID = nullID(staffID)
	c.SLADeadline = nullTime(slaDeadline)
	c.NeedsManualRouting = false
	s.complaints[id] = c
	return nil
}

func (f *fakeComplaints) UpdateSatisfaction(ctx context.Context, id int64, rating int) error {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return fmt.Errorf("complaint %d: %w", id, models.ErrNotFound)
	}
	c.CitizenSatisfaction = nullID(ptr(int64(rating)))
	s.complaints[id] = c
	return nil
}

func (f *fakeComplaints) list(filter func(models.Complaint) bool) []models.Complaint {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Complaint
	for _, c := range s.complaints {
		if filter(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ComplaintID < out[j].ComplaintID })
	return out
}

func isActive(c models.Complaint) bool { return !c.Status.IsTerminal() }

func (f *fakeComplaints) FindActiveWithDeadline(ctx context.Context) ([]models.Complaint, error) {
	return f.list(func(c models.Complaint) bool {
		return isActive(c) && c.SLADeadline.Valid
	}), nil
}

func (f *fakeComplaints) FindOverdue(ctx context.Context, before time.Time) ([]models.Complaint, error) {
	return f.list(func(c models.Complaint) bool {
		return isActive(c) && c.SLADeadline.Valid && c.SLADeadline.Time.Before(before)
	}), nil
}

func (f *fakeComplaints) FindAutoCloseCandidates(ctx context.Context, resolvedBefore time.Time) ([]models.Complaint, error) {
	s := f.store()
	s.mu.Lock()
	pending := make(map[int64]bool)
	for _, so := range s.signoffs {
		if !so.IsAccepted && !so.DisputeApproved.Valid {
			pending[so.ComplaintID] = true
		}
	}
	s.mu.Unlock()
	return f.list(func(c models.Complaint) bool {
		return c.Status == models.StatusResolved &&
			c.ResolvedAt.Valid && c.ResolvedAt.Time.Before(resolvedBefore) &&
			!pending[c.ComplaintID]
	}), nil
}

func (f *fakeComplaints) FindByCitizen(ctx context.Context, citizenID int64) ([]models.Complaint, error) {
	return f.list(func(c models.Complaint) bool { return c.CitizenID == citizenID }), nil
}

func (f *fakeComplaints) CountFiledSince(ctx context.Context, citizenID int64, since time.Time) (int, error) {
	matched := f.list(func(c models.Complaint) bool {
		return c.CitizenID == citizenID && !c.CreatedAt.Before(since)
	})
	return len(matched), nil
}

func (f *fakeComplaints) HasRecentDuplicate(ctx context.Context, citizenID int64, title, description, location string, since time.Time) (bool, error) {
	matched := f.list(func(c models.Complaint) bool {
		return c.CitizenID == citizenID && c.Title == title && c.Description == description &&
			c.Location == location && !c.CreatedAt.Before(since)
	})
	return len(matched) > 0, nil
}

func (f *fakeComplaints) FindByStaff(ctx context.Context, staffID int64) ([]models.Complaint, error) {
	return f.list(func(c models.Complaint) bool {
		return c.StaffID.Valid && c.StaffID.Int64 == staffID
	}), nil
}

func (f *fakeComplaints) FindByDepartment(ctx context.Context, departmentID int64) ([]models.Complaint, error) {
	return f.list(func(c models.Complaint) bool {
		return c.DepartmentID.Valid && c.DepartmentID.Int64 == departmentID
	}), nil
}

func (f *fakeComplaints) FindUnassignedActiveByDepartment(ctx context.Context, departmentID int64) ([]models.Complaint, error) {
	return f.list(func(c models.Complaint) bool {
		return isActive(c) && c.DepartmentID.Valid && c.DepartmentID.Int64 == departmentID && !c.StaffID.Valid
	}), nil
}

func (f *fakeComplaints) FindNeedingManualRouting(ctx context.Context) ([]models.Complaint, error) {
	return f.list(func(c models.Complaint) bool {
		return c.NeedsManualRouting && c.Status == models.StatusFiled
	}), nil
}

func (f *fakeComplaints) FindEscalated(ctx context.Context) ([]models.Complaint, error) {
	return f.list(func(c models.Complaint) bool { return c.EscalationLevel > models.LevelStaff }), nil
}

func (f *fakeComplaints) CountByStatus(ctx context.Context, departmentID *int64) ([]models.StatusCount, error) {
	counts := make(map[models.ComplaintStatus]int64)
	for _, c := range f.list(func(c models.Complaint) bool {
		return departmentID == nil || (c.DepartmentID.Valid && c.DepartmentID.Int64 == *departmentID)
	}) {
		counts[c.Status]++
	}
	var out []models.StatusCount
	for status, n := range counts {
		out = append(out, models.StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

// --- proofs ---

type fakeProofs fakeStore

func (f *fakeProofs) store() *fakeStore { return (*fakeStore)(f) }

func (f *fakeProofs) Create(ctx context.Context, p *models.ResolutionProof) error {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ProofID = s.id("proof")
	s.proofs[p.ProofID] = *p
	return nil
}

func (f *fakeProofs) ExistsFor(ctx context.Context, complaintID int64) (bool, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.proofs {
		if p.ComplaintID == complaintID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProofs) FindByComplaint(ctx context.Context, complaintID int64) ([]models.ResolutionProof, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ResolutionProof
	for _, p := range s.proofs {
		if p.ComplaintID == complaintID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProofID < out[j].ProofID })
	return out, nil
}

// --- signoffs ---

type fakeSignoffs fakeStore

func (f *fakeSignoffs) store() *fakeStore { return (*fakeStore)(f) }

func (f *fakeSignoffs) Create(ctx context.Context, so *models.CitizenSignoff) error {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	so.SignoffID = s.id("signoff")
	s.signoffs[so.SignoffID] = *so
	return nil
}

func (f *fakeSignoffs) GetByID(ctx context.Context, id int64) (*models.CitizenSignoff, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	so, ok := s.signoffs[id]
	if !ok {
		return nil, fmt.Errorf("signoff %d: %w", id, models.ErrNotFound)
	}
	return &so, nil
}

func (f *fakeSignoffs) ExistsAcceptedFor(ctx context.Context, complaintID int64) (bool, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, so := range s.signoffs {
		if so.ComplaintID == complaintID && so.IsAccepted {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSignoffs) ExistsApprovedDisputeFor(ctx context.Context, complaintID int64) (bool, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, so := range s.signoffs {
		if so.ComplaintID == complaintID && !so.IsAccepted && so.DisputeApproved.Valid && so.DisputeApproved.Bool {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSignoffs) FindPendingDispute(ctx context.Context, complaintID int64) (*models.CitizenSignoff, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, so := range s.signoffs {
		if so.ComplaintID == complaintID && !so.IsAccepted && !so.DisputeApproved.Valid {
			return &so, nil
		}
	}
	return nil, fmt.Errorf("pending dispute for complaint %d: %w", complaintID, models.ErrNotFound)
}

func (f *fakeSignoffs) FindPendingDisputesByDepartment(ctx context.Context, departmentID int64) ([]models.CitizenSignoff, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CitizenSignoff
	for _, so := range s.signoffs {
		if so.IsAccepted || so.DisputeApproved.Valid {
			continue
		}
		c, ok := s.complaints[so.ComplaintID]
		if ok && c.DepartmentID.Valid && c.DepartmentID.Int64 == departmentID {
			out = append(out, so)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignoffID < out[j].SignoffID })
	return out, nil
}

func (f *fakeSignoffs) ReviewDispute(ctx context.Context, signoffID int64, approved bool, reviewedBy int64, reviewedAt time.Time, rejectionReason *string) error {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	so, ok := s.signoffs[signoffID]
	if !ok {
		return fmt.Errorf("signoff %d: %w", signoffID, models.ErrNotFound)
	}
	if so.IsAccepted || so.DisputeApproved.Valid {
		return fmt.Errorf("signoff %d is not a pending dispute: %w", signoffID, models.ErrInvalidDisputeState)
	}
	so.DisputeApproved = nullBool(approved)
	so.DisputeApprovedBy = nullID(&reviewedBy)
	so.DisputeReviewedAt = nullTime(reviewedAt)
	if rejectionReason != nil {
		so.DisputeRejectionReason = nullString(*rejectionReason)
	}
	s.signoffs[signoffID] = so
	return nil
}

// --- escalation events ---

type fakeEvents fakeStore

func (f *fakeEvents) store() *fakeStore { return (*fakeStore)(f) }

func (f *fakeEvents) Create(ctx context.Context, e *models.EscalationEvent) error {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.events {
		if existing.ComplaintID == e.ComplaintID && existing.EscalationLevel == e.EscalationLevel {
			return fmt.Errorf("escalation event for complaint %d level %s: %w",
				e.ComplaintID, e.EscalationLevel, models.ErrConflictingUpdate)
		}
	}
	e.EventID = s.id("event")
	s.events[e.EventID] = *e
	return nil
}

func (f *fakeEvents) ExistsFor(ctx context.Context, complaintID int64, level models.EscalationLevel) (bool, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.ComplaintID == complaintID && e.EscalationLevel == level {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEvents) FindByComplaint(ctx context.Context, complaintID int64) ([]models.EscalationEvent, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.EscalationEvent
	for _, e := range s.events {
		if e.ComplaintID == complaintID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out, nil
}

// --- audit ---

type fakeAudit fakeStore

func (f *fakeAudit) store() *fakeStore { return (*fakeStore)(f) }

func (f *fakeAudit) Create(ctx context.Context, a *models.AuditLog) error {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	a.AuditID = s.id("audit")
	s.audits = append(s.audits, *a)
	return nil
}

func (f *fakeAudit) find(filter func(models.AuditLog) bool) []models.AuditLog {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuditLog
	for _, a := range s.audits {
		if filter(a) {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeAudit) FindByEntity(ctx context.Context, entityType models.AuditEntityType, entityID int64) ([]models.AuditLog, error) {
	return f.find(func(a models.AuditLog) bool {
		return a.EntityType == entityType && a.EntityID == entityID
	}), nil
}

func (f *fakeAudit) FindByActionInWindow(ctx context.Context, action models.AuditAction, from, to time.Time) ([]models.AuditLog, error) {
	return f.find(func(a models.AuditLog) bool {
		return a.Action == action && !a.CreatedAt.Before(from) && a.CreatedAt.Before(to)
	}), nil
}

func (f *fakeAudit) FindByActor(ctx context.Context, actorType models.ActorType, actorID *int64) ([]models.AuditLog, error) {
	return f.find(func(a models.AuditLog) bool {
		if a.ActorType != actorType {
			return false
		}
		if actorID == nil {
			return !a.ActorID.Valid
		}
		return a.ActorID.Valid && a.ActorID.Int64 == *actorID
	}), nil
}

// --- notifications ---

type fakeNotifications fakeStore

func (f *fakeNotifications) store() *fakeStore { return (*fakeStore)(f) }

func (f *fakeNotifications) Create(ctx context.Context, n *models.Notification) error {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	n.NotificationID = s.id("notification")
	s.notifications[n.NotificationID] = *n
	return nil
}

func (f *fakeNotifications) list(filter func(models.Notification) bool) []models.Notification {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if filter(n) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NotificationID > out[j].NotificationID })
	return out
}

func (f *fakeNotifications) FindByUser(ctx context.Context, userID int64) ([]models.Notification, error) {
	return f.list(func(n models.Notification) bool { return n.UserID == userID }), nil
}

func (f *fakeNotifications) FindUnreadByUser(ctx context.Context, userID int64) ([]models.Notification, error) {
	return f.list(func(n models.Notification) bool { return n.UserID == userID && !n.IsRead }), nil
}

func (f *fakeNotifications) CountUnread(ctx context.Context, userID int64) (int64, error) {
	unread, _ := f.FindUnreadByUser(ctx, userID)
	return int64(len(unread)), nil
}

func (f *fakeNotifications) MarkRead(ctx context.Context, notificationID, userID int64) error {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok || n.UserID != userID {
		return fmt.Errorf("notification %d: %w", notificationID, models.ErrNotFound)
	}
	n.IsRead = true
	n.ReadAt = nullTime(time.Now().UTC())
	s.notifications[notificationID] = n
	return nil
}

func (f *fakeNotifications) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var marked int64
	for id, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = nullTime(time.Now().UTC())
			s.notifications[id] = n
			marked++
		}
	}
	return marked, nil
}

func (f *fakeNotifications) MarkReadForComplaint(ctx context.Context, userID, complaintID int64) (int64, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	var marked int64
	for id, n := range s.notifications {
		if n.UserID == userID && !n.IsRead && n.ComplaintID.Valid && n.ComplaintID.Int64 == complaintID {
			n.IsRead = true
			n.ReadAt = nullTime(time.Now().UTC())
			s.notifications[id] = n
			marked++
		}
	}
	return marked, nil
}

// --- categories ---

type fakeCategories fakeStore

func (f *fakeCategories) store() *fakeStore { return (*fakeStore)(f) }

func (f *fakeCategories) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %d: %w", id, models.ErrNotFound)
	}
	return &c, nil
}

func (f *fakeCategories) GetSLARule(ctx context.Context, categoryID int64) (*models.SLARule, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[categoryID]
	if !ok {
		return nil, fmt.Errorf("sla rule for category %d: %w", categoryID, models.ErrNotFound)
	}
	return &r, nil
}

// --- principal directory ---

type fakeDirectory fakeStore

func (f *fakeDirectory) store() *fakeStore { return (*fakeStore)(f) }

func (f *fakeDirectory) DeptHeadFor(ctx context.Context, departmentID int64) (int64, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	head, ok := s.deptHeads[departmentID]
	if !ok {
		return 0, fmt.Errorf("department head for department %d: %w", departmentID, models.ErrNotFound)
	}
	return head, nil
}

func (f *fakeDirectory) AnyCommissioner(ctx context.Context) (int64, error) {
	s := f.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commissioner == 0 {
		return 0, fmt.Errorf("municipal commissioner: %w", models.ErrNotFound)
	}
	return s.commissioner, nil
}

// testEnv wires the services over one fake store with a settable clock.
// Tests advance time by assigning env.now.
type testEnv struct {
	store       *fakeStore
	notifier    *NotificationService
	audit       *AuditRecorder
	guards      *GuardEvaluator
	complaints  *ComplaintService
	escalations *EscalationService
	disputes    *DisputeService
	now         time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store: newFakeStore(),
		now:   time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }

	env.notifier = NewNotificationService(env.store, nil, &models.NotificationConfig{
		QueueSize:         64,
		MaxRetries:        2,
		InitialRetryDelay: time.Millisecond,
		MaxRetryDelay:     5 * time.Millisecond,
		DrainTimeout:      time.Second,
	})
	env.notifier.clock = clock

	env.audit = NewAuditRecorder()
	env.audit.clock = clock
	env.guards = NewGuardEvaluator()

	env.complaints = NewComplaintService(env.store, env.guards, env.audit, env.notifier, 0.7)
	env.complaints.clock = clock

	env.escalations = NewEscalationService(env.store, nil, env.audit, env.notifier)
	env.escalations.clock = clock

	env.disputes = NewDisputeService(env.store, env.complaints, env.audit, env.notifier)
	env.disputes.clock = clock

	return env
}

// seedComplaint inserts a complaint directly, filling the fields most tests
// leave at their defaults.
func (e *testEnv) seedComplaint(c models.Complaint) models.Complaint {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	if c.ComplaintID == 0 {
		c.ComplaintID = e.store.id("complaint")
	}
	if c.ComplaintNumber == "" {
		c.ComplaintNumber = fmt.Sprintf("GRV-TEST-%05d", c.ComplaintID)
	}
	if c.Priority == "" {
		c.Priority = models.PriorityMedium
	}
	if c.Status == "" {
		c.Status = models.StatusFiled
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = e.now.Add(-24 * time.Hour)
	}
	e.store.complaints[c.ComplaintID] = c
	return c
}

func (e *testEnv) seedSLARule(categoryID int64, slaDays int, priority models.Priority, departmentID int64) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.rules[categoryID] = models.SLARule{
		RuleID:       e.store.id("rule"),
		CategoryID:   categoryID,
		SLADays:      slaDays,
		BasePriority: priority,
		DepartmentID: departmentID,
		CreatedAt:    e.now,
	}
}

func (e *testEnv) seedProof(complaintID, staffID int64) models.ResolutionProof {
	p := models.ResolutionProof{
		ComplaintID:    complaintID,
		StaffID:        staffID,
		ImageReference: "s3://proofs/seeded.jpg",
		CapturedAt:     e.now,
		IntegrityHash:  "seeded",
		CreatedAt:      e.now,
	}
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	p.ProofID = e.store.id("proof")
	e.store.proofs[p.ProofID] = p
	return p
}

func (e *testEnv) seedSignoff(s models.CitizenSignoff) models.CitizenSignoff {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	if s.SignoffID == 0 {
		s.SignoffID = e.store.id("signoff")
	}
	if s.SignedOffAt.IsZero() {
		s.SignedOffAt = e.now
	}
	e.store.signoffs[s.SignoffID] = s
	return s
}

func (e *testEnv) seedEvent(ev models.EscalationEvent) models.EscalationEvent {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	if ev.EventID == 0 {
		ev.EventID = e.store.id("event")
	}
	if ev.EscalatedAt.IsZero() {
		ev.EscalatedAt = e.now
	}
	e.store.events[ev.EventID] = ev
	return ev
}

func (e *testEnv) seedDeptHead(departmentID, userID int64) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.deptHeads[departmentID] = userID
}

func (e *testEnv) seedCommissioner(userID int64) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.commissioner = userID
}

// queued drains and returns every notification request currently queued.
func (e *testEnv) queued() []*models.NotificationRequest {
	var out []*models.NotificationRequest
	for {
		select {
		case req := <-e.notifier.queue:
			out = append(out, req)
		default:
			return out
		}
	}
}

// auditTrail returns the complaint's audit rows in write order.
func (e *testEnv) auditTrail(complaintID int64) []models.AuditLog {
	rows, _ := e.store.Audit().FindByEntity(context.Background(), models.AuditEntityComplaint, complaintID)
	return rows
}

func (e *testEnv) complaint(id int64) models.Complaint {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.complaints[id]
}

func (e *testEnv) signoff(id int64) models.CitizenSignoff {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	return e.store.signoffs[id]
}

// --- helpers ---

func ptr[T any](v T) *T { return &v }

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

func nullBool(b bool) sql.NullBool {
	return sql.NullBool{Bool: b, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}
