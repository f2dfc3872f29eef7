// Package core implements the gearguard maintenance service: typed CRUD over
// the transactional store, the request workflow state machine, health
// scoring, and the analytics engine.
package core

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"gearguard/internal/blob"
	"gearguard/internal/persistence/memory"
	"gearguard/pkg/domain"
)

// Health score weights and the window for counting recent breakdowns.
const (
	breakdownPenalty = 15
	overduePenalty   = 10
	breakdownWindow  = 30 * 24 * time.Hour
)

// Health status thresholds: good >= goodThreshold > warning >=
// criticalThreshold > critical.
const (
	goodThreshold     = 70
	criticalThreshold = 40
)

// Service exposes higher-level transactional operations for the maintenance
// schema.
type Service struct {
	store   domain.PersistentStore
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	blobs   blob.Store
	now     func() time.Time
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	svc := &Service{
		store:  store,
		logger: noopLogger{},
		now:    selectNowFunc(store, nil),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine. A nil engine gets the default policy set.
func NewInMemoryService(engine *domain.RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// Today returns the service's current date truncated to day precision in UTC.
// Overdue detection and scheduling comparisons operate at this granularity.
func (s *Service) Today() time.Time {
	return truncateToDay(s.now())
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) run(ctx context.Context, fn func(tx domain.Transaction) error) error {
	res, err := s.store.RunInTransaction(ctx, fn)
	for _, v := range res.Violations {
		if v.Severity != domain.SeverityBlock {
			s.logger.Warn("rule violation", "rule", v.Rule, "severity", v.Severity, "message", v.Message)
		}
	}
	return err
}

// Employees ------------------------------------------------------------------

// CreateEmployee persists a new employee. Unset patch fields receive
// defaults; Active defaults to true.
func (s *Service) CreateEmployee(ctx context.Context, patch domain.EmployeePatch) (domain.Employee, error) {
	var created domain.Employee
	err := s.observe(ctx, "create_employee", func(ctx context.Context, entry *AuditEntry) error {
		err := s.run(ctx, func(tx domain.Transaction) error {
			employee := domain.Employee{Active: true}
			patch.Apply(&employee)
			var err error
			created, err = tx.CreateEmployee(employee)
			return err
		})
		entry.Entity = domain.EntityEmployee
		entry.EntityID = created.ID
		return err
	})
	return created, err
}

// WriteEmployees merges the patch into every matching employee. Ids without a
// record are skipped; the write still reports success.
func (s *Service) WriteEmployees(ctx context.Context, ids []int, patch domain.EmployeePatch) (bool, error) {
	ok := false
	err := s.observe(ctx, "write_employees", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityEmployee
		return s.run(ctx, func(tx domain.Transaction) error {
			ok = tx.WriteEmployees(ids, patch)
			return nil
		})
	})
	return ok && err == nil, err
}

// UnlinkEmployees removes the matching employees. Missing ids are ignored.
func (s *Service) UnlinkEmployees(ctx context.Context, ids []int) (bool, error) {
	ok := false
	err := s.observe(ctx, "unlink_employees", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityEmployee
		return s.run(ctx, func(tx domain.Transaction) error {
			ok = tx.UnlinkEmployees(ids)
			return nil
		})
	})
	return ok && err == nil, err
}

// Technicians returns all active employees flagged as technicians, in
// insertion order.
func (s *Service) Technicians(ctx context.Context) ([]domain.Employee, error) {
	var technicians []domain.Employee
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		technicians = view.SearchEmployees(domain.Domain{
			{Field: "is_technician", Operator: domain.OpEq, Value: true},
			{Field: "active", Operator: domain.OpEq, Value: true},
		})
		return nil
	})
	return technicians, err
}

// Teams ----------------------------------------------------------------------

// CreateTeam persists a new maintenance team. Active defaults to true and
// duplicate technician ids are collapsed.
func (s *Service) CreateTeam(ctx context.Context, patch domain.MaintenanceTeamPatch) (domain.MaintenanceTeam, error) {
	var created domain.MaintenanceTeam
	err := s.observe(ctx, "create_team", func(ctx context.Context, entry *AuditEntry) error {
		err := s.run(ctx, func(tx domain.Transaction) error {
			team := domain.MaintenanceTeam{Active: true}
			patch.Apply(&team)
			team.TechnicianIDs = dedupIDs(team.TechnicianIDs)
			var err error
			created, err = tx.CreateTeam(team)
			return err
		})
		entry.Entity = domain.EntityTeam
		entry.EntityID = created.ID
		return err
	})
	return created, err
}

// WriteTeams merges the patch into every matching team.
func (s *Service) WriteTeams(ctx context.Context, ids []int, patch domain.MaintenanceTeamPatch) (bool, error) {
	ok := false
	err := s.observe(ctx, "write_teams", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityTeam
		if patch.TechnicianIDs != nil {
			deduped := dedupIDs(*patch.TechnicianIDs)
			patch.TechnicianIDs = &deduped
		}
		return s.run(ctx, func(tx domain.Transaction) error {
			ok = tx.WriteTeams(ids, patch)
			return nil
		})
	})
	return ok && err == nil, err
}

// UnlinkTeams removes the matching teams.
func (s *Service) UnlinkTeams(ctx context.Context, ids []int) (bool, error) {
	ok := false
	err := s.observe(ctx, "unlink_teams", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityTeam
		return s.run(ctx, func(tx domain.Transaction) error {
			ok = tx.UnlinkTeams(ids)
			return nil
		})
	})
	return ok && err == nil, err
}

// AddTechnician adds an employee to the team's technician set. Adding an
// existing member is a no-op; membership never accumulates duplicates.
func (s *Service) AddTechnician(ctx context.Context, teamID, employeeID int) (domain.MaintenanceTeam, error) {
	var updated domain.MaintenanceTeam
	err := s.observe(ctx, "add_technician", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityTeam
		entry.EntityID = teamID
		return s.run(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateTeam(teamID, func(team *domain.MaintenanceTeam) error {
				if !team.HasTechnician(employeeID) {
					team.TechnicianIDs = append(team.TechnicianIDs, employeeID)
				}
				return nil
			})
			return err
		})
	})
	return updated, err
}

// RemoveTechnician removes an employee from the team's technician set.
// Removing a non-member is a no-op.
func (s *Service) RemoveTechnician(ctx context.Context, teamID, employeeID int) (domain.MaintenanceTeam, error) {
	var updated domain.MaintenanceTeam
	err := s.observe(ctx, "remove_technician", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityTeam
		entry.EntityID = teamID
		return s.run(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateTeam(teamID, func(team *domain.MaintenanceTeam) error {
				kept := team.TechnicianIDs[:0]
				for _, id := range team.TechnicianIDs {
					if id != employeeID {
						kept = append(kept, id)
					}
				}
				team.TechnicianIDs = kept
				return nil
			})
			return err
		})
	})
	return updated, err
}

// TeamTechnicians resolves a team's technician ids to employee records in
// store order. An unknown team yields an empty slice.
func (s *Service) TeamTechnicians(ctx context.Context, teamID int) ([]domain.Employee, error) {
	var members []domain.Employee
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		team, ok := view.FindTeam(teamID)
		if !ok {
			return nil
		}
		members = view.BrowseEmployees(team.TechnicianIDs...)
		return nil
	})
	return members, err
}

// Equipment ------------------------------------------------------------------

// CreateEquipment persists a new equipment record. Active defaults to true
// and HealthScore to 100.
func (s *Service) CreateEquipment(ctx context.Context, patch domain.EquipmentPatch) (domain.Equipment, error) {
	var created domain.Equipment
	err := s.observe(ctx, "create_equipment", func(ctx context.Context, entry *AuditEntry) error {
		err := s.run(ctx, func(tx domain.Transaction) error {
			equipment := domain.Equipment{Active: true, HealthScore: 100}
			patch.Apply(&equipment)
			var err error
			created, err = tx.CreateEquipment(equipment)
			return err
		})
		entry.Entity = domain.EntityEquipment
		entry.EntityID = created.ID
		return err
	})
	return created, err
}

// WriteEquipment merges the patch into every matching equipment record.
func (s *Service) WriteEquipment(ctx context.Context, ids []int, patch domain.EquipmentPatch) (bool, error) {
	ok := false
	err := s.observe(ctx, "write_equipment", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityEquipment
		return s.run(ctx, func(tx domain.Transaction) error {
			ok = tx.WriteEquipment(ids, patch)
			return nil
		})
	})
	return ok && err == nil, err
}

// UnlinkEquipment removes the matching equipment records.
func (s *Service) UnlinkEquipment(ctx context.Context, ids []int) (bool, error) {
	ok := false
	err := s.observe(ctx, "unlink_equipment", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityEquipment
		return s.run(ctx, func(tx domain.Transaction) error {
			ok = tx.UnlinkEquipment(ids)
			return nil
		})
	})
	return ok && err == nil, err
}

// ScrapEquipment marks the equipment scrapped and inactive. Returns false
// without error when the equipment does not exist or is already scrapped.
func (s *Service) ScrapEquipment(ctx context.Context, id int) (bool, error) {
	done := false
	err := s.observe(ctx, "scrap_equipment", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityEquipment
		entry.EntityID = id
		return s.run(ctx, func(tx domain.Transaction) error {
			done = scrapEquipmentTx(tx, id)
			return nil
		})
	})
	return done && err == nil, err
}

// UnscrapEquipment reactivates scrapped equipment. Returns false when the
// equipment does not exist or is not scrapped.
func (s *Service) UnscrapEquipment(ctx context.Context, id int) (bool, error) {
	done := false
	err := s.observe(ctx, "unscrap_equipment", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityEquipment
		entry.EntityID = id
		return s.run(ctx, func(tx domain.Transaction) error {
			equipment, ok := tx.FindEquipment(id)
			if !ok || !equipment.IsScrapped {
				return nil
			}
			_, err := tx.UpdateEquipment(id, func(e *domain.Equipment) error {
				e.IsScrapped = false
				e.Active = true
				return nil
			})
			done = err == nil
			return err
		})
	})
	return done && err == nil, err
}

func scrapEquipmentTx(tx domain.Transaction, id int) bool {
	equipment, ok := tx.FindEquipment(id)
	if !ok || equipment.IsScrapped {
		return false
	}
	_, err := tx.UpdateEquipment(id, func(e *domain.Equipment) error {
		e.IsScrapped = true
		e.Active = false
		return nil
	})
	return err == nil
}

// ComputeHealthScore recomputes and stores the equipment health score:
// 100 minus 15 per breakdown in the last 30 days minus 10 per currently
// overdue open request, clamped to [0, 100]. Unknown equipment returns 0
// with ok=false and stores nothing.
func (s *Service) ComputeHealthScore(ctx context.Context, equipmentID int) (int, bool, error) {
	score := 0
	found := false
	err := s.observe(ctx, "compute_health_score", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityEquipment
		entry.EntityID = equipmentID
		return s.run(ctx, func(tx domain.Transaction) error {
			if _, ok := tx.FindEquipment(equipmentID); !ok {
				return nil
			}
			found = true
			score = computeHealthScoreTx(tx, equipmentID, tx.Now())
			_, err := tx.UpdateEquipment(equipmentID, func(e *domain.Equipment) error {
				e.HealthScore = score
				return nil
			})
			return err
		})
	})
	return score, found, err
}

// computeHealthScoreTx derives the score from the transaction snapshot so
// uncommitted request writes are already visible to the calculation.
func computeHealthScoreTx(tx domain.Transaction, equipmentID int, now time.Time) int {
	windowStart := now.Add(-breakdownWindow)
	breakdowns := tx.SearchRequests(domain.Domain{
		{Field: "equipment_id", Operator: domain.OpEq, Value: equipmentID},
		{Field: "request_type", Operator: domain.OpEq, Value: domain.RequestCorrective},
		{Field: "state", Operator: domain.OpIn, Value: domain.ClosedStates()},
		{Field: "create_date", Operator: domain.OpGte, Value: windowStart},
	})
	overdue := tx.SearchRequests(domain.Domain{
		{Field: "equipment_id", Operator: domain.OpEq, Value: equipmentID},
		{Field: "state", Operator: domain.OpIn, Value: domain.OpenStates()},
		{Field: "scheduled_date", Operator: domain.OpLt, Value: truncateToDay(now)},
	})
	score := 100 - breakdownPenalty*len(breakdowns) - overduePenalty*len(overdue)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// EquipmentHealthStatus buckets the stored health score. Unknown equipment
// reports HealthUnknown.
func (s *Service) EquipmentHealthStatus(ctx context.Context, equipmentID int) (domain.HealthStatus, error) {
	status := domain.HealthUnknown
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		equipment, ok := view.FindEquipment(equipmentID)
		if !ok {
			return nil
		}
		status = healthStatusFor(equipment.HealthScore)
		return nil
	})
	return status, err
}

func healthStatusFor(score int) domain.HealthStatus {
	switch {
	case score >= goodThreshold:
		return domain.HealthGood
	case score >= criticalThreshold:
		return domain.HealthWarning
	default:
		return domain.HealthCritical
	}
}

// EquipmentSummary reports per-equipment request counts, computed on read.
type EquipmentSummary struct {
	Equipment        domain.Equipment    `json:"equipment"`
	RequestIDs       []int               `json:"request_ids"`
	RequestCount     int                 `json:"request_count"`
	OpenRequestCount int                 `json:"open_request_count"`
	HealthStatus     domain.HealthStatus `json:"health_status"`
}

// SummarizeEquipment derives request counts for one equipment record.
func (s *Service) SummarizeEquipment(ctx context.Context, equipmentID int) (EquipmentSummary, bool, error) {
	var summary EquipmentSummary
	found := false
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		equipment, ok := view.FindEquipment(equipmentID)
		if !ok {
			return nil
		}
		found = true
		requests := view.SearchRequests(domain.Domain{
			{Field: "equipment_id", Operator: domain.OpEq, Value: equipmentID},
		})
		summary.Equipment = equipment
		summary.HealthStatus = healthStatusFor(equipment.HealthScore)
		for _, request := range requests {
			summary.RequestIDs = append(summary.RequestIDs, request.ID)
			summary.RequestCount++
			if request.Open() {
				summary.OpenRequestCount++
			}
		}
		return nil
	})
	return summary, found, err
}

// Requests -------------------------------------------------------------------

// CreateRequest persists a new maintenance request. State defaults to new
// and RequestType to corrective. When the team is unset it is auto-populated
// from the referenced equipment, the overdue flag is derived immediately, and
// the equipment health score is recomputed in the same transaction.
func (s *Service) CreateRequest(ctx context.Context, patch domain.MaintenanceRequestPatch) (domain.MaintenanceRequest, error) {
	var created domain.MaintenanceRequest
	err := s.observe(ctx, "create_request", func(ctx context.Context, entry *AuditEntry) error {
		err := s.run(ctx, func(tx domain.Transaction) error {
			request := domain.MaintenanceRequest{
				State:       domain.StateNew,
				RequestType: domain.RequestCorrective,
			}
			patch.Apply(&request)
			if request.MaintenanceTeamID == nil && request.EquipmentID != nil {
				if equipment, ok := tx.FindEquipment(*request.EquipmentID); ok && equipment.MaintenanceTeamID != nil {
					request.MaintenanceTeamID = domain.Ptr(*equipment.MaintenanceTeamID)
				}
			}
			request.IsOverdue = overdueFor(request, tx.Now())
			var err error
			created, err = tx.CreateRequest(request)
			if err != nil {
				return err
			}
			if created.EquipmentID != nil {
				if err := recomputeHealthTx(tx, *created.EquipmentID); err != nil {
					return err
				}
			}
			return nil
		})
		entry.Entity = domain.EntityRequest
		entry.EntityID = created.ID
		return err
	})
	return created, err
}

// WriteRequests merges the patch into every matching request.
func (s *Service) WriteRequests(ctx context.Context, ids []int, patch domain.MaintenanceRequestPatch) (bool, error) {
	ok := false
	err := s.observe(ctx, "write_requests", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityRequest
		return s.run(ctx, func(tx domain.Transaction) error {
			ok = tx.WriteRequests(ids, patch)
			return nil
		})
	})
	return ok && err == nil, err
}

// UnlinkRequests removes the matching requests.
func (s *Service) UnlinkRequests(ctx context.Context, ids []int) (bool, error) {
	ok := false
	err := s.observe(ctx, "unlink_requests", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityRequest
		return s.run(ctx, func(tx domain.Transaction) error {
			ok = tx.UnlinkRequests(ids)
			return nil
		})
	})
	return ok && err == nil, err
}

// StartRequest moves a request from new to in_progress, recomputing the
// overdue flag. Returns false without error when the request is missing or
// not in the new state.
func (s *Service) StartRequest(ctx context.Context, id int) (bool, error) {
	started := false
	err := s.observe(ctx, "start_request", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityRequest
		entry.EntityID = id
		return s.run(ctx, func(tx domain.Transaction) error {
			request, ok := tx.FindRequest(id)
			if !ok || request.State != domain.StateNew {
				return nil
			}
			updated, err := tx.UpdateRequest(id, func(r *domain.MaintenanceRequest) error {
				r.State = domain.StateInProgress
				r.IsOverdue = overdueFor(*r, tx.Now())
				return nil
			})
			if err != nil {
				return err
			}
			started = true
			if updated.EquipmentID != nil {
				return recomputeHealthTx(tx, *updated.EquipmentID)
			}
			return nil
		})
	})
	return started && err == nil, err
}

// RepairRequest closes a request as repaired. The duration argument wins
// over the stored duration; the resolved value must be positive or the
// operation fails with a validation error. Requests not in an open state
// return false without error. On success the repaired date is set to today,
// the overdue flag is cleared, and the equipment health score is recomputed.
func (s *Service) RepairRequest(ctx context.Context, id int, duration float64) (bool, error) {
	repaired := false
	err := s.observe(ctx, "repair_request", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityRequest
		entry.EntityID = id
		return s.run(ctx, func(tx domain.Transaction) error {
			request, ok := tx.FindRequest(id)
			if !ok || !request.Open() {
				return nil
			}
			resolved := duration
			if resolved == 0 {
				resolved = request.DurationHours
			}
			if resolved <= 0 {
				return domain.ValidationError{Message: "Duration is mandatory before closing a maintenance request"}
			}
			today := truncateToDay(tx.Now())
			updated, err := tx.UpdateRequest(id, func(r *domain.MaintenanceRequest) error {
				r.State = domain.StateRepaired
				r.DurationHours = resolved
				r.RepairedDate = domain.Ptr(today)
				r.IsOverdue = false
				return nil
			})
			if err != nil {
				return err
			}
			repaired = true
			if updated.EquipmentID != nil {
				return recomputeHealthTx(tx, *updated.EquipmentID)
			}
			return nil
		})
	})
	return repaired && err == nil, err
}

// ScrapRequest closes a request as scrap and cascades the scrap onto the
// referenced equipment. Requests not in an open state return false without
// error. The overdue flag is deliberately left as-is: scrap is terminal and
// the flag is no longer consulted.
func (s *Service) ScrapRequest(ctx context.Context, id int) (bool, error) {
	scrapped := false
	err := s.observe(ctx, "scrap_request", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityRequest
		entry.EntityID = id
		return s.run(ctx, func(tx domain.Transaction) error {
			request, ok := tx.FindRequest(id)
			if !ok || !request.Open() {
				return nil
			}
			updated, err := tx.UpdateRequest(id, func(r *domain.MaintenanceRequest) error {
				r.State = domain.StateScrap
				return nil
			})
			if err != nil {
				return err
			}
			scrapped = true
			if updated.EquipmentID != nil {
				scrapEquipmentTx(tx, *updated.EquipmentID)
			}
			return nil
		})
	})
	return scrapped && err == nil, err
}

// AssignRequest sets the technician and team on a request in one write. The
// membership rule validates the pair before the transaction commits.
func (s *Service) AssignRequest(ctx context.Context, id int, technicianID, teamID *int) (domain.MaintenanceRequest, error) {
	var updated domain.MaintenanceRequest
	err := s.observe(ctx, "assign_request", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityRequest
		entry.EntityID = id
		return s.run(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateRequest(id, func(r *domain.MaintenanceRequest) error {
				if technicianID != nil {
					r.TechnicianID = domain.Ptr(*technicianID)
				}
				if teamID != nil {
					r.MaintenanceTeamID = domain.Ptr(*teamID)
				}
				return nil
			})
			return err
		})
	})
	return updated, err
}

// PreventiveRequests returns non-scrapped preventive requests in insertion
// order. Either bound may be nil to leave that side of the scheduled-date
// window open; bounds are inclusive and truncated to day precision. Used for
// calendar views.
func (s *Service) PreventiveRequests(ctx context.Context, start, end *time.Time) ([]domain.MaintenanceRequest, error) {
	conditions := domain.Domain{
		{Field: "request_type", Operator: domain.OpEq, Value: domain.RequestPreventive},
		{Field: "state", Operator: domain.OpNeq, Value: domain.StateScrap},
	}
	if start != nil {
		conditions = append(conditions, domain.Condition{Field: "scheduled_date", Operator: domain.OpGte, Value: truncateToDay(*start)})
	}
	if end != nil {
		conditions = append(conditions, domain.Condition{Field: "scheduled_date", Operator: domain.OpLte, Value: truncateToDay(*end)})
	}
	var requests []domain.MaintenanceRequest
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		requests = view.SearchRequests(conditions)
		return nil
	})
	return requests, err
}

// TechnicianWorkload counts open requests assigned to the technician.
func (s *Service) TechnicianWorkload(ctx context.Context, technicianID int) (int, error) {
	count := 0
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		count = len(view.SearchRequests(domain.Domain{
			{Field: "technician_id", Operator: domain.OpEq, Value: technicianID},
			{Field: "state", Operator: domain.OpIn, Value: domain.OpenStates()},
		}))
		return nil
	})
	return count, err
}

// recomputeHealthTx refreshes the cached health score of one equipment
// record inside an ongoing transaction. Missing equipment is a no-op.
func recomputeHealthTx(tx domain.Transaction, equipmentID int) error {
	if _, ok := tx.FindEquipment(equipmentID); !ok {
		return nil
	}
	score := computeHealthScoreTx(tx, equipmentID, tx.Now())
	_, err := tx.UpdateEquipment(equipmentID, func(e *domain.Equipment) error {
		e.HealthScore = score
		return nil
	})
	return err
}

// overdueFor derives the overdue flag: scheduled in the past while the
// request is still open. Day precision.
func overdueFor(request domain.MaintenanceRequest, now time.Time) bool {
	if !request.Open() || request.ScheduledDate == nil {
		return false
	}
	return request.ScheduledDate.Before(truncateToDay(now))
}

func dedupIDs(ids []int) []int {
	if len(ids) == 0 {
		return ids
	}
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Attachments ----------------------------------------------------------------

// WithBlobStore installs a blob store for request attachments.
func WithBlobStore(store blob.Store) ServiceOption {
	return func(s *Service) {
		s.blobs = store
	}
}

func requestBlobKey(requestID int, name string) string {
	return path.Join("requests", fmt.Sprintf("%d", requestID), path.Base(name))
}

// AttachRequestDocument stores a document alongside a maintenance request.
// Requires a configured blob store and an existing request.
func (s *Service) AttachRequestDocument(ctx context.Context, requestID int, name string, r io.Reader, contentType string) (blob.Info, error) {
	var info blob.Info
	err := s.observe(ctx, "attach_request_document", func(ctx context.Context, entry *AuditEntry) error {
		entry.Entity = domain.EntityRequest
		entry.EntityID = requestID
		if s.blobs == nil {
			return blob.ErrUnsupported
		}
		if _, ok := s.store.FindRequest(requestID); !ok {
			return fmt.Errorf("maintenance request %d: %w", requestID, domain.ErrNotFound)
		}
		var err error
		info, err = s.blobs.Put(ctx, requestBlobKey(requestID, name), r, blob.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"request_id": fmt.Sprintf("%d", requestID)},
		})
		return err
	})
	return info, err
}

// ListRequestDocuments lists the documents attached to a request.
func (s *Service) ListRequestDocuments(ctx context.Context, requestID int) ([]blob.Info, error) {
	if s.blobs == nil {
		return nil, blob.ErrUnsupported
	}
	return s.blobs.List(ctx, path.Join("requests", fmt.Sprintf("%d", requestID)))
}

// OpenRequestDocument opens one attached document for reading.
func (s *Service) OpenRequestDocument(ctx context.Context, requestID int, name string) (blob.Info, io.ReadCloser, error) {
	if s.blobs == nil {
		return blob.Info{}, nil, blob.ErrUnsupported
	}
	return s.blobs.Get(ctx, requestBlobKey(requestID, name))
}
