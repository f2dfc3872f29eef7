// Package domain defines the maintenance entities, the declarative query
// domain, and the rule evaluation primitives used by gearguard.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// EntityType identifies the kind of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityEmployee identifies an employee record.
	EntityEmployee EntityType = "employee"
	// EntityTeam identifies a maintenance team record.
	EntityTeam EntityType = "maintenance_team"
	// EntityEquipment identifies an equipment record.
	EntityEquipment EntityType = "equipment"
	// EntityRequest identifies a maintenance request record.
	EntityRequest EntityType = "maintenance_request"
)

// RequestState represents the canonical maintenance request workflow states.
type RequestState string

// Workflow states. New requests start in StateNew; StateRepaired and
// StateScrap are terminal.
const (
	StateNew        RequestState = "new"
	StateInProgress RequestState = "in_progress"
	StateRepaired   RequestState = "repaired"
	StateScrap      RequestState = "scrap"
)

// OpenStates are the states in which a request still demands work. Overdue
// detection and workload counting apply only to these.
func OpenStates() []RequestState {
	return []RequestState{StateNew, StateInProgress}
}

// ClosedStates are the terminal workflow states.
func ClosedStates() []RequestState {
	return []RequestState{StateRepaired, StateScrap}
}

// RequestType distinguishes planned from breakdown-driven maintenance.
type RequestType string

// Request types. Corrective requests that reach a terminal state count as
// breakdowns for health scoring.
const (
	RequestPreventive RequestType = "preventive"
	RequestCorrective RequestType = "corrective"
)

// HealthStatus buckets an equipment health score into operational bands.
type HealthStatus string

// Health status bands: good >= 70 > warning >= 40 > critical. Unknown is
// reported for absent equipment.
const (
	HealthGood     HealthStatus = "good"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
	HealthUnknown  HealthStatus = "unknown"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records. Ids are assigned per
// entity kind, start at 1, increase strictly, and are never reused.
type Base struct {
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordID returns the record identifier.
func (b Base) RecordID() int { return b.ID }

// Employee represents a person who can be assigned to equipment or staffed
// on a maintenance team.
type Employee struct {
	Base
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Department   string `json:"department"`
	IsTechnician bool   `json:"is_technician"`
	Active       bool   `json:"active"`
}

// Fields exposes the record as a field map for domain evaluation.
func (e Employee) Fields() map[string]any {
	return map[string]any{
		"id":            e.ID,
		"create_date":   e.CreatedAt,
		"name":          e.Name,
		"email":         e.Email,
		"phone":         e.Phone,
		"department":    e.Department,
		"is_technician": e.IsTechnician,
		"active":        e.Active,
	}
}

// MaintenanceTeam groups technicians that handle maintenance requests.
// TechnicianIDs is a membership set: order is irrelevant and duplicates must
// not accumulate.
type MaintenanceTeam struct {
	Base
	Name          string `json:"name"`
	Description   string `json:"description"`
	TechnicianIDs []int  `json:"technician_ids"`
	Active        bool   `json:"active"`
}

// HasTechnician reports whether the employee id is part of the team.
func (t MaintenanceTeam) HasTechnician(employeeID int) bool {
	for _, id := range t.TechnicianIDs {
		if id == employeeID {
			return true
		}
	}
	return false
}

// Fields exposes the record as a field map for domain evaluation.
func (t MaintenanceTeam) Fields() map[string]any {
	return map[string]any{
		"id":          t.ID,
		"create_date": t.CreatedAt,
		"name":        t.Name,
		"description": t.Description,
		"active":      t.Active,
	}
}

// Equipment is a physical asset tracked by the system. HealthScore is a
// derived 0-100 integer; the stored value is a cache and may be stale between
// events. Callers needing freshness trigger recomputation explicitly.
type Equipment struct {
	Base
	Name               string     `json:"name"`
	SerialNumber       string     `json:"serial_number"`
	Department         string     `json:"department"`
	Location           string     `json:"location"`
	AssignedEmployeeID *int       `json:"assigned_employee_id"`
	MaintenanceTeamID  *int       `json:"maintenance_team_id"`
	PurchaseDate       *time.Time `json:"purchase_date"`
	WarrantyEndDate    *time.Time `json:"warranty_end_date"`
	IsScrapped         bool       `json:"is_scrapped"`
	Active             bool       `json:"active"`
	HealthScore        int        `json:"health_score"`
}

// Fields exposes the record as a field map for domain evaluation.
func (e Equipment) Fields() map[string]any {
	return map[string]any{
		"id":                   e.ID,
		"create_date":          e.CreatedAt,
		"name":                 e.Name,
		"serial_number":        e.SerialNumber,
		"department":           e.Department,
		"location":             e.Location,
		"assigned_employee_id": intOrNil(e.AssignedEmployeeID),
		"maintenance_team_id":  intOrNil(e.MaintenanceTeamID),
		"purchase_date":        timeOrNil(e.PurchaseDate),
		"warranty_end_date":    timeOrNil(e.WarrantyEndDate),
		"is_scrapped":          e.IsScrapped,
		"active":               e.Active,
		"health_score":         e.HealthScore,
	}
}

// MaintenanceRequest is the workflow record tying equipment, teams, and
// technicians together. CreatedAt doubles as the immutable create_date used
// by the 30-day breakdown window.
type MaintenanceRequest struct {
	Base
	Subject           string       `json:"subject"`
	Description       string       `json:"description"`
	EquipmentID       *int         `json:"equipment_id"`
	RequestType       RequestType  `json:"request_type"`
	ScheduledDate     *time.Time   `json:"scheduled_date"`
	RepairedDate      *time.Time   `json:"repaired_date"`
	TechnicianID      *int         `json:"technician_id"`
	MaintenanceTeamID *int         `json:"maintenance_team_id"`
	DurationHours     float64      `json:"duration"`
	State             RequestState `json:"state"`
	IsOverdue         bool         `json:"is_overdue"`
}

// Open reports whether the request is still in an open workflow state.
func (r MaintenanceRequest) Open() bool {
	return r.State == StateNew || r.State == StateInProgress
}

// Fields exposes the record as a field map for domain evaluation.
func (r MaintenanceRequest) Fields() map[string]any {
	return map[string]any{
		"id":                  r.ID,
		"create_date":         r.CreatedAt,
		"subject":             r.Subject,
		"description":         r.Description,
		"equipment_id":        intOrNil(r.EquipmentID),
		"request_type":        r.RequestType,
		"scheduled_date":      timeOrNil(r.ScheduledDate),
		"repaired_date":       timeOrNil(r.RepairedDate),
		"technician_id":       intOrNil(r.TechnicianID),
		"maintenance_team_id": intOrNil(r.MaintenanceTeamID),
		"duration":            r.DurationHours,
		"state":               r.State,
		"is_overdue":          r.IsOverdue,
	}
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func timeOrNil(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}

// Ptr returns a pointer to v. Convenience for building patches.
func Ptr[T any](v T) *T { return &v }

// EmployeePatch is a partial write against an Employee. Nil fields are left
// untouched.
type EmployeePatch struct {
	Name         *string `json:"name,omitempty"`
	Email        *string `json:"email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Department   *string `json:"department,omitempty"`
	IsTechnician *bool   `json:"is_technician,omitempty"`
	Active       *bool   `json:"active,omitempty"`
}

// Apply merges the patch into the employee.
func (p EmployeePatch) Apply(e *Employee) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Email != nil {
		e.Email = *p.Email
	}
	if p.Phone != nil {
		e.Phone = *p.Phone
	}
	if p.Department != nil {
		e.Department = *p.Department
	}
	if p.IsTechnician != nil {
		e.IsTechnician = *p.IsTechnician
	}
	if p.Active != nil {
		e.Active = *p.Active
	}
}

// MaintenanceTeamPatch is a partial write against a MaintenanceTeam.
type MaintenanceTeamPatch struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	TechnicianIDs *[]int  `json:"technician_ids,omitempty"`
	Active        *bool   `json:"active,omitempty"`
}

// Apply merges the patch into the team.
func (p MaintenanceTeamPatch) Apply(t *MaintenanceTeam) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.TechnicianIDs != nil {
		t.TechnicianIDs = append([]int(nil), (*p.TechnicianIDs)...)
	}
	if p.Active != nil {
		t.Active = *p.Active
	}
}

// EquipmentPatch is a partial write against an Equipment record.
type EquipmentPatch struct {
	Name               *string    `json:"name,omitempty"`
	SerialNumber       *string    `json:"serial_number,omitempty"`
	Department         *string    `json:"department,omitempty"`
	Location           *string    `json:"location,omitempty"`
	AssignedEmployeeID *int       `json:"assigned_employee_id,omitempty"`
	MaintenanceTeamID  *int       `json:"maintenance_team_id,omitempty"`
	PurchaseDate       *time.Time `json:"purchase_date,omitempty"`
	WarrantyEndDate    *time.Time `json:"warranty_end_date,omitempty"`
	IsScrapped         *bool      `json:"is_scrapped,omitempty"`
	Active             *bool      `json:"active,omitempty"`
	HealthScore        *int       `json:"health_score,omitempty"`
}

// Apply merges the patch into the equipment.
func (p EquipmentPatch) Apply(e *Equipment) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.SerialNumber != nil {
		e.SerialNumber = *p.SerialNumber
	}
	if p.Department != nil {
		e.Department = *p.Department
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.AssignedEmployeeID != nil {
		e.AssignedEmployeeID = Ptr(*p.AssignedEmployeeID)
	}
	if p.MaintenanceTeamID != nil {
		e.MaintenanceTeamID = Ptr(*p.MaintenanceTeamID)
	}
	if p.PurchaseDate != nil {
		e.PurchaseDate = Ptr(*p.PurchaseDate)
	}
	if p.WarrantyEndDate != nil {
		e.WarrantyEndDate = Ptr(*p.WarrantyEndDate)
	}
	if p.IsScrapped != nil {
		e.IsScrapped = *p.IsScrapped
	}
	if p.Active != nil {
		e.Active = *p.Active
	}
	if p.HealthScore != nil {
		e.HealthScore = *p.HealthScore
	}
}

// MaintenanceRequestPatch is a partial write against a MaintenanceRequest.
type MaintenanceRequestPatch struct {
	Subject           *string       `json:"subject,omitempty"`
	Description       *string       `json:"description,omitempty"`
	EquipmentID       *int          `json:"equipment_id,omitempty"`
	RequestType       *RequestType  `json:"request_type,omitempty"`
	ScheduledDate     *time.Time    `json:"scheduled_date,omitempty"`
	RepairedDate      *time.Time    `json:"repaired_date,omitempty"`
	TechnicianID      *int          `json:"technician_id,omitempty"`
	MaintenanceTeamID *int          `json:"maintenance_team_id,omitempty"`
	DurationHours     *float64      `json:"duration,omitempty"`
	State             *RequestState `json:"state,omitempty"`
	IsOverdue         *bool         `json:"is_overdue,omitempty"`
}

// Apply merges the patch into the request.
func (p MaintenanceRequestPatch) Apply(r *MaintenanceRequest) {
	if p.Subject != nil {
		r.Subject = *p.Subject
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.EquipmentID != nil {
		r.EquipmentID = Ptr(*p.EquipmentID)
	}
	if p.RequestType != nil {
		r.RequestType = *p.RequestType
	}
	if p.ScheduledDate != nil {
		r.ScheduledDate = Ptr(*p.ScheduledDate)
	}
	if p.RepairedDate != nil {
		r.RepairedDate = Ptr(*p.RepairedDate)
	}
	if p.TechnicianID != nil {
		r.TechnicianID = Ptr(*p.TechnicianID)
	}
	if p.MaintenanceTeamID != nil {
		r.MaintenanceTeamID = Ptr(*p.MaintenanceTeamID)
	}
	if p.DurationHours != nil {
		r.DurationHours = *p.DurationHours
	}
	if p.State != nil {
		r.State = *p.State
	}
	if p.IsOverdue != nil {
		r.IsOverdue = *p.IsOverdue
	}
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported operations captured for rule evaluation.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID int
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present. The
// transaction the violations belong to is never committed.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return fmt.Sprintf("transaction blocked by rules: %s", v.Message)
		}
	}
	return "transaction blocked by rules"
}

// ValidationError reports a domain-invariant violation the caller must not
// silently ignore, such as closing a request without a duration.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
