package memory

import (
	"time"

	"gearguard/pkg/domain"
)

// transaction mutates a cloned state and records every change for rule
// evaluation at commit time.
type transaction struct {
	state   memoryState
	changes []domain.Change
	now     time.Time
}

var _ domain.Transaction = (*transaction)(nil)

// Now returns the transaction timestamp. All records touched within one
// transaction share it.
func (t *transaction) Now() time.Time { return t.now }

func (t *transaction) record(entity domain.EntityType, action domain.Action, before, after any) {
	t.changes = append(t.changes, domain.Change{
		Entity: entity,
		Action: action,
		Before: before,
		After:  after,
	})
}

// Employees -----------------------------------------------------------------

func (t *transaction) CreateEmployee(e domain.Employee) (domain.Employee, error) {
	e.ID = t.state.nextID(domain.EntityEmployee)
	e.CreatedAt = t.now
	e.UpdatedAt = t.now
	t.state.employees = append(t.state.employees, cloneEmployee(e))
	t.record(domain.EntityEmployee, domain.ActionCreate, nil, cloneEmployee(e))
	return e, nil
}

func (t *transaction) UpdateEmployee(id int, mutator func(*domain.Employee) error) (domain.Employee, error) {
	for i := range t.state.employees {
		if t.state.employees[i].ID != id {
			continue
		}
		before := cloneEmployee(t.state.employees[i])
		updated := cloneEmployee(t.state.employees[i])
		if err := mutator(&updated); err != nil {
			return domain.Employee{}, err
		}
		updated.ID = id
		updated.CreatedAt = before.CreatedAt
		updated.UpdatedAt = t.now
		t.state.employees[i] = cloneEmployee(updated)
		t.record(domain.EntityEmployee, domain.ActionUpdate, before, cloneEmployee(updated))
		return updated, nil
	}
	return domain.Employee{}, domain.ErrNotFound
}

func (t *transaction) WriteEmployees(ids []int, patch domain.EmployeePatch) bool {
	for _, id := range ids {
		_, _ = t.UpdateEmployee(id, func(e *domain.Employee) error {
			patch.Apply(e)
			return nil
		})
	}
	return true
}

func (t *transaction) UnlinkEmployees(ids []int) bool {
	for _, row := range browseRecords(t.state.employees, ids, cloneEmployee) {
		t.record(domain.EntityEmployee, domain.ActionDelete, row, nil)
	}
	t.state.employees = unlinkRecords(t.state.employees, ids)
	return true
}

// Teams ---------------------------------------------------------------------

func (t *transaction) CreateTeam(team domain.MaintenanceTeam) (domain.MaintenanceTeam, error) {
	team.ID = t.state.nextID(domain.EntityTeam)
	team.CreatedAt = t.now
	team.UpdatedAt = t.now
	t.state.teams = append(t.state.teams, cloneTeam(team))
	t.record(domain.EntityTeam, domain.ActionCreate, nil, cloneTeam(team))
	return team, nil
}

func (t *transaction) UpdateTeam(id int, mutator func(*domain.MaintenanceTeam) error) (domain.MaintenanceTeam, error) {
	for i := range t.state.teams {
		if t.state.teams[i].ID != id {
			continue
		}
		before := cloneTeam(t.state.teams[i])
		updated := cloneTeam(t.state.teams[i])
		if err := mutator(&updated); err != nil {
			return domain.MaintenanceTeam{}, err
		}
		updated.ID = id
		updated.CreatedAt = before.CreatedAt
		updated.UpdatedAt = t.now
		t.state.teams[i] = cloneTeam(updated)
		t.record(domain.EntityTeam, domain.ActionUpdate, before, cloneTeam(updated))
		return updated, nil
	}
	return domain.MaintenanceTeam{}, domain.ErrNotFound
}

func (t *transaction) WriteTeams(ids []int, patch domain.MaintenanceTeamPatch) bool {
	for _, id := range ids {
		_, _ = t.UpdateTeam(id, func(team *domain.MaintenanceTeam) error {
			patch.Apply(team)
			return nil
		})
	}
	return true
}

func (t *transaction) UnlinkTeams(ids []int) bool {
	for _, row := range browseRecords(t.state.teams, ids, cloneTeam) {
		t.record(domain.EntityTeam, domain.ActionDelete, row, nil)
	}
	t.state.teams = unlinkRecords(t.state.teams, ids)
	return true
}

// Equipment -----------------------------------------------------------------

func (t *transaction) CreateEquipment(e domain.Equipment) (domain.Equipment, error) {
	e.ID = t.state.nextID(domain.EntityEquipment)
	e.CreatedAt = t.now
	e.UpdatedAt = t.now
	t.state.equipment = append(t.state.equipment, cloneEquipment(e))
	t.record(domain.EntityEquipment, domain.ActionCreate, nil, cloneEquipment(e))
	return e, nil
}

func (t *transaction) UpdateEquipment(id int, mutator func(*domain.Equipment) error) (domain.Equipment, error) {
	for i := range t.state.equipment {
		if t.state.equipment[i].ID != id {
			continue
		}
		before := cloneEquipment(t.state.equipment[i])
		updated := cloneEquipment(t.state.equipment[i])
		if err := mutator(&updated); err != nil {
			return domain.Equipment{}, err
		}
		updated.ID = id
		updated.CreatedAt = before.CreatedAt
		updated.UpdatedAt = t.now
		t.state.equipment[i] = cloneEquipment(updated)
		t.record(domain.EntityEquipment, domain.ActionUpdate, before, cloneEquipment(updated))
		return updated, nil
	}
	return domain.Equipment{}, domain.ErrNotFound
}

func (t *transaction) WriteEquipment(ids []int, patch domain.EquipmentPatch) bool {
	for _, id := range ids {
		_, _ = t.UpdateEquipment(id, func(e *domain.Equipment) error {
			patch.Apply(e)
			return nil
		})
	}
	return true
}

func (t *transaction) UnlinkEquipment(ids []int) bool {
	for _, row := range browseRecords(t.state.equipment, ids, cloneEquipment) {
		t.record(domain.EntityEquipment, domain.ActionDelete, row, nil)
	}
	t.state.equipment = unlinkRecords(t.state.equipment, ids)
	return true
}

// Requests ------------------------------------------------------------------

func (t *transaction) CreateRequest(r domain.MaintenanceRequest) (domain.MaintenanceRequest, error) {
	r.ID = t.state.nextID(domain.EntityRequest)
	r.CreatedAt = t.now
	r.UpdatedAt = t.now
	t.state.requests = append(t.state.requests, cloneRequest(r))
	t.record(domain.EntityRequest, domain.ActionCreate, nil, cloneRequest(r))
	return r, nil
}

func (t *transaction) UpdateRequest(id int, mutator func(*domain.MaintenanceRequest) error) (domain.MaintenanceRequest, error) {
	for i := range t.state.requests {
		if t.state.requests[i].ID != id {
			continue
		}
		before := cloneRequest(t.state.requests[i])
		updated := cloneRequest(t.state.requests[i])
		if err := mutator(&updated); err != nil {
			return domain.MaintenanceRequest{}, err
		}
		updated.ID = id
		updated.CreatedAt = before.CreatedAt
		updated.UpdatedAt = t.now
		t.state.requests[i] = cloneRequest(updated)
		t.record(domain.EntityRequest, domain.ActionUpdate, before, cloneRequest(updated))
		return updated, nil
	}
	return domain.MaintenanceRequest{}, domain.ErrNotFound
}

func (t *transaction) WriteRequests(ids []int, patch domain.MaintenanceRequestPatch) bool {
	for _, id := range ids {
		_, _ = t.UpdateRequest(id, func(r *domain.MaintenanceRequest) error {
			patch.Apply(r)
			return nil
		})
	}
	return true
}

func (t *transaction) UnlinkRequests(ids []int) bool {
	for _, row := range browseRecords(t.state.requests, ids, cloneRequest) {
		t.record(domain.EntityRequest, domain.ActionDelete, row, nil)
	}
	t.state.requests = unlinkRecords(t.state.requests, ids)
	return true
}

// Reads within the transaction observe uncommitted writes.

func (t *transaction) SearchEmployees(dom domain.Domain) []domain.Employee {
	return searchRecords(t.state.employees, dom, cloneEmployee)
}

func (t *transaction) SearchTeams(dom domain.Domain) []domain.MaintenanceTeam {
	return searchRecords(t.state.teams, dom, cloneTeam)
}

func (t *transaction) SearchEquipment(dom domain.Domain) []domain.Equipment {
	return searchRecords(t.state.equipment, dom, cloneEquipment)
}

func (t *transaction) SearchRequests(dom domain.Domain) []domain.MaintenanceRequest {
	return searchRecords(t.state.requests, dom, cloneRequest)
}

func (t *transaction) FindEmployee(id int) (domain.Employee, bool) {
	return findRecord(t.state.employees, id, cloneEmployee)
}

func (t *transaction) FindTeam(id int) (domain.MaintenanceTeam, bool) {
	return findRecord(t.state.teams, id, cloneTeam)
}

func (t *transaction) FindEquipment(id int) (domain.Equipment, bool) {
	return findRecord(t.state.equipment, id, cloneEquipment)
}

func (t *transaction) FindRequest(id int) (domain.MaintenanceRequest, bool) {
	return findRecord(t.state.requests, id, cloneRequest)
}

// transactionView adapts a state snapshot to the read-only view contract used
// by rules and reporting code.
type transactionView struct {
	state *memoryState
}

var _ domain.TransactionView = (*transactionView)(nil)

func (v *transactionView) ListEmployees() []domain.Employee {
	return listRecords(v.state.employees, cloneEmployee)
}

func (v *transactionView) ListTeams() []domain.MaintenanceTeam {
	return listRecords(v.state.teams, cloneTeam)
}

func (v *transactionView) ListEquipment() []domain.Equipment {
	return listRecords(v.state.equipment, cloneEquipment)
}

func (v *transactionView) ListRequests() []domain.MaintenanceRequest {
	return listRecords(v.state.requests, cloneRequest)
}

func (v *transactionView) FindEmployee(id int) (domain.Employee, bool) {
	return findRecord(v.state.employees, id, cloneEmployee)
}

func (v *transactionView) FindTeam(id int) (domain.MaintenanceTeam, bool) {
	return findRecord(v.state.teams, id, cloneTeam)
}

func (v *transactionView) FindEquipment(id int) (domain.Equipment, bool) {
	return findRecord(v.state.equipment, id, cloneEquipment)
}

func (v *transactionView) FindRequest(id int) (domain.MaintenanceRequest, bool) {
	return findRecord(v.state.requests, id, cloneRequest)
}

func (v *transactionView) SearchEmployees(dom domain.Domain) []domain.Employee {
	return searchRecords(v.state.employees, dom, cloneEmployee)
}

func (v *transactionView) SearchTeams(dom domain.Domain) []domain.MaintenanceTeam {
	return searchRecords(v.state.teams, dom, cloneTeam)
}

func (v *transactionView) SearchEquipment(dom domain.Domain) []domain.Equipment {
	return searchRecords(v.state.equipment, dom, cloneEquipment)
}

func (v *transactionView) SearchRequests(dom domain.Domain) []domain.MaintenanceRequest {
	return searchRecords(v.state.requests, dom, cloneRequest)
}

func (v *transactionView) BrowseEmployees(ids ...int) []domain.Employee {
	return browseRecords(v.state.employees, ids, cloneEmployee)
}

func (v *transactionView) BrowseTeams(ids ...int) []domain.MaintenanceTeam {
	return browseRecords(v.state.teams, ids, cloneTeam)
}

func (v *transactionView) BrowseEquipment(ids ...int) []domain.Equipment {
	return browseRecords(v.state.equipment, ids, cloneEquipment)
}

func (v *transactionView) BrowseRequests(ids ...int) []domain.MaintenanceRequest {
	return browseRecords(v.state.requests, ids, cloneRequest)
}
