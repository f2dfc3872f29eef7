// Package memory implements the in-memory transactional record store backing
// the gearguard core. Records are kept in insertion order with per-kind
// integer sequences; transactions mutate a clone of the state and commit only
// when no blocking rule violation is present.
package memory

import (
	"context"
	"sync"
	"time"

	"gearguard/pkg/domain"
)

type memoryState struct {
	employees []domain.Employee
	teams     []domain.MaintenanceTeam
	equipment []domain.Equipment
	requests  []domain.MaintenanceRequest
	// Next id per entity kind. Sequences start at 1 and never reuse ids,
	// even after unlink.
	seq map[domain.EntityType]int
}

func newMemoryState() memoryState {
	return memoryState{
		seq: map[domain.EntityType]int{
			domain.EntityEmployee:  1,
			domain.EntityTeam:      1,
			domain.EntityEquipment: 1,
			domain.EntityRequest:   1,
		},
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	cloned.employees = make([]domain.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		cloned.employees = append(cloned.employees, cloneEmployee(e))
	}
	cloned.teams = make([]domain.MaintenanceTeam, 0, len(s.teams))
	for _, t := range s.teams {
		cloned.teams = append(cloned.teams, cloneTeam(t))
	}
	cloned.equipment = make([]domain.Equipment, 0, len(s.equipment))
	for _, e := range s.equipment {
		cloned.equipment = append(cloned.equipment, cloneEquipment(e))
	}
	cloned.requests = make([]domain.MaintenanceRequest, 0, len(s.requests))
	for _, r := range s.requests {
		cloned.requests = append(cloned.requests, cloneRequest(r))
	}
	for k, v := range s.seq {
		cloned.seq[k] = v
	}
	return cloned
}

func (s *memoryState) nextID(entity domain.EntityType) int {
	id := s.seq[entity]
	if id == 0 {
		id = 1
	}
	s.seq[entity] = id + 1
	return id
}

func cloneEmployee(e domain.Employee) domain.Employee { return e }

func cloneTeam(t domain.MaintenanceTeam) domain.MaintenanceTeam {
	cp := t
	cp.TechnicianIDs = append([]int(nil), t.TechnicianIDs...)
	return cp
}

func cloneEquipment(e domain.Equipment) domain.Equipment {
	cp := e
	cp.AssignedEmployeeID = cloneInt(e.AssignedEmployeeID)
	cp.MaintenanceTeamID = cloneInt(e.MaintenanceTeamID)
	cp.PurchaseDate = cloneTime(e.PurchaseDate)
	cp.WarrantyEndDate = cloneTime(e.WarrantyEndDate)
	return cp
}

func cloneRequest(r domain.MaintenanceRequest) domain.MaintenanceRequest {
	cp := r
	cp.EquipmentID = cloneInt(r.EquipmentID)
	cp.TechnicianID = cloneInt(r.TechnicianID)
	cp.MaintenanceTeamID = cloneInt(r.MaintenanceTeamID)
	cp.ScheduledDate = cloneTime(r.ScheduledDate)
	cp.RepairedDate = cloneTime(r.RepairedDate)
	return cp
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// searchRecords filters rows by domain, preserving insertion order.
func searchRecords[T domain.Record](rows []T, dom domain.Domain, clone func(T) T) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if dom.Matches(row.Fields()) {
			out = append(out, clone(row))
		}
	}
	return out
}

// browseRecords returns rows whose id is in ids, in store order.
func browseRecords[T domain.Record](rows []T, ids []int, clone func(T) T) []T {
	want := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]T, 0, len(ids))
	for _, row := range rows {
		if _, ok := want[row.RecordID()]; ok {
			out = append(out, clone(row))
		}
	}
	return out
}

func findRecord[T domain.Record](rows []T, id int, clone func(T) T) (T, bool) {
	for _, row := range rows {
		if row.RecordID() == id {
			return clone(row), true
		}
	}
	var zero T
	return zero, false
}

func listRecords[T domain.Record](rows []T, clone func(T) T) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		out = append(out, clone(row))
	}
	return out
}

func unlinkRecords[T domain.Record](rows []T, ids []int) []T {
	drop := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := rows[:0]
	for _, row := range rows {
		if _, ok := drop[row.RecordID()]; !ok {
			out = append(out, row)
		}
	}
	return out
}

// Snapshot is the JSON-serializable export of the full store state. The
// sequence counters travel with the records so restored stores never reuse
// ids.
type Snapshot struct {
	Employees []domain.Employee           `json:"employees"`
	Teams     []domain.MaintenanceTeam    `json:"teams"`
	Equipment []domain.Equipment          `json:"equipment"`
	Requests  []domain.MaintenanceRequest `json:"requests"`
	Sequences map[string]int              `json:"sequences"`
}

func snapshotFromState(s memoryState) Snapshot {
	cloned := s.clone()
	seqs := make(map[string]int, len(cloned.seq))
	for k, v := range cloned.seq {
		seqs[string(k)] = v
	}
	return Snapshot{
		Employees: cloned.employees,
		Teams:     cloned.teams,
		Equipment: cloned.equipment,
		Requests:  cloned.requests,
		Sequences: seqs,
	}
}

func stateFromSnapshot(snap Snapshot) memoryState {
	state := newMemoryState()
	state.employees = append(state.employees, snap.Employees...)
	state.teams = append(state.teams, snap.Teams...)
	state.equipment = append(state.equipment, snap.Equipment...)
	state.requests = append(state.requests, snap.Requests...)
	for k, v := range snap.Sequences {
		state.seq[domain.EntityType(k)] = v
	}
	// Older snapshots may lack sequence counters; rebuild them from the
	// highest id seen per kind.
	ensureSeq(state.seq, domain.EntityEmployee, maxID(state.employees))
	ensureSeq(state.seq, domain.EntityTeam, maxID(state.teams))
	ensureSeq(state.seq, domain.EntityEquipment, maxID(state.equipment))
	ensureSeq(state.seq, domain.EntityRequest, maxID(state.requests))
	return state.clone()
}

func maxID[T domain.Record](rows []T) int {
	max := 0
	for _, row := range rows {
		if row.RecordID() > max {
			max = row.RecordID()
		}
	}
	return max
}

func ensureSeq(seq map[domain.EntityType]int, entity domain.EntityType, maxSeen int) {
	if seq[entity] <= maxSeen {
		seq[entity] = maxSeen + 1
	}
}

// Store provides an in-memory transactional store for the maintenance
// domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *domain.RulesEngine
	nowFn  func() time.Time
}

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

// NewStore constructs an in-memory store backed by the provided rules
// engine.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *domain.RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the store's time provider. Intended for tests that
// pin overdue and breakdown windows.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		fn = func() time.Time { return time.Now().UTC() }
	}
	s.nowFn = fn
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateFromSnapshot(snapshot)
}

// RunInTransaction executes fn within a transactional copy of the store
// state. Registered rules are evaluated against the mutated snapshot before
// commit; a blocking violation aborts the transaction, leaving the store
// untouched.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		view := &transactionView{state: &tx.state}
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(&transactionView{state: &snapshot})
}

// Committed-state read helpers ----------------------------------------------

// ListEmployees returns all employees in insertion order.
func (s *Store) ListEmployees() []domain.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRecords(s.state.employees, cloneEmployee)
}

// ListTeams returns all maintenance teams in insertion order.
func (s *Store) ListTeams() []domain.MaintenanceTeam {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRecords(s.state.teams, cloneTeam)
}

// ListEquipment returns all equipment in insertion order.
func (s *Store) ListEquipment() []domain.Equipment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRecords(s.state.equipment, cloneEquipment)
}

// ListRequests returns all maintenance requests in insertion order.
func (s *Store) ListRequests() []domain.MaintenanceRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRecords(s.state.requests, cloneRequest)
}

// FindEmployee retrieves an employee by id from committed state.
func (s *Store) FindEmployee(id int) (domain.Employee, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findRecord(s.state.employees, id, cloneEmployee)
}

// FindTeam retrieves a team by id from committed state.
func (s *Store) FindTeam(id int) (domain.MaintenanceTeam, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findRecord(s.state.teams, id, cloneTeam)
}

// FindEquipment retrieves an equipment record by id from committed state.
func (s *Store) FindEquipment(id int) (domain.Equipment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findRecord(s.state.equipment, id, cloneEquipment)
}

// FindRequest retrieves a request by id from committed state.
func (s *Store) FindRequest(id int) (domain.MaintenanceRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findRecord(s.state.requests, id, cloneRequest)
}

// SearchEmployees filters employees by domain in insertion order.
func (s *Store) SearchEmployees(dom domain.Domain) []domain.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return searchRecords(s.state.employees, dom, cloneEmployee)
}

// SearchTeams filters teams by domain in insertion order.
func (s *Store) SearchTeams(dom domain.Domain) []domain.MaintenanceTeam {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return searchRecords(s.state.teams, dom, cloneTeam)
}

// SearchEquipment filters equipment by domain in insertion order.
func (s *Store) SearchEquipment(dom domain.Domain) []domain.Equipment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return searchRecords(s.state.equipment, dom, cloneEquipment)
}

// SearchRequests filters requests by domain in insertion order.
func (s *Store) SearchRequests(dom domain.Domain) []domain.MaintenanceRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return searchRecords(s.state.requests, dom, cloneRequest)
}
