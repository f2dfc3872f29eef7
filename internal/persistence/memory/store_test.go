package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"gearguard/pkg/domain"
)

func newTestStore() *Store {
	return NewStore(domain.NewRulesEngine())
}

func createEmployee(t *testing.T, store *Store, name string) domain.Employee {
	t.Helper()
	var created domain.Employee
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateEmployee(domain.Employee{Name: name, Active: true})
		return err
	}); err != nil {
		t.Fatalf("create employee %s: %v", name, err)
	}
	return created
}

func TestSequentialIDsStartAtOne(t *testing.T) {
	store := newTestStore()
	first := createEmployee(t, store, "First")
	second := createEmployee(t, store, "Second")
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("expected ids 1,2 got %d,%d", first.ID, second.ID)
	}

	var equipment domain.Equipment
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		equipment, err = tx.CreateEquipment(domain.Equipment{Name: "Press", Active: true})
		return err
	}); err != nil {
		t.Fatalf("create equipment: %v", err)
	}
	// Sequences are per entity kind.
	if equipment.ID != 1 {
		t.Fatalf("expected equipment id 1, got %d", equipment.ID)
	}
}

func TestIDsNeverReusedAfterUnlink(t *testing.T) {
	store := newTestStore()
	first := createEmployee(t, store, "First")
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		tx.UnlinkEmployees([]int{first.ID})
		return nil
	}); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	next := createEmployee(t, store, "Next")
	if next.ID != 2 {
		t.Fatalf("expected id 2 after unlink of 1, got %d", next.ID)
	}
	if _, ok := store.FindEmployee(first.ID); ok {
		t.Fatal("unlinked employee still visible")
	}
}

func TestWriteWithoutMatchesStillSucceeds(t *testing.T) {
	store := newTestStore()
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if !tx.WriteEmployees([]int{404}, domain.EmployeePatch{Name: domain.Ptr("Ghost")}) {
			t.Fatal("write with no matches must report success")
		}
		if !tx.UnlinkEmployees([]int{404}) {
			t.Fatal("unlink with no matches must report success")
		}
		return nil
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestSearchPreservesInsertionOrder(t *testing.T) {
	store := newTestStore()
	names := []string{"Zeta", "Alpha", "Mid"}
	for _, name := range names {
		createEmployee(t, store, name)
	}
	results := store.SearchEmployees(domain.Domain{{Field: "active", Operator: domain.OpEq, Value: true}})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, name := range names {
		if results[i].Name != name {
			t.Fatalf("result %d = %s, want %s (insertion order)", i, results[i].Name, name)
		}
	}
}

func TestBrowseReturnsStoreOrder(t *testing.T) {
	store := newTestStore()
	createEmployee(t, store, "A")
	createEmployee(t, store, "B")
	createEmployee(t, store, "C")

	err := store.View(context.Background(), func(view domain.TransactionView) error {
		// Requested order is irrelevant; store order wins.
		got := view.BrowseEmployees(3, 1)
		if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
			t.Fatalf("browse order = %+v, want store order [1 3]", got)
		}
		// Missing ids are silently dropped.
		if got := view.BrowseEmployees(2, 99); len(got) != 1 || got[0].ID != 2 {
			t.Fatalf("browse with missing id = %+v", got)
		}
		if got := view.BrowseEmployees(); len(got) != 0 {
			t.Fatalf("empty browse = %+v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestTransactionErrorDiscardsWrites(t *testing.T) {
	store := newTestStore()
	sentinel := errors.New("abort")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateEmployee(domain.Employee{Name: "Doomed"}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if got := store.ListEmployees(); len(got) != 0 {
		t.Fatalf("aborted transaction leaked %d records", len(got))
	}
}

type blockAllRule struct{}

func (blockAllRule) Name() string { return "block_all" }

func (blockAllRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for range changes {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "block_all",
			Severity: domain.SeverityBlock,
			Message:  "all changes rejected",
		})
	}
	return res, nil
}

func TestBlockingRuleAbortsCommit(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockAllRule{})
	store := NewStore(engine)

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateEmployee(domain.Employee{Name: "Rejected"})
		return err
	})
	var ruleErr domain.RuleViolationError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	if len(store.ListEmployees()) != 0 {
		t.Fatal("blocked transaction must not commit")
	}
	// The sequence also rolls back with the state.
	retry := NewStore(domain.NewRulesEngine())
	if e := createEmployee(t, retry, "Fresh"); e.ID != 1 {
		t.Fatalf("fresh store id = %d", e.ID)
	}
}

func TestUpdateMissingRecordReturnsNotFound(t *testing.T) {
	store := newTestStore()
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpdateEmployee(42, func(e *domain.Employee) error { return nil })
		return err
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotRoundTripKeepsSequences(t *testing.T) {
	store := newTestStore()
	createEmployee(t, store, "Keep")
	doomed := createEmployee(t, store, "Drop")
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateTeam(domain.MaintenanceTeam{Name: "Crew", TechnicianIDs: []int{1}, Active: true}); err != nil {
			return err
		}
		tx.UnlinkEmployees([]int{doomed.ID})
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	restored := newTestStore()
	restored.ImportState(store.ExportState())

	if got := restored.ListEmployees(); len(got) != 1 || got[0].Name != "Keep" {
		t.Fatalf("restored employees = %+v", got)
	}
	if got := restored.ListTeams(); len(got) != 1 || !got[0].HasTechnician(1) {
		t.Fatalf("restored teams = %+v", got)
	}
	// Ids continue past the dropped record.
	if e := createEmployee(t, restored, "After"); e.ID != 3 {
		t.Fatalf("restored store issued id %d, want 3", e.ID)
	}
}

func TestImportRebuildsMissingSequences(t *testing.T) {
	restored := newTestStore()
	restored.ImportState(Snapshot{
		Employees: []domain.Employee{{Base: domain.Base{ID: 5}, Name: "Legacy"}},
	})
	if e := createEmployee(t, restored, "Next"); e.ID != 6 {
		t.Fatalf("expected id 6 after legacy max 5, got %d", e.ID)
	}
}

func TestNowFuncSeam(t *testing.T) {
	store := newTestStore()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return fixed })

	e := createEmployee(t, store, "Clocked")
	if !e.CreatedAt.Equal(fixed) || !e.UpdatedAt.Equal(fixed) {
		t.Fatalf("timestamps = %v/%v, want %v", e.CreatedAt, e.UpdatedAt, fixed)
	}

	store.SetNowFunc(nil)
	if store.NowFunc()().IsZero() {
		t.Fatal("nil now func must fall back to wall clock")
	}
}

func TestTransactionReadsSeeUncommittedWrites(t *testing.T) {
	store := newTestStore()
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		created, err := tx.CreateEquipment(domain.Equipment{Name: "Lathe", Active: true})
		if err != nil {
			return err
		}
		if _, ok := tx.FindEquipment(created.ID); !ok {
			t.Fatal("uncommitted create invisible inside transaction")
		}
		found := tx.SearchEquipment(domain.Domain{{Field: "name", Operator: domain.OpEq, Value: "Lathe"}})
		if len(found) != 1 {
			t.Fatalf("search inside tx found %d", len(found))
		}
		return nil
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}
}
