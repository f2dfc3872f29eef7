package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"gearguard/pkg/domain"
)

func TestStoreSnapshotSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "gearguard.db")

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateEmployee(domain.Employee{Name: "Iris", IsTechnician: true, Active: true}); err != nil {
			return err
		}
		equipment, err := tx.CreateEquipment(domain.Equipment{Name: "Lathe", Active: true, HealthScore: 100})
		if err != nil {
			return err
		}
		_, err = tx.CreateRequest(domain.MaintenanceRequest{
			Subject:     "Alignment",
			EquipmentID: domain.Ptr(equipment.ID),
			State:       domain.StateNew,
			RequestType: domain.RequestCorrective,
		})
		return err
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if got := len(reopened.ListEmployees()); got != 1 {
		t.Fatalf("employees after reopen = %d", got)
	}
	equipment, ok := reopened.FindEquipment(1)
	if !ok || equipment.Name != "Lathe" || equipment.HealthScore != 100 {
		t.Fatalf("equipment after reopen = %+v ok=%v", equipment, ok)
	}
	request, ok := reopened.FindRequest(1)
	if !ok || request.EquipmentID == nil || *request.EquipmentID != equipment.ID {
		t.Fatalf("request after reopen = %+v ok=%v", request, ok)
	}

	// The id sequences survive the round trip; new records continue them.
	if _, err := reopened.RunInTransaction(ctx, func(tx domain.Transaction) error {
		employee, err := tx.CreateEmployee(domain.Employee{Name: "Next", Active: true})
		if err != nil {
			return err
		}
		if employee.ID != 2 {
			t.Fatalf("employee id after reopen = %d, want 2", employee.ID)
		}
		return nil
	}); err != nil {
		t.Fatalf("second transaction: %v", err)
	}
}

func TestStoreDefaultsPathAndSkipsEmptyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()

	if store.Path() != path {
		t.Fatalf("path = %q", store.Path())
	}
	if got := len(store.ListRequests()); got != 0 {
		t.Fatalf("fresh database not empty: %d requests", got)
	}
}

func TestRollbackLeavesDatabaseUntouched(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rollback.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateEquipment(domain.Equipment{Name: "Kept", Active: true}); err != nil {
			return err
		}
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	boom := domain.ValidationError{Message: "abort"}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateEquipment(domain.Equipment{Name: "Discarded"}); err != nil {
			return err
		}
		return boom
	}); err == nil {
		t.Fatal("expected transaction error")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if got := len(reopened.ListEquipment()); got != 1 {
		t.Fatalf("equipment after rollback = %d, want 1", got)
	}
}
