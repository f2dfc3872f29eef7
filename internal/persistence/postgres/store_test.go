package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"gearguard/pkg/domain"
)

// stubDB emulates just enough of the Postgres wire behavior for the
// snapshot table: the state SELECT, the upsert, and DDL as a no-op.
type stubDB struct {
	mu      sync.Mutex
	buckets map[string][]byte
}

func newStubDB() *stubDB {
	return &stubDB{buckets: make(map[string][]byte)}
}

func (s *stubDB) open() *sql.DB {
	return sql.OpenDB(stubConnector{db: s})
}

type stubConnector struct {
	db *stubDB
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return &stubConn{db: c.db}, nil
}

func (c stubConnector) Driver() driver.Driver { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("open by name unsupported")
}

type stubConn struct {
	db *stubDB
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare unsupported")
}

func (c *stubConn) Close() error { return nil }

func (c *stubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	switch {
	case strings.HasPrefix(strings.TrimSpace(query), "CREATE TABLE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(strings.TrimSpace(query), "INSERT INTO state"):
		if len(args) != 2 {
			return nil, errors.New("upsert expects bucket and payload")
		}
		bucket, ok := args[0].Value.(string)
		if !ok {
			return nil, errors.New("bucket must be a string")
		}
		payload, ok := args[1].Value.([]byte)
		if !ok {
			return nil, errors.New("payload must be bytes")
		}
		cp := make([]byte, len(payload))
		copy(cp, payload)
		c.db.mu.Lock()
		c.db.buckets[bucket] = cp
		c.db.mu.Unlock()
		return driver.RowsAffected(1), nil
	default:
		return nil, errors.New("unexpected exec: " + query)
	}
}

func (c *stubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if !strings.Contains(query, "FROM state") {
		return nil, errors.New("unexpected query: " + query)
	}
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	rows := &stubRows{}
	for bucket, payload := range c.db.buckets {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		rows.rows = append(rows.rows, [2]driver.Value{bucket, cp})
	}
	return rows, nil
}

type stubRows struct {
	rows [][2]driver.Value
	pos  int
}

func (r *stubRows) Columns() []string { return []string{"bucket", "payload"} }

func (r *stubRows) Close() error { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	dest[0] = r.rows[r.pos][0]
	dest[1] = r.rows[r.pos][1]
	r.pos++
	return nil
}

func TestStorePersistsAndHydratesSnapshots(t *testing.T) {
	ctx := context.Background()
	db := newStubDB()
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		if driverName != "pgx" {
			t.Fatalf("driver = %q", driverName)
		}
		return db.open(), nil
	})
	defer restore()

	store, err := NewStore("", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		team, err := tx.CreateTeam(domain.MaintenanceTeam{Name: "Night shift", Active: true})
		if err != nil {
			return err
		}
		_, err = tx.CreateEquipment(domain.Equipment{
			Name:              "Forklift",
			Active:            true,
			HealthScore:       100,
			MaintenanceTeamID: domain.Ptr(team.ID),
		})
		return err
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}

	db.mu.Lock()
	payload := db.buckets["equipment"]
	db.mu.Unlock()
	var persisted []domain.Equipment
	if err := json.Unmarshal(payload, &persisted); err != nil {
		t.Fatalf("decode persisted equipment: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Name != "Forklift" {
		t.Fatalf("persisted equipment = %+v", persisted)
	}

	// A second store over the same database hydrates the snapshot.
	reopened, err := NewStore("postgres://stub/gearguard", nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	team, ok := reopened.FindTeam(1)
	if !ok || team.Name != "Night shift" {
		t.Fatalf("team after reopen = %+v ok=%v", team, ok)
	}
	if _, err := reopened.RunInTransaction(ctx, func(tx domain.Transaction) error {
		created, err := tx.CreateTeam(domain.MaintenanceTeam{Name: "Day shift", Active: true})
		if err != nil {
			return err
		}
		if created.ID != 2 {
			t.Fatalf("team id after reopen = %d, want 2", created.ID)
		}
		return nil
	}); err != nil {
		t.Fatalf("second transaction: %v", err)
	}
}

func TestBlockedTransactionDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	db := newStubDB()
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) {
		return db.open(), nil
	})
	defer restore()

	engine := domain.NewRulesEngine()
	engine.Register(blockCreates{})
	store, err := NewStore("", engine)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateEquipment(domain.Equipment{Name: "Blocked"})
		return err
	})
	var ruleErr domain.RuleViolationError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected rule violation, got %v", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.buckets) != 0 {
		t.Fatalf("blocked transaction reached the database: %v", db.buckets)
	}
}

type blockCreates struct{}

func (blockCreates) Name() string { return "block_creates" }

func (blockCreates) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, change := range changes {
		if change.Action == domain.ActionCreate {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "block_creates",
				Severity: domain.SeverityBlock,
				Message:  "creates are blocked",
			})
		}
	}
	return res, nil
}
