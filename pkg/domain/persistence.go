package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by typed updates targeting a record that does not
// exist in the transaction snapshot.
var ErrNotFound = errors.New("record not found")

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Write and Unlink report completion
// unconditionally: touching zero records is not an error.
type Transaction interface {
	Now() time.Time

	CreateEmployee(Employee) (Employee, error)
	UpdateEmployee(id int, mutator func(*Employee) error) (Employee, error)
	WriteEmployees(ids []int, patch EmployeePatch) bool
	UnlinkEmployees(ids []int) bool

	CreateTeam(MaintenanceTeam) (MaintenanceTeam, error)
	UpdateTeam(id int, mutator func(*MaintenanceTeam) error) (MaintenanceTeam, error)
	WriteTeams(ids []int, patch MaintenanceTeamPatch) bool
	UnlinkTeams(ids []int) bool

	CreateEquipment(Equipment) (Equipment, error)
	UpdateEquipment(id int, mutator func(*Equipment) error) (Equipment, error)
	WriteEquipment(ids []int, patch EquipmentPatch) bool
	UnlinkEquipment(ids []int) bool

	CreateRequest(MaintenanceRequest) (MaintenanceRequest, error)
	UpdateRequest(id int, mutator func(*MaintenanceRequest) error) (MaintenanceRequest, error)
	WriteRequests(ids []int, patch MaintenanceRequestPatch) bool
	UnlinkRequests(ids []int) bool

	SearchEmployees(Domain) []Employee
	SearchTeams(Domain) []MaintenanceTeam
	SearchEquipment(Domain) []Equipment
	SearchRequests(Domain) []MaintenanceRequest
	FindEmployee(id int) (Employee, bool)
	FindTeam(id int) (MaintenanceTeam, bool)
	FindEquipment(id int) (Equipment, bool)
	FindRequest(id int) (MaintenanceRequest, bool)
}

// TransactionView provides read-only access to snapshot data. Search results
// and listings preserve insertion order; Browse returns records in store
// order regardless of the order of the requested ids.
type TransactionView interface {
	RuleView
	SearchEmployees(Domain) []Employee
	SearchTeams(Domain) []MaintenanceTeam
	SearchEquipment(Domain) []Equipment
	SearchRequests(Domain) []MaintenanceRequest
	BrowseEmployees(ids ...int) []Employee
	BrowseTeams(ids ...int) []MaintenanceTeam
	BrowseEquipment(ids ...int) []Equipment
	BrowseRequests(ids ...int) []MaintenanceRequest
}

// PersistentStore is a minimal abstraction over storage backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	ListEmployees() []Employee
	ListTeams() []MaintenanceTeam
	ListEquipment() []Equipment
	ListRequests() []MaintenanceRequest
	FindEmployee(id int) (Employee, bool)
	FindTeam(id int) (MaintenanceTeam, bool)
	FindEquipment(id int) (Equipment, bool)
	FindRequest(id int) (MaintenanceRequest, bool)
	SearchEmployees(Domain) []Employee
	SearchTeams(Domain) []MaintenanceTeam
	SearchEquipment(Domain) []Equipment
	SearchRequests(Domain) []MaintenanceRequest
}
