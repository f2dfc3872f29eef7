package core

import (
	"fmt"
	"os"

	"gearguard/internal/persistence/memory"
	"gearguard/internal/persistence/postgres"
	"gearguard/internal/persistence/sqlite"
	"gearguard/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

// Supported storage backends.
const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to memory when unset, matching the in-process nature of the core.
//
//	GEARGUARD_STORAGE_DRIVER: memory|sqlite|postgres (default memory)
//	GEARGUARD_SQLITE_PATH: path to sqlite file (default ./gearguard.db)
//	GEARGUARD_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(engine *domain.RulesEngine) (domain.PersistentStore, error) {
	driver := os.Getenv("GEARGUARD_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageMemory)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return sqlite.NewStore(os.Getenv("GEARGUARD_SQLITE_PATH"), engine)
	case StoragePostgres:
		return postgres.NewStore(os.Getenv("GEARGUARD_POSTGRES_DSN"), engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
