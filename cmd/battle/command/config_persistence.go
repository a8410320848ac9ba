package command

import (
	"fmt"

	"github.com/pixil98/go-battle/internal/persistence"
	"github.com/pixil98/go-errors"
)

type DatabaseDriver int

const (
	DatabaseDriverSqlite DatabaseDriver = iota
	DatabaseDriverPostgres
)

func (d *DatabaseDriver) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "sqlite":
		*d = DatabaseDriverSqlite
	case "postgres":
		*d = DatabaseDriverPostgres
	default:
		return fmt.Errorf("unknown database driver: %s", text)
	}
	return nil
}

// PersistenceConfig selects the durable battle record database. A sqlite
// driver with no path keeps records in memory.
type PersistenceConfig struct {
	Driver       DatabaseDriver `json:"driver"`
	Path         string         `json:"path,omitempty"`
	DSN          string         `json:"dsn,omitempty"`
	MaxOpenConns int            `json:"max_open_conns,omitempty"`
}

func (c *PersistenceConfig) validate() error {
	el := errors.NewErrorList()

	switch c.Driver {
	case DatabaseDriverSqlite:
		if c.DSN != "" {
			el.Add(fmt.Errorf("persistence: dsn is only used by postgres"))
		}
	case DatabaseDriverPostgres:
		if c.DSN == "" {
			el.Add(fmt.Errorf("persistence: dsn is required for postgres"))
		}
		if c.Path != "" {
			el.Add(fmt.Errorf("persistence: path is only used by sqlite"))
		}
	}
	if c.MaxOpenConns < 0 {
		el.Add(fmt.Errorf("persistence: max_open_conns must not be negative"))
	}

	return el.Err()
}

func (c *PersistenceConfig) BuildRepository() (*persistence.Repository, error) {
	switch c.Driver {
	case DatabaseDriverSqlite:
		db, err := persistence.OpenSqlite(c.Path)
		if err != nil {
			return nil, err
		}
		return persistence.NewRepository(db)
	case DatabaseDriverPostgres:
		db, err := persistence.OpenPostgres(c.DSN, c.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		return persistence.NewRepository(db)
	default:
		return nil, fmt.Errorf("unknown database driver: %v", c.Driver)
	}
}
