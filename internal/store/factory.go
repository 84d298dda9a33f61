package store

import (
	"fmt"

	"github.com/clinicdesk/payverify/internal/config"
)

// New creates a Store based on the configured storage driver. It returns a
// nil Store when storage is disabled.
func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(cfg.DSN)
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.Driver)
	}
}
