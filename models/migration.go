package models

import (
	"bitbucket.org/mmdatafocus/capex_backend/config"
)

// MigrateTables creates or updates every pipeline table. Run from
// cmd/schema-migrate, never at server startup.
func MigrateTables() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&ProjectStaging{},
		&CostStaging{},
		&ProjectInflight{},
		&CostInflight{},
		&ProjectArchive{},
		&CostArchive{},
		&AuditLog{},
	)
}
