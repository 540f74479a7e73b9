// schema-migrate creates or updates the pipeline tables.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/schema-migrate
package main

import (
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/capex_backend/config"
	"bitbucket.org/mmdatafocus/capex_backend/models"
)

func main() {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	if err := models.MigrateTables(); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("pipeline tables migrated")
}
