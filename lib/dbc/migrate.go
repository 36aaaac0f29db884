package dbc

import (
	"context"
	"fmt"

	"gitlab.com/bella.network/distroproxy/pkg/odb"
)

// CheckSchemaCreation checks if the database schema has been created and is
// up-to-date. If the schema is not created, it will create it. If the schema is
// outdated, it will migrate it to the latest version.
func CheckSchemaCreation(ctx context.Context, conn *odb.DBConnection) error {
	db := conn.GetDB()

	// Check if the keyvalue table exists
	var exists bool
	err := db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = 'keyvalue')").Scan(&exists)
	if err != nil {
		return err
	}

	if !exists {
		if err := CreateSchema(ctx, conn); err != nil {
			return err
		}
	}

	return MigrateSchema(ctx, conn)
}

// MigrateSchema checks the current schema version and performs migrations if
// necessary. It returns an error if the stored version is newer than this
// binary understands.
func MigrateSchema(ctx context.Context, conn *odb.DBConnection) error {
	db := conn.GetDB()

	var currentVersion int
	err := db.QueryRowContext(ctx, "SELECT `value` FROM `keyvalue` WHERE `key` = 'schema_version'").Scan(&currentVersion)
	if err != nil {
		return err
	}

	if currentVersion > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", currentVersion, SchemaVersion)
	}

	// Perform migrations when needed

	return nil
}
