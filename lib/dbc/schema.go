package dbc

import (
	"context"

	"gitlab.com/bella.network/distroproxy/pkg/odb"
)

// SchemaVersion is the version written by CreateSchema.
const SchemaVersion = 1

var schemaStatements = []string{`
CREATE TABLE IF NOT EXISTS daily_stats (
  instance VARCHAR(255) NOT NULL,
  date DATE NOT NULL,
  requests BIGINT(20) UNSIGNED NOT NULL DEFAULT 0,
  proxied BIGINT(20) UNSIGNED NOT NULL DEFAULT 0,
  not_found BIGINT(20) UNSIGNED NOT NULL DEFAULT 0,
  upstream_error BIGINT(20) UNSIGNED NOT NULL DEFAULT 0,
  traffic BIGINT(20) UNSIGNED NOT NULL DEFAULT 0,
  PRIMARY KEY (instance, date)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_general_ci;
`, `
CREATE TABLE IF NOT EXISTS prefix_stats (
  instance VARCHAR(255) NOT NULL,
  date DATE NOT NULL,
  prefix VARCHAR(255) NOT NULL,
  requests BIGINT(20) UNSIGNED NOT NULL DEFAULT 0,
  PRIMARY KEY (instance, date, prefix)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_general_ci;
`, `
CREATE TABLE IF NOT EXISTS keyvalue (
  ` + "`key`" + ` VARCHAR(100) CHARACTER SET ascii COLLATE ascii_general_ci NOT NULL,
  ` + "`value`" + ` TEXT NOT NULL,
  PRIMARY KEY (` + "`key`" + `)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_general_ci;
`, "INSERT IGNORE INTO `keyvalue` (`key`, `value`) VALUES ('schema_version', '1');",
}

// CreateSchema creates all tables used for statistics.
func CreateSchema(ctx context.Context, conn *odb.DBConnection) error {
	db := conn.GetDB()

	for _, statement := range schemaStatements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return err
		}
	}

	return nil
}
