package odb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLConfig builds the driver configuration for the given options.
func MySQLConfig(options DatabaseOptions) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = options.Username
	cfg.Passwd = options.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", options.Host, options.Port)
	cfg.DBName = options.Database
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	cfg.Collation = "utf8mb4_unicode_ci"
	cfg.Timeout = 30 * time.Second
	cfg.ReadTimeout = 30 * time.Second
	cfg.WriteTimeout = 30 * time.Second
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.InterpolateParams = true
	cfg.AllowNativePasswords = true
	return cfg
}

// NewMySQL creates a new MySQL database connection.
func NewMySQL(ctx context.Context, options DatabaseOptions) (*DBConnection, error) {
	if options.Port == 0 {
		options.Port = 3306
	}

	connector, err := mysql.NewConnector(MySQLConfig(options))
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)

	// Set the database connection pool parameters.
	configureDB(db)

	// Ping the database connection to verify the connection.
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DBConnection{db, options}, nil
}
