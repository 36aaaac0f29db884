// Package odb opens connections to the optional external database used to
// keep statistics of several proxy instances in one place.
package odb

import (
	"context"
	"database/sql"
	"time"
)

type DatabaseOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

type DBConnection struct {
	Conn    *sql.DB
	options DatabaseOptions
}

// Close closes the database connection.
func (db *DBConnection) Close() error {
	return db.Conn.Close()
}

// Ping pings the database connection.
func (db *DBConnection) Ping(ctx context.Context) error {
	return db.Conn.PingContext(ctx)
}

// GetDB returns the database connection.
func (db *DBConnection) GetDB() *sql.DB {
	return db.Conn
}

// Name returns the name of the connected database.
func (db *DBConnection) Name() string {
	return db.options.Database
}

// configureDB sets the database connection pool parameters. Statistics are
// written by a single background loop, so the pool is kept small.
func configureDB(db *sql.DB) {
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Minute * 15)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
}
