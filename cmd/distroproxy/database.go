package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gitlab.com/bella.network/distroproxy/lib/dbc"
	"gitlab.com/bella.network/distroproxy/pkg/odb"
)

const databaseSyncInterval = time.Minute

// startDatabaseSync connects to the configured MySQL database, prepares the
// schema and copies the statistics to it periodically. The returned function
// stops the loop after a final copy and closes the connection.
func startDatabaseSync(ctx context.Context) (func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conn, err := odb.NewMySQL(connectCtx, odb.DatabaseOptions{
		Host:     config.Database.Hostname,
		Port:     config.Database.Port,
		Username: config.Database.Username,
		Password: config.Database.Password,
		Database: config.Database.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := dbc.CheckSchemaCreation(connectCtx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}

	instance := databaseInstanceName()
	log.Printf("[INFO:DB] Storing statistics in database %s as instance %s\n", conn.Name(), instance)

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		defer conn.Close()

		ticker := time.NewTicker(databaseSyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				syncStatistics(context.Background(), conn, instance)
			case <-stopCh:
				syncStatistics(context.Background(), conn, instance)
				return
			}
		}
	}()

	return func() {
		close(stopCh)
		<-doneCh
	}, nil
}

func syncStatistics(ctx context.Context, conn *odb.DBConnection, instance string) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := dbc.SaveDays(ctx, conn, instance, tracker.Days()); err != nil {
		log.Printf("[WARN:DB] failed to store statistics: %v\n", err)
	}
}

func databaseInstanceName() string {
	if config.Database.Instance != "" {
		return config.Database.Instance
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "distroproxy"
	}
	return hostname
}
