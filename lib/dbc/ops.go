// Package dbc contains the statements used to store proxy statistics in the
// optional MySQL database.
package dbc

import (
	"context"
	"sort"

	"gitlab.com/bella.network/distroproxy/pkg/odb"
	"gitlab.com/bella.network/distroproxy/pkg/stats"
)

const upsertDailyStats = "INSERT INTO daily_stats (instance, date, requests, proxied, not_found, upstream_error, traffic) VALUES (?, ?, ?, ?, ?, ?, ?) " +
	"ON DUPLICATE KEY UPDATE requests = VALUES(requests), proxied = VALUES(proxied), not_found = VALUES(not_found), upstream_error = VALUES(upstream_error), traffic = VALUES(traffic)"

const upsertPrefixStats = "INSERT INTO prefix_stats (instance, date, prefix, requests) VALUES (?, ?, ?, ?) " +
	"ON DUPLICATE KEY UPDATE requests = VALUES(requests)"

// SaveDays stores the counters of all given days for instance. Existing rows
// are replaced as the tracker always holds the complete count of a day.
func SaveDays(ctx context.Context, conn *odb.DBConnection, instance string, days map[string]stats.Entry) error {
	tx, err := conn.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	dailyStmt, err := tx.PrepareContext(ctx, upsertDailyStats)
	if err != nil {
		return err
	}
	defer dailyStmt.Close()

	prefixStmt, err := tx.PrepareContext(ctx, upsertPrefixStats)
	if err != nil {
		return err
	}
	defer prefixStmt.Close()

	for _, day := range sortedKeys(days) {
		entry := days[day]
		_, err := dailyStmt.ExecContext(ctx, instance, day, entry.Requests, entry.Proxied, entry.NotFound, entry.UpstreamError, entry.Traffic)
		if err != nil {
			return err
		}

		for _, prefix := range sortedKeys(entry.Prefixes) {
			if _, err := prefixStmt.ExecContext(ctx, instance, day, prefix, entry.Prefixes[prefix]); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
