package main

import (
	"log"
	"strings"

	"gitlab.com/bella.network/distroproxy/pkg/repomap"
)

// buildRepositoryTable merges the built-in repository groups with the
// configured overrides and additional repositories. Merge order is base, ARM,
// RISC-V, overrides, repositories; a later group replaces a prefix declared by
// an earlier one.
func buildRepositoryTable(config *Config) (*repomap.Table, error) {
	groups := []repomap.Group{repomap.Base(), repomap.ARM(), repomap.RISCV()}

	if len(config.Overrides) > 0 {
		for prefix, upstream := range config.Overrides {
			log.Printf("[INFO:OVERRIDE] Routing %s to %s\n", prefix, upstream)
		}
		groups = append(groups, repomap.GroupFromMap("overrides", config.Overrides))
	}

	if len(config.Repositories) > 0 {
		custom := repomap.Group{Name: "custom"}
		for _, repository := range config.Repositories {
			custom.Entries = append(custom.Entries, repomap.Entry{
				Prefix:   repository.Prefix,
				Upstream: strings.TrimRight(repository.Upstream, "/"),
			})
		}
		groups = append(groups, custom)
	}

	table, err := repomap.Build(groups...)
	if err != nil {
		return nil, err
	}

	// Nested prefixes would make the prefix lookup depend on match order.
	if err := table.CheckDisjoint(); err != nil {
		return nil, err
	}

	return table, nil
}
