package router

import (
	"strings"

	"gitlab.com/bella.network/distroproxy/pkg/repomap"
)

const (
	ubuntuPrefix = "/ubuntu"
	debianPrefix = "/debian"

	// Table entries used as ports upstreams by the architecture detection.
	// ARM and RISC-V are looked up separately, an override of one
	// architecture must not move the other.
	ubuntuPortsPrefix = "/ubuntu-arm64"
	debianARMPrefix   = "/debian-arm"
	debianRISCVPrefix = "/debian-riscv"
)

// portsRule selects the table entry of a ports mirror if one of the markers is
// contained in the path.
type portsRule struct {
	prefix  string
	markers []string
}

var (
	ubuntuSniffRules = []portsRule{
		{prefix: ubuntuPortsPrefix, markers: []string{"/arm64/", "/aarch64/"}},
	}
	debianSniffRules = []portsRule{
		{prefix: debianARMPrefix, markers: []string{"/arm/", "/arm64/", "/aarch64/"}},
		{prefix: debianRISCVPrefix, markers: []string{"/riscv/", "/riscv64/"}},
	}

	ubuntuGuessRules = []portsRule{
		{prefix: ubuntuPortsPrefix, markers: []string{"arm", "aarch64"}},
	}
	debianGuessRules = []portsRule{
		{prefix: debianARMPrefix, markers: []string{"arm", "aarch64"}},
		{prefix: debianRISCVPrefix, markers: []string{"riscv"}},
	}
)

// PrefixMatch routes paths which equal a declared prefix or continue with "/"
// after it.
type PrefixMatch struct {
	table    *repomap.Table
	deferred map[string]struct{}
}

// NewPrefixMatch creates the table lookup strategy. Paths below one of the
// deferred prefixes (prefix + "/") are left to later strategies, the bare
// prefix itself is still routed.
func NewPrefixMatch(table *repomap.Table, deferred ...string) *PrefixMatch {
	s := &PrefixMatch{
		table:    table,
		deferred: make(map[string]struct{}, len(deferred)),
	}
	for _, prefix := range deferred {
		s.deferred[prefix] = struct{}{}
	}
	return s
}

func (s *PrefixMatch) Name() string { return "prefix" }

func (s *PrefixMatch) Resolve(path, query string) (Decision, bool) {
	entry, ok := s.table.Lookup(path)
	if !ok {
		return Decision{}, false
	}

	if path == entry.Prefix {
		// Bare prefix, fetch the directory index of the upstream.
		return Decision{
			TargetURL:     entry.Upstream + "/" + query,
			MatchedPrefix: entry.Prefix,
		}, true
	}

	if _, ok := s.deferred[entry.Prefix]; ok {
		return Decision{}, false
	}

	return Decision{
		TargetURL:     entry.Upstream + path[len(entry.Prefix):] + query,
		MatchedPrefix: entry.Prefix,
	}, true
}

// DistroSniff routes Ubuntu and Debian paths to the ports mirror if the path
// contains an architecture directory, otherwise to the regular archive.
// Detection is plain substring matching of e.g. "/arm64/" anywhere in the path.
type DistroSniff struct {
	table *repomap.Table
}

// NewDistroSniff creates the architecture detection strategy. Upstreams are
// taken from the table so overridden mirrors are respected.
func NewDistroSniff(table *repomap.Table) *DistroSniff {
	return &DistroSniff{table: table}
}

func (s *DistroSniff) Name() string { return "sniff" }

func (s *DistroSniff) Resolve(path, query string) (Decision, bool) {
	switch {
	case strings.HasPrefix(path, ubuntuPrefix+"/"):
		return s.route(path, query, ubuntuPrefix, ubuntuSniffRules)
	case strings.HasPrefix(path, debianPrefix+"/"):
		return s.route(path, query, debianPrefix, debianSniffRules)
	default:
		return Decision{}, false
	}
}

func (s *DistroSniff) route(path, query, archivePrefix string, rules []portsRule) (Decision, bool) {
	prefix := archivePrefix
	if portsPrefix, ok := matchRules(path, rules); ok {
		prefix = portsPrefix
	}

	entry, ok := s.table.Entry(prefix)
	if !ok {
		return Decision{}, false
	}

	return Decision{
		TargetURL:     entry.Upstream + path[len(archivePrefix):] + query,
		MatchedPrefix: archivePrefix,
	}, true
}

// KeywordGuess is the last resort for paths which mention a distribution name
// together with an architecture keyword anywhere, e.g. "/mirror/ubuntu-arm64/"
// below an unknown prefix. The full path is appended to the ports mirror.
type KeywordGuess struct {
	table *repomap.Table
}

// NewKeywordGuess creates the keyword based fallback strategy.
func NewKeywordGuess(table *repomap.Table) *KeywordGuess {
	return &KeywordGuess{table: table}
}

func (s *KeywordGuess) Name() string { return "guess" }

func (s *KeywordGuess) Resolve(path, query string) (Decision, bool) {
	var (
		prefix string
		ok     bool
	)
	if strings.Contains(path, "ubuntu") {
		prefix, ok = matchRules(path, ubuntuGuessRules)
	}
	if !ok && strings.Contains(path, "debian") {
		prefix, ok = matchRules(path, debianGuessRules)
	}
	if !ok {
		return Decision{}, false
	}

	entry, ok := s.table.Entry(prefix)
	if !ok {
		return Decision{}, false
	}

	return Decision{TargetURL: entry.Upstream + path + query}, true
}

// matchRules returns the prefix of the first rule with a marker in path.
func matchRules(path string, rules []portsRule) (string, bool) {
	for _, rule := range rules {
		if containsAny(path, rule.markers) {
			return rule.prefix, true
		}
	}
	return "", false
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
