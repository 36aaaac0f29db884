// Package router decides which upstream mirror an incoming request path is
// forwarded to. The decision is made by an ordered chain of strategies, the
// first strategy that produces a target wins.
package router

import (
	"gitlab.com/bella.network/distroproxy/pkg/repomap"
)

// Decision is the outcome of a successful resolution.
type Decision struct {
	TargetURL     string // Absolute upstream URL including the query string
	MatchedPrefix string // Prefix of the repository entry, empty for guesses
	Strategy      string // Name of the strategy which produced the decision
}

// Strategy inspects a path and returns a decision if it is able to route it.
type Strategy interface {
	Name() string
	Resolve(path, query string) (Decision, bool)
}

// Router runs its strategies in order.
type Router struct {
	strategies []Strategy
}

// New creates a router from the given strategies. Order matters, strategies are
// tried from first to last.
func New(strategies ...Strategy) *Router {
	return &Router{strategies: strategies}
}

// NewDefault creates the standard chain for the given table:
//  1. exact prefix match, except for paths below /ubuntu/ and /debian/
//  2. architecture detection for Ubuntu and Debian
//  3. keyword based guess for paths mentioning a distribution and an
//     architecture
func NewDefault(table *repomap.Table) *Router {
	return New(
		NewPrefixMatch(table, ubuntuPrefix, debianPrefix),
		NewDistroSniff(table),
		NewKeywordGuess(table),
	)
}

// Resolve returns the decision of the first strategy which accepts the path.
// The query, if not empty, must include its leading "?" and is appended to
// the target verbatim.
func (r *Router) Resolve(path, query string) (Decision, bool) {
	for _, strategy := range r.strategies {
		if decision, ok := strategy.Resolve(path, query); ok {
			decision.Strategy = strategy.Name()
			return decision, true
		}
	}

	return Decision{}, false
}

// Strategies returns the names of the configured strategies in order.
func (r *Router) Strategies() []string {
	names := make([]string, 0, len(r.strategies))
	for _, strategy := range r.strategies {
		names = append(names, strategy.Name())
	}
	return names
}
