// Package authz implements the scope-to-path authorization predicate: a
// small, data-driven rule set mapping OAuth-style scopes to the request
// paths they permit. It is deliberately independent of token
// verification: it only asks "given these already-verified scopes, is
// this path allowed?", and composes with pkg/verifier at the call site.
package authz

import (
	"strings"

	"github.com/dmitrymomot/edgegate/pkg/scopes"
)

// Rule is the per-scope policy: a path is allowed under this scope if it
// has none of ExcludedPaths as a substring and has any of AllowedPaths as
// a prefix.
type Rule struct {
	ExcludedPaths []string `yaml:"excludedPaths"`
	AllowedPaths  []string `yaml:"allowedPaths"`
}

// Authorizer evaluates the scope/path predicate against a static rule
// set keyed by scope name.
type Authorizer struct {
	rules map[string]Rule
}

// New builds an Authorizer from rules. A nil map is treated as empty, so
// every request is then unauthorized, since no scope has a matching
// rule.
func New(rules map[string]Rule) *Authorizer {
	if rules == nil {
		rules = map[string]Rule{}
	}
	return &Authorizer{rules: rules}
}

// Authorized reports whether the space-separated scopeHeader grants
// access to path. Scopes without a configured rule are skipped, not
// denied outright; they simply can't grant access. The first scope
// whose rule grants access wins; if none do, the path is unauthorized.
func (a *Authorizer) Authorized(scopeHeader, path string) bool {
	for _, scope := range scopes.ParseScopes(scopeHeader) {
		rule, ok := a.rules[scope]
		if !ok {
			continue
		}

		if pathExcluded(rule, path) {
			continue
		}
		if pathAllowed(rule, path) {
			return true
		}
	}
	return false
}

func pathExcluded(rule Rule, path string) bool {
	for _, substr := range rule.ExcludedPaths {
		if substr != "" && strings.Contains(path, substr) {
			return true
		}
	}
	return false
}

func pathAllowed(rule Rule, path string) bool {
	for _, prefix := range rule.AllowedPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
