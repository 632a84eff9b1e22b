package authz

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrEmptyScopesFile is returned by LoadRulesFromYAML when the file
// decodes to no rules at all, almost certainly a misconfiguration
// rather than an intentionally empty policy.
var ErrEmptyScopesFile = errors.New("authz: scopes file contains no rules")

// LoadRulesFromYAML reads a SCOPES_FILE-style document, a top-level map
// of scope name to Rule.
//
// Example document:
//
//	uk/api/read:
//	  allowedPaths: ["/uk/api/"]
//	  excludedPaths: ["/uk/api/admin/"]
func LoadRulesFromYAML(path string) (map[string]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("authz: read scopes file: %w", err)
	}

	var rules map[string]Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("authz: parse scopes file: %w", err)
	}
	if len(rules) == 0 {
		return nil, ErrEmptyScopesFile
	}

	return rules, nil
}
