package authz_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/edgegate/pkg/authz"
)

func TestLoadRulesFromYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "scopes.yaml")
	writeFile(t, path, `
uk/api:
  allowedPaths:
    - /uk/api/
  excludedPaths:
    - /uk/api/admin/
`)

	rules, err := authz.LoadRulesFromYAML(path)
	require.NoError(t, err)
	require.Contains(t, rules, "uk/api")
	assert.Equal(t, []string{"/uk/api/"}, rules["uk/api"].AllowedPaths)
	assert.Equal(t, []string{"/uk/api/admin/"}, rules["uk/api"].ExcludedPaths)
}

func TestLoadRulesFromYAML_EmptyFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	writeFile(t, path, "{}\n")

	_, err := authz.LoadRulesFromYAML(path)
	assert.ErrorIs(t, err, authz.ErrEmptyScopesFile)
}

func TestLoadRulesFromYAML_MissingFileErrors(t *testing.T) {
	t.Parallel()

	_, err := authz.LoadRulesFromYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}
