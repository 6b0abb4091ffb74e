package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func clearVaultEnv(t *testing.T) {
	t.Helper()

	for _, kv := range os.Environ() {
		key := strings.SplitN(kv, "=", 2)[0]
		if strings.HasPrefix(key, "VAULT_") {
			value := os.Getenv(key)
			require.NoError(t, os.Unsetenv(key))
			t.Cleanup(func() { os.Setenv(key, value) })
		}
	}
}

func TestRootHelpListsUpdate(t *testing.T) {
	out, err := runCommand(t)
	require.NoError(t, err)
	assert.Contains(t, out, "update")
	assert.Contains(t, out, "vault-updater")
}

func TestUpdateRejectsConflictingSelection(t *testing.T) {
	_, err := runCommand(t, "update", "--limit", "5", "--all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestUpdateRejectsConflictingScopes(t *testing.T) {
	_, err := runCommand(t, "update", "--github-only", "--publications-only")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestUpdateRejectsUnknownFormat(t *testing.T) {
	_, err := runCommand(t, "update", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestUpdateFailsWithoutStoreURL(t *testing.T) {
	clearVaultEnv(t)

	_, err := runCommand(t, "update", "--dry-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.url is required")
}
