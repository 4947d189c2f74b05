package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.toml")
	doc := `
[Target]
Name = "game"

[Scan]
Alignment = 4
Parallel = false
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg := Default()
	require.NoError(t, Load(path, &cfg))

	require.Equal(t, "game", cfg.Target.Name)
	require.Equal(t, 4, cfg.Scan.Alignment)
	require.False(t, cfg.Scan.Parallel)
	// Untouched default survives the partial override.
	require.Equal(t, 256, cfg.Scan.RegionCache)
}

func TestLoadWarnsButSucceedsOnUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.toml")
	require.NoError(t, os.WriteFile(path, []byte("[Scan]\nTypo = 1\nAlignment = 8\n"), 0o600))

	cfg := Default()
	require.NoError(t, Load(path, &cfg))
	// The unknown field is ignored; known fields in the same table still load.
	require.Equal(t, 8, cfg.Scan.Alignment)
}

func TestLoadMissingFileFails(t *testing.T) {
	cfg := Default()
	err := Load("/nonexistent/session.toml", &cfg)
	require.Error(t, err)
}
