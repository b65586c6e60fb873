package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 11753, cfg.DefaultPort)
	assert.Equal(t, "", cfg.DirectoryURL)
	assert.Equal(t, "Player", cfg.PlayerName)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, time.Duration(0), cfg.RefreshInterval)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr)
	assert.Equal(t, "servers.json", filepath.Base(cfg.FavouritesFile))
}

func TestLoadEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PARKDIR_DEFAULT_PORT", "14000")
	t.Setenv("PARKDIR_DIRECTORY_URL", "http://directory.test/servers")
	t.Setenv("PARKDIR_REFRESH_INTERVAL", "5m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 14000, cfg.DefaultPort)
	assert.Equal(t, "http://directory.test/servers", cfg.DirectoryURL)
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	content := "player_name: Rider\ndefault_port: 12000\nfavourites_file: " + filepath.Join(dir, "favs.json") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Rider", cfg.PlayerName)
	assert.Equal(t, 12000, cfg.DefaultPort)
	assert.Equal(t, filepath.Join(dir, "favs.json"), cfg.FavouritesFile)
	assert.Equal(t, path, cfg.ConfigFile())
}

func TestLoadRejectsBadPort(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PARKDIR_DEFAULT_PORT", "70000")

	_, err := Load("")
	assert.Error(t, err)
}

func TestSetPlayerNamePersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parkdir.yml")
	require.NoError(t, os.WriteFile(path, []byte("player_name: Old\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.SetPlayerName("New"))
	assert.Equal(t, "New", cfg.PlayerName)

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "New", reloaded.PlayerName)
}

// chdir stands in for testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
