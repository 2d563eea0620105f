package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfigPath(t *testing.T, dir, path string) {
	t.Helper()
	oldDir := getConfigDirFunc
	oldPath := getConfigPathFunc
	getConfigDirFunc = func() (string, error) { return dir, nil }
	getConfigPathFunc = func() (string, error) { return path, nil }
	t.Cleanup(func() {
		getConfigDirFunc = oldDir
		getConfigPathFunc = oldPath
	})
}

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
	assert.True(t, strings.HasSuffix(dir, "memoir"))
}

func TestGetConfigPath(t *testing.T) {
	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.True(t, strings.HasSuffix(path, "config.json"))
}

func TestLoadGlobalConfig_FileNotExists(t *testing.T) {
	tmpDir := t.TempDir()
	withConfigPath(t, tmpDir, filepath.Join(tmpDir, "config.json"))

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestLoadGlobalConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	withConfigPath(t, tmpDir, configPath)

	testConfig := GlobalConfig{
		APIKey:     "secret",
		APIURL:     "http://localhost:8080",
		CustomerID: "cust-1",
	}
	data, _ := json.MarshalIndent(testConfig, "", "  ")
	require.NoError(t, os.WriteFile(configPath, data, 0600))

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, testConfig.APIKey, config.APIKey)
	assert.Equal(t, testConfig.APIURL, config.APIURL)
	assert.Equal(t, testConfig.CustomerID, config.CustomerID)
}

func TestLoadGlobalConfig_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	withConfigPath(t, tmpDir, configPath)

	require.NoError(t, os.WriteFile(configPath, []byte("{invalid json}"), 0600))

	config, err := LoadGlobalConfig()
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestSaveGlobalConfig_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, "memoir")
	configPath := filepath.Join(configDir, "config.json")
	withConfigPath(t, configDir, configPath)

	err := SaveGlobalConfig(&GlobalConfig{APIURL: "http://localhost:8080"})
	require.NoError(t, err)

	assert.DirExists(t, configDir)
	assert.FileExists(t, configPath)
}

func TestSaveGlobalConfig_SetCorrectPermissions(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	withConfigPath(t, tmpDir, configPath)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://localhost:8080"}))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSaveGlobalConfig_NilConfig(t *testing.T) {
	err := SaveGlobalConfig(nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config cannot be nil")
}

func TestDeleteGlobalConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	withConfigPath(t, tmpDir, configPath)

	require.NoError(t, os.WriteFile(configPath, []byte("{}"), 0600))
	require.NoError(t, DeleteGlobalConfig())
	assert.NoFileExists(t, configPath)

	// deleting again is a no-op
	require.NoError(t, DeleteGlobalConfig())
}

func TestRoundTrip_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	withConfigPath(t, tmpDir, configPath)

	original := &GlobalConfig{APIKey: "secret", APIURL: "http://localhost:8080", CustomerID: "cust-1"}
	require.NoError(t, SaveGlobalConfig(original))

	loaded, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, original, loaded)
}

func TestDefaultCustomerID_ExplicitWins(t *testing.T) {
	t.Setenv("MEMOIR_CUSTOMER_ID", "from-env")
	assert.Equal(t, "explicit", DefaultCustomerID("explicit"))
}

func TestDefaultCustomerID_EnvFallback(t *testing.T) {
	t.Setenv("MEMOIR_CUSTOMER_ID", "from-env")
	assert.Equal(t, "from-env", DefaultCustomerID(""))
}

func TestDefaultCustomerID_GlobalConfigFallback(t *testing.T) {
	t.Setenv("MEMOIR_CUSTOMER_ID", "")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	withConfigPath(t, tmpDir, configPath)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://x", CustomerID: "from-config"}))
	assert.Equal(t, "from-config", DefaultCustomerID(""))
}

func TestDefaultCustomerID_NothingConfigured(t *testing.T) {
	t.Setenv("MEMOIR_CUSTOMER_ID", "")

	tmpDir := t.TempDir()
	withConfigPath(t, tmpDir, filepath.Join(tmpDir, "config.json"))

	assert.Empty(t, DefaultCustomerID(""))
}
