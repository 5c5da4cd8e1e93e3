package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	// An empty file leaves every default in place
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "mame", cfg.Emulator.Binary)
	assert.Equal(t, "", cfg.Emulator.WorkingDir)
	assert.Equal(t, "-listxml", cfg.Emulator.ListXMLFlag)
	assert.False(t, cfg.Emulator.LegacyDevices)
	assert.Empty(t, cfg.Emulator.ExtraArgs)
	assert.Empty(t, cfg.Software.Known)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "", cfg.Log.File)
}

func TestLoadFile(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	path := writeConfig(t, `
emulator:
  binary: /opt/mame/mame64
  working_dir: ~/mame
  listxml_flag: -lx
  legacy_devices: true
  extra_args: ["-skip_gameinfo", "-window"]
software:
  known:
    apple2_flop_orig: [floppy_5_25]
    apple2_cass: [apple2_cass, cassette]
log:
  level: DEBUG
  file: ~/emucfg.log
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/mame/mame64", cfg.Emulator.Binary)
	assert.Equal(t, filepath.Join(home, "mame"), cfg.Emulator.WorkingDir)
	assert.Equal(t, "-lx", cfg.Emulator.ListXMLFlag)
	assert.True(t, cfg.Emulator.LegacyDevices)
	assert.Equal(t, []string{"-skip_gameinfo", "-window"}, cfg.Emulator.ExtraArgs)
	assert.Equal(t, []string{"floppy_5_25"}, cfg.Software.Known["apple2_flop_orig"])
	assert.Equal(t, []string{"apple2_cass", "cassette"}, cfg.Software.Known["apple2_cass"])
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, filepath.Join(home, "emucfg.log"), cfg.Log.File)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := Load(writeConfig(t, "emulator: [unterminated"))
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("EMUCFG_EMULATOR_BINARY", "/usr/games/mame")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "/usr/games/mame", cfg.Emulator.Binary)
}

func TestExpandPath(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "home relative", input: "~/mame", expected: filepath.Join(home, "mame")},
		{name: "absolute", input: "/usr/bin/mame", expected: "/usr/bin/mame"},
		{name: "bare name", input: "mame", expected: "mame"},
		{name: "empty", input: "", expected: ""},
		{name: "other user is left alone", input: "~bob/mame", expected: "~bob/mame"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandPath(tt.input))
		})
	}
}

func TestConfigDir(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	configDir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".emucfg"), configDir)
}

func TestEnsureConfigDir(t *testing.T) {
	// Just verify that EnsureConfigDir doesn't error
	// homedir caches the home directory, so the real one is used
	err := EnsureConfigDir()
	require.NoError(t, err)

	configDir, err := ConfigDir()
	require.NoError(t, err)

	stat, err := os.Stat(configDir)
	require.NoError(t, err)
	assert.True(t, stat.IsDir())
}
