package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config represents the emucfg configuration
type Config struct {
	Emulator Emulator  `mapstructure:"emulator"`
	Software Software  `mapstructure:"software"`
	Log      LogConfig `mapstructure:"log"`
}

// Emulator describes how the emulator binary is invoked
type Emulator struct {
	Binary        string   `mapstructure:"binary"`
	WorkingDir    string   `mapstructure:"working_dir"`
	ListXMLFlag   string   `mapstructure:"listxml_flag"`
	LegacyDevices bool     `mapstructure:"legacy_devices"`
	ExtraArgs     []string `mapstructure:"extra_args"`
}

// Software lists the interfaces provided by known software lists
type Software struct {
	Known map[string][]string `mapstructure:"known"`
}

// LogConfig controls the process logger
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load loads the configuration from path, or from ~/.emucfg/config.yaml when
// path is empty. A missing default config file yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(expanded)
	} else {
		configDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
	}

	v.SetEnvPrefix("EMUCFG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Try to read config file, but don't fail if the default one doesn't exist
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Emulator.Binary = expandPath(cfg.Emulator.Binary)
	cfg.Emulator.WorkingDir = expandPath(cfg.Emulator.WorkingDir)
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("emulator.binary", "mame")
	v.SetDefault("emulator.working_dir", "")
	v.SetDefault("emulator.listxml_flag", "-listxml")
	v.SetDefault("emulator.legacy_devices", false)
	v.SetDefault("emulator.extra_args", []string{})

	v.SetDefault("software.known", map[string][]string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// expandPath expands a leading ~ to the home directory
func expandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		// If expansion fails, use original path
		return path
	}
	return expanded
}

// ConfigDir returns the emucfg configuration directory path
func ConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".emucfg"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	configDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(configDir, 0755)
}
