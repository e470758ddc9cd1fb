package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/processflow/internal/ipc"
	"github.com/mesh-intelligence/processflow/internal/logging"
	"github.com/mesh-intelligence/processflow/internal/paths"
	"github.com/mesh-intelligence/processflow/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "PROCESSFLOW"

	cfgKeyDataDir      = "data_dir"
	cfgKeyLogLevel     = "log_level"
	cfgKeyLogFormat    = "log_format"
	cfgKeyLogFile      = "log_file"
	cfgKeyListenAddr   = "listen_addr"
	cfgKeyMediaDirName = "media_dir_name"
)

// runtimeConfig is config.yaml after defaults and environment overrides.
type runtimeConfig struct {
	DataDir      string `yaml:"data_dir" mapstructure:"data_dir"`
	LogLevel     string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat    string `yaml:"log_format" mapstructure:"log_format"`
	LogFile      string `yaml:"log_file" mapstructure:"log_file"`
	ListenAddr   string `yaml:"listen_addr" mapstructure:"listen_addr"`
	MediaDirName string `yaml:"media_dir_name" mapstructure:"media_dir_name"`
}

func defaultConfig() runtimeConfig {
	return runtimeConfig{
		LogLevel:     "info",
		LogFormat:    logging.FormatConsole,
		ListenAddr:   ipc.DefaultListenAddr,
		MediaDirName: types.DefaultMediaDirName,
	}
}

// loadConfig reads config.yaml from configDir using Viper, creating the
// directory and a default file on first run. PROCESSFLOW_* variables
// override file values for every key except data_dir, whose precedence
// is owned by paths.ResolveDataDir.
func loadConfig(configDir string) (runtimeConfig, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return runtimeConfig{}, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := writeConfigIfMissing(paths.ConfigFile(configDir)); err != nil {
		return runtimeConfig{}, fmt.Errorf("ensure default config: %w", err)
	}

	def := defaultConfig()
	v := viper.New()
	v.SetDefault(cfgKeyLogLevel, def.LogLevel)
	v.SetDefault(cfgKeyLogFormat, def.LogFormat)
	v.SetDefault(cfgKeyListenAddr, def.ListenAddr)
	v.SetDefault(cfgKeyMediaDirName, def.MediaDirName)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{cfgKeyLogLevel, cfgKeyLogFormat, cfgKeyLogFile, cfgKeyListenAddr, cfgKeyMediaDirName} {
		if err := v.BindEnv(key); err != nil {
			return runtimeConfig{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return runtimeConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg runtimeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return runtimeConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// writeConfigIfMissing writes the default config.yaml unless path exists.
func writeConfigIfMissing(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(defaultConfig())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := "# processflow configuration. An empty data_dir uses the per-user data directory.\n"
	return os.WriteFile(path, append([]byte(header), data...), 0o644)
}
