package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Answering modes.
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
	ModeOpenAI = "openai"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// EnvPrefix is prepended to every environment override, e.g. UNICHAT_CHAT_MODE.
const EnvPrefix = "UNICHAT"

// Config holds the application configuration
type Config struct {
	Chat    ChatConfig    `mapstructure:"chat"`
	Remote  RemoteConfig  `mapstructure:"remote"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

// ChatConfig selects how questions get answered.
type ChatConfig struct {
	Mode string `mapstructure:"mode"`
	// LocalFallback answers from the keyword table when the remote or LLM
	// answerer fails. Off by default: failures produce the apology message.
	LocalFallback bool   `mapstructure:"local_fallback"`
	ResponsesFile string `mapstructure:"responses_file"`
}

// RemoteConfig holds the remote answer endpoint configuration
type RemoteConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LLMConfig holds the LLM configuration
type LLMConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

// StorageConfig holds the session persistence configuration
type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	Path        string `mapstructure:"path"`
	RedisURL    string `mapstructure:"redis_url"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chat.mode", ModeRemote)
	v.SetDefault("chat.local_fallback", false)
	v.SetDefault("chat.responses_file", "")
	v.SetDefault("remote.endpoint", "http://localhost:8000/api/ask")
	v.SetDefault("remote.timeout", 30*time.Second)
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.system_prompt", "")
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.path", "history.db")
	v.SetDefault("storage.redis_url", "redis://localhost:6379/0")
	v.SetDefault("storage.redis_prefix", "unichat:")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// flagKeys maps command-line flags to the config keys they override.
var flagKeys = map[string]string{
	"mode":      "chat.mode",
	"log-level": "log.level",
}

// RegisterFlags adds the flags that LoadWithFlags understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("mode", "", "answer mode: remote, local or openai")
	fs.String("log-level", "", "log level: debug, info, warn or error")
}

// Load loads the configuration. The file is taken from path, then from
// CONFIG_PATH, then config.yaml in the working directory. A missing default
// config.yaml is not an error; defaults and UNICHAT_* variables still apply.
func Load(path string) (*Config, error) {
	return LoadWithFlags(path, nil)
}

// LoadWithFlags is Load with flags set on the command line taking precedence
// over the file and the environment. Validation sees the overridden values.
func LoadWithFlags(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks that the selected mode and driver have what they need.
func (c *Config) Validate() error {
	switch c.Chat.Mode {
	case ModeRemote:
		if c.Remote.Endpoint == "" {
			return fmt.Errorf("remote.endpoint cannot be empty in %s mode", ModeRemote)
		}
		if c.Remote.Timeout <= 0 {
			return fmt.Errorf("remote.timeout must be > 0")
		}
	case ModeLocal:
	case ModeOpenAI:
		if c.LLM.Model == "" {
			return fmt.Errorf("llm.model cannot be empty in %s mode", ModeOpenAI)
		}
	default:
		return fmt.Errorf("unsupported chat.mode %q (want %s, %s or %s)", c.Chat.Mode, ModeRemote, ModeLocal, ModeOpenAI)
	}

	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path cannot be empty for the %s driver", DriverSQLite)
		}
	case DriverRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage.redis_url cannot be empty for the %s driver", DriverRedis)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported storage.driver %q", c.Storage.Driver)
	}

	return nil
}
