package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Battle      BattleConfig      `mapstructure:"battle"`
	Agents      AgentsConfig      `mapstructure:"agents"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// BattleConfig holds the limits enforced when creating battles
type BattleConfig struct {
	MaxRows   int `mapstructure:"max_rows"`
	MaxCols   int `mapstructure:"max_cols"`
	MaxMines  int `mapstructure:"max_mines"`
	MaxAgents int `mapstructure:"max_agents"`
}

// AgentsConfig holds settings for the agent backends
type AgentsConfig struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// OpenAIConfig holds the OpenAI-compatible chat API settings
type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	Temperature    float32 `mapstructure:"temperature"`
	RequestTimeout int     `mapstructure:"request_timeout"`
}

// PersistenceConfig holds replay storage configuration
type PersistenceConfig struct {
	Backend string      `mapstructure:"backend"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

var (
	// Global config instance
	cfg *Config
	v   *viper.Viper
)

// setViperDefaults sets all default values using Viper's SetDefault
func setViperDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "console")

	// Battle limit defaults
	v.SetDefault("battle.max_rows", 30)
	v.SetDefault("battle.max_cols", 30)
	v.SetDefault("battle.max_mines", 200)
	v.SetDefault("battle.max_agents", 10)

	// Agent defaults
	v.SetDefault("agents.openai.api_key", "")
	v.SetDefault("agents.openai.base_url", "")
	v.SetDefault("agents.openai.model", "gpt-4o-mini")
	v.SetDefault("agents.openai.temperature", 0.2)
	v.SetDefault("agents.openai.request_timeout", 60)

	// Persistence defaults
	v.SetDefault("persistence.backend", "none")
	v.SetDefault("persistence.redis.addr", "localhost:6379")
	v.SetDefault("persistence.redis.password", "")
	v.SetDefault("persistence.redis.db", 0)
}

// Init initializes the configuration
func Init(configPath string) error {
	v = viper.New()

	// Set defaults before loading any config
	setViperDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/minearena")
	}

	// Set environment variable prefix
	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// If we have a specific config path and it doesn't exist, that's ok - use defaults
		if configPath != "" {
			// Specific file requested but not found - that's ok, use defaults
		} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// For default locations, only ignore ConfigFileNotFoundError
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults
	}

	// Unmarshal into config struct
	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// Validate configuration
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		// Initialize with defaults if not already initialized
		if err := Init(""); err != nil {
			panic("failed to initialize config with defaults: " + err.Error())
		}
	}
	return cfg
}

// GetViper returns the viper instance for advanced usage
func GetViper() *viper.Viper {
	if v == nil {
		panic("config not initialized - call Init() first")
	}
	return v
}

// LoadEnvironmentConfig loads environment-specific config overlay
func LoadEnvironmentConfig(env string) error {
	if env == "" {
		return nil
	}

	envFile := fmt.Sprintf("config.%s.yaml", env)

	// Try to find environment-specific config
	v.SetConfigFile(envFile)
	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error merging environment config %s: %w", envFile, err)
		}
	}

	// Re-unmarshal with merged config
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to decode merged config into struct: %w", err)
	}

	return nil
}

// Set allows runtime config updates
func Set(key string, value interface{}) {
	v.Set(key, value)
	// Re-unmarshal to update struct
	v.Unmarshal(cfg)
}

// GetString gets a string value from config
func GetString(key string) string {
	return v.GetString(key)
}

// GetInt gets an int value from config
func GetInt(key string) int {
	return v.GetInt(key)
}

// GetBool gets a bool value from config
func GetBool(key string) bool {
	return v.GetBool(key)
}

// ConfigFilePath returns the path of the loaded config file
func ConfigFilePath() string {
	return v.ConfigFileUsed()
}

// WatchConfig enables hot-reloading of config file
func WatchConfig(onChange func()) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		// Re-unmarshal on change
		v.Unmarshal(cfg)
		if onChange != nil {
			onChange()
		}
	})
}

// Validate validates the configuration values
func Validate(c *Config) error {
	// Validate server configuration
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	// Validate battle limits
	if c.Battle.MaxRows < 1 {
		return fmt.Errorf("battle.max_rows must be positive")
	}
	if c.Battle.MaxCols < 1 {
		return fmt.Errorf("battle.max_cols must be positive")
	}
	if c.Battle.MaxMines < 1 {
		return fmt.Errorf("battle.max_mines must be positive")
	}
	if c.Battle.MaxAgents < 1 {
		return fmt.Errorf("battle.max_agents must be positive")
	}

	// Validate agent configuration
	if c.Agents.OpenAI.Temperature < 0 || c.Agents.OpenAI.Temperature > 2 {
		return fmt.Errorf("agents.openai.temperature must be between 0 and 2")
	}
	if c.Agents.OpenAI.RequestTimeout <= 0 {
		return fmt.Errorf("agents.openai.request_timeout must be positive")
	}

	// Validate persistence configuration
	switch c.Persistence.Backend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("persistence.backend must be one of none, memory, redis")
	}
	if c.Persistence.Redis.DB < 0 {
		return fmt.Errorf("persistence.redis.db must be non-negative")
	}

	return nil
}
