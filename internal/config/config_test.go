package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9000
  log_level: debug
battle:
  max_rows: 16
  max_agents: 4
agents:
  openai:
    model: gpt-4o
    request_timeout: 30
persistence:
  backend: redis
  redis:
    addr: redis.internal:6379
    db: 2
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	// Reset global state
	cfg = nil
	v = nil

	// Initialize config
	err = Init(configFile)
	require.NoError(t, err)

	// Test loaded values
	c := Get()
	assert.Equal(t, 9000, c.Server.Port)
	assert.Equal(t, "debug", c.Server.LogLevel)
	assert.Equal(t, 16, c.Battle.MaxRows)
	assert.Equal(t, 4, c.Battle.MaxAgents)
	assert.Equal(t, "gpt-4o", c.Agents.OpenAI.Model)
	assert.Equal(t, 30, c.Agents.OpenAI.RequestTimeout)
	assert.Equal(t, "redis", c.Persistence.Backend)
	assert.Equal(t, "redis.internal:6379", c.Persistence.Redis.Addr)
	assert.Equal(t, 2, c.Persistence.Redis.DB)

	// Untouched keys keep their defaults
	assert.Equal(t, 30, c.Battle.MaxCols)
	assert.Equal(t, 200, c.Battle.MaxMines)
}

func TestInitWithDefaults(t *testing.T) {
	// Reset global state
	cfg = nil
	v = nil

	// Initialize with non-existent config (should use defaults)
	err := Init("/non/existent/path/config.yaml")
	require.NoError(t, err)

	c := Get()
	assert.Equal(t, "0.0.0.0", c.Server.Host)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 30, c.Battle.MaxRows)
	assert.Equal(t, 30, c.Battle.MaxCols)
	assert.Equal(t, 200, c.Battle.MaxMines)
	assert.Equal(t, 10, c.Battle.MaxAgents)
	assert.Equal(t, "gpt-4o-mini", c.Agents.OpenAI.Model)
	assert.Equal(t, "none", c.Persistence.Backend)
}

func TestEnvironmentVariables(t *testing.T) {
	// Reset global state
	cfg = nil
	v = nil

	// Set environment variables
	os.Setenv("ARENA_SERVER_PORT", "9090")
	os.Setenv("ARENA_BATTLE_MAX_AGENTS", "3")
	os.Setenv("ARENA_PERSISTENCE_BACKEND", "memory")
	defer os.Unsetenv("ARENA_SERVER_PORT")
	defer os.Unsetenv("ARENA_BATTLE_MAX_AGENTS")
	defer os.Unsetenv("ARENA_PERSISTENCE_BACKEND")

	// Initialize config
	err := Init("")
	require.NoError(t, err)

	// Environment variables should override
	c := Get()
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 3, c.Battle.MaxAgents)
	assert.Equal(t, "memory", c.Persistence.Backend)
}

func TestSet(t *testing.T) {
	// Reset global state
	cfg = nil
	v = nil

	// Initialize config
	err := Init("")
	require.NoError(t, err)

	// Set values
	Set("battle.max_mines", 150)
	Set("server.log_format", "json")

	// Check updated values
	c := Get()
	assert.Equal(t, 150, c.Battle.MaxMines)
	assert.Equal(t, "json", c.Server.LogFormat)
}

func TestGetHelpers(t *testing.T) {
	// Reset global state
	cfg = nil
	v = nil

	// Initialize config
	err := Init("")
	require.NoError(t, err)

	// Set some values
	Set("test.string", "hello")
	Set("test.int", 42)
	Set("test.bool", true)

	// Test getters
	assert.Equal(t, "hello", GetString("test.string"))
	assert.Equal(t, 42, GetInt("test.int"))
	assert.Equal(t, true, GetBool("test.bool"))
}

func TestLoadEnvironmentConfig(t *testing.T) {
	// Create temporary config files
	tmpDir := t.TempDir()

	// Base config
	baseConfig := filepath.Join(tmpDir, "config.yaml")
	baseContent := `
server:
  port: 8080
battle:
  max_rows: 20
`
	err := os.WriteFile(baseConfig, []byte(baseContent), 0644)
	require.NoError(t, err)

	// Environment-specific config
	envConfig := filepath.Join(tmpDir, "config.prod.yaml")
	envContent := `
server:
  port: 80
  log_level: "error"
battle:
  max_rows: 30
`
	err = os.WriteFile(envConfig, []byte(envContent), 0644)
	require.NoError(t, err)

	// Change to temp directory
	oldWd, _ := os.Getwd()
	_ = os.Chdir(tmpDir)
	defer func() { _ = os.Chdir(oldWd) }()

	// Reset global state
	cfg = nil
	v = nil

	// Initialize base config
	err = Init(baseConfig)
	require.NoError(t, err)

	// Load environment config
	err = LoadEnvironmentConfig("prod")
	require.NoError(t, err)

	// Check merged values
	c := Get()
	assert.Equal(t, 80, c.Server.Port)          // Overridden
	assert.Equal(t, "error", c.Server.LogLevel) // New value
	assert.Equal(t, 30, c.Battle.MaxRows)       // Overridden
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080, LogLevel: "info", LogFormat: "console"},
		Battle: BattleConfig{MaxRows: 30, MaxCols: 30, MaxMines: 200, MaxAgents: 10},
		Agents: AgentsConfig{OpenAI: OpenAIConfig{Model: "gpt-4o-mini", Temperature: 0.2, RequestTimeout: 60}},
		Persistence: PersistenceConfig{
			Backend: "none",
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(validConfig()))

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"huge port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"zero max rows", func(c *Config) { c.Battle.MaxRows = 0 }, "battle.max_rows"},
		{"zero max cols", func(c *Config) { c.Battle.MaxCols = 0 }, "battle.max_cols"},
		{"zero max mines", func(c *Config) { c.Battle.MaxMines = 0 }, "battle.max_mines"},
		{"zero max agents", func(c *Config) { c.Battle.MaxAgents = 0 }, "battle.max_agents"},
		{"temperature too high", func(c *Config) { c.Agents.OpenAI.Temperature = 2.5 }, "agents.openai.temperature"},
		{"zero timeout", func(c *Config) { c.Agents.OpenAI.RequestTimeout = 0 }, "agents.openai.request_timeout"},
		{"unknown backend", func(c *Config) { c.Persistence.Backend = "postgres" }, "persistence.backend"},
		{"negative redis db", func(c *Config) { c.Persistence.Redis.DB = -1 }, "persistence.redis.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := Validate(c)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
