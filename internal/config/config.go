package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/limitwatch/internal/domain/project"
	domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"
)

// Config holds the limitwatch configuration.
type Config struct {
	HTTP     HTTPConfig               `yaml:"http"`
	Database DatabaseConfig           `yaml:"database"`
	Telegram TelegramConfig           `yaml:"telegram"`
	Auth     AuthConfig               `yaml:"auth"`
	Quota    QuotaConfig              `yaml:"quota"`
	Projects map[string]ProjectConfig `yaml:"projects"`
	// AllowedUsers is the legacy single-project mode: a comma-separated list of
	// user ids that administer the flat chat_limit/chat_count keys.
	AllowedUsers string        `yaml:"allowed_users"`
	Logging      LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File       string `yaml:"file"`  // rotating log file, empty = console only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	OpTimeoutMs      int      `yaml:"op_timeout_ms"`
}

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	Token             string `yaml:"token"`
	APIURL            string `yaml:"api_url"`
	PollTimeoutSec    int    `yaml:"poll_timeout_sec"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
}

// QuotaConfig holds warning monitor settings.
type QuotaConfig struct {
	WarningThreshold int64 `yaml:"warning_threshold"`
	CheckIntervalSec int   `yaml:"check_interval_sec"`
}

// ProjectConfig describes one quota-tracked project.
type ProjectConfig struct {
	Name       string  `yaml:"name"`
	Admins     []int64 `yaml:"admins"`
	Clients    []int64 `yaml:"clients"`
	LegacyKeys bool    `yaml:"legacy_keys"`
}

// LegacyProjectID is the id given to the project built from allowed_users.
const LegacyProjectID = "legacy"

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from a YAML file.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.OpTimeoutMs <= 0 {
		c.Database.OpTimeoutMs = 3000
	}
	if c.Telegram.PollTimeoutSec <= 0 {
		c.Telegram.PollTimeoutSec = 30
	}
	if c.Telegram.RequestTimeoutSec <= 0 {
		c.Telegram.RequestTimeoutSec = 10
	}
	if c.Quota.WarningThreshold <= 0 {
		c.Quota.WarningThreshold = domquota.DefaultWarningThreshold
	}
	if c.Quota.CheckIntervalSec <= 0 {
		c.Quota.CheckIntervalSec = 3600
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 5
	}
	if c.Logging.MaxBackups <= 0 {
		c.Logging.MaxBackups = 3
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if _, err := c.legacyUsers(); err != nil {
		return err
	}
	if len(c.Projects) == 0 && strings.TrimSpace(c.AllowedUsers) == "" {
		return fmt.Errorf("at least one project or allowed_users is required")
	}
	if _, err := c.Registry(); err != nil {
		return fmt.Errorf("projects: %w", err)
	}
	return nil
}

// Registry builds the project registry. allowed_users becomes a project with
// legacy keys in which every listed user is an admin.
func (c *Config) Registry() (*project.Registry, error) {
	projects := make([]project.Project, 0, len(c.Projects)+1)
	for _, id := range slices.Sorted(maps.Keys(c.Projects)) {
		p := c.Projects[id]
		projects = append(projects, project.New(id, p.Name, p.Admins, p.Clients, p.LegacyKeys))
	}

	users, err := c.legacyUsers()
	if err != nil {
		return nil, err
	}
	if len(users) > 0 {
		projects = append(projects, project.New(LegacyProjectID, "", users, nil, true))
	}
	return project.NewRegistry(projects...)
}

func (c *Config) legacyUsers() ([]int64, error) {
	var users []int64
	for _, raw := range strings.Split(c.AllowedUsers, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("allowed_users: invalid user id %q", raw)
		}
		users = append(users, id)
	}
	return users, nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
