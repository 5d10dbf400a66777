package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Live      LiveConfig      `yaml:"live"`
	Match     MatchConfig     `yaml:"match"`
	Access    AccessConfig    `yaml:"access"`
	Assistant AssistantConfig `yaml:"assistant"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel returns the slog level for the configured name
func (c *LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Store drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// ConnectionString returns the PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode,
	)
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	ViewTTL      time.Duration `yaml:"view_ttl"`
}

// KafkaConfig holds Kafka connection configuration
type KafkaConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Brokers       []string      `yaml:"brokers"`
	EventsTopic   string        `yaml:"events_topic"`
	CommandsTopic string        `yaml:"commands_topic"`
	GroupID       string        `yaml:"group_id"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	HandleTimeout time.Duration `yaml:"handle_timeout"`
	ReadyTimeout  time.Duration `yaml:"ready_timeout"`
}

// LiveConfig holds the live match refresher configuration
type LiveConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Limit    int           `yaml:"limit"`
}

// MatchConfig holds match rules and fairness policy
type MatchConfig struct {
	DefaultQuarterCount      int     `yaml:"default_quarter_count"`
	CodeAttempts             int     `yaml:"code_attempts"`
	FairnessToleranceMinutes float64 `yaml:"fairness_tolerance_minutes"`
	SuggestionLimit          int     `yaml:"suggestion_limit"`
	// OwnGoalCreditsOpponent switches own goals to the opponent's side of
	// the scoreboard. Off keeps the tracked team's bucket.
	OwnGoalCreditsOpponent bool `yaml:"own_goal_credits_opponent"`
	CoachMatchesLimit      int  `yaml:"coach_matches_limit"`
}

// AccessConfig holds credential settings
type AccessConfig struct {
	AdminPIN string `yaml:"admin_pin"`
}

// AssistantConfig bounds the conversational adapter. The server only
// exposes single tool calls; MaxRounds applies to programs that embed an
// assistant.Runner with their own model.
type AssistantConfig struct {
	MaxRounds int `yaml:"max_rounds"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if q := c.Match.DefaultQuarterCount; q != 2 && q != 4 {
		return fmt.Errorf("default_quarter_count must be 2 or 4, got %d", q)
	}
	return nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	// Store defaults
	if c.Store.Driver == "" {
		c.Store.Driver = DriverPostgres
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "scoreboard.db"
	}

	// PostgreSQL defaults
	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.Database == "" {
		c.Postgres.Database = "scoreboard"
	}
	if c.Postgres.MaxConnections == 0 {
		c.Postgres.MaxConnections = 20
	}
	if c.Postgres.MinConnections == 0 {
		c.Postgres.MinConnections = 2
	}
	if c.Postgres.MaxConnLifetime == 0 {
		c.Postgres.MaxConnLifetime = 1 * time.Hour
	}
	if c.Postgres.MaxConnIdleTime == 0 {
		c.Postgres.MaxConnIdleTime = 30 * time.Minute
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 20
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 2
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}
	if c.Redis.ViewTTL == 0 {
		c.Redis.ViewTTL = 10 * time.Minute
	}

	// Kafka defaults
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.EventsTopic == "" {
		c.Kafka.EventsTopic = "match-events"
	}
	if c.Kafka.CommandsTopic == "" {
		c.Kafka.CommandsTopic = "match-commands"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "scoreboard-commands"
	}
	if c.Kafka.RetryAttempts == 0 {
		c.Kafka.RetryAttempts = 3
	}
	if c.Kafka.RetryDelay == 0 {
		c.Kafka.RetryDelay = 1 * time.Second
	}
	if c.Kafka.HandleTimeout == 0 {
		c.Kafka.HandleTimeout = 10 * time.Second
	}
	if c.Kafka.ReadyTimeout == 0 {
		c.Kafka.ReadyTimeout = 30 * time.Second
	}

	// Live refresher defaults
	if c.Live.Interval == 0 {
		c.Live.Interval = 15 * time.Second
	}
	if c.Live.Limit == 0 {
		c.Live.Limit = 500
	}

	// Match defaults
	if c.Match.DefaultQuarterCount == 0 {
		c.Match.DefaultQuarterCount = 4
	}
	if c.Match.CodeAttempts == 0 {
		c.Match.CodeAttempts = 20
	}
	if c.Match.FairnessToleranceMinutes == 0 {
		c.Match.FairnessToleranceMinutes = 3
	}
	if c.Match.SuggestionLimit == 0 {
		c.Match.SuggestionLimit = 3
	}
	if c.Match.CoachMatchesLimit == 0 {
		c.Match.CoachMatchesLimit = 50
	}

	if c.Assistant.MaxRounds == 0 {
		c.Assistant.MaxRounds = 5
	}
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Store.Driver = DriverMemory
	cfg.applyDefaults()
	cfg.Live.Enabled = true
	return cfg
}
