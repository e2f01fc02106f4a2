// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Werewolf  WerewolfConfig  `mapstructure:"werewolf"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds the result store connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// WerewolfConfig holds the game tunables.
type WerewolfConfig struct {
	TargetPlayers   int            `mapstructure:"target_players"`
	MinPlayers      int            `mapstructure:"min_players"`
	Thresholds      map[string]int `mapstructure:"thresholds"`
	NightDuration   time.Duration  `mapstructure:"night_duration"`
	DiscussDuration time.Duration  `mapstructure:"discuss_duration"`
	VoteDuration    time.Duration  `mapstructure:"vote_duration"`
	TriggerWindow   time.Duration  `mapstructure:"trigger_window"`
	LobbyDuration   time.Duration  `mapstructure:"lobby_duration"`
	BotLead         time.Duration  `mapstructure:"bot_lead"`
	LockTimeout     time.Duration  `mapstructure:"lock_timeout"`
	TieBreak        string         `mapstructure:"tie_break"`
	QuorumRatio     float64        `mapstructure:"quorum_ratio"`
	Seed            int64          `mapstructure:"seed"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_DRIVER, WEREWOLF_NIGHT_DURATION
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	switch cfg.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "werewolf")
	v.SetDefault("database.name", "werewolf")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.sqlite_path", "data/werewolf.sqlite")

	v.SetDefault("werewolf.target_players", 8)
	v.SetDefault("werewolf.min_players", 5)
	v.SetDefault("werewolf.night_duration", "90s")
	v.SetDefault("werewolf.discuss_duration", "120s")
	v.SetDefault("werewolf.vote_duration", "60s")
	v.SetDefault("werewolf.trigger_window", "30s")
	v.SetDefault("werewolf.lobby_duration", "10s")
	v.SetDefault("werewolf.bot_lead", "10s")
	v.SetDefault("werewolf.lock_timeout", "5s")
	v.SetDefault("werewolf.tie_break", "none")
	v.SetDefault("werewolf.quorum_ratio", 0.5)
	v.SetDefault("werewolf.seed", 0)
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
