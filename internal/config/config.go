package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Profile  ProfileConfig  `mapstructure:"profile"`
	Database DatabaseConfig `mapstructure:"database"`
	Engine   EngineConfig   `mapstructure:"engine"`
	UI       UIConfig       `mapstructure:"ui"`
	Log      LogConfig      `mapstructure:"log"`
}

// ProfileConfig is the bundled connection profile: where the engine
// deployment lives plus its opaque profile credential.
type ProfileConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	ProfileID string `mapstructure:"profile_id"`
}

// DatabaseConfig holds sqlite settings for the bundled engine.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// EngineConfig tunes the bundled engine's demo behavior.
type EngineConfig struct {
	DemoUser            string `mapstructure:"demo_user"`
	UserAttempts        int    `mapstructure:"user_attempts"`
	ActivationAttempts  int    `mapstructure:"activation_attempts"`
	ActivationTTLMin    int    `mapstructure:"activation_ttl_min"`
	PasswordAttempts    int    `mapstructure:"password_attempts"`
	CooldownSeconds     int    `mapstructure:"cooldown_seconds"`
	PasswordTTLDays     int    `mapstructure:"password_ttl_days"`
	SessionTTLMin       int    `mapstructure:"session_ttl_min"`
	MinPasswordDistance int    `mapstructure:"min_password_distance"`
	SeedNotifications   bool   `mapstructure:"seed_notifications"`
	SimulateThreats     bool   `mapstructure:"simulate_threats"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	InitTimeoutSeconds int `mapstructure:"init_timeout_seconds"`
}

// LogConfig holds file logging settings. Stdout belongs to the TUI.
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

// Load reads configuration from file and env. Env var overrides use prefix CODELAB_.
func Load() (Config, error) {
	v := viper.New()

	dataDir := filepath.Join(os.Getenv("HOME"), ".local", "share", "codelab")

	// default values
	v.SetDefault("profile.host", "gateway.demo.local")
	v.SetDefault("profile.port", 443)
	v.SetDefault("profile.profile_id", "RELDEMO01")
	v.SetDefault("database.path", filepath.Join(dataDir, "engine.db"))
	v.SetDefault("engine.demo_user", "alice")
	v.SetDefault("engine.user_attempts", 3)
	v.SetDefault("engine.activation_attempts", 3)
	v.SetDefault("engine.activation_ttl_min", 10)
	v.SetDefault("engine.password_attempts", 3)
	v.SetDefault("engine.cooldown_seconds", 60)
	v.SetDefault("engine.password_ttl_days", 90)
	v.SetDefault("engine.session_ttl_min", 30)
	v.SetDefault("engine.min_password_distance", 3)
	v.SetDefault("engine.seed_notifications", true)
	v.SetDefault("engine.simulate_threats", false)
	v.SetDefault("ui.init_timeout_seconds", 15)
	v.SetDefault("log.path", filepath.Join(dataDir, "codelab.log"))
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("CODELAB_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "codelab"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("CODELAB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Path returns the config file location, honoring CODELAB_CONFIG.
func Path() string {
	if p := os.Getenv("CODELAB_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "codelab", "config.toml")
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("profile.host", cfg.Profile.Host)
	v.Set("profile.port", cfg.Profile.Port)
	v.Set("profile.profile_id", cfg.Profile.ProfileID)
	v.Set("database.path", cfg.Database.Path)
	v.Set("engine.demo_user", cfg.Engine.DemoUser)
	v.Set("engine.user_attempts", cfg.Engine.UserAttempts)
	v.Set("engine.activation_attempts", cfg.Engine.ActivationAttempts)
	v.Set("engine.activation_ttl_min", cfg.Engine.ActivationTTLMin)
	v.Set("engine.password_attempts", cfg.Engine.PasswordAttempts)
	v.Set("engine.cooldown_seconds", cfg.Engine.CooldownSeconds)
	v.Set("engine.password_ttl_days", cfg.Engine.PasswordTTLDays)
	v.Set("engine.session_ttl_min", cfg.Engine.SessionTTLMin)
	v.Set("engine.min_password_distance", cfg.Engine.MinPasswordDistance)
	v.Set("engine.seed_notifications", cfg.Engine.SeedNotifications)
	v.Set("engine.simulate_threats", cfg.Engine.SimulateThreats)
	v.Set("ui.init_timeout_seconds", cfg.UI.InitTimeoutSeconds)
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.level", cfg.Log.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
