package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the bot. It is assembled once at
// startup from config.yaml, the per-module files under config/, and
// environment variables for secrets.
type Config struct {
	Discord      DiscordConfig      `mapstructure:"discord"`
	LogLevel     string             `mapstructure:"log_level"`
	Verification VerificationConfig `mapstructure:"verification"`
	Forums       ForumsConfig       `mapstructure:"forums"`
}

// DiscordConfig holds the connection settings for the Discord session.
type DiscordConfig struct {
	Token         string `mapstructure:"-"`
	ApplicationID string `mapstructure:"application_id"`
}

// VerificationConfig is the typed namespace for the verification module.
type VerificationConfig struct {
	API       RegistryConfig          `mapstructure:"api"`
	Spigot    SpigotConfig            `mapstructure:"spigot"`
	Polymart  PolymartConfig          `mapstructure:"polymart"`
	Roles     RolesConfig             `mapstructure:"roles"`
	Plugins   map[string]PluginConfig `mapstructure:"plugins"`
	Channels  ChannelsConfig          `mapstructure:"channels"`
	UI        UIConfig                `mapstructure:"ui"`
	Platforms []PlatformConfig        `mapstructure:"platforms"`
}

// RegistryConfig configures the internal verification registry API.
type RegistryConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"-"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SpigotConfig configures the two Spigot-side marketplace APIs.
type SpigotConfig struct {
	SpigotBase     string `mapstructure:"spigot_base"`
	SpigetBase     string `mapstructure:"spiget_base"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PolymartConfig configures the Polymart API.
type PolymartConfig struct {
	Base           string `mapstructure:"base"`
	APIKey         string `mapstructure:"-"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// RolesConfig maps verification outcomes to role IDs.
type RolesConfig struct {
	Buyer string `mapstructure:"buyer"`
}

// PluginConfig describes one purchasable resource recognized by the bot.
type PluginConfig struct {
	Name           string `mapstructure:"name"`
	Role           string `mapstructure:"role"`
	Emoji          string `mapstructure:"emoji"`
	PolymartID     string `mapstructure:"polymart_id"`
	PolymartAPIKey string `mapstructure:"polymart_api_key"`
}

// ChannelsConfig holds the channel and staff role IDs used by the flows.
type ChannelsConfig struct {
	VerificationChannel string `mapstructure:"verification_channel"`
	StaffChannel        string `mapstructure:"staff_channel"`
	StaffRole           string `mapstructure:"staff_role"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	TTL TTLConfig `mapstructure:"ttl"`
}

// TTLConfig holds the lifetimes (in seconds) for ephemeral UI messages.
type TTLConfig struct {
	PanelDefault int `mapstructure:"panel_default"`
	PanelShort   int `mapstructure:"panel_short"`
	ErrorShort   int `mapstructure:"error_short"`
	ErrorMedium  int `mapstructure:"error_medium"`
	Warning      int `mapstructure:"warning"`
	Success      int `mapstructure:"success"`
	LinkThread   int `mapstructure:"link_thread"`
	AdminError   int `mapstructure:"admin_error"`
}

// PlatformConfig describes one platform button on the verification panel.
type PlatformConfig struct {
	Key      string `mapstructure:"key"`
	Name     string `mapstructure:"name"`
	Emoji    string `mapstructure:"emoji"`
	BtnColor string `mapstructure:"btn_color"`
}

// ForumsConfig is the typed namespace for the forums module.
type ForumsConfig struct {
	Support SupportForumConfig `mapstructure:"support"`
}

// SupportForumConfig configures priority tagging in the support forum.
type SupportForumConfig struct {
	ChannelID     string `mapstructure:"channel_id"`
	PriorityTagID string `mapstructure:"tag_priority_id"`
}

// Load reads configuration from config.yaml plus every config/*.yaml module
// file under root, merges them, applies environment overrides for secrets,
// and validates required fields.
func Load(root string) (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load(filepath.Join(root, ".env"))

	v := viper.New()
	v.SetConfigType("yaml")

	base := filepath.Join(root, "config.yaml")
	if _, err := os.Stat(base); err == nil {
		v.SetConfigFile(base)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", base, err)
		}
	}

	// Module files merge on top of the global file, deepest key wins.
	modules, _ := filepath.Glob(filepath.Join(root, "config", "*.yaml"))
	sort.Strings(modules)
	for _, path := range modules {
		mv := viper.New()
		mv.SetConfigType("yaml")
		mv.SetConfigFile(path)
		if err := mv.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := v.MergeConfigMap(mv.AllSettings()); err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	applyDefaults(cfg)

	// Secrets come from the environment only, never from YAML.
	cfg.Discord.Token = os.Getenv("DISCORD_BOT_TOKEN")
	cfg.Verification.API.APIKey = os.Getenv("VERIFY_API_KEY")
	cfg.Verification.Polymart.APIKey = os.Getenv("POLYMART_API_KEY")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Verification.API.TimeoutSeconds <= 0 {
		cfg.Verification.API.TimeoutSeconds = 10
	}
	if cfg.Verification.Spigot.TimeoutSeconds <= 0 {
		cfg.Verification.Spigot.TimeoutSeconds = 10
	}
	if cfg.Verification.Polymart.TimeoutSeconds <= 0 {
		cfg.Verification.Polymart.TimeoutSeconds = 10
	}
	if cfg.Verification.Polymart.Base == "" {
		cfg.Verification.Polymart.Base = "https://api.polymart.org/v1"
	}

	ttl := &cfg.Verification.UI.TTL
	setDefault(&ttl.PanelDefault, 300)
	setDefault(&ttl.PanelShort, 120)
	setDefault(&ttl.ErrorShort, 10)
	setDefault(&ttl.ErrorMedium, 15)
	setDefault(&ttl.Warning, 20)
	setDefault(&ttl.Success, 30)
	setDefault(&ttl.LinkThread, 180)
	setDefault(&ttl.AdminError, 8)
}

func setDefault(v *int, d int) {
	if *v <= 0 {
		*v = d
	}
}

func (c *Config) validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}
	if c.Verification.API.BaseURL == "" {
		return fmt.Errorf("verification.api.base_url is required")
	}
	if c.Verification.Roles.Buyer == "" {
		return fmt.Errorf("verification.roles.buyer is required")
	}
	for slug, plugin := range c.Verification.Plugins {
		if plugin.Role == "" {
			return fmt.Errorf("verification.plugins.%s.role is required", slug)
		}
	}
	return nil
}

// Timeout returns the registry call timeout as a duration.
func (r RegistryConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Timeout returns the marketplace call timeout as a duration.
func (s SpigotConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Timeout returns the Polymart call timeout as a duration.
func (p PolymartConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// SlugToRole returns the plugin slug to role ID mapping used for
// entitlement reconciliation.
func (v VerificationConfig) SlugToRole() map[string]string {
	out := make(map[string]string, len(v.Plugins))
	for slug, plugin := range v.Plugins {
		if plugin.Role != "" {
			out[slug] = plugin.Role
		}
	}
	return out
}
