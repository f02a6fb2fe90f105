package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Funnel     FunnelConfig     `yaml:"funnel"`
	Broadcast  BroadcastConfig  `yaml:"broadcast"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
	Bot        BotConfig        `yaml:"bot"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	AdminID     int64  `yaml:"admin_id"`
	ChannelID   string `yaml:"channel_id"` // @username или -100123456789
	ChannelLink string `yaml:"channel_link"`
	Debug       bool   `yaml:"debug"`
}

type FunnelConfig struct {
	ArticleLink         string `yaml:"article_link"`
	AssetPath           string `yaml:"asset_path"`
	BonusDelaySeconds   int    `yaml:"bonus_delay_seconds"`
	ContactDelaySeconds int    `yaml:"contact_delay_seconds"`
}

// BonusDelay is the pause before the bonus asset step fires.
func (f FunnelConfig) BonusDelay() time.Duration {
	return time.Duration(f.BonusDelaySeconds) * time.Second
}

// ContactDelay is the further pause before the contact prompt step.
func (f FunnelConfig) ContactDelay() time.Duration {
	return time.Duration(f.ContactDelaySeconds) * time.Second
}

type BroadcastConfig struct {
	PaceIntervalMs int `yaml:"pace_interval_ms"`
}

// PaceInterval is the minimum spacing between broadcast sends.
func (b BroadcastConfig) PaceInterval() time.Duration {
	return time.Duration(b.PaceIntervalMs) * time.Millisecond
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	UsersSpreadSheetID    string `yaml:"users_spreadsheet_id"`
}

type BotConfig struct {
	RateLimitMessages int `yaml:"rate_limit_messages"`
	RateLimitWindow   int `yaml:"rate_limit_window"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}

	if c.Telegram.AdminID == 0 {
		return errors.New("telegram admin_id is required")
	}

	if c.Telegram.ChannelID == "" {
		return errors.New("telegram channel_id is required")
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Funnel.BonusDelaySeconds == 0 {
		c.Funnel.BonusDelaySeconds = 300
	}
	if c.Funnel.ContactDelaySeconds == 0 {
		c.Funnel.ContactDelaySeconds = 30
	}
	if c.Funnel.AssetPath == "" {
		c.Funnel.AssetPath = "static/bonus.pdf"
	}
	if c.Broadcast.PaceIntervalMs == 0 {
		c.Broadcast.PaceIntervalMs = 50
	}
	if c.Monitoring.Enabled && c.Monitoring.Port == 0 {
		c.Monitoring.Port = 9090
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}

	// Bot defaults
	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = 20
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = 60
	}
}
