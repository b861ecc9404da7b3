package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram        TelegramConfig
	DB              PostgresConfig
	Server          ServerConfig
	Notify          NotifyConfig
	Forward         ForwardConfig
	SubscribersFile string
}

type TelegramConfig struct {
	Token           string
	AdminID         int64
	FollowupDelay   time.Duration
	FollowupMessage string
}

type PostgresConfig struct {
	URL        string
	Host       string
	Port       string
	Username   string
	Name       string
	Password   string
	SSL        string
	Migrations string
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type NotifyConfig struct {
	APIKey      string
	Concurrency int
}

type ForwardConfig struct {
	Allowlist []string
}

var GlobalConfig Config

// Init reads configuration from the environment, loading a .env file first
// when one is present.
func (c *Config) Init() {
	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SUBSCRIBERS_FILE", "subscribers.json")
	v.SetDefault("NOTIFY_CONCURRENCY", 10)
	v.SetDefault("SERVER_PORT", "8000")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("MIGRATIONS_PATH", "migrations")

	c.Telegram = TelegramConfig{
		Token:           v.GetString("TELEGRAM_TOKEN"),
		AdminID:         v.GetInt64("ADMIN_ID"),
		FollowupDelay:   v.GetDuration("FOLLOWUP_DELAY"),
		FollowupMessage: v.GetString("FOLLOWUP_MESSAGE"),
	}
	c.DB = PostgresConfig{
		URL:        v.GetString("DATABASE_URL"),
		Host:       v.GetString("DB_HOST"),
		Port:       v.GetString("DB_PORT"),
		Username:   v.GetString("DB_USER"),
		Name:       v.GetString("DB_NAME"),
		Password:   v.GetString("DB_PASSWORD"),
		SSL:        v.GetString("DB_SSLMODE"),
		Migrations: v.GetString("MIGRATIONS_PATH"),
	}
	c.Server = ServerConfig{
		Port:    v.GetString("SERVER_PORT"),
		GinMode: v.GetString("GIN_MODE"),
	}
	c.Notify = NotifyConfig{
		APIKey:      v.GetString("NOTIFY_API_KEY"),
		Concurrency: v.GetInt("NOTIFY_CONCURRENCY"),
	}
	c.Forward = ForwardConfig{Allowlist: splitList(v.GetString("FORWARD_ALLOWLIST"))}
	c.SubscribersFile = v.GetString("SUBSCRIBERS_FILE")
}

// Enabled reports whether a relational backend is configured. When it is
// not, the bot falls back to file storage.
func (p PostgresConfig) Enabled() bool {
	return p.URL != "" || p.Host != ""
}

// DSN returns the connection string, preferring DATABASE_URL over the
// discrete DB_* variables.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		p.Host, p.Port, p.Username, p.Name, p.Password, p.SSL)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
