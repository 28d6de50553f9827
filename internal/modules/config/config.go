package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	derivTokenENV     = "DERIV_TOKEN"
	derivAppIDENV     = "DERIV_APP_ID"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatTelegramENV   = "TELEGRAM_CHAT_ID"
	databaseDSN       = "DATABASE_DSN"
)

// Config ...
type Config struct {
	Deriv struct {
		Endpoint string `yaml:"endpoint"`
		AppID    string `yaml:"app_id"`
		Token    string `yaml:"token"`
		// reconnect policy: delay = min(base*2^attempt, max), at most MaxAttempts in a row
		ReconnectBase        time.Duration `yaml:"reconnect_base"`
		ReconnectMax         time.Duration `yaml:"reconnect_max"`
		ReconnectMaxAttempts int           `yaml:"reconnect_max_attempts"`
	} `yaml:"deriv"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	DB string `yaml:"db_dsn"`

	Service struct {
		Name      string `yaml:"name"`
		AdminAddr string `yaml:"admin_addr"`
	} `yaml:"service"`

	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`

	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"tracing"`

	Engine struct {
		Currency string `yaml:"currency"`
		// empty keeps daily loss sticky for the life of the process
		DayRolloverTZ string `yaml:"day_rollover_tz"`
		// 0 means a time-seeded source
		PaperSeed int64 `yaml:"paper_seed"`
	} `yaml:"engine"`
}

// Default returns the configuration used when no file overrides a field.
func Default() Config {
	var c Config
	c.Deriv.Endpoint = "wss://ws.binaryws.com/websockets/v3"
	c.Deriv.AppID = "1089"
	c.Deriv.ReconnectBase = time.Second
	c.Deriv.ReconnectMax = 10 * time.Second
	c.Deriv.ReconnectMaxAttempts = 5
	c.Service.Name = "vault_bot"
	c.Service.AdminAddr = ":8080"
	c.Log.Level = "info"
	c.Log.MaxSizeMB = 50
	c.Log.MaxBackups = 5
	c.Log.MaxAgeDays = 7
	c.Tracing.Host = "localhost"
	c.Tracing.Port = 6831
	c.Engine.Currency = "USD"
	return c
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	config := Default()

	configFileName := getenvDefault(configFilePathENV, "values_local.yaml")
	file, err := os.Open("configs/" + configFileName)
	switch {
	case err == nil:
		defer func() {
			_ = file.Close()
		}()
		if err := yaml.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", configFileName, err)
		}
	case os.IsNotExist(err):
		log.Printf("config file %s not found, using defaults", configFileName)
	default:
		return nil, fmt.Errorf("open config file %s: %w", configFileName, err)
	}

	applyEnv(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv(derivTokenENV); v != "" {
		c.Deriv.Token = v
	}
	if v := os.Getenv(derivAppIDENV); v != "" {
		c.Deriv.AppID = v
	}
	if v := os.Getenv(tokenTelegramENV); v != "" {
		c.Telegram.Token = v
	}
	c.Telegram.ChatID = int64FromEnv(chatTelegramENV, c.Telegram.ChatID)
	if v := os.Getenv(databaseDSN); v != "" {
		c.DB = v
	}
}

func (c *Config) Validate() error {
	if c.Deriv.Endpoint == "" {
		return fmt.Errorf("deriv.endpoint is required")
	}
	if c.Deriv.ReconnectMaxAttempts < 0 {
		return fmt.Errorf("deriv.reconnect_max_attempts must be >= 0")
	}
	if c.Engine.DayRolloverTZ != "" {
		if _, err := time.LoadLocation(c.Engine.DayRolloverTZ); err != nil {
			return fmt.Errorf("engine.day_rollover_tz: %w", err)
		}
	}
	return nil
}

// DerivURL is the websocket endpoint with the application id attached.
func (c *Config) DerivURL() string {
	return c.Deriv.Endpoint + "?app_id=" + c.Deriv.AppID
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func int64FromEnv(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
