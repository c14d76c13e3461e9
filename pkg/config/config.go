package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Tracker    TrackerConfig    `mapstructure:"tracker"`
	Reminders  RemindersConfig  `mapstructure:"reminders"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Channel string `mapstructure:"channel"`
}

type ClassifierConfig struct {
	Ensemble          bool          `mapstructure:"ensemble"`
	SemanticEnabled   bool          `mapstructure:"semantic_enabled"`
	SentimentProvider string        `mapstructure:"sentiment_provider"`
	ProfilesPath      string        `mapstructure:"profiles_path"`
	Whitelist         []string      `mapstructure:"whitelist"`
	MaxTextLength     int           `mapstructure:"max_text_length"`
	CapabilityTimeout time.Duration `mapstructure:"capability_timeout"`
}

type TrackerConfig struct {
	ThrottleInterval time.Duration `mapstructure:"throttle_interval"`
	RepeatInterval   time.Duration `mapstructure:"repeat_interval"`
	ResetWindow      time.Duration `mapstructure:"reset_window"`
	MaxUsers         int           `mapstructure:"max_users"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
}

// RemindersConfig controls the daily plan reminder dispatcher. A zero
// check interval disables it.
type RemindersConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	ChatModel      string  `mapstructure:"chat_model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return DatabaseConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "focusguard")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", true)

	v.SetDefault("redis.channel", "focusguard:notifications")

	v.SetDefault("classifier.ensemble", true)
	v.SetDefault("classifier.semantic_enabled", true)
	v.SetDefault("classifier.sentiment_provider", "lexicon")
	v.SetDefault("classifier.whitelist", []string{})
	v.SetDefault("classifier.max_text_length", 512)
	v.SetDefault("classifier.capability_timeout", 3*time.Second)

	v.SetDefault("tracker.throttle_interval", 2*time.Second)
	v.SetDefault("tracker.repeat_interval", 2*time.Second)
	v.SetDefault("tracker.reset_window", time.Hour)
	v.SetDefault("tracker.max_users", 10000)
	v.SetDefault("tracker.sweep_interval", 5*time.Minute)

	v.SetDefault("reminders.check_interval", 30*time.Second)

	v.SetDefault("openai.chat_model", "gpt-3.5-turbo")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.max_tokens", 60)
	v.SetDefault("openai.temperature", 0.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

// LoadConfig reads the file at path when it exists, then applies
// environment overrides. A missing file leaves the defaults in place.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if redisURL := v.GetString("REDIS_URL"); redisURL != "" {
		config.Redis.URL = redisURL
	}

	return &config, nil
}
