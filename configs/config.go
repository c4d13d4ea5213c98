package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GiorgiUbiria/team_ledger/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Server struct {
		Addr         string        `mapstructure:"addr"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
		IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	} `mapstructure:"server"`
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	JWT struct {
		SECRET string        `mapstructure:"secret"`
		TTL    time.Duration `mapstructure:"ttl"`
	} `mapstructure:"jwt"`
	Redis struct {
		Addr      string `mapstructure:"addr"`
		Password  string `mapstructure:"password"`
		DB        int    `mapstructure:"db"`
		Channel   string `mapstructure:"channel"`
		InboxSize int64  `mapstructure:"inbox_size"`
	} `mapstructure:"redis"`
	Workflow struct {
		PendingTTL    time.Duration `mapstructure:"pending_ttl"`
		SweepSchedule string        `mapstructure:"sweep_schedule"`
	} `mapstructure:"workflow"`
	Pagination struct {
		DefaultLimit int `mapstructure:"default_limit"`
		MaxLimit     int `mapstructure:"max_limit"`
	} `mapstructure:"pagination"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Seed struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"seed"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("redis.channel", "ledger:notifications")
	v.SetDefault("redis.inbox_size", 100)
	v.SetDefault("workflow.pending_ttl", time.Duration(0))
	v.SetDefault("workflow.sweep_schedule", "@hourly")
	v.SetDefault("pagination.default_limit", 20)
	v.SetDefault("pagination.max_limit", 100)
	v.SetDefault("seed.enabled", false)
	v.SetDefault("log.level", "info")
}

// Load reads config.yaml from dir, overlaid with environment variables
// (DB_DSN, JWT_SECRET, REDIS_ADDR, ...).
func Load(dir string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var fileLookupError viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil {
		if errors.As(err, &fileLookupError) {
			return Config{}, fmt.Errorf("config file not found in %s: %w", dir, err)
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.JWT.SECRET == "" {
		return Config{}, errors.New("jwt.secret must be set")
	}
	return cfg, nil
}

func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		logger.Log.Info("no .env file, using environment")
	}

	cfg, err := Load("./configs")
	if err != nil {
		logger.Log.Fatal("failed to load config", zap.Error(err))
	}
	AppConfig = cfg
}
