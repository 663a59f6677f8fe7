package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type RatesConfig struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer `yaml:"http_server"`
	GRPCServer `yaml:"grpc_server"`
	RatesDB    `yaml:"rates_db"`
	Redis      `yaml:"redis"`
	Kafka      `yaml:"kafka"`
	LogConfig  `yaml:"log_config"`
	Collection `yaml:"collection"`
	Health     `yaml:"health"`
	Admin      `yaml:"admin"`
	RateLimit  `yaml:"rate_limit"`
}

type HTTPServer struct {
	Host            string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

type GRPCServer struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50051"`
}

type RatesDB struct {
	Dsn            string `yaml:"dsn" env:"RATES_DB_DSN" env-required:"true"`
	MigrationsPath string `yaml:"migrations_path" env:"RATES_MIGRATIONS_PATH" env-default:"migrations"`
}

type Redis struct {
	Addr      string        `yaml:"addr" env:"REDIS_ADDR"`
	Password  string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	LatestTTL time.Duration `yaml:"latest_ttl" env-default:"5m"`
}

type Kafka struct {
	Enabled bool     `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"mmk-rates.collection"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
}

type Collection struct {
	Interval    time.Duration `yaml:"interval" env-default:"30m"`
	Timeout     time.Duration `yaml:"timeout" env-default:"30s"`
	HTTPTimeout time.Duration `yaml:"http_timeout" env-default:"30s"`
	MaxRate     float64       `yaml:"max_rate" env-default:"10000"`
	ExtraCodes  []string      `yaml:"extra_codes" env-default:"USDT"`
	UserAgent   string        `yaml:"user_agent" env-default:"MMK-Currency-Bot/1.0 (Myanmar Currency Exchange Rate Collector)"`
	RunOnStart  bool          `yaml:"run_on_start" env-default:"true"`
}

type Health struct {
	Interval        time.Duration `yaml:"interval" env-default:"5m"`
	Window          time.Duration `yaml:"window" env-default:"24h"`
	DownAfter       time.Duration `yaml:"down_after" env-default:"6h"`
	DegradedAfter   time.Duration `yaml:"degraded_after" env-default:"2h"`
	ExpectedUpdates int           `yaml:"expected_updates" env-default:"24"`
	MinRatio        float64       `yaml:"min_ratio" env-default:"0.8"`
	SampleLimit     int           `yaml:"sample_limit" env-default:"50"`
}

type Admin struct {
	JWTSecret string   `yaml:"jwt_secret" env:"ADMIN_JWT_SECRET"`
	AdminIDs  []string `yaml:"admin_ids" env:"ADMIN_IDS" env-separator:","`
}

type RateLimit struct {
	Rate string `yaml:"rate" env:"RATE_LIMIT" env-default:"60-M"`
}

func MustLoad() *RatesConfig {
	configPath := os.Getenv("RATES_CONFIG_PATH")
	if configPath == "" {
		log.Fatalf("RATES_CONFIG_PATH was not found\n")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}
	return cfg
}

func Load(configPath string) (*RatesConfig, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, err
	}

	var cfg RatesConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
