package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const defaultConfigPath = "./config/local.yaml"

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"prod"`
	ErrorLog   string `yaml:"error_log" env:"ERROR_LOG" env-default:"errors.log"`
	HTTPServer `yaml:"http_server"`
	DB         `yaml:"db"`
	Auth       `yaml:"auth"`
	Gateway    `yaml:"gateway"`
	Workflow   `yaml:"workflow"`

	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:"," env-default:"http://localhost:5173"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:4001"`
	Timeout     time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	// FrontendDir: сборка SPA панели; пусто, если фронтенд отдаётся отдельно.
	FrontendDir string `yaml:"frontend_dir" env:"FRONTEND_DIR"`
}

type DB struct {
	DBUser     string `yaml:"db_user" env:"DB_USER" env-required:"true"`
	DBPassword string `yaml:"db_password" env:"DB_PASSWORD"`
	DBHost     string `yaml:"db_host" env:"DB_HOST" env-default:"localhost"`
	DBPort     int    `yaml:"db_port" env:"DB_PORT" env-default:"3306"`
	DBName     string `yaml:"db_name" env:"DB_NAME" env-required:"true"`
	ParseTime  bool   `yaml:"parse_time" env:"DB_PARSE_TIME" env-default:"true"`
	Migrate    bool   `yaml:"migrate" env:"DB_MIGRATE" env-default:"false"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"12h"`
}

// Gateway: настройки клиента к REST бэкенду (внутренний/внешний UI-клиент).
type Gateway struct {
	BaseURL         string        `yaml:"base_url" env:"GATEWAY_BASE_URL" env-default:"http://localhost:4001"`
	Role            string        `yaml:"role" env:"GATEWAY_ROLE" env-default:"operation"`
	Timeout         time.Duration `yaml:"timeout" env:"GATEWAY_TIMEOUT" env-default:"10s"`
	LegacyEnvelopes bool          `yaml:"legacy_envelopes" env:"GATEWAY_LEGACY_ENVELOPES" env-default:"false"`
}

type Workflow struct {
	NotificationTTL time.Duration `yaml:"notification_ttl" env:"NOTIFICATION_TTL" env-default:"3s"`
	VisibleLimit    int           `yaml:"visible_limit" env:"NOTIFICATION_VISIBLE" env-default:"3"`
	EmptyRetryDelay time.Duration `yaml:"empty_retry_delay" env:"EMPTY_RETRY_DELAY" env-default:"1s"`
}

// DSN собирает строку подключения для go-sql-driver/mysql.
func (d DB) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=%v",
		d.DBUser,
		d.DBPassword,
		d.DBHost,
		d.DBPort,
		d.DBName,
		d.ParseTime,
	)
}

// Load читает .env (если есть), затем YAML по path с переопределением из окружения.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: read .env: %w", op, err)
	}

	var cfg Config

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("%s: read %s: %w", op, path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: read env: %w", op, err)
		}
	}

	return &cfg, nil
}

func MustConfig() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	return cfg
}
