// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Значения auth.rotation.
const (
	RotationNone   = "none"
	RotationMemory = "memory"
	RotationRedis  = "redis"
)

// Значения db.driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Значения cookie.same_site.
const (
	SameSiteLax    = "lax"
	SameSiteStrict = "strict"
)

// Значения audit.backend.
const (
	AuditDB    = "db"
	AuditMongo = "mongo"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Password PasswordConfig `yaml:"password"`
	Cookie   CookieConfig   `yaml:"cookie"`
	DB       DBConfig       `yaml:"db"`
	Audit    AuditConfig    `yaml:"audit"`
	Redis    RedisConfig    `yaml:"redis"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8000"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов.
// Загружается один раз при старте и далее не меняется.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	Algorithm       string        `yaml:"algorithm" env:"JWT_ALGORITHM" env-default:"HS256"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"30m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Issuer          string        `yaml:"issuer" env:"ISSUER" env-default:"auth-service"`
	// Leeway — допустимый сдвиг часов между узлами выпуска и проверки.
	Leeway time.Duration `yaml:"leeway" env:"JWT_LEEWAY" env-default:"0s"`
	// Rotation — защита от повторного использования refresh-токена: none|memory|redis.
	Rotation string `yaml:"rotation" env:"REFRESH_ROTATION" env-default:"none"`
}

// PasswordConfig — параметры хэширования паролей.
type PasswordConfig struct {
	Algorithm         string `yaml:"algorithm" env:"PASSWORD_ALGORITHM" env-default:"pbkdf2-sha256"`
	PBKDF2Iterations  int    `yaml:"pbkdf2_iterations" env:"PBKDF2_ITERATIONS" env-default:"600000"`
	Argon2MemoryKB    uint32 `yaml:"argon2_memory_kb" env:"ARGON2_MEMORY_KB" env-default:"65536"`
	Argon2Time        uint32 `yaml:"argon2_time" env:"ARGON2_TIME" env-default:"3"`
	Argon2Parallelism uint8  `yaml:"argon2_parallelism" env:"ARGON2_PARALLELISM" env-default:"2"`
	BcryptCost        int    `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"12"`
}

// CookieConfig — атрибуты cookie, через которую доставляется refresh-токен.
//
// Cookie всегда Secure, кроме явного insecure: true (локальная разработка по http).
// cleanenv подставляет env-default поверх false из YAML, поэтому флаг отрицательный.
type CookieConfig struct {
	Name     string `yaml:"name" env:"COOKIE_NAME" env-default:"refresh_token"`
	Path     string `yaml:"path" env:"COOKIE_PATH" env-default:"/"`
	Domain   string `yaml:"domain" env:"COOKIE_DOMAIN"`
	Insecure bool   `yaml:"insecure" env:"COOKIE_INSECURE"`
	// SameSite — lax|strict; none не допускается.
	SameSite string `yaml:"same_site" env:"COOKIE_SAME_SITE" env-default:"lax"`
}

// Secure сообщает, ставить ли атрибут Secure.
func (c CookieConfig) Secure() bool {
	return !c.Insecure
}

// DBConfig — настройки подключения к базе данных.
type DBConfig struct {
	Driver      string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
	// SkipMigrations отключает goose-миграции при старте (по умолчанию применяются).
	SkipMigrations bool `yaml:"skip_migrations" env:"DB_SKIP_MIGRATIONS"`
}

// AuditConfig — куда пишется история входов.
type AuditConfig struct {
	Backend  string `yaml:"backend" env:"AUDIT_BACKEND" env-default:"db"`
	MongoURL string `yaml:"mongo_url" env:"AUDIT_MONGO_URL"`
	// QueueSize — ёмкость фоновой очереди записей; при переполнении запись отбрасывается.
	QueueSize    int           `yaml:"queue_size" env:"AUDIT_QUEUE_SIZE" env-default:"1024"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"AUDIT_WRITE_TIMEOUT" env-default:"3s"`
}

// RedisConfig — подключение к Redis (нужно только для auth.rotation=redis).
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// ВАЖНО: после чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	var (
		c   *Config
		err error
	)

	switch {
	// 1) Явный путь.
	case path != "":
		c, err = tryRead(path)
	// 2) CONFIG_PATH.
	case os.Getenv("CONFIG_PATH") != "":
		c, err = tryRead(os.Getenv("CONFIG_PATH"))
	// 3) ./local.yaml.
	case fileExists("local.yaml"):
		c, err = tryRead("local.yaml")
	// 4) Только ENV.
	default:
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
		}
		c = &cfg
	}

	if err != nil {
		return nil, err
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// validate проверяет перечислимые значения и зависимости между секциями.
func (c *Config) validate() error {
	switch c.Auth.Rotation {
	case RotationNone, RotationMemory:
	case RotationRedis:
		if c.Redis.RedisURL == "" {
			return fmt.Errorf("invalid config: redis.redis_url is required for auth.rotation=redis")
		}
	default:
		return fmt.Errorf("invalid config: unknown auth.rotation %q", c.Auth.Rotation)
	}

	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("invalid config: unknown db.driver %q", c.DB.Driver)
	}

	switch c.Audit.Backend {
	case AuditDB:
	case AuditMongo:
		if c.Audit.MongoURL == "" {
			return fmt.Errorf("invalid config: audit.mongo_url is required for audit.backend=mongo")
		}
	default:
		return fmt.Errorf("invalid config: unknown audit.backend %q", c.Audit.Backend)
	}

	switch strings.ToLower(c.Cookie.SameSite) {
	case SameSiteLax, SameSiteStrict:
	default:
		return fmt.Errorf("invalid config: cookie.same_site must be lax or strict, got %q", c.Cookie.SameSite)
	}

	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("invalid config: token ttl must be positive")
	}

	return nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
