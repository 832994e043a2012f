package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"

	pkgcfg "github.com/Skotchmaster/shopcarts/pkg/config"
	pkgdb "github.com/Skotchmaster/shopcarts/pkg/db"
)

const (
	DriverPostgres = pkgdb.DriverPostgres
	DriverSQLite   = pkgdb.DriverSQLite
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DBDriver    string
	DatabaseURL string

	JWTSecret []byte

	KafkaBrokers []string
	KafkaTopic   string
}

// LoadDotEnv reads path into the environment; a missing file is only noted.
func LoadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		log.Printf("Notice: %s not loaded: %v. Using system environment variables", path, err)
	}
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: pkgcfg.EnvDefault("SERVICE_NAME", "shopcarts"),
		ServerPort:  pkgcfg.EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    pkgcfg.EnvDefault("LOG_LEVEL", "info"),

		DBDriver:    strings.ToLower(pkgcfg.EnvDefault("DB_DRIVER", DriverPostgres)),
		DatabaseURL: pkgcfg.EnvDefault("DATABASE_URL", ""),

		JWTSecret: []byte(pkgcfg.EnvDefault("JWT_SECRET", "")),

		KafkaBrokers: pkgcfg.CSV(pkgcfg.EnvDefault("KAFKA_BROKERS", "")),
		KafkaTopic:   pkgcfg.EnvDefault("KAFKA_TOPIC", "cart_events"),
	}

	switch cfg.DBDriver {
	case DriverPostgres:
		if err := pkgcfg.NonEmpty(cfg.DatabaseURL, "DATABASE_URL"); err != nil {
			return nil, err
		}
	case DriverSQLite:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = "shopcarts.db"
		}
	default:
		return nil, &UnknownDriverError{Driver: cfg.DBDriver}
	}

	return cfg, nil
}

type UnknownDriverError struct {
	Driver string
}

func (e *UnknownDriverError) Error() string {
	return "unknown DB_DRIVER " + e.Driver + " (want postgres or sqlite)"
}

// AuthEnabled reports whether bearer tokens are required.
func (c *Config) AuthEnabled() bool {
	return len(c.JWTSecret) > 0
}

// EventsEnabled reports whether cart events go to kafka.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
