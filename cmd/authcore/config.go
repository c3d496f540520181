package main

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/saaskit/authcore/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultSystemName   = "authcore"
	defaultStorage      = "postgres"

	defaultAccessTokenTTL            = 15 * time.Minute
	defaultEmailVerificationTokenTTL = 300 * time.Second
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Redis for the hash-correlation and action-request stores
	RedisAddr string

	// Secret key
	// Symmetric key for JWT signing and stored-token hashing
	SecretKey string

	// Access JWT lifetime
	AccessTokenTTL time.Duration

	// Signed email-verification link lifetime
	EmailVerificationTokenTTL time.Duration

	// Event envelope source tag
	SystemName string

	// Storage backend: postgres or memory
	Storage string

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:                  defaultLoggingLevel,
		ListenAddr:                defaultListenAddr,
		Environment:               defaultEnvironment,
		SystemName:                defaultSystemName,
		Storage:                   defaultStorage,
		AccessTokenTTL:            defaultAccessTokenTTL,
		EmailVerificationTokenTTL: defaultEmailVerificationTokenTTL,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setDuration := func(o *time.Duration) func(value string) {
		return func(value string) {
			if value == "" {
				return
			}
			if d, err := time.ParseDuration(value); err == nil {
				*o = d
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":                  setString(&c.ListenAddr),
		"DATABASE_URI":                 setString(&c.DatabaseDSN),
		"REDIS_ADDR":                   setString(&c.RedisAddr),
		"JWT_SECRET":                   setString(&c.SecretKey),
		"ACCESS_TOKEN_TTL":             setDuration(&c.AccessTokenTTL),
		"EMAIL_VERIFICATION_TOKEN_TTL": setDuration(&c.EmailVerificationTokenTTL),
		"SYSTEM_NAME":                  setString(&c.SystemName),
		"STORAGE":                      setString(&c.Storage),
		"LOG_LEVEL":                    setString(&c.LogLevel),
		"ENVIRONMENT":                  setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("authcore", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.RedisAddr, "redis", "r", c.RedisAddr, "Redis address")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.Storage, "storage", "t", c.Storage, "Storage backend (postgres, memory)")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}
