package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/rufusakande/xpaie-client-backend/internal/logger"
	"github.com/rufusakande/xpaie-client-backend/internal/service/fedapay"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultFedaPayEnv   = fedapay.EnvSandbox
	defaultClientURL    = "http://localhost:5173"
	defaultMinAmount    = 100
	defaultCurrency     = "XOF"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Environment (dev, prod)
	Environment string

	// FedaPay API credentials and environment (sandbox, live)
	FedaPayAPIKey string
	FedaPayEnv    string

	// Shared secret for webhook signature verification
	// Required in production: a missing secret must reject webhooks, not
	// silently skip verification
	WebhookSecret string

	// URL the processor redirects the customer back to after payment
	CallbackURL string

	// Frontend base url for payment result redirects
	ClientURL string

	// Minimum deposit amount in smallest currency unit
	MinAmount int64

	// The single currency this service operates in
	Currency string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		ListenAddr:  defaultListenAddr,
		Environment: defaultEnvironment,
		FedaPayEnv:  defaultFedaPayEnv,
		ClientURL:   defaultClientURL,
		MinAmount:   defaultMinAmount,
		Currency:    defaultCurrency,
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
	setInt64 := func(o *int64) func(value string) {
		return func(value string) {
			if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
				*o = parsed
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":            setString(&c.ListenAddr),
		"DATABASE_URI":           setString(&c.DatabaseDSN),
		"LOG_LEVEL":              setString(&c.LogLevel),
		"ENVIRONMENT":            setString(&c.Environment),
		"FEDAPAY_SECRET_KEY":     setString(&c.FedaPayAPIKey),
		"FEDAPAY_ENVIRONMENT":    setString(&c.FedaPayEnv),
		"FEDAPAY_WEBHOOK_SECRET": setString(&c.WebhookSecret),
		"FEDAPAY_CALLBACK_URL":   setString(&c.CallbackURL),
		"CLIENT_URL":             setString(&c.ClientURL),
		"MIN_DEPOSIT_AMOUNT":     setInt64(&c.MinAmount),
		"CURRENCY":               setString(&c.Currency),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("xpaie", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.FedaPayAPIKey, "fedapay-key", "k", c.FedaPayAPIKey, "FedaPay API key")
	fs.StringVar(&c.FedaPayEnv, "fedapay-env", c.FedaPayEnv, "FedaPay environment (sandbox, live)")
	fs.StringVar(&c.WebhookSecret, "webhook-secret", c.WebhookSecret, "FedaPay webhook shared secret")
	fs.StringVar(&c.CallbackURL, "callback-url", c.CallbackURL, "Payment callback url")
	fs.StringVar(&c.ClientURL, "client-url", c.ClientURL, "Frontend base url")
	fs.Int64Var(&c.MinAmount, "min-amount", c.MinAmount, "Minimum deposit amount")
	fs.StringVar(&c.Currency, "currency", c.Currency, "Currency code")

	return fs.Parse(args)
}

// Validate checks the options the service cannot run without
func (c *Config) Validate() error {
	if c.DatabaseDSN == "" {
		return errors.New("database DSN is required")
	}
	if c.FedaPayAPIKey == "" {
		return errors.New("FedaPay API key is required")
	}
	if c.Environment == logger.EnvProduction && c.WebhookSecret == "" {
		return errors.New("webhook secret is required in production")
	}

	return nil
}
