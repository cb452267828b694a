// Package config содержит логику чтения конфигурации сервиса gophershop и консольного клиента.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса gophershop.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	AdminCode   string `env:"ADMIN_CODE"`
	AuthSecret  string `env:"AUTH_SECRET"`
	LogLevel    string `env:"LOG_LEVEL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := *cfg

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AdminCode, "c", "", "admin registration code, empty disables admin sign-up")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret for signing auth cookies")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log level")

	flag.Parse()

	if fromEnv.RunAddress != "" {
		cfg.RunAddress = fromEnv.RunAddress
	}
	if fromEnv.DatabaseURI != "" {
		cfg.DatabaseURI = fromEnv.DatabaseURI
	}
	if fromEnv.AdminCode != "" {
		cfg.AdminCode = fromEnv.AdminCode
	}
	if fromEnv.AuthSecret != "" {
		cfg.AuthSecret = fromEnv.AuthSecret
	}
	if fromEnv.LogLevel != "" {
		cfg.LogLevel = fromEnv.LogLevel
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// ClientConfig содержит параметры консольного клиента.
type ClientConfig struct {
	ServerAddress string `env:"SHOP_SERVER_ADDRESS"`
	Verbose       bool   `env:"SHOP_VERBOSE"`
}

// ParseClient разбирает общие флаги клиента и возвращает оставшиеся аргументы (команду и её параметры).
func ParseClient(args []string) (*ClientConfig, []string, error) {
	cfg := &ClientConfig{}

	if err := env.Parse(cfg); err != nil {
		return nil, nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := *cfg

	fs := flag.NewFlagSet("shopctl", flag.ContinueOnError)
	fs.StringVar(&cfg.ServerAddress, "server", "localhost:8080", "gophershop server address")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("parse flags: %w", err)
	}

	if fromEnv.ServerAddress != "" {
		cfg.ServerAddress = fromEnv.ServerAddress
	}
	if fromEnv.Verbose {
		cfg.Verbose = true
	}

	return cfg, fs.Args(), nil
}
