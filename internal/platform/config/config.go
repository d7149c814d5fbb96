package config

import (
	"errors"
	"os"
	"strings"
)

type HTTPConfig struct {
	Addr string
}

type GRPCConfig struct {
	Addr string
}

// AppConfig holds the settings every service process shares.
type AppConfig struct {
	ServiceName string
	Environment string
	LogLevel    string
	HTTP        HTTPConfig
	GRPC        GRPCConfig
}

func (c AppConfig) IsProd() bool {
	return strings.EqualFold(c.Environment, "production")
}

func Load() (AppConfig, error) {
	cfg := AppConfig{
		ServiceName: strings.TrimSpace(os.Getenv("SERVICE_NAME")),
		Environment: strings.TrimSpace(os.Getenv("ENVIRONMENT")),
		LogLevel:    strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		HTTP: HTTPConfig{
			Addr: strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		},
		GRPC: GRPCConfig{
			Addr: strings.TrimSpace(os.Getenv("GRPC_ADDR")),
		},
	}
	if cfg.ServiceName == "" {
		return AppConfig{}, errors.New("SERVICE_NAME is required")
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.GRPC.Addr == "" {
		cfg.GRPC.Addr = ":9092"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}
