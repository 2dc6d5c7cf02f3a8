package observability

import (
	"strings"

	"github.com/smallbiznis/tixora/internal/config"
)

// Config is the slice of application config the logging, tracing and metrics
// providers read.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string
	LogSQL    bool

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func NewConfig(cfg config.Config) Config {
	telemetry := cfg.Telemetry
	return Config{
		ServiceName:          orDefault(cfg.AppName, "tixora"),
		Environment:          strings.ToLower(strings.TrimSpace(cfg.Environment)),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             orDefault(telemetry.LogLevel, "info"),
		LogFormat:            orDefault(telemetry.LogFormat, "json"),
		LogSQL:               telemetry.LogSQL,
		OtelEnabled:          telemetry.OtelEnabled,
		OtelExporterEndpoint: telemetry.OtelEndpoint,
		OtelExporterProtocol: orDefault(telemetry.OtelProtocol, "grpc"),
		OtelSamplingRatio:    telemetry.OtelSamplingRatio,
	}
}

// Debug turns on stack traces in request and error logs.
func (c Config) Debug() bool {
	if strings.EqualFold(c.LogLevel, "debug") {
		return true
	}
	switch c.Environment {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func orDefault(value, def string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return def
}
