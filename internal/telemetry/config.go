package telemetry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	envEndpoint    = "RESPANE_OTEL_ENDPOINT"
	envInsecure    = "RESPANE_OTEL_INSECURE"
	envService     = "RESPANE_OTEL_SERVICE"
	envDialTimeout = "RESPANE_OTEL_DIAL_TIMEOUT"
	envHeaders     = "RESPANE_OTEL_HEADERS"

	defaultServiceName = "respane"
)

type Config struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
	Version     string
	DialTimeout time.Duration
	Headers     map[string]string
}

// Enabled reports whether events should be exported to a collector.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// ConfigFromEnv reads telemetry settings through getenv; malformed values are ignored.
func ConfigFromEnv(getenv func(string) string) Config {
	if getenv == nil {
		return Config{ServiceName: defaultServiceName}
	}
	cfg := Config{
		Endpoint:    strings.TrimSpace(getenv(envEndpoint)),
		ServiceName: strings.TrimSpace(getenv(envService)),
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}
	if raw := strings.TrimSpace(getenv(envInsecure)); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.Insecure = v
		}
	}
	if raw := strings.TrimSpace(getenv(envDialTimeout)); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.DialTimeout = d
		}
	}
	if headers, err := ParseHeaders(getenv(envHeaders)); err == nil {
		cfg.Headers = headers
	}
	return cfg
}

// ParseHeaders parses "k=v, k2=v2". Blank input yields nil.
func ParseHeaders(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("header %q missing '='", part)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("header %q missing name", part)
		}
		out[key] = strings.TrimSpace(value)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
