package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zhouzirui/sentichat/internal/chart"
	"github.com/zhouzirui/sentichat/internal/service/classifier"
)

// Config aggregates every setting of the hosts.
type Config struct {
	Server    ServerConfig
	Upstream  UpstreamConfig
	Chat      ChatConfig
	Dashboard DashboardConfig
	Log       LogConfig
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	upstream, err := loadUpstreamConfig()
	if err != nil {
		return nil, err
	}

	chatCfg, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	dashboard, err := loadDashboardConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Upstream: upstream, Chat: chatCfg, Dashboard: dashboard, Log: logCfg}, nil
}

// ServerConfig describes the web host.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as is.
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// UpstreamConfig describes the classification service.
type UpstreamConfig struct {
	BaseURL       string
	Timeout       time.Duration
	Username      string
	Password      string
	SessionCookie string
}

// Client converts the section into classifier client settings.
func (c UpstreamConfig) Client() classifier.Config {
	return classifier.Config{
		BaseURL:       c.BaseURL,
		Timeout:       c.Timeout,
		Username:      c.Username,
		Password:      c.Password,
		SessionCookie: c.SessionCookie,
	}
}

func loadUpstreamConfig() (UpstreamConfig, error) {
	timeout, err := parseDurationEnv("UPSTREAM_TIMEOUT", 15*time.Second)
	if err != nil {
		return UpstreamConfig{}, err
	}

	return UpstreamConfig{
		BaseURL:       getEnvOrDefault("UPSTREAM_BASE_URL", "http://localhost:5000"),
		Timeout:       timeout,
		Username:      strings.TrimSpace(os.Getenv("UPSTREAM_USERNAME")),
		Password:      os.Getenv("UPSTREAM_PASSWORD"),
		SessionCookie: strings.TrimSpace(os.Getenv("UPSTREAM_SESSION_COOKIE")),
	}, nil
}

// ChatConfig tunes the conversation views.
type ChatConfig struct {
	HistoryLimit int
}

func loadChatConfig() (ChatConfig, error) {
	limit := 10
	if override, err := parseOptionalIntEnv("HISTORY_LIMIT"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		if *override < 1 {
			limit = 1
		} else {
			limit = *override
		}
	}
	return ChatConfig{HistoryLimit: limit}, nil
}

// DashboardConfig tunes the analytics views.
type DashboardConfig struct {
	RefreshInterval  time.Duration
	DistributionKind chart.Kind
	Theme            chart.Theme
}

func loadDashboardConfig() (DashboardConfig, error) {
	interval, err := parseDurationEnv("DASHBOARD_REFRESH_INTERVAL", 0)
	if err != nil {
		return DashboardConfig{}, err
	}
	if interval < 0 {
		return DashboardConfig{}, fmt.Errorf("invalid DASHBOARD_REFRESH_INTERVAL value %q: must not be negative", os.Getenv("DASHBOARD_REFRESH_INTERVAL"))
	}

	kind := chart.Kind(strings.ToLower(getEnvOrDefault("DASHBOARD_DISTRIBUTION_KIND", string(chart.KindDoughnut))))
	if !kind.Categorical() {
		return DashboardConfig{}, fmt.Errorf("invalid DASHBOARD_DISTRIBUTION_KIND value %q: want doughnut or pie", kind)
	}

	theme := chart.DefaultTheme()
	if path := strings.TrimSpace(os.Getenv("CHART_THEME_FILE")); path != "" {
		override, err := LoadTheme(path)
		if err != nil {
			return DashboardConfig{}, err
		}
		theme = theme.Merge(override)
	}

	return DashboardConfig{RefreshInterval: interval, DistributionKind: kind, Theme: theme}, nil
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level  string
	Pretty bool
}

func loadLogConfig() (LogConfig, error) {
	pretty, err := parseBoolEnv("LOG_PRETTY", false)
	if err != nil {
		return LogConfig{}, err
	}
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Pretty: pretty,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

// parseDurationEnv accepts Go durations ("30s") or a bare number of seconds.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
