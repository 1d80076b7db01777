package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Registry configuration
	Registry RegistryConfig

	// Monitor configuration
	Monitor MonitorConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// RegistryConfig holds plugin catalog configuration
type RegistryConfig struct {
	// PluginRoot is the directory scanned for locally installed plugins.
	PluginRoot string

	// RemoteURLs is the ordered list of remote registry endpoints.
	RemoteURLs []string

	// RemoteTimeout bounds each individual remote fetch.
	RemoteTimeout time.Duration

	// CacheTTL is how long remote fetch results are reused.
	CacheTTL time.Duration

	// RefreshSchedule is the cron spec for periodic full refreshes.
	RefreshSchedule string

	// WatchPluginRoot enables filesystem-watch triggered refreshes.
	WatchPluginRoot bool
}

// MonitorConfig holds health monitor configuration
type MonitorConfig struct {
	SweepInterval          time.Duration
	RetentionSweepInterval time.Duration
	AlertRetention         time.Duration

	ErrorRateThreshold      float64
	ResponseTimeThresholdMs float64
	MemoryThresholdBytes    int64
	CPUThreshold            float64
	IdleThreshold           time.Duration

	PerformanceSampleCap int
	ErrorSampleCap       int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Registry:      loadRegistryConfig(),
		Monitor:       loadMonitorConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("PLUGINKIT_HOST", "127.0.0.1"),
		Port:            getEnv("PLUGINKIT_PORT", "8087"),
		ReadTimeout:     getEnvDuration("PLUGINKIT_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("PLUGINKIT_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("PLUGINKIT_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("PLUGINKIT_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// loadRegistryConfig loads registry configuration from environment
func loadRegistryConfig() RegistryConfig {
	cfg := RegistryConfig{
		PluginRoot:      getEnv("PLUGINKIT_PLUGIN_ROOT", defaultPluginRoot()),
		RemoteTimeout:   getEnvDuration("PLUGINKIT_REMOTE_TIMEOUT", 10*time.Second),
		CacheTTL:        getEnvDuration("PLUGINKIT_REMOTE_CACHE_TTL", 5*time.Minute),
		RefreshSchedule: getEnv("PLUGINKIT_REFRESH_SCHEDULE", "@every 15m"),
		WatchPluginRoot: getEnvBool("PLUGINKIT_WATCH_PLUGIN_ROOT", true),
	}

	if urls := getEnv("PLUGINKIT_REMOTE_URLS", ""); urls != "" {
		for _, u := range strings.Split(urls, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.RemoteURLs = append(cfg.RemoteURLs, u)
			}
		}
	}

	return cfg
}

// loadMonitorConfig loads health monitor configuration from environment
func loadMonitorConfig() MonitorConfig {
	return MonitorConfig{
		SweepInterval:          getEnvDuration("PLUGINKIT_SWEEP_INTERVAL", time.Minute),
		RetentionSweepInterval: getEnvDuration("PLUGINKIT_RETENTION_SWEEP_INTERVAL", time.Hour),
		AlertRetention:         getEnvDuration("PLUGINKIT_ALERT_RETENTION", 24*time.Hour),

		ErrorRateThreshold:      getEnvFloat("PLUGINKIT_ERROR_RATE_THRESHOLD", 0.10),
		ResponseTimeThresholdMs: getEnvFloat("PLUGINKIT_RESPONSE_TIME_THRESHOLD_MS", 5000),
		MemoryThresholdBytes:    getEnvInt64("PLUGINKIT_MEMORY_THRESHOLD_BYTES", 512*1024*1024),
		CPUThreshold:            getEnvFloat("PLUGINKIT_CPU_THRESHOLD", 0.8),
		IdleThreshold:           getEnvDuration("PLUGINKIT_IDLE_THRESHOLD", 24*time.Hour),

		PerformanceSampleCap: getEnvInt("PLUGINKIT_PERFORMANCE_SAMPLE_CAP", 100),
		ErrorSampleCap:       getEnvInt("PLUGINKIT_ERROR_SAMPLE_CAP", 50),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       getEnv("PLUGINKIT_LOG_LEVEL", "info"),
		MetricsEnabled: getEnvBool("PLUGINKIT_METRICS_ENABLED", true),
	}
}

func defaultPluginRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "plugins"
	}
	return home + "/.velomail/plugins"
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Registry.PluginRoot == "" {
		return fmt.Errorf("plugin root is required")
	}
	if c.Registry.RemoteTimeout <= 0 {
		return fmt.Errorf("remote timeout must be positive")
	}
	if c.Registry.CacheTTL <= 0 {
		return fmt.Errorf("remote cache TTL must be positive")
	}
	if c.Monitor.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	if c.Monitor.RetentionSweepInterval <= 0 {
		return fmt.Errorf("retention sweep interval must be positive")
	}
	if c.Monitor.ErrorRateThreshold < 0 || c.Monitor.ErrorRateThreshold > 1 {
		return fmt.Errorf("error rate threshold must be within [0,1]")
	}
	if c.Monitor.CPUThreshold < 0 || c.Monitor.CPUThreshold > 1 {
		return fmt.Errorf("cpu threshold must be within [0,1]")
	}
	if c.Monitor.PerformanceSampleCap < 1 {
		return fmt.Errorf("performance sample cap must be at least 1")
	}
	if c.Monitor.ErrorSampleCap < 1 {
		return fmt.Errorf("error sample cap must be at least 1")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
