// Package config reads environment configuration for the harlens binaries.
// A .env file in the working directory is honored when present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ServerConfig holds configuration for the analysis API server.
type ServerConfig struct {
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool
	LiveCapacity     int
	LogLevel         string
	LogFile          string
}

// LoadServer reads server configuration from environment variables.
func LoadServer() (*ServerConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &ServerConfig{
		BindAddr:         getEnvOrDefault("HARLENS_BIND_ADDR", "127.0.0.1:8123"),
		PortCandidates:   getEnvListOrDefault("HARLENS_PORT_CANDIDATES", []string{"127.0.0.1:8124", "127.0.0.1:8125"}),
		PortAutoFallback: getEnvBoolOrDefault("HARLENS_PORT_AUTO_FALLBACK", true),
		LiveCapacity:     getEnvIntOrDefault("HARLENS_LIVE_CAPACITY", 10000),
		LogLevel:         strings.ToLower(getEnvOrDefault("HARLENS_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("HARLENS_LOG_FILE", "logs/harlens.log"),
	}
	return cfg, nil
}

// RecorderConfig holds configuration for the passive browser recorder.
type RecorderConfig struct {
	// CDP connection settings
	CDPAddress string
	CDPPort    int

	// Tab matching and behavior
	TabURLFilter   string
	ReloadOnAttach bool

	// Archive settings
	DataDir       string
	MaxFileSizeMB int
	BufferSize    int

	// Payload safety limits
	MaxBodyBytes int

	// Live buffer
	LiveCapacity int

	// Optional webhook hit when the session ends. Empty disables it.
	NotifyEndpoint string

	LogLevel string
	LogFile  string
}

// LoadRecorder reads recorder configuration from environment variables.
func LoadRecorder() (*RecorderConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &RecorderConfig{
		CDPAddress:     getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:        getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		TabURLFilter:   getEnvOrDefault("HARLENS_TAB_URL_FILTER", ""),
		ReloadOnAttach: getEnvBoolOrDefault("HARLENS_RELOAD_ON_ATTACH", false),
		DataDir:        getEnvOrDefault("HARLENS_DATA_DIR", "./capture_data"),
		MaxFileSizeMB:  getEnvIntOrDefault("HARLENS_MAX_FILE_SIZE_MB", 200),
		BufferSize:     getEnvIntOrDefault("HARLENS_BUFFER_SIZE", 5000),
		MaxBodyBytes:   getEnvIntOrDefault("HARLENS_MAX_BODY_BYTES", 10*1024*1024),
		LiveCapacity:   getEnvIntOrDefault("HARLENS_LIVE_CAPACITY", 10000),
		NotifyEndpoint: getEnvOrDefault("HARLENS_NOTIFY_ENDPOINT", ""),
		LogLevel:       strings.ToLower(getEnvOrDefault("HARLENS_LOG_LEVEL", "info")),
		LogFile:        getEnvOrDefault("HARLENS_LOG_FILE", "logs/recorder.log"),
	}
	return cfg, nil
}

// CDPURL returns the full CDP HTTP endpoint used by the chromedp remote
// allocator.
func (c *RecorderConfig) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
