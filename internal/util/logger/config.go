// Package logger provides the unified logging entry point for
// hippius-libp2p.
//
// Every subsystem obtains a named logger via logger.Named("subsystem"),
// wrapping go.uber.org/zap. Level is configurable per subsystem through
// the HIPPIUS_LOG_LEVEL environment variable:
//
//	# default info, mDNS discovery at debug, pubsub at warn
//	HIPPIUS_LOG_LEVEL=discovery.mdns=debug,protocol.pubsub=warn,info
//
// Subsystem names are matched exactly ("discovery" does not cover
// "discovery.mdns").
//
// HIPPIUS_LOG_FORMAT selects "text" (default, console-friendly) or "json".
package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// Format selects the log encoding.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Config holds the parsed logging configuration.
type Config struct {
	DefaultLevel    zapcore.Level
	SubsystemLevels map[string]zapcore.Level
	Format          Format
}

// LevelFor returns the configured level for subsystem, falling back to
// the default level.
func (c *Config) LevelFor(subsystem string) zapcore.Level {
	if lvl, ok := c.SubsystemLevels[subsystem]; ok {
		return lvl
	}
	return c.DefaultLevel
}

var (
	configOnce  sync.Once
	configCache *Config
)

// ConfigFromEnv parses HIPPIUS_LOG_LEVEL / HIPPIUS_LOG_FORMAT once and
// caches the result.
func ConfigFromEnv() *Config {
	configOnce.Do(func() {
		configCache = parseConfig()
	})
	return configCache
}

// ResetConfig clears the cached config. Test-only.
func ResetConfig() {
	configOnce = sync.Once{}
	configCache = nil
}

func parseConfig() *Config {
	cfg := &Config{
		DefaultLevel:    zapcore.InfoLevel,
		SubsystemLevels: make(map[string]zapcore.Level),
		Format:          FormatText,
	}

	if levelStr := os.Getenv("HIPPIUS_LOG_LEVEL"); levelStr != "" {
		parseLevelConfig(cfg, levelStr)
	}

	switch strings.ToLower(os.Getenv("HIPPIUS_LOG_FORMAT")) {
	case "json":
		cfg.Format = FormatJSON
	default:
		cfg.Format = FormatText
	}

	return cfg
}

func parseLevelConfig(cfg *Config, spec string) {
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "=") {
			kv := strings.SplitN(part, "=", 2)
			if lvl, ok := parseLevel(strings.TrimSpace(kv[1])); ok {
				cfg.SubsystemLevels[strings.TrimSpace(kv[0])] = lvl
			}
			continue
		}
		if lvl, ok := parseLevel(part); ok {
			cfg.DefaultLevel = lvl
		}
	}
}

func parseLevel(name string) (zapcore.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}
