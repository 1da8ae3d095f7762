// Package logging builds the zap logger used by featgen.
//
// Logs go to stderr; stdout is reserved for the single success line.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variables read by ConfigFromEnv.
const (
	LevelEnv = "LOG_LEVEL"
	DevEnv   = "LOG_DEV"
)

// Config selects the level and encoder of the process logger.
type Config struct {
	// Level is a zap level name such as "debug" or "warn". Unknown names log at info.
	Level string
	// Dev swaps the JSON encoder for zap's console development output.
	Dev bool
}

// ConfigFromEnv builds a Config from LOG_LEVEL and LOG_DEV=1. Without a level,
// development mode logs at debug and everything else at info.
func ConfigFromEnv() Config {
	cfg := Config{
		Level: strings.ToLower(strings.TrimSpace(os.Getenv(LevelEnv))),
		Dev:   os.Getenv(DevEnv) == "1",
	}
	if cfg.Level == "" {
		cfg.Level = "info"
		if cfg.Dev {
			cfg.Level = "debug"
		}
	}
	return cfg
}

// zapLevel accepts "warning" as an alias for "warn".
func (c Config) zapLevel() zapcore.Level {
	name := c.Level
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Init builds the logger for cfg. Both encoders write to stderr.
func Init(cfg Config) (*zap.Logger, error) {
	lvl := cfg.zapLevel()
	if cfg.Dev {
		dev := zap.NewDevelopmentConfig()
		dev.Level = zap.NewAtomicLevelAt(lvl)
		return dev.Build()
	}

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(os.Stderr), lvl)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
