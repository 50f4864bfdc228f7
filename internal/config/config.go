package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	HTTPAddr        string
	LogLevel        zapcore.Level
	OriginAllowlist []string
	RulesFile       string
	Rules           Rules
}

func Load() (Config, error) {
	c := Config{
		HTTPAddr:        envOr("HTTP_ADDR", ":4000"),
		OriginAllowlist: splitList(os.Getenv("ORIGIN_ALLOWLIST")),
		RulesFile:       os.Getenv("RULES_FILE"),
		Rules:           DefaultRules(),
	}

	level, err := zapcore.ParseLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	c.LogLevel = level

	if c.RulesFile != "" {
		r, err := LoadRulesFile(c.RulesFile)
		if err != nil {
			return Config{}, err
		}
		c.Rules = r
	}

	if v := os.Getenv("TRICK_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TRICK_DELAY %q: %w", v, err)
		}
		if d < 0 {
			return Config{}, fmt.Errorf("invalid TRICK_DELAY %q: negative", v)
		}
		c.Rules.TrickDelay = d
	}

	return c, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
