package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Load loads configuration from an optional YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (LLAMAPARSE_API_KEY, QDRANT_HOST, ...)
//  2. YAML config file
//  3. Hardcoded defaults
//
// Environment variables map to config keys by lowercasing and turning the
// first underscore into a dot:
//
//	LLAMAPARSE_API_KEY  -> llamaparse.api_key
//	QDRANT_HOST         -> qdrant.host
//	SCRAPER_SETTLE_DELAY -> scraper.settle_delay
//
// The returned config is validated; a missing credential is an error here so
// the caller can halt before doing any work.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// sections are the recognised top-level config keys. Environment variables
// outside these sections are ignored rather than mapped, so unrelated
// variables (PATH, HOME, ...) never leak into the config.
var sections = []string{
	"scraper", "llamaparse", "groq", "qdrant",
	"embedding", "ingest", "retrieval", "logging",
}

// envToKey maps an environment variable name to a config key.
// Returns "" to skip the variable.
func envToKey(name string) string {
	lower := strings.ToLower(name)
	for _, section := range sections {
		if strings.HasPrefix(lower, section+"_") {
			return section + "." + strings.TrimPrefix(lower, section+"_")
		}
	}
	return ""
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("%w: config file exceeds %d bytes", ErrInvalidConfig, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return content, nil
}
