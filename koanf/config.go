// Package koanf loads refdex.Config from a YAML file and the environment.
package koanf

import (
	"fmt"
	"os"
	"strings"

	"github.com/fwojciec/refdex"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides. A double underscore separates
// nesting levels: REFDEX_LLM__API_KEY sets llm.api_key.
const EnvPrefix = "REFDEX_"

// DefaultPath is the config file read when no path is given.
const DefaultPath = "refdex.yaml"

// Load starts from refdex.DefaultConfig, overlays the YAML file at path
// when it exists, then REFDEX_* environment variables, and validates the
// result.
func Load(path string) (*refdex.Config, error) {
	k := koanf.New(".")

	cfg := refdex.DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, refdex.Errorf(refdex.EINVALID, "reading config %s: %v", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	// Decoding a list into a populated slice keeps trailing defaults.
	if k.Exists("crawl.stop_words") {
		cfg.Crawl.StopWords = nil
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, refdex.Errorf(refdex.EINVALID, "decoding config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}
