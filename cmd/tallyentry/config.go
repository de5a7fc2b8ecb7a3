package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/tbxark/tallyentry/tally"
)

const (
	storeMemory = "memory"
	storeSQLite = "sqlite"
	storeRedis  = "redis"
)

type Config struct {
	// Owner identifies this workstation towards the store. Entries claimed by
	// another owner cannot be opened.
	Owner    string         `json:"owner"`
	Verbose  bool           `json:"verbose"`
	Store    StoreConfig    `json:"store"`
	Election tally.Election `json:"election"`
	LLM      LLMConfig      `json:"llm"`
}

type StoreConfig struct {
	Kind          string `json:"kind"`
	SQLitePath    string `json:"sqlite_path"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	Namespace     string `json:"namespace"`
}

type LLMConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Kind:       storeSQLite,
			SQLitePath: "tallyentry.db",
		},
		Election: tally.Election{Name: "default"},
	}
}

// loadConfig reads path when given, then applies TALLYENTRY_* overrides.
func loadConfig(path string, getenv func(string) string) (*Config, error) {
	conf := defaultConfig()
	if strings.TrimSpace(path) != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := sonic.Unmarshal(file, conf); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(conf, getenv)
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func applyEnv(conf *Config, getenv func(string) string) {
	if getenv == nil {
		return
	}
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("TALLYENTRY_OWNER", &conf.Owner)
	str("TALLYENTRY_STORE", &conf.Store.Kind)
	str("TALLYENTRY_SQLITE_PATH", &conf.Store.SQLitePath)
	str("TALLYENTRY_REDIS_ADDR", &conf.Store.RedisAddr)
	str("TALLYENTRY_REDIS_PASSWORD", &conf.Store.RedisPassword)
	str("TALLYENTRY_NAMESPACE", &conf.Store.Namespace)
	str("TALLYENTRY_LLM_API_KEY", &conf.LLM.APIKey)
	str("TALLYENTRY_LLM_BASE_URL", &conf.LLM.BaseURL)
	str("TALLYENTRY_LLM_MODEL", &conf.LLM.Model)
	conf.Store.RedisDB = parseIntEnv(getenv, "TALLYENTRY_REDIS_DB", conf.Store.RedisDB)
	conf.Verbose = parseBoolString(getenv("TALLYENTRY_VERBOSE"), conf.Verbose)
}

func (c *Config) validate() error {
	c.Store.Kind = strings.ToLower(strings.TrimSpace(c.Store.Kind))
	switch c.Store.Kind {
	case storeMemory:
	case storeSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite store")
		}
	case storeRedis:
		if strings.TrimSpace(c.Store.RedisAddr) == "" {
			return fmt.Errorf("store.redis_addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	seen := make(map[int]bool, len(c.Election.PoliticalGroups))
	for _, pg := range c.Election.PoliticalGroups {
		if pg.Number <= 0 || seen[pg.Number] {
			return fmt.Errorf("political group number %d is invalid or repeated", pg.Number)
		}
		if pg.Candidates < 0 {
			return fmt.Errorf("political group %d has a negative candidate count", pg.Number)
		}
		seen[pg.Number] = true
	}
	return nil
}

func parseIntEnv(getenv func(string) string, key string, fallback int) int {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func parseBoolString(raw string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
