package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tbxark/tallyentry/tally"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()
	conf, err := loadConfig("", env(nil))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if conf.Store.Kind != storeSQLite || conf.Store.SQLitePath != "tallyentry.db" {
		t.Errorf("store = %+v", conf.Store)
	}
	if conf.Owner != "" || conf.LLM.Enabled() {
		t.Errorf("unexpected owner or llm: %+v", conf)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
		"owner": "typist-1",
		"store": {"kind": "redis", "redis_addr": "localhost:6379", "redis_db": 1},
		"election": {"name": "Municipal", "political_groups": [{"number": 1, "name": "A", "candidates": 3}]},
		"llm": {"api_key": "k", "model": "m"}
	}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	conf, err := loadConfig(path, env(map[string]string{
		"TALLYENTRY_OWNER":    "typist-2",
		"TALLYENTRY_REDIS_DB": "4",
		"TALLYENTRY_VERBOSE":  "yes",
	}))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	want := &Config{
		Owner:   "typist-2",
		Verbose: true,
		Store: StoreConfig{
			Kind:       storeRedis,
			SQLitePath: "tallyentry.db",
			RedisAddr:  "localhost:6379",
			RedisDB:    4,
		},
		Election: tally.Election{Name: "Municipal", PoliticalGroups: []tally.PoliticalGroup{{Number: 1, Name: "A", Candidates: 3}}},
		LLM:      LLMConfig{APIKey: "k", Model: "m"},
	}
	if diff := cmp.Diff(want, conf); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if !conf.LLM.Enabled() {
		t.Errorf("llm not enabled")
	}
}

func TestLoadConfigRejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		env  map[string]string
		raw  string
	}{
		{"unknown store", map[string]string{"TALLYENTRY_STORE": "etcd"}, ""},
		{"redis without addr", map[string]string{"TALLYENTRY_STORE": "redis"}, ""},
		{"sqlite without path", nil, `{"store": {"kind": "sqlite", "sqlite_path": " "}}`},
		{"repeated group", nil, `{"election": {"political_groups": [{"number": 1}, {"number": 1}]}}`},
		{"bad json", nil, `{"owner":`},
	}
	for _, tt := range tests {
		path := ""
		if tt.raw != "" {
			path = filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(tt.raw), 0o600); err != nil {
				t.Fatalf("write config: %v", err)
			}
		}
		if _, err := loadConfig(path, env(tt.env)); err == nil {
			t.Errorf("%s: accepted", tt.name)
		}
	}
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.json"), env(nil)); err == nil {
		t.Errorf("missing file accepted")
	}
}

func TestParseEnvHelpers(t *testing.T) {
	t.Parallel()
	get := env(map[string]string{"N": " 7 ", "BAD": "x"})
	if got := parseIntEnv(get, "N", 1); got != 7 {
		t.Errorf("N = %d", got)
	}
	if got := parseIntEnv(get, "BAD", 1); got != 1 {
		t.Errorf("BAD = %d", got)
	}
	if got := parseIntEnv(get, "UNSET", 2); got != 2 {
		t.Errorf("UNSET = %d", got)
	}
	for raw, want := range map[string]bool{"on": true, "1": true, "OFF": false, "no": false} {
		if got := parseBoolString(raw, !want); got != want {
			t.Errorf("parseBoolString(%q) = %v", raw, got)
		}
	}
	if !parseBoolString("maybe", true) {
		t.Errorf("fallback not used")
	}
}
