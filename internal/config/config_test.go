package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/matzehuels/stacksolve/pkg/errors"
	"github.com/matzehuels/stacksolve/pkg/metadata"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stacksolve.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Workers != 20 || cfg.MaxIterations != 100 {
		t.Errorf("Default() = workers %d, iterations %d", cfg.Workers, cfg.MaxIterations)
	}
	if cfg.Cache.Backend != BackendFile {
		t.Errorf("Cache.Backend = %q, want %q", cfg.Cache.Backend, BackendFile)
	}
	if cfg.Cache.TTL != metadata.DefaultTTL {
		t.Errorf("Cache.TTL = %v", cfg.Cache.TTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
catalog = "catalog.toml"
root = ":app"
workers = 4
timeout = "30s"

[cache]
backend = "redis"
redis_addr = "localhost:6379"
redis_db = 2
ttl = "1h"

[metrics]
textfile = "metrics.prom"

[[require]]
module = "org:lib"
version = "[1.0,2.0)"
prefer = "1.5"

[[require]]
project = ":shared"
`)
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Catalog != "catalog.toml" || cfg.Root != ":app" {
		t.Errorf("catalog/root = %q/%q", cfg.Catalog, cfg.Root)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.MaxIterations != 100 {
		t.Errorf("MaxIterations = %d, want default 100", cfg.MaxIterations)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.Cache.Backend != BackendRedis || cfg.Cache.RedisDB != 2 || cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Metrics.Textfile != "metrics.prom" {
		t.Errorf("Metrics.Textfile = %q", cfg.Metrics.Textfile)
	}

	reqs, err := cfg.Requirements()
	if err != nil {
		t.Fatalf("Requirements() error: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("len(Requirements()) = %d, want 2", len(reqs))
	}
	ms, ok := reqs[0].(selector.ModuleSelector)
	if !ok {
		t.Fatalf("reqs[0] = %T, want ModuleSelector", reqs[0])
	}
	if ms.Module.String() != "org:lib" || ms.Constraint.Preferred != "1.5" {
		t.Errorf("reqs[0] = %+v", ms)
	}
	if ps, ok := reqs[1].(selector.ProjectSelector); !ok || ps.Path != ":shared" {
		t.Errorf("reqs[1] = %#v", reqs[1])
	}
}

func TestLoadUnknownKey(t *testing.T) {
	path := writeConfig(t, "workers = 2\nwrokers = 3\n")
	_, err := Load(path, nil)
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Load() error = %v, want INVALID_CONFIG", err)
	}
}

func TestLoadSyntaxError(t *testing.T) {
	path := writeConfig(t, "workers = \n")
	_, err := Load(path, nil)
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Load() error = %v, want INVALID_CONFIG", err)
	}
}

func TestLoadMissingExplicit(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), nil)
	if err == nil {
		t.Error("Load() of a missing explicit file should fail")
	}
}

func TestLoadMissingDefault(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.Workers != Default().Workers {
		t.Errorf("Workers = %d, want default", cfg.Workers)
	}
}

func TestLoadDefaultFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte("workers = 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.Workers != 7 {
		t.Errorf("Workers = %d, want 7", cfg.Workers)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "workers = 2\ncatalog = \"a.toml\"\n")
	t.Setenv("STACKSOLVE_WORKERS", "9")
	t.Setenv("STACKSOLVE_CATALOG", "b.yaml")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Workers != 9 || cfg.Catalog != "b.yaml" {
		t.Errorf("env not applied: workers=%d catalog=%q", cfg.Workers, cfg.Catalog)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	env := map[string]string{
		"STACKSOLVE_ROOT":             ":svc",
		"STACKSOLVE_MAX_ITERATIONS":   "5",
		"STACKSOLVE_TIMEOUT":          "2m",
		"STACKSOLVE_CACHE_BACKEND":    "mongo",
		"STACKSOLVE_CACHE_DIR":        "/tmp/c",
		"STACKSOLVE_CACHE_TTL":        "10m",
		"STACKSOLVE_REDIS_ADDR":       "r:6379",
		"STACKSOLVE_REDIS_DB":         "3",
		"STACKSOLVE_MONGO_URI":        "mongodb://m",
		"STACKSOLVE_MONGO_DATABASE":   "db",
		"STACKSOLVE_MONGO_COLLECTION": "coll",
		"STACKSOLVE_METRICS_TEXTFILE": "out.prom",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := CacheConfig{
		Backend:         BackendMongo,
		Dir:             "/tmp/c",
		TTL:             10 * time.Minute,
		RedisAddr:       "r:6379",
		RedisDB:         3,
		MongoURI:        "mongodb://m",
		MongoDatabase:   "db",
		MongoCollection: "coll",
	}
	if cfg.Cache != want {
		t.Errorf("Cache = %+v, want %+v", cfg.Cache, want)
	}
	if cfg.Root != ":svc" || cfg.MaxIterations != 5 || cfg.Timeout != 2*time.Minute {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Metrics.Textfile != "out.prom" {
		t.Errorf("Metrics.Textfile = %q", cfg.Metrics.Textfile)
	}
}

func TestLoadEnvInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"workers", "STACKSOLVE_WORKERS", "many"},
		{"redis db", "STACKSOLVE_REDIS_DB", "x"},
		{"timeout", "STACKSOLVE_TIMEOUT", "soon"},
		{"ttl", "STACKSOLVE_CACHE_TTL", "1 day"},
		{"negative workers", "STACKSOLVE_WORKERS", "-3"},
		{"backend", "STACKSOLVE_CACHE_BACKEND", "s3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.val)
			if _, err := Load("", nil); !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Load() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestLoadFlagsOverrideEnvAndFile(t *testing.T) {
	path := writeConfig(t, "workers = 2\ncatalog = \"a.toml\"\ntimeout = \"1m\"\n")
	t.Setenv("STACKSOLVE_WORKERS", "9")
	t.Setenv("STACKSOLVE_ROOT", ":env")

	flags := pflag.NewFlagSet("resolve", pflag.ContinueOnError)
	flags.String("catalog", "", "")
	flags.String("root", "", "")
	flags.Int("workers", 0, "")
	flags.Duration("timeout", 0, "")
	if err := flags.Parse([]string{"--workers", "3", "--catalog", "c.json"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Workers != 3 || cfg.Catalog != "c.json" {
		t.Errorf("flags not applied: workers=%d catalog=%q", cfg.Workers, cfg.Catalog)
	}
	if cfg.Root != ":env" {
		t.Errorf("unset flag hid the environment: root=%q", cfg.Root)
	}
	if cfg.Timeout != time.Minute {
		t.Errorf("unset flag hid the file: timeout=%v", cfg.Timeout)
	}
}

func TestValidateMessages(t *testing.T) {
	tests := []struct {
		modify func(*Config)
		want   string
	}{
		{func(c *Config) { c.Workers = -1 }, "workers must not be negative"},
		{func(c *Config) { c.Cache.Backend = "s3" }, `cache.backend must be one of none memory file redis mongo, got "s3"`},
		{func(c *Config) { c.Cache.Backend = BackendRedis }, "cache.redis_addr is required when Backend is redis"},
		{func(c *Config) { c.Root = "app" }, `root: "app" is not a project path`},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want message containing %q", err, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"negative workers", func(c *Config) { c.Workers = -1 }, false},
		{"negative iterations", func(c *Config) { c.MaxIterations = -1 }, false},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, false},
		{"bad root", func(c *Config) { c.Root = "app" }, false},
		{"project root", func(c *Config) { c.Root = ":app" }, true},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "s3" }, false},
		{"none backend", func(c *Config) { c.Cache.Backend = BackendNone }, true},
		{"memory backend", func(c *Config) { c.Cache.Backend = BackendMemory }, true},
		{"redis without addr", func(c *Config) { c.Cache.Backend = BackendRedis }, false},
		{"redis", func(c *Config) { c.Cache.Backend = BackendRedis; c.Cache.RedisAddr = "localhost:6379" }, true},
		{"mongo without database", func(c *Config) { c.Cache.Backend = BackendMongo; c.Cache.MongoURI = "mongodb://x" }, false},
		{"mongo", func(c *Config) {
			c.Cache.Backend = BackendMongo
			c.Cache.MongoURI = "mongodb://x"
			c.Cache.MongoDatabase = "db"
		}, true},
		{"bad require", func(c *Config) {
			c.Require = []metadata.DependencyDoc{{Module: "noseparator"}}
		}, false},
		{"require both kinds", func(c *Config) {
			c.Require = []metadata.DependencyDoc{{Module: "g:n", Project: ":p"}}
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Validate() = %v, want INVALID_CONFIG", err)
			}
		})
	}
}
