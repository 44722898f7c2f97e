// Package config loads stacksolve.toml with viper and validates it.
//
// Precedence, lowest first: built-in defaults, the config file, STACKSOLVE_*
// environment variables, command-line flags the user set.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/matzehuels/stacksolve/pkg/errors"
	"github.com/matzehuels/stacksolve/pkg/metadata"
	"github.com/matzehuels/stacksolve/pkg/resolve"
	"github.com/matzehuels/stacksolve/pkg/selector"
)

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "stacksolve.toml"

// Cache backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config is the complete CLI configuration.
type Config struct {
	Catalog       string                   `toml:"catalog"`
	Root          string                   `toml:"root" validate:"omitempty,project_path"`
	Workers       int                      `toml:"workers" validate:"gte=0"`
	MaxIterations int                      `toml:"max_iterations" validate:"gte=0"`
	Timeout       time.Duration            `toml:"timeout" validate:"gte=0"`
	Cache         CacheConfig              `toml:"cache"`
	Metrics       MetricsConfig            `toml:"metrics"`
	Require       []metadata.DependencyDoc `toml:"require"`
}

// CacheConfig selects and configures the metadata cache backend.
type CacheConfig struct {
	Backend string        `toml:"backend" validate:"omitempty,oneof=none memory file redis mongo"`
	Dir     string        `toml:"dir"` // file backend; empty means the user cache dir
	TTL     time.Duration `toml:"ttl" validate:"gte=0"`

	RedisAddr string `toml:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB   int    `toml:"redis_db" validate:"gte=0"`

	MongoURI        string `toml:"mongo_uri" validate:"required_if=Backend mongo"`
	MongoDatabase   string `toml:"mongo_database" validate:"required_if=Backend mongo"`
	MongoCollection string `toml:"mongo_collection"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `toml:"textfile"` // written after each run when set
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Workers:       resolve.DefaultWorkers,
		MaxIterations: resolve.DefaultMaxIterations,
		Cache: CacheConfig{
			Backend: BackendFile,
			TTL:     metadata.DefaultTTL,
		},
	}
}

// envAliases binds settings whose variable name does not follow the key
// path. Every other key maps to STACKSOLVE_ plus the upper-cased key with
// dots replaced by underscores.
var envAliases = map[string]string{
	"cache.redis_addr":       "STACKSOLVE_REDIS_ADDR",
	"cache.redis_db":         "STACKSOLVE_REDIS_DB",
	"cache.mongo_uri":        "STACKSOLVE_MONGO_URI",
	"cache.mongo_database":   "STACKSOLVE_MONGO_DATABASE",
	"cache.mongo_collection": "STACKSOLVE_MONGO_COLLECTION",
}

// flagKeys maps command-line flags to the settings they override.
var flagKeys = map[string]string{
	"catalog": "catalog",
	"root":    "root",
	"workers": "workers",
	"timeout": "timeout",
}

// Load layers the defaults, the config file at path, STACKSOLVE_*
// variables and the flags the user set, then validates the result. An
// empty path reads DefaultFile if it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := newViper()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				return Default(), err
			}
			return Default(), errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Default(), errors.Wrap(errors.ErrCodeInternal, err, "bind --%s", name)
				}
			}
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg, viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
	})); err != nil {
		return Default(), errors.Wrap(errors.ErrCodeInvalidConfig, err, "load config")
	}
	return cfg, cfg.Validate()
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("STACKSOLVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		_ = v.BindEnv(key, env)
	}

	d := Default()
	v.SetDefault("catalog", d.Catalog)
	v.SetDefault("root", d.Root)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("max_iterations", d.MaxIterations)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.redis_db", d.Cache.RedisDB)
	v.SetDefault("cache.mongo_uri", d.Cache.MongoURI)
	v.SetDefault("cache.mongo_database", d.Cache.MongoDatabase)
	v.SetDefault("cache.mongo_collection", d.Cache.MongoCollection)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
	return v
}

var validate = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		return name
	})
	_ = val.RegisterValidation("project_path", func(fl validator.FieldLevel) bool {
		return errors.ValidateProjectPath(fl.Field().String()) == nil
	})
	return val
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !stderrors.As(err, &verrs) || len(verrs) == 0 {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "validate config")
		}
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", describe(verrs[0]))
	}
	_, err := c.Requirements()
	return err
}

func describe(fe validator.FieldError) string {
	key := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "gte":
		return key + " must not be negative"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s, got %q", key, fe.Param(), fe.Value())
	case "required_if":
		return fmt.Sprintf("%s is required when %s", key, strings.Replace(fe.Param(), " ", " is ", 1))
	case "project_path":
		return fmt.Sprintf("%s: %q is not a project path", key, fe.Value())
	}
	return fmt.Sprintf("%s failed %s", key, fe.Tag())
}

// Requirements converts the [[require]] entries into selectors.
func (c Config) Requirements() ([]selector.ComponentSelector, error) {
	out := make([]selector.ComponentSelector, 0, len(c.Require))
	for i, d := range c.Require {
		s, err := d.Selector()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "require[%d]", i)
		}
		out = append(out, s)
	}
	return out, nil
}
