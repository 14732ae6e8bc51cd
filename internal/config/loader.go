package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// LookupFunc returns the value of an environment variable and whether it
// is set. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads configuration through lookup, applies defaults for unset
// values and validates the result.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}
	if err := decodeSection(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// MustLoad is Load for main packages: it panics instead of returning.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// parser converts one raw variable into a field's value.
type parser func(raw string) (any, error)

var parsers = map[reflect.Type]parser{
	reflect.TypeOf(""): func(raw string) (any, error) { return raw, nil },
	reflect.TypeOf(0): func(raw string) (any, error) {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %w", err)
		}
		return n, nil
	},
	reflect.TypeOf(int64(0)): func(raw string) (any, error) {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %w", err)
		}
		return n, nil
	},
	reflect.TypeOf(false): func(raw string) (any, error) {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("not a boolean: %w", err)
		}
		return b, nil
	},
	reflect.TypeOf(time.Duration(0)): func(raw string) (any, error) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("not a duration: %w", err)
		}
		return d, nil
	},
	reflect.TypeOf([]string(nil)): func(raw string) (any, error) {
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	},
}

// decodeSection fills the exported fields of a config struct. Nested
// structs are sections and are decoded in turn; leaf fields name their
// variable in the env tag.
func decodeSection(section reflect.Value, lookup LookupFunc) error {
	typ := section.Type()
	for i := range typ.NumField() {
		field, value := typ.Field(i), section.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			if err := decodeSection(value, lookup); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := firstSet(lookup, name, field.Tag.Get("envAlt"))
		if !ok {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("%s is required but not set", name)
			}
			raw = field.Tag.Get("default")
		}
		if raw == "" {
			continue
		}

		parse, known := parsers[field.Type]
		if !known {
			return fmt.Errorf("%s: cannot decode into %s", name, field.Type)
		}
		parsed, err := parse(raw)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", name, raw, err)
		}
		value.Set(reflect.ValueOf(parsed).Convert(field.Type))
	}
	return nil
}

// firstSet returns the first non-blank value among the named variables.
func firstSet(lookup LookupFunc, names ...string) (string, bool) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if v, ok := lookup(name); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// String describes the configuration for startup logs. The database URL
// and API keys never appear in it.
func (c *Config) String() string {
	db := "disabled"
	if c.Database.Enabled() {
		db = "[MASKED]"
	}

	sections := []string{
		fmt.Sprintf("Server: {Addr: %q}", c.Server.Addr()),
		fmt.Sprintf("Database: {URL: %s, MaxConns: %d}", db, c.Database.MaxConns),
		fmt.Sprintf("Upload: {MaxFileSize: %d, MaxFiles: %d, MaxConcurrent: %d, SanitizeUTF8: %v}",
			c.Upload.MaxFileSize, c.Upload.MaxFiles, c.Upload.MaxConcurrent, c.Upload.SanitizeUTF8),
		fmt.Sprintf("Pipeline: {PreviewRows: %d, SummaryColumns: %d, Parallelism: %d}",
			c.Pipeline.PreviewRows, c.Pipeline.SummaryColumns, c.Pipeline.Parallelism),
		fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d, UploadLimit: %d}",
			c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.UploadLimit),
		fmt.Sprintf("Security: {RequireAPIKey: %v, APIKeys: %d configured}",
			c.Security.RequireAPIKey, len(c.Security.APIKeys)),
		fmt.Sprintf("Audit: {RetentionDays: %d, MemoryCapacity: %d}", c.Audit.RetentionDays, c.Audit.MemoryCapacity),
		fmt.Sprintf("Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format),
	}
	return "Config{" + strings.Join(sections, ", ") + "}"
}
