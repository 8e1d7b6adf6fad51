// Package config handles loading and accessing application configuration
// using Viper, supporting environment variables and config files. It also
// provides a generic, struct-tag-driven loader (Load, Validate, MergeEnv,
// LoadFromEnv) for smaller typed config structs that don't need Viper's
// full file-format surface.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/viper"
)

// ValidationError reports a single struct-tag validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: validation failed for %q: %s", e.Field, e.Message)
}

// Load reads a JSON file into a zero-valued T, applies struct-tag defaults
// to any field the file leaves out and that is at its zero value, and
// validates the result. A top-level key present in the file (even with a
// zero value) is never overwritten by a default.
func Load[T any](path string) (T, error) {
	var cfg T
	if !strings.HasSuffix(path, ".json") {
		return cfg, fmt.Errorf("config: unsupported file extension: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	var raw map[string]json.RawMessage
	_ = json.Unmarshal(data, &raw)
	provided := map[string]bool{}
	if rt := reflect.TypeOf(cfg); rt != nil && rt.Kind() == reflect.Struct {
		for i := 0; i < rt.NumField(); i++ {
			key, _, _ := strings.Cut(rt.Field(i).Tag.Get("json"), ",")
			if _, ok := raw[key]; ok && key != "" {
				provided[rt.Field(i).Name] = true
			}
		}
	}
	if err := applyDefaultsSelective(&cfg, provided); err != nil {
		return cfg, err
	}
	if err := Validate(&cfg); err != nil {
		var zero T
		return zero, err
	}
	return cfg, nil
}

// LoadFromEnv populates a zero-valued T entirely from environment variables
// named PREFIX_FIELDNAME, applies defaults to any field an env var didn't
// set, and validates the result.
func LoadFromEnv[T any](prefix string) (T, error) {
	var cfg T
	rv := reflect.ValueOf(&cfg).Elem()
	set, err := mergeEnvInto(rv, prefix)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := applyDefaultsSelective(&cfg, topLevelKeys(set)); err != nil {
		var zero T
		return zero, err
	}
	if err := Validate(&cfg); err != nil {
		var zero T
		return zero, err
	}
	return cfg, nil
}

// MergeEnv overlays environment variable values (named PREFIX_FIELDNAME)
// onto an existing config value, leaving fields with no corresponding env
// var untouched. v must be a pointer to a struct.
func MergeEnv(v any, prefix string) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: MergeEnv requires a pointer to a struct")
	}
	_, err := mergeEnvInto(rv.Elem(), prefix)
	return err
}

// Validate checks a pointer-to-struct against its required/min/max tags.
func Validate(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: Validate requires a pointer to a struct")
	}
	if err := validateRequired(v, nil); err != nil {
		return err
	}
	return checkBounds(rv.Elem())
}

// validateRequired checks required:"true" fields on v, a pointer to a
// struct. Non-struct pointees are a no-op (nil error).
func validateRequired(v any, _ []string) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return nil
	}
	return checkRequired(rv.Elem())
}

func checkRequired(rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := rv.Field(i)
		if fv.Kind() == reflect.Struct && fv.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := checkRequired(fv); err != nil {
				return err
			}
			continue
		}
		if field.Tag.Get("required") == "true" && fv.IsZero() {
			return &ValidationError{Field: field.Name, Message: "is required"}
		}
	}
	return nil
}

func checkBounds(rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := rv.Field(i)
		if fv.Kind() == reflect.Struct && fv.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := checkBounds(fv); err != nil {
				return err
			}
			continue
		}
		if minTag, ok := field.Tag.Lookup("min"); ok {
			minVal, err := strconv.ParseFloat(minTag, 64)
			if err != nil {
				return fmt.Errorf("config: invalid min tag on %s: %w", field.Name, err)
			}
			if numericValue(fv) < minVal {
				return &ValidationError{Field: field.Name, Message: fmt.Sprintf("value %v is less than minimum %v", numericValue(fv), minVal)}
			}
		}
		if maxTag, ok := field.Tag.Lookup("max"); ok {
			maxVal, err := strconv.ParseFloat(maxTag, 64)
			if err != nil {
				return fmt.Errorf("config: invalid max tag on %s: %w", field.Name, err)
			}
			if numericValue(fv) > maxVal {
				return &ValidationError{Field: field.Name, Message: fmt.Sprintf("value %v is greater than maximum %v", numericValue(fv), maxVal)}
			}
		}
	}
	return nil
}

func numericValue(fv reflect.Value) float64 {
	switch fv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(fv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(fv.Uint())
	case reflect.Float32, reflect.Float64:
		return fv.Float()
	}
	return 0
}

// applyDefaults sets every zero-valued field tagged `default:"..."` on v, a
// pointer to a struct, recursing into nested structs. Non-struct pointees
// are a no-op.
func applyDefaults(v any) error {
	return applyDefaultsSelective(v, nil)
}

// applyDefaultsSelective is applyDefaults but skips top-level fields named
// in skip (used by Load and LoadFromEnv to avoid overwriting a value the
// file or an env var already set).
func applyDefaultsSelective(v any, skip map[string]bool) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return nil
	}
	rv = rv.Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := rv.Field(i)
		if fv.Kind() == reflect.Struct && fv.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := applyDefaultsSelective(fv.Addr().Interface(), nil); err != nil {
				return err
			}
			continue
		}
		if skip != nil && skip[field.Name] {
			continue
		}
		def, ok := field.Tag.Lookup("default")
		if !ok || !fv.IsZero() {
			continue
		}
		if err := setFieldFromString(fv, def); err != nil {
			return fmt.Errorf("config: default for %s: %w", field.Name, err)
		}
	}
	return nil
}

func setFieldFromString(fv reflect.Value, s string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field type %s", fv.Kind())
	}
	return nil
}

// mergeEnvInto walks rv (a struct value), setting any field with a
// corresponding PREFIX_FIELDNAME environment variable, recursing into
// nested structs with an extended prefix. It returns the set of top-level
// field names it touched (dotted for nested fields, e.g. "App.Host").
func mergeEnvInto(rv reflect.Value, prefix string) (map[string]bool, error) {
	set := map[string]bool{}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := rv.Field(i)
		envName := prefix + "_" + toEnvName(field.Name)
		if fv.Kind() == reflect.Struct && fv.Type() != reflect.TypeOf(time.Duration(0)) {
			nested, err := mergeEnvInto(fv, envName)
			if err != nil {
				return nil, err
			}
			for k := range nested {
				set[field.Name+"."+k] = true
			}
			continue
		}
		val, ok := os.LookupEnv(envName)
		if !ok {
			continue
		}
		if err := setFieldFromString(fv, val); err != nil {
			return nil, fmt.Errorf("config: env %s: %w", envName, err)
		}
		set[field.Name] = true
	}
	return set, nil
}

func topLevelKeys(set map[string]bool) map[string]bool {
	out := make(map[string]bool, len(set))
	for k := range set {
		if i := strings.Index(k, "."); i >= 0 {
			k = k[:i]
		}
		out[k] = true
	}
	return out
}

// toEnvName converts a Go exported field name to SCREAMING_SNAKE_CASE,
// keeping acronym runs together (BaseURL -> BASE_URL, userID -> USER_ID).
func toEnvName(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			switch {
			case unicode.IsLower(prev):
				b.WriteByte('_')
			case unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// RootConfig is the top-level application configuration: the storage root
// directory, the default chat provider, a per-provider block keyed by
// provider name, and the conversation write-lock backend. Loaded with
// Viper so it can come from a YAML/JSON/TOML file, environment variables,
// or both.
type RootConfig struct {
	StorageRoot     string                    `mapstructure:"storage_root"`
	DefaultProvider string                    `mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `mapstructure:"providers"`
	Lock            LockConfig                `mapstructure:"lock"`

	// ConfigFileUsed is the file Viper actually resolved, or "" when none
	// was found. Not part of the config schema itself; set by
	// LoadRootConfig so callers that want to hot-reload (see Watcher) know
	// what to watch.
	ConfigFileUsed string `mapstructure:"-"`
}

// LockConfig selects and configures the conversation write-serialization
// lock backend (§5): an in-process mutex map for single-instance
// deployments, or Redis for multi-instance ones.
type LockConfig struct {
	Backend   string `mapstructure:"backend"` // "inmemory" or "redis"
	RedisAddr string `mapstructure:"redis_addr"`
}

// LoadRootConfig reads the root configuration using Viper: it looks for a
// file named "agentcore" (any Viper-supported extension) in ".",
// "/etc/agentcore/", "$HOME/.agentcore", and any caller-supplied paths,
// then overlays environment variables prefixed AGENTCORE_ (nested keys
// joined with "_", e.g. AGENTCORE_LOCK_BACKEND).
func LoadRootConfig(searchPaths ...string) (*RootConfig, error) {
	v := viper.New()
	v.SetConfigName("agentcore")

	v.SetDefault("default_provider", "openai")
	v.SetDefault("lock.backend", "inmemory")

	v.AddConfigPath(".")
	v.AddConfigPath("/etc/agentcore/")
	v.AddConfigPath("$HOME/.agentcore")
	for _, path := range searchPaths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read root config: %w", err)
		}
	}

	v.SetEnvPrefix("AGENTCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg RootConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode root config: %w", err)
	}
	cfg.ConfigFileUsed = v.ConfigFileUsed()
	return &cfg, nil
}
