package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"wageflow/internal/logger"
)

// EnvPrefix is the prefix of every environment variable read into the config.
const EnvPrefix = "WAGEFLOW_"

// Loader builds a Config from defaults, an optional YAML file, the
// environment and explicit overrides, in increasing precedence.
type Loader struct {
	koanf     *koanf.Koanf
	validator *validator.Validate
	environ   func() []string
}

// NewLoader creates a loader reading the process environment.
func NewLoader() *Loader {
	return &Loader{
		koanf:     koanf.New("."),
		validator: validator.New(),
		environ:   os.Environ,
	}
}

// Load loads the configuration. path may be empty; a missing file at an
// explicit path is an error. overrides are dotted keys ("store.path") applied last.
func (l *Loader) Load(ctx context.Context, path string, overrides map[string]any) (*Config, error) {
	log := logger.FromContext(ctx)
	l.koanf = koanf.New(".")

	if err := l.koanf.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := l.loadYAML(path); err != nil {
			return nil, err
		}
		log.Debug("config file loaded", "path", path)
	}

	if err := l.loadEnvironment(); err != nil {
		return nil, err
	}

	for key, value := range overrides {
		if err := l.koanf.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set override %s: %w", key, err)
		}
	}

	return l.unmarshalAndValidate()
}

func (l *Loader) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	// Merge only the keys present in the file so nested defaults survive.
	for key, value := range flattenMap("", raw) {
		if err := l.koanf.Set(key, value); err != nil {
			return fmt.Errorf("failed to set key %s from %s: %w", key, path, err)
		}
	}
	return nil
}

// loadEnvironment maps WAGEFLOW_SECTION_FIELD_NAME to section.field_name.
func (l *Loader) loadEnvironment() error {
	if err := l.koanf.Load(env.Provider(".", env.Opt{
		Prefix:      EnvPrefix,
		EnvironFunc: l.environ,
		TransformFunc: func(key, value string) (string, any) {
			return transformEnvKey(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

// transformEnvKey converts STORE_WAGE_TABLE to store.wage_table.
func transformEnvKey(s string) string {
	parts := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == '_'
	})
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + "." + strings.Join(parts[1:], "_")
	}
}

// flattenMap flattens a nested map into dot-notation keys.
func flattenMap(prefix string, m map[string]any) map[string]any {
	result := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for fk, fv := range flattenMap(key, nested) {
				result[fk] = fv
			}
		} else {
			result[key] = v
		}
	}
	return result
}

func (l *Loader) unmarshalAndValidate() (*Config, error) {
	var cfg Config
	if err := l.koanf.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := l.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags plus the cross-field rules tags cannot express.
func (l *Loader) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if err := l.validator.Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	tables := map[string]string{}
	for _, t := range [][2]string{
		{"store.wage_table", cfg.Store.WageTable},
		{"store.inflation_table", cfg.Store.InflationTable},
		{"store.merged_table", cfg.Store.MergedTable},
	} {
		if prev, dup := tables[t[1]]; dup {
			return fmt.Errorf("configuration validation failed: %s and %s both name table %q", prev, t[0], t[1])
		}
		tables[t[1]] = t[0]
	}
	if cfg.Wage.DateColumn != cfg.Inflation.DateColumn {
		return errors.New("configuration validation failed: wage.date_column and inflation.date_column must match to join")
	}
	return nil
}

// Load is a shorthand for NewLoader().Load.
func Load(ctx context.Context, path string, overrides map[string]any) (*Config, error) {
	return NewLoader().Load(ctx, path, overrides)
}
