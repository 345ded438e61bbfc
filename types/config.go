package types

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/zero-day-ai/bolt/pluginerr"
)

var validate = validator.New()

// Config is the one-time configuration handed to a plugin instance at
// initialization.
//
// TimeoutMs, RetryCount, RetryIntervalMs and MaxConcurrent are advisory hints.
// The plugin runtime never enforces them; plugins and host adapters may.
type Config struct {
	PluginID     string         `json:"pluginId" yaml:"plugin_id"`
	Version      string         `json:"version,omitempty" yaml:"version"`
	InstanceID   string         `json:"instanceId,omitempty" yaml:"instance_id"`
	InstanceName string         `json:"instanceName,omitempty" yaml:"instance_name"`
	Properties   map[string]any `json:"properties,omitempty" yaml:"properties"`

	TimeoutMs       int64 `json:"timeoutMs,omitempty" yaml:"timeout_ms" validate:"gte=0"`
	RetryCount      int   `json:"retryCount,omitempty" yaml:"retry_count" validate:"gte=0"`
	RetryIntervalMs int64 `json:"retryIntervalMs,omitempty" yaml:"retry_interval_ms" validate:"gte=0"`
	MaxConcurrent   int   `json:"maxConcurrent,omitempty" yaml:"max_concurrent" validate:"gte=0"`
}

// Validate checks the advisory hints are non-negative.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid plugin config: %w", err)
	}
	return nil
}

// Clone returns a copy of c whose Properties map can be modified without
// affecting c. Property values themselves are shared.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	cp := *c
	if c.Properties != nil {
		cp.Properties = make(map[string]any, len(c.Properties))
		for k, v := range c.Properties {
			cp.Properties[k] = v
		}
	}
	return &cp
}

// Timeout returns TimeoutMs as a duration, or 0 when unset.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// RetryInterval returns RetryIntervalMs as a duration, or 0 when unset.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalMs) * time.Millisecond
}

// Property returns the raw property stored under key.
func (c *Config) Property(key string) (any, bool) {
	if c == nil || c.Properties == nil {
		return nil, false
	}
	v, ok := c.Properties[key]
	if ok && v == nil {
		return nil, false
	}
	return v, ok
}

// StringProperty returns the property under key formatted as a string, or def
// when it is absent.
func (c *Config) StringProperty(key, def string) string {
	v, ok := c.Property(key)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// IntProperty returns the property under key as an int. Numeric strings are
// parsed. Absent or unparsable values yield def.
func (c *Config) IntProperty(key string, def int) int {
	v, ok := c.Property(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}

// BoolProperty returns the property under key as a bool. The strings "true"
// and "false" (any case accepted by strconv.ParseBool) are parsed.
func (c *Config) BoolProperty(key string, def bool) bool {
	v, ok := c.Property(key)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return def
}

// RequiredProperty returns the property under key, or a CONFIG_MISSING error.
func (c *Config) RequiredProperty(key string) (any, error) {
	v, ok := c.Property(key)
	if !ok {
		return nil, pluginerr.ConfigMissing(key).WithPlugin(c.pluginID())
	}
	return v, nil
}

// RequiredString is RequiredProperty for string values. An empty string counts
// as missing.
func (c *Config) RequiredString(key string) (string, error) {
	v, err := c.RequiredProperty(key)
	if err != nil {
		return "", err
	}
	s := fmt.Sprint(v)
	if s == "" {
		return "", pluginerr.ConfigMissing(key).WithPlugin(c.pluginID())
	}
	return s, nil
}

// Decode decodes Properties into target, a pointer to a settings struct.
// Fields are matched by their json tag. Duration strings such as "5s" are
// accepted for time.Duration fields. After decoding, target is validated
// against its validate tags. Struct targets first get the values of their
// default tags, so absent properties keep those defaults.
//
// Example:
//
//	var settings struct {
//	    DSN     string        `json:"dsn" validate:"required"`
//	    Timeout time.Duration `json:"timeout" default:"5s"`
//	}
//	if err := cfg.Decode(&settings); err != nil {
//	    return err
//	}
func (c *Config) Decode(target any) error {
	if isStructPointer(target) {
		if err := defaults.Set(target); err != nil {
			return pluginerr.New(pluginerr.CodeInvalidParam, "failed to apply default values").
				WithPlugin(c.pluginID()).
				WithCause(err)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "json",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	var props map[string]any
	if c != nil {
		props = c.Properties
	}
	if props == nil {
		props = map[string]any{}
	}
	if err := decoder.Decode(props); err != nil {
		return pluginerr.New(pluginerr.CodeInvalidParam, "failed to decode config properties").
			WithPlugin(c.pluginID()).
			WithCause(err)
	}

	if err := validate.Struct(target); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			// target is not a struct; nothing to validate
			return nil
		}
		return pluginerr.New(pluginerr.CodeConfigMissing, "config properties failed validation").
			WithPlugin(c.pluginID()).
			WithCause(err)
	}
	return nil
}

func isStructPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct
}

func (c *Config) pluginID() string {
	if c == nil {
		return ""
	}
	return c.PluginID
}
