package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/bolt/plugin"
	"github.com/zero-day-ai/bolt/types"
)

// FileNames are the manifest names Load looks for in a directory, in order.
var FileNames = []string{"plugin.yaml", "plugin.yml"}

var validate = validator.New()

// Manifest describes a deployable plugin instance.
type Manifest struct {
	// Identity
	ID          string   `yaml:"id" validate:"required"`
	Version     string   `yaml:"version"`
	Name        string   `yaml:"name,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Author      string   `yaml:"author,omitempty"`
	Type        string   `yaml:"type,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`

	Instance   InstanceConfig `yaml:"instance,omitempty"`
	Properties map[string]any `yaml:"properties,omitempty"`
	Hints      HintsConfig    `yaml:"hints,omitempty"`

	// Worker configuration (for queue-based execution)
	Worker *WorkerConfig `yaml:"worker,omitempty"`
}

// InstanceConfig names one configured instance of the plugin.
type InstanceConfig struct {
	ID   string `yaml:"id,omitempty"`
	Name string `yaml:"name,omitempty"`
}

// HintsConfig carries the advisory execution hints copied into types.Config.
type HintsConfig struct {
	TimeoutMs       int64 `yaml:"timeout_ms,omitempty" validate:"gte=0"`
	RetryCount      int   `yaml:"retry_count,omitempty" validate:"gte=0"`
	RetryIntervalMs int64 `yaml:"retry_interval_ms,omitempty" validate:"gte=0"`
	MaxConcurrent   int   `yaml:"max_concurrent,omitempty" validate:"gte=0"`
}

// WorkerConfig defines configuration for queue-based worker execution.
type WorkerConfig struct {
	// Concurrency is the number of concurrent worker goroutines. Zero means
	// fall back to the hints, then to 4.
	Concurrency int `yaml:"concurrency,omitempty" validate:"gte=0"`

	// ShutdownTimeout is a Go duration string. Default: 30s
	ShutdownTimeout string `yaml:"shutdown_timeout,omitempty"`

	// QueuePrefix is the Redis key prefix. Default: "plugin"
	QueuePrefix string `yaml:"queue_prefix,omitempty"`

	// HeartbeatInterval is a Go duration string. Default: 10s
	HeartbeatInterval string `yaml:"heartbeat_interval,omitempty"`
}

// GetShutdownTimeout parses the shutdown timeout, returning 30s when unset or
// invalid.
func (w *WorkerConfig) GetShutdownTimeout() time.Duration {
	if w == nil {
		return 30 * time.Second
	}
	return parseDuration(w.ShutdownTimeout, 30*time.Second)
}

// GetHeartbeatInterval parses the heartbeat interval, returning 10s when
// unset or invalid.
func (w *WorkerConfig) GetHeartbeatInterval() time.Duration {
	if w == nil {
		return 10 * time.Second
	}
	return parseDuration(w.HeartbeatInterval, 10*time.Second)
}

// GetConcurrency returns the configured concurrency or 0 when unset.
func (w *WorkerConfig) GetConcurrency() int {
	if w == nil || w.Concurrency <= 0 {
		return 0
	}
	return w.Concurrency
}

// GetQueuePrefix returns the queue prefix or "plugin".
func (w *WorkerConfig) GetQueuePrefix() string {
	if w == nil || w.QueuePrefix == "" {
		return "plugin"
	}
	return w.QueuePrefix
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Validate checks required fields, hint ranges and the plugin type.
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid manifest: field %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid manifest: %w", err)
	}
	if _, err := types.ParsePluginType(m.Type); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	if m.Worker != nil {
		for _, d := range []string{m.Worker.ShutdownTimeout, m.Worker.HeartbeatInterval} {
			if d == "" {
				continue
			}
			if _, err := time.ParseDuration(d); err != nil {
				return fmt.Errorf("invalid manifest: worker duration %q: %w", d, err)
			}
		}
	}
	return nil
}

// InstanceID returns the configured instance id, defaulting to the plugin id.
func (m *Manifest) InstanceID() string {
	if m.Instance.ID != "" {
		return m.Instance.ID
	}
	return m.ID
}

// ToConfig converts the manifest into the configuration passed to
// Initialize.
func (m *Manifest) ToConfig() *types.Config {
	cfg := &types.Config{
		PluginID:        m.ID,
		Version:         m.Version,
		InstanceID:      m.InstanceID(),
		InstanceName:    m.Instance.Name,
		TimeoutMs:       m.Hints.TimeoutMs,
		RetryCount:      m.Hints.RetryCount,
		RetryIntervalMs: m.Hints.RetryIntervalMs,
		MaxConcurrent:   m.Hints.MaxConcurrent,
	}
	if len(m.Properties) > 0 {
		cfg.Properties = make(map[string]any, len(m.Properties))
		for k, v := range m.Properties {
			cfg.Properties[k] = v
		}
	}
	return cfg
}

// Apply copies the non-empty identity fields onto def, letting a manifest
// override what the plugin compiled in.
func (m *Manifest) Apply(def *plugin.Definition) error {
	if m.ID != "" {
		def.SetID(m.ID)
	}
	if m.Version != "" {
		def.SetVersion(m.Version)
	}
	if m.Name != "" {
		def.SetName(m.Name)
	}
	if m.Description != "" {
		def.SetDescription(m.Description)
	}
	if m.Author != "" {
		def.SetAuthor(m.Author)
	}
	if m.Type != "" {
		t, err := types.ParsePluginType(m.Type)
		if err != nil {
			return err
		}
		def.SetType(t)
	}
	return nil
}

// Parse decodes and validates a manifest document.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads a manifest from path. If path is a directory, it looks for
// plugin.yaml or plugin.yml in that directory.
func Load(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	manifestPath := path
	if info.IsDir() {
		manifestPath = ""
		for _, name := range FileNames {
			candidate := filepath.Join(path, name)
			if _, err := os.Stat(candidate); err == nil {
				manifestPath = candidate
				break
			}
		}
		if manifestPath == "" {
			return nil, fmt.Errorf("%w in %s", ErrNotFound, path)
		}
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// ErrNotFound reports that no manifest file exists.
var ErrNotFound = errors.New("no plugin.yaml or plugin.yml found")

// LoadFromDir searches for a manifest starting at dir and walking up to
// parent directories until one is found or the root is reached. A manifest
// that exists but fails to parse stops the search.
func LoadFromDir(dir string) (*Manifest, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		m, err := Load(absDir)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		parent := filepath.Dir(absDir)
		if parent == absDir {
			return nil, fmt.Errorf("%w in %s or parent directories", ErrNotFound, dir)
		}
		absDir = parent
	}
}

// LoadFromCurrentDir loads the manifest from the working directory or its
// parents.
func LoadFromCurrentDir() (*Manifest, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return LoadFromDir(cwd)
}
