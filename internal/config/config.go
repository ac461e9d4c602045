// Package config loads coordination.yml, the runtime's tuning file: per-
// breaker overrides, composition-gate policy overrides, and the TTL
// taxonomy the original Python coordination layer hard-coded per key
// category.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// TTLs mirrors the category-specific expirations redis_client.py hard-coded
// (SESSION_TTL, HEARTBEAT_TTL, MESSAGE_TTL, LOCK_TTL). Values are seconds.
type TTLs struct {
	SessionSeconds   int `yaml:"session_seconds,omitempty"`
	HeartbeatSeconds int `yaml:"heartbeat_seconds,omitempty"`
	MessageSeconds   int `yaml:"message_seconds,omitempty"`
	LockSeconds      int `yaml:"lock_seconds,omitempty"`
}

func defaultTTLs() TTLs {
	return TTLs{
		SessionSeconds:   300,
		HeartbeatSeconds: 90,
		MessageSeconds:   60,
		LockSeconds:      30,
	}
}

// BreakerOverride tunes one named circuit breaker beyond the §4.5.c
// defaults; a zero field means "use the default or CB_* env override".
type BreakerOverride struct {
	InitialThreshold  int     `yaml:"initial_threshold,omitempty"`
	MinThreshold      int     `yaml:"min_threshold,omitempty"`
	MaxThreshold      int     `yaml:"max_threshold,omitempty"`
	AdaptationRate    float64 `yaml:"adaptation_rate,omitempty"`
	WindowSizeSeconds int64   `yaml:"window_size_seconds,omitempty"`
}

// CompositionOverride relaxes or tightens a specific pattern-pair verdict
// from the Composition Gate's built-in policy table.
type CompositionOverride struct {
	PatternA string `yaml:"pattern_a"`
	PatternB string `yaml:"pattern_b"`
	Scope    string `yaml:"scope"`
	Verdict  string `yaml:"verdict"` // "valid", "invalid", or "warn"
	Message  string `yaml:"message,omitempty"`
}

// Config is the top-level coordination.yml document.
type Config struct {
	Version      string                     `yaml:"version"`
	TTLs         TTLs                       `yaml:"ttls,omitempty"`
	Breakers     map[string]BreakerOverride `yaml:"breakers,omitempty"`
	Composition  []CompositionOverride      `yaml:"composition,omitempty"`
}

// Validate checks structural invariants of a loaded Config.
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported coordination.yml version: %q (expected 1.0)", c.Version)
	}
	for name, b := range c.Breakers {
		if b.MinThreshold != 0 && b.MaxThreshold != 0 && b.MinThreshold > b.MaxThreshold {
			return fmt.Errorf("breaker %q: min_threshold (%d) exceeds max_threshold (%d)", name, b.MinThreshold, b.MaxThreshold)
		}
	}
	for i, comp := range c.Composition {
		switch comp.Verdict {
		case "valid", "invalid", "warn":
		default:
			return fmt.Errorf("composition override %d: invalid verdict %q (must be valid, invalid, or warn)", i, comp.Verdict)
		}
	}
	return nil
}

// Load reads and validates coordination.yml from path, filling in TTL
// defaults for any category the file omits.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Config{TTLs: defaultTTLs()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if cfg.TTLs.SessionSeconds == 0 {
		cfg.TTLs.SessionSeconds = defaultTTLs().SessionSeconds
	}
	if cfg.TTLs.HeartbeatSeconds == 0 {
		cfg.TTLs.HeartbeatSeconds = defaultTTLs().HeartbeatSeconds
	}
	if cfg.TTLs.MessageSeconds == 0 {
		cfg.TTLs.MessageSeconds = defaultTTLs().MessageSeconds
	}
	if cfg.TTLs.LockSeconds == 0 {
		cfg.TTLs.LockSeconds = defaultTTLs().LockSeconds
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault behaves like Load but falls back to the built-in defaults
// (no breaker/composition overrides, default TTLs) instead of returning an
// error when path is missing or fails to parse. Short-lived hook
// invocations call this rather than Load: a missing or briefly-invalid
// coordination.yml (e.g. mid-edit) must never fail a hook event.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return &Config{Version: "1.0", TTLs: defaultTTLs()}
	}
	return cfg
}

// Watcher reloads Config from disk whenever coordination.yml changes.
// agentctl serve uses it for its one-shot load-and-report; short-lived
// hook invocations call LoadOrDefault instead.
type Watcher struct {
	mu      sync.RWMutex
	current *Config
	path    string
	watcher *fsnotify.Watcher
}

// NewWatcher performs an initial Load and starts watching path for writes.
func NewWatcher(path string) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("start config watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	w := &Watcher{current: cfg, path: path, watcher: fw}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if cfg, err := Load(w.path); err == nil {
				w.mu.Lock()
				w.current = cfg
				w.mu.Unlock()
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Current returns the most recently loaded Config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops the underlying filesystem watch.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
