package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Reserved category kinds that are self-assigned by product convention and
// therefore exempt from "unassigned" risk checks.
const (
	CategoryOperational = "operational"
	CategoryStrategic   = "strategic"
)

// Config models teampulse.yml for one organization.
type Config struct {
	Org struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"org"`
	Defaults struct {
		WeeklyHours int `yaml:"weekly_hours"`
	} `yaml:"defaults"`
	Categories struct {
		Catalog map[string]CategoryKind `yaml:"catalog"`
	} `yaml:"categories"`
	Snapshot struct {
		RefreshSeconds int `yaml:"refresh_seconds"`
	} `yaml:"snapshot"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// CategoryKind is an enumerated task category with its capability flags.
type CategoryKind struct {
	Description  string `yaml:"description"`
	SelfAssigned bool   `yaml:"self_assigned"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret,omitempty"`
	Events         []string `yaml:"events,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; import with tp org config import --file <path>", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Org.ID == "" {
		return fmt.Errorf("config.org.id is required")
	}
	if c.Defaults.WeeklyHours < 0 {
		return fmt.Errorf("config.defaults.weekly_hours must not be negative")
	}
	for name := range c.Categories.Catalog {
		if name == "" {
			return fmt.Errorf("config.categories.catalog contains empty kind")
		}
	}
	for _, reserved := range []string{CategoryOperational, CategoryStrategic} {
		if kind, ok := c.Categories.Catalog[reserved]; ok && !kind.SelfAssigned {
			return fmt.Errorf("category %s is reserved as self-assigned", reserved)
		}
	}
	if c.Snapshot.RefreshSeconds < 0 {
		return fmt.Errorf("config.snapshot.refresh_seconds must not be negative")
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
	}
	return nil
}

// DefaultWeeklyHours returns the declared default, falling back to 40.
func (c *Config) DefaultWeeklyHours() int {
	if c.Defaults.WeeklyHours > 0 {
		return c.Defaults.WeeklyHours
	}
	return 40
}

// SelfAssignedKinds returns the set of category names whose absence of an
// assignee is expected rather than a risk signal. The reserved kinds are
// always included even when the catalog omits them.
func (c *Config) SelfAssignedKinds() map[string]bool {
	kinds := map[string]bool{
		CategoryOperational: true,
		CategoryStrategic:   true,
	}
	for name, kind := range c.Categories.Catalog {
		if kind.SelfAssigned {
			kinds[name] = true
		}
	}
	return kinds
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "teampulse.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(orgID string) string {
	return fmt.Sprintf(defaultTemplate, orgID)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for an org.
func Default(orgID string) *Config {
	var cfg Config
	cfg.Org.ID = orgID
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, orgID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `org:
  id: %s

defaults:
  weekly_hours: 40

categories:
  catalog:
    operational:
      description: "Recurring operations work, self-assigned by convention"
      self_assigned: true
    strategic:
      description: "Strategic initiatives, self-assigned by convention"
      self_assigned: true
    general:
      description: "General delivery work"
      self_assigned: false

snapshot:
  refresh_seconds: 30

webhooks: []
`
