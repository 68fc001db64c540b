package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pinetree-ops/shiftlog/internal/biz/domain"
	"gopkg.in/yaml.v3"
)

// RepliesConfig contains every text the bot sends back, loaded from YAML
type RepliesConfig struct {
	MenuPrompt    string            `yaml:"menu_prompt"`
	StatusPrompt  string            `yaml:"status_prompt"`
	StatusSaved   string            `yaml:"status_saved"`
	StatusEmpty   string            `yaml:"status_saved_empty"`
	Confirmations map[string]string `yaml:"confirmations"` // keyed by event type
	Fallback      string            `yaml:"fallback_confirmation"`
}

// LoadRepliesConfig loads replies from a YAML file
func LoadRepliesConfig(configPath string) (*RepliesConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/replies.yaml",
			"/etc/shiftlog/replies.yaml",
		}
		// Add path relative to executable
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "replies.yaml"))
		}
	}

	var data []byte
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data = b
			break
		}
		if configPath != "" {
			return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
		}
	}

	if data == nil {
		// Return default config if no file found
		return DefaultRepliesConfig(), nil
	}

	var config RepliesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse replies.yaml: %w", err)
	}

	// Fill in defaults for empty values
	config.fillDefaults()

	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *RepliesConfig) fillDefaults() {
	defaults := DefaultRepliesConfig()

	if c.MenuPrompt == "" {
		c.MenuPrompt = defaults.MenuPrompt
	}
	if c.StatusPrompt == "" {
		c.StatusPrompt = defaults.StatusPrompt
	}
	if c.StatusSaved == "" {
		c.StatusSaved = defaults.StatusSaved
	}
	if c.StatusEmpty == "" {
		c.StatusEmpty = defaults.StatusEmpty
	}
	if c.Fallback == "" {
		c.Fallback = defaults.Fallback
	}
	if c.Confirmations == nil {
		c.Confirmations = make(map[string]string)
	}
	for k, v := range defaults.Confirmations {
		if c.Confirmations[k] == "" {
			c.Confirmations[k] = v
		}
	}
}

// Confirmation returns the reply for a recorded event
func (c *RepliesConfig) Confirmation(eventType domain.EventType) string {
	if text, ok := c.Confirmations[string(eventType)]; ok && text != "" {
		return text
	}
	return strings.ReplaceAll(c.Fallback, "{{event_type}}", string(eventType))
}

// StatusSavedText returns the reply for a saved status
func (c *RepliesConfig) StatusSavedText(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return c.StatusEmpty
	}
	return strings.ReplaceAll(c.StatusSaved, "{{status}}", status)
}

// DefaultRepliesConfig returns the default replies
func DefaultRepliesConfig() *RepliesConfig {
	return &RepliesConfig{
		MenuPrompt:   "Choose an action:",
		StatusPrompt: "What's your status? Reply with a short message.",
		StatusSaved:  `✅ Status saved: "{{status}}"`,
		StatusEmpty:  "✅ Status saved.",
		Confirmations: map[string]string{
			string(domain.EventShiftStart): "✅ Shift started.",
			string(domain.EventBreakStart): "☕ Break started.",
			string(domain.EventBreakEnd):   "✅ Break ended.",
			string(domain.EventShiftEnd):   "🏁 Shift ended.",
		},
		Fallback: "Recorded: {{event_type}}",
	}
}
