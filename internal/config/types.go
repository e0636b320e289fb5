package config

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	Logging  LoggingConfig   `json:"logging"`
	Storage  StorageConfig   `json:"storage"`
	Notify   NotifyConfig    `json:"notify"`
	Monitors []MonitorConfig `json:"monitors"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    FileLogConfig `json:"file,omitempty"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig controls the persistence layer.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl journal + snapshot)
//   - "sqlite": SQLite database file
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./dropwatch.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// NotifyConfig controls the outbound notification pipeline.
// All monitors share the configured sinks; per-monitor fields (website
// label, image style) live on MonitorConfig.
type NotifyConfig struct {
	// RatePerSec caps outbound sends across all sinks. 0 means default (1/s).
	RatePerSec int `json:"rate_per_sec,omitempty"`

	Discord  DiscordConfig  `json:"discord,omitempty"`
	Telegram TelegramConfig `json:"telegram,omitempty"`
}

// DiscordConfig configures the webhook sink.
//
// A missing or placeholder webhook_url disables the sink without error;
// that is a configuration guard, not a failure.
type DiscordConfig struct {
	WebhookURL string `json:"webhook_url,omitempty"`
	Username   string `json:"username,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	FooterText string `json:"footer_text,omitempty"`
	FooterIcon string `json:"footer_icon,omitempty"`
	Timeout    string `json:"timeout,omitempty"` // Go duration string
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	ChatID  int64  `json:"chat_id,omitempty"`
}

// MonitorConfig describes one monitor instance.
//
// Kind selects the source:
//   - "shopify": bulk listing of <base_url>/products.json
//   - "cdnprobe": one-id-per-cycle probe of url_template over [start_id, end_id]
//
// Schedule accepts a Go duration ("30s"), HH:MM, or a cron expression.
type MonitorConfig struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Schedule  string `json:"schedule"`
	Namespace string `json:"namespace,omitempty"` // store namespace; defaults to Name
	Website   string `json:"website,omitempty"`   // human label shown in notifications

	// shopify
	BaseURL string `json:"base_url,omitempty"`

	// cdnprobe
	URLTemplate string `json:"url_template,omitempty"` // printf-style: numeric id, then cache-bust token
	StartID     int    `json:"start_id,omitempty"`
	EndID       int    `json:"end_id,omitempty"`
	FullImage   bool   `json:"full_image,omitempty"` // render the full image in notifications

	// RatePerSec caps source requests (cdnprobe). 0 means uncapped.
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	Timeout    string `json:"timeout,omitempty"` // per-request timeout, Go duration string
}

// Validate checks cross-field consistency. It is also installed as the
// ConfigManager validator so a broken edit never replaces a good config.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if len(c.Monitors) == 0 {
		return errors.New("at least one monitor is required")
	}
	seen := map[string]bool{}
	for i := range c.Monitors {
		m := &c.Monitors[i]
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return fmt.Errorf("monitors[%d]: name is required", i)
		}
		if seen[name] {
			return fmt.Errorf("monitors[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
		if strings.TrimSpace(m.Schedule) == "" {
			return fmt.Errorf("monitor %q: schedule is required", name)
		}
		switch strings.ToLower(strings.TrimSpace(m.Kind)) {
		case "shopify":
			if strings.TrimSpace(m.BaseURL) == "" {
				return fmt.Errorf("monitor %q: base_url is required for shopify", name)
			}
		case "cdnprobe":
			if strings.TrimSpace(m.URLTemplate) == "" {
				return fmt.Errorf("monitor %q: url_template is required for cdnprobe", name)
			}
			if m.EndID < m.StartID {
				return fmt.Errorf("monitor %q: end_id must be >= start_id", name)
			}
		default:
			return fmt.Errorf("monitor %q: unknown kind %q", name, m.Kind)
		}
	}
	return nil
}

// StoreNamespace returns the store namespace for a monitor, defaulting to its name.
func (m *MonitorConfig) StoreNamespace() string {
	if ns := strings.TrimSpace(m.Namespace); ns != "" {
		return ns
	}
	return strings.TrimSpace(m.Name)
}
