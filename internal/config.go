package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Selectors locates message parts in the rendered view. Each list is tried
// in order and the first match wins.
type Selectors struct {
	Pane         []string `yaml:"pane"`
	MessageBlock []string `yaml:"message_block"`
	Sender       []string `yaml:"sender"`
	Timestamp    []string `yaml:"timestamp"`
	Content      []string `yaml:"content"`
}

// DefaultSelectors matches the Slack web client
func DefaultSelectors() Selectors {
	return Selectors{
		Pane: []string{
			".p-workspace__primary_view .c-virtual_list__scroll_container",
			".p-workspace__primary_view_body",
		},
		MessageBlock: []string{
			".c-message_kit__message",
			`[data-qa="message_container"]`,
		},
		Sender: []string{
			".c-message__sender_button",
			`[data-qa="message-sender"]`,
			".c-message__sender_link",
		},
		Timestamp: []string{".c-timestamp"},
		Content: []string{
			".p-rich_text_section",
			".c-message__content_body",
			`[data-qa="message-text"]`,
			".c-message_kit__blocks--rich_text",
		},
	}
}

// BrowserConfig controls how the live view is reached
type BrowserConfig struct {
	DebuggerURL string    `yaml:"debugger_url"`
	Launch      bool      `yaml:"launch"`
	Headless    bool      `yaml:"headless"`
	URL         string    `yaml:"url"`
	Host        string    `yaml:"host"`
	Selectors   Selectors `yaml:"selectors"`
}

// AcquisitionConfig mirrors AcquisitionOptions
type AcquisitionConfig struct {
	SettleDelay time.Duration `yaml:"settle_delay"`
	StallLimit  int           `yaml:"stall_limit"`
}

// APIConfig configures the history API client and fallback pagination
type APIConfig struct {
	BaseURL          string        `yaml:"base_url"`
	Token            string        `yaml:"token"`
	Channel          string        `yaml:"channel"`
	Limit            int           `yaml:"limit"`
	MaxAttempts      int           `yaml:"max_attempts"`
	RateLimitBackoff time.Duration `yaml:"rate_limit_backoff"`
	PageDelay        time.Duration `yaml:"page_delay"`
	Timeout          time.Duration `yaml:"timeout"`
}

// ExportConfig selects the transcript format and destination
type ExportConfig struct {
	Format   string `yaml:"format"`
	Dir      string `yaml:"dir"`
	Basename string `yaml:"basename"`
	Locale   string `yaml:"locale"`
	Timezone string `yaml:"timezone"`
}

// TelegramConfig enables delivery of the transcript to a Telegram chat
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// ServerConfig configures the websocket control server
type ServerConfig struct {
	Addr  string `yaml:"addr"`
	Token string `yaml:"token"`
}

// Config is the full configuration file
type Config struct {
	Browser     BrowserConfig     `yaml:"browser"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	API         APIConfig         `yaml:"api"`
	Export      ExportConfig      `yaml:"export"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Server      ServerConfig      `yaml:"server"`
}

// DefaultConfig returns a configuration with every field populated
func DefaultConfig() *Config {
	acq := DefaultAcquisitionOptions()
	fb := DefaultFallbackOptions()
	return &Config{
		Browser: BrowserConfig{
			Host:      "app.slack.com",
			URL:       "https://app.slack.com/client",
			Headless:  false,
			Selectors: DefaultSelectors(),
		},
		Acquisition: AcquisitionConfig{
			SettleDelay: acq.SettleDelay,
			StallLimit:  acq.StallLimit,
		},
		API: APIConfig{
			BaseURL:          "https://slack.com/api",
			Limit:            200,
			MaxAttempts:      fb.MaxAttempts,
			RateLimitBackoff: fb.RateLimitBackoff,
			PageDelay:        fb.PageDelay,
			Timeout:          30 * time.Second,
		},
		Export: ExportConfig{
			Format:   "txt",
			Dir:      ".",
			Basename: "slack_dms_export",
			Locale:   "ko",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
	}
}

// DefaultConfigPath returns ~/.config/slack-dm-scraper/config.yaml
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("failed to get home directory: %w", herr)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "slack-dm-scraper", "config.yaml"), nil
}

// LoadConfig reads path over the defaults and applies environment
// overrides. An empty path loads the default location, which may be absent.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		p, err := DefaultConfigPath()
		if err != nil {
			LogDebug("no default config path: %v", err)
		}
		path = p
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, &ConfigError{Path: path, Err: err}
			}
			LogDebug("loaded config from %s", path)
		case errors.Is(err, os.ErrNotExist) && !explicit:
			LogDebug("no config file at %s, using defaults", path)
		default:
			return nil, &ConfigError{Path: path, Err: err}
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg. lookup is os.LookupEnv
// outside of tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("SLACK_TOKEN"); ok && v != "" {
		c.API.Token = v
	}
	if v, ok := lookup("SLACK_CHANNEL"); ok && v != "" {
		c.API.Channel = v
	}
	if v, ok := lookup("CHROME_DEBUGGER_URL"); ok && v != "" {
		c.Browser.DebuggerURL = v
	}
	if v, ok := lookup("TELEGRAM_BOT_TOKEN"); ok && v != "" {
		c.Telegram.BotToken = v
	}
	if v, ok := lookup("TELEGRAM_CHAT_ID"); ok && v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return &ConfigError{Path: "TELEGRAM_CHAT_ID", Err: err}
		}
		c.Telegram.ChatID = id
	}
	return nil
}

// Validate rejects values the run cannot work with
func (c *Config) Validate() error {
	if c.Acquisition.SettleDelay < 0 {
		return fmt.Errorf("acquisition.settle_delay must not be negative")
	}
	if c.Acquisition.StallLimit < 1 {
		return fmt.Errorf("acquisition.stall_limit must be at least 1, got %d", c.Acquisition.StallLimit)
	}
	if c.API.MaxAttempts < 1 {
		return fmt.Errorf("api.max_attempts must be at least 1, got %d", c.API.MaxAttempts)
	}
	if c.API.Limit < 1 || c.API.Limit > 1000 {
		return fmt.Errorf("api.limit must be between 1 and 1000, got %d", c.API.Limit)
	}
	if len(c.Browser.Selectors.Pane) == 0 || len(c.Browser.Selectors.MessageBlock) == 0 {
		return fmt.Errorf("browser.selectors: pane and message_block must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// AcquisitionOptions converts the acquisition section
func (c *Config) AcquisitionOptions() AcquisitionOptions {
	return AcquisitionOptions{
		SettleDelay: c.Acquisition.SettleDelay,
		StallLimit:  c.Acquisition.StallLimit,
	}
}

// FallbackOptions converts the pagination settings of the api section
func (c *Config) FallbackOptions() FallbackOptions {
	return FallbackOptions{
		MaxAttempts:      c.API.MaxAttempts,
		RateLimitBackoff: c.API.RateLimitBackoff,
		PageDelay:        c.API.PageDelay,
	}
}

// Location resolves export.timezone. Empty means the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Export.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Export.Timezone)
	if err != nil {
		return nil, fmt.Errorf("export.timezone: %w", err)
	}
	return loc, nil
}

// TelegramEnabled reports whether both bot token and chat are configured
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != 0
}
