// Package config loads braindump settings from a TOML file, a .env file and
// the process environment.
//
// Precedence, lowest to highest: built-in defaults, the TOML file, the
// environment (a .env file only fills variables that are not already set),
// then command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultPath is read when no --config flag is given and the file exists.
const DefaultPath = "braindump.toml"

// DefaultEnvFile is the dotenv file loaded before reading the environment.
const DefaultEnvFile = ".env"

// Environment variables.
const (
	EnvBotToken      = "SLACK_BOT_TOKEN"
	EnvAppToken      = "SLACK_APP_TOKEN"
	EnvDebug         = "BRAINDUMP_DEBUG"
	EnvLogLevel      = "BRAINDUMP_LOG_LEVEL"
	EnvDevelopment   = "BRAINDUMP_DEVELOPMENT"
	EnvReactionEmoji = "BRAINDUMP_REACTION_EMOJI"
	EnvMinLength     = "BRAINDUMP_MIN_LENGTH"
	EnvTitlePrefix   = "BRAINDUMP_TITLE_PREFIX"
	EnvTimezone      = "BRAINDUMP_TIMEZONE"
	EnvLockFile      = "BRAINDUMP_LOCK_FILE"
	EnvMetricsURL    = "BRAINDUMP_OTEL_METRICS_URL"
	EnvLogsURL       = "BRAINDUMP_OTEL_LOGS_URL"
)

// Config is the full bot configuration.
type Config struct {
	Slack     SlackConfig     `toml:"slack"`
	Log       LogConfig       `toml:"log"`
	Capture   CaptureConfig   `toml:"capture"`
	Canvas    CanvasConfig    `toml:"canvas"`
	Telemetry TelemetryConfig `toml:"telemetry"`

	// LockFile guards against two bots running on the same host.
	LockFile string `toml:"lock_file"`
}

// SlackConfig holds the Socket Mode credentials.
type SlackConfig struct {
	BotToken string `toml:"bot_token"`
	AppToken string `toml:"app_token"`
	Debug    bool   `toml:"debug"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// CaptureConfig controls how ideas are captured.
type CaptureConfig struct {
	// ReactionEmoji is the emoji name, without colons, that captures a message.
	ReactionEmoji string `toml:"reaction_emoji"`

	// MinLength is the shortest message text, in runes, a reaction captures.
	MinLength int `toml:"min_length"`

	// PreviewLength is how many runes of the idea an acknowledgment quotes.
	PreviewLength int `toml:"preview_length"`

	Command            string `toml:"command"`
	CanvasCommand      string `toml:"canvas_command"`
	TestCommand        string `toml:"test_command"`
	FunctionCallbackID string `toml:"function_callback_id"`
}

// CanvasConfig controls canvas creation and rendering.
type CanvasConfig struct {
	TitlePrefix string `toml:"title_prefix"`

	// Timezone is an IANA name used for idea timestamps. Empty means local.
	Timezone string `toml:"timezone"`
}

// TelemetryConfig holds the OTLP HTTP endpoints. An empty URL disables
// that signal.
type TelemetryConfig struct {
	MetricsURL string `toml:"metrics_url"`
	LogsURL    string `toml:"logs_url"`
}

// Default returns the built-in configuration. Tokens are empty.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Capture: CaptureConfig{
			ReactionEmoji:      "bulb",
			MinLength:          10,
			PreviewLength:      50,
			Command:            "/braindump",
			CanvasCommand:      "/canvas",
			TestCommand:        "/testcanvas",
			FunctionCallbackID: "capture_idea",
		},
		Canvas: CanvasConfig{
			TitlePrefix: "🧠 Team Brain Dump",
		},
		LockFile: defaultLockFile(),
	}
}

func defaultLockFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return dir + string(os.PathSeparator) + "braindump.lock"
}

// Load builds a Config from defaults, the TOML file at path and the
// environment. An empty path reads DefaultPath if it exists; an explicit
// path that does not exist is an error. envFiles default to DefaultEnvFile;
// missing env files are ignored. Load does not validate.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	_, err := toml.DecodeFile(path, cfg)
	missingDefault := !explicit && errors.Is(err, os.ErrNotExist)
	if err != nil && !missingDefault {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from set environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str(EnvBotToken, &c.Slack.BotToken)
	str(EnvAppToken, &c.Slack.AppToken)
	str(EnvLogLevel, &c.Log.Level)
	str(EnvReactionEmoji, &c.Capture.ReactionEmoji)
	str(EnvTitlePrefix, &c.Canvas.TitlePrefix)
	str(EnvTimezone, &c.Canvas.Timezone)
	str(EnvLockFile, &c.LockFile)
	str(EnvMetricsURL, &c.Telemetry.MetricsURL)
	str(EnvLogsURL, &c.Telemetry.LogsURL)

	if err := boolean(EnvDebug, &c.Slack.Debug); err != nil {
		return err
	}
	if err := boolean(EnvDevelopment, &c.Log.Development); err != nil {
		return err
	}

	if v, ok := lookup(EnvMinLength); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMinLength, err)
		}
		c.Capture.MinLength = n
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Slack.BotToken == "" {
		return fmt.Errorf("bot token is required (%s)", EnvBotToken)
	}
	if !strings.HasPrefix(c.Slack.BotToken, "xoxb-") {
		return fmt.Errorf("bot token must start with xoxb-")
	}
	if c.Slack.AppToken == "" {
		return fmt.Errorf("app token is required for Socket Mode (%s)", EnvAppToken)
	}
	if !strings.HasPrefix(c.Slack.AppToken, "xapp-") {
		return fmt.Errorf("app token must start with xapp-")
	}

	if c.Capture.ReactionEmoji == "" || strings.Contains(c.Capture.ReactionEmoji, ":") {
		return fmt.Errorf("reaction emoji %q must be a bare emoji name like \"bulb\"", c.Capture.ReactionEmoji)
	}
	if c.Capture.MinLength <= 0 {
		return fmt.Errorf("min_length must be positive, got %d", c.Capture.MinLength)
	}
	if c.Capture.PreviewLength <= 0 {
		return fmt.Errorf("preview_length must be positive, got %d", c.Capture.PreviewLength)
	}
	for _, cmd := range []struct{ name, value string }{
		{"command", c.Capture.Command},
		{"canvas_command", c.Capture.CanvasCommand},
		{"test_command", c.Capture.TestCommand},
	} {
		if !strings.HasPrefix(cmd.value, "/") || len(cmd.value) < 2 {
			return fmt.Errorf("%s %q must start with /", cmd.name, cmd.value)
		}
	}
	if c.Capture.FunctionCallbackID == "" {
		return fmt.Errorf("function_callback_id is required")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	for _, ep := range []struct{ name, value string }{
		{"telemetry.metrics_url", c.Telemetry.MetricsURL},
		{"telemetry.logs_url", c.Telemetry.LogsURL},
	} {
		if err := validateEndpoint(ep.value); err != nil {
			return fmt.Errorf("%s: %w", ep.name, err)
		}
	}
	return nil
}

// validateEndpoint accepts "" or an absolute http(s) URL.
func validateEndpoint(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q must be an absolute http or https URL", raw)
	}
	return nil
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Canvas.Timezone == "" || c.Canvas.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Canvas.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Canvas.Timezone, err)
	}
	return loc, nil
}

// Redacted returns a copy with tokens masked, for display.
func (c *Config) Redacted() Config {
	out := *c
	out.Slack.BotToken = redact(c.Slack.BotToken)
	out.Slack.AppToken = redact(c.Slack.AppToken)
	return out
}

func redact(token string) string {
	if token == "" {
		return ""
	}
	if i := strings.Index(token, "-"); i >= 0 && len(token) > i+5 {
		return token[:i+1] + "…" + token[len(token)-4:]
	}
	return "…"
}
