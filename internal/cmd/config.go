package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/steveyegge/braindump/internal/config"
	"github.com/steveyegge/braindump/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: GroupConfig,
	Short:   "Inspect braindump configuration",
	RunE:    requireSubcommand,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration start would use, after the config file,
.env and environment are applied. Tokens are redacted.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), ui.RenderFields("Brain Dump configuration", configFields(cfg), ui.ShouldUseColor()))
	return nil
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ configuration is valid")
	return nil
}

// configFields lists cfg for display with tokens redacted.
func configFields(cfg *config.Config) []ui.Field {
	r := cfg.Redacted()
	return []ui.Field{
		{Key: "slack.bot_token", Value: r.Slack.BotToken},
		{Key: "slack.app_token", Value: r.Slack.AppToken},
		{Key: "slack.debug", Value: strconv.FormatBool(r.Slack.Debug)},
		{Key: "log.level", Value: r.Log.Level},
		{Key: "log.development", Value: strconv.FormatBool(r.Log.Development)},
		{Key: "capture.reaction_emoji", Value: r.Capture.ReactionEmoji},
		{Key: "capture.min_length", Value: strconv.Itoa(r.Capture.MinLength)},
		{Key: "capture.preview_length", Value: strconv.Itoa(r.Capture.PreviewLength)},
		{Key: "capture.command", Value: r.Capture.Command},
		{Key: "capture.canvas_command", Value: r.Capture.CanvasCommand},
		{Key: "capture.test_command", Value: r.Capture.TestCommand},
		{Key: "capture.function_callback_id", Value: r.Capture.FunctionCallbackID},
		{Key: "canvas.title_prefix", Value: r.Canvas.TitlePrefix},
		{Key: "canvas.timezone", Value: r.Canvas.Timezone},
		{Key: "telemetry.metrics_url", Value: r.Telemetry.MetricsURL},
		{Key: "telemetry.logs_url", Value: r.Telemetry.LogsURL},
		{Key: "lock_file", Value: r.LockFile},
	}
}
