package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/steveyegge/braindump/internal/config"
	"github.com/steveyegge/braindump/internal/logging"
	"github.com/steveyegge/braindump/internal/slackbot"
	"github.com/steveyegge/braindump/internal/telemetry"
)

// Start command flags
var (
	startBotToken string
	startAppToken string
	startLogLevel string
	startLockFile string
	startDebug    bool
	startDev      bool
)

var startCmd = &cobra.Command{
	Use:     "start",
	GroupID: GroupServices,
	Short:   "Start the Slack bot",
	Long: `Start the Brain Dump Slack bot.

The bot connects to Slack via Socket Mode and captures ideas from 💡
reactions, the /braindump command and the capture_idea workflow step.

Settings come from the config file, then .env, then the environment,
then flags:
  SLACK_BOT_TOKEN      - Bot OAuth token (xoxb-...)
  SLACK_APP_TOKEN      - App-level token for Socket Mode (xapp-...)
  BRAINDUMP_LOG_LEVEL  - debug, info, warn, error
  BRAINDUMP_TIMEZONE   - IANA zone for idea timestamps

Examples:
  braindump start
  braindump start --bot-token=xoxb-... --app-token=xapp-...
  braindump start --config=/etc/braindump.toml --log-level=debug`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&startBotToken, "bot-token", "", "Slack bot token (xoxb-...)")
	startCmd.Flags().StringVar(&startAppToken, "app-token", "", "Slack app token for Socket Mode (xapp-...)")
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	startCmd.Flags().StringVar(&startLockFile, "lock-file", "", "single-instance lock file")
	startCmd.Flags().BoolVar(&startDebug, "debug", false, "enable Slack client debug output")
	startCmd.Flags().BoolVar(&startDev, "dev", false, "human-readable development logging")

	rootCmd.AddCommand(startCmd)
}

// loadConfig reads the config file and environment, then applies any
// start flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Lookup("bot-token") == nil {
		return cfg, nil
	}
	if flags.Changed("bot-token") {
		cfg.Slack.BotToken = startBotToken
	}
	if flags.Changed("app-token") {
		cfg.Slack.AppToken = startAppToken
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = startLogLevel
	}
	if flags.Changed("lock-file") {
		cfg.LockFile = startLockFile
	}
	if flags.Changed("debug") {
		cfg.Slack.Debug = startDebug
	}
	if flags.Changed("dev") {
		cfg.Log.Development = startDev
	}
	return cfg, nil
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// Acquire exclusive lock to prevent multiple instances.
	// Two bots would each create their own canvas.
	fileLock := flock.New(cfg.LockFile)
	locked, err := fileLock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another braindump instance is already running (lock file: %s)", cfg.LockFile)
	}
	defer func() { _ = fileLock.Unlock() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	provider, err := telemetry.Init(ctx, "braindump", Version, telemetry.Endpoints{
		MetricsURL: cfg.Telemetry.MetricsURL,
		LogsURL:    cfg.Telemetry.LogsURL,
	})
	if err != nil {
		logger.Warn("telemetry disabled", zap.Error(err))
	}
	if provider != nil {
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown", zap.Error(err))
			}
		}()
	}

	bot, err := slackbot.New(slackbot.Config{
		BotToken: cfg.Slack.BotToken,
		AppToken: cfg.Slack.AppToken,
		Debug:    cfg.Slack.Debug,
		Capture: slackbot.Capture{
			ReactionEmoji:      cfg.Capture.ReactionEmoji,
			MinLength:          cfg.Capture.MinLength,
			PreviewLength:      cfg.Capture.PreviewLength,
			Command:            cfg.Capture.Command,
			CanvasCommand:      cfg.Capture.CanvasCommand,
			TestCommand:        cfg.Capture.TestCommand,
			FunctionCallbackID: cfg.Capture.FunctionCallbackID,
		},
		TitlePrefix: cfg.Canvas.TitlePrefix,
		Location:    loc,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	logger.Info("⚡️ Brain Dump Bot is running!",
		zap.String("version", Version),
		zap.String("lock_file", cfg.LockFile))
	logger.Info("💡 Add " + cfg.Capture.ReactionEmoji + " reactions to messages to capture ideas")
	logger.Info("📝 Use " + cfg.Capture.Command + " to manually add ideas")
	logger.Info("📄 Use " + cfg.Capture.CanvasCommand + " to view the brain dump canvas")

	if err := bot.Run(ctx); err != nil {
		return fmt.Errorf("bot error: %w", err)
	}
	return nil
}
