// Package slackbot implements the brain dump Slack bot.
// It uses the slack-go/slack library with Socket Mode for WebSocket-based communication.
package slackbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"github.com/steveyegge/braindump/internal/canvas"
	"github.com/steveyegge/braindump/internal/logging"
	"github.com/steveyegge/braindump/internal/telemetry"
)

// Trigger outcomes, recorded per event.
const (
	outcomeHandled = "handled"
	outcomeIgnored = "ignored"
	outcomeFailed  = "failed"
)

// Bot captures ideas from Slack into the brain dump canvas.
type Bot struct {
	client     *slack.Client
	socketMode *socketmode.Client
	store      canvas.Store
	resolver   *canvas.Resolver
	appender   *canvas.Appender
	capture    Capture
	logger     *zap.Logger

	// handlers tracks in-flight trigger goroutines.
	handlers sync.WaitGroup
}

// Capture holds the trigger settings.
type Capture struct {
	ReactionEmoji      string // emoji name without colons, e.g. "bulb"
	MinLength          int    // shortest reacted message captured, in runes
	PreviewLength      int    // runes quoted in acknowledgments
	Command            string // e.g. "/braindump"
	CanvasCommand      string // e.g. "/canvas"
	TestCommand        string // e.g. "/testcanvas"
	FunctionCallbackID string // e.g. "capture_idea"
}

// DefaultCapture returns the stock trigger settings.
func DefaultCapture() Capture {
	return Capture{
		ReactionEmoji:      "bulb",
		MinLength:          10,
		PreviewLength:      50,
		Command:            "/braindump",
		CanvasCommand:      "/canvas",
		TestCommand:        "/testcanvas",
		FunctionCallbackID: "capture_idea",
	}
}

// Config holds configuration for the Slack bot.
type Config struct {
	BotToken string // xoxb-... Slack bot token
	AppToken string // xapp-... Slack app-level token (for Socket Mode)
	Debug    bool

	Capture     Capture
	TitlePrefix string         // canvas title prefix; the year is appended
	Location    *time.Location // time zone for idea timestamps
	Logger      *zap.Logger

	// APIURL overrides the Slack Web API endpoint. It must end in "/".
	APIURL string
}

// New creates a new Slack bot.
func New(cfg Config) (*Bot, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if cfg.AppToken == "" {
		return nil, fmt.Errorf("app token is required for Socket Mode")
	}
	if !strings.HasPrefix(cfg.AppToken, "xapp-") {
		return nil, fmt.Errorf("app token must start with xapp-")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	opts := []slack.Option{
		slack.OptionDebug(cfg.Debug),
		slack.OptionAppLevelToken(cfg.AppToken),
		slack.OptionLog(logging.StdLog(cfg.Logger, "slack")),
	}
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	client := slack.New(cfg.BotToken, opts...)

	socketClient := socketmode.New(
		client,
		socketmode.OptionDebug(cfg.Debug),
		socketmode.OptionLog(logging.StdLog(cfg.Logger, "socketmode")),
	)

	b := newBot(client, cfg)
	b.socketMode = socketClient
	return b, nil
}

// newBot wires the canvas layer over client. It does not open a socket.
func newBot(client *slack.Client, cfg Config) *Bot {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	capture := cfg.Capture
	if capture == (Capture{}) {
		capture = DefaultCapture()
	}

	store := newSlackStore(client)
	resolver := canvas.NewResolver(store,
		canvas.WithResolverLogger(logger.Named("canvas")),
		canvas.WithTitlePrefix(cfg.TitlePrefix),
	)
	appender := canvas.NewAppender(resolver, store,
		canvas.WithAppenderLogger(logger.Named("canvas")),
		canvas.WithLocation(cfg.Location),
	)

	return &Bot{
		client:   client,
		store:    store,
		resolver: resolver,
		appender: appender,
		capture:  capture,
		logger:   logger,
	}
}

// Resolver exposes the canvas resolver.
func (b *Bot) Resolver() *canvas.Resolver {
	return b.resolver
}

// Run starts the bot event loop. Blocks until ctx is canceled, then waits
// for in-flight handlers to finish.
func (b *Bot) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		b.eventLoop(ctx)
	}()

	b.logger.Info("brain dump bot starting",
		zap.String("reaction", b.capture.ReactionEmoji),
		zap.String("command", b.capture.Command),
		zap.String("canvas_command", b.capture.CanvasCommand))

	err := b.socketMode.RunContext(ctx)
	// Stop the loop before waiting so no handler is added during Wait.
	cancel()
	<-loopDone
	b.handlers.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// eventLoop handles socket events until ctx is done or the channel closes.
func (b *Bot) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-b.socketMode.Events:
			if !ok || ctx.Err() != nil {
				return
			}
			b.handleEvent(ctx, evt)
		}
	}
}

func (b *Bot) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		b.logger.Info("connecting to Socket Mode")

	case socketmode.EventTypeConnected:
		b.logger.Info("connected to Socket Mode")

	case socketmode.EventTypeConnectionError:
		b.logger.Warn("socket mode connection error", zap.Any("data", evt.Data))

	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		b.ack(evt)
		b.handleEventsAPI(ctx, apiEvent)

	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		b.ack(evt)
		b.dispatch(ctx, "command", func(ctx context.Context, logger *zap.Logger) string {
			return b.handleSlashCommand(ctx, logger, cmd)
		}, func(ctx context.Context, logger *zap.Logger) {
			b.respond(ctx, logger, cmd, slack.MsgOptionText(failedMessage, false))
		})

	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slack.InteractionCallback)
		if !ok {
			return
		}
		b.ack(evt)
		b.handleInteraction(callback)
	}
}

func (b *Bot) ack(evt socketmode.Event) {
	if evt.Request != nil {
		b.socketMode.Ack(*evt.Request)
	}
}

func (b *Bot) handleEventsAPI(ctx context.Context, apiEvent slackevents.EventsAPIEvent) {
	if apiEvent.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.ReactionAddedEvent:
		b.dispatch(ctx, "reaction", func(ctx context.Context, logger *zap.Logger) string {
			return b.handleReaction(ctx, logger, ev)
		}, func(ctx context.Context, logger *zap.Logger) {
			b.postEphemeral(ctx, logger, ev.Item.Channel, ev.User, failedMessage)
		})
	case *slackevents.FunctionExecutedEvent:
		b.dispatch(ctx, "function", func(ctx context.Context, logger *zap.Logger) string {
			return b.handleFunction(ctx, logger, ev)
		}, func(ctx context.Context, logger *zap.Logger) {
			if ev.Function.CallbackID == b.capture.FunctionCallbackID {
				b.completeError(ctx, logger, ev.FunctionExecutionID, "Failed to capture idea: internal error")
			}
		})
	}
}

// handleInteraction acks every block action. The only buttons the bot
// posts are links, so there is nothing else to do.
func (b *Bot) handleInteraction(callback slack.InteractionCallback) {
	for _, action := range callback.ActionCallback.BlockActions {
		b.logger.Debug("block action acknowledged",
			zap.String("action_id", action.ActionID),
			zap.String("user", callback.User.ID))
	}
}

// dispatch runs fn on its own goroutine with a trigger-scoped logger.
// A panicking handler is logged and never takes the process down; onPanic,
// if set, then reports the failure to whoever triggered it.
func (b *Bot) dispatch(ctx context.Context, kind string, fn handlerFunc, onPanic failureFunc) {
	logger := b.logger.With(
		zap.String("trigger", kind),
		zap.String("trigger_id", uuid.NewString()),
	)

	b.handlers.Add(1)
	go func() {
		defer b.handlers.Done()
		outcome := outcomeFailed
		defer func() {
			if r := recover(); r != nil {
				logger.Error("trigger handler panicked", zap.Any("panic", r), zap.Stack("stack"))
				if onPanic != nil {
					b.reportPanic(ctx, logger, onPanic)
				}
			}
			telemetry.RecordTrigger(ctx, kind, outcome)
		}()
		outcome = fn(ctx, logger)
	}()
}

type (
	handlerFunc func(context.Context, *zap.Logger) string
	failureFunc func(context.Context, *zap.Logger)
)

// reportPanic runs onPanic, which must not take down the handler goroutine
// a second time.
func (b *Bot) reportPanic(ctx context.Context, logger *zap.Logger, onPanic failureFunc) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("failure report panicked", zap.Any("panic", r))
		}
	}()
	onPanic(ctx, logger)
}

// captureIdea appends idea and records the attempt.
func (b *Bot) captureIdea(ctx context.Context, logger *zap.Logger, trigger string, idea canvas.Idea) bool {
	err := b.appender.AppendIdea(ctx, idea.Channel, idea)
	telemetry.RecordIdeaCapture(ctx, trigger, idea.Channel, idea.Text, err)
	if err != nil {
		logger.Error("error adding idea to canvas",
			zap.String("channel", idea.Channel),
			zap.String("user", idea.Author),
			zap.Error(err))
		return false
	}
	logger.Info("idea captured",
		zap.String("channel", idea.Channel),
		zap.String("user", idea.Author))
	return true
}

// postEphemeral sends a message only userID can see. Failures are logged.
func (b *Bot) postEphemeral(ctx context.Context, logger *zap.Logger, channelID, userID, text string) {
	_, err := b.client.PostEphemeralContext(ctx, channelID, userID,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		logger.Warn("error posting ephemeral",
			zap.String("channel", channelID),
			zap.String("user", userID),
			zap.Error(err))
	}
}

// preview quotes the first n runes of text, adding "..." when cut.
func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

// capturedMessage is the acknowledgment for the function and command triggers.
func capturedMessage(text string, n int) string {
	return fmt.Sprintf("💡 Idea captured to Brain Dump Canvas! \"%s\"", preview(text, n))
}

const failedMessage = "❌ Failed to capture idea. Please try again."
