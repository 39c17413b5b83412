package slackbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/steveyegge/braindump/internal/canvas"
)

func (b *Bot) handleSlashCommand(ctx context.Context, logger *zap.Logger, cmd slack.SlashCommand) string {
	logger = logger.With(
		zap.String("command", cmd.Command),
		zap.String("channel", cmd.ChannelID),
		zap.String("user", cmd.UserID))

	switch cmd.Command {
	case b.capture.Command:
		return b.handleCaptureCommand(ctx, logger, cmd)
	case b.capture.CanvasCommand:
		return b.handleCanvasCommand(ctx, logger, cmd)
	case b.capture.TestCommand:
		return b.handleTestCanvasCommand(ctx, logger, cmd)
	default:
		b.respond(ctx, logger, cmd, slack.MsgOptionText(fmt.Sprintf("Unknown command: %s", cmd.Command), false))
		return outcomeIgnored
	}
}

// handleCaptureCommand appends the command text as an idea.
func (b *Bot) handleCaptureCommand(ctx context.Context, logger *zap.Logger, cmd slack.SlashCommand) string {
	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		b.respond(ctx, logger, cmd, slack.MsgOptionText(
			fmt.Sprintf("Please provide an idea! Usage: `%s Your brilliant idea here`", b.capture.Command), false))
		return outcomeIgnored
	}

	idea := canvas.Idea{Text: text, Author: cmd.UserID, Channel: cmd.ChannelID}
	if !b.captureIdea(ctx, logger, "command", idea) {
		b.respond(ctx, logger, cmd, slack.MsgOptionText(failedMessage, false))
		return outcomeFailed
	}
	b.respond(ctx, logger, cmd, slack.MsgOptionText(capturedMessage(text, b.capture.PreviewLength), false))
	return outcomeHandled
}

// handleCanvasCommand replies with a link to the brain dump canvas,
// creating it if needed.
func (b *Bot) handleCanvasCommand(ctx context.Context, logger *zap.Logger, cmd slack.SlashCommand) string {
	res, err := b.resolver.Resolve(ctx, cmd.ChannelID)
	if err != nil {
		logger.Error("error resolving canvas", zap.Error(err))
		b.respond(ctx, logger, cmd, slack.MsgOptionText("❌ Error accessing canvas. Please try again.", false))
		return outcomeFailed
	}

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", "🧠 *Brain Dump Canvas*\nView all captured ideas in one place!", false, false),
			nil,
			slack.NewAccessory(linkButton("open_canvas", "📄 Open Canvas", canvas.CanvasURL(res.Handle))),
		),
	}
	b.respond(ctx, logger, cmd,
		slack.MsgOptionText("🧠 Brain Dump Canvas: "+canvas.CanvasURL(res.Handle), false),
		slack.MsgOptionBlocks(blocks...))
	return outcomeHandled
}

const (
	testChannelMarkdown    = "# Test Channel Canvas\n\nThis is a test channel canvas that should be visible to all channel members!"
	testStandaloneMarkdown = "# Test Standalone Canvas\n\nThis is a test standalone canvas!"
)

// handleTestCanvasCommand checks that the workspace allows canvas creation.
// It creates a throwaway canvas and leaves the resolver's cache alone.
func (b *Bot) handleTestCanvasCommand(ctx context.Context, logger *zap.Logger, cmd slack.SlashCommand) string {
	logger.Info("testing canvas creation")

	kind := canvas.TierChannel
	h, err := b.store.CreateChannelCanvas(ctx, cmd.ChannelID, "Test Channel Canvas", testChannelMarkdown)
	if err != nil {
		logger.Warn("channel canvas failed, trying standalone", zap.Error(err))
		kind = canvas.TierStandalone
		h, err = b.store.CreateStandaloneCanvas(ctx, "Test Standalone Canvas", testStandaloneMarkdown)
		if err == nil {
			if shareErr := b.store.SetAccess(ctx, h, canvas.AccessRead, []string{cmd.ChannelID}); shareErr != nil {
				logger.Warn("could not share test canvas", zap.Error(shareErr))
			}
		}
	}

	if err != nil {
		logger.Error("canvas test failed", zap.Error(err))
		b.respond(ctx, logger, cmd,
			slack.MsgOptionText("❌ Canvas creation failed!", false),
			slack.MsgOptionBlocks(slack.NewSectionBlock(
				slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("❌ *Canvas Creation Failed*\n\n```%s```", err), false, false),
				nil, nil,
			)))
		return outcomeFailed
	}

	logger.Info("test canvas created", zap.String("canvas_id", h.String()), zap.String("type", string(kind)))

	visibility := "✅ Should be visible to all channel members"
	if kind == canvas.TierStandalone {
		visibility = "⚠️ Standalone canvas - visibility depends on sharing settings"
	}
	text := fmt.Sprintf("✅ Canvas creation works! Canvas ID: %s\n\nCanvas type: %s\nDirect link: %s", h, kind, canvas.CanvasURL(h))
	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn",
				fmt.Sprintf("✅ *Canvas Created Successfully!*\n\nCanvas ID: `%s`\nType: `%s`\n\n%s", h, kind, visibility),
				false, false),
			nil, nil,
		),
		slack.NewActionBlock("",
			linkButton("view_in_browser", "🔗 View in Browser", canvas.CanvasURL(h)),
			linkButton("open_in_app", "📱 Open in App", canvas.AppURL(h)),
		),
	}
	b.respond(ctx, logger, cmd, slack.MsgOptionText(text, false), slack.MsgOptionBlocks(blocks...))
	return outcomeHandled
}

// respond replies ephemerally through the command's response URL, falling
// back to chat.postEphemeral when there is none. Failures are logged.
func (b *Bot) respond(ctx context.Context, logger *zap.Logger, cmd slack.SlashCommand, opts ...slack.MsgOption) {
	var err error
	if cmd.ResponseURL != "" {
		opts = append(opts, slack.MsgOptionResponseURL(cmd.ResponseURL, slack.ResponseTypeEphemeral))
		_, _, err = b.client.PostMessageContext(ctx, cmd.ChannelID, opts...)
	} else {
		_, err = b.client.PostEphemeralContext(ctx, cmd.ChannelID, cmd.UserID, opts...)
	}
	if err != nil {
		logger.Warn("error responding to command", zap.Error(err))
	}
}
