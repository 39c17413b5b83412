package slackbot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"

	"github.com/steveyegge/braindump/internal/canvas"
)

// handleReaction captures the reacted-to message when the reaction is the
// capture emoji.
func (b *Bot) handleReaction(ctx context.Context, logger *zap.Logger, ev *slackevents.ReactionAddedEvent) string {
	if ev.Reaction != b.capture.ReactionEmoji || ev.Item.Type != "message" {
		return outcomeIgnored
	}

	channel := ev.Item.Channel
	logger = logger.With(zap.String("channel", channel), zap.String("user", ev.User))
	logger.Info("capture reaction detected", zap.String("ts", ev.Item.Timestamp))

	msg, err := b.fetchMessage(ctx, channel, ev.Item.Timestamp)
	if err != nil {
		logger.Error("error fetching reacted message", zap.Error(err))
		return outcomeFailed
	}
	if msg == nil {
		logger.Warn("could not retrieve original message")
		return outcomeIgnored
	}
	if msg.BotID != "" || utf8.RuneCountInString(msg.Text) < b.capture.MinLength {
		return outcomeIgnored
	}

	idea := canvas.Idea{
		Text:       msg.Text,
		Author:     msg.User,
		Channel:    channel,
		CapturedAt: parseTimestamp(ev.Item.Timestamp),
	}
	if !b.captureIdea(ctx, logger, "reaction", idea) {
		b.postEphemeral(ctx, logger, channel, ev.User, failedMessage)
		return outcomeFailed
	}

	b.postEphemeral(ctx, logger, channel, ev.User,
		fmt.Sprintf("💡 Idea captured! \"%s\"", preview(msg.Text, b.capture.PreviewLength)))
	return outcomeHandled
}

// fetchMessage returns the message at ts, or nil if there is none.
// conversations.history only lists top-level messages, so a thread reply
// is looked up through conversations.replies.
func (b *Bot) fetchMessage(ctx context.Context, channel, ts string) (*slack.Message, error) {
	resp, err := b.client.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channel,
		Latest:    ts,
		Limit:     1,
		Inclusive: true,
	})
	if err != nil {
		return nil, fmt.Errorf("conversations.history: %w", err)
	}
	if len(resp.Messages) > 0 && resp.Messages[0].Timestamp == ts {
		return &resp.Messages[0], nil
	}

	msgs, _, _, err := b.client.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: channel,
		Timestamp: ts,
		Latest:    ts,
		Oldest:    ts,
		Inclusive: true,
	})
	if err != nil {
		var slackErr slack.SlackErrorResponse
		if errors.As(err, &slackErr) && slackErr.Err == "thread_not_found" {
			return nil, nil
		}
		return nil, fmt.Errorf("conversations.replies: %w", err)
	}
	for i := range msgs {
		if msgs[i].Timestamp == ts {
			return &msgs[i], nil
		}
	}
	return nil, nil
}

// parseTimestamp converts a Slack message ts ("1712345678.123456") to a
// time. It returns nil for anything it cannot parse.
func parseTimestamp(ts string) *time.Time {
	if ts == "" {
		return nil
	}
	secStr, fracStr, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return nil
	}
	var nsec int64
	if fracStr != "" {
		if len(fracStr) > 9 {
			fracStr = fracStr[:9]
		}
		frac, err := strconv.ParseInt(fracStr, 10, 64)
		if err != nil {
			return nil
		}
		for i := len(fracStr); i < 9; i++ {
			frac *= 10
		}
		nsec = frac
	}
	t := time.Unix(sec, nsec)
	return &t
}
