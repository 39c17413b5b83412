package slackbot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"

	"github.com/steveyegge/braindump/internal/canvas"
)

// Function input and output names.
const (
	inputMessageText = "message_text"
	inputUserID      = "user_id"
	inputChannelID   = "channel_id"
	inputMessageTS   = "message_ts"
	outputSuccess    = "success"
)

// handleFunction runs the capture step of a workflow. The function
// execution always ends with completeSuccess or completeError.
func (b *Bot) handleFunction(ctx context.Context, logger *zap.Logger, ev *slackevents.FunctionExecutedEvent) string {
	if ev.Function.CallbackID != b.capture.FunctionCallbackID {
		return outcomeIgnored
	}

	execID := ev.FunctionExecutionID
	logger = logger.With(zap.String("function_execution_id", execID))

	text := inputString(ev.Inputs, inputMessageText)
	user := inputString(ev.Inputs, inputUserID)
	channel := inputString(ev.Inputs, inputChannelID)
	ts := inputString(ev.Inputs, inputMessageTS)

	if text == "" || user == "" || channel == "" {
		err := fmt.Errorf("missing required inputs (message_text, user_id, channel_id)")
		logger.Warn("error in capture function", zap.Error(err))
		b.completeError(ctx, logger, execID, fmt.Sprintf("Failed to capture idea: %v", err))
		return outcomeFailed
	}

	logger.Info("capturing idea", zap.String("user", user), zap.String("channel", channel))

	idea := canvas.Idea{Text: text, Author: user, Channel: channel, CapturedAt: parseTimestamp(ts)}
	ok := b.captureIdea(ctx, logger, "function", idea)
	if ok {
		b.postEphemeral(ctx, logger, channel, user, capturedMessage(text, b.capture.PreviewLength))
	}

	err := b.client.FunctionCompleteSuccessContext(ctx, execID,
		slack.FunctionCompleteSuccessRequestOptionOutput(map[string]string{
			outputSuccess: strconv.FormatBool(ok),
		}))
	if err != nil {
		logger.Error("error completing function", zap.Error(err))
		b.completeError(ctx, logger, execID, fmt.Sprintf("Failed to capture idea: %v", err))
		return outcomeFailed
	}

	if !ok {
		return outcomeFailed
	}
	return outcomeHandled
}

func (b *Bot) completeError(ctx context.Context, logger *zap.Logger, execID, msg string) {
	if err := b.client.FunctionCompleteErrorContext(ctx, execID, msg); err != nil {
		logger.Error("error failing function", zap.Error(err))
	}
}

// inputString returns a string input, or "" when absent or not a string.
func inputString(inputs map[string]interface{}, key string) string {
	s, _ := inputs[key].(string)
	return s
}
