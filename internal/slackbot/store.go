package slackbot

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/steveyegge/braindump/internal/canvas"
)

// slackStore implements canvas.Store over the Slack Web API.
type slackStore struct {
	client *slack.Client
}

var _ canvas.Store = (*slackStore)(nil)

func newSlackStore(client *slack.Client) *slackStore {
	return &slackStore{client: client}
}

func markdown(md string) slack.DocumentContent {
	return slack.DocumentContent{Type: "markdown", Markdown: md}
}

// ProbeExists uses files.info; canvases are files in Slack.
func (s *slackStore) ProbeExists(ctx context.Context, h canvas.Handle) error {
	if _, _, _, err := s.client.GetFileInfoContext(ctx, h.String(), 0, 0); err != nil {
		return fmt.Errorf("files.info %s: %w", h, err)
	}
	return nil
}

// CreateChannelCanvas creates the channel's canvas. Slack names channel
// canvases after the channel, so title is not sent.
func (s *slackStore) CreateChannelCanvas(ctx context.Context, channel, title, md string) (canvas.Handle, error) {
	id, err := s.client.CreateChannelCanvasContext(ctx, channel, markdown(md))
	if err != nil {
		return "", fmt.Errorf("conversations.canvases.create: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("conversations.canvases.create: no canvas id in response")
	}
	return canvas.Handle(id), nil
}

func (s *slackStore) CreateStandaloneCanvas(ctx context.Context, title, md string) (canvas.Handle, error) {
	id, err := s.client.CreateCanvasContext(ctx, title, markdown(md))
	if err != nil {
		return "", fmt.Errorf("canvases.create: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("canvases.create: no canvas id in response")
	}
	return canvas.Handle(id), nil
}

func (s *slackStore) SetAccess(ctx context.Context, h canvas.Handle, level canvas.AccessLevel, channels []string) error {
	err := s.client.SetCanvasAccessContext(ctx, slack.SetCanvasAccessParams{
		CanvasID:    h.String(),
		AccessLevel: string(level),
		ChannelIDs:  channels,
	})
	if err != nil {
		return fmt.Errorf("canvases.access.set: %w", err)
	}
	return nil
}

func (s *slackStore) AppendContent(ctx context.Context, h canvas.Handle, md string) error {
	err := s.client.EditCanvasContext(ctx, slack.EditCanvasParams{
		CanvasID: h.String(),
		Changes: []slack.CanvasChange{{
			Operation:       "insert_at_end",
			DocumentContent: markdown(md),
		}},
	})
	if err != nil {
		return fmt.Errorf("canvases.edit: %w", err)
	}
	return nil
}

func (s *slackStore) UploadFile(ctx context.Context, channel string, u canvas.Upload) (canvas.Handle, error) {
	f, err := s.client.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Channel:     channel,
		Content:     u.Content,
		FileSize:    len(u.Content),
		Filename:    u.Filename,
		Title:       u.Title,
		SnippetType: "markdown",
	})
	if err != nil {
		return "", fmt.Errorf("files.uploadV2: %w", err)
	}
	return canvas.Handle(f.ID), nil
}

func (s *slackStore) Announce(ctx context.Context, channel string, a canvas.Announcement) error {
	_, _, err := s.client.PostMessageContext(ctx, channel,
		slack.MsgOptionText(a.Text, false),
		slack.MsgOptionBlocks(announcementBlocks(a)...),
	)
	if err != nil {
		return fmt.Errorf("chat.postMessage: %w", err)
	}
	return nil
}

func announcementBlocks(a canvas.Announcement) []slack.Block {
	return []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", a.Body, false, false),
			nil, nil,
		),
		slack.NewActionBlock("",
			linkButton("view_canvas", a.ButtonLabel, a.URL),
		),
	}
}

// linkButton is a button that opens url. Slack still sends a block action
// when it is clicked, which the interactive handler acks.
func linkButton(actionID, label, url string) *slack.ButtonBlockElement {
	return slack.NewButtonBlockElement(actionID, "",
		slack.NewTextBlockObject("plain_text", label, true, false),
	).WithURL(url)
}
