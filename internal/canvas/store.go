// Package canvas resolves the shared "brain dump" canvas for a channel and
// appends captured ideas to it.
//
// The package owns no transport. Everything it needs from Slack goes through
// the Store interface, which the slackbot package implements on top of
// slack-go.
package canvas

import (
	"context"
	"time"
)

// Handle identifies a canvas (or, for the file fallback, an uploaded file).
type Handle string

// String returns the raw identifier.
func (h Handle) String() string { return string(h) }

// AccessLevel is a canvases.access.set access level.
type AccessLevel string

const (
	AccessRead  AccessLevel = "read"
	AccessWrite AccessLevel = "write"
)

// Upload describes the plain file posted by the last-resort fallback.
type Upload struct {
	Content  string
	Filename string
	Title    string
}

// Announcement is the message posted into a channel when a canvas is created.
type Announcement struct {
	Text        string // notification fallback text
	Body        string // mrkdwn section text
	ButtonLabel string
	URL         string
}

// Store is the external document store the resolver and appender drive.
// Every call is attempted exactly once; implementations must not retry.
type Store interface {
	// ProbeExists returns nil if h still refers to a live resource.
	ProbeExists(ctx context.Context, h Handle) error

	CreateChannelCanvas(ctx context.Context, channel, title, markdown string) (Handle, error)
	CreateStandaloneCanvas(ctx context.Context, title, markdown string) (Handle, error)
	SetAccess(ctx context.Context, h Handle, level AccessLevel, channels []string) error

	// AppendContent inserts markdown at the end of the canvas.
	AppendContent(ctx context.Context, h Handle, markdown string) error

	UploadFile(ctx context.Context, channel string, u Upload) (Handle, error)
	Announce(ctx context.Context, channel string, a Announcement) error
}

// Idea is one captured snippet. It is rendered into the canvas and then
// dropped.
type Idea struct {
	Text    string
	Author  string // user ID
	Channel string // source channel ID

	// CapturedAt is when the source message was posted; nil when unknown
	// (slash commands).
	CapturedAt *time.Time
}
