package canvas

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// TimestampLayout renders idea headings, e.g. "Oct 19, 2026, 03:04 PM".
const TimestampLayout = "Jan 2, 2006, 03:04 PM"

// CanvasResolver is the part of Resolver the appender needs.
type CanvasResolver interface {
	Resolve(ctx context.Context, channel string) (Resolution, error)
}

// Appender renders ideas and appends them to the resolved canvas.
type Appender struct {
	resolver CanvasResolver
	store    Store
	logger   *zap.Logger
	now      func() time.Time
	location *time.Location
}

// AppenderOption configures an Appender.
type AppenderOption func(*Appender)

// WithAppenderLogger sets the logger.
func WithAppenderLogger(l *zap.Logger) AppenderOption {
	return func(a *Appender) {
		a.logger = l
	}
}

// WithAppenderClock overrides time.Now for ideas without a capture time.
func WithAppenderClock(now func() time.Time) AppenderOption {
	return func(a *Appender) {
		a.now = now
	}
}

// WithLocation sets the time zone headings are rendered in.
func WithLocation(loc *time.Location) AppenderOption {
	return func(a *Appender) {
		if loc != nil {
			a.location = loc
		}
	}
}

// NewAppender creates an Appender.
func NewAppender(resolver CanvasResolver, store Store, opts ...AppenderOption) *Appender {
	a := &Appender{
		resolver: resolver,
		store:    store,
		logger:   zap.NewNop(),
		now:      time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Append adds idea to the canvas for channel. It never returns an error:
// every failure is logged and reported as false. There is no retry and no
// deduplication, so appending the same idea twice writes two entries.
func (a *Appender) Append(ctx context.Context, channel string, idea Idea) bool {
	if err := a.AppendIdea(ctx, channel, idea); err != nil {
		a.logger.Error("error adding idea to canvas",
			zap.String("channel", channel),
			zap.String("user", idea.Author),
			zap.Error(err))
		return false
	}
	return true
}

// AppendIdea is Append with the error exposed.
func (a *Appender) AppendIdea(ctx context.Context, channel string, idea Idea) error {
	if strings.TrimSpace(idea.Text) == "" {
		return ErrEmptyIdea
	}

	res, err := a.resolver.Resolve(ctx, channel)
	if err != nil {
		return err
	}

	if err := a.store.AppendContent(ctx, res.Handle, a.Fragment(idea)); err != nil {
		return fmt.Errorf("append to %s: %w", res.Handle, err)
	}

	a.logger.Info("idea added to canvas",
		zap.String("canvas_id", res.Handle.String()),
		zap.String("channel", channel),
		zap.String("user", idea.Author))
	return nil
}

// Fragment renders idea as the markdown block appended to the canvas.
func (a *Appender) Fragment(idea Idea) string {
	at := a.now()
	if idea.CapturedAt != nil {
		at = *idea.CapturedAt
	}
	return RenderFragment(idea, at.In(a.location))
}

// RenderFragment renders idea with an explicit heading time.
func RenderFragment(idea Idea, at time.Time) string {
	var sb strings.Builder
	sb.WriteString("### 💡 ")
	sb.WriteString(at.Format(TimestampLayout))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "**From:** <@%s> in <#%s>\n", idea.Author, idea.Channel)
	fmt.Fprintf(&sb, "**Idea:** %s\n\n", norm.NFC.String(idea.Text))
	sb.WriteString("---\n\n")
	return sb.String()
}
