package canvas

import (
	"fmt"
	"time"
)

// DefaultTitlePrefix is the canvas title before the year suffix.
const DefaultTitlePrefix = "🧠 Team Brain Dump"

// canvasMarkdown seeds a freshly created canvas.
const canvasMarkdown = "# 🧠 Team Brain Dump\n\n" +
	"*Automatically capturing your brilliant ideas!*\n\n" +
	"---\n\n" +
	"## 💡 Recent Ideas\n\n" +
	"*Ideas will appear here as they're captured...*\n\n"

// uploadMarkdown seeds the plain-file fallback. There is no placeholder
// line because nothing is ever appended to an uploaded file.
const uploadMarkdown = "# 🧠 Team Brain Dump\n\n" +
	"*Automatically capturing your brilliant ideas!*\n\n" +
	"---\n\n" +
	"## 💡 Recent Ideas\n\n"

// CanvasURL is the browser link for a canvas.
func CanvasURL(h Handle) string {
	return "https://app.slack.com/canvas/" + string(h)
}

// AppURL opens a canvas in the desktop client.
func AppURL(h Handle) string {
	return "slack://canvas/" + string(h)
}

func canvasTitle(prefix string, now time.Time) string {
	return fmt.Sprintf("%s - %d", prefix, now.Year())
}

func uploadFile(prefix string, now time.Time) Upload {
	return Upload{
		Content:  uploadMarkdown,
		Filename: fmt.Sprintf("brain-dump-%d.md", now.UnixMilli()),
		Title:    prefix,
	}
}

func announcement(h Handle) Announcement {
	return Announcement{
		Text:        "🧠 Brain Dump Canvas created! Add a 💡 reaction to any message to capture ideas automatically.",
		Body:        "🧠 *Brain Dump Canvas Created!*\n\nAdd a 💡 reaction to any message to automatically capture it as an idea.",
		ButtonLabel: "📄 View Canvas",
		URL:         CanvasURL(h),
	}
}
