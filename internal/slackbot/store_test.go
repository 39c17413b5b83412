package slackbot

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/braindump/internal/canvas"
)

func newTestStore(t *testing.T) (*slackStore, *fakeSlack) {
	t.Helper()
	f := newFakeSlack(t)
	return newSlackStore(slack.New("xoxb-test", slack.OptionAPIURL(f.URL()))), f
}

func TestSlackStore_ProbeExists(t *testing.T) {
	s, f := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ProbeExists(ctx, "F1"))
	calls := f.find("files.info")
	require.Len(t, calls, 1)
	assert.Equal(t, "F1", calls[0].Form.Get("file"))

	f.fail("files.info", "file_not_found")
	assert.Error(t, s.ProbeExists(ctx, "F1"))
}

func TestSlackStore_CreateCanvases(t *testing.T) {
	s, f := newTestStore(t)
	ctx := context.Background()

	h, err := s.CreateChannelCanvas(ctx, "C1", "ignored title", "# Hello")
	require.NoError(t, err)
	assert.Equal(t, canvas.Handle("F_CHANNEL"), h)

	call := f.find("conversations.canvases.create")[0]
	assert.Equal(t, "C1", call.Form.Get("channel_id"))
	var doc slack.DocumentContent
	require.NoError(t, json.Unmarshal([]byte(call.Form.Get("document_content")), &doc))
	assert.Equal(t, "markdown", doc.Type)
	assert.Equal(t, "# Hello", doc.Markdown)

	h, err = s.CreateStandaloneCanvas(ctx, "🧠 Team Brain Dump - 2026", "# Hello")
	require.NoError(t, err)
	assert.Equal(t, canvas.Handle("F_STANDALONE"), h)
	assert.Equal(t, "🧠 Team Brain Dump - 2026", f.find("canvases.create")[0].Form.Get("title"))
}

func TestSlackStore_CreateFailures(t *testing.T) {
	s, f := newTestStore(t)
	ctx := context.Background()

	f.fail("conversations.canvases.create", "not_allowed")
	_, err := s.CreateChannelCanvas(ctx, "C1", "", "x")
	assert.ErrorContains(t, err, "not_allowed")

	f.set("canvases.create", `{"ok":true}`)
	_, err = s.CreateStandaloneCanvas(ctx, "t", "x")
	assert.ErrorContains(t, err, "no canvas id")
}

func TestSlackStore_SetAccess(t *testing.T) {
	s, f := newTestStore(t)

	require.NoError(t, s.SetAccess(context.Background(), "F1", canvas.AccessRead, []string{"C1"}))
	call := f.find("canvases.access.set")[0]
	assert.Equal(t, "F1", call.Form.Get("canvas_id"))
	assert.Equal(t, "read", call.Form.Get("access_level"))
	assert.Equal(t, `["C1"]`, call.Form.Get("channel_ids"))
}

func TestSlackStore_AppendContent(t *testing.T) {
	s, f := newTestStore(t)

	require.NoError(t, s.AppendContent(context.Background(), "F1", "### idea\n"))
	call := f.find("canvases.edit")[0]
	assert.Equal(t, "F1", call.Form.Get("canvas_id"))

	var changes []slack.CanvasChange
	require.NoError(t, json.Unmarshal([]byte(call.Form.Get("changes")), &changes))
	require.Len(t, changes, 1)
	assert.Equal(t, "insert_at_end", changes[0].Operation)
	assert.Equal(t, "### idea\n", changes[0].DocumentContent.Markdown)
}

func TestSlackStore_UploadFile(t *testing.T) {
	s, f := newTestStore(t)

	h, err := s.UploadFile(context.Background(), "C1", canvas.Upload{
		Content:  "# Brain dump",
		Filename: "brain-dump-1.md",
		Title:    "🧠 Team Brain Dump",
	})
	require.NoError(t, err)
	assert.Equal(t, canvas.Handle("F_FILE"), h)

	assert.Equal(t, []string{"files.getUploadURLExternal", "upload", "files.completeUploadExternal"}, f.methods())
	assert.Equal(t, "brain-dump-1.md", f.find("files.getUploadURLExternal")[0].Form.Get("filename"))
	assert.Equal(t, "C1", f.find("files.completeUploadExternal")[0].Form.Get("channel_id"))
}

func TestSlackStore_Announce(t *testing.T) {
	s, f := newTestStore(t)

	err := s.Announce(context.Background(), "C1", canvas.Announcement{
		Text:        "fallback",
		Body:        "*Created*",
		ButtonLabel: "📄 View Canvas",
		URL:         "https://app.slack.com/canvas/F1",
	})
	require.NoError(t, err)

	call := f.find("chat.postMessage")[0]
	assert.Equal(t, "C1", call.Form.Get("channel"))
	assert.Equal(t, "fallback", call.Form.Get("text"))
	assert.Contains(t, call.Form.Get("blocks"), "https://app.slack.com/canvas/F1")
	assert.Contains(t, call.Form.Get("blocks"), "📄 View Canvas")

	f.fail("chat.postMessage", "not_in_channel")
	assert.Error(t, s.Announce(context.Background(), "C1", canvas.Announcement{Text: "x"}))
}
