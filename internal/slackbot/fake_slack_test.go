package slackbot

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"
)

// apiCall is one request the fake Slack API received.
type apiCall struct {
	Method string
	Form   url.Values
	JSON   map[string]interface{}
}

// fakeSlack serves the Slack Web API methods the bot uses. Responses are
// keyed by method name; unknown methods answer {"ok":true}.
type fakeSlack struct {
	srv *httptest.Server

	mu        sync.Mutex
	calls     []apiCall
	responses map[string]string
}

func newFakeSlack(t *testing.T) *fakeSlack {
	t.Helper()
	f := &fakeSlack{responses: map[string]string{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)

	f.responses["conversations.canvases.create"] = `{"ok":true,"canvas_id":"F_CHANNEL"}`
	f.responses["canvases.create"] = `{"ok":true,"canvas_id":"F_STANDALONE"}`
	f.responses["chat.postMessage"] = `{"ok":true,"channel":"C1","ts":"1700000000.000100"}`
	f.responses["chat.postEphemeral"] = `{"ok":true,"message_ts":"1700000000.000200"}`
	f.responses["files.info"] = `{"ok":true,"file":{"id":"F_CHANNEL"}}`
	f.responses["files.getUploadURLExternal"] = `{"ok":true,"upload_url":"` + f.srv.URL + `/upload","file_id":"F_FILE"}`
	f.responses["files.completeUploadExternal"] = `{"ok":true,"files":[{"id":"F_FILE","title":"brain dump"}]}`
	f.responses["conversations.history"] = `{"ok":true,"messages":[]}`
	return f
}

// URL is the API base for slack.OptionAPIURL.
func (f *fakeSlack) URL() string {
	return f.srv.URL + "/"
}

// respondURL is a response_url that the fake also serves.
func (f *fakeSlack) respondURL() string {
	return f.srv.URL + "/response"
}

func (f *fakeSlack) set(method, body string) {
	f.mu.Lock()
	f.responses[method] = body
	f.mu.Unlock()
}

func (f *fakeSlack) fail(method, slackErr string) {
	f.set(method, `{"ok":false,"error":"`+slackErr+`"}`)
}

func (f *fakeSlack) serve(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/")
	call := apiCall{Method: method}

	switch ct := r.Header.Get("Content-Type"); {
	case strings.HasPrefix(ct, "application/json"):
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &call.JSON)
	case strings.HasPrefix(ct, "multipart/form-data"):
		_ = r.ParseMultipartForm(1 << 20)
		call.Form = r.MultipartForm.Value
	default:
		_ = r.ParseForm()
		call.Form = r.PostForm
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	body, ok := f.responses[method]
	f.mu.Unlock()
	if !ok {
		body = `{"ok":true}`
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func (f *fakeSlack) Calls() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiCall(nil), f.calls...)
}

// methods lists the called method names in order.
func (f *fakeSlack) methods() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, c.Method)
	}
	return out
}

// find returns every call to method.
func (f *fakeSlack) find(method string) []apiCall {
	var out []apiCall
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// newTestBot builds a Bot against the fake API without a socket.
func newTestBot(t *testing.T, f *fakeSlack) *Bot {
	t.Helper()
	client := slack.New("xoxb-test", slack.OptionAPIURL(f.URL()))
	return newBot(client, Config{
		Capture:  DefaultCapture(),
		Location: time.UTC,
	})
}
