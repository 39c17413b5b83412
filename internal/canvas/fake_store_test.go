package canvas

import (
	"context"
	"sync"
	"sync/atomic"
)

// fakeStore records calls and returns scripted results.
type fakeStore struct {
	mu    sync.Mutex
	calls []string

	probeErr      error
	channelErr    error
	standaloneErr error
	shareErr      error
	appendErr     error
	uploadErr     error
	announceErr   error

	channelID    Handle
	standaloneID Handle
	fileID       Handle

	appended      []string
	announcements []Announcement
	uploads       []Upload
	titles        []string

	// block, when set, is waited on inside CreateChannelCanvas.
	block   chan struct{}
	creates atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		channelID:    "F_CHANNEL",
		standaloneID: "F_STANDALONE",
		fileID:       "F_FILE",
	}
}

func (f *fakeStore) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeStore) count(call string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeStore) ProbeExists(ctx context.Context, h Handle) error {
	f.record("probe")
	return f.probeErr
}

func (f *fakeStore) CreateChannelCanvas(ctx context.Context, channel, title, markdown string) (Handle, error) {
	f.record("create_channel")
	f.creates.Add(1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.titles = append(f.titles, title)
	f.mu.Unlock()
	if f.channelErr != nil {
		return "", f.channelErr
	}
	return f.channelID, nil
}

func (f *fakeStore) CreateStandaloneCanvas(ctx context.Context, title, markdown string) (Handle, error) {
	f.record("create_standalone")
	if f.standaloneErr != nil {
		return "", f.standaloneErr
	}
	return f.standaloneID, nil
}

func (f *fakeStore) SetAccess(ctx context.Context, h Handle, level AccessLevel, channels []string) error {
	f.record("set_access")
	return f.shareErr
}

func (f *fakeStore) AppendContent(ctx context.Context, h Handle, markdown string) error {
	f.record("append")
	if f.appendErr != nil {
		return f.appendErr
	}
	f.mu.Lock()
	f.appended = append(f.appended, markdown)
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) UploadFile(ctx context.Context, channel string, u Upload) (Handle, error) {
	f.record("upload")
	f.mu.Lock()
	f.uploads = append(f.uploads, u)
	f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.fileID, nil
}

func (f *fakeStore) Announce(ctx context.Context, channel string, a Announcement) error {
	f.record("announce")
	if f.announceErr != nil {
		return f.announceErr
	}
	f.mu.Lock()
	f.announcements = append(f.announcements, a)
	f.mu.Unlock()
	return nil
}
