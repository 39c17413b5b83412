package canvas

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.October, 19, 15, 4, 0, 0, time.UTC)

func newTestResolver(store *fakeStore) *Resolver {
	return NewResolver(store, WithResolverClock(func() time.Time { return fixedNow }))
}

func TestResolve_ChannelTierFirst(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	res, err := r.Resolve(context.Background(), "C1")
	require.NoError(t, err)

	assert.Equal(t, Handle("F_CHANNEL"), res.Handle)
	assert.Equal(t, TierChannel, res.Tier)
	assert.True(t, res.Created())
	assert.Equal(t, []string{"create_channel", "announce"}, store.Calls())
	assert.Equal(t, Handle("F_CHANNEL"), r.Cached())

	require.Len(t, store.titles, 1)
	assert.Equal(t, "🧠 Team Brain Dump - 2026", store.titles[0])
	require.Len(t, store.announcements, 1)
	assert.Equal(t, "https://app.slack.com/canvas/F_CHANNEL", store.announcements[0].URL)
}

func TestResolve_TierOrder(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*fakeStore)
		wantTier  Tier
		wantCalls []string
		wantCache Handle
	}{
		{
			name:      "channel succeeds",
			setup:     func(*fakeStore) {},
			wantTier:  TierChannel,
			wantCalls: []string{"create_channel", "announce"},
			wantCache: "F_CHANNEL",
		},
		{
			name: "standalone after channel failure",
			setup: func(s *fakeStore) {
				s.channelErr = errors.New("not_allowed")
			},
			wantTier:  TierStandalone,
			wantCalls: []string{"create_channel", "create_standalone", "set_access", "announce"},
			wantCache: "F_STANDALONE",
		},
		{
			name: "file after both canvases fail",
			setup: func(s *fakeStore) {
				s.channelErr = errors.New("not_allowed")
				s.standaloneErr = errors.New("canvas_disabled")
			},
			wantTier:  TierFile,
			wantCalls: []string{"create_channel", "create_standalone", "upload"},
			wantCache: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			tt.setup(store)
			r := newTestResolver(store)

			res, err := r.Resolve(context.Background(), "C1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantTier, res.Tier)
			assert.Equal(t, tt.wantCalls, store.Calls())
			assert.Equal(t, tt.wantCache, r.Cached())
		})
	}
}

func TestResolve_CachedHandleSkipsCreation(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	_, err := r.Resolve(context.Background(), "C1")
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), "C1")
	require.NoError(t, err)

	assert.Equal(t, TierCached, res.Tier)
	assert.False(t, res.Created())
	assert.Equal(t, 1, store.count("create_channel"))
	assert.Equal(t, 1, store.count("probe"))
}

func TestResolve_ProbeFailureRecreates(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	_, err := r.Resolve(context.Background(), "C1")
	require.NoError(t, err)

	store.probeErr = errors.New("file_not_found")
	store.channelID = "F_NEW"

	res, err := r.Resolve(context.Background(), "C1")
	require.NoError(t, err)

	assert.Equal(t, Handle("F_NEW"), res.Handle)
	assert.Equal(t, Handle("F_NEW"), r.Cached())
	// Exactly one tier ran for the second resolution.
	assert.Equal(t, 2, store.count("create_channel"))
	assert.Equal(t, 0, store.count("create_standalone"))
	assert.Equal(t, 0, store.count("upload"))
}

func TestResolve_ProbeFailureClearsCacheEvenIfCreationFails(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	_, err := r.Resolve(context.Background(), "C1")
	require.NoError(t, err)

	store.probeErr = errors.New("file_not_found")
	store.channelErr = errors.New("a")
	store.standaloneErr = errors.New("b")
	store.uploadErr = errors.New("c")

	_, err = r.Resolve(context.Background(), "C1")
	require.Error(t, err)
	assert.Equal(t, Handle(""), r.Cached())
}

func TestResolve_AllTiersFailSurfacesFirstError(t *testing.T) {
	errA := errors.New("channel canvas failed")
	errB := errors.New("standalone canvas failed")
	errC := errors.New("upload failed")

	store := newFakeStore()
	store.channelErr = errA
	store.standaloneErr = errB
	store.uploadErr = errC
	r := newTestResolver(store)

	_, err := r.Resolve(context.Background(), "C1")
	require.Error(t, err)

	var rerr *ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.ErrorIs(t, err, errA)
	assert.NotErrorIs(t, err, errB)
	assert.NotErrorIs(t, err, errC)
	assert.ErrorIs(t, rerr.Cause(), errA)
	assert.Len(t, rerr.Attempts, 3)
	assert.Equal(t, TierChannel, rerr.Attempts[0].Tier)
	assert.Contains(t, rerr.Summary(), "upload failed")
	assert.Equal(t, Handle(""), r.Cached())
}

func TestResolve_AnnouncementFailureFallsThrough(t *testing.T) {
	store := newFakeStore()
	store.announceErr = errors.New("not_in_channel")
	r := newTestResolver(store)

	res, err := r.Resolve(context.Background(), "C1")
	require.NoError(t, err)

	// Both canvas tiers need the announcement, so only the upload works.
	assert.Equal(t, TierFile, res.Tier)
	assert.Equal(t, Handle("F_FILE"), res.Handle)
}

func TestResolve_ShareFailureIsAdvisory(t *testing.T) {
	store := newFakeStore()
	store.channelErr = errors.New("not_allowed")
	store.shareErr = errors.New("access_denied")
	r := newTestResolver(store)

	res, err := r.Resolve(context.Background(), "C1")
	require.NoError(t, err)

	assert.Equal(t, TierStandalone, res.Tier)
	require.Len(t, res.Advisories, 1)
	assert.Equal(t, AdvisoryShare, res.Advisories[0].Kind)
	assert.ErrorIs(t, res.Advisories[0].Err, store.shareErr)
	assert.Equal(t, Handle("F_STANDALONE"), r.Cached())
}

func TestResolve_FileHandleNotCached(t *testing.T) {
	store := newFakeStore()
	store.channelErr = errors.New("a")
	store.standaloneErr = errors.New("b")
	r := newTestResolver(store)

	_, err := r.Resolve(context.Background(), "C1")
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), "C1")
	require.NoError(t, err)

	assert.Equal(t, 0, store.count("probe"))
	assert.Equal(t, 2, store.count("create_channel"))
	assert.Equal(t, 2, store.count("upload"))
	require.Len(t, store.uploads, 2)
	assert.Equal(t, "brain-dump-1792422240000.md", store.uploads[0].Filename)
}

func TestResolve_ConcurrentFirstResolutionsCoalesce(t *testing.T) {
	store := newFakeStore()
	store.block = make(chan struct{})
	r := newTestResolver(store)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]Resolution, callers)
	errs := make([]error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = r.Resolve(context.Background(), "C1")
	}()

	// Wait until the first caller is inside creation.
	require.Eventually(t, func() bool { return store.creates.Load() == 1 }, time.Second, time.Millisecond)

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Resolve(context.Background(), "C1")
		}(i)
	}

	// Give the late callers a moment to join the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(store.block)
	wg.Wait()

	assert.Equal(t, int32(1), store.creates.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, Handle("F_CHANNEL"), results[i].Handle)
	}
}

func TestResolver_Forget(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	_, err := r.Resolve(context.Background(), "C1")
	require.NoError(t, err)
	r.Forget()
	assert.Equal(t, Handle(""), r.Cached())
}
