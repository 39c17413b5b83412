package canvas

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/steveyegge/braindump/internal/telemetry"
)

// Resolution is the outcome of a successful Resolve.
type Resolution struct {
	Handle Handle
	Tier   Tier

	// Advisories are failures that were logged but did not stop the tier.
	Advisories []Advisory
}

// Created reports whether this resolution created a new resource.
func (r Resolution) Created() bool {
	return r.Tier != TierCached
}

// tier is one creation strategy. cache is false for handles that are not
// canvases (the file fallback) and so must not be reused.
type tier struct {
	name  Tier
	cache bool
	run   func(ctx context.Context, channel string) (Handle, []Advisory, error)
}

// Resolver finds or creates the brain dump canvas.
//
// It holds one cached handle for the whole process. The handle starts empty,
// is set by the first successful channel or standalone creation, and is
// cleared as soon as an existence probe fails.
//
// Concurrent Resolve calls are coalesced: while one creation sequence is in
// flight, other callers wait for and share its result.
type Resolver struct {
	store       Store
	logger      *zap.Logger
	now         func() time.Time
	titlePrefix string
	tiers       []tier

	group singleflight.Group

	mu     sync.Mutex
	cached Handle
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger.
func WithResolverLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithResolverClock overrides time.Now (titles and upload filenames).
func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithTitlePrefix sets the canvas title prefix. The year is appended.
func WithTitlePrefix(prefix string) ResolverOption {
	return func(r *Resolver) {
		if prefix != "" {
			r.titlePrefix = prefix
		}
	}
}

// NewResolver creates a Resolver with an empty cache.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:       store,
		logger:      zap.NewNop(),
		now:         time.Now,
		titlePrefix: DefaultTitlePrefix,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.tiers = []tier{
		{name: TierChannel, cache: true, run: r.createChannelCanvas},
		{name: TierStandalone, cache: true, run: r.createStandaloneCanvas},
		{name: TierFile, cache: false, run: r.uploadFallback},
	}
	return r
}

// Cached returns the cached handle, or "" if none.
func (r *Resolver) Cached() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cached
}

// Forget clears the cached handle.
func (r *Resolver) Forget() {
	r.mu.Lock()
	r.cached = ""
	r.mu.Unlock()
}

// forget clears the cache only if it still holds h.
func (r *Resolver) forget(h Handle) {
	r.mu.Lock()
	if r.cached == h {
		r.cached = ""
	}
	r.mu.Unlock()
}

func (r *Resolver) remember(h Handle) {
	r.mu.Lock()
	r.cached = h
	r.mu.Unlock()
}

// Resolve returns the canvas for channel, creating it if needed.
// It fails with *ResolutionError only when every tier failed.
func (r *Resolver) Resolve(ctx context.Context, channel string) (Resolution, error) {
	v, err, _ := r.group.Do("canvas", func() (interface{}, error) {
		return r.resolve(ctx, channel)
	})
	if err != nil {
		return Resolution{}, err
	}
	res := v.(Resolution)
	// Shared results must not alias the advisory slice.
	res.Advisories = append([]Advisory(nil), res.Advisories...)
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, channel string) (Resolution, error) {
	if h := r.Cached(); h != "" {
		err := r.store.ProbeExists(ctx, h)
		if err == nil {
			r.logger.Debug("using existing canvas", zap.String("canvas_id", h.String()))
			return Resolution{Handle: h, Tier: TierCached}, nil
		}
		r.logger.Info("canvas no longer exists, creating a new one",
			zap.String("canvas_id", h.String()),
			zap.Error(fmt.Errorf("%w: %v", ErrProbeFailed, err)))
		r.forget(h)
	}

	rerr := &ResolutionError{Channel: channel}
	for _, t := range r.tiers {
		r.logger.Info("creating canvas", zap.String("tier", string(t.name)), zap.String("channel", channel))

		h, advisories, err := t.run(ctx, channel)
		telemetry.RecordCanvasResolve(ctx, string(t.name), err)
		if err != nil {
			r.logger.Warn("canvas tier failed", zap.String("tier", string(t.name)), zap.Error(err))
			rerr.Attempts = append(rerr.Attempts, &CreationError{Tier: t.name, Err: err})
			continue
		}

		if t.cache {
			r.remember(h)
		}
		r.logger.Info("canvas ready",
			zap.String("tier", string(t.name)),
			zap.String("canvas_id", h.String()),
			zap.String("url", CanvasURL(h)))
		return Resolution{Handle: h, Tier: t.name, Advisories: advisories}, nil
	}

	r.logger.Error("all canvas tiers failed", zap.String("channel", channel), zap.String("attempts", rerr.Summary()))
	return Resolution{}, rerr
}

func (r *Resolver) createChannelCanvas(ctx context.Context, channel string) (Handle, []Advisory, error) {
	h, err := r.store.CreateChannelCanvas(ctx, channel, canvasTitle(r.titlePrefix, r.now()), canvasMarkdown)
	if err != nil {
		return "", nil, fmt.Errorf("create: %w", err)
	}
	if err := r.store.Announce(ctx, channel, announcement(h)); err != nil {
		return "", nil, fmt.Errorf("announce %s: %w", h, err)
	}
	return h, nil, nil
}

func (r *Resolver) createStandaloneCanvas(ctx context.Context, channel string) (Handle, []Advisory, error) {
	h, err := r.store.CreateStandaloneCanvas(ctx, canvasTitle(r.titlePrefix, r.now()), canvasMarkdown)
	if err != nil {
		return "", nil, fmt.Errorf("create: %w", err)
	}

	var advisories []Advisory
	if err := r.store.SetAccess(ctx, h, AccessRead, []string{channel}); err != nil {
		r.logger.Warn("could not share canvas with channel",
			zap.String("canvas_id", h.String()),
			zap.String("channel", channel),
			zap.Error(err))
		telemetry.RecordShareFailure(ctx, channel, err)
		advisories = append(advisories, Advisory{Kind: AdvisoryShare, Err: err})
	}

	if err := r.store.Announce(ctx, channel, announcement(h)); err != nil {
		return "", advisories, fmt.Errorf("announce %s: %w", h, err)
	}
	return h, advisories, nil
}

func (r *Resolver) uploadFallback(ctx context.Context, channel string) (Handle, []Advisory, error) {
	h, err := r.store.UploadFile(ctx, channel, uploadFile(r.titlePrefix, r.now()))
	if err != nil {
		return "", nil, fmt.Errorf("upload: %w", err)
	}
	if h == "" {
		return "", nil, errors.New("upload returned no file id")
	}
	return h, nil, nil
}
