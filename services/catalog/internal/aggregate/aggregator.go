package aggregate

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/cinema-platform/services/catalog/internal/domain"
	"github.com/example/cinema-platform/services/catalog/internal/media"
)

// MediaResolver is what the aggregator needs from object storage.
type MediaResolver interface {
	ResolveMedia(ctx context.Context, name string, kind domain.Kind) (domain.MediaBundle, error)
	ResolvePoster(ctx context.Context, name string, kind domain.Kind) (*string, error)
	ResolveActorPoster(ctx context.Context, name string) (*string, error)
	ResolveAvatar(ctx context.Context, userID string) (*string, error)
}

type Options struct {
	// Concurrency caps in-flight storage lookups per batch. Default 16.
	Concurrency int
	// LookupTimeout bounds every single storage lookup. Default 3s.
	LookupTimeout time.Duration
}

type Aggregator struct {
	media   MediaResolver
	log     *zap.Logger
	limit   int
	timeout time.Duration
}

func New(m MediaResolver, opts Options, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 16
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 3 * time.Second
	}
	return &Aggregator{media: m, log: log, limit: opts.Concurrency, timeout: opts.LookupTimeout}
}

// Aggregate enriches a batch of rows. Media, actor posters and comment
// avatars are resolved concurrently; each actor and each author is looked up
// once per call. Failed lookups become nil URLs. Rows that cannot be
// assembled are logged and skipped. Output order equals input order.
func (a *Aggregator) Aggregate(ctx context.Context, rows []domain.Entity) []domain.Record {
	if len(rows) == 0 {
		return []domain.Record{}
	}

	bundles := make([]domain.MediaBundle, len(rows))
	posters := media.NewPosterCache(a.bounded(a.media.ResolveActorPoster), a.log)
	avatars := media.NewPosterCache(a.bounded(a.avatar), a.log)

	seenActors := make(map[string]struct{})
	seenAuthors := make(map[string]struct{})

	var g errgroup.Group
	g.SetLimit(a.limit)
	for i, row := range rows {
		g.Go(func() error {
			c, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			b, err := a.media.ResolveMedia(c, row.Name, row.Kind)
			if err != nil {
				a.log.Warn("media unavailable", zap.String("entity", row.Name), zap.Error(err))
				return nil
			}
			bundles[i] = b
			return nil
		})
		for _, m := range row.Cast {
			if _, dup := seenActors[m.Name]; dup || m.Name == "" {
				continue
			}
			seenActors[m.Name] = struct{}{}
			g.Go(func() error {
				posters.GetOrResolve(ctx, m.Name)
				return nil
			})
		}
		for _, cm := range row.Comments {
			if _, dup := seenAuthors[cm.UserID]; dup || cm.UserID == "" {
				continue
			}
			seenAuthors[cm.UserID] = struct{}{}
			g.Go(func() error {
				avatars.GetOrResolve(ctx, cm.UserID)
				return nil
			})
		}
	}
	_ = g.Wait()

	posterURLs := posters.Snapshot()
	avatarURLs := avatars.Snapshot()
	out := make([]domain.Record, 0, len(rows))
	for i, row := range rows {
		rec, err := Assemble(row, bundles[i], posterURLs, avatarURLs)
		if err != nil {
			a.log.Error("row skipped", zap.String("entity_id", row.ID), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	a.log.Debug("batch aggregated",
		zap.Int("rows", len(rows)),
		zap.Int("records", len(out)),
		zap.Int("actor_lookups", posters.Calls()),
		zap.Int("avatar_lookups", avatars.Calls()),
	)
	return out
}

// AssembleOne is the detail-page path: lookups run one after another, each
// failure nulls its own field, and an assembly failure is returned.
func (a *Aggregator) AssembleOne(ctx context.Context, e domain.Entity) (domain.Record, error) {
	var bundle domain.MediaBundle
	{
		c, cancel := context.WithTimeout(ctx, a.timeout)
		b, err := a.media.ResolveMedia(c, e.Name, e.Kind)
		cancel()
		if err != nil {
			a.log.Warn("media unavailable", zap.String("entity", e.Name), zap.Error(err))
		} else {
			bundle = b
		}
	}

	lookupPoster := a.bounded(a.media.ResolveActorPoster)
	posters := make(map[string]*string, len(e.Cast))
	for _, m := range e.Cast {
		if _, done := posters[m.Name]; done || m.Name == "" {
			continue
		}
		url, err := lookupPoster(ctx, m.Name)
		if err != nil {
			a.log.Warn("actor poster unavailable", zap.String("actor", m.Name), zap.Error(err))
		}
		posters[m.Name] = url
	}

	avatars := EnrichComments(ctx, e.Comments, a.bounded(a.media.ResolveAvatar), a.log)
	return Assemble(e, bundle, posters, avatars)
}

// EnrichActor resolves the actor poster and the poster of every entity the
// actor appears in.
func (a *Aggregator) EnrichActor(ctx context.Context, actor domain.Actor) (domain.ActorRecord, error) {
	poster, err := a.bounded(a.media.ResolveActorPoster)(ctx, actor.Name)
	if err != nil {
		a.log.Warn("actor poster unavailable", zap.String("actor", actor.Name), zap.Error(err))
		poster = nil
	}

	appPosters := make(map[string]*string, len(actor.Appearances))
	for _, ap := range actor.Appearances {
		c, cancel := context.WithTimeout(ctx, a.timeout)
		url, err := a.media.ResolvePoster(c, ap.Name, ap.Kind)
		cancel()
		if err != nil {
			a.log.Warn("poster unavailable", zap.String("entity", ap.Name), zap.Error(err))
			url = nil
		}
		appPosters[ap.Name] = url
	}
	return AssembleActor(actor, poster, appPosters)
}

// avatar treats a missing avatar as an empty result rather than a failure.
func (a *Aggregator) avatar(ctx context.Context, userID string) (*string, error) {
	url, err := a.media.ResolveAvatar(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return url, err
}

func (a *Aggregator) bounded(fn media.LookupFunc) media.LookupFunc {
	return func(ctx context.Context, key string) (*string, error) {
		c, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		return fn(c, key)
	}
}
