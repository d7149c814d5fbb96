// Package service wires the catalog store, the aggregation core, the fact
// relay and the filter cache into the operations the HTTP layer exposes.
package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/example/cinema-platform/services/catalog/internal/cache"
	"github.com/example/cinema-platform/services/catalog/internal/domain"
	"github.com/example/cinema-platform/services/catalog/internal/store"
)

// Aggregator turns stored rows into presentation records.
type Aggregator interface {
	Aggregate(ctx context.Context, rows []domain.Entity) []domain.Record
	AssembleOne(ctx context.Context, e domain.Entity) (domain.Record, error)
	EnrichActor(ctx context.Context, a domain.Actor) (domain.ActorRecord, error)
}

// AuthorSource yields the author name for a comment being created, or nil.
type AuthorSource interface {
	NextAuthorName(ctx context.Context) *string
}

type Options struct {
	PageSize    int
	MaxPageSize int
}

type CatalogService struct {
	store   store.CatalogStore
	agg     Aggregator
	authors AuthorSource
	cache   cache.Cache
	log     *zap.Logger
	opts    Options
}

func New(st store.CatalogStore, agg Aggregator, authors AuthorSource, c cache.Cache, opts Options, log *zap.Logger) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	if c == nil {
		c = cache.Noop{}
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 25
	}
	if opts.MaxPageSize < opts.PageSize {
		opts.MaxPageSize = 100
	}
	return &CatalogService{store: st, agg: agg, authors: authors, cache: c, log: log, opts: opts}
}

func filtersKey(kind domain.Kind) string {
	return "catalog:filters:" + string(kind)
}

// List returns one page of entities of kind and the page actually served.
// limit <= 0 selects the default page size; larger limits are capped.
func (s *CatalogService) List(ctx context.Context, kind domain.Kind, limit, offset int) ([]domain.Record, domain.Page, error) {
	if !kind.Valid() {
		return nil, domain.Page{}, invalidKind(kind)
	}
	if limit <= 0 {
		limit = s.opts.PageSize
	}
	if limit > s.opts.MaxPageSize {
		limit = s.opts.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	page := domain.Page{Limit: limit, Offset: offset}
	rows, err := s.store.List(ctx, kind, limit, offset)
	if err != nil {
		return nil, page, fmt.Errorf("list %s: %w", kind, err)
	}
	return s.agg.Aggregate(ctx, rows), page, nil
}

// Find applies the filter. An empty result is not an error here; callers
// decide what empty means.
func (s *CatalogService) Find(ctx context.Context, kind domain.Kind, f domain.Filter) ([]domain.Record, error) {
	if !kind.Valid() {
		return nil, invalidKind(kind)
	}
	if f.MinRating != nil && !validRating(*f.MinRating) {
		return nil, &domain.ValidationError{Fields: map[string]string{"rating": "must be between 0 and 10"}}
	}
	rows, err := s.store.Find(ctx, kind, f)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", kind, err)
	}
	return s.agg.Aggregate(ctx, rows), nil
}

// GetByName returns domain.ErrNotFound when no entity of kind has the name.
// A found entity always yields a record; enrichment failures only null fields.
func (s *CatalogService) GetByName(ctx context.Context, kind domain.Kind, name string) (domain.Record, error) {
	if !kind.Valid() {
		return domain.Record{}, invalidKind(kind)
	}
	e, err := s.store.GetByName(ctx, kind, strings.TrimSpace(name))
	if err != nil {
		return domain.Record{}, err
	}
	return s.agg.AssembleOne(ctx, e)
}

func (s *CatalogService) GetActor(ctx context.Context, name string) (domain.ActorRecord, error) {
	a, err := s.store.GetActorByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return domain.ActorRecord{}, err
	}
	return s.agg.EnrichActor(ctx, a)
}

// Filters is served from the cache when possible. Cache errors fall back to
// the store.
func (s *CatalogService) Filters(ctx context.Context, kind domain.Kind) (domain.Filters, error) {
	if !kind.Valid() {
		return domain.Filters{}, invalidKind(kind)
	}
	key := filtersKey(kind)
	var cached domain.Filters
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("filters cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return cached, nil
	}

	f, err := s.store.Filters(ctx, kind)
	if err != nil {
		return domain.Filters{}, fmt.Errorf("filters %s: %w", kind, err)
	}
	if err := s.cache.Set(ctx, key, f); err != nil {
		s.log.Warn("filters cache write failed", zap.String("key", key), zap.Error(err))
	}
	return f, nil
}

// AddEntity creates a film or serial. in.Kind must equal kind; an empty
// in.Kind takes kind.
func (s *CatalogService) AddEntity(ctx context.Context, kind domain.Kind, in domain.EntityInput) (domain.Record, error) {
	if !kind.Valid() {
		return domain.Record{}, invalidKind(kind)
	}
	if in.Kind == "" {
		in.Kind = kind
	}
	if in.Kind != kind {
		return domain.Record{}, &domain.ValidationError{Fields: map[string]string{"kind": "must be " + string(kind)}}
	}
	if err := in.Validate(ctx); err != nil {
		return domain.Record{}, err
	}

	e, err := s.store.CreateEntity(ctx, in)
	if err != nil {
		return domain.Record{}, err
	}
	if err := s.cache.Delete(ctx, filtersKey(kind)); err != nil {
		s.log.Warn("filters cache invalidation failed", zap.String("kind", string(kind)), zap.Error(err))
	}
	s.log.Info("entity created", zap.String("kind", string(kind)), zap.String("name", e.Name))
	return s.agg.AssembleOne(ctx, e)
}

// AddComment validates, waits for the author's name on the bus, then
// persists. No connection is held while waiting. A missing fact leaves the
// author name nil.
func (s *CatalogService) AddComment(ctx context.Context, kind domain.Kind, in domain.CommentInput) (domain.CommentRecord, error) {
	if !kind.Valid() {
		return domain.CommentRecord{}, invalidKind(kind)
	}
	if err := in.Validate(ctx); err != nil {
		return domain.CommentRecord{}, err
	}

	var author *string
	if s.authors != nil {
		author = s.authors.NextAuthorName(ctx)
	}
	if author == nil {
		s.log.Debug("comment created without author name", zap.String("entity", in.EntityName))
	}

	c, err := s.store.CreateComment(ctx, kind, in.EntityName, domain.Comment{
		UserID:     in.UserID,
		AuthorName: author,
		Rating:     in.Rating,
		Body:       in.Body,
	})
	if err != nil {
		return domain.CommentRecord{}, err
	}
	return domain.CommentRecord{
		ID:         c.ID,
		UserID:     c.UserID,
		AuthorName: c.AuthorName,
		Rating:     c.Rating,
		Body:       c.Body,
		CreatedAt:  c.CreatedAt,
	}, nil
}

// validRating rejects NaN and infinities along with out-of-range values.
func validRating(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= 10
}

func invalidKind(kind domain.Kind) error {
	return &domain.ValidationError{Fields: map[string]string{"kind": fmt.Sprintf("unknown kind %q", kind)}}
}
