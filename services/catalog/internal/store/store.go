// Package store persists catalog entities, cast and comments.
package store

import (
	"context"

	"github.com/example/cinema-platform/services/catalog/internal/domain"
)

// Outbox event types written alongside catalog writes.
const (
	EventEntityCreated  = "catalog.entity.created"
	EventCommentCreated = "catalog.comment.created"
)

// CatalogStore defines all persistence operations for the catalog service.
// Entities come back with genres, countries, cast and comments loaded.
type CatalogStore interface {
	// Reads
	List(ctx context.Context, kind domain.Kind, limit, offset int) ([]domain.Entity, error)
	// Find returns every entity of kind matching all set filter fields.
	// No match is an empty slice, not an error.
	Find(ctx context.Context, kind domain.Kind, f domain.Filter) ([]domain.Entity, error)
	GetByName(ctx context.Context, kind domain.Kind, name string) (domain.Entity, error)
	GetActorByName(ctx context.Context, name string) (domain.Actor, error)
	Filters(ctx context.Context, kind domain.Kind) (domain.Filters, error)

	// Writes are atomic. Genres, countries and actors are reused by name.
	CreateEntity(ctx context.Context, in domain.EntityInput) (domain.Entity, error)
	CreateComment(ctx context.Context, kind domain.Kind, entityName string, c domain.Comment) (domain.Comment, error)
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func dedupeCast(cast []domain.CastInput) []domain.CastInput {
	seen := make(map[string]struct{}, len(cast))
	out := make([]domain.CastInput, 0, len(cast))
	for _, c := range cast {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}
