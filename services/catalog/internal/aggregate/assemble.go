// Package aggregate joins catalog rows with resolved media into
// presentation records.
package aggregate

import (
	"fmt"
	"strings"

	"github.com/example/cinema-platform/services/catalog/internal/domain"
)

// Assemble builds the presentation record for one entity. It does no I/O:
// posters is keyed by actor name and avatars by user id, missing keys
// render as nil URLs. Empty relations render as empty slices.
func Assemble(e domain.Entity, bundle domain.MediaBundle, posters, avatars map[string]*string) (domain.Record, error) {
	if strings.TrimSpace(e.Name) == "" {
		return domain.Record{}, fmt.Errorf("entity %s: empty name: %w", e.ID, domain.ErrMalformedRow)
	}
	if !e.Kind.Valid() {
		return domain.Record{}, fmt.Errorf("entity %q: kind %q: %w", e.Name, e.Kind, domain.ErrMalformedRow)
	}

	cast := make([]domain.CastRecord, 0, len(e.Cast))
	for i, m := range e.Cast {
		if strings.TrimSpace(m.Name) == "" {
			return domain.Record{}, fmt.Errorf("entity %q: cast[%d] has no name: %w", e.Name, i, domain.ErrMalformedRow)
		}
		cast = append(cast, castRecord(m, posters[m.Name]))
	}

	comments := make([]domain.CommentRecord, 0, len(e.Comments))
	for i, c := range e.Comments {
		if strings.TrimSpace(c.UserID) == "" {
			return domain.Record{}, fmt.Errorf("entity %q: comment[%d] has no author: %w", e.Name, i, domain.ErrMalformedRow)
		}
		comments = append(comments, domain.CommentRecord{
			ID:         c.ID,
			UserID:     c.UserID,
			AuthorName: copyPtr(c.AuthorName),
			AvatarURL:  copyPtr(avatars[c.UserID]),
			Rating:     c.Rating,
			Body:       c.Body,
			CreatedAt:  c.CreatedAt,
		})
	}

	return domain.Record{
		Name:         e.Name,
		Kind:         e.Kind,
		Description:  e.Description,
		YearProduced: e.YearProduced,
		AgeRating:    e.AgeRating,
		Runtime:      e.Runtime,
		Rating:       e.Rating,
		Genres:       cloneStrings(e.Genres),
		Countries:    cloneStrings(e.Countries),
		Cast:         cast,
		Comments:     comments,
		MediaBundle: domain.MediaBundle{
			Poster:   copyPtr(bundle.Poster),
			Preview:  copyPtr(bundle.Preview),
			Synopsis: copyPtr(bundle.Synopsis),
			Play:     copyPtr(bundle.Play),
		},
	}, nil
}

// AssembleActor builds the actor page. appearancePosters is keyed by entity name.
func AssembleActor(a domain.Actor, poster *string, appearancePosters map[string]*string) (domain.ActorRecord, error) {
	if strings.TrimSpace(a.Name) == "" {
		return domain.ActorRecord{}, fmt.Errorf("actor %s: empty name: %w", a.ID, domain.ErrMalformedRow)
	}
	apps := make([]domain.AppearanceRecord, 0, len(a.Appearances))
	for _, ap := range a.Appearances {
		apps = append(apps, domain.AppearanceRecord{
			Name:         ap.Name,
			Kind:         ap.Kind,
			YearProduced: ap.YearProduced,
			Rating:       ap.Rating,
			PosterURL:    copyPtr(appearancePosters[ap.Name]),
		})
	}
	return domain.ActorRecord{
		CastRecord:  castRecord(a.CastMember, poster),
		Appearances: apps,
	}, nil
}

func castRecord(m domain.CastMember, poster *string) domain.CastRecord {
	return domain.CastRecord{
		Name:       m.Name,
		Career:     cloneStrings(m.Career),
		BirthDate:  m.BirthDate,
		Birthplace: m.Birthplace,
		Sex:        m.Sex,
		Age:        m.Age,
		Height:     m.Height,
		Biography:  m.Biography,
		PosterURL:  copyPtr(poster),
	}
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
