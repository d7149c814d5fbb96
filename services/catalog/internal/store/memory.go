package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/cinema-platform/services/catalog/internal/domain"
)

// InMemoryCatalogStore is a CatalogStore for tests and local runs.
// Returned entities are deep copies.
type InMemoryCatalogStore struct {
	mu       sync.RWMutex
	entities map[string]*domain.Entity // by name
	actors   map[string]domain.CastMember
	now      func() time.Time
}

func NewInMemoryCatalogStore() *InMemoryCatalogStore {
	return &InMemoryCatalogStore{
		entities: make(map[string]*domain.Entity),
		actors:   make(map[string]domain.CastMember),
		now:      time.Now,
	}
}

func (s *InMemoryCatalogStore) List(ctx context.Context, kind domain.Kind, limit, offset int) ([]domain.Entity, error) {
	all, _ := s.Find(ctx, kind, domain.Filter{})
	if offset >= len(all) {
		return []domain.Entity{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *InMemoryCatalogStore) Find(_ context.Context, kind domain.Kind, f domain.Filter) ([]domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Entity{}
	for _, e := range s.entities {
		if e.Kind != kind {
			continue
		}
		if f.Genre != nil && !contains(e.Genres, *f.Genre) {
			continue
		}
		if f.Country != nil && !contains(e.Countries, *f.Country) {
			continue
		}
		if f.MinRating != nil && e.Rating < *f.MinRating {
			continue
		}
		out = append(out, clone(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryCatalogStore) GetByName(_ context.Context, kind domain.Kind, name string) (domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[name]
	if !ok || e.Kind != kind {
		return domain.Entity{}, fmt.Errorf("%s %q: %w", kind, name, domain.ErrNotFound)
	}
	return clone(e), nil
}

func (s *InMemoryCatalogStore) GetActorByName(_ context.Context, name string) (domain.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.actors[name]
	if !ok {
		return domain.Actor{}, fmt.Errorf("actor %q: %w", name, domain.ErrNotFound)
	}
	a := domain.Actor{CastMember: m, Appearances: []domain.Appearance{}}
	for _, e := range s.entities {
		for _, c := range e.Cast {
			if c.Name == name {
				a.Appearances = append(a.Appearances, domain.Appearance{
					Name: e.Name, Kind: e.Kind, YearProduced: e.YearProduced, Rating: e.Rating,
				})
				break
			}
		}
	}
	sort.Slice(a.Appearances, func(i, j int) bool {
		x, y := a.Appearances[i], a.Appearances[j]
		if x.YearProduced != y.YearProduced {
			return x.YearProduced > y.YearProduced
		}
		return x.Name < y.Name
	})
	return a, nil
}

func (s *InMemoryCatalogStore) Filters(_ context.Context, kind domain.Kind) (domain.Filters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	genres := map[string]struct{}{}
	countries := map[string]struct{}{}
	for _, e := range s.entities {
		if e.Kind != kind {
			continue
		}
		for _, g := range e.Genres {
			genres[g] = struct{}{}
		}
		for _, c := range e.Countries {
			countries[c] = struct{}{}
		}
	}
	return domain.Filters{Genres: sortedKeys(genres), Countries: sortedKeys(countries)}, nil
}

func (s *InMemoryCatalogStore) CreateEntity(_ context.Context, in domain.EntityInput) (domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[in.Name]; exists {
		return domain.Entity{}, fmt.Errorf("create %s %q: %w", in.Kind, in.Name, domain.ErrConflict)
	}

	e := &domain.Entity{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Kind:         in.Kind,
		Description:  in.Description,
		YearProduced: in.YearProduced,
		AgeRating:    in.AgeRating,
		Runtime:      in.Runtime,
		Rating:       in.Rating,
		Genres:       dedupe(in.Genres),
		Countries:    dedupe(in.Countries),
		Cast:         []domain.CastMember{},
		Comments:     []domain.Comment{},
	}
	for _, c := range dedupeCast(in.Cast) {
		m, ok := s.actors[c.Name]
		if !ok {
			m = domain.CastMember{
				ID: uuid.NewString(), Name: c.Name, Career: append([]string{}, c.Career...),
				BirthDate: c.BirthDate, Birthplace: c.Birthplace, Sex: c.Sex, Age: c.Age,
				Height: c.Height, Biography: c.Biography,
			}
			s.actors[c.Name] = m
		}
		e.Cast = append(e.Cast, m)
	}
	s.entities[e.Name] = e
	return clone(e), nil
}

func (s *InMemoryCatalogStore) CreateComment(_ context.Context, kind domain.Kind, entityName string, c domain.Comment) (domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[entityName]
	if !ok || e.Kind != kind {
		return domain.Comment{}, fmt.Errorf("%s %q: %w", kind, entityName, domain.ErrNotFound)
	}
	c.ID = uuid.NewString()
	c.EntityID = e.ID
	c.CreatedAt = s.now().UTC()
	if c.AuthorName != nil {
		n := *c.AuthorName
		c.AuthorName = &n
	}
	e.Comments = append(e.Comments, c)
	return c, nil
}

func clone(e *domain.Entity) domain.Entity {
	out := *e
	out.Genres = append([]string{}, e.Genres...)
	out.Countries = append([]string{}, e.Countries...)
	out.Cast = make([]domain.CastMember, len(e.Cast))
	for i, m := range e.Cast {
		m.Career = append([]string{}, m.Career...)
		out.Cast[i] = m
	}
	out.Comments = append([]domain.Comment{}, e.Comments...)
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
