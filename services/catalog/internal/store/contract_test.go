package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/cinema-platform/services/catalog/internal/domain"
)

func strp(s string) *string   { return &s }
func f64p(f float64) *float64 { return &f }
func names(es []domain.Entity) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.Name)
	}
	return out
}

func entityInput(name string, kind domain.Kind, rating float64, genres, countries []string, cast ...string) domain.EntityInput {
	in := domain.EntityInput{
		Name: name, Kind: kind, Description: name + " description", YearProduced: 2001,
		AgeRating: "16+", Runtime: "120 min", Rating: rating, Genres: genres, Countries: countries,
	}
	for _, c := range cast {
		in.Cast = append(in.Cast, domain.CastInput{
			Name: c, Career: []string{"actor"}, BirthDate: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
			Birthplace: "Somewhere", Sex: "female", Age: 56, Height: "1.70 m", Biography: c + " bio",
		})
	}
	return in
}

// seed loads a small catalog shared by the contract tests.
func seed(t *testing.T, s CatalogStore) {
	t.Helper()
	ctx := context.Background()
	for _, in := range []domain.EntityInput{
		entityInput("Amelie", domain.KindMovie, 8.3, []string{"Comedy", "Drama"}, []string{"France"}, "Audrey Tautou"),
		entityInput("Heat", domain.KindMovie, 8.3, []string{"Crime", "Drama"}, []string{"USA"}, "Al Pacino", "Robert De Niro"),
		entityInput("Irishman", domain.KindMovie, 7.5, []string{"Crime", "Drama"}, []string{"USA"}, "Robert De Niro", "Al Pacino"),
		entityInput("Weak Drama", domain.KindMovie, 7.49, []string{"Drama"}, []string{"USA"}),
		entityInput("Dark", domain.KindSerial, 8.7, []string{"Drama", "Sci-Fi"}, []string{"Germany"}),
	} {
		_, err := s.CreateEntity(ctx, in)
		require.NoError(t, err, in.Name)
	}
}

func runContract(t *testing.T, newStore func(t *testing.T) CatalogStore) {
	ctx := context.Background()

	t.Run("find conjunction", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		got, err := s.Find(ctx, domain.KindMovie, domain.Filter{Genre: strp("Drama"), MinRating: f64p(7.5)})
		require.NoError(t, err)
		assert.Equal(t, []string{"Amelie", "Heat", "Irishman"}, names(got))

		got, err = s.Find(ctx, domain.KindMovie, domain.Filter{Genre: strp("Drama"), Country: strp("France")})
		require.NoError(t, err)
		assert.Equal(t, []string{"Amelie"}, names(got))
	})

	t.Run("find without filters returns whole kind", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		got, err := s.Find(ctx, domain.KindMovie, domain.Filter{})
		require.NoError(t, err)
		assert.Len(t, got, 4)
		got, err = s.Find(ctx, domain.KindSerial, domain.Filter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Dark"}, names(got))
	})

	t.Run("find no match is empty not error", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		got, err := s.Find(ctx, domain.KindSerial, domain.Filter{Genre: strp("Crime")})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("list pages and loads relations", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		got, err := s.List(ctx, domain.KindMovie, 2, 1)
		require.NoError(t, err)
		require.Equal(t, []string{"Heat", "Irishman"}, names(got))
		assert.Equal(t, []string{"Crime", "Drama"}, got[0].Genres)
		require.Len(t, got[0].Cast, 2)
		assert.Equal(t, "Al Pacino", got[0].Cast[0].Name)
		assert.Equal(t, "Robert De Niro", got[1].Cast[0].Name, "cast order is preserved")
	})

	t.Run("get by name scoped by kind", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		e, err := s.GetByName(ctx, domain.KindSerial, "Dark")
		require.NoError(t, err)
		assert.Equal(t, domain.KindSerial, e.Kind)

		_, err = s.GetByName(ctx, domain.KindMovie, "Dark")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("duplicate name conflicts across kinds", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		_, err := s.CreateEntity(ctx, entityInput("Heat", domain.KindSerial, 5, nil, nil))
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("actors reused by name", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		a, err := s.GetActorByName(ctx, "Al Pacino")
		require.NoError(t, err)
		assert.Equal(t, []string{"Heat", "Irishman"}, appearanceNames(a))

		_, err = s.GetActorByName(ctx, "Nobody")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("filters per kind", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		f, err := s.Filters(ctx, domain.KindSerial)
		require.NoError(t, err)
		assert.Equal(t, []string{"Drama", "Sci-Fi"}, f.Genres)
		assert.Equal(t, []string{"Germany"}, f.Countries)
	})

	t.Run("comments", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		uid := "0b8f2f3a-8e0c-4f7e-9a57-5c5c3f1e2d10"
		c1, err := s.CreateComment(ctx, domain.KindMovie, "Heat", domain.Comment{UserID: uid, Rating: 9, Body: "superb heist", AuthorName: strp("neo")})
		require.NoError(t, err)
		assert.NotEmpty(t, c1.ID)
		_, err = s.CreateComment(ctx, domain.KindMovie, "Heat", domain.Comment{UserID: uid, Rating: 8, Body: "second look"})
		require.NoError(t, err)

		e, err := s.GetByName(ctx, domain.KindMovie, "Heat")
		require.NoError(t, err)
		require.Len(t, e.Comments, 2)
		assert.Equal(t, "superb heist", e.Comments[0].Body)
		require.NotNil(t, e.Comments[0].AuthorName)
		assert.Equal(t, "neo", *e.Comments[0].AuthorName)
		assert.Nil(t, e.Comments[1].AuthorName)

		_, err = s.CreateComment(ctx, domain.KindSerial, "Heat", domain.Comment{UserID: uid, Body: "wrong kind"})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func appearanceNames(a domain.Actor) []string {
	out := make([]string, 0, len(a.Appearances))
	for _, ap := range a.Appearances {
		out = append(out, ap.Name)
	}
	return out
}

func TestInMemoryCatalogStore_Contract(t *testing.T) {
	runContract(t, func(*testing.T) CatalogStore { return NewInMemoryCatalogStore() })
}

func TestInMemoryCatalogStore_ReturnsCopies(t *testing.T) {
	s := NewInMemoryCatalogStore()
	seed(t, s)
	e, _ := s.GetByName(context.Background(), domain.KindMovie, "Heat")
	e.Genres[0] = "Mutated"
	again, _ := s.GetByName(context.Background(), domain.KindMovie, "Heat")
	if again.Genres[0] != "Crime" {
		t.Fatalf("store state leaked through returned entity: %v", again.Genres)
	}
}
