package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/cinema-platform/services/catalog/internal/domain"
)

// PostgresCatalogStore is the production Postgres-backed implementation.
// Every call runs in its own transaction, so one pooled connection is held
// for the duration of one logical operation only.
type PostgresCatalogStore struct {
	db *pgxpool.Pool
}

func NewPostgresCatalogStore(db *pgxpool.Pool) *PostgresCatalogStore {
	return &PostgresCatalogStore{db: db}
}

var readOnly = pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead}

const entityColumns = `e.id::text, e.name, e.kind, e.description, e.year_produced, e.age_rating, e.runtime, e.rating`

// ── Reads ──────────────────────────────────────────────────────────────────

func (s *PostgresCatalogStore) List(ctx context.Context, kind domain.Kind, limit, offset int) ([]domain.Entity, error) {
	var out []domain.Entity
	err := pgx.BeginTxFunc(ctx, s.db, readOnly, func(tx pgx.Tx) error {
		var err error
		out, err = queryEntities(ctx, tx, `
SELECT `+entityColumns+`
FROM entities e
WHERE e.kind = $1
ORDER BY e.name
LIMIT $2 OFFSET $3`, string(kind), limit, offset)
		if err != nil {
			return err
		}
		return loadRelations(ctx, tx, out)
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return out, nil
}

func (s *PostgresCatalogStore) Find(ctx context.Context, kind domain.Kind, f domain.Filter) ([]domain.Entity, error) {
	query, args := buildFindQuery(kind, f)
	var out []domain.Entity
	err := pgx.BeginTxFunc(ctx, s.db, readOnly, func(tx pgx.Tx) error {
		var err error
		out, err = queryEntities(ctx, tx, query, args...)
		if err != nil {
			return err
		}
		return loadRelations(ctx, tx, out)
	})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", kind, err)
	}
	return out, nil
}

// buildFindQuery ANDs every set filter field; MinRating is inclusive.
func buildFindQuery(kind domain.Kind, f domain.Filter) (string, []any) {
	var b strings.Builder
	args := []any{string(kind)}
	b.WriteString("SELECT " + entityColumns + "\nFROM entities e\nWHERE e.kind = $1")
	if f.Genre != nil {
		args = append(args, *f.Genre)
		b.WriteString(`
  AND EXISTS (SELECT 1 FROM entity_genres eg JOIN genres g ON g.id = eg.genre_id
              WHERE eg.entity_id = e.id AND g.name = $` + strconv.Itoa(len(args)) + `)`)
	}
	if f.Country != nil {
		args = append(args, *f.Country)
		b.WriteString(`
  AND EXISTS (SELECT 1 FROM entity_countries ec JOIN countries c ON c.id = ec.country_id
              WHERE ec.entity_id = e.id AND c.name = $` + strconv.Itoa(len(args)) + `)`)
	}
	if f.MinRating != nil {
		args = append(args, *f.MinRating)
		b.WriteString("\n  AND e.rating >= $" + strconv.Itoa(len(args)))
	}
	b.WriteString("\nORDER BY e.name")
	return b.String(), args
}

func (s *PostgresCatalogStore) GetByName(ctx context.Context, kind domain.Kind, name string) (domain.Entity, error) {
	var out []domain.Entity
	err := pgx.BeginTxFunc(ctx, s.db, readOnly, func(tx pgx.Tx) error {
		var err error
		out, err = queryEntities(ctx, tx, `
SELECT `+entityColumns+`
FROM entities e
WHERE e.kind = $1 AND e.name = $2`, string(kind), name)
		if err != nil {
			return err
		}
		return loadRelations(ctx, tx, out)
	})
	if err != nil {
		return domain.Entity{}, fmt.Errorf("get %s %q: %w", kind, name, err)
	}
	if len(out) == 0 {
		return domain.Entity{}, fmt.Errorf("%s %q: %w", kind, name, domain.ErrNotFound)
	}
	return out[0], nil
}

func (s *PostgresCatalogStore) GetActorByName(ctx context.Context, name string) (domain.Actor, error) {
	var a domain.Actor
	err := pgx.BeginTxFunc(ctx, s.db, readOnly, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
SELECT id::text, name, career, birth_date, birthplace, sex, age, height, biography
FROM actors WHERE name = $1`, name).Scan(
			&a.ID, &a.Name, &a.Career, &a.BirthDate, &a.Birthplace, &a.Sex, &a.Age, &a.Height, &a.Biography,
		)
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, `
SELECT e.name, e.kind, e.year_produced, e.rating
FROM entity_actors ea JOIN entities e ON e.id = ea.entity_id
WHERE ea.actor_id = $1::uuid
ORDER BY e.year_produced DESC, e.name`, a.ID)
		if err != nil {
			return err
		}
		defer rows.Close()
		a.Appearances = []domain.Appearance{}
		for rows.Next() {
			var ap domain.Appearance
			var kind string
			if err := rows.Scan(&ap.Name, &kind, &ap.YearProduced, &ap.Rating); err != nil {
				return err
			}
			ap.Kind = domain.Kind(kind)
			a.Appearances = append(a.Appearances, ap)
		}
		return rows.Err()
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Actor{}, fmt.Errorf("actor %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Actor{}, fmt.Errorf("get actor %q: %w", name, err)
	}
	return a, nil
}

func (s *PostgresCatalogStore) Filters(ctx context.Context, kind domain.Kind) (domain.Filters, error) {
	f := domain.Filters{}
	err := pgx.BeginTxFunc(ctx, s.db, readOnly, func(tx pgx.Tx) error {
		var err error
		f.Genres, err = queryNames(ctx, tx, `
SELECT DISTINCT g.name
FROM genres g
JOIN entity_genres eg ON eg.genre_id = g.id
JOIN entities e ON e.id = eg.entity_id
WHERE e.kind = $1
ORDER BY g.name`, string(kind))
		if err != nil {
			return err
		}
		f.Countries, err = queryNames(ctx, tx, `
SELECT DISTINCT c.name
FROM countries c
JOIN entity_countries ec ON ec.country_id = c.id
JOIN entities e ON e.id = ec.entity_id
WHERE e.kind = $1
ORDER BY c.name`, string(kind))
		return err
	})
	if err != nil {
		return domain.Filters{}, fmt.Errorf("filters %s: %w", kind, err)
	}
	return f, nil
}

// ── Writes ─────────────────────────────────────────────────────────────────

func (s *PostgresCatalogStore) CreateEntity(ctx context.Context, in domain.EntityInput) (domain.Entity, error) {
	e := domain.Entity{
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

	err := pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO entities (id, name, kind, description, year_produced, age_rating, runtime, rating)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8)`,
			e.ID, e.Name, string(e.Kind), e.Description, e.YearProduced, e.AgeRating, e.Runtime, e.Rating,
		); err != nil {
			return err
		}

		for _, g := range e.Genres {
			if err := linkByName(ctx, tx, "genres", "entity_genres", "genre_id", e.ID, g); err != nil {
				return err
			}
		}
		for _, c := range e.Countries {
			if err := linkByName(ctx, tx, "countries", "entity_countries", "country_id", e.ID, c); err != nil {
				return err
			}
		}

		for pos, c := range dedupeCast(in.Cast) {
			m, err := upsertActor(ctx, tx, c)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO entity_actors (entity_id, actor_id, position) VALUES ($1::uuid, $2::uuid, $3)`,
				e.ID, m.ID, pos,
			); err != nil {
				return err
			}
			e.Cast = append(e.Cast, m)
		}

		return insertOutboxEvent(ctx, tx, EventEntityCreated, map[string]any{
			"entity_id": e.ID,
			"name":      e.Name,
			"kind":      e.Kind,
		})
	})
	if err != nil {
		return domain.Entity{}, fmt.Errorf("create %s %q: %w", in.Kind, in.Name, mapWriteErr(err))
	}
	return e, nil
}

func (s *PostgresCatalogStore) CreateComment(ctx context.Context, kind domain.Kind, entityName string, c domain.Comment) (domain.Comment, error) {
	c.ID = uuid.NewString()
	err := pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT id::text FROM entities WHERE kind = $1 AND name = $2`, string(kind), entityName,
		).Scan(&c.EntityID)
		if err != nil {
			return err
		}
		err = tx.QueryRow(ctx, `
INSERT INTO comments (id, entity_id, user_id, author_name, rating, body)
VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6)
RETURNING created_at`,
			c.ID, c.EntityID, c.UserID, c.AuthorName, c.Rating, c.Body,
		).Scan(&c.CreatedAt)
		if err != nil {
			return err
		}
		return insertOutboxEvent(ctx, tx, EventCommentCreated, map[string]any{
			"comment_id": c.ID,
			"entity_id":  c.EntityID,
			"user_id":    c.UserID,
		})
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Comment{}, fmt.Errorf("%s %q: %w", kind, entityName, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Comment{}, fmt.Errorf("create comment on %q: %w", entityName, mapWriteErr(err))
	}
	return c, nil
}

// ── helpers ────────────────────────────────────────────────────────────────

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503":
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, domain.ErrConflict)
		case "23514":
			return &domain.ValidationError{Fields: map[string]string{pgErr.ConstraintName: pgErr.Message}}
		}
	}
	return err
}

func queryEntities(ctx context.Context, tx pgx.Tx, query string, args ...any) ([]domain.Entity, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Entity{}
	for rows.Next() {
		var e domain.Entity
		var kind string
		if err := rows.Scan(&e.ID, &e.Name, &kind, &e.Description, &e.YearProduced, &e.AgeRating, &e.Runtime, &e.Rating); err != nil {
			return nil, err
		}
		e.Kind = domain.Kind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// loadRelations fills genres, countries, cast and comments of every entity
// with one query per relation.
func loadRelations(ctx context.Context, tx pgx.Tx, entities []domain.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	ids := make([]string, len(entities))
	index := make(map[string]*domain.Entity, len(entities))
	for i := range entities {
		ids[i] = entities[i].ID
		index[entities[i].ID] = &entities[i]
	}

	genres, err := queryPairs(ctx, tx, `
SELECT eg.entity_id::text, g.name
FROM entity_genres eg JOIN genres g ON g.id = eg.genre_id
WHERE eg.entity_id = ANY($1::uuid[])
ORDER BY g.name`, ids)
	if err != nil {
		return err
	}
	for _, p := range genres {
		index[p[0]].Genres = append(index[p[0]].Genres, p[1])
	}

	countries, err := queryPairs(ctx, tx, `
SELECT ec.entity_id::text, c.name
FROM entity_countries ec JOIN countries c ON c.id = ec.country_id
WHERE ec.entity_id = ANY($1::uuid[])
ORDER BY c.name`, ids)
	if err != nil {
		return err
	}
	for _, p := range countries {
		index[p[0]].Countries = append(index[p[0]].Countries, p[1])
	}

	if err := loadCast(ctx, tx, ids, index); err != nil {
		return err
	}
	return loadComments(ctx, tx, ids, index)
}

func loadCast(ctx context.Context, tx pgx.Tx, ids []string, index map[string]*domain.Entity) error {
	rows, err := tx.Query(ctx, `
SELECT ea.entity_id::text, a.id::text, a.name, a.career, a.birth_date, a.birthplace, a.sex, a.age, a.height, a.biography
FROM entity_actors ea JOIN actors a ON a.id = ea.actor_id
WHERE ea.entity_id = ANY($1::uuid[])
ORDER BY ea.entity_id, ea.position`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var entityID string
		var m domain.CastMember
		if err := rows.Scan(&entityID, &m.ID, &m.Name, &m.Career, &m.BirthDate, &m.Birthplace, &m.Sex, &m.Age, &m.Height, &m.Biography); err != nil {
			return err
		}
		index[entityID].Cast = append(index[entityID].Cast, m)
	}
	return rows.Err()
}

func loadComments(ctx context.Context, tx pgx.Tx, ids []string, index map[string]*domain.Entity) error {
	rows, err := tx.Query(ctx, `
SELECT id::text, entity_id::text, user_id::text, author_name, rating, body, created_at
FROM comments
WHERE entity_id = ANY($1::uuid[])
ORDER BY created_at, id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.EntityID, &c.UserID, &c.AuthorName, &c.Rating, &c.Body, &c.CreatedAt); err != nil {
			return err
		}
		index[c.EntityID].Comments = append(index[c.EntityID].Comments, c)
	}
	return rows.Err()
}

func queryPairs(ctx context.Context, tx pgx.Tx, query string, ids []string) ([][2]string, error) {
	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][2]string
	for rows.Next() {
		var p [2]string
		if err := rows.Scan(&p[0], &p[1]); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func queryNames(ctx context.Context, tx pgx.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// linkByName reuses the row named name in table, creating it if needed, and
// links it to the entity.
func linkByName(ctx context.Context, tx pgx.Tx, table, joinTable, fkColumn, entityID, name string) error {
	var id string
	err := tx.QueryRow(ctx, `
INSERT INTO `+table+` (id, name) VALUES ($1::uuid, $2)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id::text`, uuid.NewString(), name).Scan(&id)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO `+joinTable+` (entity_id, `+fkColumn+`) VALUES ($1::uuid, $2::uuid)`, entityID, id)
	return err
}

// upsertActor returns the existing actor named c.Name unchanged, or inserts it.
func upsertActor(ctx context.Context, tx pgx.Tx, c domain.CastInput) (domain.CastMember, error) {
	var m domain.CastMember
	career := c.Career
	if career == nil {
		career = []string{}
	}
	err := tx.QueryRow(ctx, `
INSERT INTO actors (id, name, career, birth_date, birthplace, sex, age, height, biography)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id::text, name, career, birth_date, birthplace, sex, age, height, biography`,
		uuid.NewString(), c.Name, career, c.BirthDate, c.Birthplace, c.Sex, c.Age, c.Height, c.Biography,
	).Scan(&m.ID, &m.Name, &m.Career, &m.BirthDate, &m.Birthplace, &m.Sex, &m.Age, &m.Height, &m.Biography)
	return m, err
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, eventType string, payload map[string]any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO catalog_outbox (id, event_type, payload, created_at) VALUES ($1::uuid, $2, $3, $4)`,
		uuid.NewString(), eventType, b, time.Now().UTC(),
	)
	return err
}
