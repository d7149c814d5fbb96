package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/cinema-platform/internal/platform/api"
	"github.com/example/cinema-platform/internal/platform/auth"
	"github.com/example/cinema-platform/internal/platform/httpserver"
	"github.com/example/cinema-platform/services/catalog/internal/domain"
)

// Catalog is the service surface the handlers call.
type Catalog interface {
	List(ctx context.Context, kind domain.Kind, limit, offset int) ([]domain.Record, domain.Page, error)
	Find(ctx context.Context, kind domain.Kind, f domain.Filter) ([]domain.Record, error)
	GetByName(ctx context.Context, kind domain.Kind, name string) (domain.Record, error)
	GetActor(ctx context.Context, name string) (domain.ActorRecord, error)
	Filters(ctx context.Context, kind domain.Kind) (domain.Filters, error)
	AddEntity(ctx context.Context, kind domain.Kind, in domain.EntityInput) (domain.Record, error)
	AddComment(ctx context.Context, kind domain.Kind, in domain.CommentInput) (domain.CommentRecord, error)
}

type listResponse struct {
	Items  []domain.Record `json:"items"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

type createCommentRequest struct {
	Rating float64 `json:"rating"`
	Body   string  `json:"body"`
}

// Mount registers the catalog routes. Reads are public; adding entities needs
// an admin token and commenting needs a user token.
func Mount(r chi.Router, c Catalog, verifier auth.JWTVerifier, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	requireUser := auth.RequireUser(verifier)

	for path, kind := range map[string]domain.Kind{"/v1/films": domain.KindMovie, "/v1/serials": domain.KindSerial} {
		r.Route(path, func(r chi.Router) {
			r.Get("/", List(c, kind, log))
			r.Get("/search", Search(c, kind, log))
			r.Get("/filters", Filters(c, kind, log))
			r.Get("/{name}", Get(c, kind, log))
			r.With(requireUser, auth.RequireAdmin).Post("/", AddEntity(c, kind, log))
			r.With(requireUser).Post("/{name}/comments", AddComment(c, kind, log))
		})
	}
	r.Get("/v1/actors/{name}", GetActor(c, log))
}

// List handles GET /v1/{films|serials}?limit=&offset=
func List(c Catalog, kind domain.Kind, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok1 := intParam(r, "limit")
		offset, ok2 := intParam(r, "offset")
		if !ok1 || !ok2 {
			api.BadRequest(w, "INVALID_PAGE", "limit and offset must be non-negative integers", rid(r), nil)
			return
		}
		recs, page, err := c.List(r.Context(), kind, limit, offset)
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		api.Render(w, r, http.StatusOK, listResponse{Items: recs, Limit: page.Limit, Offset: page.Offset})
	}
}

// Search handles GET /v1/{films|serials}/search?genre=&country=&rating=
// No match is a 404.
func Search(c Catalog, kind domain.Kind, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var f domain.Filter
		if g := strings.TrimSpace(q.Get("genre")); g != "" {
			f.Genre = &g
		}
		if cn := strings.TrimSpace(q.Get("country")); cn != "" {
			f.Country = &cn
		}
		if raw := strings.TrimSpace(q.Get("rating")); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				api.Validation(w, map[string]string{"rating": "must be a number"}, rid(r))
				return
			}
			f.MinRating = &v
		}
		recs, err := c.Find(r.Context(), kind, f)
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		if len(recs) == 0 {
			api.NotFound(w, "NOT_FOUND", "nothing matches the filter", rid(r))
			return
		}
		api.Render(w, r, http.StatusOK, listResponse{Items: recs})
	}
}

// Filters handles GET /v1/{films|serials}/filters
func Filters(c Catalog, kind domain.Kind, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := c.Filters(r.Context(), kind)
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		api.Render(w, r, http.StatusOK, f)
	}
}

// Get handles GET /v1/{films|serials}/{name}
func Get(c Catalog, kind domain.Kind, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := nameParam(w, r)
		if !ok {
			return
		}
		rec, err := c.GetByName(r.Context(), kind, name)
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		api.Render(w, r, http.StatusOK, rec)
	}
}

// GetActor handles GET /v1/actors/{name}
func GetActor(c Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := nameParam(w, r)
		if !ok {
			return
		}
		rec, err := c.GetActor(r.Context(), name)
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		api.Render(w, r, http.StatusOK, rec)
	}
}

// AddEntity handles POST /v1/{films|serials}
func AddEntity(c Catalog, kind domain.Kind, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in domain.EntityInput
		if err := api.DecodeJSON(w, r, 0, &in); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid(r), nil)
			return
		}
		rec, err := c.AddEntity(r.Context(), kind, in)
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		api.Render(w, r, http.StatusCreated, rec)
	}
}

// AddComment handles POST /v1/{films|serials}/{name}/comments
func AddComment(c Catalog, kind domain.Kind, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", rid(r))
			return
		}
		name, ok := nameParam(w, r)
		if !ok {
			return
		}
		var req createCommentRequest
		if err := api.DecodeJSON(w, r, 0, &req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid(r), nil)
			return
		}
		created, err := c.AddComment(r.Context(), kind, domain.CommentInput{
			EntityName: name,
			UserID:     userID,
			Rating:     req.Rating,
			Body:       req.Body,
		})
		if err != nil {
			writeErr(w, r, log, err)
			return
		}
		api.Render(w, r, http.StatusCreated, created)
	}
}

func rid(r *http.Request) string {
	return httpserver.RequestIDFromContext(r.Context())
}

func nameParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "name")
	name, err := url.PathUnescape(raw)
	if err != nil {
		name = raw
	}
	name = strings.TrimSpace(name)
	if name == "" {
		api.BadRequest(w, "MISSING_NAME", "name is required", rid(r), nil)
		return "", false
	}
	return name, true
}

// intParam returns 0 for an absent parameter.
func intParam(r *http.Request, key string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func writeErr(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		api.Validation(w, verr.Fields, rid(r))
	case errors.Is(err, domain.ErrNotFound):
		api.NotFound(w, "NOT_FOUND", "not found", rid(r))
	case errors.Is(err, domain.ErrConflict):
		api.Conflict(w, "CONFLICT", "already exists", rid(r), nil)
	case errors.Is(err, domain.ErrValidation):
		api.BadRequest(w, "VALIDATION_FAILED", err.Error(), rid(r), nil)
	default:
		log.Error("request failed", zap.String("path", r.URL.Path), zap.String("request_id", rid(r)), zap.Error(err))
		api.Internal(w, rid(r))
	}
}
