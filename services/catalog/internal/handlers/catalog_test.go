package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/example/cinema-platform/internal/platform/auth"
	"github.com/example/cinema-platform/services/catalog/internal/domain"
)

const (
	testSecret = "0123456789abcdef0123"
	testUser   = "7f1c2f5e-3b7a-4c1e-9a51-0d5d2b9f6c11"
)

type fakeCatalog struct {
	records  []domain.Record
	err      error
	lastKind domain.Kind
	filter   domain.Filter
	limit    int
	page     *domain.Page
	comment  domain.CommentInput
	entity   domain.EntityInput
}

func (f *fakeCatalog) List(_ context.Context, kind domain.Kind, limit, offset int) ([]domain.Record, domain.Page, error) {
	f.lastKind, f.limit = kind, limit
	if f.page != nil {
		return f.records, *f.page, f.err
	}
	return f.records, domain.Page{Limit: limit, Offset: offset}, f.err
}

func (f *fakeCatalog) Find(_ context.Context, kind domain.Kind, flt domain.Filter) ([]domain.Record, error) {
	f.lastKind, f.filter = kind, flt
	return f.records, f.err
}

func (f *fakeCatalog) GetByName(_ context.Context, kind domain.Kind, name string) (domain.Record, error) {
	f.lastKind = kind
	if f.err != nil {
		return domain.Record{}, f.err
	}
	for _, r := range f.records {
		if r.Name == name {
			return r, nil
		}
	}
	return domain.Record{}, fmt.Errorf("%s %q: %w", kind, name, domain.ErrNotFound)
}

func (f *fakeCatalog) GetActor(_ context.Context, name string) (domain.ActorRecord, error) {
	if f.err != nil {
		return domain.ActorRecord{}, f.err
	}
	return domain.ActorRecord{CastRecord: domain.CastRecord{Name: name}, Appearances: []domain.AppearanceRecord{}}, nil
}

func (f *fakeCatalog) Filters(_ context.Context, kind domain.Kind) (domain.Filters, error) {
	f.lastKind = kind
	return domain.Filters{Genres: []string{"Drama"}, Countries: []string{"France"}}, f.err
}

func (f *fakeCatalog) AddEntity(_ context.Context, kind domain.Kind, in domain.EntityInput) (domain.Record, error) {
	f.lastKind, f.entity = kind, in
	if f.err != nil {
		return domain.Record{}, f.err
	}
	return domain.Record{Name: in.Name, Kind: kind}, nil
}

func (f *fakeCatalog) AddComment(_ context.Context, kind domain.Kind, in domain.CommentInput) (domain.CommentRecord, error) {
	f.lastKind, f.comment = kind, in
	if f.err != nil {
		return domain.CommentRecord{}, f.err
	}
	return domain.CommentRecord{ID: "c1", UserID: in.UserID, Body: in.Body, Rating: in.Rating}, nil
}

func newRouter(c Catalog) http.Handler {
	r := chi.NewRouter()
	Mount(r, c, auth.JWTVerifier{Secret: []byte(testSecret)}, nil)
	return r
}

func token(t *testing.T, role string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUser,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: role,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func do(h http.Handler, method, target, body, bearer string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env.Error.Code
}

func TestList_RoutesByKind(t *testing.T) {
	fc := &fakeCatalog{records: []domain.Record{{Name: "Dark", Kind: domain.KindSerial}}}
	rr := do(newRouter(fc), http.MethodGet, "/v1/serials?limit=10", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if fc.lastKind != domain.KindSerial || fc.limit != 10 {
		t.Fatalf("expected serial/limit 10, got %s/%d", fc.lastKind, fc.limit)
	}
	var resp listResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Name != "Dark" {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
}

func TestList_EchoesAppliedPage(t *testing.T) {
	fc := &fakeCatalog{page: &domain.Page{Limit: 100, Offset: 20}}
	rr := do(newRouter(fc), http.MethodGet, "/v1/films?limit=500&offset=20", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp listResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Limit != 100 || resp.Offset != 20 {
		t.Fatalf("expected applied page 100/20, got %d/%d", resp.Limit, resp.Offset)
	}
}

func TestList_BadLimit(t *testing.T) {
	rr := do(newRouter(&fakeCatalog{}), http.MethodGet, "/v1/films?limit=-1", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSearch_ParsesFilter(t *testing.T) {
	fc := &fakeCatalog{records: []domain.Record{{Name: "Amelie"}}}
	rr := do(newRouter(fc), http.MethodGet, "/v1/films/search?genre=Drama&rating=7.5", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if fc.filter.Genre == nil || *fc.filter.Genre != "Drama" || fc.filter.Country != nil {
		t.Fatalf("unexpected filter: %+v", fc.filter)
	}
	if fc.filter.MinRating == nil || *fc.filter.MinRating != 7.5 {
		t.Fatalf("expected min rating 7.5")
	}
}

func TestSearch_EmptyIsNotFound(t *testing.T) {
	rr := do(newRouter(&fakeCatalog{}), http.MethodGet, "/v1/films/search?genre=Western", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestSearch_BadRating(t *testing.T) {
	rr := do(newRouter(&fakeCatalog{}), http.MethodGet, "/v1/films/search?rating=high", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %s", code)
	}
}

func TestSearch_NonFiniteRating(t *testing.T) {
	for _, raw := range []string{"NaN", "Inf", "-Inf", "+Inf"} {
		fc := &fakeCatalog{records: []domain.Record{{Name: "Amelie"}}}
		rr := do(newRouter(fc), http.MethodGet, "/v1/films/search?rating="+raw, "", "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("rating=%s: expected 400, got %d", raw, rr.Code)
		}
		if fc.filter.MinRating != nil {
			t.Fatalf("rating=%s: filter must not reach the service", raw)
		}
	}
}

func TestGet_EscapedNameAndNotFound(t *testing.T) {
	fc := &fakeCatalog{records: []domain.Record{{Name: "Weak Drama"}}}
	h := newRouter(fc)

	rr := do(h, http.MethodGet, "/v1/films/Weak%20Drama", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = do(h, http.MethodGet, "/v1/films/Missing", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestGetActor(t *testing.T) {
	rr := do(newRouter(&fakeCatalog{}), http.MethodGet, "/v1/actors/Al%20Pacino", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var rec domain.ActorRecord
	if err := json.NewDecoder(rr.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Name != "Al Pacino" {
		t.Fatalf("expected Al Pacino, got %q", rec.Name)
	}
}

func TestFilters(t *testing.T) {
	fc := &fakeCatalog{}
	rr := do(newRouter(fc), http.MethodGet, "/v1/films/filters", "", "")
	if rr.Code != http.StatusOK || fc.lastKind != domain.KindMovie {
		t.Fatalf("expected 200 for films, got %d kind=%s", rr.Code, fc.lastKind)
	}
}

func TestAddEntity_RequiresAdmin(t *testing.T) {
	fc := &fakeCatalog{}
	h := newRouter(fc)
	body := `{"name":"Alien","description":"d","year_produced":1979,"age_rating":"18+","runtime":"2h","rating":8.5}`

	if rr := do(h, http.MethodPost, "/v1/films", body, ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
	if rr := do(h, http.MethodPost, "/v1/films", body, token(t, "user")); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rr.Code)
	}
	rr := do(h, http.MethodPost, "/v1/films", body, token(t, "admin"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if fc.entity.Name != "Alien" || fc.lastKind != domain.KindMovie {
		t.Fatalf("unexpected input: %+v kind=%s", fc.entity, fc.lastKind)
	}
}

func TestAddEntity_ConflictMapped(t *testing.T) {
	fc := &fakeCatalog{err: fmt.Errorf("create: %w", domain.ErrConflict)}
	rr := do(newRouter(fc), http.MethodPost, "/v1/serials", `{"name":"Dark"}`, token(t, "admin"))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestAddComment_UserFromToken(t *testing.T) {
	fc := &fakeCatalog{}
	rr := do(newRouter(fc), http.MethodPost, "/v1/films/Heat/comments", `{"rating":9,"body":"great film"}`, token(t, ""))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if fc.comment.UserID != testUser || fc.comment.EntityName != "Heat" {
		t.Fatalf("unexpected comment input: %+v", fc.comment)
	}
}

func TestAddComment_ValidationMapped(t *testing.T) {
	fc := &fakeCatalog{err: &domain.ValidationError{Fields: map[string]string{"body": "must be at least 5 characters"}}}
	rr := do(newRouter(fc), http.MethodPost, "/v1/films/Heat/comments", `{"rating":9,"body":"bad"}`, token(t, ""))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %s", code)
	}
}

func TestAddComment_InvalidJSON(t *testing.T) {
	rr := do(newRouter(&fakeCatalog{}), http.MethodPost, "/v1/films/Heat/comments", `{`, token(t, ""))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestInternalErrorHidden(t *testing.T) {
	fc := &fakeCatalog{err: fmt.Errorf("db down")}
	rr := do(newRouter(fc), http.MethodGet, "/v1/films", "", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("db down")) {
		t.Fatal("internal error leaked")
	}
}
