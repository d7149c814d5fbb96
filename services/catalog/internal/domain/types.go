// Package domain holds the catalog's entities, presentation records and
// input validation.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Kind discriminates films from serials. It is fixed at creation.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSerial Kind = "serial"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMovie, KindSerial:
		return k, nil
	default:
		return "", &ValidationError{Fields: map[string]string{"kind": fmt.Sprintf("must be one of movie, serial (got %q)", s)}}
	}
}

func (k Kind) Valid() bool { return k == KindMovie || k == KindSerial }

// Folder is the object-storage folder for the kind.
func (k Kind) Folder() string {
	if k == KindSerial {
		return "serials"
	}
	return "films"
}

// Entity is a film or serial with its eager-loaded relations. Name is
// unique across both kinds.
type Entity struct {
	ID           string
	Name         string
	Kind         Kind
	Description  string
	YearProduced int
	AgeRating    string
	Runtime      string
	Rating       float64
	Genres       []string
	Countries    []string
	Cast         []CastMember
	Comments     []Comment
}

type CastMember struct {
	ID         string
	Name       string
	Career     []string
	BirthDate  time.Time
	Birthplace string
	Sex        string
	Age        int
	Height     string
	Biography  string
}

// Comment belongs to exactly one entity. AuthorName stays nil when no
// authorship fact arrived before the write.
type Comment struct {
	ID         string
	EntityID   string
	UserID     string
	AuthorName *string
	Rating     float64
	Body       string
	CreatedAt  time.Time
}

// Actor is a cast member together with the entities it appears in.
type Actor struct {
	CastMember
	Appearances []Appearance
}

type Appearance struct {
	Name         string
	Kind         Kind
	YearProduced int
	Rating       float64
}

// Filter narrows Find. Nil fields are not applied; set fields are ANDed.
type Filter struct {
	Genre     *string
	Country   *string
	MinRating *float64
}

// Page is the window a list request was served with.
type Page struct {
	Limit  int
	Offset int
}

// Filters lists the genre and country names in use for a kind.
type Filters struct {
	Genres    []string `json:"genres"`
	Countries []string `json:"countries"`
}

// MediaBundle holds presigned URLs for an entity. A nil field means the
// asset was not found or could not be resolved.
type MediaBundle struct {
	Poster   *string `json:"poster_url"`
	Preview  *string `json:"preview_url"`
	Synopsis *string `json:"synopsis_url"`
	Play     *string `json:"play_url"`
}

// Empty reports whether no asset was resolved.
func (b MediaBundle) Empty() bool {
	return b.Poster == nil && b.Preview == nil && b.Synopsis == nil && b.Play == nil
}
