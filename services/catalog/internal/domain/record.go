package domain

import "time"

// Record is the read-only view of an entity handed to serializers.
// Slice fields are never nil.
type Record struct {
	Name         string          `json:"name"`
	Kind         Kind            `json:"kind"`
	Description  string          `json:"description"`
	YearProduced int             `json:"year_produced"`
	AgeRating    string          `json:"age_rating"`
	Runtime      string          `json:"runtime"`
	Rating       float64         `json:"rating"`
	Genres       []string        `json:"genres"`
	Countries    []string        `json:"countries"`
	Cast         []CastRecord    `json:"cast"`
	Comments     []CommentRecord `json:"comments"`
	MediaBundle
}

type CastRecord struct {
	Name       string    `json:"name"`
	Career     []string  `json:"career"`
	BirthDate  time.Time `json:"birth_date"`
	Birthplace string    `json:"birthplace"`
	Sex        string    `json:"sex"`
	Age        int       `json:"age"`
	Height     string    `json:"height"`
	Biography  string    `json:"biography"`
	PosterURL  *string   `json:"poster_url"`
}

type CommentRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	AuthorName *string   `json:"author_name"`
	AvatarURL  *string   `json:"avatar_url"`
	Rating     float64   `json:"rating"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActorRecord is the actor detail page.
type ActorRecord struct {
	CastRecord
	Appearances []AppearanceRecord `json:"appearances"`
}

type AppearanceRecord struct {
	Name         string  `json:"name"`
	Kind         Kind    `json:"kind"`
	YearProduced int     `json:"year_produced"`
	Rating       float64 `json:"rating"`
	PosterURL    *string `json:"poster_url"`
}
