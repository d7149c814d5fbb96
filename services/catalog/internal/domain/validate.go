package domain

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type EntityInput struct {
	Name         string      `json:"name" validate:"required,max=200"`
	Kind         Kind        `json:"kind" validate:"required,oneof=movie serial"`
	Description  string      `json:"description" validate:"required"`
	YearProduced int         `json:"year_produced" validate:"gt=1900,lt=2100"`
	AgeRating    string      `json:"age_rating" validate:"required,max=8"`
	Runtime      string      `json:"runtime" validate:"required"`
	Rating       float64     `json:"rating" validate:"gte=0,lte=10"`
	Genres       []string    `json:"genres" validate:"dive,required"`
	Countries    []string    `json:"countries" validate:"dive,required"`
	Cast         []CastInput `json:"cast" validate:"dive"`
}

type CastInput struct {
	Name       string    `json:"name" validate:"required"`
	Career     []string  `json:"career" validate:"min=1,dive,required"`
	BirthDate  time.Time `json:"birth_date" validate:"required"`
	Birthplace string    `json:"birthplace"`
	Sex        string    `json:"sex" validate:"required"`
	Age        int       `json:"age" validate:"gte=0"`
	Height     string    `json:"height"`
	Biography  string    `json:"biography"`
}

// CommentInput is a new comment. UserID comes from the caller's token,
// never from the body.
type CommentInput struct {
	EntityName string  `json:"-" validate:"required"`
	UserID     string  `json:"-" validate:"required,uuid"`
	Rating     float64 `json:"rating" validate:"gte=0,lte=10"`
	Body       string  `json:"body" validate:"min=5,max=50"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return strings.ToLower(f.Name)
		case "":
			return f.Name
		}
		return name
	})
	return v
}

func (in EntityInput) Validate(ctx context.Context) error { return check(ctx, in) }

func (in CommentInput) Validate(ctx context.Context) error { return check(ctx, in) }

func check(ctx context.Context, in any) error {
	err := validate.StructCtx(ctx, in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

// fieldPath drops the struct name prefix: "EntityInput.cast[0].name" -> "cast[0].name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "uuid":
		return "must be a uuid"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "gt":
		return "must be > " + fe.Param()
	case "lt":
		return "must be < " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must have at least " + fe.Param() + " items"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must have at most " + fe.Param() + " items"
	}
	return "failed " + fe.Tag()
}
