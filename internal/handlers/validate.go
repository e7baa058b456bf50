package handlers

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"postdeck/internal/apperr"
	"postdeck/internal/board"
	"postdeck/internal/models"
)

// requestValidate checks decoded request bodies. Error fields are reported
// by their JSON names.
var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	requestValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := requestValidate.RegisterValidation("platform", validatePlatform); err != nil {
		panic(err)
	}
}

// validatePlatform accepts the platforms a post can target.
func validatePlatform(fl validator.FieldLevel) bool {
	return models.Platform(fl.Field().String()).Valid()
}

// validate runs the struct tags of v and returns the first failure as a
// ValidationError.
func validate(v any) error {
	err := requestValidate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), reflect.Indirect(reflect.ValueOf(v)).Type().Name()+".")
	return apperr.Invalid(field, "%s", ruleMessage(fe))
}

// ruleMessage describes a failed rule in plain words.
func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a URL"
	case "platform":
		return "is not a supported platform"
	}
	return "failed " + fe.Tag() + " check"
}

// Request bodies.

type createPostRequest struct {
	BoardID     uuid.UUID         `json:"board_id" validate:"required"`
	Caption     models.Caption    `json:"caption"`
	Format      string            `json:"format" validate:"max=64"`
	PublishDate *time.Time        `json:"publish_date"`
	Platforms   []models.Platform `json:"platforms" validate:"max=7,dive,platform"`
	Pages       []string          `json:"pages" validate:"max=50,dive,max=200"`
	Month       int               `json:"month" validate:"min=0,max=12"`
}

type fileRequest struct {
	Kind         models.FileKind `json:"kind" validate:"required,oneof=image video"`
	URL          string          `json:"url" validate:"required,url"`
	ThumbnailURL string          `json:"thumbnail_url" validate:"omitempty,url"`
	ContentType  string          `json:"content_type" validate:"max=100"`
}

func (f fileRequest) file() models.File {
	return models.File{
		Kind:         f.Kind,
		URL:          f.URL,
		ThumbnailURL: f.ThumbnailURL,
		ContentType:  f.ContentType,
	}
}

type blockRequest struct {
	File    fileRequest `json:"file"`
	Caption string      `json:"caption" validate:"max=5000"`
}

type moveRequest struct {
	From int `json:"from" validate:"min=0"`
	To   int `json:"to" validate:"min=0"`
}

type currentVersionRequest struct {
	VersionID uuid.UUID `json:"version_id" validate:"required"`
}

// Comment text limits match comments.MaxTextLen.
type commentRequest struct {
	Text              string       `json:"text" validate:"required,max=5000"`
	RevisionRequested bool         `json:"revision_requested"`
	Rect              *models.Rect `json:"rect"`
}

type updateCommentRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

type actionRequest struct {
	Action string `json:"action" validate:"required,oneof=submit approve request_changes mark_revised schedule"`
}

// scheduleRequest schedules a post. Without publish_date the first free
// preferred slot is picked.
type scheduleRequest struct {
	PublishDate *time.Time `json:"publish_date"`
}

// publishDateRequest sets or, with null, clears the publish date.
type publishDateRequest struct {
	PublishDate *time.Time `json:"publish_date"`
}

type indexRequest struct {
	Index int `json:"index" validate:"min=0"`
}

type beginFillRequest struct {
	Start  int          `json:"start" validate:"min=0"`
	Column board.Column `json:"column" validate:"required,oneof=month caption platforms format"`
}

type fillColumnRequest struct {
	Start int        `json:"start" validate:"min=0"`
	End   int        `json:"end" validate:"min=0"`
	Fill  board.Fill `json:"fill"`
}

type createFormRequest struct {
	Title       string `json:"title" validate:"required,max=300"`
	Description string `json:"description" validate:"max=5000"`
}

type fieldRequest struct {
	Type     models.FieldType `json:"type" validate:"required"`
	Label    string           `json:"label" validate:"max=300"`
	Required bool             `json:"required"`
	Config   json.RawMessage  `json:"config"`
	Index    *int             `json:"index" validate:"omitempty,min=0"`
}

type fieldPatchRequest struct {
	Label    *string         `json:"label" validate:"omitempty,max=300"`
	Required *bool           `json:"required"`
	Config   json.RawMessage `json:"config"`
}
