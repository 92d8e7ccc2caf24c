package model

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// LocalizedText carries the English and Khmer variants of a field.
type LocalizedText struct {
	EN string `json:"en" bson:"en"`
	KH string `json:"kh" bson:"kh"`
}

// Pick returns the text in the preferred language, falling back to the other one.
func (t LocalizedText) Pick(lang string) string {
	en, kh := strings.TrimSpace(t.EN), strings.TrimSpace(t.KH)
	if lang == "kh" {
		if kh != "" {
			return kh
		}
		return en
	}
	if en != "" {
		return en
	}
	return kh
}

func (t LocalizedText) empty() bool {
	return strings.TrimSpace(t.EN) == "" && strings.TrimSpace(t.KH) == ""
}

// Article is the published news item handed to the auto-poster.
type Article struct {
	Title        LocalizedText `json:"title"`
	Description  LocalizedText `json:"description"`
	Slug         string        `json:"slug"`
	Category     string        `json:"category,omitempty"`
	ThumbnailURL string        `json:"thumbnailUrl,omitempty"`
	Hashtags     []string      `json:"hashtags,omitempty"`
}

var slugPattern = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{M}\p{N}_\-]*$`)

// Validate checks the minimal shape the content generator relies on.
func (a Article) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Title, validation.By(func(interface{}) error {
			if a.Title.empty() {
				return validation.NewError("validation_title_required", "title must have an en or kh value")
			}
			return nil
		})),
		validation.Field(&a.Slug, validation.Required, validation.Match(slugPattern)),
		validation.Field(&a.ThumbnailURL, is.URL),
	)
}

// PostRequest is what an adapter publishes: the generated text plus article context.
type PostRequest struct {
	Article  Article `json:"article"`
	Text     string  `json:"text"`
	Link     string  `json:"link"`
	ImageURL string  `json:"imageUrl,omitempty"`
}
