package posts

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/inkwell-blog/inkwell/internal/shared"
)

type CreatePostRequest struct {
	Title   string `json:"title" validate:"required,min=2,max=200"`
	Content string `json:"content" validate:"required,min=1"`
}

type UpdatePostRequest struct {
	Title   *string `json:"title,omitempty" validate:"omitempty,min=2,max=200"`
	Content *string `json:"content,omitempty" validate:"omitempty,min=1"`
}

type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,min=2,max=280"`
}

type ListPostsRequest struct {
	PublishedOnly bool
	Query         string
	Page          shared.Pagination
}

// Normalize trims and NFC-normalizes user supplied text.
func (r *CreatePostRequest) Normalize() {
	r.Title = cleanText(r.Title)
	r.Content = cleanText(r.Content)
}

// Normalize trims and NFC-normalizes user supplied text.
func (r *UpdatePostRequest) Normalize() {
	if r.Title != nil {
		v := cleanText(*r.Title)
		r.Title = &v
	}
	if r.Content != nil {
		v := cleanText(*r.Content)
		r.Content = &v
	}
}

// Empty reports whether the update changes nothing.
func (r UpdatePostRequest) Empty() bool {
	return r.Title == nil && r.Content == nil
}

// Normalize trims and NFC-normalizes user supplied text.
func (r *CreateCommentRequest) Normalize() {
	r.Content = cleanText(r.Content)
}

func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
