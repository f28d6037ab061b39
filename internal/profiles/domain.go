package profiles

import (
	"errors"
	"time"

	"github.com/inkwell-blog/inkwell/internal/shared"
)

// ErrNotFound indicates that no profile exists for the subject.
var ErrNotFound = errors.New("profiles: not found")

// Profile maps a subject id to its current role.
type Profile struct {
	SubjectID string      `json:"subjectId"`
	Email     string      `json:"email"`
	Role      shared.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
