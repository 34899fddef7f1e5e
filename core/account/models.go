package account

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Roles
const (
	RoleUser     = "user"
	RoleAdmin    = "admin"
	RoleDisabled = "disabled"
)

var (
	// errors
	ErrNotFound    = errors.New("account not found")
	ErrUnknownRole = errors.New("unknown role")

	AllRoles = []string{RoleUser, RoleAdmin, RoleDisabled}
)

func ValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Record is the source of truth for one identity: its role and the set of
// course IDs it has been granted. Keyed by canonical identity key under the
// `roles` subtree; the raw email is kept inside so the original address can
// be recovered from the key.
type Record struct {
	Email   string   `json:"email"`
	Role    string   `json:"role"`
	Courses []string `json:"courses"`
}

func (r Record) IsAdmin() bool    { return r.Role == RoleAdmin }
func (r Record) IsDisabled() bool { return r.Role == RoleDisabled }

func (r Record) HasCourse(courseID string) bool {
	for _, id := range r.Courses {
		if id == courseID {
			return true
		}
	}
	return false
}

// Membership is a presence-index entry under `admins/{k}` or `users/{k}`.
// Its mere existence encodes the fact; the value just echoes the email.
type Membership struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// NewAccount contains information needed to provision a new account.
// The email is validated as-is: no trimming or lowering happens anywhere in
// the account pipeline, so " a@b.com" and "a@b.com" are distinct identities.
type NewAccount struct {
	Email    string `json:"email" validate:"required,portalemail"`
	Password string `json:"password" validate:"required"`
	Admin    bool   `json:"admin"`
}

func (na *NewAccount) Validate(validate *validator.Validate) error {
	return validate.Struct(na)
}

// ChangeRole is the input for a role mutation.
type ChangeRole struct {
	Email string `json:"email" validate:"required,portalemail"`
	Role  string `json:"role" validate:"required"`
}

func (cr *ChangeRole) Validate(validate *validator.Validate) error {
	return validate.Struct(cr)
}

// CourseGrant toggles one course in an identity's grant set.
type CourseGrant struct {
	Email    string `json:"email" validate:"required,portalemail"`
	CourseID string `json:"course_id" validate:"required"`
	Granted  bool   `json:"granted"`
}

func (cg *CourseGrant) Validate(validate *validator.Validate) error {
	return validate.Struct(cg)
}
