package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/elimuhq/elimu/core"
)

// Roles
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

var (
	AllRoles = []string{RoleStudent, RoleInstructor, RoleAdmin}

	// SelfServiceRoles are the roles anyone may register with. Everyone starts
	// as a student; instructor and admin are granted by an admin (PUT /users/:id
	// or the admin CLI).
	SelfServiceRoles = []string{RoleStudent}
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool      { return u.Role == RoleAdmin }
func (u User) IsInstructor() bool { return u.Role == RoleInstructor }
func (u User) IsStudent() bool    { return u.Role == RoleStudent }

// NewUser contains information needed to register a new User.
type NewUser struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,selfrole"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Role and IsActive can only be changed by an admin; the API layer enforces it.
type UpdateUser struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=8"`
	Role     string `json:"role" validate:"omitempty,anyrole"`
	IsActive *bool  `json:"is_active"`
}

func (uu *UpdateUser) Validate(validate *validator.Validate) error {
	uu.Name = core.CleanString(uu.Name)
	uu.Email = core.CleanString(uu.Email, true /* lower */)
	uu.Role = core.CleanString(uu.Role, true /* lower */)
	return validate.Struct(uu)
}
