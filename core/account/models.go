package account

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Roles
const (
	RoleStudent = "STUDENT"
	RoleTeacher = "TEACHER"
	RoleAdmin   = "ADMIN"
)

var (
	AllRoles = []string{RoleStudent, RoleTeacher, RoleAdmin}

	ErrPermissionDenied = errors.New("permission denied")
)

// Principal is the authenticated caller of a service operation: its role and
// the id of the underlying student/teacher/admin record. It is sourced from
// the auth middleware and passed explicitly; services never consult global
// session state.
type Principal struct {
	ID    int64  `json:"id"`
	Role  string `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (p Principal) IsStudent() bool { return p.Role == RoleStudent }
func (p Principal) IsTeacher() bool { return p.Role == RoleTeacher }
func (p Principal) IsAdmin() bool   { return p.Role == RoleAdmin }

// CanActFor reports whether the principal may perform an operation on behalf
// of the student with the given id. Admins may act for anyone.
func (p Principal) CanActFor(studentID int64) bool {
	return p.IsAdmin() || (p.IsStudent() && p.ID == studentID)
}

// Credentials is embedded by every account-carrying model.
type Credentials struct {
	PasswordHash []byte `json:"-" db:"password_hash"`
}

func (c *Credentials) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.PasswordHash = hash
	return nil
}

func (c *Credentials) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(pwd))
}
