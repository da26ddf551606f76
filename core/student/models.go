package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/account"
)

type Student struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	Major string `json:"major" db:"major"`
	account.Credentials
	LastLogin time.Time `json:"last_login" db:"last_login"` // UTC
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Major           string `json:"major" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Major = core.CleanString(ns.Major)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, ns.Email)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	Name            string `json:"name"`
	Email           string `json:"email" validate:"omitempty,email"`
	Major           string `json:"major"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (us *UpdateStudent) Validate(ctx context.Context, orig Student, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if email := core.CleanString(us.Email, true /* lower */); email != "" {
		us.Email = email
	} else {
		us.Email = orig.Email
	}
	if major := core.CleanString(us.Major); major != "" {
		us.Major = major
	} else {
		us.Major = orig.Major
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, us.Email, orig)
}

type QueryFilter struct {
	Search      string    `query:"search"` // matches name or email
	Major       string    `query:"major"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Major == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Major = core.CleanString(qf.Major)
}

// InitValidators registers student struct-level validations.
func InitValidators(validate *validator.Validate) {
	validate.RegisterStructValidation(studentStructValidation, NewStudent{}, UpdateStudent{})
}

func studentStructValidation(sl validator.StructLevel) {
	switch s := sl.Current().Interface().(type) {
	case NewStudent:
		account.ValidatePassword(sl, s.Password, s.Name, s.Email)
	case UpdateStudent:
		if s.Password != "" {
			account.ValidatePassword(sl, s.Password, s.Name, s.Email)
		}
	}
}
