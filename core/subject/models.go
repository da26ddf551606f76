package subject

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

type Subject struct {
	ID         int64     `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Major      string    `json:"major" db:"major"`
	CourseYear int       `json:"course_year" db:"course_year"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Name       string `json:"name" validate:"required"`
	Major      string `json:"major" validate:"required"`
	CourseYear int    `json:"course_year" validate:"required,min=1,max=8"`
}

func (ns *NewSubject) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Major = core.CleanString(ns.Major)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(ctx, ns.Name, ns.Major)
}

// UpdateSubject defines what information may be provided to modify an existing Subject.
type UpdateSubject struct {
	Name       string `json:"name"`
	Major      string `json:"major"`
	CourseYear int    `json:"course_year" validate:"omitempty,min=1,max=8"`
}

func (us *UpdateSubject) Validate(ctx context.Context, orig Subject, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if major := core.CleanString(us.Major); major != "" {
		us.Major = major
	} else {
		us.Major = orig.Major
	}
	if us.CourseYear == 0 {
		us.CourseYear = orig.CourseYear
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckNameUniqueness(ctx, us.Name, us.Major, orig)
}

type QueryFilter struct {
	Search     string `query:"search"` // matches name
	Major      string `query:"major"`
	CourseYear int    `query:"course_year"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Major == "" && qf.CourseYear == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Major = core.CleanString(qf.Major)
}
