package subject

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

var (
	// errors
	ErrNotFound      = errors.New("subject not found")
	ErrSubjectExists = errors.New("a subject with this name already exists for this major")
	// ErrInUse guards deletion: a subject referenced by course groups or
	// group requests is never physically deleted.
	ErrInUse = errors.New("subject has dependent course groups or requests")
)

type (
	Repository interface {
		CheckNameUniqueness(ctx context.Context, name, major string, excluded ...Subject) error
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		QuerySubjects(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error)
		GetSubjectByID(ctx context.Context, id int64) (Subject, error)
		UpdateSubject(ctx context.Context, sub Subject) (Subject, error)
		// SubjectInUse reports whether any course group or group request references the subject.
		SubjectInUse(ctx context.Context, id int64) (bool, error)
		DeleteSubject(ctx context.Context, id int64) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckNameUniqueness(ctx context.Context, name, major string, excluded ...Subject) error {
	if err := svc.repo.CheckNameUniqueness(ctx, name, major, excluded...); err != nil {
		if errors.Cause(err) == ErrSubjectExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	now := time.Now().UTC()
	sub := Subject{
		Name:       ns.Name,
		Major:      ns.Major,
		CourseYear: ns.CourseYear,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateSubject(ctx, sub)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id int64, us UpdateSubject) (Subject, error) {
	sub := Subject{
		ID:         id,
		Name:       us.Name,
		Major:      us.Major,
		CourseYear: us.CourseYear,
		UpdatedAt:  time.Now().UTC(),
	}
	return svc.repo.UpdateSubject(ctx, sub)
}

// Delete removes a subject administratively. It fails with ErrInUse while any
// course group or group request still references it.
func (svc *Service) Delete(ctx context.Context, id int64) error {
	if _, err := svc.repo.GetSubjectByID(ctx, id); err != nil {
		return err
	}
	inUse, err := svc.repo.SubjectInUse(ctx, id)
	if err != nil {
		return errors.Wrap(err, "checking subject usage")
	}
	if inUse {
		return ErrInUse
	}
	return svc.repo.DeleteSubject(ctx, id)
}
