package teacher

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

var (
	// errors
	ErrNotFound    = errors.New("teacher not found")
	ErrEmailExists = errors.New("a teacher with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excluded ...Teacher) error
		CreateTeacher(ctx context.Context, tch Teacher) (Teacher, error)
		QueryTeachers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Teacher, error)
		GetTeacherByID(ctx context.Context, id int64) (Teacher, error)
		GetTeacherByEmail(ctx context.Context, email string) (Teacher, error)
		UpdateTeacher(ctx context.Context, tch Teacher) (Teacher, error)
		DeleteTeachersByID(ctx context.Context, ids ...int64) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckEmailUniqueness(ctx context.Context, email string, excluded ...Teacher) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excluded...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nt NewTeacher) (Teacher, error) {
	now := time.Now().UTC()
	tch := Teacher{
		Name:      nt.Name,
		Email:     nt.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tch.SetPassword(nt.Password); err != nil {
		return Teacher{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateTeacher(ctx, tch)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Teacher, error) {
	return svc.repo.GetTeacherByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Teacher, error) {
	return svc.repo.GetTeacherByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Update(ctx context.Context, id int64, ut UpdateTeacher) (Teacher, error) {
	tch := Teacher{
		ID:        id,
		Name:      ut.Name,
		Email:     ut.Email,
		UpdatedAt: time.Now().UTC(),
	}
	if ut.Password != "" {
		if err := tch.SetPassword(ut.Password); err != nil {
			return Teacher{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateTeacher(ctx, tch)
}

func (svc *Service) SetLastLogin(ctx context.Context, tch Teacher) (Teacher, error) {
	tch.LastLogin = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, tch)
}

func (svc *Service) Delete(ctx context.Context, ids ...int64) error {
	_, err := svc.repo.DeleteTeachersByID(ctx, ids...)
	return err
}
