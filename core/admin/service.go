// Package admin manages back-office accounts. They are never created over
// HTTP; the admin CLI seeds and maintains them.
package admin

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/account"
)

var (
	// errors
	ErrNotFound    = errors.New("admin not found")
	ErrEmailExists = errors.New("an admin with this email already exists")
)

type Admin struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	account.Credentials
	LastLogin time.Time `json:"last_login" db:"last_login"` // UTC
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excluded ...Admin) error
		CreateAdmin(ctx context.Context, adm Admin) (Admin, error)
		GetAdminByID(ctx context.Context, id int64) (Admin, error)
		GetAdminByEmail(ctx context.Context, email string) (Admin, error)
		UpdateAdmin(ctx context.Context, adm Admin) (Admin, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, name, email, password string) (Admin, error) {
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	if err := svc.repo.CheckEmailUniqueness(ctx, email); err != nil {
		return Admin{}, err
	}

	now := time.Now().UTC()
	adm := Admin{
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := adm.SetPassword(password); err != nil {
		return Admin{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateAdmin(ctx, adm)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Admin, error) {
	return svc.repo.GetAdminByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Admin, error) {
	return svc.repo.GetAdminByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) ResetPassword(ctx context.Context, email, password string) (Admin, error) {
	adm, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return Admin{}, err
	}
	if err = adm.SetPassword(password); err != nil {
		return Admin{}, errors.Wrap(err, "hashing password")
	}
	adm.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAdmin(ctx, adm)
}

func (svc *Service) SetLastLogin(ctx context.Context, adm Admin) (Admin, error) {
	adm.LastLogin = time.Now().UTC()
	return svc.repo.UpdateAdmin(ctx, adm)
}
