package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/admin"
)

type adminRepository struct {
	db *sqlx.DB
}

var _ admin.Repository = (*adminRepository)(nil) // interface compliance check

func NewAdminRepository(db *sqlx.DB) *adminRepository {
	return &adminRepository{db: db}
}

func (repo adminRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...admin.Admin) error {
	query := `SELECT EXISTS (SELECT 1 FROM admin WHERE email = ?`
	args := []interface{}{email}
	if len(excluded) > 0 {
		ids := make([]int64, 0, len(excluded))
		for _, adm := range excluded {
			ids = append(ids, adm.ID)
		}
		query += ` AND id NOT IN (?)`
		args = append(args, ids)
	}
	query += `)`

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}

	var exists bool
	if err = repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking admin uniqueness")
	}
	if exists {
		return admin.ErrEmailExists
	}
	return nil
}

func (repo adminRepository) CreateAdmin(ctx context.Context, adm admin.Admin) (admin.Admin, error) {
	query := `
		INSERT INTO admin (name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *`
	var created admin.Admin
	err := repo.db.GetContext(ctx, &created, query,
		adm.Name, adm.Email, adm.PasswordHash, adm.CreatedAt, adm.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "admin_email_key") {
			return admin.Admin{}, admin.ErrEmailExists
		}
		return admin.Admin{}, errors.Wrap(err, "inserting admin")
	}
	return created, nil
}

func (repo adminRepository) GetAdminByID(ctx context.Context, id int64) (admin.Admin, error) {
	var adm admin.Admin
	if err := repo.db.GetContext(ctx, &adm, `SELECT * FROM admin WHERE id = $1`, id); err != nil {
		return admin.Admin{}, trapNoRowsErr(err, admin.ErrNotFound, "finding admin by ID")
	}
	return adm, nil
}

func (repo adminRepository) GetAdminByEmail(ctx context.Context, email string) (admin.Admin, error) {
	var adm admin.Admin
	if err := repo.db.GetContext(ctx, &adm, `SELECT * FROM admin WHERE email = $1`, email); err != nil {
		return admin.Admin{}, trapNoRowsErr(err, admin.ErrNotFound, "finding admin by email")
	}
	return adm, nil
}

func (repo adminRepository) UpdateAdmin(ctx context.Context, adm admin.Admin) (admin.Admin, error) {
	query := `
		UPDATE admin
		SET name = $2, email = $3, password_hash = $4, last_login = $5, updated_at = $6
		WHERE id = $1
		RETURNING *`
	var updated admin.Admin
	err := repo.db.GetContext(ctx, &updated, query,
		adm.ID, adm.Name, adm.Email, adm.PasswordHash, adm.LastLogin, adm.UpdatedAt)
	if err != nil {
		return admin.Admin{}, trapNoRowsErr(err, admin.ErrNotFound, "updating admin")
	}
	return updated, nil
}
