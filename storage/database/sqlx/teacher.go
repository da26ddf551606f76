package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/teacher"
)

type teacherRepository struct {
	db *sqlx.DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *sqlx.DB) *teacherRepository {
	return &teacherRepository{db: db}
}

func (repo teacherRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...teacher.Teacher) error {
	query := `SELECT EXISTS (SELECT 1 FROM teacher WHERE email = ?`
	args := []interface{}{email}
	if len(excluded) > 0 {
		ids := make([]int64, 0, len(excluded))
		for _, tch := range excluded {
			ids = append(ids, tch.ID)
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
		return errors.Wrap(err, "checking teacher uniqueness")
	}
	if exists {
		return teacher.ErrEmailExists
	}
	return nil
}

func (repo teacherRepository) CreateTeacher(ctx context.Context, tch teacher.Teacher) (teacher.Teacher, error) {
	query := `
		INSERT INTO teacher (name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *`
	var created teacher.Teacher
	err := repo.db.GetContext(ctx, &created, query,
		tch.Name, tch.Email, tch.PasswordHash, tch.CreatedAt, tch.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "teacher_email_key") {
			return teacher.Teacher{}, teacher.ErrEmailExists
		}
		return teacher.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return created, nil
}

func (repo teacherRepository) QueryTeachers(ctx context.Context, filter *teacher.QueryFilter, ordering []core.DBOrdering) ([]teacher.Teacher, error) {
	query := `SELECT * FROM teacher`
	var clauses []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			clauses = append(clauses, fmt.Sprintf("(name ILIKE %s OR email ILIKE %s)", arg(val), arg(val)))
		}
		if !filter.CreatedFrom.IsZero() {
			clauses = append(clauses, "created_at >= "+arg(filter.CreatedFrom.UTC()))
		}
		if !filter.CreatedTo.IsZero() {
			clauses = append(clauses, "created_at <= "+arg(filter.CreatedTo.UTC()))
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += orderBy(ordering, "id", "name", "email", "last_login", "created_at", "updated_at")

	teachers := []teacher.Teacher{}
	if err := repo.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	return teachers, nil
}

func (repo teacherRepository) GetTeacherByID(ctx context.Context, id int64) (teacher.Teacher, error) {
	var tch teacher.Teacher
	if err := repo.db.GetContext(ctx, &tch, `SELECT * FROM teacher WHERE id = $1`, id); err != nil {
		return teacher.Teacher{}, trapNoRowsErr(err, teacher.ErrNotFound, "finding teacher by ID")
	}
	return tch, nil
}

func (repo teacherRepository) GetTeacherByEmail(ctx context.Context, email string) (teacher.Teacher, error) {
	var tch teacher.Teacher
	if err := repo.db.GetContext(ctx, &tch, `SELECT * FROM teacher WHERE email = $1`, email); err != nil {
		return teacher.Teacher{}, trapNoRowsErr(err, teacher.ErrNotFound, "finding teacher by email")
	}
	return tch, nil
}

func (repo teacherRepository) UpdateTeacher(ctx context.Context, tch teacher.Teacher) (teacher.Teacher, error) {
	sets := []string{"name = :name", "email = :email", "updated_at = :updated_at"}
	if len(tch.PasswordHash) > 0 {
		sets = append(sets, "password_hash = :password_hash")
	}
	if !tch.LastLogin.IsZero() {
		sets = append(sets, "last_login = :last_login")
	}
	query := `UPDATE teacher SET ` + strings.Join(sets, ", ") + ` WHERE id = :id RETURNING *`

	rows, err := repo.db.NamedQueryContext(ctx, query, tch)
	if err != nil {
		if isUniqueViolation(err, "teacher_email_key") {
			return teacher.Teacher{}, teacher.ErrEmailExists
		}
		return teacher.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	var updated teacher.Teacher
	if err = rows.StructScan(&updated); err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "scanning updated teacher")
	}
	return updated, nil
}

func (repo teacherRepository) DeleteTeachersByID(ctx context.Context, ids ...int64) (int, error) {
	query, args, err := sqlx.In(`DELETE FROM teacher WHERE id IN (?)`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting teachers")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting teachers")
	}
	return int(cnt), nil
}
