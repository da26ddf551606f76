package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/student"
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...student.Student) error {
	query := `SELECT EXISTS (SELECT 1 FROM student WHERE email = ?`
	args := []interface{}{email}
	if len(excluded) > 0 {
		ids := make([]int64, 0, len(excluded))
		for _, std := range excluded {
			ids = append(ids, std.ID)
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
		return errors.Wrap(err, "checking student uniqueness")
	}
	if exists {
		return student.ErrEmailExists
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	query := `
		INSERT INTO student (name, email, major, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *`
	var created student.Student
	err := repo.db.GetContext(ctx, &created, query,
		std.Name, std.Email, std.Major, std.PasswordHash, std.CreatedAt, std.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "student_email_key") {
			return student.Student{}, student.ErrEmailExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return created, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	query := `SELECT * FROM student`
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
		if filter.Major != "" {
			clauses = append(clauses, "major = "+arg(filter.Major))
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
	query += orderBy(ordering, "id", "name", "email", "major", "last_login", "created_at", "updated_at")

	students := []student.Student{}
	if err := repo.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id int64) (student.Student, error) {
	var std student.Student
	if err := repo.db.GetContext(ctx, &std, `SELECT * FROM student WHERE id = $1`, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student by ID")
	}
	return std, nil
}

func (repo studentRepository) GetStudentByEmail(ctx context.Context, email string) (student.Student, error) {
	var std student.Student
	if err := repo.db.GetContext(ctx, &std, `SELECT * FROM student WHERE email = $1`, email); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student by email")
	}
	return std, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	sets := []string{"name = :name", "email = :email", "major = :major", "updated_at = :updated_at"}
	if len(std.PasswordHash) > 0 {
		sets = append(sets, "password_hash = :password_hash")
	}
	if !std.LastLogin.IsZero() {
		sets = append(sets, "last_login = :last_login")
	}
	query := `UPDATE student SET ` + strings.Join(sets, ", ") + ` WHERE id = :id RETURNING *`

	rows, err := repo.db.NamedQueryContext(ctx, query, std)
	if err != nil {
		if isUniqueViolation(err, "student_email_key") {
			return student.Student{}, student.ErrEmailExists
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return student.Student{}, student.ErrNotFound
	}
	var updated student.Student
	if err = rows.StructScan(&updated); err != nil {
		return student.Student{}, errors.Wrap(err, "scanning updated student")
	}
	return updated, nil
}

func (repo studentRepository) DeleteStudentsByID(ctx context.Context, ids ...int64) (int, error) {
	query, args, err := sqlx.In(`DELETE FROM student WHERE id IN (?)`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	return int(cnt), nil
}
