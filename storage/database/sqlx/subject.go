package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/subject"
)

type subjectRepository struct {
	db *sqlx.DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *sqlx.DB) *subjectRepository {
	return &subjectRepository{db: db}
}

func (repo subjectRepository) CheckNameUniqueness(ctx context.Context, name, major string, excluded ...subject.Subject) error {
	query := `SELECT EXISTS (SELECT 1 FROM subject WHERE name = ? AND major = ?`
	args := []interface{}{name, major}
	if len(excluded) > 0 {
		ids := make([]int64, 0, len(excluded))
		for _, sub := range excluded {
			ids = append(ids, sub.ID)
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
		return errors.Wrap(err, "checking subject uniqueness")
	}
	if exists {
		return subject.ErrSubjectExists
	}
	return nil
}

func (repo subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	query := `
		INSERT INTO subject (name, major, course_year, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *`
	var created subject.Subject
	err := repo.db.GetContext(ctx, &created, query,
		sub.Name, sub.Major, sub.CourseYear, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "uq_subject_name_major") {
			return subject.Subject{}, subject.ErrSubjectExists
		}
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return created, nil
}

func (repo subjectRepository) QuerySubjects(ctx context.Context, filter *subject.QueryFilter, ordering []core.DBOrdering) ([]subject.Subject, error) {
	query := `SELECT * FROM subject`
	var clauses []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			clauses = append(clauses, "name ILIKE "+arg("%"+filter.Search+"%"))
		}
		if filter.Major != "" {
			clauses = append(clauses, "major = "+arg(filter.Major))
		}
		if filter.CourseYear != 0 {
			clauses = append(clauses, "course_year = "+arg(filter.CourseYear))
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += orderBy(ordering, "id", "name", "major", "course_year", "created_at", "updated_at")

	subjects := []subject.Subject{}
	if err := repo.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (repo subjectRepository) GetSubjectByID(ctx context.Context, id int64) (subject.Subject, error) {
	var sub subject.Subject
	if err := repo.db.GetContext(ctx, &sub, `SELECT * FROM subject WHERE id = $1`, id); err != nil {
		return subject.Subject{}, trapNoRowsErr(err, subject.ErrNotFound, "finding subject by ID")
	}
	return sub, nil
}

func (repo subjectRepository) UpdateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	query := `
		UPDATE subject
		SET name = $2, major = $3, course_year = $4, updated_at = $5
		WHERE id = $1
		RETURNING *`
	var updated subject.Subject
	err := repo.db.GetContext(ctx, &updated, query,
		sub.ID, sub.Name, sub.Major, sub.CourseYear, sub.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "uq_subject_name_major") {
			return subject.Subject{}, subject.ErrSubjectExists
		}
		return subject.Subject{}, trapNoRowsErr(err, subject.ErrNotFound, "updating subject")
	}
	return updated, nil
}

func (repo subjectRepository) SubjectInUse(ctx context.Context, id int64) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM course_group WHERE subject_id = $1)
		    OR EXISTS (SELECT 1 FROM group_request WHERE subject_id = $1)`
	var inUse bool
	if err := repo.db.GetContext(ctx, &inUse, query, id); err != nil {
		return false, errors.Wrap(err, "checking subject usage")
	}
	return inUse, nil
}

func (repo subjectRepository) DeleteSubject(ctx context.Context, id int64) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM subject WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return nil
}
