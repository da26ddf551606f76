package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/enrollment"
	"github.com/darasahq/darasa/core/group"
)

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check
var _ group.EnrollmentCounter = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

// CreateEnrollment runs the count-check-insert sequence in one transaction,
// holding a lock on the group row so concurrent attempts serialize. The unique
// (student_id, course_group_id) constraint stays the authoritative duplicate
// guard.
func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment, maxCapacity int) (enrollment.Enrollment, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "beginning enrollment tx")
	}
	defer func() { _ = tx.Rollback() }()

	var groupID int64
	err = tx.GetContext(ctx, &groupID, `SELECT id FROM course_group WHERE id = $1 FOR UPDATE`, enr.CourseGroupID)
	if err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, group.ErrNotFound, "locking course group")
	}

	var count int
	err = tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollment WHERE course_group_id = $1`, enr.CourseGroupID)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "counting enrollments")
	}
	if count >= maxCapacity {
		return enrollment.Enrollment{}, enrollment.ErrGroupFull
	}

	query := `
		INSERT INTO enrollment (student_id, course_group_id, enrolled_at, payment_status)
		VALUES ($1, $2, $3, $4)
		RETURNING *`
	var created enrollment.Enrollment
	err = tx.GetContext(ctx, &created, query,
		enr.StudentID, enr.CourseGroupID, enr.EnrolledAt, enr.PaymentStatus)
	if err != nil {
		if isUniqueViolation(err, "uq_enrollment_student_group") {
			return enrollment.Enrollment{}, enrollment.ErrDuplicate
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}

	if err = tx.Commit(); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "committing enrollment tx")
	}
	return created, nil
}

func (repo enrollmentRepository) GetEnrollmentByID(ctx context.Context, id int64) (enrollment.Enrollment, error) {
	var enr enrollment.Enrollment
	if err := repo.db.GetContext(ctx, &enr, `SELECT * FROM enrollment WHERE id = $1`, id); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "finding enrollment by ID")
	}
	return enr, nil
}

func (repo enrollmentRepository) QueryEnrollmentsByStudent(ctx context.Context, studentID int64) ([]enrollment.Enrollment, error) {
	enrollments := []enrollment.Enrollment{}
	query := `SELECT * FROM enrollment WHERE student_id = $1 ORDER BY enrolled_at DESC`
	if err := repo.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, errors.Wrap(err, "querying enrollments by student")
	}
	return enrollments, nil
}

func (repo enrollmentRepository) QueryEnrollmentsByGroup(ctx context.Context, groupID int64) ([]enrollment.Enrollment, error) {
	enrollments := []enrollment.Enrollment{}
	query := `SELECT * FROM enrollment WHERE course_group_id = $1 ORDER BY enrolled_at DESC`
	if err := repo.db.SelectContext(ctx, &enrollments, query, groupID); err != nil {
		return nil, errors.Wrap(err, "querying enrollments by group")
	}
	return enrollments, nil
}

func (repo enrollmentRepository) CountEnrollmentsByGroup(ctx context.Context, groupID int64) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollment WHERE course_group_id = $1`, groupID)
	if err != nil {
		return 0, errors.Wrap(err, "counting enrollments")
	}
	return count, nil
}

func (repo enrollmentRepository) EnrollmentExists(ctx context.Context, studentID, groupID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM enrollment WHERE student_id = $1 AND course_group_id = $2)`
	if err := repo.db.GetContext(ctx, &exists, query, studentID, groupID); err != nil {
		return false, errors.Wrap(err, "checking enrollment existence")
	}
	return exists, nil
}

func (repo enrollmentRepository) UpdatePaymentStatus(ctx context.Context, id int64, status string) (enrollment.Enrollment, error) {
	query := `UPDATE enrollment SET payment_status = $2 WHERE id = $1 RETURNING *`
	var updated enrollment.Enrollment
	if err := repo.db.GetContext(ctx, &updated, query, id, status); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "updating payment status")
	}
	return updated, nil
}

func (repo enrollmentRepository) QueryPaidSessions(ctx context.Context, studentID int64) ([]group.GroupSession, error) {
	sessions := []group.GroupSession{}
	query := `
		SELECT gs.*
		FROM group_session gs
		JOIN enrollment e ON e.course_group_id = gs.course_group_id
		WHERE e.student_id = $1 AND e.payment_status = $2
		ORDER BY gs.day, gs.start_min`
	if err := repo.db.SelectContext(ctx, &sessions, query, studentID, enrollment.PaymentPaid); err != nil {
		return nil, errors.Wrap(err, "querying paid sessions")
	}
	return sessions, nil
}
