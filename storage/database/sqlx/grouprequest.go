package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/grouprequest"
)

type groupRequestRepository struct {
	db *sqlx.DB
}

var _ grouprequest.Repository = (*groupRequestRepository)(nil) // interface compliance check

func NewGroupRequestRepository(db *sqlx.DB) *groupRequestRepository {
	return &groupRequestRepository{db: db}
}

func (repo groupRequestRepository) CreateRequest(ctx context.Context, req grouprequest.GroupRequest) (grouprequest.GroupRequest, error) {
	query := `
		INSERT INTO group_request (student_id, subject_id, comment, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *`
	var created grouprequest.GroupRequest
	err := repo.db.GetContext(ctx, &created, query,
		req.StudentID, req.SubjectID, req.Comment, req.Status, req.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "uq_group_request_pending") {
			return grouprequest.GroupRequest{}, grouprequest.ErrDuplicate
		}
		return grouprequest.GroupRequest{}, errors.Wrap(err, "inserting group request")
	}
	return created, nil
}

func (repo groupRequestRepository) GetRequestByID(ctx context.Context, id int64) (grouprequest.GroupRequest, error) {
	var req grouprequest.GroupRequest
	if err := repo.db.GetContext(ctx, &req, `SELECT * FROM group_request WHERE id = $1`, id); err != nil {
		return grouprequest.GroupRequest{}, trapNoRowsErr(err, grouprequest.ErrNotFound, "finding group request by ID")
	}
	return req, nil
}

func (repo groupRequestRepository) QueryRequests(ctx context.Context, filter *grouprequest.QueryFilter, ordering []core.DBOrdering) ([]grouprequest.GroupRequest, error) {
	query := `SELECT * FROM group_request`
	var clauses []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.StudentID != 0 {
			clauses = append(clauses, "student_id = "+arg(filter.StudentID))
		}
		if filter.SubjectID != 0 {
			clauses = append(clauses, "subject_id = "+arg(filter.SubjectID))
		}
		if filter.Status != "" {
			clauses = append(clauses, "status = "+arg(filter.Status))
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += orderBy(ordering, "id", "student_id", "subject_id", "status", "created_at", "resolved_at")

	requests := []grouprequest.GroupRequest{}
	if err := repo.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying group requests")
	}
	return requests, nil
}

func (repo groupRequestRepository) HasPendingRequest(ctx context.Context, studentID, subjectID int64) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM group_request
			WHERE student_id = $1 AND subject_id = $2 AND status = $3
		)`
	err := repo.db.GetContext(ctx, &exists, query, studentID, subjectID, grouprequest.StatusPending)
	if err != nil {
		return false, errors.Wrap(err, "checking pending request")
	}
	return exists, nil
}

// ResolveRequest flips the status under a `status = PENDING` guard. A missed
// update is disambiguated with a follow-up lookup: a missing row means
// not found, an existing one means the request was already resolved.
func (repo groupRequestRepository) ResolveRequest(ctx context.Context, id int64, status, comment string, resolvedAt time.Time) (grouprequest.GroupRequest, error) {
	query := `
		UPDATE group_request
		SET status = $2, resolution_comment = $3, resolved_at = $4
		WHERE id = $1 AND status = $5
		RETURNING *`
	var resolved grouprequest.GroupRequest
	err := repo.db.GetContext(ctx, &resolved, query,
		id, status, comment, resolvedAt, grouprequest.StatusPending)
	if err == nil {
		return resolved, nil
	}
	if errors.Cause(err) == sql.ErrNoRows {
		if _, getErr := repo.GetRequestByID(ctx, id); getErr == nil {
			return grouprequest.GroupRequest{}, grouprequest.ErrInvalidTransition
		}
		return grouprequest.GroupRequest{}, grouprequest.ErrNotFound
	}
	return grouprequest.GroupRequest{}, errors.Wrap(err, "resolving group request")
}

func (repo groupRequestRepository) DeleteRequest(ctx context.Context, id int64) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM group_request WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting group request")
	}
	return nil
}

func (repo groupRequestRepository) QueryDemand(ctx context.Context) ([]grouprequest.SubjectDemand, error) {
	demand := []grouprequest.SubjectDemand{}
	query := `
		SELECT s.id AS subject_id, s.name AS subject_name, COUNT(*) AS pending_count
		FROM group_request gr
		JOIN subject s ON s.id = gr.subject_id
		WHERE gr.status = $1
		GROUP BY s.id, s.name
		ORDER BY pending_count DESC, s.id`
	if err := repo.db.SelectContext(ctx, &demand, query, grouprequest.StatusPending); err != nil {
		return nil, errors.Wrap(err, "querying subject demand")
	}
	return demand, nil
}
