package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/group"
)

type groupRepository struct {
	db *sqlx.DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *sqlx.DB) *groupRepository {
	return &groupRepository{db: db}
}

func (repo groupRepository) CreateGroup(ctx context.Context, grp group.CourseGroup) (group.CourseGroup, error) {
	query := `
		INSERT INTO course_group (subject_id, teacher_id, status, group_type, price, max_capacity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *`
	var created group.CourseGroup
	err := repo.db.GetContext(ctx, &created, query,
		grp.SubjectID, grp.TeacherID, grp.Status, grp.Type, grp.Price, grp.MaxCapacity,
		grp.CreatedAt, grp.UpdatedAt)
	if err != nil {
		return group.CourseGroup{}, errors.Wrap(err, "inserting course group")
	}
	return created, nil
}

func (repo groupRepository) QueryGroups(ctx context.Context, filter *group.QueryFilter, ordering []core.DBOrdering) ([]group.CourseGroup, error) {
	query := `SELECT * FROM course_group`
	var clauses []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.SubjectID != 0 {
			clauses = append(clauses, "subject_id = "+arg(filter.SubjectID))
		}
		if filter.TeacherID != 0 {
			clauses = append(clauses, "teacher_id = "+arg(filter.TeacherID))
		}
		if filter.Status != "" {
			clauses = append(clauses, "status = "+arg(filter.Status))
		}
		if filter.Type != "" {
			clauses = append(clauses, "group_type = "+arg(filter.Type))
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += orderBy(ordering, "id", "subject_id", "teacher_id", "status", "group_type", "price", "max_capacity", "created_at", "updated_at")

	groups := []group.CourseGroup{}
	if err := repo.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying course groups")
	}
	return groups, nil
}

func (repo groupRepository) GetGroupByID(ctx context.Context, id int64) (group.CourseGroup, error) {
	var grp group.CourseGroup
	if err := repo.db.GetContext(ctx, &grp, `SELECT * FROM course_group WHERE id = $1`, id); err != nil {
		return group.CourseGroup{}, trapNoRowsErr(err, group.ErrNotFound, "finding course group by ID")
	}
	return grp, nil
}

func (repo groupRepository) UpdateGroup(ctx context.Context, grp group.CourseGroup) (group.CourseGroup, error) {
	query := `
		UPDATE course_group
		SET teacher_id = $2, status = $3, group_type = $4, price = $5, max_capacity = $6, updated_at = $7
		WHERE id = $1
		RETURNING *`
	var updated group.CourseGroup
	err := repo.db.GetContext(ctx, &updated, query,
		grp.ID, grp.TeacherID, grp.Status, grp.Type, grp.Price, grp.MaxCapacity, grp.UpdatedAt)
	if err != nil {
		return group.CourseGroup{}, trapNoRowsErr(err, group.ErrNotFound, "updating course group")
	}
	return updated, nil
}

// Sessions

func (repo groupRepository) CreateSession(ctx context.Context, sess group.GroupSession) (group.GroupSession, error) {
	query := `
		INSERT INTO group_session (course_group_id, day, start_min, end_min, classroom)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *`
	var created group.GroupSession
	err := repo.db.GetContext(ctx, &created, query,
		sess.CourseGroupID, sess.Day, sess.Start, sess.End, sess.Classroom)
	if err != nil {
		if isUniqueViolation(err, "uq_group_session_slot") {
			return group.GroupSession{}, group.ErrSessionExists
		}
		return group.GroupSession{}, errors.Wrap(err, "inserting group session")
	}
	return created, nil
}

func (repo groupRepository) GetSessionByID(ctx context.Context, id int64) (group.GroupSession, error) {
	var sess group.GroupSession
	if err := repo.db.GetContext(ctx, &sess, `SELECT * FROM group_session WHERE id = $1`, id); err != nil {
		return group.GroupSession{}, trapNoRowsErr(err, group.ErrSessionNotFound, "finding group session by ID")
	}
	return sess, nil
}

func (repo groupRepository) UpdateSession(ctx context.Context, sess group.GroupSession) (group.GroupSession, error) {
	query := `
		UPDATE group_session
		SET day = $2, start_min = $3, end_min = $4, classroom = $5
		WHERE id = $1
		RETURNING *`
	var updated group.GroupSession
	err := repo.db.GetContext(ctx, &updated, query,
		sess.ID, sess.Day, sess.Start, sess.End, sess.Classroom)
	if err != nil {
		if isUniqueViolation(err, "uq_group_session_slot") {
			return group.GroupSession{}, group.ErrSessionExists
		}
		return group.GroupSession{}, trapNoRowsErr(err, group.ErrSessionNotFound, "updating group session")
	}
	return updated, nil
}

func (repo groupRepository) DeleteSession(ctx context.Context, id int64) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM group_session WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting group session")
	}
	return nil
}

func (repo groupRepository) QuerySessionsByGroup(ctx context.Context, groupID int64) ([]group.GroupSession, error) {
	sessions := []group.GroupSession{}
	query := `SELECT * FROM group_session WHERE course_group_id = $1 ORDER BY day, start_min`
	if err := repo.db.SelectContext(ctx, &sessions, query, groupID); err != nil {
		return nil, errors.Wrap(err, "querying group sessions")
	}
	return sessions, nil
}

func (repo groupRepository) QueryClassroomSessions(ctx context.Context, classroom string, day group.DayOfWeek) ([]group.GroupSession, error) {
	sessions := []group.GroupSession{}
	query := `SELECT * FROM group_session WHERE classroom = $1 AND day = $2 ORDER BY start_min`
	if err := repo.db.SelectContext(ctx, &sessions, query, classroom, day); err != nil {
		return nil, errors.Wrap(err, "querying classroom sessions")
	}
	return sessions, nil
}

func (repo groupRepository) QueryTeacherSessions(ctx context.Context, teacherID int64, day group.DayOfWeek) ([]group.GroupSession, error) {
	sessions := []group.GroupSession{}
	query := `
		SELECT gs.*
		FROM group_session gs
		JOIN course_group cg ON cg.id = gs.course_group_id
		WHERE cg.teacher_id = $1 AND gs.day = $2
		ORDER BY gs.start_min`
	if err := repo.db.SelectContext(ctx, &sessions, query, teacherID, day); err != nil {
		return nil, errors.Wrap(err, "querying teacher sessions")
	}
	return sessions, nil
}
