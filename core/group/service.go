package group

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/subject"
	"github.com/darasahq/darasa/core/teacher"
)

var (
	// errors
	ErrNotFound        = errors.New("course group not found")
	ErrSessionNotFound = errors.New("group session not found")
	ErrSessionExists   = errors.New("a session with this day and start time already exists for this group")
	// ErrClassroomConflict and ErrTeacherConflict are the two session-creation
	// conflict kinds; both mean an overlapping session on the same day.
	ErrClassroomConflict = errors.New("classroom is occupied by an overlapping session")
	ErrTeacherConflict   = errors.New("teacher holds an overlapping session")
)

type (
	Repository interface {
		CreateGroup(ctx context.Context, grp CourseGroup) (CourseGroup, error)
		QueryGroups(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]CourseGroup, error)
		GetGroupByID(ctx context.Context, id int64) (CourseGroup, error)
		UpdateGroup(ctx context.Context, grp CourseGroup) (CourseGroup, error)

		// CreateSession maps a (group, day, start) uniqueness violation to ErrSessionExists.
		CreateSession(ctx context.Context, sess GroupSession) (GroupSession, error)
		GetSessionByID(ctx context.Context, id int64) (GroupSession, error)
		UpdateSession(ctx context.Context, sess GroupSession) (GroupSession, error)
		DeleteSession(ctx context.Context, id int64) error
		QuerySessionsByGroup(ctx context.Context, groupID int64) ([]GroupSession, error)
		// QueryClassroomSessions returns all sessions held in the classroom on the given day.
		QueryClassroomSessions(ctx context.Context, classroom string, day DayOfWeek) ([]GroupSession, error)
		// QueryTeacherSessions returns all sessions of all groups taught by the teacher on the given day.
		QueryTeacherSessions(ctx context.Context, teacherID int64, day DayOfWeek) ([]GroupSession, error)
	}

	// SubjectDirectory resolves subject references. Satisfied by subject.Repository.
	SubjectDirectory interface {
		GetSubjectByID(ctx context.Context, id int64) (subject.Subject, error)
	}

	// TeacherDirectory resolves teacher references. Satisfied by teacher.Repository.
	TeacherDirectory interface {
		GetTeacherByID(ctx context.Context, id int64) (teacher.Teacher, error)
	}

	// EnrollmentCounter is the slice of the enrollment repository the group
	// service needs. Declared here to avoid a package cycle.
	EnrollmentCounter interface {
		CountEnrollmentsByGroup(ctx context.Context, groupID int64) (int, error)
	}

	Service struct {
		repo        Repository
		subjects    SubjectDirectory
		teachers    TeacherDirectory
		enrollments EnrollmentCounter
		conf        *core.Config
	}
)

func NewService(
	repo Repository,
	subjects SubjectDirectory,
	teachers TeacherDirectory,
	enrollments EnrollmentCounter,
	conf *core.Config,
) *Service {
	return &Service{
		repo:        repo,
		subjects:    subjects,
		teachers:    teachers,
		enrollments: enrollments,
		conf:        conf,
	}
}

func (svc *Service) Create(ctx context.Context, ng NewGroup) (CourseGroup, error) {
	if _, err := svc.subjects.GetSubjectByID(ctx, ng.SubjectID); err != nil {
		return CourseGroup{}, err
	}
	if ng.TeacherID != nil {
		if _, err := svc.teachers.GetTeacherByID(ctx, *ng.TeacherID); err != nil {
			return CourseGroup{}, err
		}
	}

	now := time.Now().UTC()
	grp := CourseGroup{
		SubjectID:   ng.SubjectID,
		TeacherID:   null.Int64FromPtr(ng.TeacherID),
		Status:      ng.Status,
		Type:        ng.Type,
		Price:       ng.Price,
		MaxCapacity: ng.MaxCapacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if grp.Status == "" {
		grp.Status = StatusPlanned
	}
	if grp.MaxCapacity == 0 {
		grp.MaxCapacity = svc.conf.DefaultGroupCapacity
	}
	return svc.repo.CreateGroup(ctx, grp)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]CourseGroup, error) {
	return svc.repo.QueryGroups(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (CourseGroup, error) {
	return svc.repo.GetGroupByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id int64, ug UpdateGroup) (CourseGroup, error) {
	grp, err := svc.repo.GetGroupByID(ctx, id)
	if err != nil {
		return CourseGroup{}, err
	}

	if ug.TeacherID != nil {
		if _, err = svc.teachers.GetTeacherByID(ctx, *ug.TeacherID); err != nil {
			return CourseGroup{}, err
		}
		grp.TeacherID = null.Int64From(*ug.TeacherID)
	}
	if ug.Status != "" {
		grp.Status = ug.Status
	}
	if ug.Type != "" {
		grp.Type = ug.Type
	}
	if ug.Price != nil {
		grp.Price = *ug.Price
	}
	if ug.MaxCapacity != nil {
		count, err := svc.enrollments.CountEnrollmentsByGroup(ctx, id)
		if err != nil {
			return CourseGroup{}, errors.Wrap(err, "counting enrollments")
		}
		if *ug.MaxCapacity < count {
			return CourseGroup{}, core.NewValidationError(nil, core.FieldError{
				Field: "max_capacity",
				Error: "cannot be lower than the current enrollment count",
			})
		}
		grp.MaxCapacity = *ug.MaxCapacity
	}

	grp.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGroup(ctx, grp)
}

// Sessions

func (svc *Service) SessionsForGroup(ctx context.Context, groupID int64) ([]GroupSession, error) {
	if _, err := svc.repo.GetGroupByID(ctx, groupID); err != nil {
		return nil, err
	}
	return svc.repo.QuerySessionsByGroup(ctx, groupID)
}

func (svc *Service) CreateSession(ctx context.Context, groupID int64, ns NewSession) (GroupSession, error) {
	if _, err := svc.repo.GetGroupByID(ctx, groupID); err != nil {
		return GroupSession{}, err
	}

	sess := GroupSession{
		CourseGroupID: groupID,
		Day:           ns.Day,
		Start:         ns.Start,
		End:           ns.End,
		Classroom:     null.NewString(ns.Classroom, ns.Classroom != ""),
	}
	if err := svc.ValidateSession(ctx, sess); err != nil {
		return GroupSession{}, err
	}
	return svc.repo.CreateSession(ctx, sess)
}

func (svc *Service) UpdateSession(ctx context.Context, sessionID int64, ns NewSession) (GroupSession, error) {
	sess, err := svc.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return GroupSession{}, err
	}

	sess.Day = ns.Day
	sess.Start = ns.Start
	sess.End = ns.End
	sess.Classroom = null.NewString(ns.Classroom, ns.Classroom != "")
	if err = svc.ValidateSession(ctx, sess); err != nil {
		return GroupSession{}, err
	}
	return svc.repo.UpdateSession(ctx, sess)
}

func (svc *Service) DeleteSession(ctx context.Context, sessionID int64) error {
	if _, err := svc.repo.GetSessionByID(ctx, sessionID); err != nil {
		return err
	}
	return svc.repo.DeleteSession(ctx, sessionID)
}

// ValidateSession checks a new or updated session against the two
// session-creation conflict rules; it has no side effect.
//  1. classroom conflict: another session in the same classroom, same day,
//     with an overlapping interval;
//  2. teacher conflict: another session whose group is taught by the same
//     teacher, same day, with an overlapping interval.
//
// The session itself (matched by id) is excluded from both scans.
func (svc *Service) ValidateSession(ctx context.Context, sess GroupSession) error {
	if sess.Classroom.Valid {
		others, err := svc.repo.QueryClassroomSessions(ctx, sess.Classroom.String, sess.Day)
		if err != nil {
			return errors.Wrap(err, "querying classroom sessions")
		}
		if _, clash := firstConflict(sess, others); clash {
			return ErrClassroomConflict
		}
	}

	grp, err := svc.repo.GetGroupByID(ctx, sess.CourseGroupID)
	if err != nil {
		return err
	}
	if grp.TeacherID.Valid {
		others, err := svc.repo.QueryTeacherSessions(ctx, grp.TeacherID.Int64, sess.Day)
		if err != nil {
			return errors.Wrap(err, "querying teacher sessions")
		}
		if _, clash := firstConflict(sess, others); clash {
			return ErrTeacherConflict
		}
	}
	return nil
}
