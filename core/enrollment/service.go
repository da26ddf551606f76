package enrollment

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/account"
	"github.com/darasahq/darasa/core/group"
	"github.com/darasahq/darasa/core/student"
)

var (
	// errors
	ErrNotFound  = errors.New("enrollment not found")
	ErrDuplicate = errors.New("student is already enrolled in this group")
	// ErrGroupFull means the enrollment count reached the group's max capacity.
	ErrGroupFull = errors.New("course group is full")
	// ErrGroupNotActive means the target group does not accept enrollments.
	ErrGroupNotActive = errors.New("course group is not active")
	// ErrScheduleConflict means a candidate-group session overlaps a session
	// of a group the student already holds a PAID enrollment in.
	ErrScheduleConflict = errors.New("enrollment conflicts with the student's paid schedule")
)

type (
	Repository interface {
		// CreateEnrollment performs the capacity-guarded insert atomically:
		// the count-check-insert sequence runs under a lock on the group row
		// (or equivalent) and returns ErrGroupFull when the group is at
		// maxCapacity. The unique (student, group) constraint is the
		// authoritative duplicate guard; its violation maps to ErrDuplicate.
		CreateEnrollment(ctx context.Context, enr Enrollment, maxCapacity int) (Enrollment, error)
		GetEnrollmentByID(ctx context.Context, id int64) (Enrollment, error)
		QueryEnrollmentsByStudent(ctx context.Context, studentID int64) ([]Enrollment, error)
		QueryEnrollmentsByGroup(ctx context.Context, groupID int64) ([]Enrollment, error)
		CountEnrollmentsByGroup(ctx context.Context, groupID int64) (int, error)
		EnrollmentExists(ctx context.Context, studentID, groupID int64) (bool, error)
		UpdatePaymentStatus(ctx context.Context, id int64, status string) (Enrollment, error)
		// QueryPaidSessions returns the sessions of every group the student
		// holds a PAID enrollment in.
		QueryPaidSessions(ctx context.Context, studentID int64) ([]group.GroupSession, error)
	}

	// GroupDirectory is the slice of the group repository the enrollment
	// service needs. Satisfied by group.Repository.
	GroupDirectory interface {
		GetGroupByID(ctx context.Context, id int64) (group.CourseGroup, error)
		QuerySessionsByGroup(ctx context.Context, groupID int64) ([]group.GroupSession, error)
	}

	// StudentDirectory resolves student references. Satisfied by student.Repository.
	StudentDirectory interface {
		GetStudentByID(ctx context.Context, id int64) (student.Student, error)
	}

	Service struct {
		repo     Repository
		groups   GroupDirectory
		students StudentDirectory
		mailSvc  core.EmailService
	}
)

func NewService(repo Repository, groups GroupDirectory, students StudentDirectory, mailSvc core.EmailService) *Service {
	return &Service{
		repo:     repo,
		groups:   groups,
		students: students,
		mailSvc:  mailSvc,
	}
}

// Enroll creates an enrollment for the student in the course group.
// Students may only enroll themselves; admins may enroll anyone.
// The service-level duplicate and capacity checks are a fast path: the
// repository re-checks both under the group row lock and the unique
// constraint, so concurrent attempts can never exceed capacity or duplicate
// the (student, group) pair.
func (svc *Service) Enroll(ctx context.Context, prin account.Principal, ne NewEnrollment) (Enrollment, error) {
	if !prin.CanActFor(ne.StudentID) {
		return Enrollment{}, account.ErrPermissionDenied
	}

	std, err := svc.students.GetStudentByID(ctx, ne.StudentID)
	if err != nil {
		return Enrollment{}, err
	}
	grp, err := svc.groups.GetGroupByID(ctx, ne.CourseGroupID)
	if err != nil {
		return Enrollment{}, err
	}
	if !grp.IsActive() {
		return Enrollment{}, ErrGroupNotActive
	}

	exists, err := svc.repo.EnrollmentExists(ctx, ne.StudentID, ne.CourseGroupID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "checking existing enrollment")
	}
	if exists {
		return Enrollment{}, ErrDuplicate
	}

	count, err := svc.repo.CountEnrollmentsByGroup(ctx, ne.CourseGroupID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "counting enrollments")
	}
	if count >= grp.MaxCapacity {
		return Enrollment{}, ErrGroupFull
	}

	conflict, err := svc.HasScheduleConflict(ctx, ne.StudentID, ne.CourseGroupID)
	if err != nil {
		return Enrollment{}, err
	}
	if conflict {
		return Enrollment{}, ErrScheduleConflict
	}

	enr, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID:     ne.StudentID,
		CourseGroupID: ne.CourseGroupID,
		EnrolledAt:    time.Now().UTC(),
		PaymentStatus: PaymentPending,
	}, grp.MaxCapacity)
	if err != nil {
		return Enrollment{}, err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: std.Name, Address: std.Email}},
		Subject: "Enrollment confirmed",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour enrollment in course group #%d has been registered. "+
				"Payment is pending.\n", std.Name, grp.ID),
	})
	return enr, nil
}

// HasScheduleConflict reports whether any session of the candidate group
// overlaps, on the same day, a session of a group the student holds a PAID
// enrollment in.
func (svc *Service) HasScheduleConflict(ctx context.Context, studentID, groupID int64) (bool, error) {
	candidate, err := svc.groups.QuerySessionsByGroup(ctx, groupID)
	if err != nil {
		return false, errors.Wrap(err, "querying candidate sessions")
	}
	if len(candidate) == 0 {
		return false, nil
	}
	paid, err := svc.repo.QueryPaidSessions(ctx, studentID)
	if err != nil {
		return false, errors.Wrap(err, "querying paid sessions")
	}
	for _, cand := range candidate {
		for _, sess := range paid {
			if cand.ConflictsWith(sess) {
				return true, nil
			}
		}
	}
	return false, nil
}

// UpdatePaymentStatus overwrites the payment status unconditionally; any
// status may follow any other.
func (svc *Service) UpdatePaymentStatus(ctx context.Context, id int64, up UpdatePayment) (Enrollment, error) {
	if _, err := svc.repo.GetEnrollmentByID(ctx, id); err != nil {
		return Enrollment{}, err
	}
	return svc.repo.UpdatePaymentStatus(ctx, id, up.PaymentStatus)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Enrollment, error) {
	return svc.repo.GetEnrollmentByID(ctx, id)
}

// ListByStudent is a pure read projection; it fails only if the student does
// not exist and returns an empty slice when there are no matches.
func (svc *Service) ListByStudent(ctx context.Context, studentID int64) ([]Enrollment, error) {
	if _, err := svc.students.GetStudentByID(ctx, studentID); err != nil {
		return nil, err
	}
	return svc.repo.QueryEnrollmentsByStudent(ctx, studentID)
}

// ListByGroup is a pure read projection; it fails only if the group does not
// exist and returns an empty slice when there are no matches.
func (svc *Service) ListByGroup(ctx context.Context, groupID int64) ([]Enrollment, error) {
	if _, err := svc.groups.GetGroupByID(ctx, groupID); err != nil {
		return nil, err
	}
	return svc.repo.QueryEnrollmentsByGroup(ctx, groupID)
}
