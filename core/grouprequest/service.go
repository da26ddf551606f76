package grouprequest

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/account"
	"github.com/darasahq/darasa/core/student"
	"github.com/darasahq/darasa/core/subject"
)

var (
	// errors
	ErrNotFound = errors.New("group request not found")
	// ErrDuplicate prevents request spamming: one PENDING request per
	// (student, subject) pair.
	ErrDuplicate = errors.New("a pending request for this subject already exists")
	// ErrInvalidTransition means the request is not PENDING: APPROVED and
	// REJECTED are terminal.
	ErrInvalidTransition = errors.New("only pending requests may be resolved")
	// ErrNotDeletable guards deletion of live signal data.
	ErrNotDeletable = errors.New("request is neither rejected nor past the retention threshold")
)

type (
	Repository interface {
		// CreateRequest maps a duplicate-PENDING uniqueness violation to
		// ErrDuplicate; the partial unique index is the authoritative guard.
		CreateRequest(ctx context.Context, req GroupRequest) (GroupRequest, error)
		GetRequestByID(ctx context.Context, id int64) (GroupRequest, error)
		QueryRequests(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]GroupRequest, error)
		HasPendingRequest(ctx context.Context, studentID, subjectID int64) (bool, error)
		// ResolveRequest flips status and stamps resolution atomically,
		// guarded by `status = PENDING`; it returns ErrInvalidTransition when
		// the request exists but is no longer pending.
		ResolveRequest(ctx context.Context, id int64, status string, comment string, resolvedAt time.Time) (GroupRequest, error)
		DeleteRequest(ctx context.Context, id int64) error
		// QueryDemand ranks subjects by pending request count, descending.
		QueryDemand(ctx context.Context) ([]SubjectDemand, error)
	}

	// StudentDirectory resolves student references. Satisfied by student.Repository.
	StudentDirectory interface {
		GetStudentByID(ctx context.Context, id int64) (student.Student, error)
	}

	// SubjectDirectory resolves subject references. Satisfied by subject.Repository.
	SubjectDirectory interface {
		GetSubjectByID(ctx context.Context, id int64) (subject.Subject, error)
	}

	Service struct {
		repo     Repository
		students StudentDirectory
		subjects SubjectDirectory
		mailSvc  core.EmailService
		conf     *core.Config
	}
)

func NewService(
	repo Repository,
	students StudentDirectory,
	subjects SubjectDirectory,
	mailSvc core.EmailService,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		students: students,
		subjects: subjects,
		mailSvc:  mailSvc,
		conf:     conf,
	}
}

// Create opens a PENDING request for the (student, subject) pair. Students may
// only request for themselves; admins may request on a student's behalf.
// The duplicate check is a fast path; the repository's partial unique index is
// authoritative under concurrency.
func (svc *Service) Create(ctx context.Context, prin account.Principal, nr NewRequest) (GroupRequest, error) {
	if !prin.CanActFor(nr.StudentID) {
		return GroupRequest{}, account.ErrPermissionDenied
	}

	if _, err := svc.students.GetStudentByID(ctx, nr.StudentID); err != nil {
		return GroupRequest{}, err
	}
	if _, err := svc.subjects.GetSubjectByID(ctx, nr.SubjectID); err != nil {
		return GroupRequest{}, err
	}

	pending, err := svc.repo.HasPendingRequest(ctx, nr.StudentID, nr.SubjectID)
	if err != nil {
		return GroupRequest{}, errors.Wrap(err, "checking pending request")
	}
	if pending {
		return GroupRequest{}, ErrDuplicate
	}

	return svc.repo.CreateRequest(ctx, GroupRequest{
		StudentID: nr.StudentID,
		SubjectID: nr.SubjectID,
		Comment:   nr.Comment,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) GetByID(ctx context.Context, id int64) (GroupRequest, error) {
	return svc.repo.GetRequestByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]GroupRequest, error) {
	return svc.repo.QueryRequests(ctx, filter, ordering)
}

// UpdateStatus resolves a pending request to APPROVED or REJECTED and notifies
// the requesting student. Terminal states absorb: resolving a resolved request
// fails with ErrInvalidTransition.
func (svc *Service) UpdateStatus(ctx context.Context, id int64, rr ResolveRequest) (GroupRequest, error) {
	req, err := svc.repo.GetRequestByID(ctx, id)
	if err != nil {
		return GroupRequest{}, err
	}
	if !req.IsPending() {
		return GroupRequest{}, ErrInvalidTransition
	}

	req, err = svc.repo.ResolveRequest(ctx, id, rr.Status, rr.Comment, time.Now().UTC())
	if err != nil {
		return GroupRequest{}, err
	}

	svc.notifyDecision(ctx, req)
	return req, nil
}

// Delete removes a request administratively. Pending and approved requests
// are live signal data: they may only be deleted once older than the
// configured retention threshold. Rejected requests may always be deleted.
func (svc *Service) Delete(ctx context.Context, id int64) error {
	req, err := svc.repo.GetRequestByID(ctx, id)
	if err != nil {
		return err
	}
	retained := time.Since(req.CreatedAt) <= svc.conf.RequestRetention
	if req.Status != StatusRejected && retained {
		return ErrNotDeletable
	}
	return svc.repo.DeleteRequest(ctx, id)
}

// Demand is a read-only projection over pending requests.
func (svc *Service) Demand(ctx context.Context) ([]SubjectDemand, error) {
	return svc.repo.QueryDemand(ctx)
}

func (svc *Service) notifyDecision(ctx context.Context, req GroupRequest) {
	std, err := svc.students.GetStudentByID(ctx, req.StudentID)
	if err != nil {
		return // notification is best effort
	}
	sub, err := svc.subjects.GetSubjectByID(ctx, req.SubjectID)
	if err != nil {
		return
	}

	body := fmt.Sprintf("Hi %s,\n\nYour group request for %q has been %s.\n",
		std.Name, sub.Name, strings.ToLower(req.Status))
	if req.ResolutionComment.Valid && req.ResolutionComment.String != "" {
		body += fmt.Sprintf("\nComment: %s\n", req.ResolutionComment.String)
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: std.Name, Address: std.Email}},
		Subject: "Group request " + strings.ToLower(req.Status),
		Body:    body,
	})
}
