package grouprequest

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
)

// Request statuses. PENDING is the only non-terminal state:
// PENDING -> APPROVED | PENDING -> REJECTED.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// GroupRequest is a student-initiated signal of demand for a subject lacking
// an active group.
type GroupRequest struct {
	ID                int64       `json:"id" db:"id"`
	StudentID         int64       `json:"student_id" db:"student_id"`
	SubjectID         int64       `json:"subject_id" db:"subject_id"`
	Comment           string      `json:"comment" db:"comment"`
	Status            string      `json:"status" db:"status"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"` // UTC
	ResolvedAt        null.Time   `json:"resolved_at" db:"resolved_at"`
	ResolutionComment null.String `json:"resolution_comment" db:"resolution_comment"`
}

func (r GroupRequest) IsPending() bool { return r.Status == StatusPending }

// NewRequest contains information needed to open a group request.
type NewRequest struct {
	StudentID int64  `json:"student_id" validate:"required"`
	SubjectID int64  `json:"subject_id" validate:"required"`
	Comment   string `json:"comment" validate:"max=500"`
}

func (nr *NewRequest) Validate(ctx context.Context, validate *validator.Validate) error {
	nr.Comment = core.CleanString(nr.Comment)
	return validate.Struct(nr)
}

// ResolveRequest carries an admin decision on a pending request.
type ResolveRequest struct {
	Status  string `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Comment string `json:"comment" validate:"max=500"`
}

func (rr *ResolveRequest) Validate(ctx context.Context, validate *validator.Validate) error {
	rr.Comment = core.CleanString(rr.Comment)
	return validate.Struct(rr)
}

type QueryFilter struct {
	StudentID int64  `query:"student_id"`
	SubjectID int64  `query:"subject_id"`
	Status    string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == 0 && qf.SubjectID == 0 && qf.Status == ""
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status)
}

// SubjectDemand is a read-only projection ranking subjects by pending request count.
type SubjectDemand struct {
	SubjectID    int64  `json:"subject_id" db:"subject_id"`
	SubjectName  string `json:"subject_name" db:"subject_name"`
	PendingCount int    `json:"pending_count" db:"pending_count"`
}
