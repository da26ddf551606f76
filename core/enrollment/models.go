package enrollment

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
)

// Payment statuses. No transition machine restricts them: any status may
// follow any other.
const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
	PaymentFailed  = "FAILED"
)

// Enrollment is the record of a student joining a course group, tracked with
// an independent payment status.
type Enrollment struct {
	ID            int64     `json:"id" db:"id"`
	StudentID     int64     `json:"student_id" db:"student_id"`
	CourseGroupID int64     `json:"course_group_id" db:"course_group_id"`
	EnrolledAt    time.Time `json:"enrolled_at" db:"enrolled_at"` // UTC
	PaymentStatus string    `json:"payment_status" db:"payment_status"`
}

// NewEnrollment contains information needed to enroll a student in a group.
type NewEnrollment struct {
	StudentID     int64 `json:"student_id" validate:"required"`
	CourseGroupID int64 `json:"course_group_id" validate:"required"`
}

func (ne *NewEnrollment) Validate(ctx context.Context, validate *validator.Validate) error {
	return validate.Struct(ne)
}

// UpdatePayment carries a payment status override.
type UpdatePayment struct {
	PaymentStatus string `json:"payment_status" validate:"required,oneof=PENDING PAID FAILED"`
}

func (up *UpdatePayment) Validate(ctx context.Context, validate *validator.Validate) error {
	return validate.Struct(up)
}
