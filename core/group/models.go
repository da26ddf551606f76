package group

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
)

// Course group statuses. Only ACTIVE groups accept enrollments.
const (
	StatusPlanned = "PLANNED"
	StatusActive  = "ACTIVE"
	StatusClosed  = "CLOSED"
)

// Course group types.
const (
	TypeRegular   = "REGULAR"
	TypeIntensive = "INTENSIVE"
)

// DayOfWeek is the recurring weekday of a session.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

var weekdays = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

func (d DayOfWeek) Valid() bool {
	for _, day := range weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// TimeOfDay is a wall-clock time stored as minutes since midnight.
// It marshals as "HH:MM".
type TimeOfDay int

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	// time.Parse would accept a one-digit hour; enforce the documented shape
	if len(s) != 5 {
		return 0, errors.Errorf("invalid time of day %q, expected HH:MM", s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, errors.Errorf("invalid time of day %q, expected HH:MM", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t/60, t%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return int64(t), nil
}

func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*t = TimeOfDay(v)
		return nil
	default:
		return errors.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

// CourseGroup is a scheduled offering of a subject, possibly taught by a
// teacher, with capacity and price.
type CourseGroup struct {
	ID          int64      `json:"id" db:"id"`
	SubjectID   int64      `json:"subject_id" db:"subject_id"`
	TeacherID   null.Int64 `json:"teacher_id" db:"teacher_id"` // may be unassigned
	Status      string     `json:"status" db:"status"`
	Type        string     `json:"type" db:"group_type"`
	Price       float64    `json:"price" db:"price"`
	MaxCapacity int        `json:"max_capacity" db:"max_capacity"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"` // UTC
}

func (g CourseGroup) IsActive() bool { return g.Status == StatusActive }

// GroupSession is a recurring weekly time slot belonging to a course group.
type GroupSession struct {
	ID            int64       `json:"id" db:"id"`
	CourseGroupID int64       `json:"course_group_id" db:"course_group_id"`
	Day           DayOfWeek   `json:"day" db:"day"`
	Start         TimeOfDay   `json:"start_time" db:"start_min"`
	End           TimeOfDay   `json:"end_time" db:"end_min"`
	Classroom     null.String `json:"classroom" db:"classroom"`
}

// NewGroup contains information needed to create a new CourseGroup.
type NewGroup struct {
	SubjectID   int64   `json:"subject_id" validate:"required"`
	TeacherID   *int64  `json:"teacher_id"`
	Status      string  `json:"status" validate:"omitempty,oneof=PLANNED ACTIVE CLOSED"`
	Type        string  `json:"type" validate:"required,oneof=REGULAR INTENSIVE"`
	Price       float64 `json:"price" validate:"min=0"`
	MaxCapacity int     `json:"max_capacity" validate:"omitempty,min=1"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	return validate.Struct(ng)
}

// UpdateGroup defines what information may be provided to modify an existing
// CourseGroup. Nil fields are left untouched.
type UpdateGroup struct {
	TeacherID   *int64   `json:"teacher_id"`
	Status      string   `json:"status" validate:"omitempty,oneof=PLANNED ACTIVE CLOSED"`
	Type        string   `json:"type" validate:"omitempty,oneof=REGULAR INTENSIVE"`
	Price       *float64 `json:"price"`
	MaxCapacity *int     `json:"max_capacity" validate:"omitempty,min=1"`
}

func (ug *UpdateGroup) Validate(validate *validator.Validate) error {
	return validate.Struct(ug)
}

// NewSession contains information needed to create or replace a GroupSession.
// Time format errors surface at JSON binding time via TimeOfDay.
type NewSession struct {
	Day       DayOfWeek `json:"day" validate:"required,dayofweek"`
	Start     TimeOfDay `json:"start_time"`
	End       TimeOfDay `json:"end_time"`
	Classroom string    `json:"classroom"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.Classroom = core.CleanString(ns.Classroom)
	return validate.Struct(ns)
}

type QueryFilter struct {
	SubjectID int64  `query:"subject_id"`
	TeacherID int64  `query:"teacher_id"`
	Status    string `query:"status"`
	Type      string `query:"type"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.SubjectID == 0 && qf.TeacherID == 0 && qf.Status == "" && qf.Type == ""
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status)
	qf.Type = core.CleanString(qf.Type)
}

var (
	dayOfWeekTag  = "dayofweek"
	dayOfWeekText = "invalid day of week"

	endAfterStartTag  = "endafterstart"
	endAfterStartText = "must be after start time"
)

// InitValidators registers group custom & struct-level validations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(dayOfWeekTag, dayOfWeekValidation)
	core.RegisterCustomTranslation(validate, translator, dayOfWeekTag, dayOfWeekText)

	validate.RegisterStructValidation(sessionStructValidation, NewSession{})
	core.RegisterCustomTranslation(validate, translator, endAfterStartTag, endAfterStartText)
}

func dayOfWeekValidation(fl validator.FieldLevel) bool {
	return DayOfWeek(fl.Field().String()).Valid()
}

// sessionStructValidation enforces start < end on session slots.
func sessionStructValidation(sl validator.StructLevel) {
	if ns, ok := sl.Current().Interface().(NewSession); ok {
		if ns.End <= ns.Start {
			sl.ReportError(ns.End, "end_time", "End", endAfterStartTag, "")
		}
	}
}
