// Package inmemdb provides mutex-guarded, in-memory implementations of the
// domain repositories. It backs service and API tests; semantics mirror the
// psql repositories, including the capacity and duplicate guards.
package inmemdb

import (
	"sync"

	"github.com/darasahq/darasa/core/admin"
	"github.com/darasahq/darasa/core/enrollment"
	"github.com/darasahq/darasa/core/group"
	"github.com/darasahq/darasa/core/grouprequest"
	"github.com/darasahq/darasa/core/student"
	"github.com/darasahq/darasa/core/subject"
	"github.com/darasahq/darasa/core/teacher"
)

// DB holds every table behind one lock so that cross-table operations
// (capacity-guarded enrollment, usage checks, schedule joins) stay atomic.
type DB struct {
	mutex sync.RWMutex

	students    map[int64]*student.Student
	teachers    map[int64]*teacher.Teacher
	admins      map[int64]*admin.Admin
	subjects    map[int64]*subject.Subject
	groups      map[int64]*group.CourseGroup
	sessions    map[int64]*group.GroupSession
	enrollments map[int64]*enrollment.Enrollment
	requests    map[int64]*grouprequest.GroupRequest

	seq map[string]int64
}

func Open() *DB {
	return &DB{
		students:    make(map[int64]*student.Student),
		teachers:    make(map[int64]*teacher.Teacher),
		admins:      make(map[int64]*admin.Admin),
		subjects:    make(map[int64]*subject.Subject),
		groups:      make(map[int64]*group.CourseGroup),
		sessions:    make(map[int64]*group.GroupSession),
		enrollments: make(map[int64]*enrollment.Enrollment),
		requests:    make(map[int64]*grouprequest.GroupRequest),
		seq:         make(map[string]int64),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID(table string) int64 {
	db.seq[table]++
	return db.seq[table]
}
