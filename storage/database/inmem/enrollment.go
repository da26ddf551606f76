package inmemdb

import (
	"context"
	"sort"

	"github.com/darasahq/darasa/core/enrollment"
	"github.com/darasahq/darasa/core/group"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil)
var _ group.EnrollmentCounter = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

// CreateEnrollment holds the write lock for the whole count-check-insert
// sequence, so concurrent attempts can neither exceed capacity nor duplicate
// the (student, group) pair.
func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment, maxCapacity int) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.groups[enr.CourseGroupID]; !ok {
		return enrollment.Enrollment{}, group.ErrNotFound
	}

	var count int
	for _, other := range repo.db.enrollments {
		if other.CourseGroupID == enr.CourseGroupID {
			if other.StudentID == enr.StudentID {
				return enrollment.Enrollment{}, enrollment.ErrDuplicate
			}
			count++
		}
	}
	if count >= maxCapacity {
		return enrollment.Enrollment{}, enrollment.ErrGroupFull
	}

	enr.ID = repo.db.nextID("enrollment")
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(ctx context.Context, id int64) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if enr, ok := repo.db.enrollments[id]; ok {
		return *enr, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) QueryEnrollmentsByStudent(ctx context.Context, studentID int64) ([]enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := []enrollment.Enrollment{}
	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID {
			enrollments = append(enrollments, *enr)
		}
	}
	sortEnrollments(enrollments)
	return enrollments, nil
}

func (repo *enrollmentRepository) QueryEnrollmentsByGroup(ctx context.Context, groupID int64) ([]enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := []enrollment.Enrollment{}
	for _, enr := range repo.db.enrollments {
		if enr.CourseGroupID == groupID {
			enrollments = append(enrollments, *enr)
		}
	}
	sortEnrollments(enrollments)
	return enrollments, nil
}

func (repo *enrollmentRepository) CountEnrollmentsByGroup(ctx context.Context, groupID int64) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var count int
	for _, enr := range repo.db.enrollments {
		if enr.CourseGroupID == groupID {
			count++
		}
	}
	return count, nil
}

func (repo *enrollmentRepository) EnrollmentExists(ctx context.Context, studentID, groupID int64) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID && enr.CourseGroupID == groupID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *enrollmentRepository) UpdatePaymentStatus(ctx context.Context, id int64, status string) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	enr, ok := repo.db.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	enr.PaymentStatus = status
	return *enr, nil
}

func (repo *enrollmentRepository) QueryPaidSessions(ctx context.Context, studentID int64) ([]group.GroupSession, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sessions := []group.GroupSession{}
	for _, enr := range repo.db.enrollments {
		if enr.StudentID != studentID || enr.PaymentStatus != enrollment.PaymentPaid {
			continue
		}
		for _, sess := range repo.db.sessions {
			if sess.CourseGroupID == enr.CourseGroupID {
				sessions = append(sessions, *sess)
			}
		}
	}
	sortSessions(sessions)
	return sessions, nil
}

func sortEnrollments(enrollments []enrollment.Enrollment) {
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].ID < enrollments[j].ID })
}
