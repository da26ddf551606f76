package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

// query must be called with at least the read lock held.
func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.students))
	for _, std := range repo.db.students {
		students = append(students, *std)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students
}

func (repo *studentRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...student.Student) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, std := range repo.query() {
		if std.Email == email && !studentExcluded(std, excluded) {
			return student.ErrEmailExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, other := range repo.db.students {
		if other.Email == std.Email {
			return student.Student{}, student.ErrEmailExists
		}
	}
	std.ID = repo.db.nextID("student")
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := []student.Student{}
	for _, std := range repo.query() {
		if matchStudent(std, filter) {
			students = append(students, std)
		}
	}
	return students, nil
}

func matchStudent(std student.Student, filter *student.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(std.Name), search) &&
			!strings.Contains(strings.ToLower(std.Email), search) {
			return false
		}
	}
	if filter.Major != "" && std.Major != filter.Major {
		return false
	}
	if !filter.CreatedFrom.IsZero() && std.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && std.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id int64) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentByEmail(ctx context.Context, email string) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, std := range repo.db.students {
		if std.Email == email {
			return *std, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.students[std.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	// only save set fields
	if len(std.PasswordHash) > 0 {
		orig.PasswordHash = std.PasswordHash
	}
	if !std.LastLogin.IsZero() {
		orig.LastLogin = std.LastLogin
	}
	orig.Name = std.Name
	orig.Email = std.Email
	orig.Major = std.Major
	orig.UpdatedAt = std.UpdatedAt
	return *orig, nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ids ...int64) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.students[id]; ok {
			delete(repo.db.students, id)
			cnt++
		}
	}
	return cnt, nil
}

func studentExcluded(std student.Student, excluded []student.Student) bool {
	for _, ex := range excluded {
		if ex.ID == std.ID {
			return true
		}
	}
	return false
}
