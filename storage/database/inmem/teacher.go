package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/teacher"
)

type teacherRepository struct {
	db *DB
}

var _ teacher.Repository = (*teacherRepository)(nil)

func NewTeacherRepository(db *DB) *teacherRepository {
	return &teacherRepository{db: db}
}

// query must be called with at least the read lock held.
func (repo *teacherRepository) query() []teacher.Teacher {
	teachers := make([]teacher.Teacher, 0, len(repo.db.teachers))
	for _, tch := range repo.db.teachers {
		teachers = append(teachers, *tch)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].ID < teachers[j].ID })
	return teachers
}

func (repo *teacherRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...teacher.Teacher) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, tch := range repo.query() {
		if tch.Email == email && !teacherExcluded(tch, excluded) {
			return teacher.ErrEmailExists
		}
	}
	return nil
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, tch teacher.Teacher) (teacher.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, other := range repo.db.teachers {
		if other.Email == tch.Email {
			return teacher.Teacher{}, teacher.ErrEmailExists
		}
	}
	tch.ID = repo.db.nextID("teacher")
	repo.db.teachers[tch.ID] = &tch
	return tch, nil
}

func (repo *teacherRepository) QueryTeachers(ctx context.Context, filter *teacher.QueryFilter, ordering []core.DBOrdering) ([]teacher.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	teachers := []teacher.Teacher{}
	for _, tch := range repo.query() {
		if matchTeacher(tch, filter) {
			teachers = append(teachers, tch)
		}
	}
	return teachers, nil
}

func matchTeacher(tch teacher.Teacher, filter *teacher.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(tch.Name), search) &&
			!strings.Contains(strings.ToLower(tch.Email), search) {
			return false
		}
	}
	if !filter.CreatedFrom.IsZero() && tch.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && tch.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *teacherRepository) GetTeacherByID(ctx context.Context, id int64) (teacher.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if tch, ok := repo.db.teachers[id]; ok {
		return *tch, nil
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) GetTeacherByEmail(ctx context.Context, email string) (teacher.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, tch := range repo.db.teachers {
		if tch.Email == email {
			return *tch, nil
		}
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, tch teacher.Teacher) (teacher.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.teachers[tch.ID]
	if !ok {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	// only save set fields
	if len(tch.PasswordHash) > 0 {
		orig.PasswordHash = tch.PasswordHash
	}
	if !tch.LastLogin.IsZero() {
		orig.LastLogin = tch.LastLogin
	}
	orig.Name = tch.Name
	orig.Email = tch.Email
	orig.UpdatedAt = tch.UpdatedAt
	return *orig, nil
}

func (repo *teacherRepository) DeleteTeachersByID(ctx context.Context, ids ...int64) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.teachers[id]; ok {
			delete(repo.db.teachers, id)
			cnt++
		}
	}
	return cnt, nil
}

func teacherExcluded(tch teacher.Teacher, excluded []teacher.Teacher) bool {
	for _, ex := range excluded {
		if ex.ID == tch.ID {
			return true
		}
	}
	return false
}
