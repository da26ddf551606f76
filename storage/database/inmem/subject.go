package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/subject"
)

type subjectRepository struct {
	db *DB
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *DB) *subjectRepository {
	return &subjectRepository{db: db}
}

// query must be called with at least the read lock held.
func (repo *subjectRepository) query() []subject.Subject {
	subjects := make([]subject.Subject, 0, len(repo.db.subjects))
	for _, sub := range repo.db.subjects {
		subjects = append(subjects, *sub)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })
	return subjects
}

func (repo *subjectRepository) CheckNameUniqueness(ctx context.Context, name, major string, excluded ...subject.Subject) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sub := range repo.query() {
		if sub.Name == name && sub.Major == major && !subjectExcluded(sub, excluded) {
			return subject.ErrSubjectExists
		}
	}
	return nil
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, other := range repo.db.subjects {
		if other.Name == sub.Name && other.Major == sub.Major {
			return subject.Subject{}, subject.ErrSubjectExists
		}
	}
	sub.ID = repo.db.nextID("subject")
	repo.db.subjects[sub.ID] = &sub
	return sub, nil
}

func (repo *subjectRepository) QuerySubjects(ctx context.Context, filter *subject.QueryFilter, ordering []core.DBOrdering) ([]subject.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subjects := []subject.Subject{}
	for _, sub := range repo.query() {
		if matchSubject(sub, filter) {
			subjects = append(subjects, sub)
		}
	}
	return subjects, nil
}

func matchSubject(sub subject.Subject, filter *subject.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" && !strings.Contains(strings.ToLower(sub.Name), strings.ToLower(filter.Search)) {
		return false
	}
	if filter.Major != "" && sub.Major != filter.Major {
		return false
	}
	if filter.CourseYear != 0 && sub.CourseYear != filter.CourseYear {
		return false
	}
	return true
}

func (repo *subjectRepository) GetSubjectByID(ctx context.Context, id int64) (subject.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.subjects[id]; ok {
		return *sub, nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.subjects[sub.ID]
	if !ok {
		return subject.Subject{}, subject.ErrNotFound
	}
	orig.Name = sub.Name
	orig.Major = sub.Major
	orig.CourseYear = sub.CourseYear
	orig.UpdatedAt = sub.UpdatedAt
	return *orig, nil
}

func (repo *subjectRepository) SubjectInUse(ctx context.Context, id int64) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, grp := range repo.db.groups {
		if grp.SubjectID == id {
			return true, nil
		}
	}
	for _, req := range repo.db.requests {
		if req.SubjectID == id {
			return true, nil
		}
	}
	return false, nil
}

func (repo *subjectRepository) DeleteSubject(ctx context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.subjects, id)
	return nil
}

func subjectExcluded(sub subject.Subject, excluded []subject.Subject) bool {
	for _, ex := range excluded {
		if ex.ID == sub.ID {
			return true
		}
	}
	return false
}
