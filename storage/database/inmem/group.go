package inmemdb

import (
	"context"
	"sort"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/group"
)

type groupRepository struct {
	db *DB
}

var _ group.Repository = (*groupRepository)(nil)

func NewGroupRepository(db *DB) *groupRepository {
	return &groupRepository{db: db}
}

func (repo *groupRepository) CreateGroup(ctx context.Context, grp group.CourseGroup) (group.CourseGroup, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	grp.ID = repo.db.nextID("course_group")
	repo.db.groups[grp.ID] = &grp
	return grp, nil
}

func (repo *groupRepository) QueryGroups(ctx context.Context, filter *group.QueryFilter, ordering []core.DBOrdering) ([]group.CourseGroup, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	groups := []group.CourseGroup{}
	for _, grp := range repo.db.groups {
		if matchGroup(*grp, filter) {
			groups = append(groups, *grp)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

func matchGroup(grp group.CourseGroup, filter *group.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.SubjectID != 0 && grp.SubjectID != filter.SubjectID {
		return false
	}
	if filter.TeacherID != 0 && (!grp.TeacherID.Valid || grp.TeacherID.Int64 != filter.TeacherID) {
		return false
	}
	if filter.Status != "" && grp.Status != filter.Status {
		return false
	}
	if filter.Type != "" && grp.Type != filter.Type {
		return false
	}
	return true
}

func (repo *groupRepository) GetGroupByID(ctx context.Context, id int64) (group.CourseGroup, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if grp, ok := repo.db.groups[id]; ok {
		return *grp, nil
	}
	return group.CourseGroup{}, group.ErrNotFound
}

func (repo *groupRepository) UpdateGroup(ctx context.Context, grp group.CourseGroup) (group.CourseGroup, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.groups[grp.ID]; !ok {
		return group.CourseGroup{}, group.ErrNotFound
	}
	repo.db.groups[grp.ID] = &grp
	return grp, nil
}

// Sessions

func (repo *groupRepository) CreateSession(ctx context.Context, sess group.GroupSession) (group.GroupSession, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, other := range repo.db.sessions {
		if other.CourseGroupID == sess.CourseGroupID && other.Day == sess.Day && other.Start == sess.Start {
			return group.GroupSession{}, group.ErrSessionExists
		}
	}
	sess.ID = repo.db.nextID("group_session")
	repo.db.sessions[sess.ID] = &sess
	return sess, nil
}

func (repo *groupRepository) GetSessionByID(ctx context.Context, id int64) (group.GroupSession, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sess, ok := repo.db.sessions[id]; ok {
		return *sess, nil
	}
	return group.GroupSession{}, group.ErrSessionNotFound
}

func (repo *groupRepository) UpdateSession(ctx context.Context, sess group.GroupSession) (group.GroupSession, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.sessions[sess.ID]; !ok {
		return group.GroupSession{}, group.ErrSessionNotFound
	}
	for _, other := range repo.db.sessions {
		if other.ID != sess.ID && other.CourseGroupID == sess.CourseGroupID &&
			other.Day == sess.Day && other.Start == sess.Start {
			return group.GroupSession{}, group.ErrSessionExists
		}
	}
	repo.db.sessions[sess.ID] = &sess
	return sess, nil
}

func (repo *groupRepository) DeleteSession(ctx context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.sessions, id)
	return nil
}

func (repo *groupRepository) QuerySessionsByGroup(ctx context.Context, groupID int64) ([]group.GroupSession, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sessions := []group.GroupSession{}
	for _, sess := range repo.db.sessions {
		if sess.CourseGroupID == groupID {
			sessions = append(sessions, *sess)
		}
	}
	sortSessions(sessions)
	return sessions, nil
}

func (repo *groupRepository) QueryClassroomSessions(ctx context.Context, classroom string, day group.DayOfWeek) ([]group.GroupSession, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sessions := []group.GroupSession{}
	for _, sess := range repo.db.sessions {
		if sess.Classroom.Valid && sess.Classroom.String == classroom && sess.Day == day {
			sessions = append(sessions, *sess)
		}
	}
	sortSessions(sessions)
	return sessions, nil
}

func (repo *groupRepository) QueryTeacherSessions(ctx context.Context, teacherID int64, day group.DayOfWeek) ([]group.GroupSession, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sessions := []group.GroupSession{}
	for _, sess := range repo.db.sessions {
		if sess.Day != day {
			continue
		}
		grp, ok := repo.db.groups[sess.CourseGroupID]
		if ok && grp.TeacherID.Valid && grp.TeacherID.Int64 == teacherID {
			sessions = append(sessions, *sess)
		}
	}
	sortSessions(sessions)
	return sessions, nil
}

func sortSessions(sessions []group.GroupSession) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Day != sessions[j].Day {
			return sessions[i].Day < sessions[j].Day
		}
		return sessions[i].Start < sessions[j].Start
	})
}
