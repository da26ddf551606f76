package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/grouprequest"
)

type groupRequestRepository struct {
	db *DB
}

var _ grouprequest.Repository = (*groupRequestRepository)(nil)

func NewGroupRequestRepository(db *DB) *groupRequestRepository {
	return &groupRequestRepository{db: db}
}

func (repo *groupRequestRepository) CreateRequest(ctx context.Context, req grouprequest.GroupRequest) (grouprequest.GroupRequest, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, other := range repo.db.requests {
		if other.StudentID == req.StudentID && other.SubjectID == req.SubjectID &&
			other.Status == grouprequest.StatusPending {
			return grouprequest.GroupRequest{}, grouprequest.ErrDuplicate
		}
	}
	req.ID = repo.db.nextID("group_request")
	repo.db.requests[req.ID] = &req
	return req, nil
}

func (repo *groupRequestRepository) GetRequestByID(ctx context.Context, id int64) (grouprequest.GroupRequest, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if req, ok := repo.db.requests[id]; ok {
		return *req, nil
	}
	return grouprequest.GroupRequest{}, grouprequest.ErrNotFound
}

func (repo *groupRequestRepository) QueryRequests(ctx context.Context, filter *grouprequest.QueryFilter, ordering []core.DBOrdering) ([]grouprequest.GroupRequest, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	requests := []grouprequest.GroupRequest{}
	for _, req := range repo.db.requests {
		if matchRequest(*req, filter) {
			requests = append(requests, *req)
		}
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].ID < requests[j].ID })
	return requests, nil
}

func matchRequest(req grouprequest.GroupRequest, filter *grouprequest.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.StudentID != 0 && req.StudentID != filter.StudentID {
		return false
	}
	if filter.SubjectID != 0 && req.SubjectID != filter.SubjectID {
		return false
	}
	if filter.Status != "" && req.Status != filter.Status {
		return false
	}
	return true
}

func (repo *groupRequestRepository) HasPendingRequest(ctx context.Context, studentID, subjectID int64) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, req := range repo.db.requests {
		if req.StudentID == studentID && req.SubjectID == subjectID &&
			req.Status == grouprequest.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (repo *groupRequestRepository) ResolveRequest(ctx context.Context, id int64, status, comment string, resolvedAt time.Time) (grouprequest.GroupRequest, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	req, ok := repo.db.requests[id]
	if !ok {
		return grouprequest.GroupRequest{}, grouprequest.ErrNotFound
	}
	if req.Status != grouprequest.StatusPending {
		return grouprequest.GroupRequest{}, grouprequest.ErrInvalidTransition
	}
	req.Status = status
	req.ResolvedAt = null.TimeFrom(resolvedAt)
	req.ResolutionComment = null.NewString(comment, comment != "")
	return *req, nil
}

func (repo *groupRequestRepository) DeleteRequest(ctx context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.requests, id)
	return nil
}

func (repo *groupRequestRepository) QueryDemand(ctx context.Context) ([]grouprequest.SubjectDemand, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	counts := make(map[int64]int)
	for _, req := range repo.db.requests {
		if req.Status == grouprequest.StatusPending {
			counts[req.SubjectID]++
		}
	}

	demand := []grouprequest.SubjectDemand{}
	for subjectID, count := range counts {
		name := ""
		if sub, ok := repo.db.subjects[subjectID]; ok {
			name = sub.Name
		}
		demand = append(demand, grouprequest.SubjectDemand{
			SubjectID:    subjectID,
			SubjectName:  name,
			PendingCount: count,
		})
	}
	sort.Slice(demand, func(i, j int) bool {
		if demand[i].PendingCount != demand[j].PendingCount {
			return demand[i].PendingCount > demand[j].PendingCount
		}
		return demand[i].SubjectID < demand[j].SubjectID
	})
	return demand, nil
}
