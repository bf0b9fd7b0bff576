package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/nidhamu/core/response"
)

type responseRepository struct {
	db *DB
}

var _ response.Repository = (*responseRepository)(nil) // interface compliance check

func NewResponseRepository(db *DB) *responseRepository {
	return &responseRepository{db: db}
}

func (repo *responseRepository) CreateResponse(_ context.Context, rsp response.Response) (response.Response, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.responses[rsp.ID] = &rsp
	return rsp, nil
}

func (repo *responseRepository) QueryAllResponses(_ context.Context) ([]response.Response, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	responses := make([]response.Response, 0, len(repo.db.responses))
	for _, rsp := range repo.db.responses {
		responses = append(responses, *rsp)
	}
	sortResponses(responses)
	return responses, nil
}

func (repo *responseRepository) QueryResponsesByUser(_ context.Context, userID string) ([]response.Response, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var responses []response.Response
	for _, rsp := range repo.db.responses {
		if rsp.UserID == userID {
			responses = append(responses, *rsp)
		}
	}
	sortResponses(responses)
	return responses, nil
}

func (repo *responseRepository) GetResponseByID(_ context.Context, id string) (response.Response, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rsp, ok := repo.db.responses[id]; ok {
		return *rsp, nil
	}
	return response.Response{}, response.ErrNotFound
}

func (repo *responseRepository) UpdateResponse(_ context.Context, rsp response.Response) (response.Response, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.responses[rsp.ID]; !ok {
		return response.Response{}, response.ErrNotFound
	}
	repo.db.responses[rsp.ID] = &rsp
	return rsp, nil
}

// newest first
func sortResponses(responses []response.Response) {
	sort.Slice(responses, func(i, j int) bool {
		return responses[i].CreatedAt.After(responses[j].CreatedAt)
	})
}
