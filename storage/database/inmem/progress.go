package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/mradi/core/project"
)

type progressRepository struct {
	db *progressTable
}

var _ project.ProgressRepository = (*progressRepository)(nil)

func NewProgressRepository(db *DB) project.ProgressRepository {
	return &progressRepository{db: db.progress}
}

func copyProgressUpdate(pu project.ProgressUpdate) project.ProgressUpdate {
	if pu.Completion != nil {
		c := *pu.Completion
		pu.Completion = &c
	}
	return pu
}

func (repo *progressRepository) CreateProgressUpdate(_ context.Context, pu project.ProgressUpdate) (project.ProgressUpdate, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.rows = append(repo.db.rows, copyProgressUpdate(pu))
	return pu, nil
}

func (repo *progressRepository) QueryProgressUpdates(_ context.Context, projectID string) ([]project.ProgressUpdate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	updates := make([]project.ProgressUpdate, 0)
	for i := len(repo.db.rows) - 1; i >= 0; i-- { // later insertions first on ties
		if pu := repo.db.rows[i]; pu.ProjectID == projectID {
			updates = append(updates, copyProgressUpdate(pu))
		}
	}
	sort.SliceStable(updates, func(i, j int) bool { return updates[i].Date.After(updates[j].Date) })
	return updates, nil
}
