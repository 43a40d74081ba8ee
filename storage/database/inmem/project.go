package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/mradi/core"
	"github.com/trezcool/mradi/core/project"
)

type projectRepository struct {
	db *projectTable
}

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db *DB) project.Repository {
	return &projectRepository{db: db.project}
}

func copyProject(p project.Project) project.Project {
	if p.Score != nil {
		s := *p.Score
		p.Score = &s
	}
	if p.Evaluation != nil {
		ev := *p.Evaluation
		ev.CriteriaScores = make(map[string]float64, len(p.Evaluation.CriteriaScores))
		for k, v := range p.Evaluation.CriteriaScores {
			ev.CriteriaScores[k] = v
		}
		p.Evaluation = &ev
	}
	p.Feedback = append(make([]project.FeedbackEvent, 0, len(p.Feedback)), p.Feedback...)
	return p
}

func (repo *projectRepository) CreateProject(_ context.Context, p project.Project) (project.Project, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored := copyProject(p)
	repo.db.rows[p.ID] = &stored
	repo.db.order = append(repo.db.order, p.ID)
	return copyProject(stored), nil
}

func (repo *projectRepository) GetProject(_ context.Context, id string) (project.Project, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.rows[id]; ok {
		return copyProject(*p), nil
	}
	return project.Project{}, project.ErrNotFound
}

func (repo *projectRepository) QueryProjects(_ context.Context, filter project.QueryFilter, ordering ...core.DBOrdering) ([]project.Project, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	projects := make([]project.Project, 0)
	for _, id := range repo.db.order {
		if p := repo.db.rows[id]; filter.Match(*p) {
			projects = append(projects, copyProject(*p))
		}
	}
	sortProjects(projects, ordering)
	return projects, nil
}

func (repo *projectRepository) UpdateProject(_ context.Context, p project.Project) (project.Project, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.rows[p.ID]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}
	if orig.Version != p.Version {
		return project.Project{}, project.ErrVersionConflict
	}
	p.Version++
	stored := copyProject(p)
	repo.db.rows[p.ID] = &stored
	return copyProject(stored), nil
}

// compareProjects returns -1, 0 or 1 comparing a and b on field.
func compareProjects(a, b project.Project, field string) int {
	switch field {
	case "created_at":
		return compareInts(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	case "updated_at":
		return compareInts(a.UpdatedAt.UnixNano(), b.UpdatedAt.UnixNano())
	case "name":
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case "progress":
		return compareInts(int64(a.Progress), int64(b.Progress))
	}
	return 0
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func sortProjects(projects []project.Project, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		return
	}
	sort.SliceStable(projects, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareProjects(projects[i], projects[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}
