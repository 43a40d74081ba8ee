package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mradi/core/project"
)

type progressRow struct {
	ID         string    `db:"id"`
	ProjectID  string    `db:"project_id"`
	StudentID  string    `db:"student_id"`
	UpdateText string    `db:"update_text"`
	Completion null.Int  `db:"completion"`
	Date       time.Time `db:"date"`
}

type progressRepository struct {
	db *sqlx.DB
}

var _ project.ProgressRepository = (*progressRepository)(nil)

func NewProgressRepository(db *sqlx.DB) project.ProgressRepository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) CreateProgressUpdate(ctx context.Context, pu project.ProgressUpdate) (project.ProgressUpdate, error) {
	row := progressRow{
		ID:         pu.ID,
		ProjectID:  pu.ProjectID,
		StudentID:  pu.StudentID,
		UpdateText: pu.UpdateText,
		Completion: null.IntFromPtr(pu.Completion),
		Date:       pu.Date,
	}
	q := `INSERT INTO progress_updates (id, project_id, student_id, update_text, completion, date)
		VALUES (:id, :project_id, :student_id, :update_text, :completion, :date)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return project.ProgressUpdate{}, errors.Wrap(err, "inserting progress update")
	}
	return pu, nil
}

func (repo *progressRepository) QueryProgressUpdates(ctx context.Context, projectID string) ([]project.ProgressUpdate, error) {
	var rows []progressRow
	q := `SELECT id, project_id, student_id, update_text, completion, date
		FROM progress_updates WHERE project_id::text = $1 ORDER BY date DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, projectID); err != nil {
		return nil, errors.Wrap(err, "selecting progress updates")
	}
	updates := make([]project.ProgressUpdate, 0, len(rows))
	for _, r := range rows {
		updates = append(updates, project.ProgressUpdate{
			ID:         r.ID,
			ProjectID:  r.ProjectID,
			StudentID:  r.StudentID,
			UpdateText: r.UpdateText,
			Completion: r.Completion.Ptr(),
			Date:       r.Date.UTC(),
		})
	}
	return updates, nil
}
