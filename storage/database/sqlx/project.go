package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mradi/core"
	"github.com/trezcool/mradi/core/project"
)

const projectColumns = "id, student_id, faculty_id, name, description, tech_stack, real_life_application, " +
	"expected_completion_date, status, progress, score, grade, comments, recommendations, evaluation, version, " +
	"created_at, updated_at"

var projectOrderingFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"progress":   true,
}

type (
	projectRow struct {
		ID                     string      `db:"id"`
		StudentID              string      `db:"student_id"`
		FacultyID              string      `db:"faculty_id"`
		Name                   string      `db:"name"`
		Description            string      `db:"description"`
		TechStack              string      `db:"tech_stack"`
		RealLifeApplication    string      `db:"real_life_application"`
		ExpectedCompletionDate null.Time   `db:"expected_completion_date"`
		Status                 string      `db:"status"`
		Progress               int         `db:"progress"`
		Score                  null.Int    `db:"score"`
		Grade                  null.String `db:"grade"`
		Comments               null.String `db:"comments"`
		Recommendations        null.String `db:"recommendations"`
		Evaluation             null.JSON   `db:"evaluation"`
		Version                int         `db:"version"`
		CreatedAt              time.Time   `db:"created_at"`
		UpdatedAt              time.Time   `db:"updated_at"`
	}

	feedbackRow struct {
		ID          string    `db:"id"`
		ProjectID   string    `db:"project_id"`
		Position    int       `db:"position"`
		Action      string    `db:"action"`
		Message     string    `db:"message"`
		FacultyID   string    `db:"faculty_id"`
		FacultyName string    `db:"faculty_name"`
		CreatedAt   time.Time `db:"created_at"`
	}
)

func boilProject(p project.Project) (projectRow, error) {
	row := projectRow{
		ID:                  p.ID,
		StudentID:           p.StudentID,
		FacultyID:           p.FacultyID,
		Name:                p.Name,
		Description:         p.Description,
		TechStack:           p.TechStack,
		RealLifeApplication: p.RealLifeApplication,
		Status:              p.Status,
		Progress:            p.Progress,
		Score:               null.IntFromPtr(p.Score),
		Grade:               null.NewString(p.Grade, p.Grade != ""),
		Comments:            null.NewString(p.Comments, p.Comments != ""),
		Recommendations:     null.NewString(p.Recommendations, p.Recommendations != ""),
		Version:             p.Version,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	if p.ExpectedCompletionDate != "" {
		d, err := core.ParseDate(p.ExpectedCompletionDate)
		if err != nil {
			return projectRow{}, errors.Wrap(err, "parsing expected completion date")
		}
		row.ExpectedCompletionDate = null.TimeFrom(d)
	}
	if p.Evaluation != nil {
		data, err := json.Marshal(p.Evaluation)
		if err != nil {
			return projectRow{}, errors.Wrap(err, "marshalling evaluation")
		}
		row.Evaluation = null.JSONFrom(data)
	}
	return row, nil
}

func unboilProject(r projectRow, feedback []feedbackRow) (project.Project, error) {
	p := project.Project{
		ID:                  r.ID,
		StudentID:           r.StudentID,
		FacultyID:           r.FacultyID,
		Name:                r.Name,
		Description:         r.Description,
		TechStack:           r.TechStack,
		RealLifeApplication: r.RealLifeApplication,
		Status:              r.Status,
		Progress:            r.Progress,
		Score:               r.Score.Ptr(),
		Grade:               r.Grade.String,
		Comments:            r.Comments.String,
		Recommendations:     r.Recommendations.String,
		Feedback:            make([]project.FeedbackEvent, 0, len(feedback)),
		Version:             r.Version,
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
	}
	if r.ExpectedCompletionDate.Valid {
		p.ExpectedCompletionDate = r.ExpectedCompletionDate.Time.Format(core.DateLayout)
	}
	if r.Evaluation.Valid {
		ev := new(project.Evaluation)
		if err := r.Evaluation.Unmarshal(ev); err != nil {
			return project.Project{}, errors.Wrap(err, "unmarshalling evaluation")
		}
		p.Evaluation = ev
	}
	for _, f := range feedback {
		p.Feedback = append(p.Feedback, project.FeedbackEvent{
			ID:          f.ID,
			Action:      f.Action,
			Message:     f.Message,
			FacultyID:   f.FacultyID,
			FacultyName: f.FacultyName,
			CreatedAt:   f.CreatedAt.UTC(),
		})
	}
	return p, nil
}

type projectRepository struct {
	db *sqlx.DB
}

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db *sqlx.DB) project.Repository {
	return &projectRepository{db: db}
}

func insertFeedback(ctx context.Context, tx *sqlx.Tx, p project.Project) error {
	q := `INSERT INTO feedback_events (id, project_id, position, action, message, faculty_id, faculty_name, created_at)
		VALUES (:id, :project_id, :position, :action, :message, :faculty_id, :faculty_name, :created_at)
		ON CONFLICT (id) DO NOTHING`
	for i, f := range p.Feedback {
		row := feedbackRow{
			ID:          f.ID,
			ProjectID:   p.ID,
			Position:    i,
			Action:      f.Action,
			Message:     f.Message,
			FacultyID:   f.FacultyID,
			FacultyName: f.FacultyName,
			CreatedAt:   f.CreatedAt,
		}
		if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
			return errors.Wrap(err, "inserting feedback event")
		}
	}
	return nil
}

func (repo *projectRepository) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	row, err := boilProject(p)
	if err != nil {
		return project.Project{}, err
	}
	err = inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO projects (` + projectColumns + `) VALUES (:id, :student_id, :faculty_id, :name, :description,
			:tech_stack, :real_life_application, :expected_completion_date, :status, :progress, :score, :grade,
			:comments, :recommendations, :evaluation, :version, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
			return errors.Wrap(err, "inserting project")
		}
		return insertFeedback(ctx, tx, p)
	})
	if err != nil {
		return project.Project{}, err
	}
	return p, nil
}

// feedbackByProject loads the feedback events of projects, in log order.
func (repo *projectRepository) feedbackByProject(ctx context.Context, ids []string) (map[string][]feedbackRow, error) {
	byProject := make(map[string][]feedbackRow, len(ids))
	if len(ids) == 0 {
		return byProject, nil
	}
	var rows []feedbackRow
	q := `SELECT id, project_id, position, action, message, faculty_id, faculty_name, created_at
		FROM feedback_events WHERE project_id::text = ANY($1) ORDER BY project_id, position`
	if err := repo.db.SelectContext(ctx, &rows, q, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "selecting feedback events")
	}
	for _, r := range rows {
		byProject[r.ProjectID] = append(byProject[r.ProjectID], r)
	}
	return byProject, nil
}

func (repo *projectRepository) GetProject(ctx context.Context, id string) (project.Project, error) {
	var row projectRow
	q := "SELECT " + projectColumns + " FROM projects WHERE id::text = $1"
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return project.Project{}, project.ErrNotFound
		}
		return project.Project{}, errors.Wrap(err, "selecting project")
	}
	feedback, err := repo.feedbackByProject(ctx, []string{row.ID})
	if err != nil {
		return project.Project{}, err
	}
	return unboilProject(row, feedback[row.ID])
}

func (repo *projectRepository) QueryProjects(ctx context.Context, filter project.QueryFilter, ordering ...core.DBOrdering) ([]project.Project, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conds = append(conds, fmt.Sprintf("student_id::text = $%d", len(args)))
	}
	if filter.FacultyID != "" {
		args = append(args, filter.FacultyID)
		conds = append(conds, fmt.Sprintf("faculty_id::text = $%d", len(args)))
	}

	var rows []projectRow
	q := "SELECT " + projectColumns + " FROM projects" + whereClause(conds) + orderByClause(ordering, projectOrderingFields)
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting projects")
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	feedback, err := repo.feedbackByProject(ctx, ids)
	if err != nil {
		return nil, err
	}

	projects := make([]project.Project, 0, len(rows))
	for _, r := range rows {
		p, err := unboilProject(r, feedback[r.ID])
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// UpdateProject updates the row only while its version is unchanged. Feedback events are
// append-only: events already stored are left untouched.
func (repo *projectRepository) UpdateProject(ctx context.Context, p project.Project) (project.Project, error) {
	row, err := boilProject(p)
	if err != nil {
		return project.Project{}, err
	}

	err = inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `UPDATE projects SET name = :name, description = :description, tech_stack = :tech_stack,
			real_life_application = :real_life_application, expected_completion_date = :expected_completion_date,
			status = :status, progress = :progress, score = :score, grade = :grade, comments = :comments,
			recommendations = :recommendations, evaluation = :evaluation, version = version + 1,
			updated_at = :updated_at
			WHERE id = :id AND version = :version`
		res, err := tx.NamedExecContext(ctx, q, row)
		if err != nil {
			return errors.Wrap(err, "updating project")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "updating project")
		}
		if n == 0 {
			var found bool
			err = tx.GetContext(ctx, &found, "SELECT true FROM projects WHERE id = $1", p.ID)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				return project.ErrNotFound
			case err != nil:
				return errors.Wrap(err, "selecting project")
			}
			return project.ErrVersionConflict
		}
		return insertFeedback(ctx, tx, p)
	})
	if err != nil {
		return project.Project{}, err
	}
	p.Version++
	return p, nil
}
