package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/mradi/core"
	"github.com/trezcool/mradi/core/project"
)

var projectSortFields = map[string]string{
	"created_at": "createdAt",
	"updated_at": "updatedAt",
	"name":       "name",
	"progress":   "progress",
}

type (
	projectDoc struct {
		ID                     string         `bson:"_id"`
		StudentID              string         `bson:"studentId"`
		FacultyID              string         `bson:"facultyId"`
		Name                   string         `bson:"name"`
		Description            string         `bson:"description"`
		TechStack              string         `bson:"techStack"`
		RealLifeApplication    string         `bson:"realLifeApplication"`
		ExpectedCompletionDate string         `bson:"expectedCompletionDate,omitempty"`
		Status                 string         `bson:"status"`
		Progress               int            `bson:"progress"`
		Score                  *int           `bson:"score,omitempty"`
		Grade                  string         `bson:"grade,omitempty"`
		Comments               string         `bson:"comments,omitempty"`
		Recommendations        string         `bson:"recommendations,omitempty"`
		Evaluation             *evaluationDoc `bson:"evaluation,omitempty"`
		Feedback               []feedbackDoc  `bson:"feedback"`
		Version                int            `bson:"version"`
		CreatedAt              time.Time      `bson:"createdAt"`
		UpdatedAt              time.Time      `bson:"updatedAt"`
	}

	feedbackDoc struct {
		ID          string    `bson:"id"`
		Action      string    `bson:"action"`
		Message     string    `bson:"message"`
		FacultyID   string    `bson:"facultyId"`
		FacultyName string    `bson:"facultyName"`
		CreatedAt   time.Time `bson:"createdAt"`
	}

	evaluationDoc struct {
		CriteriaScores  map[string]float64 `bson:"criteriaScores"`
		Comments        string             `bson:"comments"`
		Recommendations string             `bson:"recommendations"`
		TotalScore      int                `bson:"totalScore"`
		Grade           string             `bson:"grade"`
		EvaluatedAt     time.Time          `bson:"evaluatedAt"`
	}
)

func toProjectDoc(p project.Project) projectDoc {
	d := projectDoc{
		ID:                     p.ID,
		StudentID:              p.StudentID,
		FacultyID:              p.FacultyID,
		Name:                   p.Name,
		Description:            p.Description,
		TechStack:              p.TechStack,
		RealLifeApplication:    p.RealLifeApplication,
		ExpectedCompletionDate: p.ExpectedCompletionDate,
		Status:                 p.Status,
		Progress:               p.Progress,
		Score:                  p.Score,
		Grade:                  p.Grade,
		Comments:               p.Comments,
		Recommendations:        p.Recommendations,
		Feedback:               make([]feedbackDoc, 0, len(p.Feedback)),
		Version:                p.Version,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
	}
	if p.Evaluation != nil {
		ev := evaluationDoc(*p.Evaluation)
		d.Evaluation = &ev
	}
	for _, f := range p.Feedback {
		d.Feedback = append(d.Feedback, feedbackDoc(f))
	}
	return d
}

func (d projectDoc) project() project.Project {
	p := project.Project{
		ID:                     d.ID,
		StudentID:              d.StudentID,
		FacultyID:              d.FacultyID,
		Name:                   d.Name,
		Description:            d.Description,
		TechStack:              d.TechStack,
		RealLifeApplication:    d.RealLifeApplication,
		ExpectedCompletionDate: d.ExpectedCompletionDate,
		Status:                 d.Status,
		Progress:               d.Progress,
		Score:                  d.Score,
		Grade:                  d.Grade,
		Comments:               d.Comments,
		Recommendations:        d.Recommendations,
		Feedback:               make([]project.FeedbackEvent, 0, len(d.Feedback)),
		Version:                d.Version,
		CreatedAt:              d.CreatedAt.UTC(),
		UpdatedAt:              d.UpdatedAt.UTC(),
	}
	if d.Evaluation != nil {
		ev := project.Evaluation(*d.Evaluation)
		ev.EvaluatedAt = ev.EvaluatedAt.UTC()
		p.Evaluation = &ev
	}
	for _, f := range d.Feedback {
		evt := project.FeedbackEvent(f)
		evt.CreatedAt = evt.CreatedAt.UTC()
		p.Feedback = append(p.Feedback, evt)
	}
	return p
}

type projectRepository struct {
	coll *mongo.Collection
}

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db *mongo.Database) project.Repository {
	return &projectRepository{coll: db.Collection(projectsCollection)}
}

func (repo *projectRepository) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	if _, err := repo.coll.InsertOne(ctx, toProjectDoc(p)); err != nil {
		return project.Project{}, errors.Wrap(err, "inserting project")
	}
	return p, nil
}

func (repo *projectRepository) GetProject(ctx context.Context, id string) (project.Project, error) {
	var doc projectDoc
	if err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return project.Project{}, project.ErrNotFound
		}
		return project.Project{}, errors.Wrap(err, "finding project")
	}
	return doc.project(), nil
}

func (repo *projectRepository) QueryProjects(ctx context.Context, filter project.QueryFilter, ordering ...core.DBOrdering) ([]project.Project, error) {
	f := bson.M{}
	if filter.Status != "" {
		f["status"] = filter.Status
	}
	if filter.StudentID != "" {
		f["studentId"] = filter.StudentID
	}
	if filter.FacultyID != "" {
		f["facultyId"] = filter.FacultyID
	}

	sortDoc := bson.D{}
	for _, ord := range ordering {
		field, ok := projectSortFields[ord.Field]
		if !ok {
			continue
		}
		dir := -1
		if ord.Ascending {
			dir = 1
		}
		sortDoc = append(sortDoc, bson.E{Key: field, Value: dir})
	}

	cursor, err := repo.coll.Find(ctx, f, options.Find().SetSort(sortDoc))
	if err != nil {
		return nil, errors.Wrap(err, "finding projects")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []projectDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding projects")
	}
	projects := make([]project.Project, 0, len(docs))
	for _, d := range docs {
		projects = append(projects, d.project())
	}
	return projects, nil
}

// UpdateProject replaces the document only while its version is unchanged.
func (repo *projectRepository) UpdateProject(ctx context.Context, p project.Project) (project.Project, error) {
	loaded := p.Version
	p.Version++
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": p.ID, "version": loaded}, toProjectDoc(p))
	if err != nil {
		return project.Project{}, errors.Wrap(err, "replacing project")
	}
	if res.MatchedCount == 0 {
		n, err := repo.coll.CountDocuments(ctx, bson.M{"_id": p.ID})
		if err != nil {
			return project.Project{}, errors.Wrap(err, "counting projects")
		}
		if n == 0 {
			return project.Project{}, project.ErrNotFound
		}
		return project.Project{}, project.ErrVersionConflict
	}
	return p, nil
}
