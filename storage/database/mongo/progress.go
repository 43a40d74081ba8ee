package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/mradi/core/project"
)

type progressDoc struct {
	ID         string    `bson:"_id"`
	ProjectID  string    `bson:"projectId"`
	StudentID  string    `bson:"studentId"`
	UpdateText string    `bson:"updateText"`
	Completion *int      `bson:"completion,omitempty"`
	Date       time.Time `bson:"date"`
}

type progressRepository struct {
	coll *mongo.Collection
}

var _ project.ProgressRepository = (*progressRepository)(nil)

func NewProgressRepository(db *mongo.Database) project.ProgressRepository {
	return &progressRepository{coll: db.Collection(progressCollection)}
}

func (repo *progressRepository) CreateProgressUpdate(ctx context.Context, pu project.ProgressUpdate) (project.ProgressUpdate, error) {
	if _, err := repo.coll.InsertOne(ctx, progressDoc(pu)); err != nil {
		return project.ProgressUpdate{}, errors.Wrap(err, "inserting progress update")
	}
	return pu, nil
}

func (repo *progressRepository) QueryProgressUpdates(ctx context.Context, projectID string) ([]project.ProgressUpdate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := repo.coll.Find(ctx, bson.M{"projectId": projectID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding progress updates")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []progressDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding progress updates")
	}
	updates := make([]project.ProgressUpdate, 0, len(docs))
	for _, d := range docs {
		pu := project.ProgressUpdate(d)
		pu.Date = pu.Date.UTC()
		updates = append(updates, pu)
	}
	return updates, nil
}
