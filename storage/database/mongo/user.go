package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/mradi/core/user"
)

type userDoc struct {
	ID           string     `bson:"_id"`
	Email        string     `bson:"email"`
	PasswordHash []byte     `bson:"passwordHash"`
	Role         string     `bson:"role"`
	Name         string     `bson:"name"`
	University   string     `bson:"university,omitempty"`
	RollNumber   string     `bson:"rollNumber,omitempty"`
	Semester     int        `bson:"semester,omitempty"`
	FacultyID    string     `bson:"facultyId,omitempty"`
	IsActive     bool       `bson:"isActive"`
	CreatedAt    time.Time  `bson:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt"`
	LastLogin    *time.Time `bson:"lastLogin,omitempty"`
}

func toUserDoc(u user.User) userDoc {
	return userDoc(u)
}

func (d userDoc) user() user.User {
	u := user.User(d)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	if u.LastLogin != nil {
		ll := u.LastLogin.UTC()
		u.LastLogin = &ll
	}
	return u
}

type userRepository struct {
	coll *mongo.Collection
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *mongo.Database) user.Repository {
	return &userRepository{coll: db.Collection(usersCollection)}
}

func userFilter(filter user.QueryFilter) bson.M {
	f := bson.M{}
	if filter.Role != "" {
		f["role"] = filter.Role
	}
	if filter.FacultyID != "" {
		f["facultyId"] = filter.FacultyID
	}
	if filter.IsActive != nil {
		f["isActive"] = *filter.IsActive
	}
	return f
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if _, err := repo.coll.InsertOne(ctx, toUserDoc(usr)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	f := bson.M{}
	if filter.ID != "" {
		f["_id"] = filter.ID
	}
	if filter.Email != "" {
		f["email"] = filter.Email
	}
	if len(f) == 0 {
		return user.User{}, user.ErrNotFound
	}

	var doc userDoc
	if err := repo.coll.FindOne(ctx, f).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user")
	}
	return doc.user(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	opts := options.Find()
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cursor, err := repo.coll.Find(ctx, userFilter(filter), opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding users")
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []userDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding users")
	}
	users := make([]user.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.user())
	}
	return users, nil
}

func (repo *userRepository) CountUsers(ctx context.Context, filter user.QueryFilter) (int, error) {
	n, err := repo.coll.CountDocuments(ctx, userFilter(filter))
	if err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return int(n), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": usr.ID}, toUserDoc(usr))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "replacing user")
	}
	if res.MatchedCount == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}
