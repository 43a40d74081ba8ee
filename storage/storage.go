// Package storage opens the repositories selected by the configured database engine.
package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/mradi/core"
	"github.com/trezcool/mradi/core/project"
	"github.com/trezcool/mradi/core/user"
	rediscache "github.com/trezcool/mradi/storage/cache/redis"
	"github.com/trezcool/mradi/storage/database"
	inmemdb "github.com/trezcool/mradi/storage/database/inmem"
	mongorepos "github.com/trezcool/mradi/storage/database/mongo"
	sqlxrepos "github.com/trezcool/mradi/storage/database/sqlx"
)

type Repositories struct {
	Users    user.Repository
	Projects project.Repository
	Progress project.ProgressRepository
	Tokens   core.TokenBlacklist

	closers []func() error
}

// Close releases every connection opened by Open, returning the first error.
func (r *Repositories) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil
	return first
}

func (r *Repositories) onClose(fn func() error) {
	r.closers = append(r.closers, fn)
}

// Open connects to the configured engine. Revoked tokens go to redis when an address is
// configured, in memory otherwise.
func Open(ctx context.Context, conf *core.Config) (*Repositories, error) {
	repos := new(Repositories)

	switch conf.Database.Engine {
	case core.EngineMemory, "":
		db := inmemdb.NewDB()
		repos.onClose(db.Close)
		repos.Users = inmemdb.NewUserRepository(db)
		repos.Projects = inmemdb.NewProjectRepository(db)
		repos.Progress = inmemdb.NewProgressRepository(db)

	case core.EnginePostgres:
		db, err := database.Open(conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening postgres")
		}
		repos.onClose(db.Close)
		repos.Users = sqlxrepos.NewUserRepository(db)
		repos.Projects = sqlxrepos.NewProjectRepository(db)
		repos.Progress = sqlxrepos.NewProgressRepository(db)

	case core.EngineMongo:
		client, db, err := mongorepos.Open(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening mongo")
		}
		repos.onClose(func() error { return client.Disconnect(context.Background()) })
		if err = mongorepos.EnsureIndexes(ctx, db); err != nil {
			_ = repos.Close()
			return nil, errors.Wrap(err, "creating mongo indexes")
		}
		repos.Users = mongorepos.NewUserRepository(db)
		repos.Projects = mongorepos.NewProjectRepository(db)
		repos.Progress = mongorepos.NewProgressRepository(db)

	default:
		return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}

	if conf.Redis.Address != "" {
		client, err := rediscache.Open(ctx, conf.Redis)
		if err != nil {
			_ = repos.Close()
			return nil, errors.Wrap(err, "opening redis")
		}
		repos.onClose(client.Close)
		repos.Tokens = rediscache.NewTokenBlacklist(client)
	} else {
		repos.Tokens = inmemdb.NewTokenBlacklist()
	}
	return repos, nil
}
