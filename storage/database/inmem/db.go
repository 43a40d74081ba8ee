// Package inmemdb is a process-local storage engine. Tables keep rows in insertion order,
// which is the natural order of QueryUsers.
package inmemdb

import (
	"sync"

	"github.com/trezcool/mradi/core/project"
	"github.com/trezcool/mradi/core/user"
)

type (
	userTable struct {
		mutex sync.RWMutex
		rows  map[string]*user.User
		order []string
	}

	projectTable struct {
		mutex sync.RWMutex
		rows  map[string]*project.Project
		order []string
	}

	progressTable struct {
		mutex sync.RWMutex
		rows  []project.ProgressUpdate
	}

	DB struct {
		user     *userTable
		project  *projectTable
		progress *progressTable
	}
)

func NewDB() *DB {
	return &DB{
		user:     &userTable{rows: make(map[string]*user.User)},
		project:  &projectTable{rows: make(map[string]*project.Project)},
		progress: &progressTable{},
	}
}

// Close is a no-op.
func (db *DB) Close() error { return nil }
