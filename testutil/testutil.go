// Package testutil builds the fixtures shared by the package tests.
package testutil

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/mradi/core"
	"github.com/trezcool/mradi/core/project"
	"github.com/trezcool/mradi/core/user"
	appfs "github.com/trezcool/mradi/fs"
	logsvc "github.com/trezcool/mradi/services/logger"
)

const DefaultPassword = "Sup3rS3cr3t!"

// NewConfig returns the configuration used by tests: in-memory storage, strict templates.
func NewConfig() *core.Config {
	_ = os.Setenv("ENV", "TEST")
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Database.Engine = core.EngineMemory
	conf.Redis.Address = ""
	conf.SecretKey = "test-secret-key"
	conf.FrontendBaseURL = "http://localhost:3000"
	conf.Server.DisableReqLogs = true
	return conf
}

func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(false)
	return logger
}

// NewValidation returns a validator with every domain validator registered, and the
// translator holding their messages.
func NewValidation() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	project.InitValidators(validate, translator)
	return validate, translator
}

func NewValidator() *validator.Validate {
	validate, _ := NewValidation()
	return validate
}

func ParseTemplates(conf *core.Config, logger core.Logger) {
	core.ParseEmailTemplates(appfs.EmailTemplates, appfs.EmailTemplatesDir, conf, logger)
}

func createUser(t *testing.T, repo user.Repository, usr user.User, pwd string) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	usr.ID = newID(t)
	usr.IsActive = true
	usr.CreatedAt = tstamp
	usr.UpdatedAt = tstamp
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateFaculty(t *testing.T, repo user.Repository, name, email string) user.User {
	t.Helper()
	return createUser(t, repo, user.User{
		Email:      email,
		Role:       user.RoleFaculty,
		Name:       name,
		University: "University of Nairobi",
	}, DefaultPassword)
}

func CreateStudent(t *testing.T, repo user.Repository, name, email string, faculty user.User) user.User {
	t.Helper()
	return createUser(t, repo, user.User{
		Email:      email,
		Role:       user.RoleStudent,
		Name:       name,
		RollNumber: "R-" + email,
		Semester:   5,
		FacultyID:  faculty.ID,
	}, DefaultPassword)
}

func CreateAdmin(t *testing.T, repo user.Repository, name, email string) user.User {
	t.Helper()
	return createUser(t, repo, user.User{Email: email, Role: user.RoleAdmin, Name: name}, DefaultPassword)
}

// CreateProject stores a Project of student directly, with the given status and progress.
func CreateProject(t *testing.T, repo project.Repository, student user.User, name, status string, progress int) project.Project {
	t.Helper()
	tstamp := time.Now().UTC()
	p, err := repo.CreateProject(context.Background(), project.Project{
		ID:                  newID(t),
		StudentID:           student.ID,
		FacultyID:           student.FacultyID,
		Name:                name,
		Description:         name + " description",
		TechStack:           "Go, PostgreSQL",
		RealLifeApplication: "Campus tooling",
		Status:              status,
		Progress:            progress,
		Feedback:            []project.FeedbackEvent{},
		Version:             1,
		CreatedAt:           tstamp,
		UpdatedAt:           tstamp,
	})
	if err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	return p
}

func newID(t *testing.T) string {
	t.Helper()
	id, err := uuid.NewRandom()
	if err != nil {
		t.Fatalf("uuid.NewRandom() failed: %v", err)
	}
	return id.String()
}
