package project_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mradi/core"
	"github.com/trezcool/mradi/core/evaluation"
	"github.com/trezcool/mradi/core/project"
	"github.com/trezcool/mradi/core/user"
	emailsvc "github.com/trezcool/mradi/services/email"
	inmemdb "github.com/trezcool/mradi/storage/database/inmem"
	"github.com/trezcool/mradi/testutil"
)

type fixture struct {
	svc      *project.Service
	repo     project.Repository
	usrRepo  user.Repository
	faculty  user.User
	other    user.User // unassigned faculty
	student  user.User
	student2 user.User
	admin    user.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	testutil.ParseTemplates(conf, logger)
	emailsvc.ResetSentMessages()

	db := inmemdb.NewDB()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	validate := testutil.NewValidator()
	usrRepo := inmemdb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc, validate, conf)
	repo := inmemdb.NewProjectRepository(db)

	f := &fixture{
		svc:     project.NewService(repo, inmemdb.NewProgressRepository(db), usrSvc, mailSvc, validate, logger),
		repo:    repo,
		usrRepo: usrRepo,
	}
	f.faculty = testutil.CreateFaculty(t, usrRepo, "Dr. Achieng", "achieng@uni.ke")
	f.other = testutil.CreateFaculty(t, usrRepo, "Dr. Mwangi", "mwangi@uni.ke")
	f.student = testutil.CreateStudent(t, usrRepo, "Kevin Ouma", "kevin@uni.ke", f.faculty)
	f.student2 = testutil.CreateStudent(t, usrRepo, "Amina Hassan", "amina@uni.ke", f.other)
	f.admin = testutil.CreateAdmin(t, usrRepo, "Registrar", "admin@uni.ke")
	return f
}

func mockNow(t *testing.T, tm time.Time) {
	t.Helper()
	orig := project.NowFunc
	project.NowFunc = func() time.Time { return tm }
	t.Cleanup(func() { project.NowFunc = orig })
}

func newProject(name string) project.NewProject {
	return project.NewProject{
		Name:                   name,
		Description:            "Tracks library loans",
		TechStack:              "Go, React",
		RealLifeApplication:    "Used by the campus library",
		ExpectedCompletionDate: "2026-12-01",
	}
}

func fullScores() map[string]float64 {
	return map[string]float64{
		evaluation.CodeQuality:   20,
		evaluation.Functionality: 25,
		evaluation.UserInterface: 15,
		evaluation.Documentation: 12,
		evaluation.Innovation:    10,
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestService_Lifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	studSess, facSess := f.student.Session(), f.faculty.Session()

	p, err := f.svc.Create(ctx, studSess, newProject("  Library Tracker "))
	require.NoError(t, err)
	assert.Equal(t, "Library Tracker", p.Name)
	assert.Equal(t, project.StatusPending, p.Status)
	assert.Equal(t, 0, p.Progress)
	assert.Equal(t, f.student.ID, p.StudentID)
	assert.Equal(t, f.faculty.ID, p.FacultyID)
	assert.Empty(t, p.Feedback)
	assert.Equal(t, 1, p.Version)

	p, err = f.svc.UpdateStatus(ctx, facSess, p.ID, project.StatusUpdate{Status: "Approved", FeedbackMessage: "looks good"})
	require.NoError(t, err)
	assert.Equal(t, project.StatusApproved, p.Status)
	require.Len(t, p.Feedback, 1)
	assert.Equal(t, project.ActionApprove, p.Feedback[0].Action)
	assert.Equal(t, "looks good", p.Feedback[0].Message)
	assert.Equal(t, f.faculty.ID, p.Feedback[0].FacultyID)
	assert.Equal(t, f.faculty.Name, p.Feedback[0].FacultyName)

	msg, ok := emailsvc.LastSentMessage()
	require.True(t, ok)
	assert.Equal(t, f.student.Email, msg.To[0].Address)
	assert.Equal(t, "project_status", msg.TemplateName)
	assert.Contains(t, msg.TextContent, "looks good")

	p, err = f.svc.UpdateProgress(ctx, studSess, p.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Progress)

	p, err = f.svc.SubmitEvaluation(ctx, facSess, p.ID, project.NewEvaluation{
		CriteriaScores:  fullScores(),
		Comments:        "Solid work",
		Recommendations: "Add tests",
	})
	require.NoError(t, err)
	assert.Equal(t, project.StatusEvaluated, p.Status)
	require.NotNil(t, p.Score)
	assert.Equal(t, 82, *p.Score)
	assert.Equal(t, "A", p.Grade)
	require.NotNil(t, p.Evaluation)
	assert.Equal(t, 82, p.Evaluation.TotalScore)
	assert.Equal(t, "Solid work", p.Evaluation.Comments)
	assert.Equal(t, "Add tests", p.Recommendations)

	msg, ok = emailsvc.LastSentMessage()
	require.True(t, ok)
	assert.Equal(t, "project_evaluated", msg.TemplateName)

	got, err := f.svc.Get(ctx, studSess, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestService_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		sess    core.Session
		np      project.NewProject
		wantErr error
	}{
		{name: "faculty", sess: f.faculty.Session(), np: newProject("P"), wantErr: project.ErrNotStudent},
		{name: "admin", sess: f.admin.Session(), np: newProject("P"), wantErr: project.ErrNotStudent},
		{name: "anonymous", sess: core.Session{}, np: newProject("P"), wantErr: project.ErrNotStudent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.sess, tt.np)
			assert.Equal(t, tt.wantErr, err)
		})
	}

	t.Run("blank name", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.student.Session(), newProject("   "))
		assert.IsType(t, validator.ValidationErrors{}, err)
	})

	t.Run("bad date", func(t *testing.T) {
		np := newProject("P")
		np.ExpectedCompletionDate = "01/12/2026"
		_, err := f.svc.Create(ctx, f.student.Session(), np)
		assert.Error(t, err)
	})

	t.Run("no date", func(t *testing.T) {
		np := newProject("P")
		np.ExpectedCompletionDate = ""
		p, err := f.svc.Create(ctx, f.student.Session(), np)
		require.NoError(t, err)
		assert.Empty(t, p.ExpectedCompletionDate)
	})
}

func TestService_UpdateStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("unassigned faculty", func(t *testing.T) {
		p := testutil.CreateProject(t, f.repo, f.student, "P1", project.StatusPending, 0)
		_, err := f.svc.UpdateStatus(ctx, f.other.Session(), p.ID, project.StatusUpdate{Status: project.StatusApproved})
		assert.True(t, core.IsAuthorization(err), "got %v", err)

		stored, err := f.repo.GetProject(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p, stored)
	})

	t.Run("owner cannot change status", func(t *testing.T) {
		p := testutil.CreateProject(t, f.repo, f.student, "P2", project.StatusPending, 0)
		_, err := f.svc.UpdateStatus(ctx, f.student.Session(), p.ID, project.StatusUpdate{Status: project.StatusApproved})
		assert.Equal(t, project.ErrNotAssigned, err)
	})

	t.Run("unknown project", func(t *testing.T) {
		_, err := f.svc.UpdateStatus(ctx, f.faculty.Session(), "nope", project.StatusUpdate{Status: project.StatusApproved})
		assert.Equal(t, project.ErrNotFound, err)
	})

	tests := []struct {
		from, to string
		wantOK   bool
	}{
		{project.StatusPending, project.StatusInReview, true},
		{project.StatusPending, project.StatusApproved, true},
		{project.StatusPending, project.StatusRejected, true},
		{project.StatusInReview, project.StatusApproved, true},
		{project.StatusRejected, project.StatusInReview, true},
		{project.StatusApproved, project.StatusRejected, true},
		{project.StatusApproved, project.StatusApproved, false},
		{project.StatusApproved, project.StatusPending, false},
		{project.StatusInReview, project.StatusPending, false},
		{project.StatusPending, project.StatusEvaluated, false},
		{project.StatusEvaluated, project.StatusRejected, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+" to "+tt.to, func(t *testing.T) {
			p := testutil.CreateProject(t, f.repo, f.student, "T", tt.from, 50)
			got, err := f.svc.UpdateStatus(ctx, f.faculty.Session(), p.ID, project.StatusUpdate{Status: tt.to})
			if tt.wantOK {
				require.NoError(t, err)
				assert.Equal(t, tt.to, got.Status)
				assert.Equal(t, p.Version+1, got.Version)
				require.Len(t, got.Feedback, 1)
				assert.Equal(t, project.ActionFor(tt.to), got.Feedback[0].Action)
			} else {
				assert.True(t, core.IsValidation(err), "got %v", err)
			}
		})
	}

	t.Run("invalid status", func(t *testing.T) {
		p := testutil.CreateProject(t, f.repo, f.student, "P3", project.StatusPending, 0)
		_, err := f.svc.UpdateStatus(ctx, f.faculty.Session(), p.ID, project.StatusUpdate{Status: "done"})
		assert.Error(t, err)
	})
}

func TestService_UpdateProgress(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := testutil.CreateProject(t, f.repo, f.student, "P", project.StatusApproved, 10)

	tests := []struct {
		progress int
		wantErr  bool
	}{
		{0, false},
		{100, false},
		{55, false},
		{-1, true},
		{101, true},
	}
	for _, tt := range tests {
		got, err := f.svc.UpdateProgress(ctx, f.student.Session(), p.ID, tt.progress)
		if tt.wantErr {
			assert.True(t, core.IsValidation(err), "progress %d: got %v", tt.progress, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.progress, got.Progress)
	}

	t.Run("not owner", func(t *testing.T) {
		_, err := f.svc.UpdateProgress(ctx, f.faculty.Session(), p.ID, 40)
		assert.Equal(t, project.ErrNotOwner, err)

		_, err = f.svc.UpdateProgress(ctx, f.student2.Session(), p.ID, 40)
		assert.Equal(t, project.ErrNoAccess, err)
	})

	t.Run("evaluated", func(t *testing.T) {
		done := testutil.CreateProject(t, f.repo, f.student, "Done", project.StatusEvaluated, 100)
		_, err := f.svc.UpdateProgress(ctx, f.student.Session(), done.ID, 90)
		assert.Equal(t, project.ErrAlreadyEvaluated, err)
	})
}

func TestService_Update(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := testutil.CreateProject(t, f.repo, f.student, "P", project.StatusPending, 0)

	t.Run("empty", func(t *testing.T) {
		_, err := f.svc.Update(ctx, f.student.Session(), p.ID, project.UpdateProject{})
		assert.Equal(t, project.ErrEmptyUpdate, err)
	})

	t.Run("student edits content", func(t *testing.T) {
		got, err := f.svc.Update(ctx, f.student.Session(), p.ID, project.UpdateProject{
			Name:     strPtr(" Renamed "),
			Progress: intPtr(30),
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		assert.Equal(t, 30, got.Progress)
		assert.Equal(t, p.Description, got.Description)
	})

	t.Run("student sets status", func(t *testing.T) {
		_, err := f.svc.Update(ctx, f.student.Session(), p.ID, project.UpdateProject{Status: strPtr(project.StatusApproved)})
		assert.Equal(t, project.ErrNotAssigned, err)
	})

	t.Run("faculty edits content", func(t *testing.T) {
		_, err := f.svc.Update(ctx, f.faculty.Session(), p.ID, project.UpdateProject{Name: strPtr("Mine")})
		assert.Equal(t, project.ErrNotOwner, err)
	})

	t.Run("feedback without status", func(t *testing.T) {
		_, err := f.svc.Update(ctx, f.faculty.Session(), p.ID, project.UpdateProject{FeedbackMessage: strPtr("hmm")})
		assert.True(t, core.IsValidation(err), "got %v", err)
	})

	t.Run("faculty sets status", func(t *testing.T) {
		got, err := f.svc.Update(ctx, f.faculty.Session(), p.ID, project.UpdateProject{
			Status:          strPtr("rejected"),
			FeedbackMessage: strPtr("scope is too wide"),
			Comments:        strPtr("narrow it down"),
		})
		require.NoError(t, err)
		assert.Equal(t, project.StatusRejected, got.Status)
		assert.Equal(t, "narrow it down", got.Comments)
		require.Len(t, got.Feedback, 1)
		assert.Equal(t, project.ActionReject, got.Feedback[0].Action)
		assert.Equal(t, "scope is too wide", got.Feedback[0].Message)
	})

	t.Run("stranger", func(t *testing.T) {
		_, err := f.svc.Update(ctx, f.student2.Session(), p.ID, project.UpdateProject{Name: strPtr("x")})
		assert.Equal(t, project.ErrNoAccess, err)
	})
}

func TestService_SubmitEvaluation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	facSess := f.faculty.Session()

	t.Run("not ready", func(t *testing.T) {
		for _, p := range []project.Project{
			testutil.CreateProject(t, f.repo, f.student, "Half", project.StatusApproved, 99),
			testutil.CreateProject(t, f.repo, f.student, "Pending", project.StatusPending, 100),
			testutil.CreateProject(t, f.repo, f.student, "Rejected", project.StatusRejected, 100),
		} {
			_, err := f.svc.SubmitEvaluation(ctx, facSess, p.ID, project.NewEvaluation{CriteriaScores: fullScores()})
			assert.Equal(t, project.ErrNotReadyForReview, err, p.Name)
		}
	})

	p := testutil.CreateProject(t, f.repo, f.student, "Ready", project.StatusApproved, 100)

	t.Run("student", func(t *testing.T) {
		_, err := f.svc.SubmitEvaluation(ctx, f.student.Session(), p.ID, project.NewEvaluation{CriteriaScores: fullScores()})
		assert.Equal(t, project.ErrNotAssigned, err)
	})

	t.Run("unknown criteria", func(t *testing.T) {
		scores := fullScores()
		scores["style"] = 5
		_, err := f.svc.SubmitEvaluation(ctx, facSess, p.ID, project.NewEvaluation{CriteriaScores: scores})
		require.Error(t, err)
		assert.True(t, core.IsValidation(err))
		assert.Contains(t, err.Error(), "style")
	})

	t.Run("total mismatch", func(t *testing.T) {
		_, err := f.svc.SubmitEvaluation(ctx, facSess, p.ID, project.NewEvaluation{CriteriaScores: fullScores(), TotalScore: intPtr(90)})
		assert.True(t, core.IsValidation(err), "got %v", err)
	})

	t.Run("clamped and partial", func(t *testing.T) {
		got, err := f.svc.SubmitEvaluation(ctx, facSess, p.ID, project.NewEvaluation{
			CriteriaScores: map[string]float64{evaluation.CodeQuality: 40, evaluation.Innovation: -3},
			TotalScore:     intPtr(25),
		})
		require.NoError(t, err)
		assert.Equal(t, 25, *got.Score)
		assert.Equal(t, "F", got.Grade)
		assert.Equal(t, float64(25), got.Evaluation.CriteriaScores[evaluation.CodeQuality])
		assert.Equal(t, float64(0), got.Evaluation.CriteriaScores[evaluation.Innovation])
		assert.Equal(t, float64(0), got.Evaluation.CriteriaScores[evaluation.Documentation])
	})

	t.Run("overwrite", func(t *testing.T) {
		first := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		mockNow(t, first)
		_, err := f.svc.SubmitEvaluation(ctx, facSess, p.ID, project.NewEvaluation{CriteriaScores: fullScores()})
		require.NoError(t, err)

		second := first.Add(time.Hour)
		mockNow(t, second)
		got, err := f.svc.SubmitEvaluation(ctx, facSess, p.ID, project.NewEvaluation{CriteriaScores: fullScores(), Grade: "A+"})
		require.NoError(t, err)
		assert.Equal(t, project.StatusEvaluated, got.Status)
		assert.Equal(t, 82, *got.Score)
		assert.Equal(t, "A+", got.Grade)
		assert.Equal(t, second, got.Evaluation.EvaluatedAt)
	})
}

func TestService_Query(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	create := func(sess core.Session, name string, offset time.Duration) project.Project {
		mockNow(t, base.Add(offset))
		p, err := f.svc.Create(ctx, sess, newProject(name))
		require.NoError(t, err)
		return p
	}
	a := create(f.student.Session(), "Alpha", 0)
	b := create(f.student.Session(), "Bravo", time.Minute)
	c := create(f.student2.Session(), "Charlie", 2*time.Minute)
	_, err := f.svc.UpdateStatus(ctx, f.faculty.Session(), a.ID, project.StatusUpdate{Status: project.StatusApproved})
	require.NoError(t, err)

	names := func(projects []project.Project) []string {
		res := make([]string, len(projects))
		for i, p := range projects {
			res[i] = p.Name
		}
		return res
	}

	tests := []struct {
		name     string
		sess     core.Session
		filter   project.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "student sees own, newest first", sess: f.student.Session(), want: []string{b.Name, a.Name}},
		{name: "faculty sees assigned", sess: f.other.Session(), want: []string{c.Name}},
		{name: "admin sees all", sess: f.admin.Session(), want: []string{c.Name, b.Name, a.Name}},
		{
			name:   "status filter",
			sess:   f.faculty.Session(),
			filter: project.QueryFilter{Status: " APPROVED "},
			want:   []string{a.Name},
		},
		{
			name:   "owner filter ignored",
			sess:   f.student.Session(),
			filter: project.QueryFilter{StudentID: f.student2.ID},
			want:   []string{b.Name, a.Name},
		},
		{
			name:     "ordering",
			sess:     f.admin.Session(),
			ordering: []core.DBOrdering{{Field: "name", Ascending: true}},
			want:     []string{a.Name, b.Name, c.Name},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Query(ctx, tt.sess, tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}

	t.Run("invalid ordering", func(t *testing.T) {
		_, err := f.svc.Query(ctx, f.admin.Session(), project.QueryFilter{}, []core.DBOrdering{{Field: "password"}})
		assert.True(t, core.IsValidation(err), "got %v", err)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := f.svc.Query(ctx, f.admin.Session(), project.QueryFilter{Status: "done"}, nil)
		assert.True(t, core.IsValidation(err), "got %v", err)
	})

	t.Run("student projects", func(t *testing.T) {
		got, err := f.svc.QueryStudentProjects(ctx, f.student2.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{c.Name}, names(got))

		_, err = f.svc.QueryStudentProjects(ctx, f.faculty.ID)
		assert.True(t, core.IsNotFound(err), "got %v", err)
	})
}

func TestService_Feedback(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := testutil.CreateProject(t, f.repo, f.student, "P", project.StatusPending, 0)

	_, err := f.svc.UpdateStatus(ctx, f.faculty.Session(), p.ID, project.StatusUpdate{Status: project.StatusInReview, FeedbackMessage: "reviewing"})
	require.NoError(t, err)
	evt, err := f.svc.AddFeedback(ctx, f.faculty.Session(), p.ID, project.NewFeedback{Message: " add a diagram "})
	require.NoError(t, err)
	assert.Equal(t, project.ActionComment, evt.Action)
	assert.Equal(t, "add a diagram", evt.Message)

	t.Run("student cannot comment", func(t *testing.T) {
		_, err := f.svc.AddFeedback(ctx, f.student.Session(), p.ID, project.NewFeedback{Message: "hi"})
		assert.Equal(t, project.ErrNotAssigned, err)
	})

	t.Run("blank message", func(t *testing.T) {
		_, err := f.svc.AddFeedback(ctx, f.faculty.Session(), p.ID, project.NewFeedback{Message: "  "})
		assert.Error(t, err)
	})

	t.Run("log is chronological", func(t *testing.T) {
		events, err := f.svc.QueryFeedback(ctx, f.student.Session(), p.ID)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, project.ActionReview, events[0].Action)
		assert.Equal(t, evt, events[1])
	})

	t.Run("stranger", func(t *testing.T) {
		_, err := f.svc.QueryFeedback(ctx, f.other.Session(), p.ID)
		assert.Equal(t, project.ErrNoAccess, err)
	})
}

func TestService_ProgressUpdates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := testutil.CreateProject(t, f.repo, f.student, "P", project.StatusApproved, 0)
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	mockNow(t, base)
	first, err := f.svc.AddProgressUpdate(ctx, f.student.Session(), p.ID, project.NewProgressUpdate{UpdateText: "set up repo"})
	require.NoError(t, err)
	assert.Nil(t, first.Completion)

	mockNow(t, base.Add(time.Hour))
	second, err := f.svc.AddProgressUpdate(ctx, f.student.Session(), p.ID, project.NewProgressUpdate{UpdateText: "API done", Completion: intPtr(60)})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.faculty.Session(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, got.Progress)

	updates, err := f.svc.QueryProgressUpdates(ctx, f.faculty.Session(), p.ID)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, second.ID, updates[0].ID)
	assert.Equal(t, first.ID, updates[1].ID)

	t.Run("faculty cannot post", func(t *testing.T) {
		_, err := f.svc.AddProgressUpdate(ctx, f.faculty.Session(), p.ID, project.NewProgressUpdate{UpdateText: "x"})
		assert.Equal(t, project.ErrNotOwner, err)
	})

	t.Run("completion out of range", func(t *testing.T) {
		_, err := f.svc.AddProgressUpdate(ctx, f.student.Session(), p.ID, project.NewProgressUpdate{UpdateText: "x", Completion: intPtr(120)})
		assert.Error(t, err)

		got, err := f.svc.Get(ctx, f.student.Session(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, 60, got.Progress)
	})
}

// racingRepo lets a concurrent writer update a project right after the service loaded it.
type racingRepo struct {
	project.Repository
	once sync.Once
	race func(p project.Project)
}

func (repo *racingRepo) GetProject(ctx context.Context, id string) (project.Project, error) {
	p, err := repo.Repository.GetProject(ctx, id)
	if err == nil {
		repo.once.Do(func() { repo.race(p) })
	}
	return p, err
}

func TestService_VersionConflict(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := testutil.CreateProject(t, f.repo, f.student, "P", project.StatusPending, 0)

	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	repo := &racingRepo{Repository: f.repo, race: func(p project.Project) {
		p.Name = "changed elsewhere"
		_, err := f.repo.UpdateProject(ctx, p)
		require.NoError(t, err)
	}}
	svc := project.NewService(
		repo, inmemdb.NewProgressRepository(inmemdb.NewDB()), user.NewService(f.usrRepo, nil, testutil.NewValidator(), conf),
		emailsvc.NewConsoleServiceMock(conf, logger), testutil.NewValidator(), logger,
	)

	_, err := svc.UpdateStatus(ctx, f.faculty.Session(), p.ID, project.StatusUpdate{Status: project.StatusApproved})
	assert.Equal(t, project.ErrVersionConflict, err)
	assert.True(t, core.IsConflict(err))

	stored, err := f.repo.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed elsewhere", stored.Name)
	assert.Equal(t, project.StatusPending, stored.Status)
	assert.Equal(t, 2, stored.Version)

	// a retry on the fresh version succeeds
	got, err := svc.UpdateStatus(ctx, f.faculty.Session(), p.ID, project.StatusUpdate{Status: project.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)
}
