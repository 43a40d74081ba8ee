package project

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/mradi/core"
	"github.com/trezcool/mradi/core/evaluation"
	"github.com/trezcool/mradi/core/user"
)

var (
	NowFunc = time.Now // mockable

	// orderable fields
	orderingFields = map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
		"progress":   true,
	}
	defaultOrdering = core.DBOrdering{Field: "created_at", Ascending: false}
)

type (
	Repository interface {
		CreateProject(ctx context.Context, p Project) (Project, error)
		// GetProject fails with ErrNotFound.
		GetProject(ctx context.Context, id string) (Project, error)
		QueryProjects(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Project, error)
		// UpdateProject stores p only if the stored version still equals p.Version, and
		// increments it. It fails with ErrVersionConflict otherwise.
		UpdateProject(ctx context.Context, p Project) (Project, error)
	}

	ProgressRepository interface {
		CreateProgressUpdate(ctx context.Context, pu ProgressUpdate) (ProgressUpdate, error)
		// QueryProgressUpdates lists the updates of a project, newest first.
		QueryProgressUpdates(ctx context.Context, projectID string) ([]ProgressUpdate, error)
	}

	// UserGetter resolves the users a project refers to.
	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
		GetStudent(ctx context.Context, id string) (user.User, error)
		FirstFaculty(ctx context.Context) (user.User, error)
	}

	Service struct {
		repo         Repository
		progressRepo ProgressRepository
		users        UserGetter
		mailSvc      core.EmailService
		validate     *validator.Validate
		logger       core.Logger
	}
)

func NewService(
	repo Repository,
	progressRepo ProgressRepository,
	users UserGetter,
	mailSvc core.EmailService,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		repo:         repo,
		progressRepo: progressRepo,
		users:        users,
		mailSvc:      mailSvc,
		validate:     validate,
		logger:       logger,
	}
}

func now() time.Time { return NowFunc().UTC() }

// Create creates a pending Project owned by the student calling it.
func (svc *Service) Create(ctx context.Context, sess core.Session, np NewProject) (Project, error) {
	if sess.Role != user.RoleStudent {
		return Project{}, ErrNotStudent
	}
	if err := np.Validate(svc.validate); err != nil {
		return Project{}, err
	}

	student, err := svc.users.GetStudent(ctx, sess.UserID)
	if err != nil {
		return Project{}, errors.Wrap(err, "finding student")
	}
	facultyID := student.FacultyID
	if facultyID == "" {
		fac, err := svc.users.FirstFaculty(ctx)
		if err != nil {
			if core.IsNotFound(err) {
				return Project{}, user.ErrNoFacultyAvailable
			}
			return Project{}, errors.Wrap(err, "finding faculty")
		}
		facultyID = fac.ID
	}

	t := now()
	p := Project{
		ID:                     uuid.NewString(),
		StudentID:              student.ID,
		FacultyID:              facultyID,
		Name:                   np.Name,
		Description:            np.Description,
		TechStack:              np.TechStack,
		RealLifeApplication:    np.RealLifeApplication,
		ExpectedCompletionDate: np.ExpectedCompletionDate,
		Status:                 StatusPending,
		Progress:               MinProgress,
		Feedback:               []FeedbackEvent{},
		Version:                1,
		CreatedAt:              t,
		UpdatedAt:              t,
	}
	p, err = svc.repo.CreateProject(ctx, p)
	return p, errors.Wrap(err, "creating project")
}

// Get returns a Project visible to the caller: its owner, its assigned faculty or an admin.
func (svc *Service) Get(ctx context.Context, sess core.Session, id string) (Project, error) {
	p, err := svc.repo.GetProject(ctx, core.CleanString(id))
	if err != nil {
		return Project{}, err
	}
	if !canView(sess, p) {
		return Project{}, ErrNoAccess
	}
	return p, nil
}

func parseOrdering(ordering []core.DBOrdering) ([]core.DBOrdering, error) {
	if len(ordering) == 0 {
		return []core.DBOrdering{defaultOrdering}, nil
	}
	for _, ord := range ordering {
		if !orderingFields[ord.Field] {
			return nil, core.NewFieldError("ordering", fmt.Sprintf("cannot order by %q", ord.Field))
		}
	}
	return ordering, nil
}

// Query lists the projects of the caller: own projects for a student, assigned projects for a
// faculty and every project for an admin.
func (svc *Service) Query(ctx context.Context, sess core.Session, filter QueryFilter, ordering []core.DBOrdering) ([]Project, error) {
	filter.Clean()
	filter.StudentID, filter.FacultyID = "", ""
	switch sess.Role {
	case user.RoleStudent:
		filter.StudentID = sess.UserID
	case user.RoleFaculty:
		filter.FacultyID = sess.UserID
	case user.RoleAdmin:
	default:
		return nil, ErrNoAccess
	}

	if filter.Status != "" && !IsValidStatus(filter.Status) {
		return nil, core.NewFieldError("status", statusText)
	}
	ordering, err := parseOrdering(ordering)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryProjects(ctx, filter, ordering...)
}

// QueryStudentProjects lists the projects of a student for the public directory.
func (svc *Service) QueryStudentProjects(ctx context.Context, studentID string) ([]Project, error) {
	student, err := svc.users.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryProjects(ctx, QueryFilter{StudentID: student.ID}, defaultOrdering)
}

// UpdateStatus moves a Project to status on behalf of its assigned faculty and records the decision.
func (svc *Service) UpdateStatus(ctx context.Context, sess core.Session, id string, su StatusUpdate) (Project, error) {
	if err := su.Validate(svc.validate); err != nil {
		return Project{}, err
	}
	p, err := svc.Get(ctx, sess, id)
	if err != nil {
		return Project{}, err
	}
	if !isAssigned(sess, p) {
		return Project{}, ErrNotAssigned
	}
	if err = applyStatus(&p, sess, su.Status, su.FeedbackMessage); err != nil {
		return Project{}, err
	}
	if p, err = svc.save(ctx, p); err != nil {
		return Project{}, err
	}
	svc.notifyStatus(ctx, sess, p, su.FeedbackMessage)
	return p, nil
}

func applyStatus(p *Project, sess core.Session, status, message string) error {
	if err := checkTransition(p.Status, status); err != nil {
		return err
	}
	t := now()
	p.Status = status
	p.Feedback = append(p.Feedback, FeedbackEvent{
		ID:          uuid.NewString(),
		Action:      ActionFor(status),
		Message:     message,
		FacultyID:   sess.UserID,
		FacultyName: sess.Name,
		CreatedAt:   t,
	})
	return nil
}

func applyProgress(p *Project, progress int) error {
	if p.Status == StatusEvaluated {
		return ErrAlreadyEvaluated
	}
	if progress < MinProgress || progress > MaxProgress {
		return core.NewFieldError("progress", fmt.Sprintf("progress must be an integer between %d and %d", MinProgress, MaxProgress))
	}
	p.Progress = progress
	return nil
}

// UpdateProgress sets the completion percentage on behalf of the owning student.
func (svc *Service) UpdateProgress(ctx context.Context, sess core.Session, id string, progress int) (Project, error) {
	p, err := svc.Get(ctx, sess, id)
	if err != nil {
		return Project{}, err
	}
	if !isOwner(sess, p) {
		return Project{}, ErrNotOwner
	}
	if err = applyProgress(&p, progress); err != nil {
		return Project{}, err
	}
	return svc.save(ctx, p)
}

// Update applies a partial update. The owning student may edit the content and progress,
// the assigned faculty may set the status, comments and recommendations.
func (svc *Service) Update(ctx context.Context, sess core.Session, id string, up UpdateProject) (Project, error) {
	if up.IsEmpty() {
		return Project{}, ErrEmptyUpdate
	}
	if err := up.Validate(svc.validate); err != nil {
		return Project{}, err
	}
	p, err := svc.Get(ctx, sess, id)
	if err != nil {
		return Project{}, err
	}

	switch {
	case isOwner(sess, p):
		if up.hasFacultyFields() {
			return Project{}, ErrNotAssigned
		}
		if err = applyStudentUpdate(&p, up); err != nil {
			return Project{}, err
		}
	case isAssigned(sess, p):
		if up.hasStudentFields() {
			return Project{}, ErrNotOwner
		}
		if up.Status == nil && up.FeedbackMessage != nil {
			return Project{}, core.NewFieldError("feedbackMessage", "a feedback message requires a status")
		}
		if up.Status != nil {
			var msg string
			if up.FeedbackMessage != nil {
				msg = *up.FeedbackMessage
			}
			if err = applyStatus(&p, sess, *up.Status, msg); err != nil {
				return Project{}, err
			}
		}
		if up.Comments != nil {
			p.Comments = core.CleanString(*up.Comments)
		}
		if up.Recommendations != nil {
			p.Recommendations = core.CleanString(*up.Recommendations)
		}
	default:
		return Project{}, ErrNoAccess
	}

	if p, err = svc.save(ctx, p); err != nil {
		return Project{}, err
	}
	if up.Status != nil {
		var msg string
		if up.FeedbackMessage != nil {
			msg = *up.FeedbackMessage
		}
		svc.notifyStatus(ctx, sess, p, msg)
	}
	return p, nil
}

func applyStudentUpdate(p *Project, up UpdateProject) error {
	if p.Status == StatusEvaluated {
		return ErrAlreadyEvaluated
	}
	if up.Name != nil {
		p.Name = *up.Name
	}
	if up.Description != nil {
		p.Description = *up.Description
	}
	if up.TechStack != nil {
		p.TechStack = *up.TechStack
	}
	if up.RealLifeApplication != nil {
		p.RealLifeApplication = *up.RealLifeApplication
	}
	if up.ExpectedCompletionDate != nil {
		p.ExpectedCompletionDate = *up.ExpectedCompletionDate
	}
	if up.Progress != nil {
		return applyProgress(p, *up.Progress)
	}
	return nil
}

// SubmitEvaluation scores a completed Project with the rubric on behalf of its assigned faculty.
// Submitting again overwrites the previous evaluation.
func (svc *Service) SubmitEvaluation(ctx context.Context, sess core.Session, id string, ne NewEvaluation) (Project, error) {
	if err := ne.Validate(svc.validate); err != nil {
		return Project{}, err
	}
	p, err := svc.Get(ctx, sess, id)
	if err != nil {
		return Project{}, err
	}
	if !isAssigned(sess, p) {
		return Project{}, ErrNotAssigned
	}
	if !IsEvaluable(p) {
		return Project{}, ErrNotReadyForReview
	}

	res, err := evaluation.Score(ne.CriteriaScores)
	if err != nil {
		return Project{}, core.NewFieldError("criteriaScores", err.Error())
	}
	if ne.TotalScore != nil && *ne.TotalScore != res.TotalScore {
		return Project{}, core.NewFieldError(
			"totalScore", fmt.Sprintf("total score %d does not match the criteria scores (%d)", *ne.TotalScore, res.TotalScore),
		)
	}
	grade := res.Grade
	if ne.Grade != "" {
		grade = ne.Grade // faculty override
	}

	total := res.TotalScore
	p.Status = StatusEvaluated
	p.Evaluation = &Evaluation{
		CriteriaScores:  res.CriteriaScores,
		Comments:        ne.Comments,
		Recommendations: ne.Recommendations,
		TotalScore:      total,
		Grade:           grade,
		EvaluatedAt:     now(),
	}
	p.Score = &total
	p.Grade = grade
	p.Comments = ne.Comments
	p.Recommendations = ne.Recommendations

	if p, err = svc.save(ctx, p); err != nil {
		return Project{}, err
	}
	svc.notifyEvaluation(ctx, sess, p)
	return p, nil
}

// AddFeedback appends a comment from the assigned faculty to the feedback log.
func (svc *Service) AddFeedback(ctx context.Context, sess core.Session, id string, nf NewFeedback) (FeedbackEvent, error) {
	if err := nf.Validate(svc.validate); err != nil {
		return FeedbackEvent{}, err
	}
	p, err := svc.Get(ctx, sess, id)
	if err != nil {
		return FeedbackEvent{}, err
	}
	if !isAssigned(sess, p) {
		return FeedbackEvent{}, ErrNotAssigned
	}

	evt := FeedbackEvent{
		ID:          uuid.NewString(),
		Action:      ActionComment,
		Message:     nf.Message,
		FacultyID:   sess.UserID,
		FacultyName: sess.Name,
		CreatedAt:   now(),
	}
	p.Feedback = append(p.Feedback, evt)
	if _, err = svc.save(ctx, p); err != nil {
		return FeedbackEvent{}, err
	}
	return evt, nil
}

// QueryFeedback lists the feedback log of a Project, oldest first.
func (svc *Service) QueryFeedback(ctx context.Context, sess core.Session, id string) ([]FeedbackEvent, error) {
	p, err := svc.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if p.Feedback == nil {
		return []FeedbackEvent{}, nil
	}
	return p.Feedback, nil
}

// AddProgressUpdate records a progress note from the owning student. A completion snapshot
// also updates the Project progress.
func (svc *Service) AddProgressUpdate(ctx context.Context, sess core.Session, id string, npu NewProgressUpdate) (ProgressUpdate, error) {
	if err := npu.Validate(svc.validate); err != nil {
		return ProgressUpdate{}, err
	}
	p, err := svc.Get(ctx, sess, id)
	if err != nil {
		return ProgressUpdate{}, err
	}
	if !isOwner(sess, p) {
		return ProgressUpdate{}, ErrNotOwner
	}
	if npu.Completion != nil {
		if err = applyProgress(&p, *npu.Completion); err != nil {
			return ProgressUpdate{}, err
		}
		if _, err = svc.save(ctx, p); err != nil {
			return ProgressUpdate{}, err
		}
	}

	pu := ProgressUpdate{
		ID:         uuid.NewString(),
		ProjectID:  p.ID,
		StudentID:  sess.UserID,
		UpdateText: npu.UpdateText,
		Completion: npu.Completion,
		Date:       now(),
	}
	pu, err = svc.progressRepo.CreateProgressUpdate(ctx, pu)
	return pu, errors.Wrap(err, "creating progress update")
}

// QueryProgressUpdates lists the progress updates of a Project, newest first.
func (svc *Service) QueryProgressUpdates(ctx context.Context, sess core.Session, id string) ([]ProgressUpdate, error) {
	p, err := svc.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	return svc.progressRepo.QueryProgressUpdates(ctx, p.ID)
}

func (svc *Service) save(ctx context.Context, p Project) (Project, error) {
	p.UpdatedAt = now()
	p, err := svc.repo.UpdateProject(ctx, p)
	if err != nil {
		if core.IsConflict(err) {
			return Project{}, err
		}
		return Project{}, errors.Wrap(err, "updating project")
	}
	return p, nil
}

func (svc *Service) notifyStudent(ctx context.Context, sess core.Session, p Project, subject, tmpl string, data map[string]interface{}) {
	student, err := svc.users.GetByID(ctx, p.StudentID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("notifying student of project %s: %v", p.ID, err), err, sess)
		return
	}
	data["Name"] = student.Name
	data["FacultyName"] = sess.Name
	data["ProjectID"] = p.ID
	data["ProjectName"] = p.Name
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: data,
	})
}

func (svc *Service) notifyStatus(ctx context.Context, sess core.Session, p Project, message string) {
	subject := fmt.Sprintf("Your project %q is now %s", p.Name, p.Status)
	svc.notifyStudent(ctx, sess, p, subject, "project_status", map[string]interface{}{
		"Status":  p.Status,
		"Message": message,
	})
}

func (svc *Service) notifyEvaluation(ctx context.Context, sess core.Session, p Project) {
	subject := fmt.Sprintf("Your project %q has been evaluated", p.Name)
	svc.notifyStudent(ctx, sess, p, subject, "project_evaluated", map[string]interface{}{
		"Score": p.Evaluation.TotalScore,
		"Grade": p.Evaluation.Grade,
	})
}
