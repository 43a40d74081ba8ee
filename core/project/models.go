package project

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mradi/core"
)

// Statuses
const (
	StatusPending   = "pending"
	StatusInReview  = "in_review"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusEvaluated = "evaluated"
)

// Feedback actions
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionReview  = "review"
	ActionComment = "comment"
)

const (
	MinProgress = 0
	MaxProgress = 100
)

var AllStatuses = []string{StatusPending, StatusInReview, StatusApproved, StatusRejected, StatusEvaluated}

type (
	Project struct {
		ID                     string          `json:"id"`
		StudentID              string          `json:"studentId"`
		FacultyID              string          `json:"facultyId"`
		Name                   string          `json:"name"`
		Description            string          `json:"description"`
		TechStack              string          `json:"techStack"`
		RealLifeApplication    string          `json:"realLifeApplication"`
		ExpectedCompletionDate string          `json:"expectedCompletionDate,omitempty"` // YYYY-MM-DD
		Status                 string          `json:"status"`
		Progress               int             `json:"progress"`
		Score                  *int            `json:"score,omitempty"`
		Grade                  string          `json:"grade,omitempty"`
		Comments               string          `json:"comments,omitempty"`
		Recommendations        string          `json:"recommendations,omitempty"`
		Evaluation             *Evaluation     `json:"evaluation,omitempty"`
		Feedback               []FeedbackEvent `json:"feedback"`
		Version                int             `json:"version"`
		CreatedAt              time.Time       `json:"createdAt"` // UTC
		UpdatedAt              time.Time       `json:"updatedAt"` // UTC
	}

	// FeedbackEvent is an immutable record of a faculty decision or comment.
	FeedbackEvent struct {
		ID          string    `json:"id"`
		Action      string    `json:"action"`
		Message     string    `json:"message"`
		FacultyID   string    `json:"facultyId"`
		FacultyName string    `json:"facultyName"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	Evaluation struct {
		CriteriaScores  map[string]float64 `json:"criteriaScores"`
		Comments        string             `json:"comments"`
		Recommendations string             `json:"recommendations"`
		TotalScore      int                `json:"totalScore"`
		Grade           string             `json:"grade"`
		EvaluatedAt     time.Time          `json:"evaluatedAt"`
	}

	ProgressUpdate struct {
		ID         string    `json:"id"`
		ProjectID  string    `json:"projectId"`
		StudentID  string    `json:"studentId"`
		UpdateText string    `json:"updateText"`
		Completion *int      `json:"completion,omitempty"`
		Date       time.Time `json:"date"`
	}
)

// NewProject contains information needed to create a new Project.
type NewProject struct {
	Name                   string `json:"name" validate:"required,notblank"`
	Description            string `json:"description" validate:"required,notblank"`
	TechStack              string `json:"techStack" validate:"required,notblank"`
	RealLifeApplication    string `json:"realLifeApplication" validate:"required,notblank"`
	ExpectedCompletionDate string `json:"expectedCompletionDate" validate:"omitempty,isodate"`
}

func (np *NewProject) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)
	np.TechStack = core.CleanString(np.TechStack)
	np.RealLifeApplication = core.CleanString(np.RealLifeApplication)
	np.ExpectedCompletionDate = core.CleanString(np.ExpectedCompletionDate)
	return validate.Struct(np)
}

// UpdateProject is a partial update: nil fields are left untouched. Which fields a
// caller may set depends on their relation to the Project.
type UpdateProject struct {
	// student fields
	Name                   *string `json:"name" validate:"omitempty,notblank"`
	Description            *string `json:"description" validate:"omitempty,notblank"`
	TechStack              *string `json:"techStack" validate:"omitempty,notblank"`
	RealLifeApplication    *string `json:"realLifeApplication" validate:"omitempty,notblank"`
	ExpectedCompletionDate *string `json:"expectedCompletionDate" validate:"omitempty,isodate"`
	Progress               *int    `json:"progress" validate:"omitempty,min=0,max=100"`

	// faculty fields
	Status          *string `json:"status" validate:"omitempty,status"`
	FeedbackMessage *string `json:"feedbackMessage"`
	Comments        *string `json:"comments"`
	Recommendations *string `json:"recommendations"`
}

func (up UpdateProject) IsEmpty() bool {
	return up.Name == nil && up.Description == nil && up.TechStack == nil &&
		up.RealLifeApplication == nil && up.ExpectedCompletionDate == nil && up.Progress == nil &&
		up.Status == nil && up.FeedbackMessage == nil && up.Comments == nil && up.Recommendations == nil
}

func (up UpdateProject) hasStudentFields() bool {
	return up.Name != nil || up.Description != nil || up.TechStack != nil ||
		up.RealLifeApplication != nil || up.ExpectedCompletionDate != nil || up.Progress != nil
}

func (up UpdateProject) hasFacultyFields() bool {
	return up.Status != nil || up.FeedbackMessage != nil || up.Comments != nil || up.Recommendations != nil
}

func (up *UpdateProject) Validate(validate *validator.Validate) error {
	for _, s := range []*string{up.Name, up.Description, up.TechStack, up.RealLifeApplication, up.ExpectedCompletionDate, up.FeedbackMessage} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	if up.Status != nil {
		*up.Status = core.CleanString(*up.Status, true /* lower */)
	}
	return validate.Struct(up)
}

type StatusUpdate struct {
	Status          string `json:"status" validate:"required,status"`
	FeedbackMessage string `json:"feedbackMessage"`
}

func (su *StatusUpdate) Validate(validate *validator.Validate) error {
	su.Status = core.CleanString(su.Status, true /* lower */)
	su.FeedbackMessage = core.CleanString(su.FeedbackMessage)
	return validate.Struct(su)
}

type ProgressChange struct {
	Progress *int `json:"progress" validate:"required,min=0,max=100"`
}

// NewEvaluation is a rubric evaluation submitted by the assigned faculty.
type NewEvaluation struct {
	CriteriaScores  map[string]float64 `json:"criteriaScores" validate:"required"`
	Comments        string             `json:"comments"`
	Recommendations string             `json:"recommendations"`
	TotalScore      *int               `json:"totalScore"`
	Grade           string             `json:"grade" validate:"omitempty,max=4"`
}

func (ne *NewEvaluation) Validate(validate *validator.Validate) error {
	ne.Comments = core.CleanString(ne.Comments)
	ne.Recommendations = core.CleanString(ne.Recommendations)
	ne.Grade = core.CleanString(ne.Grade)
	return validate.Struct(ne)
}

type NewFeedback struct {
	Message string `json:"message" validate:"required,notblank"`
}

func (nf *NewFeedback) Validate(validate *validator.Validate) error {
	nf.Message = core.CleanString(nf.Message)
	return validate.Struct(nf)
}

type NewProgressUpdate struct {
	UpdateText string `json:"updateText" validate:"required,notblank"`
	Completion *int   `json:"completion" validate:"omitempty,min=0,max=100"`
}

func (np *NewProgressUpdate) Validate(validate *validator.Validate) error {
	np.UpdateText = core.CleanString(np.UpdateText)
	return validate.Struct(np)
}

type QueryFilter struct {
	Status    string `query:"status"`
	StudentID string `query:"-"`
	FacultyID string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

// Match reports whether p satisfies every set field of qf.
func (qf QueryFilter) Match(p Project) bool {
	if qf.Status != "" && p.Status != qf.Status {
		return false
	}
	if qf.StudentID != "" && p.StudentID != qf.StudentID {
		return false
	}
	if qf.FacultyID != "" && p.FacultyID != qf.FacultyID {
		return false
	}
	return true
}
