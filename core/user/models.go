package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/mradi/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"

	MinSemester = 1
	MaxSemester = 12
)

var AllRoles = []string{RoleStudent, RoleFaculty, RoleAdmin}

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash []byte     `json:"-"`
	Role         string     `json:"role"`
	Name         string     `json:"name"`
	University   string     `json:"university,omitempty"`
	RollNumber   string     `json:"rollNumber,omitempty"`
	Semester     int        `json:"semester,omitempty"`
	FacultyID    string     `json:"facultyId,omitempty"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`           // UTC
	UpdatedAt    time.Time  `json:"updatedAt"`           // UTC
	LastLogin    *time.Time `json:"lastLogin,omitempty"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsFaculty() bool { return u.Role == RoleFaculty }
func (u User) IsStudent() bool { return u.Role == RoleStudent }

// Session returns the identity to use when u calls a service operation.
func (u User) Session() core.Session {
	return core.Session{UserID: u.ID, Email: u.Email, Role: u.Role, Name: u.Name}
}

// Profile is the public view of a User.
type Profile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	University string `json:"university,omitempty"`
	RollNumber string `json:"rollNumber,omitempty"`
	Semester   int    `json:"semester,omitempty"`
	FacultyID  string `json:"facultyId,omitempty"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		University: u.University,
		RollNumber: u.RollNumber,
		Semester:   u.Semester,
		FacultyID:  u.FacultyID,
	}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,role"`
	Name            string `json:"name" validate:"required"`
	University      string `json:"university"`
	RollNumber      string `json:"rollNumber"`
	Semester        int    `json:"semester" validate:"omitempty,min=1,max=12"`
	FacultyID       string `json:"facultyId"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.Name = core.CleanString(nu.Name)
	nu.University = core.CleanString(nu.University)
	nu.RollNumber = core.CleanString(nu.RollNumber)
	nu.FacultyID = core.CleanString(nu.FacultyID)
	return validate.Struct(nu)
}

type ResetUserPassword struct {
	Token           string `json:"token" validate:"required"`
	UID             string `json:"uid" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	rp.Token = core.CleanString(rp.Token)
	rp.UID = core.CleanString(rp.UID)
	return validate.Struct(rp)
}

// GetFilter selects a single User, by ID or by Email.
type GetFilter struct {
	ID    string
	Email string
}

type QueryFilter struct {
	Role      string `query:"role"`
	FacultyID string `query:"facultyId"`
	IsActive  *bool  `query:"isActive"`
	Limit     int    `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Role = core.CleanString(qf.Role, true /* lower */)
	qf.FacultyID = core.CleanString(qf.FacultyID)
}

// Match reports whether u satisfies every set field of qf.
func (qf QueryFilter) Match(u User) bool {
	if qf.Role != "" && u.Role != qf.Role {
		return false
	}
	if qf.FacultyID != "" && u.FacultyID != qf.FacultyID {
		return false
	}
	if qf.IsActive != nil && u.IsActive != *qf.IsActive {
		return false
	}
	return true
}
