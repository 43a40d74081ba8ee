package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/mradi/core"
)

var (
	// errors
	ErrNotFound            = core.NewNotFoundError("user not found")
	ErrEmailExists         = core.NewFieldError("email", "a user with this email already exists")
	ErrInvalidCredentials  = core.NewAuthenticationError("invalid credentials")
	ErrAccountDeactivated  = core.NewAuthorizationError("account deactivated")
	ErrNoFacultyAvailable  = core.NewFieldError("facultyId", "no faculty is available")
	ErrFacultyNotFound     = core.NewFieldError("facultyId", "faculty not found")
	ErrAdminRegistration   = core.NewFieldError("role", "invalid role")
	ErrInvalidResetLink    = core.NewValidationError(errors.New("invalid password reset link"))
	ErrPasswordResetExpiry = core.NewValidationError(errors.New("password reset link has expired"))
)

type (
	Repository interface {
		// CreateUser fails with ErrEmailExists if the email is taken.
		CreateUser(ctx context.Context, usr User) (User, error)
		// GetUser fails with ErrNotFound.
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields, in the store's natural order.
		QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		CountUsers(ctx context.Context, filter QueryFilter) (int, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
		tokenGen tokenGenerator
	}
)

func NewService(repo Repository, mailSvc core.EmailService, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		validate: validate,
		tokenGen: tokenGenerator{
			secretKey: []byte(conf.SecretKey),
			timeout:   conf.PasswordResetTimeoutDelta,
		},
	}
}

// Register creates a student or faculty account. Students without an explicit faculty are
// assigned the first faculty in the store's natural order.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if nu.Role == RoleAdmin {
		return User{}, ErrAdminRegistration
	}
	return svc.create(ctx, nu)
}

// Create creates a User of any role.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	return svc.create(ctx, nu)
}

func (svc *Service) create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:        uuid.NewString(),
		Email:     nu.Email,
		Role:      nu.Role,
		Name:      nu.Name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch nu.Role {
	case RoleFaculty:
		usr.University = nu.University
	case RoleStudent:
		usr.RollNumber = nu.RollNumber
		usr.Semester = nu.Semester
		fac, err := svc.resolveFaculty(ctx, nu.FacultyID)
		if err != nil {
			return User{}, err
		}
		usr.FacultyID = fac.ID
	}

	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, errors.Wrap(err, "creating user")
}

func (svc *Service) resolveFaculty(ctx context.Context, facultyID string) (User, error) {
	if facultyID == "" {
		fac, err := svc.FirstFaculty(ctx)
		if core.IsNotFound(err) {
			return User{}, ErrNoFacultyAvailable
		}
		return fac, err
	}
	fac, err := svc.GetFaculty(ctx, facultyID)
	if core.IsNotFound(err) {
		return User{}, ErrFacultyNotFound
	}
	return fac, err
}

// Authenticate checks credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	now := time.Now().UTC()
	usr.LastLogin = &now
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting lastLogin")
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: core.CleanString(id)})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) getWithRole(ctx context.Context, id, role string) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if usr.Role != role {
		return User{}, core.NewNotFoundError(role + " not found")
	}
	return usr, nil
}

func (svc *Service) GetFaculty(ctx context.Context, id string) (User, error) {
	return svc.getWithRole(ctx, id, RoleFaculty)
}

func (svc *Service) GetStudent(ctx context.Context, id string) (User, error) {
	return svc.getWithRole(ctx, id, RoleStudent)
}

// FirstFaculty returns the first faculty in the store's natural order.
func (svc *Service) FirstFaculty(ctx context.Context) (User, error) {
	facs, err := svc.repo.QueryUsers(ctx, QueryFilter{Role: RoleFaculty, Limit: 1})
	if err != nil {
		return User{}, errors.Wrap(err, "querying faculty")
	}
	if len(facs) == 0 {
		return User{}, core.NewNotFoundError("faculty not found")
	}
	return facs[0], nil
}

func (svc *Service) QueryFaculty(ctx context.Context) ([]User, error) {
	return svc.repo.QueryUsers(ctx, QueryFilter{Role: RoleFaculty})
}

// QueryStudents lists students, optionally only those assigned to facultyID.
func (svc *Service) QueryStudents(ctx context.Context, facultyID string) ([]User, error) {
	return svc.repo.QueryUsers(ctx, QueryFilter{Role: RoleStudent, FacultyID: core.CleanString(facultyID)})
}

func (svc *Service) CountStudents(ctx context.Context, facultyID string) (int, error) {
	return svc.repo.CountUsers(ctx, QueryFilter{Role: RoleStudent, FacultyID: core.CleanString(facultyID)})
}

// SetPassword replaces the password of usr, applying the password policy.
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := validatePassword(pwd, usr.Name, usr.Email); err != nil {
		return User{}, err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

// RequestPasswordReset emails a password reset link to the active User owning email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrAccountDeactivated
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *Service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  usr.Name,
			"UID":   EncodeUID(usr),
			"Token": svc.tokenGen.makeToken(usr),
		},
	})
}

// ResetPassword sets a new password for the User identified by a password reset link.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) (User, error) {
	if err := data.Validate(svc.validate); err != nil {
		return User{}, err
	}
	id, err := decodeUID(data.UID)
	if err != nil {
		return User{}, ErrInvalidResetLink
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrInvalidResetLink
		}
		return User{}, errors.Wrap(err, "finding user by ID")
	}
	switch svc.tokenGen.verifyToken(usr, data.Token) {
	case nil:
	case errTokenExpired:
		return User{}, ErrPasswordResetExpiry
	default:
		return User{}, ErrInvalidResetLink
	}
	return svc.SetPassword(ctx, usr, data.Password)
}
