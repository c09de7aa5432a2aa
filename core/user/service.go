package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("user not found")
	ErrUserExists     = errors.New("user already exists")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		// CheckUsernameUniqueness returns ErrUsernameExists or ErrEmailExists when taken by a User not in excludedUsers.
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		// QueryFilter.Roles matches users having any role starting with one of the given roles.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
		tokens  tokenGenerator
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		tokens:  newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
	}
}

// CheckUniqueness maps taken usernames/emails to field validation errors.
func (svc *Service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.CheckUniqueness(ctx, nu.Username, nu.Email); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		Phone:     nu.Phone,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

// Update saves the validated UpdateUser on top of usr.
func (svc *Service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	if err := svc.CheckUniqueness(ctx, uu.Username, uu.Email, usr); err != nil {
		return User{}, err
	}

	usr.Name = uu.Name
	usr.Username = uu.Username
	usr.Email = uu.Email
	usr.Phone = uu.Phone
	if uu.Roles != nil {
		usr.Roles = uu.Roles
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteUsersByID(ctx, ids)
	return err
}

// RequestPasswordReset emails a password reset link to the active User owning email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}

	token, err := svc.tokens.makeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":  usr.Name,
			"UID":   EncodeUID(usr),
			"Token": token,
		},
	})
	return nil
}

// ResetPassword sets a new password after checking the reset token.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	invalid := core.NewValidationError(fmt.Errorf("invalid or expired token"))

	uid, err := decodeUID(data.UID)
	if err != nil {
		return invalid
	}
	usr, err := svc.GetByID(ctx, uid)
	if err != nil {
		if core.IsNotFound(err) {
			return invalid
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokens.verifyToken(usr, data.Token); err != nil {
		return invalid
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}
