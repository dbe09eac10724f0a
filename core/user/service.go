package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/elimuhq/elimu/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
)

type (
	Repository interface {
		// CreateUser persists usr with a fresh ID. A duplicate email must be
		// rejected by the store's unique constraint and surfaced as ErrEmailExists.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		SetLastLogin(ctx context.Context, id string, t time.Time) error
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

// Register creates a new account. The role defaults to student when omitted.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	role := nu.Role
	if role == "" {
		role = RoleStudent
	}
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Welcome to " + svc.conf.AppName,
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour account is ready. Browse the catalog and enroll in your first course:\n%s\n",
			usr.Name, svc.conf.FrontendBaseURL,
		),
	})
	return usr, nil
}

// Authenticate checks the credentials and returns the matching active user.
// Unknown email and wrong password both yield ErrInvalidCredentials so the
// response cannot be used to enumerate accounts.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
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
	if err = svc.repo.SetLastLogin(ctx, usr.ID, now); err != nil {
		return User{}, errors.Wrap(err, "setting lastLogin")
	}
	usr.LastLogin = now
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if uu.Name != "" {
		usr.Name = uu.Name
	}
	if uu.Email != "" {
		usr.Email = uu.Email
	}
	if uu.Role != "" {
		usr.Role = uu.Role
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}
