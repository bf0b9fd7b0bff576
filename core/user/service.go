package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/nidhamu/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("user not found")
	ErrEmailExists    = core.NewConflictError("a user with this email already exists")
	ErrUsernameExists = core.NewConflictError("a user with this username already exists")
)

type (
	// AssignmentChange is the resolver's output: the class ids to pull from
	// every user's followingClasses, then the per-user class ids to attach.
	// The repository applies the whole change atomically.
	AssignmentChange struct {
		DetachClassIDs []string
		Attach         map[string][]string // userID -> class ids (set union)
	}

	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		DeleteUserByID(ctx context.Context, id string) error

		ApplyAssignments(ctx context.Context, change AssignmentChange) error
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		conf     *core.Config
		syncMail bool // send mails synchronously (tests)
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	setTokenConfig(conf)
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

// NewServiceMock returns a Service that delivers mails synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	svc := NewService(repo, mailSvc, conf)
	svc.syncMail = true
	return svc
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	return svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers...)
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.checkUniqueness(ctx, nu.Username, nu.Email); err != nil {
		return User{}, err
	}
	now := time.Now().UTC()
	usr := User{
		ID:               uuid.New().String(),
		Username:         nu.Username,
		FirstName:        nu.FirstName,
		LastName:         nu.LastName,
		Email:            nu.Email,
		Role:             nu.Role,
		IsActive:         true,
		FollowingClasses: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if (uu.Username != "" && uu.Username != usr.Username) || (uu.Email != "" && uu.Email != usr.Email) {
		uname, email := uu.Username, uu.Email
		if uname == "" {
			uname = usr.Username
		}
		if email == "" {
			email = usr.Email
		}
		if err = svc.checkUniqueness(ctx, uname, email, usr); err != nil {
			return User{}, err
		}
	}
	if uu.Username != "" {
		usr.Username = uu.Username
	}
	if uu.FirstName != "" {
		usr.FirstName = uu.FirstName
	}
	if uu.LastName != "" {
		usr.LastName = uu.LastName
	}
	if uu.Email != "" {
		usr.Email = uu.Email
	}
	if uu.Role != "" {
		usr.Role = uu.Role
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, nil)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetUserByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteUserByID(ctx, id)
}

// ReplaceAssignments resolves a full replacement set of (class, monitor)
// pairs into the new "who monitors what" state. Every submitted class id is
// first detached from all users globally, so a class moving from monitor A to
// monitor B strips A even when A is absent from the submission; the grouped
// non-empty assignments are then attached. At most one monitor per class is
// guaranteed by the detach-all-then-attach order.
func (svc *Service) ReplaceAssignments(ctx context.Context, al AssignmentList) error {
	change := AssignmentChange{Attach: make(map[string][]string)}

	seen := make(map[string]bool, len(al.Assignments))
	for _, pair := range al.Assignments {
		if !seen[pair.ClassID] {
			seen[pair.ClassID] = true
			change.DetachClassIDs = append(change.DetachClassIDs, pair.ClassID)
		}
		if pair.UserID != "" {
			change.Attach[pair.UserID] = append(change.Attach[pair.UserID], pair.ClassID)
		}
	}

	for userID := range change.Attach {
		if _, err := svc.repo.GetUserByID(ctx, userID); err != nil {
			return err
		}
	}
	return svc.repo.ApplyAssignments(ctx, change)
}

// Password reset

func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if svc.syncMail {
		svc.sendPasswordResetMail(usr)
		return nil
	}
	go svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *Service) sendPasswordResetMail(usr User) {
	token := makeToken(usr)
	url := fmt.Sprintf("%s/password-reset?uid=%s&token=%s", svc.conf.FrontendBaseURL, EncodeUID(usr), token)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Username, Address: usr.Email}},
		Subject: "Password Reset",
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nYou requested a password reset. Follow the link below to set a new password:\n\n%s\n\n"+
				"If you did not make this request, you can safely ignore this email.",
			usr.FirstName, url,
		),
	})
}

func (svc *Service) ConfirmPasswordReset(ctx context.Context, uid, token, newPwd string) (User, error) {
	id, err := decodeUID(uid)
	if err != nil {
		return User{}, errInvalidToken
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err = verifyToken(usr, token); err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(newPwd); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, nil)
}
