package user

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/moodlegw/core"
	"github.com/trezcool/moodlegw/core/moodle"
)

type Service struct {
	conf      *core.Config
	client    *moodle.Client
	validator *core.Validator
	mailSvc   core.EmailService
	logger    core.Logger
}

// NewService returns the user orchestrators. mailSvc may be nil when welcome emails are disabled.
func NewService(
	conf *core.Config,
	client *moodle.Client,
	validator *core.Validator,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		conf:      conf,
		client:    client,
		validator: validator,
		mailSvc:   mailSvc,
		logger:    logger,
	}
}

// Lookup finds a user by username, which is normalized first.
func (svc *Service) Lookup(ctx context.Context, username string) (moodle.User, error) {
	users, err := svc.client.GetUsersByUsername(ctx, core.CleanString(username, true /* lower */))
	if err != nil {
		return moodle.User{}, errors.Wrap(err, "looking up user")
	}
	if len(users) == 0 || users[0].ID <= 0 {
		return moodle.User{}, core.NewNotFoundError(core.ErrUserNotFound)
	}
	return users[0], nil
}

// Register creates a Moodle user unless one with the same username already exists,
// in which case the existing user is returned with Created false.
func (svc *Service) Register(ctx context.Context, nu NewUser) (RegisterResult, error) {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	if err := svc.validator.Struct(nu); err != nil {
		return RegisterResult{}, err
	}

	usr, err := svc.Lookup(ctx, nu.Username)
	switch errors.Cause(err).(type) {
	case nil:
		return RegisterResult{Created: false, User: &usr}, nil
	case *core.NotFoundError:
		// carry on
	default:
		return RegisterResult{}, err
	}

	created, err := svc.client.CreateUsers(ctx, moodle.NewUser{
		Username:  nu.Username,
		Password:  nu.Password,
		Firstname: nu.Firstname,
		Lastname:  nu.Lastname,
		Email:     nu.Email,
		Auth:      authManual,
	})
	if err != nil {
		return RegisterResult{}, errors.Wrap(err, "creating user")
	}
	if len(created) == 0 || created[0].ID <= 0 {
		details, _ := json.Marshal(created)
		err = core.NewUnexpectedShapeError(moodle.FuncCreateUsers, details)
		svc.logger.Error("user creation returned no id", err, map[string]interface{}{"wsfunction": moodle.FuncCreateUsers})
		return RegisterResult{}, err
	}

	id := created[0].ID
	svc.logger.Info("user registered", core.Person{ID: strconv.Itoa(id), Username: nu.Username, Email: nu.Email})
	if svc.conf.Mail.WelcomeEnabled && svc.mailSvc != nil {
		svc.sendWelcomeMail(nu)
	}
	return RegisterResult{Created: true, ID: id}, nil
}

// Login resolves the user by username and issues an InsecureSessionToken.
// The password is only required to be present: it is NOT verified against Moodle.
func (svc *Service) Login(ctx context.Context, cred Credentials) (Session, error) {
	cred.Username = core.CleanString(cred.Username, true /* lower */)
	if err := svc.validator.Struct(cred); err != nil {
		return Session{}, err
	}

	usr, err := svc.Lookup(ctx, cred.Username)
	if err != nil {
		return Session{}, err
	}
	svc.logger.Debug("issuing an insecure session token", core.Person{ID: strconv.Itoa(usr.ID), Username: usr.Username, Email: usr.Email})
	return Session{
		Token: NewInsecureSessionToken(usr.ID, NowFunc()),
		User:  newProfile(usr),
	}, nil
}

// LoginWithToken validates a caller-supplied Moodle token by fetching the site info with it.
func (svc *Service) LoginWithToken(ctx context.Context, cred TokenCredentials) (TokenSession, error) {
	if err := svc.validator.Struct(cred); err != nil {
		return TokenSession{}, err
	}

	info, err := svc.client.GetSiteInfo(ctx, cred.Token)
	if err != nil {
		return TokenSession{}, errors.Wrap(err, "validating token")
	}
	return TokenSession{Token: cred.Token, User: info}, nil
}
