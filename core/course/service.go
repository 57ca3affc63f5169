package course

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/moodlegw/core"
	"github.com/trezcool/moodlegw/core/moodle"
	"github.com/trezcool/moodlegw/core/user"
)

// UserFinder resolves a username to a Moodle user, failing with *core.NotFoundError.
type UserFinder interface {
	Lookup(ctx context.Context, username string) (moodle.User, error)
}

type Service struct {
	conf      *core.Config
	client    *moodle.Client
	users     UserFinder
	validator *core.Validator
	logger    core.Logger
}

func NewService(
	conf *core.Config,
	client *moodle.Client,
	users UserFinder,
	validator *core.Validator,
	logger core.Logger,
) *Service {
	return &Service{
		conf:      conf,
		client:    client,
		users:     users,
		validator: validator,
		logger:    logger,
	}
}

func (svc *Service) List(ctx context.Context) (json.RawMessage, error) {
	courses, err := svc.client.GetCourses(ctx)
	return courses, errors.Wrap(err, "listing courses")
}

// Get returns Moodle's course lookup payload ({courses, warnings}) for `id`.
func (svc *Service) Get(ctx context.Context, id int) (json.RawMessage, error) {
	course, err := svc.client.GetCoursesByField(ctx, "id", strconv.Itoa(id))
	return course, errors.Wrap(err, "getting course")
}

// Contents returns the sections of course `id` with a token on every file URL.
// sessionToken is the caller's Moodle token, if any.
func (svc *Service) Contents(ctx context.Context, id int, sessionToken string) (json.RawMessage, error) {
	payload, err := svc.client.GetContents(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "getting course contents")
	}
	return tokenizeContents(payload, svc.FileToken(sessionToken))
}

// Detail fetches the metadata and the contents of course `id` concurrently.
// The first failure is returned and cancels the other call.
func (svc *Service) Detail(ctx context.Context, id int, sessionToken string) (Detail, error) {
	var d Detail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Course, err = svc.Get(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		d.Contents, err = svc.Contents(gctx, id, sessionToken)
		return err
	})
	if err := g.Wait(); err != nil {
		return Detail{}, err
	}
	return d, nil
}

// FileToken is the token appended to file URLs: the caller's one if Moodle can honour it,
// the service token otherwise.
func (svc *Service) FileToken(sessionToken string) string {
	if sessionToken == "" || user.IsInsecureSessionToken(sessionToken) {
		return svc.client.ServiceToken()
	}
	return sessionToken
}

// Enrol enrols a user, resolved by id or username, in a course through manual enrolment.
func (svc *Service) Enrol(ctx context.Context, er EnrolRequest) (Enrolment, error) {
	er.Username = core.CleanString(er.Username, true /* lower */)
	if err := svc.validator.Struct(er); err != nil {
		return Enrolment{}, err
	}

	userID := er.UserID.Int()
	if userID == 0 {
		usr, err := svc.users.Lookup(ctx, er.Username)
		if err != nil {
			return Enrolment{}, err
		}
		userID = usr.ID
	}
	roleID := er.RoleID.Int()
	if roleID == 0 {
		roleID = svc.conf.DefaultRoleID
	}

	enr := moodle.Enrolment{RoleID: roleID, UserID: userID, CourseID: er.CourseID.Int()}
	if err := svc.client.EnrolUsers(ctx, enr); err != nil {
		return Enrolment{}, errors.Wrap(err, "enrolling user")
	}
	svc.logger.Info("user enrolled", map[string]interface{}{
		"userid":   enr.UserID,
		"courseid": enr.CourseID,
		"roleid":   enr.RoleID,
	})
	return Enrolment{Enrolled: true, UserID: enr.UserID, CourseID: enr.CourseID, RoleID: enr.RoleID}, nil
}
