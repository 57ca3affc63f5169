package user

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/moodlegw/core"
	"github.com/trezcool/moodlegw/core/moodle"
	emailsvc "github.com/trezcool/moodlegw/services/email"
	testutil "github.com/trezcool/moodlegw/tests"
)

type fixture struct {
	svc    *Service
	fake   *testutil.FakeMoodle
	logger *testutil.Logger
	mail   *emailsvc.ConsoleService
}

func setup(t *testing.T) fixture {
	fake := testutil.NewFakeMoodle(t)
	conf := testutil.NewConfig(fake.URL())
	conf.Mail.WelcomeEnabled = true
	logger := testutil.NewLogger()
	client := moodle.NewClient(moodle.NewHTTPTransport(conf.Moodle.URL, 0), conf.Moodle.Token, logger)
	mailSvc := emailsvc.NewConsoleService(nil, conf)
	return fixture{
		svc:    NewService(conf, client, core.NewValidator(), mailSvc, logger),
		fake:   fake,
		logger: logger,
		mail:   mailSvc,
	}
}

func TestService_Register(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	nu := NewUser{Username: " JDoe ", Password: "Pwd#1234", Firstname: "John", Lastname: "Doe", Email: "jdoe@example.com"}

	res, err := f.svc.Register(ctx, nu)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Positive(t, res.ID)
	assert.Nil(t, res.User)

	users := f.fake.Users()
	require.Len(t, users, 1)
	assert.Equal(t, "jdoe", users[0].Username)
	assert.Equal(t, "manual", users[0].Auth)

	// same identity, differing by case & whitespace
	nu.Username = "jdoe\t"
	res2, err := f.svc.Register(ctx, nu)
	require.NoError(t, err)
	assert.False(t, res2.Created)
	require.NotNil(t, res2.User)
	assert.Equal(t, res.ID, res2.User.ID)
	assert.Len(t, f.fake.Users(), 1)
	assert.Len(t, f.fake.Calls(moodle.FuncCreateUsers), 1)

	f.mail.Wait()
	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "jdoe@example.com", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, `"jdoe"`)
	assert.False(t, f.logger.Contains("Pwd#1234"))
}

func TestService_Register_failures(t *testing.T) {
	tests := []struct {
		name    string
		nu      NewUser
		prepare func(fake *testutil.FakeMoodle)
		check   func(t *testing.T, err error)
	}{
		{
			name: "missing fields",
			nu:   NewUser{Username: "  ", Password: "pwd"},
			check: func(t *testing.T, err error) {
				vErr, ok := errors.Cause(err).(*core.ValidationError)
				require.True(t, ok)
				assert.Equal(t, core.ErrMissingFields, vErr.Err)
				flds := make([]string, 0)
				for _, fe := range vErr.Fields {
					flds = append(flds, fe.Field)
				}
				assert.Equal(t, []string{"username", "firstname", "lastname", "email"}, flds)
			},
		},
		{
			name: "lookup exception",
			nu:   validNewUser(),
			prepare: func(fake *testutil.FakeMoodle) {
				fake.Respond(moodle.FuncGetUsersByField, http.StatusOK, testutil.Exception("webservice_access_exception", "accessexception", "Access control exception"))
			},
			check: func(t *testing.T, err error) {
				uErr, ok := errors.Cause(err).(*core.UpstreamError)
				require.True(t, ok)
				assert.True(t, uErr.Logical)
				assert.Equal(t, "Access control exception", uErr.Message)
			},
		},
		{
			name: "create exception",
			nu:   validNewUser(),
			prepare: func(fake *testutil.FakeMoodle) {
				fake.Respond(moodle.FuncCreateUsers, http.StatusOK, testutil.Exception("invalid_parameter_exception", "invalidparameter", "Invalid parameter value detected"))
			},
			check: func(t *testing.T, err error) {
				uErr, ok := errors.Cause(err).(*core.UpstreamError)
				require.True(t, ok)
				assert.Equal(t, http.StatusBadRequest, uErr.HTTPStatus())
			},
		},
		{
			name: "create returns no id",
			nu:   validNewUser(),
			prepare: func(fake *testutil.FakeMoodle) {
				fake.Respond(moodle.FuncCreateUsers, http.StatusOK, []map[string]interface{}{{"username": "jdoe"}})
			},
			check: func(t *testing.T, err error) {
				sErr, ok := errors.Cause(err).(*core.UnexpectedShapeError)
				require.True(t, ok)
				assert.Equal(t, moodle.FuncCreateUsers, sErr.Function)
			},
		},
		{
			name: "create returns an empty list",
			nu:   validNewUser(),
			prepare: func(fake *testutil.FakeMoodle) {
				fake.Respond(moodle.FuncCreateUsers, http.StatusOK, []interface{}{})
			},
			check: func(t *testing.T, err error) {
				_, ok := errors.Cause(err).(*core.UnexpectedShapeError)
				assert.True(t, ok)
			},
		},
		{
			name: "moodle down",
			nu:   validNewUser(),
			prepare: func(fake *testutil.FakeMoodle) {
				fake.Respond(moodle.FuncCreateUsers, http.StatusBadGateway, `{"message":"bad gateway"}`)
			},
			check: func(t *testing.T, err error) {
				uErr, ok := errors.Cause(err).(*core.UpstreamError)
				require.True(t, ok)
				assert.False(t, uErr.Logical)
				assert.Equal(t, http.StatusBadGateway, uErr.HTTPStatus())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			if tt.prepare != nil {
				tt.prepare(f.fake)
			}
			res, err := f.svc.Register(context.Background(), tt.nu)
			require.Error(t, err)
			assert.Equal(t, RegisterResult{}, res)
			tt.check(t, err)
		})
	}
}

func validNewUser() NewUser {
	return NewUser{Username: "jdoe", Password: "Pwd#1234", Firstname: "John", Lastname: "Doe", Email: "jdoe@example.com"}
}

func TestService_Login(t *testing.T) {
	f := setup(t)
	usr := f.fake.AddUser("jdoe", "John", "Doe", "jdoe@example.com")

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }()

	sess, err := f.svc.Login(context.Background(), Credentials{Username: "  JDOE", Password: "anything"})
	require.NoError(t, err)
	assert.Equal(t, InsecureSessionToken("mock_token_"+strconv.Itoa(usr.ID)+"_1704164645000"), sess.Token)
	assert.True(t, IsInsecureSessionToken(string(sess.Token)))
	assert.Equal(t, Profile{
		UserID:    usr.ID,
		Username:  "jdoe",
		Firstname: "John",
		Lastname:  "Doe",
		Fullname:  "John Doe",
		Email:     "jdoe@example.com",
	}, sess.User)
}

func TestService_Login_failures(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Login(context.Background(), Credentials{Username: "jdoe"})
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, []core.FieldError{{Field: "password", Error: "this field is required"}}, vErr.Fields)

	_, err = f.svc.Login(context.Background(), Credentials{Username: "ghost", Password: "pwd"})
	nfErr, ok := errors.Cause(err).(*core.NotFoundError)
	require.True(t, ok)
	assert.Equal(t, core.ErrUserNotFound, nfErr.Err)
}

func TestService_LoginWithToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	sess, err := f.svc.LoginWithToken(ctx, TokenCredentials{Token: testutil.UserToken})
	require.NoError(t, err)
	assert.Equal(t, testutil.UserToken, sess.Token)
	assert.JSONEq(t, `{"sitename":"Fake Moodle","username":"admin","userid":2,"token":true}`, string(sess.User))

	calls := f.fake.Calls(moodle.FuncGetSiteInfo)
	require.Len(t, calls, 1)
	assert.Equal(t, testutil.UserToken, calls[0].Token)

	_, err = f.svc.LoginWithToken(ctx, TokenCredentials{Token: "forged"})
	uErr, ok := errors.Cause(err).(*core.UpstreamError)
	require.True(t, ok)
	assert.Equal(t, "invalidtoken", uErr.ErrorCode)
	assert.Equal(t, http.StatusBadRequest, uErr.HTTPStatus())

	_, err = f.svc.LoginWithToken(ctx, TokenCredentials{})
	_, ok = errors.Cause(err).(*core.ValidationError)
	assert.True(t, ok)
	assert.Len(t, f.fake.Calls(moodle.FuncGetSiteInfo), 2)
	assert.False(t, f.logger.Contains(testutil.UserToken))
}

func TestNewInsecureSessionToken(t *testing.T) {
	tkn := NewInsecureSessionToken(42, time.Unix(1700000000, 123456789))
	assert.Equal(t, InsecureSessionToken("mock_token_42_1700000000123"), tkn)
	assert.Regexp(t, regexp.MustCompile(`^mock_token_\d+_\d+$`), string(tkn))
	assert.False(t, IsInsecureSessionToken(testutil.UserToken))
}
