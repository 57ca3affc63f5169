package main

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/moodlegw/core"
	"github.com/trezcool/moodlegw/core/moodle"
	testutil "github.com/trezcool/moodlegw/tests"
)

func setup(t *testing.T) (*app, *testutil.FakeMoodle) {
	fake := testutil.NewFakeMoodle(t)
	return newApp(testutil.NewConfig(fake.URL()), testutil.NewLogger()), fake
}

func executeCLI(t *testing.T, app *app, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(app)
	stdout := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), err
}

func mockPassword(t *testing.T, pwd string, err error) {
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), err }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func Test_siteinfo(t *testing.T) {
	app, _ := setup(t)

	stdout, err := executeCLI(t, app, "siteinfo")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"sitename": "Fake Moodle"`)
}

func Test_courses(t *testing.T) {
	app, fake := setup(t)
	fake.AddCourse(12, "Go 101")
	fake.AddCourse(13, "Go 201")

	stdout, err := executeCLI(t, app, "courses")
	require.NoError(t, err)
	assert.Equal(t, "12\tC12\tGo 101\n13\tC13\tGo 201\n", stdout)

	stdout, err = executeCLI(t, app, "courses", "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"fullname": "Go 201"`)

	fake.Respond(moodle.FuncGetCourses, 200, testutil.Exception("moodle_exception", "invalidtoken", "Invalid token - token not found"))
	_, err = executeCLI(t, app, "courses")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid token - token not found")
}

func Test_adduser(t *testing.T) {
	app, fake := setup(t)
	args := []string{"adduser", "--username", "JDoe", "--firstname", "John", "--lastname", "Doe", "--email", "jdoe@example.com"}

	tests := []struct {
		name       string
		args       []string
		pwd        string
		pwdErr     error
		wantOut    string
		wantErr    error
		wantErrStr string
	}{
		{name: "missing flags", args: []string{"adduser", "--username", "jdoe"}, pwd: "x", wantErrStr: `required flag(s) "email", "firstname", "lastname" not set`},
		{name: "empty password", args: args, pwd: "  ", wantErr: errEmptyPassword},
		{name: "password error", args: args, pwdErr: errors.New("not a terminal"), wantErrStr: "reading password: not a terminal"},
		{name: "create", args: args, pwd: "Pwd#1234", wantOut: "created user 2\n"},
		{name: "existing", args: args, pwd: "Pwd#1234", wantOut: `user "jdoe" already exists (id 2)` + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd, tt.pwdErr)

			stdout, err := executeCLI(t, app, tt.args...)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				require.NoError(t, err)
				assert.Contains(t, stdout, tt.wantOut)
			}
		})
	}

	users := fake.Users()
	require.Len(t, users, 1)
	assert.Equal(t, "jdoe", users[0].Username)
}

func Test_enrol(t *testing.T) {
	app, fake := setup(t)
	fake.AddCourse(12, "Go 101")
	usr := fake.AddUser("jdoe", "John", "Doe", "jdoe@example.com")

	stdout, err := executeCLI(t, app, "enrol", "--username", " JDOE", "--courseid", "12")
	require.NoError(t, err)
	assert.Equal(t, "enrolled user 2 in course 12 (role 5)\n", stdout)

	stdout, err = executeCLI(t, app, "enrol", "--userid", "2", "--courseid", "12", "--roleid", "3")
	require.NoError(t, err)
	assert.Equal(t, "enrolled user 2 in course 12 (role 3)\n", stdout)

	_, err = executeCLI(t, app, "enrol", "--courseid", "12")
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok)
	assert.Len(t, vErr.Fields, 2)

	_, err = executeCLI(t, app, "enrol", "--username", "ghost", "--courseid", "12")
	_, ok = errors.Cause(err).(*core.NotFoundError)
	assert.True(t, ok)

	assert.Equal(t, []testutil.Enrolment{
		{RoleID: 5, UserID: usr.ID, CourseID: 12},
		{RoleID: 3, UserID: usr.ID, CourseID: 12},
	}, fake.Enrolments())
}
