package user

import (
	"encoding/json"

	"github.com/trezcool/moodlegw/core/moodle"
)

// authManual is Moodle's built-in accounts auth plugin.
const authManual = "manual"

type (
	// NewUser is a registration request.
	NewUser struct {
		Username  string `json:"username" validate:"required"`
		Password  string `json:"password" validate:"required"`
		Firstname string `json:"firstname" validate:"required"`
		Lastname  string `json:"lastname" validate:"required"`
		Email     string `json:"email" validate:"required"`
	}

	// RegisterResult is either {created: true, id} or {created: false, user}.
	RegisterResult struct {
		Created bool         `json:"created"`
		ID      int          `json:"id,omitempty"`
		User    *moodle.User `json:"user,omitempty"`
	}

	Credentials struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
		Service  string `json:"service"` // accepted for compatibility, unused
	}

	TokenCredentials struct {
		Token string `json:"token" validate:"required,notblank"`
	}

	// Profile is the user as exposed by the login endpoint.
	Profile struct {
		UserID    int    `json:"userid"`
		Username  string `json:"username"`
		Firstname string `json:"firstname"`
		Lastname  string `json:"lastname"`
		Fullname  string `json:"fullname"`
		Email     string `json:"email"`
	}

	Session struct {
		Token InsecureSessionToken `json:"token"`
		User  Profile              `json:"user"`
	}

	// TokenSession is a session backed by a Moodle-verified token; User is the site info payload.
	TokenSession struct {
		Token string          `json:"token"`
		User  json.RawMessage `json:"user"`
	}
)

func newProfile(usr moodle.User) Profile {
	return Profile{
		UserID:    usr.ID,
		Username:  usr.Username,
		Firstname: usr.Firstname,
		Lastname:  usr.Lastname,
		Fullname:  usr.Fullname,
		Email:     usr.Email,
	}
}
