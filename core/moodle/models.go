package moodle

import "encoding/json"

// User is a Moodle user as returned by core_user_get_users_by_field.
// The full upstream object is kept and re-emitted as is when marshalled.
type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Fullname  string `json:"fullname"`
	Email     string `json:"email"`

	raw json.RawMessage
}

type userAlias User

func (u *User) UnmarshalJSON(b []byte) error {
	var a userAlias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*u = User(a)
	u.raw = append(json.RawMessage(nil), b...)
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	if u.raw != nil {
		return u.raw, nil
	}
	return json.Marshal(userAlias(u))
}

// NewUser holds the fields of a core_user_create_users entry.
type NewUser struct {
	Username  string
	Password  string
	Firstname string
	Lastname  string
	Email     string
	Auth      string
}

func (nu NewUser) record() Record {
	return Record{
		P("username", nu.Username),
		P("password", nu.Password),
		P("firstname", nu.Firstname),
		P("lastname", nu.Lastname),
		P("email", nu.Email),
		P("auth", nu.Auth),
	}
}

// CreatedUser is one entry of the core_user_create_users success payload.
type CreatedUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Enrolment is one entry of an enrol_manual_enrol_users call.
type Enrolment struct {
	RoleID   int
	UserID   int
	CourseID int
}

func (e Enrolment) record() Record {
	return Record{
		P("roleid", e.RoleID),
		P("userid", e.UserID),
		P("courseid", e.CourseID),
	}
}
