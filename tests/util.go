package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"testing"
)

const (
	ServiceToken = "service-token"
	UserToken    = "user-token"

	endpointPath = "/webservice/rest/server.php"
)

var indexedKey = regexp.MustCompile(`^(\w+)\[(\d+)\](?:\[(\w+)\])?$`)

type (
	// Call is a request received by the FakeMoodle.
	Call struct {
		Method   string
		Function string
		Token    string
		Form     url.Values
	}

	// HandlerFunc answers a Call with a status and a body (marshalled to JSON unless it is a string or []byte).
	HandlerFunc func(call Call) (int, interface{})

	User struct {
		ID        int    `json:"id"`
		Username  string `json:"username"`
		Firstname string `json:"firstname"`
		Lastname  string `json:"lastname"`
		Fullname  string `json:"fullname"`
		Email     string `json:"email"`
		Auth      string `json:"auth"`
	}

	Enrolment struct {
		RoleID   int
		UserID   int
		CourseID int
	}

	// FakeMoodle emulates Moodle's REST web-service endpoint with a tiny in-memory site.
	FakeMoodle struct {
		server *httptest.Server

		mu         sync.Mutex
		calls      []Call
		handlers   map[string]HandlerFunc
		tokens     map[string]bool
		users      []User
		courses    map[int]map[string]interface{}
		contents   map[int][]interface{}
		enrolments []Enrolment
		nextUserID int
	}
)

func NewFakeMoodle(t *testing.T) *FakeMoodle {
	t.Helper()
	m := &FakeMoodle{
		handlers:   make(map[string]HandlerFunc),
		tokens:     map[string]bool{ServiceToken: true, UserToken: true},
		courses:    make(map[int]map[string]interface{}),
		contents:   make(map[int][]interface{}),
		nextUserID: 2, // 1 is Moodle's guest user
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.serveHTTP))
	t.Cleanup(m.server.Close)
	return m
}

// URL is the REST endpoint, ie. what the gateway is configured with.
func (m *FakeMoodle) URL() string { return m.server.URL + endpointPath }

// Handle overrides the built-in behavior of `function`.
func (m *FakeMoodle) Handle(function string, h HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[function] = h
}

// Respond makes `function` always answer with `status` and `body`.
func (m *FakeMoodle) Respond(function string, status int, body interface{}) {
	m.Handle(function, func(Call) (int, interface{}) { return status, body })
}

func (m *FakeMoodle) AddUser(username, firstname, lastname, email string) User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addUser(User{Username: username, Firstname: firstname, Lastname: lastname, Email: email, Auth: "manual"})
}

func (m *FakeMoodle) AddCourse(id int, fullname string, sections ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[id] = map[string]interface{}{"id": id, "fullname": fullname, "shortname": fmt.Sprintf("C%d", id)}
	m.contents[id] = sections
}

func (m *FakeMoodle) Users() []User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]User(nil), m.users...)
}

func (m *FakeMoodle) Enrolments() []Enrolment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Enrolment(nil), m.enrolments...)
}

// Calls returns the received calls, optionally only those of the given functions.
func (m *FakeMoodle) Calls(functions ...string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(functions) == 0 {
		return append([]Call(nil), m.calls...)
	}
	var res []Call
	for _, c := range m.calls {
		for _, fn := range functions {
			if c.Function == fn {
				res = append(res, c)
			}
		}
	}
	return res
}

// Exception is the body Moodle answers logical errors with (at HTTP 200).
func Exception(exception, errorcode, message string) map[string]interface{} {
	return map[string]interface{}{"exception": exception, "errorcode": errorcode, "message": message}
}

func (m *FakeMoodle) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	call := Call{
		Method:   r.Method,
		Function: r.Form.Get("wsfunction"),
		Token:    r.Form.Get("wstoken"),
		Form:     r.Form,
	}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	h, ok := m.handlers[call.Function]
	m.mu.Unlock()

	var (
		status int
		body   interface{}
	)
	if ok {
		status, body = h(call)
	} else {
		m.mu.Lock()
		status, body = m.builtin(call)
		m.mu.Unlock()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	switch b := body.(type) {
	case string:
		_, _ = w.Write([]byte(b))
	case []byte:
		_, _ = w.Write(b)
	default:
		_ = json.NewEncoder(w).Encode(b)
	}
}

// builtin must be called with m.mu held.
func (m *FakeMoodle) builtin(call Call) (int, interface{}) {
	if !m.tokens[call.Token] {
		return http.StatusOK, Exception("moodle_exception", "invalidtoken", "Invalid token - token not found")
	}
	if call.Form.Get("moodlewsrestformat") != "json" {
		return http.StatusOK, "<?xml version=\"1.0\"?><RESPONSE/>"
	}

	switch call.Function {
	case "core_user_get_users_by_field":
		return http.StatusOK, m.usersByField(call.Form)
	case "core_user_create_users":
		return m.createUsers(call.Form)
	case "core_course_get_courses":
		ids := make([]int, 0, len(m.courses))
		for id := range m.courses {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		courses := make([]interface{}, 0, len(ids))
		for _, id := range ids {
			courses = append(courses, m.courses[id])
		}
		return http.StatusOK, courses
	case "core_course_get_courses_by_field":
		courses := make([]interface{}, 0, 1)
		if call.Form.Get("field") == "id" {
			id, _ := strconv.Atoi(call.Form.Get("value"))
			if c, ok := m.courses[id]; ok {
				courses = append(courses, c)
			}
		}
		return http.StatusOK, map[string]interface{}{"courses": courses, "warnings": []interface{}{}}
	case "core_course_get_contents":
		id, _ := strconv.Atoi(call.Form.Get("courseid"))
		sections, ok := m.contents[id]
		if !ok {
			return http.StatusOK, Exception("dml_missing_record_exception", "invalidrecord", "Can't find data record in database table course.")
		}
		if sections == nil {
			sections = []interface{}{}
		}
		return http.StatusOK, sections
	case "core_webservice_get_site_info":
		return http.StatusOK, map[string]interface{}{
			"sitename": "Fake Moodle",
			"username": "admin",
			"userid":   2,
			"token":    call.Token == UserToken,
		}
	case "enrol_manual_enrol_users":
		return m.enrolUsers(call.Form)
	default:
		return http.StatusOK, Exception("dml_missing_record_exception", "invalidrecord",
			"Can't find data record in database table external_functions.")
	}
}

func (m *FakeMoodle) addUser(usr User) User {
	usr.ID = m.nextUserID
	usr.Fullname = usr.Firstname + " " + usr.Lastname
	m.nextUserID++
	m.users = append(m.users, usr)
	return usr
}

func (m *FakeMoodle) usersByField(form url.Values) []User {
	res := make([]User, 0)
	if form.Get("field") != "username" {
		return res
	}
	for _, v := range records(form, "values") {
		for _, usr := range m.users {
			if usr.Username == v[""] {
				res = append(res, usr)
			}
		}
	}
	return res
}

func (m *FakeMoodle) createUsers(form url.Values) (int, interface{}) {
	created := make([]map[string]interface{}, 0)
	for _, rec := range records(form, "users") {
		for _, usr := range m.users {
			if usr.Username == rec["username"] {
				return http.StatusOK, Exception("invalid_parameter_exception", "invalidparameter",
					"Username already exists: "+rec["username"])
			}
		}
		usr := m.addUser(User{
			Username:  rec["username"],
			Firstname: rec["firstname"],
			Lastname:  rec["lastname"],
			Email:     rec["email"],
			Auth:      rec["auth"],
		})
		created = append(created, map[string]interface{}{"id": usr.ID, "username": usr.Username})
	}
	return http.StatusOK, created
}

func (m *FakeMoodle) enrolUsers(form url.Values) (int, interface{}) {
	for _, rec := range records(form, "enrolments") {
		roleID, _ := strconv.Atoi(rec["roleid"])
		userID, _ := strconv.Atoi(rec["userid"])
		courseID, _ := strconv.Atoi(rec["courseid"])
		if _, ok := m.courses[courseID]; !ok {
			return http.StatusOK, Exception("dml_missing_record_exception", "invalidrecord",
				"Can't find data record in database table course.")
		}
		m.enrolments = append(m.enrolments, Enrolment{RoleID: roleID, UserID: userID, CourseID: courseID})
	}
	return http.StatusOK, nil
}

// records decodes Moodle's bracketed form keys, eg. `users[0][username]`, into one map per index.
// Plain lists such as `values[0]` are stored under the "" key.
func records(form url.Values, name string) []map[string]string {
	byIdx := make(map[int]map[string]string)
	maxIdx := -1
	for key, vals := range form {
		match := indexedKey.FindStringSubmatch(key)
		if match == nil || match[1] != name || len(vals) == 0 {
			continue
		}
		idx, _ := strconv.Atoi(match[2])
		if byIdx[idx] == nil {
			byIdx[idx] = make(map[string]string)
		}
		byIdx[idx][match[3]] = vals[0]
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	res := make([]map[string]string, 0, maxIdx+1)
	for i := 0; i <= maxIdx; i++ {
		if rec, ok := byIdx[i]; ok {
			res = append(res, rec)
		}
	}
	return res
}
