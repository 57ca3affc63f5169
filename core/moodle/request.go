package moodle

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Functions of the Moodle web-service API used by the gateway.
const (
	FuncGetUsersByField   = "core_user_get_users_by_field"
	FuncCreateUsers       = "core_user_create_users"
	FuncGetCourses        = "core_course_get_courses"
	FuncGetCoursesByField = "core_course_get_courses_by_field"
	FuncGetContents       = "core_course_get_contents"
	FuncGetSiteInfo       = "core_webservice_get_site_info"
	FuncEnrolUsers        = "enrol_manual_enrol_users"
)

const (
	paramToken    = "wstoken"
	paramFunction = "wsfunction"
	paramFormat   = "moodlewsrestformat"
	formatJSON    = "json"
)

type (
	// Param is a named request parameter.
	// Value is a string, an int, a bool, a []string, a []int, a Record or a []Record.
	Param struct {
		Name  string
		Value interface{}
	}

	// Record is an ordered set of fields, eg. one entry of `users` or `enrolments`.
	Record []Param

	// Pair is one flattened form field.
	Pair struct {
		Key   string
		Value string
	}

	// Request is an RPC call to a Moodle web-service function. It is immutable once built.
	Request struct {
		Function string
		token    string
		params   []Param
	}
)

// P is a shorthand for Param{name, value}.
func P(name string, value interface{}) Param {
	return Param{Name: name, Value: value}
}

// Build constructs the call of `function` authenticated by `token`.
// It does not check that the function's required parameters are present.
func Build(function, token string, params ...Param) Request {
	cp := make([]Param, len(params))
	copy(cp, params)
	return Request{Function: function, token: token, params: cp}
}

// Pairs flattens the request using Moodle's bracketed index convention:
// `values: ["v"]` becomes `values[0]=v` and `users: [{username: "u"}]` becomes `users[0][username]=u`.
// Parameter and field order are preserved.
func (r Request) Pairs() []Pair {
	pairs := make([]Pair, 0, len(r.params)+3)
	pairs = append(pairs,
		Pair{paramToken, r.token},
		Pair{paramFunction, r.Function},
		Pair{paramFormat, formatJSON},
	)
	for _, p := range r.params {
		pairs = flatten(pairs, p.Name, p.Value)
	}
	return pairs
}

// Encode returns the URL-encoded form of the request, in Pairs order.
func (r Request) Encode() string {
	var sb strings.Builder
	for i, p := range r.Pairs() {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}
	return sb.String()
}

// String describes the request without its token.
func (r Request) String() string {
	return fmt.Sprintf("moodle.Request{%s, %d params}", r.Function, len(r.params))
}

func flatten(pairs []Pair, key string, value interface{}) []Pair {
	switch v := value.(type) {
	case string:
		return append(pairs, Pair{key, v})
	case int:
		return append(pairs, Pair{key, strconv.Itoa(v)})
	case bool:
		if v {
			return append(pairs, Pair{key, "1"})
		}
		return append(pairs, Pair{key, "0"})
	case []string:
		for i, s := range v {
			pairs = flatten(pairs, indexed(key, i), s)
		}
	case []int:
		for i, n := range v {
			pairs = flatten(pairs, indexed(key, i), n)
		}
	case Record:
		for _, fld := range v {
			pairs = flatten(pairs, key+"["+fld.Name+"]", fld.Value)
		}
	case []Record:
		for i, rec := range v {
			pairs = flatten(pairs, indexed(key, i), rec)
		}
	case nil:
	default:
		return append(pairs, Pair{key, fmt.Sprint(v)})
	}
	return pairs
}

func indexed(key string, i int) string {
	return key + "[" + strconv.Itoa(i) + "]"
}
