package core

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanString(t *testing.T) {
	tests := []struct {
		in, want, wantLower string
	}{
		{in: "jdoe", want: "jdoe", wantLower: "jdoe"},
		{in: " JDoe\t", want: "JDoe", wantLower: "jdoe"},
		{in: "\n ", want: "", wantLower: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanString(tt.in))
		assert.Equal(t, tt.wantLower, CleanString(tt.in, true))
		assert.Equal(t, CleanString(tt.in, true), CleanString(CleanString(tt.in, true), true)) // idempotent
	}
}

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: `12`, want: 12},
		{in: `"12"`, want: 12},
		{in: `" 7 "`, want: 7},
		{in: `12.0`, want: 12},
		{in: `null`},
		{in: `""`},
		{in: `12.5`, wantErr: true},
		{in: `"abc"`, wantErr: true},
		{in: `true`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var v struct {
				ID FlexInt `json:"id"`
			}
			err := json.Unmarshal([]byte(`{"id":`+tt.in+`}`), &v)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.ID.Int())
		})
	}
}

func TestValidator_Struct(t *testing.T) {
	type enrol struct {
		Username string  `json:"username" validate:"required_without=UserID"`
		UserID   FlexInt `json:"userid" validate:"required_without=Username"`
		CourseID FlexInt `json:"courseid" validate:"required"`
		Token    string  `json:"token" validate:"omitempty,notblank"`
	}
	v := NewValidator()

	tests := []struct {
		name     string
		in       enrol
		wantErr  error
		wantFlds []FieldError
	}{
		{name: "valid (username)", in: enrol{Username: "jdoe", CourseID: 2}},
		{name: "valid (userid)", in: enrol{UserID: 7, CourseID: 2}},
		{
			name:    "missing everything",
			wantErr: ErrMissingFields,
			wantFlds: []FieldError{
				{Field: "username", Error: "one of username or userid is required"},
				{Field: "userid", Error: "one of userid or username is required"},
				{Field: "courseid", Error: "this field is required"},
			},
		},
		{
			name:     "blank token",
			in:       enrol{UserID: 7, CourseID: 2, Token: "  "},
			wantErr:  ErrInvalidFields,
			wantFlds: []FieldError{{Field: "token", Error: "this field cannot be blank"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				assert.NoError(t, v.Validate(tt.in))
				return
			}
			vErr, ok := err.(*ValidationError)
			require.True(t, ok)
			assert.Equal(t, tt.wantErr, vErr.Err)
			assert.Equal(t, tt.wantFlds, vErr.Fields)
		})
	}
}

func TestUpstreamError_HTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  UpstreamError
		want int
	}{
		{name: "logical", err: UpstreamError{Logical: true, Status: 200}, want: http.StatusBadRequest},
		{name: "non-2xx", err: UpstreamError{Status: 503}, want: http.StatusServiceUnavailable},
		{name: "unreachable", err: UpstreamError{}, want: http.StatusInternalServerError},
		{name: "invalid JSON at 200", err: UpstreamError{Status: 200}, want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestNewConfig(t *testing.T) {
	for k, v := range map[string]string{
		"ENV":                    "qa",
		"QA_MOODLE_TOKEN":        "secret",
		"QA_MOODLE_URL":          "http://moodle.test/webservice/rest/server.php",
		"QA_ENROL_DEFAULTROLEID": "3",
		"QA_SERVER_READTIMEOUT":  "3s",
	} {
		t.Setenv(k, v)
	}

	conf := NewConfig()
	assert.Equal(t, "QA", conf.Env)
	assert.Equal(t, "secret", conf.Moodle.Token)
	assert.Equal(t, "http://moodle.test/webservice/rest/server.php", conf.Moodle.URL)
	assert.Equal(t, 3, conf.DefaultRoleID)
	assert.Equal(t, 3*time.Second, conf.Server.ReadTimeout)
	assert.Equal(t, ":5000", conf.Server.Addr)
	assert.NotContains(t, conf.String(), "secret")
}
