package moodle

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/moodlegw/core"
)

// Client runs Moodle web-service functions: it builds each call, sends it through a Transport
// and normalizes the response. Every call carries a credential token, the service one by default.
type Client struct {
	transport Transport
	token     string
	logger    core.Logger
}

func NewClient(transport Transport, token string, logger core.Logger) *Client {
	return &Client{transport: transport, token: token, logger: logger}
}

// ServiceToken is the shared credential token the gateway authenticates with.
func (c *Client) ServiceToken() string { return c.token }

// Call runs `function` with the service token (POST, form body) and returns the success payload.
func (c *Client) Call(ctx context.Context, function string, params ...Param) (json.RawMessage, error) {
	return c.call(ctx, c.token, function, false, params)
}

// CallWithToken runs `function` authenticated by a caller-supplied token.
func (c *Client) CallWithToken(ctx context.Context, token, function string, params ...Param) (json.RawMessage, error) {
	return c.call(ctx, token, function, false, params)
}

// Query runs `function` with the service token as a GET, parameters in the query string.
func (c *Client) Query(ctx context.Context, function string, params ...Param) (json.RawMessage, error) {
	return c.call(ctx, c.token, function, true, params)
}

func (c *Client) call(ctx context.Context, token, function string, useQuery bool, params []Param) (json.RawMessage, error) {
	start := time.Now()
	extras := map[string]interface{}{"wsfunction": function}

	res, err := c.transport.Send(ctx, Build(function, token, params...), useQuery)
	if err != nil {
		observeCall(function, outcomeTransport, start)
		c.logger.Error("moodle call failed", err, extras)
		return nil, err
	}

	out := Normalize(res.Status, res.Body)
	if !out.OK() {
		outcome := outcomeTransport
		if out.Failure.Logical {
			outcome = outcomeLogical
			extras["errorcode"] = out.Failure.ErrorCode
		}
		observeCall(function, outcome, start)
		err = out.Failure.Err(function)
		c.logger.Warn("moodle call returned an error", err, extras)
		return nil, err
	}

	observeCall(function, outcomeOK, start)
	return out.Payload, nil
}

// GetUsersByUsername looks users up by (already normalized) username.
func (c *Client) GetUsersByUsername(ctx context.Context, usernames ...string) ([]User, error) {
	payload, err := c.Call(ctx, FuncGetUsersByField,
		P("field", "username"),
		P("values", usernames),
	)
	if err != nil {
		return nil, err
	}
	var users []User
	if err = decode(payload, &users); err != nil {
		return nil, core.NewUnexpectedShapeError(FuncGetUsersByField, payload)
	}
	return users, nil
}

// CreateUsers creates users and returns their new ids, in order.
func (c *Client) CreateUsers(ctx context.Context, users ...NewUser) ([]CreatedUser, error) {
	recs := make([]Record, 0, len(users))
	for _, nu := range users {
		recs = append(recs, nu.record())
	}
	payload, err := c.Call(ctx, FuncCreateUsers, P("users", recs))
	if err != nil {
		return nil, err
	}
	var created []CreatedUser
	if err = decode(payload, &created); err != nil {
		return nil, core.NewUnexpectedShapeError(FuncCreateUsers, payload)
	}
	return created, nil
}

// GetCourses lists every course visible to the service token.
func (c *Client) GetCourses(ctx context.Context) (json.RawMessage, error) {
	return c.Query(ctx, FuncGetCourses)
}

// GetCoursesByField looks courses up by `field` (id, shortname, category, ...).
func (c *Client) GetCoursesByField(ctx context.Context, field, value string) (json.RawMessage, error) {
	return c.Call(ctx, FuncGetCoursesByField, P("field", field), P("value", value))
}

// GetContents returns the sections of a course, stealth modules included.
func (c *Client) GetContents(ctx context.Context, courseID int) (json.RawMessage, error) {
	return c.Call(ctx, FuncGetContents,
		P("courseid", courseID),
		P("options", []Record{{P("name", "includestealthmodules"), P("value", "1")}}),
	)
}

// GetSiteInfo returns the site info as seen by `token`; an empty token means the service token.
func (c *Client) GetSiteInfo(ctx context.Context, token string) (json.RawMessage, error) {
	if token == "" {
		token = c.token
	}
	return c.CallWithToken(ctx, token, FuncGetSiteInfo)
}

// EnrolUsers enrols users through the manual enrolment plugin. Moodle answers null (or {}) on success.
func (c *Client) EnrolUsers(ctx context.Context, enrolments ...Enrolment) error {
	recs := make([]Record, 0, len(enrolments))
	for _, e := range enrolments {
		recs = append(recs, e.record())
	}
	_, err := c.Call(ctx, FuncEnrolUsers, P("enrolments", recs))
	return err
}

func decode(payload json.RawMessage, v interface{}) error {
	return errors.Wrap(json.Unmarshal(payload, v), "decoding payload")
}
