package moodle

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/moodlegw/core"
)

var (
	ErrUnreachable = errors.New("Moodle is unreachable")
	ErrInvalidJSON = errors.New("Moodle returned an invalid JSON body")
)

// Response is a raw Moodle answer: the HTTP status and a body known to be valid JSON.
type Response struct {
	Status int
	Body   json.RawMessage
}

// Transport performs Moodle calls.
// Send fails with a transport *core.UpstreamError when no JSON body could be obtained.
type Transport interface {
	Send(ctx context.Context, req Request, useQueryString bool) (Response, error)
}

// HTTPTransport talks to the Moodle REST endpoint (webservice/rest/server.php).
type HTTPTransport struct {
	endpoint string
	client   *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport returns a Transport for `endpoint`. A zero timeout keeps the http.Client default.
func NewHTTPTransport(endpoint string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransport) Send(ctx context.Context, req Request, useQueryString bool) (Response, error) {
	httpReq, err := t.newRequest(ctx, req, useQueryString)
	if err != nil {
		return Response{}, &core.UpstreamError{Function: req.Function, Message: "building request", Err: err}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		// *url.Error embeds the URL, which carries the token for query-string calls
		if uErr, ok := err.(*url.Error); ok {
			err = uErr.Err
		}
		return Response{}, &core.UpstreamError{
			Function: req.Function,
			Message:  ErrUnreachable.Error(),
			Err:      errors.Wrap(err, ErrUnreachable.Error()),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &core.UpstreamError{
			Function: req.Function,
			Message:  "reading Moodle response",
			Status:   resp.StatusCode,
			Err:      errors.Wrap(err, "reading body"),
		}
	}
	if !json.Valid(body) {
		return Response{}, &core.UpstreamError{
			Function: req.Function,
			Message:  ErrInvalidJSON.Error(),
			Status:   resp.StatusCode,
			Err:      ErrInvalidJSON,
		}
	}
	return Response{Status: resp.StatusCode, Body: body}, nil
}

func (t *HTTPTransport) newRequest(ctx context.Context, req Request, useQueryString bool) (*http.Request, error) {
	var (
		httpReq *http.Request
		err     error
	)
	if useQueryString {
		sep := "?"
		if strings.Contains(t.endpoint, "?") {
			sep = "&"
		}
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+sep+req.Encode(), http.NoBody)
	} else {
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(req.Encode()))
		if err == nil {
			httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	return httpReq, nil
}
