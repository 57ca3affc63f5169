package moodle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/trezcool/moodlegw/core"
)

// Outcome is the classification of a single Moodle response: either a success Payload or a Failure.
type Outcome struct {
	Payload json.RawMessage
	Failure *Failure
}

// Failure is a Moodle call that did not succeed.
type Failure struct {
	Message   string
	ErrorCode string
	Exception string
	Status    int
	Logical   bool // reported through an `exception` body rather than the HTTP status
	Details   json.RawMessage
}

func (o Outcome) OK() bool { return o.Failure == nil }

// Err converts the failure into the gateway's error taxonomy.
func (f *Failure) Err(function string) error {
	return &core.UpstreamError{
		Function:  function,
		Message:   f.Message,
		ErrorCode: f.ErrorCode,
		Status:    f.Status,
		Logical:   f.Logical,
		Details:   f.Details,
	}
}

// errorBody is the shape of Moodle's error responses.
type errorBody struct {
	Exception interface{} `json:"exception"`
	ErrorCode string      `json:"errorcode"`
	Message   string      `json:"message"`
}

// Normalize classifies a Moodle response.
// Moodle reports logical errors as a JSON object with an `exception` field, usually at HTTP 200:
// such a body is a Failure whatever the status. Otherwise a non-2xx status is a Failure, and
// anything else is a Success carrying the body.
func Normalize(status int, body json.RawMessage) Outcome {
	var eb errorBody
	isObject := len(bytes.TrimSpace(body)) > 0 && bytes.TrimSpace(body)[0] == '{'
	if isObject {
		_ = json.Unmarshal(body, &eb)
	}

	if isObject && truthy(eb.Exception) {
		msg := eb.Message
		if msg == "" {
			msg = "Moodle error"
		}
		exc, _ := eb.Exception.(string)
		return Outcome{Failure: &Failure{
			Message:   msg,
			ErrorCode: eb.ErrorCode,
			Exception: exc,
			Status:    status,
			Logical:   true,
			Details:   body,
		}}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		msg := eb.Message
		if msg == "" {
			msg = fmt.Sprintf("Moodle error: %d", status)
		}
		return Outcome{Failure: &Failure{
			Message:   msg,
			ErrorCode: eb.ErrorCode,
			Status:    status,
			Details:   body,
		}}
	}

	return Outcome{Payload: body}
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	default: // objects & arrays
		return true
	}
}
