package upload

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/processlink/processlink-files-step/upload/network"
)

// Outcome is the terminal result of one upload: *Success, *APIError, *TransportError or
// *TimeoutError. The three failure variants are errors too.
type Outcome interface {
	outcome()
}

// Success is a 201 response with `ok: true`.
type Success struct {
	FileID     string
	StatusCode int
	Headers    http.Header
	// Body is the parsed JSON, or {"raw": text} when the body is not JSON.
	Body interface{}
}

// APIError is any response that is not a Success.
type APIError struct {
	StatusCode int
	Message    string
	Headers    http.Header
	Body       interface{}
}

func (e *APIError) Error() string {
	return e.Message
}

// TransportError means no response was received.
type TransportError struct {
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TimeoutError means the deadline expired and the request was aborted.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return "Request timed out"
}

func (*Success) outcome()        {}
func (*APIError) outcome()       {}
func (*TransportError) outcome() {}
func (*TimeoutError) outcome()   {}

// Interpret classifies a raw response.
func Interpret(raw network.RawResponse) Outcome {
	body := parseBody(raw.Body)

	fields, _ := body.(map[string]interface{})
	if raw.StatusCode == http.StatusCreated && fields["ok"] == true {
		fileID, _ := fields["file_id"].(string)
		return &Success{
			FileID:     fileID,
			StatusCode: raw.StatusCode,
			Headers:    raw.Headers,
			Body:       body,
		}
	}

	return &APIError{
		StatusCode: raw.StatusCode,
		Message:    errorMessage(fields, raw.StatusCode),
		Headers:    raw.Headers,
		Body:       body,
	}
}

func parseBody(data []byte) interface{} {
	text := strings.ToValidUTF8(string(data), "�")

	var parsed interface{}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return map[string]interface{}{"raw": text}
	}
	return parsed
}

func errorMessage(fields map[string]interface{}, statusCode int) string {
	for _, key := range []string{"error", "message"} {
		if s, ok := fields[key].(string); ok && s != "" {
			return s
		}
	}
	return fmt.Sprintf("HTTP %d", statusCode)
}

// transportOutcome converts a network.Client error into an Outcome.
func transportOutcome(err error) Outcome {
	var timeoutErr *network.TimeoutError
	if errors.As(err, &timeoutErr) {
		return &TimeoutError{Timeout: timeoutErr.Timeout}
	}

	var requestErr *network.RequestError
	if errors.As(err, &requestErr) {
		return &TransportError{Message: requestErr.Message, Err: requestErr.Err}
	}
	return &TransportError{Message: err.Error(), Err: err}
}
