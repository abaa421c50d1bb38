package upload

import "net/http"

// Result is what an upload forwards downstream, whatever its outcome.
type Result struct {
	// Payload is the parsed response body, or {"error": message} when no response arrived.
	Payload    interface{}
	StatusCode int
	Headers    http.Header
	// FileID is only set on success.
	FileID string
}

// NewResult builds the forwarded Result of an Outcome.
func NewResult(o Outcome) Result {
	switch o := o.(type) {
	case *Success:
		return Result{
			Payload:    o.Body,
			StatusCode: o.StatusCode,
			Headers:    o.Headers,
			FileID:     o.FileID,
		}
	case *APIError:
		return Result{
			Payload:    o.Body,
			StatusCode: o.StatusCode,
			Headers:    o.Headers,
		}
	case *TransportError:
		return Result{Payload: map[string]interface{}{"error": o.Error()}}
	case *TimeoutError:
		return Result{Payload: map[string]interface{}{"error": o.Error()}}
	default:
		return Result{}
	}
}
