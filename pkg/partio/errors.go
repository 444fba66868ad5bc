package partio

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Error is the only error kind returned by the client. It is produced for
// every non-2xx response and for transport failures. StatusCode is 0 when no
// HTTP response was received.
type Error struct {
	// StatusCode is the HTTP status of the response, or 0 on transport failure.
	StatusCode int

	// Message is the platform's Message field when present, otherwise a
	// synthesized "HTTP <status>" or the transport failure description.
	Message string

	// Payload is the decoded error body, nil when the body was not a JSON
	// object.
	Payload map[string]interface{}

	// Response is a typed view of Payload.
	Response *ErrorResponse

	// Err is the underlying transport error, if any.
	Err error
}

// ErrorResponse is the error body returned by the platform.
type ErrorResponse struct {
	Error        string    `json:"Error,omitempty" mapstructure:"Error"`
	Message      string    `json:"Message,omitempty" mapstructure:"Message"`
	StatusCode   int       `json:"StatusCode,omitempty" mapstructure:"StatusCode"`
	TimestampUtc time.Time `json:"TimestampUtc,omitempty" mapstructure:"TimestampUtc"`
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("partio: %s: %v", e.Message, e.Err)
		}
		return "partio: " + e.Message
	}
	return fmt.Sprintf("partio: %s (status %d)", e.Message, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not a
// client error or no response was received.
func StatusCode(err error) int {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.StatusCode
	}
	return 0
}

// IsStatus reports whether err is a client error with the given status.
func IsStatus(err error, status int) bool {
	return err != nil && StatusCode(err) == status
}

// IsNotFound reports whether err is a 404 from the platform.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether err is a 401 from the platform.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// IsBadRequest reports whether err is a 400 from the platform.
func IsBadRequest(err error) bool {
	return IsStatus(err, http.StatusBadRequest)
}

// newStatusError builds the error for a non-2xx response. A body that is not a
// JSON object degrades to a synthesized message without masking the status.
func newStatusError(status int, body []byte) *Error {
	perr := &Error{
		StatusCode: status,
		Message:    fmt.Sprintf("HTTP %d", status),
	}

	var payload map[string]interface{}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil || payload == nil {
		return perr
	}
	perr.Payload = payload

	var resp ErrorResponse
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &resp,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err == nil && dec.Decode(payload) == nil {
		perr.Response = &resp
	}

	if msg, ok := payload["Message"].(string); ok && msg != "" {
		perr.Message = msg
	}
	return perr
}

func newTransportError(msg string, err error) *Error {
	return &Error{Message: msg, Err: err}
}
