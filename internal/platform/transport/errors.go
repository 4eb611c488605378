package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnsupportedMethod = errors.New("unsupported method")
	ErrValidationFailed  = errors.New("response validation failed")
)

// HTTPError is a non-2xx response from the remote service.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg == "" {
		msg = "http error"
	}
	if strings.TrimSpace(e.Code) != "" {
		return fmt.Sprintf("http error: status=%d code=%s message=%s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("http error: status=%d message=%s", e.StatusCode, msg)
}

// StatusCode reports the HTTP status carried by err, or 0 when err did not
// come from an HTTP response (network failure, validation, ...).
func StatusCode(err error) int {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.StatusCode
	}
	return 0
}

func IsServerError(err error) bool { return StatusCode(err) >= 500 }

func IsClientError(err error) bool {
	s := StatusCode(err)
	return s >= 400 && s < 500
}

func parseHTTPError(status int, raw []byte) error {
	body := strings.TrimSpace(string(raw))

	var env struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &env); err == nil {
		var nested struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		if len(env.Error) > 0 && json.Unmarshal(env.Error, &nested) == nil && strings.TrimSpace(nested.Message) != "" {
			return &HTTPError{StatusCode: status, Message: strings.TrimSpace(nested.Message), Code: strings.TrimSpace(nested.Code), Body: body}
		}
		var plain string
		if len(env.Error) > 0 && json.Unmarshal(env.Error, &plain) == nil && strings.TrimSpace(plain) != "" {
			return &HTTPError{StatusCode: status, Message: strings.TrimSpace(plain), Body: body}
		}
		if strings.TrimSpace(env.Message) != "" {
			return &HTTPError{StatusCode: status, Message: strings.TrimSpace(env.Message), Body: body}
		}
	}
	return &HTTPError{StatusCode: status, Body: body}
}
