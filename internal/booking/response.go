package booking

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/equipment-booking/internal/scheduler"
)

var (
	// ErrNetworkFailure is returned when the store cannot be reached or answers
	// with a non-success HTTP status.
	ErrNetworkFailure = errors.New("booking: network failure")
	// ErrMalformedResponse is returned when a response body is not a valid envelope.
	ErrMalformedResponse = errors.New("booking: malformed response")
)

// StatusSuccess is the envelope status of an accepted request.
const StatusSuccess = "success"

// ServiceError reports an envelope whose status is not success.
type ServiceError struct {
	Message string
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e == nil || e.Message == "" {
		return "booking: store rejected the request"
	}
	return "booking: " + e.Message
}

// Response is a successful store envelope.
type Response struct {
	Message string
	Data    json.RawMessage
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ParseResponse decodes an envelope. A status other than success yields a
// *ServiceError carrying the store's message.
func ParseResponse(body []byte) (Response, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Status == "" {
		return Response{}, fmt.Errorf("%w: missing status", ErrMalformedResponse)
	}
	if env.Status != StatusSuccess {
		return Response{}, &ServiceError{Message: env.Message}
	}
	return Response{Message: env.Message, Data: env.Data}, nil
}

// ErrorMessage extracts the message field from a body that may or may not be
// an envelope. It is used to enrich transport errors.
func ErrorMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Message
}

// HasData reports whether the response carries a non-null payload.
func (r Response) HasData() bool {
	trimmed := bytes.TrimSpace(r.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

type snapshotData struct {
	Settings     json.RawMessage         `json:"settings"`
	Reservations []scheduler.Reservation `json:"reservations"`
}

// DecodeSnapshot reads {settings, reservations} and overlays the stored
// settings onto DefaultSettings, so omitted fields keep their defaults.
func DecodeSnapshot(data json.RawMessage, fetchedAt time.Time) (*Snapshot, error) {
	if !(Response{Data: data}).HasData() {
		return nil, fmt.Errorf("%w: empty data", ErrMalformedResponse)
	}
	var raw snapshotData
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	settings, err := DecodeSettings(raw.Settings)
	if err != nil {
		return nil, fmt.Errorf("%w: settings: %v", ErrMalformedResponse, err)
	}
	return NewSnapshot(settings, raw.Reservations, fetchedAt), nil
}

// DecodeSettings overlays stored settings onto DefaultSettings. The weekly
// availability is replaced as a whole: a stored day never inherits fields from
// the default day at the same position, and a missing isEnabled reads as false.
// Empty or null input yields the defaults.
func DecodeSettings(data []byte) (Settings, error) {
	settings := DefaultSettings()
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return settings, nil
	}
	settings.WeeklyAvailability = nil
	if err := json.Unmarshal(trimmed, &settings); err != nil {
		return Settings{}, err
	}
	if len(settings.WeeklyAvailability) == 0 {
		settings.WeeklyAvailability = DefaultSettings().WeeklyAvailability
	}
	return settings, nil
}

// DecodeUser reads the user returned by a successful loginUser action.
func DecodeUser(data json.RawMessage) (User, error) {
	if !(Response{Data: data}).HasData() {
		return User{}, fmt.Errorf("%w: empty user", ErrMalformedResponse)
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if user.Account == "" {
		return User{}, fmt.Errorf("%w: user without account", ErrMalformedResponse)
	}
	return user, nil
}
