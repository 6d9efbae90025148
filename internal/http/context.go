package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/logging"
)

// Identity headers set by the upstream sign-in proxy.
const (
	HeaderUserAccount = "X-User-Account"
	HeaderUserName    = "X-User-Name"
	HeaderUserRole    = "X-User-Role"
	HeaderRequestID   = "X-Request-ID"
)

type contextKey string

const (
	userContextKey          contextKey = "user"
	requestIDContextKey     contextKey = "request_id"
	slotPathContextKey      contextKey = "slot_path"
	reservationIDContextKey contextKey = "reservation_id"
)

// SlotPath is the raw date and period named by a request path. Period is empty
// for day routes.
type SlotPath struct {
	Date   string
	Period string
}

// ContextWithUser returns a derived context containing the signed-in user.
func ContextWithUser(ctx context.Context, user booking.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext extracts the signed-in user. ok is false for anonymous requests.
func UserFromContext(ctx context.Context) (booking.User, bool) {
	user, ok := ctx.Value(userContextKey).(booking.User)
	return user, ok && user.Account != ""
}

// ContextWithRequestID injects the request correlation id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestIDFromContext extracts the request correlation id.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey).(string)
	return id, ok
}

// ContextWithSlotPath injects the date and period resolved from the request path.
func ContextWithSlotPath(ctx context.Context, path SlotPath) context.Context {
	return context.WithValue(ctx, slotPathContextKey, path)
}

// SlotPathFromContext extracts the date and period previously associated with the context.
func SlotPathFromContext(ctx context.Context) (SlotPath, bool) {
	path, ok := ctx.Value(slotPathContextKey).(SlotPath)
	return path, ok
}

// ContextWithReservationID injects the reservation identifier resolved from the request path.
func ContextWithReservationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, reservationIDContextKey, id)
}

// ReservationIDFromContext extracts a reservation identifier previously associated with the context.
func ReservationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(reservationIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

func userFromHeaders(r *http.Request) booking.User {
	return booking.User{
		Account: strings.TrimSpace(r.Header.Get(HeaderUserAccount)),
		Name:    strings.TrimSpace(r.Header.Get(HeaderUserName)),
		Role:    strings.TrimSpace(r.Header.Get(HeaderUserRole)),
	}
}
