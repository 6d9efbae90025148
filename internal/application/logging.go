package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContextOr(ctx, base)

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel, store and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSlotExpired):
		return "slot_expired"
	case errors.Is(err, ErrSetupRequired):
		return "setup_required"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrSnapshotUnavailable):
		return "snapshot_unavailable"
	case errors.Is(err, booking.ErrNetworkFailure):
		return "network_failure"
	case errors.Is(err, booking.ErrMalformedResponse):
		return "malformed_response"
	}

	var svcErr *booking.ServiceError
	if errors.As(err, &svcErr) {
		return "service_error"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
