package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/equipment-booking/internal/application"
	"github.com/example/equipment-booking/internal/booking"
)

type authService interface {
	Login(ctx context.Context, params application.LoginParams) (booking.User, error)
}

type AuthHandler struct {
	service   authService
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// Login checks an account and password and returns the signed-in user. The
// caller keeps the identity and presents it through the identity headers.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Login", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode login request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	account := strings.TrimSpace(req.Account)
	logger := h.log(r.Context(), "Login", "account", account)

	user, err := h.service.Login(r.Context(), application.LoginParams{
		Account:  account,
		Password: req.Password,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "login failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "user signed in", "role", user.Role)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, loginResponse{User: toUserDTO(user)})
}

type loginRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

type loginResponse struct {
	User userDTO `json:"user"`
}

type userDTO struct {
	Account string `json:"account"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	IsAdmin bool   `json:"isAdmin"`
}

func toUserDTO(user booking.User) userDTO {
	return userDTO{
		Account: user.Account,
		Name:    user.Name,
		Role:    user.Role,
		IsAdmin: user.IsAdmin(),
	}
}
