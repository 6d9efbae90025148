package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/equipment-booking/internal/booking"
)

// SetupAdminName is the display name of the bootstrap administrator.
const SetupAdminName = "初始管理員"

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// SetupAccount is the administrator accepted while the site is in setup mode.
type SetupAccount struct {
	Account      string
	PasswordHash string
}

// LoginParams carries submitted credentials.
type LoginParams struct {
	Account  string
	Password string
}

// AuthService signs users in, either locally during setup or through the store.
type AuthService struct {
	store          Store
	settings       *SettingsService
	setup          SetupAccount
	verifyPassword PasswordVerifier
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(store Store, settings *SettingsService, setup SetupAccount, verify PasswordVerifier) *AuthService {
	return NewAuthServiceWithLogger(store, settings, setup, verify, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(store Store, settings *SettingsService, setup SetupAccount, verify PasswordVerifier, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	return &AuthService{
		store:          store,
		settings:       settings,
		setup:          setup,
		verifyPassword: verify,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Login verifies credentials. In setup mode only the setup account is accepted
// and the store is not contacted.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (user booking.User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}

	account := strings.TrimSpace(params.Account)
	logger := s.loggerWith(ctx, "Login", "account", account)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "login succeeded", "role", user.Role)
	}()

	vErr := &ValidationError{}
	if account == "" {
		vErr.add("account", "account is required")
	}
	if params.Password == "" {
		vErr.add("password", "password is required")
	}
	if err = vErr.errOrNil(); err != nil {
		return
	}

	var setupMode bool
	if setupMode, err = s.settings.SetupMode(ctx); err != nil {
		return
	}
	logger = logger.With("setup_mode", setupMode)
	if setupMode {
		user, err = s.loginSetupAdmin(account, params.Password)
		return
	}

	if s.store == nil {
		err = fmt.Errorf("store not configured")
		return
	}
	var resp booking.Response
	resp, err = s.store.Mutate(ctx, booking.Login(account, params.Password))
	if err != nil {
		var svcErr *booking.ServiceError
		if errors.As(err, &svcErr) {
			err = fmt.Errorf("%w: %s", ErrInvalidCredentials, svcErr.Message)
		}
		return
	}
	user, err = booking.DecodeUser(resp.Data)
	return
}

func (s *AuthService) loginSetupAdmin(account, password string) (booking.User, error) {
	if s.setup.Account == "" || s.setup.PasswordHash == "" {
		return booking.User{}, ErrSetupRequired
	}
	accountOK := subtle.ConstantTimeCompare([]byte(account), []byte(s.setup.Account)) == 1
	passwordErr := s.verifyPassword(s.setup.PasswordHash, password)
	if !accountOK || passwordErr != nil {
		return booking.User{}, ErrInvalidCredentials
	}
	return booking.User{Account: s.setup.Account, Name: SetupAdminName, Role: booking.RoleAdmin}, nil
}
