// Package memory provides an in-process reservation store used for local
// development and tests. It answers the same actions as the remote store and
// performs the capacity check atomically under its lock.
package memory

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/calendar"
	"github.com/example/equipment-booking/internal/scheduler"
)

// Store messages returned in error envelopes.
const (
	MessageSlotFull          = "此時段的設備已被借完"
	MessageDuplicate         = "您已預約過此時段的此設備"
	MessageReservationAbsent = "找不到指定的預約"
	MessageLoginFailed       = "帳號或密碼錯誤"
	MessageUnknownAction     = "不支援的操作"
	MessageInvalidPayload    = "請求資料格式錯誤"
	MessageUnknownEquipment  = "找不到指定的設備"
)

// Account is a user known to the store.
type Account struct {
	Account  string
	Password string
	Name     string
	Role     string
}

// PasswordVerifier checks a stored password against a candidate.
type PasswordVerifier func(stored, candidate string) error

// Store keeps settings, reservations and accounts in memory.
type Store struct {
	mu           sync.RWMutex
	settings     booking.Settings
	reservations []scheduler.Reservation
	accounts     map[string]Account

	location    *time.Location
	now         func() time.Time
	idGenerator func() string
	verify      PasswordVerifier
}

// Option customizes a Store.
type Option func(*Store)

// WithSettings seeds the stored settings.
func WithSettings(settings booking.Settings) Option {
	return func(s *Store) { s.settings = settings.Clone() }
}

// WithReservations seeds the stored reservations.
func WithReservations(reservations []scheduler.Reservation) Option {
	return func(s *Store) { s.reservations = append([]scheduler.Reservation(nil), reservations...) }
}

// WithAccounts registers accounts for loginUser.
func WithAccounts(accounts ...Account) Option {
	return func(s *Store) {
		for _, a := range accounts {
			s.accounts[a.Account] = a
		}
	}
}

// WithLocation sets the zone used to compare reservation dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock sets the clock used for reservation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the reservation id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.idGenerator = gen
		}
	}
}

// WithPasswordVerifier replaces the plain comparison of account passwords.
func WithPasswordVerifier(verify PasswordVerifier) Option {
	return func(s *Store) {
		if verify != nil {
			s.verify = verify
		}
	}
}

// New returns a store seeded with default settings.
func New(opts ...Option) *Store {
	s := &Store{
		settings:    booking.DefaultSettings(),
		accounts:    make(map[string]Account),
		location:    time.Local,
		now:         time.Now,
		idGenerator: uuid.NewString,
		verify:      plainVerify,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchAll returns the current snapshot.
func (s *Store) FetchAll(ctx context.Context) (*booking.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", booking.ErrNetworkFailure, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return booking.NewSnapshot(s.settings, s.reservations, s.now()), nil
}

// Mutate applies one action. The payload goes through a JSON round trip so the
// store sees exactly what a remote store would receive.
func (s *Store) Mutate(ctx context.Context, request booking.MutationRequest) (booking.Response, error) {
	if err := ctx.Err(); err != nil {
		return booking.Response{}, fmt.Errorf("%w: %v", booking.ErrNetworkFailure, err)
	}
	raw, err := json.Marshal(request.Payload)
	if err != nil {
		return booking.Response{}, fmt.Errorf("memory: encode payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch request.Action {
	case booking.ActionLoginUser:
		return s.loginLocked(raw)
	case booking.ActionAddReservation:
		return s.addReservationLocked(raw)
	case booking.ActionDeleteReservation:
		return s.deleteReservationLocked(raw)
	case booking.ActionSaveSettings:
		return s.saveSettingsLocked(raw)
	default:
		return booking.Response{}, &booking.ServiceError{Message: MessageUnknownAction}
	}
}

func (s *Store) loginLocked(raw []byte) (booking.Response, error) {
	var payload booking.LoginPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return booking.Response{}, &booking.ServiceError{Message: MessageInvalidPayload}
	}
	account, ok := s.accounts[payload.Account]
	if !ok || s.verify(account.Password, payload.Password) != nil {
		return booking.Response{}, &booking.ServiceError{Message: MessageLoginFailed}
	}
	data, err := json.Marshal(booking.User{Account: account.Account, Name: account.Name, Role: account.Role})
	if err != nil {
		return booking.Response{}, err
	}
	return booking.Response{Message: "登入成功", Data: data}, nil
}

func (s *Store) addReservationLocked(raw []byte) (booking.Response, error) {
	var payload booking.AddReservationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return booking.Response{}, &booking.ServiceError{Message: MessageInvalidPayload}
	}
	day, err := calendar.NormalizeStoredDate(payload.Date, s.location)
	if err != nil {
		return booking.Response{}, &booking.ServiceError{Message: MessageInvalidPayload}
	}
	equipment, ok := s.settings.FindEquipment(payload.EquipmentID)
	if !ok {
		return booking.Response{}, &booking.ServiceError{Message: MessageUnknownEquipment}
	}

	index := scheduler.NewCapacityIndex(s.reservations, s.location)
	if _, mine := index.HeldBy(day, payload.Period, payload.EquipmentID, payload.UserID); mine {
		return booking.Response{}, &booking.ServiceError{Message: MessageDuplicate}
	}
	if index.Count(day, payload.Period, payload.EquipmentID) >= equipment.Capacity.Int() {
		return booking.Response{}, &booking.ServiceError{Message: MessageSlotFull}
	}

	s.reservations = append(s.reservations, scheduler.Reservation{
		ID:            s.idGenerator(),
		UserID:        payload.UserID,
		UserName:      payload.UserName,
		EquipmentID:   payload.EquipmentID,
		EquipmentName: payload.EquipmentName,
		Date:          day.String(),
		Period:        scheduler.Number(payload.Period),
		Timestamp:     s.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	return s.snapshotResponseLocked("預約成功")
}

func (s *Store) deleteReservationLocked(raw []byte) (booking.Response, error) {
	var payload booking.DeleteReservationPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.ID == "" {
		return booking.Response{}, &booking.ServiceError{Message: MessageInvalidPayload}
	}
	for i, r := range s.reservations {
		if r.ID != payload.ID {
			continue
		}
		kept := make([]scheduler.Reservation, 0, len(s.reservations)-1)
		kept = append(kept, s.reservations[:i]...)
		kept = append(kept, s.reservations[i+1:]...)
		s.reservations = kept
		return s.snapshotResponseLocked("預約已取消")
	}
	return booking.Response{}, &booking.ServiceError{Message: MessageReservationAbsent}
}

func (s *Store) saveSettingsLocked(raw []byte) (booking.Response, error) {
	settings, err := booking.DecodeSettings(raw)
	if err != nil {
		return booking.Response{}, &booking.ServiceError{Message: MessageInvalidPayload}
	}
	s.settings = settings
	return s.snapshotResponseLocked("設定已儲存")
}

func (s *Store) snapshotResponseLocked(message string) (booking.Response, error) {
	snap := booking.NewSnapshot(s.settings, s.reservations, s.now())
	data, err := json.Marshal(struct {
		Settings     booking.Settings        `json:"settings"`
		Reservations []scheduler.Reservation `json:"reservations"`
	}{snap.Settings, snap.Reservations})
	if err != nil {
		return booking.Response{}, err
	}
	return booking.Response{Message: message, Data: data}, nil
}

func plainVerify(stored, candidate string) error {
	if subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1 {
		return nil
	}
	return fmt.Errorf("memory: password mismatch")
}
