package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/equipment-booking/internal/application"
	"github.com/example/equipment-booking/internal/store/memory"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("res"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("res")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// NewMemoryStore seeds an in-memory store with the fixture's settings and
// reservations. Accounts log in with plain passwords.
func (f *ServiceFactory) NewMemoryStore(fixture SnapshotFixture, accounts ...memory.Account) *memory.Store {
	return memory.New(
		memory.WithSettings(fixture.Settings()),
		memory.WithReservations(fixture.StoredReservations()),
		memory.WithAccounts(accounts...),
		memory.WithLocation(f.Clock.Location()),
		memory.WithClock(f.Clock.NowFunc()),
		memory.WithIDGenerator(f.IDGenerator.NextFunc()),
	)
}

// ServiceDeps captures dependencies for constructing the application services.
// Nil fields fall back to factory defaults.
type ServiceDeps struct {
	Store          application.Store
	Cache          application.SnapshotCache
	Setup          application.SetupAccount
	PasswordVerify application.PasswordVerifier
	EquipmentIDs   func() string
	Logger         *slog.Logger
}

// Services bundles the application services sharing one snapshot holder.
type Services struct {
	Holder   *application.SnapshotHolder
	Bookings *application.BookingService
	Settings *application.SettingsService
	Auth     *application.AuthService
	Exports  *application.ExportService
}

// NewServices wires the application services over deps.Store.
func (f *ServiceFactory) NewServices(deps ServiceDeps) *Services {
	equipmentIDs := deps.EquipmentIDs
	if equipmentIDs == nil {
		equipmentIDs = NewIDGenerator("equip").NextFunc()
	}
	holder := application.NewSnapshotHolder(nil)
	bookings := application.NewBookingServiceWithLogger(
		deps.Store,
		holder,
		deps.Cache,
		f.Clock.Location(),
		f.Clock.NowFunc(),
		deps.Logger,
	)
	settings := application.NewSettingsServiceWithLogger(deps.Store, bookings, equipmentIDs, deps.Logger)
	return &Services{
		Holder:   holder,
		Bookings: bookings,
		Settings: settings,
		Auth:     application.NewAuthServiceWithLogger(deps.Store, settings, deps.Setup, deps.PasswordVerify, deps.Logger),
		Exports:  application.NewExportServiceWithLogger(bookings, deps.Logger),
	}
}
