package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/calendar"
	"github.com/example/equipment-booking/internal/period"
)

// CSVHeader is the column order of the reservation export.
var CSVHeader = []string{"id", "date", "period", "start", "end", "userId", "userName", "equipmentId", "equipmentName", "timestamp"}

const (
	missingPeriodLabel = "N/A"
	calendarProductID  = "-//equipment-booking//reservations//ZH-TW"
)

// ExportService renders reservations and availability for download.
type ExportService struct {
	bookings *BookingService
	logger   *slog.Logger
}

// NewExportService constructs an export service over the held snapshot.
func NewExportService(bookings *BookingService) *ExportService {
	return NewExportServiceWithLogger(bookings, nil)
}

// NewExportServiceWithLogger constructs an export service with a specified logger.
func NewExportServiceWithLogger(bookings *BookingService, logger *slog.Logger) *ExportService {
	return &ExportService{bookings: bookings, logger: defaultLogger(logger)}
}

func (s *ExportService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ExportService", operation, attrs...)
}

// AvailableMonths lists the YYYY-MM months that hold reservations, newest first.
func (s *ExportService) AvailableMonths(ctx context.Context) ([]string, error) {
	snap, err := s.bookings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, r := range snap.Reservations {
		day, err := booking.ReservationDay(r, s.bookings.Location())
		if err != nil {
			continue
		}
		seen[day.MonthKey()] = struct{}{}
	}
	months := make([]string, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months, nil
}

// CSVFilename names the export file for the selected months.
func CSVFilename(months []string) string {
	return "reservations_" + strings.Join(months, "_") + ".csv"
}

// ReservationsCSV writes reservations dated in any of months as UTF-8 CSV with
// a byte-order mark, CRLF line endings and every data field quoted.
func (s *ExportService) ReservationsCSV(ctx context.Context, w io.Writer, months []string) (err error) {
	logger := s.loggerWith(ctx, "ReservationsCSV", "months", strings.Join(months, ","))
	rows := 0
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to export reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservations exported", "rows", rows)
	}()

	selected, err := parseMonths(months)
	if err != nil {
		return err
	}
	snap, err := s.bookings.Snapshot(ctx)
	if err != nil {
		return err
	}

	out := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	if _, err = io.WriteString(out, strings.Join(CSVHeader, ",")+"\r\n"); err != nil {
		return err
	}
	for _, r := range snap.Reservations {
		day, dayErr := booking.ReservationDay(r, s.bookings.Location())
		if dayErr != nil {
			continue
		}
		if _, ok := selected[day.MonthKey()]; !ok {
			continue
		}
		start, end := missingPeriodLabel, missingPeriodLabel
		if p, ok := snap.Period(r.Period.Int()); ok {
			start, end = p.Start, p.End
		}
		record := []string{r.ID, day.String(), strconv.Itoa(r.Period.Int()), start, end, r.UserID, r.UserName, r.EquipmentID, r.EquipmentName, r.Timestamp}
		if _, err = io.WriteString(out, quoteRecord(record)); err != nil {
			return err
		}
		rows++
	}
	return out.Close()
}

func parseMonths(months []string) (map[string]struct{}, error) {
	vErr := &ValidationError{}
	if len(months) == 0 {
		vErr.add("months", "select at least one month")
		return nil, vErr
	}
	selected := make(map[string]struct{}, len(months))
	for _, m := range months {
		year, month, err := calendar.ParseMonth(strings.TrimSpace(m))
		if err != nil {
			vErr.add("months", fmt.Sprintf("invalid month %q", m))
			continue
		}
		selected[fmt.Sprintf("%04d-%02d", year, int(month))] = struct{}{}
	}
	if err := vErr.errOrNil(); err != nil {
		return nil, err
	}
	return selected, nil
}

func quoteRecord(fields []string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
	return b.String()
}

// UserCalendar writes userID's reservations as an iCalendar feed.
func (s *ExportService) UserCalendar(ctx context.Context, w io.Writer, userID string) error {
	snap, err := s.bookings.Snapshot(ctx)
	if err != nil {
		return err
	}
	loc := s.bookings.Location()
	stamp := snap.FetchedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := newCalendar(snap.Settings.SiteTitle)
	for _, r := range snap.Reservations {
		if r.UserID != userID {
			continue
		}
		day, err := booking.ReservationDay(r, loc)
		if err != nil {
			continue
		}
		p, ok := snap.Period(r.Period.Int())
		if !ok {
			continue
		}
		event := cal.AddEvent(r.ID)
		event.SetDtStampTime(stamp)
		event.SetStartAt(day.At(p.StartMinutes(), loc))
		event.SetEndAt(day.At(p.StartMinutes()+snap.Settings.AppointmentDuration.Int(), loc))
		event.SetSummary(fmt.Sprintf("%s 第 %d 節", r.EquipmentName, p.Index))
		event.SetDescription(fmt.Sprintf("%s-%s %s", p.Start, p.End, r.UserName))
	}

	s.loggerWith(ctx, "UserCalendar", "user_id", userID).DebugContext(ctx, "user calendar rendered")
	_, err = io.WriteString(w, cal.Serialize())
	return err
}

// AvailabilityCalendar writes one weekly recurring event per enabled range,
// starting from the next occurrence of its weekday.
func (s *ExportService) AvailabilityCalendar(ctx context.Context, w io.Writer) error {
	snap, err := s.bookings.Snapshot(ctx)
	if err != nil {
		return err
	}
	loc := s.bookings.Location()
	today := calendar.Today(s.bookings.now(), loc)

	cal := newCalendar(snap.Settings.SiteTitle)
	for _, day := range snap.Settings.WeeklyAvailability {
		rule := period.WeeklyRule(day)
		if rule == "" {
			continue
		}
		first := today.AddDays((int(day.DayOfWeek) - int(today.Weekday()) + 7) % 7)
		for i, r := range day.Slots {
			if !r.Valid() {
				continue
			}
			start, _ := calendar.ParseClock(r.Start)
			end, _ := calendar.ParseClock(r.End)

			event := cal.AddEvent(fmt.Sprintf("availability-%d-%d", day.DayOfWeek, i))
			event.SetDtStampTime(first.At(0, loc))
			event.SetStartAt(first.At(start, loc))
			event.SetEndAt(first.At(end, loc))
			event.SetSummary(fmt.Sprintf("開放借用 %s-%s", r.Start, r.End))
			event.AddRrule(rule)
		}
	}

	_, err = io.WriteString(w, cal.Serialize())
	return err
}

func newCalendar(name string) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetName(name)
	return cal
}
