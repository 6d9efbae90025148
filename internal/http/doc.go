// Package http provides HTTP handlers and middleware for the equipment booking API.
//
// Identity is established upstream: the Identity middleware reads the
// X-User-Account, X-User-Name and X-User-Role headers, and requests without
// an account are anonymous. The router exposes the following endpoints:
//   - POST /login: checks {"account","password"} and returns {"user"}.
//   - GET /healthz: liveness plus whether a snapshot is held.
//   - GET /snapshot, POST /snapshot/refresh: the held settings and
//     reservations, optionally reloaded from the store first.
//   - GET /periods: the generated period list.
//   - GET /calendar?month=YYYY-MM&equipment=: the month view; equipment is
//     an equipment id or "all".
//   - GET /days/{date}?equipment=: per-period statuses of one date.
//   - GET /slots/{date}/{period}: per-equipment statuses for the caller.
//   - GET /reservations?sort=&direction=: every reservation (administrators).
//   - GET /reservations/mine: the caller's reservations.
//   - POST /reservations, DELETE /reservations/{id}: confirm and cancel.
//     Both return the snapshot the store sent back.
//   - GET /settings, PUT /settings: site settings. Saving requires an
//     administrator unless the site is still in setup mode.
//   - POST /settings/ranges/next, POST /settings/ranges/copy: draft helpers
//     taking {"settings","weekday"}.
//   - GET /exports/months, GET /exports/reservations.csv?months=: CSV export
//     for administrators.
//   - GET /exports/mine.ics, GET /exports/availability.ics: iCalendar feeds.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
