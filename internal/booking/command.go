// Package booking shapes mutation requests for the reservation store and
// decodes its responses into snapshots.
package booking

import (
	"github.com/example/equipment-booking/internal/calendar"
	"github.com/example/equipment-booking/internal/scheduler"
)

// Action names a store mutation.
type Action string

const (
	ActionLoginUser         Action = "loginUser"
	ActionAddReservation    Action = "addReservation"
	ActionDeleteReservation Action = "deleteReservation"
	ActionSaveSettings      Action = "saveSettings"
)

// Role labels returned by the store for signed-in users.
const (
	RoleAdmin   = "Admin"
	RoleTeacher = "Teacher"
)

// MutationRequest is the action descriptor posted to the store.
type MutationRequest struct {
	Action  Action `json:"action"`
	Payload any    `json:"payload"`
}

// User identifies the person acting on a slot.
type User struct {
	Account string `json:"account"`
	Name    string `json:"name"`
	Role    string `json:"role"`
}

// IsAdmin reports whether the user carries the administrator role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Slot is a date, period and equipment chosen for booking.
type Slot struct {
	Date      calendar.Day
	Period    int
	Equipment scheduler.Equipment
}

// AddReservationPayload is the body of an addReservation action.
type AddReservationPayload struct {
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	EquipmentID   string `json:"equipmentId"`
	EquipmentName string `json:"equipmentName"`
	Date          string `json:"date"`
	Period        int    `json:"period"`
}

// DeleteReservationPayload is the body of a deleteReservation action.
type DeleteReservationPayload struct {
	ID string `json:"id"`
}

// LoginPayload is the body of a loginUser action.
type LoginPayload struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

// Confirm builds the request that books slot for user. Capacity is not
// checked here; the store accepts or rejects the booking.
func Confirm(user User, slot Slot) MutationRequest {
	return MutationRequest{
		Action: ActionAddReservation,
		Payload: AddReservationPayload{
			UserID:        user.Account,
			UserName:      user.Name,
			EquipmentID:   slot.Equipment.ID,
			EquipmentName: slot.Equipment.Name,
			Date:          slot.Date.String(),
			Period:        slot.Period,
		},
	}
}

// Cancel builds the request that deletes a reservation.
func Cancel(reservationID string) MutationRequest {
	return MutationRequest{
		Action:  ActionDeleteReservation,
		Payload: DeleteReservationPayload{ID: reservationID},
	}
}

// Login builds the request that verifies credentials with the store.
func Login(account, password string) MutationRequest {
	return MutationRequest{
		Action:  ActionLoginUser,
		Payload: LoginPayload{Account: account, Password: password},
	}
}

// SaveSettings builds the request that replaces the stored settings.
func SaveSettings(settings Settings) MutationRequest {
	return MutationRequest{
		Action:  ActionSaveSettings,
		Payload: settings,
	}
}
