package scheduler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Equipment is a bookable item. Capacity is the number of reservations it
// accepts per date and period.
type Equipment struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity Number `json:"total"`
}

// Reservation is one booking of one equipment item for a date and period.
// Date is kept exactly as stored; it may be a calendar day or a UTC instant.
type Reservation struct {
	ID            string `json:"id"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	EquipmentID   string `json:"equipmentId"`
	EquipmentName string `json:"equipmentName"`
	Date          string `json:"date"`
	Period        Number `json:"period"`
	Timestamp     string `json:"timestamp"`
}

// Number is an integer that the store may serialize either as a JSON number
// or as a numeric string.
type Number int

// Int returns n as an int.
func (n Number) Int() int {
	return int(n)
}

// UnmarshalJSON implements json.Unmarshaler. A JSON null leaves n unchanged.
func (n *Number) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		return n.parse(s)
	}
	return n.parse(string(trimmed))
}

func (n *Number) parse(s string) error {
	if v, err := strconv.Atoi(s); err == nil {
		*n = Number(v)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("scheduler: %q is not a number", s)
	}
	*n = Number(int(f))
	return nil
}
