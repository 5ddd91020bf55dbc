package principal

import (
	"strings"
	"time"
)

// Kind discriminates the two authenticated populations. Riders and captains
// share one auth flow but live in separate namespaces: emails are unique per
// kind, and a token minted for one kind never authenticates the other.
type Kind string

const (
	KindRider   Kind = "rider"
	KindCaptain Kind = "captain"
)

// ParseKind validates a kind tag coming from an untrusted source (token claims).
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindRider:
		return KindRider, true
	case KindCaptain:
		return KindCaptain, true
	}
	return "", false
}

// Status reflects a captain's availability.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// VehicleType enumerates supported vehicle classes.
type VehicleType string

const (
	VehicleCar  VehicleType = "car"
	VehicleBike VehicleType = "bike"
	VehicleAuto VehicleType = "auto"
)

// ValidVehicleType reports whether t is one of the supported classes.
func ValidVehicleType(t VehicleType) bool {
	switch t {
	case VehicleCar, VehicleBike, VehicleAuto:
		return true
	}
	return false
}

// Vehicle describes a captain's registered vehicle.
type Vehicle struct {
	Color    string      `json:"color"`
	Plate    string      `json:"plate"`
	Capacity int         `json:"capacity"`
	Type     VehicleType `json:"vehicle_type"`
}

// Location is a live geographical point reported by a captain.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Principal is a rider or captain account. The password hash never leaves the
// process: it is excluded from JSON and only the auth package reads it.
type Principal struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	FirstName    string    `json:"firstname"`
	LastName     string    `json:"lastname,omitempty"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Status       Status    `json:"status,omitempty"`
	Vehicle      *Vehicle  `json:"vehicle,omitempty"`
	Location     *Location `json:"location,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeEmail lower-cases and trims an email before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
