package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role is the backend's user role enum
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// InstrumentStatus is passed through as the backend reports it
type InstrumentStatus string

// ReservationStatus mirrors the backend reservation status enum
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationApproved  ReservationStatus = "approved"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
	ReservationMissed    ReservationStatus = "missed"
)

// Timestamp accepts both RFC 3339 and the zone-less ISO form the backend
// emits. Zone-less values are wall-clock times in the local zone, the same
// zone reservations are entered in, and are written back without a zone.
type Timestamp struct {
	time.Time
	naive bool
}

const naiveLayout = "2006-01-02T15:04:05.999999999"

var naiveLayouts = []string{
	naiveLayout,
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*t = Timestamp{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		*t = Timestamp{Time: parsed}
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			*t = Timestamp{Time: parsed, naive: true}
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

func (t Timestamp) String() string {
	if t.naive {
		return t.Format(naiveLayout)
	}
	return t.Format(time.RFC3339Nano)
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

// MarshalYAML renders timestamps the same way as JSON
func (t Timestamp) MarshalYAML() (interface{}, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.String(), nil
}

// User is the backend's public user representation
type User struct {
	ID       int     `json:"id" yaml:"id"`
	Email    string  `json:"email" yaml:"email"`
	FullName *string `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	Role     Role    `json:"role" yaml:"role"`
	IsActive bool    `json:"is_active" yaml:"is_active"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// DisplayName returns the full name when set, otherwise the email
func (u *User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Email
}

// UserCreate is the payload for creating a user
type UserCreate struct {
	Email    string  `json:"email" yaml:"email" validate:"required,email"`
	FullName *string `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	Role     Role    `json:"role" yaml:"role" validate:"required,oneof=admin teacher student"`
	Password string  `json:"password" yaml:"password" validate:"required"`
}

// UserUpdate is the payload for updating a user; nil fields are left untouched
type UserUpdate struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	FullName *string `json:"full_name,omitempty"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=1"`
	Role     *Role   `json:"role,omitempty" validate:"omitempty,oneof=admin teacher student"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// UserBulkCreate wraps a batch of users for the bulk-create endpoint
type UserBulkCreate struct {
	Users []UserCreate `json:"users" yaml:"users" validate:"required,min=1,dive"`
}

// UserFilter holds the optional query filters for listing users
type UserFilter struct {
	Skip     int
	Limit    int
	Role     Role
	IsActive *bool
	Search   string
}

// Instrument is a reservable lab instrument
type Instrument struct {
	ID          int              `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	Model       *string          `json:"model,omitempty" yaml:"model,omitempty"`
	Location    string           `json:"location" yaml:"location"`
	Description *string          `json:"description,omitempty" yaml:"description,omitempty"`
	IPAddress   *string          `json:"ip_address,omitempty" yaml:"ip_address,omitempty"`
	MACAddress  *string          `json:"mac_address,omitempty" yaml:"mac_address,omitempty"`
	IsActive    bool             `json:"is_active" yaml:"is_active"`
	Status      InstrumentStatus `json:"status" yaml:"status"`
}

// InstrumentCreate is the payload for registering an instrument
type InstrumentCreate struct {
	Name        string  `json:"name" validate:"required"`
	Model       *string `json:"model,omitempty"`
	Location    string  `json:"location" validate:"required"`
	Description *string `json:"description,omitempty"`
	IPAddress   *string `json:"ip_address,omitempty" validate:"omitempty,ip"`
	MACAddress  *string `json:"mac_address,omitempty" validate:"omitempty,mac"`
}

// InstrumentUpdate is the payload for updating an instrument
type InstrumentUpdate struct {
	Name        *string           `json:"name,omitempty" validate:"omitempty,min=1"`
	Model       *string           `json:"model,omitempty"`
	Location    *string           `json:"location,omitempty"`
	Description *string           `json:"description,omitempty"`
	IsActive    *bool             `json:"is_active,omitempty"`
	Status      *InstrumentStatus `json:"status,omitempty"`
	IPAddress   *string           `json:"ip_address,omitempty" validate:"omitempty,ip"`
	MACAddress  *string           `json:"mac_address,omitempty" validate:"omitempty,mac"`
}

// InstrumentFilter holds paging parameters for listing instruments
type InstrumentFilter struct {
	Skip  int
	Limit int
}

// Reservation is a booked time slot on an instrument
type Reservation struct {
	ID           int               `json:"id" yaml:"id"`
	StartTime    Timestamp         `json:"start_time" yaml:"start_time"`
	EndTime      Timestamp         `json:"end_time" yaml:"end_time"`
	InstrumentID int               `json:"instrument_id" yaml:"instrument_id"`
	Status       ReservationStatus `json:"status" yaml:"status"`
	UserID       int               `json:"user_id" yaml:"user_id"`
	User         *User             `json:"user,omitempty" yaml:"user,omitempty"`
	Instrument   *Instrument       `json:"instrument,omitempty" yaml:"instrument,omitempty"`
}

// ReservationCreate is the payload for booking a slot
type ReservationCreate struct {
	StartTime    time.Time `json:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	InstrumentID int       `json:"instrument_id" validate:"required,gt=0"`
}

// ReservationFilter holds the optional query filters for reservation listings.
// InstrumentID and UserEmail are only honoured by the admin listing.
type ReservationFilter struct {
	Status       ReservationStatus
	InstrumentID int
	UserEmail    string
	StartFrom    time.Time
	EndBefore    time.Time
	Skip         int
	Limit        int
}

// PermissionGrant identifies a user/instrument pair for grant and revoke
type PermissionGrant struct {
	InstrumentID int    `json:"instrument_id" validate:"required,gt=0"`
	UserEmail    string `json:"user_email" validate:"required,email"`
}

// Token is the login response
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
