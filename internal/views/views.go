// Package views loads the data each routed view displays.
package views

import (
	"context"
	"fmt"
	"strconv"

	"github.com/labres-dev/labres/internal/models"
	"github.com/labres-dev/labres/internal/router"
)

// API is the subset of the backend client the views read from
type API interface {
	ListInstruments(ctx context.Context, filter models.InstrumentFilter) ([]models.Instrument, error)
	GetInstrument(ctx context.Context, id int) (*models.Instrument, error)
	ListInstrumentReservations(ctx context.Context, instrumentID int) ([]models.Reservation, error)
	ListMyReservations(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error)
	ListAllReservations(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error)
	ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, error)
}

// Query carries the optional list filters a view may apply
type Query struct {
	Reservations models.ReservationFilter
	Users        models.UserFilter
	Instruments  models.InstrumentFilter
}

// View is a loaded view ready to be rendered
type View struct {
	Component string       `json:"component" yaml:"component"`
	Path      string       `json:"path" yaml:"path"`
	User      *models.User `json:"user,omitempty" yaml:"user,omitempty"`
	Data      interface{}  `json:"data,omitempty" yaml:"data,omitempty"`
}

type Dashboard struct {
	Instruments []models.Instrument `json:"instruments" yaml:"instruments"`
}

type InstrumentDetail struct {
	Instrument   *models.Instrument   `json:"instrument" yaml:"instrument"`
	Reservations []models.Reservation `json:"reservations" yaml:"reservations"`
}

type ReservationList struct {
	Reservations []models.Reservation `json:"reservations" yaml:"reservations"`
}

type UserList struct {
	Users []models.User `json:"users" yaml:"users"`
}

type InstrumentList struct {
	Instruments []models.Instrument `json:"instruments" yaml:"instruments"`
}

// Permissions shows users and instruments side by side for granting access
type Permissions struct {
	Users       []models.User       `json:"users" yaml:"users"`
	Instruments []models.Instrument `json:"instruments" yaml:"instruments"`
}

type loader func(ctx context.Context, api API, m *router.Match, q Query) (interface{}, error)

var loaders = map[string]loader{
	router.ComponentLogin:             loadLogin,
	router.ComponentDashboard:         loadDashboard,
	router.ComponentInstrumentDetail:  loadInstrumentDetail,
	router.ComponentMyReservations:    loadMyReservations,
	router.ComponentAdminUsers:        loadAdminUsers,
	router.ComponentAdminInstruments:  loadAdminInstruments,
	router.ComponentAdminPermissions:  loadAdminPermissions,
	router.ComponentAdminReservations: loadAdminReservations,
}

// Load fetches the data for an admitted route
func Load(ctx context.Context, api API, m *router.Match, user *models.User, q Query) (*View, error) {
	load, ok := loaders[m.Component]
	if !ok {
		return nil, fmt.Errorf("no view registered for component %q", m.Component)
	}

	data, err := load(ctx, api, m, q)
	if err != nil {
		return nil, err
	}

	return &View{
		Component: m.Component,
		Path:      m.Path,
		User:      user,
		Data:      data,
	}, nil
}

func loadLogin(context.Context, API, *router.Match, Query) (interface{}, error) {
	return nil, nil
}

func loadDashboard(ctx context.Context, api API, _ *router.Match, q Query) (interface{}, error) {
	instruments, err := api.ListInstruments(ctx, q.Instruments)
	if err != nil {
		return nil, fmt.Errorf("failed to load instruments: %w", err)
	}
	return Dashboard{Instruments: instruments}, nil
}

func loadInstrumentDetail(ctx context.Context, api API, m *router.Match, _ Query) (interface{}, error) {
	id, err := strconv.Atoi(m.Param("id"))
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid instrument id %q", m.Param("id"))
	}

	instrument, err := api.GetInstrument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load instrument: %w", err)
	}

	reservations, err := api.ListInstrumentReservations(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}

	return InstrumentDetail{Instrument: instrument, Reservations: reservations}, nil
}

func loadMyReservations(ctx context.Context, api API, _ *router.Match, q Query) (interface{}, error) {
	reservations, err := api.ListMyReservations(ctx, q.Reservations)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}
	return ReservationList{Reservations: reservations}, nil
}

func loadAdminUsers(ctx context.Context, api API, _ *router.Match, q Query) (interface{}, error) {
	users, err := api.ListUsers(ctx, q.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	return UserList{Users: users}, nil
}

func loadAdminInstruments(ctx context.Context, api API, _ *router.Match, q Query) (interface{}, error) {
	instruments, err := api.ListInstruments(ctx, q.Instruments)
	if err != nil {
		return nil, fmt.Errorf("failed to load instruments: %w", err)
	}
	return InstrumentList{Instruments: instruments}, nil
}

func loadAdminPermissions(ctx context.Context, api API, _ *router.Match, q Query) (interface{}, error) {
	users, err := api.ListUsers(ctx, q.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	instruments, err := api.ListInstruments(ctx, q.Instruments)
	if err != nil {
		return nil, fmt.Errorf("failed to load instruments: %w", err)
	}

	return Permissions{Users: users, Instruments: instruments}, nil
}

func loadAdminReservations(ctx context.Context, api API, _ *router.Match, q Query) (interface{}, error) {
	reservations, err := api.ListAllReservations(ctx, q.Reservations)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}
	return ReservationList{Reservations: reservations}, nil
}
