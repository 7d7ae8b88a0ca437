package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labres-dev/labres/internal/models"
)

// ListInstrumentReservations returns every reservation on one instrument
func (c *Client) ListInstrumentReservations(ctx context.Context, instrumentID int) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/reservations/instrument/%d", instrumentID),
	}, &reservations)
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

// CreateReservation books a slot for the current user
func (c *Client) CreateReservation(ctx context.Context, in models.ReservationCreate) (*models.Reservation, error) {
	req, err := jsonRequest(http.MethodPost, "/reservations/", in)
	if err != nil {
		return nil, err
	}

	var reservation models.Reservation
	if err := c.do(ctx, req, &reservation); err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ListMyReservations returns the current user's reservations
func (c *Client) ListMyReservations(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/reservations/my-reservations",
		query:  reservationQuery(filter),
	}, &reservations)
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

// CancelReservation cancels one of the current user's reservations
func (c *Client) CancelReservation(ctx context.Context, id int) (*models.Reservation, error) {
	var reservation models.Reservation
	err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/reservations/%d", id),
	}, &reservation)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ListAllReservations returns reservations across all users (admin only)
func (c *Client) ListAllReservations(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/reservations/all",
		query:  reservationQuery(filter),
	}, &reservations)
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func reservationQuery(f models.ReservationFilter) url.Values {
	q := url.Values{}
	setPaging(q, f.Skip, f.Limit)
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.InstrumentID > 0 {
		q.Set("instrument_id", strconv.Itoa(f.InstrumentID))
	}
	if f.UserEmail != "" {
		q.Set("user_email", f.UserEmail)
	}
	if !f.StartFrom.IsZero() {
		q.Set("start_from", f.StartFrom.Format(time.RFC3339))
	}
	if !f.EndBefore.IsZero() {
		q.Set("end_before", f.EndBefore.Format(time.RFC3339))
	}
	return q
}
