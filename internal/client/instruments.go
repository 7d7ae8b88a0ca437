package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/labres-dev/labres/internal/models"
)

// ListInstruments returns the instrument catalogue
func (c *Client) ListInstruments(ctx context.Context, filter models.InstrumentFilter) ([]models.Instrument, error) {
	q := url.Values{}
	setPaging(q, filter.Skip, filter.Limit)

	var instruments []models.Instrument
	err := c.do(ctx, request{method: http.MethodGet, path: "/instruments/", query: q}, &instruments)
	if err != nil {
		return nil, err
	}
	return instruments, nil
}

// GetInstrument returns one instrument by ID
func (c *Client) GetInstrument(ctx context.Context, id int) (*models.Instrument, error) {
	var instrument models.Instrument
	err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/instruments/%d", id)}, &instrument)
	if err != nil {
		return nil, err
	}
	return &instrument, nil
}

// CreateInstrument registers a new instrument
func (c *Client) CreateInstrument(ctx context.Context, in models.InstrumentCreate) (*models.Instrument, error) {
	req, err := jsonRequest(http.MethodPost, "/instruments/", in)
	if err != nil {
		return nil, err
	}

	var instrument models.Instrument
	if err := c.do(ctx, req, &instrument); err != nil {
		return nil, err
	}
	return &instrument, nil
}

// UpdateInstrument applies a partial update to an instrument
func (c *Client) UpdateInstrument(ctx context.Context, id int, in models.InstrumentUpdate) (*models.Instrument, error) {
	req, err := jsonRequest(http.MethodPut, fmt.Sprintf("/instruments/%d", id), in)
	if err != nil {
		return nil, err
	}

	var instrument models.Instrument
	if err := c.do(ctx, req, &instrument); err != nil {
		return nil, err
	}
	return &instrument, nil
}

// DeleteInstrument removes an instrument and returns it
func (c *Client) DeleteInstrument(ctx context.Context, id int) (*models.Instrument, error) {
	var instrument models.Instrument
	err := c.do(ctx, request{method: http.MethodDelete, path: fmt.Sprintf("/instruments/%d", id)}, &instrument)
	if err != nil {
		return nil, err
	}
	return &instrument, nil
}
