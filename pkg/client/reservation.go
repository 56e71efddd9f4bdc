package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"reservations/pkg/model"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerUserID         = "X-User-ID"
)

// ReservationClient talks to the reservations HTTP API.
type ReservationClient struct {
	httpClient *HttpClient
}

func NewReservationClient(baseURL string) *ReservationClient {
	return &ReservationClient{
		httpClient: NewHttpClient(baseURL),
	}
}

// Reserve submits req. Admitted and rejected reservations both come back as
// an Outcome with a nil error; the error is reserved for transport failures
// and responses that carry no outcome.
func (c *ReservationClient) Reserve(ctx context.Context, req model.ReservationRequest, idempotencyKey string) (model.Outcome, error) {
	headers := map[string]string{headerUserID: req.UserID}
	if idempotencyKey != "" {
		headers[headerIdempotencyKey] = idempotencyKey
	}

	resp, err := c.httpClient.POST(ctx, "/reservations", req, headers)
	if err != nil {
		return model.Outcome{}, err
	}

	var out model.Outcome
	if err := resp.DecodeJSON(&out); err != nil || out.Status == "" {
		return model.Outcome{}, resp.AppError()
	}
	return out, nil
}

func (c *ReservationClient) Release(ctx context.Context, facility, bookingID string) error {
	path := fmt.Sprintf("/facilities/%s/bookings/%s", url.PathEscape(facility), url.PathEscape(bookingID))
	resp, err := c.httpClient.DELETE(ctx, path)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNoContent {
		return resp.AppError()
	}
	return nil
}

// FacilityStatus mirrors the server's facility snapshot.
type FacilityStatus struct {
	Name     string          `json:"name"`
	Capacity int             `json:"capacity"`
	Active   []model.Booking `json:"active"`
}

func (c *ReservationClient) Facilities(ctx context.Context) ([]FacilityStatus, error) {
	resp, err := c.httpClient.GET(ctx, "/facilities")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.AppError()
	}

	var out []FacilityStatus
	if err := resp.DecodeData(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// NextCancellation long-polls userID's cancellation notices. ok is false when
// the server's poll window ran out without one.
func (c *ReservationClient) NextCancellation(ctx context.Context, userID string) (n model.Notification, ok bool, err error) {
	resp, err := c.httpClient.GET(ctx, "/users/"+url.PathEscape(userID)+"/cancellations")
	if err != nil {
		return model.Notification{}, false, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if err := resp.DecodeData(&n); err != nil {
			return model.Notification{}, false, err
		}
		return n, true, nil
	case http.StatusNoContent:
		return model.Notification{}, false, nil
	default:
		return model.Notification{}, false, resp.AppError()
	}
}

func (c *ReservationClient) WaitForHealthy(ctx context.Context) error {
	return c.httpClient.WaitForHealthy(ctx, c.httpClient.HTTPClient.Timeout)
}
