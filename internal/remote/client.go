package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "evcharge/pkg/errors"
	"evcharge/pkg/logger"
	"evcharge/pkg/model"
)

// Client talks to the station booking backend. It is the only component
// with network access; everything it returns is already mapped onto the
// domain error taxonomy so callers never inspect HTTP status codes.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

type response struct {
	*http.Response
	Body []byte
}

func (r *response) decodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

func (c *Client) get(ctx context.Context, path string) (*response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string, body any) (*response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) put(ctx context.Context, path string, body any) (*response, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*response, error) {
	var reqBody io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Internal("failed to marshal request body", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, apperrors.Internal("failed to create request", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.RemoteUnavailable(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.RemoteUnavailable(err)
	}

	return &response{Response: resp, Body: respBody}, nil
}

// mapError translates a non-2xx backend response into a domain error. The
// backend reports failures as {"code": ..., "message": ...}; known codes
// pass through so e.g. a server-side cutoff race surfaces exactly like a
// local cutoff rejection.
func (c *Client) mapError(resp *response) error {
	var errBody struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = resp.decodeJSON(&errBody)

	message := errBody.Message
	if message == "" {
		message = errBody.Error
	}
	if message == "" {
		message = fmt.Sprintf("remote service returned status %d", resp.StatusCode)
	}

	switch errBody.Code {
	case apperrors.CodeCutoffExceeded:
		return apperrors.CutoffExceeded(message)
	case apperrors.CodeTokenConsumed:
		return apperrors.New(apperrors.CodeTokenConsumed, message, http.StatusConflict)
	case apperrors.CodeTokenNotFound:
		return apperrors.TokenNotFound()
	case apperrors.CodeMalformedToken:
		return apperrors.MalformedToken(message)
	case apperrors.CodeStateConflict:
		return apperrors.StateConflict(message, nil)
	case apperrors.CodeValidation:
		return apperrors.Validation(message, nil)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound("booking")
	case resp.StatusCode >= http.StatusInternalServerError:
		return apperrors.RemoteUnavailable(fmt.Errorf("remote service error: %s", message))
	default:
		return apperrors.RemoteRejected(message)
	}
}

func (c *Client) decodeBooking(resp *response) (*model.Booking, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := resp.decodeJSON(&wrapper); err != nil {
		return nil, apperrors.Internal("could not decode booking response", err)
	}

	raw := wrapper.Data
	if len(raw) == 0 {
		raw = resp.Body // backend responses are not always wrapped
	}

	var booking model.Booking
	if err := json.Unmarshal(raw, &booking); err != nil {
		return nil, apperrors.Internal("could not decode booking json", err)
	}

	return &booking, nil
}

// CreateBooking registers a new reservation. The server assigns the id and
// is the sole arbiter of slot capacity.
func (c *Client) CreateBooking(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	resp, err := c.post(ctx, "/api/bookings", booking)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.mapError(resp)
	}

	return c.decodeBooking(resp)
}

// UpdateBooking replaces the mutable fields of an existing reservation.
func (c *Client) UpdateBooking(ctx context.Context, id string, booking *model.Booking) (*model.Booking, error) {
	resp, err := c.put(ctx, "/api/bookings/"+url.PathEscape(id), booking)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.mapError(resp)
	}

	return c.decodeBooking(resp)
}

// CancelBooking is a logical cancellation: the server flips the status and
// keeps the record. The server enforces the 12-hour cutoff independently.
func (c *Client) CancelBooking(ctx context.Context, id string) error {
	resp, err := c.post(ctx, "/api/bookings/"+url.PathEscape(id)+"/cancel", nil)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.mapError(resp)
	}

	return nil
}

// GetBooking fetches a single reservation by server id.
func (c *Client) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.get(ctx, "/api/bookings/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.mapError(resp)
	}

	return c.decodeBooking(resp)
}

// ListBookings returns all reservations owned by a user.
func (c *Client) ListBookings(ctx context.Context, userID string) ([]*model.Booking, error) {
	resp, err := c.get(ctx, "/api/bookings/user/"+url.PathEscape(userID))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.mapError(resp)
	}

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := resp.decodeJSON(&wrapper); err != nil {
		return nil, apperrors.Internal("could not decode booking list response", err)
	}

	raw := wrapper.Data
	if len(raw) == 0 {
		raw = resp.Body
	}

	var bookings []*model.Booking
	if err := json.Unmarshal(raw, &bookings); err != nil {
		return nil, apperrors.Internal("could not decode booking list json", err)
	}

	return bookings, nil
}

// IssueCompletionToken asks the server to mint a QR payload for a confirmed
// booking.
func (c *Client) IssueCompletionToken(ctx context.Context, id string) (string, error) {
	resp, err := c.post(ctx, "/api/bookings/"+url.PathEscape(id)+"/token", nil)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", c.mapError(resp)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := resp.decodeJSON(&body); err != nil {
		return "", apperrors.Internal("could not decode token response", err)
	}

	return body.Token, nil
}

// RedeemCompletionToken submits a scanned token for the authoritative
// completed transition.
func (c *Client) RedeemCompletionToken(ctx context.Context, token string) (*model.Booking, error) {
	resp, err := c.post(ctx, "/api/bookings/redeem", map[string]string{"token": token})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.mapError(resp)
	}

	return c.decodeBooking(resp)
}

// GetUser fetches the account profile for a NIC.
func (c *Client) GetUser(ctx context.Context, nic string) (*model.User, error) {
	resp, err := c.get(ctx, "/api/users/"+url.PathEscape(nic))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.mapError(resp)
	}

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := resp.decodeJSON(&wrapper); err != nil {
		return nil, apperrors.Internal("could not decode user response", err)
	}

	raw := wrapper.Data
	if len(raw) == 0 {
		raw = resp.Body
	}

	var user model.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, apperrors.Internal("could not decode user json", err)
	}

	return &user, nil
}

// Healthy probes the backend health endpoint. It is the connectivity signal
// the reconciler loop keys off.
func (c *Client) Healthy(ctx context.Context) bool {
	resp, err := c.get(ctx, "/health")
	if err != nil {
		return false
	}
	return resp.StatusCode == http.StatusOK
}
