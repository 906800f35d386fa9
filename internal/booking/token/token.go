package token

import (
	"context"
	"fmt"
	"strings"

	apperrors "evcharge/pkg/errors"
	"evcharge/pkg/logger"
	"evcharge/pkg/model"
)

// Prefix identifies a completion token scanned from a booking QR code.
// The wire format is "EVBooking:<bookingID>" optionally followed by further
// colon-delimited descriptive fields (older tokens carry user and station
// ids, newer ones a nonce). Parsing only relies on the prefix and the id.
const Prefix = "EVBooking:"

// Parse extracts the booking id from a scanned token. It never touches the
// network; a string that does not carry the prefix and a non-empty id is
// rejected locally as malformed.
func Parse(token string) (string, error) {
	if !strings.HasPrefix(token, Prefix) {
		return "", apperrors.MalformedToken(fmt.Sprintf("token must start with %q", Prefix))
	}

	rest := strings.TrimPrefix(token, Prefix)
	parts := strings.Split(rest, ":")
	if parts[0] == "" {
		return "", apperrors.MalformedToken("token carries no booking id")
	}

	return parts[0], nil
}

// RemoteRedeemer is the remote-service capability the token flow depends
// on. The remote side is authoritative: it alone decides whether a token is
// still valid and performs the completed transition.
type RemoteRedeemer interface {
	IssueCompletionToken(ctx context.Context, bookingID string) (string, error)
	RedeemCompletionToken(ctx context.Context, token string) (*model.Booking, error)
}

// Service wraps token issuance and redemption. Tokens are always minted by
// the remote service; this client never fabricates one locally, because a
// locally-forged token could mark a booking complete without the server
// releasing the slot.
type Service struct {
	remote RemoteRedeemer
	logger *logger.Logger
}

func NewService(remote RemoteRedeemer, log *logger.Logger) *Service {
	return &Service{
		remote: remote,
		logger: log,
	}
}

// Issue requests a completion token for a confirmed booking.
func (s *Service) Issue(ctx context.Context, bookingID string) (string, error) {
	tok, err := s.remote.IssueCompletionToken(ctx, bookingID)
	if err != nil {
		return "", err
	}

	issuedFor, parseErr := Parse(tok)
	if parseErr != nil {
		return "", apperrors.Internal("remote service issued an unparseable token", parseErr)
	}
	if issuedFor != bookingID {
		return "", apperrors.Internal(fmt.Sprintf("remote service issued a token for booking %s, requested %s", issuedFor, bookingID), nil)
	}

	s.logger.Info("completion token issued", "booking_id", bookingID)
	return tok, nil
}

// Redeem validates a scanned token and forwards it for the authoritative
// completed transition. Malformed tokens fail before any network call;
// connectivity failures are surfaced as-is, never downgraded to a local
// completion.
func (s *Service) Redeem(ctx context.Context, scanned string) (*model.Booking, error) {
	bookingID, err := Parse(scanned)
	if err != nil {
		return nil, err
	}

	booking, err := s.remote.RedeemCompletionToken(ctx, scanned)
	if err != nil {
		s.logger.Warn("token redemption rejected",
			"booking_id", bookingID,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("booking completed via token", "booking_id", booking.ID)
	return booking, nil
}
