package service

import (
	"context"

	"evcharge/internal/booking/events"
	"evcharge/internal/booking/state"
	"evcharge/internal/booking/token"
	"evcharge/internal/cache"
	"evcharge/pkg/config"
	apperrors "evcharge/pkg/errors"
	"evcharge/pkg/model"
	"evcharge/pkg/sanitizer"
)

// RemoteService is the station backend surface the coordinator depends on.
// Implemented by internal/remote.Client.
type RemoteService interface {
	CreateBooking(ctx context.Context, booking *model.Booking) (*model.Booking, error)
	UpdateBooking(ctx context.Context, id string, booking *model.Booking) (*model.Booking, error)
	CancelBooking(ctx context.Context, id string) error
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	ListBookings(ctx context.Context, userID string) ([]*model.Booking, error)
	GetUser(ctx context.Context, nic string) (*model.User, error)
	Healthy(ctx context.Context) bool
	token.RemoteRedeemer
}

// Coordinator is the single decision point for online versus offline
// handling. Every operation validates locally first; a request the state
// machine rejects never touches a store or the network. The offline cache
// is mutated only here.
type Coordinator interface {
	Create(ctx context.Context, booking *model.Booking) (*model.Booking, error)
	Edit(ctx context.Context, id string, update *model.BookingUpdate) (*model.Booking, error)
	Cancel(ctx context.Context, id string) (*model.Booking, error)
	IssueToken(ctx context.Context, id string) (string, error)
	Complete(ctx context.Context, scannedToken string) (*model.Booking, error)
	Get(ctx context.Context, id string) (*model.Booking, error)
	List(ctx context.Context, userID string) ([]*model.Booking, error)
	Stats(ctx context.Context, userID string) (*model.DashboardStats, error)
	CacheUser(ctx context.Context, user *model.User) error
	CurrentUser(ctx context.Context, nic string) (*model.User, error)
	Reconcile(ctx context.Context) (int, error)
}

type coordinator struct {
	store     cache.Store
	remote    RemoteService
	machine   *state.Machine
	tokens    *token.Service
	publisher events.Publisher
	cfg       *config.Config
}

func NewCoordinator(
	store cache.Store,
	remote RemoteService,
	machine *state.Machine,
	tokens *token.Service,
	publisher events.Publisher,
	cfg *config.Config,
) Coordinator {
	return &coordinator{
		store:     store,
		remote:    remote,
		machine:   machine,
		tokens:    tokens,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (c *coordinator) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	c.sanitize(booking)

	if err := c.machine.CheckCreate(booking); err != nil {
		c.cfg.Log.Warn("booking rejected locally", "error", err)
		return nil, err
	}

	created, err := c.remote.CreateBooking(ctx, booking)
	switch {
	case err == nil:
		if putErr := c.store.Put(ctx, created); putErr != nil {
			c.cfg.Log.Error("failed to mirror created booking", "id", created.ID, "error", putErr)
		}
		c.publisher.Publish(ctx, events.EventBookingCreated, created)
		c.cfg.Log.Info("booking created",
			"id", created.ID,
			"station_id", created.StationID,
			"start_time", created.StartTime,
		)
		return created, nil

	case apperrors.IsCode(err, apperrors.CodeRemoteUnavailable):
		offline := *booking
		offline.ID = model.NewLocalID()
		offline.Unsynced = true
		if putErr := c.store.Put(ctx, &offline); putErr != nil {
			return nil, apperrors.Internal("failed to store offline booking", putErr)
		}
		c.publisher.Publish(ctx, events.EventBookingCreated, &offline)
		c.cfg.Log.Info("booking created offline, pending sync",
			"id", offline.ID,
			"station_id", offline.StationID,
		)
		return &offline, nil

	default:
		c.cfg.Log.Warn("booking rejected by remote service", "error", err)
		return nil, err
	}
}

func (c *coordinator) Edit(ctx context.Context, id string, update *model.BookingUpdate) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("booking id cannot be empty")
	}

	current, err := c.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	// Sanitize the patch before validation, the same order as Create. A
	// vehicle type that sanitizes to nothing is left as-is so the
	// validator rejects it instead of it passing for an omitted field.
	patch := *update
	if s := sanitizer.SanitizeLabel(patch.VehicleType); s != "" {
		patch.VehicleType = s
	}

	edited, err := c.machine.ApplyEdit(current, &patch)
	if err != nil {
		return nil, err
	}

	// A booking that only exists locally has no server copy to update.
	if current.IsLocal() {
		edited.Unsynced = true
		if err := c.store.Update(ctx, edited); err != nil {
			return nil, err
		}
		c.publisher.Publish(ctx, events.EventBookingUpdated, edited)
		return edited, nil
	}

	updated, err := c.remote.UpdateBooking(ctx, id, edited)
	switch {
	case err == nil:
		if putErr := c.store.Put(ctx, updated); putErr != nil {
			c.cfg.Log.Error("failed to mirror updated booking", "id", id, "error", putErr)
		}
		c.publisher.Publish(ctx, events.EventBookingUpdated, updated)
		c.cfg.Log.Info("booking updated", "id", id)
		return updated, nil

	case apperrors.IsCode(err, apperrors.CodeRemoteUnavailable):
		edited.Unsynced = true
		if updErr := c.store.Update(ctx, edited); updErr != nil {
			return nil, updErr
		}
		c.publisher.Publish(ctx, events.EventBookingUpdated, edited)
		c.cfg.Log.Info("booking updated offline, pending sync", "id", id)
		return edited, nil

	default:
		return nil, err
	}
}

func (c *coordinator) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("booking id cannot be empty")
	}

	current, err := c.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.machine.CheckCancel(current); err != nil {
		return nil, err
	}

	cancelled := c.machine.ApplyCancel(current)

	// An offline-only booking never reached the server; cancelling it is a
	// purely local terminal transition with nothing left to replay.
	if current.IsLocal() {
		cancelled.Unsynced = false
		if err := c.store.Update(ctx, cancelled); err != nil {
			return nil, err
		}
		c.publisher.Publish(ctx, events.EventBookingCancelled, cancelled)
		return cancelled, nil
	}

	err = c.remote.CancelBooking(ctx, id)
	switch {
	case err == nil:
		cancelled.Unsynced = false
		if updErr := c.store.Update(ctx, cancelled); updErr != nil {
			c.cfg.Log.Error("failed to mirror cancelled booking", "id", id, "error", updErr)
		}
		c.publisher.Publish(ctx, events.EventBookingCancelled, cancelled)
		c.cfg.Log.Info("booking cancelled", "id", id)
		return cancelled, nil

	case apperrors.IsCode(err, apperrors.CodeRemoteUnavailable):
		cancelled.Unsynced = true
		if updErr := c.store.Update(ctx, cancelled); updErr != nil {
			return nil, updErr
		}
		c.publisher.Publish(ctx, events.EventBookingCancelled, cancelled)
		c.cfg.Log.Info("booking cancelled offline, pending sync", "id", id)
		return cancelled, nil

	default:
		// Server-side rejection wins: its clock decides cutoff races.
		return nil, err
	}
}

func (c *coordinator) IssueToken(ctx context.Context, id string) (string, error) {
	current, err := c.fetch(ctx, id)
	if err != nil {
		return "", err
	}

	if err := c.machine.CheckIssueToken(current); err != nil {
		return "", err
	}

	if current.IsLocal() {
		return "", apperrors.StateConflict("booking has not been synced with the server yet", nil)
	}

	tok, err := c.tokens.Issue(ctx, id)
	if err != nil {
		return "", err
	}

	current.QRToken = tok
	if err := c.store.Update(ctx, current); err != nil {
		c.cfg.Log.Error("failed to cache issued token", "id", id, "error", err)
	}

	return tok, nil
}

// Complete redeems a scanned token. The remote service is authoritative;
// there is no offline path for completion.
func (c *coordinator) Complete(ctx context.Context, scannedToken string) (*model.Booking, error) {
	completed, err := c.tokens.Redeem(ctx, scannedToken)
	if err != nil {
		return nil, err
	}

	if putErr := c.store.Put(ctx, completed); putErr != nil {
		c.cfg.Log.Error("failed to mirror completed booking", "id", completed.ID, "error", putErr)
	}
	c.publisher.Publish(ctx, events.EventBookingCompleted, completed)
	c.cfg.Log.Info("booking completed", "id", completed.ID)

	return completed, nil
}

func (c *coordinator) Get(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("booking id cannot be empty")
	}
	return c.fetch(ctx, id)
}

// List prefers the remote service as source of truth, mirroring its answer
// into the cache. Locally-originated unsynced records are appended so the
// caller sees work that has not reached the server yet.
func (c *coordinator) List(ctx context.Context, userID string) ([]*model.Booking, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id cannot be empty")
	}

	remoteBookings, err := c.remote.ListBookings(ctx, userID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeRemoteUnavailable) {
			c.cfg.Log.Debug("listing from offline cache", "user_id", userID)
			return c.store.ListByUser(ctx, userID)
		}
		return nil, err
	}

	for _, b := range remoteBookings {
		if err := c.mirror(ctx, b); err != nil {
			c.cfg.Log.Error("failed to mirror booking", "id", b.ID, "error", err)
		}
	}

	cached, err := c.store.ListByUser(ctx, userID)
	if err != nil {
		return remoteBookings, nil
	}
	for _, b := range cached {
		if b.IsLocal() && b.Unsynced {
			remoteBookings = append(remoteBookings, b)
		}
	}

	return remoteBookings, nil
}

func (c *coordinator) Stats(ctx context.Context, userID string) (*model.DashboardStats, error) {
	bookings, err := c.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := model.StatsFromBookings(bookings)
	return &stats, nil
}

func (c *coordinator) CacheUser(ctx context.Context, user *model.User) error {
	user.NIC = sanitizer.SanitizeNIC(user.NIC)
	if user.NIC == "" {
		return apperrors.InvalidInput("user NIC cannot be empty")
	}
	return c.store.PutUser(ctx, user)
}

func (c *coordinator) CurrentUser(ctx context.Context, nic string) (*model.User, error) {
	nic = sanitizer.SanitizeNIC(nic)
	if nic == "" {
		return nil, apperrors.InvalidInput("user NIC cannot be empty")
	}

	user, err := c.store.GetUser(ctx, nic)
	if err == nil {
		return user, nil
	}
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		return nil, err
	}

	user, err = c.remote.GetUser(ctx, nic)
	if err != nil {
		return nil, err
	}

	if putErr := c.store.PutUser(ctx, user); putErr != nil {
		c.cfg.Log.Error("failed to cache user", "nic", nic, "error", putErr)
	}
	return user, nil
}

// Reconcile replays offline-originated records once connectivity is back:
// local creates go up as fresh creates (adopting the server-assigned id),
// unsynced edits and cancels replay against their server id. A remote
// domain rejection marks the record failed and is never retried; a
// connectivity failure stops the pass, the loop will come back.
func (c *coordinator) Reconcile(ctx context.Context) (int, error) {
	if !c.remote.Healthy(ctx) {
		return 0, apperrors.RemoteUnavailable(nil)
	}

	pending, err := c.store.ListUnsynced(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, record := range pending {
		var replayErr error

		switch {
		case record.IsLocal():
			replayErr = c.replayCreate(ctx, record)
		case record.Status == model.StatusCancelled:
			replayErr = c.replayCancel(ctx, record)
		default:
			replayErr = c.replayUpdate(ctx, record)
		}

		if replayErr != nil {
			if apperrors.IsCode(replayErr, apperrors.CodeRemoteUnavailable) {
				return synced, replayErr
			}
			c.markFailed(ctx, record, replayErr)
			continue
		}

		synced++
	}

	if synced > 0 {
		c.cfg.Log.Info("reconciliation pass finished", "synced", synced, "pending", len(pending))
	}
	return synced, nil
}

func (c *coordinator) replayCreate(ctx context.Context, record *model.Booking) error {
	candidate := *record
	candidate.ID = "" // the server assigns the real id
	candidate.Unsynced = false
	candidate.SyncError = ""

	created, err := c.remote.CreateBooking(ctx, &candidate)
	if err != nil {
		return err
	}

	if err := c.store.ReplaceID(ctx, record.ID, created); err != nil {
		return err
	}

	c.publisher.Publish(ctx, events.EventBookingSynced, created)
	c.cfg.Log.Info("offline booking synced", "local_id", record.ID, "id", created.ID)
	return nil
}

func (c *coordinator) replayUpdate(ctx context.Context, record *model.Booking) error {
	updated, err := c.remote.UpdateBooking(ctx, record.ID, record)
	if err != nil {
		return err
	}

	updated.Unsynced = false
	updated.SyncError = ""
	if err := c.store.Put(ctx, updated); err != nil {
		return err
	}

	c.publisher.Publish(ctx, events.EventBookingSynced, updated)
	return nil
}

func (c *coordinator) replayCancel(ctx context.Context, record *model.Booking) error {
	if err := c.remote.CancelBooking(ctx, record.ID); err != nil {
		return err
	}

	record.Unsynced = false
	record.SyncError = ""
	if err := c.store.Update(ctx, record); err != nil {
		return err
	}

	c.publisher.Publish(ctx, events.EventBookingSynced, record)
	return nil
}

// markFailed records a remote rejection on the cached copy. The record
// stops being retried; the user has to act on it.
func (c *coordinator) markFailed(ctx context.Context, record *model.Booking, cause error) {
	record.Unsynced = false
	record.SyncError = cause.Error()
	if err := c.store.Update(ctx, record); err != nil {
		c.cfg.Log.Error("failed to mark booking sync failure", "id", record.ID, "error", err)
	}
	c.cfg.Log.Warn("offline booking rejected during reconciliation",
		"id", record.ID,
		"error", cause,
	)
}

// fetch reads a booking from the cache, falling back to the remote service
// for ids the cache has never seen.
func (c *coordinator) fetch(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := c.store.Get(ctx, id)
	if err == nil {
		return booking, nil
	}
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		return nil, err
	}

	booking, err = c.remote.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if putErr := c.store.Put(ctx, booking); putErr != nil {
		c.cfg.Log.Error("failed to mirror fetched booking", "id", id, "error", putErr)
	}
	return booking, nil
}

// mirror writes a remote copy into the cache without clobbering a local
// record that still has unsynced changes.
func (c *coordinator) mirror(ctx context.Context, remote *model.Booking) error {
	cached, err := c.store.Get(ctx, remote.ID)
	if err == nil && cached.Unsynced {
		return nil
	}
	if err != nil && !apperrors.IsCode(err, apperrors.CodeNotFound) {
		return err
	}
	return c.store.Put(ctx, remote)
}

func (c *coordinator) sanitize(b *model.Booking) {
	b.UserID = sanitizer.SanitizeNIC(b.UserID)
	b.StationName = sanitizer.SanitizeLabel(b.StationName)
	b.VehicleType = sanitizer.SanitizeLabel(b.VehicleType)

	// Anchor instants to UTC before they cross the wire. Times parsed from
	// JSON carry zone info; converting here keeps a wall-clock time picked
	// in a local zone from being misread as UTC.
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
}
