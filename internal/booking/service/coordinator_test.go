package service

import (
	"context"
	"io"
	"sort"
	"testing"
	"time"

	"evcharge/internal/booking/state"
	"evcharge/internal/booking/token"
	"evcharge/internal/booking/validator"
	"evcharge/internal/cache"
	"evcharge/pkg/config"
	apperrors "evcharge/pkg/errors"
	"evcharge/pkg/logger"
	"evcharge/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

// memStore is an in-memory cache.Store for coordinator tests.
type memStore struct {
	bookings map[string]*model.Booking
	users    map[string]*model.User
	puts     int
}

func newMemStore() *memStore {
	return &memStore{
		bookings: make(map[string]*model.Booking),
		users:    make(map[string]*model.User),
	}
}

func (m *memStore) Put(_ context.Context, b *model.Booking) error {
	copied := *b
	m.bookings[b.ID] = &copied
	m.puts++
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*model.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, apperrors.NotFoundWithID("booking", id)
	}
	copied := *b
	return &copied, nil
}

func (m *memStore) ListByUser(_ context.Context, userID string) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			copied := *b
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memStore) Update(_ context.Context, b *model.Booking) error {
	if _, ok := m.bookings[b.ID]; !ok {
		return apperrors.NotFoundWithID("booking", b.ID)
	}
	copied := *b
	m.bookings[b.ID] = &copied
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	if _, ok := m.bookings[id]; !ok {
		return apperrors.NotFoundWithID("booking", id)
	}
	delete(m.bookings, id)
	return nil
}

func (m *memStore) ListUnsynced(_ context.Context) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.Unsynced {
			copied := *b
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (m *memStore) ReplaceID(_ context.Context, localID string, synced *model.Booking) error {
	if _, ok := m.bookings[localID]; !ok {
		return apperrors.NotFoundWithID("booking", localID)
	}
	delete(m.bookings, localID)
	copied := *synced
	m.bookings[synced.ID] = &copied
	return nil
}

func (m *memStore) PutUser(_ context.Context, u *model.User) error {
	copied := *u
	m.users[u.NIC] = &copied
	return nil
}

func (m *memStore) GetUser(_ context.Context, nic string) (*model.User, error) {
	u, ok := m.users[nic]
	if !ok {
		return nil, apperrors.NotFoundWithID("user", nic)
	}
	copied := *u
	return &copied, nil
}

var _ cache.Store = (*memStore)(nil)

// mockRemote implements RemoteService with function literals.
type mockRemote struct {
	createFunc  func(ctx context.Context, b *model.Booking) (*model.Booking, error)
	updateFunc  func(ctx context.Context, id string, b *model.Booking) (*model.Booking, error)
	cancelFunc  func(ctx context.Context, id string) error
	getFunc     func(ctx context.Context, id string) (*model.Booking, error)
	listFunc    func(ctx context.Context, userID string) ([]*model.Booking, error)
	getUserFunc func(ctx context.Context, nic string) (*model.User, error)
	issueFunc   func(ctx context.Context, id string) (string, error)
	redeemFunc  func(ctx context.Context, tok string) (*model.Booking, error)
	healthy     bool
}

func (m *mockRemote) CreateBooking(ctx context.Context, b *model.Booking) (*model.Booking, error) {
	return m.createFunc(ctx, b)
}

func (m *mockRemote) UpdateBooking(ctx context.Context, id string, b *model.Booking) (*model.Booking, error) {
	return m.updateFunc(ctx, id, b)
}

func (m *mockRemote) CancelBooking(ctx context.Context, id string) error {
	return m.cancelFunc(ctx, id)
}

func (m *mockRemote) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	return m.getFunc(ctx, id)
}

func (m *mockRemote) ListBookings(ctx context.Context, userID string) ([]*model.Booking, error) {
	return m.listFunc(ctx, userID)
}

func (m *mockRemote) GetUser(ctx context.Context, nic string) (*model.User, error) {
	return m.getUserFunc(ctx, nic)
}

func (m *mockRemote) IssueCompletionToken(ctx context.Context, id string) (string, error) {
	return m.issueFunc(ctx, id)
}

func (m *mockRemote) RedeemCompletionToken(ctx context.Context, tok string) (*model.Booking, error) {
	return m.redeemFunc(ctx, tok)
}

func (m *mockRemote) Healthy(context.Context) bool { return m.healthy }

type recordPublisher struct {
	events []string
}

func (r *recordPublisher) Publish(_ context.Context, eventType string, b *model.Booking) {
	r.events = append(r.events, eventType)
}

func newTestCoordinator(store cache.Store, remote *mockRemote, pub *recordPublisher) Coordinator {
	log := logger.New(logger.Config{Output: io.Discard})
	nowFn := func() time.Time { return testNow }
	v := validator.NewBookingValidator(7*24*time.Hour, nowFn, log)
	machine := state.NewMachine(v, 12*time.Hour, nowFn, log)
	tokens := token.NewService(remote, log)
	cfg := &config.Config{Log: log}
	return NewCoordinator(store, remote, machine, tokens, pub, cfg)
}

func newBookingRequest(lead time.Duration) *model.Booking {
	start := testNow.Add(lead)
	return &model.Booking{
		UserID:      "199800501234",
		StationID:   "st-001",
		StationName: "Colombo Fort Fast Charger",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		VehicleType: "car",
		TotalCost:   12.50,
	}
}

func TestCreateOnline(t *testing.T) {
	store := newMemStore()
	pub := &recordPublisher{}
	remote := &mockRemote{
		createFunc: func(ctx context.Context, b *model.Booking) (*model.Booking, error) {
			created := *b
			created.ID = "srv-1001"
			return &created, nil
		},
	}
	coord := newTestCoordinator(store, remote, pub)

	created, err := coord.Create(context.Background(), newBookingRequest(24*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "srv-1001", created.ID)
	assert.Equal(t, model.StatusPending, created.Status)
	assert.False(t, created.Unsynced)

	cached, err := store.Get(context.Background(), "srv-1001")
	require.NoError(t, err)
	assert.False(t, cached.Unsynced)
	assert.Equal(t, []string{"booking.created"}, pub.events)
}

func TestCreateRejectedLocallyTouchesNothing(t *testing.T) {
	store := newMemStore()
	remoteCalled := false
	remote := &mockRemote{
		createFunc: func(ctx context.Context, b *model.Booking) (*model.Booking, error) {
			remoteCalled = true
			return b, nil
		},
	}
	coord := newTestCoordinator(store, remote, &recordPublisher{})

	req := newBookingRequest(10 * 24 * time.Hour) // outside the window
	_, err := coord.Create(context.Background(), req)

	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.False(t, remoteCalled)
	assert.Zero(t, store.puts)
}

func TestCreateFallsBackOffline(t *testing.T) {
	store := newMemStore()
	pub := &recordPublisher{}
	remote := &mockRemote{
		createFunc: func(ctx context.Context, b *model.Booking) (*model.Booking, error) {
			return nil, apperrors.RemoteUnavailable(context.DeadlineExceeded)
		},
	}
	coord := newTestCoordinator(store, remote, pub)

	created, err := coord.Create(context.Background(), newBookingRequest(24*time.Hour))
	require.NoError(t, err)

	assert.True(t, created.IsLocal())
	assert.True(t, created.Unsynced)

	cached, err := store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, cached.Unsynced)
	assert.Equal(t, model.StatusPending, cached.Status)
}

func TestCreateRemoteRejectionIsNotCached(t *testing.T) {
	store := newMemStore()
	remote := &mockRemote{
		createFunc: func(ctx context.Context, b *model.Booking) (*model.Booking, error) {
			return nil, apperrors.RemoteRejected("slot no longer available")
		},
	}
	coord := newTestCoordinator(store, remote, &recordPublisher{})

	_, err := coord.Create(context.Background(), newBookingRequest(24*time.Hour))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeRemoteRejected))
	assert.Zero(t, store.puts)
}

func TestEditOfflineMarksUnsynced(t *testing.T) {
	store := newMemStore()
	existing := newBookingRequest(48 * time.Hour)
	existing.ID = "srv-1001"
	existing.Status = model.StatusPending
	require.NoError(t, store.Put(context.Background(), existing))

	remote := &mockRemote{
		updateFunc: func(ctx context.Context, id string, b *model.Booking) (*model.Booking, error) {
			return nil, apperrors.RemoteUnavailable(context.DeadlineExceeded)
		},
	}
	coord := newTestCoordinator(store, remote, &recordPublisher{})

	newStart := existing.StartTime.Add(2 * time.Hour)
	newEnd := newStart.Add(time.Hour)
	edited, err := coord.Edit(context.Background(), "srv-1001", &model.BookingUpdate{StartTime: &newStart, EndTime: &newEnd})
	require.NoError(t, err)

	assert.True(t, edited.Unsynced)
	cached, _ := store.Get(context.Background(), "srv-1001")
	assert.Equal(t, newStart, cached.StartTime.In(time.UTC))
	assert.True(t, cached.Unsynced)
}

func TestEditConfirmedRejected(t *testing.T) {
	store := newMemStore()
	existing := newBookingRequest(48 * time.Hour)
	existing.ID = "srv-1001"
	existing.Status = model.StatusConfirmed
	require.NoError(t, store.Put(context.Background(), existing))

	coord := newTestCoordinator(store, &mockRemote{}, &recordPublisher{})

	_, err := coord.Edit(context.Background(), "srv-1001", &model.BookingUpdate{})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStateConflict))
}

func TestEditBlankVehicleTypeRejected(t *testing.T) {
	store := newMemStore()
	existing := newBookingRequest(48 * time.Hour)
	existing.ID = "srv-1001"
	existing.Status = model.StatusPending
	require.NoError(t, store.Put(context.Background(), existing))

	remoteCalled := false
	remote := &mockRemote{
		updateFunc: func(ctx context.Context, id string, b *model.Booking) (*model.Booking, error) {
			remoteCalled = true
			return b, nil
		},
	}
	coord := newTestCoordinator(store, remote, &recordPublisher{})

	_, err := coord.Edit(context.Background(), "srv-1001", &model.BookingUpdate{VehicleType: "   "})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.False(t, remoteCalled)

	cached, getErr := store.Get(context.Background(), "srv-1001")
	require.NoError(t, getErr)
	assert.Equal(t, "car", cached.VehicleType)
}

func TestEditSanitizesVehicleTypeBeforeValidation(t *testing.T) {
	store := newMemStore()
	existing := newBookingRequest(48 * time.Hour)
	existing.ID = "srv-1001"
	existing.Status = model.StatusPending
	require.NoError(t, store.Put(context.Background(), existing))

	var sentVehicleType string
	remote := &mockRemote{
		updateFunc: func(ctx context.Context, id string, b *model.Booking) (*model.Booking, error) {
			sentVehicleType = b.VehicleType
			return b, nil
		},
	}
	coord := newTestCoordinator(store, remote, &recordPublisher{})

	edited, err := coord.Edit(context.Background(), "srv-1001", &model.BookingUpdate{VehicleType: "  electric \t van "})
	require.NoError(t, err)

	assert.Equal(t, "electric van", sentVehicleType)
	assert.Equal(t, "electric van", edited.VehicleType)
}

func TestCancelInsideCutoffNeverCallsRemote(t *testing.T) {
	store := newMemStore()
	existing := newBookingRequest(11 * time.Hour)
	existing.ID = "srv-1001"
	existing.Status = model.StatusPending
	require.NoError(t, store.Put(context.Background(), existing))

	remoteCalled := false
	remote := &mockRemote{
		cancelFunc: func(ctx context.Context, id string) error {
			remoteCalled = true
			return nil
		},
	}
	coord := newTestCoordinator(store, remote, &recordPublisher{})

	_, err := coord.Cancel(context.Background(), "srv-1001")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeCutoffExceeded))
	assert.False(t, remoteCalled)

	cached, _ := store.Get(context.Background(), "srv-1001")
	assert.Equal(t, model.StatusPending, cached.Status)
}

func TestCancelOnline(t *testing.T) {
	store := newMemStore()
	pub := &recordPublisher{}
	existing := newBookingRequest(48 * time.Hour)
	existing.ID = "srv-1001"
	existing.Status = model.StatusConfirmed
	existing.QRToken = "EVBooking:srv-1001:a9f3c1"
	require.NoError(t, store.Put(context.Background(), existing))

	remote := &mockRemote{
		cancelFunc: func(ctx context.Context, id string) error { return nil },
	}
	coord := newTestCoordinator(store, remote, pub)

	cancelled, err := coord.Cancel(context.Background(), "srv-1001")
	require.NoError(t, err)

	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Empty(t, cancelled.QRToken)
	assert.Equal(t, []string{"booking.cancelled"}, pub.events)
}

func TestCancelTerminalBooking(t *testing.T) {
	store := newMemStore()
	existing := newBookingRequest(48 * time.Hour)
	existing.ID = "srv-1001"
	existing.Status = model.StatusCompleted
	require.NoError(t, store.Put(context.Background(), existing))

	coord := newTestCoordinator(store, &mockRemote{}, &recordPublisher{})

	_, err := coord.Cancel(context.Background(), "srv-1001")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStateConflict))
}

func TestCompleteRequiresConnectivity(t *testing.T) {
	store := newMemStore()
	remote := &mockRemote{
		redeemFunc: func(ctx context.Context, tok string) (*model.Booking, error) {
			return nil, apperrors.RemoteUnavailable(context.DeadlineExceeded)
		},
	}
	coord := newTestCoordinator(store, remote, &recordPublisher{})

	_, err := coord.Complete(context.Background(), "EVBooking:srv-1001:a9f3c1")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeRemoteUnavailable))
	assert.Zero(t, store.puts)
}

func TestCompleteMirrorsResult(t *testing.T) {
	store := newMemStore()
	pub := &recordPublisher{}
	remote := &mockRemote{
		redeemFunc: func(ctx context.Context, tok string) (*model.Booking, error) {
			return &model.Booking{ID: "srv-1001", UserID: "199800501234", Status: model.StatusCompleted}, nil
		},
	}
	coord := newTestCoordinator(store, remote, pub)

	completed, err := coord.Complete(context.Background(), "EVBooking:srv-1001:a9f3c1")
	require.NoError(t, err)
	assert.True(t, completed.IsCompleted())

	cached, err := store.Get(context.Background(), "srv-1001")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, cached.Status)
	assert.Equal(t, []string{"booking.completed"}, pub.events)
}

func TestIssueTokenRequiresSyncedConfirmedBooking(t *testing.T) {
	store := newMemStore()

	confirmed := newBookingRequest(24 * time.Hour)
	confirmed.ID = "srv-1001"
	confirmed.Status = model.StatusConfirmed
	require.NoError(t, store.Put(context.Background(), confirmed))

	pending := newBookingRequest(24 * time.Hour)
	pending.ID = "srv-1002"
	pending.Status = model.StatusPending
	require.NoError(t, store.Put(context.Background(), pending))

	local := newBookingRequest(24 * time.Hour)
	local.ID = model.NewLocalID()
	local.Status = model.StatusConfirmed
	require.NoError(t, store.Put(context.Background(), local))

	remote := &mockRemote{
		issueFunc: func(ctx context.Context, id string) (string, error) {
			return "EVBooking:" + id + ":a9f3c1", nil
		},
	}
	coord := newTestCoordinator(store, remote, &recordPublisher{})

	t.Run("confirmed synced booking gets token", func(t *testing.T) {
		tok, err := coord.IssueToken(context.Background(), "srv-1001")
		require.NoError(t, err)
		assert.Equal(t, "EVBooking:srv-1001:a9f3c1", tok)

		cached, _ := store.Get(context.Background(), "srv-1001")
		assert.Equal(t, tok, cached.QRToken)
	})

	t.Run("pending booking rejected", func(t *testing.T) {
		_, err := coord.IssueToken(context.Background(), "srv-1002")
		assert.True(t, apperrors.IsCode(err, apperrors.CodeStateConflict))
	})

	t.Run("unsynced local booking rejected", func(t *testing.T) {
		_, err := coord.IssueToken(context.Background(), local.ID)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeStateConflict))
	})
}

func TestListPrefersRemoteAndKeepsLocal(t *testing.T) {
	store := newMemStore()

	local := newBookingRequest(72 * time.Hour)
	local.ID = model.NewLocalID()
	local.Status = model.StatusPending
	local.Unsynced = true
	require.NoError(t, store.Put(context.Background(), local))

	remote := &mockRemote{
		listFunc: func(ctx context.Context, userID string) ([]*model.Booking, error) {
			return []*model.Booking{
				{ID: "srv-1001", UserID: userID, Status: model.StatusConfirmed},
			}, nil
		},
	}
	coord := newTestCoordinator(store, remote, &recordPublisher{})

	bookings, err := coord.List(context.Background(), "199800501234")
	require.NoError(t, err)
	require.Len(t, bookings, 2)

	ids := []string{bookings[0].ID, bookings[1].ID}
	assert.Contains(t, ids, "srv-1001")
	assert.Contains(t, ids, local.ID)

	// remote copy is now mirrored locally
	cached, err := store.Get(context.Background(), "srv-1001")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, cached.Status)
}

func TestListFallsBackToCache(t *testing.T) {
	store := newMemStore()
	existing := newBookingRequest(24 * time.Hour)
	existing.ID = "srv-1001"
	existing.Status = model.StatusPending
	require.NoError(t, store.Put(context.Background(), existing))

	remote := &mockRemote{
		listFunc: func(ctx context.Context, userID string) ([]*model.Booking, error) {
			return nil, apperrors.RemoteUnavailable(context.DeadlineExceeded)
		},
	}
	coord := newTestCoordinator(store, remote, &recordPublisher{})

	bookings, err := coord.List(context.Background(), "199800501234")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "srv-1001", bookings[0].ID)
}

func TestReconcileReplaysLocalCreate(t *testing.T) {
	store := newMemStore()
	pub := &recordPublisher{}

	local := newBookingRequest(48 * time.Hour)
	local.ID = model.NewLocalID()
	local.Status = model.StatusPending
	local.Unsynced = true
	require.NoError(t, store.Put(context.Background(), local))

	remote := &mockRemote{
		healthy: true,
		createFunc: func(ctx context.Context, b *model.Booking) (*model.Booking, error) {
			require.Empty(t, b.ID, "server assigns the id")
			created := *b
			created.ID = "srv-2001"
			return &created, nil
		},
	}
	coord := newTestCoordinator(store, remote, pub)

	synced, err := coord.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	_, err = store.Get(context.Background(), local.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound), "local id replaced")

	adopted, err := store.Get(context.Background(), "srv-2001")
	require.NoError(t, err)
	assert.False(t, adopted.Unsynced)
	assert.Contains(t, pub.events, "booking.synced")
}

func TestReconcileMarksRejectedRecordFailed(t *testing.T) {
	store := newMemStore()

	local := newBookingRequest(48 * time.Hour)
	local.ID = model.NewLocalID()
	local.Status = model.StatusPending
	local.Unsynced = true
	require.NoError(t, store.Put(context.Background(), local))

	remote := &mockRemote{
		healthy: true,
		createFunc: func(ctx context.Context, b *model.Booking) (*model.Booking, error) {
			return nil, apperrors.RemoteRejected("slot no longer available")
		},
	}
	coord := newTestCoordinator(store, remote, &recordPublisher{})

	synced, err := coord.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, synced)

	failed, err := store.Get(context.Background(), local.ID)
	require.NoError(t, err)
	assert.False(t, failed.Unsynced, "rejected records are not retried")
	assert.Contains(t, failed.SyncError, "slot no longer available")
}

func TestReconcileStopsWhenConnectivityDrops(t *testing.T) {
	store := newMemStore()

	first := newBookingRequest(24 * time.Hour)
	first.ID = model.NewLocalID()
	first.Status = model.StatusPending
	first.Unsynced = true
	first.UpdatedAt = testNow.Add(-2 * time.Hour)
	require.NoError(t, store.Put(context.Background(), first))

	second := newBookingRequest(48 * time.Hour)
	second.ID = model.NewLocalID()
	second.Status = model.StatusPending
	second.Unsynced = true
	second.UpdatedAt = testNow.Add(-1 * time.Hour)
	require.NoError(t, store.Put(context.Background(), second))

	calls := 0
	remote := &mockRemote{
		healthy: true,
		createFunc: func(ctx context.Context, b *model.Booking) (*model.Booking, error) {
			calls++
			if calls == 1 {
				created := *b
				created.ID = "srv-3001"
				return &created, nil
			}
			return nil, apperrors.RemoteUnavailable(context.DeadlineExceeded)
		},
	}
	coord := newTestCoordinator(store, remote, &recordPublisher{})

	synced, err := coord.Reconcile(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeRemoteUnavailable))
	assert.Equal(t, 1, synced)

	remaining, _ := store.ListUnsynced(context.Background())
	require.Len(t, remaining, 1, "the record that lost connectivity stays queued")
	assert.Empty(t, remaining[0].SyncError)
}

func TestReconcileReplaysOfflineCancel(t *testing.T) {
	store := newMemStore()

	record := newBookingRequest(48 * time.Hour)
	record.ID = "srv-1001"
	record.Status = model.StatusCancelled
	record.Unsynced = true
	require.NoError(t, store.Put(context.Background(), record))

	cancelledID := ""
	remote := &mockRemote{
		healthy: true,
		cancelFunc: func(ctx context.Context, id string) error {
			cancelledID = id
			return nil
		},
	}
	coord := newTestCoordinator(store, remote, &recordPublisher{})

	synced, err := coord.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, synced)
	assert.Equal(t, "srv-1001", cancelledID)

	cached, _ := store.Get(context.Background(), "srv-1001")
	assert.False(t, cached.Unsynced)
}

func TestReconcileSkipsWhenUnhealthy(t *testing.T) {
	store := newMemStore()
	coord := newTestCoordinator(store, &mockRemote{healthy: false}, &recordPublisher{})

	_, err := coord.Reconcile(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeRemoteUnavailable))
}

func TestCurrentUserFallsBackToRemote(t *testing.T) {
	store := newMemStore()
	remote := &mockRemote{
		getUserFunc: func(ctx context.Context, nic string) (*model.User, error) {
			return &model.User{NIC: nic, Name: "Nimal Perera", IsActive: true}, nil
		},
	}
	coord := newTestCoordinator(store, remote, &recordPublisher{})

	user, err := coord.CurrentUser(context.Background(), "199800501234v")
	require.NoError(t, err)
	assert.Equal(t, "199800501234V", user.NIC, "NIC is normalized")

	// second lookup is served from the cache
	remote.getUserFunc = func(ctx context.Context, nic string) (*model.User, error) {
		t.Fatal("remote should not be called")
		return nil, nil
	}
	cached, err := coord.CurrentUser(context.Background(), "199800501234V")
	require.NoError(t, err)
	assert.Equal(t, "Nimal Perera", cached.Name)
}

func TestStats(t *testing.T) {
	store := newMemStore()
	remote := &mockRemote{
		listFunc: func(ctx context.Context, userID string) ([]*model.Booking, error) {
			return []*model.Booking{
				{ID: "a", UserID: userID, Status: model.StatusPending},
				{ID: "b", UserID: userID, Status: model.StatusConfirmed},
				{ID: "c", UserID: userID, Status: model.StatusConfirmed},
				{ID: "d", UserID: userID, Status: model.StatusCompleted},
				{ID: "e", UserID: userID, Status: model.StatusCancelled},
			}, nil
		},
	}
	coord := newTestCoordinator(store, remote, &recordPublisher{})

	stats, err := coord.Stats(context.Background(), "199800501234")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingReservations)
	assert.Equal(t, 2, stats.ApprovedReservations)
	assert.Equal(t, 2, stats.PastBookings)
}
