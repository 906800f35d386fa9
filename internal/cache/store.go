package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"evcharge/pkg/config"
	mongotx "evcharge/pkg/db/mongo"
	apperrors "evcharge/pkg/errors"
	"evcharge/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	BookingsCollection = "Bookings"
	UsersCollection    = "Users"
)

// Store is the durable offline mirror of bookings and the signed-in user.
// It never calls the remote service; the sync coordinator is its only
// writer. Booking ids are strings: either server-assigned ids or temporary
// "local-" ids minted while offline.
type Store interface {
	Put(ctx context.Context, booking *model.Booking) error
	Get(ctx context.Context, id string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Booking, error)
	Update(ctx context.Context, booking *model.Booking) error
	Delete(ctx context.Context, id string) error
	ListUnsynced(ctx context.Context) ([]*model.Booking, error)
	ReplaceID(ctx context.Context, localID string, synced *model.Booking) error
	PutUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, nic string) (*model.User, error)
}

type mongoStore struct {
	cfg       *config.Config
	db        *mongo.Database
	bookings  *mongo.Collection
	users     *mongo.Collection
	txManager mongotx.TransactionManager
}

func NewMongoStore(cfg *config.Config) Store {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoStore{
		cfg:       cfg,
		db:        db,
		bookings:  db.Collection(BookingsCollection),
		users:     db.Collection(UsersCollection),
		txManager: mongotx.NewTransactionManager(cfg.Client.Mongo.Client),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// SessionContext cannot be wrapped without breaking transaction semantics, so
// inside a transaction the original context is returned with a no-op cancel.
func (s *mongoStore) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

// Put upserts a booking by id, so mirroring a remote record and persisting
// an offline-created one go through the same path.
func (s *mongoStore) Put(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := s.withTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	if booking.ID == "" {
		return apperrors.InvalidInput("booking id is required")
	}

	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	booking.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	filter := bson.M{"_id": booking.ID}
	opts := options.Replace().SetUpsert(true)

	if _, err := s.bookings.ReplaceOne(ctx, filter, booking, opts); err != nil {
		return fmt.Errorf("failed to put booking: %w", err)
	}

	return nil
}

func (s *mongoStore) Get(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := s.bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFoundWithID("booking", id)
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (s *mongoStore) ListByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := s.bookings.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (s *mongoStore) Update(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := s.withTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	booking.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	filter := bson.M{"_id": booking.ID}
	update := bson.M{
		"$set": bson.M{
			"start_time":   booking.StartTime,
			"end_time":     booking.EndTime,
			"status":       booking.Status,
			"vehicle_type": booking.VehicleType,
			"total_cost":   booking.TotalCost,
			"qr_token":     booking.QRToken,
			"unsynced":     booking.Unsynced,
			"sync_error":   booking.SyncError,
			"updated_at":   booking.UpdatedAt,
		},
	}

	result, err := s.bookings.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	if result.MatchedCount == 0 {
		return apperrors.NotFoundWithID("booking", booking.ID)
	}

	return nil
}

func (s *mongoStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	result, err := s.bookings.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	if result.DeletedCount == 0 {
		return apperrors.NotFoundWithID("booking", id)
	}

	return nil
}

// ListUnsynced returns offline-originated records awaiting replay, oldest
// first so reconciliation preserves the order the user acted in.
func (s *mongoStore) ListUnsynced(ctx context.Context) ([]*model.Booking, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}})

	cursor, err := s.bookings.Find(ctx, bson.M{"unsynced": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find unsynced bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode unsynced bookings: %w", err)
	}

	return bookings, nil
}

// ReplaceID atomically swaps an offline booking's local id for the
// server-assigned record. Delete and insert run in one transaction so a
// crash cannot leave both or neither id behind.
func (s *mongoStore) ReplaceID(ctx context.Context, localID string, synced *model.Booking) error {
	if synced.ID == "" || synced.ID == localID {
		return apperrors.InvalidInput("synced booking must carry a new server-assigned id")
	}

	return s.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		result, err := s.bookings.DeleteOne(sessCtx, bson.M{"_id": localID})
		if err != nil {
			return fmt.Errorf("failed to remove local booking: %w", err)
		}
		if result.DeletedCount == 0 {
			return apperrors.NotFoundWithID("booking", localID)
		}

		if _, err := s.bookings.InsertOne(sessCtx, synced); err != nil {
			return fmt.Errorf("failed to insert synced booking: %w", err)
		}

		return nil
	})
}

func (s *mongoStore) PutUser(ctx context.Context, user *model.User) error {
	ctx, cancel := s.withTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	if user.NIC == "" {
		return apperrors.InvalidInput("user NIC is required")
	}

	filter := bson.M{"_id": user.NIC}
	opts := options.Replace().SetUpsert(true)

	if _, err := s.users.ReplaceOne(ctx, filter, user, opts); err != nil {
		return fmt.Errorf("failed to put user: %w", err)
	}

	return nil
}

func (s *mongoStore) GetUser(ctx context.Context, nic string) (*model.User, error) {
	ctx, cancel := s.withTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	var user model.User
	err := s.users.FindOne(ctx, bson.M{"_id": nic}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFoundWithID("user", nic)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &user, nil
}
