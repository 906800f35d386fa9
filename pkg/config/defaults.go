package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "evcharge"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRemoteBaseURL = "http://localhost:5000"
	DefaultRemoteTimeout = 10 * time.Second

	DefaultPort = "8080"

	// Reservation window and cancellation cutoff are service policy, not
	// tunables a deployment should normally touch.
	DefaultReservationWindowDays = 7
	DefaultCancelCutoffHours     = 12
	DefaultReconcileInterval     = 30 * time.Second

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLogLevel = "info"

	DefaultPaginationLimit = 100
)
