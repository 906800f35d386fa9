package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"evcharge/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

type stubProbe struct{ healthy bool }

func (s stubProbe) Healthy(context.Context) bool { return s.healthy }

func TestHealthEndpoint(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", Format: "text"})

	// The liveness route never touches mongo, so a nil client is fine
	// here; the declaration still pins the constructor to *mongo.Client.
	var mongoClient *mongo.Client
	h := NewHealthHandler(mongoClient, stubProbe{healthy: false}, log)

	router := httprouter.New()
	h.RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
