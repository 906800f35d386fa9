package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo"

	httputil "evcharge/pkg/http"
	"evcharge/pkg/logger"
)

// RemoteProbe reports whether the booking backend is reachable.
type RemoteProbe interface {
	Healthy(ctx context.Context) bool
}

type HealthResponse struct {
	Status string `json:"status"`
	Cache  string `json:"cache,omitempty"`
	Remote string `json:"remote,omitempty"`
}

type HealthHandler struct {
	mongoClient *mongo.Client
	remote      RemoteProbe
	log         *logger.Logger
}

func NewHealthHandler(mongoClient *mongo.Client, remote RemoteProbe, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		mongoClient: mongoClient,
		remote:      remote,
		log:         log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

// Ready reports the local cache and the remote backend separately. An
// unreachable backend does not fail readiness: the service keeps working
// from the cache. Only a broken cache makes it unready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	remoteStatus := "ok"
	if !h.remote.Healthy(ctx) {
		remoteStatus = "offline"
	}

	if err := h.mongoClient.Ping(ctx, nil); err != nil {
		h.log.Error("Cache health check failed",
			"error", err,
			"path", r.URL.Path,
		)
		if writeErr := httputil.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Cache:  "error",
			Remote: remoteStatus,
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ready",
		Cache:  "ok",
		Remote: remoteStatus,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
