package handler

import (
	"encoding/json"
	"net/http"

	"evcharge/internal/booking/service"
	httputil "evcharge/pkg/http"
	"evcharge/pkg/logger"
	"evcharge/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type UserHandler struct {
	service service.Coordinator
	log     *logger.Logger
}

func NewUserHandler(service service.Coordinator, log *logger.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		log:     log,
	}
}

func (h *UserHandler) GetByNIC(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	nic := ps.ByName("nic")

	user, err := h.service.CurrentUser(r.Context(), nic)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByNIC", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, user); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByNIC", "operation", "WriteSuccess", "error", err)
	}
}

func (h *UserHandler) Cache(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var user model.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Cache", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.CacheUser(r.Context(), &user); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Cache", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *UserHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/users/:nic", h.GetByNIC)
	router.POST("/api/v1/users", h.Cache)
}
