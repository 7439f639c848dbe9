package handler

import (
	"encoding/json"
	"net/http"

	authmw "campushub/internal/auth/middleware"
	"campushub/internal/occupancy/service"
	httputil "campushub/pkg/http"
	"campushub/pkg/logger"
	"campushub/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type OccupancyHandler struct {
	service service.OccupancyService
	auth    *authmw.Middleware
	log     *logger.Logger
}

func NewOccupancyHandler(service service.OccupancyService, auth *authmw.Middleware, log *logger.Logger) *OccupancyHandler {
	return &OccupancyHandler{
		service: service,
		auth:    auth,
		log:     log,
	}
}

// StateResponse carries the document plus the derived values the main
// view renders directly.
type StateResponse struct {
	*model.OccupancyState
	Count int        `json:"count"`
	Mode  model.Mode `json:"mode"`
}

func (h *OccupancyHandler) State(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	state, err := h.service.State(r.Context())
	if err != nil {
		h.writeError(w, "State", err)
		return
	}

	if err := httputil.WriteSuccess(w, StateResponse{
		OccupancyState: state,
		Count:          state.Count(),
		Mode:           state.Mode(),
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "State", "error", err)
	}
}

func (h *OccupancyHandler) Activity(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "Activity", err)
		return
	}

	entries, total, err := h.service.Activity(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "Activity", err)
		return
	}

	if err := httputil.WritePaginated(w, entries, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Activity", "error", err)
	}
}

func (h *OccupancyHandler) CheckIn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sessionUser, _ := authmw.FromContext(r.Context())

	var req model.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadBody(w, "CheckIn")
		return
	}

	record, err := h.service.CheckIn(r.Context(), &req, sessionUser.Username)
	if err != nil {
		h.writeError(w, "CheckIn", err)
		return
	}

	if err := httputil.WriteCreated(w, record); err != nil {
		h.log.Error("failed to write created response", "handler", "CheckIn", "error", err)
	}
}

func (h *OccupancyHandler) CheckOutSingle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sessionUser, _ := authmw.FromContext(r.Context())

	if err := h.service.CheckOutSingle(r.Context(), sessionUser.Username); err != nil {
		h.writeError(w, "CheckOutSingle", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *OccupancyHandler) CheckOutGroup(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sessionUser, _ := authmw.FromContext(r.Context())
	checkInID := ps.ByName("id")

	if err := h.service.CheckOutGroup(r.Context(), checkInID, sessionUser.Username); err != nil {
		h.writeError(w, "CheckOutGroup", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *OccupancyHandler) Reserve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sessionUser, _ := authmw.FromContext(r.Context())

	var req model.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadBody(w, "Reserve")
		return
	}

	reservation, err := h.service.Reserve(r.Context(), &req, sessionUser.Username)
	if err != nil {
		h.writeError(w, "Reserve", err)
		return
	}

	if err := httputil.WriteCreated(w, reservation); err != nil {
		h.log.Error("failed to write created response", "handler", "Reserve", "error", err)
	}
}

func (h *OccupancyHandler) EndReservation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sessionUser, _ := authmw.FromContext(r.Context())

	if err := h.service.EndReservation(r.Context(), sessionUser.Username); err != nil {
		h.writeError(w, "EndReservation", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *OccupancyHandler) Reset(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := h.service.Reset(r.Context()); err != nil {
		h.writeError(w, "Reset", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *OccupancyHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/occupancy", h.auth.RequireSession(h.State))
	router.GET("/api/v1/occupancy/activity", h.auth.RequireSession(h.Activity))
	router.POST("/api/v1/occupancy/check-ins", h.auth.RequireSession(h.CheckIn))
	router.POST("/api/v1/occupancy/check-out", h.auth.RequireSession(h.CheckOutSingle))
	router.DELETE("/api/v1/occupancy/check-ins/:id", h.auth.RequireSession(h.CheckOutGroup))
	router.PUT("/api/v1/occupancy/reservation", h.auth.RequireSession(h.Reserve))
	router.DELETE("/api/v1/occupancy/reservation", h.auth.RequireSession(h.EndReservation))
	router.POST("/api/v1/occupancy/reset", h.auth.RequireAdmin(h.Reset))
}

func (h *OccupancyHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func (h *OccupancyHandler) writeBadBody(w http.ResponseWriter, handlerName string) {
	if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
		Error: "Invalid request body",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", handlerName, "error", err)
	}
}
