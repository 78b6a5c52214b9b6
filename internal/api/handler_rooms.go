package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
)

// GetRoom handles GET /api/rooms/:room_id with the occupant list.
func (h *Handler) GetRoom(c *gin.Context) {
	room, err := h.engine.Room(c.Param("room_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

type roomStatusRequest struct {
	Status string `json:"status"`
}

// UpdateRoomStatus handles PATCH /api/rooms/:room_id/status.
func (h *Handler) UpdateRoomStatus(c *gin.Context) {
	var req roomStatusRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	status, err := model.ParseRoomStatus(req.Status)
	if err != nil {
		respondError(c, apperr.Validation("%v", err))
		return
	}

	room, err := h.engine.UpdateRoomStatus(c.Request.Context(), c.Param("room_id"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

type releaseRequest struct {
	StudentID string `json:"studentId"`
}

// ReleaseRoom handles POST /api/rooms/:room_id/release. Without a studentId
// every occupant is released.
func (h *Handler) ReleaseRoom(c *gin.Context) {
	var req releaseRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	room, err := h.engine.ReleaseRoom(c.Request.Context(), c.Param("room_id"), req.StudentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}
