package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/inventory"
	"hostel-allocation-backend/internal/model"
)

// ListHostels handles GET /api/hostels.
func (h *Handler) ListHostels(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Hostels())
}

// GetHostel handles GET /api/hostels/:hostel_id with the display summary.
func (h *Handler) GetHostel(c *gin.Context) {
	summary, err := h.engine.Summary(c.Param("hostel_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ListRooms handles GET /api/hostels/:hostel_id/rooms?floor=&status=&available=&assignable=.
// assignable keeps the rooms an approval could place a student in.
func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.engine.Rooms(c.Param("hostel_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if floor := c.Query("floor"); floor != "" {
		rooms = inventory.FilterByFloor(rooms, floor)
	}
	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseRoomStatus(raw)
		if err != nil {
			respondError(c, apperr.Validation("%v", err))
			return
		}
		rooms = inventory.FilterByStatus(rooms, status)
	}
	if raw := c.Query("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, apperr.Validation("available must be true or false"))
			return
		}
		if available {
			rooms = inventory.FilterAvailable(rooms)
		}
	}
	if raw := c.Query("assignable"); raw != "" {
		assignable, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, apperr.Validation("assignable must be true or false"))
			return
		}
		if assignable {
			rooms = inventory.Candidates(rooms)
		}
	}

	c.JSON(http.StatusOK, publicRooms(rooms))
}

// publicRoom is a room as anonymous callers see it. Occupant IDs are only
// served to admins.
type publicRoom struct {
	ID            string           `json:"id"`
	HostelID      string           `json:"hostelId"`
	Floor         string           `json:"floor"`
	RoomNumber    string           `json:"roomNumber"`
	Capacity      int              `json:"capacity"`
	Status        model.RoomStatus `json:"status"`
	OccupantCount int              `json:"occupantCount"`
}

func publicRooms(rooms []model.Room) []publicRoom {
	out := make([]publicRoom, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, publicRoom{
			ID:            r.ID,
			HostelID:      r.HostelID,
			Floor:         r.Floor,
			RoomNumber:    r.RoomNumber,
			Capacity:      r.Capacity,
			Status:        r.Status,
			OccupantCount: len(r.Occupants),
		})
	}
	return out
}

type floorResponse struct {
	Floor  string           `json:"floor"`
	Counts inventory.Counts `json:"counts"`
	Rooms  []publicRoom     `json:"rooms"`
}

// ListFloors handles GET /api/hostels/:hostel_id/floors, in first-seen floor order.
func (h *Handler) ListFloors(c *gin.Context) {
	rooms, err := h.engine.Rooms(c.Param("hostel_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	groups := inventory.GroupByFloor(rooms)
	out := make([]floorResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, floorResponse{
			Floor:  g.Floor,
			Counts: inventory.CountRooms(g.Rooms),
			Rooms:  publicRooms(g.Rooms),
		})
	}
	c.JSON(http.StatusOK, out)
}

// GetStats handles GET /api/stats.
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Stats())
}
