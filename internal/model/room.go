package model

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

// Room is a unit of housing capacity within a hostel.
type Room struct {
	ID         string                      `gorm:"primaryKey;size:36" json:"id"`
	HostelID   string                      `gorm:"size:36;not null;uniqueIndex:idx_room_slot" json:"hostelId"`
	Floor      string                      `gorm:"size:16;not null;uniqueIndex:idx_room_slot" json:"floor"`
	RoomNumber string                      `gorm:"size:32;not null;uniqueIndex:idx_room_slot" json:"roomNumber"`
	Capacity   int                         `gorm:"not null" json:"capacity"`
	Status     RoomStatus                  `gorm:"size:16;not null;index" json:"status"`
	Occupants  datatypes.JSONSlice[string] `json:"occupants"`
	CreatedAt  time.Time                   `json:"createdAt"`
	UpdatedAt  time.Time                   `json:"updatedAt"`

	// Associations
	Hostel Hostel `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Clone returns a copy that shares no slice storage with r.
func (r Room) Clone() Room {
	c := r
	c.Occupants = slices.Clone(r.Occupants)
	if c.Occupants == nil {
		c.Occupants = datatypes.JSONSlice[string]{}
	}
	return c
}

// HasOccupant reports whether studentID is assigned to the room.
func (r Room) HasOccupant(studentID string) bool {
	return slices.Contains(r.Occupants, studentID)
}

// FreeBeds is the remaining capacity, never negative.
func (r Room) FreeBeds() int {
	return max(r.Capacity-len(r.Occupants), 0)
}

// RecomputeStatus sets a non-damaged room to filled at capacity and available
// otherwise. Damaged rooms keep their status.
func (r *Room) RecomputeStatus() {
	if r.Status == RoomDamaged {
		return
	}
	if len(r.Occupants) >= r.Capacity {
		r.Status = RoomFilled
	} else {
		r.Status = RoomAvailable
	}
}
