// Package inventory answers read-only questions about a list of rooms.
// Every function is O(n) in the number of rooms and never mutates its input.
package inventory

import "hostel-allocation-backend/internal/model"

// Counts is the per-status breakdown of a room list.
type Counts struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Filled    int `json:"filled"`
	Damaged   int `json:"damaged"`
}

// FloorGroup is the set of rooms on one floor, in input order.
type FloorGroup struct {
	Floor string       `json:"floor"`
	Rooms []model.Room `json:"rooms"`
}

// FilterByFloor returns the rooms whose floor equals floor.
func FilterByFloor(rooms []model.Room, floor string) []model.Room {
	out := make([]model.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.Floor == floor {
			out = append(out, r)
		}
	}
	return out
}

// FilterByStatus returns the rooms in status.
func FilterByStatus(rooms []model.Room, status model.RoomStatus) []model.Room {
	out := make([]model.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// FilterAvailable returns the rooms for which IsAvailable holds.
func FilterAvailable(rooms []model.Room) []model.Room {
	out := make([]model.Room, 0, len(rooms))
	for _, r := range rooms {
		if IsAvailable(r) {
			out = append(out, r)
		}
	}
	return out
}

// CountRooms tallies rooms by status.
func CountRooms(rooms []model.Room) Counts {
	c := Counts{Total: len(rooms)}
	for _, r := range rooms {
		switch r.Status {
		case model.RoomAvailable:
			c.Available++
		case model.RoomFilled:
			c.Filled++
		case model.RoomDamaged:
			c.Damaged++
		}
	}
	return c
}

// GroupByFloor buckets rooms by floor. Groups appear in the order their floor is
// first seen, and rooms keep their input order within a group.
func GroupByFloor(rooms []model.Room) []FloorGroup {
	index := make(map[string]int)
	var groups []FloorGroup
	for _, r := range rooms {
		i, ok := index[r.Floor]
		if !ok {
			i = len(groups)
			index[r.Floor] = i
			groups = append(groups, FloorGroup{Floor: r.Floor})
		}
		groups[i].Rooms = append(groups[i].Rooms, r)
	}
	return groups
}

// IsAvailable reports whether the room can take another occupant right now.
// The occupant count wins when it disagrees with the stored status.
func IsAvailable(r model.Room) bool {
	return r.Status == model.RoomAvailable && len(r.Occupants) < r.Capacity
}

// Candidates returns the rooms a new occupant could be placed in: not damaged and
// with free capacity. A filled room whose occupants dropped below capacity counts.
func Candidates(rooms []model.Room) []model.Room {
	out := make([]model.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.Status != model.RoomDamaged && len(r.Occupants) < r.Capacity {
			out = append(out, r)
		}
	}
	return out
}
