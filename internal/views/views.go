// Package views computes display data from inventory and application snapshots.
// The functions are pure: they hold no state and never modify their inputs.
package views

import (
	"math"
	"slices"
	"time"

	"hostel-allocation-backend/internal/inventory"
	"hostel-allocation-backend/internal/model"
)

// OccupancyBand is the color band of an occupancy percentage.
type OccupancyBand string

const (
	BandLow    OccupancyBand = "low"
	BandMedium OccupancyBand = "medium"
	BandHigh   OccupancyBand = "high"
)

// OccupancyPercentage returns round(filled/total*100), or 0 when total is 0.
func OccupancyPercentage(filled, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(filled) / float64(total) * 100))
}

// Band classifies pct as low (<30), medium (<70) or high.
func Band(pct int) OccupancyBand {
	switch {
	case pct < 30:
		return BandLow
	case pct < 70:
		return BandMedium
	default:
		return BandHigh
	}
}

// HostelSummary is the per-hostel view shown on the hostel list and detail pages.
type HostelSummary struct {
	model.Hostel
	Rooms               inventory.Counts `json:"rooms"`
	OccupiedBeds        int              `json:"occupiedBeds"`
	TotalBeds           int              `json:"totalBeds"`
	OccupancyPercentage int              `json:"occupancyPercentage"`
	Band                OccupancyBand    `json:"band"`
}

// Summarize builds the summary of hostel from its rooms and applications. Rooms
// and applications belonging to other hostels are ignored.
func Summarize(hostel model.Hostel, rooms []model.Room, apps []model.Application) HostelSummary {
	own := make([]model.Room, 0, len(rooms))
	s := HostelSummary{Hostel: hostel}
	for _, r := range rooms {
		if r.HostelID != hostel.ID {
			continue
		}
		own = append(own, r)
		s.OccupiedBeds += len(r.Occupants)
		s.TotalBeds += r.Capacity
	}
	s.Rooms = inventory.CountRooms(own)

	s.AvailableRooms = max(hostel.Capacity-(s.Rooms.Total-s.Rooms.Available), 0)
	s.PendingApplications = 0
	for _, a := range apps {
		if a.HostelID == hostel.ID && a.Status == model.StatusPending {
			s.PendingApplications++
		}
	}

	s.OccupancyPercentage = OccupancyPercentage(s.Rooms.Filled, s.Rooms.Total)
	s.Band = Band(s.OccupancyPercentage)
	return s
}

// Stats is the aggregate over a set of hostels.
type Stats struct {
	Hostels             int           `json:"hostels"`
	TotalCapacity       int           `json:"totalCapacity"`
	AvailableRooms      int           `json:"availableRooms"`
	PendingApplications int           `json:"pendingApplications"`
	OccupancyPercentage int           `json:"occupancyPercentage"`
	Band                OccupancyBand `json:"band"`
}

// Aggregate sums capacity, available rooms and pending applications across hostels.
// The occupancy percentage is taken over declared capacity.
func Aggregate(hostels []model.Hostel) Stats {
	s := Stats{Hostels: len(hostels)}
	for _, h := range hostels {
		s.TotalCapacity += h.Capacity
		s.AvailableRooms += h.AvailableRooms
		s.PendingApplications += h.PendingApplications
	}
	s.OccupancyPercentage = OccupancyPercentage(s.TotalCapacity-s.AvailableRooms, s.TotalCapacity)
	s.Band = Band(s.OccupancyPercentage)
	return s
}

// SortByAppliedOn returns a copy of apps ordered by AppliedOn. Ties keep their
// input order, and apps itself is left untouched.
func SortByAppliedOn(apps []model.Application, descending bool) []model.Application {
	out := slices.Clone(apps)
	slices.SortStableFunc(out, func(a, b model.Application) int {
		c := a.AppliedOn.Compare(b.AppliedOn)
		if descending {
			return -c
		}
		return c
	})
	return out
}

// ApplicationFilter selects applications. Zero fields match everything.
type ApplicationFilter struct {
	Status    model.ApplicationStatus
	HostelID  string
	StudentID string
	Since     time.Time
}

// Match reports whether a satisfies every set field of f.
func (f ApplicationFilter) Match(a model.Application) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.HostelID != "" && a.HostelID != f.HostelID {
		return false
	}
	if f.StudentID != "" && a.StudentID != f.StudentID {
		return false
	}
	if !f.Since.IsZero() && a.AppliedOn.Before(f.Since) {
		return false
	}
	return true
}

// FilterApplications returns the applications matching f, in input order.
func FilterApplications(apps []model.Application, f ApplicationFilter) []model.Application {
	out := make([]model.Application, 0, len(apps))
	for _, a := range apps {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}
