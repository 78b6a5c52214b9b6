package store

import "hostel-allocation-backend/internal/model"

// InventoryItem is one room record from the provisioning feed, already normalized.
type InventoryItem struct {
	HostelName     string
	HostelGender   model.Gender
	HostelCapacity int
	WardenID       string
	// Label is the upstream display name, parsed when Floor or RoomNumber is empty.
	Label      string
	Floor      string
	RoomNumber string
	Capacity   int
	// Status only seeds newly created rooms; existing occupancy is never overwritten.
	Status model.RoomStatus
}

// Snapshot is everything the allocation engine keeps in memory.
type Snapshot struct {
	Hostels      []model.Hostel
	Rooms        []model.Room
	Applications []model.Application
}

// UpsertResult reports what an inventory upsert changed.
type UpsertResult struct {
	Hostels      int
	RoomsCreated int
	RoomsUpdated int
	Skipped      int
}
