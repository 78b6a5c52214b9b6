package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hostel-allocation-backend/internal/logging"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/parse"
)

// Store defines the interface for all database operations.
type Store interface {
	LoadSnapshot(ctx context.Context) (Snapshot, error)
	LoadInventory(ctx context.Context) ([]model.Hostel, []model.Room, error)
	CreateApplication(ctx context.Context, app model.Application) error
	SaveApproval(ctx context.Context, app model.Application, room model.Room) error
	SaveRejection(ctx context.Context, app model.Application) error
	SaveRoom(ctx context.Context, room model.Room) error
	UpsertInventory(ctx context.Context, items []InventoryItem) (UpsertResult, error)
	CreateNotice(ctx context.Context, notice *model.Notice) error
	ListNotices(ctx context.Context, studentID string, limit int) ([]model.Notice, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// LoadSnapshot reads hostels, rooms and applications in their display order.
func (s *gormStore) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	hostels, rooms, err := s.LoadInventory(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	var apps []model.Application
	if err := s.db.WithContext(ctx).Order("applied_on, id").Find(&apps).Error; err != nil {
		return Snapshot{}, fmt.Errorf("failed to load applications: %w", err)
	}

	return Snapshot{Hostels: hostels, Rooms: rooms, Applications: apps}, nil
}

// LoadInventory reads hostels and rooms only.
func (s *gormStore) LoadInventory(ctx context.Context) ([]model.Hostel, []model.Room, error) {
	var hostels []model.Hostel
	if err := s.db.WithContext(ctx).Order("name").Find(&hostels).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load hostels: %w", err)
	}

	var rooms []model.Room
	if err := s.db.WithContext(ctx).Order("hostel_id, floor, room_number").Find(&rooms).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load rooms: %w", err)
	}
	return hostels, rooms, nil
}

// CreateApplication inserts a new application.
func (s *gormStore) CreateApplication(ctx context.Context, app model.Application) error {
	if err := s.db.WithContext(ctx).Create(&app).Error; err != nil {
		return fmt.Errorf("failed to create application %s: %w", app.ID, err)
	}
	return nil
}

// SaveApproval writes the approved application and the room that received the
// student in one transaction. Either both rows change or neither does.
func (s *gormStore) SaveApproval(ctx context.Context, app model.Application, room model.Room) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveApplication(tx, app); err != nil {
			return err
		}
		return saveRoom(tx, room)
	})
}

// SaveRejection writes a rejected application.
func (s *gormStore) SaveRejection(ctx context.Context, app model.Application) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveApplication(tx, app)
	})
}

// SaveRoom writes a room's status and occupants.
func (s *gormStore) SaveRoom(ctx context.Context, room model.Room) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveRoom(tx, room)
	})
}

func saveApplication(tx *gorm.DB, app model.Application) error {
	res := tx.Model(&model.Application{}).Where("id = ?", app.ID).Updates(map[string]any{
		"status":           app.Status,
		"room_number":      app.RoomNumber,
		"floor":            app.Floor,
		"rejection_reason": app.RejectionReason,
		"decided_on":       app.DecidedOn,
		"decided_by":       app.DecidedBy,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update application %s: %w", app.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to update application %s: %w", app.ID, gorm.ErrRecordNotFound)
	}
	return nil
}

func saveRoom(tx *gorm.DB, room model.Room) error {
	occupants := room.Occupants
	if occupants == nil {
		occupants = datatypes.JSONSlice[string]{}
	}
	res := tx.Model(&model.Room{}).Where("id = ?", room.ID).Updates(map[string]any{
		"status":    room.Status,
		"occupants": occupants,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update room %s: %w", room.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to update room %s: %w", room.ID, gorm.ErrRecordNotFound)
	}
	return nil
}

// UpsertInventory applies provisioning metadata. Hostels are matched by name and
// rooms by (hostel, floor, room number). Existing rooms only get their capacity
// updated, clamped to the occupant count, with the status recomputed in the same
// transaction. Occupants belong to the allocation engine.
func (s *gormStore) UpsertInventory(ctx context.Context, items []InventoryItem) (UpsertResult, error) {
	log := logging.WithComponent("store")
	var result UpsertResult

	resolved := make([]InventoryItem, 0, len(items))
	for _, item := range items {
		item, err := resolveItem(item)
		if err != nil {
			log.Warn().Err(err).Str("label", item.Label).Msg("skipping inventory item")
			result.Skipped++
			continue
		}
		resolved = append(resolved, item)
	}
	if len(resolved) == 0 {
		return result, nil
	}

	// Phase 1: hostels
	hostelMap, err := s.processAndSaveHostels(ctx, resolved)
	if err != nil {
		return result, fmt.Errorf("failed to process hostels: %w", err)
	}
	result.Hostels = len(hostelMap)

	existingRooms, err := s.fetchRoomsBySlot(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not pre-fetch rooms")
		existingRooms = make(map[string]model.Room)
	}

	// Phase 2: rooms
	var toCreate []model.Room
	var toUpdate []model.Room
	seen := make(map[string]bool)
	for _, item := range resolved {
		hostel, ok := hostelMap[item.HostelName]
		if !ok {
			log.Error().Str("hostel", item.HostelName).Msg("hostel missing after upsert, skipping room")
			result.Skipped++
			continue
		}
		key := slotKey(hostel.ID, item.Floor, item.RoomNumber)
		if seen[key] {
			result.Skipped++
			continue
		}
		seen[key] = true

		room, isNew, changed := prepareRoom(item, hostel.ID, existingRooms)
		if !isNew && room.Capacity > item.Capacity {
			log.Warn().
				Str("room_id", room.ID).
				Int("capacity", item.Capacity).
				Int("occupants", len(room.Occupants)).
				Msg("upstream capacity below occupancy, keeping occupant count")
		}
		switch {
		case isNew:
			toCreate = append(toCreate, room)
		case changed:
			toUpdate = append(toUpdate, room)
		}
	}

	if len(toCreate) == 0 && len(toUpdate) == 0 {
		return result, nil
	}

	log.Info().Int("create", len(toCreate)).Int("update", len(toUpdate)).Msg("upserting rooms")
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(toCreate) > 0 {
			if err := tx.Omit(clause.Associations).Create(&toCreate).Error; err != nil {
				return fmt.Errorf("batch create rooms failed: %w", err)
			}
		}
		for _, room := range toUpdate {
			if err := tx.Model(&model.Room{}).Where("id = ?", room.ID).Updates(map[string]any{
				"capacity": room.Capacity,
				"status":   room.Status,
			}).Error; err != nil {
				return fmt.Errorf("failed to update room %s: %w", room.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	result.RoomsCreated = len(toCreate)
	result.RoomsUpdated = len(toUpdate)
	return result, nil
}

// CreateNotice inserts a decision notice.
func (s *gormStore) CreateNotice(ctx context.Context, notice *model.Notice) error {
	if err := s.db.WithContext(ctx).Create(notice).Error; err != nil {
		return fmt.Errorf("failed to create notice for %s: %w", notice.StudentID, err)
	}
	return nil
}

// ListNotices returns a student's notices, newest first.
func (s *gormStore) ListNotices(ctx context.Context, studentID string, limit int) ([]model.Notice, error) {
	q := s.db.WithContext(ctx).Where("student_id = ?", studentID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var notices []model.Notice
	if err := q.Find(&notices).Error; err != nil {
		return nil, fmt.Errorf("failed to list notices for %s: %w", studentID, err)
	}
	return notices, nil
}

// --- Helpers ---

// resolveItem fills hostel, floor and room number from the label when the feed omits them.
func resolveItem(item InventoryItem) (InventoryItem, error) {
	if item.Floor == "" || item.RoomNumber == "" || item.HostelName == "" {
		label, err := parse.ParseRoomLabel(item.Label, item.Floor)
		if err != nil {
			return item, err
		}
		if item.HostelName == "" {
			item.HostelName = label.Hostel
		}
		if item.Floor == "" {
			item.Floor = label.Floor
		}
		if item.RoomNumber == "" {
			item.RoomNumber = label.Room
		}
	}
	item.HostelName = strings.TrimSpace(item.HostelName)
	if item.HostelName == "" {
		return item, fmt.Errorf("inventory item %q has no hostel", item.Label)
	}
	if item.Capacity < 1 {
		item.Capacity = 1
	}
	return item, nil
}

func (s *gormStore) processAndSaveHostels(ctx context.Context, items []InventoryItem) (map[string]model.Hostel, error) {
	hostelsToUpsert := make(map[string]model.Hostel)
	roomCounts := make(map[string]int)
	var order []string
	for _, item := range items {
		roomCounts[item.HostelName]++
		if _, exists := hostelsToUpsert[item.HostelName]; exists {
			continue
		}
		gender := item.HostelGender
		if gender == "" {
			gender = model.GenderAny
		}
		hostelsToUpsert[item.HostelName] = model.Hostel{
			ID:       uuid.NewString(),
			Name:     item.HostelName,
			Gender:   gender,
			Capacity: item.HostelCapacity,
			WardenID: item.WardenID,
		}
		order = append(order, item.HostelName)
	}

	hostelList := make([]model.Hostel, 0, len(order))
	for _, name := range order {
		h := hostelsToUpsert[name]
		// Declared capacity defaults to the number of rooms the feed lists.
		if h.Capacity <= 0 {
			h.Capacity = roomCounts[name]
		}
		hostelList = append(hostelList, h)
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"gender", "capacity", "warden_id", "updated_at"}),
	}).Create(&hostelList).Error; err != nil {
		return nil, fmt.Errorf("batch upsert hostels failed: %w", err)
	}

	var allHostels []model.Hostel
	if err := s.db.WithContext(ctx).Where("name IN ?", order).Find(&allHostels).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve hostels after upsert: %w", err)
	}

	hostelMap := make(map[string]model.Hostel, len(allHostels))
	for _, h := range allHostels {
		hostelMap[h.Name] = h
	}
	return hostelMap, nil
}

func (s *gormStore) fetchRoomsBySlot(ctx context.Context) (map[string]model.Room, error) {
	var rooms []model.Room
	if err := s.db.WithContext(ctx).Find(&rooms).Error; err != nil {
		return nil, err
	}
	roomMap := make(map[string]model.Room, len(rooms))
	for _, r := range rooms {
		roomMap[slotKey(r.HostelID, r.Floor, r.RoomNumber)] = r
	}
	return roomMap, nil
}

func slotKey(hostelID, floor, roomNumber string) string {
	return hostelID + "\x00" + floor + "\x00" + roomNumber
}

// prepareRoom builds the row for item and reports whether it is new or has changed.
// An existing room never shrinks below its occupant count, and its status follows
// the new capacity.
func prepareRoom(item InventoryItem, hostelID string, existing map[string]model.Room) (model.Room, bool, bool) {
	if old, ok := existing[slotKey(hostelID, item.Floor, item.RoomNumber)]; ok {
		next := old
		next.Capacity = max(item.Capacity, len(old.Occupants))
		next.RecomputeStatus()
		return next, false, next.Capacity != old.Capacity || next.Status != old.Status
	}

	status := model.RoomAvailable
	if item.Status == model.RoomDamaged {
		status = model.RoomDamaged
	}
	return model.Room{
		ID:         uuid.NewString(),
		HostelID:   hostelID,
		Floor:      item.Floor,
		RoomNumber: item.RoomNumber,
		Capacity:   item.Capacity,
		Status:     status,
		Occupants:  datatypes.JSONSlice[string]{},
	}, true, false
}
