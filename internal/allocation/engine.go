// Package allocation owns the application lifecycle and room occupancy.
//
// The Engine is the single writer of Room.Status, Room.Occupants and
// Application.Status. Every transition is computed on copies, written to the
// store, and only then swapped into memory, so a failed transition leaves both
// the database and the in-memory collections untouched.
package allocation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/cache"
	"hostel-allocation-backend/internal/logging"
	"hostel-allocation-backend/internal/metrics"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
	"hostel-allocation-backend/internal/views"
)

// Store is the persistence the engine writes through to.
type Store interface {
	LoadSnapshot(ctx context.Context) (store.Snapshot, error)
	LoadInventory(ctx context.Context) ([]model.Hostel, []model.Room, error)
	CreateApplication(ctx context.Context, app model.Application) error
	SaveApproval(ctx context.Context, app model.Application, room model.Room) error
	SaveRejection(ctx context.Context, app model.Application) error
	SaveRoom(ctx context.Context, room model.Room) error
}

// Invalidator drops cached entries derived from engine state.
type Invalidator interface {
	RemovePrefix(prefix string, tier cache.Tier) int
}

// Notifier is told about every decided application.
type Notifier interface {
	Notify(app model.Application)
}

// Options configures an Engine. Zero values pick sensible defaults.
type Options struct {
	// RejectDuplicates turns a second active submission into a ConflictError
	// instead of returning the existing application.
	RejectDuplicates bool
	Cache            Invalidator
	Notifier         Notifier
	Now              func() time.Time
	NewID            func() string
}

// Engine holds hostels, rooms and applications in memory behind one mutex.
type Engine struct {
	mu sync.Mutex

	store            Store
	cache            Invalidator
	notifier         Notifier
	now              func() time.Time
	newID            func() string
	rejectDuplicates bool
	log              zerolog.Logger

	hostels   []model.Hostel
	hostelIdx map[string]int
	rooms     []model.Room
	roomIdx   map[string]int
	apps      []model.Application
	appIdx    map[string]int
}

// New creates an empty engine. Call Load before serving requests.
func New(st Store, opts Options) *Engine {
	e := &Engine{
		store:            st,
		cache:            opts.Cache,
		notifier:         opts.Notifier,
		now:              opts.Now,
		newID:            opts.NewID,
		rejectDuplicates: opts.RejectDuplicates,
		log:              logging.WithComponent("allocation"),
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	e.setInventory(nil, nil)
	e.setApplications(nil)
	return e
}

// Load replaces all in-memory state with the store's snapshot.
func (e *Engine) Load(ctx context.Context) error {
	snap, err := e.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load allocation snapshot: %w", err)
	}

	e.mu.Lock()
	e.setInventory(snap.Hostels, snap.Rooms)
	e.setApplications(snap.Applications)
	e.updateGauges()
	e.mu.Unlock()

	e.invalidate()
	e.log.Info().
		Int("hostels", len(snap.Hostels)).
		Int("rooms", len(snap.Rooms)).
		Int("applications", len(snap.Applications)).
		Msg("allocation state loaded")
	return nil
}

// ReloadInventory refreshes hostels and rooms after a provisioning import.
// Applications are left as they are.
func (e *Engine) ReloadInventory(ctx context.Context) error {
	hostels, rooms, err := e.store.LoadInventory(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload inventory: %w", err)
	}

	e.mu.Lock()
	e.setInventory(hostels, rooms)
	e.updateGauges()
	e.mu.Unlock()

	e.invalidate()
	return nil
}

func (e *Engine) setInventory(hostels []model.Hostel, rooms []model.Room) {
	e.hostels = make([]model.Hostel, 0, len(hostels))
	e.hostelIdx = make(map[string]int, len(hostels))
	for _, h := range hostels {
		e.hostelIdx[h.ID] = len(e.hostels)
		e.hostels = append(e.hostels, h)
	}

	e.rooms = make([]model.Room, 0, len(rooms))
	e.roomIdx = make(map[string]int, len(rooms))
	for _, r := range rooms {
		e.roomIdx[r.ID] = len(e.rooms)
		e.rooms = append(e.rooms, r.Clone())
	}
}

func (e *Engine) setApplications(apps []model.Application) {
	e.apps = make([]model.Application, 0, len(apps))
	e.appIdx = make(map[string]int, len(apps))
	for _, a := range apps {
		e.appIdx[a.ID] = len(e.apps)
		e.apps = append(e.apps, a.Clone())
	}
}

// invalidate drops the hostel and stats route caches and the session entries
// of the given students.
func (e *Engine) invalidate(studentIDs ...string) {
	if e.cache == nil {
		return
	}
	e.cache.RemovePrefix(cache.RouteKey("/api/hostels"), cache.TierEphemeral)
	e.cache.RemovePrefix(cache.RouteKey("/api/stats"), cache.TierEphemeral)
	for _, id := range studentIDs {
		e.cache.RemovePrefix(cache.StudentPrefix(id), cache.TierSession)
	}
}

func (e *Engine) notify(app model.Application) {
	if e.notifier != nil {
		e.notifier.Notify(app)
	}
}

func (e *Engine) updateGauges() {
	counts := map[model.RoomStatus]int{
		model.RoomAvailable: 0,
		model.RoomFilled:    0,
		model.RoomDamaged:   0,
	}
	for _, r := range e.rooms {
		counts[r.Status]++
	}
	for status, n := range counts {
		metrics.RoomsByStatus.WithLabelValues(string(status)).Set(float64(n))
	}
}

func record(kind string, err error) {
	result := "ok"
	if err != nil {
		result = string(apperr.KindOf(err))
	}
	metrics.Transitions.WithLabelValues(kind, result).Inc()
}

// derive fills a hostel's computed fields from the current rooms and applications.
func (e *Engine) derive(h model.Hostel) model.Hostel {
	s := views.Summarize(h, e.rooms, e.apps)
	h.AvailableRooms = s.AvailableRooms
	h.PendingApplications = s.PendingApplications
	return h
}
