package allocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/cache"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
	"hostel-allocation-backend/internal/views"
)

// fakeStore is an in-memory Store with switchable failures.
type fakeStore struct {
	mu       sync.Mutex
	snapshot store.Snapshot
	apps     map[string]model.Application
	rooms    map[string]model.Room
	failNext error
}

func newFakeStore(snap store.Snapshot) *fakeStore {
	fs := &fakeStore{
		snapshot: snap,
		apps:     make(map[string]model.Application),
		rooms:    make(map[string]model.Room),
	}
	for _, a := range snap.Applications {
		fs.apps[a.ID] = a
	}
	for _, r := range snap.Rooms {
		fs.rooms[r.ID] = r
	}
	return fs
}

func (f *fakeStore) fail() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeStore) LoadSnapshot(ctx context.Context) (store.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot, f.fail()
}

func (f *fakeStore) LoadInventory(ctx context.Context) ([]model.Hostel, []model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot.Hostels, f.snapshot.Rooms, f.fail()
}

func (f *fakeStore) CreateApplication(ctx context.Context, app model.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.apps[app.ID] = app
	return nil
}

func (f *fakeStore) SaveApproval(ctx context.Context, app model.Application, room model.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.apps[app.ID] = app
	f.rooms[room.ID] = room
	return nil
}

func (f *fakeStore) SaveRejection(ctx context.Context, app model.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.apps[app.ID] = app
	return nil
}

func (f *fakeStore) SaveRoom(ctx context.Context, room model.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.rooms[room.ID] = room
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	apps []model.Application
}

func (n *recordingNotifier) Notify(app model.Application) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.apps = append(n.apps, app)
}

type fixture struct {
	engine   *Engine
	store    *fakeStore
	notifier *recordingNotifier
	cache    *cache.Store
}

var testClock = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

func baseSnapshot() store.Snapshot {
	return store.Snapshot{
		Hostels: []model.Hostel{
			{ID: "h1", Name: "Aravali", Gender: model.GenderMale, Capacity: 3},
			{ID: "h2", Name: "Nilgiri", Gender: model.GenderFemale, Capacity: 1},
		},
		Rooms: []model.Room{
			{ID: "r1", HostelID: "h1", Floor: "1", RoomNumber: "101", Capacity: 2, Status: model.RoomAvailable, Occupants: []string{}},
			{ID: "r2", HostelID: "h1", Floor: "1", RoomNumber: "102", Capacity: 1, Status: model.RoomFilled, Occupants: []string{"PNR-OLD"}},
			{ID: "r3", HostelID: "h1", Floor: "2", RoomNumber: "201", Capacity: 2, Status: model.RoomDamaged, Occupants: []string{}},
			{ID: "r4", HostelID: "h2", Floor: "1", RoomNumber: "101", Capacity: 1, Status: model.RoomAvailable, Occupants: []string{}},
		},
	}
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	c, err := cache.New(cache.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	fs := newFakeStore(baseSnapshot())
	n := &recordingNotifier{}

	seq := 0
	opts.Cache = c
	opts.Notifier = n
	opts.Now = func() time.Time { return testClock }
	opts.NewID = func() string {
		seq++
		return fmt.Sprintf("app-%d", seq)
	}

	e := New(fs, opts)
	require.NoError(t, e.Load(context.Background()))
	return &fixture{engine: e, store: fs, notifier: n, cache: c}
}

func (f *fixture) submit(t *testing.T, studentID string) model.Application {
	t.Helper()
	app, created, err := f.engine.Submit(context.Background(), SubmitRequest{StudentID: studentID, HostelID: "h1", Gender: model.GenderMale})
	require.NoError(t, err)
	require.True(t, created)
	return app
}

// assertInvariants checks the room and application invariants over the whole engine.
func assertInvariants(t *testing.T, e *Engine) {
	t.Helper()
	rooms, err := e.Rooms("")
	require.NoError(t, err)
	for _, r := range rooms {
		assert.LessOrEqual(t, len(r.Occupants), r.Capacity, "room %s over capacity", r.ID)
		if r.Status == model.RoomFilled {
			assert.NotEmpty(t, r.Occupants, "filled room %s has no occupants", r.ID)
		}
		if r.Status == model.RoomAvailable {
			assert.Less(t, len(r.Occupants), r.Capacity, "available room %s has no free bed", r.ID)
		}
	}

	active := make(map[string]int)
	for _, a := range e.Applications(views.ApplicationFilter{}) {
		if a.Status.Active() {
			active[a.StudentID]++
		}
		switch a.Status {
		case model.StatusApproved:
			assert.NotEmpty(t, a.RoomNumber)
			assert.Empty(t, a.RejectionReason)
		case model.StatusRejected:
			assert.Empty(t, a.RoomNumber)
			assert.NotEmpty(t, a.RejectionReason)
		case model.StatusPending:
			assert.Empty(t, a.RoomNumber)
			assert.Empty(t, a.RejectionReason)
		}
	}
	for student, n := range active {
		assert.Equal(t, 1, n, "student %s has %d active applications", student, n)
	}
}

func TestEngine_CapacityTwoScenario(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	a1 := f.submit(t, "PNR1")
	a2 := f.submit(t, "PNR2")
	a3 := f.submit(t, "PNR3")

	first, err := f.engine.Approve(ctx, a1.ID, "101", "1", "warden")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, first.Application.Status)
	assert.Equal(t, "101", first.Application.RoomNumber)
	assert.Equal(t, "1", first.Application.Floor)
	assert.Len(t, first.Room.Occupants, 1)
	assert.Equal(t, model.RoomAvailable, first.Room.Status, "room keeps a free bed")

	second, err := f.engine.Approve(ctx, a2.ID, "101", "1", "warden")
	require.NoError(t, err)
	assert.Equal(t, []string{"PNR1", "PNR2"}, []string(second.Room.Occupants))
	assert.Equal(t, model.RoomFilled, second.Room.Status)

	_, err = f.engine.Approve(ctx, a3.ID, "101", "1", "warden")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	third, err := f.engine.Application(a3.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, third.Status)

	room, err := f.engine.Room("r1")
	require.NoError(t, err)
	assert.Len(t, room.Occupants, 2)

	assertInvariants(t, f.engine)
	assert.Equal(t, model.RoomFilled, f.store.rooms["r1"].Status, "store saw the same transitions")
}

func TestEngine_ApproveFullRoomLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, Options{})
	app := f.submit(t, "PNR1")
	before, err := f.engine.Room("r2")
	require.NoError(t, err)

	_, err = f.engine.Approve(context.Background(), app.ID, "102", "1", "warden")

	assert.True(t, apperr.Is(err, apperr.KindConflict))
	after, err := f.engine.Room("r2")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	got, err := f.engine.Application(app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Empty(t, f.notifier.apps)
}

func TestEngine_ApproveFailures(t *testing.T) {
	testCases := []struct {
		name       string
		setup      func(t *testing.T, f *fixture) string
		roomNumber string
		floor      string
		kind       apperr.Kind
	}{
		{
			name:       "missing room selection",
			setup:      func(t *testing.T, f *fixture) string { return f.submit(t, "PNR1").ID },
			roomNumber: "",
			floor:      "1",
			kind:       apperr.KindValidation,
		},
		{
			name:       "unknown application",
			setup:      func(t *testing.T, f *fixture) string { return "nope" },
			roomNumber: "101",
			floor:      "1",
			kind:       apperr.KindNotFound,
		},
		{
			name:       "unknown room",
			setup:      func(t *testing.T, f *fixture) string { return f.submit(t, "PNR1").ID },
			roomNumber: "999",
			floor:      "9",
			kind:       apperr.KindNotFound,
		},
		{
			name:       "room number on the wrong floor",
			setup:      func(t *testing.T, f *fixture) string { return f.submit(t, "PNR1").ID },
			roomNumber: "101",
			floor:      "2",
			kind:       apperr.KindNotFound,
		},
		{
			name:       "damaged room",
			setup:      func(t *testing.T, f *fixture) string { return f.submit(t, "PNR1").ID },
			roomNumber: "201",
			floor:      "2",
			kind:       apperr.KindConflict,
		},
		{
			name: "already decided",
			setup: func(t *testing.T, f *fixture) string {
				app := f.submit(t, "PNR1")
				_, err := f.engine.Reject(context.Background(), app.ID, "late", "warden")
				require.NoError(t, err)
				return app.ID
			},
			roomNumber: "101",
			floor:      "1",
			kind:       apperr.KindConflict,
		},
		{
			name:       "student already housed",
			setup:      func(t *testing.T, f *fixture) string { return f.submit(t, "PNR-OLD").ID },
			roomNumber: "101",
			floor:      "1",
			kind:       apperr.KindConflict,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			appID := tc.setup(t, f)
			roomsBefore, _ := f.engine.Rooms("")

			_, err := f.engine.Approve(context.Background(), appID, tc.roomNumber, tc.floor, "warden")

			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err), err.Error())
			roomsAfter, _ := f.engine.Rooms("")
			assert.Equal(t, roomsBefore, roomsAfter)
		})
	}
}

func TestEngine_ApproveStoreFailureIsAtomic(t *testing.T) {
	f := newFixture(t, Options{})
	app := f.submit(t, "PNR1")
	f.store.failNext = errors.New("deadlock detected")

	_, err := f.engine.Approve(context.Background(), app.ID, "101", "1", "warden")

	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, "internal error", apperr.PublicMessage(err))

	got, _ := f.engine.Application(app.ID)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Empty(t, got.RoomNumber)
	room, _ := f.engine.Room("r1")
	assert.Empty(t, room.Occupants)
	assert.Equal(t, model.RoomAvailable, room.Status)
	assert.Empty(t, f.notifier.apps)

	// The same approval succeeds once the store recovers.
	_, err = f.engine.Approve(context.Background(), app.ID, "101", "1", "warden")
	assert.NoError(t, err)
}

func TestEngine_Reject(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	app := f.submit(t, "PNR1")

	for _, reason := range []string{"", "   "} {
		_, err := f.engine.Reject(ctx, app.ID, reason, "warden")
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
	got, _ := f.engine.Application(app.ID)
	assert.Equal(t, model.StatusPending, got.Status)

	_, err := f.engine.Reject(ctx, "nope", "reason", "warden")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	rejected, err := f.engine.Reject(ctx, app.ID, "  incomplete documents ", "warden")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, rejected.Status)
	assert.Equal(t, "incomplete documents", rejected.RejectionReason)
	assert.Equal(t, "warden", rejected.DecidedBy)
	require.NotNil(t, rejected.DecidedOn)
	assert.Equal(t, testClock, *rejected.DecidedOn)

	_, err = f.engine.Reject(ctx, app.ID, "again", "warden")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	rooms, _ := f.engine.Rooms("")
	assert.Equal(t, baseSnapshot().Rooms, rooms, "rejection never touches rooms")

	require.Len(t, f.notifier.apps, 1)
	assert.Equal(t, model.StatusRejected, f.notifier.apps[0].Status)
	assertInvariants(t, f.engine)
}

func TestEngine_SubmitDuplicates(t *testing.T) {
	t.Run("silently dropped by default", func(t *testing.T) {
		f := newFixture(t, Options{})
		ctx := context.Background()
		first := f.submit(t, "PNR1")

		again, created, err := f.engine.Submit(ctx, SubmitRequest{StudentID: "PNR1", HostelID: "h1"})

		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)
		assert.Len(t, f.engine.Applications(views.ApplicationFilter{}), 1)
	})

	t.Run("approved application also blocks", func(t *testing.T) {
		f := newFixture(t, Options{})
		ctx := context.Background()
		first := f.submit(t, "PNR1")
		_, err := f.engine.Approve(ctx, first.ID, "101", "1", "warden")
		require.NoError(t, err)

		_, created, err := f.engine.Submit(ctx, SubmitRequest{StudentID: "PNR1", HostelID: "h1"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Len(t, f.engine.StudentApplications("PNR1"), 1)
	})

	t.Run("rejected application allows a new one", func(t *testing.T) {
		f := newFixture(t, Options{})
		ctx := context.Background()
		first := f.submit(t, "PNR1")
		_, err := f.engine.Reject(ctx, first.ID, "missing documents", "warden")
		require.NoError(t, err)

		second := f.submit(t, "PNR1")
		assert.NotEqual(t, first.ID, second.ID)
		assert.Len(t, f.engine.StudentApplications("PNR1"), 2)
		assertInvariants(t, f.engine)
	})

	t.Run("conflict when configured", func(t *testing.T) {
		f := newFixture(t, Options{RejectDuplicates: true})
		f.submit(t, "PNR1")

		_, created, err := f.engine.Submit(context.Background(), SubmitRequest{StudentID: "PNR1", HostelID: "h1"})

		assert.False(t, created)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		assert.Len(t, f.engine.Applications(views.ApplicationFilter{}), 1)
	})
}

func TestEngine_SubmitValidation(t *testing.T) {
	testCases := []struct {
		name string
		req  SubmitRequest
	}{
		{"missing student", SubmitRequest{StudentID: "  ", HostelID: "h1"}},
		{"missing hostel", SubmitRequest{StudentID: "PNR1"}},
		{"unknown hostel", SubmitRequest{StudentID: "PNR1", HostelID: "h9"}},
		{"ineligible gender", SubmitRequest{StudentID: "PNR1", HostelID: "h2", Gender: model.GenderMale}},
		{"bad date of birth", SubmitRequest{StudentID: "PNR1", HostelID: "h1", DOB: "01/02/2004"}},
		{"year above range", SubmitRequest{StudentID: "PNR1", HostelID: "h1", Year: 42}},
		{"negative year", SubmitRequest{StudentID: "PNR1", HostelID: "h1", Year: -1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Options{})

			_, created, err := f.engine.Submit(context.Background(), tc.req)

			require.Error(t, err)
			assert.False(t, created)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Empty(t, f.engine.Applications(views.ApplicationFilter{}))
		})
	}
}

func TestEngine_SubmitYearIsOptional(t *testing.T) {
	for _, year := range []int{0, 1, 10} {
		f := newFixture(t, Options{})

		app, created, err := f.engine.Submit(context.Background(), SubmitRequest{StudentID: "PNR1", HostelID: "h1", Year: year})

		require.NoError(t, err, "year %d", year)
		assert.True(t, created)
		assert.Equal(t, year, app.Year)
	}

	f := newFixture(t, Options{})
	_, _, err := f.engine.Submit(context.Background(), SubmitRequest{StudentID: "PNR1", HostelID: "h1", Year: 11})
	assert.EqualError(t, err, "year must be between 1 and 10 when given")
}

func TestEngine_SubmitRecordsApplication(t *testing.T) {
	f := newFixture(t, Options{})
	docs := []model.Document{{Name: "fee.pdf", MIMEType: "application/pdf", Size: 4, Data: "JVBERg=="}}

	app, created, err := f.engine.Submit(context.Background(), SubmitRequest{
		StudentID: " PNR1 ",
		HostelID:  "h2",
		Gender:    model.GenderFemale,
		Year:      2,
		Branch:    "Computer Engineering",
		DOB:       "2005-03-14",
		Documents: docs,
	})

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "app-1", app.ID)
	assert.Equal(t, "PNR1", app.StudentID)
	assert.Equal(t, model.StatusPending, app.Status)
	assert.Equal(t, testClock, app.AppliedOn)
	assert.Equal(t, []model.Document(docs), []model.Document(app.Documents))
	assert.Contains(t, f.store.apps, "app-1")
}

func TestEngine_UpdateRoomStatus(t *testing.T) {
	testCases := []struct {
		name   string
		roomID string
		status model.RoomStatus
		kind   apperr.Kind
	}{
		{"damage an empty room", "r1", model.RoomDamaged, ""},
		{"damage an occupied room", "r2", model.RoomDamaged, ""},
		{"repair damaged room", "r3", model.RoomAvailable, ""},
		{"available at capacity", "r2", model.RoomAvailable, apperr.KindConflict},
		{"filled without occupants", "r1", model.RoomFilled, apperr.KindConflict},
		{"unknown status", "r1", model.RoomStatus("haunted"), apperr.KindValidation},
		{"unknown room", "r9", model.RoomDamaged, apperr.KindNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Options{})

			room, err := f.engine.UpdateRoomStatus(context.Background(), tc.roomID, tc.status)

			if tc.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tc.kind, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.status, room.Status)
			assert.Equal(t, tc.status, f.store.rooms[tc.roomID].Status)
			assertInvariants(t, f.engine)
		})
	}
}

func TestEngine_DamagedRoomIsNotACandidate(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	app := f.submit(t, "PNR1")

	_, err := f.engine.UpdateRoomStatus(ctx, "r1", model.RoomDamaged)
	require.NoError(t, err)

	_, err = f.engine.Approve(ctx, app.ID, "101", "1", "warden")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestEngine_ReleaseRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("one occupant", func(t *testing.T) {
		f := newFixture(t, Options{})
		room, err := f.engine.ReleaseRoom(ctx, "r2", "PNR-OLD")
		require.NoError(t, err)
		assert.Empty(t, room.Occupants)
		assert.Equal(t, model.RoomAvailable, room.Status)
	})

	t.Run("all occupants", func(t *testing.T) {
		f := newFixture(t, Options{})
		for _, s := range []string{"PNR1", "PNR2"} {
			app := f.submit(t, s)
			_, err := f.engine.Approve(ctx, app.ID, "101", "1", "warden")
			require.NoError(t, err)
		}

		room, err := f.engine.ReleaseRoom(ctx, "r1", "")
		require.NoError(t, err)
		assert.Empty(t, room.Occupants)
		assert.Equal(t, model.RoomAvailable, room.Status)
		assertInvariants(t, f.engine)
	})

	t.Run("damaged room stays damaged", func(t *testing.T) {
		f := newFixture(t, Options{})
		_, err := f.engine.UpdateRoomStatus(ctx, "r2", model.RoomDamaged)
		require.NoError(t, err)

		room, err := f.engine.ReleaseRoom(ctx, "r2", "")
		require.NoError(t, err)
		assert.Equal(t, model.RoomDamaged, room.Status)
	})

	t.Run("student not in room", func(t *testing.T) {
		f := newFixture(t, Options{})
		_, err := f.engine.ReleaseRoom(ctx, "r2", "PNR-X")
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
		room, _ := f.engine.Room("r2")
		assert.Equal(t, []string{"PNR-OLD"}, []string(room.Occupants))
	})
}

func TestEngine_InvalidatesCache(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	app := f.submit(t, "PNR1")

	f.cache.Set(cache.RouteKey("/api/hostels"), "list", cache.NoExpiry, cache.TierEphemeral)
	f.cache.Set(cache.RouteKey("/api/hostels/h1/rooms?floor=1"), "rooms", cache.NoExpiry, cache.TierEphemeral)
	f.cache.Set(cache.RouteKey("/api/stats"), "stats", cache.NoExpiry, cache.TierEphemeral)
	f.cache.Set(cache.StudentKey("PNR1", "applications"), "mine", cache.NoExpiry, cache.TierSession)
	f.cache.Set(cache.StudentKey("PNR2", "applications"), "theirs", cache.NoExpiry, cache.TierSession)

	_, err := f.engine.Approve(ctx, app.ID, "101", "1", "warden")
	require.NoError(t, err)

	assert.False(t, f.cache.Has(cache.RouteKey("/api/hostels"), cache.TierEphemeral))
	assert.False(t, f.cache.Has(cache.RouteKey("/api/hostels/h1/rooms?floor=1"), cache.TierEphemeral))
	assert.False(t, f.cache.Has(cache.RouteKey("/api/stats"), cache.TierEphemeral))
	assert.False(t, f.cache.Has(cache.StudentKey("PNR1", "applications"), cache.TierSession))
	assert.True(t, f.cache.Has(cache.StudentKey("PNR2", "applications"), cache.TierSession))

	require.Len(t, f.notifier.apps, 1)
	assert.Equal(t, model.StatusApproved, f.notifier.apps[0].Status)
}

func TestEngine_DerivedHostelCounts(t *testing.T) {
	f := newFixture(t, Options{})
	f.submit(t, "PNR1")
	f.submit(t, "PNR2")

	h, err := f.engine.Hostel("h1")
	require.NoError(t, err)
	// Capacity 3 minus the filled and the damaged room.
	assert.Equal(t, 1, h.AvailableRooms)
	assert.Equal(t, 2, h.PendingApplications)

	stats := f.engine.Stats()
	assert.Equal(t, 2, stats.Hostels)
	assert.Equal(t, 4, stats.TotalCapacity)
	assert.Equal(t, 2, stats.AvailableRooms)
	assert.Equal(t, 2, stats.PendingApplications)

	_, err = f.engine.Hostel("h9")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestEngine_QueriesReturnCopies(t *testing.T) {
	f := newFixture(t, Options{})

	room, err := f.engine.Room("r2")
	require.NoError(t, err)
	room.Occupants[0] = "TAMPERED"
	room.Status = model.RoomDamaged

	again, err := f.engine.Room("r2")
	require.NoError(t, err)
	assert.Equal(t, []string{"PNR-OLD"}, []string(again.Occupants))
	assert.Equal(t, model.RoomFilled, again.Status)

	_, err = f.engine.Rooms("h9")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	h1Rooms, err := f.engine.Rooms("h1")
	require.NoError(t, err)
	assert.Len(t, h1Rooms, 3)
}

func TestEngine_LoadError(t *testing.T) {
	fs := newFakeStore(baseSnapshot())
	fs.failNext = errors.New("connection refused")
	e := New(fs, Options{})

	err := e.Load(context.Background())

	assert.ErrorContains(t, err, "connection refused")
	assert.Empty(t, e.Hostels())
}

func TestEngine_ReloadInventoryKeepsApplications(t *testing.T) {
	f := newFixture(t, Options{})
	f.submit(t, "PNR1")

	f.store.snapshot.Rooms = append(f.store.snapshot.Rooms, model.Room{
		ID: "r5", HostelID: "h2", Floor: "2", RoomNumber: "201", Capacity: 3, Status: model.RoomAvailable,
	})
	require.NoError(t, f.engine.ReloadInventory(context.Background()))

	_, err := f.engine.Room("r5")
	assert.NoError(t, err)
	assert.Len(t, f.engine.StudentApplications("PNR1"), 1)
}
