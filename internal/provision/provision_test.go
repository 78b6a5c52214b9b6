package provision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/cache"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
	"hostel-allocation-backend/internal/transport"
)

// mockStore records every upsert.
type mockStore struct {
	mu    sync.Mutex
	calls [][]store.InventoryItem
	err   error
}

func (m *mockStore) UpsertInventory(ctx context.Context, items []store.InventoryItem) (store.UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, items)
	if m.err != nil {
		return store.UpsertResult{}, m.err
	}
	return store.UpsertResult{Hostels: 1, RoomsCreated: len(items)}, nil
}

type mockEngine struct{ reloads atomic.Int32 }

func (m *mockEngine) ReloadInventory(ctx context.Context) error {
	m.reloads.Add(1)
	return nil
}

// upstream serves rooms in pages of pageSize and counts requests per page.
type upstream struct {
	rooms    []map[string]any
	requests atomic.Int32
	failPage int
}

func (u *upstream) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u.requests.Add(1)
		var body struct {
			Page     int    `json:"page"`
			PageSize int    `json:"pageSize"`
			Campus   string `json:"campus"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "north", body.Campus)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		if body.Page == u.failPage {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"database offline"}`))
			return
		}

		start := min((body.Page-1)*body.PageSize, len(u.rooms))
		end := min(start+body.PageSize, len(u.rooms))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{
				"page":     body.Page,
				"pageSize": body.PageSize,
				"total":    len(u.rooms),
				"items":    u.rooms[start:end],
			},
		})
	}
}

func roomsFixture(n int) []map[string]any {
	rooms := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		rooms = append(rooms, map[string]any{
			"hostelName": "Aravali",
			"gender":     "male",
			"label":      fmt.Sprintf("A-1-%02d", i),
			"capacity":   2,
		})
	}
	return rooms
}

func newTestService(t *testing.T, url string, ttl int, st Upserter, engine Reloader) *Service {
	t.Helper()
	c, err := cache.New(cache.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	cfg := config.ProvisionConfig{
		CacheTTLSeconds: ttl,
		Request: config.ProvisionRequest{
			URL:      url,
			Method:   http.MethodPost,
			Headers:  map[string]string{"X-Api-Key": "secret"},
			PageSize: 2,
			Payload:  map[string]any{"campus": "north"},
		},
	}
	return newService(cfg, st, engine, transport.NewClient(transport.Options{Timeout: time.Second}), c)
}

func TestImportOnce_PagesAndReloads(t *testing.T) {
	up := &upstream{rooms: roomsFixture(3)}
	server := httptest.NewServer(up.handler(t))
	defer server.Close()

	st := &mockStore{}
	engine := &mockEngine{}
	svc := newTestService(t, server.URL, 0, st, engine)

	result, err := svc.ImportOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), up.requests.Load())
	assert.Equal(t, 3, result.RoomsCreated)
	assert.Equal(t, int32(1), engine.reloads.Load())

	require.Len(t, st.calls, 1)
	items := st.calls[0]
	require.Len(t, items, 3)
	assert.Equal(t, store.InventoryItem{
		HostelName:   "Aravali",
		HostelGender: model.GenderMale,
		Label:        "A-1-01",
		Capacity:     2,
		Status:       model.RoomAvailable,
	}, items[0])
	assert.Equal(t, "A-1-03", items[2].Label)
}

func TestImportOnce_UsesDurableCache(t *testing.T) {
	up := &upstream{rooms: roomsFixture(3)}
	server := httptest.NewServer(up.handler(t))
	defer server.Close()

	st := &mockStore{}
	svc := newTestService(t, server.URL, 600, st, &mockEngine{})

	_, err := svc.ImportOnce(context.Background())
	require.NoError(t, err)
	_, err = svc.ImportOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), up.requests.Load(), "second cycle should be served from cache")
	require.Len(t, st.calls, 2)
	assert.Equal(t, st.calls[0], st.calls[1])
}

func TestImportOnce_FirstPageFailureAborts(t *testing.T) {
	up := &upstream{rooms: roomsFixture(3), failPage: 1}
	server := httptest.NewServer(up.handler(t))
	defer server.Close()

	st := &mockStore{}
	engine := &mockEngine{}
	svc := newTestService(t, server.URL, 600, st, engine)

	_, err := svc.ImportOnce(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindTransport))
	assert.Contains(t, err.Error(), "database offline")
	assert.Empty(t, st.calls)
	assert.Zero(t, engine.reloads.Load())
}

func TestImportOnce_LaterPageFailureImportsPartial(t *testing.T) {
	up := &upstream{rooms: roomsFixture(3), failPage: 2}
	server := httptest.NewServer(up.handler(t))
	defer server.Close()

	st := &mockStore{}
	engine := &mockEngine{}
	svc := newTestService(t, server.URL, 0, st, engine)

	result, err := svc.ImportOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, result.RoomsCreated)
	require.Len(t, st.calls, 1)
	assert.Len(t, st.calls[0], 2)
	assert.Equal(t, int32(1), engine.reloads.Load())
}

func TestImportOnce_UpsertFailure(t *testing.T) {
	up := &upstream{rooms: roomsFixture(1)}
	server := httptest.NewServer(up.handler(t))
	defer server.Close()

	engine := &mockEngine{}
	svc := newTestService(t, server.URL, 0, &mockStore{err: errors.New("deadlock")}, engine)

	_, err := svc.ImportOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock")
	assert.Zero(t, engine.reloads.Load())
}

func TestImportOnce_EmptyUpstream(t *testing.T) {
	up := &upstream{}
	server := httptest.NewServer(up.handler(t))
	defer server.Close()

	st := &mockStore{}
	svc := newTestService(t, server.URL, 0, st, &mockEngine{})

	_, err := svc.ImportOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), up.requests.Load())
	assert.Empty(t, st.calls)
}

func TestRun_Disabled(t *testing.T) {
	up := &upstream{rooms: roomsFixture(1)}
	server := httptest.NewServer(up.handler(t))
	defer server.Close()

	svc := newTestService(t, server.URL, 0, &mockStore{}, &mockEngine{})

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately when disabled")
	}
	assert.Zero(t, up.requests.Load())
}

func TestRun_ImportsUntilCancelled(t *testing.T) {
	up := &upstream{rooms: roomsFixture(1)}
	server := httptest.NewServer(up.handler(t))
	defer server.Close()

	engine := &mockEngine{}
	svc := newTestService(t, server.URL, 0, &mockStore{}, engine)
	svc.cfg.Enabled = true
	svc.cfg.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return engine.reloads.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
