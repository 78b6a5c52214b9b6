// Package provision periodically imports hostel and room inventory from the
// upstream provisioning API.
package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/rs/zerolog"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/cache"
	"hostel-allocation-backend/internal/logging"
	"hostel-allocation-backend/internal/store"
	"hostel-allocation-backend/internal/transport"
)

// Upserter persists imported inventory.
type Upserter interface {
	UpsertInventory(ctx context.Context, items []store.InventoryItem) (store.UpsertResult, error)
}

// Reloader refreshes in-memory inventory after an import.
type Reloader interface {
	ReloadInventory(ctx context.Context) error
}

// Fetcher is the upstream HTTP collaborator.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, req transport.Request) (json.RawMessage, error)
}

// Service orchestrates the import: fetch every page, upsert, reload the engine.
type Service struct {
	cfg      config.ProvisionConfig
	store    Upserter
	engine   Reloader
	client   Fetcher
	cache    *cache.Store
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewService creates and initializes a new provisioning service.
func NewService(cfg *config.Config, st Upserter, engine Reloader, c *cache.Store) *Service {
	client := transport.NewClient(transport.Options{
		Timeout:   time.Duration(cfg.Provision.TimeoutSeconds) * time.Second,
		HTTPProxy: cfg.Provision.HTTPProxy,
	})
	return newService(cfg.Provision, st, engine, client, c)
}

func newService(cfg config.ProvisionConfig, st Upserter, engine Reloader, client Fetcher, c *cache.Store) *Service {
	if cfg.Request.PageSize <= 0 {
		cfg.Request.PageSize = 100
	}
	return &Service{
		cfg:      cfg,
		store:    st,
		engine:   engine,
		client:   client,
		cache:    c,
		cacheTTL: time.Duration(cfg.CacheTTLSeconds) * time.Second,
		log:      logging.WithComponent("provision"),
	}
}

// Run imports once at start and then every configured interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info().Msg("provisioning is disabled; not starting")
		return
	}
	s.log.Info().Dur("interval", s.cfg.Interval).Msg("starting provisioning service")

	s.runCycle(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("provisioning service shutting down")
			return
		case <-timer.C:
			s.runCycle(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	if _, err := s.ImportOnce(ctx); err != nil {
		s.log.Error().Err(err).Msg("provisioning cycle failed")
	}
}

// ImportOnce performs a single import and reloads the engine's inventory.
// A fetch failure before any record arrived aborts the cycle; a later failure
// imports what was fetched so far.
func (s *Service) ImportOnce(ctx context.Context) (store.UpsertResult, error) {
	s.log.Info().Msg("executing provisioning cycle")

	var records []transport.RoomRecord
	skipped := 0
	total := 1
	pageSize := s.cfg.Request.PageSize
	var fetchErr error
	for page := 1; (page-1)*pageSize < total; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			s.log.Error().Err(err).Int("page", page).Msg("error fetching page")
			fetchErr = err
			break
		}
		records = append(records, resp.Records...)
		skipped += resp.Skipped
		if !resp.Paged || resp.Total == 0 || len(resp.Records)+resp.Skipped == 0 {
			break
		}
		total = resp.Total
		s.log.Debug().Int("page", page).Int("total", total).Int("records", len(records)).Msg("fetched page")
	}

	if fetchErr != nil && len(records) == 0 {
		return store.UpsertResult{}, fmt.Errorf("provisioning aborted with no records: %w", fetchErr)
	}
	if len(records) == 0 {
		s.log.Info().Msg("provisioning cycle finished: no records to import")
		return store.UpsertResult{Skipped: skipped}, nil
	}

	items := make([]store.InventoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, toItem(r))
	}

	result, err := s.store.UpsertInventory(ctx, items)
	if err != nil {
		return store.UpsertResult{}, fmt.Errorf("failed to upsert inventory: %w", err)
	}
	result.Skipped += skipped

	if err := s.engine.ReloadInventory(ctx); err != nil {
		return result, err
	}

	s.log.Info().
		Int("hostels", result.Hostels).
		Int("rooms_created", result.RoomsCreated).
		Int("rooms_updated", result.RoomsUpdated).
		Int("skipped", result.Skipped).
		Msg("provisioning cycle finished")
	return result, fetchErr
}

// fetchPage returns one normalized page, served from the durable cache tier
// when fresh. A zero cache TTL always goes upstream.
func (s *Service) fetchPage(ctx context.Context, page int) (transport.Page, error) {
	fetch := func(ctx context.Context) (transport.Page, error) {
		payload := make(map[string]any, len(s.cfg.Request.Payload)+2)
		maps.Copy(payload, s.cfg.Request.Payload)
		payload["page"] = page
		payload["pageSize"] = s.cfg.Request.PageSize

		raw, err := s.client.Fetch(ctx, s.cfg.Request.URL, transport.Request{
			Method:  s.cfg.Request.Method,
			Headers: s.cfg.Request.Headers,
			Body:    payload,
		})
		if err != nil {
			return transport.Page{}, err
		}
		return transport.NormalizeInventory(raw)
	}

	if s.cache == nil || s.cacheTTL <= 0 {
		return fetch(ctx)
	}
	key := fmt.Sprintf("provision:%s:page:%d", s.cfg.Request.URL, page)
	return cache.GetOrSet(ctx, s.cache, key, fetch, s.cacheTTL, cache.TierDurable)
}

func toItem(r transport.RoomRecord) store.InventoryItem {
	return store.InventoryItem{
		HostelName:     r.Hostel,
		HostelGender:   r.HostelGender,
		HostelCapacity: r.HostelCapacity,
		WardenID:       r.WardenID,
		Label:          r.Label,
		Floor:          r.Floor,
		RoomNumber:     r.RoomNumber,
		Capacity:       r.Capacity,
		Status:         r.Status,
	}
}
