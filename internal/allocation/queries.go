package allocation

import (
	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/views"
)

// Every query returns copies; callers can never reach engine state.

// Hostels returns all hostels with their derived counts filled in.
func (e *Engine) Hostels() []model.Hostel {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.Hostel, 0, len(e.hostels))
	for _, h := range e.hostels {
		out = append(out, e.derive(h))
	}
	return out
}

// Hostel returns one hostel with its derived counts.
func (e *Engine) Hostel(id string) (model.Hostel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.hostelIdx[id]
	if !ok {
		return model.Hostel{}, apperr.NotFound("hostel %s not found", id)
	}
	return e.derive(e.hostels[i]), nil
}

// Summary returns the display summary of one hostel.
func (e *Engine) Summary(id string) (views.HostelSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.hostelIdx[id]
	if !ok {
		return views.HostelSummary{}, apperr.NotFound("hostel %s not found", id)
	}
	return views.Summarize(e.hostels[i], e.rooms, e.apps), nil
}

// Stats aggregates every hostel.
func (e *Engine) Stats() views.Stats {
	return views.Aggregate(e.Hostels())
}

// Rooms returns the rooms of hostelID, or every room when hostelID is empty.
func (e *Engine) Rooms(hostelID string) ([]model.Room, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if hostelID != "" {
		if _, ok := e.hostelIdx[hostelID]; !ok {
			return nil, apperr.NotFound("hostel %s not found", hostelID)
		}
	}

	out := make([]model.Room, 0, len(e.rooms))
	for _, r := range e.rooms {
		if hostelID == "" || r.HostelID == hostelID {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// Room returns one room.
func (e *Engine) Room(id string) (model.Room, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.roomIdx[id]
	if !ok {
		return model.Room{}, apperr.NotFound("room %s not found", id)
	}
	return e.rooms[i].Clone(), nil
}

// Applications returns the applications matching f in submission order.
func (e *Engine) Applications(f views.ApplicationFilter) []model.Application {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.Application, 0, len(e.apps))
	for _, a := range e.apps {
		if f.Match(a) {
			out = append(out, a.Clone())
		}
	}
	return out
}

// Application returns one application.
func (e *Engine) Application(id string) (model.Application, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.appIdx[id]
	if !ok {
		return model.Application{}, apperr.NotFound("application %s not found", id)
	}
	return e.apps[i].Clone(), nil
}

// StudentApplications returns every application studentID has submitted.
func (e *Engine) StudentApplications(studentID string) []model.Application {
	if studentID == "" {
		return []model.Application{}
	}
	return e.Applications(views.ApplicationFilter{StudentID: studentID})
}
