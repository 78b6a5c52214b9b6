package allocation

import (
	"context"
	"slices"
	"strings"
	"time"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/metrics"
	"hostel-allocation-backend/internal/model"
)

// SubmitRequest is a student's new application.
type SubmitRequest struct {
	StudentID string
	HostelID  string
	Gender    model.Gender
	Year      int // zero when not given
	Caste     string
	Branch    string
	DOB       string // 2006-01-02
	Documents []model.Document
}

// Approval is the result of a successful Approve.
type Approval struct {
	Application model.Application `json:"application"`
	Room        model.Room        `json:"room"`
}

func validateSubmit(req SubmitRequest) error {
	if req.StudentID == "" {
		return apperr.Validation("student ID is required")
	}
	if req.HostelID == "" {
		return apperr.Validation("hostel is required")
	}
	if req.DOB != "" {
		if _, err := time.Parse(time.DateOnly, req.DOB); err != nil {
			return apperr.Validation("date of birth must be YYYY-MM-DD")
		}
	}
	if req.Year != 0 && (req.Year < 1 || req.Year > 10) {
		return apperr.Validation("year must be between 1 and 10 when given")
	}
	return nil
}

// Submit appends a PENDING application for req.StudentID.
//
// A student holds at most one PENDING or APPROVED application. A second
// submission returns the existing application with created=false and no error,
// unless the engine was built with RejectDuplicates, in which case it fails
// with a ConflictError.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (model.Application, bool, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.HostelID = strings.TrimSpace(req.HostelID)

	app, created, err := e.submit(ctx, req)
	switch {
	case err != nil:
		record("submit", err)
		return model.Application{}, false, err
	case !created:
		metrics.Transitions.WithLabelValues("submit", "duplicate").Inc()
		e.log.Info().Str("student_id", req.StudentID).Str("existing", app.ID).Msg("duplicate submission dropped")
		return app, false, nil
	}

	record("submit", nil)
	e.invalidate(app.StudentID)
	return app, true, nil
}

func (e *Engine) submit(ctx context.Context, req SubmitRequest) (model.Application, bool, error) {
	if err := validateSubmit(req); err != nil {
		return model.Application{}, false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.hostelIdx[req.HostelID]
	if !ok {
		return model.Application{}, false, apperr.Validation("hostel %q does not exist", req.HostelID)
	}
	hostel := e.hostels[i]
	if !hostel.Gender.Admits(req.Gender) {
		return model.Application{}, false, apperr.Validation("%s is a %s hostel", hostel.Name, hostel.Gender)
	}

	for _, existing := range e.apps {
		if existing.StudentID != req.StudentID || !existing.Status.Active() {
			continue
		}
		if e.rejectDuplicates {
			return model.Application{}, false, apperr.Conflict("student %s already has a %s application", req.StudentID, existing.Status)
		}
		return existing.Clone(), false, nil
	}

	app := model.Application{
		ID:        e.newID(),
		StudentID: req.StudentID,
		HostelID:  req.HostelID,
		Status:    model.StatusPending,
		AppliedOn: e.now().UTC(),
		Year:      req.Year,
		Caste:     strings.TrimSpace(req.Caste),
		Branch:    strings.TrimSpace(req.Branch),
		DOB:       req.DOB,
		Gender:    req.Gender,
		Documents: slices.Clone(req.Documents),
	}
	if err := e.store.CreateApplication(ctx, app); err != nil {
		return model.Application{}, false, apperr.Internal("failed to save application", err)
	}

	e.appIdx[app.ID] = len(e.apps)
	e.apps = append(e.apps, app)
	return app.Clone(), true, nil
}

// Approve assigns the applicant to the room at floor/roomNumber in the
// application's hostel. The room must not be damaged and must have a free bed.
// A room that reaches capacity becomes filled.
func (e *Engine) Approve(ctx context.Context, appID, roomNumber, floor, actor string) (Approval, error) {
	result, err := e.approve(ctx, appID, strings.TrimSpace(roomNumber), strings.TrimSpace(floor), actor)
	record("approve", err)
	if err != nil {
		return Approval{}, err
	}

	e.log.Info().
		Str("application_id", appID).
		Str("student_id", result.Application.StudentID).
		Str("room_id", result.Room.ID).
		Str("room_status", string(result.Room.Status)).
		Msg("application approved")
	e.invalidate(result.Application.StudentID)
	e.notify(result.Application)
	return result, nil
}

func (e *Engine) approve(ctx context.Context, appID, roomNumber, floor, actor string) (Approval, error) {
	if roomNumber == "" || floor == "" {
		return Approval{}, apperr.Validation("room number and floor are required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ai, ok := e.appIdx[appID]
	if !ok {
		return Approval{}, apperr.NotFound("application %s not found", appID)
	}
	app := e.apps[ai]
	if app.Status != model.StatusPending {
		return Approval{}, apperr.Conflict("application is already %s", app.Status)
	}

	ri, ok := e.findRoom(app.HostelID, floor, roomNumber)
	if !ok {
		return Approval{}, apperr.NotFound("room %s on floor %s not found", roomNumber, floor)
	}
	room := e.rooms[ri]
	if room.Status == model.RoomDamaged {
		return Approval{}, apperr.Conflict("room %s on floor %s is damaged", roomNumber, floor)
	}
	if len(room.Occupants) >= room.Capacity {
		return Approval{}, apperr.Conflict("room %s on floor %s is full (%d/%d)", roomNumber, floor, len(room.Occupants), room.Capacity)
	}
	for _, r := range e.rooms {
		if r.HasOccupant(app.StudentID) {
			return Approval{}, apperr.Conflict("student %s already occupies room %s on floor %s", app.StudentID, r.RoomNumber, r.Floor)
		}
	}

	now := e.now().UTC()
	nextApp := app.Clone()
	nextApp.Status = model.StatusApproved
	nextApp.RoomNumber = room.RoomNumber
	nextApp.Floor = room.Floor
	nextApp.RejectionReason = ""
	nextApp.DecidedOn = &now
	nextApp.DecidedBy = actor

	nextRoom := room.Clone()
	nextRoom.Occupants = append(nextRoom.Occupants, app.StudentID)
	nextRoom.RecomputeStatus()
	nextRoom.UpdatedAt = now

	if err := e.store.SaveApproval(ctx, nextApp, nextRoom); err != nil {
		return Approval{}, apperr.Internal("failed to save approval", err)
	}

	e.apps[ai] = nextApp
	e.rooms[ri] = nextRoom
	e.updateGauges()
	return Approval{Application: nextApp.Clone(), Room: nextRoom.Clone()}, nil
}

// Reject closes a PENDING application with a non-blank reason. Rooms are untouched.
func (e *Engine) Reject(ctx context.Context, appID, reason, actor string) (model.Application, error) {
	app, err := e.reject(ctx, appID, strings.TrimSpace(reason), actor)
	record("reject", err)
	if err != nil {
		return model.Application{}, err
	}

	e.log.Info().Str("application_id", appID).Str("student_id", app.StudentID).Msg("application rejected")
	e.invalidate(app.StudentID)
	e.notify(app)
	return app, nil
}

func (e *Engine) reject(ctx context.Context, appID, reason, actor string) (model.Application, error) {
	if reason == "" {
		return model.Application{}, apperr.Validation("a rejection reason is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ai, ok := e.appIdx[appID]
	if !ok {
		return model.Application{}, apperr.NotFound("application %s not found", appID)
	}
	app := e.apps[ai]
	if app.Status != model.StatusPending {
		return model.Application{}, apperr.Conflict("application is already %s", app.Status)
	}

	now := e.now().UTC()
	next := app.Clone()
	next.Status = model.StatusRejected
	next.RejectionReason = reason
	next.RoomNumber = ""
	next.Floor = ""
	next.DecidedOn = &now
	next.DecidedBy = actor

	if err := e.store.SaveRejection(ctx, next); err != nil {
		return model.Application{}, apperr.Internal("failed to save rejection", err)
	}

	e.apps[ai] = next
	return next.Clone(), nil
}

// UpdateRoomStatus is the admin inventory edit. Damaged is always allowed,
// available needs a free bed and filled needs at least one occupant.
func (e *Engine) UpdateRoomStatus(ctx context.Context, roomID string, status model.RoomStatus) (model.Room, error) {
	room, err := e.updateRoomStatus(ctx, roomID, status)
	record("room_status", err)
	if err != nil {
		return model.Room{}, err
	}

	e.log.Info().Str("room_id", roomID).Str("status", string(status)).Msg("room status updated")
	e.invalidate()
	return room, nil
}

func (e *Engine) updateRoomStatus(ctx context.Context, roomID string, status model.RoomStatus) (model.Room, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ri, ok := e.roomIdx[roomID]
	if !ok {
		return model.Room{}, apperr.NotFound("room %s not found", roomID)
	}
	room := e.rooms[ri]

	switch status {
	case model.RoomDamaged:
	case model.RoomAvailable:
		if len(room.Occupants) >= room.Capacity {
			return model.Room{}, apperr.Conflict("room %s is at capacity and cannot be available", room.RoomNumber)
		}
	case model.RoomFilled:
		if len(room.Occupants) == 0 {
			return model.Room{}, apperr.Conflict("room %s has no occupants and cannot be filled", room.RoomNumber)
		}
	default:
		return model.Room{}, apperr.Validation("unknown room status %q", status)
	}

	if room.Status == status {
		return room.Clone(), nil
	}

	next := room.Clone()
	next.Status = status
	next.UpdatedAt = e.now().UTC()
	if err := e.store.SaveRoom(ctx, next); err != nil {
		return model.Room{}, apperr.Internal("failed to save room", err)
	}

	e.rooms[ri] = next
	e.updateGauges()
	return next.Clone(), nil
}

// ReleaseRoom removes studentID from the room, or every occupant when studentID
// is empty. A room that is not damaged becomes available.
func (e *Engine) ReleaseRoom(ctx context.Context, roomID, studentID string) (model.Room, error) {
	room, released, err := e.releaseRoom(ctx, roomID, strings.TrimSpace(studentID))
	record("release", err)
	if err != nil {
		return model.Room{}, err
	}

	e.log.Info().Str("room_id", roomID).Strs("released", released).Msg("room released")
	e.invalidate(released...)
	return room, nil
}

func (e *Engine) releaseRoom(ctx context.Context, roomID, studentID string) (model.Room, []string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ri, ok := e.roomIdx[roomID]
	if !ok {
		return model.Room{}, nil, apperr.NotFound("room %s not found", roomID)
	}
	room := e.rooms[ri]

	next := room.Clone()
	var released []string
	if studentID == "" {
		released = slices.Clone(room.Occupants)
		next.Occupants = next.Occupants[:0]
	} else {
		i := slices.Index(room.Occupants, studentID)
		if i < 0 {
			return model.Room{}, nil, apperr.NotFound("student %s is not in room %s", studentID, room.RoomNumber)
		}
		released = []string{studentID}
		next.Occupants = slices.Delete(next.Occupants, i, i+1)
	}
	if next.Status != model.RoomDamaged {
		next.Status = model.RoomAvailable
	}
	next.UpdatedAt = e.now().UTC()

	if err := e.store.SaveRoom(ctx, next); err != nil {
		return model.Room{}, nil, apperr.Internal("failed to save room", err)
	}

	e.rooms[ri] = next
	e.updateGauges()
	return next.Clone(), released, nil
}

func (e *Engine) findRoom(hostelID, floor, roomNumber string) (int, bool) {
	for i, r := range e.rooms {
		if r.HostelID == hostelID && r.Floor == floor && r.RoomNumber == roomNumber {
			return i, true
		}
	}
	return 0, false
}
