package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
)

// RoomRecord is one upstream room with its closed enums already parsed.
type RoomRecord struct {
	Hostel         string
	HostelGender   model.Gender
	HostelCapacity int
	WardenID       string
	Label          string
	Floor          string
	RoomNumber     string
	Capacity       int
	Status         model.RoomStatus
}

// Page is the normalized form of every inventory response shape.
type Page struct {
	Records []RoomRecord
	// Paged is set when the response carried page/total metadata.
	Paged    bool
	Page     int
	PageSize int
	Total    int
	// Skipped counts records dropped for an unknown status or gender, or a missing hostel.
	Skipped int
}

// flexString accepts a JSON string, number or null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number, a numeric string or null.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(string(s))
	if err != nil {
		return fmt.Errorf("expected integer, got %s", b)
	}
	*f = flexInt(n)
	return nil
}

type rawRoom struct {
	Hostel         string     `json:"hostel"`
	HostelName     string     `json:"hostelName"`
	HostelGender   string     `json:"hostelGender"`
	Gender         string     `json:"gender"`
	HostelCapacity flexInt    `json:"hostelCapacity"`
	WardenID       string     `json:"wardenId"`
	Label          string     `json:"label"`
	Name           string     `json:"name"`
	Floor          flexString `json:"floor"`
	RoomNumber     flexString `json:"roomNumber"`
	Room           flexString `json:"room"`
	Capacity       flexInt    `json:"capacity"`
	Status         string     `json:"status"`
}

type rawData struct {
	Rooms    json.RawMessage `json:"rooms"`
	Items    json.RawMessage `json:"items"`
	Page     flexInt         `json:"page"`
	PageSize flexInt         `json:"pageSize"`
	Total    flexInt         `json:"total"`
}

type rawEnvelope struct {
	Code    *int            `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Rooms   json.RawMessage `json:"rooms"`
}

// NormalizeInventory is the single place that understands upstream response
// shapes. It accepts a bare array, {data:{rooms}}, {rooms}, {data:[...]} and
// the paged {data:{items,total,page,pageSize}} form. A non-zero "code" field is
// reported as a Transport error.
func NormalizeInventory(raw json.RawMessage) (Page, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Page{}, nil
	}

	if raw[0] == '[' {
		return decodeRecords(raw)
	}

	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Page{}, apperr.Transport("unrecognized inventory response", err)
	}
	if env.Code != nil && *env.Code != 0 {
		msg := env.Message
		if msg == "" {
			msg = "no message"
		}
		return Page{}, apperr.Transport(fmt.Sprintf("upstream returned code %d: %s", *env.Code, msg), nil)
	}

	if len(env.Rooms) > 0 {
		return decodeRecords(env.Rooms)
	}

	data := bytes.TrimSpace(env.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return Page{}, nil
	case data[0] == '[':
		return decodeRecords(data)
	}

	var d rawData
	if err := json.Unmarshal(data, &d); err != nil {
		return Page{}, apperr.Transport("unrecognized inventory data", err)
	}
	if len(d.Rooms) > 0 {
		return decodeRecords(d.Rooms)
	}

	page, err := decodeRecords(d.Items)
	if err != nil {
		return Page{}, err
	}
	page.Paged = true
	page.Page = int(d.Page)
	page.PageSize = int(d.PageSize)
	page.Total = int(d.Total)
	return page, nil
}

func decodeRecords(raw json.RawMessage) (Page, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Page{}, nil
	}

	var items []rawRoom
	if err := json.Unmarshal(raw, &items); err != nil {
		return Page{}, apperr.Transport("failed to decode inventory records", err)
	}

	page := Page{Records: make([]RoomRecord, 0, len(items))}
	for _, item := range items {
		rec, ok := toRecord(item)
		if !ok {
			page.Skipped++
			continue
		}
		page.Records = append(page.Records, rec)
	}
	page.Total = len(items)
	return page, nil
}

func toRecord(item rawRoom) (RoomRecord, bool) {
	hostel := firstNonEmpty(item.HostelName, item.Hostel)
	if hostel == "" {
		return RoomRecord{}, false
	}

	status := model.RoomAvailable
	if strings.TrimSpace(item.Status) != "" {
		parsed, err := model.ParseRoomStatus(item.Status)
		if err != nil {
			return RoomRecord{}, false
		}
		status = parsed
	}

	gender, err := model.ParseGender(firstNonEmpty(item.HostelGender, item.Gender))
	if err != nil {
		return RoomRecord{}, false
	}

	return RoomRecord{
		Hostel:         hostel,
		HostelGender:   gender,
		HostelCapacity: int(item.HostelCapacity),
		WardenID:       strings.TrimSpace(item.WardenID),
		Label:          firstNonEmpty(item.Label, item.Name),
		Floor:          string(item.Floor),
		RoomNumber:     firstNonEmpty(string(item.RoomNumber), string(item.Room)),
		Capacity:       int(item.Capacity),
		Status:         status,
	}, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
