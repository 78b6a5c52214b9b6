package model

import (
	"fmt"
	"strings"
)

// RoomStatus is the closed set of room states used inside the engine.
type RoomStatus string

const (
	RoomAvailable RoomStatus = "available"
	RoomFilled    RoomStatus = "filled"
	RoomDamaged   RoomStatus = "damaged"
)

// ApplicationStatus is the closed set of application states.
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "PENDING"
	StatusApproved ApplicationStatus = "APPROVED"
	StatusRejected ApplicationStatus = "REJECTED"
)

// Gender is a hostel's eligibility tag or a student's declared gender.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderAny    Gender = "any"
)

var roomStatusAliases = map[string]RoomStatus{
	"available":    RoomAvailable,
	"vacant":       RoomAvailable,
	"free":         RoomAvailable,
	"filled":       RoomFilled,
	"occupied":     RoomFilled,
	"full":         RoomFilled,
	"damaged":      RoomDamaged,
	"maintenance":  RoomDamaged,
	"out_of_order": RoomDamaged,
}

var applicationStatusAliases = map[string]ApplicationStatus{
	"pending":  StatusPending,
	"approved": StatusApproved,
	"accepted": StatusApproved,
	"rejected": StatusRejected,
	"declined": StatusRejected,
}

var genderAliases = map[string]Gender{
	"male":   GenderMale,
	"m":      GenderMale,
	"boys":   GenderMale,
	"female": GenderFemale,
	"f":      GenderFemale,
	"girls":  GenderFemale,
	"any":    GenderAny,
	"co-ed":  GenderAny,
	"":       GenderAny,
}

func normalizeToken(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, "-", "_")
}

// ParseRoomStatus maps an upstream status string onto RoomStatus.
func ParseRoomStatus(raw string) (RoomStatus, error) {
	if st, ok := roomStatusAliases[normalizeToken(raw)]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown room status %q", raw)
}

// ParseApplicationStatus maps an upstream status string onto ApplicationStatus.
func ParseApplicationStatus(raw string) (ApplicationStatus, error) {
	if st, ok := applicationStatusAliases[normalizeToken(raw)]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", raw)
}

// ParseGender maps a gender tag; an empty tag means any.
func ParseGender(raw string) (Gender, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if g, ok := genderAliases[key]; ok {
		return g, nil
	}
	return "", fmt.Errorf("unknown gender tag %q", raw)
}

// Terminal reports whether no further transitions are allowed.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Active reports whether the application blocks a new submission by the same student.
func (s ApplicationStatus) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// Admits reports whether a hostel tagged g accepts a student of gender student.
func (g Gender) Admits(student Gender) bool {
	return g == GenderAny || student == "" || student == GenderAny || g == student
}
