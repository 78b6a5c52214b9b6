package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	spaceRe = regexp.MustCompile(`\s+`)
	roomRe  = regexp.MustCompile(`(?:^|[-/\s])(\d+[A-Za-z]?)\s*$`)
	floorRe = regexp.MustCompile(`(?i)(\d+)\s*(?:F|层|楼)?\s*$`)
	digitRe = regexp.MustCompile(`^\d+`)
)

// RoomLabel holds the structured data parsed from an upstream room label.
type RoomLabel struct {
	Hostel string
	Floor  string
	Room   string
}

// ParseRoomLabel extracts hostel, floor and room number from labels such as
// "A-3-12", "Aravali 2F-07", "B栋2F-07" or "Block C 104".
//
// floorHint is used when the label carries no floor of its own. Without either,
// the floor is taken from the leading digits of a room number of three or more
// digits ("104" is on floor 1).
func ParseRoomLabel(raw string, floorHint string) (RoomLabel, error) {
	// "#" separates parts rather than being dropped, so digits never run together.
	s := strings.ReplaceAll(strings.TrimSpace(raw), "#", " ")
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))

	loc := roomRe.FindStringSubmatchIndex(s)
	if loc == nil {
		return RoomLabel{}, fmt.Errorf("unable to parse room number from label: %q", raw)
	}
	room := s[loc[2]:loc[3]]
	rest := strings.TrimRight(s[:loc[0]], "-/ ")

	floor := ""
	hostel := rest
	if loc := floorRe.FindStringSubmatchIndex(rest); loc != nil {
		if n, err := strconv.Atoi(rest[loc[2]:loc[3]]); err == nil {
			floor = strconv.Itoa(n)
			hostel = rest[:loc[0]]
		}
	}

	if floor == "" && floorHint != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(floorHint)); err == nil {
			floor = strconv.Itoa(n)
		}
	}

	if floor == "" {
		digits := digitRe.FindString(room)
		if len(digits) >= 3 {
			n, _ := strconv.Atoi(digits[:len(digits)-2])
			floor = strconv.Itoa(n)
		}
	}

	if floor == "" {
		return RoomLabel{}, fmt.Errorf("unable to parse floor from label: %q", raw)
	}

	hostel = strings.TrimSpace(strings.TrimRight(hostel, "-/ "))
	return RoomLabel{Hostel: hostel, Floor: floor, Room: room}, nil
}
