package model

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

// Document is an uploaded file attached to an application.
type Document struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Data     string `json:"data"` // base64
}

// Application is a student's request for a room in a hostel.
type Application struct {
	ID              string            `gorm:"primaryKey;size:36" json:"id"`
	StudentID       string            `gorm:"size:64;not null;index" json:"studentId"`
	HostelID        string            `gorm:"size:36;not null;index" json:"hostelId"`
	Status          ApplicationStatus `gorm:"size:16;not null;index" json:"status"`
	RoomNumber      string            `gorm:"size:32" json:"roomNumber,omitempty"`
	Floor           string            `gorm:"size:16" json:"floor,omitempty"`
	RejectionReason string            `gorm:"size:512" json:"rejectionReason,omitempty"`
	AppliedOn       time.Time         `gorm:"not null;index" json:"appliedOn"`
	DecidedOn       *time.Time        `json:"decidedOn,omitempty"`
	DecidedBy       string            `gorm:"size:64" json:"decidedBy,omitempty"`

	// Academic metadata
	Year   int    `json:"year"`
	Caste  string `gorm:"size:64" json:"caste,omitempty"`
	Branch string `gorm:"size:128" json:"branch,omitempty"`
	DOB    string `gorm:"size:10" json:"dob,omitempty"` // 2006-01-02
	Gender Gender `gorm:"size:16" json:"gender,omitempty"`

	Documents datatypes.JSONSlice[Document] `json:"documents,omitempty"`
}

// Clone returns a copy that shares no slice or pointer storage with a.
func (a Application) Clone() Application {
	c := a
	c.Documents = slices.Clone(a.Documents)
	if a.DecidedOn != nil {
		t := *a.DecidedOn
		c.DecidedOn = &t
	}
	return c
}
