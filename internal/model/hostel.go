package model

import "time"

// Hostel represents a residential building students can apply to.
type Hostel struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Gender    Gender    `gorm:"size:16;not null;default:any" json:"gender"`
	Capacity  int       `gorm:"not null" json:"capacity"`
	WardenID  string    `gorm:"size:64" json:"wardenId,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`

	// Derived by the engine, never persisted.
	AvailableRooms      int `gorm:"-" json:"availableRooms"`
	PendingApplications int `gorm:"-" json:"pendingApplications"`
}
