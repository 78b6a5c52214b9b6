package model

import "time"

// Notice is a decision message a student reads from their inbox.
type Notice struct {
	ID            int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID     string            `gorm:"size:64;not null;index" json:"studentId"`
	ApplicationID string            `gorm:"size:36;not null" json:"applicationId"`
	Status        ApplicationStatus `gorm:"size:16;not null" json:"status"`
	Message       string            `gorm:"size:512;not null" json:"message"`
	CreatedAt     time.Time         `gorm:"not null" json:"createdAt"`
}
