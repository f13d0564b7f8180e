package models

import (
	"time"
)

// ScanRun is one batch execution over the image folder.
type ScanRun struct {
	ID         string `gorm:"primaryKey;size:36"` // uuid
	CreatedAt  time.Time
	FinishedAt time.Time
	InputDir   string        `gorm:"size:512;not null"`
	Files      int           `gorm:"not null"`
	Detected   int           `gorm:"not null"`
	Results    []PriceResult `gorm:"foreignKey:RunID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
