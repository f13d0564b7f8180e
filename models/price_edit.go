package models

import "time"

// PriceEdit records a manual correction made through the review API.
type PriceEdit struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	FileName  string `gorm:"size:255;not null;index"`
	OldPrice  string `gorm:"size:64"`
	NewPrice  string `gorm:"size:64"`
	Reviewer  string `gorm:"size:255"`
}
