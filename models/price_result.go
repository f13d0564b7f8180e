package models

import (
	"time"
)

// PriceResult is the outcome for a single image within a ScanRun.
type PriceResult struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	RunID     string `gorm:"index;size:36;not null"`
	FileName  string `gorm:"size:255;not null;index"`
	Price     string `gorm:"size:64"` // empty when not detected
	Strategy  string `gorm:"size:32"`
	RawText   string `gorm:"type:text"`
	Cached    bool   `gorm:"default:false"`
	// Failed marks files that could not be decoded or recognized
	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`
}
