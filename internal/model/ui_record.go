package model

import "time"

// UIRecord is a single persisted UI-state entry. Value holds a small JSON document.
type UIRecord struct {
	Key       string    `gorm:"column:record_key;primaryKey;size:128"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
