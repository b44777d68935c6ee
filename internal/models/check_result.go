package models

import (
	"time"
)

// CheckResult is one immutable record per probe attempt, append-only and
// ordered by CheckedAt.
type CheckResult struct {
	BaseModel

	MonitorID      uint   `gorm:"not null;index"`
	Success        bool   `gorm:"not null"`
	StatusCode     *int   // nil when no response was obtained
	ResponseTimeMS int64  `gorm:"not null"`
	Error          string
	ResponseBody   string    // truncated preview
	CheckedAt      time.Time `gorm:"not null;index"`

	// Relationships
	Monitor Monitor `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
