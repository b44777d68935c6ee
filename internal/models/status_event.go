package models

// StatusEvent is one immutable record per health-state transition.
// DurationMS is the time spent in the previous status, computed from the
// previous event's timestamp; nil when there is no previous event.
type StatusEvent struct {
	BaseModel

	MonitorID  uint   `gorm:"not null;index"`
	Status     string `gorm:"not null"`
	DurationMS *int64

	// Relationships
	Monitor Monitor `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
