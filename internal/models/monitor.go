package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type Monitor struct {
	BaseModel

	UserID uint   `gorm:"not null;index"` // Foreign key to the owning User
	Name   string `gorm:"not null"`

	// Request definition. Headers are plaintext at the engine boundary; any
	// at-rest encryption is handled before they reach the prober.
	URL         string         `gorm:"not null"`
	Method      string         `gorm:"not null;default:GET"` // GET, HEAD, POST, PUT
	Headers     datatypes.JSON `gorm:"type:jsonb"`
	Body        string
	ContentType string

	// Expectations
	ExpectedStatusCodes datatypes.JSON `gorm:"type:jsonb"` // non-empty int array
	TimeoutSeconds      int            `gorm:"not null;default:10"`
	MaxResponseTimeMS   *int
	BodyContains        string
	BodyNotContains     string

	// Schedule and alerting policy
	IntervalSeconds    int  `gorm:"not null"`
	AlertAfterFailures int  `gorm:"not null;default:1"`
	WebhookURL         string
	Enabled            bool `gorm:"default:true"`

	// Live state, owned by the health state machine.
	Status              string `gorm:"not null;default:pending"`
	LastCheckedAt       *time.Time
	LastStatusCode      *int
	LastResponseTimeMS  *int64
	LastError           string
	LastResponseBody    string
	ConsecutiveFailures int `gorm:"not null;default:0"`

	// Relationships
	User         User          `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	CheckResults []CheckResult `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	StatusEvents []StatusEvent `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}

// HeaderMap decodes the stored header JSON. Invalid or empty JSON yields
// an empty map.
func (m *Monitor) HeaderMap() map[string]string {
	headers := make(map[string]string)
	if len(m.Headers) == 0 {
		return headers
	}

	if err := json.Unmarshal(m.Headers, &headers); err != nil {
		return map[string]string{}
	}

	return headers
}

// StatusCodes decodes the accepted status code set.
func (m *Monitor) StatusCodes() []int {
	if len(m.ExpectedStatusCodes) == 0 {
		return nil
	}

	var codes []int
	if err := json.Unmarshal(m.ExpectedStatusCodes, &codes); err != nil {
		return nil
	}

	return codes
}

func (m *Monitor) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

func (m *Monitor) Interval() time.Duration {
	return time.Duration(m.IntervalSeconds) * time.Second
}
