package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model

	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`

	// Alert delivery configuration consumed by the dispatcher.
	PushTokens datatypes.JSON `gorm:"type:jsonb"` // array of device push tokens
	ChatID     string
	EmailOptIn bool `gorm:"default:true"`
	PushOptIn  bool `gorm:"default:true"`
	ChatOptIn  bool `gorm:"default:true"`

	// Relationships
	Monitors []Monitor `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

// PushTokenList decodes the stored push token array. Invalid or empty
// JSON yields an empty list.
func (u *User) PushTokenList() []string {
	if len(u.PushTokens) == 0 {
		return nil
	}

	var tokens []string
	if err := json.Unmarshal(u.PushTokens, &tokens); err != nil {
		return nil
	}

	return tokens
}
