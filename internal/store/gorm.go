package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vigil-dev/vigil/internal/models"
	"gorm.io/gorm"
)

// Store is the gorm-backed MonitorStore.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListEnabledMonitors(ctx context.Context) ([]models.Monitor, error) {
	var monitors []models.Monitor
	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Find(&monitors).Error; err != nil {
		return nil, err
	}
	return monitors, nil
}

func (s *Store) GetMonitor(ctx context.Context, id uint) (*models.Monitor, error) {
	var monitor models.Monitor
	if err := s.db.WithContext(ctx).First(&monitor, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &monitor, nil
}

func (s *Store) UpdateMonitorFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.db.WithContext(ctx).Model(&models.Monitor{}).Where("id = ?", id).Updates(fields).Error
}

func (s *Store) AppendCheckResult(ctx context.Context, result *models.CheckResult) error {
	return s.db.WithContext(ctx).Create(result).Error
}

func (s *Store) AppendStatusEvent(ctx context.Context, monitorID uint, status string, durationMS *int64) (*models.StatusEvent, error) {
	event := models.StatusEvent{
		MonitorID:  monitorID,
		Status:     status,
		DurationMS: durationMS,
	}

	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, err
	}

	return &event, nil
}

func (s *Store) LastStatusEvent(ctx context.Context, monitorID uint) (*models.StatusEvent, error) {
	var event models.StatusEvent
	err := s.db.WithContext(ctx).
		Where("monitor_id = ?", monitorID).
		Order("created_at DESC").
		First(&event).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &event, nil
}

func (s *Store) ContactInfo(ctx context.Context, userID uint) (*ContactInfo, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, err
	}

	return &ContactInfo{
		Email:      user.Email,
		PushTokens: user.PushTokenList(),
		ChatID:     user.ChatID,
		EmailOptIn: user.EmailOptIn,
		PushOptIn:  user.PushOptIn,
		ChatOptIn:  user.ChatOptIn,
	}, nil
}

// Uptime24h returns the success percentage over the last 24 hours.
// Monitors with no checks in the window report 100%.
func (s *Store) Uptime24h(monitorID uint) float64 {
	var total, successful int64
	since := time.Now().Add(-24 * time.Hour)

	s.db.Model(&models.CheckResult{}).
		Where("monitor_id = ? AND checked_at > ?", monitorID, since).
		Count(&total)

	s.db.Model(&models.CheckResult{}).
		Where("monitor_id = ? AND success = ? AND checked_at > ?", monitorID, true, since).
		Count(&successful)

	if total == 0 {
		return 100.0
	}

	return float64(successful) / float64(total) * 100
}

// AvgResponseTime24h returns the mean response time of successful checks
// over the last 24 hours, in milliseconds.
func (s *Store) AvgResponseTime24h(monitorID uint) float64 {
	var avg sql.NullFloat64

	s.db.Model(&models.CheckResult{}).
		Select("AVG(response_time_ms)").
		Where("monitor_id = ? AND success = ? AND checked_at > ?", monitorID, true, time.Now().Add(-24*time.Hour)).
		Scan(&avg)

	if avg.Valid {
		return avg.Float64
	}

	return 0
}
