package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vigil-dev/vigil/db"
	"github.com/vigil-dev/vigil/internal/engine"
	"github.com/vigil-dev/vigil/internal/models"
	"github.com/vigil-dev/vigil/internal/store"
	"github.com/vigil-dev/vigil/internal/utils"
	"gorm.io/gorm"
)

// Store provides the 24h aggregates for monitor summaries. Set in main
// after the database connection is established.
var Store *store.Store

// MinInterval is the smallest accepted check interval, injected from
// config at startup.
var MinInterval = 30 * time.Second

type MonitorRequest struct {
	Name                string            `json:"name" binding:"required"`
	URL                 string            `json:"url" binding:"required"`
	Method              string            `json:"method"`
	Headers             map[string]string `json:"headers"`
	Body                string            `json:"body"`
	ContentType         string            `json:"content_type"`
	ExpectedStatusCodes []int             `json:"expected_status_codes" binding:"required"`
	TimeoutSeconds      int               `json:"timeout_seconds"`
	MaxResponseTimeMS   *int              `json:"max_response_time_ms"`
	BodyContains        string            `json:"body_contains"`
	BodyNotContains     string            `json:"body_not_contains"`
	IntervalSeconds     int               `json:"interval_seconds" binding:"required"`
	AlertAfterFailures  int               `json:"alert_after_failures"`
	WebhookURL          string            `json:"webhook_url"`
	Enabled             *bool             `json:"enabled"`
}

type MonitorSummary struct {
	ID                  uint       `json:"id"`
	Name                string     `json:"name"`
	URL                 string     `json:"url"`
	Method              string     `json:"method"`
	IntervalSeconds     int        `json:"interval_seconds"`
	Enabled             bool       `json:"enabled"`
	Status              string     `json:"status"`
	LastCheckedAt       *time.Time `json:"last_checked_at"`
	LastStatusCode      *int       `json:"last_status_code"`
	LastResponseTimeMS  *int64     `json:"last_response_time_ms"`
	LastError           string     `json:"last_error,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	Uptime              float64    `json:"uptime_percentage"`
	ResponseTime        float64    `json:"avg_response_time"`
}

func validateMonitorRequest(req *MonitorRequest) error {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut:
	default:
		return fmt.Errorf("method %q is not supported; use GET, HEAD, POST or PUT", req.Method)
	}

	if err := engine.ValidateURL(req.URL); err != nil {
		return err
	}

	if len(req.ExpectedStatusCodes) == 0 {
		return errors.New("at least one expected status code is required")
	}

	if time.Duration(req.IntervalSeconds)*time.Second < MinInterval {
		return fmt.Errorf("check interval must be at least %d seconds", int(MinInterval.Seconds()))
	}

	if req.TimeoutSeconds <= 0 {
		req.TimeoutSeconds = 10
	}

	if req.AlertAfterFailures < 1 {
		req.AlertAfterFailures = 1
	}

	if req.WebhookURL != "" {
		if err := engine.ValidateURL(req.WebhookURL); err != nil {
			return err
		}
	}

	return nil
}

func applyMonitorRequest(monitor *models.Monitor, req *MonitorRequest) error {
	headersJSON, err := json.Marshal(req.Headers)
	if err != nil {
		return errors.New("invalid headers format")
	}

	codesJSON, err := json.Marshal(req.ExpectedStatusCodes)
	if err != nil {
		return errors.New("invalid status codes format")
	}

	monitor.Name = req.Name
	monitor.URL = req.URL
	monitor.Method = req.Method
	monitor.Headers = headersJSON
	monitor.Body = req.Body
	monitor.ContentType = req.ContentType
	monitor.ExpectedStatusCodes = codesJSON
	monitor.TimeoutSeconds = req.TimeoutSeconds
	monitor.MaxResponseTimeMS = req.MaxResponseTimeMS
	monitor.BodyContains = req.BodyContains
	monitor.BodyNotContains = req.BodyNotContains
	monitor.IntervalSeconds = req.IntervalSeconds
	monitor.AlertAfterFailures = req.AlertAfterFailures
	monitor.WebhookURL = req.WebhookURL

	if req.Enabled != nil {
		monitor.Enabled = *req.Enabled
	}

	return nil
}

func CreateMonitor(ctx *gin.Context) {
	var req MonitorRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := validateMonitorRequest(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	monitor := models.Monitor{
		UserID:  userID,
		Enabled: true,
		Status:  "pending",
	}

	if err := applyMonitorRequest(&monitor, &req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := db.DB.Create(&monitor).Error; err != nil {
		log.Printf("Failed to create monitor: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create monitor"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "Monitor created successfully", "monitor_id": monitor.ID})
}

func GetMonitors(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var monitors []models.Monitor
	if err := db.DB.Where("user_id = ?", userID).Find(&monitors).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve monitors"})
		return
	}

	summaries := make([]MonitorSummary, 0, len(monitors))
	for i := range monitors {
		summaries = append(summaries, buildMonitorSummary(&monitors[i]))
	}

	ctx.JSON(http.StatusOK, summaries)
}

func GetMonitor(ctx *gin.Context) {
	monitor, ok := ownedMonitor(ctx)
	if !ok {
		return
	}

	summary := buildMonitorSummary(monitor)
	ctx.JSON(http.StatusOK, summary)
}

func UpdateMonitor(ctx *gin.Context) {
	monitor, ok := ownedMonitor(ctx)
	if !ok {
		return
	}

	var req MonitorRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validateMonitorRequest(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := applyMonitorRequest(monitor, &req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := db.DB.Save(monitor).Error; err != nil {
		log.Printf("Failed to update monitor %d: %v", monitor.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update monitor"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Monitor updated successfully", "monitor_id": monitor.ID})
}

func DeleteMonitor(ctx *gin.Context) {
	monitor, ok := ownedMonitor(ctx)
	if !ok {
		return
	}

	// Cascade delete removes the monitor's check results and status
	// events with it.
	if err := db.DB.Delete(monitor).Error; err != nil {
		log.Printf("Failed to delete monitor %d: %v", monitor.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete monitor"})
		return
	}

	ctx.Status(http.StatusNoContent)
}

// PauseMonitor toggles the enabled flag without touching the rest of
// the configuration.
func PauseMonitor(ctx *gin.Context) {
	monitor, ok := ownedMonitor(ctx)
	if !ok {
		return
	}

	monitor.Enabled = !monitor.Enabled

	if err := db.DB.Model(monitor).Update("enabled", monitor.Enabled).Error; err != nil {
		log.Printf("Failed to toggle monitor %d: %v", monitor.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update monitor"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"monitor_id": monitor.ID, "enabled": monitor.Enabled})
}

func GetMonitorChecks(ctx *gin.Context) {
	monitor, ok := ownedMonitor(ctx)
	if !ok {
		return
	}

	var checks []models.CheckResult
	if err := db.DB.Where("monitor_id = ?", monitor.ID).
		Order("checked_at DESC").
		Limit(50).
		Find(&checks).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get checks"})
		return
	}

	ctx.JSON(http.StatusOK, checks)
}

func GetMonitorEvents(ctx *gin.Context) {
	monitor, ok := ownedMonitor(ctx)
	if !ok {
		return
	}

	var events []models.StatusEvent
	if err := db.DB.Where("monitor_id = ?", monitor.ID).
		Order("created_at DESC").
		Limit(50).
		Find(&events).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get status events"})
		return
	}

	ctx.JSON(http.StatusOK, events)
}

// ownedMonitor loads the monitor from the path parameter and verifies
// the requesting user owns it. Writes the error response itself when
// returning ok=false.
func ownedMonitor(ctx *gin.Context) (*models.Monitor, bool) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil, false
	}

	monitorID, err := utils.GetMonitorID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	var monitor models.Monitor

	if err := db.DB.Where("id = ? AND user_id = ?", monitorID, userID).First(&monitor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Monitor not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve monitor"})
		}
		return nil, false
	}

	return &monitor, true
}

func buildMonitorSummary(monitor *models.Monitor) MonitorSummary {
	summary := MonitorSummary{
		ID:                  monitor.ID,
		Name:                monitor.Name,
		URL:                 monitor.URL,
		Method:              monitor.Method,
		IntervalSeconds:     monitor.IntervalSeconds,
		Enabled:             monitor.Enabled,
		Status:              monitor.Status,
		LastCheckedAt:       monitor.LastCheckedAt,
		LastStatusCode:      monitor.LastStatusCode,
		LastResponseTimeMS:  monitor.LastResponseTimeMS,
		LastError:           monitor.LastError,
		ConsecutiveFailures: monitor.ConsecutiveFailures,
	}

	if Store != nil {
		summary.Uptime = Store.Uptime24h(monitor.ID)
		summary.ResponseTime = Store.AvgResponseTime24h(monitor.ID)
	}

	return summary
}
