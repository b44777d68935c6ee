package handlers

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vigil-dev/vigil/internal/engine"
)

var (
	coordinator    *engine.Coordinator
	cronSecret     string
	triggerTimeout = 60 * time.Second
)

// InitCron wires the trigger endpoint to the batch coordinator. Called
// once from main before the router starts serving.
func InitCron(coord *engine.Coordinator, secret string, timeout time.Duration) {
	coordinator = coord
	cronSecret = secret
	if timeout > 0 {
		triggerTimeout = timeout
	}
}

// RunChecks is the trigger endpoint consumed by the external scheduler.
// It authorizes via a shared-secret query parameter, runs one
// time-boxed coordinator pass and reports aggregate counts. Individual
// monitor failures never surface here; only a selector-level failure
// (no monitors could be evaluated) returns 500.
func RunChecks(ctx *gin.Context) {
	secret := ctx.Query("secret")

	if cronSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(cronSecret)) != 1 {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing secret"})
		return
	}

	if coordinator == nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Check engine is not initialized"})
		return
	}

	runCtx, cancel := context.WithTimeout(ctx.Request.Context(), triggerTimeout)
	defer cancel()

	summary, err := coordinator.Run(runCtx)

	if err != nil {
		log.Printf("Batch run failed before any monitors were processed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list monitors: " + err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"checked":    summary.Checked,
		"down":       summary.Down,
		"recovered":  summary.Recovered,
		"degraded":   summary.Degraded,
		"durationMs": summary.Duration.Milliseconds(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
