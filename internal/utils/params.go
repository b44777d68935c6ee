package utils

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

func GetMonitorID(ctx *gin.Context) (uint64, error) {
	monitorIDStr := ctx.Param("monitor_id")

	if monitorIDStr == "" {
		return 0, errors.New("Monitor ID not found")
	}

	monitorID, err := strconv.ParseUint(monitorIDStr, 10, 32)

	if err != nil {
		return 0, errors.New("Invalid Monitor ID")
	}

	return monitorID, nil
}
