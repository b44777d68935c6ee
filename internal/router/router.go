package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/vigil-dev/vigil/internal/handlers"
	"github.com/vigil-dev/vigil/internal/middleware"
	"github.com/vigil-dev/vigil/internal/types"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/cron/run", handlers.RunChecks)
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocket)

		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.CreateUser)
			auth.POST("/login", handlers.LoginUser)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
		}

		monitors := api.Group("/monitors", middleware.AuthMiddleware())
		{
			monitors.POST("", handlers.CreateMonitor)
			monitors.GET("", handlers.GetMonitors)
			monitors.GET("/:monitor_id", handlers.GetMonitor)
			monitors.PUT("/:monitor_id", handlers.UpdateMonitor)
			monitors.DELETE("/:monitor_id", handlers.DeleteMonitor)
			monitors.PATCH("/:monitor_id/pause", handlers.PauseMonitor)
			monitors.GET("/:monitor_id/checks", handlers.GetMonitorChecks)
			monitors.GET("/:monitor_id/events", handlers.GetMonitorEvents)
		}
	}

	return r
}
