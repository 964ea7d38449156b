package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yigit/seatallot/internal/app/controllers"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/app/models/dto"
	"github.com/yigit/seatallot/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	seatController *controllers.SeatController,
	allocationController *controllers.AllocationController,
	authMiddleware *middleware.AuthMiddleware,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/login", authController.Login)
		auth.POST("/admin/login", authController.AdminLogin)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	// Applicant routes
	seat := authenticated.Group("/seat-allotment")
	seat.Use(authMiddleware.RoleRequired(models.RoleApplicant))
	{
		seat.GET("", seatController.GetSeatAllotment)
		seat.POST("/status", seatController.SubmitDecision)
	}

	// Admin routes
	admin := authenticated.Group("/admin")
	admin.Use(authMiddleware.RoleRequired(models.RoleAdmin))
	{
		admin.POST("/allocate-round", allocationController.AllocateRound)
		admin.POST("/allocate-round/preview", allocationController.PreviewRound)
		admin.GET("/inventory", allocationController.GetInventory)
		admin.POST("/inventory/reconcile", allocationController.Reconcile)
	}

	// Health check endpoint (public)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}, ""))
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
