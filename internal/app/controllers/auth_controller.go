// Package controllers handles HTTP request handling
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/seatallot/internal/app/models/dto"
	"github.com/yigit/seatallot/internal/app/services"
	"github.com/yigit/seatallot/internal/middleware"
)

// AuthController handles authentication related operations
type AuthController struct {
	authService *services.AuthService
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService *services.AuthService, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      logger,
	}
}

// Login handles applicant login
// @Summary Applicant login
// @Description Authenticates an applicant with email and application number and returns an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ApplicantLoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.TokenResponse} "Login successful"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.ApplicantLoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid login request payload")
		ctx.JSON(http.StatusBadRequest, dto.NewFailureResponse(dto.HandleValidationError(err)))
		return
	}

	token, err := c.authService.ApplicantLogin(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Str("applicationNumber", token.ApplicationNumber).Msg("Applicant logged in")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(token, "Login successful"))
}

// AdminLogin handles administrator login
// @Summary Admin login
// @Description Authenticates the administrator and returns an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.AdminLoginRequest true "Admin credentials"
// @Success 200 {object} dto.APIResponse{data=dto.TokenResponse} "Login successful"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Router /auth/admin/login [post]
func (c *AuthController) AdminLogin(ctx *gin.Context) {
	var req dto.AdminLoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid admin login request payload")
		ctx.JSON(http.StatusBadRequest, dto.NewFailureResponse(dto.HandleValidationError(err)))
		return
	}

	token, err := c.authService.AdminLogin(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Msg("Admin logged in")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(token, "Login successful"))
}
