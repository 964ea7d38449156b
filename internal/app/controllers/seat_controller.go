package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/app/models/dto"
	"github.com/yigit/seatallot/internal/app/services"
	"github.com/yigit/seatallot/internal/middleware"
)

// SeatController serves the applicant-facing seat endpoints
type SeatController struct {
	decisionService *services.DecisionService
	logger          zerolog.Logger
}

// NewSeatController creates a new SeatController
func NewSeatController(decisionService *services.DecisionService, logger zerolog.Logger) *SeatController {
	return &SeatController{
		decisionService: decisionService,
		logger:          logger,
	}
}

// GetSeatAllotment returns the caller's current seat
// @Summary Get seat allotment
// @Description Returns the seat currently held by the authenticated applicant
// @Tags seats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SeatAllotmentResponse} "Current seat"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Seat allotment not found"
// @Router /seat-allotment [get]
func (c *SeatController) GetSeatAllotment(ctx *gin.Context) {
	appNo := middleware.ApplicationNumber(ctx)

	allotment, err := c.decisionService.GetSeatAllotment(ctx.Request.Context(), appNo)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	rec := allotment.Allocation
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SeatAllotmentResponse{
		ApplicationNumber: rec.ApplicationNumber,
		CandidateName:     allotment.Applicant.Name,
		Category:          string(rec.Category),
		Round:             rec.Round,
		Department:        rec.Department,
		Preference:        rec.PreferenceRank,
		Status:            string(rec.Status),
		AllocatedAt:       rec.CreatedAt,
	}, ""))
}

// SubmitDecision records LOCK or FLOAT on the caller's seat
// @Summary Submit seat decision
// @Description Locks the current seat or floats it for later upgrades. Allowed once per allocation.
// @Tags seats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.DecisionRequest true "Decision"
// @Success 200 {object} dto.APIResponse{data=dto.DecisionResponse} "Decision recorded"
// @Failure 400 {object} dto.ErrorResponse "Invalid decision"
// @Failure 404 {object} dto.ErrorResponse "Seat allotment not found"
// @Failure 409 {object} dto.ErrorResponse "Decision already submitted"
// @Router /seat-allotment/status [post]
func (c *SeatController) SubmitDecision(ctx *gin.Context) {
	var req dto.DecisionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewFailureResponse(dto.HandleValidationError(err)))
		return
	}

	appNo := middleware.ApplicationNumber(ctx)
	record, err := c.decisionService.SubmitDecision(ctx.Request.Context(), appNo, models.DecisionStatus(req.Status))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.DecisionResponse{
		ApplicationNumber: record.ApplicationNumber,
		Department:        record.Department,
		Status:            string(record.Status),
	}, "Status updated"))
}
