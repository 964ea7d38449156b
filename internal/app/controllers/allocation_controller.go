package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/seatallot/internal/app/models/dto"
	"github.com/yigit/seatallot/internal/app/services"
	"github.com/yigit/seatallot/internal/middleware"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
)

// AllocationController serves the admin allocation endpoints
type AllocationController struct {
	orchestrator     *services.RoundOrchestrator
	previewService   *services.PreviewService
	inventoryService *services.InventoryService
	logger           zerolog.Logger
}

// NewAllocationController creates a new AllocationController
func NewAllocationController(
	orchestrator *services.RoundOrchestrator,
	previewService *services.PreviewService,
	inventoryService *services.InventoryService,
	logger zerolog.Logger,
) *AllocationController {
	return &AllocationController{
		orchestrator:     orchestrator,
		previewService:   previewService,
		inventoryService: inventoryService,
		logger:           logger,
	}
}

// AllocateRound runs an allocation round
// @Summary Run allocation round
// @Description Runs the allocation engine for every category in priority order. A failing category is reported and does not stop the round.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AllocateRoundRequest true "Round number"
// @Success 200 {object} dto.APIResponse{data=services.RoundReport} "Round report"
// @Failure 400 {object} dto.ErrorResponse "Invalid round number"
// @Failure 409 {object} dto.ErrorResponse "Round already in progress"
// @Router /admin/allocate-round [post]
func (c *AllocationController) AllocateRound(ctx *gin.Context) {
	var req dto.AllocateRoundRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewFailureResponse(dto.HandleValidationError(err)))
		return
	}

	report, err := c.orchestrator.RunRound(ctx.Request.Context(), req.RoundNumber)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	message := "Seat allocation completed"
	if len(report.Failed) > 0 {
		message = "Seat allocation completed with failed categories"
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(report, message))
}

// PreviewRound projects a round without committing it
// @Summary Preview allocation round
// @Description Runs the round against an in-memory copy of the data and returns the projected report and inventory
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AllocateRoundRequest true "Round number"
// @Success 200 {object} dto.APIResponse{data=services.RoundPreview} "Projected round"
// @Failure 400 {object} dto.ErrorResponse "Invalid round number"
// @Router /admin/allocate-round/preview [post]
func (c *AllocationController) PreviewRound(ctx *gin.Context) {
	var req dto.AllocateRoundRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewFailureResponse(dto.HandleValidationError(err)))
		return
	}

	preview, err := c.previewService.PreviewRound(ctx.Request.Context(), req.RoundNumber)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(preview, "Preview only, nothing was saved"))
}

// GetInventory lists the seat counters
// @Summary Get seat inventory
// @Description Lists every (category, department) row with original and remaining seats
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.InventoryStatusResponse} "Seat inventory"
// @Router /admin/inventory [get]
func (c *AllocationController) GetInventory(ctx *gin.Context) {
	rows, err := c.inventoryService.List(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	remaining, err := c.inventoryService.HasRemainingSeats(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.InventoryStatusResponse{
		SeatsRemaining: remaining,
		Rows:           rows,
	}, ""))
}

// Reconcile recomputes the seat counters from the allocation records
// @Summary Reconcile seat inventory
// @Description Recomputes remaining seats from active allocations. Rows with more allocations than seats are halted.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.ReconcileResult} "All rows consistent"
// @Failure 409 {object} dto.APIResponse{data=[]models.ReconcileResult} "Some rows were halted"
// @Router /admin/inventory/reconcile [post]
func (c *AllocationController) Reconcile(ctx *gin.Context) {
	results, err := c.inventoryService.Reconcile(ctx.Request.Context())
	if err != nil && !errors.Is(err, apperrors.ErrInconsistentInventory) {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err != nil {
		resp := dto.NewFailureResponse(dto.NewErrorDetail(dto.ErrorCodeInconsistentInventory, err.Error()))
		resp.Data = results
		ctx.JSON(http.StatusConflict, resp)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(results, "Inventory reconciled"))
}
