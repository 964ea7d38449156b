package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/seatallot/internal/app/models/dto"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
)

// --- Central Error Handling Middleware/Function ---

// HandleAPIError maps service errors to HTTP responses
func HandleAPIError(c *gin.Context, err error) {
	status, detail := errorToResponse(err)

	// Carry the custom message and details when the service supplied them
	var custom *apperrors.CustomError
	if errors.As(err, &custom) {
		if custom.Message != "" && status < http.StatusInternalServerError {
			detail.Message = custom.Message
		}
		if custom.Details != nil {
			detail = detail.WithDetails(custom.Details)
		}
	}

	if status >= http.StatusInternalServerError {
		detail = detail.WithSeverity(dto.ErrorSeverityCritical)
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(status, dto.NewFailureResponse(detail))
}

func errorToResponse(err error) (int, *dto.ErrorDetail) {
	switch {
	// Allocation
	case errors.Is(err, apperrors.ErrInvalidRound):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeInvalidRound, "Round number must be a positive integer").WithField("roundNumber")
	case errors.Is(err, apperrors.ErrRoundInProgress):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeRoundInProgress, "An allocation round is already in progress")
	case errors.Is(err, apperrors.ErrInconsistentInventory):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeInconsistentInventory, "Seat inventory is inconsistent")

	// Decisions
	case errors.Is(err, apperrors.ErrAllocationNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeAllocationNotFound, "Seat allotment not found")
	case errors.Is(err, apperrors.ErrDecisionAlreadySubmitted):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeDecisionAlreadySubmitted, "Decision already submitted")
	case errors.Is(err, apperrors.ErrInvalidDecision):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeInvalidDecision, "Status must be LOCK or FLOAT").WithField("status")

	// Resources
	case errors.Is(err, apperrors.ErrApplicantNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Applicant not found")
	case errors.Is(err, apperrors.ErrResourceNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Resource not found")
	case errors.Is(err, apperrors.ErrApplicantExists):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, "Applicant already exists")
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeConflict, "Conflict")

	// Auth
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidCredentials, "Invalid credentials")
	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Token expired")
	case errors.Is(err, apperrors.ErrTokenInvalid):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid token")
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return http.StatusForbidden, dto.NewErrorDetail(dto.ErrorCodeForbidden, "Permission denied")

	// Validation
	case errors.Is(err, apperrors.ErrValidationFailed):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Validation failed").WithDetails(err.Error())
	case errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeBadRequest, "Bad request")

	default:
		// Handle unknown errors
		return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
	}
}
