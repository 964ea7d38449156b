package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/app/models/dto"
	"github.com/yigit/seatallot/internal/app/repositories"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
	"github.com/yigit/seatallot/internal/pkg/auth"
	"github.com/yigit/seatallot/internal/pkg/validation"
)

// AdminCredentials is the single configured administrator account
type AdminCredentials struct {
	Email        string
	PasswordHash string // bcrypt
}

// AuthService handles applicant and admin login
type AuthService struct {
	applicants repositories.ApplicantRepository
	jwtService *auth.JWTService
	admin      AdminCredentials
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	applicants repositories.ApplicantRepository,
	jwtService *auth.JWTService,
	admin AdminCredentials,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		applicants: applicants,
		jwtService: jwtService,
		admin:      admin,
		logger:     logger,
	}
}

// validateEmail validates an email address
func (s *AuthService) validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email cannot be empty", apperrors.ErrValidationFailed)
	}
	if !validation.IsEmail(email) {
		return fmt.Errorf("%w: invalid email format", apperrors.ErrValidationFailed)
	}
	return nil
}

// ApplicantLogin issues an applicant token. Both the email and the
// application number must belong to the same application.
func (s *AuthService) ApplicantLogin(ctx context.Context, req *dto.ApplicantLoginRequest) (*dto.TokenResponse, error) {
	email := strings.TrimSpace(req.Email)
	appNo := strings.TrimSpace(req.ApplicationNumber)

	if err := s.validateEmail(email); err != nil {
		return nil, err
	}
	if appNo == "" {
		return nil, fmt.Errorf("%w: application number cannot be empty", apperrors.ErrValidationFailed)
	}

	applicant, err := s.applicants.GetByApplicationNumber(ctx, appNo)
	if err != nil {
		if errors.Is(err, apperrors.ErrApplicantNotFound) {
			s.logger.Warn().Str("applicationNumber", appNo).Msg("Login for unknown application number")
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error retrieving applicant: %w", err)
	}

	if !strings.EqualFold(applicant.Email, email) {
		s.logger.Warn().Str("applicationNumber", appNo).Msg("Login email does not match application")
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issue(models.RoleApplicant, applicant.Email, applicant.ApplicationNumber)
}

// AdminLogin issues an admin token for the configured account
func (s *AuthService) AdminLogin(_ context.Context, req *dto.AdminLoginRequest) (*dto.TokenResponse, error) {
	if s.admin.Email == "" || s.admin.PasswordHash == "" {
		s.logger.Warn().Msg("Admin login attempted but no admin account is configured")
		return nil, apperrors.ErrInvalidCredentials
	}

	if !strings.EqualFold(strings.TrimSpace(req.Email), s.admin.Email) {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !auth.CheckPassword(s.admin.PasswordHash, req.Password) {
		s.logger.Warn().Str("email", req.Email).Msg("Admin login with wrong password")
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issue(models.RoleAdmin, s.admin.Email, "")
}

func (s *AuthService) issue(role models.RoleType, email, appNo string) (*dto.TokenResponse, error) {
	token, expiresIn, err := s.jwtService.GenerateToken(role, email, appNo)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:       token,
		TokenType:         "Bearer",
		ExpiresIn:         int64(expiresIn),
		Role:              string(role),
		ApplicationNumber: appNo,
	}, nil
}
