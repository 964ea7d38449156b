package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/app/models/dto"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
	"github.com/yigit/seatallot/internal/pkg/auth"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) (*AuthService, *auth.JWTService) {
	t.Helper()
	store := newStore(t, nil, applicant("APP1001", gen, 1, "cse"))

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "seatallot-test",
	})
	svc := NewAuthService(store.Applicants(), jwtService, AdminCredentials{
		Email:        "admin@seatallot.local",
		PasswordHash: string(hash),
	}, nopLogger)
	return svc, jwtService
}

func TestApplicantLogin(t *testing.T) {
	svc, jwtService := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.ApplicantLogin(ctx, &dto.ApplicantLoginRequest{
		Email:             "APP1001@Example.com",
		ApplicationNumber: " APP1001 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, string(models.RoleApplicant), resp.Role)
	assert.Equal(t, "APP1001", resp.ApplicationNumber)

	claims, err := jwtService.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "APP1001", claims.ApplicationNumber)
	assert.Equal(t, string(models.RoleApplicant), claims.Role)
}

func TestApplicantLogin_Rejections(t *testing.T) {
	svc, _ := newAuthService(t)

	tests := []struct {
		name    string
		req     dto.ApplicantLoginRequest
		wantErr error
	}{
		{"unknown application", dto.ApplicantLoginRequest{Email: "APP1001@example.com", ApplicationNumber: "APP9999"}, apperrors.ErrInvalidCredentials},
		{"email of someone else", dto.ApplicantLoginRequest{Email: "other@example.com", ApplicationNumber: "APP1001"}, apperrors.ErrInvalidCredentials},
		{"malformed email", dto.ApplicantLoginRequest{Email: "not-an-email", ApplicationNumber: "APP1001"}, apperrors.ErrValidationFailed},
		{"missing application number", dto.ApplicantLoginRequest{Email: "APP1001@example.com"}, apperrors.ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ApplicantLogin(context.Background(), &tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAdminLogin(t *testing.T) {
	svc, jwtService := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.AdminLogin(ctx, &dto.AdminLoginRequest{Email: "Admin@seatallot.local", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, string(models.RoleAdmin), resp.Role)
	assert.Empty(t, resp.ApplicationNumber)

	claims, err := jwtService.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, string(models.RoleAdmin), claims.Role)

	_, err = svc.AdminLogin(ctx, &dto.AdminLoginRequest{Email: "admin@seatallot.local", Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.AdminLogin(ctx, &dto.AdminLoginRequest{Email: "someone@seatallot.local", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	unconfigured := NewAuthService(nil, jwtService, AdminCredentials{}, nopLogger)
	_, err = unconfigured.AdminLogin(ctx, &dto.AdminLoginRequest{Email: "admin@seatallot.local", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}
