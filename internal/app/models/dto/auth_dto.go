package dto

// ApplicantLoginRequest represents applicant login credentials
type ApplicantLoginRequest struct {
	Email             string `json:"email" binding:"required,email" example:"asha@example.com"`
	ApplicationNumber string `json:"applicationNumber" binding:"required" example:"48213377"`
}

// AdminLoginRequest represents admin login credentials
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"admin@example.com"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken       string `json:"accessToken"`
	TokenType         string `json:"tokenType" example:"Bearer"`
	ExpiresIn         int64  `json:"expiresIn" example:"7200"`
	Role              string `json:"role" example:"student"`
	ApplicationNumber string `json:"applicationNumber,omitempty" example:"48213377"`
}
