package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
)

// Allocation errors
var (
	// ErrNoCapacity is returned when an inventory row has no remaining seats.
	ErrNoCapacity = errors.New("no remaining capacity")
	// ErrUnknownChoice is returned when a preference names a department that
	// is not offered under the applicant's category.
	ErrUnknownChoice = errors.New("department not offered under category")
	// ErrInconsistentInventory marks a row whose conservation check failed.
	// The row is halted until it is repaired.
	ErrInconsistentInventory = errors.New("inconsistent inventory")
	// ErrStorageFailure is returned when an applicant's atomic step could not commit.
	ErrStorageFailure = errors.New("storage failure")

	ErrInvalidRound    = errors.New("round number must be a positive integer")
	ErrRoundInProgress = errors.New("an allocation round is already in progress")
)

// Decision errors
var (
	ErrDecisionAlreadySubmitted = errors.New("decision already submitted")
	ErrInvalidDecision          = errors.New("invalid decision")
	ErrAllocationNotFound       = errors.New("allocation not found")
)

// Applicant errors
var (
	ErrApplicantNotFound = errors.New("applicant not found")
	ErrApplicantExists   = errors.New("applicant already exists")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
