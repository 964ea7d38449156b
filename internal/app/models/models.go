package models

import "strings"

// RoleType defines the caller role carried in access tokens
type RoleType string

const (
	RoleApplicant RoleType = "student"
	RoleAdmin     RoleType = "admin"
)

// Category is an applicant's reservation class
type Category string

// Reservation categories known to the default priority order
const (
	CategoryOBC  Category = "OBC"
	CategoryEWS  Category = "EWS"
	CategorySC   Category = "SC"
	CategoryRBA  Category = "RBA"
	CategoryRLAC Category = "RLAC"
	CategoryST   Category = "ST"
	CategoryGEN  Category = "GEN"
)

// DefaultCategoryOrder processes reserved categories first and the general pool last.
var DefaultCategoryOrder = []Category{
	CategoryOBC, CategoryEWS, CategorySC, CategoryRBA, CategoryRLAC, CategoryST, CategoryGEN,
}

// DefaultMaxChoices is the number of department choices an applicant may submit.
const DefaultMaxChoices = 7

// NormalizeCategory trims and upper-cases a category code.
func NormalizeCategory(raw string) Category {
	return Category(strings.ToUpper(strings.TrimSpace(raw)))
}

// NormalizeDepartment trims and case-folds a department key. Inventory rows
// and preference choices are compared in this form.
func NormalizeDepartment(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
