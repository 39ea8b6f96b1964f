package services

import (
	"errors"
	"fmt"
	"strings"

	"legalflow/db"
	"legalflow/models"
	"legalflow/tenant"

	"gorm.io/gorm"
)

// findScoped loads one record by id inside the scope. Records of other
// offices are reported as not found.
func findScoped(database *gorm.DB, scope tenant.Scope, dest interface{}, resource, id string, preloads ...string) error {
	query := scope.Apply(database)
	for _, p := range preloads {
		query = query.Preload(p)
	}
	err := query.First(dest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(resource, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", strings.ToLower(resource), err)
	}
	return nil
}

// officeForWrite picks the office a new record belongs to. Office scopes
// always write into their own office; superusers must name one.
func officeForWrite(database *gorm.DB, scope tenant.Scope, requested string) (string, error) {
	if officeID, ok := scope.OfficeID(); ok {
		return officeID, nil
	}
	if !scope.IsUnrestricted() {
		return "", denied("no office in scope")
	}
	if requested == "" {
		return "", invalid("office_id", "is required")
	}
	var office models.Office
	if err := database.First(&office, "id = ?", requested).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", invalid("office_id", "unknown office")
		}
		return "", fmt.Errorf("failed to load office: %w", err)
	}
	return office.ID, nil
}

// ensureOwned rejects writes to records outside the scope.
func ensureOwned(scope tenant.Scope, officeID, resource, id string) error {
	if !scope.Owns(officeID) {
		return notFound(resource, id)
	}
	return nil
}

// officeMember loads a user that must belong to officeID.
func officeMember(database *gorm.DB, officeID, userID, field string) (*models.User, error) {
	var user models.User
	err := database.Where("office_id = ? AND is_active = ?", officeID, true).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalid(field, "user is not an active member of this office")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// saveError maps unique violations to conflicts.
func saveError(err error, resource, action string) error {
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err) {
		return conflict(resource, "a record with the same unique key already exists")
	}
	return fmt.Errorf("failed to %s %s: %w", action, strings.ToLower(resource), err)
}
