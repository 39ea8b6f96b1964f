package services

import (
	"strings"
	"time"

	"legalflow/models"
)

// ParseDate parses a date string in the YYYY-MM-DD format used by the API
func ParseDate(dateStr string) (time.Time, error) {
	parsed, err := time.Parse(models.DateLayout, strings.TrimSpace(dateStr))
	if err != nil {
		return time.Time{}, invalid("", "invalid date format: expected YYYY-MM-DD")
	}
	return parsed, nil
}

// ParseOptionalDate returns nil for an empty string and a field error for a bad one.
func ParseOptionalDate(field, dateStr string) (*time.Time, error) {
	if strings.TrimSpace(dateStr) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(models.DateLayout, strings.TrimSpace(dateStr))
	if err != nil {
		return nil, invalid(field, "expected YYYY-MM-DD")
	}
	return &parsed, nil
}

