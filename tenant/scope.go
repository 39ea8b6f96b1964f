// Package tenant resolves which office a request acts for and applies that
// scope to queries. Every data-access function takes a Scope argument.
package tenant

import (
	"errors"

	"legalflow/models"

	"gorm.io/gorm"
)

// ErrNoOffice is returned for authenticated users that belong to no office.
var ErrNoOffice = errors.New("user is not attached to an office")

type kind int

const (
	kindNone kind = iota
	kindOffice
	kindUnrestricted
)

// Scope is the tenant boundary of one request. The zero value sees nothing.
type Scope struct {
	kind     kind
	officeID string
}

// Unrestricted is the superuser scope.
func Unrestricted() Scope {
	return Scope{kind: kindUnrestricted}
}

// ForOffice fixes the scope to one office.
func ForOffice(officeID string) Scope {
	if officeID == "" {
		return None()
	}
	return Scope{kind: kindOffice, officeID: officeID}
}

// None is the scope of anonymous requests.
func None() Scope {
	return Scope{kind: kindNone}
}

// Resolve maps a principal to its scope. A nil user is anonymous.
func Resolve(user *models.User) (Scope, error) {
	switch {
	case user == nil:
		return None(), nil
	case user.IsSuperuser:
		return Unrestricted(), nil
	case user.HasOffice():
		return ForOffice(*user.OfficeID), nil
	default:
		return None(), ErrNoOffice
	}
}

// IsUnrestricted reports whether no office filter applies.
func (s Scope) IsUnrestricted() bool {
	return s.kind == kindUnrestricted
}

// IsNone reports whether the scope sees nothing.
func (s Scope) IsNone() bool {
	return s.kind == kindNone
}

// OfficeID returns the office of an office scope.
func (s Scope) OfficeID() (string, bool) {
	return s.officeID, s.kind == kindOffice
}

// Owns reports whether a record of officeID is inside the scope.
func (s Scope) Owns(officeID string) bool {
	switch s.kind {
	case kindUnrestricted:
		return true
	case kindOffice:
		return officeID != "" && s.officeID == officeID
	default:
		return false
	}
}

// Apply filters db by the scope on the office_id column.
func (s Scope) Apply(db *gorm.DB) *gorm.DB {
	return s.ApplyColumn(db, "office_id")
}

// ApplyColumn filters on a qualified column, for joined queries.
func (s Scope) ApplyColumn(db *gorm.DB, column string) *gorm.DB {
	switch s.kind {
	case kindUnrestricted:
		return db
	case kindOffice:
		return db.Where(column+" = ?", s.officeID)
	default:
		return db.Where("1 = 0")
	}
}

// String is used in logs.
func (s Scope) String() string {
	switch s.kind {
	case kindUnrestricted:
		return "unrestricted"
	case kindOffice:
		return "office:" + s.officeID
	default:
		return "none"
	}
}
