package services

import (
	"fmt"
	"strings"

	"legalflow/models"
	"legalflow/tenant"

	"gorm.io/gorm"
)

// UserInput is the writable part of a User. Password is only read on create.
type UserInput struct {
	OfficeID    string `json:"office_id"`
	Name        string `json:"name" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password"`
	Role        string `json:"role" validate:"required"`
	Phone       string `json:"phone"`
	BarNumber   string `json:"bar_number"`
	IsActive    *bool  `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// UserView is a user with its derived capabilities
type UserView struct {
	models.User
	Capabilities models.Capabilities `json:"capabilities"`
}

func NewUserView(u models.User) UserView {
	return UserView{User: u, Capabilities: u.Capabilities()}
}

func (in UserInput) apply(scope tenant.Scope, u *models.User) error {
	if !models.IsValidRole(in.Role) {
		return invalid("role", "unknown role")
	}
	if in.IsSuperuser && !scope.IsUnrestricted() {
		return denied("only superusers can grant superuser")
	}
	u.Name = strings.TrimSpace(in.Name)
	u.Email = strings.ToLower(strings.TrimSpace(in.Email))
	u.Role = in.Role
	u.Phone = in.Phone
	u.BarNumber = in.BarNumber
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if scope.IsUnrestricted() {
		u.IsSuperuser = in.IsSuperuser
	}
	return nil
}

// ListUsers returns users in scope ordered by name.
func ListUsers(database *gorm.DB, scope tenant.Scope, role string, page Page) ([]models.User, int64, error) {
	query := scope.Apply(database.Model(&models.User{}))
	if role != "" {
		query = query.Where("role = ?", role)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	var users []models.User
	if err := page.Apply(query.Order("name ASC")).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// GetUser loads one user in scope.
func GetUser(database *gorm.DB, scope tenant.Scope, id string) (*models.User, error) {
	var user models.User
	if err := findScoped(database, scope, &user, "User", id); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser adds a member to the scope's office. Superusers may create
// office-less superusers by leaving office_id empty.
func CreateUser(database *gorm.DB, scope tenant.Scope, in UserInput) (*models.User, error) {
	if err := ValidatePassword("password", in.Password, in.Email); err != nil {
		return nil, err
	}

	user := models.User{IsActive: true}
	if err := in.apply(scope, &user); err != nil {
		return nil, err
	}
	if !(scope.IsUnrestricted() && in.IsSuperuser && in.OfficeID == "") {
		officeID, err := officeForWrite(database, scope, in.OfficeID)
		if err != nil {
			return nil, err
		}
		user.OfficeID = &officeID
	}

	hashed, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user.Password = hashed

	err = database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return saveError(err, "User", "create")
		}
		if !user.IsActive {
			return tx.Model(&user).Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser replaces profile, role and active flag. Passwords change through
// ChangePassword only.
func UpdateUser(database *gorm.DB, scope tenant.Scope, actor *models.User, id string, in UserInput) (*models.User, error) {
	user, err := GetUser(database, scope, id)
	if err != nil {
		return nil, err
	}
	if actor != nil && actor.ID == user.ID && in.IsActive != nil && !*in.IsActive {
		return nil, invalid("is_active", "users cannot deactivate themselves")
	}
	if err := in.apply(scope, user); err != nil {
		return nil, err
	}
	if err := database.Omit("Password").Save(user).Error; err != nil {
		return nil, saveError(err, "User", "update")
	}
	return user, nil
}

// DeleteUser removes a user other than the actor.
func DeleteUser(database *gorm.DB, scope tenant.Scope, actor *models.User, id string) (*models.User, error) {
	user, err := GetUser(database, scope, id)
	if err != nil {
		return nil, err
	}
	if actor != nil && actor.ID == user.ID {
		return nil, invalid("id", "users cannot delete themselves")
	}

	var cases int64
	if err := database.Model(&models.Case{}).Where("responsible_id = ?", id).Count(&cases).Error; err != nil {
		return nil, fmt.Errorf("failed to count cases: %w", err)
	}
	if cases > 0 {
		return nil, conflict("User", fmt.Sprintf("user is responsible for %d case(s)", cases))
	}

	if err := database.Delete(user).Error; err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	return user, nil
}
