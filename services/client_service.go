package services

import (
	"fmt"
	"strings"

	"legalflow/models"
	"legalflow/tenant"

	"gorm.io/gorm"
)

// ClientInput is the writable part of a Client
type ClientInput struct {
	OfficeID   string `json:"office_id"`
	PersonType string `json:"person_type" validate:"omitempty,oneof=individual company"`
	Name       string `json:"name" validate:"required,max=200"`
	TaxID      string `json:"tax_id" validate:"max=20"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"max=30"`
	Mobile     string `json:"mobile" validate:"max=30"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state" validate:"max=2"`
	ZipCode    string `json:"zip_code" validate:"max=10"`
	BirthDate  string `json:"birth_date"`
	Notes      string `json:"notes"`
	IsActive   *bool  `json:"is_active"`
}

// ClientFilters narrows client listings
type ClientFilters struct {
	Search     string
	PersonType string
	Active     *bool
}

func (in ClientInput) apply(c *models.Client) error {
	birth, err := ParseOptionalDate("birth_date", in.BirthDate)
	if err != nil {
		return err
	}
	c.PersonType = in.PersonType
	if c.PersonType == "" {
		c.PersonType = models.PersonIndividual
	}
	c.Name = strings.TrimSpace(in.Name)
	c.TaxID = strings.TrimSpace(in.TaxID)
	c.Email = strings.TrimSpace(in.Email)
	c.Phone = in.Phone
	c.Mobile = in.Mobile
	c.Address = in.Address
	c.City = in.City
	c.State = strings.ToUpper(in.State)
	c.ZipCode = in.ZipCode
	c.BirthDate = birth
	c.Notes = in.Notes
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	return nil
}

// ListClients returns clients in scope ordered by name.
func ListClients(database *gorm.DB, scope tenant.Scope, filters ClientFilters, page Page) ([]models.Client, int64, error) {
	query := scope.Apply(database.Model(&models.Client{}))
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		digits := models.OnlyDigits(filters.Search)
		if digits != "" {
			query = query.Where("name LIKE ? OR tax_id LIKE ? OR email LIKE ? OR phone_digits LIKE ?", pattern, pattern, pattern, "%"+digits+"%")
		} else {
			query = query.Where("name LIKE ? OR tax_id LIKE ? OR email LIKE ?", pattern, pattern, pattern)
		}
	}
	if filters.PersonType != "" {
		query = query.Where("person_type = ?", filters.PersonType)
	}
	if filters.Active != nil {
		query = query.Where("is_active = ?", *filters.Active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count clients: %w", err)
	}
	var clients []models.Client
	if err := page.Apply(query.Order("name ASC")).Find(&clients).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, total, nil
}

// GetClient loads one client in scope.
func GetClient(database *gorm.DB, scope tenant.Scope, id string) (*models.Client, error) {
	var client models.Client
	if err := findScoped(database, scope, &client, "Client", id); err != nil {
		return nil, err
	}
	return &client, nil
}

// CreateClient stores a new client in the scope's office.
func CreateClient(database *gorm.DB, scope tenant.Scope, in ClientInput) (*models.Client, error) {
	officeID, err := officeForWrite(database, scope, in.OfficeID)
	if err != nil {
		return nil, err
	}
	client := models.Client{OfficeID: officeID, IsActive: true}
	if err := in.apply(&client); err != nil {
		return nil, err
	}

	err = database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&client).Error; err != nil {
			return saveError(err, "Client", "create")
		}
		// gorm skips zero values that have a column default
		if !client.IsActive {
			return tx.Model(&client).Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// UpdateClient replaces the writable fields of a client.
func UpdateClient(database *gorm.DB, scope tenant.Scope, id string, in ClientInput) (*models.Client, error) {
	client, err := GetClient(database, scope, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(client); err != nil {
		return nil, err
	}
	if err := database.Save(client).Error; err != nil {
		return nil, saveError(err, "Client", "update")
	}
	return client, nil
}

// DeleteClient removes a client that no case or financial entry references.
func DeleteClient(database *gorm.DB, scope tenant.Scope, id string) (*models.Client, error) {
	client, err := GetClient(database, scope, id)
	if err != nil {
		return nil, err
	}

	var cases int64
	if err := database.Model(&models.Case{}).Where("client_id = ?", id).Count(&cases).Error; err != nil {
		return nil, fmt.Errorf("failed to count cases: %w", err)
	}
	if cases > 0 {
		return nil, conflict("Client", fmt.Sprintf("client has %d case(s)", cases))
	}
	var entries int64
	if err := database.Model(&models.FinancialEntry{}).Where("client_id = ?", id).Count(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to count financial entries: %w", err)
	}
	if entries > 0 {
		return nil, conflict("Client", fmt.Sprintf("client has %d financial entr(ies)", entries))
	}

	if err := database.Delete(client).Error; err != nil {
		return nil, fmt.Errorf("failed to delete client: %w", err)
	}
	return client, nil
}
