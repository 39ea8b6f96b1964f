package services

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	"legalflow/db"
	"legalflow/models"
	"legalflow/tenant"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeeContractInput is the writable part of a FeeContract
type FeeContractInput struct {
	CaseID         string  `json:"case_id" validate:"required"`
	Type           string  `json:"type" validate:"omitempty,oneof=success fixed hourly mixed"`
	PaymentPlan    string  `json:"payment_plan"`
	TotalAmount    float64 `json:"total_amount" validate:"gt=0"`
	SuccessPercent float64 `json:"success_percent" validate:"gte=0,lte=100"`
	HourlyRate     float64 `json:"hourly_rate" validate:"gte=0"`
	Installments   int     `json:"installments" validate:"gte=0,lte=120"`
	DueDay         int     `json:"due_day" validate:"gte=0,lte=31"`
	Clauses        string  `json:"clauses"`
	Notes          string  `json:"notes"`
	Signed         bool    `json:"signed"`
	Active         *bool   `json:"active"`
}

// FeeContractView adds the per-installment value
type FeeContractView struct {
	models.FeeContract
	InstallmentAmount float64 `json:"installment_amount"`
}

func NewFeeContractView(f models.FeeContract) FeeContractView {
	return FeeContractView{FeeContract: f, InstallmentAmount: f.InstallmentAmount()}
}

func (in FeeContractInput) apply(f *models.FeeContract, now time.Time) {
	if in.Type == "" {
		in.Type = models.FeeSuccess
	}
	if in.PaymentPlan == "" {
		in.PaymentPlan = "installments"
	}
	if in.Installments == 0 {
		in.Installments = 1
	}
	if in.DueDay == 0 {
		in.DueDay = models.DefaultInstallmentDay
	}
	if in.Signed && !f.Signed {
		today := models.DateOf(now)
		f.SignedAt = &today
	} else if !in.Signed {
		f.SignedAt = nil
	}
	f.Type = in.Type
	f.PaymentPlan = in.PaymentPlan
	f.TotalAmount = in.TotalAmount
	f.SuccessPercent = in.SuccessPercent
	f.HourlyRate = in.HourlyRate
	f.Installments = in.Installments
	f.DueDay = in.DueDay
	f.Clauses = in.Clauses
	f.Notes = in.Notes
	f.Signed = in.Signed
	if in.Active != nil {
		f.Active = *in.Active
	}
}

func ListFeeContracts(database *gorm.DB, scope tenant.Scope, clientID string, page Page) ([]models.FeeContract, int64, error) {
	query := scope.Apply(database.Model(&models.FeeContract{}))
	if clientID != "" {
		query = query.Where("client_id = ?", clientID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count fee contracts: %w", err)
	}
	var contracts []models.FeeContract
	if err := page.Apply(query.Order("created_at DESC")).Find(&contracts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list fee contracts: %w", err)
	}
	return contracts, total, nil
}

func GetFeeContract(database *gorm.DB, scope tenant.Scope, id string) (*models.FeeContract, error) {
	var f models.FeeContract
	if err := findScoped(database, scope, &f, "FeeContract", id); err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateFeeContract attaches a contract to a case in scope; one per case.
func CreateFeeContract(database *gorm.DB, scope tenant.Scope, actor *models.User, in FeeContractInput, now time.Time) (*models.FeeContract, error) {
	c, err := caseForChild(database, scope, in.CaseID)
	if err != nil {
		return nil, err
	}
	f := models.FeeContract{OfficeID: c.OfficeID, CaseID: c.ID, ClientID: c.ClientID, Active: true}
	if actor != nil {
		f.CreatedByID = &actor.ID
	}
	in.apply(&f, now)

	err = database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&f).Error; err != nil {
			if db.IsUniqueViolation(err) {
				return conflict("FeeContract", "case already has a fee contract")
			}
			return fmt.Errorf("failed to create fee contract: %w", err)
		}
		if !f.Active {
			return tx.Model(&f).Update("active", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func UpdateFeeContract(database *gorm.DB, scope tenant.Scope, id string, in FeeContractInput, now time.Time) (*models.FeeContract, error) {
	f, err := GetFeeContract(database, scope, id)
	if err != nil {
		return nil, err
	}
	in.apply(f, now)
	if err := database.Omit(clause.Associations).Save(f).Error; err != nil {
		return nil, saveError(err, "FeeContract", "update")
	}
	return f, nil
}

// DeleteFeeContract removes the contract and its unpaid installments.
// Installments with payments stay as plain ledger lines.
func DeleteFeeContract(database *gorm.DB, scope tenant.Scope, id string) (*models.FeeContract, error) {
	f, err := GetFeeContract(database, scope, id)
	if err != nil {
		return nil, err
	}
	err = database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("fee_contract_id = ? AND amount_paid = 0", id).Delete(&models.FinancialEntry{}).Error; err != nil {
			return fmt.Errorf("failed to delete installments: %w", err)
		}
		if err := tx.Model(&models.FinancialEntry{}).Where("fee_contract_id = ?", id).Update("fee_contract_id", nil).Error; err != nil {
			return fmt.Errorf("failed to unlink installments: %w", err)
		}
		return tx.Delete(f).Error
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// GenerateInstallments replaces the contract's installments with N revenue
// entries "Honorários - Parcela i/N". The first is due today, the rest on the
// contract's due day of each following month. Once any installment has a
// payment the set is frozen and regeneration is a Conflict.
func GenerateInstallments(database *gorm.DB, scope tenant.Scope, actor *models.User, id string, now time.Time) ([]models.FinancialEntry, error) {
	f, err := GetFeeContract(database, scope, id)
	if err != nil {
		return nil, err
	}
	count := f.Installments
	if count <= 0 {
		count = 1
	}
	if f.TotalAmount <= 0 {
		return nil, invalid("total_amount", "must be positive to generate installments")
	}

	dueDates := models.InstallmentDueDates(now, count, f.DueDay)
	amount := math.Round(f.TotalAmount/float64(count)*100) / 100
	recurrence := models.RecurrenceOnce
	if count > 1 {
		recurrence = models.RecurrenceMonthly
	}

	entries := make([]models.FinancialEntry, 0, count)
	var allocated float64
	for i, due := range dueDates {
		value := amount
		if i == count-1 {
			// last installment absorbs rounding
			value = math.Round((f.TotalAmount-allocated)*100) / 100
		}
		allocated += value
		contractID := f.ID
		caseID := f.CaseID
		clientID := f.ClientID
		e := models.FinancialEntry{
			OfficeID:          f.OfficeID,
			ClientID:          &clientID,
			CaseID:            &caseID,
			FeeContractID:     &contractID,
			Type:              models.EntryRevenue,
			Category:          models.CategoryFees,
			Description:       fmt.Sprintf("Honorários - Parcela %d/%d", i+1, count),
			Amount:            value,
			DueDate:           due,
			Status:            models.EntryPending,
			Recurrence:        recurrence,
			Installment:       i + 1,
			TotalInstallments: count,
			SendReminder:      true,
		}
		if actor != nil {
			e.CreatedByID = &actor.ID
		}
		entries = append(entries, e)
	}

	err = database.Transaction(func(tx *gorm.DB) error {
		var paid int64
		if err := tx.Model(&models.FinancialEntry{}).Where("fee_contract_id = ? AND amount_paid > 0", f.ID).Count(&paid).Error; err != nil {
			return fmt.Errorf("failed to check paid installments: %w", err)
		}
		if paid > 0 {
			return conflict("FeeContract", fmt.Sprintf("%d installment(s) already have payments", paid))
		}
		if err := tx.Unscoped().Where("fee_contract_id = ? AND amount_paid = 0", f.ID).Delete(&models.FinancialEntry{}).Error; err != nil {
			return fmt.Errorf("failed to delete previous installments: %w", err)
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("failed to create installments: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GenerateFeeContractPDF renders the contract, stores the PDF under the
// office prefix and records its key on the contract.
func GenerateFeeContractPDF(ctx context.Context, database *gorm.DB, store ObjectStore, renderer PDFRenderer, scope tenant.Scope, id string, now time.Time) (*models.FeeContract, []byte, error) {
	f, err := GetFeeContract(database, scope, id)
	if err != nil {
		return nil, nil, err
	}

	var c models.Case
	if err := database.Preload("Client").First(&c, "id = ?", f.CaseID).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load case: %w", err)
	}
	var office models.Office
	if err := database.First(&office, "id = ?", f.OfficeID).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load office: %w", err)
	}

	doc := FeeContractDocument{
		OfficeName:        office.Name,
		CaseReference:     c.Reference,
		FilingNumber:      c.FilingNumber,
		Type:              f.Type,
		Total:             FormatBRL(f.TotalAmount),
		SuccessPercent:    f.SuccessPercent,
		Installments:      f.Installments,
		InstallmentAmount: FormatBRL(f.InstallmentAmount()),
		DueDay:            f.DueDay,
		Clauses:           f.Clauses,
		IssuedAt:          models.DateOf(now).Format("02/01/2006"),
	}
	if c.Client != nil {
		doc.ClientName = c.Client.Name
		doc.ClientTaxID = c.Client.TaxID
	}
	html, err := RenderFeeContractHTML(doc)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := renderer.Render(ctx, html)
	if err != nil {
		return nil, nil, err
	}

	key := OfficeObjectKey(f.OfficeID, "contracts", f.ID, "contrato.pdf")
	if _, err := store.Put(ctx, bytes.NewReader(pdf), key, "application/pdf", int64(len(pdf))); err != nil {
		return nil, nil, err
	}
	previous := f.PDFKey
	if err := database.Model(f).Update("pdf_key", key).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to record contract pdf: %w", err)
	}
	f.PDFKey = &key
	if previous != nil {
		_ = store.Remove(ctx, *previous)
	}
	return f, pdf, nil
}
