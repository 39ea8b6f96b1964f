package jobs

import (
	"fmt"
	"time"

	"legalflow/config"
	"legalflow/models"
	"legalflow/services"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// maxLeadDays bounds the due-date window loaded by the sweeps; per-record
// lead times are validated against it.
const maxLeadDays = 60

func sameDay(a *time.Time, now time.Time) bool {
	return a != nil && models.DateOf(*a).Equal(models.DateOf(now))
}

// SendDeadlineAlerts emails the responsible user of every pending deadline
// inside its alert window, overdue ones included. Each deadline is alerted at
// most once a day.
func SendDeadlineAlerts(database *gorm.DB, mailer services.Mailer, cfg *config.Config, now time.Time) (int, error) {
	today := models.DateOf(now)
	horizon := today.AddDate(0, 0, maxLeadDays)

	var deadlines []models.Deadline
	err := database.Preload("Responsible").Preload("Case").
		Where("status = ? AND responsible_id IS NOT NULL", models.DeadlinePending).
		Where("due_date <= ?", horizon).
		Find(&deadlines).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load deadlines: %w", err)
	}

	sent := 0
	for i := range deadlines {
		d := &deadlines[i]
		if !d.NeedsAlert(now) || sameDay(d.LastAlertSentAt, now) {
			continue
		}
		if d.Responsible == nil || !d.Responsible.IsActive || d.Responsible.Email == "" {
			continue
		}

		reference := ""
		if d.Case != nil {
			reference = d.Case.Reference
			if reference == "" {
				reference = d.Case.FilingNumber
			}
		}
		days := 0
		if remaining := d.DaysRemaining(now); remaining != nil {
			days = *remaining
		}
		email, err := services.BuildDeadlineAlertEmail(d.Responsible.Email, services.DeadlineAlertEmailData{
			UserName:      d.Responsible.Name,
			Title:         d.Title,
			Reference:     reference,
			DueDate:       d.DueDate.Format("02/01/2006"),
			DaysRemaining: days,
			Priority:      d.Priority,
			Link:          cfg.AppURL + "/api/deadlines/" + d.ID,
		})
		if err != nil {
			return sent, err
		}
		if err := mailer.Send(email); err != nil {
			log.Error().Err(err).Str("deadline_id", d.ID).Msg("Failed to send deadline alert")
			continue
		}

		database.Model(d).Session(&gorm.Session{SkipHooks: true}).Updates(map[string]interface{}{
			"alerts_sent":        gorm.Expr("alerts_sent + 1"),
			"last_alert_sent_at": now,
		})
		sent++
	}

	log.Info().Int("sent", sent).Int("candidates", len(deadlines)).Msg("Deadline alert sweep completed")
	return sent, nil
}

// SendFinancialReminders emails the finance users of the office about every
// entry inside its reminder window. Overdue entries get no reminder.
func SendFinancialReminders(database *gorm.DB, mailer services.Mailer, cfg *config.Config, now time.Time) (int, error) {
	today := models.DateOf(now)
	horizon := today.AddDate(0, 0, maxLeadDays)

	var entries []models.FinancialEntry
	err := database.
		Where("send_reminder = ? AND status NOT IN ?", true, []string{models.EntryPaid, models.EntryCanceled}).
		Where("due_date >= ? AND due_date <= ?", today, horizon).
		Order("office_id, due_date").
		Find(&entries).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load financial entries: %w", err)
	}

	recipients := map[string][]models.User{}
	sent := 0
	for i := range entries {
		e := &entries[i]
		if !e.NeedsReminder(now) || sameDay(e.LastReminderAt, now) {
			continue
		}
		users, ok := recipients[e.OfficeID]
		if !ok {
			users, err = financeUsers(database, e.OfficeID)
			if err != nil {
				return sent, err
			}
			recipients[e.OfficeID] = users
		}
		if len(users) == 0 {
			continue
		}

		delivered := false
		for _, u := range users {
			email, err := services.BuildFinancialReminderEmail(u.Email, services.FinancialReminderEmailData{
				UserName:    u.Name,
				Description: e.Description,
				Amount:      services.FormatBRL(e.Amount),
				Outstanding: services.FormatBRL(e.Outstanding()),
				DueDate:     e.DueDate.Format("02/01/2006"),
				Link:        cfg.AppURL + "/api/financial-entries/" + e.ID,
			})
			if err != nil {
				return sent, err
			}
			if err := mailer.Send(email); err != nil {
				log.Error().Err(err).Str("entry_id", e.ID).Str("user_id", u.ID).Msg("Failed to send financial reminder")
				continue
			}
			delivered = true
			sent++
		}
		if delivered {
			database.Model(e).Session(&gorm.Session{SkipHooks: true}).Update("last_reminder_at", now)
		}
	}

	log.Info().Int("sent", sent).Int("candidates", len(entries)).Msg("Financial reminder sweep completed")
	return sent, nil
}

func financeUsers(database *gorm.DB, officeID string) ([]models.User, error) {
	var users []models.User
	if err := database.Where("office_id = ? AND is_active = ? AND email <> ''", officeID, true).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load office users: %w", err)
	}
	out := users[:0]
	for _, u := range users {
		if u.Can(models.CapManageFinance) {
			out = append(out, u)
		}
	}
	return out, nil
}

// OverdueResult counts the records flipped by MarkOverdue.
type OverdueResult struct {
	Deadlines int64 `json:"deadlines"`
	Entries   int64 `json:"entries"`
}

// MarkOverdue stores the overdue status on pending deadlines and on pending or
// partial financial entries whose due date has passed. Nothing else moves a
// stored status to overdue.
func MarkOverdue(database *gorm.DB, now time.Time) (*OverdueResult, error) {
	today := models.DateOf(now)
	result := &OverdueResult{}

	err := database.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Deadline{}).Session(&gorm.Session{SkipHooks: true}).
			Where("status = ? AND due_date < ?", models.DeadlinePending, today).
			Update("status", models.DeadlineOverdue)
		if res.Error != nil {
			return fmt.Errorf("failed to mark overdue deadlines: %w", res.Error)
		}
		result.Deadlines = res.RowsAffected

		res = tx.Model(&models.FinancialEntry{}).Session(&gorm.Session{SkipHooks: true}).
			Where("status IN ? AND due_date < ?", []string{models.EntryPending, models.EntryPartial}, today).
			Update("status", models.EntryOverdue)
		if res.Error != nil {
			return fmt.Errorf("failed to mark overdue entries: %w", res.Error)
		}
		result.Entries = res.RowsAffected
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int64("deadlines", result.Deadlines).Int64("entries", result.Entries).Msg("Overdue sweep completed")
	return result, nil
}
